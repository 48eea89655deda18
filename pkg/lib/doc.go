// Package lib provides a Go SDK for running embedded PostgreSQL instances.
//
// This package allows applications and tests to spin up a real PostgreSQL
// server, get its connection information, run database admin operations and
// client tools against it, and tear it down again without shelling out to the
// pgembed CLI binary.
//
// # Quick Start
//
// Create an instance, start it, connect and tear it down:
//
//	pg, err := lib.New(ctx, lib.Config{Port: 5433})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer pg.Close(ctx)
//
//	if err := pg.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//
//	info, err := pg.ConnectionInfo()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	db, err := sql.Open("postgres", info.URL())
//
// # Engines
//
// The SDK supports three engine types:
//
//   - [EngineLocal]: Runs PostgreSQL from locally installed binaries. The
//     binaries are resolved from [Config].BinDir or PATH. This is the default.
//   - [EngineDocker]: Runs PostgreSQL inside a Docker container. Requires a
//     reachable Docker daemon and [Config].Image.
//   - [EngineFake]: In-memory simulation for unit testing. No real server.
//
// # Lifecycle
//
// An instance moves through stopped -> starting -> running -> stopping ->
// stopped. Start and Stop are bounded by the configured timeouts and reject
// redundant transitions: starting a running instance is an error, not a
// no-op. [Postgres.Close] releases everything exactly once and is safe to
// call multiple times.
//
// # Tools
//
// Run the PostgreSQL client utilities against a running instance:
//
//	res, err := pg.Dump(ctx, lib.DumpOpts{File: "/tmp/backup.dump", Format: "c"})
//	res, err = pg.SQL(ctx, "SELECT count(*) FROM users")
//
// Non-zero tool exits are reported through [ToolResult], not as Go errors.
//
// # Errors
//
// All errors are matched with errors.Is against the exported sentinels:
// [ErrStartFailed], [ErrStopFailed], [ErrTimeout], [ErrDatabaseOperation],
// [ErrConnectionUnavailable] and friends.
package lib
