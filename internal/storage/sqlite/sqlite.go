package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/slok/pgembed/internal/log"
	"github.com/slok/pgembed/internal/model"
	"github.com/slok/pgembed/internal/storage/sqlite/migrations"
)

const (
	engineLocal  = "local"
	engineDocker = "docker"
)

// RepositoryConfig is the configuration for the SQLite repository.
type RepositoryConfig struct {
	DBPath string
	Logger log.Logger
}

func (c *RepositoryConfig) defaults() error {
	if c.DBPath == "" {
		return fmt.Errorf("db path is required")
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "storage.SQLite"})
	return nil
}

// Repository is a SQLite implementation of storage.Repository.
type Repository struct {
	db     *sql.DB
	logger log.Logger
}

// NewRepository creates a new SQLite repository.
func NewRepository(ctx context.Context, cfg RepositoryConfig) (*Repository, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	dir := filepath.Dir(cfg.DBPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("could not create db directory: %w", err)
	}

	dsn := fmt.Sprintf("%s?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)", cfg.DBPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("could not open database: %w", err)
	}

	if err := migrations.Apply(ctx, db, cfg.Logger); err != nil {
		db.Close()
		return nil, fmt.Errorf("could not prepare registry schema: %w", err)
	}

	cfg.Logger.Debugf("SQLite repository initialized at %s", cfg.DBPath)

	return &Repository{db: db, logger: cfg.Logger}, nil
}

// Close closes the database connection.
func (r *Repository) Close() error { return r.db.Close() }

const instanceColumns = `
	id, name, status, fingerprint,
	host, port, username, password, database_name,
	persistent, start_timeout_ms, stop_timeout_ms,
	engine, bin_dir, data_dir, image,
	created_at, started_at, stopped_at
`

// CreateInstance creates a new instance in the repository.
func (r *Repository) CreateInstance(ctx context.Context, i model.Instance) error {
	engine, binDir, dataDir, image, err := engineColumns(i.Config)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO instances (` + instanceColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.ExecContext(
		ctx,
		query,
		i.ID,
		i.Name,
		i.Status,
		i.Fingerprint,
		i.Config.Host,
		i.Config.Port,
		i.Config.Username,
		i.Config.Password,
		i.Config.Database,
		i.Config.Persistent,
		i.Config.StartTimeout.Milliseconds(),
		i.Config.StopTimeout.Milliseconds(),
		engine,
		binDir,
		dataDir,
		image,
		i.CreatedAt.Unix(),
		unixPtr(i.StartedAt),
		unixPtr(i.StoppedAt),
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed: instances.") {
			return fmt.Errorf("instance already exists: %w", model.ErrAlreadyExists)
		}
		return fmt.Errorf("could not insert instance: %w", err)
	}

	r.logger.Debugf("created instance in repository: %s", i.ID)
	return nil
}

// GetInstance retrieves an instance by ID.
func (r *Repository) GetInstance(ctx context.Context, id string) (*model.Instance, error) {
	query := `SELECT ` + instanceColumns + ` FROM instances WHERE id = ?`

	instance, err := r.scanOne(ctx, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("instance %s: %w", id, model.ErrNotFound)
		}
		return nil, fmt.Errorf("could not query instance: %w", err)
	}

	return instance, nil
}

// GetInstanceByName retrieves an instance by name.
func (r *Repository) GetInstanceByName(ctx context.Context, name string) (*model.Instance, error) {
	query := `SELECT ` + instanceColumns + ` FROM instances WHERE name = ?`

	instance, err := r.scanOne(ctx, query, name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("instance with name %s: %w", name, model.ErrNotFound)
		}
		return nil, fmt.Errorf("could not query instance: %w", err)
	}

	return instance, nil
}

// ListInstances returns all instances, newest first.
func (r *Repository) ListInstances(ctx context.Context) ([]model.Instance, error) {
	query := `SELECT ` + instanceColumns + ` FROM instances ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("could not query instances: %w", err)
	}
	defer rows.Close()

	var instances []model.Instance
	for rows.Next() {
		instance, err := r.scanRow(rows)
		if err != nil {
			return nil, fmt.Errorf("could not scan row: %w", err)
		}
		instances = append(instances, instance)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return instances, nil
}

// UpdateInstance updates an existing instance.
func (r *Repository) UpdateInstance(ctx context.Context, i model.Instance) error {
	engine, binDir, dataDir, image, err := engineColumns(i.Config)
	if err != nil {
		return err
	}

	query := `
		UPDATE instances
		SET
			name = ?,
			status = ?,
			fingerprint = ?,
			host = ?,
			port = ?,
			username = ?,
			password = ?,
			database_name = ?,
			persistent = ?,
			start_timeout_ms = ?,
			stop_timeout_ms = ?,
			engine = ?,
			bin_dir = ?,
			data_dir = ?,
			image = ?,
			created_at = ?,
			started_at = ?,
			stopped_at = ?
		WHERE id = ?
	`

	result, err := r.db.ExecContext(
		ctx,
		query,
		i.Name,
		i.Status,
		i.Fingerprint,
		i.Config.Host,
		i.Config.Port,
		i.Config.Username,
		i.Config.Password,
		i.Config.Database,
		i.Config.Persistent,
		i.Config.StartTimeout.Milliseconds(),
		i.Config.StopTimeout.Milliseconds(),
		engine,
		binDir,
		dataDir,
		image,
		i.CreatedAt.Unix(),
		unixPtr(i.StartedAt),
		unixPtr(i.StoppedAt),
		i.ID,
	)
	if err != nil {
		return fmt.Errorf("could not update instance: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("could not get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("instance %s: %w", i.ID, model.ErrNotFound)
	}

	r.logger.Debugf("updated instance in repository: %s", i.ID)
	return nil
}

// DeleteInstance deletes an instance.
func (r *Repository) DeleteInstance(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM instances WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("could not delete instance: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("could not get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("instance %s: %w", id, model.ErrNotFound)
	}

	r.logger.Debugf("deleted instance from repository: %s", id)
	return nil
}

func (r *Repository) scanOne(ctx context.Context, query string, arg any) (*model.Instance, error) {
	row := r.db.QueryRowContext(ctx, query, arg)
	instance, err := r.scanRow(row)
	if err != nil {
		return nil, err
	}
	return &instance, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func (r *Repository) scanRow(s scanner) (model.Instance, error) {
	var instance model.Instance
	var startTimeoutMS, stopTimeoutMS int64
	var engine, binDir, dataDir, image string
	var createdAt, startedAt, stoppedAt sql.NullInt64

	err := s.Scan(
		&instance.ID,
		&instance.Name,
		&instance.Status,
		&instance.Fingerprint,
		&instance.Config.Host,
		&instance.Config.Port,
		&instance.Config.Username,
		&instance.Config.Password,
		&instance.Config.Database,
		&instance.Config.Persistent,
		&startTimeoutMS,
		&stopTimeoutMS,
		&engine,
		&binDir,
		&dataDir,
		&image,
		&createdAt,
		&startedAt,
		&stoppedAt,
	)
	if err != nil {
		return model.Instance{}, err
	}

	instance.Config.Name = instance.Name
	instance.Config.StartTimeout = time.Duration(startTimeoutMS) * time.Millisecond
	instance.Config.StopTimeout = time.Duration(stopTimeoutMS) * time.Millisecond

	switch engine {
	case engineLocal:
		instance.Config.LocalEngine = &model.LocalEngineConfig{BinDir: binDir, DataDir: dataDir}
	case engineDocker:
		instance.Config.DockerEngine = &model.DockerEngineConfig{Image: image}
	default:
		return model.Instance{}, fmt.Errorf("unknown engine %q", engine)
	}

	if err := setTimestamps(&instance, createdAt, startedAt, stoppedAt); err != nil {
		return model.Instance{}, err
	}

	return instance, nil
}

// engineColumns flattens the engine specific config into columns.
func engineColumns(cfg model.InstanceConfig) (engine, binDir, dataDir, image string, err error) {
	switch {
	case cfg.DockerEngine != nil:
		return engineDocker, "", "", cfg.DockerEngine.Image, nil
	case cfg.LocalEngine != nil:
		return engineLocal, cfg.LocalEngine.BinDir, cfg.LocalEngine.DataDir, "", nil
	default:
		return "", "", "", "", fmt.Errorf("an engine config is required: %w", model.ErrNotValid)
	}
}

func setTimestamps(i *model.Instance, createdAt, startedAt, stoppedAt sql.NullInt64) error {
	if !createdAt.Valid {
		return fmt.Errorf("created_at is required")
	}
	i.CreatedAt = timeFromUnix(createdAt.Int64)

	if startedAt.Valid {
		t := timeFromUnix(startedAt.Int64)
		i.StartedAt = &t
	}
	if stoppedAt.Valid {
		t := timeFromUnix(stoppedAt.Int64)
		i.StoppedAt = &t
	}

	return nil
}

func unixPtr(t *time.Time) *int64 {
	if t == nil {
		return nil
	}
	u := t.Unix()
	return &u
}

func timeFromUnix(unix int64) time.Time { return time.Unix(unix, 0).UTC() }
