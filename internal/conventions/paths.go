package conventions

import "path/filepath"

const (
	// DefaultDataDir is the default pgembed data directory name (relative to home).
	DefaultDataDir = ".pgembed"
	// InstancesDir is the subdirectory for per-instance server data.
	InstancesDir = "instances"
	// DBFile is the default instance registry database filename.
	DBFile = "pgembed.db"

	// Instance-level files.

	// PGDataDir is the PostgreSQL cluster data subdirectory of an instance.
	PGDataDir = "data"
	// ServerLogFile is the server log filename of an instance.
	ServerLogFile = "server.log"
	// PasswordFile is the transient password file handed to initdb.
	PasswordFile = ".pgpass-init"
)

// InstanceDir returns the directory for a specific instance.
func InstanceDir(dataDir, instanceID string) string {
	return filepath.Join(dataDir, InstancesDir, instanceID)
}

// InstancePGData returns the PostgreSQL cluster data directory of an instance.
func InstancePGData(dataDir, instanceID string) string {
	return filepath.Join(InstanceDir(dataDir, instanceID), PGDataDir)
}

// InstanceServerLog returns the server log path of an instance.
func InstanceServerLog(dataDir, instanceID string) string {
	return filepath.Join(InstanceDir(dataDir, instanceID), ServerLogFile)
}

// DBPath returns the instance registry database path inside a data dir.
func DBPath(dataDir string) string {
	return filepath.Join(dataDir, DBFile)
}
