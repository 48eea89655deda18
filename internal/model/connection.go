package model

import "fmt"

// ConnectionInfo is a snapshot of the parameters needed to connect to a
// running instance. It is derived data, never authoritative.
type ConnectionInfo struct {
	Host     string
	Port     int
	Username string
	Password string
	Database string
}

// URL returns the postgresql:// connection string.
func (c ConnectionInfo) URL() string {
	return fmt.Sprintf("postgresql://%s:%s@%s:%d/%s", c.Username, c.Password, c.Host, c.Port, c.Database)
}

// SafeURL returns the connection string with the password redacted, safe for logs.
func (c ConnectionInfo) SafeURL() string {
	return fmt.Sprintf("postgresql://%s:***@%s:%d/%s", c.Username, c.Host, c.Port, c.Database)
}

// JDBCURL returns the connection string in JDBC format.
func (c ConnectionInfo) JDBCURL() string {
	return fmt.Sprintf("jdbc:postgresql://%s:%d/%s?user=%s&password=%s", c.Host, c.Port, c.Database, c.Username, c.Password)
}
