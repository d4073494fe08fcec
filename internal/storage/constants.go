package db

import "time"

// Database connection constants
const (
	// ConnectionRetrySleep is the sleep duration between connection retries
	ConnectionRetrySleep = 2 * time.Second
	// maxConnectionRetries is the number of retries for initial connection
	maxConnectionRetries = 10
)

// SQLite constants
const (
	sqliteDriverName = "sqlite"
	sqliteMemoryPath = ":memory:"
	sqliteBusyPragma = "PRAGMA busy_timeout = 5000"
)

// Log field names
const (
	logFieldTable  = "table"
	logFieldColumn = "column"
	logFieldValue  = "value"
)
