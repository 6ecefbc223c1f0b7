package database

import "time"

// Pool defaults
const (
	DefaultMaxConnections  = 10
	DefaultMinConnections  = 2
	DefaultMaxConnIdleTime = 5 * time.Minute
	DefaultMaxConnLifetime = 30 * time.Minute
)

// Error message constants
const (
	ErrMsgFailedToParseConnString = "failed to parse connection string"
	ErrMsgFailedToCreatePool      = "failed to create connection pool"
	ErrMsgFailedToPingDatabase    = "failed to ping database"
	ErrMsgFailedToOpenMigrations  = "failed to open database for migrations"
	ErrMsgFailedToRunMigrations   = "failed to run migrations"
)

// Log message constants
const (
	LogMsgConnectedToDatabase = "Successfully connected to database"
	LogMsgMigrationsApplied   = "Database migrations applied"
)
