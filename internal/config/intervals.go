package config

import "time"

// Tracking policy
const (
	// ActiveWindow is how recently a vehicle must have reported to count as active
	ActiveWindow = 10 * time.Minute

	// MinForwardInterval is the floor for the per-session throttle interval,
	// protecting the store from runaway write rates
	MinForwardInterval = 3 * time.Second

	// DefaultForwardInterval is used when a session does not ask for one
	DefaultForwardInterval = 8 * time.Second

	// FixTimeout bounds how long a device should wait for a position fix
	FixTimeout = 10 * time.Second

	// MaxFixAge is the oldest cached fix a device may report instead of
	// forcing a fresh hardware read
	MaxFixAge = 2 * time.Second
)

// Worker intervals
const (
	// LivenessWorkerInterval defines how often liveness classifications are
	// re-derived from the wall clock
	LivenessWorkerInterval = 30 * time.Second

	// RedisBackupInterval defines how often to save changes to Redis
	RedisBackupInterval = 10 * time.Second

	// PostgresBackupInterval defines how often to save changes to PostgreSQL
	PostgresBackupInterval = 60 * time.Second
)
