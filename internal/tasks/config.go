package tasks

import "time"

// Config holds task queue settings.
type Config struct {
	Workers           int
	ReleaseAfter      time.Duration
	CleanupInterval   time.Duration
	RetentionDuration time.Duration
}

// DefaultConfig returns sensible task queue defaults.
func DefaultConfig() Config {
	return Config{
		Workers:           2,
		ReleaseAfter:      15 * time.Minute,
		CleanupInterval:   time.Hour,
		RetentionDuration: 24 * time.Hour,
	}
}
