package config

import (
	"time"

	"github.com/spf13/viper"
)

const DefaultDatabasePath = "./biblioteca.db"

// DefaultCatalogURL is the Google Books volumes endpoint.
const DefaultCatalogURL = "https://www.googleapis.com/books/v1/volumes"

type (
	Config struct {
		HTTP
		Global
		Database
		Catalog
		Curation
		Auth
		Tasks
	}

	HTTP struct {
		Port int32
		Host string
	}
	Global struct {
		ShutdownTimeoutInSeconds int
	}
	Database struct {
		Path string
	}
	Catalog struct {
		APIKey   string
		BaseURL  string
		Language string // langRestrict value sent with every search
		Timeout  time.Duration
	}
	Curation struct {
		SearchDebounce time.Duration
	}
	Auth struct {
		SessionLifetime time.Duration
		BcryptCost      int
		SecureCookies   bool // Set to false for local dev without HTTPS
	}
	Tasks struct {
		Enabled           bool
		Workers           int
		ReleaseAfter      time.Duration
		CleanupInterval   time.Duration
		RetentionDuration time.Duration
		ReconcileSchedule string // Cron format: "0 4 * * *" = daily at 04:00
	}
)

func NewConfig() *Config {
	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("port", 8189)
	v.SetDefault("host", "0.0.0.0")
	v.SetDefault("shutdown_timeout_in_seconds", 2)
	v.SetDefault("database_path", DefaultDatabasePath)

	// Catalog defaults. The API key has no default: searching without one is
	// a configuration error surfaced on first use, not at startup.
	v.SetDefault("catalog_api_key", "")
	v.SetDefault("catalog_base_url", DefaultCatalogURL)
	v.SetDefault("catalog_language", "pt")
	v.SetDefault("catalog_timeout", "10s")

	v.SetDefault("curation_search_debounce", "500ms")

	// Auth defaults
	v.SetDefault("auth_session_lifetime", "24h")
	v.SetDefault("auth_bcrypt_cost", 12)
	v.SetDefault("auth_secure_cookies", true)

	// Task queue defaults
	v.SetDefault("tasks_enabled", true)
	v.SetDefault("task_workers", 2)
	v.SetDefault("task_release_after", "15m")
	v.SetDefault("task_cleanup_interval", "1h")
	v.SetDefault("task_retention_duration", "24h")
	v.SetDefault("task_reconcile_schedule", "0 4 * * *")

	return &Config{
		HTTP: HTTP{
			Port: v.GetInt32("PORT"),
			Host: v.GetString("HOST"),
		},
		Global: Global{
			ShutdownTimeoutInSeconds: v.GetInt("SHUTDOWN_TIMEOUT_IN_SECONDS"),
		},
		Database: Database{
			Path: v.GetString("DATABASE_PATH"),
		},
		Catalog: Catalog{
			APIKey:   v.GetString("CATALOG_API_KEY"),
			BaseURL:  v.GetString("CATALOG_BASE_URL"),
			Language: v.GetString("CATALOG_LANGUAGE"),
			Timeout:  v.GetDuration("CATALOG_TIMEOUT"),
		},
		Curation: Curation{
			SearchDebounce: v.GetDuration("CURATION_SEARCH_DEBOUNCE"),
		},
		Auth: Auth{
			SessionLifetime: v.GetDuration("AUTH_SESSION_LIFETIME"),
			BcryptCost:      v.GetInt("AUTH_BCRYPT_COST"),
			SecureCookies:   v.GetBool("AUTH_SECURE_COOKIES"),
		},
		Tasks: Tasks{
			Enabled:           v.GetBool("TASKS_ENABLED"),
			Workers:           v.GetInt("TASK_WORKERS"),
			ReleaseAfter:      v.GetDuration("TASK_RELEASE_AFTER"),
			CleanupInterval:   v.GetDuration("TASK_CLEANUP_INTERVAL"),
			RetentionDuration: v.GetDuration("TASK_RETENTION_DURATION"),
			ReconcileSchedule: v.GetString("TASK_RECONCILE_SCHEDULE"),
		},
	}
}
