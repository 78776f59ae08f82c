// Package config defines service configuration structures and loading hooks.
package config

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// DBPath locates the SQLite database file.
	DBPath string `koanf:"db_path"`

	// BaseURL is the public game API root.
	BaseURL string `koanf:"base_url"`

	// Proxies is the rotation pool, one URL per entry. Optional.
	Proxies []string `koanf:"proxies"`

	// ProxyFile optionally points at a newline-separated proxy list.
	ProxyFile string `koanf:"proxy_file"`

	// MaxAttempts caps retries per upstream operation.
	MaxAttempts int `koanf:"max_attempts"`

	// PageSize is the match-id pagination window.
	PageSize int `koanf:"page_size"`

	// BatchSize is how many match details are fetched per worker batch.
	BatchSize int `koanf:"batch_size"`

	// FetchConcurrency bounds in-flight detail fetches within a batch.
	FetchConcurrency int `koanf:"fetch_concurrency"`

	// ThrottleMS is the pause between queue items in the drain loop.
	ThrottleMS int `koanf:"throttle_ms"`

	// TopN is how many leaderboard users the refresh loop re-enqueues.
	TopN int `koanf:"top_n"`

	// RefreshIntervalMin spaces the top-N refresh loop, in minutes.
	RefreshIntervalMin int `koanf:"refresh_interval_min"`

	// RetentionKeep is how many leaderboard rows the sweep preserves.
	// Zero disables the sweep.
	RetentionKeep int `koanf:"retention_keep"`

	// MaxLeaderboardLimit caps GET /leaderboard?limit.
	MaxLeaderboardLimit int `koanf:"max_leaderboard_limit"`

	// Discord gateway credentials.
	DiscordToken   string `koanf:"discord_token"`
	DiscordAppID   string `koanf:"discord_app_id"`
	DiscordGuildID string `koanf:"discord_guild_id"`
}

// New returns a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:            "info",
		Addr:                ":9080",
		DBPath:              "battletrack.db",
		BaseURL:             "https://origins.habbo.es/api/public",
		MaxAttempts:         10,
		PageSize:            100,
		BatchSize:           2,
		FetchConcurrency:    3,
		ThrottleMS:          1000,
		TopN:                45,
		RefreshIntervalMin:  60,
		RetentionKeep:       40,
		MaxLeaderboardLimit: 100,
	}
}
