package domain

import "time"

// Config represents the application configuration
type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Download    DownloadConfig    `mapstructure:"download"`
	Egress      EgressConfig      `mapstructure:"egress"`
	Credentials CredentialsConfig `mapstructure:"credentials"`
	Extractor   ExtractorConfig   `mapstructure:"extractor"`
	Cache       CacheConfig       `mapstructure:"cache"`
	Storage     StorageConfig     `mapstructure:"storage"`
	Cleanup     CleanupConfig     `mapstructure:"cleanup"`
	RateLimit   RateLimitConfig   `mapstructure:"rate_limit"`
	Metrics     MetricsConfig     `mapstructure:"metrics"`
	Logging     LoggingConfig     `mapstructure:"logging"`
}

// ServerConfig contains server-related configuration
type ServerConfig struct {
	Host        string   `mapstructure:"host"`
	Port        int      `mapstructure:"port"`
	CORSOrigins []string `mapstructure:"cors_origins"` // empty allows every origin
}

// DownloadConfig contains download-related configuration
type DownloadConfig struct {
	TempDir             string        `mapstructure:"temp_dir"`
	ExpirySeconds       int           `mapstructure:"expiry_seconds"`
	MaxConcurrent       int           `mapstructure:"max_concurrent"`
	MaxStrategyAttempts int           `mapstructure:"max_strategy_attempts"`
	RetryDelay          time.Duration `mapstructure:"retry_delay"`
	MaxHeight           int           `mapstructure:"max_height"` // 0 means no ceiling
	AudioCodec          string        `mapstructure:"audio_codec"`
	AudioQuality        string        `mapstructure:"audio_quality"`
	MergeFormat         string        `mapstructure:"merge_format"`
	BatchConcurrency    int           `mapstructure:"batch_concurrency"`
}

// Expiry returns the artifact lifetime
func (d DownloadConfig) Expiry() time.Duration {
	return time.Duration(d.ExpirySeconds) * time.Second
}

// EgressConfig contains the proxy pool and its cooldown
type EgressConfig struct {
	Proxies         []string `mapstructure:"proxies"`
	IncludeDirect   bool     `mapstructure:"include_direct"`
	CooldownSeconds int      `mapstructure:"cooldown_seconds"`
	UserAgents      []string `mapstructure:"user_agents"`
}

// Cooldown returns the penalty window after an egress failure
func (e EgressConfig) Cooldown() time.Duration {
	return time.Duration(e.CooldownSeconds) * time.Second
}

// CredentialsConfig contains credential source settings
type CredentialsConfig struct {
	CookieJar    string        `mapstructure:"cookie_jar"`
	Order        []string      `mapstructure:"order"`
	LoginURL     string        `mapstructure:"login_url"`
	LoginTimeout time.Duration `mapstructure:"login_timeout"`
}

// ExtractorConfig contains settings for the yt-dlp engine
type ExtractorConfig struct {
	Binary               string        `mapstructure:"binary"`
	FFmpegBinary         string        `mapstructure:"ffmpeg_binary"`
	SocketTimeoutSeconds int           `mapstructure:"socket_timeout_seconds"`
	ExtractorRetries     int           `mapstructure:"extractor_retries"`
	MetadataTimeout      time.Duration `mapstructure:"metadata_timeout"`
	DownloadTimeout      time.Duration `mapstructure:"download_timeout"`
}

// CacheConfig contains metadata cache settings
type CacheConfig struct {
	Driver        string        `mapstructure:"driver"` // memory, redis, none
	TTL           time.Duration `mapstructure:"ttl"`
	MaxEntries    int           `mapstructure:"max_entries"` // memory driver only
	RedisAddress  string        `mapstructure:"redis_address"`
	RedisPassword string        `mapstructure:"redis_password"`
	RedisDB       int           `mapstructure:"redis_db"`
}

// StorageConfig contains the job database location
type StorageConfig struct {
	DatabasePath string `mapstructure:"database_path"`
}

// CleanupConfig contains expiry sweep settings
type CleanupConfig struct {
	OnStartup bool   `mapstructure:"on_startup"`
	Schedule  string `mapstructure:"schedule"` // cron expression, empty disables
}

// RateLimitConfig contains per-client request limits
type RateLimitConfig struct {
	Enabled        bool          `mapstructure:"enabled"`
	InfoRequests   int           `mapstructure:"info_requests"`
	InfoWindow     time.Duration `mapstructure:"info_window"`
	DownloadLimit  int           `mapstructure:"download_requests"`
	DownloadWindow time.Duration `mapstructure:"download_window"`
}

// MetricsConfig toggles the Prometheus endpoint
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// LoggingConfig contains logging-related configuration
type LoggingConfig struct {
	Level      string `mapstructure:"level"`       // debug, info, warn, error
	Format     string `mapstructure:"format"`      // json, console
	OutputPath string `mapstructure:"output_path"` // stdout, stderr, or file path
	LogsDir    string `mapstructure:"logs_dir"`    // categorized job logs, empty disables
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 5000,
		},
		Download: DownloadConfig{
			TempDir:             "/tmp/mediafetch",
			ExpirySeconds:       3600,
			MaxConcurrent:       3,
			MaxStrategyAttempts: 3,
			RetryDelay:          time.Second,
			MaxHeight:           0,
			AudioCodec:          "mp3",
			AudioQuality:        "192",
			MergeFormat:         "mp4",
			BatchConcurrency:    8,
		},
		Egress: EgressConfig{
			Proxies:         nil,
			IncludeDirect:   false,
			CooldownSeconds: 600,
			UserAgents: []string{
				"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
				"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.1 Safari/605.1.15",
				"Mozilla/5.0 (X11; Linux x86_64; rv:121.0) Gecko/20100101 Firefox/121.0",
			},
		},
		Credentials: CredentialsConfig{
			CookieJar:    "cookies.txt",
			Order:        []string{"caller", "session", "jar", "none"},
			LoginTimeout: 15 * time.Second,
		},
		Extractor: ExtractorConfig{
			Binary:               "yt-dlp",
			FFmpegBinary:         "ffmpeg",
			SocketTimeoutSeconds: 30,
			ExtractorRetries:     3,
			MetadataTimeout:      60 * time.Second,
			DownloadTimeout:      30 * time.Minute,
		},
		Cache: CacheConfig{
			Driver:       "memory",
			TTL:          time.Hour,
			MaxEntries:   1000,
			RedisAddress: "localhost:6379",
		},
		Storage: StorageConfig{
			DatabasePath: "./data/mediafetch.db",
		},
		Cleanup: CleanupConfig{
			OnStartup: true,
			Schedule:  "",
		},
		RateLimit: RateLimitConfig{
			Enabled:        true,
			InfoRequests:   30,
			InfoWindow:     time.Minute,
			DownloadLimit:  5,
			DownloadWindow: 5 * time.Minute,
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "console",
			OutputPath: "stdout",
			LogsDir:    "",
		},
	}
}
