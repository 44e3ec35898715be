package app

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"github.com/yourusername/mediafetch-go/internal/domain"
)

// Environment names recognized without the MEDIAFETCH_ prefix
var legacyEnv = map[string]string{
	"download.temp_dir":              "TEMP_DIR",
	"download.expiry_seconds":        "DOWNLOAD_EXPIRY",
	"download.max_concurrent":        "MAX_CONCURRENT_DOWNLOADS",
	"download.max_strategy_attempts": "MAX_STRATEGY_ATTEMPTS",
	"egress.cooldown_seconds":        "EGRESS_COOLDOWN",
	"server.port":                    "PORT",
}

// LoadConfig loads configuration from file and environment
func LoadConfig(configPath string) (*domain.Config, error) {
	config := domain.DefaultConfig()

	v := viper.New()
	v.SetConfigType("yaml")

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath("./configs")
		v.AddConfigPath("$HOME/.mediafetch")
		v.AddConfigPath("/etc/mediafetch")
	}

	v.SetEnvPrefix("MEDIAFETCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults must be registered for AutomaticEnv to see keys absent from the file
	registerDefaults(v, config)

	for key, env := range legacyEnv {
		if err := v.BindEnv(key, "MEDIAFETCH_"+strings.ToUpper(strings.ReplaceAll(key, ".", "_")), env); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", env, err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	config = expandPaths(config)

	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

func registerDefaults(v *viper.Viper, c *domain.Config) {
	v.SetDefault("server.host", c.Server.Host)
	v.SetDefault("server.port", c.Server.Port)
	v.SetDefault("server.cors_origins", c.Server.CORSOrigins)

	v.SetDefault("download.temp_dir", c.Download.TempDir)
	v.SetDefault("download.expiry_seconds", c.Download.ExpirySeconds)
	v.SetDefault("download.max_concurrent", c.Download.MaxConcurrent)
	v.SetDefault("download.max_strategy_attempts", c.Download.MaxStrategyAttempts)
	v.SetDefault("download.retry_delay", c.Download.RetryDelay)
	v.SetDefault("download.max_height", c.Download.MaxHeight)
	v.SetDefault("download.audio_codec", c.Download.AudioCodec)
	v.SetDefault("download.audio_quality", c.Download.AudioQuality)
	v.SetDefault("download.merge_format", c.Download.MergeFormat)
	v.SetDefault("download.batch_concurrency", c.Download.BatchConcurrency)

	v.SetDefault("egress.proxies", c.Egress.Proxies)
	v.SetDefault("egress.include_direct", c.Egress.IncludeDirect)
	v.SetDefault("egress.cooldown_seconds", c.Egress.CooldownSeconds)
	v.SetDefault("egress.user_agents", c.Egress.UserAgents)

	v.SetDefault("credentials.cookie_jar", c.Credentials.CookieJar)
	v.SetDefault("credentials.order", c.Credentials.Order)
	v.SetDefault("credentials.login_url", c.Credentials.LoginURL)
	v.SetDefault("credentials.login_timeout", c.Credentials.LoginTimeout)

	v.SetDefault("extractor.binary", c.Extractor.Binary)
	v.SetDefault("extractor.ffmpeg_binary", c.Extractor.FFmpegBinary)
	v.SetDefault("extractor.socket_timeout_seconds", c.Extractor.SocketTimeoutSeconds)
	v.SetDefault("extractor.extractor_retries", c.Extractor.ExtractorRetries)
	v.SetDefault("extractor.metadata_timeout", c.Extractor.MetadataTimeout)
	v.SetDefault("extractor.download_timeout", c.Extractor.DownloadTimeout)

	v.SetDefault("cache.driver", c.Cache.Driver)
	v.SetDefault("cache.ttl", c.Cache.TTL)
	v.SetDefault("cache.max_entries", c.Cache.MaxEntries)
	v.SetDefault("cache.redis_address", c.Cache.RedisAddress)
	v.SetDefault("cache.redis_password", c.Cache.RedisPassword)
	v.SetDefault("cache.redis_db", c.Cache.RedisDB)

	v.SetDefault("storage.database_path", c.Storage.DatabasePath)

	v.SetDefault("cleanup.on_startup", c.Cleanup.OnStartup)
	v.SetDefault("cleanup.schedule", c.Cleanup.Schedule)

	v.SetDefault("rate_limit.enabled", c.RateLimit.Enabled)
	v.SetDefault("rate_limit.info_requests", c.RateLimit.InfoRequests)
	v.SetDefault("rate_limit.info_window", c.RateLimit.InfoWindow)
	v.SetDefault("rate_limit.download_requests", c.RateLimit.DownloadLimit)
	v.SetDefault("rate_limit.download_window", c.RateLimit.DownloadWindow)

	v.SetDefault("metrics.enabled", c.Metrics.Enabled)

	v.SetDefault("logging.level", c.Logging.Level)
	v.SetDefault("logging.format", c.Logging.Format)
	v.SetDefault("logging.output_path", c.Logging.OutputPath)
	v.SetDefault("logging.logs_dir", c.Logging.LogsDir)
}

// expandPaths expands environment variables in path configurations
func expandPaths(config *domain.Config) *domain.Config {
	config.Download.TempDir = expandPath(config.Download.TempDir)
	config.Credentials.CookieJar = expandPath(config.Credentials.CookieJar)
	config.Storage.DatabasePath = expandPath(config.Storage.DatabasePath)
	config.Logging.LogsDir = expandPath(config.Logging.LogsDir)

	if config.Logging.OutputPath != "stdout" && config.Logging.OutputPath != "stderr" {
		config.Logging.OutputPath = expandPath(config.Logging.OutputPath)
	}

	return config
}

// expandPath expands environment variables and ~ in paths
func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(home, path[2:])
		}
	}
	return os.ExpandEnv(path)
}

// validateConfig validates the configuration
func validateConfig(config *domain.Config) error {
	if config.Server.Port < 1 || config.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", config.Server.Port)
	}

	for _, origin := range config.Server.CORSOrigins {
		if !strings.HasPrefix(origin, "http://") && !strings.HasPrefix(origin, "https://") {
			return fmt.Errorf("invalid CORS origin: %q", origin)
		}
	}

	if config.Download.TempDir == "" {
		return fmt.Errorf("temp directory not configured")
	}

	if config.Download.ExpirySeconds < 1 {
		return fmt.Errorf("download expiry must be at least 1 second")
	}

	if config.Download.MaxConcurrent < 1 {
		return fmt.Errorf("max concurrent downloads must be at least 1")
	}

	if config.Download.MaxStrategyAttempts < 1 {
		return fmt.Errorf("max strategy attempts must be at least 1")
	}

	if config.Download.RetryDelay < 0 {
		return fmt.Errorf("retry delay cannot be negative")
	}

	if config.Egress.CooldownSeconds < 0 {
		return fmt.Errorf("egress cooldown cannot be negative")
	}

	for _, raw := range config.Credentials.Order {
		if _, err := domain.ParseCredentialKind(raw); err != nil {
			return err
		}
	}

	switch config.Cache.Driver {
	case "memory", "redis", "none":
	default:
		return fmt.Errorf("unknown cache driver: %q", config.Cache.Driver)
	}

	if config.Storage.DatabasePath == "" {
		return fmt.Errorf("database path not configured")
	}

	if config.Logging.Level == "" {
		config.Logging.Level = "info"
	}

	return nil
}
