// Package config loads and validates console configuration via Viper.
package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/zap/zapcore"

	"github.com/JakeFAU/crawl-console/internal/publisher"
	"github.com/JakeFAU/crawl-console/internal/storage"
)

// EnvPrefix namespaces environment overrides, e.g. CONSOLE_SERVER_PORT.
const EnvPrefix = "CONSOLE"

// Config captures all console configuration knobs loaded via Viper.
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Backend BackendConfig `mapstructure:"backend"`
	Stream  StreamConfig  `mapstructure:"stream"`
	Logging LoggingConfig `mapstructure:"logging"`
	Export  ExportConfig  `mapstructure:"export"`
	PubSub  PubSubConfig  `mapstructure:"pubsub"`
}

// ServerConfig controls the console's HTTP surface.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// BackendConfig locates the crawl backend.
type BackendConfig struct {
	BaseURL        string `mapstructure:"base_url"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

// StreamConfig tunes the push-channel client.
type StreamConfig struct {
	Path             string `mapstructure:"path"`
	ReconnectDelayMs int    `mapstructure:"reconnect_delay_ms"`
	MaxFrameBytes    int    `mapstructure:"max_frame_bytes"`
}

// LoggingConfig toggles zap development features and the log level.
type LoggingConfig struct {
	Development bool   `mapstructure:"development"`
	Level       string `mapstructure:"level"`
}

// ExportConfig selects where exported reports go.
type ExportConfig struct {
	Backend   string `mapstructure:"backend"`
	LocalDir  string `mapstructure:"local_dir"`
	GCSBucket string `mapstructure:"gcs_bucket"`
	Prefix    string `mapstructure:"prefix"`
	Notifier  string `mapstructure:"notifier"`
}

// PubSubConfig holds metadata for export notifications.
type PubSubConfig struct {
	ProjectID string `mapstructure:"project_id"`
	TopicName string `mapstructure:"topic_name"`
}

// Load builds a Config from defaults, an optional file and the environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8090)
	v.SetDefault("backend.base_url", "http://localhost:8000")
	v.SetDefault("backend.timeout_seconds", 15)
	v.SetDefault("stream.path", "/api/stream")
	v.SetDefault("stream.reconnect_delay_ms", 1500)
	v.SetDefault("stream.max_frame_bytes", 1<<20)
	v.SetDefault("logging.development", true)
	v.SetDefault("logging.level", "")
	v.SetDefault("export.backend", storage.BackendNone)
	v.SetDefault("export.local_dir", "")
	v.SetDefault("export.gcs_bucket", "")
	v.SetDefault("export.prefix", "reports")
	v.SetDefault("export.notifier", publisher.BackendNone)
	v.SetDefault("pubsub.project_id", "")
	v.SetDefault("pubsub.topic_name", "")
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535")
	}
	u, err := url.Parse(c.Backend.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("backend.base_url must be an absolute http(s) URL")
	}
	if c.Backend.TimeoutSeconds <= 0 {
		return fmt.Errorf("backend.timeout_seconds must be > 0")
	}
	if !strings.HasPrefix(c.Stream.Path, "/") {
		return fmt.Errorf("stream.path must start with /")
	}
	if c.Stream.ReconnectDelayMs <= 0 {
		return fmt.Errorf("stream.reconnect_delay_ms must be > 0")
	}
	if c.Stream.MaxFrameBytes <= 0 {
		return fmt.Errorf("stream.max_frame_bytes must be > 0")
	}
	if lvl := strings.TrimSpace(c.Logging.Level); lvl != "" {
		if _, err := zapcore.ParseLevel(lvl); err != nil {
			return fmt.Errorf("logging.level %q is not a zap level", c.Logging.Level)
		}
	}
	switch strings.ToLower(c.Export.Backend) {
	case "", storage.BackendNone, storage.BackendMemory:
	case storage.BackendLocal:
		if c.Export.LocalDir == "" {
			return fmt.Errorf("export.local_dir must be set when export.backend is local")
		}
	case storage.BackendGCS:
		if c.Export.GCSBucket == "" {
			return fmt.Errorf("export.gcs_bucket must be set when export.backend is gcs")
		}
	default:
		return fmt.Errorf("export.backend %q is not one of none, local, gcs, memory", c.Export.Backend)
	}
	switch strings.ToLower(c.Export.Notifier) {
	case "", publisher.BackendNone, publisher.BackendMemory:
	case publisher.BackendPubSub:
		if c.PubSub.ProjectID == "" || c.PubSub.TopicName == "" {
			return fmt.Errorf("pubsub.project_id and pubsub.topic_name must be set when export.notifier is pubsub")
		}
	default:
		return fmt.Errorf("export.notifier %q is not one of none, memory, pubsub", c.Export.Notifier)
	}
	return nil
}

// BackendTimeout is the per-request budget for command and report calls.
func (c Config) BackendTimeout() time.Duration {
	return time.Duration(c.Backend.TimeoutSeconds) * time.Second
}

// ReconnectDelay is the fixed wait between stream reconnect attempts.
func (c Config) ReconnectDelay() time.Duration {
	return time.Duration(c.Stream.ReconnectDelayMs) * time.Millisecond
}

// StreamURL joins the backend base URL and the stream path.
func (c Config) StreamURL() string {
	return strings.TrimRight(c.Backend.BaseURL, "/") + c.Stream.Path
}

// Storage maps the export section onto a blob store selection.
func (c Config) Storage() storage.Config {
	return storage.Config{
		Backend:   c.Export.Backend,
		LocalDir:  c.Export.LocalDir,
		GCSBucket: c.Export.GCSBucket,
	}
}

// Publisher maps the notifier selection onto a publisher selection.
func (c Config) Publisher() publisher.Config {
	return publisher.Config{
		Backend:   c.Export.Notifier,
		ProjectID: c.PubSub.ProjectID,
		Topic:     c.PubSub.TopicName,
	}
}
