// Package conf loads and exposes application settings.
package conf

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/spf13/viper"
)

// Settings is the root configuration for the trend alert engine.
type Settings struct {
	Server   ServerSettings    `mapstructure:"server" yaml:"server"`
	Database DatabaseSettings  `mapstructure:"database" yaml:"database"`
	Logging  LoggingSettings   `mapstructure:"logging" yaml:"logging"`
	Alerting AlertingSettings  `mapstructure:"alerting" yaml:"alerting"`
	Channels []ChannelSettings `mapstructure:"channels" yaml:"channels"`
}

// ServerSettings configures the management API listener.
type ServerSettings struct {
	Host string `mapstructure:"host" yaml:"host"`
	Port int    `mapstructure:"port" yaml:"port"`
}

// DatabaseSettings configures the persistence layer.
type DatabaseSettings struct {
	// Path is the SQLite database file. ":memory:" runs fully in memory.
	Path string `mapstructure:"path" yaml:"path"`
}

// LoggingSettings configures structured logging.
type LoggingSettings struct {
	Level string `mapstructure:"level" yaml:"level"` // debug, info, warn, error
}

// AlertingSettings configures the alerting engine's timers and policies.
type AlertingSettings struct {
	RealtimeInterval   Duration `mapstructure:"realtime_interval" yaml:"realtime_interval"`
	BatchInterval      Duration `mapstructure:"batch_interval" yaml:"batch_interval"`
	EscalationInterval Duration `mapstructure:"escalation_interval" yaml:"escalation_interval"`
	ThresholdInterval  Duration `mapstructure:"threshold_interval" yaml:"threshold_interval"`
	CleanupInterval    Duration `mapstructure:"cleanup_interval" yaml:"cleanup_interval"`

	// RealtimeDrainLimit caps how many alerts a single realtime tick dispatches.
	RealtimeDrainLimit int `mapstructure:"realtime_drain_limit" yaml:"realtime_drain_limit"`

	DedupWindow    Duration `mapstructure:"dedup_window" yaml:"dedup_window"`
	MaxRetries     int      `mapstructure:"max_retries" yaml:"max_retries"`
	RetryBackoff   Duration `mapstructure:"retry_backoff" yaml:"retry_backoff"`
	ChannelTimeout Duration `mapstructure:"channel_timeout" yaml:"channel_timeout"`

	// Retention controls how long resolved alerts are kept before the
	// cleanup tick purges them.
	Retention Duration `mapstructure:"retention" yaml:"retention"`

	// SeedDefaults seeds the built-in starter rules when the rule table is empty.
	SeedDefaults bool `mapstructure:"seed_defaults" yaml:"seed_defaults"`
}

// ChannelSettings configures one outbound notification channel.
type ChannelSettings struct {
	Name string `mapstructure:"name" yaml:"name"`
	Type string `mapstructure:"type" yaml:"type"` // shoutrrr, webhook, mqtt, log

	// URL is the shoutrrr service URL or the webhook endpoint.
	URL string `mapstructure:"url" yaml:"url"`

	// Broker and Topic apply to MQTT channels.
	Broker string `mapstructure:"broker" yaml:"broker"`
	Topic  string `mapstructure:"topic" yaml:"topic"`
}

var (
	settings   *Settings
	settingsMu sync.RWMutex
)

// GetSettings returns the loaded settings singleton, or nil before Load.
func GetSettings() *Settings {
	settingsMu.RLock()
	defer settingsMu.RUnlock()
	return settings
}

// SetSettings replaces the settings singleton. Used by Load and by tests.
func SetSettings(s *Settings) {
	settingsMu.Lock()
	defer settingsMu.Unlock()
	settings = s
}

// Defaults returns settings with all documented default values applied.
func Defaults() *Settings {
	return &Settings{
		Server:   ServerSettings{Host: "0.0.0.0", Port: 8090},
		Database: DatabaseSettings{Path: "trendalert.db"},
		Logging:  LoggingSettings{Level: "info"},
		Alerting: AlertingSettings{
			RealtimeInterval:   Duration(1 * time.Second),
			BatchInterval:      Duration(60 * time.Second),
			EscalationInterval: Duration(30 * time.Second),
			ThresholdInterval:  Duration(5 * time.Minute),
			CleanupInterval:    Duration(1 * time.Hour),
			RealtimeDrainLimit: 50,
			DedupWindow:        Duration(600 * time.Second),
			MaxRetries:         3,
			RetryBackoff:       Duration(30 * time.Second),
			ChannelTimeout:     Duration(30 * time.Second),
			Retention:          Duration(30 * 24 * time.Hour),
			SeedDefaults:       true,
		},
		Channels: []ChannelSettings{
			{Name: "log", Type: "log"},
		},
	}
}

// Load reads configuration from the given file (optional), environment
// variables prefixed TRENDALERT_, and built-in defaults, then stores the
// result as the package singleton.
func Load(configFile string) (*Settings, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix("trendalert")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	applyDefaults(v)

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", configFile, err)
		}
	}

	s := &Settings{}
	if err := v.Unmarshal(s, viper.DecodeHook(DurationDecodeHook())); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	SetSettings(s)
	return s, nil
}

func applyDefaults(v *viper.Viper) {
	d := Defaults()
	v.SetDefault("server.host", d.Server.Host)
	v.SetDefault("server.port", d.Server.Port)
	v.SetDefault("database.path", d.Database.Path)
	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("alerting.realtime_interval", d.Alerting.RealtimeInterval.Std().String())
	v.SetDefault("alerting.batch_interval", d.Alerting.BatchInterval.Std().String())
	v.SetDefault("alerting.escalation_interval", d.Alerting.EscalationInterval.Std().String())
	v.SetDefault("alerting.threshold_interval", d.Alerting.ThresholdInterval.Std().String())
	v.SetDefault("alerting.cleanup_interval", d.Alerting.CleanupInterval.Std().String())
	v.SetDefault("alerting.realtime_drain_limit", d.Alerting.RealtimeDrainLimit)
	v.SetDefault("alerting.dedup_window", d.Alerting.DedupWindow.Std().String())
	v.SetDefault("alerting.max_retries", d.Alerting.MaxRetries)
	v.SetDefault("alerting.retry_backoff", d.Alerting.RetryBackoff.Std().String())
	v.SetDefault("alerting.channel_timeout", d.Alerting.ChannelTimeout.Std().String())
	v.SetDefault("alerting.retention", d.Alerting.Retention.Std().String())
	v.SetDefault("alerting.seed_defaults", d.Alerting.SeedDefaults)
}

// LogLevel translates the configured logging level string.
func (s *LoggingSettings) LogLevel() string {
	if s == nil || s.Level == "" {
		return "info"
	}
	return s.Level
}
