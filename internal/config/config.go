package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// State backend types.
const (
	StateFile   = "file"
	StateValkey = "valkey"
	StateMemory = "memory"
)

// Default values, matching the behaviour of the original service.
const (
	DefaultPort            = 4000
	DefaultCredentialsFile = "./service-account.json"
	DefaultQueryTerm       = "SPRINT-SLOT"
	DefaultDaysRange       = 30
	DefaultLocale          = "en-GB"
	DefaultTimeZone        = "UTC"
	DefaultStateFile       = "./slot-config.json"
	DefaultValkeyKey       = "slotproxy:config"
	DefaultUpstreamTimeout = 10 * time.Second

	// EnvPrefix is prepended to every environment variable override.
	EnvPrefix = "SLOTPROXY"
)

// Config is the full process configuration.
type Config struct {
	// Port the slot API listens on (default: 4000)
	Port int `mapstructure:"port"`

	// CredentialsFile is the path to the service-account JSON key
	CredentialsFile string `mapstructure:"credentials_file"`

	// Slots is the initial mutable slot configuration
	Slots Mutable `mapstructure:"slots"`

	// Locale for date and time labels, e.g. "en-GB"
	Locale string `mapstructure:"locale"`

	// TimeZone is the IANA zone slot labels are rendered in
	TimeZone string `mapstructure:"time_zone"`

	DateFormat DateDisplay `mapstructure:"date_format"`
	TimeFormat TimeDisplay `mapstructure:"time_format"`

	// UpstreamTimeout bounds each call to the token endpoint and Calendar API
	UpstreamTimeout time.Duration `mapstructure:"upstream_timeout"`

	// TokenCache reuses one access token until it expires instead of
	// exchanging a new assertion per request
	TokenCache bool `mapstructure:"token_cache"`

	// CalendarEndpoint overrides the Calendar API base URL
	CalendarEndpoint string `mapstructure:"calendar_endpoint"`

	// State configures where config updates are persisted
	State StateConfig `mapstructure:"state"`
}

// StateConfig selects and configures the Persister backend.
type StateConfig struct {
	// Type is "file", "valkey" or "memory" (default: "file")
	Type string `mapstructure:"type"`

	// File is the JSON document used by the file backend
	File string `mapstructure:"file"`

	Valkey ValkeyConfig `mapstructure:"valkey"`
}

// ValkeyConfig holds the Valkey connection settings for the valkey backend.
type ValkeyConfig struct {
	// URL is the Valkey server address (e.g. "valkey:6379")
	URL      string `mapstructure:"url"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Key      string `mapstructure:"key"`
}

// setDefaults registers every default on v so environment overrides bind to
// known keys even when no config file is present.
func setDefaults(v *viper.Viper) {
	v.SetDefault("port", DefaultPort)
	v.SetDefault("credentials_file", DefaultCredentialsFile)
	v.SetDefault("slots.calendar_id", "")
	v.SetDefault("slots.query_term", DefaultQueryTerm)
	v.SetDefault("slots.min_offset_days", 0)
	v.SetDefault("slots.days_range", DefaultDaysRange)
	v.SetDefault("locale", DefaultLocale)
	v.SetDefault("time_zone", DefaultTimeZone)
	v.SetDefault("date_format.weekday", StyleLong)
	v.SetDefault("date_format.day", StyleNumeric)
	v.SetDefault("date_format.month", StyleLong)
	v.SetDefault("date_format.year", "")
	v.SetDefault("time_format.hour", Style2Digit)
	v.SetDefault("time_format.minute", Style2Digit)
	v.SetDefault("time_format.hour12", false)
	v.SetDefault("upstream_timeout", DefaultUpstreamTimeout)
	v.SetDefault("token_cache", false)
	v.SetDefault("calendar_endpoint", "")
	v.SetDefault("state.type", StateFile)
	v.SetDefault("state.file", DefaultStateFile)
	v.SetDefault("state.valkey.url", "")
	v.SetDefault("state.valkey.password", "")
	v.SetDefault("state.valkey.db", 0)
	v.SetDefault("state.valkey.key", DefaultValkeyKey)
}

// Load reads configuration from path (YAML or JSON, optional) and from
// SLOTPROXY_* environment variables, e.g. SLOTPROXY_SLOTS_CALENDAR_ID.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the static configuration. The slot subset is validated
// separately because an empty calendar can still be set later via the API.
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("%w: port must be between 1 and 65535, got %d", ErrInvalidConfig, c.Port)
	}
	if _, err := time.LoadLocation(c.TimeZone); err != nil {
		return fmt.Errorf("%w: unknown time zone %q", ErrInvalidConfig, c.TimeZone)
	}
	if c.UpstreamTimeout <= 0 {
		return fmt.Errorf("%w: upstream_timeout must be positive", ErrInvalidConfig)
	}

	switch c.State.Type {
	case StateFile:
		if c.State.File == "" {
			return fmt.Errorf("%w: state.file is required for the file backend", ErrInvalidConfig)
		}
	case StateValkey:
		if c.State.Valkey.URL == "" {
			return fmt.Errorf("%w: state.valkey.url is required for the valkey backend", ErrInvalidConfig)
		}
	case StateMemory:
	default:
		return fmt.Errorf("%w: unsupported state type %q, must be one of: file, valkey, memory", ErrInvalidConfig, c.State.Type)
	}

	return nil
}

// Snapshot builds the initial SlotQueryConfig from the static configuration.
func (c *Config) Snapshot() (*SlotQueryConfig, error) {
	loc, err := time.LoadLocation(c.TimeZone)
	if err != nil {
		return nil, fmt.Errorf("%w: unknown time zone %q", ErrInvalidConfig, c.TimeZone)
	}

	return &SlotQueryConfig{
		Mutable:     c.Slots,
		Locale:      c.Locale,
		Location:    loc,
		DateDisplay: c.DateFormat,
		TimeDisplay: c.TimeFormat,
	}, nil
}
