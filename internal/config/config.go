// Package config wraps viper behind the plugin.Config interface. All
// accessors are nil-safe so plugins can run with a zero config in tests.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/HerbHall/watchdesk/pkg/plugin"
)

// Compile-time interface guard.
var _ plugin.Config = (*Config)(nil)

// Config is a read-only view over a viper instance.
type Config struct {
	v *viper.Viper
}

// New wraps an existing viper instance. A nil viper yields a Config whose
// getters return zero values.
func New(v *viper.Viper) *Config {
	return &Config{v: v}
}

// Load reads configuration for the whole application: defaults, then an
// optional watchdesk.yaml (path may be empty to search the working directory
// and /etc/watchdesk), then WATCHDESK_* environment variables.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("WATCHDESK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("watchdesk")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/watchdesk")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
		// No config file is fine; defaults and env apply.
	}

	return New(v), nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":5001")
	v.SetDefault("store.path", "watchdesk.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("watch.interval", "30s")
	v.SetDefault("watch.snmp_timeout", "5s")
	v.SetDefault("watch.snmp_retries", 1)
	v.SetDefault("watch.max_in_flight", 16)
	v.SetDefault("watch.classify_disk", false)
	v.SetDefault("watch.ticket_dedup_window", "0s")
	v.SetDefault("watch.system_requester", "system")
	v.SetDefault("watch.icmp_probe", true)

	v.SetDefault("rtc.handshake_rate", 5.0)
	v.SetDefault("rtc.handshake_burst", 10)
	v.SetDefault("rtc.send_buffer", 64)
}

// GetString returns the string value for key.
func (c *Config) GetString(key string) string {
	if c == nil || c.v == nil {
		return ""
	}
	return c.v.GetString(key)
}

// GetInt returns the int value for key.
func (c *Config) GetInt(key string) int {
	if c == nil || c.v == nil {
		return 0
	}
	return c.v.GetInt(key)
}

// GetBool returns the bool value for key.
func (c *Config) GetBool(key string) bool {
	if c == nil || c.v == nil {
		return false
	}
	return c.v.GetBool(key)
}

// GetFloat64 returns the float value for key.
func (c *Config) GetFloat64(key string) float64 {
	if c == nil || c.v == nil {
		return 0
	}
	return c.v.GetFloat64(key)
}

// GetDuration returns the duration value for key.
func (c *Config) GetDuration(key string) time.Duration {
	if c == nil || c.v == nil {
		return 0
	}
	return c.v.GetDuration(key)
}

// IsSet reports whether key has a value.
func (c *Config) IsSet(key string) bool {
	if c == nil || c.v == nil {
		return false
	}
	return c.v.IsSet(key)
}

// Sub returns the configuration subtree rooted at key. A missing key returns
// an empty (never nil) Config.
func (c *Config) Sub(key string) plugin.Config {
	if c == nil || c.v == nil {
		return New(nil)
	}
	return New(c.v.Sub(key))
}

// Unmarshal decodes the configuration into target via mapstructure tags.
func (c *Config) Unmarshal(target any) error {
	if c == nil || c.v == nil {
		return nil
	}
	return c.v.Unmarshal(target)
}

// Viper exposes the wrapped instance for the few call sites (main) that need
// write access, e.g. binding flags.
func (c *Config) Viper() *viper.Viper {
	return c.v
}
