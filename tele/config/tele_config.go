// Separate package is workaround to import cycles.
package tele_config

import (
	"net/url"
	"time"

	"github.com/beagley/hubclient/helpers"
	"github.com/juju/errors"
)

const (
	DefaultURL = "ws://192.168.0.7:8765"
	EnvURL     = "VEHICLE_HUB_WS_URL" // read once at startup, overrides config file

	DefaultStaleTimeout    = 1000 * time.Millisecond
	DefaultWatchdogTick    = 200 * time.Millisecond
	DefaultInitialBackoff  = 250 * time.Millisecond
	DefaultMaxBackoff      = 5000 * time.Millisecond
	DefaultMaxMessageBytes = 64 << 10
)

// Zero numeric values mean default.
type Config struct { //nolint:maligned
	URL              string `hcl:"url"`
	LogDebug         bool   `hcl:"log_debug"`
	StaleTimeoutMs   int    `hcl:"stale_timeout_ms"`
	WatchdogTickMs   int    `hcl:"watchdog_tick_ms"`
	InitialBackoffMs int    `hcl:"initial_backoff_ms"`
	MaxBackoffMs     int    `hcl:"max_backoff_ms"`
	ConnectTimeoutMs int    `hcl:"connect_timeout_ms"` // 0 keeps transport default
	MaxMessageBytes  int64  `hcl:"max_message_bytes"`
}

// ApplyEnv overrides URL from environment, getenv is usually os.Getenv.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if s := getenv(EnvURL); s != "" {
		c.URL = s
	}
}

func (c *Config) EffectiveURL() string {
	if c.URL == "" {
		return DefaultURL
	}
	return c.URL
}

func (c *Config) StaleTimeout() time.Duration {
	return helpers.IntMillisecondDefault(c.StaleTimeoutMs, DefaultStaleTimeout)
}
func (c *Config) WatchdogTick() time.Duration {
	return helpers.IntMillisecondDefault(c.WatchdogTickMs, DefaultWatchdogTick)
}
func (c *Config) InitialBackoff() time.Duration {
	return helpers.IntMillisecondDefault(c.InitialBackoffMs, DefaultInitialBackoff)
}
func (c *Config) MaxBackoff() time.Duration {
	return helpers.IntMillisecondDefault(c.MaxBackoffMs, DefaultMaxBackoff)
}
func (c *Config) ConnectTimeout() time.Duration {
	return time.Duration(c.ConnectTimeoutMs) * time.Millisecond
}
func (c *Config) MaxMessageSize() int64 {
	if c.MaxMessageBytes == 0 {
		return DefaultMaxMessageBytes
	}
	return c.MaxMessageBytes
}

func (c *Config) Validate() error {
	errs := make([]error, 0, 4)
	u, err := url.Parse(c.EffectiveURL())
	switch {
	case err != nil:
		errs = append(errs, errors.Annotatef(err, "config hub url=%s", c.EffectiveURL()))
	case u.Scheme != "ws" && u.Scheme != "wss":
		errs = append(errs, errors.NotValidf("config hub url=%s scheme (expected ws or wss)", c.EffectiveURL()))
	case u.Host == "":
		errs = append(errs, errors.NotValidf("config hub url=%s host", c.EffectiveURL()))
	}
	for _, x := range []struct {
		name string
		v    int64
	}{
		{"stale_timeout_ms", int64(c.StaleTimeoutMs)},
		{"watchdog_tick_ms", int64(c.WatchdogTickMs)},
		{"initial_backoff_ms", int64(c.InitialBackoffMs)},
		{"max_backoff_ms", int64(c.MaxBackoffMs)},
		{"connect_timeout_ms", int64(c.ConnectTimeoutMs)},
		{"max_message_bytes", c.MaxMessageBytes},
	} {
		if x.v < 0 {
			errs = append(errs, errors.NotValidf("config hub %s=%d negative", x.name, x.v))
		}
	}
	if c.MaxBackoff() < c.InitialBackoff() {
		errs = append(errs, errors.NotValidf("config hub max_backoff_ms=%d < initial_backoff_ms=%d",
			c.MaxBackoff().Milliseconds(), c.InitialBackoff().Milliseconds()))
	}
	return helpers.FoldErrors(errs)
}
