// Package config loads the gateway's TOML configuration, following the
// teacher's viper-based loader shape (SPEC_FULL.md §4.F).
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"

	"github.com/gedu17/kubeware/internal/middleware"
)

// BackendVersion selects the outbound transport used for the backend call
// (spec.md §6 "Mode selector: {HTTP, HTTP2}").
type BackendVersion string

const (
	BackendHTTP  BackendVersion = "HTTP"
	BackendHTTP2 BackendVersion = "HTTP2"
)

// Config is the top-level gateway configuration (spec.md §6).
type Config struct {
	IP   string `mapstructure:"ip"`
	Port uint16 `mapstructure:"port"`
	Log  string `mapstructure:"log"`

	Backend    BackendConfig      `mapstructure:"backend"`
	Middleware []MiddlewareConfig `mapstructure:"middleware"`
	Admin      AdminConfig        `mapstructure:"admin"`
}

// AdminConfig is the `[admin]` table: the loopback-only introspection
// listener (SPEC_FULL.md §4.K). It is an ambient concern, not part of
// spec.md's external interface, so it is additive and fully defaulted.
type AdminConfig struct {
	Addr       string   `mapstructure:"addr"`
	AllowedIPs []string `mapstructure:"allowed_ips"`
}

// BackendConfig is the `[backend]` table.
type BackendConfig struct {
	URL       string         `mapstructure:"url"`
	TimeoutMs uint32         `mapstructure:"timeout_ms"`
	Version   BackendVersion `mapstructure:"version"`
}

// MiddlewareConfig is one `[[middleware]]` table. It mirrors
// middleware.Config field-for-field; the split exists so the core
// middleware package stays free of config-file tag concerns (spec.md §6).
type MiddlewareConfig struct {
	URL       string `mapstructure:"url"`
	TimeoutMs uint32 `mapstructure:"timeout_ms"`
	Request   bool   `mapstructure:"request"`
	Response  bool   `mapstructure:"response"`
}

// Endpoints converts the configured middleware tables to the core
// middleware package's Config shape, preserving declaration order.
func (c *Config) Endpoints() []middleware.Config {
	out := make([]middleware.Config, len(c.Middleware))
	for i, m := range c.Middleware {
		out[i] = middleware.Config{
			URL:       m.URL,
			TimeoutMs: m.TimeoutMs,
			Request:   m.Request,
			Response:  m.Response,
		}
	}
	return out
}

// Load reads configuration from path, applying defaults, environment
// overlays, and the KUBEWARE_LOG env override (spec.md §6). It does not
// consult CONFIG_FILE; callers resolve the path with ResolvePath.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigFile(path)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}

	if override := os.Getenv("KUBEWARE_LOG"); override != "" {
		cfg.Log = override
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: invalid: %w", err)
	}

	return &cfg, nil
}

// ResolvePath returns the configuration path to load: the CONFIG_FILE
// environment variable if set, otherwise "config.toml" (spec.md §6).
func ResolvePath() string {
	if p := os.Getenv("CONFIG_FILE"); p != "" {
		return p
	}
	return "config.toml"
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ip", "127.0.0.1")
	v.SetDefault("port", 17000)
	v.SetDefault("log", "INFO")

	v.SetDefault("backend.timeout_ms", middleware.DefaultTimeout.Milliseconds())
	v.SetDefault("backend.version", string(BackendHTTP))

	v.SetDefault("admin.addr", "127.0.0.1:9090")
	v.SetDefault("admin.allowed_ips", []string{"127.0.0.1", "::1"})
}

// Validate checks the loaded configuration for internal consistency.
func (c *Config) Validate() error {
	if c.Port == 0 {
		return fmt.Errorf("port must be non-zero")
	}
	if c.Backend.URL == "" {
		return fmt.Errorf("backend.url is required")
	}
	if c.Backend.Version != BackendHTTP && c.Backend.Version != BackendHTTP2 {
		return fmt.Errorf("backend.version must be HTTP or HTTP2, got %q", c.Backend.Version)
	}
	for i, m := range c.Middleware {
		if m.URL == "" {
			return fmt.Errorf("middleware[%d].url is required", i)
		}
	}
	return nil
}
