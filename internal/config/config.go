// Package config loads rostervault settings from a YAML file with
// environment overrides.
package config

import (
	"encoding/base64"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"

	"github.com/org/rostervault/internal/crypto"
)

// DefaultPath is used when neither --config nor ROSTER_CONFIG is given.
const DefaultPath = "roster.yaml"

// Scrape configures the members page fetch.
type Scrape struct {
	URL     string        `yaml:"url"`
	Cookie  string        `yaml:"cookie"`
	TableID string        `yaml:"table_id"`
	Timeout time.Duration `yaml:"timeout"`
}

// Keystore locates the roster key.
type Keystore struct {
	Path  string `yaml:"path"`
	Alias string `yaml:"alias"`
	// PasswordEnv names the variable holding the key password. When it is
	// unset the CLI prompts for the password.
	PasswordEnv string `yaml:"password_env"`
}

// Config is the full rostervault configuration.
type Config struct {
	DataDir    string   `yaml:"data_dir"`
	LogLevel   string   `yaml:"log_level"`
	ListenAddr string   `yaml:"listen_addr"`
	APIToken   string   `yaml:"api_token"`
	IV         string   `yaml:"iv"` // base64, 16 bytes; empty selects the legacy zero IV
	Scrape     Scrape   `yaml:"scrape"`
	Keystore   Keystore `yaml:"keystore"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		DataDir:    "data",
		LogLevel:   "info",
		ListenAddr: "127.0.0.1:8300",
		Scrape: Scrape{
			Timeout: 30 * time.Second,
		},
		Keystore: Keystore{
			Path:        "roster.keystore",
			Alias:       "roster",
			PasswordEnv: "KEY_PASS",
		},
	}
}

// Path resolves the config file path: explicit flag, then ROSTER_CONFIG,
// then DefaultPath.
func Path(flag string) string {
	if flag != "" {
		return flag
	}
	if v := os.Getenv("ROSTER_CONFIG"); v != "" {
		return v
	}
	return DefaultPath
}

// Load reads path over the defaults and applies environment overrides. A
// missing file is not an error.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parsing config %s: %w", path, err)
		}
	case errors.Is(err, fs.ErrNotExist):
		log.Warn().Str("file", path).Msg("config file not found, using defaults")
	default:
		return Config{}, fmt.Errorf("reading config %s: %w", path, err)
	}
	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyEnv() {
	overrides := []struct {
		env string
		dst *string
	}{
		{"ROSTER_DATA_DIR", &c.DataDir},
		{"ROSTER_LOG_LEVEL", &c.LogLevel},
		{"ROSTER_LISTEN_ADDR", &c.ListenAddr},
		{"ROSTER_API_TOKEN", &c.APIToken},
		{"ROSTER_IV", &c.IV},
		{"SOC_MEMBER_LIST_URL", &c.Scrape.URL},
		{"SOC_COMMITTEE_COOKIE", &c.Scrape.Cookie},
		{"MEMBER_TABLE_ID", &c.Scrape.TableID},
		{"KEY_STORE_NAME", &c.Keystore.Path},
		{"KEY_ALIAS", &c.Keystore.Alias},
	}
	for _, o := range overrides {
		if v := os.Getenv(o.env); v != "" {
			*o.dst = v
		}
	}
}

// IVBytes decodes the configured IV. With no IV configured it returns the
// deprecated all-zero IV and legacy is true so the caller can warn.
func (c Config) IVBytes() (iv []byte, legacy bool, err error) {
	if c.IV == "" {
		return crypto.ZeroIV(), true, nil //nolint:staticcheck // unconfigured default
	}
	iv, err = base64.StdEncoding.DecodeString(c.IV)
	if err != nil {
		return nil, false, fmt.Errorf("decoding iv: %w", err)
	}
	if len(iv) != crypto.IVSize {
		return nil, false, fmt.Errorf("iv must be %d bytes, got %d", crypto.IVSize, len(iv))
	}
	return iv, false, nil
}

// Level parses LogLevel, falling back to info.
func (c Config) Level() zerolog.Level {
	level, err := zerolog.ParseLevel(c.LogLevel)
	if err != nil || c.LogLevel == "" {
		return zerolog.InfoLevel
	}
	return level
}
