// Package config loads application settings from defaults, an optional
// contractadmin.yaml and CONTRACTADMIN_ environment variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"golang.org/x/text/language"

	"contractadmin/dialog"
)

// FileName is the config file looked up in the working directory.
const FileName = "contractadmin.yaml"

// EnvPrefix prefixes environment overrides. A double underscore separates
// nesting levels: CONTRACTADMIN_TABLE__PAGE_SIZE sets table.page_size.
const EnvPrefix = "CONTRACTADMIN_"

type TableConfig struct {
	PageSize    int    `koanf:"page_size"`
	MaxPageSize int    `koanf:"max_page_size"`
	Locale      string `koanf:"locale"`
}

type DialogConfig struct {
	CloseOnFailure map[string]bool `koanf:"close_on_failure"`
}

// BackendConfig points dialogs at a remote REST backend. An empty BaseURL
// keeps writes in the local PocketBase store.
type BackendConfig struct {
	BaseURL string `koanf:"base_url"`
}

type ExportConfig struct {
	Currency string `koanf:"currency"`
}

type DraftsConfig struct {
	MaxAge time.Duration `koanf:"max_age"`
}

// Config is the full application configuration.
type Config struct {
	Table   TableConfig   `koanf:"table"`
	Dialog  DialogConfig  `koanf:"dialog"`
	Backend BackendConfig `koanf:"backend"`
	Export  ExportConfig  `koanf:"export"`
	Drafts  DraftsConfig  `koanf:"drafts"`
}

func defaults() map[string]any {
	m := map[string]any{
		"table.page_size":     10,
		"table.max_page_size": 100,
		"table.locale":        "en",
		"backend.base_url":    "",
		"export.currency":     "MAD",
		"drafts.max_age":      "168h",
	}
	for _, kind := range dialog.Kinds {
		m["dialog.close_on_failure."+string(kind)] = false
	}
	return m
}

// Default returns the built-in configuration.
func Default() *Config {
	cfg, err := load("", false)
	if err != nil {
		panic(err)
	}
	return cfg
}

// Load reads .env (if present), then layers defaults, the config file at
// path (FileName when empty, skipped when missing) and the environment.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	if path == "" {
		path = FileName
	}
	return load(path, true)
}

func load(path string, withEnv bool) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
				return nil, fmt.Errorf("error reading config file %s: %w", path, err)
			}
		}
	}

	if withEnv {
		if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
			return nil, fmt.Errorf("failed to load env vars: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// envKey maps CONTRACTADMIN_TABLE__PAGE_SIZE to table.page_size.
func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	return strings.ReplaceAll(s, "__", ".")
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	if c.Table.PageSize < 1 {
		return fmt.Errorf("table.page_size must be positive, got %d", c.Table.PageSize)
	}
	if c.Table.MaxPageSize < c.Table.PageSize {
		return fmt.Errorf("table.max_page_size (%d) must be >= table.page_size (%d)", c.Table.MaxPageSize, c.Table.PageSize)
	}
	if _, err := language.Parse(c.Table.Locale); err != nil {
		return fmt.Errorf("table.locale %q: %w", c.Table.Locale, err)
	}
	for kind := range c.Dialog.CloseOnFailure {
		if !knownKind(kind) {
			return fmt.Errorf("dialog.close_on_failure: unknown dialog kind %q", kind)
		}
	}
	return nil
}

func knownKind(s string) bool {
	for _, k := range dialog.Kinds {
		if string(k) == s {
			return true
		}
	}
	return false
}

// ClosePolicy converts the close_on_failure map for dialog.Env.
func (c *Config) ClosePolicy() dialog.ClosePolicy {
	p := dialog.ClosePolicy{}
	for kind, closeIt := range c.Dialog.CloseOnFailure {
		if closeIt {
			p[dialog.Kind(kind)] = true
		}
	}
	return p
}
