// Package config loads the msgedit YAML config, upgrading user files onto the
// embedded example config so new options get their defaults.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"go.mau.fi/util/configupgrade"
	"go.mau.fi/util/ptr"
	"go.mau.fi/zeroconfig"
	"gopkg.in/yaml.v3"
	"maunium.net/go/mautrix/id"

	"github.com/beeper/msgedit/pkg/shared/stringutil"
)

//go:embed example-config.yaml
var ExampleConfig string

const (
	EnvHomeserver  = "MSGEDIT_HOMESERVER"
	EnvAccessToken = "MSGEDIT_ACCESS_TOKEN"
)

type Config struct {
	Homeserver   HomeserverConfig   `yaml:"homeserver"`
	Database     DatabaseConfig     `yaml:"database"`
	Editor       EditorConfig       `yaml:"editor"`
	Autocomplete AutocompleteConfig `yaml:"autocomplete"`
	Logging      zeroconfig.Config  `yaml:"logging"`
}

type HomeserverConfig struct {
	URL         string      `yaml:"url"`
	UserID      id.UserID   `yaml:"user_id"`
	AccessToken string      `yaml:"access_token"`
	DeviceID    id.DeviceID `yaml:"device_id"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

type EditorConfig struct {
	Markdown      bool `yaml:"markdown"`
	ShowToolbar   bool `yaml:"show_toolbar"`
	PreviewLength int  `yaml:"preview_length"`
}

type AutocompleteConfig struct {
	Limit int `yaml:"limit"`
}

func upgradeConfig(helper configupgrade.Helper) {
	helper.Copy(configupgrade.Str, "homeserver", "url")
	helper.Copy(configupgrade.Str, "homeserver", "user_id")
	helper.Copy(configupgrade.Str, "homeserver", "access_token")
	helper.Copy(configupgrade.Str, "homeserver", "device_id")

	helper.Copy(configupgrade.Str, "database", "path")

	helper.Copy(configupgrade.Bool, "editor", "markdown")
	helper.Copy(configupgrade.Bool, "editor", "show_toolbar")
	helper.Copy(configupgrade.Int, "editor", "preview_length")

	helper.Copy(configupgrade.Int, "autocomplete", "limit")

	helper.Copy(configupgrade.Map, "logging")
}

// Upgrade copies the values of a user config onto the example config and
// returns the merged YAML. An empty user config yields the example config.
func Upgrade(userYAML []byte) ([]byte, error) {
	var base, cfg yaml.Node
	if err := yaml.Unmarshal([]byte(ExampleConfig), &base); err != nil {
		return nil, fmt.Errorf("failed to parse example config: %w", err)
	}
	if len(userYAML) == 0 {
		return []byte(ExampleConfig), nil
	}
	if err := yaml.Unmarshal(userYAML, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if len(cfg.Content) == 0 {
		return []byte(ExampleConfig), nil
	}
	upgradeConfig(configupgrade.NewHelper(&base, &cfg))
	merged, err := yaml.Marshal(&base)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal upgraded config: %w", err)
	}
	return merged, nil
}

// Parse upgrades and decodes a config, applying environment overrides.
func Parse(userYAML []byte) (*Config, error) {
	merged, err := Upgrade(userYAML)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(merged, &cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	cfg.Homeserver.URL = stringutil.EnvOr(cfg.Homeserver.URL, os.Getenv(EnvHomeserver))
	cfg.Homeserver.AccessToken = stringutil.EnvOr(cfg.Homeserver.AccessToken, os.Getenv(EnvAccessToken))
	cfg.applyDefaults()
	return &cfg, nil
}

// Load reads the config file at path. A missing file is not an error, the
// example config is used instead.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	return Parse(data)
}

func (c *Config) applyDefaults() {
	if c.Database.Path == "" {
		c.Database.Path = "msgedit.db"
	}
	if c.Editor.PreviewLength <= 0 {
		c.Editor.PreviewLength = 80
	}
	if c.Autocomplete.Limit <= 0 {
		c.Autocomplete.Limit = 8
	}
	if c.Logging.MinLevel == nil {
		c.Logging.MinLevel = ptr.Ptr(zerolog.InfoLevel)
	}
}

var (
	ErrMissingHomeserver = errors.New("homeserver.url is not set")
	ErrInvalidUserID     = errors.New("homeserver.user_id is not a valid user ID")
	ErrMissingToken      = errors.New("homeserver.access_token is not set")
	ErrTerminalLogging   = errors.New("logging to stdout or stderr would corrupt the editor")
)

// Validate checks the options needed to connect and run the editor.
func (c *Config) Validate() error {
	var errs []error
	if c.Homeserver.URL == "" {
		errs = append(errs, ErrMissingHomeserver)
	}
	if _, _, err := c.Homeserver.UserID.Parse(); err != nil {
		errs = append(errs, fmt.Errorf("%w: %w", ErrInvalidUserID, err))
	}
	if c.Homeserver.AccessToken == "" {
		errs = append(errs, ErrMissingToken)
	}
	for _, w := range c.Logging.Writers {
		if w.Type == zeroconfig.WriterTypeStdout || w.Type == zeroconfig.WriterTypeStderr {
			errs = append(errs, ErrTerminalLogging)
			break
		}
	}
	return errors.Join(errs...)
}
