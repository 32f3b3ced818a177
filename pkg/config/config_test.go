package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"go.mau.fi/util/configupgrade"
	"go.mau.fi/zeroconfig"
	"gopkg.in/yaml.v3"
)

func TestUpgradeConfigKeepsUserValues(t *testing.T) {
	const cfgYAML = `
homeserver:
  url: https://matrix.example.org
  access_token: "syt_test"
editor:
  markdown: false
`
	var baseNode, cfgNode yaml.Node
	if err := yaml.Unmarshal([]byte(ExampleConfig), &baseNode); err != nil {
		t.Fatalf("failed to parse base yaml: %v", err)
	}
	if err := yaml.Unmarshal([]byte(cfgYAML), &cfgNode); err != nil {
		t.Fatalf("failed to parse config yaml: %v", err)
	}

	helper := configupgrade.NewHelper(&baseNode, &cfgNode)
	upgradeConfig(helper)

	hsNode, ok := helper.Base.Map["homeserver"]
	if !ok {
		t.Fatalf("homeserver node missing after upgrade")
	}
	if tokenNode := hsNode.Map["access_token"]; tokenNode.Value != "syt_test" {
		t.Fatalf("expected access_token to stay set, got %q", tokenNode.Value)
	}
	if userNode := hsNode.Map["user_id"]; userNode.Value != "@you:example.com" {
		t.Fatalf("expected user_id default to be filled in, got %q", userNode.Value)
	}
}

func TestParseFillsDefaults(t *testing.T) {
	t.Setenv(EnvAccessToken, "")
	t.Setenv(EnvHomeserver, "")
	cfg, err := Parse([]byte(`
homeserver:
  url: https://matrix.example.org
  user_id: "@alice:example.org"
  access_token: syt_test
editor:
  markdown: false
`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cfg.Homeserver.URL != "https://matrix.example.org" || cfg.Homeserver.UserID != "@alice:example.org" {
		t.Fatalf("unexpected homeserver config: %#v", cfg.Homeserver)
	}
	if cfg.Editor.Markdown {
		t.Fatalf("expected markdown to stay disabled")
	}
	if cfg.Editor.ShowToolbar {
		t.Fatalf("expected toolbar default to be hidden")
	}
	if cfg.Editor.PreviewLength != 80 || cfg.Autocomplete.Limit != 8 {
		t.Fatalf("unexpected defaults: preview=%d limit=%d", cfg.Editor.PreviewLength, cfg.Autocomplete.Limit)
	}
	if cfg.Database.Path != "msgedit.db" {
		t.Fatalf("unexpected database path: %q", cfg.Database.Path)
	}
	if len(cfg.Logging.Writers) != 1 || cfg.Logging.Writers[0].Type != zeroconfig.WriterTypeFile {
		t.Fatalf("expected default file log writer, got %#v", cfg.Logging.Writers)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
}

func TestParseEmptyUsesExample(t *testing.T) {
	cfg, err := Parse(nil)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !cfg.Editor.Markdown {
		t.Fatalf("expected markdown enabled by default")
	}
	if cfg.Logging.MinLevel == nil || *cfg.Logging.MinLevel != zerolog.InfoLevel {
		t.Fatalf("unexpected min level: %v", cfg.Logging.MinLevel)
	}
}

func TestParseEnvOverrides(t *testing.T) {
	t.Setenv(EnvAccessToken, "  syt_env  ")
	t.Setenv(EnvHomeserver, "")

	cfg, err := Parse([]byte("homeserver:\n  access_token: syt_file\n"))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cfg.Homeserver.AccessToken != "syt_env" {
		t.Fatalf("expected env token, got %q", cfg.Homeserver.AccessToken)
	}
	if cfg.Homeserver.URL != "https://matrix.example.com" {
		t.Fatalf("expected file url when env is blank, got %q", cfg.Homeserver.URL)
	}
}

func TestParseInvalidYAML(t *testing.T) {
	if _, err := Parse([]byte("homeserver: [")); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestLoad(t *testing.T) {
	t.Setenv(EnvAccessToken, "")
	dir := t.TempDir()

	cfg, err := Load(filepath.Join(dir, "missing.yaml"))
	if err != nil {
		t.Fatalf("load missing: %v", err)
	}
	if cfg.Homeserver.URL != "https://matrix.example.com" {
		t.Fatalf("expected example config, got %q", cfg.Homeserver.URL)
	}

	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("autocomplete:\n  limit: 3\n"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg, err = Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Autocomplete.Limit != 3 {
		t.Fatalf("expected limit 3, got %d", cfg.Autocomplete.Limit)
	}
}

func TestValidate(t *testing.T) {
	t.Setenv(EnvAccessToken, "")
	t.Setenv(EnvHomeserver, "")
	cfg, err := Parse([]byte(`
homeserver:
  url: ""
  user_id: "not-a-user"
logging:
  writers:
    - type: stdout
      format: pretty-colored
`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	err = cfg.Validate()
	for _, want := range []error{ErrMissingHomeserver, ErrInvalidUserID, ErrMissingToken, ErrTerminalLogging} {
		if !errors.Is(err, want) {
			t.Fatalf("expected %v in %v", want, err)
		}
	}
}

func TestUpgradeOutputIsValidYAML(t *testing.T) {
	merged, err := Upgrade([]byte("editor:\n  show_toolbar: true\n"))
	if err != nil {
		t.Fatalf("upgrade: %v", err)
	}
	if !strings.Contains(string(merged), "show_toolbar: true") {
		t.Fatalf("expected user value in merged config:\n%s", merged)
	}
	var out map[string]any
	if err := yaml.Unmarshal(merged, &out); err != nil {
		t.Fatalf("merged config is not valid yaml: %v", err)
	}
}
