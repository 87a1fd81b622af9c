package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/netwarlan/rconpanel/internal/settings"
)

func TestLoad(t *testing.T) {
	content := `
mode: multi
database: /var/lib/rconpanel/panel.db
rcon:
  default_host: mc.internal
  default_port: 25580
  timeout: 3s
  query_port: 25565
http:
  listen: ":8080"
discord:
  token: "test-token"
  guild_id: "123456"
`
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}

	if cfg.SettingsMode() != settings.ModeMulti {
		t.Errorf("mode = %q, want %q", cfg.Mode, settings.ModeMulti)
	}
	if cfg.Database != "/var/lib/rconpanel/panel.db" {
		t.Errorf("database = %q", cfg.Database)
	}
	if cfg.RCON.DefaultHost != "mc.internal" {
		t.Errorf("default_host = %q, want %q", cfg.RCON.DefaultHost, "mc.internal")
	}
	if cfg.RCON.DefaultPort != 25580 {
		t.Errorf("default_port = %d, want 25580", cfg.RCON.DefaultPort)
	}
	if cfg.RCON.Timeout != 3*time.Second {
		t.Errorf("timeout = %s, want 3s", cfg.RCON.Timeout)
	}
	if cfg.HTTP.Listen != ":8080" {
		t.Errorf("listen = %q, want %q", cfg.HTTP.Listen, ":8080")
	}
	if cfg.Discord.Token != "test-token" {
		t.Errorf("token = %q, want %q", cfg.Discord.Token, "test-token")
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err == nil || !strings.Contains(err.Error(), "reading config") {
		t.Errorf("err = %v, want reading error", err)
	}
}

func TestLoad_EnvExpansion(t *testing.T) {
	t.Setenv("TEST_BOT_TOKEN", "expanded-token")
	t.Setenv("TEST_DB_PATH", "/data/panel.db")

	cfg, err := Parse([]byte(`
database: "${TEST_DB_PATH}"
discord:
  token: "${TEST_BOT_TOKEN}"
  guild_id: "123"
`))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Discord.Token != "expanded-token" {
		t.Errorf("token = %q, want %q", cfg.Discord.Token, "expanded-token")
	}
	if cfg.Database != "/data/panel.db" {
		t.Errorf("database = %q, want %q", cfg.Database, "/data/panel.db")
	}
}

func TestParse_Defaults(t *testing.T) {
	cfg, err := Parse([]byte("http:\n  listen: \":9090\"\n"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.SettingsMode() != settings.ModeSingle {
		t.Errorf("mode = %q, want single", cfg.Mode)
	}
	if cfg.RCON.DefaultHost != settings.DefaultHost || cfg.RCON.DefaultPort != settings.DefaultPort {
		t.Errorf("defaults = %s:%d", cfg.RCON.DefaultHost, cfg.RCON.DefaultPort)
	}
	if cfg.RCON.Timeout != 5*time.Second {
		t.Errorf("timeout = %s, want 5s", cfg.RCON.Timeout)
	}
	if cfg.Database == "" {
		t.Error("database has no default")
	}

	if d := Default(); d.Validate() != nil {
		t.Errorf("Default() is invalid: %v", d.Validate())
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{"bad mode", "mode: cluster", "mode must be"},
		{"bad port", "rcon:\n  default_port: 70000", "rcon.default_port"},
		{"negative timeout", "rcon:\n  timeout: -1s", "rcon.timeout"},
		{"bad query port", "rcon:\n  query_port: -2", "rcon.query_port"},
		{"token without guild", "discord:\n  token: abc", "discord.guild_id"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.content))
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("err = %v, want mention of %q", err, tt.wantErr)
			}
		})
	}
}

func TestParse_InvalidYAML(t *testing.T) {
	if _, err := Parse([]byte("mode: [single")); err == nil || !strings.Contains(err.Error(), "parsing config") {
		t.Errorf("err = %v, want parse error", err)
	}
}

func TestQueryAddr(t *testing.T) {
	cfg := Default()
	if got := cfg.QueryAddr("10.0.0.5"); got != "" {
		t.Errorf("QueryAddr with no port = %q, want empty", got)
	}

	cfg.RCON.QueryPort = 25565
	if got := cfg.QueryAddr("10.0.0.5"); got != "10.0.0.5:25565" {
		t.Errorf("QueryAddr = %q, want %q", got, "10.0.0.5:25565")
	}
	if got := cfg.QueryAddr("::1"); got != "[::1]:25565" {
		t.Errorf("QueryAddr = %q, want %q", got, "[::1]:25565")
	}
	if got := cfg.QueryAddr(""); got != "" {
		t.Errorf("QueryAddr(\"\") = %q, want empty", got)
	}
}

func TestExampleConfig_QueryDisabled(t *testing.T) {
	t.Setenv("DISCORD_TOKEN", "")
	t.Setenv("DISCORD_GUILD_ID", "")

	cfg, err := Load(filepath.Join("..", "..", "config.example.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.RCON.QueryPort != 0 {
		t.Errorf("query_port = %d, want 0 so vanilla servers are not queried over A2S", cfg.RCON.QueryPort)
	}
	if got := cfg.QueryAddr("mc.example.com"); got != "" {
		t.Errorf("QueryAddr = %q, want empty", got)
	}
}
