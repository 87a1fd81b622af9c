package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/netwarlan/rconpanel/internal/settings"
)

type Config struct {
	Mode     string        `yaml:"mode"`
	Database string        `yaml:"database"`
	RCON     RCONConfig    `yaml:"rcon"`
	HTTP     HTTPConfig    `yaml:"http"`
	Discord  DiscordConfig `yaml:"discord"`
}

// RCONConfig holds the built-in endpoint defaults and transport limits.
type RCONConfig struct {
	DefaultHost string        `yaml:"default_host"`
	DefaultPort int           `yaml:"default_port"`
	Timeout     time.Duration `yaml:"timeout"`

	// QueryPort is the Source A2S query port on the RCON host. 0 disables
	// status queries. Vanilla Minecraft Java servers answer the GameSpy4
	// protocol from enable-query instead, which is not spoken here, so leave
	// this at 0 unless a plugin or proxy answers A2S.
	QueryPort int `yaml:"query_port"`
}

type HTTPConfig struct {
	Listen string `yaml:"listen"` // empty disables the HTTP API
}

type DiscordConfig struct {
	Token   string `yaml:"token"` // empty disables the bot
	GuildID string `yaml:"guild_id"`
}

// Load reads and validates the config file. Environment variables
// referenced as ${VAR_NAME} in string values are expanded.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return Parse(data)
}

// Parse decodes, defaults and validates config file contents.
func Parse(data []byte) (*Config, error) {
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	var cfg Config
	cfg.applyDefaults()
	return &cfg
}

func (c *Config) applyDefaults() {
	if c.Mode == "" {
		c.Mode = string(settings.ModeSingle)
	}
	if c.Database == "" {
		c.Database = "rconpanel.db"
	}
	if c.RCON.DefaultHost == "" {
		c.RCON.DefaultHost = settings.DefaultHost
	}
	if c.RCON.DefaultPort == 0 {
		c.RCON.DefaultPort = settings.DefaultPort
	}
	if c.RCON.Timeout == 0 {
		c.RCON.Timeout = 5 * time.Second
	}
}

func (c *Config) Validate() error {
	if c.Mode != string(settings.ModeSingle) && c.Mode != string(settings.ModeMulti) {
		return fmt.Errorf("mode must be \"single\" or \"multi\", got %q", c.Mode)
	}
	if c.Database == "" {
		return fmt.Errorf("database is required")
	}
	if c.RCON.DefaultPort < 1 || c.RCON.DefaultPort > 65535 {
		return fmt.Errorf("rcon.default_port must be between 1 and 65535, got %d", c.RCON.DefaultPort)
	}
	if c.RCON.Timeout <= 0 {
		return fmt.Errorf("rcon.timeout must be positive, got %s", c.RCON.Timeout)
	}
	if c.RCON.QueryPort < 0 || c.RCON.QueryPort > 65535 {
		return fmt.Errorf("rcon.query_port must be between 0 and 65535, got %d", c.RCON.QueryPort)
	}
	if c.Discord.Token != "" && c.Discord.GuildID == "" {
		return fmt.Errorf("discord.guild_id is required when discord.token is set")
	}
	return nil
}

// SettingsMode returns the deployment mode for the settings resolver.
func (c *Config) SettingsMode() settings.Mode {
	return settings.Mode(c.Mode)
}

// QueryAddr returns the A2S address on host, or "" when status queries are
// disabled.
func (c *Config) QueryAddr(host string) string {
	if c.RCON.QueryPort == 0 || host == "" {
		return ""
	}
	return net.JoinHostPort(host, strconv.Itoa(c.RCON.QueryPort))
}
