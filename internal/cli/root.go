// Package cli implements the rconpanel command line.
package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/spf13/cobra"

	"github.com/netwarlan/rconpanel/internal/config"
	"github.com/netwarlan/rconpanel/internal/console"
	"github.com/netwarlan/rconpanel/internal/rcon"
	"github.com/netwarlan/rconpanel/internal/settings"
)

// BuildInfo is stamped in by the linker.
type BuildInfo struct {
	Version string
	Commit  string
	Date    string
}

func Execute(info BuildInfo) error {
	return NewRootCmd(info).Execute()
}

func NewRootCmd(info BuildInfo) *cobra.Command {
	var configPath string

	rootCmd := &cobra.Command{
		Use:           "rconpanel",
		Short:         "Multi-tenant remote console panel for Minecraft servers",
		Long:          "rconpanel keeps one authenticated RCON session per tenant and exposes it through a Discord bot, a JSON API and this command line.",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config.yaml", "path to config file")

	load := func(cmd *cobra.Command) (*config.Config, error) {
		cfg, err := config.Load(configPath)
		if err == nil {
			return cfg, nil
		}
		// Without an explicit --config a missing file means built-in defaults.
		if errors.Is(err, fs.ErrNotExist) && !cmd.Flags().Changed("config") {
			return config.Default(), nil
		}
		return nil, err
	}

	rootCmd.AddCommand(
		newVersionCmd(info),
		newServeCmd(load, info),
		newExecCmd(load),
		newSettingsCmd(load),
	)

	return rootCmd
}

type configLoader func(cmd *cobra.Command) (*config.Config, error)

// app is the console stack shared by every subcommand.
type app struct {
	cfg        *config.Config
	store      *settings.SQLiteStore
	resolver   *settings.Resolver
	pool       *console.Pool
	dispatcher *console.Dispatcher
	settings   *console.Settings
}

func wireApp(cfg *config.Config) (*app, error) {
	store, err := settings.OpenSQLite(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	resolver := settings.NewResolver(cfg.SettingsMode(), store,
		settings.WithDefaults(cfg.RCON.DefaultHost, cfg.RCON.DefaultPort),
	)
	pool := console.NewPool(resolver, rcon.WithTimeout(cfg.RCON.Timeout))

	return &app{
		cfg:        cfg,
		store:      store,
		resolver:   resolver,
		pool:       pool,
		dispatcher: console.NewDispatcher(pool),
		settings:   console.NewSettings(resolver, pool),
	}, nil
}

func (a *app) close() {
	a.pool.Close()
	if err := a.store.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "closing database: %v\n", err)
	}
}

func openApp(cmd *cobra.Command, load configLoader) (*app, error) {
	cfg, err := load(cmd)
	if err != nil {
		return nil, err
	}
	return wireApp(cfg)
}
