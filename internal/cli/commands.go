package cli

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/netwarlan/rconpanel/internal/bot"
	"github.com/netwarlan/rconpanel/internal/minecraft"
	"github.com/netwarlan/rconpanel/internal/query"
	"github.com/netwarlan/rconpanel/internal/settings"
	"github.com/netwarlan/rconpanel/internal/web"
)

func newVersionCmd(info BuildInfo) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "rconpanel %s (commit: %s, built: %s)\n", info.Version, info.Commit, info.Date)
			return err
		},
	}
}

func newServeCmd(load configLoader, info BuildInfo) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the Discord bot and the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := openApp(cmd, load)
			if err != nil {
				return err
			}
			defer a.close()

			if a.cfg.Discord.Token == "" && a.cfg.HTTP.Listen == "" {
				return errors.New("nothing to serve: set discord.token or http.listen")
			}

			var b *bot.Bot
			if a.cfg.Discord.Token != "" {
				b, err = bot.New(a.cfg.Discord.Token, a.cfg.Discord.GuildID, bot.Deps{
					Runner:    a.dispatcher,
					Settings:  a.settings,
					Prober:    query.NewA2SProber(a.cfg.RCON.Timeout),
					QueryAddr: a.cfg.QueryAddr,
				})
				if err != nil {
					return fmt.Errorf("creating bot: %w", err)
				}
				if err := b.Start(); err != nil {
					return fmt.Errorf("starting bot: %w", err)
				}
			}

			errc := make(chan error, 1)
			var srv *web.Server
			if a.cfg.HTTP.Listen != "" {
				srv = web.NewServer(a.cfg.HTTP.Listen, a.dispatcher, a.settings)
				go func() { errc <- srv.Start() }()
			}

			log.Printf("rconpanel %s is running in %s mode. Press Ctrl+C to stop.", info.Version, a.cfg.Mode)

			stop := make(chan os.Signal, 1)
			signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
			defer signal.Stop(stop)

			var runErr error
			select {
			case <-stop:
			case runErr = <-errc:
			}

			log.Println("Shutting down...")
			if srv != nil {
				if err := srv.Stop(); err != nil {
					log.Printf("Error stopping HTTP API: %v", err)
				}
			}
			if b != nil {
				if err := b.Stop(); err != nil {
					log.Printf("Error stopping bot: %v", err)
				}
			}
			return runErr
		},
	}
}

func newExecCmd(load configLoader) *cobra.Command {
	var (
		tenant  string
		timeout time.Duration
	)

	cmd := &cobra.Command{
		Use:   "exec [flags] -- <command...>",
		Short: "Send one console command on behalf of a tenant",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd, load)
			if err != nil {
				return err
			}
			defer a.close()

			ctx := cmd.Context()
			if timeout > 0 {
				var cancel func()
				ctx, cancel = context.WithTimeout(ctx, timeout)
				defer cancel()
			}

			out := a.dispatcher.Run(ctx, tenant, strings.Join(args, " "))
			outcome := minecraft.Parse(out)
			if _, err := fmt.Fprintln(cmd.OutOrStdout(), outcome.Message); err != nil {
				return err
			}
			if !outcome.Success {
				return errors.New("command failed")
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&tenant, "tenant", "t", "", "tenant key (default tenant when empty)")
	cmd.Flags().DurationVar(&timeout, "timeout", 30*time.Second, "overall deadline for connecting")
	return cmd
}

func newSettingsCmd(load configLoader) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Show or change a tenant's RCON endpoint",
	}
	cmd.AddCommand(newSettingsShowCmd(load), newSettingsSetCmd(load))
	return cmd
}

func newSettingsShowCmd(load configLoader) *cobra.Command {
	var tenant string

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show the effective endpoint",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := openApp(cmd, load)
			if err != nil {
				return err
			}
			defer a.close()

			ep, err := a.settings.Get(cmd.Context(), tenant)
			if err != nil {
				return fmt.Errorf("load settings: %w", err)
			}
			return writeEndpoint(cmd, ep)
		},
	}

	cmd.Flags().StringVarP(&tenant, "tenant", "t", "", "tenant key (default tenant when empty)")
	return cmd
}

func newSettingsSetCmd(load configLoader) *cobra.Command {
	var (
		tenant string
		form   settings.Form
		port   int
	)

	cmd := &cobra.Command{
		Use:   "set",
		Short: "Save a new endpoint",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := openApp(cmd, load)
			if err != nil {
				return err
			}
			defer a.close()

			if cmd.Flags().Changed("port") {
				form.Port = strconv.Itoa(port)
			}
			problems, err := a.settings.Save(cmd.Context(), tenant, form)
			if err != nil {
				return fmt.Errorf("save settings: %w", err)
			}
			if len(problems) > 0 {
				return errors.New(strings.Join(problems, "; "))
			}

			ep, err := a.settings.Get(cmd.Context(), tenant)
			if err != nil {
				return fmt.Errorf("load settings: %w", err)
			}
			return writeEndpoint(cmd, ep)
		},
	}

	cmd.Flags().StringVarP(&tenant, "tenant", "t", "", "tenant key (default tenant when empty)")
	cmd.Flags().StringVar(&form.Host, "host", "", "server host name or IP")
	cmd.Flags().IntVar(&port, "port", 0, "RCON port")
	cmd.Flags().StringVar(&form.Password, "password", "", "RCON password")
	_ = cmd.MarkFlagRequired("host")
	_ = cmd.MarkFlagRequired("port")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func writeEndpoint(cmd *cobra.Command, ep settings.Endpoint) error {
	password := "not set"
	if ep.Password != "" {
		password = "set"
	}
	_, err := fmt.Fprintf(cmd.OutOrStdout(), "host: %s\nport: %d\npassword: %s\nsource: %s\n",
		ep.Host, ep.Port, password, ep.Provenance.Label())
	return err
}
