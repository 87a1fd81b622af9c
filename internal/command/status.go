package command

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/netwarlan/rconpanel/internal/minecraft"
	"github.com/netwarlan/rconpanel/internal/query"
	"github.com/netwarlan/rconpanel/internal/settings"
)

// StatusHandler handles /panel status.
type StatusHandler struct {
	settings  SettingsService
	runner    minecraft.Runner
	prober    query.Prober
	queryAddr func(host string) string
}

// NewStatusHandler creates the handler. queryAddr maps the console host to
// an A2S address; when it returns "" the A2S probe is skipped.
func NewStatusHandler(svc SettingsService, runner minecraft.Runner, prober query.Prober, queryAddr func(string) string) *StatusHandler {
	return &StatusHandler{settings: svc, runner: runner, prober: prober, queryAddr: queryAddr}
}

// Subcommand returns the "status" subcommand option for the /panel command.
func (h *StatusHandler) Subcommand() *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionSubCommand,
		Name:        "status",
		Description: "Check whether your server is reachable",
	}
}

// Handle executes /panel status.
func (h *StatusHandler) Handle(s *discordgo.Session, i *discordgo.InteractionCreate) {
	respondDeferred(s, i, true)

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	tenant := tenantOf(i)
	ep, err := h.settings.Get(ctx, tenant)
	if err != nil {
		followUpError(s, i, "Could not load RCON settings", err)
		return
	}

	consoleOut := h.runner.Run(ctx, tenant, "list")

	var a2s *query.Status
	if addr := h.queryAddr(ep.Host); addr != "" && h.prober != nil {
		a2s, _ = h.prober.Probe(ctx, addr)
	}

	followUpEmbed(s, i, []*discordgo.MessageEmbed{statusEmbed(ep, consoleOut, a2s)})
}

func statusEmbed(ep settings.Endpoint, consoleOut string, a2s *query.Status) *discordgo.MessageEmbed {
	consoleUp := !strings.HasPrefix(consoleOut, "Error:")

	console := "Online"
	color := 0x00ff00
	if !consoleUp {
		console = strings.TrimSpace(strings.TrimPrefix(consoleOut, "Error:"))
		color = 0xff0000
	}

	fields := []*discordgo.MessageEmbedField{
		{Name: "Server", Value: "`" + ep.Addr() + "`", Inline: true},
		{Name: "Settings", Value: ep.Provenance.Label(), Inline: true},
		{Name: "Console", Value: truncate(console, 1000)},
	}
	if consoleUp {
		players := minecraft.ExtractOnlinePlayers(consoleOut)
		fields = append(fields, &discordgo.MessageEmbedField{
			Name: "Players", Value: fmt.Sprintf("%d", len(players)), Inline: true,
		})
	}

	if a2s != nil {
		value := "Offline"
		if a2s.Online {
			value = fmt.Sprintf("%s\n%d/%d players, %s", a2s.Name, a2s.Players, a2s.MaxPlayers,
				a2s.Latency.Truncate(time.Millisecond))
			if !consoleUp {
				color = 0xffa500
			}
		}
		fields = append(fields, &discordgo.MessageEmbedField{Name: "Query (A2S)", Value: truncate(value, 1000)})
	}

	return &discordgo.MessageEmbed{
		Title:     "Server Status",
		Color:     color,
		Fields:    fields,
		Timestamp: time.Now().Format(time.RFC3339),
	}
}
