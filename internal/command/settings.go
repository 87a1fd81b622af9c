package command

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/netwarlan/rconpanel/internal/settings"
)

// SettingsHandler handles /panel settings show|set.
type SettingsHandler struct {
	settings SettingsService
}

func NewSettingsHandler(svc SettingsService) *SettingsHandler {
	return &SettingsHandler{settings: svc}
}

// SubcommandGroup returns the "settings" group for the /panel command.
func (h *SettingsHandler) SubcommandGroup() *discordgo.ApplicationCommandOption {
	minPort := float64(1)
	return &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionSubCommandGroup,
		Name:        "settings",
		Description: "View or change your RCON connection",
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "show",
				Description: "Show the RCON connection in use",
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "set",
				Description: "Save a new RCON connection",
				Options: []*discordgo.ApplicationCommandOption{
					{
						Type:        discordgo.ApplicationCommandOptionString,
						Name:        "host",
						Description: "Server host name or IP",
						Required:    true,
					},
					{
						Type:        discordgo.ApplicationCommandOptionInteger,
						Name:        "port",
						Description: "RCON port (usually 25575)",
						Required:    true,
						MinValue:    &minPort,
						MaxValue:    65535,
					},
					{
						Type:        discordgo.ApplicationCommandOptionString,
						Name:        "password",
						Description: "RCON password",
						Required:    true,
					},
				},
			},
		},
	}
}

// Handle dispatches /panel settings subcommands. Responses are ephemeral.
// group is the "settings" subcommand group option.
func (h *SettingsHandler) Handle(s *discordgo.Session, i *discordgo.InteractionCreate, group *discordgo.ApplicationCommandInteractionDataOption) {
	if len(group.Options) == 0 {
		return
	}
	sub := group.Options[0]

	// Store access can wait on a busy SQLite lock, so acknowledge first.
	respondDeferred(s, i, true)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	tenant := tenantOf(i)
	switch sub.Name {
	case "show":
		followUp(s, i, h.show(ctx, tenant))

	case "set":
		form := settings.Form{Password: optionString(sub.Options, "password"), Host: optionString(sub.Options, "host")}
		for _, o := range sub.Options {
			if o.Name == "port" {
				form.Port = strconv.FormatInt(o.IntValue(), 10)
			}
		}
		followUp(s, i, h.save(ctx, tenant, form))
	}
}

func (h *SettingsHandler) show(ctx context.Context, tenant string) string {
	ep, err := h.settings.Get(ctx, tenant)
	if err != nil {
		log.Printf("Error loading settings for %s: %v", tenant, err)
		return "**Error:** Could not load RCON settings."
	}
	return formatEndpoint(ep)
}

func (h *SettingsHandler) save(ctx context.Context, tenant string, form settings.Form) string {
	problems, err := h.settings.Save(ctx, tenant, form)
	switch {
	case errors.Is(err, settings.ErrManagedByEnvironment):
		return "**Error:** RCON settings are managed via environment and cannot be changed here."
	case err != nil:
		log.Printf("Error saving settings for %s: %v", tenant, err)
		return "**Error:** Could not save RCON settings."
	case len(problems) > 0:
		return "**Error:** " + strings.Join(problems, ", ")
	}
	return "RCON settings saved. The next command will use the new connection."
}

func formatEndpoint(ep settings.Endpoint) string {
	password := "not set"
	if ep.Password != "" {
		password = "set"
	}
	return fmt.Sprintf("**RCON Settings** (%s)\nHost: `%s`\nPort: `%d`\nPassword: %s",
		ep.Provenance.Label(), ep.Host, ep.Port, password)
}
