package command

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/netwarlan/rconpanel/internal/minecraft"
)

// RCONHandler handles /panel rcon commands.
type RCONHandler struct {
	runner minecraft.Runner
}

func NewRCONHandler(runner minecraft.Runner) *RCONHandler {
	return &RCONHandler{runner: runner}
}

// Subcommand returns the "rcon" subcommand option for the /panel command.
func (h *RCONHandler) Subcommand() *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionSubCommand,
		Name:        "rcon",
		Description: "Send a console command to your server",
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionString,
				Name:        "command",
				Description: "Command to execute, e.g. time set day",
				Required:    true,
			},
		},
	}
}

// Handle executes /panel rcon.
// sub is the "rcon" subcommand option.
func (h *RCONHandler) Handle(s *discordgo.Session, i *discordgo.InteractionCreate, sub *discordgo.ApplicationCommandInteractionDataOption) {
	respondDeferred(s, i, true) // console output may be sensitive

	command := optionString(sub.Options, "command")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	out := h.runner.Run(ctx, tenantOf(i), command)
	followUp(s, i, formatOutcome(command, minecraft.Parse(out)))
}

func formatOutcome(command string, o minecraft.Outcome) string {
	if !o.Success {
		return errorContent(fmt.Sprintf("`%s` failed", command), errors.New(o.Message))
	}
	msg := fmt.Sprintf("**RCON** `%s`", command)
	if o.Data != nil {
		msg += fmt.Sprintf("\n```\n%s\n```", truncate(*o.Data, maxMessageLen))
	} else {
		msg += "\n*" + o.Message + "*"
	}
	return msg
}
