package command

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/netwarlan/rconpanel/internal/minecraft"
)

// PlayersHandler handles /panel players and /panel player.
type PlayersHandler struct {
	runner minecraft.Runner
}

func NewPlayersHandler(runner minecraft.Runner) *PlayersHandler {
	return &PlayersHandler{runner: runner}
}

// ListSubcommand returns the "players" subcommand option for the /panel command.
func (h *PlayersHandler) ListSubcommand() *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionSubCommand,
		Name:        "players",
		Description: "Show players connected to your server",
	}
}

// PlayerSubcommand returns the "player" subcommand option for the /panel command.
func (h *PlayersHandler) PlayerSubcommand() *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionSubCommand,
		Name:        "player",
		Description: "Show a player's stats and location",
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionString,
				Name:        "name",
				Description: "Player name",
				Required:    true,
			},
		},
	}
}

// HandleList executes /panel players.
func (h *PlayersHandler) HandleList(s *discordgo.Session, i *discordgo.InteractionCreate) {
	respondDeferred(s, i, false)

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	players := minecraft.OnlinePlayers(ctx, h.runner, tenantOf(i))
	followUpEmbed(s, i, []*discordgo.MessageEmbed{playersEmbed(players)})
}

// HandlePlayer executes /panel player.
// sub is the "player" subcommand option.
func (h *PlayersHandler) HandlePlayer(s *discordgo.Session, i *discordgo.InteractionCreate, sub *discordgo.ApplicationCommandInteractionDataOption) {
	name := optionString(sub.Options, "name")
	if !minecraft.ValidPlayerName(name) {
		respondNow(s, i, fmt.Sprintf("**Error:** %q is not a valid player name", name), true)
		return
	}
	respondDeferred(s, i, false)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	tenant := tenantOf(i)
	stats, err := minecraft.PlayerStats(ctx, h.runner, tenant, name)
	if err != nil {
		followUpError(s, i, fmt.Sprintf("Could not read %s", name), err)
		return
	}
	pos, posErr := minecraft.PlayerLocation(ctx, h.runner, tenant, name)

	followUpEmbed(s, i, []*discordgo.MessageEmbed{playerEmbed(name, stats, pos, posErr)})
}

func playersEmbed(players []string) *discordgo.MessageEmbed {
	description := "No players are online."
	if len(players) > 0 {
		lines := make([]string, 0, len(players))
		for _, p := range players {
			lines = append(lines, "`"+p+"`")
		}
		description = truncate(strings.Join(lines, "\n"), 4000)
	}
	return &discordgo.MessageEmbed{
		Title:       fmt.Sprintf("Players Online (%d)", len(players)),
		Description: description,
		Color:       0x00bfff,
		Timestamp:   time.Now().Format(time.RFC3339),
	}
}

func playerEmbed(name string, stats minecraft.Stats, pos minecraft.Position, posErr error) *discordgo.MessageEmbed {
	field := func(label, value string) *discordgo.MessageEmbedField {
		return &discordgo.MessageEmbedField{Name: label, Value: value, Inline: true}
	}
	unknown := "n/a"

	health, food, xp, mode := unknown, unknown, unknown, unknown
	if stats.Health != nil {
		health = fmt.Sprintf("%.1f / 20", *stats.Health)
	}
	if stats.Food != nil {
		food = fmt.Sprintf("%d / 20", *stats.Food)
	}
	if stats.XPLevel != nil {
		xp = fmt.Sprintf("%d", *stats.XPLevel)
	}
	if stats.GameMode != nil {
		mode = *stats.GameMode
	}

	location := fmt.Sprintf("%d, %d, %d", pos.X, pos.Y, pos.Z)
	var cmdErr *minecraft.CommandError
	switch {
	case errors.As(posErr, &cmdErr):
		location = truncate(cmdErr.Response, 200)
	case errors.Is(posErr, minecraft.ErrNoPosition):
		location = "Could not parse position"
	case posErr != nil:
		location = posErr.Error()
	}

	color := 0x00ff00
	if stats.Health == nil && posErr != nil {
		color = 0xff0000
	}

	return &discordgo.MessageEmbed{
		Title: name,
		Color: color,
		Fields: []*discordgo.MessageEmbedField{
			field("Health", health),
			field("Food", food),
			field("XP Level", xp),
			field("Game Mode", mode),
			{Name: "Location", Value: location},
		},
		Timestamp: time.Now().Format(time.RFC3339),
	}
}
