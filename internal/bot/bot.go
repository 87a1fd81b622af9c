package bot

import (
	"log"

	"github.com/bwmarrin/discordgo"

	"github.com/netwarlan/rconpanel/internal/command"
	"github.com/netwarlan/rconpanel/internal/minecraft"
	"github.com/netwarlan/rconpanel/internal/query"
)

// Deps are the services the slash-command handlers call into.
type Deps struct {
	Runner    minecraft.Runner
	Settings  command.SettingsService
	Prober    query.Prober
	QueryAddr func(host string) string
}

// Bot is the Discord front end. It owns the session and the /panel command.
type Bot struct {
	guildID string
	session *discordgo.Session

	rconHandler     *command.RCONHandler
	playersHandler  *command.PlayersHandler
	statusHandler   *command.StatusHandler
	settingsHandler *command.SettingsHandler

	registeredCommand *discordgo.ApplicationCommand
}

// New creates a new Bot instance with all dependencies wired up.
func New(token, guildID string, deps Deps) (*Bot, error) {
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, err
	}

	return &Bot{
		guildID:         guildID,
		session:         session,
		rconHandler:     command.NewRCONHandler(deps.Runner),
		playersHandler:  command.NewPlayersHandler(deps.Runner),
		statusHandler:   command.NewStatusHandler(deps.Settings, deps.Runner, deps.Prober, deps.QueryAddr),
		settingsHandler: command.NewSettingsHandler(deps.Settings),
	}, nil
}

// Start opens the Discord websocket connection and registers the /panel command.
func (b *Bot) Start() error {
	b.session.AddHandler(b.handleInteraction)

	if err := b.session.Open(); err != nil {
		return err
	}

	cmd := b.buildCommand()
	registered, err := b.session.ApplicationCommandCreate(
		b.session.State.User.ID,
		b.guildID,
		cmd,
	)
	if err != nil {
		return err
	}
	b.registeredCommand = registered
	log.Printf("Registered command: /%s", cmd.Name)

	return nil
}

// Stop deregisters the slash command and closes the Discord session.
func (b *Bot) Stop() error {
	if b.registeredCommand != nil {
		if err := b.session.ApplicationCommandDelete(
			b.session.State.User.ID,
			b.guildID,
			b.registeredCommand.ID,
		); err != nil {
			log.Printf("Failed to deregister command: %v", err)
		}
	}
	return b.session.Close()
}

// buildCommand constructs the single /panel command with all subcommands.
func (b *Bot) buildCommand() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        "panel",
		Description: "Manage your Minecraft server over RCON",
		Options: []*discordgo.ApplicationCommandOption{
			b.rconHandler.Subcommand(),
			b.playersHandler.ListSubcommand(),
			b.playersHandler.PlayerSubcommand(),
			b.statusHandler.Subcommand(),
			b.settingsHandler.SubcommandGroup(),
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "ping",
				Description: "Check if the bot is alive",
			},
		},
	}
}

func (b *Bot) handleInteraction(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionApplicationCommand {
		return
	}
	data := i.ApplicationCommandData()
	if data.Name != "panel" || len(data.Options) == 0 {
		return
	}

	sub := data.Options[0]

	switch sub.Name {
	case "rcon":
		b.rconHandler.Handle(s, i, sub)
	case "players":
		b.playersHandler.HandleList(s, i)
	case "player":
		b.playersHandler.HandlePlayer(s, i, sub)
	case "status":
		b.statusHandler.Handle(s, i)
	case "settings":
		b.settingsHandler.Handle(s, i, sub)
	case "ping":
		if err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
			Type: discordgo.InteractionResponseChannelMessageWithSource,
			Data: &discordgo.InteractionResponseData{Content: "Pong!"},
		}); err != nil {
			log.Printf("Error sending response: %v", err)
		}
	}
}
