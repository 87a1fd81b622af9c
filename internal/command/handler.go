package command

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/netwarlan/rconpanel/internal/settings"
)

const maxMessageLen = 1500

// SettingsService reads and saves a tenant's RCON endpoint.
type SettingsService interface {
	Get(ctx context.Context, tenant string) (settings.Endpoint, error)
	Save(ctx context.Context, tenant string, form settings.Form) ([]string, error)
}

// tenantOf returns the Discord user ID the interaction is scoped to. Guild
// interactions carry the user in Member, direct messages in User.
func tenantOf(i *discordgo.InteractionCreate) string {
	if i.Member != nil && i.Member.User != nil {
		return i.Member.User.ID
	}
	if i.User != nil {
		return i.User.ID
	}
	return ""
}

// respondNow sends an immediate text response (no deferred "thinking..." state).
func respondNow(s *discordgo.Session, i *discordgo.InteractionCreate, content string, ephemeral bool) {
	if err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{Content: content, Flags: messageFlags(ephemeral)},
	}); err != nil {
		log.Printf("Error sending response: %v", err)
	}
}

// respondDeferred acknowledges the interaction, giving us up to 15 minutes
// to reply. Console round trips can exceed Discord's 3 second window.
func respondDeferred(s *discordgo.Session, i *discordgo.InteractionCreate, ephemeral bool) {
	if err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{Flags: messageFlags(ephemeral)},
	}); err != nil {
		log.Printf("Error deferring response: %v", err)
	}
}

func messageFlags(ephemeral bool) discordgo.MessageFlags {
	if ephemeral {
		return discordgo.MessageFlagsEphemeral
	}
	return 0
}

// followUp edits the deferred response with a text message.
func followUp(s *discordgo.Session, i *discordgo.InteractionCreate, content string) {
	if _, err := s.InteractionResponseEdit(i.Interaction, &discordgo.WebhookEdit{
		Content: &content,
	}); err != nil {
		log.Printf("Error editing response: %v", err)
	}
}

// followUpEmbed edits the deferred response with a rich embed.
func followUpEmbed(s *discordgo.Session, i *discordgo.InteractionCreate, embeds []*discordgo.MessageEmbed) {
	if _, err := s.InteractionResponseEdit(i.Interaction, &discordgo.WebhookEdit{
		Embeds: &embeds,
	}); err != nil {
		log.Printf("Error editing response with embed: %v", err)
	}
}

// followUpError edits the deferred response with an error message.
func followUpError(s *discordgo.Session, i *discordgo.InteractionCreate, msg string, err error) {
	followUp(s, i, errorContent(msg, err))
}

func errorContent(msg string, err error) string {
	msg = strings.TrimSpace(strings.TrimPrefix(msg, "Error:"))
	content := fmt.Sprintf("**Error:** %s", msg)
	if err != nil {
		content += fmt.Sprintf("\n```\n%s\n```", truncate(err.Error(), 500))
	}
	return content
}

// truncate shortens a string to maxLen, appending "... (truncated)" if needed.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "\n... (truncated)"
}

// optionString returns the named option's string value, or "".
func optionString(opts []*discordgo.ApplicationCommandInteractionDataOption, name string) string {
	for _, o := range opts {
		if o.Name == name {
			return o.StringValue()
		}
	}
	return ""
}
