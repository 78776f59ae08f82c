package discord

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/okian/battletrack/pkg/logger"
)

func (b *Bot) handleInteraction(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionApplicationCommand {
		return
	}

	ctx := context.Background()
	data := i.ApplicationCommandData()

	switch data.Name {
	case "leaderboard":
		b.handleLeaderboard(ctx, s, i)
	case "update":
		b.handleUpdate(ctx, s, i, data)
	case "queue":
		b.handleQueue(ctx, s, i)
	case "fulminate":
		b.handleFulminate(ctx, s, i, data)
	}
}

func (b *Bot) handleLeaderboard(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate) {
	users, err := b.svc.Leaderboard(ctx, leaderboardSize, 0)
	if err != nil {
		b.respondError(s, i, "Could not load the leaderboard.")
		b.logger.Error(ctx, "leaderboard command", logger.Error(err))
		return
	}
	b.respondEmbed(s, i, leaderboardEmbed(users), false)
}

func (b *Bot) handleUpdate(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate, data discordgo.ApplicationCommandInteractionData) {
	username := strings.TrimSpace(data.Options[0].StringValue())

	pos, started, err := b.svc.RequestUpdate(ctx, username, interactionUserID(i))
	if err != nil {
		b.respondError(s, i, fmt.Sprintf("Could not queue `%s` for an update.", username))
		b.logger.Error(ctx, "update command",
			logger.String("username", username),
			logger.Error(err),
		)
		return
	}

	msg := fmt.Sprintf("`%s` is queued at position **%d**. You'll get a DM when the job finishes.", username, pos)
	if started {
		msg += " The worker was idle and has been started."
	}
	b.respond(s, i, msg, true)
}

func (b *Bot) handleQueue(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate) {
	entries, err := b.svc.QueueSnapshot(ctx, 0, 0)
	if err != nil {
		b.respondError(s, i, "Could not load the queue.")
		b.logger.Error(ctx, "queue command", logger.Error(err))
		return
	}
	b.respondEmbed(s, i, queueEmbed(entries, b.svc.CurrentUser(), b.svc.RemainingMatches()), true)
}

func (b *Bot) handleFulminate(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate, data discordgo.ApplicationCommandInteractionData) {
	if !isAdmin(i) {
		b.respond(s, i, "You don't have the necessary permissions to use this command.", true)
		return
	}
	username := strings.TrimSpace(data.Options[0].StringValue())

	if err := b.svc.Purge(ctx, username); err != nil {
		b.respondError(s, i, fmt.Sprintf("Could not purge `%s`.", username))
		b.logger.Error(ctx, "fulminate command",
			logger.String("username", username),
			logger.Error(err),
		)
		return
	}
	b.respond(s, i, fmt.Sprintf("The user `%s` and all associated data have been permanently deleted.", username), true)
	b.logger.Info(ctx, "profile fulminated",
		logger.String("username", username),
		logger.String("by", interactionUserID(i)),
	)
}

// interactionUserID works for both guild and DM interactions.
func interactionUserID(i *discordgo.InteractionCreate) string {
	if i.Member != nil && i.Member.User != nil {
		return i.Member.User.ID
	}
	if i.User != nil {
		return i.User.ID
	}
	return ""
}

func isAdmin(i *discordgo.InteractionCreate) bool {
	return i.Member != nil && i.Member.Permissions&discordgo.PermissionAdministrator != 0
}

func (b *Bot) respond(s *discordgo.Session, i *discordgo.InteractionCreate, content string, ephemeral bool) {
	data := &discordgo.InteractionResponseData{Content: content}
	if ephemeral {
		data.Flags = discordgo.MessageFlagsEphemeral
	}
	if err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: data,
	}); err != nil {
		b.logger.Error(context.Background(), "interaction respond", logger.Error(err))
	}
}

func (b *Bot) respondEmbed(s *discordgo.Session, i *discordgo.InteractionCreate, embed *discordgo.MessageEmbed, ephemeral bool) {
	data := &discordgo.InteractionResponseData{Embeds: []*discordgo.MessageEmbed{embed}}
	if ephemeral {
		data.Flags = discordgo.MessageFlagsEphemeral
	}
	if err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: data,
	}); err != nil {
		b.logger.Error(context.Background(), "interaction respond", logger.Error(err))
	}
}

func (b *Bot) respondError(s *discordgo.Session, i *discordgo.InteractionCreate, msg string) {
	b.respond(s, i, msg, true)
}
