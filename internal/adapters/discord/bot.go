// Package discord exposes the tracker through a Discord bot: slash
// commands, leaderboard embeds, and completion DMs.
package discord

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"

	"github.com/okian/battletrack/internal/domain/model"
	"github.com/okian/battletrack/pkg/logger"
)

// Service is what the command handlers need from the application.
type Service interface {
	RequestUpdate(ctx context.Context, username, requesterID string) (int, bool, error)
	Leaderboard(ctx context.Context, limit, offset int) ([]model.User, error)
	QueueSnapshot(ctx context.Context, limit, offset int) ([]model.QueueEntry, error)
	CurrentUser() string
	RemainingMatches() int
	Purge(ctx context.Context, username string) error
}

// Bot owns the gateway session and routes interactions to the service.
type Bot struct {
	sess    *discordgo.Session
	svc     Service
	appID   string
	guildID string
	logger  logger.Logger
}

// NewBot wires a Bot around an existing session.
func NewBot(sess *discordgo.Session, svc Service, appID, guildID string) *Bot {
	return &Bot{
		sess:    sess,
		svc:     svc,
		appID:   appID,
		guildID: guildID,
		logger:  logger.Get().Named("discord"),
	}
}

var commands = []*discordgo.ApplicationCommand{
	{
		Name:        "leaderboard",
		Description: "Show the Battleball leaderboard",
		Type:        discordgo.ChatApplicationCommand,
	},
	{
		Name:        "update",
		Description: "Queue a Battleball profile for a stats update",
		Type:        discordgo.ChatApplicationCommand,
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionString,
				Name:        "username",
				Description: "Habbo username to update",
				Required:    true,
			},
		},
	},
	{
		Name:        "queue",
		Description: "Show the pending update queue",
		Type:        discordgo.ChatApplicationCommand,
	},
	{
		Name:        "fulminate",
		Description: "Delete a Battleball profile and all its data",
		Type:        discordgo.ChatApplicationCommand,
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionString,
				Name:        "username",
				Description: "Habbo username to purge",
				Required:    true,
			},
		},
	},
}

// Register attaches the interaction handler and creates (or updates) the
// guild-level slash commands.
func (b *Bot) Register() error {
	b.sess.AddHandler(b.handleInteraction)
	b.sess.Identify.Intents = discordgo.IntentsGuilds | discordgo.IntentsGuildMessages

	for _, c := range commands {
		if _, err := b.sess.ApplicationCommandCreate(b.appID, b.guildID, c); err != nil {
			return fmt.Errorf("register command %q: %w", c.Name, err)
		}
	}
	return nil
}
