package discord

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"
)

// Notifier DMs job requesters when their update finishes or fails. It
// satisfies the worker's notification sink; delivery is best-effort.
type Notifier struct {
	sess *discordgo.Session
}

// NewNotifier builds a Notifier over an open session.
func NewNotifier(sess *discordgo.Session) *Notifier {
	return &Notifier{sess: sess}
}

// Notify opens (or reuses) the DM channel for recipientID and sends message.
func (n *Notifier) Notify(ctx context.Context, recipientID, message string) error {
	ch, err := n.sess.UserChannelCreate(recipientID)
	if err != nil {
		return fmt.Errorf("open dm channel: %w", err)
	}
	if _, err := n.sess.ChannelMessageSend(ch.ID, message); err != nil {
		return fmt.Errorf("send dm: %w", err)
	}
	return nil
}
