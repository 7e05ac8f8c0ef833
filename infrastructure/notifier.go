package infrastructure

import (
	"context"
	"fmt"

	"sacco/models"

	"github.com/bwmarrin/discordgo"
	log "github.com/sirupsen/logrus"
)

// ChannelSender is the slice of the Discord session the notifier needs
type ChannelSender interface {
	ChannelMessageSend(channelID string, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// DiscordNotifier posts member notifications to the operations channel
type DiscordNotifier struct {
	session   ChannelSender
	channelID string
}

func NewDiscordNotifier(session ChannelSender, channelID string) *DiscordNotifier {
	return &DiscordNotifier{session: session, channelID: channelID}
}

// OpenDiscordSession creates a bot session for the operations channel
func OpenDiscordSession(token string) (*discordgo.Session, error) {
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("failed to create Discord session: %w", err)
	}
	if err := session.Open(); err != nil {
		return nil, fmt.Errorf("failed to open Discord session: %w", err)
	}
	return session, nil
}

func (n *DiscordNotifier) Notify(ctx context.Context, notification models.Notification) error {
	if _, err := n.session.ChannelMessageSend(n.channelID, formatNotification(notification), discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("failed to send Discord notification: %w", err)
	}
	return nil
}

func formatNotification(n models.Notification) string {
	return fmt.Sprintf("**%s** | member %d\n%s", n.Kind, n.MemberID, n.Message)
}

// LogNotifier writes notifications to the log when no channel is configured
type LogNotifier struct{}

func (LogNotifier) Notify(ctx context.Context, notification models.Notification) error {
	log.WithFields(log.Fields{
		"memberId": notification.MemberID,
		"kind":     notification.Kind,
	}).Info(notification.Message)
	return nil
}
