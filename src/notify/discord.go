package notify

import (
	"context"
	"errors"
	"fmt"

	"github.com/bwmarrin/discordgo"
)

// discordMaxContent is Discord's per-message character limit.
const discordMaxContent = 2000

// discordSession is the subset of discordgo.Session used here.
type discordSession interface {
	ChannelMessageSend(channelID, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// Discord posts to a channel with a bot token.
type Discord struct {
	sess      discordSession
	channelID string
}

// DiscordOpts holds parameters for creating a Discord notifier.
type DiscordOpts struct {
	BotToken  string
	ChannelID string
	// For testing: inject a session instead of the real Discord API.
	Session discordSession
}

// NewDiscord creates a Discord notifier. Only the REST API is used so no
// gateway connection is opened.
func NewDiscord(opts DiscordOpts) (*Discord, error) {
	if opts.ChannelID == "" {
		return nil, errors.New("discord: channel id is required")
	}
	d := &Discord{sess: opts.Session, channelID: opts.ChannelID}
	if d.sess == nil {
		if opts.BotToken == "" {
			return nil, errors.New("discord: bot token is required")
		}
		dg, err := discordgo.New("Bot " + opts.BotToken)
		if err != nil {
			return nil, fmt.Errorf("discord: create session: %w", err)
		}
		d.sess = dg
	}
	return d, nil
}

func (d *Discord) Name() string { return "discord" }

// Notify implements Notifier.
func (d *Discord) Notify(ctx context.Context, msg Message) error {
	content := msg.Body
	if msg.Subject != "" {
		content = fmt.Sprintf("**%s**\n%s", msg.Subject, msg.Body)
	}
	if r := []rune(content); len(r) > discordMaxContent {
		content = string(r[:discordMaxContent-1]) + "…"
	}
	if _, err := d.sess.ChannelMessageSend(d.channelID, content, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("discord: send message: %w", err)
	}
	return nil
}
