package notify

import (
	"context"
	"errors"
	"fmt"

	slackapi "github.com/slack-go/slack"
)

// slackClient is the subset of the Slack API used here.
type slackClient interface {
	PostMessageContext(ctx context.Context, channelID string, options ...slackapi.MsgOption) (string, string, error)
}

// webhookPoster posts to an incoming webhook URL.
type webhookPoster func(ctx context.Context, url string, msg *slackapi.WebhookMessage) error

// Slack posts to a channel with a bot token, or to an incoming webhook.
type Slack struct {
	client     slackClient
	channelID  string
	webhookURL string
	postHook   webhookPoster
}

// SlackOpts holds parameters for creating a Slack notifier.
type SlackOpts struct {
	BotToken   string
	ChannelID  string
	WebhookURL string
	// For testing: inject a client instead of the real Slack API.
	Client slackClient
}

// NewSlack creates a Slack notifier. Either a bot token and channel or a
// webhook URL is required.
func NewSlack(opts SlackOpts) (*Slack, error) {
	s := &Slack{channelID: opts.ChannelID, webhookURL: opts.WebhookURL, postHook: slackapi.PostWebhookContext}
	switch {
	case opts.Client != nil:
		s.client = opts.Client
	case opts.BotToken != "":
		s.client = slackapi.New(opts.BotToken)
	case opts.WebhookURL != "":
	default:
		return nil, errors.New("slack: bot token or webhook url is required")
	}
	if s.client != nil && s.channelID == "" {
		return nil, errors.New("slack: channel id is required with a bot token")
	}
	return s, nil
}

func (s *Slack) Name() string { return "slack" }

// Notify implements Notifier.
func (s *Slack) Notify(ctx context.Context, msg Message) error {
	text := msg.Body
	if msg.Subject != "" {
		text = fmt.Sprintf("*%s*\n%s", msg.Subject, msg.Body)
	}

	if s.client == nil {
		if err := s.postHook(ctx, s.webhookURL, &slackapi.WebhookMessage{Text: text}); err != nil {
			return fmt.Errorf("slack: post webhook: %w", err)
		}
		return nil
	}

	_, _, err := s.client.PostMessageContext(ctx, s.channelID,
		slackapi.MsgOptionText(text, false),
		slackapi.MsgOptionDisableLinkUnfurl(),
	)
	if err != nil {
		return fmt.Errorf("slack: post message: %w", err)
	}
	return nil
}
