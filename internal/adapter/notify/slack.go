package notify

import (
	"context"

	"github.com/slack-go/slack"
)

// SlackSurface posts notifications to a Slack incoming webhook.
type SlackSurface struct {
	webhookURL string
}

// NewSlackSurface creates a Slack webhook surface.
func NewSlackSurface(webhookURL string) *SlackSurface {
	return &SlackSurface{webhookURL: webhookURL}
}

func (s *SlackSurface) Name() string { return "slack" }

func (s *SlackSurface) Send(ctx context.Context, text string) error {
	return slack.PostWebhookContext(ctx, s.webhookURL, &slack.WebhookMessage{Text: text})
}
