package notify

import (
	"context"
	"log/slog"

	"launchdock/internal/domain"
	"launchdock/internal/infra/config"
)

// Store persists notification records. Persistence is the source of truth;
// forwarding surfaces are best-effort extras.
type Store interface {
	CreateNotification(ctx context.Context, text string) (int64, error)
}

// Surface forwards a notification to an external destination.
type Surface interface {
	Name() string
	Send(ctx context.Context, text string) error
}

// Notifier persists every notification and forwards it to the configured
// surfaces. Surface failures are logged, never propagated.
type Notifier struct {
	store    Store
	surfaces []Surface
	logger   *slog.Logger
}

// New creates a Notifier with the given forwarding surfaces.
func New(store Store, logger *slog.Logger, surfaces ...Surface) *Notifier {
	return &Notifier{store: store, surfaces: surfaces, logger: logger}
}

// FromConfig builds a Notifier with the surfaces enabled in cfg.
func FromConfig(store Store, cfg config.NotificationsConfig, logger *slog.Logger) (*Notifier, error) {
	var surfaces []Surface
	if cfg.Slack.WebhookURL != "" {
		surfaces = append(surfaces, NewSlackSurface(cfg.Slack.WebhookURL))
	}
	if cfg.Discord.Token != "" && cfg.Discord.ChannelID != "" {
		d, err := NewDiscordSurface(cfg.Discord.Token, cfg.Discord.ChannelID)
		if err != nil {
			return nil, err
		}
		surfaces = append(surfaces, d)
	}
	return New(store, logger, surfaces...), nil
}

// Send persists the notification and forwards it best-effort.
func (n *Notifier) Send(ctx context.Context, text string) error {
	id, err := n.store.CreateNotification(ctx, text)
	if err != nil {
		return domain.WrapOp("notify.Send", err)
	}

	for _, surface := range n.surfaces {
		if err := surface.Send(ctx, text); err != nil {
			n.logger.Warn("notification surface failed",
				"surface", surface.Name(), "id", id, "error", err)
		}
	}

	n.logger.Info("notification sent", "id", id)
	return nil
}
