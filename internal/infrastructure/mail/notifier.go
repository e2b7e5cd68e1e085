package mail

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/nicestack/user-service/internal/core/domain"
	"github.com/nicestack/user-service/internal/core/ports"
)

// Enqueuer accepts rendered messages for asynchronous delivery.
type Enqueuer interface {
	Enqueue(msg ports.MailMessage) error
}

// Notifier renders notifications and hands them to the delivery queue.
type Notifier struct {
	renderer *Renderer
	queue    Enqueuer
	log      zerolog.Logger
}

func NewNotifier(renderer *Renderer, queue Enqueuer, log zerolog.Logger) *Notifier {
	return &Notifier{
		renderer: renderer,
		queue:    queue,
		log:      log,
	}
}

// Send never blocks on delivery. Render and queue failures are logged.
func (n *Notifier) Send(_ context.Context, kind ports.NotificationKind, user *domain.User, payload ports.NotificationPayload) {
	msg, err := n.renderer.Render(kind, user, payload)
	if err != nil {
		n.log.Error().Err(err).Str("kind", string(kind)).Str("user_id", user.ID).Msg("failed to render mail")
		return
	}
	if err := n.queue.Enqueue(msg); err != nil {
		n.log.Warn().Err(err).Str("kind", string(kind)).Str("user_id", user.ID).Msg("mail dropped")
	}
}

var _ ports.Notifier = (*Notifier)(nil)
