package ports

import (
	"context"

	"github.com/nicestack/user-service/internal/core/domain"
)

// NotificationKind selects the email template.
type NotificationKind string

const (
	NotifyConfirmation      NotificationKind = "confirmation"
	NotifyForgotPassword    NotificationKind = "forgot-password"
	NotifyTemporaryPassword NotificationKind = "temporary-password"
)

// NotificationPayload carries the kind-specific part of the template context.
type NotificationPayload struct {
	Token    string // confirmation and forgot-password
	Password string // temporary-password
}

// Notifier sends transactional email. Send must not block on delivery and
// never reports delivery failures to the caller.
type Notifier interface {
	Send(ctx context.Context, kind NotificationKind, user *domain.User, payload NotificationPayload)
}

// MailMessage is a rendered email ready for delivery.
type MailMessage struct {
	Kind    NotificationKind
	To      string
	Subject string
	HTML    string
}

// MailSender delivers a rendered message through a concrete transport.
type MailSender interface {
	Send(ctx context.Context, msg MailMessage) error
}
