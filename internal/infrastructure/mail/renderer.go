// Package mail renders transactional emails with pongo2 templates and
// delivers them over SMTP.
package mail

import (
	_ "embed"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/flosch/pongo2/v6"

	"github.com/nicestack/user-service/internal/core/domain"
	"github.com/nicestack/user-service/internal/core/ports"
)

var (
	//go:embed templates/confirmation.html
	confirmationHTML string
	//go:embed templates/forgot_password.html
	forgotPasswordHTML string
	//go:embed templates/temporary_password.html
	temporaryPasswordHTML string
)

type template struct {
	subject string
	tpl     *pongo2.Template
}

// RendererConfig holds what the templates need besides the user.
type RendererConfig struct {
	// PublicURL is the externally reachable base URL of the API.
	PublicURL  string
	ConfirmTTL time.Duration
	ResetTTL   time.Duration
}

// Renderer turns a notification into a ready-to-send message.
type Renderer struct {
	cfg       RendererConfig
	templates map[ports.NotificationKind]template
}

// NewRenderer compiles the embedded templates.
func NewRenderer(cfg RendererConfig) (*Renderer, error) {
	cfg.PublicURL = strings.TrimRight(cfg.PublicURL, "/")

	sources := map[ports.NotificationKind]struct{ subject, body string }{
		ports.NotifyConfirmation:      {"Welcome! Confirm your Email", confirmationHTML},
		ports.NotifyForgotPassword:    {"Change password", forgotPasswordHTML},
		ports.NotifyTemporaryPassword: {"Temporary data", temporaryPasswordHTML},
	}

	r := &Renderer{cfg: cfg, templates: make(map[ports.NotificationKind]template, len(sources))}
	for kind, src := range sources {
		tpl, err := pongo2.FromString(src.body)
		if err != nil {
			return nil, fmt.Errorf("mail: compile %s template: %w", kind, err)
		}
		r.templates[kind] = template{subject: src.subject, tpl: tpl}
	}
	return r, nil
}

// Render builds the message of the given kind addressed to user.
func (r *Renderer) Render(kind ports.NotificationKind, user *domain.User, payload ports.NotificationPayload) (ports.MailMessage, error) {
	t, ok := r.templates[kind]
	if !ok {
		return ports.MailMessage{}, fmt.Errorf("mail: unknown notification kind %q", kind)
	}

	ctx := pongo2.Context{"name": displayName(user)}
	switch kind {
	case ports.NotifyConfirmation:
		ctx["url"] = r.link("/auth/confirm/", payload.Token)
		ctx["ttl"] = humanize(r.cfg.ConfirmTTL)
	case ports.NotifyForgotPassword:
		ctx["url"] = r.link("/auth/reset/", payload.Token)
		ctx["ttl"] = humanize(r.cfg.ResetTTL)
	case ports.NotifyTemporaryPassword:
		ctx["password"] = payload.Password
	}

	body, err := t.tpl.Execute(ctx)
	if err != nil {
		return ports.MailMessage{}, fmt.Errorf("mail: render %s: %w", kind, err)
	}

	return ports.MailMessage{
		Kind:    kind,
		To:      user.Email,
		Subject: t.subject,
		HTML:    body,
	}, nil
}

func (r *Renderer) link(path, token string) string {
	return r.cfg.PublicURL + path + url.PathEscape(token)
}

func displayName(u *domain.User) string {
	name := strings.TrimSpace(u.Name + " " + u.Surname)
	if name == "" {
		return u.Email
	}
	return name
}

// humanize formats d as whole hours or minutes, e.g. "24 hours".
func humanize(d time.Duration) string {
	switch {
	case d <= 0:
		return "a short time"
	case d%time.Hour == 0:
		return plural(int(d/time.Hour), "hour")
	default:
		return plural(int((d+time.Minute-1)/time.Minute), "minute")
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return "1 " + unit
	}
	return fmt.Sprintf("%d %ss", n, unit)
}
