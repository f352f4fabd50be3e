// Package mailer sends transactional email over SMTP.
package mailer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"mime"
	"net/smtp"
	"strings"

	"github.com/google/uuid"
	"github.com/hugh/zenshin-chart/internal/locale"
	"github.com/hugh/zenshin-chart/pkg/config"
	"github.com/hugh/zenshin-chart/pkg/metrics"
)

var ErrNotConfigured = errors.New("email is not configured")

// SendFunc matches smtp.SendMail.
type SendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

type Service struct {
	cfg     config.SMTPConfig
	appName string
	auth    smtp.Auth
	send    SendFunc
	logger  *slog.Logger
	metrics *metrics.Metrics
}

func NewService(cfg config.SMTPConfig, appName string, logger *slog.Logger, m *metrics.Metrics) *Service {
	var auth smtp.Auth
	if cfg.Username != "" {
		auth = smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.Host)
	}
	return &Service{
		cfg:     cfg,
		appName: appName,
		auth:    auth,
		send:    smtp.SendMail,
		logger:  logger,
		metrics: m,
	}
}

// WithSendFunc replaces the transport, for tests.
func (s *Service) WithSendFunc(fn SendFunc) *Service {
	s.send = fn
	return s
}

func (s *Service) IsConfigured() bool {
	return s.cfg.Host != "" && s.cfg.Port != "" && s.cfg.From != ""
}

// InvitationEmail describes one invitation message.
type InvitationEmail struct {
	To            string
	WorkspaceName string
	InviterName   string
	Role          string
	JoinURL       string
	Locale        string
}

type invitationData struct {
	AppName string
	Intro   string
	Button  string
	JoinURL string
	Expiry  string
	Lang    string
}

// SendInvitationEmail renders and sends the invitation. Delivery errors are
// returned to the caller.
func (s *Service) SendInvitationEmail(ctx context.Context, inv InvitationEmail) error {
	if !s.IsConfigured() {
		return ErrNotConfigured
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	msgs := locale.For(inv.Locale)
	role := msgs.RoleName(inv.Role)
	subject := fmt.Sprintf(msgs.InviteEmailSubj, inv.InviterName, inv.WorkspaceName)
	intro := fmt.Sprintf(msgs.InviteEmailIntro, inv.InviterName, inv.WorkspaceName, role)

	html, err := renderTemplate(invitationEmailTemplate, invitationData{
		AppName: s.appName,
		Intro:   intro,
		Button:  msgs.InviteJoin,
		JoinURL: inv.JoinURL,
		Expiry:  msgs.InviteEmailExpiry,
		Lang:    inv.Locale,
	})
	if err != nil {
		return fmt.Errorf("render invitation template: %w", err)
	}
	text := intro + "\r\n\r\n" + inv.JoinURL + "\r\n\r\n" + msgs.InviteEmailExpiry + "\r\n"

	if err := s.sendHTML([]string{inv.To}, subject, text, html); err != nil {
		s.metrics.EmailsSent.WithLabelValues("failed").Inc()
		s.logger.Error("failed to send invitation email", "to", inv.To, "error", err)
		return fmt.Errorf("sending invitation email: %w", err)
	}

	s.metrics.EmailsSent.WithLabelValues("sent").Inc()
	return nil
}

func (s *Service) sendHTML(to []string, subject, text, html string) error {
	from := s.cfg.From
	if s.cfg.FromName != "" {
		from = fmt.Sprintf("%s <%s>", mime.QEncoding.Encode("utf-8", s.cfg.FromName), s.cfg.From)
	}
	boundary := "zenshin-" + uuid.NewString()

	var msg bytes.Buffer
	fmt.Fprintf(&msg, "To: %s\r\n", strings.Join(to, ", "))
	fmt.Fprintf(&msg, "From: %s\r\n", from)
	fmt.Fprintf(&msg, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", subject))
	fmt.Fprintf(&msg, "MIME-Version: 1.0\r\n")
	fmt.Fprintf(&msg, "Content-Type: multipart/alternative; boundary=\"%s\"\r\n", boundary)
	fmt.Fprintf(&msg, "\r\n")

	fmt.Fprintf(&msg, "--%s\r\n", boundary)
	fmt.Fprintf(&msg, "Content-Type: text/plain; charset=UTF-8\r\n")
	fmt.Fprintf(&msg, "\r\n")
	fmt.Fprintf(&msg, "%s\r\n", text)

	fmt.Fprintf(&msg, "--%s\r\n", boundary)
	fmt.Fprintf(&msg, "Content-Type: text/html; charset=UTF-8\r\n")
	fmt.Fprintf(&msg, "\r\n")
	fmt.Fprintf(&msg, "%s\r\n", html)
	fmt.Fprintf(&msg, "--%s--\r\n", boundary)

	return s.send(s.cfg.Host+":"+s.cfg.Port, s.auth, s.cfg.From, to, msg.Bytes())
}

func renderTemplate(tmpl string, data interface{}) (string, error) {
	t, err := template.New("email").Parse(tmpl)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

const invitationEmailTemplate = `<!DOCTYPE html>
<html lang="{{.Lang}}">
<head>
    <meta charset="UTF-8">
    <title>{{.AppName}}</title>
    <style>
        body { font-family: -apple-system, BlinkMacSystemFont, 'Hiragino Sans', 'Segoe UI', sans-serif; line-height: 1.6; color: #1f2937; max-width: 600px; margin: 0 auto; padding: 20px; }
        .header { border-bottom: 2px solid #0f766e; padding-bottom: 10px; margin-bottom: 20px; }
        .button { display: inline-block; padding: 12px 24px; background: #0f766e; color: white; text-decoration: none; border-radius: 4px; margin: 20px 0; }
        .footer { margin-top: 30px; padding-top: 20px; border-top: 1px solid #eee; font-size: 12px; color: #6b7280; }
        .link { word-break: break-all; color: #0f766e; }
    </style>
</head>
<body>
    <div class="header">
        <h1>{{.AppName}}</h1>
    </div>

    <p>{{.Intro}}</p>

    <p>
        <a href="{{.JoinURL}}" class="button">{{.Button}}</a>
    </p>

    <p class="link">{{.JoinURL}}</p>

    <div class="footer">
        <p>{{.Expiry}}</p>
    </div>
</body>
</html>`
