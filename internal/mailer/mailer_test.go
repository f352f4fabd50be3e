package mailer

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/smtp"
	"strings"
	"testing"

	"github.com/hugh/zenshin-chart/pkg/config"
	"github.com/hugh/zenshin-chart/pkg/metrics"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type captured struct {
	addr string
	from string
	to   []string
	msg  string
}

func newTestMailer(cfg config.SMTPConfig, sendErr error) (*Service, *captured) {
	c := &captured{}
	svc := NewService(cfg, "ZENSHIN CHART", slog.New(slog.NewTextHandler(io.Discard, nil)), metrics.NewNop())
	svc.WithSendFunc(func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		c.addr, c.from, c.to, c.msg = addr, from, to, string(msg)
		return sendErr
	})
	return svc, c
}

var configured = config.SMTPConfig{Host: "smtp.example.com", Port: "587", From: "noreply@example.com", FromName: "ZENSHIN CHART"}

func TestIsConfigured(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.SMTPConfig
		want bool
	}{
		{"empty", config.SMTPConfig{}, false},
		{"missing from", config.SMTPConfig{Host: "h", Port: "25"}, false},
		{"fully configured", configured, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _ := newTestMailer(tt.cfg, nil)
			assert.Equal(t, tt.want, svc.IsConfigured())
		})
	}
}

func TestSendInvitationEmail(t *testing.T) {
	t.Run("not configured", func(t *testing.T) {
		svc, _ := newTestMailer(config.SMTPConfig{}, nil)
		err := svc.SendInvitationEmail(context.Background(), InvitationEmail{To: "a@example.com"})
		assert.ErrorIs(t, err, ErrNotConfigured)
	})

	t.Run("renders english invitation", func(t *testing.T) {
		svc, c := newTestMailer(configured, nil)

		err := svc.SendInvitationEmail(context.Background(), InvitationEmail{
			To:            "guest@example.com",
			WorkspaceName: "Growth Team",
			InviterName:   "Aki",
			Role:          "editor",
			JoinURL:       "https://app.example.com/invite/abc",
			Locale:        "en",
		})
		require.NoError(t, err)

		assert.Equal(t, "smtp.example.com:587", c.addr)
		assert.Equal(t, []string{"guest@example.com"}, c.to)
		assert.Contains(t, c.msg, "Aki invited you to the workspace")
		assert.Contains(t, c.msg, "as Editor")
		assert.Contains(t, c.msg, "https://app.example.com/invite/abc")
		assert.Contains(t, c.msg, "expires in 7 days")
		assert.True(t, strings.Contains(c.msg, "multipart/alternative"))
		assert.Equal(t, 1.0, promtest.ToFloat64(svc.metrics.EmailsSent.WithLabelValues("sent")))
	})

	t.Run("japanese subject is encoded", func(t *testing.T) {
		svc, c := newTestMailer(configured, nil)

		err := svc.SendInvitationEmail(context.Background(), InvitationEmail{
			To: "guest@example.com", WorkspaceName: "チーム", InviterName: "Aki", Role: "viewer", Locale: "ja",
		})
		require.NoError(t, err)
		assert.Contains(t, c.msg, "Subject: =?utf-8?q?")
		assert.Contains(t, c.msg, "閲覧者")
	})

	t.Run("delivery failure is returned", func(t *testing.T) {
		svc, _ := newTestMailer(configured, errors.New("550 rejected"))

		err := svc.SendInvitationEmail(context.Background(), InvitationEmail{To: "x@example.com", Locale: "en"})
		assert.Error(t, err)
		assert.Equal(t, 1.0, promtest.ToFloat64(svc.metrics.EmailsSent.WithLabelValues("failed")))
	})
}

func TestRenderTemplate_EscapesInput(t *testing.T) {
	html, err := renderTemplate(invitationEmailTemplate, invitationData{
		AppName: "ZENSHIN CHART",
		Intro:   "<script>alert(1)</script>",
		JoinURL: "https://example.com/invite/x",
	})
	require.NoError(t, err)
	assert.NotContains(t, html, "<script>")
}
