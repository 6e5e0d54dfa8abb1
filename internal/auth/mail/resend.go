// Package mail delivers invitation emails through Resend.
package mail

import (
	"bytes"
	"context"
	"errors"
	"html/template"
	"log/slog"
	"net/url"
	"strings"
	"sync"

	"github.com/resend/resend-go/v2"

	"github.com/ehsh01/it-ops-dashboard/pkg/slogx"
)

const (
	DefaultFrom    = "IT Ops Console <noreply@itopsconsole.com>"
	DefaultAppURL  = "http://localhost:5000"
	InviteSubject  = "You've been invited to IT Ops Console"
	registerPath   = "/register"
	inviteTokenArg = "token"
)

var ErrNotConfigured = errors.New("mail: RESEND_API_KEY not set")

type Config struct {
	APIKey string
	From   string

	// AppURL is the public origin used in invitation links.
	AppURL string

	// BaseURL overrides the Resend API origin. Empty means the real API.
	BaseURL string
}

// ResendSender sends invitation emails. Credentials are resolved on first
// use and cached for the life of the process.
type ResendSender struct {
	cfg Config

	once   sync.Once
	client *resend.Client
	from   string
	err    error
}

func NewResendSender(cfg Config) *ResendSender {
	if cfg.AppURL == "" {
		cfg.AppURL = DefaultAppURL
	}
	return &ResendSender{cfg: cfg}
}

func (s *ResendSender) credentials() (*resend.Client, string, error) {
	s.once.Do(func() {
		if s.cfg.APIKey == "" {
			s.err = ErrNotConfigured
			return
		}

		client := resend.NewClient(s.cfg.APIKey)
		if s.cfg.BaseURL != "" {
			base, err := url.Parse(strings.TrimSuffix(s.cfg.BaseURL, "/") + "/")
			if err != nil {
				s.err = err
				return
			}
			client.BaseURL = base
		}

		s.client = client
		s.from = s.cfg.From
		if s.from == "" {
			s.from = DefaultFrom
		}
	})
	return s.client, s.from, s.err
}

// IsConfigured reports whether credentials could be resolved.
func (s *ResendSender) IsConfigured() bool {
	_, _, err := s.credentials()
	return err == nil
}

// InviteURL is the registration link for token.
func InviteURL(appURL, token string) string {
	return strings.TrimSuffix(appURL, "/") + registerPath + "?" +
		url.Values{inviteTokenArg: {token}}.Encode()
}

// InviteURL is the registration link for token on this sender's origin.
func (s *ResendSender) InviteURL(token string) string {
	return InviteURL(s.cfg.AppURL, token)
}

// SendInvitation emails an invitation link to email. It reports whether
// the provider accepted the message; failures are logged, not returned.
func (s *ResendSender) SendInvitation(ctx context.Context, email, token, inviterName string) bool {
	log := slogx.FromContext(ctx)

	client, from, err := s.credentials()
	if err != nil {
		log.Warn("invitation email not sent", slog.Any("error", err))
		return false
	}

	body, err := renderInvitation(invitationData{
		InviterName: inviterName,
		InviteURL:   s.InviteURL(token),
	})
	if err != nil {
		log.Error("failed to render invitation email", slog.Any("error", err))
		return false
	}

	sent, err := client.Emails.SendWithContext(ctx, &resend.SendEmailRequest{
		From:    from,
		To:      []string{email},
		Subject: InviteSubject,
		Html:    body,
	})
	if err != nil {
		log.Error("failed to send invitation email", slog.Any("error", err))
		return false
	}

	log.Info("invitation email sent", slog.String("message_id", sent.Id))
	return true
}

type invitationData struct {
	InviterName string
	InviteURL   string
}

var invitationTmpl = template.Must(template.New("invitation").Parse(`<!DOCTYPE html>
<html>
<head>
  <meta charset="utf-8">
  <meta name="viewport" content="width=device-width, initial-scale=1.0">
</head>
<body style="font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; margin: 0; padding: 0; background-color: #f5f5f5;">
  <div style="max-width: 600px; margin: 0 auto; padding: 40px 20px;">
    <div style="background-color: white; border-radius: 12px; padding: 40px;">
      <h1 style="color: #F47321; margin: 0; font-size: 28px; text-align: center;">IT Ops Console</h1>
      <h2 style="color: #1e293b;">You're Invited!</h2>
      <p style="color: #475569; line-height: 1.6;">
        <strong>{{.InviterName}}</strong> has invited you to join IT Ops Console, the unified dashboard for IT operations.
      </p>
      <p style="color: #475569; line-height: 1.6;">Click the button below to create your account and get started:</p>
      <div style="text-align: center; margin: 32px 0;">
        <a href="{{.InviteURL}}" style="display: inline-block; background-color: #F47321; color: white; padding: 14px 32px; text-decoration: none; border-radius: 8px; font-weight: 600;">Accept Invitation</a>
      </div>
      <p style="color: #94a3b8; font-size: 14px; line-height: 1.6;">
        This invitation expires in 7 days. If you didn't expect this invitation, you can safely ignore this email.
      </p>
    </div>
  </div>
</body>
</html>
`))

func renderInvitation(d invitationData) (string, error) {
	var buf bytes.Buffer
	if err := invitationTmpl.Execute(&buf, d); err != nil {
		return "", err
	}
	return buf.String(), nil
}
