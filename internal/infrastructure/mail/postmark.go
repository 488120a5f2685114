package mail

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"

	"github.com/mrz1836/postmark"
	"github.com/rs/zerolog"
)

var (
	ErrInvalidConfig = errors.New("mail: invalid configuration")
	ErrSendFailed    = errors.New("mail: failed to send email")
)

const tagPasswordReset = "password-reset"

var passwordResetTmpl = template.Must(template.New("password_reset").Parse(
	`<p>A password reset was requested for your account.</p>` +
		`<p><a href="{{.Link}}">Reset your password</a></p>` +
		`<p>If you did not request this, you can ignore this email.</p>`))

// Config holds the Postmark credentials and the sender address.
type Config struct {
	ServerToken  string
	AccountToken string
	From         string
}

// PostmarkMailer implements ports.Mailer with Postmark's transactional API.
type PostmarkMailer struct {
	client *postmark.Client
	from   string
}

func NewPostmarkMailer(cfg Config) (*PostmarkMailer, error) {
	if cfg.ServerToken == "" {
		return nil, fmt.Errorf("%w: server token is required", ErrInvalidConfig)
	}
	if cfg.From == "" {
		return nil, fmt.Errorf("%w: sender address is required", ErrInvalidConfig)
	}
	return &PostmarkMailer{
		client: postmark.NewClient(cfg.ServerToken, cfg.AccountToken),
		from:   cfg.From,
	}, nil
}

func (m *PostmarkMailer) SendPasswordReset(ctx context.Context, to, resetLink string) error {
	body, err := renderPasswordReset(resetLink)
	if err != nil {
		return err
	}

	resp, err := m.client.SendEmail(ctx, postmark.Email{
		From:       m.from,
		To:         to,
		Subject:    "Reset your password",
		Tag:        tagPasswordReset,
		HTMLBody:   body,
		TrackOpens: false,
	})
	if err != nil {
		return errors.Join(ErrSendFailed, err)
	}
	if resp.ErrorCode > 0 {
		return errors.Join(ErrSendFailed, fmt.Errorf("postmark error: %d - %s", resp.ErrorCode, resp.Message))
	}
	return nil
}

// LogMailer writes outgoing mail to the log instead of sending it. Used when
// no Postmark token is configured.
type LogMailer struct {
	log zerolog.Logger
}

func NewLogMailer(log zerolog.Logger) *LogMailer {
	return &LogMailer{log: log}
}

func (m *LogMailer) SendPasswordReset(_ context.Context, to, resetLink string) error {
	m.log.Info().Str("to", to).Str("tag", tagPasswordReset).Str("link", resetLink).Msg("email not sent, mailer disabled")
	return nil
}

func renderPasswordReset(link string) (string, error) {
	var buf bytes.Buffer
	if err := passwordResetTmpl.Execute(&buf, struct{ Link string }{link}); err != nil {
		return "", fmt.Errorf("render password reset: %w", err)
	}
	return buf.String(), nil
}
