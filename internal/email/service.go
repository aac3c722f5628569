package email

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"strings"

	"github.com/wneessen/go-mail"

	"github.com/driftboard/auth-api/internal/config"
	"github.com/driftboard/auth-api/internal/logging"
)

// NotificationEmail is a message handed to the SMTP transport. It is
// transient and never persisted.
type NotificationEmail struct {
	Subject   string
	Recipient string
	Body      string
}

// Service sends account notification emails over SMTP.
type Service struct {
	host              string
	port              int
	username          string
	password          string
	from              string
	activationBaseURL string
	logger            *logging.Logger
}

func NewService(cfg config.EmailConfig, logger *logging.Logger) *Service {
	return &Service{
		host:              cfg.SMTPHost,
		port:              cfg.SMTPPort,
		username:          cfg.SMTPUser,
		password:          cfg.SMTPPassword,
		from:              cfg.FromAddress,
		activationBaseURL: strings.TrimSuffix(cfg.ActivationBaseURL, "/"),
		logger:            logger,
	}
}

// SendActivationEmail sends the account activation link to the user.
// This method is designed to be called in a goroutine. Failures are
// returned to the caller, which owns logging them.
func (s *Service) SendActivationEmail(ctx context.Context, recipient, token string) error {
	activationLink := fmt.Sprintf("%s/%s", s.activationBaseURL, token)

	body, err := renderActivationEmail(activationLink)
	if err != nil {
		return fmt.Errorf("render template: %w", err)
	}

	msg := NotificationEmail{
		Subject:   "Please activate your account",
		Recipient: recipient,
		Body:      body,
	}

	if err := s.send(ctx, msg); err != nil {
		return fmt.Errorf("send email: %w", err)
	}

	s.logger.Info("activation email sent", "email", recipient)
	return nil
}

// send delivers a message via SMTP using go-mail.
func (s *Service) send(ctx context.Context, n NotificationEmail) error {
	msg := mail.NewMsg()

	if err := msg.From(s.from); err != nil {
		return fmt.Errorf("setting from address: %w", err)
	}
	if err := msg.To(n.Recipient); err != nil {
		return fmt.Errorf("setting to address: %w", err)
	}

	msg.Subject(n.Subject)
	msg.SetBodyString(mail.TypeTextHTML, n.Body)

	opts := []mail.Option{
		mail.WithPort(s.port),
	}
	if s.username != "" && s.password != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(s.username),
			mail.WithPassword(s.password),
		)
	}

	client, err := mail.NewClient(s.host, opts...)
	if err != nil {
		return fmt.Errorf("creating mail client: %w", err)
	}

	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("sending email: %w", err)
	}

	return nil
}

const activationTemplate = `
<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
</head>
<body style="font-family: Arial, sans-serif; line-height: 1.6; color: #333; max-width: 600px; margin: 0 auto; padding: 20px;">
    <h2>Activate your account</h2>
    <p>Thank you for signing up! Click on the link below to activate your account:</p>
    <p><a href="{{.ActivationLink}}">{{.ActivationLink}}</a></p>
    <p>If you didn't create an account, you can safely ignore this email.</p>
</body>
</html>
`

func renderActivationEmail(activationLink string) (string, error) {
	t, err := template.New("activation").Parse(activationTemplate)
	if err != nil {
		return "", fmt.Errorf("parse template: %w", err)
	}

	var buf bytes.Buffer
	data := struct {
		ActivationLink string
	}{
		ActivationLink: activationLink,
	}

	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("execute template: %w", err)
	}

	return buf.String(), nil
}
