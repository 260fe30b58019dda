package notify

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"time"

	"github.com/wneessen/go-mail"
)

const emailSubject = "Your OTP for Signup"

var emailTemplate = template.Must(template.New("otp").Parse(`<html>
  <body style="font-family: Arial, sans-serif; background-color: #f2f2f2; padding: 20px;">
    <div style="max-width: 600px; margin: 0 auto; background: #ffffff; padding: 20px; border: 1px solid #dddddd;">
      <h2 style="background: #007BFF; color: #ffffff; padding: 10px; text-align: center;">{{.Heading}}</h2>
      <p>Hello,</p>
      <p>Your OTP for signup is: <strong>{{.Code}}</strong></p>
      <p>Please use this OTP to complete your registration.</p>
      <p style="text-align: center; font-size: 12px; color: #888888;">&copy; {{.Year}} Raftaar</p>
    </div>
  </body>
</html>`))

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// SMTPSender mails codes through an SMTP relay.
type SMTPSender struct {
	client *mail.Client
	from   string
}

func NewSMTPSender(cfg SMTPConfig) (*SMTPSender, error) {
	opts := []mail.Option{
		mail.WithPort(cfg.Port),
		mail.WithTLSPortPolicy(mail.TLSOpportunistic),
	}
	if cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.Username),
			mail.WithPassword(cfg.Password),
		)
	}

	client, err := mail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create smtp client: %w", err)
	}
	return &SMTPSender{client: client, from: cfg.From}, nil
}

func (s *SMTPSender) SendEmailCode(ctx context.Context, address, code string) error {
	body, err := renderEmail(code)
	if err != nil {
		return err
	}

	msg := mail.NewMsg()
	if err := msg.From(s.from); err != nil {
		return fmt.Errorf("invalid sender address: %w", err)
	}
	if err := msg.To(address); err != nil {
		return fmt.Errorf("invalid recipient address: %w", err)
	}
	msg.Subject(emailSubject)
	msg.SetBodyString(mail.TypeTextHTML, body)

	if err := s.client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}

func renderEmail(code string) (string, error) {
	var buf bytes.Buffer
	err := emailTemplate.Execute(&buf, struct {
		Heading string
		Code    string
		Year    int
	}{Heading: emailSubject, Code: code, Year: time.Now().Year()})
	if err != nil {
		return "", fmt.Errorf("failed to render email: %w", err)
	}
	return buf.String(), nil
}
