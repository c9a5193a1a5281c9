package services

import (
	"bytes"
	"context"
	"fmt"
	"html/template"

	"github.com/triggah61/acent-messenger-backend/internal/config"
	"github.com/triggah61/acent-messenger-backend/pkg/logger"
	"gopkg.in/gomail.v2"
)

type Mailer interface {
	Send(ctx context.Context, to, subject, htmlBody string) error
}

// SMTPMailer delivers mail through an SMTP relay.
type SMTPMailer struct {
	dialer *gomail.Dialer
	from   string
}

// NewMailer returns an SMTP mailer when SMTP_HOST is set and a log-only
// mailer otherwise.
func NewMailer(cfg *config.Config) Mailer {
	if cfg.SMTPHost == "" {
		return LogMailer{}
	}
	from := cfg.SMTPFrom
	if from == "" {
		from = cfg.SMTPUsername
	}
	return &SMTPMailer{
		dialer: gomail.NewDialer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword),
		from:   from,
	}
}

func (m *SMTPMailer) Send(ctx context.Context, to, subject, htmlBody string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/html", htmlBody)
	return m.dialer.DialAndSend(msg)
}

type LogMailer struct{}

func (LogMailer) Send(_ context.Context, to, subject, _ string) error {
	logger.Info().Str("to", to).Str("subject", subject).Msg("SMTP not configured, email logged")
	return nil
}

const layout = `<!doctype html><html><body style="font-family:sans-serif">
<h2>{{.AppName}}</h2>
<p>Hi {{.Name}},</p>
{{template "content" .}}
<p style="color:#888;font-size:12px">If this was not you, contact support immediately.</p>
</body></html>`

var mailTemplates = map[string]string{
	"otp":              `{{define "content"}}<p>Your verification code is <strong>{{.Code}}</strong>. It expires in {{.TTL}}.</p>{{end}}`,
	"password_changed": `{{define "content"}}<p>The password of your account was changed on {{.When}}.</p>{{end}}`,
	"2fa_changed":      `{{define "content"}}<p>Two-factor authentication was {{if .Enabled}}enabled{{else}}disabled{{end}} on your account on {{.When}}.</p>{{end}}`,
}

// RenderMail renders one of the built-in HTML mail templates.
func RenderMail(name string, data map[string]interface{}) (string, error) {
	content, ok := mailTemplates[name]
	if !ok {
		return "", fmt.Errorf("unknown mail template %q", name)
	}
	tmpl, err := template.New("layout").Parse(layout)
	if err != nil {
		return "", err
	}
	if _, err := tmpl.Parse(content); err != nil {
		return "", err
	}
	if _, ok := data["AppName"]; !ok {
		data["AppName"] = config.AppConfig.AppName
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
