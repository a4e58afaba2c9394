package utils

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"log/slog"

	"gopkg.in/gomail.v2"
)

//go:embed templates/*.html
var templateFS embed.FS

var ErrMailNotConfigured = errors.New("smtp is not configured")

type MailConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	From     string
}

// Mailer render template HTML rồi gửi qua SMTP.
type Mailer struct {
	cfg       MailConfig
	templates *template.Template
	logger    *slog.Logger
	dialer    *gomail.Dialer
}

func NewMailer(cfg MailConfig, logger *slog.Logger) (*Mailer, error) {
	tpl, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse email templates: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	m := &Mailer{cfg: cfg, templates: tpl, logger: logger}
	if cfg.Host != "" {
		m.dialer = gomail.NewDialer(cfg.Host, cfg.Port, cfg.User, cfg.Password)
	}
	return m, nil
}

func (m *Mailer) Render(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := m.templates.ExecuteTemplate(&buf, name+".html", data); err != nil {
		return "", fmt.Errorf("render template %s: %w", name, err)
	}
	return buf.String(), nil
}

func (m *Mailer) Send(ctx context.Context, to, subject, body string) error {
	if m.dialer == nil || m.cfg.From == "" {
		return ErrMailNotConfigured
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", m.cfg.From)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/html", body)

	if err := m.dialer.DialAndSend(msg); err != nil {
		return fmt.Errorf("send email: %w", err)
	}
	m.logger.Info("email sent", slog.String("to", to), slog.String("subject", subject))
	return nil
}

func (m *Mailer) SendTemplate(ctx context.Context, to, subject, name string, data any) error {
	body, err := m.Render(name, data)
	if err != nil {
		return err
	}
	return m.Send(ctx, to, subject, body)
}
