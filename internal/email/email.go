// Package email sends transactional mail over SMTP.
package email

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"mime"
	"net"
	"net/mail"
	"net/smtp"
	"strconv"
	"time"

	"github.com/abdul-hamid-achik/learn.cheap/internal/logger"
)

type Config struct {
	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	FromAddress  string
	FromName     string
	BaseURL      string
}

type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

type Service struct {
	cfg  Config
	from mail.Address
	send sendFunc
	now  func() time.Time
}

func NewService(cfg Config) *Service {
	return &Service{
		cfg:  cfg,
		from: mail.Address{Name: cfg.FromName, Address: cfg.FromAddress},
		send: smtp.SendMail,
		now:  time.Now,
	}
}

type EmailData struct {
	RecipientName string
	BaseURL       string
	Year          int
}

type CertificateEmailData struct {
	EmailData
	CourseName        string
	CertificateNumber string
	CertificateURL    string
	IssuedAt          time.Time
}

// Send delivers one HTML message. Cancellation is only checked before dialing.
func (s *Service) Send(ctx context.Context, to, subject, htmlBody string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	log := logger.FromContext(ctx).With("to", to, "subject", subject)

	var auth smtp.Auth
	if s.cfg.SMTPUsername != "" && s.cfg.SMTPPassword != "" {
		auth = smtp.PlainAuth("", s.cfg.SMTPUsername, s.cfg.SMTPPassword, s.cfg.SMTPHost)
	}

	addr := net.JoinHostPort(s.cfg.SMTPHost, strconv.Itoa(s.cfg.SMTPPort))
	if err := s.send(addr, auth, s.cfg.FromAddress, []string{to}, s.message(to, subject, htmlBody)); err != nil {
		log.Error("email send failed", "error", err)
		return fmt.Errorf("send mail to %s: %w", to, err)
	}

	log.Info("email sent")
	return nil
}

func (s *Service) message(to, subject, body string) []byte {
	var b bytes.Buffer
	header := func(k, v string) { fmt.Fprintf(&b, "%s: %s\r\n", k, v) }

	header("From", s.from.String())
	header("To", to)
	header("Subject", mime.QEncoding.Encode("utf-8", subject))
	header("Date", s.now().Format(time.RFC1123Z))
	header("MIME-Version", "1.0")
	header("Content-Type", "text/html; charset=UTF-8")
	b.WriteString("\r\n")
	b.WriteString(body)
	return b.Bytes()
}

func (s *Service) SendCertificateIssued(ctx context.Context, to, name string, data CertificateEmailData) error {
	year := data.IssuedAt.Year()
	if data.IssuedAt.IsZero() {
		year = s.now().Year()
	}
	data.EmailData = EmailData{RecipientName: name, BaseURL: s.cfg.BaseURL, Year: year}

	var body bytes.Buffer
	if err := certificateTemplate.Execute(&body, data); err != nil {
		return fmt.Errorf("render certificate email: %w", err)
	}
	return s.Send(ctx, to, "Your certificate for "+data.CourseName, body.String())
}

var certificateTemplate = template.Must(template.New("certificate").Parse(`<!DOCTYPE html>
<html>
<head><meta charset="UTF-8"></head>
<body style="margin:0;padding:32px 16px;background:#2E3440;font-family:-apple-system,'Segoe UI',Roboto,Arial,sans-serif;">
  <div style="max-width:560px;margin:0 auto;background:#3B4252;border-radius:8px;padding:32px;">
    <p style="margin:0 0 24px;color:#88C0D0;font-size:22px;font-weight:600;">learn.cheap</p>
    <p style="margin:0 0 16px;color:#ECEFF4;font-size:18px;">Congratulations, you finished {{.CourseName}}</p>
    <p style="margin:0 0 16px;color:#D8DEE9;">Hi {{.RecipientName}},</p>
    <p style="margin:0 0 24px;color:#D8DEE9;">Your certificate <strong>{{.CertificateNumber}}</strong> has been issued.</p>
    {{- if .CertificateURL}}
    <a href="{{.CertificateURL}}" style="display:inline-block;padding:12px 24px;background:#A3BE8C;color:#2E3440;border-radius:4px;text-decoration:none;font-weight:600;">View Certificate</a>
    {{- end}}
    <p style="margin:32px 0 0;color:#4C566A;font-size:12px;">&copy; {{.Year}} learn.cheap</p>
  </div>
</body>
</html>
`))
