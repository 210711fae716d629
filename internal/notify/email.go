package notify

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/mail"
	"net/smtp"
	"text/template"
	"time"

	"essenza-be/internal/logger"

	"github.com/jordan-wright/email"
	"go.uber.org/zap"
)

var confirmationBody = template.Must(template.New("confirmation").Parse(`Hello!

Thank you for shopping at Essenza.
Your order has been confirmed and is being prepared.

Order details:
Tracking code: {{.TrackingCode}}
Total: {{.Total}} €
Shipping address: {{.Address}}

You can follow your order here:
{{.TrackingURL}}

Thank you for trusting us.
`))

type SMTPConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	From     string
}

type sendFunc func(ctx context.Context, e *email.Email) error

type EmailNotifier struct {
	from string
	send sendFunc
}

func NewEmailNotifier(cfg SMTPConfig) *EmailNotifier {
	addr := net.JoinHostPort(cfg.Host, cfg.Port)
	var auth smtp.Auth
	if cfg.User != "" {
		auth = smtp.PlainAuth("", cfg.User, cfg.Password, cfg.Host)
	}

	return &EmailNotifier{
		from: cfg.From,
		send: func(ctx context.Context, e *email.Email) error {
			return sendSMTP(ctx, addr, cfg.Host, auth, e)
		},
	}
}

// sendSMTP delivers e like (*email.Email).Send, but the dial and every SMTP
// exchange are bounded by ctx.
func sendSMTP(ctx context.Context, addr, host string, auth smtp.Auth, e *email.Email) error {
	from, err := mail.ParseAddress(e.From)
	if err != nil {
		return fmt.Errorf("parse sender: %w", err)
	}
	raw, err := e.Bytes()
	if err != nil {
		return fmt.Errorf("build message: %w", err)
	}

	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return err
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}
	stop := context.AfterFunc(ctx, func() { _ = conn.SetDeadline(time.Now()) })
	defer stop()

	c, err := smtp.NewClient(conn, host)
	if err != nil {
		conn.Close()
		return err
	}
	defer c.Close()

	if ok, _ := c.Extension("STARTTLS"); ok {
		if err := c.StartTLS(&tls.Config{ServerName: host}); err != nil {
			return err
		}
	}
	if auth != nil {
		if ok, _ := c.Extension("AUTH"); ok {
			if err := c.Auth(auth); err != nil {
				return err
			}
		}
	}

	if err := c.Mail(from.Address); err != nil {
		return err
	}
	for _, to := range append(append(append([]string{}, e.To...), e.Cc...), e.Bcc...) {
		rcpt, err := mail.ParseAddress(to)
		if err != nil {
			return fmt.Errorf("parse recipient: %w", err)
		}
		if err := c.Rcpt(rcpt.Address); err != nil {
			return err
		}
	}

	w, err := c.Data()
	if err != nil {
		return err
	}
	if _, err := w.Write(raw); err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	return c.Quit()
}

func (n *EmailNotifier) Send(ctx context.Context, msg Message) error {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "notify"),
		zap.String("method", "EmailNotifier.Send"),
		zap.String("tracking_code", msg.TrackingCode),
	)

	if msg.Email == "" {
		log.Warn("order has no email, skipping confirmation")
		return nil
	}

	var body bytes.Buffer
	if err := confirmationBody.Execute(&body, msg); err != nil {
		return fmt.Errorf("render confirmation: %w", err)
	}

	e := email.NewEmail()
	e.From = n.from
	e.To = []string{msg.Email}
	e.Subject = fmt.Sprintf("Order confirmation #%s - Essenza", msg.TrackingCode)
	e.Text = body.Bytes()

	if err := n.send(ctx, e); err != nil {
		log.Error("failed to send confirmation email", zap.Error(err))
		return fmt.Errorf("send confirmation email: %w", err)
	}

	log.Info("confirmation email sent")
	return nil
}
