package notify

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"time"
)

// sendFunc matches smtp.SendMail.
type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// MailerOpts holds SMTP settings.
type MailerOpts struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	// For testing: replaces smtp.SendMail.
	Send sendFunc
}

// Mailer sends plain-text email over SMTP.
type Mailer struct {
	opts MailerOpts
	now  func() time.Time
}

// NewMailer creates a Mailer.
func NewMailer(opts MailerOpts) (*Mailer, error) {
	if opts.Host == "" {
		return nil, errors.New("smtp: host is required")
	}
	if opts.From == "" {
		return nil, errors.New("smtp: from address is required")
	}
	if opts.Port == 0 {
		opts.Port = 587
	}
	if opts.Send == nil {
		opts.Send = smtp.SendMail
	}
	return &Mailer{opts: opts, now: time.Now}, nil
}

// Send delivers msg to the given recipients.
func (m *Mailer) Send(ctx context.Context, to []string, msg Message) error {
	if len(to) == 0 {
		return errors.New("smtp: no recipients")
	}
	for _, addr := range to {
		if strings.ContainsAny(addr, "\r\n") {
			return fmt.Errorf("smtp: invalid recipient %q", addr)
		}
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	var auth smtp.Auth
	if m.opts.Username != "" {
		auth = smtp.PlainAuth("", m.opts.Username, m.opts.Password, m.opts.Host)
	}
	addr := net.JoinHostPort(m.opts.Host, strconv.Itoa(m.opts.Port))
	if err := m.opts.Send(addr, auth, m.opts.From, to, m.render(to, msg)); err != nil {
		return fmt.Errorf("smtp: send to %s: %w", strings.Join(to, ", "), err)
	}
	return nil
}

func (m *Mailer) render(to []string, msg Message) []byte {
	subject := strings.NewReplacer("\r", " ", "\n", " ").Replace(msg.Subject)
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", m.opts.From)
	fmt.Fprintf(&b, "To: %s\r\n", strings.Join(to, ", "))
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	fmt.Fprintf(&b, "Date: %s\r\n", m.now().Format(time.RFC1123Z))
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=utf-8\r\n\r\n")
	b.WriteString(strings.ReplaceAll(msg.Body, "\n", "\r\n"))
	return []byte(b.String())
}

// Recipient adapts a Mailer with fixed recipients to the Notifier interface.
type Recipient struct {
	Mailer *Mailer
	To     []string
}

func (r *Recipient) Name() string { return "email" }

// Notify implements Notifier.
func (r *Recipient) Notify(ctx context.Context, msg Message) error {
	return r.Mailer.Send(ctx, r.To, msg)
}
