package notify

import (
	"context"
	"fmt"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	"github.com/vinayprograms/slideagent/errors"
)

// EmailConfig configures the SMTP channel. The defaults target Gmail with an
// app password.
type EmailConfig struct {
	Server    string
	Port      int
	Sender    string
	Password  string
	Recipient string
}

// Enabled reports whether enough is configured to send mail.
func (c EmailConfig) Enabled() bool {
	return c.Sender != "" && c.Password != "" && c.Recipient != ""
}

// SendMailFunc matches smtp.SendMail.
type SendMailFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// Email sends reports as plain-text mail.
type Email struct {
	cfg  EmailConfig
	send SendMailFunc
}

// EmailOption configures an Email channel.
type EmailOption func(*Email)

// WithSendMail replaces the SMTP transport.
func WithSendMail(fn SendMailFunc) EmailOption {
	return func(e *Email) {
		e.send = fn
	}
}

// NewEmail creates an SMTP channel.
func NewEmail(cfg EmailConfig, opts ...EmailOption) (*Email, error) {
	if !cfg.Enabled() {
		return nil, errors.New(errors.ErrCodeInvalidInput, "email needs sender, password and recipient")
	}
	if cfg.Server == "" {
		cfg.Server = "smtp.gmail.com"
	}
	if cfg.Port == 0 {
		cfg.Port = 587
	}
	e := &Email{cfg: cfg, send: smtp.SendMail}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Addr returns host:port of the SMTP server.
func (e *Email) Addr() string {
	return net.JoinHostPort(e.cfg.Server, strconv.Itoa(e.cfg.Port))
}

// Send implements Sender. smtp.SendMail has no context, so cancellation is
// only checked before dialing and the send runs to completion.
func (e *Email) Send(ctx context.Context, ev Event) error {
	if err := ctx.Err(); err != nil {
		return errors.Wrap(err, "email canceled")
	}

	auth := smtp.PlainAuth("", e.cfg.Sender, e.cfg.Password, e.cfg.Server)
	msg := e.compose(ev)
	if err := e.send(e.Addr(), auth, e.cfg.Sender, []string{e.cfg.Recipient}, msg); err != nil {
		return fmt.Errorf("send mail via %s: %w", e.Addr(), err)
	}
	return nil
}

func (e *Email) compose(ev Event) []byte {
	ts := ev.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}

	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", e.cfg.Sender)
	fmt.Fprintf(&b, "To: %s\r\n", e.cfg.Recipient)
	fmt.Fprintf(&b, "Subject: %s\r\n", Subject(ev))
	fmt.Fprintf(&b, "Date: %s\r\n", ts.Format(time.RFC1123Z))
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=\"utf-8\"\r\n")
	b.WriteString("\r\n")
	b.WriteString(strings.ReplaceAll(Body(ev), "\n", "\r\n"))
	return []byte(b.String())
}
