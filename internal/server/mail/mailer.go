// Package mail sends certificates and verification codes over SMTP. Sending
// is detached from request handling through a bounded Dispatcher queue.
package mail

import (
	"context"
	"errors"
	"fmt"
	"io"

	"gopkg.in/gomail.v2"
)

// Email is one outbound message. Attachments are held in memory.
type Email struct {
	To          []string
	Subject     string
	Body        string
	Attachments []Attachment
}

type Attachment struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Sender delivers a single message.
type Sender interface {
	Send(ctx context.Context, email Email) error
}

type dialer interface {
	DialAndSend(m ...*gomail.Message) error
}

type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

func (c Config) validate() error {
	if c.Host == "" {
		return errors.New("missing SMTP host")
	}
	if c.Port == 0 {
		return errors.New("missing SMTP port")
	}
	if c.From == "" {
		return errors.New("missing SMTP sender address")
	}
	return nil
}

// Enabled reports whether enough settings are present to send mail.
func (c Config) Enabled() bool {
	return c.validate() == nil
}

type Mailer struct {
	from   string
	dialer dialer
}

func NewMailer(c Config) (*Mailer, error) {
	if err := c.validate(); err != nil {
		return nil, err
	}
	return &Mailer{
		from:   c.From,
		dialer: gomail.NewDialer(c.Host, c.Port, c.Username, c.Password),
	}, nil
}

// Send dials the SMTP server and delivers email. gomail has no context
// support, so ctx is only checked before dialing.
func (m *Mailer) Send(ctx context.Context, email Email) error {
	if len(email.To) == 0 {
		return fmt.Errorf("no recipients specified")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := gomail.NewMessage()
	m.setEmailMessage(msg, email)

	return m.dialer.DialAndSend(msg)
}

func (m *Mailer) setEmailMessage(msg *gomail.Message, email Email) {
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", email.To...)
	msg.SetHeader("Subject", email.Subject)
	msg.SetBody("text/plain", email.Body)

	for _, a := range email.Attachments {
		data := a.Data
		settings := []gomail.FileSetting{
			gomail.SetCopyFunc(func(w io.Writer) error {
				_, err := w.Write(data)
				return err
			}),
		}
		if a.ContentType != "" {
			settings = append(settings, gomail.SetHeader(map[string][]string{
				"Content-Type": {a.ContentType},
			}))
		}
		msg.Attach(a.Filename, settings...)
	}
}
