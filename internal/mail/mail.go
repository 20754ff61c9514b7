package mail

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"
)

type Message struct {
	To      string
	Subject string
	Text    string
}

// Mailer sends a message. The user service only depends on this, so tests
// swap in a recorder.
type Mailer interface {
	Send(ctx context.Context, m Message) error
}

type Config struct {
	Addr string // host:port
	User string
	Pass string
	From string
}

// SMTP is a plain-auth SMTP mailer.
type SMTP struct {
	c Config
}

func NewSMTP(c Config) *SMTP {
	return &SMTP{c: c}
}

func (s *SMTP) Send(_ context.Context, m Message) error {
	host := s.c.Addr
	if i := strings.IndexByte(host, ':'); i >= 0 {
		host = host[:i]
	}

	body := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n\r\n%s\r\n",
		s.c.From, m.To, m.Subject, m.Text)

	auth := smtp.PlainAuth("", s.c.User, s.c.Pass, host)
	if err := smtp.SendMail(s.c.Addr, auth, s.c.From, []string{m.To}, []byte(body)); err != nil {
		return fmt.Errorf("mail: send to %s: %w", m.To, err)
	}

	return nil
}
