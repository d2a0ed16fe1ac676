// Package mail delivers plain text email over SMTP.
package mail

import (
	"bytes"
	"context"
	"fmt"
	"mime"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"time"
)

// Message is an outgoing email.
type Message struct {
	To      string
	Subject string
	Body    string
}

// Sender delivers messages.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// SMTPSender sends through a relay without authentication, as used with
// local relays such as Mailpit.
type SMTPSender struct {
	addr string
	from string
	send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

// NewSMTPSender constructs an SMTPSender for host:port.
func NewSMTPSender(host string, port int, from string) *SMTPSender {
	return &SMTPSender{
		addr: net.JoinHostPort(host, strconv.Itoa(port)),
		from: from,
		send: smtp.SendMail,
	}
}

// Send delivers msg. Cancellation is only checked before dialing since
// net/smtp has no context support.
func (s *SMTPSender) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if strings.ContainsAny(msg.To, "\r\n") {
		return fmt.Errorf("mail: invalid recipient %q", msg.To)
	}
	if err := s.send(s.addr, nil, s.from, []string{msg.To}, s.compose(msg, time.Now())); err != nil {
		return fmt.Errorf("mail: send to %s: %w", msg.To, err)
	}
	return nil
}

func (s *SMTPSender) compose(msg Message, now time.Time) []byte {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "From: %s\r\n", s.from)
	fmt.Fprintf(&buf, "To: %s\r\n", msg.To)
	fmt.Fprintf(&buf, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", msg.Subject))
	fmt.Fprintf(&buf, "Date: %s\r\n", now.Format(time.RFC1123Z))
	buf.WriteString("MIME-Version: 1.0\r\n")
	buf.WriteString("Content-Type: text/plain; charset=utf-8\r\n")
	buf.WriteString("\r\n")
	buf.WriteString(strings.ReplaceAll(msg.Body, "\n", "\r\n"))
	return buf.Bytes()
}
