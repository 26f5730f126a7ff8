package mail

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"mime"
	"mime/quotedprintable"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DefaultTimeout applies to connect, greeting and socket operations.
const DefaultTimeout = 15 * time.Second

// Security selects how the SMTP connection is encrypted.
type Security string

const (
	SecurityImplicit Security = "implicit"
	SecurityStartTLS Security = "starttls"
)

// Message is an outbound HTML email.
type Message struct {
	From    string
	To      string
	Subject string
	HTML    string
}

// Transport delivers a message and returns its Message-ID.
type Transport interface {
	Send(ctx context.Context, msg Message) (string, error)
}

// Endpoint is one SMTP submission configuration.
type Endpoint struct {
	Name     string
	Host     string
	Port     int
	Security Security
	Username string
	Password string
	Timeout  time.Duration
}

func (e Endpoint) Addr() string {
	return net.JoinHostPort(e.Host, strconv.Itoa(e.Port))
}

func (e Endpoint) String() string {
	if e.Name != "" {
		return e.Name
	}
	return e.Addr()
}

// SMTPTransport sends through a single endpoint, one connection per message.
type SMTPTransport struct {
	endpoint Endpoint
}

func NewSMTPTransport(ep Endpoint) *SMTPTransport {
	return &SMTPTransport{endpoint: ep}
}

// DialSMTP is the default Dialer.
func DialSMTP(ep Endpoint) Transport {
	return NewSMTPTransport(ep)
}

func (t *SMTPTransport) Send(ctx context.Context, msg Message) (string, error) {
	ep := t.endpoint
	name := ep.String()

	conn, err := t.dial(ctx)
	if err != nil {
		return "", classify(name, fmt.Errorf("dial %s: %w", ep.Addr(), err))
	}
	defer conn.Close()

	timeout := ep.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	deadline := time.Now().Add(timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := conn.SetDeadline(deadline); err != nil {
		return "", classify(name, err)
	}

	c, err := smtp.NewClient(conn, ep.Host)
	if err != nil {
		return "", classify(name, fmt.Errorf("greeting: %w", err))
	}
	defer c.Close()

	if ep.Security == SecurityStartTLS {
		if ok, _ := c.Extension("STARTTLS"); !ok {
			return "", &TransportError{Code: CodeSocket, Endpoint: name, Err: fmt.Errorf("server does not offer STARTTLS")}
		}
		if err := c.StartTLS(&tls.Config{ServerName: ep.Host}); err != nil {
			return "", classify(name, fmt.Errorf("starttls: %w", err))
		}
	}

	if ep.Username != "" {
		if err := c.Auth(smtp.PlainAuth("", ep.Username, ep.Password, ep.Host)); err != nil {
			return "", &TransportError{Code: CodeAuth, Endpoint: name, Err: err}
		}
	}

	messageID := newMessageID(msg.From, ep.Host)
	body, err := buildMessage(msg, messageID, time.Now())
	if err != nil {
		return "", &TransportError{Code: CodeUnknown, Endpoint: name, Err: err}
	}

	if err := c.Mail(addressOnly(msg.From)); err != nil {
		return "", classify(name, fmt.Errorf("mail from: %w", err))
	}
	if err := c.Rcpt(addressOnly(msg.To)); err != nil {
		return "", classify(name, fmt.Errorf("rcpt to: %w", err))
	}
	w, err := c.Data()
	if err != nil {
		return "", classify(name, fmt.Errorf("data: %w", err))
	}
	if _, err := w.Write(body); err != nil {
		return "", classify(name, fmt.Errorf("write body: %w", err))
	}
	if err := w.Close(); err != nil {
		return "", classify(name, fmt.Errorf("close body: %w", err))
	}
	// The message is accepted once DATA completes; a failed QUIT does not undo it.
	_ = c.Quit()

	return messageID, nil
}

func (t *SMTPTransport) dial(ctx context.Context) (net.Conn, error) {
	ep := t.endpoint
	timeout := ep.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	netDialer := &net.Dialer{Timeout: timeout}
	if ep.Security == SecurityImplicit {
		d := &tls.Dialer{NetDialer: netDialer, Config: &tls.Config{ServerName: ep.Host}}
		return d.DialContext(ctx, "tcp", ep.Addr())
	}
	return netDialer.DialContext(ctx, "tcp", ep.Addr())
}

func newMessageID(from, host string) string {
	domain := host
	if at := strings.LastIndex(addressOnly(from), "@"); at >= 0 {
		domain = addressOnly(from)[at+1:]
	}
	return fmt.Sprintf("<%s@%s>", uuid.NewString(), domain)
}

// addressOnly strips a display name: "Day Plan <a@b>" -> "a@b".
func addressOnly(addr string) string {
	if i := strings.LastIndex(addr, "<"); i >= 0 {
		if j := strings.LastIndex(addr, ">"); j > i {
			return addr[i+1 : j]
		}
	}
	return strings.TrimSpace(addr)
}

func buildMessage(msg Message, messageID string, now time.Time) ([]byte, error) {
	var buf bytes.Buffer
	headers := [][2]string{
		{"From", msg.From},
		{"To", msg.To},
		{"Subject", mime.QEncoding.Encode("utf-8", msg.Subject)},
		{"Date", now.Format(time.RFC1123Z)},
		{"Message-ID", messageID},
		{"MIME-Version", "1.0"},
		{"Content-Type", `text/html; charset="UTF-8"`},
		{"Content-Transfer-Encoding", "quoted-printable"},
	}
	for _, h := range headers {
		fmt.Fprintf(&buf, "%s: %s\r\n", h[0], h[1])
	}
	buf.WriteString("\r\n")

	qp := quotedprintable.NewWriter(&buf)
	if _, err := qp.Write([]byte(msg.HTML)); err != nil {
		return nil, fmt.Errorf("encode body: %w", err)
	}
	if err := qp.Close(); err != nil {
		return nil, fmt.Errorf("encode body: %w", err)
	}
	return buf.Bytes(), nil
}
