package mailer

import (
	"context"
	"crypto/tls"
	"net"
	"net/smtp"
	"time"

	"github.com/cockroachdb/errors"
)

// DefaultPort is used when the server is given without one.
const DefaultPort = "25"

// Sender delivers messages.
type Sender interface {
	Send(ctx context.Context, msg *Message) error
}

// SMTPSender delivers messages to an SMTP relay without authentication,
// upgrading to TLS when the server offers STARTTLS.
type SMTPSender struct {
	Addr string

	// Timeout bounds the whole exchange when ctx has no deadline.
	Timeout time.Duration
}

// NewSMTPSender returns a sender for server, which may be "host" or
// "host:port".
func NewSMTPSender(server string) *SMTPSender {
	addr := server
	if _, _, err := net.SplitHostPort(server); err != nil {
		addr = net.JoinHostPort(server, DefaultPort)
	}
	return &SMTPSender{Addr: addr, Timeout: time.Minute}
}

// Send implements Sender.
func (s *SMTPSender) Send(ctx context.Context, msg *Message) error {
	rcpt := msg.Recipients()
	if len(rcpt) == 0 {
		return ErrNoRecipients
	}
	data, err := msg.Bytes()
	if err != nil {
		return err
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	c, err := s.dial(ctx)
	if err != nil {
		return err
	}
	defer c.Close()

	if err := c.Mail(msg.From.Address); err != nil {
		return errors.Wrapf(err, "sender %s rejected", msg.From.Address)
	}
	for _, addr := range rcpt {
		if err := c.Rcpt(addr); err != nil {
			return errors.Wrapf(err, "recipient %s rejected", addr)
		}
	}

	w, err := c.Data()
	if err != nil {
		return errors.Wrap(err, "starting message data")
	}
	if _, err := w.Write(data); err != nil {
		return errors.Wrap(err, "writing message data")
	}
	if err := w.Close(); err != nil {
		return errors.Wrap(err, "message rejected")
	}

	return c.Quit()
}

// Verify connects to the server and says hello without sending anything.
func (s *SMTPSender) Verify(ctx context.Context) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	c, err := s.dial(ctx)
	if err != nil {
		return err
	}
	defer c.Close()

	if err := c.Noop(); err != nil {
		return errors.Wrapf(err, "%s did not answer", s.Addr)
	}
	return c.Quit()
}

func (s *SMTPSender) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, ok := ctx.Deadline(); !ok && s.Timeout > 0 {
		return context.WithTimeout(ctx, s.Timeout)
	}
	return ctx, func() {}
}

// dial opens a client session, upgraded to TLS when offered.
func (s *SMTPSender) dial(ctx context.Context) (*smtp.Client, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", s.Addr)
	if err != nil {
		return nil, errors.Wrapf(err, "connecting to %s", s.Addr)
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	host, _, _ := net.SplitHostPort(s.Addr)
	c, err := smtp.NewClient(conn, host)
	if err != nil {
		_ = conn.Close()
		return nil, errors.Wrapf(err, "greeting from %s", s.Addr)
	}

	if ok, _ := c.Extension("STARTTLS"); ok {
		if err := c.StartTLS(&tls.Config{ServerName: host}); err != nil {
			_ = c.Close()
			return nil, errors.Wrap(err, "starting TLS")
		}
	}
	return c, nil
}
