package service

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"mime"
	"mime/quotedprintable"
	"net"
	"net/mail"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/itsmeasadali/follow-up-for-review-shopify-app/internal/config"
	edomain "github.com/itsmeasadali/follow-up-for-review-shopify-app/internal/email/domain"
	sdomain "github.com/itsmeasadali/follow-up-for-review-shopify-app/internal/settings/domain"
)

// Ensure SMTP implements domain.Sender
var _ edomain.Sender = (*SMTP)(nil)

type SMTP struct {
	cfg      config.Config
	settings sdomain.Service
	dialer   *net.Dialer
}

func NewSMTP(settings sdomain.Service, cfg config.Config) *SMTP {
	return &SMTP{settings: settings, cfg: cfg, dialer: &net.Dialer{}}
}

func (s *SMTP) Send(ctx context.Context, shopID string, msg edomain.Message) (string, error) {
	host, _ := s.settings.GetString(ctx, sdomain.KeySMTPHost, &shopID, s.cfg.SMTPHost)
	from, _ := s.settings.GetString(ctx, sdomain.KeySMTPFrom, &shopID, s.cfg.SMTPFrom)
	username, _ := s.settings.GetString(ctx, sdomain.KeySMTPUsername, &shopID, s.cfg.SMTPUsername)
	password, _ := s.settings.GetString(ctx, sdomain.KeySMTPPassword, &shopID, s.cfg.SMTPPassword)
	port, portErr := s.settings.GetInt(ctx, sdomain.KeySMTPPort, &shopID, s.cfg.SMTPPort)

	fail := func(err error) (string, error) { return "", &edomain.DeliveryError{Provider: "smtp", Err: err} }
	if errors.Is(portErr, sdomain.ErrInvalidSetting) {
		return fail(portErr)
	}
	sender, err := mail.ParseAddress(from)
	if err != nil {
		return fail(fmt.Errorf("invalid from address %q: %w", from, err))
	}
	if _, err := mail.ParseAddress(msg.To); err != nil {
		return fail(fmt.Errorf("invalid recipient %q: %w", msg.To, err))
	}

	id := newMessageID(sender.Address)
	raw, err := buildMessage(from, msg, id, time.Now())
	if err != nil {
		return fail(err)
	}

	if _, ok := ctx.Deadline(); !ok && s.cfg.ReviewCallTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.ReviewCallTimeout)
		defer cancel()
	}
	addr := net.JoinHostPort(host, strconv.Itoa(port))
	if err := s.deliver(ctx, addr, host, username, password, sender.Address, msg.To, raw); err != nil {
		return fail(err)
	}
	return id, nil
}

// deliver is smtp.SendMail with a context-bound dial and connection deadline.
func (s *SMTP) deliver(ctx context.Context, addr, host, username, password, from, to string, raw []byte) error {
	conn, err := s.dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return err
	}
	if dl, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(dl)
	}
	c, err := smtp.NewClient(conn, host)
	if err != nil {
		_ = conn.Close()
		return err
	}
	defer func() { _ = c.Close() }()

	if ok, _ := c.Extension("STARTTLS"); ok {
		if err := c.StartTLS(&tls.Config{ServerName: host, MinVersion: tls.VersionTLS12}); err != nil {
			return err
		}
	}
	if username != "" {
		if ok, _ := c.Extension("AUTH"); !ok {
			return errors.New("smtp: server doesn't support AUTH")
		}
		if err := c.Auth(smtp.PlainAuth("", username, password, host)); err != nil {
			return err
		}
	}
	if err := c.Mail(from); err != nil {
		return err
	}
	if err := c.Rcpt(to); err != nil {
		return err
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
	// The message is queued once DATA is accepted. A failed QUIT must not
	// turn it into a retryable delivery error.
	_ = c.Quit()
	return nil
}

func newMessageID(from string) string {
	domain := "localhost"
	if at := strings.LastIndex(from, "@"); at >= 0 && at < len(from)-1 {
		domain = from[at+1:]
	}
	return "<" + uuid.NewString() + "@" + domain + ">"
}

func buildMessage(from string, msg edomain.Message, messageID string, now time.Time) ([]byte, error) {
	var b bytes.Buffer
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", msg.To)
	fmt.Fprintf(&b, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", msg.Subject))
	fmt.Fprintf(&b, "Date: %s\r\n", now.Format(time.RFC1123Z))
	fmt.Fprintf(&b, "Message-ID: %s\r\n", messageID)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=utf-8\r\n")
	b.WriteString("Content-Transfer-Encoding: quoted-printable\r\n\r\n")
	qp := quotedprintable.NewWriter(&b)
	if _, err := qp.Write([]byte(msg.HTML)); err != nil {
		return nil, err
	}
	if err := qp.Close(); err != nil {
		return nil, err
	}
	b.WriteString("\r\n")
	return b.Bytes(), nil
}
