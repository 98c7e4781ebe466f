package notify

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	"github.com/aelpxy/dockup/pkg/models"
	"github.com/charmbracelet/log"
)

const altBoundary = "dockup-report-boundary"

// Mailer delivers reports through an SMTP relay. STARTTLS is used when the
// server offers it.
type Mailer struct {
	cfg    models.EmailConfig
	logger *log.Logger
	now    func() time.Time
}

func NewMailer(cfg models.EmailConfig, logger *log.Logger) *Mailer {
	return &Mailer{cfg: cfg, logger: logger, now: time.Now}
}

func (m *Mailer) Enabled() bool {
	return m.cfg.Enabled
}

func (m *Mailer) Validate() error {
	switch {
	case m.cfg.Host == "":
		return fmt.Errorf("email.host is not configured")
	case m.cfg.Port <= 0:
		return fmt.Errorf("email.port is not configured")
	case m.cfg.User == "":
		return fmt.Errorf("email.user is not configured")
	case m.cfg.Recipient == "":
		return fmt.Errorf("email.recipient is not configured")
	}
	return nil
}

// BuildMessage assembles a multipart/alternative message with a plain text
// and an HTML part.
func (m *Mailer) BuildMessage(report Report) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", m.cfg.User)
	fmt.Fprintf(&b, "To: %s\r\n", m.cfg.Recipient)
	fmt.Fprintf(&b, "Subject: %s\r\n", report.Subject)
	fmt.Fprintf(&b, "Date: %s\r\n", m.now().Format(time.RFC1123Z))
	b.WriteString("MIME-Version: 1.0\r\n")
	fmt.Fprintf(&b, "Content-Type: multipart/alternative; boundary=\"%s\"\r\n\r\n", altBoundary)

	fmt.Fprintf(&b, "--%s\r\n", altBoundary)
	b.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	b.WriteString("Content-Transfer-Encoding: 8bit\r\n\r\n")
	b.WriteString(report.Text)
	b.WriteString("\r\n\r\n")

	fmt.Fprintf(&b, "--%s\r\n", altBoundary)
	b.WriteString("Content-Type: text/html; charset=UTF-8\r\n")
	b.WriteString("Content-Transfer-Encoding: 8bit\r\n\r\n")
	b.WriteString(report.HTML)
	b.WriteString("\r\n\r\n")

	fmt.Fprintf(&b, "--%s--\r\n", altBoundary)
	return []byte(b.String())
}

// Send delivers the report. The context bounds the dial and the whole SMTP
// exchange.
func (m *Mailer) Send(ctx context.Context, report Report) error {
	if err := m.Validate(); err != nil {
		return err
	}

	addr := net.JoinHostPort(m.cfg.Host, strconv.Itoa(m.cfg.Port))
	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", addr, err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	client, err := smtp.NewClient(conn, m.cfg.Host)
	if err != nil {
		conn.Close()
		return fmt.Errorf("failed to start smtp session: %w", err)
	}
	defer client.Close()

	if ok, _ := client.Extension("STARTTLS"); ok {
		if err := client.StartTLS(&tls.Config{ServerName: m.cfg.Host, MinVersion: tls.VersionTLS12}); err != nil {
			return fmt.Errorf("starttls failed: %w", err)
		}
	}

	if m.cfg.Password != "" {
		if ok, _ := client.Extension("AUTH"); ok {
			auth := smtp.PlainAuth("", m.cfg.User, m.cfg.Password, m.cfg.Host)
			if err := client.Auth(auth); err != nil {
				return fmt.Errorf("email authentication failed: %w", err)
			}
		}
	}

	if err := client.Mail(m.cfg.User); err != nil {
		return fmt.Errorf("sender rejected: %w", err)
	}
	if err := client.Rcpt(m.cfg.Recipient); err != nil {
		return fmt.Errorf("recipient rejected: %w", err)
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("failed to open message body: %w", err)
	}
	if _, err := w.Write(m.BuildMessage(report)); err != nil {
		w.Close()
		return fmt.Errorf("failed to write message: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}

	m.logger.Info("report sent", "recipient", m.cfg.Recipient)
	return client.Quit()
}

// Notify renders the run summary and sends it when email is enabled.
// Delivery failures are logged and returned; callers treat them as
// non-fatal.
func (m *Mailer) Notify(ctx context.Context, summary models.RunSummary) error {
	if !m.Enabled() {
		m.logger.Debug("email notifications disabled")
		return nil
	}

	report, err := BuildReport(summary)
	if err != nil {
		m.logger.Error("failed to build report", "err", err)
		return err
	}
	if err := m.Send(ctx, report); err != nil {
		m.logger.Error("failed to send report", "recipient", m.cfg.Recipient, "err", err)
		return err
	}
	return nil
}
