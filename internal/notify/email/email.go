// Package email delivers alerts over SMTP.
package email

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/pkg/errors"
	models "github.com/scmlabs/modsentry/internal/models/moderation"
	"github.com/scmlabs/modsentry/internal/notify"
	"gopkg.in/gomail.v2"
)

// Ensure Sender implements the notify.Sender interface.
var _ notify.Sender = (*Sender)(nil)

// Config holds the SMTP settings passed in from app config.
type Config struct {
	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	FromEmail    string
}

// Sender delivers alert emails through an SMTP relay.
type Sender struct {
	config Config
}

// New creates a new email sender.
func New(config Config) (*Sender, error) {
	if config.SMTPHost == "" {
		return nil, errors.New("SMTP host is required")
	}
	if config.FromEmail == "" {
		return nil, errors.New("sender email is required")
	}
	return &Sender{config: config}, nil
}

func (s *Sender) Channel() models.Channel { return models.ChannelEmail }

// Send dials the SMTP relay and delivers the alert with an HTML body and a
// plain-text fallback.
func (s *Sender) Send(ctx context.Context, msg notify.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	htmlBody := fmt.Sprintf(`
<!DOCTYPE html>
<html>
    <body>
        <h2>🚨 %s</h2>
        <p>%s</p>
        <hr>
        <p><small>This is an automated message from the ModSentry content moderation system. &copy; %d</small></p>
    </body>
</html>
`, msg.Subject, strings.ReplaceAll(msg.Body, "\n", "<br>"), time.Now().Year())

	m := gomail.NewMessage()
	m.SetHeader("From", s.config.FromEmail)
	m.SetHeader("To", msg.Recipient)
	m.SetHeader("Subject", msg.Subject)
	m.SetBody("text/plain", msg.Body)
	m.AddAlternative("text/html", htmlBody)

	dialer := gomail.NewDialer(s.config.SMTPHost, s.config.SMTPPort, s.config.SMTPUsername, s.config.SMTPPassword)
	if err := dialer.DialAndSend(m); err != nil {
		return errors.Wrap(err, "error sending alert email")
	}
	return nil
}
