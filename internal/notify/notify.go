package notify

import (
	"fmt"
	"net/smtp"

	"github.com/cardvault/card-service/internal/config"
	"github.com/cardvault/card-service/internal/models"
	"github.com/jordan-wright/email"
	"github.com/sirupsen/logrus"
)

// Sender sends card lifecycle notices via SMTP. Like audit writes, notices
// are best-effort: a delivery failure is logged and never fails the sweep.
type Sender struct {
	cfg *config.Config
	log *logrus.Logger
}

// NewSender creates a new notice sender
func NewSender(cfg *config.Config, log *logrus.Logger) *Sender {
	return &Sender{cfg: cfg, log: log}
}

// Enabled reports whether SMTP delivery is configured.
func (s *Sender) Enabled() bool {
	return s.cfg.SMTPHost != ""
}

// SendExpiryNotice informs a card holder that their card has expired.
func (s *Sender) SendExpiryNotice(user *models.User, card *models.Card) error {
	e := email.NewEmail()
	e.From = s.cfg.SenderEmail
	e.To = []string{user.Email}
	e.Subject = "Your card has expired"

	body := fmt.Sprintf(
		"Dear %s,\n\n"+
			"Your card %s expired on %s and can no longer be used for transfers.\n"+
			"Any remaining balance stays on the card; please contact support to move it.\n"+
			"\nBest regards,\nCard Service",
		user.Username, card.NumberMasked, card.ExpiryDate.Format("2006-01-02"),
	)
	e.Text = []byte(body)

	addr := fmt.Sprintf("%s:%s", s.cfg.SMTPHost, s.cfg.SMTPPort)
	auth := smtp.PlainAuth("", s.cfg.SMTPUser, s.cfg.SMTPPassword, s.cfg.SMTPHost)
	if err := e.Send(addr, auth); err != nil {
		s.log.Errorf("Failed to send expiry notice to %s: %v", user.Email, err)
		return fmt.Errorf("failed to send expiry notice: %w", err)
	}

	s.log.Infof("Expiry notice sent to %s for card %d", user.Email, card.ID)
	return nil
}
