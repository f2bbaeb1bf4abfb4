// Package notifier sends guest facing booking emails over SMTP.
package notifier

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"html/template"

	"github.com/sirupsen/logrus"
	"github.com/wneessen/go-mail"

	"github.com/iliyamo/hotel-booking/internal/config"
	"github.com/iliyamo/hotel-booking/internal/queue"
)

// Mailer renders and sends booking confirmation emails.
type Mailer struct {
	cfg  config.MailConfig
	log  logrus.FieldLogger
	send func(ctx context.Context, msg *mail.Msg) error
}

// NewMailer returns a Mailer that dials the SMTP server from cfg for
// every message.
func NewMailer(cfg config.MailConfig, log logrus.FieldLogger) *Mailer {
	if log == nil {
		log = logrus.StandardLogger()
	}
	m := &Mailer{cfg: cfg, log: log}
	m.send = m.dialAndSend
	return m
}

// SendBookingConfirmation emails the guest named in ev.
func (m *Mailer) SendBookingConfirmation(ctx context.Context, ev queue.BookingConfirmedEvent) error {
	msg, err := m.confirmationMessage(ev)
	if err != nil {
		return err
	}
	if err := m.send(ctx, msg); err != nil {
		return fmt.Errorf("send confirmation for booking %d: %w", ev.BookingID, err)
	}
	m.log.WithFields(logrus.Fields{"booking_id": ev.BookingID, "event_id": ev.EventID}).Info("confirmation email sent")
	return nil
}

func (m *Mailer) confirmationMessage(ev queue.BookingConfirmedEvent) (*mail.Msg, error) {
	msg := mail.NewMsg()
	if err := msg.FromFormat(m.cfg.FromName, m.cfg.FromEmail); err != nil {
		return nil, fmt.Errorf("sender: %w", err)
	}
	if err := msg.AddToFormat(ev.GuestName, ev.GuestEmail); err != nil {
		return nil, fmt.Errorf("recipient: %w", err)
	}
	msg.Subject(confirmationSubject(ev))
	msg.SetDate()
	msg.SetMessageID()

	html, err := renderConfirmationHTML(ev)
	if err != nil {
		return nil, err
	}
	msg.SetBodyString(mail.TypeTextPlain, renderConfirmationText(ev))
	msg.AddAlternativeString(mail.TypeTextHTML, html)
	return msg, nil
}

func (m *Mailer) dialAndSend(ctx context.Context, msg *mail.Msg) error {
	policy := mail.TLSOpportunistic
	if m.cfg.TLSMandatory {
		policy = mail.TLSMandatory
	}
	opts := []mail.Option{
		mail.WithPort(m.cfg.Port),
		mail.WithTLSPolicy(policy),
		mail.WithTLSConfig(&tls.Config{ServerName: m.cfg.Host, MinVersion: tls.VersionTLS12}),
	}
	if m.cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(m.cfg.Username),
			mail.WithPassword(m.cfg.Password),
		)
	}
	client, err := mail.NewClient(m.cfg.Host, opts...)
	if err != nil {
		return fmt.Errorf("smtp client (host=%s port=%d): %w", m.cfg.Host, m.cfg.Port, err)
	}
	return client.DialAndSendWithContext(ctx, msg)
}

func confirmationSubject(ev queue.BookingConfirmedEvent) string {
	return fmt.Sprintf("Booking #%d confirmed", ev.BookingID)
}

// formatCents renders an amount in cents with two decimal places.
func formatCents(c int64) string {
	sign := ""
	if c < 0 {
		sign, c = "-", -c
	}
	return fmt.Sprintf("%s%d.%02d", sign, c/100, c%100)
}

func renderConfirmationText(ev queue.BookingConfirmedEvent) string {
	return fmt.Sprintf(`Hello %s,

Your booking #%d is confirmed.

Room:      %s
Check-in:  %s
Check-out: %s
Nights:    %d
Guests:    %d
Payment:   %s
Total:     %s

See you soon.
`, ev.GuestName, ev.BookingID, ev.RoomNumber, ev.CheckIn, ev.CheckOut,
		ev.Nights, ev.GuestsQuantity, ev.PaymentType, formatCents(ev.TotalPriceCents))
}

var confirmationTmpl = template.Must(template.New("confirmation").Funcs(template.FuncMap{
	"money": formatCents,
}).Parse(`<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif;">
  <h1>Booking #{{.BookingID}} confirmed</h1>
  <p>Hello {{.GuestName}}, thank you for your reservation.</p>
  <table cellpadding="6">
    <tr><td><strong>Room</strong></td><td>{{.RoomNumber}}</td></tr>
    <tr><td><strong>Check-in</strong></td><td>{{.CheckIn}}</td></tr>
    <tr><td><strong>Check-out</strong></td><td>{{.CheckOut}}</td></tr>
    <tr><td><strong>Nights</strong></td><td>{{.Nights}}</td></tr>
    <tr><td><strong>Guests</strong></td><td>{{.GuestsQuantity}}</td></tr>
    <tr><td><strong>Payment</strong></td><td>{{.PaymentType}}{{if .IsOnline}} (online){{end}}</td></tr>
    <tr><td><strong>Total</strong></td><td>{{money .TotalPriceCents}}</td></tr>
  </table>
</body>
</html>
`))

func renderConfirmationHTML(ev queue.BookingConfirmedEvent) (string, error) {
	var buf bytes.Buffer
	if err := confirmationTmpl.Execute(&buf, ev); err != nil {
		return "", fmt.Errorf("render confirmation: %w", err)
	}
	return buf.String(), nil
}
