package config

import (
	"errors"

	"github.com/kelseyhightower/envconfig"
)

var errMailIncomplete = errors.New("MAIL_ENABLED requires SMTP_HOST and MAIL_FROM_EMAIL")

// MailConfig configures the SMTP client used for booking confirmation
// emails.  Mail is off unless MAIL_ENABLED is true, in which case the
// SMTP host and sender address are required.
type MailConfig struct {
	Enabled   bool   `envconfig:"MAIL_ENABLED" default:"false"`
	Host      string `envconfig:"SMTP_HOST"`
	Port      int    `envconfig:"SMTP_PORT" default:"587"`
	Username  string `envconfig:"SMTP_USER"`
	Password  string `envconfig:"SMTP_PASSWORD"`
	FromName  string `envconfig:"MAIL_FROM_NAME" default:"Hotel Booking"`
	FromEmail string `envconfig:"MAIL_FROM_EMAIL"`
	// TLSMandatory refuses to send over a plain connection.
	TLSMandatory bool `envconfig:"SMTP_TLS_MANDATORY" default:"true"`
}

// LoadMailConfig reads the MAIL_* and SMTP_* variables.
func LoadMailConfig() (MailConfig, error) {
	var c MailConfig
	if err := envconfig.Process("", &c); err != nil {
		return MailConfig{}, err
	}
	if c.Enabled && (c.Host == "" || c.FromEmail == "") {
		return MailConfig{}, errMailIncomplete
	}
	return c, nil
}
