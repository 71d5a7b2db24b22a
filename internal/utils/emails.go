package utils

import (
	"fmt"
	"log"

	"gopkg.in/gomail.v2"
)

// Mailer sends notification emails over SMTP.
type Mailer struct {
	Host     string
	Port     int
	Username string
	Password string
}

// Send sends an email. With no configured username the send is skipped, so
// local development works without SMTP credentials.
func (m *Mailer) Send(to string, subject string, body string) error {
	if m.Username == "" {
		log.Printf("SMTP not configured, skipping email to %s", to)
		return nil
	}

	mailer := gomail.NewMessage()
	mailer.SetHeader("From", m.Username)
	mailer.SetHeader("To", to)
	mailer.SetHeader("Subject", subject)
	mailer.SetBody("text/html", body)

	dialer := gomail.NewDialer(m.Host, m.Port, m.Username, m.Password)

	if err := dialer.DialAndSend(mailer); err != nil {
		log.Printf("Failed to send email: %v", err)
		return err
	}

	log.Printf("Email sent successfully to %s", to)
	return nil
}

// FineNoticeBody builds the HTML body for an absentee-fine notice.
func FineNoticeBody(displayName, eventTitle string, amount float64) string {
	return fmt.Sprintf(`
	<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
		<div style="background-color: #003366; color: #ffffff; padding: 16px; text-align: center;">
			<h2 style="margin: 0;">Absence Fine Issued</h2>
		</div>
		<div style="padding: 16px;">
			<p>Hi %s,</p>
			<p>You were marked absent for <strong>%s</strong> and a fine of <strong>%.2f</strong> has been added to your account.</p>
			<p>Please settle it with your organization's treasurer.</p>
		</div>
	</div>`, displayName, eventTitle, amount)
}
