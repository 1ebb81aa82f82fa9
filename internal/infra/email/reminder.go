package email

import (
	"fmt"
	"net/smtp"
	"os"

	"flowhost/internal/domain/subscriptions"
)

// ReminderMailer sends trial reminder emails over SMTP. Implements
// subscriptions.Notifier. Delivery failures are the caller's to log;
// the trial state machine never waits on or retries them.
type ReminderMailer struct{}

func NewReminderMailer() *ReminderMailer {
	return &ReminderMailer{}
}

func (m *ReminderMailer) SendTrialReminder(sub *subscriptions.Subscription, daysRemaining int) error {
	if sub.Team == nil || sub.Team.ContactEmail == "" {
		return fmt.Errorf("no contact email for team %d", sub.TeamID)
	}

	from := os.Getenv("SMTP_FROM")
	password := os.Getenv("SMTP_PASSWORD")
	host := os.Getenv("SMTP_HOST")
	port := os.Getenv("SMTP_PORT")
	if host == "" {
		return fmt.Errorf("SMTP_HOST not configured")
	}

	to := sub.Team.ContactEmail
	subject, body := reminderContent(sub.Team.Name, daysRemaining)

	message := []byte("Subject: " + subject + "\r\n" +
		"From: " + from + "\r\n" +
		"To: " + to + "\r\n" +
		"Content-Type: text/plain; charset=UTF-8\r\n" +
		"\r\n" +
		body + "\r\n")

	auth := smtp.PlainAuth("", from, password, host)
	return smtp.SendMail(host+":"+port, auth, from, []string{to}, message)
}

func reminderContent(teamName string, daysRemaining int) (subject, body string) {
	if daysRemaining <= 1 {
		subject = "Your trial ends tomorrow"
		body = fmt.Sprintf(
			"The free trial for team %q ends in less than a day.\n\n"+
				"Add a payment method now to keep your instances running.\n", teamName)
		return
	}
	subject = fmt.Sprintf("Your trial ends in %d days", daysRemaining)
	body = fmt.Sprintf(
		"The free trial for team %q ends in %d days.\n\n"+
			"Add a payment method before then to keep your instances running.\n",
		teamName, daysRemaining)
	return
}
