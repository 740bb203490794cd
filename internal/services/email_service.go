package services

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

// EmailServiceProvider defines the interface for account notification mail.
// Implementations must be safe to call from goroutines; delivery failures
// are logged and never fail the request that triggered them.
type EmailServiceProvider interface {
	SendWelcome(email, name string)
	SendFarewell(email, name string)
}

// EmailService sends account notifications through SendGrid.
type EmailService struct {
	client *sendgrid.Client
	from   *mail.Email
}

// NewEmailService creates a new EmailService. An empty API key disables
// sending; the service then only logs what it would have sent.
func NewEmailService(apiKey, fromAddress string) *EmailService {
	s := &EmailService{from: mail.NewEmail("Taskly", fromAddress)}
	if apiKey != "" {
		s.client = sendgrid.NewSendClient(apiKey)
	}
	return s
}

// SendWelcome sends the signup notification.
func (s *EmailService) SendWelcome(email, name string) {
	subject := "Welcome to the task app"
	body := fmt.Sprintf("Welcome to the app %s. Let me know how you get along with the app.", name)
	s.send(email, name, subject, body)
}

// SendFarewell sends the account cancellation notification.
func (s *EmailService) SendFarewell(email, name string) {
	subject := "Bye bye"
	body := fmt.Sprintf("Hope to see you soon %s.", name)
	s.send(email, name, subject, body)
}

func (s *EmailService) send(email, name, subject, body string) {
	if s.client == nil {
		log.Info().Str("to", email).Str("subject", subject).Msg("Mail disabled, skipping send")
		return
	}

	message := mail.NewSingleEmail(s.from, subject, mail.NewEmail(name, email), body, body)
	resp, err := s.client.Send(message)
	if err != nil {
		log.Error().Err(err).Str("to", email).Str("subject", subject).Msg("Failed to send mail")
		return
	}
	if resp.StatusCode >= 400 {
		log.Error().Int("status", resp.StatusCode).Str("to", email).Str("subject", subject).Msg("Mail provider rejected message")
	}
}
