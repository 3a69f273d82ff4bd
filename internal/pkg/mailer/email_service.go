package mailer

import (
	"fmt"

	"gopkg.in/gomail.v2"
)

type IEmailService interface {
	SendWelcome(toEmail, username string) error
	SendNewMessageNotice(toEmail, chatTitle, senderName, preview string) error
}

type emailService struct {
	dialer      *gomail.Dialer
	senderEmail string
	clientURL   string
}

func NewEmailService(host string, port int, username, password, senderEmail, clientURL string) IEmailService {
	return &emailService{
		dialer:      gomail.NewDialer(host, port, username, password),
		senderEmail: senderEmail,
		clientURL:   clientURL,
	}
}

func (s *emailService) SendWelcome(toEmail, username string) error {
	m := gomail.NewMessage()
	m.SetHeader("From", s.senderEmail)
	m.SetHeader("To", toEmail)
	m.SetHeader("Subject", "Welcome!")

	body := fmt.Sprintf(`
		<div style="font-family: Arial, sans-serif; padding: 20px; color: #333;">
			<h2>Hi %s,</h2>
			<p>Your account is ready. Start a conversation any time:</p>
			<p><a href="%s">%s</a></p>
		</div>
	`, username, s.clientURL, s.clientURL)

	m.SetBody("text/html", body)

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("send welcome mail to %s: %w", toEmail, err)
	}
	return nil
}

// SendNewMessageNotice tells an offline participant about chat activity.
// Callers are expected to throttle; this sends unconditionally.
func (s *emailService) SendNewMessageNotice(toEmail, chatTitle, senderName, preview string) error {
	m := gomail.NewMessage()
	m.SetHeader("From", s.senderEmail)
	m.SetHeader("To", toEmail)
	m.SetHeader("Subject", fmt.Sprintf("New message in %q", chatTitle))

	if len(preview) > 120 {
		preview = preview[:120] + "..."
	}
	body := fmt.Sprintf(`
		<div style="font-family: Arial, sans-serif; padding: 20px; color: #333;">
			<p><strong>%s</strong> wrote in <strong>%s</strong>:</p>
			<blockquote>%s</blockquote>
			<p><a href="%s">Open the conversation</a></p>
		</div>
	`, senderName, chatTitle, preview, s.clientURL)

	m.SetBody("text/html", body)

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("send message notice to %s: %w", toEmail, err)
	}
	return nil
}
