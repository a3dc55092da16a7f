package main

import (
	"bytes"
	"embed"
	"html/template"

	"github.com/go-mail/mail/v2"
)

//go:embed templates
var templateFS embed.FS

var welcomeTemplate = template.Must(template.ParseFS(templateFS, "templates/user_welcome.tmpl"))

// templateSender delivers a rendered template to one recipient.
type templateSender interface {
	send(to string, tmpl *template.Template, data any) error
}

type mailer struct {
	dialer *mail.Dialer
	sender string
}

func newMailer(host string, port int, username string, password string, sender string) *mailer {
	dialer := mail.NewDialer(host, port, username, password)
	return &mailer{
		dialer: dialer,
		sender: sender,
	}
}

// compose renders the subject, plainBody and htmlBody templates into a message.
func (m *mailer) compose(to string, tmpl *template.Template, data any) (*mail.Message, error) {
	var subject bytes.Buffer
	err := tmpl.ExecuteTemplate(&subject, "subject", data)
	if err != nil {
		return nil, err
	}
	var plainBody bytes.Buffer
	err = tmpl.ExecuteTemplate(&plainBody, "plainBody", data)
	if err != nil {
		return nil, err
	}
	var htmlBody bytes.Buffer
	err = tmpl.ExecuteTemplate(&htmlBody, "htmlBody", data)
	if err != nil {
		return nil, err
	}

	msg := mail.NewMessage()
	msg.SetHeader("To", to)
	msg.SetHeader("From", m.sender)
	msg.SetHeader("Subject", subject.String())
	msg.SetBody("text/plain", plainBody.String())
	msg.AddAlternative("text/html", htmlBody.String())
	return msg, nil
}

func (m *mailer) send(to string, tmpl *template.Template, data any) error {
	msg, err := m.compose(to, tmpl, data)
	if err != nil {
		return err
	}
	for i := 0; i < 3; i++ {
		err = m.dialer.DialAndSend(msg)
		if err == nil {
			break
		}
	}
	return err
}
