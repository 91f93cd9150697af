package core

import (
	"bytes"
	"net/mail"
	texttmpl "text/template"

	"github.com/pkg/errors"
)

type (
	EmailMessage struct {
		To      []mail.Address
		Cc      []mail.Address
		Bcc     []mail.Address
		Subject string
		BodyStr string // simple text/plain, non-templated content

		// templated content
		TextTemplate string
		TemplateData interface{}
		TextContent  string
		HTMLContent  string
	}

	// EmailService is any service that can send emails
	EmailService interface {
		// SendMessages sends messages concurrently
		SendMessages(messages ...*EmailMessage)
	}
)

func (m *EmailMessage) renderText() error {
	if m.BodyStr != "" {
		m.TextContent = m.BodyStr
		return nil
	} else if m.TextTemplate == "" {
		return nil
	}

	tmpl, err := texttmpl.New("text").Option("missingkey=error").Parse(m.TextTemplate)
	if err != nil {
		return errors.Wrap(err, "parsing text template")
	}
	var buff bytes.Buffer
	if err = tmpl.Execute(&buff, m.TemplateData); err != nil {
		return errors.Wrap(err, "executing text template")
	}
	m.TextContent = buff.String()
	return nil
}

// Render fills TextContent from BodyStr or TextTemplate.
func (m *EmailMessage) Render() error {
	return m.renderText()
}

func (m *EmailMessage) HasRecipients() bool { return len(m.To) > 0 }
func (m *EmailMessage) HasContent() bool    { return (m.TextContent != "") || (m.HTMLContent != "") }
