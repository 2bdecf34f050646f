package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"
)

var emailRe = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

const contactSubjectPrefix = "[Portfolio Contact] "

// ContactInput is the contact form body
type ContactInput struct {
	Subject     string `json:"subject"`
	SenderEmail string `json:"senderEmail"`
	Message     string `json:"message"`
}

// Validate checks presence, then the address format
func (in ContactInput) Validate() error {
	if in.Subject == "" || in.SenderEmail == "" || in.Message == "" {
		return invalid("missing_fields", "Missing required fields: subject, senderEmail, and message are required")
	}
	if !emailRe.MatchString(in.SenderEmail) {
		return invalid("invalid_email", "Invalid email address format")
	}
	return nil
}

var contactTmpl = template.Must(template.New("contact").Parse(`<!DOCTYPE html>
<html>
<head>
<style>
  body { font-family: 'Orbitron', 'Segoe UI', sans-serif; background: #0a0a1a; color: #ffffff; padding: 40px 20px; }
  .container { max-width: 600px; margin: 0 auto; background: rgba(20, 30, 50, 0.95); border-radius: 20px; border: 2px solid #00ffff; overflow: hidden; }
  .header { text-align: center; padding: 40px 30px 30px; border-bottom: 1px solid rgba(0, 255, 255, 0.3); }
  .header h1 { color: #00ffff; font-size: 16px; letter-spacing: 2px; }
  .header p { color: #ff00ff; font-size: 13px; }
  .content { padding: 30px; }
  .field { margin-bottom: 25px; background: rgba(0, 0, 0, 0.3); border-radius: 12px; padding: 20px; border-left: 4px solid #00ffff; }
  .label { color: #00ffff; font-size: 10px; text-transform: uppercase; letter-spacing: 3px; margin-bottom: 12px; }
  .value { font-size: 15px; line-height: 1.8; }
  .value a { color: #ff00ff; text-decoration: none; }
  .message-content { white-space: pre-wrap; line-height: 1.9; color: #e8f4ff; font-size: 14px; }
  .footer { text-align: center; padding: 25px 30px; border-top: 1px solid rgba(0, 255, 255, 0.2); }
  .footer-text { color: #00ffff; font-size: 11px; letter-spacing: 2px; }
  .footer-date { color: rgba(255, 255, 255, 0.5); font-size: 8px; margin-top: 10px; }
</style>
</head>
<body>
  <div class="container">
    <div class="header">
      <h1>INCOMING TRANSMISSION</h1>
      <p>New Message from Nexus Space</p>
    </div>
    <div class="content">
      <div class="field">
        <div class="label">FROM</div>
        <div class="value"><a href="mailto:{{.SenderEmail}}">{{.SenderEmail}}</a></div>
      </div>
      <div class="field">
        <div class="label">SUBJECT</div>
        <div class="value">{{.Subject}}</div>
      </div>
      <div class="field">
        <div class="label">MESSAGE</div>
        <div class="value"><div class="message-content">{{range $i, $line := .Lines}}{{if $i}}<br>{{end}}{{$line}}{{end}}</div></div>
      </div>
    </div>
    <div class="footer">
      <div class="footer-text">NEXUS SPACE PORTFOLIO</div>
      <div class="footer-date">{{.Date}}</div>
    </div>
  </div>
</body>
</html>
`))

// RenderContactHTML builds the escaped email body; newlines become <br>
func RenderContactHTML(in ContactInput, at time.Time) (string, error) {
	var buf bytes.Buffer
	err := contactTmpl.Execute(&buf, struct {
		SenderEmail string
		Subject     string
		Lines       []string
		Date        string
	}{
		SenderEmail: in.SenderEmail,
		Subject:     in.Subject,
		Lines:       strings.Split(in.Message, "\n"),
		Date:        mailDate(at),
	})
	if err != nil {
		return "", fmt.Errorf("render contact email: %w", err)
	}
	return buf.String(), nil
}

// Contact forwards the contact form to the site owner
type Contact struct {
	mailer    Mailer
	from, to  string
	analytics *Analytics
	log       *zap.Logger
	now       func() time.Time
}

// NewContact wires the contact service
func NewContact(m Mailer, cfg MailConfig, analytics *Analytics, log *zap.Logger) *Contact {
	return &Contact{
		mailer:    m,
		from:      cfg.From,
		to:        cfg.To,
		analytics: analytics,
		log:       log.Named("contact"),
		now:       time.Now,
	}
}

// Send validates in and, only if valid, hands the email to the mailer
func (c *Contact) Send(ctx context.Context, in ContactInput) (json.RawMessage, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	html, err := RenderContactHTML(in, c.now())
	if err != nil {
		return nil, err
	}
	return c.mailer.Send(ctx, Email{
		From:    c.from,
		To:      []string{c.to},
		Subject: contactSubjectPrefix + in.Subject,
		ReplyTo: in.SenderEmail,
		HTML:    html,
	})
}

// handleSend serves POST /api/contact
func (c *Contact) handleSend(w http.ResponseWriter, r *http.Request) {
	ip := ClientIP(r)
	var in ContactInput
	if err := decodeJSON(r, &in); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"success": false, "error": "Invalid request body"})
		return
	}

	c.log.Info("sending contact email", zap.String("from", in.SenderEmail), zap.String("subject", in.Subject))
	data, err := c.Send(r.Context(), in)
	var verr *ValidationError
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusBadRequest, map[string]any{"success": false, "error": verr.Message})
	case err != nil:
		c.log.Error("send contact email", zap.Error(err))
		c.analytics.Track(EvtContactFailed, ip, nil)
		writeJSON(w, http.StatusInternalServerError, map[string]any{"success": false, "error": err.Error()})
	default:
		c.analytics.Track(EvtContactSent, ip, nil)
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": data})
	}
}
