package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Email is one outbound message
type Email struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	ReplyTo string   `json:"reply_to,omitempty"`
	HTML    string   `json:"html"`
}

// Mailer sends transactional email and returns the provider's response body
type Mailer interface {
	Send(ctx context.Context, e Email) (json.RawMessage, error)
}

// ErrMailNotConfigured is returned when no API key is set
var ErrMailNotConfigured = errors.New("mail provider not configured")

// ResendMailer talks to the Resend REST API
type ResendMailer struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

// NewResendMailer creates a client for baseURL (normally https://api.resend.com)
func NewResendMailer(cfg MailConfig) *ResendMailer {
	return &ResendMailer{
		apiKey:  cfg.APIKey,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		client:  &http.Client{Timeout: cfg.Timeout},
	}
}

const maxProviderResponse = 1 << 20

// Send posts e to /emails. A non-2xx answer becomes an error carrying the
// provider's message field when it has one.
func (m *ResendMailer) Send(ctx context.Context, e Email) (json.RawMessage, error) {
	if m.apiKey == "" {
		return nil, ErrMailNotConfigured
	}
	body, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("marshal email: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.baseURL+"/emails", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+m.apiKey)

	resp, err := m.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send email: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxProviderResponse))
	if err != nil {
		return nil, fmt.Errorf("read provider response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var pe struct {
			Message string `json:"message"`
		}
		if json.Unmarshal(raw, &pe) == nil && pe.Message != "" {
			return nil, errors.New(pe.Message)
		}
		return nil, fmt.Errorf("failed to send email (status %d)", resp.StatusCode)
	}
	if !json.Valid(raw) {
		return nil, errors.New("provider returned invalid JSON")
	}
	return json.RawMessage(raw), nil
}

// compile-time check
var _ Mailer = (*ResendMailer)(nil)

// timestamp format used in the email footer
const mailDateLayout = "Monday, January 2, 2006 at 03:04 PM MST"

func mailDate(t time.Time) string {
	return t.Format(mailDateLayout)
}
