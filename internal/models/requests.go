package models

import (
	"fmt"
	"strings"
	"time"
)

const maxTextLength = 4096

// ValidationError describes a webhook payload that failed schema validation.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid field %q: %s", e.Field, e.Reason)
}

// WebhookPayload is the JSON body of POST /webhook.
type WebhookPayload struct {
	MessageID string `json:"message_id"`
	From      string `json:"from"`
	To        string `json:"to"`
	TS        string `json:"ts"`
	Text      string `json:"text"`
}

// Validate checks the payload against the ingestion schema.
func (p *WebhookPayload) Validate() error {
	if p.MessageID == "" {
		return &ValidationError{Field: "message_id", Reason: "must not be empty"}
	}
	if err := validateMSISDN(p.From); err != nil {
		return &ValidationError{Field: "from", Reason: err.Error()}
	}
	if err := validateMSISDN(p.To); err != nil {
		return &ValidationError{Field: "to", Reason: err.Error()}
	}
	if _, err := p.ParseTS(); err != nil {
		return &ValidationError{Field: "ts", Reason: err.Error()}
	}
	if len(p.Text) > maxTextLength {
		return &ValidationError{
			Field:  "text",
			Reason: fmt.Sprintf("must not exceed %d characters", maxTextLength),
		}
	}
	return nil
}

// ParseTS parses the caller-supplied timestamp. Only ISO-8601 UTC with a
// trailing "Z" is accepted.
func (p *WebhookPayload) ParseTS() (time.Time, error) {
	if !strings.HasSuffix(p.TS, "Z") {
		return time.Time{}, fmt.Errorf("must be ISO-8601 UTC with 'Z' suffix")
	}
	ts, err := time.Parse(time.RFC3339Nano, p.TS)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid ISO-8601 timestamp")
	}
	return ts.UTC(), nil
}

// validateMSISDN enforces E.164-like identifiers: "+" followed by digits.
func validateMSISDN(v string) error {
	if len(v) < 2 || v[0] != '+' {
		return fmt.Errorf("must start with '+' followed by digits")
	}
	for _, c := range v[1:] {
		if c < '0' || c > '9' {
			return fmt.Errorf("must start with '+' followed by digits")
		}
	}
	return nil
}
