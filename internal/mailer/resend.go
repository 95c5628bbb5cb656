package mailer

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	json "github.com/goccy/go-json"
)

const (
	defaultEndpoint = "https://api.resend.com/emails"
	requestTimeout  = 10 * time.Second
)

// ResendMailer sends transactional email through the Resend HTTP API.
type ResendMailer struct {
	endpoint string
	apiKey   string
	from     string
	http     *http.Client
}

// NewResendMailer creates a new Resend mailer
func NewResendMailer(apiKey, from string) *ResendMailer {
	return &ResendMailer{
		endpoint: defaultEndpoint,
		apiKey:   apiKey,
		from:     from,
		http:     &http.Client{Timeout: requestTimeout},
	}
}

type sendRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
}

// SendOutbidEmail tells a user their leading bid was beaten.
func (m *ResendMailer) SendOutbidEmail(ctx context.Context, to, vehicleTitle string, newAmount int64) error {
	body := fmt.Sprintf(
		"<p>Você foi superado no leilão do <strong>%s</strong>.</p><p>O lance atual é de %s. Volte e dê um novo lance!</p>",
		vehicleTitle, formatBRL(newAmount),
	)
	return m.send(ctx, sendRequest{
		From:    m.from,
		To:      []string{to},
		Subject: fmt.Sprintf("Você foi superado: %s", vehicleTitle),
		HTML:    body,
	})
}

func (m *ResendMailer) send(ctx context.Context, payload sendRequest) error {
	buf, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal email payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.endpoint, bytes.NewReader(buf))
	if err != nil {
		return fmt.Errorf("failed to build email request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+m.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.http.Do(req)
	if err != nil {
		return fmt.Errorf("email request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("email provider returned status %d: %s", resp.StatusCode, detail)
	}
	return nil
}

// formatBRL renders cents as a Brazilian Real amount.
func formatBRL(cents int64) string {
	return fmt.Sprintf("R$ %d,%02d", cents/100, cents%100)
}

// NopMailer discards all email. Used in development and tests when no
// provider key is configured.
type NopMailer struct{}

// SendOutbidEmail does nothing.
func (NopMailer) SendOutbidEmail(ctx context.Context, to, vehicleTitle string, newAmount int64) error {
	return nil
}
