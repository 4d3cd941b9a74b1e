package mail

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"
)

// Mailer envia mensagens para destinatários externos. A entrega é de
// melhor esforço: os fluxos de provisionamento não aguardam nem retentam.
type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}

// WebhookMailer publica a mensagem num webhook de e-mail transacional.
type WebhookMailer struct {
	webhookURL string
	from       string
	client     *http.Client
}

// NewWebhookMailer devolve nil quando não há webhook configurado.
func NewWebhookMailer(webhookURL, from string) *WebhookMailer {
	if webhookURL == "" {
		return nil
	}
	return &WebhookMailer{
		webhookURL: webhookURL,
		from:       from,
		client:     &http.Client{Timeout: 5 * time.Second},
	}
}

// Send publica a mensagem no webhook configurado.
func (m *WebhookMailer) Send(ctx context.Context, to, subject, body string) error {
	if m == nil || m.webhookURL == "" {
		return errors.New("mailer não configurado")
	}

	payload := map[string]any{
		"from":    m.from,
		"to":      to,
		"subject": subject,
		"text":    body,
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.webhookURL, bytes.NewBuffer(raw))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return errors.New("envio de e-mail falhou")
	}
	return nil
}
