package sendgrid

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

	"github.com/nishacrest/Beta-test-sub001/pkg/config"
)

const defaultEndpoint = "https://api.sendgrid.com/v3/mail/send"

// Message is a single HTML mail.
type Message struct {
	To      string
	Subject string
	HTML    string
}

// Client posts mails to the SendGrid v3 API.
type Client struct {
	httpClient *http.Client
	apiKey     string
	fromEmail  string
	fromName   string
	endpoint   string
}

// NewClient builds a client from config. It fails when no API key or sender is set.
func NewClient(cfg config.SendgridConfig) (*Client, error) {
	if !cfg.Enabled() {
		return nil, errors.New("sendgrid api key and sender are required")
	}
	return &Client{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		apiKey:     cfg.APIKey,
		fromEmail:  cfg.DefaultFrom,
		fromName:   cfg.FromName,
		endpoint:   defaultEndpoint,
	}, nil
}

type address struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

type personalization struct {
	To []address `json:"to"`
}

type content struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

type sendRequest struct {
	Personalizations []personalization `json:"personalizations"`
	From             address           `json:"from"`
	Subject          string            `json:"subject"`
	Content          []content         `json:"content"`
}

// Send delivers msg. SendGrid answers 202 on acceptance.
func (c *Client) Send(ctx context.Context, msg Message) error {
	if c == nil {
		return errors.New("sendgrid client not initialized")
	}
	to := strings.TrimSpace(msg.To)
	if to == "" {
		return errors.New("recipient is required")
	}
	if strings.TrimSpace(msg.Subject) == "" {
		return errors.New("subject is required")
	}

	payload, err := json.Marshal(sendRequest{
		Personalizations: []personalization{{To: []address{{Email: to}}}},
		From:             address{Email: c.fromEmail, Name: c.fromName},
		Subject:          msg.Subject,
		Content:          []content{{Type: "text/html", Value: msg.HTML}},
	})
	if err != nil {
		return fmt.Errorf("encode sendgrid request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode/100 != 2 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("sendgrid send failed: %s: %s", resp.Status, strings.TrimSpace(string(b)))
	}
	return nil
}
