// Package gateway wraps the WhatsApp dispatch API used to deliver replies to
// patients' phones.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

const maxResponseBody = 64 << 10 // 64 KB

type Client struct {
	httpClient *http.Client
	url        string
	apiKey     string
	logger     zerolog.Logger
}

func New(url, apiKey string, logger zerolog.Logger) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 15 * time.Second},
		url:        url,
		apiKey:     apiKey,
		logger:     logger,
	}
}

// Enabled reports whether an API key is configured. A disabled client means
// replies are stored but never dispatched.
func (c *Client) Enabled() bool {
	return c.apiKey != ""
}

type sendRequest struct {
	Phone   string `json:"phone"`
	Message string `json:"message"`
}

// Send delivers a message to the given phone number. A non-2xx response from
// the dispatch API is returned as an error.
func (c *Client) Send(ctx context.Context, phone, message string) error {
	payload, err := json.Marshal(sendRequest{Phone: phone, Message: message})
	if err != nil {
		return fmt.Errorf("marshal send request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create send request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("call dispatch endpoint: %w", err)
	}
	defer resp.Body.Close()

	// Drain the body so the connection can be reused
	io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBody))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Warn().
			Int("status", resp.StatusCode).
			Str("phone", phone).
			Msg("dispatch endpoint returned non-2xx")
		return fmt.Errorf("dispatch endpoint returned status %d", resp.StatusCode)
	}

	return nil
}
