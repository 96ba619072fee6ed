package automation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// WebhookSink POSTs booking events to the n8n automation endpoint.
type WebhookSink struct {
	url  string
	http *http.Client
}

func NewWebhookSink(url string) *WebhookSink {
	return &WebhookSink{
		url: strings.TrimSpace(url),
		http: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

func (s *WebhookSink) Name() string { return "n8n-webhook" }

func (s *WebhookSink) Publish(ctx context.Context, evt BookingEvent) error {
	if s.url == "" {
		// Not configured; skip silently.
		return nil
	}
	raw, err := json.Marshal(evt)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(raw))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := s.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("automation webhook returned %d", resp.StatusCode)
	}
	return nil
}
