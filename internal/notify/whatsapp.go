package notify

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
)

const DefaultCallMeBotURL = "https://api.callmebot.com/whatsapp.php"

// CallMeBotSender relays WhatsApp messages through the CallMeBot HTTP API.
type CallMeBotSender struct {
	baseURL string
	apiKey  string
	client  *http.Client
	logger  *slog.Logger
}

func NewCallMeBotSender(baseURL, apiKey string, client *http.Client, logger *slog.Logger) *CallMeBotSender {
	if baseURL == "" {
		baseURL = DefaultCallMeBotURL
	}
	if client == nil {
		client = &http.Client{Timeout: defaultTimeout}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &CallMeBotSender{baseURL: baseURL, apiKey: apiKey, client: client, logger: logger}
}

func (s *CallMeBotSender) SendWhatsapp(ctx context.Context, number, text string) error {
	query := url.Values{}
	query.Set("phone", number)
	query.Set("text", text)
	query.Set("apikey", s.apiKey)

	target := s.baseURL
	if strings.Contains(target, "?") {
		target += "&" + query.Encode()
	} else {
		target += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
	if resp.StatusCode >= 300 {
		return fmt.Errorf("callmebot returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	s.logger.Debug("callmebot response", "status", resp.StatusCode, "body", strings.TrimSpace(string(body)))
	return nil
}
