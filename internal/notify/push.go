package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	webpush "github.com/SherClockHolmes/webpush-go"
)

const pushTTLSeconds = 3600

var ErrSubscriptionGone = errors.New("push subscription expired")

// WebPushSender signs requests with the VAPID keypair and encrypts the
// payload for the subscription's keys.
type WebPushSender struct {
	publicKey  string
	privateKey string
	subscriber string
	client     webpush.HTTPClient
}

func NewWebPushSender(publicKey, privateKey, subscriber string, client *http.Client) *WebPushSender {
	if client == nil {
		client = &http.Client{Timeout: defaultTimeout}
	}
	return &WebPushSender{
		publicKey:  publicKey,
		privateKey: privateKey,
		// webpush-go adds the mailto: scheme itself for non-https subscribers.
		subscriber: strings.TrimPrefix(strings.TrimSpace(subscriber), "mailto:"),
		client:     client,
	}
}

func (s *WebPushSender) SendPush(ctx context.Context, subscription json.RawMessage, payload []byte) error {
	var sub webpush.Subscription
	if err := json.Unmarshal(subscription, &sub); err != nil {
		return fmt.Errorf("decode subscription: %w", err)
	}
	if strings.TrimSpace(sub.Endpoint) == "" {
		return errors.New("subscription has no endpoint")
	}

	resp, err := webpush.SendNotificationWithContext(ctx, payload, &sub, &webpush.Options{
		HTTPClient:      s.client,
		Subscriber:      s.subscriber,
		VAPIDPublicKey:  s.publicKey,
		VAPIDPrivateKey: s.privateKey,
		TTL:             pushTTLSeconds,
		Urgency:         webpush.UrgencyHigh,
	})
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		return ErrSubscriptionGone
	case resp.StatusCode >= 300:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("push service returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return nil
}
