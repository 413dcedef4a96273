package notify

import (
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// Config carries the channel credentials. Empty VAPID keys disable push and
// an empty CallMeBot key disables WhatsApp.
type Config struct {
	VAPIDPublicKey  string
	VAPIDPrivateKey string
	VAPIDSubject    string
	CallMeBotKey    string
	CallMeBotURL    string
	Timeout         time.Duration
}

func (c Config) PushConfigured() bool {
	return strings.TrimSpace(c.VAPIDPublicKey) != "" && strings.TrimSpace(c.VAPIDPrivateKey) != ""
}

func (c Config) WhatsappConfigured() bool {
	return strings.TrimSpace(c.CallMeBotKey) != ""
}

// SendersFromConfig builds the configured senders. A disabled channel is
// returned as a nil interface.
func SendersFromConfig(cfg Config, logger *slog.Logger) (PushSender, WhatsappSender) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	var push PushSender
	if cfg.PushConfigured() {
		push = NewWebPushSender(cfg.VAPIDPublicKey, cfg.VAPIDPrivateKey, cfg.VAPIDSubject, &http.Client{Timeout: timeout})
	}
	var whatsapp WhatsappSender
	if cfg.WhatsappConfigured() {
		whatsapp = NewCallMeBotSender(cfg.CallMeBotURL, cfg.CallMeBotKey, &http.Client{Timeout: timeout}, logger)
	}
	return push, whatsapp
}
