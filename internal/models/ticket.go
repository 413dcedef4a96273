package models

import (
	"bytes"
	"encoding/json"
	"time"
)

type Status string

const (
	StatusWaiting   Status = "waiting"
	StatusNext      Status = "next"
	StatusServing   Status = "serving"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// Statuses lists every known status in queue order.
var Statuses = []Status{StatusWaiting, StatusNext, StatusServing, StatusCompleted, StatusCancelled}

func ParseStatus(raw string) (Status, bool) {
	for _, status := range Statuses {
		if string(status) == raw {
			return status, true
		}
	}
	return "", false
}

type Ticket struct {
	ID               string          `json:"id"`
	BusinessID       string          `json:"businessId"`
	QueueID          string          `json:"queueId"`
	Name             string          `json:"name"`
	Issue            string          `json:"issue"`
	Status           Status          `json:"status"`
	NotifyPush       bool            `json:"notifyPush"`
	PushSubscription json.RawMessage `json:"pushSubscription"`
	NotifyWhatsapp   bool            `json:"notifyWhatsapp"`
	WhatsappNumber   *string         `json:"whatsappNumber"`
	CreatedAt        time.Time       `json:"createdAt"`
	UpdatedAt        time.Time       `json:"updatedAt"`
}

const labelLength = 5

// Label is the short ticket reference shown to customers and on the board.
func (t Ticket) Label() string {
	if len(t.ID) <= labelLength {
		return t.ID
	}
	return t.ID[len(t.ID)-labelLength:]
}

// HasPushSubscription reports whether raw carries a subscription object.
// Scalars, arrays and null do not count. The object is otherwise opaque.
func HasPushSubscription(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return false
	}
	return json.Valid(trimmed)
}
