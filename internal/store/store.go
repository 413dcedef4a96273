package store

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"qrtrack/internal/models"
)

type CreateTicketInput struct {
	BusinessID       string
	QueueID          string
	Name             string
	Issue            string
	NotifyPush       bool
	PushSubscription json.RawMessage
	NotifyWhatsapp   bool
	WhatsappNumber   string
	CreatedAt        time.Time
}

// Normalize trims the input, checks required fields and derives the notify
// flags from the payloads that were actually supplied. A client flag that
// claims a channel without its payload is dropped, and a payload without its
// flag still enables the channel.
func (in CreateTicketInput) Normalize() (CreateTicketInput, error) {
	in.BusinessID = strings.TrimSpace(in.BusinessID)
	in.QueueID = strings.TrimSpace(in.QueueID)
	in.Name = strings.TrimSpace(in.Name)
	in.Issue = strings.TrimSpace(in.Issue)
	in.WhatsappNumber = strings.TrimSpace(in.WhatsappNumber)

	if in.BusinessID == "" || in.QueueID == "" || in.Name == "" {
		return CreateTicketInput{}, Invalid("businessId, queueId and name are required")
	}

	in.NotifyPush = models.HasPushSubscription(in.PushSubscription)
	if !in.NotifyPush {
		in.PushSubscription = nil
	}
	in.NotifyWhatsapp = in.WhatsappNumber != ""
	return in, nil
}

type TicketFilter struct {
	BusinessID string
	QueueID    string
	Status     models.Status
}

// Normalize trims the partition ids and validates the result. Stores match
// on the returned filter.
func (f TicketFilter) Normalize() (TicketFilter, error) {
	f.BusinessID = strings.TrimSpace(f.BusinessID)
	f.QueueID = strings.TrimSpace(f.QueueID)
	if err := f.Validate(); err != nil {
		return TicketFilter{}, err
	}
	return f, nil
}

func (f TicketFilter) Validate() error {
	if strings.TrimSpace(f.BusinessID) == "" || strings.TrimSpace(f.QueueID) == "" {
		return Invalid("businessId and queueId are required")
	}
	if f.Status != "" {
		if _, ok := models.ParseStatus(string(f.Status)); !ok {
			return Invalid("status must be one of waiting, next, serving, completed, cancelled")
		}
	}
	return nil
}

// Matches reports whether ticket belongs to the filtered queue partition.
func (f TicketFilter) Matches(ticket models.Ticket) bool {
	if ticket.BusinessID != f.BusinessID || ticket.QueueID != f.QueueID {
		return false
	}
	return f.Status == "" || ticket.Status == f.Status
}

type TicketStore interface {
	CreateTicket(ctx context.Context, input CreateTicketInput) (models.Ticket, error)
	ListTickets(ctx context.Context, filter TicketFilter) ([]models.Ticket, error)
	GetTicket(ctx context.Context, ticketID string) (models.Ticket, error)
	UpdateStatus(ctx context.Context, ticketID string, status models.Status) (models.Ticket, error)
}

type CreateBusinessInput struct {
	BusinessName string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}

type BusinessStore interface {
	CreateBusiness(ctx context.Context, input CreateBusinessInput) (models.Business, error)
	FindBusinessByEmail(ctx context.Context, email string) (models.Business, error)
}

type Store interface {
	TicketStore
	BusinessStore
}
