package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"qrtrack/internal/models"
	"qrtrack/internal/store"

	"github.com/google/uuid"
)

// Store keeps tickets and businesses in process memory. It backs the test
// suites and single-node demos; nothing survives a restart.
type Store struct {
	mu         sync.RWMutex
	tickets    map[string]models.Ticket
	businesses map[string]models.Business
	now        func() time.Time
}

type Options struct {
	Now func() time.Time
}

func NewStore(options Options) *Store {
	now := options.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &Store{
		tickets:    make(map[string]models.Ticket),
		businesses: make(map[string]models.Business),
		now:        now,
	}
}

func (s *Store) CreateTicket(ctx context.Context, input store.CreateTicketInput) (models.Ticket, error) {
	input, err := input.Normalize()
	if err != nil {
		return models.Ticket{}, err
	}
	if input.CreatedAt.IsZero() {
		input.CreatedAt = s.now()
	}

	ticket := models.Ticket{
		ID:               uuid.NewString(),
		BusinessID:       input.BusinessID,
		QueueID:          input.QueueID,
		Name:             input.Name,
		Issue:            input.Issue,
		Status:           models.StatusWaiting,
		NotifyPush:       input.NotifyPush,
		PushSubscription: clone(input.PushSubscription),
		NotifyWhatsapp:   input.NotifyWhatsapp,
		CreatedAt:        input.CreatedAt,
		UpdatedAt:        input.CreatedAt,
	}
	if input.NotifyWhatsapp {
		number := input.WhatsappNumber
		ticket.WhatsappNumber = &number
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.tickets[ticket.ID] = ticket
	return copyTicket(ticket), nil
}

func (s *Store) ListTickets(ctx context.Context, filter store.TicketFilter) ([]models.Ticket, error) {
	filter, err := filter.Normalize()
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	tickets := make([]models.Ticket, 0, len(s.tickets))
	for _, ticket := range s.tickets {
		if filter.Matches(ticket) {
			tickets = append(tickets, copyTicket(ticket))
		}
	}
	s.mu.RUnlock()

	sort.Slice(tickets, func(i, j int) bool {
		if tickets[i].CreatedAt.Equal(tickets[j].CreatedAt) {
			return tickets[i].ID < tickets[j].ID
		}
		return tickets[i].CreatedAt.Before(tickets[j].CreatedAt)
	})
	return tickets, nil
}

func (s *Store) GetTicket(ctx context.Context, ticketID string) (models.Ticket, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ticket, ok := s.tickets[ticketID]
	if !ok {
		return models.Ticket{}, store.ErrTicketNotFound
	}
	return copyTicket(ticket), nil
}

func (s *Store) UpdateStatus(ctx context.Context, ticketID string, status models.Status) (models.Ticket, error) {
	if _, ok := models.ParseStatus(string(status)); !ok {
		return models.Ticket{}, store.Invalid("unknown status " + string(status))
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	ticket, ok := s.tickets[ticketID]
	if !ok {
		return models.Ticket{}, store.ErrTicketNotFound
	}
	ticket.Status = status
	ticket.UpdatedAt = s.now()
	if ticket.UpdatedAt.Before(ticket.CreatedAt) {
		ticket.UpdatedAt = ticket.CreatedAt
	}
	s.tickets[ticketID] = ticket
	return copyTicket(ticket), nil
}

func (s *Store) CreateBusiness(ctx context.Context, input store.CreateBusinessInput) (models.Business, error) {
	email := normalizeEmail(input.Email)
	createdAt := input.CreatedAt
	if createdAt.IsZero() {
		createdAt = s.now()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.businesses[email]; exists {
		return models.Business{}, store.ErrEmailTaken
	}
	business := models.Business{
		BusinessID:   uuid.NewString(),
		BusinessName: input.BusinessName,
		Email:        email,
		PasswordHash: input.PasswordHash,
		CreatedAt:    createdAt,
	}
	s.businesses[email] = business
	return business, nil
}

func (s *Store) FindBusinessByEmail(ctx context.Context, email string) (models.Business, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	business, ok := s.businesses[normalizeEmail(email)]
	if !ok {
		return models.Business{}, store.ErrBusinessNotFound
	}
	return business, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func copyTicket(ticket models.Ticket) models.Ticket {
	ticket.PushSubscription = clone(ticket.PushSubscription)
	if ticket.WhatsappNumber != nil {
		number := *ticket.WhatsappNumber
		ticket.WhatsappNumber = &number
	}
	return ticket
}

func clone(raw []byte) []byte {
	if raw == nil {
		return nil
	}
	out := make([]byte, len(raw))
	copy(out, raw)
	return out
}
