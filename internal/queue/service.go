package queue

import (
	"context"
	"log/slog"
	"strings"

	"qrtrack/internal/models"
	"qrtrack/internal/notify"
	"qrtrack/internal/store"
)

// Outcome is the result of a status change: the persisted ticket, the status
// it held before, and the side effects the change produced.
type Outcome struct {
	Ticket   models.Ticket
	Previous models.Status
	Effects  []notify.Effect
}

type Service struct {
	store  store.TicketStore
	runner notify.Runner
	logger *slog.Logger
}

func NewService(st store.TicketStore, runner notify.Runner, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: st, runner: runner, logger: logger.With("component", "queue")}
}

func (s *Service) CreateTicket(ctx context.Context, input store.CreateTicketInput) (models.Ticket, error) {
	ticket, err := s.store.CreateTicket(ctx, input)
	if err != nil {
		return models.Ticket{}, err
	}
	s.logger.Info("ticket created", "ticket_id", ticket.ID, "business_id", ticket.BusinessID, "queue_id", ticket.QueueID)
	return ticket, nil
}

func (s *Service) ListTickets(ctx context.Context, filter store.TicketFilter) ([]models.Ticket, error) {
	filter, err := filter.Normalize()
	if err != nil {
		return nil, err
	}
	return s.store.ListTickets(ctx, filter)
}

func (s *Service) GetTicket(ctx context.Context, ticketID string) (models.Ticket, error) {
	return s.store.GetTicket(ctx, strings.TrimSpace(ticketID))
}

// ChangeStatus persists a new status and reports whether the ticket became
// next. The read and the write are separate store calls, so two concurrent
// changes may both observe the same previous status; the last write wins.
func (s *Service) ChangeStatus(ctx context.Context, ticketID string, raw string) (Outcome, error) {
	status, ok := models.ParseStatus(strings.TrimSpace(raw))
	if !ok {
		if strings.TrimSpace(raw) == "" {
			return Outcome{}, store.Invalid("status is required")
		}
		return Outcome{}, store.Invalid("status must be one of waiting, next, serving, completed, cancelled")
	}

	current, err := s.store.GetTicket(ctx, strings.TrimSpace(ticketID))
	if err != nil {
		return Outcome{}, err
	}
	if !store.Allowed(current.Status, status) {
		return Outcome{}, store.ErrTransitionNotAllowed
	}

	updated, err := s.store.UpdateStatus(ctx, current.ID, status)
	if err != nil {
		return Outcome{}, err
	}

	outcome := Outcome{Ticket: updated, Previous: current.Status}
	if current.Status != models.StatusNext && updated.Status == models.StatusNext {
		outcome.Effects = append(outcome.Effects, notify.Effect{Kind: notify.EffectBecameNext, Ticket: updated})
	}
	s.logger.Info("ticket status changed", "ticket_id", updated.ID, "from", current.Status, "to", updated.Status)
	return outcome, nil
}

// UpdateStatus changes the status and hands any effects to the runner. The
// update succeeds regardless of notification delivery.
func (s *Service) UpdateStatus(ctx context.Context, ticketID string, raw string) (models.Ticket, error) {
	outcome, err := s.ChangeStatus(ctx, ticketID, raw)
	if err != nil {
		return models.Ticket{}, err
	}
	if len(outcome.Effects) > 0 && s.runner != nil {
		s.runner.Run(ctx, outcome.Effects)
	}
	return outcome.Ticket, nil
}
