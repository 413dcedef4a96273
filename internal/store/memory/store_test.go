package memory

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"qrtrack/internal/models"
	"qrtrack/internal/store"
)

func TestCreateTicketDefaults(t *testing.T) {
	st := NewStore(Options{})
	ticket, err := st.CreateTicket(context.Background(), store.CreateTicketInput{
		BusinessID:     "b1",
		QueueID:        "q1",
		Name:           "Asha",
		Issue:          "Billing",
		NotifyPush:     true,
		NotifyWhatsapp: true,
		WhatsappNumber: "+911234567890",
	})
	if err != nil {
		t.Fatalf("create ticket: %v", err)
	}
	if ticket.ID == "" || ticket.Status != models.StatusWaiting {
		t.Fatalf("unexpected ticket: %+v", ticket)
	}
	if ticket.NotifyPush || ticket.PushSubscription != nil {
		t.Fatalf("expected push disabled without subscription: %+v", ticket)
	}
	if !ticket.NotifyWhatsapp || ticket.WhatsappNumber == nil || *ticket.WhatsappNumber != "+911234567890" {
		t.Fatalf("expected whatsapp enabled: %+v", ticket)
	}
	if !ticket.UpdatedAt.Equal(ticket.CreatedAt) {
		t.Fatalf("expected updated_at to equal created_at on create")
	}
}

func TestCreateTicketUsesStoreClock(t *testing.T) {
	now := time.Date(2026, 1, 12, 9, 30, 0, 0, time.UTC)
	st := NewStore(Options{Now: func() time.Time { return now }})

	ticket, err := st.CreateTicket(context.Background(), store.CreateTicketInput{BusinessID: "b1", QueueID: "q1", Name: "Asha"})
	if err != nil {
		t.Fatalf("create ticket: %v", err)
	}
	if !ticket.CreatedAt.Equal(now) || !ticket.UpdatedAt.Equal(now) {
		t.Fatalf("expected store clock on create, got created=%s updated=%s", ticket.CreatedAt, ticket.UpdatedAt)
	}
}

func TestListTicketsTrimsFilter(t *testing.T) {
	st := NewStore(Options{})
	createAt(t, st, "b1", "q1", "Asha", time.Date(2026, 1, 12, 8, 0, 0, 0, time.UTC))

	tickets, err := st.ListTickets(context.Background(), store.TicketFilter{BusinessID: "b1 ", QueueID: " q1"})
	if err != nil {
		t.Fatalf("list tickets: %v", err)
	}
	if len(tickets) != 1 {
		t.Fatalf("expected padded ids to match the partition, got %d tickets", len(tickets))
	}
}

func TestCreateTicketValidation(t *testing.T) {
	st := NewStore(Options{})
	_, err := st.CreateTicket(context.Background(), store.CreateTicketInput{BusinessID: "b1", QueueID: "q1"})
	if !store.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
	tickets, err := st.ListTickets(context.Background(), store.TicketFilter{BusinessID: "b1", QueueID: "q1"})
	if err != nil {
		t.Fatalf("list tickets: %v", err)
	}
	if len(tickets) != 0 {
		t.Fatalf("expected no tickets persisted, got %d", len(tickets))
	}
}

func TestListTicketsOrderAndFilter(t *testing.T) {
	st := NewStore(Options{})
	ctx := context.Background()
	base := time.Date(2026, 1, 12, 8, 0, 0, 0, time.UTC)

	third := createAt(t, st, "b1", "q1", "Cara", base.Add(2*time.Minute))
	first := createAt(t, st, "b1", "q1", "Asha", base)
	second := createAt(t, st, "b1", "q1", "Ben", base.Add(time.Minute))
	createAt(t, st, "b1", "q2", "Other queue", base)
	createAt(t, st, "b2", "q1", "Other business", base)

	tickets, err := st.ListTickets(ctx, store.TicketFilter{BusinessID: "b1", QueueID: "q1"})
	if err != nil {
		t.Fatalf("list tickets: %v", err)
	}
	want := []string{first.ID, second.ID, third.ID}
	if len(tickets) != len(want) {
		t.Fatalf("expected %d tickets, got %d", len(want), len(tickets))
	}
	for i, id := range want {
		if tickets[i].ID != id {
			t.Fatalf("ticket %d: expected %s, got %s", i, id, tickets[i].ID)
		}
	}

	if _, err := st.UpdateStatus(ctx, second.ID, models.StatusNext); err != nil {
		t.Fatalf("update status: %v", err)
	}
	filtered, err := st.ListTickets(ctx, store.TicketFilter{BusinessID: "b1", QueueID: "q1", Status: models.StatusNext})
	if err != nil {
		t.Fatalf("list filtered: %v", err)
	}
	if len(filtered) != 1 || filtered[0].ID != second.ID {
		t.Fatalf("unexpected filtered tickets: %+v", filtered)
	}
}

func TestListTicketsRequiresPartition(t *testing.T) {
	st := NewStore(Options{})
	if _, err := st.ListTickets(context.Background(), store.TicketFilter{QueueID: "q1"}); !store.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestUpdateStatus(t *testing.T) {
	now := time.Date(2026, 1, 12, 9, 0, 0, 0, time.UTC)
	st := NewStore(Options{Now: func() time.Time { return now }})
	ctx := context.Background()
	ticket := createAt(t, st, "b1", "q1", "Asha", now.Add(-time.Hour))

	updated, err := st.UpdateStatus(ctx, ticket.ID, models.StatusServing)
	if err != nil {
		t.Fatalf("update status: %v", err)
	}
	if updated.Status != models.StatusServing || !updated.UpdatedAt.Equal(now) {
		t.Fatalf("unexpected update: %+v", updated)
	}

	if _, err := st.UpdateStatus(ctx, ticket.ID, models.Status("done")); !store.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, err := st.UpdateStatus(ctx, "missing", models.StatusNext); !errors.Is(err, store.ErrTicketNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	got, err := st.GetTicket(ctx, ticket.ID)
	if err != nil {
		t.Fatalf("get ticket: %v", err)
	}
	if got.Status != models.StatusServing {
		t.Fatalf("expected serving, got %s", got.Status)
	}
}

func TestReturnedTicketsAreCopies(t *testing.T) {
	st := NewStore(Options{})
	ctx := context.Background()
	ticket, err := st.CreateTicket(ctx, store.CreateTicketInput{
		BusinessID:       "b1",
		QueueID:          "q1",
		Name:             "Asha",
		PushSubscription: json.RawMessage(`{"endpoint":"https://push.example/1"}`),
	})
	if err != nil {
		t.Fatalf("create ticket: %v", err)
	}
	ticket.PushSubscription[0] = 'X'

	got, err := st.GetTicket(ctx, ticket.ID)
	if err != nil {
		t.Fatalf("get ticket: %v", err)
	}
	if got.PushSubscription[0] != '{' || !got.NotifyPush {
		t.Fatalf("stored ticket mutated through returned value: %s", got.PushSubscription)
	}
}

func TestCreateBusinessDuplicateEmail(t *testing.T) {
	st := NewStore(Options{})
	ctx := context.Background()
	first, err := st.CreateBusiness(ctx, store.CreateBusinessInput{BusinessName: "Clinic", Email: "Owner@Example.com", PasswordHash: "h1"})
	if err != nil {
		t.Fatalf("create business: %v", err)
	}
	if _, err := st.CreateBusiness(ctx, store.CreateBusinessInput{BusinessName: "Copy", Email: "owner@example.com ", PasswordHash: "h2"}); !errors.Is(err, store.ErrEmailTaken) {
		t.Fatalf("expected email taken, got %v", err)
	}
	found, err := st.FindBusinessByEmail(ctx, "OWNER@example.com")
	if err != nil {
		t.Fatalf("find business: %v", err)
	}
	if found.BusinessID != first.BusinessID || found.BusinessName != "Clinic" || found.PasswordHash != "h1" {
		t.Fatalf("first business changed: %+v", found)
	}
}

func createAt(t *testing.T, st *Store, businessID, queueID, name string, createdAt time.Time) models.Ticket {
	t.Helper()
	ticket, err := st.CreateTicket(context.Background(), store.CreateTicketInput{
		BusinessID: businessID,
		QueueID:    queueID,
		Name:       name,
		CreatedAt:  createdAt,
	})
	if err != nil {
		t.Fatalf("create ticket: %v", err)
	}
	return ticket
}
