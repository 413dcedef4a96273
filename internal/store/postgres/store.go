package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"qrtrack/internal/models"
	"qrtrack/internal/store"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const uniqueViolation = "23505"

const ticketColumns = `ticket_id, business_id, queue_id, name, issue, status, notify_push, push_subscription, notify_whatsapp, whatsapp_number, created_at, updated_at`

type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func (s *Store) CreateTicket(ctx context.Context, input store.CreateTicketInput) (models.Ticket, error) {
	input, err := input.Normalize()
	if err != nil {
		return models.Ticket{}, err
	}
	if input.CreatedAt.IsZero() {
		input.CreatedAt = time.Now().UTC()
	}

	row := s.pool.QueryRow(ctx, `
		INSERT INTO tickets (
			ticket_id, business_id, queue_id, name, issue, status,
			notify_push, push_subscription, notify_whatsapp, whatsapp_number,
			created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$11)
		RETURNING `+ticketColumns,
		uuid.NewString(), input.BusinessID, input.QueueID, input.Name, input.Issue, string(models.StatusWaiting),
		input.NotifyPush, nullIfEmptyJSON(input.PushSubscription), input.NotifyWhatsapp, nullIfEmpty(input.WhatsappNumber),
		input.CreatedAt)

	ticket, err := scanTicket(row)
	if err != nil {
		return models.Ticket{}, fmt.Errorf("insert ticket: %w", err)
	}
	return ticket, nil
}

func (s *Store) ListTickets(ctx context.Context, filter store.TicketFilter) ([]models.Ticket, error) {
	filter, err := filter.Normalize()
	if err != nil {
		return nil, err
	}

	query := `SELECT ` + ticketColumns + `
		FROM tickets
		WHERE business_id = $1 AND queue_id = $2`
	args := []interface{}{filter.BusinessID, filter.QueueID}
	if filter.Status != "" {
		query += " AND status = $3"
		args = append(args, string(filter.Status))
	}
	query += " ORDER BY created_at ASC, ticket_id ASC"

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tickets := []models.Ticket{}
	for rows.Next() {
		ticket, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		tickets = append(tickets, ticket)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return tickets, nil
}

func (s *Store) GetTicket(ctx context.Context, ticketID string) (models.Ticket, error) {
	if !isValidUUID(ticketID) {
		return models.Ticket{}, store.ErrTicketNotFound
	}
	row := s.pool.QueryRow(ctx, `SELECT `+ticketColumns+` FROM tickets WHERE ticket_id = $1`, ticketID)
	ticket, err := scanTicket(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Ticket{}, store.ErrTicketNotFound
		}
		return models.Ticket{}, err
	}
	return ticket, nil
}

// UpdateStatus is a single-row write. Callers that need the previous status
// read it first; two concurrent updates resolve as last write wins.
func (s *Store) UpdateStatus(ctx context.Context, ticketID string, status models.Status) (models.Ticket, error) {
	if _, ok := models.ParseStatus(string(status)); !ok {
		return models.Ticket{}, store.Invalid("unknown status " + string(status))
	}
	if !isValidUUID(ticketID) {
		return models.Ticket{}, store.ErrTicketNotFound
	}

	row := s.pool.QueryRow(ctx, `
		UPDATE tickets
		SET status = $1, updated_at = GREATEST(created_at, $2)
		WHERE ticket_id = $3
		RETURNING `+ticketColumns, string(status), time.Now().UTC(), ticketID)
	ticket, err := scanTicket(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Ticket{}, store.ErrTicketNotFound
		}
		return models.Ticket{}, err
	}
	return ticket, nil
}

func (s *Store) CreateBusiness(ctx context.Context, input store.CreateBusinessInput) (models.Business, error) {
	createdAt := input.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	var business models.Business
	row := s.pool.QueryRow(ctx, `
		INSERT INTO businesses (business_id, business_name, email, password_hash, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING business_id, business_name, email, password_hash, created_at
	`, uuid.NewString(), input.BusinessName, normalizeEmail(input.Email), input.PasswordHash, createdAt)
	if err := row.Scan(&business.BusinessID, &business.BusinessName, &business.Email, &business.PasswordHash, &business.CreatedAt); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return models.Business{}, store.ErrEmailTaken
		}
		return models.Business{}, fmt.Errorf("insert business: %w", err)
	}
	return business, nil
}

func (s *Store) FindBusinessByEmail(ctx context.Context, email string) (models.Business, error) {
	var business models.Business
	row := s.pool.QueryRow(ctx, `
		SELECT business_id, business_name, email, password_hash, created_at
		FROM businesses
		WHERE lower(email) = lower($1)
	`, normalizeEmail(email))
	if err := row.Scan(&business.BusinessID, &business.BusinessName, &business.Email, &business.PasswordHash, &business.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Business{}, store.ErrBusinessNotFound
		}
		return models.Business{}, err
	}
	return business, nil
}

func scanTicket(row pgx.Row) (models.Ticket, error) {
	var ticket models.Ticket
	var status string
	var subscription []byte
	var whatsappNull sql.NullString
	if err := row.Scan(&ticket.ID, &ticket.BusinessID, &ticket.QueueID, &ticket.Name, &ticket.Issue, &status,
		&ticket.NotifyPush, &subscription, &ticket.NotifyWhatsapp, &whatsappNull, &ticket.CreatedAt, &ticket.UpdatedAt); err != nil {
		return models.Ticket{}, err
	}
	ticket.Status = models.Status(status)
	if len(subscription) > 0 {
		ticket.PushSubscription = subscription
	}
	ticket.WhatsappNumber = nullStringPtr(whatsappNull)
	return ticket, nil
}

func isValidUUID(value string) bool {
	_, err := uuid.Parse(value)
	return err == nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func nullIfEmpty(value string) interface{} {
	if value == "" {
		return nil
	}
	return value
}

func nullIfEmptyJSON(raw []byte) interface{} {
	if !models.HasPushSubscription(raw) {
		return nil
	}
	return string(raw)
}

func nullStringPtr(value sql.NullString) *string {
	if !value.Valid {
		return nil
	}
	return &value.String
}
