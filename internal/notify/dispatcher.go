package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"qrtrack/internal/models"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

type Channel string

const (
	ChannelPush     Channel = "push"
	ChannelWhatsapp Channel = "whatsapp"
)

const defaultTimeout = 5 * time.Second

// PushSender delivers an encrypted web push message to a stored browser
// subscription.
type PushSender interface {
	SendPush(ctx context.Context, subscription json.RawMessage, payload []byte) error
}

// WhatsappSender relays a text message to a phone number.
type WhatsappSender interface {
	SendWhatsapp(ctx context.Context, number, text string) error
}

// DispatchError wraps a delivery failure on one channel. It is reported and
// logged, never returned to the HTTP caller.
type DispatchError struct {
	Channel Channel
	Err     error
}

func (e *DispatchError) Error() string {
	return fmt.Sprintf("%s dispatch: %v", e.Channel, e.Err)
}

func (e *DispatchError) Unwrap() error {
	return e.Err
}

type Outcome string

const (
	OutcomeSent         Outcome = "sent"
	OutcomeFailed       Outcome = "failed"
	OutcomeNotRequested Outcome = "not_requested"
	OutcomeDisabled     Outcome = "disabled"
)

type Attempt struct {
	Channel Channel
	Outcome Outcome
	Err     error
}

func (a Attempt) Attempted() bool {
	return a.Outcome == OutcomeSent || a.Outcome == OutcomeFailed
}

type Report struct {
	TicketID string
	Push     Attempt
	Whatsapp Attempt
}

func (r Report) Err() error {
	return errors.Join(r.Push.Err, r.Whatsapp.Err)
}

type PushMessage struct {
	Title    string `json:"title"`
	Body     string `json:"body"`
	TicketID string `json:"ticketId"`
}

func NextPushMessage(ticket models.Ticket) PushMessage {
	return PushMessage{
		Title:    "Your ticket is next 🎟️",
		Body:     fmt.Sprintf("Please get ready, your turn is coming (Ticket %s).", ticket.Label()),
		TicketID: ticket.ID,
	}
}

func NextWhatsappText(ticket models.Ticket) string {
	return fmt.Sprintf("🎫 QRtrack Alert\nYour ticket is NEXT. Please proceed to the counter. (Ticket %s)", ticket.Label())
}

type Options struct {
	Timeout time.Duration
	Logger  *slog.Logger
}

// Dispatcher sends the "your ticket is next" notification. A nil sender
// disables its channel.
type Dispatcher struct {
	push     PushSender
	whatsapp WhatsappSender
	timeout  time.Duration
	logger   *slog.Logger
}

func NewDispatcher(push PushSender, whatsapp WhatsappSender, options Options) *Dispatcher {
	timeout := options.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	logger := options.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		push:     push,
		whatsapp: whatsapp,
		timeout:  timeout,
		logger:   logger.With("component", "notify"),
	}
}

func (d *Dispatcher) PushEnabled() bool {
	return d.push != nil
}

func (d *Dispatcher) WhatsappEnabled() bool {
	return d.whatsapp != nil
}

// Dispatch runs the push and WhatsApp deliveries concurrently and waits for
// both. Neither retries and neither cancels the other.
func (d *Dispatcher) Dispatch(ctx context.Context, ticket models.Ticket) Report {
	ctx, span := otel.Tracer("qrtrack/notify").Start(ctx, "notify.dispatch")
	defer span.End()
	span.SetAttributes(attribute.String("ticket.id", ticket.ID))

	report := Report{TicketID: ticket.ID}
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		report.Push = d.sendPush(ctx, ticket)
	}()
	go func() {
		defer wg.Done()
		report.Whatsapp = d.sendWhatsapp(ctx, ticket)
	}()
	wg.Wait()

	if err := report.Err(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "notification delivery failed")
	}
	return report
}

func (d *Dispatcher) sendPush(ctx context.Context, ticket models.Ticket) Attempt {
	attempt := Attempt{Channel: ChannelPush}
	switch {
	case !ticket.NotifyPush || !models.HasPushSubscription(ticket.PushSubscription):
		attempt.Outcome = OutcomeNotRequested
	case d.push == nil:
		attempt.Outcome = OutcomeDisabled
		d.logger.Info("push disabled, skipping", "ticket_id", ticket.ID)
	default:
		payload, err := json.Marshal(NextPushMessage(ticket))
		if err == nil {
			sendCtx, cancel := context.WithTimeout(ctx, d.timeout)
			err = d.push.SendPush(sendCtx, ticket.PushSubscription, payload)
			cancel()
		}
		attempt = d.finish(attempt, ticket, err)
	}
	recordOutcome(attempt)
	return attempt
}

func (d *Dispatcher) sendWhatsapp(ctx context.Context, ticket models.Ticket) Attempt {
	attempt := Attempt{Channel: ChannelWhatsapp}
	switch {
	case !ticket.NotifyWhatsapp || ticket.WhatsappNumber == nil || *ticket.WhatsappNumber == "":
		attempt.Outcome = OutcomeNotRequested
	case d.whatsapp == nil:
		attempt.Outcome = OutcomeDisabled
		d.logger.Info("whatsapp disabled, skipping", "ticket_id", ticket.ID)
	default:
		sendCtx, cancel := context.WithTimeout(ctx, d.timeout)
		err := d.whatsapp.SendWhatsapp(sendCtx, *ticket.WhatsappNumber, NextWhatsappText(ticket))
		cancel()
		attempt = d.finish(attempt, ticket, err)
	}
	recordOutcome(attempt)
	return attempt
}

func (d *Dispatcher) finish(attempt Attempt, ticket models.Ticket, err error) Attempt {
	if err != nil {
		attempt.Outcome = OutcomeFailed
		attempt.Err = &DispatchError{Channel: attempt.Channel, Err: err}
		d.logger.Error("notification failed", "channel", attempt.Channel, "ticket_id", ticket.ID, "error", err)
		return attempt
	}
	attempt.Outcome = OutcomeSent
	d.logger.Info("notification sent", "channel", attempt.Channel, "ticket_id", ticket.ID)
	return attempt
}
