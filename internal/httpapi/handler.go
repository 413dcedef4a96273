package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"qrtrack/internal/board"
	"qrtrack/internal/models"
	"qrtrack/internal/store"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type TicketService interface {
	CreateTicket(ctx context.Context, input store.CreateTicketInput) (models.Ticket, error)
	ListTickets(ctx context.Context, filter store.TicketFilter) ([]models.Ticket, error)
	GetTicket(ctx context.Context, ticketID string) (models.Ticket, error)
	UpdateStatus(ctx context.Context, ticketID string, status string) (models.Ticket, error)
}

type AccountService interface {
	Register(ctx context.Context, businessName, email, password string) (models.Business, error)
	Login(ctx context.Context, email, password string) (models.Business, error)
}

type Handler struct {
	tickets        TicketService
	accounts       AccountService
	pollInterval   time.Duration
	vapidPublicKey string
	idempotency    func(http.Handler) http.Handler
	rateLimit      func(http.Handler) http.Handler
	logger         *slog.Logger
}

type Options struct {
	PollInterval   time.Duration
	VAPIDPublicKey string
	// Idempotency wraps POST /api/tickets when set.
	Idempotency func(http.Handler) http.Handler
	// RateLimit runs on every route after the request id is assigned.
	RateLimit func(http.Handler) http.Handler
	Logger    *slog.Logger
}

type registerRequest struct {
	BusinessName string `json:"businessName"`
	Email        string `json:"email"`
	Password     string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type accountResponse struct {
	Success      bool   `json:"success"`
	BusinessID   string `json:"businessId"`
	BusinessName string `json:"businessName"`
}

type createTicketRequest struct {
	BusinessID       string          `json:"businessId"`
	QueueID          string          `json:"queueId"`
	Name             string          `json:"name"`
	Issue            string          `json:"issue"`
	NotifyPush       bool            `json:"notifyPush"`
	PushSubscription json.RawMessage `json:"pushSubscription"`
	NotifyWhatsapp   bool            `json:"notifyWhatsapp"`
	WhatsappNumber   string          `json:"whatsappNumber"`
}

type updateStatusRequest struct {
	Status string `json:"status"`
}

type publicKeyResponse struct {
	PublicKey string `json:"publicKey"`
	Enabled   bool   `json:"enabled"`
}

type errorResponse struct {
	RequestID string        `json:"request_id"`
	Error     responseError `json:"error"`
}

type responseError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func NewHandler(tickets TicketService, accounts AccountService, options Options) *Handler {
	pollInterval := options.PollInterval
	if pollInterval <= 0 {
		pollInterval = 5 * time.Second
	}
	logger := options.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		tickets:        tickets,
		accounts:       accounts,
		pollInterval:   pollInterval,
		vapidPublicKey: options.VAPIDPublicKey,
		idempotency:    options.Idempotency,
		rateLimit:      options.RateLimit,
		logger:         logger.With("component", "httpapi"),
	}
}

func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(LoggingMiddleware(h.logger))
	r.Use(middleware.Recoverer)
	if h.rateLimit != nil {
		r.Use(h.rateLimit)
	}

	r.Get("/api/health", h.handleHealth)
	r.Post("/api/register", h.handleRegister)
	r.Post("/api/login", h.handleLogin)

	create := http.Handler(http.HandlerFunc(h.handleCreateTicket))
	if h.idempotency != nil {
		create = h.idempotency(create)
	}
	r.Method(http.MethodPost, "/api/tickets", create)
	r.Get("/api/tickets", h.handleListTickets)
	r.Get("/api/tickets/{id}", h.handleGetTicket)
	r.Patch("/api/tickets/{id}/status", h.handleUpdateStatus)

	r.Get("/api/display", h.handleDisplay)
	r.Get("/api/stats", h.handleStats)
	r.Get("/api/push/public-key", h.handlePublicKey)

	r.Handle("/metrics", promhttp.Handler())
	return r
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	business, err := h.accounts.Register(r.Context(), req.BusinessName, req.Email, req.Password)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, accountResponse{
		Success:      true,
		BusinessID:   business.BusinessID,
		BusinessName: business.BusinessName,
	})
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	business, err := h.accounts.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, accountResponse{
		Success:      true,
		BusinessID:   business.BusinessID,
		BusinessName: business.BusinessName,
	})
}

func (h *Handler) handleCreateTicket(w http.ResponseWriter, r *http.Request) {
	var req createTicketRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	ticket, err := h.tickets.CreateTicket(r.Context(), store.CreateTicketInput{
		BusinessID:       req.BusinessID,
		QueueID:          req.QueueID,
		Name:             req.Name,
		Issue:            req.Issue,
		NotifyPush:       req.NotifyPush,
		PushSubscription: req.PushSubscription,
		NotifyWhatsapp:   req.NotifyWhatsapp,
		WhatsappNumber:   req.WhatsappNumber,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, ticket)
}

func (h *Handler) handleListTickets(w http.ResponseWriter, r *http.Request) {
	filter, ok := h.queueFilter(w, r)
	if !ok {
		return
	}
	tickets, err := h.tickets.ListTickets(r.Context(), filter)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if tickets == nil {
		tickets = []models.Ticket{}
	}
	h.setPollInterval(w)
	writeJSON(w, http.StatusOK, tickets)
}

func (h *Handler) handleGetTicket(w http.ResponseWriter, r *http.Request) {
	ticket, err := h.tickets.GetTicket(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.setPollInterval(w)
	writeJSON(w, http.StatusOK, ticket)
}

func (h *Handler) handleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	var req updateStatusRequest
	if !decodeRequest(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Status) == "" {
		writeError(w, requestID(r), http.StatusBadRequest, "invalid_request", "status is required")
		return
	}

	ticket, err := h.tickets.UpdateStatus(r.Context(), chi.URLParam(r, "id"), req.Status)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ticket)
}

func (h *Handler) handleDisplay(w http.ResponseWriter, r *http.Request) {
	tickets, ok := h.queueTickets(w, r)
	if !ok {
		return
	}
	h.setPollInterval(w)
	writeJSON(w, http.StatusOK, board.BuildDisplay(tickets))
}

func (h *Handler) handleStats(w http.ResponseWriter, r *http.Request) {
	tickets, ok := h.queueTickets(w, r)
	if !ok {
		return
	}
	h.setPollInterval(w)
	writeJSON(w, http.StatusOK, board.BuildStats(tickets))
}

func (h *Handler) handlePublicKey(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, publicKeyResponse{
		PublicKey: h.vapidPublicKey,
		Enabled:   h.vapidPublicKey != "",
	})
}

func (h *Handler) queueFilter(w http.ResponseWriter, r *http.Request) (store.TicketFilter, bool) {
	query := r.URL.Query()
	filter := store.TicketFilter{
		BusinessID: strings.TrimSpace(query.Get("businessId")),
		QueueID:    strings.TrimSpace(query.Get("queueId")),
	}
	if raw := strings.TrimSpace(query.Get("status")); raw != "" {
		status, ok := models.ParseStatus(raw)
		if !ok {
			writeError(w, requestID(r), http.StatusBadRequest, "invalid_request", "status must be one of waiting, next, serving, completed, cancelled")
			return store.TicketFilter{}, false
		}
		filter.Status = status
	}
	if filter.BusinessID == "" || filter.QueueID == "" {
		writeError(w, requestID(r), http.StatusBadRequest, "invalid_request", "businessId and queueId are required")
		return store.TicketFilter{}, false
	}
	return filter, true
}

// queueTickets loads the whole partition; the status filter does not apply to
// derived views.
func (h *Handler) queueTickets(w http.ResponseWriter, r *http.Request) ([]models.Ticket, bool) {
	filter, ok := h.queueFilter(w, r)
	if !ok {
		return nil, false
	}
	filter.Status = ""
	tickets, err := h.tickets.ListTickets(r.Context(), filter)
	if err != nil {
		h.fail(w, r, err)
		return nil, false
	}
	return tickets, true
}

func (h *Handler) setPollInterval(w http.ResponseWriter) {
	w.Header().Set("X-Poll-Interval", strconv.Itoa(int(h.pollInterval/time.Second)))
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, code, msg := mapError(err)
	if status == http.StatusInternalServerError {
		h.logger.Error("request failed", "path", r.URL.Path, "request_id", requestID(r), "error", err)
	}
	writeError(w, requestID(r), status, code, msg)
}

func decodeRequest(w http.ResponseWriter, r *http.Request, target interface{}) bool {
	if r.Body == nil {
		writeError(w, requestID(r), http.StatusBadRequest, "invalid_json", "invalid JSON payload")
		return false
	}
	decoder := json.NewDecoder(r.Body)
	if err := decoder.Decode(target); err != nil {
		writeError(w, requestID(r), http.StatusBadRequest, "invalid_json", "invalid JSON payload")
		return false
	}
	return true
}

func requestID(r *http.Request) string {
	if id := middleware.GetReqID(r.Context()); id != "" {
		return id
	}
	return strings.TrimSpace(r.Header.Get(middleware.RequestIDHeader))
}

func mapError(err error) (int, string, string) {
	var validation *store.ValidationError
	switch {
	case errors.As(err, &validation):
		return http.StatusBadRequest, "invalid_request", validation.Message
	case errors.Is(err, store.ErrTicketNotFound):
		return http.StatusNotFound, "ticket_not_found", "ticket not found"
	case errors.Is(err, store.ErrTransitionNotAllowed):
		return http.StatusConflict, "invalid_transition", "ticket status does not allow this change"
	case errors.Is(err, store.ErrEmailTaken):
		return http.StatusBadRequest, "email_taken", "email already registered"
	case errors.Is(err, store.ErrInvalidCredentials):
		return http.StatusUnauthorized, "invalid_credentials", "invalid email or password"
	default:
		return http.StatusInternalServerError, "internal_error", "internal server error"
	}
}

func writeError(w http.ResponseWriter, requestID string, status int, code, message string) {
	writeJSON(w, status, errorResponse{
		RequestID: requestID,
		Error: responseError{
			Code:    code,
			Message: message,
		},
	})
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(payload)
}
