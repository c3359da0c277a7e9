package handlers

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/fasthttp/router"
	"github.com/google/uuid"
	"github.com/valyala/fasthttp"

	"payment-dispatcher/internal/models"
	"payment-dispatcher/internal/timeutil"
)

type Enqueuer interface {
	Enqueue(ctx context.Context, p models.PendingPayment) error
	Purge(ctx context.Context) error
}

type SummaryStore interface {
	Summary(ctx context.Context, from, to *time.Time) (models.PaymentsSummary, error)
	Purge(ctx context.Context) error
}

type Handler struct {
	queue  Enqueuer
	ledger SummaryStore
}

func New(queue Enqueuer, ledger SummaryStore) *Handler {
	return &Handler{queue: queue, ledger: ledger}
}

func (h *Handler) Register(r *router.Router) {
	r.POST("/payments", h.HandlePayments)
	r.GET("/payments-summary", h.HandlePaymentsSummary)
	r.POST("/purge-payments", h.HandlePurgePayments)
}

// HandlePayments enqueues and answers 202 immediately. The caller never
// learns the dispatch outcome; retries against the processors are the
// workers' problem.
func (h *Handler) HandlePayments(ctx *fasthttp.RequestCtx) {
	var payment models.PendingPayment
	if err := json.Unmarshal(ctx.PostBody(), &payment); err != nil {
		writeError(ctx, fasthttp.StatusBadRequest, "invalid request body")
		return
	}
	if payment.CorrelationID == uuid.Nil {
		writeError(ctx, fasthttp.StatusBadRequest, "correlationId is required")
		return
	}
	if payment.Amount.Sign() <= 0 {
		writeError(ctx, fasthttp.StatusBadRequest, "amount must be greater than zero")
		return
	}

	if err := h.queue.Enqueue(ctx, payment); err != nil {
		log.Printf("handlers: enqueue failed: %v", err)
		writeError(ctx, fasthttp.StatusInternalServerError, "failed to accept payment")
		return
	}

	ctx.SetStatusCode(fasthttp.StatusAccepted)
}

func (h *Handler) HandlePaymentsSummary(ctx *fasthttp.RequestCtx) {
	from, err := queryTime(ctx, "from")
	if err != nil {
		writeError(ctx, fasthttp.StatusBadRequest, err.Error())
		return
	}
	to, err := queryTime(ctx, "to")
	if err != nil {
		writeError(ctx, fasthttp.StatusBadRequest, err.Error())
		return
	}

	summary, err := h.ledger.Summary(ctx, from, to)
	if err != nil {
		log.Printf("handlers: summary failed: %v", err)
		writeError(ctx, fasthttp.StatusInternalServerError, "failed to compute summary")
		return
	}

	writeJSON(ctx, fasthttp.StatusOK, summary)
}

func (h *Handler) HandlePurgePayments(ctx *fasthttp.RequestCtx) {
	if err := h.queue.Purge(ctx); err != nil {
		log.Printf("handlers: queue purge failed: %v", err)
		writeError(ctx, fasthttp.StatusInternalServerError, "failed to purge payments")
		return
	}
	if err := h.ledger.Purge(ctx); err != nil {
		log.Printf("handlers: ledger purge failed: %v", err)
		writeError(ctx, fasthttp.StatusInternalServerError, "failed to purge payments")
		return
	}

	ctx.SetStatusCode(fasthttp.StatusOK)
}

// queryTime parses an optional time bound. Absent or blank means unbounded;
// malformed is a validation error, never an empty result.
func queryTime(ctx *fasthttp.RequestCtx, name string) (*time.Time, error) {
	raw := string(ctx.QueryArgs().Peek(name))
	if raw == "" {
		return nil, nil
	}
	t, err := timeutil.ParseQuery(raw)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func writeJSON(ctx *fasthttp.RequestCtx, status int, body any) {
	ctx.SetContentType("application/json")
	ctx.SetStatusCode(status)
	if err := json.NewEncoder(ctx).Encode(body); err != nil {
		log.Printf("handlers: encoding response failed: %v", err)
	}
}

func writeError(ctx *fasthttp.RequestCtx, status int, message string) {
	writeJSON(ctx, status, map[string]string{"error": message})
}
