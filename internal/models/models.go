package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"payment-dispatcher/internal/timeutil"
)

func init() {
	decimal.MarshalJSONWithoutQuotes = true
}

type Processor string

const (
	ProcessorDefault  Processor = "default"
	ProcessorFallback Processor = "fallback"
)

// PendingPayment is a payment request waiting in the dispatch queue. It is
// also the POST /payments request body.
type PendingPayment struct {
	CorrelationID uuid.UUID       `json:"correlationId"`
	Amount        decimal.Decimal `json:"amount"`
}

// DispatchRecord is written to the ledger only after a processor confirmed
// the payment. RequestedAt is the dispatch instant, not the original
// submission time, and doubles as the ledger sort score.
type DispatchRecord struct {
	CorrelationID uuid.UUID
	Amount        decimal.Decimal
	RequestedAt   time.Time
	Processor     Processor
}

type dispatchRecordJSON struct {
	CorrelationID uuid.UUID       `json:"correlationId"`
	Amount        decimal.Decimal `json:"amount"`
	RequestedAt   string          `json:"requestedAt"`
	Processor     Processor       `json:"processor"`
}

func (r DispatchRecord) MarshalJSON() ([]byte, error) {
	return json.Marshal(dispatchRecordJSON{
		CorrelationID: r.CorrelationID,
		Amount:        r.Amount,
		RequestedAt:   timeutil.Format(r.RequestedAt),
		Processor:     r.Processor,
	})
}

func (r *DispatchRecord) UnmarshalJSON(data []byte) error {
	var aux dispatchRecordJSON
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	requestedAt, err := timeutil.Parse(aux.RequestedAt)
	if err != nil {
		return err
	}
	r.CorrelationID = aux.CorrelationID
	r.Amount = aux.Amount
	r.RequestedAt = requestedAt
	r.Processor = aux.Processor
	return nil
}

type HealthStatus struct {
	Failing         bool `json:"failing"`
	MinResponseTime int  `json:"minResponseTime"`
}

type ProcessorSummary struct {
	TotalRequests int64           `json:"totalRequests"`
	TotalAmount   decimal.Decimal `json:"totalAmount"`
}

type PaymentsSummary struct {
	Default  ProcessorSummary `json:"default"`
	Fallback ProcessorSummary `json:"fallback"`
}
