package queue

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"payment-dispatcher/internal/models"
)

// Queue items travel as "correlationId:amount". The amount keeps its decimal
// string form so precision survives the round trip.

// ParseError marks an item that cannot be decoded. There is no well-formed
// recovery for these, so callers drop and log instead of requeuing.
type ParseError struct {
	Raw string
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("malformed queue item '%s': %v", e.Raw, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

func encodeItem(p models.PendingPayment) string {
	return p.CorrelationID.String() + ":" + p.Amount.String()
}

func decodeItem(raw string) (models.PendingPayment, error) {
	idPart, amountPart, found := strings.Cut(raw, ":")
	if !found {
		return models.PendingPayment{}, &ParseError{Raw: raw, Err: fmt.Errorf("missing ':' separator")}
	}

	correlationID, err := uuid.Parse(idPart)
	if err != nil {
		return models.PendingPayment{}, &ParseError{Raw: raw, Err: fmt.Errorf("bad correlation id: %w", err)}
	}

	amount, err := decimal.NewFromString(amountPart)
	if err != nil {
		return models.PendingPayment{}, &ParseError{Raw: raw, Err: fmt.Errorf("bad amount: %w", err)}
	}

	return models.PendingPayment{CorrelationID: correlationID, Amount: amount}, nil
}
