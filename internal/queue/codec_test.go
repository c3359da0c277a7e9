package queue

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"payment-dispatcher/internal/models"
)

func TestCodecRoundTrip(t *testing.T) {
	original := models.PendingPayment{
		CorrelationID: uuid.MustParse("9b1c3e04-95ea-4f65-8b7e-6f8d1b2e3c4d"),
		Amount:        decimal.RequireFromString("19.90"),
	}

	decoded, err := decodeItem(encodeItem(original))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded.CorrelationID != original.CorrelationID {
		t.Errorf("correlation id changed: %s", decoded.CorrelationID)
	}
	if !decoded.Amount.Equal(original.Amount) {
		t.Errorf("amount changed: %s", decoded.Amount)
	}
}

func TestEncodeItemWireFormat(t *testing.T) {
	p := models.PendingPayment{
		CorrelationID: uuid.MustParse("9b1c3e04-95ea-4f65-8b7e-6f8d1b2e3c4d"),
		Amount:        decimal.RequireFromString("0.30"),
	}

	want := "9b1c3e04-95ea-4f65-8b7e-6f8d1b2e3c4d:0.30"
	if got := encodeItem(p); got != want {
		t.Fatalf("encodeItem = %q, want %q", got, want)
	}
}

func TestDecodeItemMalformed(t *testing.T) {
	cases := []struct {
		name string
		raw  string
	}{
		{"no separator", "9b1c3e04-95ea-4f65-8b7e-6f8d1b2e3c4d"},
		{"bad uuid", "not-a-uuid:10.50"},
		{"bad amount", "9b1c3e04-95ea-4f65-8b7e-6f8d1b2e3c4d:ten"},
		{"empty", ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := decodeItem(tc.raw)
			if err == nil {
				t.Fatal("expected error")
			}
			var parseErr *ParseError
			if !errors.As(err, &parseErr) {
				t.Fatalf("expected *ParseError, got %T: %v", err, err)
			}
			if parseErr.Raw != tc.raw {
				t.Fatalf("ParseError.Raw = %q, want %q", parseErr.Raw, tc.raw)
			}
		})
	}
}
