package processor

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"payment-dispatcher/internal/models"
)

func TestProcessPaymentSendsWireFormat(t *testing.T) {
	var got struct {
		CorrelationID string          `json:"correlationId"`
		Amount        decimal.Decimal `json:"amount"`
		RequestedAt   string          `json:"requestedAt"`
	}
	var calls atomic.Int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/payments" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("content type = %q", ct)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decoding body: %v", err)
		}
		calls.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client := NewClient(models.ProcessorDefault, srv.URL, srv.Client())
	payment := models.PendingPayment{
		CorrelationID: uuid.MustParse("c0ffee00-1234-4321-aaaa-bbbbccccdddd"),
		Amount:        decimal.RequireFromString("10.50"),
	}
	requestedAt := time.Date(2025, 6, 1, 8, 30, 0, 250_000_000, time.UTC)

	if err := client.ProcessPayment(context.Background(), payment, requestedAt); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if calls.Load() != 1 {
		t.Fatalf("expected 1 call, got %d", calls.Load())
	}
	if got.CorrelationID != payment.CorrelationID.String() {
		t.Errorf("correlationId = %q", got.CorrelationID)
	}
	if !got.Amount.Equal(payment.Amount) {
		t.Errorf("amount = %s, want %s", got.Amount, payment.Amount)
	}
	if got.RequestedAt != "2025-06-01T08:30:00.250Z" {
		t.Errorf("requestedAt = %q", got.RequestedAt)
	}
}

func TestProcessPaymentNon2xxIsStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := NewClient(models.ProcessorFallback, srv.URL, srv.Client())

	err := client.ProcessPayment(context.Background(), models.PendingPayment{
		CorrelationID: uuid.New(),
		Amount:        decimal.RequireFromString("1.00"),
	}, time.Now().UTC())

	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("expected *StatusError, got %T: %v", err, err)
	}
	if statusErr.Status != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", statusErr.Status)
	}
	if statusErr.Processor != models.ProcessorFallback {
		t.Errorf("processor = %s, want fallback", statusErr.Processor)
	}
}

func TestProcessPaymentTransportErrorFails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	srv.Close() // refuse connections

	client := NewClient(models.ProcessorDefault, srv.URL, &http.Client{Timeout: time.Second})

	err := client.ProcessPayment(context.Background(), models.PendingPayment{
		CorrelationID: uuid.New(),
		Amount:        decimal.RequireFromString("1.00"),
	}, time.Now().UTC())
	if err == nil {
		t.Fatal("expected transport error")
	}
}

func TestCheckHealth(t *testing.T) {
	cases := []struct {
		name        string
		body        string
		wantFailing bool
		wantMinTime int
	}{
		{"healthy", `{"failing":false,"minResponseTime":12}`, false, 12},
		{"failing", `{"failing":true,"minResponseTime":1500}`, true, 1500},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/payments/service-health" {
					t.Errorf("unexpected path %s", r.URL.Path)
				}
				w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			client := NewClient(models.ProcessorDefault, srv.URL, srv.Client())
			status, err := client.CheckHealth(context.Background())
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if status.Failing != tc.wantFailing || status.MinResponseTime != tc.wantMinTime {
				t.Fatalf("status = %+v", status)
			}
		})
	}
}

func TestCheckHealthNon200IsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	client := NewClient(models.ProcessorDefault, srv.URL, srv.Client())
	if _, err := client.CheckHealth(context.Background()); err == nil {
		t.Fatal("expected error for 429 health reply")
	}
}
