package processor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"payment-dispatcher/internal/models"
	"payment-dispatcher/internal/timeutil"
)

// StatusError is a processor reply with a non-2xx status. The worker treats
// it like any other dispatch failure, but tests and logs want the code.
type StatusError struct {
	Processor models.Processor
	Status    int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s processor returned status %d", e.Processor, e.Status)
}

// Client talks to one downstream payment processor instance.
type Client struct {
	name    models.Processor
	baseURL string
	http    *http.Client
}

func NewClient(name models.Processor, baseURL string, httpClient *http.Client) *Client {
	return &Client{
		name:    name,
		baseURL: baseURL,
		http:    httpClient,
	}
}

// DefaultHTTPClient is shared by both processor clients; the keep-alive pool
// is sized for a handful of workers, not a request-scoped client per call.
func DefaultHTTPClient() *http.Client {
	return &http.Client{
		Timeout: 5 * time.Second,
		Transport: &http.Transport{
			MaxIdleConns:        10,
			MaxIdleConnsPerHost: 5,
			IdleConnTimeout:     30 * time.Second,
		},
	}
}

func (c *Client) Name() models.Processor {
	return c.name
}

type paymentBody struct {
	CorrelationID uuid.UUID       `json:"correlationId"`
	Amount        decimal.Decimal `json:"amount"`
	RequestedAt   string          `json:"requestedAt"`
}

// ProcessPayment posts the payment and returns nil only on a 2xx reply.
// Anything else, transport errors included, is a dispatch failure.
func (c *Client) ProcessPayment(ctx context.Context, p models.PendingPayment, requestedAt time.Time) error {
	body, err := json.Marshal(paymentBody{
		CorrelationID: p.CorrelationID,
		Amount:        p.Amount,
		RequestedAt:   timeutil.Format(requestedAt),
	})
	if err != nil {
		return fmt.Errorf("error marshalling payment: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/payments", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("error creating payment request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("error sending payment to %s processor: %w", c.name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &StatusError{Processor: c.name, Status: resp.StatusCode}
	}
	return nil
}

func (c *Client) CheckHealth(ctx context.Context) (models.HealthStatus, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/payments/service-health", nil)
	if err != nil {
		return models.HealthStatus{}, fmt.Errorf("error creating health request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return models.HealthStatus{}, fmt.Errorf("error checking %s processor health: %w", c.name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return models.HealthStatus{}, &StatusError{Processor: c.name, Status: resp.StatusCode}
	}

	var status models.HealthStatus
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return models.HealthStatus{}, fmt.Errorf("error decoding %s health response: %w", c.name, err)
	}
	return status, nil
}
