package billing

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/serenitylabs/wellness_layer/pkg/logger"
)

// ProviderSubscription is the payment provider's view of a subscription.
type ProviderSubscription struct {
	ID               string
	CustomerID       string
	Status           string
	CurrentPeriodEnd time.Time
}

// Provider is the payment processor the billing service charges through.
type Provider interface {
	CreateSubscription(ctx context.Context, customerID, customerEmail, priceID string) (ProviderSubscription, error)
	CancelSubscription(ctx context.Context, providerSubID string) error
}

// HTTPProvider talks to a Stripe-compatible REST API.
type HTTPProvider struct {
	client   *http.Client
	endpoint string
	apiKey   string
	log      *logger.Logger
}

// NewHTTPProvider constructs a payment provider client.
func NewHTTPProvider(client *http.Client, endpoint, apiKey string, log *logger.Logger) (*HTTPProvider, error) {
	endpoint = strings.TrimRight(strings.TrimSpace(endpoint), "/")
	if endpoint == "" {
		return nil, fmt.Errorf("payments endpoint required")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("payments api key required")
	}
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	if log == nil {
		log = logger.NewDefault("payments")
	}
	return &HTTPProvider{client: client, endpoint: endpoint, apiKey: apiKey, log: log}, nil
}

type providerSubscriptionPayload struct {
	ID               string `json:"id"`
	Customer         string `json:"customer"`
	Status           string `json:"status"`
	CurrentPeriodEnd int64  `json:"current_period_end"`
}

func (p *HTTPProvider) CreateSubscription(ctx context.Context, customerID, customerEmail, priceID string) (ProviderSubscription, error) {
	form := url.Values{}
	form.Set("items[0][price]", priceID)
	if customerID != "" {
		form.Set("customer", customerID)
	} else {
		form.Set("customer_email", customerEmail)
	}

	payload, err := p.post(ctx, "/subscriptions", form)
	if err != nil {
		return ProviderSubscription{}, err
	}
	return ProviderSubscription{
		ID:               payload.ID,
		CustomerID:       payload.Customer,
		Status:           payload.Status,
		CurrentPeriodEnd: time.Unix(payload.CurrentPeriodEnd, 0).UTC(),
	}, nil
}

func (p *HTTPProvider) CancelSubscription(ctx context.Context, providerSubID string) error {
	form := url.Values{}
	form.Set("cancel_at_period_end", "true")
	_, err := p.post(ctx, "/subscriptions/"+url.PathEscape(providerSubID), form)
	return err
}

func (p *HTTPProvider) post(ctx context.Context, path string, form url.Values) (providerSubscriptionPayload, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint+path, strings.NewReader(form.Encode()))
	if err != nil {
		return providerSubscriptionPayload{}, fmt.Errorf("build payments request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return providerSubscriptionPayload{}, fmt.Errorf("payments request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return providerSubscriptionPayload{}, fmt.Errorf("payments status %d", resp.StatusCode)
	}

	var payload providerSubscriptionPayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return providerSubscriptionPayload{}, fmt.Errorf("decode payments response: %w", err)
	}
	return payload, nil
}
