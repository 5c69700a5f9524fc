package billing

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/safeoutput/backoffice/internal/models"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/customer"
	"github.com/stripe/stripe-go/v76/webhook"
	"go.uber.org/zap"
)

// StripeConfig holds the Stripe credentials.
type StripeConfig struct {
	SecretKey     string
	WebhookSecret string
}

// StripeProcessor is the Stripe-backed PaymentProcessor.
type StripeProcessor struct {
	logger *zap.SugaredLogger
	config StripeConfig
}

func NewStripeProcessor(logger *zap.SugaredLogger, config StripeConfig) *StripeProcessor {
	stripe.Key = config.SecretKey
	return &StripeProcessor{
		logger: logger,
		config: config,
	}
}

func (p *StripeProcessor) EnsureCustomer(ctx context.Context, org *models.Organization, billingEmail string) (string, error) {
	if org.StripeCustomerID != nil && *org.StripeCustomerID != "" {
		return *org.StripeCustomerID, nil
	}
	params := &stripe.CustomerParams{
		Email: stripe.String(billingEmail),
		Name:  stripe.String(org.Name),
		Metadata: map[string]string{
			"organization_id": org.ID.String(),
		},
	}
	params.Context = ctx
	cust, err := customer.New(params)
	if err != nil {
		return "", fmt.Errorf("failed to create customer: %w", err)
	}
	return cust.ID, nil
}

func (p *StripeProcessor) GetCustomer(ctx context.Context, customerID string) (*Customer, error) {
	params := &stripe.CustomerParams{}
	params.Context = ctx
	cust, err := customer.Get(customerID, params)
	if err != nil {
		return nil, err
	}
	return &Customer{
		ID:    cust.ID,
		Email: cust.Email,
		Name:  cust.Name,
	}, nil
}

// ParseWebhook returns nil when the event type is one we do not act on.
func (p *StripeProcessor) ParseWebhook(payload []byte, signature string) (*SubscriptionEvent, error) {
	event, err := webhook.ConstructEvent(payload, signature, p.config.WebhookSecret)
	if err != nil {
		return nil, fmt.Errorf("webhook signature verification failed: %w", err)
	}

	switch event.Type {
	case "customer.subscription.created", "customer.subscription.updated", "customer.subscription.deleted":
	default:
		p.logger.Debugf("ignoring stripe webhook event type %s", event.Type)
		return nil, nil
	}

	var sub stripe.Subscription
	if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
		return nil, fmt.Errorf("failed to parse subscription payload: %w", err)
	}
	if sub.Customer == nil {
		return nil, fmt.Errorf("subscription event without a customer")
	}

	status := models.SubscriptionStatus(sub.Status)
	if event.Type == "customer.subscription.deleted" {
		status = models.SubscriptionCanceled
	}
	if !status.Valid() {
		return nil, fmt.Errorf("unknown subscription status %q", sub.Status)
	}
	return &SubscriptionEvent{
		CustomerID: sub.Customer.ID,
		Status:     status,
	}, nil
}
