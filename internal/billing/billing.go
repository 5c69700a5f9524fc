// Package billing integrates with the external payment processor. The core
// never talks to it; the HTTP layer links organizations to payment
// customers and applies subscription status updates pushed by webhooks.
package billing

import (
	"context"

	"github.com/safeoutput/backoffice/internal/models"
)

// Customer is the processor-side record an organization is linked to.
type Customer struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

// SubscriptionEvent is a processor webhook notification reduced to what the
// back office cares about: which customer, and what status they are in now.
type SubscriptionEvent struct {
	CustomerID string
	Status     models.SubscriptionStatus
}

// PaymentProcessor abstracts the payment provider.
type PaymentProcessor interface {
	// EnsureCustomer returns the processor customer id for the
	// organization, creating the customer when none is linked yet.
	EnsureCustomer(ctx context.Context, org *models.Organization, billingEmail string) (string, error)
	// GetCustomer fetches the linked customer record.
	GetCustomer(ctx context.Context, customerID string) (*Customer, error)
	// ParseWebhook verifies the webhook signature and extracts the
	// subscription event, if the payload carries one.
	ParseWebhook(payload []byte, signature string) (*SubscriptionEvent, error)
}
