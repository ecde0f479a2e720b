package payment

import (
	"context"
	"errors"
)

// Intent statuses reported by the gateway that the order workflow cares
// about. Anything other than succeeded is treated as not-yet-paid.
const (
	IntentStatusSucceeded = "succeeded"
)

// EventIntentSucceeded is the webhook event type for a completed charge
const EventIntentSucceeded = "payment_intent.succeeded"

var (
	// ErrInvalidSignature is returned when a webhook payload fails
	// signature verification and must not be trusted
	ErrInvalidSignature = errors.New("invalid webhook signature")
)

// Intent is a charge intent handle returned by the gateway
type Intent struct {
	ID           string
	ClientSecret string
	Status       string
	Metadata     map[string]string
}

// Event is a verified webhook notification
type Event struct {
	Type   string
	Intent *Intent
}

// Gateway abstracts the external payment provider: create a charge intent
// for a fixed amount, and look an intent back up by id.
type Gateway interface {
	CreateIntent(ctx context.Context, amountCents int64, currency string, metadata map[string]string) (*Intent, error)
	RetrieveIntent(ctx context.Context, id string) (*Intent, error)
}

// WebhookVerifier authenticates webhook deliveries against the shared
// secret before their payload may be read
type WebhookVerifier interface {
	VerifyWebhook(payload []byte, signatureHeader string) (*Event, error)
}
