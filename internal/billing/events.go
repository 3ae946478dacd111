package billing

import (
	"encoding/json"

	"github.com/stripe/stripe-go/v84"
)

// EventKind is the closed set of payment events that change a plan.
type EventKind int

const (
	KindUnknown EventKind = iota
	KindCheckoutCompleted
	KindSubscriptionUpdated
	KindSubscriptionDeleted
)

func (k EventKind) String() string {
	switch k {
	case KindCheckoutCompleted:
		return "checkout_completed"
	case KindSubscriptionUpdated:
		return "subscription_updated"
	case KindSubscriptionDeleted:
		return "subscription_deleted"
	default:
		return "unknown"
	}
}

func ParseEventKind(t stripe.EventType) EventKind {
	switch t {
	case stripe.EventTypeCheckoutSessionCompleted:
		return KindCheckoutCompleted
	case stripe.EventTypeCustomerSubscriptionUpdated:
		return KindSubscriptionUpdated
	case stripe.EventTypeCustomerSubscriptionDeleted:
		return KindSubscriptionDeleted
	default:
		return KindUnknown
	}
}

func parseEventData[T any](event *stripe.Event) (*T, error) {
	var data T
	if event.Data == nil {
		return &data, nil
	}
	if err := json.Unmarshal(event.Data.Raw, &data); err != nil {
		return nil, err
	}
	return &data, nil
}

type checkoutSession struct {
	ID                string            `json:"id"`
	Customer          string            `json:"customer"`
	Subscription      string            `json:"subscription"`
	ClientReferenceID string            `json:"client_reference_id"`
	Metadata          map[string]string `json:"metadata"`
}

func (s *checkoutSession) userID() string {
	if id := s.Metadata[MetadataUserID]; id != "" {
		return id
	}
	return s.ClientReferenceID
}

type subscriptionEvent struct {
	ID       string                    `json:"id"`
	Customer string                    `json:"customer"`
	Status   stripe.SubscriptionStatus `json:"status"`
}
