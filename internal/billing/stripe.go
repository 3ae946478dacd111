package billing

import (
	"context"
	"errors"
	"fmt"

	"github.com/stripe/stripe-go/v84"
	"github.com/stripe/stripe-go/v84/webhook"
)

const (
	MetadataUserID  = "userId"
	SignatureHeader = "Stripe-Signature"
)

var (
	ErrMissingSignature = errors.New("no signature")
	ErrInvalidSignature = errors.New("webhook signature verification failed")
	ErrNoCustomer       = errors.New("no billing customer on file")
)

type Billing struct {
	sc            *stripe.Client
	webhookSecret string
	plusPriceID   string
	appURL        string
}

func NewBilling(secretKey, webhookSecret, plusPriceID, appURL string) *Billing {
	return &Billing{
		sc:            stripe.NewClient(secretKey),
		webhookSecret: webhookSecret,
		plusPriceID:   plusPriceID,
		appURL:        appURL,
	}
}

func (b *Billing) PlusPriceID() string {
	return b.plusPriceID
}

// VerifyWebhookSignature checks signature over the raw payload. The event
// API version is not pinned so account upgrades do not break delivery.
func (b *Billing) VerifyWebhookSignature(payload []byte, signature string) (*stripe.Event, error) {
	if signature == "" {
		return nil, ErrMissingSignature
	}
	event, err := webhook.ConstructEventWithOptions(payload, signature, b.webhookSecret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	return &event, nil
}

// CreateCheckout opens a Plus subscription checkout for userID. The user id
// travels in both session and subscription metadata.
func (b *Billing) CreateCheckout(ctx context.Context, userID, email, customerID string) (*stripe.CheckoutSession, error) {
	if b.plusPriceID == "" {
		return nil, errors.New("plus price is not configured")
	}
	metadata := map[string]string{MetadataUserID: userID}
	params := &stripe.CheckoutSessionCreateParams{
		Mode:              stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		ClientReferenceID: stripe.String(userID),
		LineItems: []*stripe.CheckoutSessionCreateLineItemParams{
			{
				Price:    stripe.String(b.plusPriceID),
				Quantity: stripe.Int64(1),
			},
		},
		SuccessURL: stripe.String(b.appURL + "/record?upgraded=true"),
		CancelURL:  stripe.String(b.appURL + "/upgrade?canceled=true"),
		Metadata:   metadata,
		SubscriptionData: &stripe.CheckoutSessionCreateSubscriptionDataParams{
			Metadata: metadata,
		},
	}
	switch {
	case customerID != "":
		params.Customer = stripe.String(customerID)
	case email != "":
		params.CustomerEmail = stripe.String(email)
	}

	session, err := b.sc.V1CheckoutSessions.Create(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("failed to create checkout session: %w", err)
	}
	return session, nil
}

func (b *Billing) CreatePortal(ctx context.Context, customerID string) (*stripe.BillingPortalSession, error) {
	if customerID == "" {
		return nil, ErrNoCustomer
	}
	session, err := b.sc.V1BillingPortalSessions.Create(ctx, &stripe.BillingPortalSessionCreateParams{
		Customer:  stripe.String(customerID),
		ReturnURL: stripe.String(b.appURL + "/upgrade"),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create portal session: %w", err)
	}
	return session, nil
}
