package billing

import (
	"context"
	"errors"
	"fmt"

	"github.com/stripe/stripe-go/v84"
	"github.com/voice2post/voice2post/internal/logging"
	"github.com/voice2post/voice2post/internal/metrics"
	"github.com/voice2post/voice2post/internal/models"
	"github.com/voice2post/voice2post/internal/profile"
)

// PlanStore is the part of the profile repository the webhook mutates.
type PlanStore interface {
	GetByStripeCustomerID(ctx context.Context, stripeCustomerID string) (*models.Profile, error)
	ActivatePlus(ctx context.Context, userID, stripeCustomerID, stripeSubscriptionID string) error
	SetPlan(ctx context.Context, userID string, plan models.Plan) error
	ClearSubscription(ctx context.Context, userID string) error
}

type eventHandler func(ctx context.Context, event *stripe.Event) error

// EventProcessor applies verified payment events to profiles.
type EventProcessor struct {
	store    PlanStore
	handlers map[EventKind]eventHandler
}

func NewEventProcessor(store PlanStore) *EventProcessor {
	p := &EventProcessor{store: store}
	p.handlers = map[EventKind]eventHandler{
		KindCheckoutCompleted:   p.handleCheckoutCompleted,
		KindSubscriptionUpdated: p.handleSubscriptionUpdated,
		KindSubscriptionDeleted: p.handleSubscriptionDeleted,
	}
	return p
}

// Process dispatches event by kind. Unknown kinds are acknowledged and
// ignored. A returned error means the provider should retry.
func (p *EventProcessor) Process(ctx context.Context, event *stripe.Event) (EventKind, error) {
	kind := ParseEventKind(event.Type)
	logging.EnrichWebhook(ctx, kind.String(), event.ID)

	handler, ok := p.handlers[kind]
	if !ok {
		metrics.WebhookEvents.WithLabelValues(kind.String(), "ignored").Inc()
		logging.Logger(ctx).Info().Str("event_type", string(event.Type)).Msg("ignoring unhandled webhook event")
		return kind, nil
	}

	if err := handler(ctx, event); err != nil {
		metrics.WebhookEvents.WithLabelValues(kind.String(), "error").Inc()
		return kind, fmt.Errorf("%s: %w", kind, err)
	}
	metrics.WebhookEvents.WithLabelValues(kind.String(), "ok").Inc()
	return kind, nil
}

func (p *EventProcessor) handleCheckoutCompleted(ctx context.Context, event *stripe.Event) error {
	session, err := parseEventData[checkoutSession](event)
	if err != nil {
		return fmt.Errorf("failed to parse checkout session: %w", err)
	}

	userID := session.userID()
	if userID == "" {
		logging.Logger(ctx).Warn().Str("session", session.ID).Msg("checkout session carries no user id")
		return nil
	}

	err = p.store.ActivatePlus(ctx, userID, session.Customer, session.Subscription)
	if errors.Is(err, profile.ErrNotFound) {
		logging.Logger(ctx).Warn().Str("user_id", userID).Msg("checkout completed for unknown profile")
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to activate plus for user %s: %w", userID, err)
	}

	logging.EnrichUser(ctx, userID, "")
	logging.Logger(ctx).Info().Str("user_id", userID).Str("customer", session.Customer).Msg("user upgraded to plus")
	return nil
}

func (p *EventProcessor) handleSubscriptionUpdated(ctx context.Context, event *stripe.Event) error {
	sub, err := parseEventData[subscriptionEvent](event)
	if err != nil {
		return fmt.Errorf("failed to parse subscription: %w", err)
	}

	owner, ok, err := p.lookupCustomer(ctx, sub.Customer)
	if err != nil || !ok {
		return err
	}

	plan := models.PlanFree
	if sub.Status == stripe.SubscriptionStatusActive {
		plan = models.PlanPlus
	}
	if err := p.store.SetPlan(ctx, owner.ID, plan); err != nil {
		return fmt.Errorf("failed to set plan for user %s: %w", owner.ID, err)
	}

	logging.EnrichUser(ctx, owner.ID, "")
	logging.Logger(ctx).Info().Str("user_id", owner.ID).Str("status", string(sub.Status)).Str("plan", string(plan)).Msg("subscription updated")
	return nil
}

func (p *EventProcessor) handleSubscriptionDeleted(ctx context.Context, event *stripe.Event) error {
	sub, err := parseEventData[subscriptionEvent](event)
	if err != nil {
		return fmt.Errorf("failed to parse subscription: %w", err)
	}

	owner, ok, err := p.lookupCustomer(ctx, sub.Customer)
	if err != nil || !ok {
		return err
	}

	if err := p.store.ClearSubscription(ctx, owner.ID); err != nil {
		return fmt.Errorf("failed to clear subscription for user %s: %w", owner.ID, err)
	}

	logging.EnrichUser(ctx, owner.ID, "")
	logging.Logger(ctx).Info().Str("user_id", owner.ID).Str("subscription", sub.ID).Msg("user downgraded to free")
	return nil
}

// lookupCustomer finds the profile linked to customerID. An unknown
// customer is not an error: the event is acknowledged and dropped.
func (p *EventProcessor) lookupCustomer(ctx context.Context, customerID string) (*models.Profile, bool, error) {
	if customerID == "" {
		return nil, false, nil
	}
	owner, err := p.store.GetByStripeCustomerID(ctx, customerID)
	if errors.Is(err, profile.ErrNotFound) {
		logging.Logger(ctx).Warn().Str("customer", customerID).Msg("no profile for billing customer")
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to find profile for customer %s: %w", customerID, err)
	}
	return owner, true, nil
}
