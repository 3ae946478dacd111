package api

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/stripe/stripe-go/v84"
	"github.com/voice2post/voice2post/internal/billing"
	"github.com/voice2post/voice2post/internal/logging"
	"github.com/voice2post/voice2post/internal/respond"
)

const maxWebhookBody = 1 << 20

type BillingService interface {
	VerifyWebhookSignature(payload []byte, signature string) (*stripe.Event, error)
	CreateCheckout(ctx context.Context, userID, email, customerID string) (*stripe.CheckoutSession, error)
	CreatePortal(ctx context.Context, customerID string) (*stripe.BillingPortalSession, error)
}

type EventProcessor interface {
	Process(ctx context.Context, event *stripe.Event) (billing.EventKind, error)
}

type BillingHandler struct {
	billing   BillingService
	processor EventProcessor
}

func NewBillingHandler(svc BillingService, processor EventProcessor) *BillingHandler {
	return &BillingHandler{billing: svc, processor: processor}
}

type CheckoutResponse struct {
	SessionID string `json:"sessionId"`
	URL       string `json:"url"`
}

type PortalResponse struct {
	URL string `json:"url"`
}

func (h *BillingHandler) CreateCheckout(w http.ResponseWriter, r *http.Request) {
	user, prof, ok := caller(w, r)
	if !ok {
		return
	}
	if prof.IsPlus() {
		respond.Error(w, http.StatusBadRequest, "Already subscribed to Plus")
		return
	}

	customerID := ""
	if prof.StripeCustomerID != nil {
		customerID = *prof.StripeCustomerID
	}

	session, err := h.billing.CreateCheckout(r.Context(), user.ID, user.Email, customerID)
	if err != nil {
		logging.EnrichError(r.Context(), err, "checkout")
		respond.ErrorDetails(w, http.StatusInternalServerError, respond.ErrCodeInternalError, "Failed to create checkout session", err)
		return
	}

	respond.JSON(w, http.StatusOK, CheckoutResponse{SessionID: session.ID, URL: session.URL})
}

func (h *BillingHandler) CreatePortal(w http.ResponseWriter, r *http.Request) {
	_, prof, ok := caller(w, r)
	if !ok {
		return
	}
	if prof.StripeCustomerID == nil || *prof.StripeCustomerID == "" {
		respond.Error(w, http.StatusBadRequest, "No billing account found")
		return
	}

	session, err := h.billing.CreatePortal(r.Context(), *prof.StripeCustomerID)
	if err != nil {
		logging.EnrichError(r.Context(), err, "portal")
		respond.ErrorDetails(w, http.StatusInternalServerError, respond.ErrCodeInternalError, "Failed to create billing portal session", err)
		return
	}

	respond.JSON(w, http.StatusOK, PortalResponse{URL: session.URL})
}

// Webhook applies Stripe subscription events. Only a verified payload may
// change a plan; unknown event types are acknowledged untouched.
func (h *BillingHandler) Webhook(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBody))
	if err != nil {
		respond.Error(w, http.StatusBadRequest, "Failed to read request body")
		return
	}

	event, err := h.billing.VerifyWebhookSignature(payload, r.Header.Get(billing.SignatureHeader))
	if err != nil {
		logging.EnrichError(ctx, err, "webhook_verify")
		if errors.Is(err, billing.ErrMissingSignature) {
			respond.ErrorCode(w, http.StatusBadRequest, respond.ErrCodeInvalidSignature, "No signature")
			return
		}
		respond.ErrorCode(w, http.StatusBadRequest, respond.ErrCodeInvalidSignature, "Webhook signature verification failed")
		return
	}

	if _, err := h.processor.Process(ctx, event); err != nil {
		logging.EnrichError(ctx, err, "webhook_process")
		respond.ErrorDetails(w, http.StatusInternalServerError, respond.ErrCodeInternalError, "Webhook handler failed", err)
		return
	}

	respond.JSON(w, http.StatusOK, map[string]bool{"received": true})
}
