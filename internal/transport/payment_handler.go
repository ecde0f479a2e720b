package transport

import (
	"errors"
	"io"
	"net/http"

	"shopfront/internal/domain"
	"shopfront/internal/middleware"
	"shopfront/internal/payment"
	"shopfront/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// maxWebhookBodyBytes bounds webhook payload reads
const maxWebhookBodyBytes = 65536

// CreateIntentRequest starts payment for a pending order
type CreateIntentRequest struct {
	OrderID string `json:"order_id" validate:"required,uuid"`
}

// ConfirmPaymentRequest reports a client-side payment completion for
// server-side verification
type ConfirmPaymentRequest struct {
	OrderID         string `json:"order_id" validate:"required,uuid"`
	PaymentIntentID string `json:"payment_intent_id" validate:"required"`
}

// CreateIntentResponse carries the client secret the frontend needs to
// complete the charge
type CreateIntentResponse struct {
	ClientSecret string `json:"client_secret"`
	OrderID      string `json:"order_id"`
	Amount       string `json:"amount"`
}

// PaymentHandler handles HTTP requests for the payment flow. The webhook
// route is unauthenticated; its payload is trusted only after signature
// verification.
type PaymentHandler struct {
	paymentService service.PaymentService
	verifier       payment.WebhookVerifier
	logger         *zap.Logger
}

// NewPaymentHandler creates a new PaymentHandler
func NewPaymentHandler(paymentService service.PaymentService, verifier payment.WebhookVerifier, logger *zap.Logger) *PaymentHandler {
	return &PaymentHandler{
		paymentService: paymentService,
		verifier:       verifier,
		logger:         logger,
	}
}

// RegisterRoutes registers all payment routes
func (h *PaymentHandler) RegisterRoutes(r chi.Router, authMiddleware func(http.Handler) http.Handler) {
	r.Route("/api/payments", func(r chi.Router) {
		r.Post("/webhook", h.Webhook)

		r.Group(func(r chi.Router) {
			r.Use(authMiddleware)
			r.Post("/create-payment-intent", h.CreateIntent)
			r.Post("/confirm-payment", h.Confirm)
			r.Get("/history", h.History)
		})
	})
}

// CreateIntent requests a charge intent from the gateway for one of the
// caller's pending orders
func (h *PaymentHandler) CreateIntent(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		middleware.RespondWithError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req CreateIntentRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		h.logger.Debug("Create intent validation failed", zap.Error(err))

		if validationErrors := middleware.FormatValidationErrors(err); len(validationErrors) > 0 {
			middleware.RespondWithValidationErrors(w, validationErrors)
			return
		}

		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	orderID, err := uuid.Parse(req.OrderID)
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid order id")
		return
	}

	result, err := h.paymentService.CreateIntent(r.Context(), userID, orderID)
	if err != nil {
		h.logger.Warn("Failed to create payment intent",
			zap.String("order_id", orderID.String()),
			zap.Error(err),
		)
		respondServiceError(w, h.logger, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, CreateIntentResponse{
		ClientSecret: result.ClientSecret,
		OrderID:      result.Order.ID.String(),
		Amount:       result.Order.TotalAmount.StringFixed(2),
	})
}

// Confirm verifies a completed charge with the gateway and marks the order
// paid. Safe to repeat; a second confirmation is a no-op.
func (h *PaymentHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		middleware.RespondWithError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req ConfirmPaymentRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		h.logger.Debug("Confirm payment validation failed", zap.Error(err))

		if validationErrors := middleware.FormatValidationErrors(err); len(validationErrors) > 0 {
			middleware.RespondWithValidationErrors(w, validationErrors)
			return
		}

		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	orderID, err := uuid.Parse(req.OrderID)
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid order id")
		return
	}

	order, err := h.paymentService.Confirm(r.Context(), userID, orderID, req.PaymentIntentID)
	if err != nil {
		h.logger.Warn("Payment confirmation failed",
			zap.String("order_id", orderID.String()),
			zap.Error(err),
		)
		respondServiceError(w, h.logger, err)
		return
	}

	h.logger.Info("Payment confirmed",
		zap.String("order_id", order.ID.String()),
		zap.String("status", string(order.Status)),
	)
	middleware.RespondWithJSON(w, http.StatusOK, order)
}

// Webhook receives asynchronous gateway notifications. The raw body is
// verified against the signature header before any of it is parsed; an
// unverifiable delivery gets a 400 and no state changes.
func (h *PaymentHandler) Webhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBodyBytes))
	if err != nil {
		h.logger.Error("Failed to read webhook body", zap.Error(err))
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	event, err := h.verifier.VerifyWebhook(body, r.Header.Get("Stripe-Signature"))
	if err != nil {
		if errors.Is(err, payment.ErrInvalidSignature) {
			h.logger.Warn("Webhook signature verification failed", zap.Error(err))
			middleware.RespondWithError(w, http.StatusBadRequest, "invalid signature")
			return
		}
		h.logger.Error("Failed to parse webhook event", zap.Error(err))
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid webhook payload")
		return
	}

	if err := h.paymentService.HandleEvent(r.Context(), event); err != nil {
		h.logger.Error("Failed to handle webhook event",
			zap.String("type", event.Type),
			zap.Error(err),
		)
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to process event")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, map[string]bool{"received": true})
}

// History returns the caller's orders with a completed payment
func (h *PaymentHandler) History(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		middleware.RespondWithError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	orders, err := h.paymentService.History(r.Context(), userID)
	if err != nil {
		h.logger.Error("Failed to list payment history", zap.Error(err))
		respondServiceError(w, h.logger, err)
		return
	}

	if orders == nil {
		orders = []*domain.Order{}
	}

	middleware.RespondWithJSON(w, http.StatusOK, map[string]interface{}{"payments": orders})
}
