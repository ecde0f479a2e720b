package service

import (
	"context"
	"errors"
	"fmt"

	"shopfront/internal/domain"
	"shopfront/internal/payment"
	"shopfront/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const paymentCurrency = "usd"

var (
	ErrOrderNotPayable     = errors.New("order not found or not eligible for payment")
	ErrPaymentNotCompleted = errors.New("payment not completed")
)

// PaymentIntentResult is the client-side handle for a created charge
// intent together with the order it pays for
type PaymentIntentResult struct {
	ClientSecret string
	Order        *domain.Order
}

// PaymentService bridges orders to the external payment gateway. A charge
// may be confirmed through the synchronous Confirm call, the asynchronous
// webhook, or both; the mark-paid transition is idempotent so the paths
// are safe in any order.
type PaymentService interface {
	CreateIntent(ctx context.Context, userID, orderID uuid.UUID) (*PaymentIntentResult, error)
	Confirm(ctx context.Context, userID, orderID uuid.UUID, intentID string) (*domain.Order, error)
	HandleEvent(ctx context.Context, event *payment.Event) error
	History(ctx context.Context, userID uuid.UUID) ([]*domain.Order, error)
}

type paymentService struct {
	orderRepo repository.OrderRepository
	gateway   payment.Gateway
	logger    *zap.Logger
}

// NewPaymentService creates a new instance of PaymentService
func NewPaymentService(orderRepo repository.OrderRepository, gateway payment.Gateway, logger *zap.Logger) PaymentService {
	return &paymentService{
		orderRepo: orderRepo,
		gateway:   gateway,
		logger:    logger,
	}
}

// CreateIntent requests a charge intent from the gateway for the order's
// total amount. Only the owner of a PENDING order may start payment.
func (s *paymentService) CreateIntent(ctx context.Context, userID, orderID uuid.UUID) (*PaymentIntentResult, error) {
	order, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		if err == repository.ErrOrderNotFound {
			return nil, ErrOrderNotPayable
		}
		return nil, err
	}

	if !order.OwnedBy(userID) || order.Status != domain.OrderStatusPending {
		return nil, ErrOrderNotPayable
	}

	intent, err := s.gateway.CreateIntent(ctx, amountInCents(order), paymentCurrency, map[string]string{
		"order_id": order.ID.String(),
		"user_id":  userID.String(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create charge intent: %w", err)
	}

	return &PaymentIntentResult{
		ClientSecret: intent.ClientSecret,
		Order:        order,
	}, nil
}

// Confirm verifies a charge with the gateway and moves the order to
// PROCESSING. A repeated confirmation for an already-processed order is a
// no-op.
func (s *paymentService) Confirm(ctx context.Context, userID, orderID uuid.UUID, intentID string) (*domain.Order, error) {
	intent, err := s.gateway.RetrieveIntent(ctx, intentID)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve charge intent: %w", err)
	}

	if intent.Status != payment.IntentStatusSucceeded {
		return nil, ErrPaymentNotCompleted
	}

	order, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if !order.OwnedBy(userID) {
		return nil, ErrForbidden
	}

	transitioned, err := s.orderRepo.MarkPaid(ctx, orderID, intent.ID)
	if err != nil {
		return nil, err
	}
	if !transitioned {
		s.logger.Debug("Order already marked paid",
			zap.String("order_id", orderID.String()),
			zap.String("payment_ref", intent.ID),
		)
	}

	return s.orderRepo.FindByID(ctx, orderID)
}

// HandleEvent applies a verified webhook notification. Only successful
// charge events mutate state; everything else is acknowledged and
// dropped.
func (s *paymentService) HandleEvent(ctx context.Context, event *payment.Event) error {
	if event.Type != payment.EventIntentSucceeded || event.Intent == nil {
		s.logger.Debug("Ignoring webhook event", zap.String("type", event.Type))
		return nil
	}

	orderID, err := uuid.Parse(event.Intent.Metadata["order_id"])
	if err != nil {
		return fmt.Errorf("webhook event has no valid order id: %w", err)
	}

	transitioned, err := s.orderRepo.MarkPaid(ctx, orderID, event.Intent.ID)
	if err != nil {
		return err
	}

	if transitioned {
		s.logger.Info("Order payment confirmed via webhook",
			zap.String("order_id", orderID.String()),
			zap.String("payment_ref", event.Intent.ID),
		)
	}

	return nil
}

// History returns the caller's orders with a completed payment
func (s *paymentService) History(ctx context.Context, userID uuid.UUID) ([]*domain.Order, error) {
	return s.orderRepo.ListPaidByUser(ctx, userID)
}

// amountInCents converts the order total to the gateway's smallest
// currency unit
func amountInCents(order *domain.Order) int64 {
	return order.TotalAmount.Shift(2).Round(0).IntPart()
}
