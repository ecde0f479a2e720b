package service

import (
	"context"
	"errors"
	"fmt"

	"shopfront/internal/domain"
	"shopfront/internal/repository"

	"github.com/google/uuid"
)

var (
	ErrForbidden          = errors.New("not allowed to perform this action")
	ErrInvalidOrderStatus = errors.New("invalid order status")
)

// OrderService defines the interface for order business logic. Every
// operation takes the verified caller identity and applies the ownership
// and role predicates from the domain package.
type OrderService interface {
	Create(ctx context.Context, userID uuid.UUID, lines []repository.LineItem) (*domain.Order, error)
	Get(ctx context.Context, actorID uuid.UUID, role domain.Role, orderID uuid.UUID) (*domain.Order, error)
	ListForUser(ctx context.Context, userID uuid.UUID, page, pageSize int) ([]*domain.Order, int, error)
	ListAll(ctx context.Context, status *domain.OrderStatus, page, pageSize int) ([]*domain.Order, int, error)
	UpdateStatus(ctx context.Context, actorID uuid.UUID, role domain.Role, orderID uuid.UUID, target domain.OrderStatus) (*domain.Order, error)
	Cancel(ctx context.Context, actorID uuid.UUID, role domain.Role, orderID uuid.UUID) (*domain.Order, error)
	StatsForUser(ctx context.Context, userID uuid.UUID) (*repository.UserStats, []*domain.Order, error)
}

type orderService struct {
	orderRepo     repository.OrderRepository
	analyticsRepo repository.AnalyticsRepository
}

// NewOrderService creates a new instance of OrderService
func NewOrderService(orderRepo repository.OrderRepository, analyticsRepo repository.AnalyticsRepository) OrderService {
	return &orderService{
		orderRepo:     orderRepo,
		analyticsRepo: analyticsRepo,
	}
}

// Create places an order for the caller. Stock validation, decrementing,
// and order insertion all happen inside one repository transaction.
func (s *orderService) Create(ctx context.Context, userID uuid.UUID, lines []repository.LineItem) (*domain.Order, error) {
	return s.orderRepo.Create(ctx, userID, lines)
}

// Get retrieves an order, enforcing ownership for non-admin callers
func (s *orderService) Get(ctx context.Context, actorID uuid.UUID, role domain.Role, orderID uuid.UUID) (*domain.Order, error) {
	order, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if !role.IsAdmin() && !order.OwnedBy(actorID) {
		return nil, ErrForbidden
	}

	return order, nil
}

// ListForUser retrieves the caller's own orders
func (s *orderService) ListForUser(ctx context.Context, userID uuid.UUID, page, pageSize int) ([]*domain.Order, int, error) {
	return s.orderRepo.ListByUser(ctx, userID, page, pageSize)
}

// ListAll retrieves all orders with an optional status filter. Callers
// reach this only through admin-guarded routes.
func (s *orderService) ListAll(ctx context.Context, status *domain.OrderStatus, page, pageSize int) ([]*domain.Order, int, error) {
	return s.orderRepo.List(ctx, status, page, pageSize)
}

// UpdateStatus transitions an order after running the authorization
// predicate: admins may set any status, owners may only cancel while
// PENDING. Entering CANCELLED restores stock (once).
func (s *orderService) UpdateStatus(ctx context.Context, actorID uuid.UUID, role domain.Role, orderID uuid.UUID, target domain.OrderStatus) (*domain.Order, error) {
	if !target.Valid() {
		return nil, ErrInvalidOrderStatus
	}

	order, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if !order.CanTransition(actorID, role, target) {
		return nil, ErrForbidden
	}

	if err := s.orderRepo.UpdateStatus(ctx, orderID, target); err != nil {
		return nil, err
	}

	updated, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to reload order: %w", err)
	}

	return updated, nil
}

// Cancel is the owner-facing cancellation path
func (s *orderService) Cancel(ctx context.Context, actorID uuid.UUID, role domain.Role, orderID uuid.UUID) (*domain.Order, error) {
	return s.UpdateStatus(ctx, actorID, role, orderID, domain.OrderStatusCancelled)
}

// StatsForUser summarizes the caller's order history with their most
// recent orders
func (s *orderService) StatsForUser(ctx context.Context, userID uuid.UUID) (*repository.UserStats, []*domain.Order, error) {
	stats, err := s.analyticsRepo.StatsForUser(ctx, userID)
	if err != nil {
		return nil, nil, err
	}

	recent, _, err := s.orderRepo.ListByUser(ctx, userID, 1, 5)
	if err != nil {
		return nil, nil, err
	}

	return stats, recent, nil
}
