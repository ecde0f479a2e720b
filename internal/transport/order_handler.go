package transport

import (
	"net/http"

	"shopfront/internal/domain"
	"shopfront/internal/middleware"
	"shopfront/internal/repository"
	"shopfront/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	defaultOrderPageSize = 10
	maxOrderPageSize     = 50
)

// OrderItemRequest is one line of a new order
type OrderItemRequest struct {
	ProductID string `json:"product_id" validate:"required,uuid"`
	Quantity  int    `json:"quantity" validate:"required,gt=0"`
}

// CreateOrderRequest represents the order creation payload
type CreateOrderRequest struct {
	Items []OrderItemRequest `json:"items" validate:"required,min=1,dive"`
}

// UpdateOrderStatusRequest represents a status transition request
type UpdateOrderStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=PENDING PROCESSING SHIPPED DELIVERED CANCELLED"`
}

// OrderListResponse wraps an order page with its pagination window
type OrderListResponse struct {
	Orders     []*domain.Order `json:"orders"`
	Pagination Pagination      `json:"pagination"`
}

// OrderHandler handles HTTP requests for order operations. Every route is
// behind authentication; the caller identity comes from the verified token
// claims, never from the request body.
type OrderHandler struct {
	orderService service.OrderService
	logger       *zap.Logger
}

// NewOrderHandler creates a new OrderHandler
func NewOrderHandler(orderService service.OrderService, logger *zap.Logger) *OrderHandler {
	return &OrderHandler{
		orderService: orderService,
		logger:       logger,
	}
}

// RegisterRoutes registers all order routes
func (h *OrderHandler) RegisterRoutes(r chi.Router, authMiddleware func(http.Handler) http.Handler) {
	r.Route("/api/orders", func(r chi.Router) {
		r.Use(authMiddleware)
		r.Post("/", h.Create)
		r.Get("/", h.List)
		r.Get("/{id}", h.Get)
		r.Put("/{id}/status", h.UpdateStatus)
		r.Delete("/{id}", h.Cancel)
	})
}

// Create places an order for the caller. Stock is validated and reserved
// atomically; on any failure nothing is written.
func (h *OrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		middleware.RespondWithError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req CreateOrderRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		h.logger.Debug("Order creation validation failed", zap.Error(err))

		if validationErrors := middleware.FormatValidationErrors(err); len(validationErrors) > 0 {
			middleware.RespondWithValidationErrors(w, validationErrors)
			return
		}

		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	lines := make([]repository.LineItem, 0, len(req.Items))
	for _, item := range req.Items {
		productID, err := uuid.Parse(item.ProductID)
		if err != nil {
			middleware.RespondWithValidationErrors(w, []middleware.ValidationError{
				{Field: "product_id", Message: "Must be a valid UUID"},
			})
			return
		}
		lines = append(lines, repository.LineItem{ProductID: productID, Quantity: item.Quantity})
	}

	order, err := h.orderService.Create(r.Context(), userID, lines)
	if err != nil {
		h.logger.Warn("Order creation failed",
			zap.String("user_id", userID.String()),
			zap.Error(err),
		)
		respondServiceError(w, h.logger, err)
		return
	}

	h.logger.Info("Order created",
		zap.String("order_id", order.ID.String()),
		zap.String("user_id", userID.String()),
		zap.String("total_amount", order.TotalAmount.StringFixed(2)),
	)
	middleware.RespondWithJSON(w, http.StatusCreated, order)
}

// List returns the caller's own orders, newest first
func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		middleware.RespondWithError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	page, limit, validationErrors := parsePagination(r, defaultOrderPageSize, maxOrderPageSize)
	if len(validationErrors) > 0 {
		middleware.RespondWithValidationErrors(w, validationErrors)
		return
	}

	orders, total, err := h.orderService.ListForUser(r.Context(), userID, page, limit)
	if err != nil {
		h.logger.Error("Failed to list orders", zap.Error(err))
		respondServiceError(w, h.logger, err)
		return
	}

	if orders == nil {
		orders = []*domain.Order{}
	}

	middleware.RespondWithJSON(w, http.StatusOK, OrderListResponse{
		Orders:     orders,
		Pagination: NewPagination(page, limit, total),
	})
}

// Get returns one order. Non-admin callers only see their own.
func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, role, ok := callerIdentity(r)
	if !ok {
		middleware.RespondWithError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid order id")
		return
	}

	order, err := h.orderService.Get(r.Context(), userID, role, orderID)
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, order)
}

// UpdateStatus transitions an order. Admins may set any status; owners may
// only cancel while the order is still PENDING.
func (h *OrderHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	userID, role, ok := callerIdentity(r)
	if !ok {
		middleware.RespondWithError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid order id")
		return
	}

	var req UpdateOrderStatusRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		h.logger.Debug("Status update validation failed", zap.Error(err))

		if validationErrors := middleware.FormatValidationErrors(err); len(validationErrors) > 0 {
			middleware.RespondWithValidationErrors(w, validationErrors)
			return
		}

		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	order, err := h.orderService.UpdateStatus(r.Context(), userID, role, orderID, domain.OrderStatus(req.Status))
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}

	h.logger.Info("Order status updated",
		zap.String("order_id", orderID.String()),
		zap.String("status", string(order.Status)),
	)
	middleware.RespondWithJSON(w, http.StatusOK, order)
}

// Cancel is the owner-facing cancellation path. Stock reserved by the
// order is returned to the catalog.
func (h *OrderHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	userID, role, ok := callerIdentity(r)
	if !ok {
		middleware.RespondWithError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid order id")
		return
	}

	order, err := h.orderService.Cancel(r.Context(), userID, role, orderID)
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}

	h.logger.Info("Order cancelled", zap.String("order_id", orderID.String()))
	middleware.RespondWithJSON(w, http.StatusOK, order)
}

// callerIdentity pulls the verified (user id, role) pair set by the auth
// middleware
func callerIdentity(r *http.Request) (uuid.UUID, domain.Role, bool) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		return uuid.Nil, "", false
	}
	role, ok := middleware.GetUserRole(r.Context())
	if !ok {
		return uuid.Nil, "", false
	}
	return userID, role, true
}
