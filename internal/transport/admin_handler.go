package transport

import (
	"net/http"
	"strconv"

	"shopfront/internal/domain"
	"shopfront/internal/middleware"
	"shopfront/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	defaultAdminPageSize = 20
	maxAdminPageSize     = 100
)

// AdminUserListResponse wraps a user page with its pagination window
type AdminUserListResponse struct {
	Users      []UserProfile `json:"users"`
	Pagination Pagination    `json:"pagination"`
}

// AdminHandler handles HTTP requests for the admin surface. Every route
// requires an authenticated admin; the role check happens in middleware,
// never in individual handlers.
type AdminHandler struct {
	userService      service.UserService
	orderService     service.OrderService
	analyticsService service.AnalyticsService
	logger           *zap.Logger
}

// NewAdminHandler creates a new AdminHandler
func NewAdminHandler(
	userService service.UserService,
	orderService service.OrderService,
	analyticsService service.AnalyticsService,
	logger *zap.Logger,
) *AdminHandler {
	return &AdminHandler{
		userService:      userService,
		orderService:     orderService,
		analyticsService: analyticsService,
		logger:           logger,
	}
}

// RegisterRoutes registers all admin routes
func (h *AdminHandler) RegisterRoutes(r chi.Router, authMiddleware func(http.Handler) http.Handler) {
	r.Route("/api/admin", func(r chi.Router) {
		r.Use(authMiddleware)
		r.Use(middleware.RequireAdmin(h.logger))

		r.Get("/analytics", h.Analytics)
		r.Get("/analytics/top-sellers", h.TopSellers)
		r.Get("/analytics/low-stock", h.LowStock)

		r.Get("/users", h.ListUsers)
		r.Delete("/users/{id}", h.DeleteUser)

		r.Get("/orders", h.ListOrders)
		r.Put("/orders/{id}/status", h.UpdateOrderStatus)
	})
}

// Analytics returns the aggregated store dashboard
func (h *AdminHandler) Analytics(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	lowStockThreshold, errs := parsePositiveInt(query.Get("low_stock_threshold"), "low_stock_threshold", nil)
	topN, errs := parsePositiveInt(query.Get("top"), "top", errs)
	if len(errs) > 0 {
		middleware.RespondWithValidationErrors(w, errs)
		return
	}

	dashboard, err := h.analyticsService.Dashboard(r.Context(), lowStockThreshold, topN)
	if err != nil {
		h.logger.Error("Failed to build analytics dashboard", zap.Error(err))
		respondServiceError(w, h.logger, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, dashboard)
}

// TopSellers ranks products by historical units sold
func (h *AdminHandler) TopSellers(w http.ResponseWriter, r *http.Request) {
	limit, errs := parsePositiveInt(r.URL.Query().Get("limit"), "limit", nil)
	if len(errs) > 0 {
		middleware.RespondWithValidationErrors(w, errs)
		return
	}

	products, err := h.analyticsService.TopSellers(r.Context(), limit)
	if err != nil {
		h.logger.Error("Failed to list top sellers", zap.Error(err))
		respondServiceError(w, h.logger, err)
		return
	}

	if products == nil {
		products = []*domain.ProductSales{}
	}

	middleware.RespondWithJSON(w, http.StatusOK, map[string]interface{}{"products": products})
}

// LowStock lists products at or below the given stock threshold
func (h *AdminHandler) LowStock(w http.ResponseWriter, r *http.Request) {
	threshold, errs := parsePositiveInt(r.URL.Query().Get("threshold"), "threshold", nil)
	if len(errs) > 0 {
		middleware.RespondWithValidationErrors(w, errs)
		return
	}

	products, err := h.analyticsService.LowStock(r.Context(), threshold)
	if err != nil {
		h.logger.Error("Failed to list low stock products", zap.Error(err))
		respondServiceError(w, h.logger, err)
		return
	}

	if products == nil {
		products = []*domain.Product{}
	}

	middleware.RespondWithJSON(w, http.StatusOK, map[string]interface{}{"products": products})
}

// ListUsers returns a user page, optionally filtered by a name or email
// search term
func (h *AdminHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	page, limit, validationErrors := parsePagination(r, defaultAdminPageSize, maxAdminPageSize)
	if len(validationErrors) > 0 {
		middleware.RespondWithValidationErrors(w, validationErrors)
		return
	}

	users, total, err := h.userService.ListUsers(r.Context(), r.URL.Query().Get("search"), page, limit)
	if err != nil {
		h.logger.Error("Failed to list users", zap.Error(err))
		respondServiceError(w, h.logger, err)
		return
	}

	profiles := make([]UserProfile, 0, len(users))
	for _, user := range users {
		profiles = append(profiles, toUserProfile(user, nil))
	}

	middleware.RespondWithJSON(w, http.StatusOK, AdminUserListResponse{
		Users:      profiles,
		Pagination: NewPagination(page, limit, total),
	})
}

// DeleteUser removes an account. Admins cannot delete themselves, and
// accounts with order history are protected.
func (h *AdminHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	actorID, ok := middleware.GetUserID(r.Context())
	if !ok {
		middleware.RespondWithError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	targetID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	if err := h.userService.DeleteUser(r.Context(), actorID, targetID); err != nil {
		respondServiceError(w, h.logger, err)
		return
	}

	h.logger.Info("User deleted",
		zap.String("user_id", targetID.String()),
		zap.String("deleted_by", actorID.String()),
	)
	middleware.RespondWithJSON(w, http.StatusOK, map[string]string{"message": "user deleted"})
}

// ListOrders returns all orders with an optional status filter
func (h *AdminHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	page, limit, validationErrors := parsePagination(r, defaultAdminPageSize, maxAdminPageSize)

	var status *domain.OrderStatus
	if raw := r.URL.Query().Get("status"); raw != "" {
		parsed := domain.OrderStatus(raw)
		if !parsed.Valid() {
			validationErrors = append(validationErrors, middleware.ValidationError{
				Field:   "status",
				Message: "Unknown order status",
			})
		} else {
			status = &parsed
		}
	}

	if len(validationErrors) > 0 {
		middleware.RespondWithValidationErrors(w, validationErrors)
		return
	}

	orders, total, err := h.orderService.ListAll(r.Context(), status, page, limit)
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

// UpdateOrderStatus transitions any order as an admin
func (h *AdminHandler) UpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	actorID, role, ok := callerIdentity(r)
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

	order, err := h.orderService.UpdateStatus(r.Context(), actorID, role, orderID, domain.OrderStatus(req.Status))
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}

	h.logger.Info("Order status updated by admin",
		zap.String("order_id", orderID.String()),
		zap.String("status", string(order.Status)),
		zap.String("admin_id", actorID.String()),
	)
	middleware.RespondWithJSON(w, http.StatusOK, order)
}

// parsePositiveInt parses an optional positive integer query parameter,
// returning 0 when absent so services apply their defaults
func parsePositiveInt(raw, field string, errs []middleware.ValidationError) (int, []middleware.ValidationError) {
	if raw == "" {
		return 0, errs
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil || parsed < 1 {
		return 0, append(errs, middleware.ValidationError{Field: field, Message: "Must be a positive integer"})
	}
	return parsed, errs
}
