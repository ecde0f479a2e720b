package transport

import (
	"errors"
	"net/http"
	"strconv"

	"shopfront/internal/middleware"
	"shopfront/internal/repository"
	"shopfront/internal/service"

	"go.uber.org/zap"
)

// Pagination describes the page window echoed back to clients
type Pagination struct {
	CurrentPage int  `json:"current_page"`
	TotalPages  int  `json:"total_pages"`
	TotalItems  int  `json:"total_items"`
	HasNext     bool `json:"has_next"`
	HasPrev     bool `json:"has_prev"`
}

// NewPagination computes the page window for a total item count
func NewPagination(page, pageSize, total int) Pagination {
	totalPages := (total + pageSize - 1) / pageSize
	return Pagination{
		CurrentPage: page,
		TotalPages:  totalPages,
		TotalItems:  total,
		HasNext:     page < totalPages,
		HasPrev:     page > 1,
	}
}

// parsePagination reads page/limit query parameters. Page must be >= 1 and
// limit is clamped into [1, maxLimit]; malformed values are a validation
// failure.
func parsePagination(r *http.Request, defaultLimit, maxLimit int) (page, limit int, errs []middleware.ValidationError) {
	page = 1
	limit = defaultLimit

	if raw := r.URL.Query().Get("page"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			errs = append(errs, middleware.ValidationError{Field: "page", Message: "Page must be a positive integer"})
		} else {
			page = parsed
		}
	}

	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > maxLimit {
			errs = append(errs, middleware.ValidationError{Field: "limit", Message: "Limit must be between 1 and " + strconv.Itoa(maxLimit)})
		} else {
			limit = parsed
		}
	}

	return page, limit, errs
}

// respondServiceError translates business failures into the HTTP error
// taxonomy at the request boundary. Unrecognized errors become a generic
// 500 with the detail logged server-side only.
func respondServiceError(w http.ResponseWriter, logger *zap.Logger, err error) {
	var insufficientStock *repository.InsufficientStockError

	switch {
	case errors.As(err, &insufficientStock):
		middleware.RespondWithError(w, http.StatusBadRequest, insufficientStock.Error())
	case errors.Is(err, repository.ErrProductNotFound):
		middleware.RespondWithError(w, http.StatusNotFound, "product not found")
	case errors.Is(err, repository.ErrOrderNotFound):
		middleware.RespondWithError(w, http.StatusNotFound, "order not found")
	case errors.Is(err, repository.ErrUserNotFound):
		middleware.RespondWithError(w, http.StatusNotFound, "user not found")
	case errors.Is(err, repository.ErrUserAlreadyExists):
		middleware.RespondWithError(w, http.StatusConflict, "user with this email already exists")
	case errors.Is(err, repository.ErrProductOrdered):
		middleware.RespondWithError(w, http.StatusBadRequest, "cannot delete product that has been ordered")
	case errors.Is(err, repository.ErrUserHasOrders):
		middleware.RespondWithError(w, http.StatusBadRequest, "cannot delete user with existing orders")
	case errors.Is(err, service.ErrForbidden):
		middleware.RespondWithError(w, http.StatusForbidden, "not allowed to perform this action")
	case errors.Is(err, service.ErrInvalidOrderStatus):
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid order status")
	case errors.Is(err, service.ErrInvalidCredentials):
		middleware.RespondWithError(w, http.StatusUnauthorized, "invalid email or password")
	case errors.Is(err, service.ErrOrderNotPayable):
		middleware.RespondWithError(w, http.StatusNotFound, "order not found or not eligible for payment")
	case errors.Is(err, service.ErrPaymentNotCompleted):
		middleware.RespondWithError(w, http.StatusBadRequest, "payment not completed")
	case errors.Is(err, service.ErrSelfDeletion):
		middleware.RespondWithError(w, http.StatusBadRequest, "cannot delete your own account")
	default:
		logger.Error("Unhandled service error", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "internal server error")
	}
}
