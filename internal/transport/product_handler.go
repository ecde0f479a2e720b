package transport

import (
	"errors"
	"net/http"

	"shopfront/internal/domain"
	"shopfront/internal/middleware"
	"shopfront/internal/repository"
	"shopfront/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	defaultProductPageSize = 12
	maxProductPageSize     = 100
	defaultFeaturedCount   = 8
)

// CreateProductRequest represents the product creation payload
type CreateProductRequest struct {
	Name        string `json:"name" validate:"required,min=2,max=200"`
	Description string `json:"description" validate:"max=2000"`
	Price       string `json:"price" validate:"required"`
	Stock       int    `json:"stock" validate:"gte=0"`
	Category    string `json:"category" validate:"required,min=2,max=100"`
	ImageURL    string `json:"image_url" validate:"omitempty,url"`
}

// UpdateProductRequest represents a partial product edit. Absent fields
// are left unchanged.
type UpdateProductRequest struct {
	Name        *string `json:"name" validate:"omitempty,min=2,max=200"`
	Description *string `json:"description" validate:"omitempty,max=2000"`
	Price       *string `json:"price"`
	Stock       *int    `json:"stock" validate:"omitempty,gte=0"`
	Category    *string `json:"category" validate:"omitempty,min=2,max=100"`
	ImageURL    *string `json:"image_url" validate:"omitempty,url"`
}

// ProductListResponse wraps a product page with its pagination window
type ProductListResponse struct {
	Products   []*domain.Product `json:"products"`
	Pagination Pagination        `json:"pagination"`
}

// ProductHandler handles HTTP requests for catalog operations
type ProductHandler struct {
	productService service.ProductService
	logger         *zap.Logger
}

// NewProductHandler creates a new ProductHandler
func NewProductHandler(productService service.ProductService, logger *zap.Logger) *ProductHandler {
	return &ProductHandler{
		productService: productService,
		logger:         logger,
	}
}

// RegisterRoutes registers all product routes. Reads are public; writes
// require an authenticated admin.
func (h *ProductHandler) RegisterRoutes(r chi.Router, authMiddleware func(http.Handler) http.Handler) {
	r.Route("/api/products", func(r chi.Router) {
		r.Get("/", h.List)
		r.Get("/featured/list", h.Featured)
		r.Get("/{id}", h.Get)

		r.Group(func(r chi.Router) {
			r.Use(authMiddleware)
			r.Use(middleware.RequireAdmin(h.logger))
			r.Post("/", h.Create)
			r.Put("/{id}", h.Update)
			r.Delete("/{id}", h.Delete)
		})
	})
}

// List returns a catalog page filtered by search, category and price range
func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	page, limit, validationErrors := parsePagination(r, defaultProductPageSize, maxProductPageSize)

	query := r.URL.Query()
	filter := repository.ProductFilter{
		Search:   query.Get("search"),
		Category: query.Get("category"),
	}

	if raw := query.Get("min_price"); raw != "" {
		parsed, err := decimal.NewFromString(raw)
		if err != nil || parsed.IsNegative() {
			validationErrors = append(validationErrors, middleware.ValidationError{Field: "min_price", Message: "Must be a non-negative decimal"})
		} else {
			filter.MinPrice = &parsed
		}
	}
	if raw := query.Get("max_price"); raw != "" {
		parsed, err := decimal.NewFromString(raw)
		if err != nil || parsed.IsNegative() {
			validationErrors = append(validationErrors, middleware.ValidationError{Field: "max_price", Message: "Must be a non-negative decimal"})
		} else {
			filter.MaxPrice = &parsed
		}
	}

	if len(validationErrors) > 0 {
		middleware.RespondWithValidationErrors(w, validationErrors)
		return
	}

	sortBy := query.Get("sort_by")
	sortOrder := repository.SortOrderAsc
	if query.Get("sort_order") == "desc" {
		sortOrder = repository.SortOrderDesc
	}

	products, total, err := h.productService.List(r.Context(), filter, page, limit, sortBy, sortOrder)
	if err != nil {
		h.logger.Error("Failed to list products", zap.Error(err))
		respondServiceError(w, h.logger, err)
		return
	}

	if products == nil {
		products = []*domain.Product{}
	}

	middleware.RespondWithJSON(w, http.StatusOK, ProductListResponse{
		Products:   products,
		Pagination: NewPagination(page, limit, total),
	})
}

// Get returns a single product by id
func (h *ProductHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid product id")
		return
	}

	product, err := h.productService.Get(r.Context(), id)
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, product)
}

// Featured returns in-stock products ranked by units sold
func (h *ProductHandler) Featured(w http.ResponseWriter, r *http.Request) {
	products, err := h.productService.Featured(r.Context(), defaultFeaturedCount)
	if err != nil {
		h.logger.Error("Failed to list featured products", zap.Error(err))
		respondServiceError(w, h.logger, err)
		return
	}

	if products == nil {
		products = []*domain.Product{}
	}

	middleware.RespondWithJSON(w, http.StatusOK, map[string]interface{}{"products": products})
}

// Create adds a new product to the catalog
func (h *ProductHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateProductRequest

	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		h.logger.Debug("Product creation validation failed", zap.Error(err))

		if validationErrors := middleware.FormatValidationErrors(err); len(validationErrors) > 0 {
			middleware.RespondWithValidationErrors(w, validationErrors)
			return
		}

		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	price, err := parsePrice(req.Price)
	if err != nil {
		middleware.RespondWithValidationErrors(w, []middleware.ValidationError{
			{Field: "price", Message: "Must be a non-negative decimal"},
		})
		return
	}

	product, err := h.productService.Create(r.Context(), service.ProductInput{
		Name:        &req.Name,
		Description: &req.Description,
		Price:       &price,
		Stock:       &req.Stock,
		Category:    &req.Category,
		ImageURL:    &req.ImageURL,
	})
	if err != nil {
		h.logger.Error("Failed to create product", zap.Error(err))
		respondServiceError(w, h.logger, err)
		return
	}

	h.logger.Info("Product created", zap.String("product_id", product.ID.String()))
	middleware.RespondWithJSON(w, http.StatusCreated, product)
}

// Update applies a partial edit to a product
func (h *ProductHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid product id")
		return
	}

	var req UpdateProductRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		h.logger.Debug("Product update validation failed", zap.Error(err))

		if validationErrors := middleware.FormatValidationErrors(err); len(validationErrors) > 0 {
			middleware.RespondWithValidationErrors(w, validationErrors)
			return
		}

		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	input := service.ProductInput{
		Name:        req.Name,
		Description: req.Description,
		Stock:       req.Stock,
		Category:    req.Category,
		ImageURL:    req.ImageURL,
	}

	if req.Price != nil {
		price, err := parsePrice(*req.Price)
		if err != nil {
			middleware.RespondWithValidationErrors(w, []middleware.ValidationError{
				{Field: "price", Message: "Must be a non-negative decimal"},
			})
			return
		}
		input.Price = &price
	}

	product, err := h.productService.Update(r.Context(), id, input)
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}

	h.logger.Info("Product updated", zap.String("product_id", product.ID.String()))
	middleware.RespondWithJSON(w, http.StatusOK, product)
}

// Delete removes a product that has never been ordered
func (h *ProductHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid product id")
		return
	}

	if err := h.productService.Delete(r.Context(), id); err != nil {
		respondServiceError(w, h.logger, err)
		return
	}

	h.logger.Info("Product deleted", zap.String("product_id", id.String()))
	middleware.RespondWithJSON(w, http.StatusOK, map[string]string{"message": "product deleted"})
}

func parsePrice(raw string) (decimal.Decimal, error) {
	price, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Decimal{}, err
	}
	if price.IsNegative() {
		return decimal.Decimal{}, errNegativePrice
	}
	return price, nil
}

var errNegativePrice = errors.New("price must be non-negative")
