package service

import (
	"context"
	"time"

	"shopfront/internal/domain"
	"shopfront/internal/repository"
)

const (
	// DefaultLowStockThreshold flags products running out of inventory
	DefaultLowStockThreshold = 10

	// DefaultTopSellerCount bounds the top-seller ranking
	DefaultTopSellerCount = 5

	revenueMonths = 6
)

// Dashboard aggregates the admin analytics view. Read-only.
type Dashboard struct {
	Totals         *repository.StoreTotals     `json:"totals"`
	TopProducts    []*domain.ProductSales      `json:"top_products"`
	RecentOrders   []*domain.Order             `json:"recent_orders"`
	MonthlyRevenue []repository.MonthlyRevenue `json:"monthly_revenue"`
	LowStock       []*domain.Product           `json:"low_stock"`
}

// AnalyticsService defines the interface for admin reporting
type AnalyticsService interface {
	Dashboard(ctx context.Context, lowStockThreshold, topN int) (*Dashboard, error)
	LowStock(ctx context.Context, threshold int) ([]*domain.Product, error)
	TopSellers(ctx context.Context, limit int) ([]*domain.ProductSales, error)
}

type analyticsService struct {
	analyticsRepo repository.AnalyticsRepository
	productRepo   repository.ProductRepository
	orderRepo     repository.OrderRepository
}

// NewAnalyticsService creates a new instance of AnalyticsService
func NewAnalyticsService(
	analyticsRepo repository.AnalyticsRepository,
	productRepo repository.ProductRepository,
	orderRepo repository.OrderRepository,
) AnalyticsService {
	return &analyticsService{
		analyticsRepo: analyticsRepo,
		productRepo:   productRepo,
		orderRepo:     orderRepo,
	}
}

// Dashboard assembles counts, revenue, rankings and recent activity
func (s *analyticsService) Dashboard(ctx context.Context, lowStockThreshold, topN int) (*Dashboard, error) {
	if lowStockThreshold <= 0 {
		lowStockThreshold = DefaultLowStockThreshold
	}
	if topN <= 0 {
		topN = DefaultTopSellerCount
	}

	totals, err := s.analyticsRepo.Totals(ctx, lowStockThreshold)
	if err != nil {
		return nil, err
	}

	topProducts, err := s.analyticsRepo.TopSellers(ctx, topN)
	if err != nil {
		return nil, err
	}

	recentOrders, _, err := s.orderRepo.List(ctx, nil, 1, 10)
	if err != nil {
		return nil, err
	}

	since := time.Now().AddDate(0, -revenueMonths, 0)
	monthlyRevenue, err := s.analyticsRepo.RevenueByMonth(ctx, since)
	if err != nil {
		return nil, err
	}

	lowStock, err := s.productRepo.ListLowStock(ctx, lowStockThreshold)
	if err != nil {
		return nil, err
	}

	return &Dashboard{
		Totals:         totals,
		TopProducts:    topProducts,
		RecentOrders:   recentOrders,
		MonthlyRevenue: monthlyRevenue,
		LowStock:       lowStock,
	}, nil
}

// LowStock lists products at or below the threshold (default 10)
func (s *analyticsService) LowStock(ctx context.Context, threshold int) ([]*domain.Product, error) {
	if threshold <= 0 {
		threshold = DefaultLowStockThreshold
	}
	return s.productRepo.ListLowStock(ctx, threshold)
}

// TopSellers ranks products by historical units sold
func (s *analyticsService) TopSellers(ctx context.Context, limit int) ([]*domain.ProductSales, error) {
	if limit <= 0 {
		limit = DefaultTopSellerCount
	}
	return s.analyticsRepo.TopSellers(ctx, limit)
}
