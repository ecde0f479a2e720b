package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"shopfront/internal/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// StoreTotals holds the read-only dashboard counters. Revenue excludes
// CANCELLED orders.
type StoreTotals struct {
	TotalUsers    int             `json:"total_users"`
	TotalProducts int             `json:"total_products"`
	TotalOrders   int             `json:"total_orders"`
	TotalRevenue  decimal.Decimal `json:"total_revenue"`
	PendingOrders int             `json:"pending_orders"`
	LowStockCount int             `json:"low_stock_count"`
}

// MonthlyRevenue is revenue grouped by calendar month
type MonthlyRevenue struct {
	Month   time.Time       `json:"month"`
	Revenue decimal.Decimal `json:"revenue"`
}

// UserStats summarizes one user's ordering history. TotalSpent excludes
// CANCELLED orders.
type UserStats struct {
	TotalOrders   int             `json:"total_orders"`
	TotalSpent    decimal.Decimal `json:"total_spent"`
	PendingOrders int             `json:"pending_orders"`
}

// AnalyticsRepository exposes the read-only reporting queries. No writes.
type AnalyticsRepository interface {
	Totals(ctx context.Context, lowStockThreshold int) (*StoreTotals, error)
	TopSellers(ctx context.Context, limit int) ([]*domain.ProductSales, error)
	RevenueByMonth(ctx context.Context, since time.Time) ([]MonthlyRevenue, error)
	StatsForUser(ctx context.Context, userID uuid.UUID) (*UserStats, error)
}

type analyticsRepository struct {
	db *sql.DB
}

// NewAnalyticsRepository creates a new instance of AnalyticsRepository
func NewAnalyticsRepository(db *sql.DB) AnalyticsRepository {
	return &analyticsRepository{db: db}
}

// Totals gathers the dashboard counters in one round trip
func (r *analyticsRepository) Totals(ctx context.Context, lowStockThreshold int) (*StoreTotals, error) {
	query := `
		SELECT
			(SELECT COUNT(*) FROM users),
			(SELECT COUNT(*) FROM products),
			(SELECT COUNT(*) FROM orders),
			(SELECT COALESCE(SUM(total_amount), 0) FROM orders WHERE status <> 'CANCELLED'),
			(SELECT COUNT(*) FROM orders WHERE status = 'PENDING'),
			(SELECT COUNT(*) FROM products WHERE stock <= $1)
	`

	totals := &StoreTotals{}
	err := r.db.QueryRowContext(ctx, query, lowStockThreshold).Scan(
		&totals.TotalUsers,
		&totals.TotalProducts,
		&totals.TotalOrders,
		&totals.TotalRevenue,
		&totals.PendingOrders,
		&totals.LowStockCount,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load store totals: %w", err)
	}

	return totals, nil
}

// TopSellers ranks products by total historical quantity sold, descending
func (r *analyticsRepository) TopSellers(ctx context.Context, limit int) ([]*domain.ProductSales, error) {
	query := `
		SELECT p.id, p.name, p.price, p.stock, COALESCE(SUM(oi.quantity), 0) AS total_sold
		FROM products p
		LEFT JOIN order_items oi ON oi.product_id = p.id
		GROUP BY p.id
		ORDER BY total_sold DESC, p.name ASC
		LIMIT $1
	`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to load top sellers: %w", err)
	}
	defer rows.Close()

	sales := []*domain.ProductSales{}
	for rows.Next() {
		s := &domain.ProductSales{}
		if err := rows.Scan(&s.ID, &s.Name, &s.Price, &s.Stock, &s.TotalSold); err != nil {
			return nil, fmt.Errorf("failed to scan top seller: %w", err)
		}
		sales = append(sales, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating top sellers: %w", err)
	}

	return sales, nil
}

// RevenueByMonth sums non-cancelled order totals per calendar month since
// the given time
func (r *analyticsRepository) RevenueByMonth(ctx context.Context, since time.Time) ([]MonthlyRevenue, error) {
	query := `
		SELECT date_trunc('month', created_at) AS month, COALESCE(SUM(total_amount), 0)
		FROM orders
		WHERE created_at >= $1 AND status <> 'CANCELLED'
		GROUP BY month
		ORDER BY month
	`

	rows, err := r.db.QueryContext(ctx, query, since)
	if err != nil {
		return nil, fmt.Errorf("failed to load monthly revenue: %w", err)
	}
	defer rows.Close()

	revenue := []MonthlyRevenue{}
	for rows.Next() {
		var m MonthlyRevenue
		if err := rows.Scan(&m.Month, &m.Revenue); err != nil {
			return nil, fmt.Errorf("failed to scan monthly revenue: %w", err)
		}
		revenue = append(revenue, m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating monthly revenue: %w", err)
	}

	return revenue, nil
}

// StatsForUser summarizes a single user's order history
func (r *analyticsRepository) StatsForUser(ctx context.Context, userID uuid.UUID) (*UserStats, error) {
	query := `
		SELECT
			COUNT(*),
			COALESCE(SUM(total_amount) FILTER (WHERE status <> 'CANCELLED'), 0),
			COUNT(*) FILTER (WHERE status = 'PENDING')
		FROM orders
		WHERE user_id = $1
	`

	stats := &UserStats{}
	err := r.db.QueryRowContext(ctx, query, userID).Scan(
		&stats.TotalOrders,
		&stats.TotalSpent,
		&stats.PendingOrders,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load user stats: %w", err)
	}

	return stats, nil
}
