package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"shopfront/internal/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrOrderNotFound = errors.New("order not found")
)

// InsufficientStockError reports which product could not cover the
// requested quantity
type InsufficientStockError struct {
	ProductName string
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product: %s", e.ProductName)
}

// LineItem is a (product, quantity) pairing in an order request
type LineItem struct {
	ProductID uuid.UUID
	Quantity  int
}

// OrderRepository defines the interface for order data access. All stock
// mutations happen inside database transactions so a failure at any step
// leaves no partial state visible.
type OrderRepository interface {
	Create(ctx context.Context, userID uuid.UUID, lines []LineItem) (*domain.Order, error)
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Order, error)
	ListByUser(ctx context.Context, userID uuid.UUID, page, pageSize int) ([]*domain.Order, int, error)
	List(ctx context.Context, status *domain.OrderStatus, page, pageSize int) ([]*domain.Order, int, error)
	ListPaidByUser(ctx context.Context, userID uuid.UUID) ([]*domain.Order, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status domain.OrderStatus) error
	MarkPaid(ctx context.Context, id uuid.UUID, paymentRef string) (bool, error)
}

type orderRepository struct {
	db *sql.DB
}

// NewOrderRepository creates a new instance of OrderRepository
func NewOrderRepository(db *sql.DB) OrderRepository {
	return &orderRepository{db: db}
}

// Create places an order for the given line items inside one transaction:
// lock every referenced product, validate every line against current stock,
// then decrement stock and insert the order with its items. Validation of
// all lines happens before any stock mutation, and each decrement is
// additionally guarded by "stock >= quantity" so two concurrent orders for
// the last unit can never both succeed.
func (r *orderRepository) Create(ctx context.Context, userID uuid.UUID, lines []LineItem) (*domain.Order, error) {
	if len(lines) == 0 {
		return nil, errors.New("order must contain at least one item")
	}

	// Merge duplicate product lines so stock checks see the real demand
	merged := make(map[uuid.UUID]int)
	for _, line := range lines {
		merged[line.ProductID] += line.Quantity
	}

	// Lock in deterministic id order to avoid deadlocks between
	// concurrent orders touching the same products
	productIDs := make([]uuid.UUID, 0, len(merged))
	for id := range merged {
		productIDs = append(productIDs, id)
	}
	sort.Slice(productIDs, func(i, j int) bool {
		return productIDs[i].String() < productIDs[j].String()
	})

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	placeholders := make([]string, len(productIDs))
	args := make([]interface{}, len(productIDs))
	for i, id := range productIDs {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = id
	}

	query := fmt.Sprintf(`
		SELECT id, name, price, stock, image_url
		FROM products
		WHERE id IN (%s)
		ORDER BY id
		FOR UPDATE
	`, strings.Join(placeholders, ", "))

	rows, err := tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to lock products: %w", err)
	}

	type lockedProduct struct {
		id       uuid.UUID
		name     string
		price    decimal.Decimal
		stock    int
		imageURL string
	}

	locked := make(map[uuid.UUID]*lockedProduct, len(productIDs))
	for rows.Next() {
		p := &lockedProduct{}
		if err := rows.Scan(&p.id, &p.name, &p.price, &p.stock, &p.imageURL); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		locked[p.id] = p
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("error iterating products: %w", err)
	}
	rows.Close()

	// Validate every line before mutating any stock
	for _, id := range productIDs {
		product, ok := locked[id]
		if !ok {
			return nil, ErrProductNotFound
		}
		if product.stock < merged[id] {
			return nil, &InsufficientStockError{ProductName: product.name}
		}
	}

	now := time.Now()
	order := &domain.Order{
		ID:          uuid.New(),
		UserID:      userID,
		TotalAmount: decimal.Zero,
		Status:      domain.OrderStatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	for _, id := range productIDs {
		product := locked[id]
		quantity := merged[id]

		// Conditional decrement: the WHERE guard keeps stock from ever
		// going negative even under concurrent writers
		result, err := tx.ExecContext(
			ctx,
			`UPDATE products SET stock = stock - $2 WHERE id = $1 AND stock >= $2`,
			id,
			quantity,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to decrement stock: %w", err)
		}
		rowsAffected, err := result.RowsAffected()
		if err != nil {
			return nil, fmt.Errorf("failed to get rows affected: %w", err)
		}
		if rowsAffected == 0 {
			return nil, &InsufficientStockError{ProductName: product.name}
		}

		order.TotalAmount = order.TotalAmount.Add(product.price.Mul(decimal.NewFromInt(int64(quantity))))
		order.Items = append(order.Items, domain.OrderItem{
			ID:        uuid.New(),
			OrderID:   order.ID,
			ProductID: id,
			Quantity:  quantity,
			UnitPrice: product.price,
			Product: &domain.ProductSummary{
				ID:       id,
				Name:     product.name,
				ImageURL: product.imageURL,
			},
		})
	}

	_, err = tx.ExecContext(
		ctx,
		`INSERT INTO orders (id, user_id, total_amount, status, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		order.ID,
		order.UserID,
		order.TotalAmount,
		order.Status,
		order.CreatedAt,
		order.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create order: %w", err)
	}

	for _, item := range order.Items {
		_, err = tx.ExecContext(
			ctx,
			`INSERT INTO order_items (id, order_id, product_id, quantity, unit_price)
			 VALUES ($1, $2, $3, $4, $5)`,
			item.ID,
			item.OrderID,
			item.ProductID,
			item.Quantity,
			item.UnitPrice,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to create order item: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return order, nil
}

// FindByID retrieves an order with its items and product summaries
func (r *orderRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	order, err := r.scanOrder(r.db.QueryRowContext(ctx, `
		SELECT id, user_id, total_amount, status, payment_ref, created_at, updated_at
		FROM orders
		WHERE id = $1
	`, id))
	if err != nil {
		return nil, err
	}

	items, err := r.loadItems(ctx, []uuid.UUID{order.ID})
	if err != nil {
		return nil, err
	}
	order.Items = items[order.ID]

	return order, nil
}

// ListByUser retrieves a user's orders, newest first, with pagination
func (r *orderRepository) ListByUser(ctx context.Context, userID uuid.UUID, page, pageSize int) ([]*domain.Order, int, error) {
	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM orders WHERE user_id = $1`, userID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count orders: %w", err)
	}

	offset := (page - 1) * pageSize
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, total_amount, status, payment_ref, created_at, updated_at
		FROM orders
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, userID, pageSize, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list orders: %w", err)
	}
	defer rows.Close()

	orders, err := r.scanOrders(rows)
	if err != nil {
		return nil, 0, err
	}

	if err := r.attachItems(ctx, orders); err != nil {
		return nil, 0, err
	}

	return orders, total, nil
}

// List retrieves all orders with an optional status filter, newest first
func (r *orderRepository) List(ctx context.Context, status *domain.OrderStatus, page, pageSize int) ([]*domain.Order, int, error) {
	whereClause := ""
	args := []interface{}{}
	argIndex := 1

	if status != nil {
		whereClause = fmt.Sprintf("WHERE status = $%d", argIndex)
		args = append(args, *status)
		argIndex++
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM orders %s", whereClause)
	var total int
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count orders: %w", err)
	}

	offset := (page - 1) * pageSize
	query := fmt.Sprintf(`
		SELECT id, user_id, total_amount, status, payment_ref, created_at, updated_at
		FROM orders
		%s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d
	`, whereClause, argIndex, argIndex+1)
	args = append(args, pageSize, offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list orders: %w", err)
	}
	defer rows.Close()

	orders, err := r.scanOrders(rows)
	if err != nil {
		return nil, 0, err
	}

	if err := r.attachItems(ctx, orders); err != nil {
		return nil, 0, err
	}

	return orders, total, nil
}

// ListPaidByUser retrieves a user's orders that completed payment
func (r *orderRepository) ListPaidByUser(ctx context.Context, userID uuid.UUID) ([]*domain.Order, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, total_amount, status, payment_ref, created_at, updated_at
		FROM orders
		WHERE user_id = $1
		  AND status IN ('PROCESSING', 'SHIPPED', 'DELIVERED')
		  AND payment_ref IS NOT NULL
		ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list paid orders: %w", err)
	}
	defer rows.Close()

	orders, err := r.scanOrders(rows)
	if err != nil {
		return nil, err
	}

	if err := r.attachItems(ctx, orders); err != nil {
		return nil, err
	}

	return orders, nil
}

// UpdateStatus transitions an order and, when the transition enters
// CANCELLED from any other state, restores stock for every order item in
// the same transaction. The order row is locked first, so cancelling twice
// restores stock exactly once.
func (r *orderRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.OrderStatus) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var current domain.OrderStatus
	err = tx.QueryRowContext(ctx, `SELECT status FROM orders WHERE id = $1 FOR UPDATE`, id).Scan(&current)
	if err != nil {
		if err == sql.ErrNoRows {
			return ErrOrderNotFound
		}
		return fmt.Errorf("failed to lock order: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `UPDATE orders SET status = $2 WHERE id = $1`, id, status); err != nil {
		return fmt.Errorf("failed to update order status: %w", err)
	}

	if status == domain.OrderStatusCancelled && current != domain.OrderStatusCancelled {
		_, err = tx.ExecContext(ctx, `
			UPDATE products p
			SET stock = p.stock + oi.quantity
			FROM order_items oi
			WHERE oi.order_id = $1 AND oi.product_id = p.id
		`, id)
		if err != nil {
			return fmt.Errorf("failed to restore stock: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// MarkPaid records a successful charge: PENDING orders move to PROCESSING
// with the gateway reference stored. The status guard in the WHERE clause
// makes repeated notifications for the same charge a no-op; the boolean
// result reports whether this call performed the transition.
func (r *orderRepository) MarkPaid(ctx context.Context, id uuid.UUID, paymentRef string) (bool, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE orders
		SET status = $2, payment_ref = $3
		WHERE id = $1 AND status = $4
	`, id, domain.OrderStatusProcessing, paymentRef, domain.OrderStatusPending)
	if err != nil {
		return false, fmt.Errorf("failed to mark order paid: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rowsAffected > 0, nil
}

func (r *orderRepository) scanOrder(row *sql.Row) (*domain.Order, error) {
	order := &domain.Order{}
	var paymentRef sql.NullString
	err := row.Scan(
		&order.ID,
		&order.UserID,
		&order.TotalAmount,
		&order.Status,
		&paymentRef,
		&order.CreatedAt,
		&order.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to find order: %w", err)
	}
	order.PaymentRef = paymentRef.String
	return order, nil
}

func (r *orderRepository) scanOrders(rows *sql.Rows) ([]*domain.Order, error) {
	orders := []*domain.Order{}
	for rows.Next() {
		order := &domain.Order{}
		var paymentRef sql.NullString
		err := rows.Scan(
			&order.ID,
			&order.UserID,
			&order.TotalAmount,
			&order.Status,
			&paymentRef,
			&order.CreatedAt,
			&order.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		order.PaymentRef = paymentRef.String
		orders = append(orders, order)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating orders: %w", err)
	}

	return orders, nil
}

func (r *orderRepository) attachItems(ctx context.Context, orders []*domain.Order) error {
	if len(orders) == 0 {
		return nil
	}

	ids := make([]uuid.UUID, len(orders))
	for i, order := range orders {
		ids[i] = order.ID
	}

	items, err := r.loadItems(ctx, ids)
	if err != nil {
		return err
	}

	for _, order := range orders {
		order.Items = items[order.ID]
	}

	return nil
}

// loadItems fetches order items with their product summary projection.
// Only id, name and image_url are selected from products.
func (r *orderRepository) loadItems(ctx context.Context, orderIDs []uuid.UUID) (map[uuid.UUID][]domain.OrderItem, error) {
	placeholders := make([]string, len(orderIDs))
	args := make([]interface{}, len(orderIDs))
	for i, id := range orderIDs {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = id
	}

	query := fmt.Sprintf(`
		SELECT oi.id, oi.order_id, oi.product_id, oi.quantity, oi.unit_price,
		       p.id, p.name, p.image_url
		FROM order_items oi
		JOIN products p ON p.id = oi.product_id
		WHERE oi.order_id IN (%s)
		ORDER BY p.name
	`, strings.Join(placeholders, ", "))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to load order items: %w", err)
	}
	defer rows.Close()

	items := make(map[uuid.UUID][]domain.OrderItem)
	for rows.Next() {
		item := domain.OrderItem{Product: &domain.ProductSummary{}}
		err := rows.Scan(
			&item.ID,
			&item.OrderID,
			&item.ProductID,
			&item.Quantity,
			&item.UnitPrice,
			&item.Product.ID,
			&item.Product.Name,
			&item.Product.ImageURL,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order item: %w", err)
		}
		items[item.OrderID] = append(items[item.OrderID], item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating order items: %w", err)
	}

	return items, nil
}
