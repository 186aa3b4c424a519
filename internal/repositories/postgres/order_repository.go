package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/chrisdamba/homeservices/internal/models"
	"github.com/chrisdamba/homeservices/internal/repositories"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const schema = `
    CREATE EXTENSION IF NOT EXISTS postgis;
    CREATE TABLE IF NOT EXISTS orders (
        id           TEXT PRIMARY KEY,
        status       TEXT NOT NULL,
        vendor_id    TEXT NOT NULL,
        service_id   TEXT NOT NULL,
        category_id  TEXT NOT NULL,
        price        TEXT NOT NULL DEFAULT '',
        description  TEXT NOT NULL DEFAULT '',
        location     GEOGRAPHY(POINT, 4326),
        created_at   TIMESTAMPTZ NOT NULL,
        updated_at   TIMESTAMPTZ NOT NULL
    );
    CREATE INDEX IF NOT EXISTS orders_created_at_idx ON orders (created_at DESC);`

type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewPool connects to dsn and verifies the connection.
func NewPool(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("error connecting to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("error pinging database: %w", err)
	}
	return pool, nil
}

func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// EnsureSchema creates the orders table when it does not exist.
func (r *OrderRepository) EnsureSchema(ctx context.Context) error {
	_, err := r.pool.Exec(ctx, schema)
	return err
}

func (r *OrderRepository) Save(ctx context.Context, order *models.Order) error {
	query := `
        INSERT INTO orders (
            id, status, vendor_id, service_id, category_id, price,
            description, location, created_at, updated_at
        ) VALUES (
            $1, $2, $3, $4, $5, $6, $7,
            ST_SetSRID(ST_MakePoint($8, $9), 4326), $10, $11
        )
        ON CONFLICT (id) DO UPDATE SET
            status = EXCLUDED.status,
            vendor_id = EXCLUDED.vendor_id,
            service_id = EXCLUDED.service_id,
            category_id = EXCLUDED.category_id,
            price = EXCLUDED.price,
            description = EXCLUDED.description,
            location = EXCLUDED.location,
            updated_at = EXCLUDED.updated_at`

	updatedAt := order.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = order.CreatedAt
	}
	_, err := r.pool.Exec(ctx, query,
		order.ID,
		string(order.Status),
		order.VendorID,
		order.ServiceID,
		order.CategoryID,
		order.Price,
		order.Description,
		order.Location.Lon,
		order.Location.Lat,
		order.CreatedAt,
		updatedAt,
	)
	return err
}

func (r *OrderRepository) UpdateStatus(ctx context.Context, orderID string, status models.OrderStatus, at time.Time) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE orders SET status = $2, updated_at = $3 WHERE id = $1`,
		orderID, string(status), at,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return repositories.ErrOrderNotFound
	}
	return nil
}

const selectOrder = `
        SELECT
            id, status, vendor_id, service_id, category_id, price, description,
            ST_AsText(location::geometry), created_at, updated_at
        FROM orders`

func (r *OrderRepository) Get(ctx context.Context, orderID string) (*models.Order, error) {
	order, err := scanOrder(r.pool.QueryRow(ctx, selectOrder+` WHERE id = $1`, orderID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, repositories.ErrOrderNotFound
	}
	return order, err
}

func (r *OrderRepository) List(ctx context.Context) ([]*models.Order, error) {
	rows, err := r.pool.Query(ctx, selectOrder+` ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []*models.Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}
	return orders, rows.Err()
}

func (r *OrderRepository) Count(ctx context.Context) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM orders").Scan(&count)
	return count, err
}

func (r *OrderRepository) DeleteAll(ctx context.Context) error {
	_, err := r.pool.Exec(ctx, "DELETE FROM orders")
	return err
}

func scanOrder(row pgx.Row) (*models.Order, error) {
	var (
		order    models.Order
		status   string
		location *string
	)
	err := row.Scan(
		&order.ID,
		&status,
		&order.VendorID,
		&order.ServiceID,
		&order.CategoryID,
		&order.Price,
		&order.Description,
		&location,
		&order.CreatedAt,
		&order.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	order.Status = models.ParseOrderStatus(status)
	if location != nil {
		if err := order.Location.Scan(*location); err != nil {
			return nil, fmt.Errorf("order %s: %w", order.ID, err)
		}
	}
	return &order, nil
}
