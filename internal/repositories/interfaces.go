package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/chrisdamba/homeservices/internal/models"
)

var ErrOrderNotFound = errors.New("order not found")

// OrderRepository is the client-side order history. The backend owns the
// orders; entries here are cached snapshots.
type OrderRepository interface {
	// Save inserts the order or replaces the stored copy.
	Save(ctx context.Context, order *models.Order) error
	UpdateStatus(ctx context.Context, orderID string, status models.OrderStatus, at time.Time) error
	Get(ctx context.Context, orderID string) (*models.Order, error)
	// List returns every order, newest first.
	List(ctx context.Context) ([]*models.Order, error)
	Count(ctx context.Context) (int, error)
	DeleteAll(ctx context.Context) error
}

// SplitByActivity groups orders the way the order history shows them.
func SplitByActivity(orders []*models.Order) (active, completed []*models.Order) {
	for _, o := range orders {
		if o.Status.IsActive() {
			active = append(active, o)
		} else {
			completed = append(completed, o)
		}
	}
	return active, completed
}
