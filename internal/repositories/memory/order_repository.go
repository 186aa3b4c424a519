package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/chrisdamba/homeservices/internal/models"
	"github.com/chrisdamba/homeservices/internal/repositories"
)

type OrderRepository struct {
	mu     sync.RWMutex
	orders map[string]models.Order
}

func NewOrderRepository() *OrderRepository {
	return &OrderRepository{orders: make(map[string]models.Order)}
}

func (r *OrderRepository) Save(_ context.Context, order *models.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.orders[order.ID] = *order
	return nil
}

func (r *OrderRepository) UpdateStatus(_ context.Context, orderID string, status models.OrderStatus, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[orderID]
	if !ok {
		return repositories.ErrOrderNotFound
	}
	o.Status = status
	o.UpdatedAt = at
	r.orders[orderID] = o
	return nil
}

func (r *OrderRepository) Get(_ context.Context, orderID string) (*models.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	o, ok := r.orders[orderID]
	if !ok {
		return nil, repositories.ErrOrderNotFound
	}
	return &o, nil
}

func (r *OrderRepository) List(_ context.Context) ([]*models.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	orders := make([]*models.Order, 0, len(r.orders))
	for _, o := range r.orders {
		o := o
		orders = append(orders, &o)
	}
	sort.Slice(orders, func(i, j int) bool {
		if orders[i].CreatedAt.Equal(orders[j].CreatedAt) {
			return orders[i].ID < orders[j].ID
		}
		return orders[i].CreatedAt.After(orders[j].CreatedAt)
	})
	return orders, nil
}

func (r *OrderRepository) Count(_ context.Context) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.orders), nil
}

func (r *OrderRepository) DeleteAll(_ context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.orders = make(map[string]models.Order)
	return nil
}
