package memory_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/chrisdamba/homeservices/internal/models"
	"github.com/chrisdamba/homeservices/internal/repositories"
	"github.com/chrisdamba/homeservices/internal/repositories/memory"
	"github.com/google/go-cmp/cmp"
)

var t0 = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func ids(orders []*models.Order) []string {
	out := make([]string, len(orders))
	for i, o := range orders {
		out[i] = o.ID
	}
	return out
}

func TestOrderRepository(t *testing.T) {
	ctx := context.Background()

	t.Run("saved orders are listed newest first", func(t *testing.T) {
		repo := memory.NewOrderRepository()
		created := map[string]time.Time{"old": t0, "new": t0.Add(time.Hour), "mid": t0.Add(time.Minute)}
		for id, at := range created {
			if err := repo.Save(ctx, &models.Order{ID: id, Status: models.OrderStatusPending, CreatedAt: at}); err != nil {
				t.Fatal(err)
			}
		}
		got, err := repo.List(ctx)
		if err != nil {
			t.Fatal(err)
		}
		if diff := cmp.Diff([]string{"new", "mid", "old"}, ids(got)); diff != "" {
			t.Errorf("(-want +got):\n%s", diff)
		}
		if n, _ := repo.Count(ctx); n != 3 {
			t.Errorf("Count() = %d", n)
		}
	})

	t.Run("status updates touch only status and update time", func(t *testing.T) {
		repo := memory.NewOrderRepository()
		order := &models.Order{ID: "o-1", Status: models.OrderStatusPending, VendorID: "v1", CreatedAt: t0}
		repo.Save(ctx, order)

		if err := repo.UpdateStatus(ctx, "o-1", models.OrderStatusAccepted, t0.Add(6*time.Second)); err != nil {
			t.Fatal(err)
		}
		got, err := repo.Get(ctx, "o-1")
		if err != nil {
			t.Fatal(err)
		}
		want := models.Order{
			ID: "o-1", Status: models.OrderStatusAccepted, VendorID: "v1",
			CreatedAt: t0, UpdatedAt: t0.Add(6 * time.Second),
		}
		if diff := cmp.Diff(want, *got); diff != "" {
			t.Errorf("(-want +got):\n%s", diff)
		}
		if order.Status != models.OrderStatusPending {
			t.Error("the caller's order was mutated")
		}
	})

	t.Run("unknown orders report ErrOrderNotFound", func(t *testing.T) {
		repo := memory.NewOrderRepository()
		if _, err := repo.Get(ctx, "nope"); !errors.Is(err, repositories.ErrOrderNotFound) {
			t.Errorf("Get: err = %v", err)
		}
		if err := repo.UpdateStatus(ctx, "nope", models.OrderStatusAccepted, t0); !errors.Is(err, repositories.ErrOrderNotFound) {
			t.Errorf("UpdateStatus: err = %v", err)
		}
	})

	t.Run("DeleteAll empties the history", func(t *testing.T) {
		repo := memory.NewOrderRepository()
		repo.Save(ctx, &models.Order{ID: "o-1"})
		repo.DeleteAll(ctx)
		if n, _ := repo.Count(ctx); n != 0 {
			t.Errorf("Count() = %d", n)
		}
	})
}

func TestSplitByActivity(t *testing.T) {
	orders := []*models.Order{
		{ID: "a", Status: models.OrderStatusPending},
		{ID: "b", Status: models.OrderStatusCompleted},
		{ID: "c", Status: models.OrderStatusInProgress},
		{ID: "d", Status: models.OrderStatusRejected},
		{ID: "e", Status: models.OrderStatusAccepted},
		{ID: "f", Status: models.OrderStatusUnknown},
	}
	active, completed := repositories.SplitByActivity(orders)
	if diff := cmp.Diff([]string{"a", "c", "e"}, ids(active)); diff != "" {
		t.Errorf("active (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"b", "d", "f"}, ids(completed)); diff != "" {
		t.Errorf("completed (-want +got):\n%s", diff)
	}
}
