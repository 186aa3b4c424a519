package cmd

import (
	"context"
	"fmt"

	"github.com/chrisdamba/homeservices/internal/api"
	"github.com/chrisdamba/homeservices/internal/cache"
	"github.com/chrisdamba/homeservices/internal/dispatch"
	"github.com/chrisdamba/homeservices/internal/journal"
	"github.com/chrisdamba/homeservices/internal/logger"
	"github.com/chrisdamba/homeservices/internal/repositories"
	"github.com/chrisdamba/homeservices/internal/repositories/memory"
	"github.com/chrisdamba/homeservices/internal/repositories/postgres"
	"github.com/hashicorp/go-multierror"
)

// app holds what the API-facing commands share.
type app struct {
	client  api.Client
	orders  repositories.OrderRepository
	vendors cache.VendorCache
	journal *journal.Recorder

	closers []func() error
}

func newApp(ctx context.Context) (*app, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	log := logger.Logger

	client, err := api.NewClient(
		cfg.API.BaseURL,
		api.WithTimeout(cfg.API.Timeout),
		api.WithToken(cfg.API.Token),
		api.WithLogger(log),
	)
	if err != nil {
		return nil, err
	}
	a := &app{client: client}

	sink, err := journal.New(cfg.Journal, log)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}
	a.journal = journal.NewRecorder(sink, log)
	a.closers = append(a.closers, a.journal.Close)

	if cfg.Database.DSN != "" {
		pool, err := postgres.NewPool(ctx, cfg.Database.DSN)
		if err != nil {
			a.Close()
			return nil, err
		}
		repo := postgres.NewOrderRepository(pool)
		if err := repo.EnsureSchema(ctx); err != nil {
			pool.Close()
			a.Close()
			return nil, err
		}
		a.orders = repo
		a.closers = append(a.closers, func() error { pool.Close(); return nil })
	} else {
		a.orders = memory.NewOrderRepository()
	}

	if cfg.Cache.RedisAddr != "" {
		rc := cache.NewRedisVendorCache(cfg.Cache)
		if err := rc.Ping(ctx); err != nil {
			log.WithError(err).Warn("Redis unavailable, caching vendors in memory")
			rc.Close()
			a.vendors = cache.NewMemoryVendorCache(cfg.Cache.TTL, nil)
		} else {
			a.vendors = rc
			a.closers = append(a.closers, rc.Close)
		}
	} else {
		a.vendors = cache.NewMemoryVendorCache(cfg.Cache.TTL, nil)
	}
	return a, nil
}

func (a *app) poller() *dispatch.Poller {
	return dispatch.NewPoller(
		a.client,
		dispatch.WithTimings(dispatch.TimingsFromConfig(cfg.Dispatch)),
		dispatch.WithLogger(logger.Logger),
		dispatch.WithJournal(a.journal),
		dispatch.WithOrderRepository(a.orders),
	)
}

func (a *app) selector() *dispatch.Selector {
	customer := dispatch.CustomerLocation{
		Location: cfg.CustomerLocation(),
		Address:  cfg.Customer.Address,
	}
	return dispatch.NewSelector(
		a.client,
		a.poller(),
		dispatch.LogNotifier{Log: logger.Logger},
		customer,
		dispatch.WithVendorCache(a.vendors),
		dispatch.WithSelectorJournal(a.journal),
		dispatch.WithSelectorOrders(a.orders),
		dispatch.WithSelectorLogger(logger.Logger),
	)
}

func (a *app) Close() error {
	var result error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			result = multierror.Append(result, err)
		}
	}
	a.closers = nil
	return result
}
