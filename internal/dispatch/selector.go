package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/chrisdamba/homeservices/internal/api"
	"github.com/chrisdamba/homeservices/internal/cache"
	"github.com/chrisdamba/homeservices/internal/journal"
	"github.com/chrisdamba/homeservices/internal/models"
	"github.com/chrisdamba/homeservices/internal/repositories"
	"github.com/sirupsen/logrus"
)

const InAppBookingNotice = "This vendor uses the mobile app. This feature will be implemented soon."

var (
	// ErrInAppBookingUnsupported is returned for vendors that book through
	// the mobile app. It is reported to the user as a notice.
	ErrInAppBookingUnsupported = errors.New("in-app booking is not supported yet")

	ErrDispatchInProgress = errors.New("a call is already in progress")
)

// Backend is the part of the API the selector drives.
type Backend interface {
	ListVendors(ctx context.Context, categoryID, serviceID string) ([]models.Vendor, error)
	CreateOrder(ctx context.Context, req models.OrderRequest) (models.Order, error)
	TriggerCall(ctx context.Context, orderID string) error
}

// ServiceRequest names the service an order is placed for.
type ServiceRequest struct {
	CategoryID  string
	ServiceID   string
	ServiceName string
}

func (r ServiceRequest) Description() string {
	return fmt.Sprintf("New %s service request", r.ServiceName)
}

// CustomerLocation is where the vendor is sent.
type CustomerLocation struct {
	models.Location
	Address string
}

// Selector lists vendors for a service and dispatches an order to the one
// the customer picks.
type Selector struct {
	backend  Backend
	poller   *Poller
	notifier Notifier
	customer CustomerLocation
	log      logrus.FieldLogger

	cache   cache.VendorCache
	journal *journal.Recorder
	orders  repositories.OrderRepository

	mu      sync.Mutex
	vendors []models.Vendor
	active  *Session
	// set from the in-progress check until the session starts or the
	// dispatch fails
	dispatching bool
}

type SelectorOption func(*Selector)

func WithVendorCache(c cache.VendorCache) SelectorOption {
	return func(s *Selector) {
		s.cache = c
	}
}

func WithSelectorJournal(r *journal.Recorder) SelectorOption {
	return func(s *Selector) {
		s.journal = r
	}
}

func WithSelectorOrders(r repositories.OrderRepository) SelectorOption {
	return func(s *Selector) {
		s.orders = r
	}
}

func WithSelectorLogger(l logrus.FieldLogger) SelectorOption {
	return func(s *Selector) {
		s.log = l
	}
}

func NewSelector(backend Backend, poller *Poller, notifier Notifier, customer CustomerLocation, opts ...SelectorOption) *Selector {
	s := &Selector{
		backend:  backend,
		poller:   poller,
		notifier: notifier,
		customer: customer,
		log:      logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Vendors returns the list from the last LoadVendors.
func (s *Selector) Vendors() []models.Vendor {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Vendor(nil), s.vendors...)
}

// LoadVendors fetches the vendors for a service, nearest to the customer
// first. On failure the user is alerted and the list is left empty.
func (s *Selector) LoadVendors(ctx context.Context, categoryID, serviceID string) ([]models.Vendor, error) {
	log := s.log.WithFields(logrus.Fields{
		"category_id": categoryID,
		"service_id":  serviceID,
	})

	vendors, hit := s.cachedVendors(ctx, log, categoryID, serviceID)
	if !hit {
		var err error
		vendors, err = s.backend.ListVendors(ctx, categoryID, serviceID)
		if err != nil {
			log.WithError(err).Error("Failed to load vendors")
			s.setVendors(nil)
			s.notifier.Alert(Alert{
				Level:   AlertError,
				Title:   "Error",
				Message: api.UserMessage(err, "Failed to load vendors"),
			})
			return nil, err
		}
		if s.cache != nil {
			if err := s.cache.Set(ctx, categoryID, serviceID, vendors); err != nil {
				log.WithError(err).Warn("Failed to cache vendors")
			}
		}
	}

	valid := make([]models.Vendor, 0, len(vendors))
	for _, v := range vendors {
		if err := v.Validate(); err != nil {
			log.WithError(err).Warn("Skipping invalid vendor")
			continue
		}
		valid = append(valid, v)
	}
	sorted := models.SortByDistance(valid, s.customer.Location)
	s.setVendors(sorted)
	log.WithField("count", len(sorted)).Info("Vendors loaded")
	return sorted, nil
}

func (s *Selector) cachedVendors(ctx context.Context, log logrus.FieldLogger, categoryID, serviceID string) ([]models.Vendor, bool) {
	if s.cache == nil {
		return nil, false
	}
	vendors, ok, err := s.cache.Get(ctx, categoryID, serviceID)
	if err != nil {
		log.WithError(err).Warn("Vendor cache unavailable")
		return nil, false
	}
	if ok {
		log.Debug("Vendor list served from cache")
	}
	return vendors, ok
}

func (s *Selector) setVendors(vendors []models.Vendor) {
	s.mu.Lock()
	s.vendors = vendors
	s.mu.Unlock()
}

// Active returns the running call session, if any.
func (s *Selector) Active() *Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active != nil && s.active.Closed() {
		s.active = nil
	}
	return s.active
}

// SelectVendor places an order with vendor, asks the backend to call the
// vendor, and returns the call session tracking the answer.
//
// Vendors with the mobile app are refused with ErrInAppBookingUnsupported
// before any request is made. If the order cannot be created no call is
// requested. If the call cannot be requested the order stays on the backend
// and no session is started.
func (s *Selector) SelectVendor(ctx context.Context, vendor models.Vendor, req ServiceRequest, cb Callbacks) (*Session, error) {
	log := s.log.WithFields(logrus.Fields{
		"vendor_id":  vendor.ID,
		"service_id": req.ServiceID,
	})

	if vendor.DispatchMode() == models.DispatchInApp {
		log.Info("Vendor books in-app")
		s.notifier.Alert(Alert{Level: AlertInfo, Title: "Smartphone User", Message: InAppBookingNotice})
		return nil, ErrInAppBookingUnsupported
	}

	s.mu.Lock()
	if s.dispatching || (s.active != nil && !s.active.Closed()) {
		s.mu.Unlock()
		return nil, ErrDispatchInProgress
	}
	s.dispatching = true
	s.active = nil
	s.mu.Unlock()

	order, err := s.backend.CreateOrder(ctx, models.OrderRequest{
		VendorID:   vendor.ID,
		ServiceID:  req.ServiceID,
		CategoryID: req.CategoryID,
		Location: models.OrderLocation{
			Latitude:  s.customer.Lat,
			Longitude: s.customer.Lon,
			Address:   s.customer.Address,
		},
		Description: req.Description(),
	})
	if err != nil {
		log.WithError(err).Error("Failed to create order")
		s.fail(err, "Failed to create order")
		return nil, fmt.Errorf("create order: %w", err)
	}

	log = log.WithField("order_id", order.ID)
	log.Info("Order created")
	s.saveOrder(ctx, log, order, vendor, req)
	s.record(models.EventOrderCreated, order.ID, vendor, req, "")

	if err := s.backend.TriggerCall(ctx, order.ID); err != nil {
		// the backend order is left as it is: whether it should be
		// cancelled here depends on backend cleanup rules
		log.WithError(err).Error("Failed to initiate call")
		s.record(models.EventCallFailed, order.ID, vendor, req, err.Error())
		s.fail(err, "Failed to initiate call to vendor")
		return nil, fmt.Errorf("trigger call for order %s: %w", order.ID, err)
	}
	s.record(models.EventCallTriggered, order.ID, vendor, req, "")
	log.Info("IVR call initiated")

	session := s.poller.Start(ctx, order.ID, vendor, cb)
	s.mu.Lock()
	s.active = session
	s.dispatching = false
	s.mu.Unlock()
	return session, nil
}

func (s *Selector) fail(err error, fallback string) {
	s.mu.Lock()
	s.active = nil
	s.dispatching = false
	s.mu.Unlock()

	msg := api.UserMessage(err, fallback)
	if errors.Is(err, api.ErrUnreachable) {
		msg = "Failed to process your request"
	}
	s.notifier.Alert(Alert{Level: AlertError, Title: "Error", Message: msg})
}

func (s *Selector) saveOrder(ctx context.Context, log logrus.FieldLogger, order models.Order, vendor models.Vendor, req ServiceRequest) {
	if s.orders == nil {
		return
	}
	if order.VendorID == "" {
		order.VendorID = vendor.ID
	}
	if order.ServiceID == "" {
		order.ServiceID = req.ServiceID
	}
	if order.CategoryID == "" {
		order.CategoryID = req.CategoryID
	}
	if order.Status == "" {
		order.Status = models.OrderStatusPending
	}
	if order.Price == "" {
		order.Price = vendor.Price
	}
	if order.Description == "" {
		order.Description = req.Description()
	}
	if order.Location == (models.Location{}) {
		order.Location = s.customer.Location
	}
	if order.CreatedAt.IsZero() {
		order.CreatedAt = s.poller.Clock().Now()
	}
	if err := s.orders.Save(ctx, &order); err != nil {
		log.WithError(err).Warn("Failed to cache order")
	}
}

func (s *Selector) record(eventType, orderID string, vendor models.Vendor, req ServiceRequest, message string) {
	if s.journal == nil {
		return
	}
	ev := models.NewDispatchEvent(eventType, s.poller.Clock().Now())
	ev.OrderID = orderID
	ev.VendorID = vendor.ID
	ev.ServiceID = req.ServiceID
	ev.CategoryID = req.CategoryID
	ev.Latitude = s.customer.Lat
	ev.Longitude = s.customer.Lon
	ev.Message = message
	s.journal.Record(ev)
}
