// Package sandbox serves a stand-in for the marketplace backend: vendors,
// orders with a scripted call outcome, and saved addresses.
package sandbox

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/chrisdamba/homeservices/internal/models"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/lucsky/cuid"
	"github.com/sirupsen/logrus"
)

// unreachableScript is answered for vendors that never pick up.
var unreachableScript = []models.OrderStatus{models.OrderStatusPending, models.OrderStatusVendorUnavailable}

type order struct {
	models.Order
	vendor    models.Vendor
	script    []models.OrderStatus
	called    bool
	polls     int
	serviceID string
}

// status advances the script by one poll. Orders whose call was never
// placed stay pending.
func (o *order) status() models.OrderStatus {
	if !o.called || len(o.script) == 0 {
		return models.OrderStatusPending
	}
	i := o.polls
	if i >= len(o.script) {
		i = len(o.script) - 1
	}
	o.polls++
	return o.script[i]
}

type Server struct {
	cfg     models.SandboxConfig
	log     logrus.FieldLogger
	vendors *VendorFactory
	metrics *metrics
	echo    *echo.Echo
	now     func() time.Time

	mu        sync.Mutex
	catalog   map[string][]models.Vendor
	byID      map[string]models.Vendor
	services  map[string][]models.Service
	orders    map[string]*order
	addresses []models.Address
	// codes sent per phone number, and registered users by phone
	codes map[string]string
	users map[string]models.User
}

type Option func(*Server)

func WithLogger(l logrus.FieldLogger) Option {
	return func(s *Server) {
		s.log = l
	}
}

func WithNow(now func() time.Time) Option {
	return func(s *Server) {
		s.now = now
	}
}

func NewServer(cfg models.SandboxConfig, opts ...Option) *Server {
	s := &Server{
		cfg:      cfg,
		log:      logrus.StandardLogger(),
		vendors:  NewVendorFactory(cfg),
		metrics:  newMetrics(),
		now:      time.Now,
		catalog:  make(map[string][]models.Vendor),
		byID:     make(map[string]models.Vendor),
		services: make(map[string][]models.Service),
		orders:   make(map[string]*order),
		codes:    make(map[string]string),
		users:    make(map[string]models.User),
	}
	for _, opt := range opts {
		opt(s)
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(s.logRequests, s.metrics.middleware)

	e.GET("/users/services", s.listServices)
	e.POST("/users/send-verification-code", s.sendVerificationCode)
	e.POST("/users/verify-code-and-create-user", s.verifyCodeAndCreateUser)
	e.GET("/vendors/by-service", s.listVendors)
	e.POST("/orders", s.createOrder)
	e.GET("/orders/:id", s.getOrder)
	e.GET("/orders/:id/status", s.getOrderStatus)
	e.POST("/ivr/call", s.triggerCall)

	addresses := e.Group("/addresses", requireBearer)
	addresses.GET("", s.listAddresses)
	addresses.POST("", s.createAddress)
	addresses.DELETE("/:id", s.deleteAddress)

	e.GET("/metrics", s.metrics.handler())
	s.echo = e
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.echo.ServeHTTP(w, r)
}

// Run serves on addr until ctx is cancelled.
func (s *Server) Run(ctx context.Context, addr string) error {
	errc := make(chan error, 1)
	go func() {
		errc <- s.echo.Start(addr)
	}()
	s.log.WithField("addr", addr).Info("Sandbox backend listening")

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.echo.Shutdown(shutdownCtx); err != nil {
		s.echo.Close()
		return err
	}
	if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) logRequests(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		req := c.Request()
		start := time.Now()
		err := next(c)
		s.log.WithFields(logrus.Fields{
			"method":     req.Method,
			"path":       req.URL.Path,
			"status":     c.Response().Status,
			"latency":    time.Since(start),
			"request_id": req.Header.Get("X-Request-Id"),
		}).Debug("Sandbox request")
		return err
	}
}

func requireBearer(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		auth := c.Request().Header.Get("Authorization")
		if !strings.HasPrefix(auth, "Bearer ") || strings.TrimPrefix(auth, "Bearer ") == "" {
			return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
		}
		return next(c)
	}
}

type envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

func fail(c echo.Context, code int, message string) error {
	return c.JSON(code, envelope{Success: false, Message: message})
}

func (s *Server) listVendors(c echo.Context) error {
	categoryID := c.QueryParam("categoryId")
	serviceID := c.QueryParam("serviceId")
	if categoryID == "" || serviceID == "" {
		return fail(c, http.StatusBadRequest, "categoryId and serviceId are required")
	}

	s.mu.Lock()
	key := categoryID + "/" + serviceID
	vendors, ok := s.catalog[key]
	if !ok {
		vendors = s.vendors.CreateVendors(s.cfg.VendorsPerQuery)
		s.catalog[key] = vendors
		for _, v := range vendors {
			s.byID[v.ID] = v
		}
	}
	s.mu.Unlock()

	return c.JSON(http.StatusOK, struct {
		envelope
		Vendors []models.Vendor `json:"vendors"`
	}{envelope{Success: true}, vendors})
}

func (s *Server) listServices(c echo.Context) error {
	categoryID := c.QueryParam("categoryId")
	if categoryID == "" {
		return fail(c, http.StatusBadRequest, "categoryId is required")
	}

	s.mu.Lock()
	services, ok := s.services[categoryID]
	if !ok {
		services = s.vendors.CreateServices(categoryID)
		s.services[categoryID] = services
	}
	s.mu.Unlock()

	return c.JSON(http.StatusOK, struct {
		envelope
		Services []models.Service `json:"services"`
	}{envelope{Success: true}, services})
}

func (s *Server) sendVerificationCode(c echo.Context) error {
	var req struct {
		Phone string `json:"phone"`
	}
	if err := c.Bind(&req); err != nil || req.Phone == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"message": "Phone number is required"})
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[req.Phone]; ok {
		return c.JSON(http.StatusConflict, map[string]string{"message": "Phone number already registered"})
	}
	code := s.vendors.VerificationCode()
	s.codes[req.Phone] = code
	// stands in for the SMS
	s.log.WithFields(logrus.Fields{"phone": req.Phone, "code": code}).Info("Sandbox verification code sent")
	return c.JSON(http.StatusOK, map[string]string{"message": "Verification code sent"})
}

func (s *Server) verifyCodeAndCreateUser(c echo.Context) error {
	var reg models.Registration
	if err := c.Bind(&reg); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"message": "Invalid request body"})
	}
	if err := reg.Validate(); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"message": err.Error()})
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if code, ok := s.codes[reg.Phone]; !ok || code != reg.Code {
		return c.JSON(http.StatusBadRequest, map[string]string{"message": "Invalid verification code"})
	}
	delete(s.codes, reg.Phone)

	role := reg.Role
	if role == "" {
		role = models.RoleCustomer
	}
	user := models.User{ID: cuid.New(), Name: reg.Name, Phone: reg.Phone, Role: role}
	s.users[reg.Phone] = user
	s.log.WithField("user_id", user.ID).Info("Sandbox user created")

	return c.JSON(http.StatusCreated, models.Credentials{Token: uuid.NewString(), User: user})
}

func (s *Server) createOrder(c echo.Context) error {
	var req models.OrderRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "Invalid request body")
	}
	if req.VendorID == "" || req.ServiceID == "" || req.CategoryID == "" {
		return fail(c, http.StatusBadRequest, "vendorId, serviceId and categoryId are required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	vendor, ok := s.byID[req.VendorID]
	if !ok {
		return fail(c, http.StatusNotFound, "Vendor not found")
	}

	o := &order{
		Order: models.Order{
			ID:          cuid.New(),
			Status:      models.OrderStatusPending,
			VendorID:    vendor.ID,
			ServiceID:   req.ServiceID,
			CategoryID:  req.CategoryID,
			Price:       vendor.Price,
			Description: req.Description,
			Location:    models.Location{Lat: req.Location.Latitude, Lon: req.Location.Longitude},
			CreatedAt:   s.now().UTC(),
		},
		vendor:    vendor,
		script:    s.scriptFor(vendor.ID),
		serviceID: req.ServiceID,
	}
	s.orders[o.ID] = o
	s.metrics.ordersCreated.Inc()
	s.log.WithFields(logrus.Fields{"order_id": o.ID, "vendor_id": vendor.ID}).Info("Sandbox order created")

	return c.JSON(http.StatusCreated, struct {
		envelope
		Order models.Order `json:"order"`
	}{envelope{Success: true, Message: "Order created"}, o.Order})
}

func (s *Server) scriptFor(vendorID string) []models.OrderStatus {
	if s.vendors.Unreachable(vendorID) {
		return unreachableScript
	}
	script := make([]models.OrderStatus, len(s.cfg.StatusScript))
	for i, raw := range s.cfg.StatusScript {
		script[i] = models.OrderStatus(raw)
	}
	return script
}

func (s *Server) triggerCall(c echo.Context) error {
	var req struct {
		OrderID string `json:"orderId"`
	}
	if err := c.Bind(&req); err != nil || req.OrderID == "" {
		s.metrics.ivrCalls.WithLabelValues("invalid").Inc()
		return fail(c, http.StatusBadRequest, "orderId is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[req.OrderID]
	if !ok {
		s.metrics.ivrCalls.WithLabelValues("not_found").Inc()
		return fail(c, http.StatusNotFound, "Order not found")
	}
	if s.cfg.FailCalls {
		s.metrics.ivrCalls.WithLabelValues("failed").Inc()
		return fail(c, http.StatusBadGateway, "IVR provider unavailable")
	}
	o.called = true
	s.metrics.ivrCalls.WithLabelValues("placed").Inc()
	return c.JSON(http.StatusOK, envelope{Success: true, Message: "Call initiated"})
}

func (s *Server) getOrderStatus(c echo.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[c.Param("id")]
	if !ok {
		return fail(c, http.StatusNotFound, "Order not found")
	}
	status := o.status()
	if status != o.Status {
		o.Status = status
		o.UpdatedAt = s.now().UTC()
	}
	s.metrics.statusPolls.WithLabelValues(string(status)).Inc()

	type orderStatus struct {
		Status models.OrderStatus `json:"status"`
	}
	return c.JSON(http.StatusOK, struct {
		envelope
		Order orderStatus `json:"order"`
	}{envelope{Success: true}, orderStatus{Status: status}})
}

func (s *Server) getOrder(c echo.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[c.Param("id")]
	if !ok {
		return fail(c, http.StatusNotFound, "Order not found")
	}

	d := models.OrderDetails{
		ID:        o.ID,
		Status:    o.Status,
		Price:     o.Price,
		CreatedAt: o.CreatedAt,
	}
	d.OrderVendor.ID = o.vendor.ID
	d.OrderVendor.User.Name = o.vendor.Name
	d.OrderVendor.User.Phone = o.vendor.PhoneForCalls
	d.OrderVendor.PhoneForCalls = o.vendor.PhoneForCalls
	d.OrderService.Name = o.serviceID
	d.OrderService.Description = o.Description

	return c.JSON(http.StatusOK, struct {
		envelope
		Order models.OrderDetails `json:"order"`
	}{envelope{Success: true}, d})
}

func (s *Server) listAddresses(c echo.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	addresses := append([]models.Address{}, s.addresses...)
	return c.JSON(http.StatusOK, addresses)
}

func (s *Server) createAddress(c echo.Context) error {
	var address models.Address
	if err := c.Bind(&address); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"message": "Invalid request body"})
	}
	if err := address.Validate(); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"message": err.Error()})
	}
	address.ID = cuid.New()

	s.mu.Lock()
	s.addresses = append(s.addresses, address)
	s.mu.Unlock()
	return c.JSON(http.StatusCreated, address)
}

func (s *Server) deleteAddress(c echo.Context) error {
	id := c.Param("id")
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.addresses {
		if s.addresses[i].ID == id {
			s.addresses = append(s.addresses[:i], s.addresses[i+1:]...)
			return c.NoContent(http.StatusNoContent)
		}
	}
	return c.JSON(http.StatusNotFound, map[string]string{"message": "Address not found"})
}
