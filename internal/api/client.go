package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/chrisdamba/homeservices/internal/models"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Client talks to the home-services backend.
type Client interface {
	// ListVendors returns the vendors offering a service in a category.
	//
	// Args
	//
	// - context.Context
	//
	// - categoryID, serviceID: the service being requested
	//
	// Returns
	//
	// - []models.Vendor: vendors as the backend returned them
	//
	// - error: *Error when the backend refused, a wrapped ErrUnreachable
	// when it could not be reached.
	ListVendors(ctx context.Context, categoryID, serviceID string) ([]models.Vendor, error)

	// CreateOrder registers a new order for a vendor.
	//
	// Args
	//
	// - context.Context
	//
	// - models.OrderRequest: vendor, service, category, location and description
	//
	// Returns
	//
	// - models.Order: the order with the id assigned by the backend
	//
	// - error
	CreateOrder(ctx context.Context, req models.OrderRequest) (models.Order, error)

	// TriggerCall asks the backend to reach the vendor of an order by IVR call.
	TriggerCall(ctx context.Context, orderID string) error

	// GetOrderStatus returns the order status exactly as the backend sent it.
	// Use models.ParseOrderStatus to map it onto the known statuses.
	GetOrderStatus(ctx context.Context, orderID string) (models.OrderStatus, error)

	// GetOrder returns the confirmation details of an order.
	GetOrder(ctx context.Context, orderID string) (models.OrderDetails, error)

	// ListAddresses returns the saved addresses of the signed-in customer.
	ListAddresses(ctx context.Context) ([]models.Address, error)

	// CreateAddress saves a new address and returns it with its id.
	CreateAddress(ctx context.Context, address models.Address) (models.Address, error)

	// DeleteAddress removes a saved address.
	DeleteAddress(ctx context.Context, addressID string) error

	// ListServices returns the service catalogue of a category.
	ListServices(ctx context.Context, categoryID string) ([]models.Service, error)

	// SendVerificationCode has the backend text a sign-up code to phone.
	SendVerificationCode(ctx context.Context, phone string) error

	// VerifyCodeAndCreateUser creates the customer account once the code is
	// confirmed and returns the session token for it.
	VerifyCodeAndCreateUser(ctx context.Context, reg models.Registration) (models.Credentials, error)
}

const RequestIDHeader = "X-Request-Id"

type client struct {
	httpclient *http.Client
	timeout    time.Duration
	api        string
	token      string
	log        logrus.FieldLogger
}

type Option func(*client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *client) {
		c.httpclient = hc
	}
}

// WithTimeout bounds every request, including reading the response. The
// client passed to WithHTTPClient is copied, not modified.
func WithTimeout(d time.Duration) Option {
	return func(c *client) {
		c.timeout = d
	}
}

// WithToken sets the bearer token sent with address requests.
func WithToken(token string) Option {
	return func(c *client) {
		c.token = token
	}
}

func WithLogger(l logrus.FieldLogger) Option {
	return func(c *client) {
		c.log = l
	}
}

// NewClient creates a client for the API rooted at baseURL.
func NewClient(baseURL string, opts ...Option) (Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid api base url %q: %w", baseURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid api base url %q: scheme must be http or https", baseURL)
	}

	c := &client{
		httpclient: new(http.Client),
		api:        strings.TrimSuffix(baseURL, "/"),
		log:        logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.timeout > 0 {
		hc := *c.httpclient
		hc.Timeout = c.timeout
		c.httpclient = &hc
	}
	return c, nil
}

func (c *client) apipath(p ...string) string {
	escaped := make([]string, len(p))
	for i := range p {
		escaped[i] = url.PathEscape(p[i])
	}
	return c.api + "/" + strings.Join(escaped, "/")
}

// do sends a JSON request. body may be nil.
func (c *client) do(ctx context.Context, method, target string, body interface{}, auth bool) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encoding request body: %w", err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, err
	}
	requestID := uuid.NewString()
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set(RequestIDHeader, requestID)
	if auth && c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	log := c.log.WithFields(logrus.Fields{
		"method":     method,
		"path":       req.URL.Path,
		"request_id": requestID,
	})

	start := time.Now()
	resp, err := c.httpclient.Do(req)
	if err != nil {
		log.WithError(err).Error("API request failed")
		return nil, fmt.Errorf("%w: %s %s: %w", ErrUnreachable, method, req.URL.Path, err)
	}
	log.WithFields(logrus.Fields{
		"status":  resp.StatusCode,
		"latency": time.Since(start),
	}).Debug("API request done")
	return resp, nil
}

func (c *client) ListVendors(ctx context.Context, categoryID, serviceID string) ([]models.Vendor, error) {
	q := url.Values{}
	q.Set("categoryId", categoryID)
	q.Set("serviceId", serviceID)
	target := c.apipath("vendors", "by-service") + "?" + q.Encode()

	resp, err := c.do(ctx, http.MethodGet, target, nil, false)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var payload struct {
		envelope
		Vendors []models.Vendor `json:"vendors"`
	}
	if err := decodeEnvelope(resp, &payload, &payload.envelope); err != nil {
		return nil, err
	}
	return payload.Vendors, nil
}

func (c *client) CreateOrder(ctx context.Context, req models.OrderRequest) (models.Order, error) {
	resp, err := c.do(ctx, http.MethodPost, c.apipath("orders"), req, false)
	if err != nil {
		return models.Order{}, err
	}
	defer resp.Body.Close()

	var payload struct {
		envelope
		Order *models.Order `json:"order"`
	}
	if err := decodeEnvelope(resp, &payload, &payload.envelope); err != nil {
		return models.Order{}, err
	}
	if payload.Order == nil || payload.Order.ID == "" {
		return models.Order{}, &Error{StatusCode: resp.StatusCode, Message: "order id missing in response"}
	}
	return *payload.Order, nil
}

func (c *client) TriggerCall(ctx context.Context, orderID string) error {
	body := struct {
		OrderID string `json:"orderId"`
	}{OrderID: orderID}

	resp, err := c.do(ctx, http.MethodPost, c.apipath("ivr", "call"), body, false)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var payload envelope
	return decodeEnvelope(resp, &payload, &payload)
}

func (c *client) GetOrderStatus(ctx context.Context, orderID string) (models.OrderStatus, error) {
	resp, err := c.do(ctx, http.MethodGet, c.apipath("orders", orderID, "status"), nil, false)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var payload struct {
		envelope
		Order *struct {
			Status models.OrderStatus `json:"status"`
		} `json:"order"`
	}
	if err := decodeEnvelope(resp, &payload, &payload.envelope); err != nil {
		return "", err
	}
	if payload.Order == nil {
		return "", &Error{StatusCode: resp.StatusCode, Message: "order missing in status response"}
	}
	return payload.Order.Status, nil
}

func (c *client) GetOrder(ctx context.Context, orderID string) (models.OrderDetails, error) {
	resp, err := c.do(ctx, http.MethodGet, c.apipath("orders", orderID), nil, false)
	if err != nil {
		return models.OrderDetails{}, err
	}
	defer resp.Body.Close()

	var payload struct {
		envelope
		Order *models.OrderDetails `json:"order"`
	}
	if err := decodeEnvelope(resp, &payload, &payload.envelope); err != nil {
		return models.OrderDetails{}, err
	}
	if payload.Order == nil {
		return models.OrderDetails{}, &Error{StatusCode: resp.StatusCode, Message: "Order details not found"}
	}
	return *payload.Order, nil
}

func (c *client) ListAddresses(ctx context.Context) ([]models.Address, error) {
	resp, err := c.do(ctx, http.MethodGet, c.apipath("addresses"), nil, true)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var addresses []models.Address
	if err := decodePlain(resp, &addresses); err != nil {
		return nil, err
	}
	return addresses, nil
}

func (c *client) CreateAddress(ctx context.Context, address models.Address) (models.Address, error) {
	if err := address.Validate(); err != nil {
		return models.Address{}, err
	}
	resp, err := c.do(ctx, http.MethodPost, c.apipath("addresses"), address, true)
	if err != nil {
		return models.Address{}, err
	}
	defer resp.Body.Close()

	var created models.Address
	if err := decodePlain(resp, &created); err != nil {
		return models.Address{}, err
	}
	return created, nil
}

func (c *client) DeleteAddress(ctx context.Context, addressID string) error {
	if addressID == "" {
		return errors.New("address id is empty")
	}
	resp, err := c.do(ctx, http.MethodDelete, c.apipath("addresses", addressID), nil, true)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return decodePlain[struct{}](resp, nil)
}

func (c *client) ListServices(ctx context.Context, categoryID string) ([]models.Service, error) {
	q := url.Values{}
	q.Set("categoryId", categoryID)
	target := c.apipath("users", "services") + "?" + q.Encode()

	resp, err := c.do(ctx, http.MethodGet, target, nil, false)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var payload struct {
		envelope
		Services []models.Service `json:"services"`
	}
	if err := decodeEnvelope(resp, &payload, &payload.envelope); err != nil {
		return nil, err
	}
	return payload.Services, nil
}

func (c *client) SendVerificationCode(ctx context.Context, phone string) error {
	if phone == "" {
		return errors.New("phone number is empty")
	}
	body := struct {
		Phone string `json:"phone"`
	}{Phone: phone}

	resp, err := c.do(ctx, http.MethodPost, c.apipath("users", "send-verification-code"), body, false)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return decodePlain[struct{}](resp, nil)
}

func (c *client) VerifyCodeAndCreateUser(ctx context.Context, reg models.Registration) (models.Credentials, error) {
	if reg.Role == "" {
		reg.Role = models.RoleCustomer
	}
	if err := reg.Validate(); err != nil {
		return models.Credentials{}, err
	}
	resp, err := c.do(ctx, http.MethodPost, c.apipath("users", "verify-code-and-create-user"), reg, false)
	if err != nil {
		return models.Credentials{}, err
	}
	defer resp.Body.Close()

	var creds models.Credentials
	if err := decodePlain(resp, &creds); err != nil {
		return models.Credentials{}, err
	}
	if creds.Token == "" {
		return models.Credentials{}, &Error{StatusCode: resp.StatusCode, Message: "token missing in response"}
	}
	return creds, nil
}
