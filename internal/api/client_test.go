package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/chrisdamba/homeservices/internal/api"
	"github.com/chrisdamba/homeservices/internal/models"
	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
)

type recorded struct {
	method string
	path   string
	query  string
	header http.Header
	body   []byte
}

func newServer(t *testing.T, status int, response string) (*httptest.Server, *[]recorded) {
	t.Helper()
	var requests []recorded
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		requests = append(requests, recorded{
			method: r.Method,
			path:   r.URL.Path,
			query:  r.URL.RawQuery,
			header: r.Header.Clone(),
			body:   body,
		})
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		w.Write([]byte(response))
	}))
	t.Cleanup(srv.Close)
	return srv, &requests
}

func newClient(t *testing.T, baseURL string, opts ...api.Option) api.Client {
	t.Helper()
	logger, _ := logtest.NewNullLogger()
	c, err := api.NewClient(baseURL, append([]api.Option{api.WithLogger(logger)}, opts...)...)
	if err != nil {
		t.Fatal(err)
	}
	return c
}

func TestNewClient(t *testing.T) {
	for name, baseURL := range map[string]string{
		"it rejects a url without scheme": "localhost:8080",
		"it rejects a non-http scheme":    "ftp://example.com",
		"it rejects an unparsable url":    "http://[::1",
	} {
		t.Run(name, func(t *testing.T) {
			if _, err := api.NewClient(baseURL); err == nil {
				t.Errorf("NewClient(%q) succeeded", baseURL)
			}
		})
	}

	t.Run("a timeout does not change the shared http client", func(t *testing.T) {
		release := make(chan struct{})
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-release:
			case <-r.Context().Done():
			}
		}))
		defer srv.Close()
		defer close(release)

		shared := &http.Client{}
		c := newClient(t, srv.URL, api.WithTimeout(50*time.Millisecond), api.WithHTTPClient(shared))
		if _, err := c.GetOrderStatus(context.Background(), "o-1"); !errors.Is(err, api.ErrUnreachable) {
			t.Errorf("err = %v, want ErrUnreachable", err)
		}
		if shared.Timeout != 0 {
			t.Errorf("shared client timeout = %s", shared.Timeout)
		}

		newClient(t, srv.URL, api.WithHTTPClient(http.DefaultClient), api.WithTimeout(5*time.Second))
		if http.DefaultClient.Timeout != 0 {
			t.Errorf("http.DefaultClient.Timeout = %s", http.DefaultClient.Timeout)
		}
	})
}

func TestListVendors(t *testing.T) {
	t.Run("it queries by category and service and decodes vendors", func(t *testing.T) {
		srv, requests := newServer(t, http.StatusOK, `{
			"success": true,
			"vendors": [
				{"id": "v1", "name": "Ali Plumbing", "rating": 4.5, "reviews": 12, "price": "Rs. 1500",
				 "hasSmartphone": false, "phoneForCalls": "+923001234567",
				 "location": {"latitude": 31.52, "longitude": 74.35}},
				{"id": "v2", "name": "Quick Fix", "rating": 3.9, "reviews": 4, "price": "Rs. 900",
				 "hasSmartphone": true, "location": {"latitude": 31.50, "longitude": 74.30}}
			]
		}`)
		c := newClient(t, srv.URL+"/api/")

		got, err := c.ListVendors(context.Background(), "cat-1", "svc 2")
		if err != nil {
			t.Fatal(err)
		}

		want := []models.Vendor{
			{
				ID: "v1", Name: "Ali Plumbing", Rating: 4.5, Reviews: 12, Price: "Rs. 1500",
				PhoneForCalls: "+923001234567", Location: models.Location{Lat: 31.52, Lon: 74.35},
			},
			{
				ID: "v2", Name: "Quick Fix", Rating: 3.9, Reviews: 4, Price: "Rs. 900",
				HasSmartphone: true, Location: models.Location{Lat: 31.50, Lon: 74.30},
			},
		}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("vendors (-want +got):\n%s", diff)
		}

		if len(*requests) != 1 {
			t.Fatalf("requests = %d, want 1", len(*requests))
		}
		req := (*requests)[0]
		if req.method != http.MethodGet || req.path != "/api/vendors/by-service" {
			t.Errorf("request = %s %s", req.method, req.path)
		}
		if req.query != "categoryId=cat-1&serviceId=svc+2" {
			t.Errorf("query = %q", req.query)
		}
		if _, err := uuid.Parse(req.header.Get(api.RequestIDHeader)); err != nil {
			t.Errorf("request id %q is not a uuid: %v", req.header.Get(api.RequestIDHeader), err)
		}
		if auth := req.header.Get("Authorization"); auth != "" {
			t.Errorf("vendor query sent Authorization %q", auth)
		}
	})

	t.Run("success=false becomes an *api.Error carrying the server message", func(t *testing.T) {
		srv, _ := newServer(t, http.StatusOK, `{"success": false, "message": "Category not found"}`)
		c := newClient(t, srv.URL)

		_, err := c.ListVendors(context.Background(), "x", "y")
		var apiErr *api.Error
		if !errors.As(err, &apiErr) {
			t.Fatalf("err = %v, want *api.Error", err)
		}
		if apiErr.Message != "Category not found" {
			t.Errorf("message = %q", apiErr.Message)
		}
		if !errors.Is(err, api.ErrRejected) {
			t.Error("errors.Is(err, ErrRejected) = false")
		}
	})

	t.Run("a transport failure wraps ErrUnreachable", func(t *testing.T) {
		srv := httptest.NewServer(http.NotFoundHandler())
		baseURL := srv.URL
		srv.Close()

		_, err := newClient(t, baseURL).ListVendors(context.Background(), "x", "y")
		if !errors.Is(err, api.ErrUnreachable) {
			t.Errorf("err = %v, want ErrUnreachable", err)
		}
		if errors.Is(err, api.ErrRejected) {
			t.Error("transport failure reported as rejection")
		}
	})
}

func TestCreateOrder(t *testing.T) {
	req := models.OrderRequest{
		VendorID:   "v1",
		ServiceID:  "s1",
		CategoryID: "c1",
		Location: models.OrderLocation{
			Latitude: 31.5204, Longitude: 74.3587, Address: "Customer Address",
		},
		Description: "New Plumbing service request",
	}

	t.Run("it posts the order and returns the assigned id", func(t *testing.T) {
		srv, requests := newServer(t, http.StatusCreated, `{"success": true, "order": {"id": "o-1", "status": "pending"}}`)
		c := newClient(t, srv.URL)

		order, err := c.CreateOrder(context.Background(), req)
		if err != nil {
			t.Fatal(err)
		}
		if order.ID != "o-1" || order.Status != models.OrderStatusPending {
			t.Errorf("order = %+v", order)
		}

		got := (*requests)[0]
		if got.method != http.MethodPost || got.path != "/orders" {
			t.Errorf("request = %s %s", got.method, got.path)
		}
		var body map[string]interface{}
		if err := json.Unmarshal(got.body, &body); err != nil {
			t.Fatal(err)
		}
		want := map[string]interface{}{
			"vendorId":   "v1",
			"serviceId":  "s1",
			"categoryId": "c1",
			"location": map[string]interface{}{
				"latitude": 31.5204, "longitude": 74.3587, "address": "Customer Address",
			},
			"description": "New Plumbing service request",
		}
		if diff := cmp.Diff(want, body); diff != "" {
			t.Errorf("body (-want +got):\n%s", diff)
		}
	})

	t.Run("a non-2xx status becomes an *api.Error", func(t *testing.T) {
		srv, _ := newServer(t, http.StatusBadRequest, `{"success": false, "message": "Vendor is busy"}`)
		_, err := newClient(t, srv.URL).CreateOrder(context.Background(), req)

		var apiErr *api.Error
		if !errors.As(err, &apiErr) {
			t.Fatalf("err = %v, want *api.Error", err)
		}
		if apiErr.StatusCode != http.StatusBadRequest || apiErr.Message != "Vendor is busy" {
			t.Errorf("err = %+v", apiErr)
		}
	})

	t.Run("a success response without an order id is an error", func(t *testing.T) {
		srv, _ := newServer(t, http.StatusOK, `{"success": true}`)
		if _, err := newClient(t, srv.URL).CreateOrder(context.Background(), req); !errors.Is(err, api.ErrRejected) {
			t.Errorf("err = %v, want ErrRejected", err)
		}
	})
}

func TestTriggerCall(t *testing.T) {
	t.Run("it posts the order id", func(t *testing.T) {
		srv, requests := newServer(t, http.StatusOK, `{"success": true}`)
		if err := newClient(t, srv.URL).TriggerCall(context.Background(), "o-1"); err != nil {
			t.Fatal(err)
		}
		got := (*requests)[0]
		if got.method != http.MethodPost || got.path != "/ivr/call" {
			t.Errorf("request = %s %s", got.method, got.path)
		}
		if string(got.body) != `{"orderId":"o-1"}` {
			t.Errorf("body = %s", got.body)
		}
	})

	t.Run("a server error without a body has an empty message", func(t *testing.T) {
		srv, _ := newServer(t, http.StatusInternalServerError, ``)
		err := newClient(t, srv.URL).TriggerCall(context.Background(), "o-1")
		if got := api.UserMessage(err, "Failed to initiate call"); got != "Failed to initiate call" {
			t.Errorf("UserMessage = %q", got)
		}
	})
}

func TestGetOrderStatus(t *testing.T) {
	t.Run("it returns the status as sent", func(t *testing.T) {
		srv, requests := newServer(t, http.StatusOK, `{"success": true, "order": {"status": "on_the_way"}}`)
		status, err := newClient(t, srv.URL).GetOrderStatus(context.Background(), "o/1")
		if err != nil {
			t.Fatal(err)
		}
		if status != "on_the_way" {
			t.Errorf("status = %q", status)
		}
		if models.ParseOrderStatus(string(status)) != models.OrderStatusUnknown {
			t.Error("unexpected known status")
		}
		if got := (*requests)[0].path; got != "/orders/o/1/status" {
			t.Errorf("path = %q", got)
		}
	})

	t.Run("a cancelled context aborts the request", func(t *testing.T) {
		srv, _ := newServer(t, http.StatusOK, `{"success": true, "order": {"status": "pending"}}`)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := newClient(t, srv.URL).GetOrderStatus(ctx, "o-1")
		if !errors.Is(err, context.Canceled) {
			t.Errorf("err = %v, want context.Canceled", err)
		}
	})
}

func TestGetOrder(t *testing.T) {
	srv, _ := newServer(t, http.StatusOK, `{
		"success": true,
		"order": {
			"id": "o-1", "status": "accepted", "price": "Rs. 1500",
			"createdAt": "2024-05-01T12:00:00Z",
			"orderVendor": {"id": "v1", "user": {"name": "Ali", "phone": "+92300"}, "phoneForCalls": "+92301"},
			"orderService": {"name": "Plumbing", "description": "Leak repair"}
		}
	}`)

	details, err := newClient(t, srv.URL).GetOrder(context.Background(), "o-1")
	if err != nil {
		t.Fatal(err)
	}
	if details.OrderVendor.User.Name != "Ali" || details.OrderService.Name != "Plumbing" {
		t.Errorf("details = %+v", details)
	}
	if details.Status != models.OrderStatusAccepted {
		t.Errorf("status = %s", details.Status)
	}
}

func TestAddresses(t *testing.T) {
	t.Run("list sends the bearer token and decodes a bare array", func(t *testing.T) {
		srv, requests := newServer(t, http.StatusOK, `[
			{"id": "a1", "label": "Home", "address": "12 Mall Road", "location": {"latitude": 31.5, "longitude": 74.3}}
		]`)
		got, err := newClient(t, srv.URL, api.WithToken("tok")).ListAddresses(context.Background())
		if err != nil {
			t.Fatal(err)
		}
		want := []models.Address{
			{ID: "a1", Label: "Home", Address: "12 Mall Road", Location: &models.Location{Lat: 31.5, Lon: 74.3}},
		}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("(-want +got):\n%s", diff)
		}
		if auth := (*requests)[0].header.Get("Authorization"); auth != "Bearer tok" {
			t.Errorf("Authorization = %q", auth)
		}
	})

	t.Run("create validates before sending", func(t *testing.T) {
		srv, requests := newServer(t, http.StatusOK, `{}`)
		_, err := newClient(t, srv.URL).CreateAddress(context.Background(), models.Address{Label: "Home", Address: "abc"})

		var fieldErrs models.AddressErrors
		if !errors.As(err, &fieldErrs) {
			t.Fatalf("err = %v, want AddressErrors", err)
		}
		if len(*requests) != 0 {
			t.Errorf("invalid address was sent")
		}
	})

	t.Run("delete reports the server message", func(t *testing.T) {
		srv, requests := newServer(t, http.StatusNotFound, `{"error": "Address not found"}`)
		err := newClient(t, srv.URL).DeleteAddress(context.Background(), "a9")
		if got := api.UserMessage(err, "Failed to delete address"); got != "Address not found" {
			t.Errorf("UserMessage = %q", got)
		}
		if got := (*requests)[0]; got.method != http.MethodDelete || got.path != "/addresses/a9" {
			t.Errorf("request = %s %s", got.method, got.path)
		}
	})
}

func TestListServices(t *testing.T) {
	t.Run("it queries by category and decodes the catalogue", func(t *testing.T) {
		srv, requests := newServer(t, http.StatusOK, `{
			"success": true,
			"services": [
				{"id": "1", "name": "AC Installation", "price": "$200", "time": "Approx. 3 hours",
				 "rating": 4.8, "reviews": 90, "image": "https://via.placeholder.com/100"}
			]
		}`)
		got, err := newClient(t, srv.URL).ListServices(context.Background(), "3")
		if err != nil {
			t.Fatal(err)
		}
		want := []models.Service{{
			ID: "1", Name: "AC Installation", Price: "$200", Time: "Approx. 3 hours",
			Rating: 4.8, Reviews: 90, Image: "https://via.placeholder.com/100",
		}}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("(-want +got):\n%s", diff)
		}
		if r := (*requests)[0]; r.path != "/users/services" || r.query != "categoryId=3" {
			t.Errorf("request = %s?%s", r.path, r.query)
		}
	})

	t.Run("success=false carries the server message", func(t *testing.T) {
		srv, _ := newServer(t, http.StatusOK, `{"success": false, "message": "Unknown category"}`)
		_, err := newClient(t, srv.URL).ListServices(context.Background(), "99")
		if got := api.UserMessage(err, "Failed to fetch services"); got != "Unknown category" {
			t.Errorf("UserMessage = %q", got)
		}
	})
}

func TestRegistration(t *testing.T) {
	reg := models.Registration{
		Name: "Sana", Phone: "+923001234567", Password: "secret",
		Location: &models.Location{Lat: 31.52, Lon: 74.35}, Code: "0427",
	}

	t.Run("sending a code posts the phone number", func(t *testing.T) {
		srv, requests := newServer(t, http.StatusOK, `{"message": "Verification code sent"}`)
		if err := newClient(t, srv.URL).SendVerificationCode(context.Background(), reg.Phone); err != nil {
			t.Fatal(err)
		}
		r := (*requests)[0]
		if r.method != http.MethodPost || r.path != "/users/send-verification-code" {
			t.Errorf("request = %s %s", r.method, r.path)
		}
		if string(r.body) != `{"phone":"+923001234567"}` {
			t.Errorf("body = %s", r.body)
		}
	})

	t.Run("a refused code request carries the server message", func(t *testing.T) {
		srv, _ := newServer(t, http.StatusBadRequest, `{"message": "Phone already registered"}`)
		err := newClient(t, srv.URL).SendVerificationCode(context.Background(), reg.Phone)
		if got := api.UserMessage(err, "Failed to send verification code"); got != "Phone already registered" {
			t.Errorf("UserMessage = %q", got)
		}
	})

	t.Run("verifying creates a customer and returns the token", func(t *testing.T) {
		srv, requests := newServer(t, http.StatusCreated, `{
			"token": "tok-1",
			"user": {"id": "u1", "name": "Sana", "phone": "+923001234567", "role": "customer"}
		}`)
		got, err := newClient(t, srv.URL).VerifyCodeAndCreateUser(context.Background(), reg)
		if err != nil {
			t.Fatal(err)
		}
		want := models.Credentials{
			Token: "tok-1",
			User:  models.User{ID: "u1", Name: "Sana", Phone: "+923001234567", Role: models.RoleCustomer},
		}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("(-want +got):\n%s", diff)
		}

		var sent models.Registration
		if err := json.Unmarshal((*requests)[0].body, &sent); err != nil {
			t.Fatal(err)
		}
		if sent.Role != models.RoleCustomer || sent.Code != "0427" || sent.Location == nil {
			t.Errorf("sent %+v", sent)
		}
	})

	t.Run("a malformed code is not sent", func(t *testing.T) {
		srv, requests := newServer(t, http.StatusCreated, `{}`)
		bad := reg
		bad.Code = "42"
		if _, err := newClient(t, srv.URL).VerifyCodeAndCreateUser(context.Background(), bad); !errors.Is(err, models.ErrInvalidCode) {
			t.Errorf("err = %v", err)
		}
		if len(*requests) != 0 {
			t.Error("request was sent")
		}
	})

	t.Run("a response without a token is an error", func(t *testing.T) {
		srv, _ := newServer(t, http.StatusOK, `{"user": {"id": "u1"}}`)
		if _, err := newClient(t, srv.URL).VerifyCodeAndCreateUser(context.Background(), reg); !errors.Is(err, api.ErrRejected) {
			t.Errorf("err = %v", err)
		}
	})
}

func TestRequestLogging(t *testing.T) {
	logger, hook := logtest.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	srv, _ := newServer(t, http.StatusOK, `{"success": true}`)

	c, err := api.NewClient(srv.URL, api.WithLogger(logger))
	if err != nil {
		t.Fatal(err)
	}
	if err := c.TriggerCall(context.Background(), "o-1"); err != nil {
		t.Fatal(err)
	}

	entry := hook.LastEntry()
	if entry == nil {
		t.Fatal("nothing logged")
	}
	if entry.Data["path"] != "/ivr/call" || entry.Data["status"] != http.StatusOK {
		t.Errorf("fields = %v", entry.Data)
	}
}
