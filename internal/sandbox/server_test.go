package sandbox_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/chrisdamba/homeservices/internal/api"
	"github.com/chrisdamba/homeservices/internal/clock"
	"github.com/chrisdamba/homeservices/internal/dispatch"
	"github.com/chrisdamba/homeservices/internal/models"
	"github.com/chrisdamba/homeservices/internal/sandbox"
	"github.com/google/go-cmp/cmp"
	logtest "github.com/sirupsen/logrus/hooks/test"
)

func sandboxConfig() models.SandboxConfig {
	return models.SandboxConfig{
		Seed:             7,
		VendorsPerQuery:  5,
		StatusScript:     []string{"pending", "pending", "accepted"},
		CityLat:          31.5204,
		CityLon:          74.3587,
		UrbanRadius:      8,
		VerificationCode: "0427",
	}
}

func serve(t *testing.T, cfg models.SandboxConfig) (*httptest.Server, api.Client) {
	t.Helper()
	logger, _ := logtest.NewNullLogger()
	ts := httptest.NewServer(sandbox.NewServer(cfg, sandbox.WithLogger(logger)))
	t.Cleanup(ts.Close)

	client, err := api.NewClient(ts.URL, api.WithToken("sandbox-token"), api.WithLogger(logger))
	if err != nil {
		t.Fatal(err)
	}
	return ts, client
}

func firstVendor(t *testing.T, client api.Client) models.Vendor {
	t.Helper()
	vendors, err := client.ListVendors(context.Background(), "c1", "s1")
	if err != nil {
		t.Fatal(err)
	}
	if len(vendors) == 0 {
		t.Fatal("no vendors")
	}
	return vendors[0]
}

func placeOrder(t *testing.T, client api.Client, vendor models.Vendor) models.Order {
	t.Helper()
	order, err := client.CreateOrder(context.Background(), models.OrderRequest{
		VendorID:    vendor.ID,
		ServiceID:   "s1",
		CategoryID:  "c1",
		Location:    models.OrderLocation{Latitude: 31.5204, Longitude: 74.3587, Address: "Customer Address"},
		Description: "New Plumbing service request",
	})
	if err != nil {
		t.Fatal(err)
	}
	return order
}

func TestVendors(t *testing.T) {
	t.Run("a service always lists the same vendors", func(t *testing.T) {
		_, client := serve(t, sandboxConfig())
		ctx := context.Background()

		first, err := client.ListVendors(ctx, "c1", "s1")
		if err != nil {
			t.Fatal(err)
		}
		if len(first) != 5 {
			t.Fatalf("vendors = %d, want 5", len(first))
		}
		for _, v := range first {
			if err := v.Validate(); err != nil {
				t.Errorf("generated vendor is invalid: %v", err)
			}
			if v.Location.DistanceKm(models.Location{Lat: 31.5204, Lon: 74.3587}) > 15 {
				t.Errorf("vendor %s is outside the city: %s", v.ID, v.Location)
			}
		}

		again, err := client.ListVendors(ctx, "c1", "s1")
		if err != nil {
			t.Fatal(err)
		}
		if diff := cmp.Diff(first, again); diff != "" {
			t.Errorf("(-first +again):\n%s", diff)
		}
	})

	t.Run("a query without a service is rejected", func(t *testing.T) {
		_, client := serve(t, sandboxConfig())
		_, err := client.ListVendors(context.Background(), "c1", "")
		if !errors.Is(err, api.ErrRejected) {
			t.Fatalf("err = %v", err)
		}
		if msg := api.UserMessage(err, ""); msg != "categoryId and serviceId are required" {
			t.Errorf("message = %q", msg)
		}
	})
}

func TestServices(t *testing.T) {
	t.Run("a known category lists its catalogue", func(t *testing.T) {
		_, client := serve(t, sandboxConfig())
		services, err := client.ListServices(context.Background(), "3")
		if err != nil {
			t.Fatal(err)
		}
		var names []string
		for _, svc := range services {
			names = append(names, svc.Name)
			if svc.Price == "" || svc.Time == "" || svc.Rating < 3 || svc.Rating > 5 {
				t.Errorf("service %+v", svc)
			}
		}
		if diff := cmp.Diff([]string{"AC Installation", "AC Service", "Gas Refill"}, names); diff != "" {
			t.Errorf("names (-want +got):\n%s", diff)
		}
		if services[0].ID != "1" {
			t.Errorf("first id = %q", services[0].ID)
		}

		again, err := client.ListServices(context.Background(), "3")
		if err != nil {
			t.Fatal(err)
		}
		if diff := cmp.Diff(services, again); diff != "" {
			t.Errorf("(-first +again):\n%s", diff)
		}
	})

	t.Run("an unknown category gets generated services", func(t *testing.T) {
		_, client := serve(t, sandboxConfig())
		services, err := client.ListServices(context.Background(), "c1")
		if err != nil {
			t.Fatal(err)
		}
		if len(services) < 2 {
			t.Errorf("services = %+v", services)
		}
	})

	t.Run("a query without a category is rejected", func(t *testing.T) {
		_, client := serve(t, sandboxConfig())
		_, err := client.ListServices(context.Background(), "")
		if msg := api.UserMessage(err, ""); msg != "categoryId is required" {
			t.Errorf("err = %v", err)
		}
	})
}

func TestSignUp(t *testing.T) {
	_, client := serve(t, sandboxConfig())
	ctx := context.Background()
	reg := models.Registration{Name: "Sana", Phone: "+923001234567", Password: "secret", Code: "9999"}

	if _, err := client.VerifyCodeAndCreateUser(ctx, reg); api.UserMessage(err, "") != "Invalid verification code" {
		t.Errorf("verify before a code was sent: %v", err)
	}
	if err := client.SendVerificationCode(ctx, reg.Phone); err != nil {
		t.Fatal(err)
	}
	if _, err := client.VerifyCodeAndCreateUser(ctx, reg); api.UserMessage(err, "") != "Invalid verification code" {
		t.Errorf("verify with a wrong code: %v", err)
	}

	reg.Code = "0427"
	creds, err := client.VerifyCodeAndCreateUser(ctx, reg)
	if err != nil {
		t.Fatal(err)
	}
	if creds.Token == "" || creds.User.ID == "" {
		t.Errorf("credentials = %+v", creds)
	}
	if creds.User.Name != "Sana" || creds.User.Role != models.RoleCustomer {
		t.Errorf("user = %+v", creds.User)
	}

	if _, err := client.VerifyCodeAndCreateUser(ctx, reg); err == nil {
		t.Error("a code was accepted twice")
	}
	if err := client.SendVerificationCode(ctx, reg.Phone); api.UserMessage(err, "") != "Phone number already registered" {
		t.Errorf("second sign-up: %v", err)
	}
}

func TestOrderLifecycle(t *testing.T) {
	t.Run("the status follows the script once the call is placed", func(t *testing.T) {
		_, client := serve(t, sandboxConfig())
		ctx := context.Background()
		vendor := firstVendor(t, client)
		order := placeOrder(t, client, vendor)

		status, err := client.GetOrderStatus(ctx, order.ID)
		if err != nil {
			t.Fatal(err)
		}
		if status != models.OrderStatusPending {
			t.Errorf("status before the call = %s", status)
		}

		if err := client.TriggerCall(ctx, order.ID); err != nil {
			t.Fatal(err)
		}
		var got []models.OrderStatus
		for i := 0; i < 4; i++ {
			status, err := client.GetOrderStatus(ctx, order.ID)
			if err != nil {
				t.Fatal(err)
			}
			got = append(got, status)
		}
		want := []models.OrderStatus{"pending", "pending", "accepted", "accepted"}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("(-want +got):\n%s", diff)
		}

		details, err := client.GetOrder(ctx, order.ID)
		if err != nil {
			t.Fatal(err)
		}
		if details.Status != models.OrderStatusAccepted || details.OrderVendor.ID != vendor.ID {
			t.Errorf("details = %+v", details)
		}
		if details.OrderService.Description != "New Plumbing service request" {
			t.Errorf("service description = %q", details.OrderService.Description)
		}
	})

	t.Run("an unknown vendor is refused", func(t *testing.T) {
		_, client := serve(t, sandboxConfig())
		_, err := client.CreateOrder(context.Background(), models.OrderRequest{VendorID: "nobody", ServiceID: "s1", CategoryID: "c1"})
		if !errors.Is(err, api.ErrRejected) || api.UserMessage(err, "") != "Vendor not found" {
			t.Errorf("err = %v", err)
		}
	})

	t.Run("a failing IVR provider rejects the call", func(t *testing.T) {
		cfg := sandboxConfig()
		cfg.FailCalls = true
		_, client := serve(t, cfg)
		order := placeOrder(t, client, firstVendor(t, client))

		err := client.TriggerCall(context.Background(), order.ID)
		var apiErr *api.Error
		if !errors.As(err, &apiErr) {
			t.Fatalf("err = %v", err)
		}
		if apiErr.StatusCode != http.StatusBadGateway || apiErr.Message != "IVR provider unavailable" {
			t.Errorf("err = %+v", apiErr)
		}
	})

	t.Run("unreachable vendors end up unavailable", func(t *testing.T) {
		cfg := sandboxConfig()
		cfg.UnreachableRatio = 1
		_, client := serve(t, cfg)
		ctx := context.Background()
		order := placeOrder(t, client, firstVendor(t, client))
		if err := client.TriggerCall(ctx, order.ID); err != nil {
			t.Fatal(err)
		}

		var got []models.OrderStatus
		for i := 0; i < 3; i++ {
			status, err := client.GetOrderStatus(ctx, order.ID)
			if err != nil {
				t.Fatal(err)
			}
			got = append(got, status)
		}
		want := []models.OrderStatus{"pending", "vendor_unavailable", "vendor_unavailable"}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("(-want +got):\n%s", diff)
		}
	})
}

func TestAddresses(t *testing.T) {
	t.Run("addresses need a bearer token", func(t *testing.T) {
		ts, _ := serve(t, sandboxConfig())
		anonymous, err := api.NewClient(ts.URL)
		if err != nil {
			t.Fatal(err)
		}
		_, err = anonymous.ListAddresses(context.Background())
		var apiErr *api.Error
		if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusUnauthorized {
			t.Errorf("err = %v", err)
		}
	})

	t.Run("addresses can be added and removed", func(t *testing.T) {
		_, client := serve(t, sandboxConfig())
		ctx := context.Background()

		created, err := client.CreateAddress(ctx, models.Address{
			Label:    "Home",
			Address:  "12 Mall Road",
			Location: &models.Location{Lat: 31.55, Lon: 74.34},
		})
		if err != nil {
			t.Fatal(err)
		}
		if created.ID == "" {
			t.Fatal("address id is empty")
		}

		list, err := client.ListAddresses(ctx)
		if err != nil {
			t.Fatal(err)
		}
		if diff := cmp.Diff([]models.Address{created}, list); diff != "" {
			t.Errorf("(-want +got):\n%s", diff)
		}

		if err := client.DeleteAddress(ctx, created.ID); err != nil {
			t.Fatal(err)
		}
		if err := client.DeleteAddress(ctx, created.ID); !errors.Is(err, api.ErrRejected) {
			t.Errorf("second delete: err = %v", err)
		}
		list, err = client.ListAddresses(ctx)
		if err != nil {
			t.Fatal(err)
		}
		if len(list) != 0 {
			t.Errorf("addresses left: %+v", list)
		}
	})
}

func TestMetrics(t *testing.T) {
	ts, client := serve(t, sandboxConfig())
	ctx := context.Background()
	order := placeOrder(t, client, firstVendor(t, client))
	if err := client.TriggerCall(ctx, order.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := client.GetOrderStatus(ctx, order.ID); err != nil {
		t.Fatal(err)
	}

	resp, err := http.Get(ts.URL + "/metrics")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	for _, line := range []string{
		"homeservices_sandbox_orders_created_total 1",
		`homeservices_sandbox_ivr_calls_total{result="placed"} 1`,
		`homeservices_sandbox_status_polls_total{status="pending"} 1`,
	} {
		if !strings.Contains(string(body), line) {
			t.Errorf("metrics lack %q", line)
		}
	}
}

func TestDispatchAgainstSandbox(t *testing.T) {
	_, client := serve(t, sandboxConfig())
	logger, _ := logtest.NewNullLogger()
	fake := clock.NewFake(time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC))

	var alerts []dispatch.Alert
	poller := dispatch.NewPoller(client, dispatch.WithClock(fake), dispatch.WithLogger(logger))
	selector := dispatch.NewSelector(client, poller,
		dispatch.NotifierFunc(func(a dispatch.Alert) { alerts = append(alerts, a) }),
		dispatch.CustomerLocation{Location: models.Location{Lat: 31.5204, Lon: 74.3587}, Address: "Customer Address"},
		dispatch.WithSelectorLogger(logger),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	vendors, err := selector.LoadVendors(ctx, "c1", "s1")
	if err != nil {
		t.Fatal(err)
	}

	var accepted string
	closed := 0
	session, err := selector.SelectVendor(ctx, vendors[0], dispatch.ServiceRequest{CategoryID: "c1", ServiceID: "s1", ServiceName: "Plumbing"}, dispatch.Callbacks{
		OnAccepted: func(orderID string) { accepted = orderID },
		OnClosed:   func() { closed++ },
	})
	if err != nil {
		t.Fatal(err)
	}

	fake.Advance(30 * time.Second)
	if accepted != session.OrderID() {
		t.Errorf("accepted order = %q, want %q", accepted, session.OrderID())
	}
	if closed != 1 {
		t.Errorf("OnClosed fired %d times", closed)
	}
	if snap := session.Snapshot(); snap.Outcome != dispatch.OutcomeAccepted || snap.Polls != 3 {
		t.Errorf("snapshot = %+v", snap)
	}
	if len(alerts) != 0 {
		t.Errorf("alerts = %+v", alerts)
	}
}
