package models

import "time"

type OrderStatus string

// ParseOrderStatus maps the backend status string onto the closed set of
// known statuses. Anything else becomes OrderStatusUnknown.
func ParseOrderStatus(raw string) OrderStatus {
	switch s := OrderStatus(raw); s {
	case OrderStatusPending,
		OrderStatusAccepted,
		OrderStatusRejected,
		OrderStatusVendorUnavailable,
		OrderStatusInProgress,
		OrderStatusCompleted,
		OrderStatusCancelled:
		return s
	default:
		return OrderStatusUnknown
	}
}

func (s OrderStatus) IsValid() bool {
	return s != OrderStatusUnknown && ParseOrderStatus(string(s)) == s
}

// IsDispatchTerminal reports whether the call status poller stops on s.
func (s OrderStatus) IsDispatchTerminal() bool {
	switch s {
	case OrderStatusAccepted, OrderStatusRejected, OrderStatusVendorUnavailable:
		return true
	default:
		return false
	}
}

// IsActive is the order history grouping: the order still needs attention.
func (s OrderStatus) IsActive() bool {
	switch s {
	case OrderStatusPending, OrderStatusAccepted, OrderStatusInProgress:
		return true
	default:
		return false
	}
}

func (s OrderStatus) String() string {
	return string(s)
}

// Order is the client's cached view of a backend order.
type Order struct {
	ID          string      `json:"id"`
	Status      OrderStatus `json:"status"`
	VendorID    string      `json:"vendorId"`
	ServiceID   string      `json:"serviceId"`
	CategoryID  string      `json:"categoryId"`
	Price       string      `json:"price,omitempty"`
	Description string      `json:"description,omitempty"`
	Location    Location    `json:"location"`
	CreatedAt   time.Time   `json:"createdAt"`
	UpdatedAt   time.Time   `json:"updatedAt,omitempty"`
}

// OrderRequest is the body of POST /orders.
type OrderRequest struct {
	VendorID    string        `json:"vendorId"`
	ServiceID   string        `json:"serviceId"`
	CategoryID  string        `json:"categoryId"`
	Location    OrderLocation `json:"location"`
	Description string        `json:"description"`
}

type OrderLocation struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Address   string  `json:"address"`
}

// OrderDetails is the confirmation view of an order, GET /orders/{id}.
type OrderDetails struct {
	ID           string      `json:"id"`
	Status       OrderStatus `json:"status"`
	Price        string      `json:"price"`
	CreatedAt    time.Time   `json:"createdAt"`
	OrderVendor  OrderVendor `json:"orderVendor"`
	OrderService struct {
		Name        string `json:"name"`
		Description string `json:"description"`
	} `json:"orderService"`
}

type OrderVendor struct {
	ID   string `json:"id"`
	User struct {
		Name  string `json:"name"`
		Phone string `json:"phone"`
	} `json:"user"`
	PhoneForCalls string `json:"phoneForCalls"`
}
