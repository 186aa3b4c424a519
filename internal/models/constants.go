package models

const (
	OrderStatusPending           OrderStatus = "pending"
	OrderStatusAccepted          OrderStatus = "accepted"
	OrderStatusRejected          OrderStatus = "rejected"
	OrderStatusVendorUnavailable OrderStatus = "vendor_unavailable"
	OrderStatusInProgress        OrderStatus = "in_progress"
	OrderStatusCompleted         OrderStatus = "completed"
	OrderStatusCancelled         OrderStatus = "cancelled"
	OrderStatusUnknown           OrderStatus = "unknown"

	EventOrderCreated  = "order_created"
	EventCallTriggered = "call_triggered"
	EventCallFailed    = "call_failed"
	EventStatusPolled  = "status_polled"
	EventCallOutcome   = "call_outcome"
)
