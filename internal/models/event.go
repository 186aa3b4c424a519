package models

import "time"

// DispatchEvent is one journal record of the dispatch flow.
type DispatchEvent struct {
	Timestamp      int64   `json:"timestamp" parquet:"name=timestamp,type=INT64"`
	EventType      string  `json:"eventType" parquet:"name=eventType,type=BYTE_ARRAY,convertedtype=UTF8"`
	OrderID        string  `json:"orderId,omitempty" parquet:"name=orderId,type=BYTE_ARRAY,convertedtype=UTF8"`
	VendorID       string  `json:"vendorId,omitempty" parquet:"name=vendorId,type=BYTE_ARRAY,convertedtype=UTF8"`
	ServiceID      string  `json:"serviceId,omitempty" parquet:"name=serviceId,type=BYTE_ARRAY,convertedtype=UTF8"`
	CategoryID     string  `json:"categoryId,omitempty" parquet:"name=categoryId,type=BYTE_ARRAY,convertedtype=UTF8"`
	Status         string  `json:"status,omitempty" parquet:"name=status,type=BYTE_ARRAY,convertedtype=UTF8"`
	Outcome        string  `json:"outcome,omitempty" parquet:"name=outcome,type=BYTE_ARRAY,convertedtype=UTF8"`
	ElapsedSeconds int64   `json:"elapsedSeconds" parquet:"name=elapsedSeconds,type=INT64"`
	Latitude       float64 `json:"latitude,omitempty" parquet:"name=latitude,type=DOUBLE"`
	Longitude      float64 `json:"longitude,omitempty" parquet:"name=longitude,type=DOUBLE"`
	Message        string  `json:"message,omitempty" parquet:"name=message,type=BYTE_ARRAY,convertedtype=UTF8"`
}

func NewDispatchEvent(eventType string, at time.Time) DispatchEvent {
	return DispatchEvent{
		Timestamp: at.Unix(),
		EventType: eventType,
	}
}

// Topic is the journal topic the event is written under.
func (e DispatchEvent) Topic() string {
	return e.EventType + "_events"
}

// OrderRecord is the row shape of an order in the Parquet export.
type OrderRecord struct {
	OrderID     string  `parquet:"name=orderId,type=BYTE_ARRAY,convertedtype=UTF8"`
	Status      string  `parquet:"name=status,type=BYTE_ARRAY,convertedtype=UTF8"`
	VendorID    string  `parquet:"name=vendorId,type=BYTE_ARRAY,convertedtype=UTF8"`
	ServiceID   string  `parquet:"name=serviceId,type=BYTE_ARRAY,convertedtype=UTF8"`
	CategoryID  string  `parquet:"name=categoryId,type=BYTE_ARRAY,convertedtype=UTF8"`
	Price       string  `parquet:"name=price,type=BYTE_ARRAY,convertedtype=UTF8"`
	Description string  `parquet:"name=description,type=BYTE_ARRAY,convertedtype=UTF8"`
	Latitude    float64 `parquet:"name=latitude,type=DOUBLE"`
	Longitude   float64 `parquet:"name=longitude,type=DOUBLE"`
	CreatedAt   int64   `parquet:"name=createdAt,type=INT64"`
	UpdatedAt   int64   `parquet:"name=updatedAt,type=INT64"`
}

func NewOrderRecord(o Order) OrderRecord {
	return OrderRecord{
		OrderID:     o.ID,
		Status:      string(o.Status),
		VendorID:    o.VendorID,
		ServiceID:   o.ServiceID,
		CategoryID:  o.CategoryID,
		Price:       o.Price,
		Description: o.Description,
		Latitude:    o.Location.Lat,
		Longitude:   o.Location.Lon,
		CreatedAt:   o.CreatedAt.Unix(),
		UpdatedAt:   o.UpdatedAt.Unix(),
	}
}
