package dto

import "time"

type MutationResponse struct {
	TraceID      string    `json:"traceId"`
	OrderID      uint      `json:"orderId"`
	LineID       uint      `json:"lineId"`
	Merged       bool      `json:"merged"`
	Quantity     int       `json:"quantity"`
	ScaleWarning string    `json:"scaleWarning,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
}

type ChangeRecordDTO struct {
	ItemID           uint      `json:"itemId"`
	Name             string    `json:"name"`
	MenuItemID       int       `json:"menuItemId"`
	ChangeType       string    `json:"changeType"`
	BaselineQuantity int       `json:"baselineQuantity"`
	NetChange        int       `json:"netChange"`
	LastUpdatedAt    time.Time `json:"lastUpdatedAt"`
}

type ChangesSummaryResponse struct {
	TraceID     string            `json:"traceId"`
	OrderID     uint              `json:"orderId"`
	HasChanges  bool              `json:"hasChanges"`
	Processing  bool              `json:"processing"`
	QueueLength int               `json:"queueLength"`
	Counts      map[string]int    `json:"counts"`
	Changes     []ChangeRecordDTO `json:"changes"`
}

type FlushTicketResponse struct {
	TraceID   string    `json:"traceId"`
	OrderID   uint      `json:"orderId"`
	FlushID   string    `json:"flushId"`
	Printed   bool      `json:"printed"`
	Lines     []string  `json:"lines"`
	Timestamp time.Time `json:"timestamp"`
}

type ErrorResponse struct {
	TraceID   string    `json:"traceId"`
	Status    int       `json:"status"`
	Code      string    `json:"code"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}
