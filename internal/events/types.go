// Package events provides event management functionality.
package events

import (
	"time"
)

// EventType represents different event types
type EventType string

const (
	TradeSubmitted     EventType = "TRADE_SUBMITTED"
	TradeStatusChanged EventType = "TRADE_STATUS_CHANGED"
	TradeProcessed     EventType = "TRADE_PROCESSED"

	AlertCreated    EventType = "ALERT_CREATED"
	AlertOverridden EventType = "ALERT_OVERRIDDEN"
	AlertCancelled  EventType = "ALERT_CANCELLED"

	ComplianceCompleted EventType = "COMPLIANCE_COMPLETED"

	PriceUpdated    EventType = "PRICE_UPDATED"
	BackupCompleted EventType = "BACKUP_COMPLETED"
	ErrorOccurred   EventType = "ERROR_OCCURRED"
)

// Event represents a system event with typed data
type Event struct {
	ID        string                 `json:"id"`
	Type      EventType              `json:"type"`
	Timestamp time.Time              `json:"timestamp"`
	Data      map[string]interface{} `json:"data"`
	Module    string                 `json:"module"`
}

// AllTypes lists every event type the bus can carry, in a stable order.
// Used by the SSE stream handler when no type filter is supplied.
func AllTypes() []EventType {
	return []EventType{
		TradeSubmitted,
		TradeStatusChanged,
		TradeProcessed,
		AlertCreated,
		AlertOverridden,
		AlertCancelled,
		ComplianceCompleted,
		PriceUpdated,
		BackupCompleted,
		ErrorOccurred,
	}
}
