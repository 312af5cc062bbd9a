package events

// EventData is the interface that all event data types must implement
// This allows for type-safe event data while maintaining flexibility
type EventData interface {
	// EventType returns the event type this data is associated with
	EventType() EventType
}

// TradeSubmittedData contains data for TradeSubmitted events
type TradeSubmittedData struct {
	TradeID int64  `json:"trade_id"`
	FundID  int64  `json:"fund_id"`
	Ticker  string `json:"ticker"`
	Side    string `json:"side"`
	Shares  int64  `json:"shares"`
}

// EventType returns the event type for TradeSubmittedData
func (d *TradeSubmittedData) EventType() EventType {
	return TradeSubmitted
}

// TradeStatusChangedData contains data for TradeStatusChanged events
type TradeStatusChangedData struct {
	TradeID   int64  `json:"trade_id"`
	FundID    int64  `json:"fund_id"`
	OldStatus string `json:"old_status"`
	NewStatus string `json:"new_status"`
	Reason    string `json:"reason,omitempty"`
}

// EventType returns the event type for TradeStatusChangedData
func (d *TradeStatusChangedData) EventType() EventType {
	return TradeStatusChanged
}

// TradeProcessedData contains data for TradeProcessed events
type TradeProcessedData struct {
	TradeID    int64   `json:"trade_id"`
	FundID     int64   `json:"fund_id"`
	Ticker     string  `json:"ticker"`
	Side       string  `json:"side"`
	Shares     int64   `json:"shares"`
	Price      float64 `json:"price"`
	TotalValue float64 `json:"total_value"`
}

// EventType returns the event type for TradeProcessedData
func (d *TradeProcessedData) EventType() EventType {
	return TradeProcessed
}

// AlertCreatedData contains data for AlertCreated events
type AlertCreatedData struct {
	AlertID  int64    `json:"alert_id"`
	RuleID   int64    `json:"rule_id"`
	RuleName string   `json:"rule_name"`
	FundID   int64    `json:"fund_id"`
	TradeID  *int64   `json:"trade_id,omitempty"`
	Percent  *float64 `json:"calculated_percent,omitempty"`
}

// EventType returns the event type for AlertCreatedData
func (d *AlertCreatedData) EventType() EventType {
	return AlertCreated
}

// AlertResolvedData contains data for AlertOverridden and AlertCancelled events
type AlertResolvedData struct {
	AlertID int64  `json:"alert_id"`
	FundID  int64  `json:"fund_id"`
	Status  string `json:"status"`
	Reason  string `json:"reason,omitempty"`
}

// EventType returns the event type for AlertResolvedData
func (d *AlertResolvedData) EventType() EventType {
	if d.Status == "cancelled" {
		return AlertCancelled
	}
	return AlertOverridden
}

// ComplianceCompletedData contains data for ComplianceCompleted events
type ComplianceCompletedData struct {
	FundID     int64 `json:"fund_id"`
	TradeID    int64 `json:"trade_id"` // 0 for portfolio compliance
	RulesRun   int   `json:"rules_run"`
	AlertCount int   `json:"alert_count"`
	ErrorCount int   `json:"error_count"`
}

// EventType returns the event type for ComplianceCompletedData
func (d *ComplianceCompletedData) EventType() EventType {
	return ComplianceCompleted
}

// PriceUpdatedData contains data for PriceUpdated events
type PriceUpdatedData struct {
	Ticker    string  `json:"ticker"`
	Price     float64 `json:"price"`
	PriceDate string  `json:"price_date"`
}

// EventType returns the event type for PriceUpdatedData
func (d *PriceUpdatedData) EventType() EventType {
	return PriceUpdated
}

// BackupCompletedData contains data for BackupCompleted events
type BackupCompletedData struct {
	Key       string `json:"key"`
	SizeBytes int64  `json:"size_bytes"`
	Duration  string `json:"duration"`
}

// EventType returns the event type for BackupCompletedData
func (d *BackupCompletedData) EventType() EventType {
	return BackupCompleted
}

// ErrorEventData contains data for ErrorOccurred events
type ErrorEventData struct {
	Error   string                 `json:"error"`
	Context map[string]interface{} `json:"context,omitempty"`
}

// EventType returns the event type for ErrorEventData
func (d *ErrorEventData) EventType() EventType {
	return ErrorOccurred
}
