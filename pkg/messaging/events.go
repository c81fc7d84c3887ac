package messaging

import (
	"encoding/json"
	"fmt"
	"time"
)

// Event types
const (
	// Stock events
	EventStockAdjusted = "warehouse.stock.adjusted"
	EventItemCreated   = "warehouse.item.created"
	EventItemRetired   = "warehouse.item.retired"

	// Withdrawal events
	EventWithdrawalRequested     = "warehouse.withdrawal.requested"
	EventWithdrawalStatusChanged = "warehouse.withdrawal.status_changed"

	// Alert events
	EventAlertGenerated = "warehouse.alert.generated"

	// Import events
	EventImportCompleted = "warehouse.import.completed"
)

// Exchange names
const (
	ExchangeWarehouseEvents = "warehouse.events"
)

// Event is the base event structure
type Event struct {
	ID            string          `json:"id"`
	Type          string          `json:"type"`
	Source        string          `json:"source"`
	Timestamp     time.Time       `json:"timestamp"`
	CorrelationID string          `json:"correlation_id"`
	Data          json.RawMessage `json:"data"`
}

// NewEvent creates a new event with the given type and data
func NewEvent(eventType, source, correlationID string, data interface{}) (*Event, error) {
	dataBytes, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	return &Event{
		ID:            GenerateEventID(),
		Type:          eventType,
		Source:        source,
		Timestamp:     time.Now().UTC(),
		CorrelationID: correlationID,
		Data:          dataBytes,
	}, nil
}

// UnmarshalData unmarshals the event data into the provided struct
func (e *Event) UnmarshalData(v interface{}) error {
	return json.Unmarshal(e.Data, v)
}

// Stock Events

// StockAdjustedEvent is published whenever an item quantity changes
type StockAdjustedEvent struct {
	ItemID      int64  `json:"item_id"`
	ItemName    string `json:"item_name"`
	Delta       int    `json:"delta"`
	NewQuantity int    `json:"new_quantity"`
	Reason      string `json:"reason"`
	UserID      int64  `json:"user_id,omitempty"`
}

// ItemCreatedEvent is published when a new item enters the catalog
type ItemCreatedEvent struct {
	ItemID     int64  `json:"item_id"`
	Name       string `json:"name"`
	CategoryID int64  `json:"category_id"`
	Quantity   int    `json:"quantity"`
}

// ItemRetiredEvent is published when an item is deactivated
type ItemRetiredEvent struct {
	ItemID int64  `json:"item_id"`
	Name   string `json:"name"`
	Reason string `json:"reason"`
}

// Withdrawal Events

// WithdrawalRequestedEvent is published when a withdrawal request is created
type WithdrawalRequestedEvent struct {
	WithdrawalID int64  `json:"withdrawal_id"`
	RequesterID  int64  `json:"requester_id"`
	SectorID     int64  `json:"sector_id,omitempty"`
	ItemCount    int    `json:"item_count"`
	Requester    string `json:"requester,omitempty"`
}

// WithdrawalStatusChangedEvent is published on every status transition
type WithdrawalStatusChangedEvent struct {
	WithdrawalID int64 `json:"withdrawal_id"`
	RequesterID  int64 `json:"requester_id"`
	OldStatus    int   `json:"old_status"`
	NewStatus    int   `json:"new_status"`
	ActorID      int64 `json:"actor_id"`
}

// Alert Events

// AlertGeneratedEvent is published when an alert is generated
type AlertGeneratedEvent struct {
	AlertID  int64  `json:"alert_id"`
	Kind     int    `json:"kind"`
	ItemID   int64  `json:"item_id"`
	ItemName string `json:"item_name"`
	Message  string `json:"message"`
}

// Import Events

// ImportCompletedEvent is published when a bulk import finishes
type ImportCompletedEvent struct {
	FileName string `json:"file_name"`
	Created  int    `json:"created"`
	Merged   int    `json:"merged"`
	Failed   int    `json:"failed"`
	UserID   int64  `json:"user_id"`
}

// GenerateEventID generates a unique event ID
func GenerateEventID() string {
	return fmt.Sprintf("%d-%d", time.Now().UnixNano(), time.Now().Nanosecond()%10000)
}
