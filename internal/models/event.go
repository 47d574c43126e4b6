package models

// EventType identifies a ledger notification.
type EventType string

const (
	EventServiceCenterAdded   EventType = "service_center_added"
	EventServiceCenterRemoved EventType = "service_center_removed"
	EventServiceRecordAdded   EventType = "service_record_added"
)

// Event is an observational notification emitted after a committed state
// transition. Delivery is best-effort fan-out; events are never required for
// correctness.
type Event struct {
	Type        EventType `json:"type"`
	Center      Principal `json:"center"`
	Name        string    `json:"name,omitempty"`
	VehicleID   string    `json:"vehicle_id,omitempty"`
	ServiceType string    `json:"service_type,omitempty"`
	Timestamp   int64     `json:"timestamp,omitempty"`
}
