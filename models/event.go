package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// EventPayload represents the free-form JSON payload of an audit event
type EventPayload map[string]interface{}

// Value implements driver.Valuer for JSONB
func (p EventPayload) Value() (driver.Value, error) {
	if p == nil {
		return json.Marshal(map[string]interface{}{})
	}
	return json.Marshal(p)
}

// Scan implements sql.Scanner for JSONB
func (p *EventPayload) Scan(value interface{}) error {
	if value == nil {
		*p = make(EventPayload)
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		*p = make(EventPayload)
		return nil
	}

	if len(bytes) == 0 {
		*p = make(EventPayload)
		return nil
	}

	return json.Unmarshal(bytes, p)
}

// Event represents an audit trail entry for a case. Every terminal outcome
// of the generation pipeline writes one.
type Event struct {
	ID        uuid.UUID    `json:"id"`
	CaseID    uuid.UUID    `json:"case_id"`
	Type      string       `json:"type"`
	Payload   EventPayload `json:"payload"`
	CreatedAt time.Time    `json:"created_at"`
}
