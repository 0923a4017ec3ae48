// Package events defines the typed simulation lifecycle events and an
// in-memory recorder the status API reads from.
package events

import (
	"encoding/json"
	"time"
)

// EventType identifies a simulation lifecycle event.
type EventType string

const (
	YearStarted          EventType = "year_started"
	PropagationCompleted EventType = "propagation_completed"
	CommandEmitted       EventType = "command_emitted"
	YearCompleted        EventType = "year_completed"
	CheckpointSaved      EventType = "checkpoint_saved"
	ErrorOccurred        EventType = "error_occurred"
)

// EventData is implemented by all typed event payloads.
type EventData interface {
	// EventType returns the event type this data is associated with
	EventType() EventType
}

// YearStartedData contains data for YearStarted events.
type YearStartedData struct {
	Year        int `json:"year"`
	Allocations int `json:"allocations"`
}

// EventType returns the event type for YearStartedData
func (d *YearStartedData) EventType() EventType { return YearStarted }

// PropagationCompletedData contains data for PropagationCompleted events.
type PropagationCompletedData struct {
	Year       int `json:"year"`
	Nodes      int `json:"nodes"`
	Edges      int `json:"edges"`
	Facilities int `json:"facilities"`
}

// EventType returns the event type for PropagationCompletedData
func (d *PropagationCompletedData) EventType() EventType { return PropagationCompleted }

// CommandEmittedData contains data for CommandEmitted events.
type CommandEmittedData struct {
	Year        int    `json:"year"`
	CommandID   string `json:"command_id"`
	CommandType string `json:"command_type"`
	Technology  string `json:"technology,omitempty"`
}

// EventType returns the event type for CommandEmittedData
func (d *CommandEmittedData) EventType() EventType { return CommandEmitted }

// YearCompletedData contains data for YearCompleted events.
type YearCompletedData struct {
	Year          int     `json:"year"`
	Commands      int     `json:"commands"`
	SkippedUnits  int     `json:"skipped_units"`
	CapacitySteel float64 `json:"capacity_added_steel"`
	CapacityIron  float64 `json:"capacity_added_iron"`
}

// EventType returns the event type for YearCompletedData
func (d *YearCompletedData) EventType() EventType { return YearCompleted }

// CheckpointSavedData contains data for CheckpointSaved events.
type CheckpointSavedData struct {
	Year int `json:"year"`
}

// EventType returns the event type for CheckpointSavedData
func (d *CheckpointSavedData) EventType() EventType { return CheckpointSaved }

// ErrorEventData contains data for ErrorOccurred events.
type ErrorEventData struct {
	Year   int    `json:"year,omitempty"`
	UnitID string `json:"unit_id,omitempty"`
	Error  string `json:"error"`
}

// EventType returns the event type for ErrorEventData
func (d *ErrorEventData) EventType() EventType { return ErrorOccurred }

// EventWithData represents an event with typed data.
type EventWithData struct {
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Data      EventData `json:"data"`
}

// MarshalJSON customizes JSON serialization for EventWithData
func (e *EventWithData) MarshalJSON() ([]byte, error) {
	type Alias EventWithData
	aux := &struct {
		Data json.RawMessage `json:"data"`
		*Alias
	}{
		Alias: (*Alias)(e),
	}

	if e.Data != nil {
		dataBytes, err := json.Marshal(e.Data)
		if err != nil {
			return nil, err
		}
		aux.Data = dataBytes
	}

	return json.Marshal(aux)
}

// UnmarshalJSON customizes JSON deserialization for EventWithData
func (e *EventWithData) UnmarshalJSON(data []byte) error {
	type Alias EventWithData
	aux := &struct {
		Data json.RawMessage `json:"data"`
		*Alias
	}{
		Alias: (*Alias)(e),
	}

	if err := json.Unmarshal(data, aux); err != nil {
		return err
	}

	if len(aux.Data) > 0 {
		var eventData EventData
		switch aux.Type {
		case YearStarted:
			eventData = &YearStartedData{}
		case PropagationCompleted:
			eventData = &PropagationCompletedData{}
		case CommandEmitted:
			eventData = &CommandEmittedData{}
		case YearCompleted:
			eventData = &YearCompletedData{}
		case CheckpointSaved:
			eventData = &CheckpointSavedData{}
		case ErrorOccurred:
			eventData = &ErrorEventData{}
		default:
			return nil
		}

		if err := json.Unmarshal(aux.Data, eventData); err != nil {
			return err
		}
		e.Data = eventData
	}

	return nil
}
