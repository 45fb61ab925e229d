// Package hub fans dashboard events out to websocket subscribers using a
// channel-based broadcast loop.
package hub

import (
	"encoding/json"
	"time"
)

// MessageType indicates the websocket message format
type MessageType int

const (
	// JSONMessage is a JSON-encoded message
	JSONMessage MessageType = iota
	// BinaryMessage is raw binary data (preview JPEGs)
	BinaryMessage
)

// Message is one frame queued for every subscriber.
type Message struct {
	Type MessageType
	Data []byte
}

// NewJSONMessage creates a JSON message from pre-encoded bytes
func NewJSONMessage(data []byte) Message {
	return Message{Type: JSONMessage, Data: data}
}

// NewBinaryMessage creates a binary message
func NewBinaryMessage(data []byte) Message {
	return Message{Type: BinaryMessage, Data: data}
}

// Event kinds sent to the dashboard.
const (
	EventLog    = "log"
	EventStatus = "status"
)

// Event is the JSON payload of a dashboard message.
type Event struct {
	Kind    string    `json:"kind"`
	RunID   string    `json:"run_id,omitempty"`
	Stream  string    `json:"stream,omitempty"`
	Line    string    `json:"line,omitempty"`
	Running *bool     `json:"running,omitempty"`
	Time    time.Time `json:"time"`

	// Seq orders log lines across a replay and the live feed.
	Seq uint64 `json:"seq,omitempty"`
}

// LogEvent builds a log line event.
func LogEvent(runID, stream, line string, at time.Time) Event {
	return Event{Kind: EventLog, RunID: runID, Stream: stream, Line: line, Time: at}
}

// StatusEvent builds a process status event.
func StatusEvent(runID string, running bool, at time.Time) Event {
	return Event{Kind: EventStatus, RunID: runID, Running: &running, Time: at}
}

// Encode marshals the event into a JSON message.
func (e Event) Encode() (Message, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return Message{}, err
	}
	return NewJSONMessage(data), nil
}
