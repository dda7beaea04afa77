package models

import (
	"encoding/json"
	"time"
)

// ProcessingFailed is the error text sent to a client when a flush fails.
const ProcessingFailed = "Processing failed"

// TranscriptionResult is produced once per flush and sent once to the
// originating connection.
type TranscriptionResult struct {
	Text      string
	Timestamp time.Time
}

type transcriptionWire struct {
	Text      string `json:"text"`
	Timestamp string `json:"timestamp"`
}

// MarshalJSON writes the timestamp as an ISO8601 UTC string with millisecond precision.
func (r TranscriptionResult) MarshalJSON() ([]byte, error) {
	return json.Marshal(transcriptionWire{
		Text:      r.Text,
		Timestamp: r.Timestamp.UTC().Format("2006-01-02T15:04:05.000Z07:00"),
	})
}

func (r *TranscriptionResult) UnmarshalJSON(b []byte) error {
	var w transcriptionWire
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	r.Text = w.Text
	r.Timestamp = time.Time{}
	if w.Timestamp != "" {
		ts, err := time.Parse(time.RFC3339Nano, w.Timestamp)
		if err != nil {
			return err
		}
		r.Timestamp = ts
	}
	return nil
}

// ErrorResult is the error-shaped frame. Text is always empty.
type ErrorResult struct {
	Error string `json:"error"`
	Text  string `json:"text"`
}

// ServerMessage is the union of frames a client can receive from the relay.
type ServerMessage struct {
	Text      string `json:"text"`
	Timestamp string `json:"timestamp,omitempty"`
	Error     string `json:"error,omitempty"`
}

// IsError reports whether the frame was error-shaped.
func (m ServerMessage) IsError() bool { return m.Error != "" }
