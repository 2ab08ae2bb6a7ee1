package events

import (
	"encoding/json"
	"errors"
	"time"
)

// FetchingMsg is sent while video metadata is being resolved.
type FetchingMsg struct {
	TaskID string
	URL    string
}

// StartedMsg is sent when the transfer actually starts (after metadata fetch
// and format selection). Total is 0 when the size is unknown.
type StartedMsg struct {
	TaskID   string
	VideoID  string
	Title    string
	Filename string
	Total    int64
}

// ProgressMsg represents a throttled progress update from the session.
type ProgressMsg struct {
	TaskID     string
	Downloaded int64
	Total      int64   // 0 = indeterminate
	Fraction   float64 // 0..1, -1 when indeterminate
	Speed      float64 // bytes per second
	Elapsed    time.Duration
}

// MergingMsg is sent when separate audio/video streams are handed to ffmpeg.
type MergingMsg struct {
	TaskID string
}

// CompletedMsg signals that the download finished and the file is at Path.
type CompletedMsg struct {
	TaskID  string
	Path    string
	Total   int64
	Elapsed time.Duration
}

// CancelledMsg signals that the session stopped on user request. Cancellation
// is a normal terminal state, not an error.
type CancelledMsg struct {
	TaskID string
}

// FailedMsg signals that the session ended with an error.
type FailedMsg struct {
	TaskID string
	Err    error
}

func (m FailedMsg) MarshalJSON() ([]byte, error) {
	type encoded struct {
		TaskID string `json:"TaskID"`
		Err    string `json:"Err,omitempty"`
	}

	out := encoded{TaskID: m.TaskID}
	if m.Err != nil {
		out.Err = m.Err.Error()
	}
	return json.Marshal(out)
}

func (m *FailedMsg) UnmarshalJSON(data []byte) error {
	var aux struct {
		TaskID string          `json:"TaskID"`
		Err    json.RawMessage `json:"Err"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	m.TaskID = aux.TaskID
	m.Err = nil

	if len(aux.Err) == 0 {
		return nil
	}

	// Most common case: Err encoded as a string.
	var errStr string
	if err := json.Unmarshal(aux.Err, &errStr); err == nil {
		if errStr != "" {
			m.Err = errors.New(errStr)
		}
		return nil
	}

	// Accept non-string payloads (e.g. {}) from older encoders.
	raw := string(aux.Err)
	if raw != "" && raw != "null" {
		m.Err = errors.New(raw)
	}
	return nil
}
