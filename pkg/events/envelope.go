// Package events defines the realtime envelopes pushed to connected clients.
package events

import (
	"encoding/json"
	"errors"
	"time"
)

// Event types delivered over the realtime channel.
const (
	TypeSessionStarted   = "session:started"
	TypeSessionEnded     = "session:ended"
	TypeSubmissionNew    = "submission:new"
	TypeTasksUpdated     = "tasks:updated"
	TypeWorkspaceUpdated = "workspace:updated"
)

// Envelope is the wire frame for every realtime event. Payload is either one of
// the typed payloads below or a json.RawMessage when relayed between instances.
type Envelope struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// ErrMissingType is returned when decoding an envelope without a type.
var ErrMissingType = errors.New("envelope type is required")

// Decode parses a serialized envelope, keeping the payload raw.
func Decode(data []byte) (Envelope, error) {
	var raw struct {
		Type    string          `json:"type"`
		Payload json.RawMessage `json:"payload"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return Envelope{}, err
	}
	if raw.Type == "" {
		return Envelope{}, ErrMissingType
	}
	env := Envelope{Type: raw.Type}
	if len(raw.Payload) > 0 {
		env.Payload = raw.Payload
	}
	return env, nil
}

// SessionStarted is emitted when a user opens a work session against a brief.
type SessionStarted struct {
	SessionID string    `json:"sessionId"`
	UserID    string    `json:"userId"`
	UserName  string    `json:"userName,omitempty"`
	BriefID   string    `json:"briefId"`
	BriefName string    `json:"briefName"`
	Role      string    `json:"role"`
	StartedAt time.Time `json:"startedAt"`
}

// SessionEnded is emitted once a session completes and its submission exists.
type SessionEnded struct {
	SessionID       string `json:"sessionId"`
	SubmissionID    string `json:"submissionId"`
	UserID          string `json:"userId"`
	UserName        string `json:"userName"`
	BriefID         string `json:"briefId"`
	DurationMinutes int    `json:"durationMinutes"`
}

// SubmissionNew is emitted when a submission is created outside the session flow.
type SubmissionNew struct {
	SubmissionID string   `json:"submissionId"`
	BriefID      string   `json:"briefId"`
	UserID       string   `json:"userId"`
	UserName     string   `json:"userName"`
	Role         string   `json:"role"`
	MatchedTasks []string `json:"matchedTasks"`
}

// TasksUpdated lists the tasks whose status changed after a review.
type TasksUpdated struct {
	BriefID      string   `json:"briefId"`
	SubmissionID string   `json:"submissionId,omitempty"`
	TaskIDs      []string `json:"taskIds"`
	Status       string   `json:"status"`
}

// WorkspaceUpdated summarises the task changes applied by a session analysis.
type WorkspaceUpdated struct {
	BriefID        string   `json:"briefId"`
	SessionID      string   `json:"sessionId,omitempty"`
	UpdatedTaskIDs []string `json:"updatedTaskIds"`
	NewTaskIDs     []string `json:"newTaskIds"`
	Summary        string   `json:"summary"`
}
