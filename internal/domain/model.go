// Package domain defines the work-session lifecycle, submission review and the
// ports they depend on.
package domain

import (
	"strings"
	"time"
)

// Role identifies the discipline a session or task belongs to.
type Role string

const (
	RolePM       Role = "pm"
	RoleDev      Role = "dev"
	RoleDesigner Role = "designer"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RolePM, RoleDev, RoleDesigner:
		return true
	}
	return false
}

// ParseRole normalizes user input into a Role.
func ParseRole(value string) (Role, bool) {
	role := Role(strings.ToLower(strings.TrimSpace(value)))
	return role, role.Valid()
}

// SessionStatus is the lifecycle state of a work session.
type SessionStatus string

const (
	SessionStatusActive    SessionStatus = "active"
	SessionStatusCompleted SessionStatus = "completed"
)

// SubmissionStatus is the review state of a submission.
type SubmissionStatus string

const (
	SubmissionStatusPending  SubmissionStatus = "pending"
	SubmissionStatusApproved SubmissionStatus = "approved"
	SubmissionStatusRejected SubmissionStatus = "rejected"
	SubmissionStatusReviewed SubmissionStatus = "reviewed"
)

// Valid reports whether s is a known submission status.
func (s SubmissionStatus) Valid() bool {
	switch s {
	case SubmissionStatusPending, SubmissionStatusApproved, SubmissionStatusRejected, SubmissionStatusReviewed:
		return true
	}
	return false
}

// TaskStatus is the kanban column of a task.
type TaskStatus string

const (
	TaskStatusTodo       TaskStatus = "todo"
	TaskStatusInProgress TaskStatus = "in_progress"
	TaskStatusDone       TaskStatus = "done"
)

// Brief is a project definition that owns tasks.
type Brief struct {
	ID          string
	OrgID       string
	CreatedBy   string
	Name        string
	Description string
}

// Task is a unit of work on a brief.
type Task struct {
	ID          string
	BriefID     string
	Role        Role
	Title       string
	Description string
	Status      TaskStatus
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// User is the locally stored profile synced from the identity provider.
type User struct {
	ID    string
	OrgID string
	Email string
	Name  string
}

// Session is a bounded window of work against one brief.
type Session struct {
	ID              string
	UserID          string
	OrgID           string
	BriefID         string
	Role            Role
	Status          SessionStatus
	StartedAt       time.Time
	EndedAt         *time.Time
	DurationMinutes *int
}

// Activity is one captured window of application usage.
type Activity struct {
	App       string
	Title     string
	Summary   string
	Duration  time.Duration
	Timestamp time.Time
}

// Snippet is a short piece of captured text used as matching evidence.
type Snippet struct {
	Context string
	Text    string
}

// Submission is the persisted outcome of a session.
type Submission struct {
	ID              string
	BriefID         string
	SessionID       string
	UserID          string
	UserName        string
	Role            Role
	SummaryLines    []string
	DurationMinutes int
	MatchedTasks    []string
	Status          SubmissionStatus
	Analysis        string
	CreatedAt       time.Time
	UpdatedAt       time.Time
	Activities      []Activity
}

// Caller is the authenticated identity making a request.
type Caller struct {
	UserID string
	OrgID  string
	Email  string
	Name   string
}
