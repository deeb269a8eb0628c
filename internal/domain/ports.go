package domain

import (
	"context"
	"time"

	"github.com/rain-droid/orgIO/pkg/events"
)

// BriefRepository reads briefs and reads/writes their tasks. Lookups return
// nil without error when the row does not exist.
type BriefRepository interface {
	GetBrief(ctx context.Context, briefID string) (*Brief, error)
	ListTasks(ctx context.Context, briefID string) ([]Task, error)
	CreateTask(ctx context.Context, task Task) error
	UpdateTaskStatus(ctx context.Context, taskID string, status TaskStatus, at time.Time) error
}

// UserRepository reads locally synced user profiles.
type UserRepository interface {
	GetUser(ctx context.Context, userID string) (*User, error)
}

// SessionRepository persists work sessions.
type SessionRepository interface {
	CreateSession(ctx context.Context, session Session) error
	GetSession(ctx context.Context, sessionID string) (*Session, error)
	// CompleteSession moves an active session to completed in a single
	// conditional write. It returns ErrSessionNotActive when the session is
	// missing or no longer active at the time of the write.
	CompleteSession(ctx context.Context, sessionID string, endedAt time.Time, durationMinutes int) (*Session, error)
}

// SubmissionFilter narrows ListSubmissions. Exactly one of OrgID or OwnerID
// scopes the result: OrgID matches briefs of that organization, OwnerID
// matches organization-less briefs created by that user.
type SubmissionFilter struct {
	OrgID   string
	OwnerID string
	BriefID string
	UserID  string
	Status  SubmissionStatus
	Limit   int
	Offset  int
}

// SubmissionRepository persists submissions and their activities.
type SubmissionRepository interface {
	CreateSubmission(ctx context.Context, submission Submission) error
	SaveActivities(ctx context.Context, submissionID string, activities []Activity) error
	GetSubmission(ctx context.Context, submissionID string) (*Submission, error)
	GetSubmissionBySession(ctx context.Context, sessionID string) (*Submission, error)
	ListSubmissions(ctx context.Context, filter SubmissionFilter) ([]Submission, error)
	ListActivities(ctx context.Context, submissionID string) ([]Activity, error)
	UpdateReview(ctx context.Context, submissionID string, status SubmissionStatus, matchedTasks []string, at time.Time) (*Submission, error)
	AttachAnalysis(ctx context.Context, submissionID, analysis string, status SubmissionStatus, at time.Time) error
}

// Store aggregates the persistence ports.
type Store interface {
	BriefRepository
	UserRepository
	SessionRepository
	SubmissionRepository
}

// SummaryInput is the evidence handed to a Summarizer.
type SummaryInput struct {
	Role         Role
	BriefContext string
	Activities   []Activity
}

// SummaryResult is a bullet-point summary of a session.
type SummaryResult struct {
	Summary            []string
	KeyAccomplishments []string
	SuggestedKeywords  []string
	// Fallback is set when the result came from deterministic aggregation.
	Fallback bool
}

// Summarizer turns raw activities into a short summary.
type Summarizer interface {
	Summarize(ctx context.Context, input SummaryInput) (SummaryResult, error)
}

// MatchInput is the evidence handed to a TaskMatcher.
type MatchInput struct {
	Tasks        []Task
	SummaryLines []string
	Activities   []Activity
	Snippets     []Snippet
}

// TaskMatcher selects the tasks a piece of work contributed to.
type TaskMatcher interface {
	MatchTasks(ctx context.Context, input MatchInput) ([]string, error)
}

// AnalysisInput describes a session for post-hoc task reconciliation.
type AnalysisInput struct {
	Brief           Brief
	Role            Role
	Tasks           []Task
	Activities      []Activity
	Notes           []string
	SummaryLines    []string
	DurationMinutes int
}

// ProposedUpdate is an untrusted task status change suggested by the analyst.
type ProposedUpdate struct {
	TaskID     string
	Status     TaskStatus
	WasUpdated bool
	Reason     string
}

// ProposedTask is an untrusted new task suggested by the analyst.
type ProposedTask struct {
	Title       string
	Description string
	Role        Role
}

// AnalysisProposal is the analyst's structured answer before validation.
type AnalysisProposal struct {
	Updates  []ProposedUpdate
	NewTasks []ProposedTask
	Issues   []string
	Summary  string
}

// Analyst proposes task changes from session evidence.
type Analyst interface {
	Analyze(ctx context.Context, input AnalysisInput) (AnalysisProposal, error)
}

// Notifier delivers realtime envelopes to an organization.
type Notifier interface {
	Notify(ctx context.Context, orgID string, envelope events.Envelope) error
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, orgID string, envelope events.Envelope) error

// Notify implements Notifier.
func (f NotifierFunc) Notify(ctx context.Context, orgID string, envelope events.Envelope) error {
	return f(ctx, orgID, envelope)
}

// NoopNotifier discards every envelope.
type NoopNotifier struct{}

// Notify implements Notifier.
func (NoopNotifier) Notify(context.Context, string, events.Envelope) error { return nil }
