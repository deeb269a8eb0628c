package domain

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/rain-droid/orgIO/internal/observability"
	"github.com/rain-droid/orgIO/pkg/events"
)

// SessionService owns the work-session state machine:
//
//	[no session] --Start--> active --End--> completed
type SessionService struct {
	base
}

// NewSessionService constructs a SessionService.
func NewSessionService(store Store, agents Agents, notifier Notifier, opts ...Option) *SessionService {
	return &SessionService{base: newBase(store, agents, notifier, "[sessions] ", opts)}
}

// StartSessionInput captures the start request.
type StartSessionInput struct {
	Caller  Caller
	BriefID string
	Role    Role
}

// StartSessionResult is returned by StartSession.
type StartSessionResult struct {
	SessionID string
	BriefID   string
	BriefName string
	Role      Role
	StartedAt time.Time
}

// StartSession opens an active session against a brief the caller can access.
func (s *SessionService) StartSession(ctx context.Context, input StartSessionInput) (*StartSessionResult, error) {
	if strings.TrimSpace(input.BriefID) == "" {
		return nil, invalid("briefId", "is required")
	}
	if !input.Role.Valid() {
		return nil, invalid("role", "must be one of pm, dev, designer")
	}

	brief, err := s.loadBrief(ctx, input.BriefID)
	if err != nil {
		return nil, err
	}
	orgID, user, err := s.resolveOrg(ctx, input.Caller)
	if err != nil {
		return nil, err
	}
	if !canAccessBrief(brief, input.Caller, orgID) {
		return nil, ErrForbidden
	}

	sessionOrg := brief.OrgID
	if sessionOrg == "" {
		sessionOrg = orgID
	}
	session := Session{
		ID:        uuid.NewString(),
		UserID:    input.Caller.UserID,
		OrgID:     sessionOrg,
		BriefID:   brief.ID,
		Role:      input.Role,
		Status:    SessionStatusActive,
		StartedAt: s.now(),
	}
	if err := s.store.CreateSession(ctx, session); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	observability.RecordSessionStarted()

	s.notify(ctx, session.OrgID, events.Envelope{
		Type: events.TypeSessionStarted,
		Payload: events.SessionStarted{
			SessionID: session.ID,
			UserID:    session.UserID,
			UserName:  s.displayName(ctx, input.Caller, user),
			BriefID:   brief.ID,
			BriefName: brief.Name,
			Role:      string(session.Role),
			StartedAt: session.StartedAt,
		},
	})

	return &StartSessionResult{
		SessionID: session.ID,
		BriefID:   brief.ID,
		BriefName: brief.Name,
		Role:      session.Role,
		StartedAt: session.StartedAt,
	}, nil
}

// EndSessionInput captures the end request.
type EndSessionInput struct {
	Caller     Caller
	SessionID  string
	Activities []Activity
	Snippets   []Snippet
	Summary    string
}

// EndSessionResult is returned by EndSession.
type EndSessionResult struct {
	SessionID       string
	SubmissionID    string
	DurationMinutes int
	SummaryLines    []string
	MatchedTasks    []string
}

// EndSession completes an active session and records its submission. The
// active to completed edge is a conditional write, so concurrent calls for
// the same session produce exactly one submission.
func (s *SessionService) EndSession(ctx context.Context, input EndSessionInput) (*EndSessionResult, error) {
	session, err := s.store.GetSession(ctx, input.SessionID)
	if err != nil {
		return nil, fmt.Errorf("load session %s: %w", input.SessionID, err)
	}
	if session == nil {
		return nil, ErrSessionNotFound
	}
	if session.UserID != input.Caller.UserID {
		return nil, ErrForbidden
	}
	if session.Status != SessionStatusActive {
		return nil, ErrSessionNotActive
	}

	// Everything that can fail before the submission insert happens ahead of
	// the transition, so a failed lookup leaves the session endable.
	brief, err := s.loadBrief(ctx, session.BriefID)
	if err != nil {
		return nil, err
	}
	tasks, err := s.store.ListTasks(ctx, brief.ID)
	if err != nil {
		return nil, fmt.Errorf("load tasks for brief %s: %w", brief.ID, err)
	}

	endedAt := s.now()
	minutes := SessionMinutes(session.StartedAt, endedAt)
	completed, err := s.store.CompleteSession(ctx, session.ID, endedAt, minutes)
	if err != nil {
		if errors.Is(err, ErrSessionNotActive) {
			return nil, err
		}
		return nil, fmt.Errorf("complete session %s: %w", session.ID, err)
	}

	userName := s.displayName(ctx, input.Caller, nil)
	built := s.buildContent(ctx, contentInput{
		Brief:      brief,
		Tasks:      tasks,
		Role:       completed.Role,
		Activities: input.Activities,
		Snippets:   input.Snippets,
		Fallback:   FallbackSummary(input.Activities, input.Summary, minutes),
	})

	submission := Submission{
		ID:              uuid.NewString(),
		BriefID:         completed.BriefID,
		SessionID:       completed.ID,
		UserID:          completed.UserID,
		UserName:        userName,
		Role:            completed.Role,
		SummaryLines:    built.SummaryLines,
		DurationMinutes: minutes,
		MatchedTasks:    built.MatchedTasks,
		Status:          SubmissionStatusPending,
		CreatedAt:       endedAt,
		UpdatedAt:       endedAt,
	}
	if err := s.store.CreateSubmission(ctx, submission); err != nil {
		return nil, fmt.Errorf("create submission for session %s: %w", session.ID, err)
	}
	if len(input.Activities) > 0 {
		if err := s.store.SaveActivities(ctx, submission.ID, input.Activities); err != nil {
			s.logger.Printf("save activities for submission %s: %v", submission.ID, err)
		}
	}
	observability.RecordSessionEnded(minutes)
	observability.RecordSubmissionCreated("session")

	s.notify(ctx, completed.OrgID, events.Envelope{
		Type: events.TypeSessionEnded,
		Payload: events.SessionEnded{
			SessionID:       completed.ID,
			SubmissionID:    submission.ID,
			UserID:          completed.UserID,
			UserName:        userName,
			BriefID:         completed.BriefID,
			DurationMinutes: minutes,
		},
	})

	return &EndSessionResult{
		SessionID:       completed.ID,
		SubmissionID:    submission.ID,
		DurationMinutes: minutes,
		SummaryLines:    submission.SummaryLines,
		MatchedTasks:    submission.MatchedTasks,
	}, nil
}
