package domain

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/rain-droid/orgIO/internal/observability"
	"github.com/rain-droid/orgIO/pkg/events"
)

const (
	defaultListLimit = 50
	maxListLimit     = 100
)

// SubmissionService covers submissions created outside the session flow and
// the review workflow over stored submissions.
type SubmissionService struct {
	base
}

// NewSubmissionService constructs a SubmissionService.
func NewSubmissionService(store Store, agents Agents, notifier Notifier, opts ...Option) *SubmissionService {
	return &SubmissionService{base: newBase(store, agents, notifier, "[submissions] ", opts)}
}

// CreateSubmissionInput captures a direct submission from a desktop client.
type CreateSubmissionInput struct {
	Caller          Caller
	BriefID         string
	UserName        string
	Role            Role
	SummaryLines    []string
	DurationMinutes int
	Activities      []Activity
	Snippets        []Snippet
}

// CreateSubmission persists a pending submission for a brief the caller can
// access. The caller's summary lines take precedence; the summarizer only
// fills in when none were sent.
func (s *SubmissionService) CreateSubmission(ctx context.Context, input CreateSubmissionInput) (*Submission, error) {
	if strings.TrimSpace(input.BriefID) == "" {
		return nil, invalid("briefId", "is required")
	}
	if !input.Role.Valid() {
		return nil, invalid("role", "must be one of pm, dev, designer")
	}
	if input.DurationMinutes < 0 {
		return nil, invalid("durationMinutes", "must not be negative")
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

	provided := cleanLines(input.SummaryLines)
	fallback := provided
	if len(fallback) == 0 {
		fallback = FallbackSummary(input.Activities, "", input.DurationMinutes)
	}
	tasks, err := s.store.ListTasks(ctx, brief.ID)
	if err != nil {
		return nil, fmt.Errorf("load tasks for brief %s: %w", brief.ID, err)
	}
	built := s.buildContent(ctx, contentInput{
		Brief:      brief,
		Tasks:      tasks,
		Role:       input.Role,
		Activities: input.Activities,
		Snippets:   input.Snippets,
		Fallback:   fallback,
	})
	summary := built.SummaryLines
	if len(provided) > 0 {
		summary = provided
	}

	userName := strings.TrimSpace(input.UserName)
	if userName == "" {
		userName = s.displayName(ctx, input.Caller, user)
	}

	now := s.now()
	submission := Submission{
		ID:              uuid.NewString(),
		BriefID:         brief.ID,
		UserID:          input.Caller.UserID,
		UserName:        userName,
		Role:            input.Role,
		SummaryLines:    summary,
		DurationMinutes: input.DurationMinutes,
		MatchedTasks:    built.MatchedTasks,
		Status:          SubmissionStatusPending,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.store.CreateSubmission(ctx, submission); err != nil {
		return nil, fmt.Errorf("create submission: %w", err)
	}
	if len(input.Activities) > 0 {
		if err := s.store.SaveActivities(ctx, submission.ID, input.Activities); err != nil {
			s.logger.Printf("save activities for submission %s: %v", submission.ID, err)
		} else {
			submission.Activities = input.Activities
		}
	}
	observability.RecordSubmissionCreated("direct")

	notifyOrg := brief.OrgID
	if notifyOrg == "" {
		notifyOrg = orgID
	}
	s.notify(ctx, notifyOrg, events.Envelope{
		Type: events.TypeSubmissionNew,
		Payload: events.SubmissionNew{
			SubmissionID: submission.ID,
			BriefID:      submission.BriefID,
			UserID:       submission.UserID,
			UserName:     submission.UserName,
			Role:         string(submission.Role),
			MatchedTasks: submission.MatchedTasks,
		},
	})
	return &submission, nil
}

// GetSubmission returns a submission with its activities.
func (s *SubmissionService) GetSubmission(ctx context.Context, caller Caller, submissionID string) (*Submission, error) {
	submission, _, _, err := s.authorizedSubmission(ctx, caller, submissionID)
	if err != nil {
		return nil, err
	}
	activities, err := s.store.ListActivities(ctx, submission.ID)
	if err != nil {
		return nil, fmt.Errorf("list activities for submission %s: %w", submission.ID, err)
	}
	submission.Activities = activities
	return submission, nil
}

// EffectiveListLimit clamps a requested page size to the supported range.
func EffectiveListLimit(requested int) int {
	if requested <= 0 {
		return defaultListLimit
	}
	if requested > maxListLimit {
		return maxListLimit
	}
	return requested
}

// ListSubmissionsInput captures list filters from the caller.
type ListSubmissionsInput struct {
	Caller  Caller
	BriefID string
	UserID  string
	Status  SubmissionStatus
	Limit   int
	Offset  int
}

// ListSubmissions returns submissions visible to the caller, newest first.
func (s *SubmissionService) ListSubmissions(ctx context.Context, input ListSubmissionsInput) ([]Submission, error) {
	if input.Status != "" && !input.Status.Valid() {
		return nil, invalid("status", "unknown submission status")
	}
	if input.Offset < 0 {
		return nil, invalid("offset", "must not be negative")
	}
	limit := EffectiveListLimit(input.Limit)

	orgID, _, err := s.resolveOrg(ctx, input.Caller)
	if err != nil {
		return nil, err
	}
	filter := SubmissionFilter{
		BriefID: input.BriefID,
		UserID:  input.UserID,
		Status:  input.Status,
		Limit:   limit,
		Offset:  input.Offset,
	}
	if orgID != "" {
		filter.OrgID = orgID
	} else {
		filter.OwnerID = input.Caller.UserID
	}
	return s.store.ListSubmissions(ctx, filter)
}

// ReviewInput captures a review decision. MatchedTasks, when non-nil,
// replaces the submission's matched set.
type ReviewInput struct {
	Caller       Caller
	SubmissionID string
	Status       SubmissionStatus
	MatchedTasks []string
}

// ReviewResult is returned by ReviewSubmission.
type ReviewResult struct {
	ID           string
	Status       SubmissionStatus
	MatchedTasks []string
	UpdatedAt    time.Time
	// TasksUpdated lists the tasks moved to done by an approval.
	TasksUpdated []string
}

// ReviewSubmission approves or rejects a submission. Approval moves every
// matched task to done; a failed task write is logged and skipped without
// failing the review. Writing done is idempotent per task, so repeating an
// approval leaves task state unchanged.
func (s *SubmissionService) ReviewSubmission(ctx context.Context, input ReviewInput) (*ReviewResult, error) {
	if input.Status != SubmissionStatusApproved && input.Status != SubmissionStatusRejected {
		return nil, invalid("status", "must be approved or rejected")
	}

	submission, brief, orgID, err := s.authorizedSubmission(ctx, input.Caller, input.SubmissionID)
	if err != nil {
		return nil, err
	}

	var matched []string
	if input.MatchedTasks != nil {
		tasks, err := s.store.ListTasks(ctx, brief.ID)
		if err != nil {
			return nil, fmt.Errorf("list tasks for brief %s: %w", brief.ID, err)
		}
		matched = FilterTaskIDs(input.MatchedTasks, tasks)
	}

	now := s.now()
	updated, err := s.store.UpdateReview(ctx, submission.ID, input.Status, matched, now)
	if err != nil {
		return nil, fmt.Errorf("update submission %s: %w", submission.ID, err)
	}
	if updated == nil {
		return nil, ErrSubmissionNotFound
	}
	observability.RecordReview(string(input.Status))

	result := &ReviewResult{
		ID:           updated.ID,
		Status:       updated.Status,
		MatchedTasks: updated.MatchedTasks,
		UpdatedAt:    updated.UpdatedAt,
		TasksUpdated: []string{},
	}
	if input.Status != SubmissionStatusApproved {
		return result, nil
	}

	for _, taskID := range updated.MatchedTasks {
		if err := s.store.UpdateTaskStatus(ctx, taskID, TaskStatusDone, now); err != nil {
			s.logger.Printf("approval of submission %s: update task %s: %v", updated.ID, taskID, err)
			continue
		}
		result.TasksUpdated = append(result.TasksUpdated, taskID)
	}

	if len(result.TasksUpdated) > 0 {
		notifyOrg := brief.OrgID
		if notifyOrg == "" {
			notifyOrg = orgID
		}
		s.notify(ctx, notifyOrg, events.Envelope{
			Type: events.TypeTasksUpdated,
			Payload: events.TasksUpdated{
				BriefID:      brief.ID,
				SubmissionID: updated.ID,
				TaskIDs:      result.TasksUpdated,
				Status:       string(TaskStatusDone),
			},
		})
	}
	return result, nil
}

// authorizedSubmission loads a submission and its brief and checks that the
// caller's organization owns the brief. Organization-less briefs are only
// visible to their creator.
func (s *SubmissionService) authorizedSubmission(ctx context.Context, caller Caller, submissionID string) (*Submission, *Brief, string, error) {
	submission, err := s.store.GetSubmission(ctx, submissionID)
	if err != nil {
		return nil, nil, "", fmt.Errorf("load submission %s: %w", submissionID, err)
	}
	if submission == nil {
		return nil, nil, "", ErrSubmissionNotFound
	}
	brief, err := s.store.GetBrief(ctx, submission.BriefID)
	if err != nil {
		return nil, nil, "", fmt.Errorf("load brief %s: %w", submission.BriefID, err)
	}
	if brief == nil {
		return nil, nil, "", ErrSubmissionNotFound
	}
	orgID, _, err := s.resolveOrg(ctx, caller)
	if err != nil {
		return nil, nil, "", err
	}
	if brief.OrgID != "" {
		if brief.OrgID != orgID {
			return nil, nil, "", ErrForbidden
		}
	} else if brief.CreatedBy != caller.UserID {
		return nil, nil, "", ErrForbidden
	}
	return submission, brief, orgID, nil
}
