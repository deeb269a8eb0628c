package domain

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/rain-droid/orgIO/internal/observability"
	"github.com/rain-droid/orgIO/pkg/events"
)

const (
	// AnalysisParseFailure is the single issue reported when the analyst's
	// answer could not be used.
	AnalysisParseFailure    = "Failed to parse AI analysis"
	degradedAnalysisSummary = "Session recorded. Automatic task reconciliation was unavailable for this session."
	maxNewTasks             = 10
)

// AnalyzeSessionInput captures an analysis request. Either SessionID or
// BriefID must be set; an explicit BriefID wins.
type AnalyzeSessionInput struct {
	Caller          Caller
	SessionID       string
	BriefID         string
	Role            Role
	Activities      []Activity
	Notes           []string
	SummaryLines    []string
	DurationMinutes int
}

// TaskUpdate is a validated status change that was written.
type TaskUpdate struct {
	TaskID string
	Title  string
	Status TaskStatus
	Reason string
}

// AnalysisResult is the applied outcome of an analysis.
type AnalysisResult struct {
	UpdatedTasks []TaskUpdate
	NewTasks     []Task
	Issues       []string
	Summary      string
	Degraded     bool
}

// AnalyzeSession asks the analyst to reconcile the brief's tasks against a
// session's evidence and applies the validated subset of its proposal. Each
// call applies a fresh diff against the current task state, so re-running it
// only writes tasks whose status still differs.
func (s *SessionService) AnalyzeSession(ctx context.Context, input AnalyzeSessionInput) (*AnalysisResult, error) {
	briefID := strings.TrimSpace(input.BriefID)
	role := input.Role
	var session *Session
	if input.SessionID != "" {
		loaded, err := s.store.GetSession(ctx, input.SessionID)
		if err != nil {
			return nil, fmt.Errorf("load session %s: %w", input.SessionID, err)
		}
		if loaded == nil {
			return nil, ErrSessionNotFound
		}
		session = loaded
		if briefID == "" {
			briefID = session.BriefID
		}
		if !role.Valid() {
			role = session.Role
		}
	}
	if briefID == "" {
		return nil, invalid("sessionId", "sessionId or briefId is required")
	}

	brief, err := s.loadBrief(ctx, briefID)
	if err != nil {
		return nil, err
	}
	orgID, _, err := s.resolveOrg(ctx, input.Caller)
	if err != nil {
		return nil, err
	}
	if !canAccessBrief(brief, input.Caller, orgID) {
		return nil, ErrForbidden
	}

	tasks, err := s.store.ListTasks(ctx, brief.ID)
	if err != nil {
		return nil, fmt.Errorf("list tasks for brief %s: %w", brief.ID, err)
	}

	if s.agents.Analyst == nil {
		return degradedAnalysis(), nil
	}
	proposal, err := s.agents.Analyst.Analyze(ctx, AnalysisInput{
		Brief:           *brief,
		Role:            role,
		Tasks:           tasks,
		Activities:      input.Activities,
		Notes:           input.Notes,
		SummaryLines:    input.SummaryLines,
		DurationMinutes: input.DurationMinutes,
	})
	if err != nil {
		s.logger.Printf("analysis failed for brief %s: %v", brief.ID, err)
		return degradedAnalysis(), nil
	}

	result := &AnalysisResult{
		UpdatedTasks: s.applyUpdates(ctx, proposal.Updates, tasks),
		NewTasks:     s.insertTasks(ctx, brief.ID, role, proposal.NewTasks, tasks),
		Issues:       cleanLines(proposal.Issues),
		Summary:      strings.TrimSpace(proposal.Summary),
	}

	if session != nil {
		s.attachAnalysis(ctx, session.ID, result.Summary)
	}

	updatedIDs := make([]string, 0, len(result.UpdatedTasks))
	for _, u := range result.UpdatedTasks {
		updatedIDs = append(updatedIDs, u.TaskID)
	}
	newIDs := make([]string, 0, len(result.NewTasks))
	for _, t := range result.NewTasks {
		newIDs = append(newIDs, t.ID)
	}
	notifyOrg := brief.OrgID
	if notifyOrg == "" {
		notifyOrg = orgID
	}
	payload := events.WorkspaceUpdated{
		BriefID:        brief.ID,
		UpdatedTaskIDs: updatedIDs,
		NewTaskIDs:     newIDs,
		Summary:        result.Summary,
	}
	if session != nil {
		payload.SessionID = session.ID
	}
	s.notify(ctx, notifyOrg, events.Envelope{Type: events.TypeWorkspaceUpdated, Payload: payload})

	return result, nil
}

func degradedAnalysis() *AnalysisResult {
	return &AnalysisResult{
		UpdatedTasks: []TaskUpdate{},
		NewTasks:     []Task{},
		Issues:       []string{AnalysisParseFailure},
		Summary:      degradedAnalysisSummary,
		Degraded:     true,
	}
}

// applyUpdates writes proposed status changes that reference a real task,
// carry wasUpdated, name a reachable status and actually change something.
func (s *SessionService) applyUpdates(ctx context.Context, proposed []ProposedUpdate, tasks []Task) []TaskUpdate {
	byID := make(map[string]Task, len(tasks))
	for _, task := range tasks {
		byID[task.ID] = task
	}

	applied := make([]TaskUpdate, 0, len(proposed))
	seen := make(map[string]struct{}, len(proposed))
	for _, update := range proposed {
		taskID := strings.TrimSpace(update.TaskID)
		task, ok := byID[taskID]
		if !ok {
			if taskID != "" {
				s.logger.Printf("analysis referenced unknown task %q, ignoring", taskID)
			}
			continue
		}
		if !update.WasUpdated {
			continue
		}
		if update.Status != TaskStatusDone && update.Status != TaskStatusInProgress {
			continue
		}
		if _, dup := seen[taskID]; dup || task.Status == update.Status {
			continue
		}
		if err := s.store.UpdateTaskStatus(ctx, taskID, update.Status, s.now()); err != nil {
			s.logger.Printf("analysis update of task %s to %s failed: %v", taskID, update.Status, err)
			continue
		}
		seen[taskID] = struct{}{}
		applied = append(applied, TaskUpdate{
			TaskID: taskID,
			Title:  task.Title,
			Status: update.Status,
			Reason: strings.TrimSpace(update.Reason),
		})
	}
	return applied
}

// insertTasks creates proposed tasks with a title not already on the brief.
func (s *SessionService) insertTasks(ctx context.Context, briefID string, role Role, proposed []ProposedTask, existing []Task) []Task {
	titles := make(map[string]struct{}, len(existing)+len(proposed))
	for _, task := range existing {
		titles[strings.ToLower(strings.TrimSpace(task.Title))] = struct{}{}
	}

	created := make([]Task, 0)
	for _, candidate := range proposed {
		if len(created) == maxNewTasks {
			break
		}
		title := strings.TrimSpace(candidate.Title)
		key := strings.ToLower(title)
		if title == "" {
			continue
		}
		if _, dup := titles[key]; dup {
			continue
		}
		taskRole := candidate.Role
		if !taskRole.Valid() {
			taskRole = role
		}
		if !taskRole.Valid() {
			taskRole = RoleDev
		}
		now := s.now()
		task := Task{
			ID:          uuid.NewString(),
			BriefID:     briefID,
			Role:        taskRole,
			Title:       title,
			Description: strings.TrimSpace(candidate.Description),
			Status:      TaskStatusTodo,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if err := s.store.CreateTask(ctx, task); err != nil {
			s.logger.Printf("analysis insert of task %q failed: %v", title, err)
			continue
		}
		titles[key] = struct{}{}
		created = append(created, task)
	}
	return created
}

func (s *SessionService) attachAnalysis(ctx context.Context, sessionID, summary string) {
	submission, err := s.store.GetSubmissionBySession(ctx, sessionID)
	if err != nil {
		s.logger.Printf("load submission for session %s: %v", sessionID, err)
		return
	}
	if submission == nil {
		return
	}
	status := submission.Status
	if status == SubmissionStatusPending {
		status = SubmissionStatusReviewed
	}
	if err := s.store.AttachAnalysis(ctx, submission.ID, summary, status, s.now()); err != nil {
		s.logger.Printf("attach analysis to submission %s: %v", submission.ID, err)
		return
	}
	if status != submission.Status {
		observability.RecordReview(string(status))
	}
}

func cleanLines(lines []string) []string {
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
