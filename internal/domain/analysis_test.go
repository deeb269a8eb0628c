package domain_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rain-droid/orgIO/internal/domain"
	"github.com/rain-droid/orgIO/pkg/events"
)

func TestAnalyzeIgnoresUnknownTaskIDs(t *testing.T) {
	f := newFixture(t)
	svc := f.sessions(t, domain.Agents{Analyst: stubAnalyst{proposal: domain.AnalysisProposal{
		Updates: []domain.ProposedUpdate{
			{TaskID: "unknown", Status: domain.TaskStatusDone, WasUpdated: true},
			{TaskID: "t1", Status: domain.TaskStatusDone, WasUpdated: true, Reason: "endpoint merged"},
			{TaskID: "t2", Status: domain.TaskStatusDone, WasUpdated: false},
			{TaskID: "t2", Status: "archived", WasUpdated: true},
		},
		Issues:  []string{"  Login copy still pending ", ""},
		Summary: "Login API finished.",
	}}})

	res, err := svc.AnalyzeSession(context.Background(), domain.AnalyzeSessionInput{Caller: member, BriefID: "brief-1"})
	require.NoError(t, err)
	require.Len(t, res.UpdatedTasks, 1)
	require.Equal(t, "t1", res.UpdatedTasks[0].TaskID)
	require.Equal(t, "endpoint merged", res.UpdatedTasks[0].Reason)
	require.Equal(t, []string{"Login copy still pending"}, res.Issues)
	require.Equal(t, []string{"t1"}, f.store.taskWrites, "no write for unknown or unchanged tasks")

	task, ok := f.store.Task("t1")
	require.True(t, ok)
	require.Equal(t, domain.TaskStatusDone, task.Status)
	task, _ = f.store.Task("t2")
	require.Equal(t, domain.TaskStatusInProgress, task.Status)

	updated := f.notifier.ofType(events.TypeWorkspaceUpdated)
	require.Len(t, updated, 1)
	payload := updated[0].Envelope.Payload.(events.WorkspaceUpdated)
	require.Equal(t, []string{"t1"}, payload.UpdatedTaskIDs)
}

func TestAnalyzeInsertsNewTasks(t *testing.T) {
	f := newFixture(t)
	svc := f.sessions(t, domain.Agents{Analyst: stubAnalyst{proposal: domain.AnalysisProposal{
		NewTasks: []domain.ProposedTask{
			{Title: "Add rate limiting", Description: "Protect login", Role: domain.RoleDev},
			{Title: "build login api"},
			{Title: "   "},
			{Title: "Write release notes", Role: "marketing"},
			{Title: "Add rate limiting"},
		},
		Summary: "Follow-ups identified.",
	}}})

	res, err := svc.AnalyzeSession(context.Background(), domain.AnalyzeSessionInput{Caller: member, BriefID: "brief-1", Role: domain.RolePM})
	require.NoError(t, err)
	require.Len(t, res.NewTasks, 2)
	require.Equal(t, "Add rate limiting", res.NewTasks[0].Title)
	require.Equal(t, domain.TaskStatusTodo, res.NewTasks[0].Status)
	require.Equal(t, domain.RolePM, res.NewTasks[1].Role, "unknown roles fall back to the session role")

	tasks, err := f.store.ListTasks(context.Background(), "brief-1")
	require.NoError(t, err)
	require.Len(t, tasks, 4)
}

func TestAnalyzeDegradesOnAnalystFailure(t *testing.T) {
	f := newFixture(t)
	svc := f.sessions(t, domain.Agents{Analyst: stubAnalyst{err: errModelDown}})

	res, err := svc.AnalyzeSession(context.Background(), domain.AnalyzeSessionInput{Caller: member, BriefID: "brief-1"})
	require.NoError(t, err)
	require.True(t, res.Degraded)
	require.Empty(t, res.UpdatedTasks)
	require.Empty(t, res.NewTasks)
	require.Equal(t, []string{domain.AnalysisParseFailure}, res.Issues)
	require.NotEmpty(t, res.Summary)
	require.Empty(t, f.store.taskWrites)
}

func TestAnalyzeBySessionAttachesToSubmission(t *testing.T) {
	f := newFixture(t)
	analyst := stubAnalyst{proposal: domain.AnalysisProposal{
		Updates: []domain.ProposedUpdate{{TaskID: "t2", Status: domain.TaskStatusDone, WasUpdated: true}},
		Summary: "Design complete.",
	}}
	svc := f.sessions(t, domain.Agents{Analyst: analyst})
	sessionID := startSession(t, svc)
	f.clock.Advance(30 * time.Minute)
	ended, err := svc.EndSession(context.Background(), domain.EndSessionInput{Caller: member, SessionID: sessionID})
	require.NoError(t, err)

	res, err := svc.AnalyzeSession(context.Background(), domain.AnalyzeSessionInput{Caller: member, SessionID: sessionID})
	require.NoError(t, err)
	require.Len(t, res.UpdatedTasks, 1)

	submission, err := f.store.GetSubmission(context.Background(), ended.SubmissionID)
	require.NoError(t, err)
	require.Equal(t, domain.SubmissionStatusReviewed, submission.Status)
	require.Equal(t, "Design complete.", submission.Analysis)

	// A second run applies a fresh diff: t2 is already done, nothing is written.
	again, err := svc.AnalyzeSession(context.Background(), domain.AnalyzeSessionInput{Caller: member, SessionID: sessionID})
	require.NoError(t, err)
	require.Empty(t, again.UpdatedTasks)
	require.Equal(t, []string{"t2"}, f.store.taskWrites)
}

func TestAnalyzeRequiresTarget(t *testing.T) {
	f := newFixture(t)
	svc := f.sessions(t, domain.Agents{})

	_, err := svc.AnalyzeSession(context.Background(), domain.AnalyzeSessionInput{Caller: member})
	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)

	_, err = svc.AnalyzeSession(context.Background(), domain.AnalyzeSessionInput{Caller: member, SessionID: "nope"})
	require.ErrorIs(t, err, domain.ErrSessionNotFound)
}
