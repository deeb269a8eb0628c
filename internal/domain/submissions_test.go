package domain_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rain-droid/orgIO/internal/domain"
	"github.com/rain-droid/orgIO/pkg/events"
)

func seedSubmission(t *testing.T, f *fixture, id string, matched []string) {
	t.Helper()
	require.NoError(t, f.store.CreateSubmission(context.Background(), domain.Submission{
		ID:           id,
		BriefID:      "brief-1",
		UserID:       "user-1",
		UserName:     "Ada",
		Role:         domain.RoleDev,
		SummaryLines: []string{"Worked in Editor for 40 minutes"},
		MatchedTasks: matched,
		Status:       domain.SubmissionStatusPending,
		CreatedAt:    f.clock.Now(),
	}))
}

func TestApproveMarksMatchedTasksDone(t *testing.T) {
	f := newFixture(t)
	seedSubmission(t, f, "sub-1", []string{"t1", "t2"})
	svc := f.submissions(t, domain.Agents{})

	res, err := svc.ReviewSubmission(context.Background(), domain.ReviewInput{Caller: member, SubmissionID: "sub-1", Status: domain.SubmissionStatusApproved})
	require.NoError(t, err)
	require.Equal(t, domain.SubmissionStatusApproved, res.Status)
	require.Equal(t, []string{"t1", "t2"}, res.TasksUpdated)

	for _, id := range []string{"t1", "t2"} {
		task, ok := f.store.Task(id)
		require.True(t, ok)
		require.Equal(t, domain.TaskStatusDone, task.Status)
	}

	fired := f.notifier.ofType(events.TypeTasksUpdated)
	require.Len(t, fired, 1)
	require.Equal(t, []string{"t1", "t2"}, fired[0].Envelope.Payload.(events.TasksUpdated).TaskIDs)
}

func TestApproveTwiceIsIdempotent(t *testing.T) {
	f := newFixture(t)
	seedSubmission(t, f, "sub-1", []string{"t1", "t2"})
	svc := f.submissions(t, domain.Agents{})
	input := domain.ReviewInput{Caller: member, SubmissionID: "sub-1", Status: domain.SubmissionStatusApproved}

	_, err := svc.ReviewSubmission(context.Background(), input)
	require.NoError(t, err)
	first, _ := f.store.ListTasks(context.Background(), "brief-1")

	_, err = svc.ReviewSubmission(context.Background(), input)
	require.NoError(t, err)
	second, _ := f.store.ListTasks(context.Background(), "brief-1")

	require.Len(t, second, len(first))
	for i := range first {
		require.Equal(t, first[i].Status, second[i].Status)
	}
}

func TestApproveSkipsFailedTaskWrites(t *testing.T) {
	f := newFixture(t)
	f.store.failTaskIDs["t1"] = true
	seedSubmission(t, f, "sub-1", []string{"t1", "t2"})
	svc := f.submissions(t, domain.Agents{})

	res, err := svc.ReviewSubmission(context.Background(), domain.ReviewInput{Caller: member, SubmissionID: "sub-1", Status: domain.SubmissionStatusApproved})
	require.NoError(t, err)
	require.Equal(t, []string{"t2"}, res.TasksUpdated)
}

func TestReviewOverrideIsFiltered(t *testing.T) {
	f := newFixture(t)
	seedSubmission(t, f, "sub-1", []string{"t1"})
	svc := f.submissions(t, domain.Agents{})

	res, err := svc.ReviewSubmission(context.Background(), domain.ReviewInput{
		Caller:       member,
		SubmissionID: "sub-1",
		Status:       domain.SubmissionStatusRejected,
		MatchedTasks: []string{"t2", "bogus", "t2"},
	})
	require.NoError(t, err)
	require.Equal(t, []string{"t2"}, res.MatchedTasks)
	require.Empty(t, res.TasksUpdated)
	require.Empty(t, f.notifier.ofType(events.TypeTasksUpdated))

	task, _ := f.store.Task("t2")
	require.Equal(t, domain.TaskStatusInProgress, task.Status, "rejection leaves tasks untouched")
}

func TestReviewAccessAndValidation(t *testing.T) {
	f := newFixture(t)
	seedSubmission(t, f, "sub-1", nil)
	svc := f.submissions(t, domain.Agents{})
	ctx := context.Background()

	_, err := svc.ReviewSubmission(ctx, domain.ReviewInput{Caller: domain.Caller{UserID: "x", OrgID: "org-2"}, SubmissionID: "sub-1", Status: domain.SubmissionStatusApproved})
	require.ErrorIs(t, err, domain.ErrForbidden)

	_, err = svc.ReviewSubmission(ctx, domain.ReviewInput{Caller: member, SubmissionID: "missing", Status: domain.SubmissionStatusApproved})
	require.ErrorIs(t, err, domain.ErrSubmissionNotFound)

	_, err = svc.ReviewSubmission(ctx, domain.ReviewInput{Caller: member, SubmissionID: "sub-1", Status: domain.SubmissionStatusReviewed})
	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
}

func TestCreateSubmissionEmitsSubmissionNew(t *testing.T) {
	f := newFixture(t)
	svc := f.submissions(t, domain.Agents{Matcher: stubMatcher{ids: []string{"t1", "zzz"}}})

	sub, err := svc.CreateSubmission(context.Background(), domain.CreateSubmissionInput{
		Caller:          member,
		BriefID:         "brief-1",
		Role:            domain.RoleDev,
		DurationMinutes: 42,
		Activities:      []domain.Activity{{App: "Editor", Duration: 42 * time.Minute}},
	})
	require.NoError(t, err)
	require.Equal(t, []string{"Worked in Editor for 42 minutes"}, sub.SummaryLines)
	require.Equal(t, []string{"t1"}, sub.MatchedTasks)
	require.Equal(t, "Ada", sub.UserName)

	fired := f.notifier.ofType(events.TypeSubmissionNew)
	require.Len(t, fired, 1)
	require.Equal(t, "org-1", fired[0].OrgID)

	got, err := svc.GetSubmission(context.Background(), member, sub.ID)
	require.NoError(t, err)
	require.Len(t, got.Activities, 1)
}

func TestListSubmissionsScopesToCallerOrganization(t *testing.T) {
	f := newFixture(t)
	seedSubmission(t, f, "sub-1", nil)
	svc := f.submissions(t, domain.Agents{})

	items, err := svc.ListSubmissions(context.Background(), domain.ListSubmissionsInput{Caller: member})
	require.NoError(t, err)
	require.Len(t, items, 1)

	items, err = svc.ListSubmissions(context.Background(), domain.ListSubmissionsInput{Caller: domain.Caller{UserID: "x", OrgID: "org-2"}})
	require.NoError(t, err)
	require.Empty(t, items)
}
