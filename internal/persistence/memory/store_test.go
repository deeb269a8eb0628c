package memory

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rain-droid/orgIO/internal/domain"
)

func TestCompleteSessionSingleWinner(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	require.NoError(t, store.CreateSession(ctx, domain.Session{
		ID:        "s1",
		UserID:    "u1",
		BriefID:   "b1",
		Role:      domain.RoleDev,
		Status:    domain.SessionStatusActive,
		StartedAt: time.Now().Add(-time.Hour),
	}))

	var wins, unexpected atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := store.CompleteSession(ctx, "s1", time.Now(), 60); err == nil {
				wins.Add(1)
			} else if !errors.Is(err, domain.ErrSessionNotActive) {
				unexpected.Add(1)
			}
		}()
	}
	wg.Wait()

	require.Equal(t, int32(1), wins.Load())
	require.Zero(t, unexpected.Load())
	session, err := store.GetSession(ctx, "s1")
	require.NoError(t, err)
	require.Equal(t, domain.SessionStatusCompleted, session.Status)
	require.Equal(t, 60, *session.DurationMinutes)
}

func TestListSubmissionsScopesByOrganization(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	store.PutBrief(domain.Brief{ID: "b-org", OrgID: "org-1", CreatedBy: "u1"})
	store.PutBrief(domain.Brief{ID: "b-other", OrgID: "org-2", CreatedBy: "u2"})
	store.PutBrief(domain.Brief{ID: "b-personal", CreatedBy: "u1"})

	base := time.Date(2025, time.March, 1, 9, 0, 0, 0, time.UTC)
	for i, briefID := range []string{"b-org", "b-org", "b-other", "b-personal"} {
		require.NoError(t, store.CreateSubmission(ctx, domain.Submission{
			ID:        briefID + "-" + string(rune('a'+i)),
			BriefID:   briefID,
			UserID:    "u1",
			Status:    domain.SubmissionStatusPending,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}))
	}

	orgItems, err := store.ListSubmissions(ctx, domain.SubmissionFilter{OrgID: "org-1", Limit: 10})
	require.NoError(t, err)
	require.Len(t, orgItems, 2)
	require.Equal(t, "b-org-b", orgItems[0].ID, "newest first")

	personal, err := store.ListSubmissions(ctx, domain.SubmissionFilter{OwnerID: "u1", Limit: 10})
	require.NoError(t, err)
	require.Len(t, personal, 1)
	require.Equal(t, "b-personal", personal[0].BriefID)

	paged, err := store.ListSubmissions(ctx, domain.SubmissionFilter{OrgID: "org-1", Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Len(t, paged, 1)
	require.Equal(t, "b-org-a", paged[0].ID)
}

func TestUpdateTaskStatusUnknownTask(t *testing.T) {
	store := NewStore()
	err := store.UpdateTaskStatus(context.Background(), "missing", domain.TaskStatusDone, time.Now())
	require.ErrorIs(t, err, domain.ErrTaskNotFound)
}
