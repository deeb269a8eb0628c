package domain_test

import (
	"context"
	"errors"
	"log"
	"sync"
	"testing"
	"time"

	"github.com/rain-droid/orgIO/internal/domain"
	"github.com/rain-droid/orgIO/internal/persistence/memory"
	"github.com/rain-droid/orgIO/pkg/events"
)

var errModelDown = errors.New("model unavailable")

type recordingNotifier struct {
	mu   sync.Mutex
	sent []sentEnvelope
	err  error
}

type sentEnvelope struct {
	OrgID    string
	Envelope events.Envelope
}

func (n *recordingNotifier) Notify(_ context.Context, orgID string, env events.Envelope) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, sentEnvelope{OrgID: orgID, Envelope: env})
	return n.err
}

func (n *recordingNotifier) ofType(eventType string) []sentEnvelope {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]sentEnvelope, 0)
	for _, s := range n.sent {
		if s.Envelope.Type == eventType {
			out = append(out, s)
		}
	}
	return out
}

type stubSummarizer struct {
	result domain.SummaryResult
	err    error
}

func (s stubSummarizer) Summarize(context.Context, domain.SummaryInput) (domain.SummaryResult, error) {
	return s.result, s.err
}

type stubMatcher struct {
	ids []string
	err error
}

func (m stubMatcher) MatchTasks(context.Context, domain.MatchInput) ([]string, error) {
	return m.ids, m.err
}

type stubAnalyst struct {
	proposal domain.AnalysisProposal
	err      error
}

func (a stubAnalyst) Analyze(context.Context, domain.AnalysisInput) (domain.AnalysisProposal, error) {
	return a.proposal, a.err
}

// countingStore records task status writes on top of the memory store.
type countingStore struct {
	*memory.Store
	mu          sync.Mutex
	taskWrites  []string
	failTaskIDs map[string]bool
	listErr     error
}

func (c *countingStore) ListTasks(ctx context.Context, briefID string) ([]domain.Task, error) {
	c.mu.Lock()
	err := c.listErr
	c.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return c.Store.ListTasks(ctx, briefID)
}

func (c *countingStore) UpdateTaskStatus(ctx context.Context, taskID string, status domain.TaskStatus, at time.Time) error {
	c.mu.Lock()
	c.taskWrites = append(c.taskWrites, taskID)
	fail := c.failTaskIDs[taskID]
	c.mu.Unlock()
	if fail {
		return errors.New("write failed")
	}
	return c.Store.UpdateTaskStatus(ctx, taskID, status, at)
}

type fixture struct {
	store    *countingStore
	notifier *recordingNotifier
	clock    *fakeClock
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := &countingStore{Store: memory.NewStore(), failTaskIDs: map[string]bool{}}
	store.PutBrief(domain.Brief{ID: "brief-1", OrgID: "org-1", CreatedBy: "owner", Name: "Login revamp", Description: "Rebuild auth"})
	store.PutBrief(domain.Brief{ID: "brief-personal", CreatedBy: "solo", Name: "Side project"})
	store.PutTask(domain.Task{ID: "t1", BriefID: "brief-1", Role: domain.RoleDev, Title: "Build login API", Status: domain.TaskStatusTodo})
	store.PutTask(domain.Task{ID: "t2", BriefID: "brief-1", Role: domain.RoleDesigner, Title: "Design login screen", Status: domain.TaskStatusInProgress})
	store.PutUser(domain.User{ID: "user-1", OrgID: "org-1", Email: "ada@example.com", Name: "Ada"})
	return &fixture{
		store:    store,
		notifier: &recordingNotifier{},
		clock:    &fakeClock{now: time.Date(2025, time.May, 5, 9, 0, 0, 0, time.UTC)},
	}
}

func (f *fixture) options(t *testing.T) []domain.Option {
	return []domain.Option{
		domain.WithClock(f.clock.Now),
		domain.WithLogger(log.New(testWriter{t}, "", 0)),
	}
}

func (f *fixture) sessions(t *testing.T, agents domain.Agents) *domain.SessionService {
	return domain.NewSessionService(f.store, agents, f.notifier, f.options(t)...)
}

func (f *fixture) submissions(t *testing.T, agents domain.Agents) *domain.SubmissionService {
	return domain.NewSubmissionService(f.store, agents, f.notifier, f.options(t)...)
}

var member = domain.Caller{UserID: "user-1", OrgID: "org-1", Name: "Ada"}

type testWriter struct {
	t *testing.T
}

func (tw testWriter) Write(p []byte) (int, error) {
	tw.t.Log(string(p))
	return len(p), nil
}
