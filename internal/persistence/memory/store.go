// Package memory provides an in-process Store for local development and tests.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rain-droid/orgIO/internal/domain"
)

// Store keeps every table in maps guarded by one lock.
type Store struct {
	mu          sync.RWMutex
	briefs      map[string]domain.Brief
	tasks       map[string]domain.Task
	taskOrder   []string
	users       map[string]domain.User
	sessions    map[string]domain.Session
	submissions map[string]domain.Submission
	activities  map[string][]domain.Activity
}

// NewStore constructs an empty Store.
func NewStore() *Store {
	return &Store{
		briefs:      make(map[string]domain.Brief),
		tasks:       make(map[string]domain.Task),
		users:       make(map[string]domain.User),
		sessions:    make(map[string]domain.Session),
		submissions: make(map[string]domain.Submission),
		activities:  make(map[string][]domain.Activity),
	}
}

// PutBrief inserts or replaces a brief.
func (s *Store) PutBrief(brief domain.Brief) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.briefs[brief.ID] = brief
}

// PutUser inserts or replaces a user profile.
func (s *Store) PutUser(user domain.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[user.ID] = user
}

// PutTask inserts or replaces a task.
func (s *Store) PutTask(task domain.Task) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.putTaskLocked(task)
}

func (s *Store) putTaskLocked(task domain.Task) {
	if task.Status == "" {
		task.Status = domain.TaskStatusTodo
	}
	if _, ok := s.tasks[task.ID]; !ok {
		s.taskOrder = append(s.taskOrder, task.ID)
	}
	s.tasks[task.ID] = task
}

// Task returns a copy of a stored task.
func (s *Store) Task(taskID string) (domain.Task, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	task, ok := s.tasks[taskID]
	return task, ok
}

// GetBrief implements domain.BriefRepository.
func (s *Store) GetBrief(ctx context.Context, briefID string) (*domain.Brief, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	brief, ok := s.briefs[briefID]
	if !ok {
		return nil, nil
	}
	return &brief, nil
}

// ListTasks implements domain.BriefRepository.
func (s *Store) ListTasks(ctx context.Context, briefID string) ([]domain.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Task, 0)
	for _, id := range s.taskOrder {
		if task := s.tasks[id]; task.BriefID == briefID {
			out = append(out, task)
		}
	}
	return out, nil
}

// CreateTask implements domain.BriefRepository.
func (s *Store) CreateTask(ctx context.Context, task domain.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.putTaskLocked(task)
	return nil
}

// UpdateTaskStatus implements domain.BriefRepository.
func (s *Store) UpdateTaskStatus(ctx context.Context, taskID string, status domain.TaskStatus, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	task, ok := s.tasks[taskID]
	if !ok {
		return domain.ErrTaskNotFound
	}
	task.Status = status
	task.UpdatedAt = at
	s.tasks[taskID] = task
	return nil
}

// GetUser implements domain.UserRepository.
func (s *Store) GetUser(ctx context.Context, userID string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	user, ok := s.users[userID]
	if !ok {
		return nil, nil
	}
	return &user, nil
}

// CreateSession implements domain.SessionRepository.
func (s *Store) CreateSession(ctx context.Context, session domain.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.ID] = session
	return nil
}

// GetSession implements domain.SessionRepository.
func (s *Store) GetSession(ctx context.Context, sessionID string) (*domain.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[sessionID]
	if !ok {
		return nil, nil
	}
	return &session, nil
}

// CompleteSession implements domain.SessionRepository. The status check and
// the write happen under one lock.
func (s *Store) CompleteSession(ctx context.Context, sessionID string, endedAt time.Time, durationMinutes int) (*domain.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[sessionID]
	if !ok || session.Status != domain.SessionStatusActive {
		return nil, domain.ErrSessionNotActive
	}
	session.Status = domain.SessionStatusCompleted
	session.EndedAt = &endedAt
	session.DurationMinutes = &durationMinutes
	s.sessions[sessionID] = session
	return &session, nil
}

// CreateSubmission implements domain.SubmissionRepository.
func (s *Store) CreateSubmission(ctx context.Context, submission domain.Submission) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	submission.Activities = nil
	submission.SummaryLines = append([]string(nil), submission.SummaryLines...)
	submission.MatchedTasks = append([]string{}, submission.MatchedTasks...)
	s.submissions[submission.ID] = submission
	return nil
}

// SaveActivities implements domain.SubmissionRepository.
func (s *Store) SaveActivities(ctx context.Context, submissionID string, activities []domain.Activity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.activities[submissionID] = append(s.activities[submissionID], activities...)
	return nil
}

// GetSubmission implements domain.SubmissionRepository.
func (s *Store) GetSubmission(ctx context.Context, submissionID string) (*domain.Submission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	submission, ok := s.submissions[submissionID]
	if !ok {
		return nil, nil
	}
	return &submission, nil
}

// GetSubmissionBySession implements domain.SubmissionRepository.
func (s *Store) GetSubmissionBySession(ctx context.Context, sessionID string) (*domain.Submission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, submission := range s.submissions {
		if sessionID != "" && submission.SessionID == sessionID {
			found := submission
			return &found, nil
		}
	}
	return nil, nil
}

// ListSubmissions implements domain.SubmissionRepository.
func (s *Store) ListSubmissions(ctx context.Context, filter domain.SubmissionFilter) ([]domain.Submission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matches := make([]domain.Submission, 0)
	for _, submission := range s.submissions {
		brief, ok := s.briefs[submission.BriefID]
		if !ok {
			continue
		}
		switch {
		case filter.OrgID != "":
			if brief.OrgID != filter.OrgID {
				continue
			}
		case filter.OwnerID != "":
			if brief.OrgID != "" || brief.CreatedBy != filter.OwnerID {
				continue
			}
		default:
			continue
		}
		if filter.BriefID != "" && submission.BriefID != filter.BriefID {
			continue
		}
		if filter.UserID != "" && submission.UserID != filter.UserID {
			continue
		}
		if filter.Status != "" && submission.Status != filter.Status {
			continue
		}
		matches = append(matches, submission)
	}

	sort.Slice(matches, func(i, j int) bool {
		if !matches[i].CreatedAt.Equal(matches[j].CreatedAt) {
			return matches[i].CreatedAt.After(matches[j].CreatedAt)
		}
		return strings.Compare(matches[i].ID, matches[j].ID) > 0
	})

	if filter.Offset >= len(matches) {
		return []domain.Submission{}, nil
	}
	matches = matches[filter.Offset:]
	if filter.Limit > 0 && filter.Limit < len(matches) {
		matches = matches[:filter.Limit]
	}
	return matches, nil
}

// ListActivities implements domain.SubmissionRepository.
func (s *Store) ListActivities(ctx context.Context, submissionID string) ([]domain.Activity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.Activity{}, s.activities[submissionID]...), nil
}

// UpdateReview implements domain.SubmissionRepository.
func (s *Store) UpdateReview(ctx context.Context, submissionID string, status domain.SubmissionStatus, matchedTasks []string, at time.Time) (*domain.Submission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	submission, ok := s.submissions[submissionID]
	if !ok {
		return nil, nil
	}
	submission.Status = status
	if matchedTasks != nil {
		submission.MatchedTasks = append([]string{}, matchedTasks...)
	}
	submission.UpdatedAt = at
	s.submissions[submissionID] = submission
	return &submission, nil
}

// AttachAnalysis implements domain.SubmissionRepository.
func (s *Store) AttachAnalysis(ctx context.Context, submissionID, analysis string, status domain.SubmissionStatus, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	submission, ok := s.submissions[submissionID]
	if !ok {
		return domain.ErrSubmissionNotFound
	}
	submission.Analysis = analysis
	submission.Status = status
	submission.UpdatedAt = at
	s.submissions[submissionID] = submission
	return nil
}
