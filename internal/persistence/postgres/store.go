// Package postgres provides Postgres-backed persistence for briefs, sessions
// and submissions.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rain-droid/orgIO/internal/domain"
)

// Store implements domain.Store on a pgx pool.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore constructs a Store.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// GetBrief implements domain.BriefRepository.
func (s *Store) GetBrief(ctx context.Context, briefID string) (*domain.Brief, error) {
	const query = `SELECT id, COALESCE(org_id, ''), created_by, name, description FROM briefs WHERE id=$1`

	var brief domain.Brief
	err := s.pool.QueryRow(ctx, query, briefID).Scan(&brief.ID, &brief.OrgID, &brief.CreatedBy, &brief.Name, &brief.Description)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &brief, nil
}

// ListTasks implements domain.BriefRepository.
func (s *Store) ListTasks(ctx context.Context, briefID string) ([]domain.Task, error) {
	const query = `SELECT id, brief_id, role, title, description, status, created_at, updated_at
        FROM tasks WHERE brief_id=$1 ORDER BY position`

	rows, err := s.pool.Query(ctx, query, briefID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tasks := make([]domain.Task, 0)
	for rows.Next() {
		var task domain.Task
		if err := rows.Scan(&task.ID, &task.BriefID, &task.Role, &task.Title, &task.Description, &task.Status, &task.CreatedAt, &task.UpdatedAt); err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}
	return tasks, rows.Err()
}

// CreateTask implements domain.BriefRepository.
func (s *Store) CreateTask(ctx context.Context, task domain.Task) error {
	if task.Status == "" {
		task.Status = domain.TaskStatusTodo
	}
	const stmt = `INSERT INTO tasks (id, brief_id, role, title, description, status, created_at, updated_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`

	_, err := s.pool.Exec(ctx, stmt,
		task.ID,
		task.BriefID,
		task.Role,
		task.Title,
		task.Description,
		task.Status,
		task.CreatedAt,
		task.UpdatedAt,
	)
	return err
}

// UpdateTaskStatus implements domain.BriefRepository.
func (s *Store) UpdateTaskStatus(ctx context.Context, taskID string, status domain.TaskStatus, at time.Time) error {
	tag, err := s.pool.Exec(ctx, `UPDATE tasks SET status=$2, updated_at=$3 WHERE id=$1`, taskID, status, at)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrTaskNotFound
	}
	return nil
}

// GetUser implements domain.UserRepository.
func (s *Store) GetUser(ctx context.Context, userID string) (*domain.User, error) {
	const query = `SELECT id, COALESCE(org_id, ''), email, name FROM users WHERE id=$1`

	var user domain.User
	if err := s.pool.QueryRow(ctx, query, userID).Scan(&user.ID, &user.OrgID, &user.Email, &user.Name); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

const sessionColumns = `id, user_id, COALESCE(org_id, ''), brief_id, role, status, started_at, ended_at, duration_minutes`

func scanSession(row pgx.Row) (*domain.Session, error) {
	var session domain.Session
	if err := row.Scan(
		&session.ID,
		&session.UserID,
		&session.OrgID,
		&session.BriefID,
		&session.Role,
		&session.Status,
		&session.StartedAt,
		&session.EndedAt,
		&session.DurationMinutes,
	); err != nil {
		return nil, err
	}
	return &session, nil
}

// CreateSession implements domain.SessionRepository.
func (s *Store) CreateSession(ctx context.Context, session domain.Session) error {
	const stmt = `INSERT INTO work_sessions (id, user_id, org_id, brief_id, role, status, started_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7)`

	_, err := s.pool.Exec(ctx, stmt,
		session.ID,
		session.UserID,
		nullIfEmpty(session.OrgID),
		session.BriefID,
		session.Role,
		session.Status,
		session.StartedAt,
	)
	return err
}

// GetSession implements domain.SessionRepository.
func (s *Store) GetSession(ctx context.Context, sessionID string) (*domain.Session, error) {
	session, err := scanSession(s.pool.QueryRow(ctx, `SELECT `+sessionColumns+` FROM work_sessions WHERE id=$1`, sessionID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return session, err
}

// CompleteSession implements domain.SessionRepository with a conditional
// update, so only one concurrent caller observes the active row.
func (s *Store) CompleteSession(ctx context.Context, sessionID string, endedAt time.Time, durationMinutes int) (*domain.Session, error) {
	const stmt = `UPDATE work_sessions SET status='completed', ended_at=$2, duration_minutes=$3
        WHERE id=$1 AND status='active'
        RETURNING ` + sessionColumns

	session, err := scanSession(s.pool.QueryRow(ctx, stmt, sessionID, endedAt, durationMinutes))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrSessionNotActive
	}
	return session, err
}

const submissionColumns = `s.id, s.brief_id, COALESCE(s.session_id, ''), s.user_id, s.user_name, s.role, s.summary_lines,
        s.duration_minutes, s.matched_tasks, s.status, s.analysis, s.created_at, s.updated_at`

func scanSubmission(row pgx.Row) (*domain.Submission, error) {
	var sub domain.Submission
	if err := row.Scan(
		&sub.ID,
		&sub.BriefID,
		&sub.SessionID,
		&sub.UserID,
		&sub.UserName,
		&sub.Role,
		&sub.SummaryLines,
		&sub.DurationMinutes,
		&sub.MatchedTasks,
		&sub.Status,
		&sub.Analysis,
		&sub.CreatedAt,
		&sub.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if sub.MatchedTasks == nil {
		sub.MatchedTasks = []string{}
	}
	return &sub, nil
}

// CreateSubmission implements domain.SubmissionRepository.
func (s *Store) CreateSubmission(ctx context.Context, submission domain.Submission) error {
	const stmt = `INSERT INTO submissions (id, brief_id, session_id, user_id, user_name, role, summary_lines,
        duration_minutes, matched_tasks, status, analysis, created_at, updated_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)`

	_, err := s.pool.Exec(ctx, stmt,
		submission.ID,
		submission.BriefID,
		nullIfEmpty(submission.SessionID),
		submission.UserID,
		submission.UserName,
		submission.Role,
		nonNil(submission.SummaryLines),
		submission.DurationMinutes,
		nonNil(submission.MatchedTasks),
		submission.Status,
		submission.Analysis,
		submission.CreatedAt,
		submission.UpdatedAt,
	)
	return err
}

// SaveActivities implements domain.SubmissionRepository using COPY.
func (s *Store) SaveActivities(ctx context.Context, submissionID string, activities []domain.Activity) error {
	if len(activities) == 0 {
		return nil
	}
	rows := make([][]any, 0, len(activities))
	for _, act := range activities {
		var occurred any
		if !act.Timestamp.IsZero() {
			occurred = act.Timestamp
		}
		rows = append(rows, []any{submissionID, act.App, act.Title, act.Summary, int64(act.Duration / time.Second), occurred})
	}

	_, err := s.pool.CopyFrom(ctx,
		pgx.Identifier{"submission_activities"},
		[]string{"submission_id", "app", "title", "summary", "duration_seconds", "occurred_at"},
		pgx.CopyFromRows(rows),
	)
	return err
}

// GetSubmission implements domain.SubmissionRepository.
func (s *Store) GetSubmission(ctx context.Context, submissionID string) (*domain.Submission, error) {
	sub, err := scanSubmission(s.pool.QueryRow(ctx, `SELECT `+submissionColumns+` FROM submissions s WHERE s.id=$1`, submissionID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return sub, err
}

// GetSubmissionBySession implements domain.SubmissionRepository.
func (s *Store) GetSubmissionBySession(ctx context.Context, sessionID string) (*domain.Submission, error) {
	if sessionID == "" {
		return nil, nil
	}
	sub, err := scanSubmission(s.pool.QueryRow(ctx, `SELECT `+submissionColumns+` FROM submissions s WHERE s.session_id=$1`, sessionID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return sub, err
}

// ListSubmissions implements domain.SubmissionRepository.
func (s *Store) ListSubmissions(ctx context.Context, filter domain.SubmissionFilter) ([]domain.Submission, error) {
	var (
		clauses []string
		args    []any
	)
	arg := func(value any) string {
		args = append(args, value)
		return fmt.Sprintf("$%d", len(args))
	}

	switch {
	case filter.OrgID != "":
		clauses = append(clauses, "b.org_id = "+arg(filter.OrgID))
	case filter.OwnerID != "":
		clauses = append(clauses, "b.org_id IS NULL", "b.created_by = "+arg(filter.OwnerID))
	default:
		return []domain.Submission{}, nil
	}
	if filter.BriefID != "" {
		clauses = append(clauses, "s.brief_id = "+arg(filter.BriefID))
	}
	if filter.UserID != "" {
		clauses = append(clauses, "s.user_id = "+arg(filter.UserID))
	}
	if filter.Status != "" {
		clauses = append(clauses, "s.status = "+arg(filter.Status))
	}

	query := `SELECT ` + submissionColumns + ` FROM submissions s JOIN briefs b ON b.id = s.brief_id
        WHERE ` + strings.Join(clauses, " AND ") + `
        ORDER BY s.created_at DESC, s.id DESC`
	if filter.Limit > 0 {
		query += " LIMIT " + arg(filter.Limit)
	}
	if filter.Offset > 0 {
		query += " OFFSET " + arg(filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	results := make([]domain.Submission, 0)
	for rows.Next() {
		sub, err := scanSubmission(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, *sub)
	}
	return results, rows.Err()
}

// ListActivities implements domain.SubmissionRepository.
func (s *Store) ListActivities(ctx context.Context, submissionID string) ([]domain.Activity, error) {
	const query = `SELECT app, title, summary, duration_seconds, occurred_at
        FROM submission_activities WHERE submission_id=$1 ORDER BY id`

	rows, err := s.pool.Query(ctx, query, submissionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	activities := make([]domain.Activity, 0)
	for rows.Next() {
		var (
			act      domain.Activity
			seconds  int64
			occurred *time.Time
		)
		if err := rows.Scan(&act.App, &act.Title, &act.Summary, &seconds, &occurred); err != nil {
			return nil, err
		}
		act.Duration = time.Duration(seconds) * time.Second
		if occurred != nil {
			act.Timestamp = *occurred
		}
		activities = append(activities, act)
	}
	return activities, rows.Err()
}

// UpdateReview implements domain.SubmissionRepository. A nil matchedTasks
// keeps the stored list.
func (s *Store) UpdateReview(ctx context.Context, submissionID string, status domain.SubmissionStatus, matchedTasks []string, at time.Time) (*domain.Submission, error) {
	const stmt = `UPDATE submissions s SET status=$2, matched_tasks=COALESCE($3, s.matched_tasks), updated_at=$4
        WHERE s.id=$1
        RETURNING ` + submissionColumns

	var matched any
	if matchedTasks != nil {
		matched = matchedTasks
	}
	sub, err := scanSubmission(s.pool.QueryRow(ctx, stmt, submissionID, status, matched, at))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return sub, err
}

// AttachAnalysis implements domain.SubmissionRepository.
func (s *Store) AttachAnalysis(ctx context.Context, submissionID, analysis string, status domain.SubmissionStatus, at time.Time) error {
	tag, err := s.pool.Exec(ctx, `UPDATE submissions SET analysis=$2, status=$3, updated_at=$4 WHERE id=$1`,
		submissionID, analysis, status, at)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrSubmissionNotFound
	}
	return nil
}

// Ping reports whether the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func nullIfEmpty(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
