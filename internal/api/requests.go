package api

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rain-droid/orgIO/internal/domain"
)

// Boundary limits on request collections.
const (
	MaxActivities   = 1000
	MaxSummaryLines = 20
	MaxSnippets     = 5
	MaxSnippetText  = 500
	MaxNotes        = 50
)

// ActivityPayload is one captured window of application usage. Duration is in
// seconds.
type ActivityPayload struct {
	App       string    `json:"app"`
	Title     string    `json:"title,omitempty"`
	Summary   string    `json:"summary,omitempty"`
	Duration  float64   `json:"duration"`
	Timestamp time.Time `json:"timestamp,omitzero"`
}

// SnippetPayload is captured text used as matching evidence.
type SnippetPayload struct {
	Context string `json:"context"`
	Text    string `json:"text"`
}

var snippetContexts = map[string]struct{}{
	"code":     {},
	"terminal": {},
	"browser":  {},
}

func validateActivities(activities []ActivityPayload) error {
	if len(activities) > MaxActivities {
		return fmt.Errorf("activities must not exceed %d entries", MaxActivities)
	}
	for i, activity := range activities {
		if activity.Duration < 0 {
			return fmt.Errorf("activities[%d].duration must be >= 0", i)
		}
	}
	return nil
}

func validateSnippets(snippets []SnippetPayload) error {
	if len(snippets) > MaxSnippets {
		return fmt.Errorf("snippets must not exceed %d entries", MaxSnippets)
	}
	for i, snippet := range snippets {
		if _, ok := snippetContexts[snippet.Context]; !ok {
			return fmt.Errorf("snippets[%d].context must be one of code, terminal, browser", i)
		}
		if len([]rune(snippet.Text)) > MaxSnippetText {
			return fmt.Errorf("snippets[%d].text must not exceed %d characters", i, MaxSnippetText)
		}
	}
	return nil
}

func validateRole(value string, required bool) error {
	if strings.TrimSpace(value) == "" {
		if required {
			return errors.New("role is required")
		}
		return nil
	}
	if _, ok := domain.ParseRole(value); !ok {
		return errors.New("role must be one of pm, dev, designer")
	}
	return nil
}

func toActivities(payloads []ActivityPayload) []domain.Activity {
	out := make([]domain.Activity, 0, len(payloads))
	for _, p := range payloads {
		out = append(out, domain.Activity{
			App:       p.App,
			Title:     p.Title,
			Summary:   p.Summary,
			Duration:  time.Duration(p.Duration * float64(time.Second)),
			Timestamp: p.Timestamp,
		})
	}
	return out
}

func toSnippets(payloads []SnippetPayload) []domain.Snippet {
	out := make([]domain.Snippet, 0, len(payloads))
	for _, p := range payloads {
		out = append(out, domain.Snippet{Context: p.Context, Text: p.Text})
	}
	return out
}

func toActivityPayloads(activities []domain.Activity) []ActivityPayload {
	out := make([]ActivityPayload, 0, len(activities))
	for _, a := range activities {
		out = append(out, ActivityPayload{
			App:       a.App,
			Title:     a.Title,
			Summary:   a.Summary,
			Duration:  a.Duration.Seconds(),
			Timestamp: a.Timestamp,
		})
	}
	return out
}

// StartSessionRequest is the payload for POST /v1/sessions.
type StartSessionRequest struct {
	BriefID string `json:"briefId"`
	Role    string `json:"role"`
}

// Validate ensures request correctness.
func (r StartSessionRequest) Validate() error {
	if strings.TrimSpace(r.BriefID) == "" {
		return errors.New("briefId is required")
	}
	return validateRole(r.Role, true)
}

// EndSessionRequest is the payload for POST /v1/sessions/{id}/end.
type EndSessionRequest struct {
	SessionID  string            `json:"sessionId,omitempty"`
	Activities []ActivityPayload `json:"activities"`
	Snippets   []SnippetPayload  `json:"snippets,omitempty"`
	Summary    string            `json:"summary,omitempty"`
}

// Validate ensures request correctness.
func (r EndSessionRequest) Validate() error {
	if err := validateActivities(r.Activities); err != nil {
		return err
	}
	return validateSnippets(r.Snippets)
}

// AnalyzeSessionRequest is the payload for POST /v1/sessions/analyze.
type AnalyzeSessionRequest struct {
	SessionID       string            `json:"sessionId,omitempty"`
	BriefID         string            `json:"briefId,omitempty"`
	Role            string            `json:"role,omitempty"`
	Activities      []ActivityPayload `json:"activities"`
	Notes           []string          `json:"notes"`
	SummaryLines    []string          `json:"summaryLines"`
	DurationMinutes int               `json:"durationMinutes"`
}

// Validate ensures request correctness.
func (r AnalyzeSessionRequest) Validate() error {
	if strings.TrimSpace(r.SessionID) == "" && strings.TrimSpace(r.BriefID) == "" {
		return errors.New("sessionId or briefId is required")
	}
	if err := validateRole(r.Role, false); err != nil {
		return err
	}
	if err := validateActivities(r.Activities); err != nil {
		return err
	}
	if len(r.Notes) > MaxNotes {
		return fmt.Errorf("notes must not exceed %d entries", MaxNotes)
	}
	if len(r.SummaryLines) > MaxSummaryLines {
		return fmt.Errorf("summaryLines must not exceed %d entries", MaxSummaryLines)
	}
	if r.DurationMinutes < 0 {
		return errors.New("durationMinutes must be >= 0")
	}
	return nil
}

// CreateSubmissionRequest is the payload for POST /v1/submissions.
type CreateSubmissionRequest struct {
	BriefID         string            `json:"briefId"`
	UserName        string            `json:"userName,omitempty"`
	Role            string            `json:"role"`
	Summary         []string          `json:"summary"`
	DurationMinutes int               `json:"durationMinutes"`
	Activities      []ActivityPayload `json:"activities"`
	Snippets        []SnippetPayload  `json:"snippets,omitempty"`
}

// Validate ensures request correctness.
func (r CreateSubmissionRequest) Validate() error {
	if strings.TrimSpace(r.BriefID) == "" {
		return errors.New("briefId is required")
	}
	if err := validateRole(r.Role, true); err != nil {
		return err
	}
	if len(r.Summary) > MaxSummaryLines {
		return fmt.Errorf("summary must not exceed %d entries", MaxSummaryLines)
	}
	if r.DurationMinutes < 0 {
		return errors.New("durationMinutes must be >= 0")
	}
	if err := validateActivities(r.Activities); err != nil {
		return err
	}
	return validateSnippets(r.Snippets)
}

// ReviewSubmissionRequest is the payload for PATCH /v1/submissions/{id}. A
// present matchedTasks array, even an empty one, replaces the stored set.
type ReviewSubmissionRequest struct {
	Status       string   `json:"status"`
	MatchedTasks []string `json:"matchedTasks,omitempty"`
}

// Validate ensures request correctness.
func (r ReviewSubmissionRequest) Validate() error {
	switch domain.SubmissionStatus(r.Status) {
	case domain.SubmissionStatusApproved, domain.SubmissionStatusRejected:
		return nil
	}
	return errors.New("status must be approved or rejected")
}
