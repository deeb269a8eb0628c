package agents

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rain-droid/orgIO/internal/domain"
	"github.com/rain-droid/orgIO/internal/llm"
	"github.com/rain-droid/orgIO/internal/observability"
)

// Analyst proposes task status changes and new tasks from a session.
type Analyst struct {
	client llm.Client
	settings
}

// NewAnalyst constructs an Analyst.
func NewAnalyst(client llm.Client, opts ...Option) *Analyst {
	return &Analyst{client: client, settings: newSettings("[analyst] ", "gpt-4o", opts)}
}

type analysisPayload struct {
	UpdatedTasks []struct {
		TaskID     string   `json:"taskId"`
		Status     string   `json:"status"`
		WasUpdated flexBool `json:"wasUpdated"`
		Reason     string   `json:"reason"`
	} `json:"updatedTasks"`
	NewTasks []struct {
		Title       string `json:"title"`
		Description string `json:"description"`
		Role        string `json:"role"`
	} `json:"newTasks"`
	Issues  []string `json:"issues"`
	Summary string   `json:"summary"`
}

// flexBool accepts true/false as booleans or strings.
type flexBool bool

func (b *flexBool) UnmarshalJSON(data []byte) error {
	var v bool
	if err := json.Unmarshal(data, &v); err == nil {
		*b = flexBool(v)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		*b = false
		return nil
	}
	*b = flexBool(strings.EqualFold(strings.TrimSpace(s), "true"))
	return nil
}

// Analyze implements domain.Analyst. It returns an error when the model is
// unavailable or its answer is not the expected JSON; the caller decides how
// to degrade. Entries are only shape-checked here.
func (a *Analyst) Analyze(ctx context.Context, input domain.AnalysisInput) (domain.AnalysisProposal, error) {
	raw, err := a.client.Complete(ctx, llm.Request{
		Model:       a.model,
		System:      analystSystem,
		Prompt:      analystPrompt(input),
		MaxTokens:   1500,
		Temperature: 0.2,
		JSON:        true,
	})
	if err != nil {
		observability.RecordLLMCall("analyst", "fallback")
		return domain.AnalysisProposal{}, fmt.Errorf("analysis completion: %w", err)
	}

	var payload analysisPayload
	if err := llm.ExtractJSON(raw, &payload); err != nil {
		observability.RecordLLMCall("analyst", "fallback")
		return domain.AnalysisProposal{}, fmt.Errorf("analysis output: %w", err)
	}
	observability.RecordLLMCall("analyst", "ok")

	proposal := domain.AnalysisProposal{
		Updates:  make([]domain.ProposedUpdate, 0, len(payload.UpdatedTasks)),
		NewTasks: make([]domain.ProposedTask, 0, len(payload.NewTasks)),
		Issues:   nonEmpty(payload.Issues),
		Summary:  strings.TrimSpace(payload.Summary),
	}
	for _, item := range payload.UpdatedTasks {
		if strings.TrimSpace(item.TaskID) == "" {
			continue
		}
		proposal.Updates = append(proposal.Updates, domain.ProposedUpdate{
			TaskID:     strings.TrimSpace(item.TaskID),
			Status:     domain.TaskStatus(strings.ToLower(strings.TrimSpace(item.Status))),
			WasUpdated: bool(item.WasUpdated),
			Reason:     item.Reason,
		})
	}
	for _, item := range payload.NewTasks {
		role, _ := domain.ParseRole(item.Role)
		proposal.NewTasks = append(proposal.NewTasks, domain.ProposedTask{
			Title:       item.Title,
			Description: item.Description,
			Role:        role,
		})
	}
	return proposal, nil
}

const analystSystem = "You reconcile a project's task board with what actually happened in a work session. Only reference task ids from the list you are given. Answer with JSON only."

func analystPrompt(input domain.AnalysisInput) string {
	var tasks strings.Builder
	for _, task := range input.Tasks {
		fmt.Fprintf(&tasks, "- taskId: %s | status: %s | role: %s | title: %s\n", task.ID, task.Status, task.Role, task.Title)
	}
	taskText := strings.TrimRight(tasks.String(), "\n")
	if taskText == "" {
		taskText = "(no tasks yet)"
	}

	return fmt.Sprintf(`Project: %s
%s

Session by a %s, %d minutes.

Summary:
%s

Notes:
%s

Activities:
%s

Current tasks:
%s

Return a JSON object:
{
  "updatedTasks": [{"taskId": "<id from the list>", "status": "done" | "in_progress", "wasUpdated": true, "reason": "..."}],
  "newTasks": [{"title": "...", "description": "...", "role": "pm" | "dev" | "designer"}],
  "issues": ["deviations or blockers"],
  "summary": "one paragraph"
}
Set wasUpdated to false for tasks whose status should stay as it is.`,
		input.Brief.Name, input.Brief.Description, strings.ToUpper(string(input.Role)), input.DurationMinutes,
		formatLines(input.SummaryLines), formatLines(input.Notes), formatActivities(input.Activities), taskText)
}
