package agents

import (
	"context"
	"fmt"
	"strings"

	"github.com/rain-droid/orgIO/internal/domain"
	"github.com/rain-droid/orgIO/internal/llm"
	"github.com/rain-droid/orgIO/internal/observability"
)

const (
	summarizerMaxLines      = 5
	summarizerFallbackApps  = 5
	accomplishmentsFallback = 3
)

// Summarizer produces bullet-point summaries of a session's activity.
type Summarizer struct {
	client llm.Client
	settings
}

// NewSummarizer constructs a Summarizer.
func NewSummarizer(client llm.Client, opts ...Option) *Summarizer {
	return &Summarizer{client: client, settings: newSettings("[summarizer] ", "gpt-4o-mini", opts)}
}

type summaryPayload struct {
	Summary               []string `json:"summary"`
	KeyAccomplishments    []string `json:"key_accomplishments"`
	SuggestedTaskKeywords []string `json:"suggested_task_keywords"`
}

// Summarize implements domain.Summarizer. It never returns an error: any
// model failure yields the per-application aggregation with Fallback set.
func (s *Summarizer) Summarize(ctx context.Context, input domain.SummaryInput) (domain.SummaryResult, error) {
	if len(input.Activities) == 0 {
		return domain.SummaryResult{
			Summary:            []string{"No activities recorded"},
			KeyAccomplishments: []string{},
			SuggestedKeywords:  []string{},
			Fallback:           true,
		}, nil
	}

	raw, err := s.client.Complete(ctx, llm.Request{
		Model:       s.model,
		System:      summarizerSystem(input.Role),
		Prompt:      summarizerPrompt(input),
		MaxTokens:   600,
		Temperature: 0.4,
		JSON:        true,
	})
	if err != nil {
		s.logger.Printf("summarizer falling back: %v", err)
		observability.RecordLLMCall("summarizer", "fallback")
		return fallbackSummary(input.Activities), nil
	}

	var payload summaryPayload
	if err := llm.ExtractJSON(raw, &payload); err != nil {
		s.logger.Printf("summarizer falling back: %v", err)
		observability.RecordLLMCall("summarizer", "fallback")
		return fallbackSummary(input.Activities), nil
	}

	summary := nonEmpty(payload.Summary)
	if len(summary) == 0 {
		observability.RecordLLMCall("summarizer", "fallback")
		result := fallbackSummary(input.Activities)
		if accomplishments := nonEmpty(payload.KeyAccomplishments); len(accomplishments) > 0 {
			result.KeyAccomplishments = capLines(accomplishments, accomplishmentsFallback)
		}
		return result, nil
	}

	accomplishments := nonEmpty(payload.KeyAccomplishments)
	if len(accomplishments) == 0 {
		accomplishments = summary
	}
	keywords := nonEmpty(payload.SuggestedTaskKeywords)
	observability.RecordLLMCall("summarizer", "ok")
	return domain.SummaryResult{
		Summary:            capLines(summary, summarizerMaxLines),
		KeyAccomplishments: capLines(accomplishments, accomplishmentsFallback),
		SuggestedKeywords:  keywords,
	}, nil
}

func fallbackSummary(activities []domain.Activity) domain.SummaryResult {
	lines := domain.MaterialSummaryLines(activities, summarizerFallbackApps)
	if len(lines) == 0 {
		lines = []string{"Completed work session"}
	}
	accomplishments := make([]string, 0, accomplishmentsFallback)
	for _, act := range activities {
		if len(accomplishments) == accomplishmentsFallback {
			break
		}
		accomplishments = append(accomplishments, fmt.Sprintf("Worked in %s", act.App))
	}
	return domain.SummaryResult{
		Summary:            lines,
		KeyAccomplishments: accomplishments,
		SuggestedKeywords:  []string{},
		Fallback:           true,
	}
}

func summarizerSystem(role domain.Role) string {
	focus := map[domain.Role]string{
		domain.RolePM:       "product decisions, requirements, stakeholder communication and planning",
		domain.RoleDev:      "code changes, debugging, reviews and infrastructure work",
		domain.RoleDesigner: "design iterations, prototypes, research and handoff",
	}[role]
	if focus == "" {
		focus = "concrete work output"
	}
	return "You summarize desktop work sessions for a " + strings.ToUpper(string(role)) +
		" team member. Focus on " + focus + ". Answer with JSON only."
}

func summarizerPrompt(input domain.SummaryInput) string {
	brief := input.BriefContext
	if brief == "" {
		brief = "General work session"
	}
	return fmt.Sprintf(`Project context: %s

Activities (app - window title (minutes): notes):
%s

Return a JSON object with:
- "summary": 3 to 5 short bullet strings describing what was accomplished
- "key_accomplishments": at most 3 strings
- "suggested_task_keywords": keywords that could identify related tasks`, brief, formatActivities(input.Activities))
}

func nonEmpty(lines []string) []string {
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func capLines(lines []string, n int) []string {
	if len(lines) > n {
		return lines[:n]
	}
	return lines
}
