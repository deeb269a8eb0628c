package agents

import (
	"context"
	"fmt"
	"strings"

	"github.com/rain-droid/orgIO/internal/domain"
	"github.com/rain-droid/orgIO/internal/llm"
	"github.com/rain-droid/orgIO/internal/observability"
)

const keywordMatchLimit = 3

// Matcher selects the tasks a submission worked on.
type Matcher struct {
	client llm.Client
	settings
}

// NewMatcher constructs a Matcher.
func NewMatcher(client llm.Client, opts ...Option) *Matcher {
	return &Matcher{client: client, settings: newSettings("[matcher] ", "gpt-4o-mini", opts)}
}

type matchPayload struct {
	MatchedTaskIDs []string `json:"matched_task_ids"`
	Reasoning      string   `json:"reasoning,omitempty"`
}

// MatchTasks implements domain.TaskMatcher. The returned ids are always a
// subset of input.Tasks, whether they came from the model or the keyword
// heuristic.
func (m *Matcher) MatchTasks(ctx context.Context, input domain.MatchInput) ([]string, error) {
	if len(input.Tasks) == 0 {
		return []string{}, nil
	}

	raw, err := m.client.Complete(ctx, llm.Request{
		Model:       m.model,
		System:      matcherSystem,
		Prompt:      matcherPrompt(input),
		MaxTokens:   400,
		Temperature: 0.1,
		JSON:        true,
	})
	if err != nil {
		m.logger.Printf("matcher falling back to keywords: %v", err)
		observability.RecordLLMCall("matcher", "fallback")
		return KeywordMatch(input), nil
	}

	var payload matchPayload
	if err := llm.ExtractJSON(raw, &payload); err != nil {
		m.logger.Printf("matcher falling back to keywords: %v", err)
		observability.RecordLLMCall("matcher", "fallback")
		return KeywordMatch(input), nil
	}
	observability.RecordLLMCall("matcher", "ok")
	return domain.FilterTaskIDs(payload.MatchedTaskIDs, input.Tasks), nil
}

// KeywordMatch is the deterministic matcher: a task matches when a title word
// longer than 3 characters or a description word longer than 4 characters
// occurs in the combined summary and activity text. At most three tasks match.
func KeywordMatch(input domain.MatchInput) []string {
	var corpus strings.Builder
	for _, line := range input.SummaryLines {
		corpus.WriteString(line)
		corpus.WriteByte(' ')
	}
	for _, act := range input.Activities {
		corpus.WriteString(act.App)
		corpus.WriteByte(' ')
		corpus.WriteString(act.Title)
		corpus.WriteByte(' ')
		corpus.WriteString(act.Summary)
		corpus.WriteByte(' ')
	}
	text := strings.ToLower(corpus.String())

	matched := make([]string, 0, keywordMatchLimit)
	for _, task := range input.Tasks {
		if len(matched) == keywordMatchLimit {
			break
		}
		if containsWord(text, task.Title, 3) || containsWord(text, task.Description, 4) {
			matched = append(matched, task.ID)
		}
	}
	return domain.FilterTaskIDs(matched, input.Tasks)
}

func containsWord(text, source string, minLen int) bool {
	for _, word := range strings.Fields(strings.ToLower(source)) {
		if len([]rune(word)) > minLen && strings.Contains(text, word) {
			return true
		}
	}
	return false
}

const matcherSystem = "You match completed work to project tasks. Be conservative: only return a task id when you are at least 70% confident the evidence shows work on it. Several tasks may match. Answer with JSON only."

func matcherPrompt(input domain.MatchInput) string {
	var tasks strings.Builder
	for _, task := range input.Tasks {
		fmt.Fprintf(&tasks, "- id: %s | title: %s", task.ID, task.Title)
		if task.Description != "" {
			fmt.Fprintf(&tasks, " | description: %s", task.Description)
		}
		tasks.WriteByte('\n')
	}

	var snippets strings.Builder
	for _, snippet := range input.Snippets {
		fmt.Fprintf(&snippets, "- [%s] %s\n", snippet.Context, truncateRunes(snippet.Text, snippetPromptLimit))
	}
	snippetText := strings.TrimRight(snippets.String(), "\n")
	if snippetText == "" {
		snippetText = "(none)"
	}

	return fmt.Sprintf(`Tasks:
%s
Work summary:
%s

Activities:
%s

Captured text snippets:
%s

Return {"matched_task_ids": [ids from the task list], "reasoning": "one sentence"}.`,
		tasks.String(), formatLines(input.SummaryLines), formatActivities(input.Activities), snippetText)
}
