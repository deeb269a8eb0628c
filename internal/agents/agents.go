// Package agents wraps language-model prompts for summarizing, matching and
// analysing work sessions. Every agent degrades to a deterministic answer
// when the model is unavailable or its output cannot be used.
package agents

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/rain-droid/orgIO/internal/domain"
)

// Option configures optional behaviour for the agents.
type Option func(*settings)

type settings struct {
	logger *log.Logger
	model  string
}

// WithLogger overrides the logger used to report fallbacks.
func WithLogger(logger *log.Logger) Option {
	return func(s *settings) {
		s.logger = logger
	}
}

// WithModel selects the model name sent to the provider.
func WithModel(model string) Option {
	return func(s *settings) {
		if model != "" {
			s.model = model
		}
	}
}

func newSettings(prefix, model string, opts []Option) settings {
	s := settings{
		logger: log.New(log.Writer(), prefix, log.LstdFlags|log.Lshortfile),
		model:  model,
	}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

const snippetPromptLimit = 200

func formatActivities(activities []domain.Activity) string {
	if len(activities) == 0 {
		return "(no activities recorded)"
	}
	var b strings.Builder
	for i, act := range activities {
		app := act.App
		if app == "" {
			app = "Unknown"
		}
		fmt.Fprintf(&b, "%d. %s - %s (%dm)", i+1, app, act.Title, int(act.Duration/time.Minute))
		if act.Summary != "" {
			fmt.Fprintf(&b, ": %s", act.Summary)
		}
		b.WriteByte('\n')
	}
	return strings.TrimRight(b.String(), "\n")
}

func formatLines(lines []string) string {
	if len(lines) == 0 {
		return "(none)"
	}
	var b strings.Builder
	for _, line := range lines {
		b.WriteString("- ")
		b.WriteString(line)
		b.WriteByte('\n')
	}
	return strings.TrimRight(b.String(), "\n")
}

func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
