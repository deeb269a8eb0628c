package domain

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"
)

// MaterialityThreshold is the aggregated time an application needs before it
// shows up in a deterministic summary.
const MaterialityThreshold = 15 * time.Minute

const fallbackSummaryLimit = 3

// AppUsage is the total time spent in one application.
type AppUsage struct {
	App      string
	Duration time.Duration
}

// AggregateByApp sums activity durations per application, longest first.
// Ties are ordered by application name so the result is deterministic.
func AggregateByApp(activities []Activity) []AppUsage {
	totals := make(map[string]time.Duration)
	for _, activity := range activities {
		app := strings.TrimSpace(activity.App)
		if app == "" {
			app = "Unknown"
		}
		if activity.Duration > 0 {
			totals[app] += activity.Duration
		} else if _, ok := totals[app]; !ok {
			totals[app] = 0
		}
	}

	usage := make([]AppUsage, 0, len(totals))
	for app, total := range totals {
		usage = append(usage, AppUsage{App: app, Duration: total})
	}
	sort.Slice(usage, func(i, j int) bool {
		if usage[i].Duration != usage[j].Duration {
			return usage[i].Duration > usage[j].Duration
		}
		return usage[i].App < usage[j].App
	})
	return usage
}

// MaterialSummaryLines renders up to limit "Worked in" lines for applications
// above the materiality threshold.
func MaterialSummaryLines(activities []Activity, limit int) []string {
	lines := make([]string, 0, limit)
	for _, usage := range AggregateByApp(activities) {
		if len(lines) == limit {
			break
		}
		if usage.Duration <= MaterialityThreshold {
			break
		}
		lines = append(lines, fmt.Sprintf("Worked in %s for %d minutes", usage.App, int(usage.Duration/time.Minute)))
	}
	return lines
}

// FallbackSummary is the summary used whenever the summarizer cannot answer.
// A caller-supplied summary is kept as the first line.
func FallbackSummary(activities []Activity, callerSummary string, durationMinutes int) []string {
	lines := MaterialSummaryLines(activities, fallbackSummaryLimit)
	if trimmed := strings.TrimSpace(callerSummary); trimmed != "" {
		lines = append([]string{trimmed}, lines...)
	}
	if len(lines) == 0 {
		lines = []string{fmt.Sprintf("Work session: %d minutes", durationMinutes)}
	}
	return lines
}

// SessionMinutes is the whole-minute length of a session, never below one.
func SessionMinutes(startedAt, endedAt time.Time) int {
	minutes := int(math.Round(endedAt.Sub(startedAt).Minutes()))
	if minutes < 1 {
		return 1
	}
	return minutes
}

// FilterTaskIDs keeps the ids that belong to tasks, dropping duplicates and
// preserving first-seen order.
func FilterTaskIDs(ids []string, tasks []Task) []string {
	valid := make(map[string]struct{}, len(tasks))
	for _, task := range tasks {
		valid[task.ID] = struct{}{}
	}
	out := make([]string, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if _, ok := valid[id]; !ok {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func canAccessBrief(brief *Brief, caller Caller, orgID string) bool {
	if brief.CreatedBy != "" && brief.CreatedBy == caller.UserID {
		return true
	}
	return brief.OrgID != "" && brief.OrgID == orgID
}
