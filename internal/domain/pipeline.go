package domain

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// contentInput is the evidence for building a submission's content.
type contentInput struct {
	Brief      *Brief
	Tasks      []Task
	Role       Role
	Activities []Activity
	Snippets   []Snippet
	// Fallback is the deterministic summary, used as the answer whenever the
	// summarizer fails and as matching evidence.
	Fallback []string
}

type content struct {
	SummaryLines []string
	MatchedTasks []string
}

// buildContent runs the summarizer and the matcher concurrently. Neither can
// fail the caller: summarizer problems keep the fallback lines and matcher
// problems leave the matched set empty.
func (b *base) buildContent(ctx context.Context, in contentInput) content {
	tasks := in.Tasks
	out := content{SummaryLines: in.Fallback, MatchedTasks: []string{}}
	var g errgroup.Group

	if b.agents.Summarizer != nil && len(in.Activities) > 0 {
		g.Go(func() error {
			result, err := b.agents.Summarizer.Summarize(ctx, SummaryInput{
				Role:         in.Role,
				BriefContext: briefContext(in.Brief),
				Activities:   in.Activities,
			})
			if err != nil {
				b.logger.Printf("summarizer failed for brief %s: %v", in.Brief.ID, err)
				return nil
			}
			if !result.Fallback && len(result.Summary) > 0 {
				out.SummaryLines = result.Summary
			}
			return nil
		})
	}

	if b.agents.Matcher != nil && len(tasks) > 0 {
		g.Go(func() error {
			matched, err := b.agents.Matcher.MatchTasks(ctx, MatchInput{
				Tasks:        tasks,
				SummaryLines: in.Fallback,
				Activities:   in.Activities,
				Snippets:     in.Snippets,
			})
			if err != nil {
				b.logger.Printf("task matcher failed for brief %s: %v", in.Brief.ID, err)
				return nil
			}
			out.MatchedTasks = FilterTaskIDs(matched, tasks)
			return nil
		})
	}

	_ = g.Wait()
	return out
}
