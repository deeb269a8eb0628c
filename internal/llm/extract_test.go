package llm

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type matchPayload struct {
	MatchedTaskIDs []string `json:"matched_task_ids"`
}

func TestExtractJSON(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		want []string
	}{
		{"direct", `{"matched_task_ids":["t1"]}`, []string{"t1"}},
		{"json fence", "Here you go:\n```json\n{\"matched_task_ids\":[\"t2\"]}\n```\nDone.", []string{"t2"}},
		{"untagged fence", "```\n{\"matched_task_ids\":[\"t3\"]}\n```", []string{"t3"}},
		{"prefers json tag", "```text\nnot json\n```\n```json\n{\"matched_task_ids\":[\"t4\"]}\n```", []string{"t4"}},
		{"inline fence", "```{\"matched_task_ids\":[\"t5\"]}```", []string{"t5"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var out matchPayload
			require.NoError(t, ExtractJSON(tc.raw, &out))
			require.Equal(t, tc.want, out.MatchedTaskIDs)
		})
	}
}

func TestExtractJSONFailures(t *testing.T) {
	for _, raw := range []string{"", "I could not decide.", "```json\n{broken\n```", "```json\n{\"a\":1}"} {
		var out matchPayload
		require.ErrorIs(t, ExtractJSON(raw, &out), ErrNoStructuredOutput, raw)
	}
}
