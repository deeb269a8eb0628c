package llm

import (
	"encoding/json"
	"errors"
	"strings"
)

// ErrNoStructuredOutput is returned when model text holds no parseable JSON.
var ErrNoStructuredOutput = errors.New("no structured output in model response")

const fence = "```"

// ExtractJSON decodes model output into v. It tries the whole text first,
// then a fenced block tagged json, then the first fenced block of any kind.
func ExtractJSON(raw string, v any) error {
	text := strings.TrimSpace(raw)
	if text == "" {
		return ErrNoStructuredOutput
	}
	if json.Unmarshal([]byte(text), v) == nil {
		return nil
	}
	for _, candidate := range fencedBlocks(text) {
		if json.Unmarshal([]byte(candidate), v) == nil {
			return nil
		}
	}
	return ErrNoStructuredOutput
}

// fencedBlocks returns the first json-tagged block followed by the first
// block of any kind.
func fencedBlocks(text string) []string {
	var out []string
	if idx := strings.Index(text, fence+"json"); idx >= 0 {
		if block, ok := blockAfter(text[idx+len(fence)+len("json"):]); ok {
			out = append(out, block)
		}
	}
	if idx := strings.Index(text, fence); idx >= 0 {
		rest := text[idx+len(fence):]
		// Drop an info string such as "JSON" or "javascript" on the opening line.
		if nl := strings.IndexByte(rest, '\n'); nl >= 0 && !strings.ContainsAny(rest[:nl], "{[") {
			rest = rest[nl+1:]
		}
		if block, ok := blockAfter(rest); ok {
			out = append(out, block)
		}
	}
	return out
}

func blockAfter(rest string) (string, bool) {
	end := strings.Index(rest, fence)
	if end < 0 {
		return "", false
	}
	return strings.TrimSpace(rest[:end]), true
}
