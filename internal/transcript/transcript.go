// Package transcript normalizes the transcript shapes carried by provider
// webhooks into a flat ordered form suitable for grading prompts.
package transcript

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Turn is one utterance in a conversation.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Flatten renders turns as "role: content" lines. Empty and system turns are
// dropped.
func Flatten(turns []Turn) string {
	lines := make([]string, 0, len(turns))
	for _, t := range turns {
		if t.Content == "" || t.Role == "system" {
			continue
		}
		role := t.Role
		if role == "" {
			role = "Unknown"
		}
		lines = append(lines, role+": "+t.Content)
	}
	return strings.Join(lines, "\n")
}

// ParseTurns decodes an ordered JSON array of {role, content} objects.
func ParseTurns(raw json.RawMessage) ([]Turn, error) {
	var turns []Turn
	if err := json.Unmarshal(raw, &turns); err != nil {
		return nil, fmt.Errorf("parse turns: %w", err)
	}
	return turns, nil
}

// FromCallPayload extracts transcript text from a lifecycle webhook payload.
// Providers deliver either a pre-flattened "transcript" string or a
// "transcript_object" array of turns; the string form wins when both exist.
func FromCallPayload(payload map[string]any) string {
	if s, ok := payload["transcript"].(string); ok && s != "" {
		return s
	}
	obj, ok := payload["transcript_object"]
	if !ok {
		return ""
	}
	raw, err := json.Marshal(obj)
	if err != nil {
		return ""
	}
	turns, err := ParseTurns(raw)
	if err != nil {
		return ""
	}
	return Flatten(turns)
}

// FromTavusProperties extracts transcript text from a Tavus-style webhook's
// nested properties. Returns "" when no non-empty transcript array is present.
func FromTavusProperties(properties map[string]any) string {
	obj, ok := properties["transcript"]
	if !ok {
		return ""
	}
	switch v := obj.(type) {
	case string:
		return v
	case []any:
		raw, err := json.Marshal(v)
		if err != nil {
			return ""
		}
		turns, err := ParseTurns(raw)
		if err != nil {
			return ""
		}
		return Flatten(turns)
	default:
		return ""
	}
}
