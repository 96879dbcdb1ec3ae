package transcript

import (
	"encoding/json"
	"testing"
)

func TestFlatten(t *testing.T) {
	tests := []struct {
		name     string
		turns    []Turn
		expected string
	}{
		{
			name: "basic conversation",
			turns: []Turn{
				{Role: "agent", Content: "hi"},
				{Role: "user", Content: "hello"},
			},
			expected: "agent: hi\nuser: hello",
		},
		{
			name:     "empty transcript",
			turns:    nil,
			expected: "",
		},
		{
			name: "system turns dropped",
			turns: []Turn{
				{Role: "system", Content: "internal prompt"},
				{Role: "user", Content: "hello"},
			},
			expected: "user: hello",
		},
		{
			name: "empty content dropped",
			turns: []Turn{
				{Role: "agent", Content: ""},
				{Role: "user", Content: "still here"},
			},
			expected: "user: still here",
		},
		{
			name: "missing role becomes Unknown",
			turns: []Turn{
				{Role: "", Content: "who said this"},
			},
			expected: "Unknown: who said this",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Flatten(tt.turns); got != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, got)
			}
		})
	}
}

func TestParseTurns(t *testing.T) {
	raw := json.RawMessage(`[{"role":"agent","content":"hi"},{"role":"user","content":"hello"}]`)
	turns, err := ParseTurns(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(turns) != 2 {
		t.Fatalf("expected 2 turns, got %d", len(turns))
	}
	if turns[0].Role != "agent" || turns[0].Content != "hi" {
		t.Errorf("unexpected first turn: %+v", turns[0])
	}
}

func TestParseTurns_Invalid(t *testing.T) {
	if _, err := ParseTurns(json.RawMessage(`{"not":"an array"}`)); err == nil {
		t.Error("expected error for non-array input")
	}
}

func TestFromCallPayload(t *testing.T) {
	tests := []struct {
		name     string
		payload  map[string]any
		expected string
	}{
		{
			name:     "flat transcript string",
			payload:  map[string]any{"transcript": "agent: hi\nuser: hello"},
			expected: "agent: hi\nuser: hello",
		},
		{
			name: "transcript object array",
			payload: map[string]any{
				"transcript_object": []any{
					map[string]any{"role": "agent", "content": "hi"},
					map[string]any{"role": "user", "content": "hello"},
				},
			},
			expected: "agent: hi\nuser: hello",
		},
		{
			name: "string form wins over object form",
			payload: map[string]any{
				"transcript": "flat",
				"transcript_object": []any{
					map[string]any{"role": "agent", "content": "structured"},
				},
			},
			expected: "flat",
		},
		{
			name:     "no transcript",
			payload:  map[string]any{"call_id": "c1"},
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FromCallPayload(tt.payload); got != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, got)
			}
		})
	}
}

func TestFromTavusProperties(t *testing.T) {
	props := map[string]any{
		"transcript": []any{
			map[string]any{"role": "system", "content": "you are an interviewer"},
			map[string]any{"role": "assistant", "content": "describe your design"},
			map[string]any{"role": "user", "content": "I'd start with a load balancer"},
		},
	}
	expected := "assistant: describe your design\nuser: I'd start with a load balancer"
	if got := FromTavusProperties(props); got != expected {
		t.Errorf("expected %q, got %q", expected, got)
	}
}

func TestFromTavusProperties_Empty(t *testing.T) {
	if got := FromTavusProperties(map[string]any{"transcript": []any{}}); got != "" {
		t.Errorf("expected empty string for empty transcript array, got %q", got)
	}
	if got := FromTavusProperties(map[string]any{}); got != "" {
		t.Errorf("expected empty string for missing transcript, got %q", got)
	}
}
