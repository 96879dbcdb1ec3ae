package canvas

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
)

const reviewTemperature = 0.3

const reviewSystemPrompt = "You are an expert system design interviewer who reviews " +
	"architecture diagrams for web applications. You give constructive, specific " +
	"feedback and you respond with valid JSON only, parseable without modification."

// ElementsAPI is the slice of the canvas client the checker needs.
type ElementsAPI interface {
	GetElements(ctx context.Context) ([]Element, error)
	UpdateElement(ctx context.Context, id string, el Element) error
	CreateElement(ctx context.Context, el Element) error
}

// CompletionClient produces a single chat completion.
type CompletionClient interface {
	Complete(ctx context.Context, system, user string, temperature float64) (string, error)
}

// Checker fetches the current canvas, asks the model to critique it, and
// writes the model's annotations back onto the canvas.
type Checker struct {
	canvas ElementsAPI
	llm    CompletionClient
	logger *slog.Logger
}

func NewChecker(canvas ElementsAPI, llm CompletionClient, logger *slog.Logger) *Checker {
	return &Checker{canvas: canvas, llm: llm, logger: logger}
}

// review is the JSON contract the model responds with.
type review struct {
	Feedback         string    `json:"feedback"`
	ElementsToUpdate []Element `json:"elements_to_update"`
	ElementsToCreate []Element `json:"elements_to_create"`
}

// Check runs one review pass and returns the textual feedback. Individual
// element writes that fail are logged and skipped; the feedback still stands.
func (c *Checker) Check(ctx context.Context, conversationID string) (string, error) {
	logger := c.logger.With("conversation_id", conversationID)

	elements, err := c.canvas.GetElements(ctx)
	if err != nil {
		return "", fmt.Errorf("fetching canvas elements: %w", err)
	}
	logger.Info("canvas fetched", "elements", len(elements))

	rev, err := c.critique(ctx, elements)
	if err != nil {
		return "", err
	}

	c.applyUpdates(ctx, logger, elements, rev.ElementsToUpdate)
	c.createLabels(ctx, logger, rev.ElementsToCreate)

	return rev.Feedback, nil
}

func (c *Checker) critique(ctx context.Context, elements []Element) (*review, error) {
	encoded, err := json.MarshalIndent(elements, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding elements: %w", err)
	}

	raw, err := c.llm.Complete(ctx, reviewSystemPrompt, reviewPrompt(string(encoded)), reviewTemperature)
	if err != nil {
		return nil, fmt.Errorf("requesting diagram review: %w", err)
	}

	var rev review
	if err := json.Unmarshal([]byte(stripFences(raw)), &rev); err != nil {
		return nil, fmt.Errorf("parsing diagram review: %w", err)
	}
	return &rev, nil
}

// applyUpdates merges each patch shallowly over the element it targets and
// puts the result back. Patches for ids not on the canvas are skipped.
func (c *Checker) applyUpdates(ctx context.Context, logger *slog.Logger, elements []Element, patches []Element) {
	byID := make(map[string]Element, len(elements))
	for _, el := range elements {
		if id, ok := el["id"].(string); ok {
			byID[id] = el
		}
	}

	for _, patch := range patches {
		id, _ := patch["id"].(string)
		original, ok := byID[id]
		if !ok {
			logger.Warn("skipping patch for unknown element", "id", id)
			continue
		}

		merged := make(Element, len(original)+len(patch))
		for k, v := range original {
			merged[k] = v
		}
		for k, v := range patch {
			merged[k] = v
		}

		if err := c.canvas.UpdateElement(ctx, id, merged); err != nil {
			logger.Warn("element update failed", "id", id, "error", err)
			continue
		}
		logger.Info("element updated", "id", id)
	}
}

func (c *Checker) createLabels(ctx context.Context, logger *slog.Logger, labels []Element) {
	created := 0
	for _, el := range labels {
		if err := c.canvas.CreateElement(ctx, el); err != nil {
			logger.Warn("label creation failed", "type", el["type"], "error", err)
			continue
		}
		created++
	}
	if created > 0 {
		logger.Info("labels created", "count", created)
	}
}

func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.Trim(s, "`")
	if len(s) >= 4 && strings.EqualFold(s[:4], "json") {
		s = s[4:]
	}
	return strings.TrimSpace(s)
}
