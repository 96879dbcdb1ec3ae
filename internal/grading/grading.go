// Package grading scores interview transcripts against a rubric with a single
// LLM completion per trigger.
package grading

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

const gradingTemperature = 0.3

const graderSystemPrompt = "You are an expert technical interviewer. You evaluate candidates fairly and provide detailed, specific feedback. You return only valid JSON."

const graderPromptTemplate = `You are an expert technical interviewer. You are grading a %s interview.

Here is the rubric to use:

%s

Here is the interview transcript:

%s

Based on the rubric, provide your evaluation in the following JSON format:

{
  "score": <0-3>,
  "reasoning": "<2-3 paragraphs explaining your score, referencing specific examples from the transcript>",
  "summary": "<1 paragraph summary of the interview covering what was discussed and the candidate's performance>"
}

Be specific and reference actual examples from the transcript in your reasoning.
Return ONLY valid JSON, no other text.`

// Grade is the immutable verdict for one grading trigger. Score -1 is the
// sentinel for "grading could not be computed".
type Grade struct {
	Score         int    `json:"score"`
	Reasoning     string `json:"reasoning"`
	Summary       string `json:"summary"`
	InterviewType string `json:"interview_type"`
	GradedAt      string `json:"graded_at"`
}

// CompletionClient is the single-shot LLM call the scorer depends on.
type CompletionClient interface {
	Complete(ctx context.Context, system, user string, temperature float64) (string, error)
}

type Scorer struct {
	llm    CompletionClient
	logger *slog.Logger
	now    func() time.Time
}

func NewScorer(llm CompletionClient, logger *slog.Logger) *Scorer {
	return &Scorer{llm: llm, logger: logger, now: time.Now}
}

// Score grades a transcript. It never returns an error: request or parse
// failures yield the sentinel Grade so a failed grading cannot abort the
// pipeline that triggered it. No retry is attempted.
func (s *Scorer) Score(ctx context.Context, transcript, interviewType string) Grade {
	label := strings.ReplaceAll(interviewType, "_", " ")
	prompt := fmt.Sprintf(graderPromptTemplate, label, rubricFor(interviewType), transcript)

	raw, err := s.llm.Complete(ctx, graderSystemPrompt, prompt, gradingTemperature)
	if err != nil {
		s.logger.Error("grading completion failed", "interview_type", interviewType, "error", err)
		return s.sentinel(interviewType, err)
	}

	var verdict struct {
		Score     int    `json:"score"`
		Reasoning string `json:"reasoning"`
		Summary   string `json:"summary"`
	}
	if err := json.Unmarshal([]byte(stripFences(raw)), &verdict); err != nil {
		s.logger.Error("grading response not valid JSON", "interview_type", interviewType, "error", err)
		return s.sentinel(interviewType, err)
	}

	s.logger.Info("interview graded", "interview_type", interviewType, "score", verdict.Score)
	return Grade{
		Score:         verdict.Score,
		Reasoning:     verdict.Reasoning,
		Summary:       verdict.Summary,
		InterviewType: interviewType,
		GradedAt:      s.now().UTC().Format(time.RFC3339),
	}
}

func (s *Scorer) sentinel(interviewType string, cause error) Grade {
	return Grade{
		Score:         -1,
		Reasoning:     fmt.Sprintf("Error during grading: %v", cause),
		Summary:       "Grading failed",
		InterviewType: interviewType,
		GradedAt:      s.now().UTC().Format(time.RFC3339),
	}
}

// stripFences removes optional surrounding markdown code-fence markup from a
// model reply, including a leading "json" language tag.
func stripFences(content string) string {
	content = strings.TrimSpace(content)
	if !strings.HasPrefix(content, "```") {
		return content
	}
	content = strings.Trim(content, "`")
	if len(content) >= 4 && strings.EqualFold(content[:4], "json") {
		content = strings.TrimLeft(content[4:], " \n\r\t")
	}
	return strings.TrimSpace(content)
}
