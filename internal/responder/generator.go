// Package responder produces the streamed reply fragments for one
// conversational turn.
package responder

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"github.com/crucible-hq/crucible/internal/openai"
	"github.com/crucible-hq/crucible/internal/transcript"
)

// Fragment is one incremental piece of a streamed reply. A terminal fragment
// has Complete set; Err is populated on it when the model stream failed.
type Fragment struct {
	Content  string
	Complete bool
	Err      error
}

// TextStream is a finite, non-restartable sequence of text deltas.
type TextStream interface {
	Recv() (string, error)
	Close() error
}

// Streamer opens a model stream for a prepared prompt.
type Streamer interface {
	StreamChat(ctx context.Context, messages []openai.Message) (TextStream, error)
}

type clientStreamer struct {
	client *openai.Client
}

func (s clientStreamer) StreamChat(ctx context.Context, messages []openai.Message) (TextStream, error) {
	return s.client.StreamChat(ctx, messages)
}

// NewStreamer adapts the OpenAI client to the Streamer interface.
func NewStreamer(c *openai.Client) Streamer {
	return clientStreamer{client: c}
}

type Generator struct {
	llm    Streamer
	logger *slog.Logger
}

func New(llm Streamer, logger *slog.Logger) *Generator {
	return &Generator{llm: llm, logger: logger}
}

// Greeting is the content-complete opening line sent when a connection opens.
func (g *Generator) Greeting() string {
	return BeginSentence
}

// Generate streams reply fragments for the transcript so far. The returned
// channel always delivers exactly one terminal fragment before closing, even
// when the underlying stream fails; the caller is expected to drain it so the
// model call is never leaked. Generation is not retried.
func (g *Generator) Generate(ctx context.Context, turns []transcript.Turn, isReminder bool) <-chan Fragment {
	out := make(chan Fragment)
	go func() {
		defer close(out)

		stream, err := g.llm.StreamChat(ctx, buildPrompt(turns, isReminder))
		if err != nil {
			g.logger.Error("model stream failed to open", "error", err)
			g.send(ctx, out, Fragment{Complete: true, Err: err})
			return
		}
		defer stream.Close()

		for {
			delta, err := stream.Recv()
			if err != nil {
				if errors.Is(err, io.EOF) {
					g.send(ctx, out, Fragment{Complete: true})
				} else {
					g.logger.Error("model stream failed mid-reply", "error", err)
					g.send(ctx, out, Fragment{Complete: true, Err: err})
				}
				return
			}
			if !g.send(ctx, out, Fragment{Content: delta}) {
				return
			}
		}
	}()
	return out
}

func (g *Generator) send(ctx context.Context, out chan<- Fragment, f Fragment) bool {
	select {
	case out <- f:
		return true
	case <-ctx.Done():
		return false
	}
}

// buildPrompt converts the transcript into model messages. Agent turns map to
// the assistant role, everything else to the user role.
func buildPrompt(turns []transcript.Turn, isReminder bool) []openai.Message {
	messages := make([]openai.Message, 0, len(turns)+2)
	messages = append(messages, openai.Message{Role: "system", Content: voiceSystemPrompt})
	for _, t := range turns {
		role := "user"
		if t.Role == "agent" {
			role = "assistant"
		}
		messages = append(messages, openai.Message{Role: role, Content: t.Content})
	}
	if isReminder {
		messages = append(messages, openai.Message{Role: "user", Content: reminderCue})
	}
	return messages
}
