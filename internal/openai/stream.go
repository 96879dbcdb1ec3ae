package openai

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// ChatStream reads text deltas from an OpenAI-style SSE response.
type ChatStream struct {
	reader *bufio.Reader
	closer io.Closer
	err    error
	done   bool
}

type chatChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
}

func newChatStream(body io.ReadCloser) *ChatStream {
	return &ChatStream{
		reader: bufio.NewReader(body),
		closer: body,
	}
}

// Recv returns the next non-empty text delta. It returns io.EOF when the
// stream has finished normally.
func (s *ChatStream) Recv() (string, error) {
	if s.err != nil {
		return "", s.err
	}
	if s.done {
		return "", io.EOF
	}

	for {
		line, err := s.reader.ReadString('\n')
		if err != nil {
			if err == io.EOF {
				s.done = true
				return "", io.EOF
			}
			s.err = err
			return "", err
		}

		line = strings.TrimSpace(line)
		if line == "" || !strings.HasPrefix(line, "data:") {
			continue
		}

		data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if data == "[DONE]" {
			s.done = true
			return "", io.EOF
		}

		var chunk chatChunk
		if err := json.Unmarshal([]byte(data), &chunk); err != nil {
			s.err = fmt.Errorf("parse stream chunk: %w", err)
			return "", s.err
		}
		if len(chunk.Choices) == 0 {
			continue
		}
		if delta := chunk.Choices[0].Delta.Content; delta != "" {
			return delta, nil
		}
		if chunk.Choices[0].FinishReason != "" {
			s.done = true
			return "", io.EOF
		}
	}
}

func (s *ChatStream) Close() error {
	return s.closer.Close()
}
