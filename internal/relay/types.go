package relay

import (
	"github.com/crucible-hq/crucible/internal/transcript"
)

// Inbound interaction types.
const (
	InteractionCallDetails      = "call_details"
	InteractionPingPong         = "ping_pong"
	InteractionUpdateOnly       = "update_only"
	InteractionResponseRequired = "response_required"
	InteractionReminderRequired = "reminder_required"
)

// InboundMessage is one duplex frame from the counterpart, discriminated by
// interaction_type. Fields not relevant to a given type are zero.
type InboundMessage struct {
	InteractionType string            `json:"interaction_type"`
	ResponseID      int64             `json:"response_id,omitempty"`
	Timestamp       int64             `json:"timestamp,omitempty"`
	Transcript      []transcript.Turn `json:"transcript,omitempty"`
}

// ConfigFrame is sent once at connection start.
type ConfigFrame struct {
	ResponseType string        `json:"response_type"`
	ResponseID   int64         `json:"response_id"`
	Config       SessionConfig `json:"config"`
}

type SessionConfig struct {
	AutoReconnect bool `json:"auto_reconnect"`
	CallDetails   bool `json:"call_details"`
}

// PingPongFrame echoes the received heartbeat timestamp.
type PingPongFrame struct {
	ResponseType string `json:"response_type"`
	Timestamp    int64  `json:"timestamp"`
}

// ResponseFrame carries one reply fragment for a response id.
type ResponseFrame struct {
	ResponseType    string `json:"response_type"`
	ResponseID      int64  `json:"response_id"`
	Content         string `json:"content"`
	ContentComplete bool   `json:"content_complete"`
	EndCall         bool   `json:"end_call"`
}

func newConfigFrame() ConfigFrame {
	return ConfigFrame{
		ResponseType: "config",
		ResponseID:   1,
		Config: SessionConfig{
			AutoReconnect: true,
			CallDetails:   true,
		},
	}
}

func newResponseFrame(responseID int64, content string, complete bool) ResponseFrame {
	return ResponseFrame{
		ResponseType:    "response",
		ResponseID:      responseID,
		Content:         content,
		ContentComplete: complete,
	}
}
