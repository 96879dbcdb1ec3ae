package api

import (
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/crucible-hq/crucible/internal/grading"
	"github.com/crucible-hq/crucible/internal/records"
	"github.com/crucible-hq/crucible/internal/retell"
	"github.com/crucible-hq/crucible/internal/transcript"
)

// retellEnvelope is the lifecycle webhook body. Older deliveries carry the
// call under "call", newer ones under "data".
type retellEnvelope struct {
	Event string         `json:"event"`
	Data  map[string]any `json:"data"`
	Call  map[string]any `json:"call"`
}

func (e *retellEnvelope) callData() map[string]any {
	if e.Data != nil {
		return e.Data
	}
	return e.Call
}

// retellWebhook authenticates the delivery against the raw body, then hands
// the event to the lifecycle correlator. Authentication happens before any
// state is touched.
func (s *Server) retellWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeServerError(w, err)
		return
	}

	if !s.opts.SkipVerification {
		sig := r.Header.Get(retell.SignatureHeader)
		if err := retell.VerifySignature(s.opts.RetellAPIKey, sig, body); err != nil {
			s.logger.Warn("unauthorized webhook delivery", "error", err)
			s.metrics.WebhooksRejected.WithLabelValues("webhook", "signature").Inc()
			writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Unauthorized"})
			return
		}
	}

	var env retellEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		writeServerError(w, err)
		return
	}

	callData := env.callData()
	callID, _ := callData["call_id"].(string)
	if callID == "" {
		s.metrics.WebhooksRejected.WithLabelValues("webhook", "missing_call_id").Inc()
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "call_id missing from payload"})
		return
	}

	s.logger.Info("lifecycle webhook received", "event", env.Event, "call_id", callID)
	s.metrics.WebhooksReceived.WithLabelValues("webhook", env.Event).Inc()

	switch env.Event {
	case "call_started":
		s.deps.Lifecycle.HandleStarted(callID)
	case "call_ended":
		s.deps.Lifecycle.HandleEnded(r.Context(), callID, callData)
	case "call_analyzed":
		s.deps.Lifecycle.HandleAnalyzed(r.Context(), callID, callData)
	default:
		s.logger.Warn("unknown lifecycle event", "event", env.Event, "call_id", callID)
	}

	writeJSON(w, http.StatusOK, map[string]bool{"received": true})
}

// tavusWebhook dumps every delivery to disk first, then grades the interview
// when the delivery carries a transcript.
func (s *Server) tavusWebhook(w http.ResponseWriter, r *http.Request) {
	var payload map[string]any
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeServerError(w, err)
		return
	}

	conversationID := stringOr(payload["conversation_id"], "unknown")
	eventType := stringOr(payload["event_type"], "unknown")

	now := time.Now().UTC()
	ts := records.TimestampKey(now)

	dump := map[string]any{
		"delivery_id": uuid.New().String(),
		"timestamp":   now.Format(time.RFC3339Nano),
		"headers":     flattenHeaders(r.Header),
		"payload":     payload,
	}

	s.logger.Info("tavus webhook received", "event_type", eventType, "conversation_id", conversationID)
	s.metrics.WebhooksReceived.WithLabelValues("tavus-webhook", eventType).Inc()

	if err := s.deps.TavusSink.WriteTavusDump(conversationID, ts, eventType, dump); err != nil {
		s.logger.Error("tavus dump failed", "conversation_id", conversationID, "error", err)
		writeServerError(w, err)
		return
	}

	properties, _ := payload["properties"].(map[string]any)
	if flat := transcript.FromTavusProperties(properties); flat != "" {
		grade := s.deps.Grader.Score(r.Context(), flat, grading.TypeSystemDesign)
		if err := s.deps.TavusSink.WriteSystemDesignGrade(conversationID, ts, grade); err != nil {
			s.logger.Error("grade persist failed", "conversation_id", conversationID, "error", err)
			writeServerError(w, err)
			return
		}
		s.logger.Info("system design graded", "conversation_id", conversationID, "score", grade.Score)
	}

	writeJSON(w, http.StatusOK, map[string]bool{"received": true})
}

// checkDiagram runs one canvas review and returns the model's feedback.
func (s *Server) checkDiagram(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ConversationID string `json:"conversation_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ConversationID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "conversation_id missing from payload"})
		return
	}

	feedback, err := s.deps.Checker.Check(r.Context(), req.ConversationID)
	if err != nil {
		s.logger.Error("diagram check failed", "conversation_id", req.ConversationID, "error", err)
		writeServerError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"feedback": feedback})
}

func stringOr(v any, fallback string) string {
	if s, ok := v.(string); ok && s != "" {
		return s
	}
	return fallback
}

func flattenHeaders(h http.Header) map[string]string {
	out := make(map[string]string, len(h))
	for k, vals := range h {
		if len(vals) > 0 {
			out[k] = vals[0]
		}
	}
	return out
}
