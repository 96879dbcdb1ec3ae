// Package lifecycle merges the out-of-order webhook deliveries about one call
// into a single durable record and triggers grading.
package lifecycle

import (
	"context"
	"log/slog"
	"time"

	"github.com/crucible-hq/crucible/internal/callstore"
	"github.com/crucible-hq/crucible/internal/events"
	"github.com/crucible-hq/crucible/internal/grading"
	"github.com/crucible-hq/crucible/internal/observability/metrics"
	"github.com/crucible-hq/crucible/internal/transcript"
)

// CallRecord is the merged durable record for one call. Absent slots marshal
// as null so a record always carries every field.
type CallRecord struct {
	CallID              string         `json:"call_id"`
	CallEndedWebhook    map[string]any `json:"call_ended_webhook"`
	CallAnalyzedWebhook map[string]any `json:"call_analyzed_webhook"`
	RetellAPIData       map[string]any `json:"retell_api_data"`
	Timestamps          Timestamps     `json:"timestamps"`
}

type Timestamps struct {
	CallEndedReceived    *string `json:"call_ended_received"`
	CallAnalyzedReceived string  `json:"call_analyzed_received"`
}

// Provider fetches the authoritative call record, best effort.
type Provider interface {
	Configured() bool
	GetCall(ctx context.Context, callID string) (map[string]any, error)
}

// Sink persists artifacts durably.
type Sink interface {
	WriteCallRecord(callID string, record any) error
	WritePhoneScreenGrade(callID string, grade any) error
}

// Scorer grades a transcript; it never fails past its boundary.
type Scorer interface {
	Score(ctx context.Context, transcript, interviewType string) grading.Grade
}

// Archive is the optional Postgres mirror.
type Archive interface {
	UpsertCallRecord(ctx context.Context, callID string, record any) error
	InsertGrade(ctx context.Context, callID, interviewType string, grade any) error
}

// Correlator consumes lifecycle events for calls. All failures inside grading,
// fetching, and persistence are contained: a delivery that passed
// authentication is always acknowledged.
type Correlator struct {
	store    *callstore.Store
	provider Provider
	sink     Sink
	scorer   Scorer
	archive  Archive          // optional
	bus      *events.Publisher // optional
	metrics  *metrics.Metrics
	logger   *slog.Logger
	now      func() time.Time
}

func NewCorrelator(store *callstore.Store, provider Provider, sink Sink, scorer Scorer, logger *slog.Logger) *Correlator {
	return &Correlator{
		store:    store,
		provider: provider,
		sink:     sink,
		scorer:   scorer,
		metrics:  metrics.Default,
		logger:   logger,
		now:      time.Now,
	}
}

// WithArchive attaches the optional Postgres mirror.
func (c *Correlator) WithArchive(a Archive) *Correlator {
	c.archive = a
	return c
}

// WithBus attaches the optional event publisher.
func (c *Correlator) WithBus(b *events.Publisher) *Correlator {
	c.bus = b
	return c
}

// HandleStarted is informational only; no state is retained.
func (c *Correlator) HandleStarted(callID string) {
	c.logger.Info("call started", "call_id", callID)
}

// HandleEnded stores the ended payload for later correlation and, when the
// payload already carries a transcript, grades the phone screen immediately.
func (c *Correlator) HandleEnded(ctx context.Context, callID string, payload map[string]any) {
	c.store.WithLock(callID, func() {
		c.logger.Info("call ended", "call_id", callID)
		c.store.Put(callID, callstore.Pending{
			Event:      "call_ended",
			Payload:    payload,
			ReceivedAt: c.now().UTC(),
		})

		text := transcript.FromCallPayload(payload)
		if text == "" {
			return
		}

		c.logger.Info("grading phone screen", "call_id", callID, "transcript_len", len(text))
		grade := c.scorer.Score(ctx, text, grading.TypePhoneScreen)
		c.recordGrade(ctx, grade)

		if err := c.sink.WritePhoneScreenGrade(callID, grade); err != nil {
			c.logger.Error("failed to persist phone screen grade", "call_id", callID, "error", err)
		}
		if c.archive != nil {
			if err := c.archive.InsertGrade(ctx, callID, grading.TypePhoneScreen, grade); err != nil {
				c.logger.Error("failed to archive grade", "call_id", callID, "error", err)
			}
		}
		c.publish(events.SubjectGradeCreated, map[string]any{
			"call_id":        callID,
			"interview_type": grading.TypePhoneScreen,
			"score":          grade.Score,
		})
	})

	c.publish(events.SubjectCallEnded, map[string]any{"call_id": callID})
}

// HandleAnalyzed merges the stored ended slot, the analyzed payload, and a
// best-effort provider fetch into one record, persists it, and evicts the
// in-memory entry unconditionally.
func (c *Correlator) HandleAnalyzed(ctx context.Context, callID string, payload map[string]any) {
	c.store.WithLock(callID, func() {
		defer c.store.Delete(callID)

		c.logger.Info("call analyzed", "call_id", callID)
		stored, hadEnded := c.store.Get(callID)

		var fetched map[string]any
		if c.provider.Configured() {
			var err error
			fetched, err = c.provider.GetCall(ctx, callID)
			if err != nil {
				c.metrics.ProviderFetchErrors.Inc()
				c.logger.Error("provider fetch failed", "call_id", callID, "error", err)
				fetched = nil
			}
		} else {
			c.logger.Warn("provider credential not configured, skipping fetch", "call_id", callID)
		}

		record := CallRecord{
			CallID:              callID,
			CallAnalyzedWebhook: payload,
			RetellAPIData:       fetched,
			Timestamps: Timestamps{
				CallAnalyzedReceived: c.now().UTC().Format(time.RFC3339),
			},
		}
		if hadEnded {
			record.CallEndedWebhook = stored.Payload
			ended := stored.ReceivedAt.Format(time.RFC3339)
			record.Timestamps.CallEndedReceived = &ended
		}

		if err := c.sink.WriteCallRecord(callID, record); err != nil {
			c.logger.Error("failed to persist call record", "call_id", callID, "error", err)
		} else {
			c.metrics.CallRecordsPersisted.Inc()
		}
		if c.archive != nil {
			if err := c.archive.UpsertCallRecord(ctx, callID, record); err != nil {
				c.logger.Error("failed to archive call record", "call_id", callID, "error", err)
			}
		}
	})

	c.publish(events.SubjectCallAnalyzed, map[string]any{"call_id": callID})
}

func (c *Correlator) recordGrade(_ context.Context, grade grading.Grade) {
	if grade.Score < 0 {
		c.metrics.GradesFailed.WithLabelValues(grade.InterviewType).Inc()
		return
	}
	c.metrics.GradesProduced.WithLabelValues(grade.InterviewType).Inc()
}

func (c *Correlator) publish(subject string, fields map[string]any) {
	if c.bus == nil {
		return
	}
	if err := c.bus.Publish(subject, fields); err != nil {
		c.logger.Error("failed to publish event", "subject", subject, "error", err)
	}
}
