// Package events publishes interview lifecycle notifications to a NATS bus.
// The bus is optional wiring: when it is absent the service runs unchanged.
package events

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
)

// Subjects for downstream consumers (dashboards, ATS sync, notification bots).
const (
	SubjectCallEnded    = "interview.call.ended"
	SubjectCallAnalyzed = "interview.call.analyzed"
	SubjectGradeCreated = "interview.grade.created"
)

type Publisher struct {
	conn   *nats.Conn
	logger *slog.Logger
}

func Connect(url, token string, logger *slog.Logger) (*Publisher, error) {
	opts := []nats.Option{
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(60),
		nats.ReconnectWait(2 * time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("nats disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			logger.Info("nats reconnected")
		}),
	}
	if token != "" {
		opts = append(opts, nats.Token(token))
	}

	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}
	return &Publisher{conn: nc, logger: logger}, nil
}

// Publish sends an event with a fresh delivery id stamped on it, so consumers
// can distinguish webhook redeliveries from duplicate bus deliveries.
func (p *Publisher) Publish(subject string, fields map[string]any) error {
	body := map[string]any{
		"delivery_id": uuid.New().String(),
		"emitted_at":  time.Now().UTC().Format(time.RFC3339),
	}
	for k, v := range fields {
		body[k] = v
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	return p.conn.Publish(subject, payload)
}

func (p *Publisher) Close() {
	p.conn.Close()
}
