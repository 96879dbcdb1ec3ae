// Package relay controls one duplex conversational connection, guaranteeing
// that only the most recently requested reply's fragments ever reach the wire.
package relay

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/crucible-hq/crucible/internal/observability/metrics"
	"github.com/crucible-hq/crucible/internal/responder"
	"github.com/crucible-hq/crucible/internal/transcript"
)

const (
	writeTimeout      = 10 * time.Second
	outboundQueueSize = 64
	priorityQueueSize = 8
)

// Generator produces the fragment stream for one requested turn.
type Generator interface {
	Generate(ctx context.Context, turns []transcript.Turn, isReminder bool) <-chan responder.Fragment
	Greeting() string
}

// Session owns one duplex connection: its transcript bookkeeping, the
// generation tasks it spawns, and the single ordered writer feeding the wire.
type Session struct {
	callID  string
	conn    *websocket.Conn
	gen     Generator
	logger  *slog.Logger
	metrics *metrics.Metrics

	ctx    context.Context
	cancel context.CancelFunc

	// latestResponseID only ever increases. A generation task whose id is
	// below it must not emit.
	latestResponseID atomic.Int64

	// priority carries heartbeat replies; they never queue behind fragments.
	priority chan any
	outbound chan ResponseFrame

	failOnce sync.Once

	mu    sync.Mutex
	turns []transcript.Turn
}

func NewSession(callID string, conn *websocket.Conn, gen Generator, logger *slog.Logger) *Session {
	ctx, cancel := context.WithCancel(context.Background())
	return &Session{
		callID:   callID,
		conn:     conn,
		gen:      gen,
		logger:   logger.With("call_id", callID),
		metrics:  metrics.Default,
		ctx:      ctx,
		cancel:   cancel,
		priority: make(chan any, priorityQueueSize),
		outbound: make(chan ResponseFrame, outboundQueueSize),
	}
}

// Run drives the session until the connection closes. It returns nil on a
// normal disconnect; in-flight generation output is discarded.
func (s *Session) Run() error {
	defer s.cancel()

	s.metrics.SessionsTotal.Inc()
	s.metrics.SessionsActive.Inc()
	defer s.metrics.SessionsActive.Dec()

	var wg sync.WaitGroup
	defer wg.Wait()

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		s.writeLoop()
	}()

	// Config frame, then the greeting, before any inbound message is required.
	s.priority <- newConfigFrame()
	s.enqueue(newResponseFrame(0, s.gen.Greeting(), true))

	s.logger.Info("relay session opened")

	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			// Idle timeouts and abrupt disconnects end the session without error.
			s.logger.Info("relay session closed", "reason", err.Error())
			s.cancel()
			<-writerDone
			return nil
		}

		var msg InboundMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			s.logger.Warn("dropping malformed inbound frame", "error", err)
			continue
		}

		// Every inbound message is dispatched as its own task; tasks for one
		// connection interleave freely, which is why staleness is re-checked
		// at every fragment boundary rather than at dispatch.
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.handleMessage(msg)
		}()
	}
}

func (s *Session) handleMessage(msg InboundMessage) {
	switch msg.InteractionType {
	case InteractionCallDetails:
		s.logger.Info("call details received")
	case InteractionPingPong:
		select {
		case s.priority <- PingPongFrame{ResponseType: "ping_pong", Timestamp: msg.Timestamp}:
		case <-s.ctx.Done():
		}
	case InteractionUpdateOnly:
		s.setTurns(msg.Transcript)
	case InteractionResponseRequired, InteractionReminderRequired:
		s.setTurns(msg.Transcript)
		s.advanceLatest(msg.ResponseID)
		s.logger.Info("response requested",
			"interaction_type", msg.InteractionType,
			"response_id", msg.ResponseID,
		)
		s.runGeneration(msg.ResponseID, msg.Transcript, msg.InteractionType == InteractionReminderRequired)
	default:
		s.logger.Warn("unknown interaction type", "interaction_type", msg.InteractionType)
	}
}

// runGeneration forwards fragments for responseID until it is superseded,
// then keeps draining silently so the generator can finish its stream.
func (s *Session) runGeneration(responseID int64, turns []transcript.Turn, isReminder bool) {
	fragments := s.gen.Generate(s.ctx, turns, isReminder)
	superseded := false
	for f := range fragments {
		if f.Err != nil {
			s.fail("generation failed", f.Err)
			return
		}
		if superseded || s.latestResponseID.Load() > responseID {
			superseded = true
			s.metrics.FragmentsSuperseded.Inc()
			continue
		}
		s.enqueue(newResponseFrame(responseID, f.Content, f.Complete))
	}
}

// writeLoop is the only goroutine touching the connection's write side, so
// fragment order on the wire matches enqueue order. Heartbeats are drained
// ahead of fragments on every iteration.
func (s *Session) writeLoop() {
	for {
		select {
		case frame := <-s.priority:
			if !s.write(frame) {
				return
			}
			continue
		default:
		}

		select {
		case frame := <-s.priority:
			if !s.write(frame) {
				return
			}
		case frame := <-s.outbound:
			// A fragment may have gone stale while queued.
			if frame.ResponseID > 0 && s.latestResponseID.Load() > frame.ResponseID {
				s.metrics.FragmentsSuperseded.Inc()
				continue
			}
			if !s.write(frame) {
				return
			}
			s.metrics.FragmentsSent.Inc()
		case <-s.ctx.Done():
			return
		}
	}
}

func (s *Session) write(frame any) bool {
	_ = s.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := s.conn.WriteJSON(frame); err != nil {
		s.logger.Warn("outbound write failed", "error", err)
		s.cancel()
		return false
	}
	return true
}

func (s *Session) enqueue(frame ResponseFrame) {
	select {
	case s.outbound <- frame:
	case <-s.ctx.Done():
	}
}

// advanceLatest sets latest_response_id = max(latest_response_id, incoming).
func (s *Session) advanceLatest(responseID int64) {
	for {
		cur := s.latestResponseID.Load()
		if responseID <= cur {
			return
		}
		if s.latestResponseID.CompareAndSwap(cur, responseID) {
			return
		}
	}
}

func (s *Session) setTurns(turns []transcript.Turn) {
	if turns == nil {
		return
	}
	s.mu.Lock()
	s.turns = turns
	s.mu.Unlock()
}

// fail closes the channel with a server-error status rather than letting the
// counterpart hang.
func (s *Session) fail(reason string, err error) {
	s.failOnce.Do(func() {
		s.logger.Error(reason, "error", err)
		deadline := time.Now().Add(writeTimeout)
		msg := websocket.FormatCloseMessage(websocket.CloseInternalServerErr, "Server error")
		_ = s.conn.WriteControl(websocket.CloseMessage, msg, deadline)
		s.cancel()
		_ = s.conn.Close()
	})
}
