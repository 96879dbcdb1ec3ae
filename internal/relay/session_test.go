package relay

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/crucible-hq/crucible/internal/responder"
	"github.com/crucible-hq/crucible/internal/transcript"
)

// genCall is one Generate invocation; the test feeds fragments through out.
type genCall struct {
	turns      []transcript.Turn
	isReminder bool
	out        chan responder.Fragment
}

type fakeGen struct {
	greeting string
	calls    chan *genCall
}

func newFakeGen() *fakeGen {
	return &fakeGen{greeting: "Hello there.", calls: make(chan *genCall, 4)}
}

func (g *fakeGen) Greeting() string { return g.greeting }

func (g *fakeGen) Generate(ctx context.Context, turns []transcript.Turn, isReminder bool) <-chan responder.Fragment {
	call := &genCall{turns: turns, isReminder: isReminder, out: make(chan responder.Fragment)}
	g.calls <- call
	return call.out
}

// wireFrame is the superset of every outbound frame shape.
type wireFrame struct {
	ResponseType    string `json:"response_type"`
	ResponseID      int64  `json:"response_id"`
	Content         string `json:"content"`
	ContentComplete bool   `json:"content_complete"`
	Timestamp       int64  `json:"timestamp"`
}

func dialSession(t *testing.T, gen Generator) *websocket.Conn {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		up := websocket.Upgrader{}
		conn, err := up.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		sess := NewSession("call_test", conn, gen, slog.New(slog.NewTextHandler(io.Discard, nil)))
		_ = sess.Run()
	}))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	client, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { client.Close() })
	return client
}

func readFrame(t *testing.T, conn *websocket.Conn) wireFrame {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var f wireFrame
	if err := conn.ReadJSON(&f); err != nil {
		t.Fatalf("read frame: %v", err)
	}
	return f
}

// drainOpening consumes the config frame and the greeting every session
// starts with.
func drainOpening(t *testing.T, conn *websocket.Conn, greeting string) {
	t.Helper()

	cfg := readFrame(t, conn)
	if cfg.ResponseType != "config" || cfg.ResponseID != 1 {
		t.Fatalf("first frame = %+v, want config with response_id 1", cfg)
	}

	hello := readFrame(t, conn)
	if hello.ResponseType != "response" || hello.ResponseID != 0 {
		t.Fatalf("second frame = %+v, want response with response_id 0", hello)
	}
	if hello.Content != greeting || !hello.ContentComplete {
		t.Fatalf("greeting frame = %+v, want complete %q", hello, greeting)
	}
}

func requestResponse(t *testing.T, conn *websocket.Conn, interactionType string, responseID int64) {
	t.Helper()
	msg := map[string]any{
		"interaction_type": interactionType,
		"response_id":      responseID,
		"transcript": []map[string]string{
			{"role": "user", "content": "tell me about yourself"},
		},
	}
	if err := conn.WriteJSON(msg); err != nil {
		t.Fatalf("write %s: %v", interactionType, err)
	}
}

func nextCall(t *testing.T, gen *fakeGen) *genCall {
	t.Helper()
	select {
	case call := <-gen.calls:
		return call
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for Generate call")
		return nil
	}
}

func TestSession_OpensWithConfigAndGreeting(t *testing.T) {
	gen := newFakeGen()
	client := dialSession(t, gen)

	drainOpening(t, client, gen.greeting)
}

func TestSession_HeartbeatEcho(t *testing.T) {
	gen := newFakeGen()
	client := dialSession(t, gen)
	drainOpening(t, client, gen.greeting)

	if err := client.WriteJSON(map[string]any{"interaction_type": "ping_pong", "timestamp": int64(1712345678)}); err != nil {
		t.Fatalf("write ping: %v", err)
	}

	pong := readFrame(t, client)
	if pong.ResponseType != "ping_pong" {
		t.Fatalf("response_type = %q, want ping_pong", pong.ResponseType)
	}
	if pong.Timestamp != 1712345678 {
		t.Fatalf("timestamp = %d, want 1712345678", pong.Timestamp)
	}
}

func TestSession_StreamsFragmentsInOrder(t *testing.T) {
	gen := newFakeGen()
	client := dialSession(t, gen)
	drainOpening(t, client, gen.greeting)

	requestResponse(t, client, InteractionResponseRequired, 1)
	call := nextCall(t, gen)
	if call.isReminder {
		t.Fatal("isReminder = true for response_required")
	}
	if len(call.turns) != 1 || call.turns[0].Content != "tell me about yourself" {
		t.Fatalf("turns = %+v", call.turns)
	}

	call.out <- responder.Fragment{Content: "I am "}
	call.out <- responder.Fragment{Content: "an interviewer."}
	call.out <- responder.Fragment{Complete: true}
	close(call.out)

	want := []wireFrame{
		{ResponseType: "response", ResponseID: 1, Content: "I am "},
		{ResponseType: "response", ResponseID: 1, Content: "an interviewer."},
		{ResponseType: "response", ResponseID: 1, ContentComplete: true},
	}
	for i, w := range want {
		got := readFrame(t, client)
		if got != w {
			t.Fatalf("frame %d = %+v, want %+v", i, got, w)
		}
	}
}

func TestSession_SupersededFragmentsNeverReachWire(t *testing.T) {
	gen := newFakeGen()
	client := dialSession(t, gen)
	drainOpening(t, client, gen.greeting)

	requestResponse(t, client, InteractionResponseRequired, 1)
	stale := nextCall(t, gen)

	// A newer request supersedes response 1 before it emits anything.
	requestResponse(t, client, InteractionResponseRequired, 2)
	fresh := nextCall(t, gen)

	stale.out <- responder.Fragment{Content: "stale answer"}
	stale.out <- responder.Fragment{Complete: true}
	close(stale.out)

	fresh.out <- responder.Fragment{Content: "fresh answer"}
	fresh.out <- responder.Fragment{Complete: true}
	close(fresh.out)

	first := readFrame(t, client)
	if first.ResponseID != 2 || first.Content != "fresh answer" {
		t.Fatalf("first frame after supersession = %+v, want response 2 content", first)
	}
	second := readFrame(t, client)
	if second.ResponseID != 2 || !second.ContentComplete {
		t.Fatalf("second frame = %+v, want response 2 terminal", second)
	}
}

func TestSession_OutOfOrderRequestIsSuperseded(t *testing.T) {
	gen := newFakeGen()
	client := dialSession(t, gen)
	drainOpening(t, client, gen.greeting)

	// The high id arrives first; a lower id after it must never emit.
	requestResponse(t, client, InteractionResponseRequired, 5)
	current := nextCall(t, gen)

	requestResponse(t, client, InteractionResponseRequired, 3)
	late := nextCall(t, gen)

	late.out <- responder.Fragment{Content: "late answer"}
	late.out <- responder.Fragment{Complete: true}
	close(late.out)

	current.out <- responder.Fragment{Content: "current answer"}
	current.out <- responder.Fragment{Complete: true}
	close(current.out)

	for _, want := range []wireFrame{
		{ResponseType: "response", ResponseID: 5, Content: "current answer"},
		{ResponseType: "response", ResponseID: 5, ContentComplete: true},
	} {
		got := readFrame(t, client)
		if got != want {
			t.Fatalf("frame = %+v, want %+v", got, want)
		}
	}
}

func TestSession_ReminderPassedToGenerator(t *testing.T) {
	gen := newFakeGen()
	client := dialSession(t, gen)
	drainOpening(t, client, gen.greeting)

	requestResponse(t, client, InteractionReminderRequired, 1)
	call := nextCall(t, gen)
	if !call.isReminder {
		t.Fatal("isReminder = false for reminder_required")
	}
	call.out <- responder.Fragment{Content: "still there?", Complete: true}
	close(call.out)

	got := readFrame(t, client)
	if got.Content != "still there?" || !got.ContentComplete {
		t.Fatalf("reminder frame = %+v", got)
	}
}

func TestSession_GenerationFailureClosesConnection(t *testing.T) {
	gen := newFakeGen()
	client := dialSession(t, gen)
	drainOpening(t, client, gen.greeting)

	requestResponse(t, client, InteractionResponseRequired, 1)
	call := nextCall(t, gen)
	call.out <- responder.Fragment{Err: errors.New("upstream unavailable")}
	close(call.out)

	_ = client.SetReadDeadline(time.Now().Add(2 * time.Second))
	for {
		var f wireFrame
		err := client.ReadJSON(&f)
		if err == nil {
			continue
		}
		var closeErr *websocket.CloseError
		if !errors.As(err, &closeErr) {
			t.Fatalf("connection ended with %v, want close error", err)
		}
		if closeErr.Code != websocket.CloseInternalServerErr {
			t.Fatalf("close code = %d, want %d", closeErr.Code, websocket.CloseInternalServerErr)
		}
		if closeErr.Text != "Server error" {
			t.Fatalf("close text = %q, want %q", closeErr.Text, "Server error")
		}
		return
	}
}

func TestSession_MalformedFrameIsIgnored(t *testing.T) {
	gen := newFakeGen()
	client := dialSession(t, gen)
	drainOpening(t, client, gen.greeting)

	if err := client.WriteMessage(websocket.TextMessage, []byte("{not json")); err != nil {
		t.Fatalf("write: %v", err)
	}

	// The session stays up and keeps serving.
	if err := client.WriteJSON(map[string]any{"interaction_type": "ping_pong", "timestamp": int64(7)}); err != nil {
		t.Fatalf("write ping: %v", err)
	}
	pong := readFrame(t, client)
	if pong.ResponseType != "ping_pong" || pong.Timestamp != 7 {
		t.Fatalf("frame = %+v, want ping_pong echo", pong)
	}
}
