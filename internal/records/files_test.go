package records

import (
	"bytes"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func newTestSink(t *testing.T) (*FileSink, string, string) {
	t.Helper()
	callDir := t.TempDir()
	tavusDir := t.TempDir()
	sink, err := NewFileSink(callDir, tavusDir, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("create sink: %v", err)
	}
	return sink, callDir, tavusDir
}

func TestWriteCallRecord(t *testing.T) {
	sink, callDir, _ := newTestSink(t)

	record := map[string]any{"call_id": "c1", "call_ended_webhook": nil}
	if err := sink.WriteCallRecord("c1", record); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(callDir, "c1.json"))
	if err != nil {
		t.Fatalf("read artifact: %v", err)
	}
	if !bytes.Contains(data, []byte(`"call_id": "c1"`)) {
		t.Errorf("expected pretty-printed record, got %s", data)
	}
}

func TestWriteCallRecord_Idempotent(t *testing.T) {
	sink, callDir, _ := newTestSink(t)
	record := map[string]any{"call_id": "c1", "transcript": "agent: hi"}

	if err := sink.WriteCallRecord("c1", record); err != nil {
		t.Fatalf("first write: %v", err)
	}
	first, _ := os.ReadFile(filepath.Join(callDir, "c1.json"))

	if err := sink.WriteCallRecord("c1", record); err != nil {
		t.Fatalf("second write: %v", err)
	}
	second, _ := os.ReadFile(filepath.Join(callDir, "c1.json"))

	if !bytes.Equal(first, second) {
		t.Error("expected byte-identical artifact after rewriting identical content")
	}
}

func TestWritePhoneScreenGrade(t *testing.T) {
	sink, callDir, _ := newTestSink(t)

	if err := sink.WritePhoneScreenGrade("c1", map[string]any{"score": 2}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := os.Stat(filepath.Join(callDir, "c1_phone_screen_grade.json")); err != nil {
		t.Errorf("expected grade artifact: %v", err)
	}
}

func TestWriteTavusDump_CleansEventType(t *testing.T) {
	sink, _, tavusDir := newTestSink(t)

	err := sink.WriteTavusDump("conv1", "20260901_120000_000000", "application.transcription_ready", map[string]any{"ok": true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "conv1_20260901_120000_000000_application_transcription_ready.json"
	if _, err := os.Stat(filepath.Join(tavusDir, want)); err != nil {
		t.Errorf("expected dump file %s: %v", want, err)
	}
}

func TestWriteSystemDesignGrade(t *testing.T) {
	sink, _, tavusDir := newTestSink(t)

	if err := sink.WriteSystemDesignGrade("conv1", "20260901_120000_000000", map[string]any{"score": 3}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "conv1_20260901_120000_000000_system_design_grade.json"
	if _, err := os.Stat(filepath.Join(tavusDir, want)); err != nil {
		t.Errorf("expected grade file %s: %v", want, err)
	}
}

func TestTimestampKey(t *testing.T) {
	ts := time.Date(2026, 9, 1, 12, 30, 45, 123456000, time.UTC)
	if got := TimestampKey(ts); got != "20260901_123045_123456" {
		t.Errorf("unexpected timestamp key %q", got)
	}
}
