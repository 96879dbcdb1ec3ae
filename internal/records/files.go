// Package records persists call records, grades, and raw webhook deliveries.
// The file sink is the durable source of truth; the Postgres archive is an
// optional mirror.
package records

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// FileSink writes pretty-printed JSON artifacts. Writes overwrite: persisting
// identical content twice yields a byte-identical file.
type FileSink struct {
	callDataDir string
	tavusDir    string
	logger      *slog.Logger
}

func NewFileSink(callDataDir, tavusDir string, logger *slog.Logger) (*FileSink, error) {
	for _, dir := range []string{callDataDir, tavusDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create %s: %w", dir, err)
		}
	}
	return &FileSink{callDataDir: callDataDir, tavusDir: tavusDir, logger: logger}, nil
}

// WriteCallRecord persists the merged record for a call as {call_id}.json.
func (s *FileSink) WriteCallRecord(callID string, record any) error {
	return s.write(filepath.Join(s.callDataDir, callID+".json"), record)
}

// WritePhoneScreenGrade persists a phone-screen grade as a sibling artifact of
// the call record.
func (s *FileSink) WritePhoneScreenGrade(callID string, grade any) error {
	return s.write(filepath.Join(s.callDataDir, callID+"_phone_screen_grade.json"), grade)
}

// WriteTavusDump persists one webhook delivery verbatim. Dots in the event
// type are replaced so the filename stays flat.
func (s *FileSink) WriteTavusDump(conversationID, timestamp, eventType string, dump any) error {
	name := fmt.Sprintf("%s_%s_%s.json", conversationID, timestamp, strings.ReplaceAll(eventType, ".", "_"))
	return s.write(filepath.Join(s.tavusDir, name), dump)
}

// WriteSystemDesignGrade persists a system-design grade alongside the raw dump
// it was derived from.
func (s *FileSink) WriteSystemDesignGrade(conversationID, timestamp string, grade any) error {
	name := fmt.Sprintf("%s_%s_system_design_grade.json", conversationID, timestamp)
	return s.write(filepath.Join(s.tavusDir, name), grade)
}

func (s *FileSink) write(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	s.logger.Info("artifact persisted", "path", path, "bytes", len(data))
	return nil
}

// TimestampKey formats t for use in delivery filenames, with microsecond
// precision so rapid redeliveries do not collide.
func TimestampKey(t time.Time) string {
	t = t.UTC()
	return fmt.Sprintf("%s_%06d", t.Format("20060102_150405"), t.Nanosecond()/1000)
}
