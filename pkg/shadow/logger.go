package shadow

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gowebpki/jcs"
)

// LogEntry is the JSON shape persisted for every shadow run (spec §4.7):
// ISO-8601 UTC timestamp, environment fields, topics, metrics, and alerts.
type LogEntry struct {
	JobID           string    `json:"job_id"`
	Timestamp       time.Time `json:"timestamp"`
	Environment     string    `json:"environment"`
	PrimaryTopics   []string  `json:"primary_topics"`
	ShadowTopics    []string  `json:"shadow_topics"`
	Metrics         Metrics   `json:"metrics"`
	Alerts          []string  `json:"alerts"`
	HallucinationAction string `json:"hallucination_action"`
}

// PersistLog writes entry as canonicalized JSON (RFC 8785, via gowebpki/jcs)
// under baseDir/shadow_logs/YYYY/MM/DD/<job_id>.json, matching spec §4.7's
// date-partitioned layout.
func PersistLog(baseDir string, entry LogEntry) error {
	raw, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("shadow: marshal log entry: %w", err)
	}

	canonical, err := jcs.Transform(raw)
	if err != nil {
		return fmt.Errorf("shadow: canonicalize log entry: %w", err)
	}

	ts := entry.Timestamp.UTC()
	dir := filepath.Join(baseDir, "shadow_logs",
		fmt.Sprintf("%04d", ts.Year()),
		fmt.Sprintf("%02d", ts.Month()),
		fmt.Sprintf("%02d", ts.Day()),
	)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("shadow: create log directory: %w", err)
	}

	path := filepath.Join(dir, entry.JobID+".json")
	if err := os.WriteFile(path, canonical, 0o644); err != nil {
		return fmt.Errorf("shadow: write log file: %w", err)
	}
	return nil
}
