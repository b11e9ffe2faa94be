// Package errlog accumulates structured failure records for a pipeline run
// and persists them by merging into any previously written log file.
package errlog

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Error type tags recorded by the ingestion pipeline.
const (
	TypeFetchFailed        = "fetch_failed"
	TypeSegmentationFailed = "segmentation_failed"
	TypeEmptyResult        = "empty_result"
	TypeExtractionFailed   = "extraction_failed"
)

// Record is one structured failure entry.
type Record struct {
	Timestamp time.Time      `json:"timestamp"`
	Source    string         `json:"source"`
	ErrorType string         `json:"error_type"`
	Message   string         `json:"message"`
	Details   map[string]any `json:"details"`
}

// Log collects error records for one run. Appends are safe for concurrent
// use; multiple source-processing tasks may fail at the same time.
type Log struct {
	path string

	mu      sync.Mutex
	records []Record
}

// New creates an error log that persists to path.
func New(path string) *Log {
	return &Log{path: path}
}

// Add appends a record for a failed source. details may be nil.
func (l *Log) Add(source, errorType, message string, details map[string]any) {
	if details == nil {
		details = map[string]any{}
	}
	rec := Record{
		Timestamp: time.Now().UTC(),
		Source:    source,
		ErrorType: errorType,
		Message:   message,
		Details:   details,
	}

	l.mu.Lock()
	l.records = append(l.records, rec)
	l.mu.Unlock()
}

// HasErrors reports whether any records were added this run.
func (l *Log) HasErrors() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.records) > 0
}

// Count returns the number of records added this run.
func (l *Log) Count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.records)
}

// Save merges this run's records into the persisted log file. Prior entries
// are never truncated. When no records were added, no file is created or
// touched.
func (l *Log) Save() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if len(l.records) == 0 {
		return nil
	}

	var existing []Record
	data, err := os.ReadFile(l.path)
	switch {
	case err == nil:
		if err := json.Unmarshal(data, &existing); err != nil {
			return fmt.Errorf("failed to parse existing error log: %w", err)
		}
	case os.IsNotExist(err):
		// First run against this file.
	default:
		return fmt.Errorf("failed to read existing error log: %w", err)
	}

	merged := append(existing, l.records...)

	if err := os.MkdirAll(filepath.Dir(l.path), 0755); err != nil {
		return fmt.Errorf("failed to create error log directory: %w", err)
	}

	out, err := json.MarshalIndent(merged, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode error log: %w", err)
	}
	if err := os.WriteFile(l.path, out, 0644); err != nil {
		return fmt.Errorf("failed to write error log: %w", err)
	}
	return nil
}
