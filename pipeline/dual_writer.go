// Package pipeline writes new-item notifications to output files.
package pipeline

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"github.com/aluiziolira/go-catalog-watch/models"
)

// DualWriter writes every batch to a CSV file and a JSONL file.
type DualWriter struct {
	csv  *CSVWriter
	json *JSONWriter
	mu   sync.Mutex
}

// NewDualWriter opens both outputs. If the JSONL file cannot be created the
// CSV file is closed again.
func NewDualWriter(csvFilename, jsonFilename string) (*DualWriter, error) {
	cw, err := NewCSVWriter(csvFilename)
	if err != nil {
		return nil, fmt.Errorf("csv output: %w", err)
	}
	jw, err := NewJSONWriter(jsonFilename)
	if err != nil {
		cw.Close()
		return nil, fmt.Errorf("json output: %w", err)
	}
	return &DualWriter{csv: cw, json: jw}, nil
}

// Write appends notifications to the CSV file first, then the JSONL file.
func (dw *DualWriter) Write(notifications []*models.Notification) error {
	dw.mu.Lock()
	defer dw.mu.Unlock()

	if err := dw.csv.Write(notifications); err != nil {
		return fmt.Errorf("csv output: %w", err)
	}
	if err := dw.json.Write(notifications); err != nil {
		return fmt.Errorf("json output: %w", err)
	}
	return nil
}

// Close closes both files and joins their errors.
func (dw *DualWriter) Close() error {
	dw.mu.Lock()
	defer dw.mu.Unlock()
	return errors.Join(dw.csv.Close(), dw.json.Close())
}

// Validate checks that both files were appended to.
func (dw *DualWriter) Validate() error {
	return errors.Join(dw.csv.Validate(), dw.json.Validate())
}

// NewWriter opens the writer for format. For "dual" the CSV file shares
// filename's stem with a .csv extension and the JSONL file keeps filename.
func NewWriter(format, filename string) (OutputWriter, error) {
	switch format {
	case "csv":
		return NewCSVWriter(filename)
	case "json", "":
		return NewJSONWriter(filename)
	case "dual":
		stem := strings.TrimSuffix(filename, filepath.Ext(filename))
		return NewDualWriter(stem+".csv", filename)
	default:
		return nil, fmt.Errorf("unknown output format %q", format)
	}
}
