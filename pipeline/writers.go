package pipeline

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/aluiziolira/go-catalog-watch/models"
)

var csvHeader = []string{"watch", "id", "title", "brand", "size", "price", "currency", "url", "seller", "seen_at"}

// outputFile is an append-only log shared across restarts of the watcher.
type outputFile struct {
	name  string
	f     *os.File
	start int64 // size when opened
}

func openOutput(filename string) (*outputFile, error) {
	if dir := filepath.Dir(filename); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	f, err := os.OpenFile(filename, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", filename, err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("stat %s: %w", filename, err)
	}
	return &outputFile{name: filename, f: f, start: info.Size()}, nil
}

// grew reports an error unless something was appended since the file was opened.
func (o *outputFile) grew() error {
	info, err := o.f.Stat()
	if err != nil {
		return fmt.Errorf("stat %s: %w", o.name, err)
	}
	if info.Size() <= o.start {
		return fmt.Errorf("%s: no records appended", o.name)
	}
	return nil
}

// CSVWriter appends one row per notification. The header is written only
// when the file starts out empty.
type CSVWriter struct {
	mu  sync.Mutex
	out *outputFile
	csv *csv.Writer
}

// NewCSVWriter opens filename for appending.
func NewCSVWriter(filename string) (*CSVWriter, error) {
	out, err := openOutput(filename)
	if err != nil {
		return nil, err
	}
	cw := &CSVWriter{out: out, csv: csv.NewWriter(out.f)}
	if out.start == 0 {
		if err := cw.flush(csvHeader); err != nil {
			out.f.Close()
			return nil, fmt.Errorf("csv header: %w", err)
		}
		// The header alone does not count as output from this run.
		info, err := out.f.Stat()
		if err != nil {
			out.f.Close()
			return nil, fmt.Errorf("stat %s: %w", filename, err)
		}
		out.start = info.Size()
	}
	return cw, nil
}

// Write appends notifications as CSV rows.
func (cw *CSVWriter) Write(notifications []*models.Notification) error {
	cw.mu.Lock()
	defer cw.mu.Unlock()

	rows := make([][]string, 0, len(notifications))
	for _, n := range notifications {
		rows = append(rows, csvRow(n))
	}
	return cw.flush(rows...)
}

func (cw *CSVWriter) flush(rows ...[]string) error {
	if err := cw.csv.WriteAll(rows); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}
	return nil
}

func csvRow(n *models.Notification) []string {
	return []string{
		n.Watch,
		strconv.FormatInt(n.Item.ID, 10),
		n.Item.Title,
		n.Item.BrandTitle,
		n.Item.SizeTitle,
		n.Item.Price,
		n.Item.Currency,
		n.Item.URL,
		n.Item.User.Login,
		n.SeenAt.UTC().Format(time.RFC3339),
	}
}

// Close closes the file. Rows are flushed on every Write.
func (cw *CSVWriter) Close() error {
	cw.mu.Lock()
	defer cw.mu.Unlock()
	return cw.out.f.Close()
}

// Validate reports an error when no rows were appended since the file was opened.
func (cw *CSVWriter) Validate() error {
	return cw.out.grew()
}

// JSONWriter appends newline-delimited JSON, one notification per line.
type JSONWriter struct {
	mu  sync.Mutex
	out *outputFile
	buf *bufio.Writer
	enc *json.Encoder
}

// NewJSONWriter opens filename for appending.
func NewJSONWriter(filename string) (*JSONWriter, error) {
	out, err := openOutput(filename)
	if err != nil {
		return nil, err
	}
	buf := bufio.NewWriter(out.f)
	return &JSONWriter{out: out, buf: buf, enc: json.NewEncoder(buf)}, nil
}

// Write appends one JSON line per notification and flushes the batch.
func (jw *JSONWriter) Write(notifications []*models.Notification) error {
	jw.mu.Lock()
	defer jw.mu.Unlock()

	for _, n := range notifications {
		if err := jw.enc.Encode(n); err != nil {
			return fmt.Errorf("encode item %d: %w", n.Item.ID, err)
		}
	}
	if err := jw.buf.Flush(); err != nil {
		return fmt.Errorf("flush json lines: %w", err)
	}
	return nil
}

// Close flushes anything buffered and closes the file.
func (jw *JSONWriter) Close() error {
	jw.mu.Lock()
	defer jw.mu.Unlock()

	if err := jw.buf.Flush(); err != nil {
		jw.out.f.Close()
		return fmt.Errorf("flush json lines: %w", err)
	}
	return jw.out.f.Close()
}

// Validate reports an error when no lines were appended since the file was opened.
func (jw *JSONWriter) Validate() error {
	return jw.out.grew()
}
