package pipeline

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aluiziolira/go-catalog-watch/models"
)

func sampleNotification() *models.Notification {
	return &models.Notification{
		Watch: "shoes",
		Item: models.Item{
			ID:         4242,
			Title:      "Nike Air Max 90",
			Price:      "45.00",
			Currency:   "EUR",
			BrandTitle: "Nike",
			SizeTitle:  "42",
			URL:        "http://example.test/items/4242",
			User:       models.User{ID: 7, Login: "seller"},
		},
		SeenAt: time.Date(2025, 11, 4, 13, 9, 13, 0, time.UTC),
	}
}

func TestCSVWriterWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "items.csv")

	writer, err := NewCSVWriter(path)
	if err != nil {
		t.Fatalf("create csv writer: %v", err)
	}
	if err := writer.Write([]*models.Notification{sampleNotification()}); err != nil {
		t.Fatalf("write csv: %v", err)
	}
	if err := writer.Validate(); err != nil {
		t.Fatalf("validate csv: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close csv: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open csv: %v", err)
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("records=%d, want 2", len(records))
	}
	if records[0][0] != "watch" || records[0][1] != "id" {
		t.Fatalf("unexpected header: %v", records[0])
	}
	row := records[1]
	if row[0] != "shoes" || row[1] != "4242" || row[8] != "seller" || row[9] != "2025-11-04T13:09:13Z" {
		t.Fatalf("unexpected row: %v", row)
	}
}

func TestJSONWriterWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "items.jsonl")

	writer, err := NewJSONWriter(path)
	if err != nil {
		t.Fatalf("create json writer: %v", err)
	}
	second := sampleNotification()
	second.Item.ID = 4243
	if err := writer.Write([]*models.Notification{sampleNotification(), second}); err != nil {
		t.Fatalf("write json: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close json: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open json: %v", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	var ids []int64
	for scanner.Scan() {
		var decoded models.Notification
		if err := json.Unmarshal(scanner.Bytes(), &decoded); err != nil {
			t.Fatalf("invalid json line: %v", err)
		}
		if decoded.Watch != "shoes" {
			t.Fatalf("watch = %q, want shoes", decoded.Watch)
		}
		ids = append(ids, decoded.Item.ID)
	}
	if err := scanner.Err(); err != nil {
		t.Fatalf("scan json: %v", err)
	}
	if len(ids) != 2 || ids[0] != 4242 || ids[1] != 4243 {
		t.Fatalf("ids = %v, want [4242 4243]", ids)
	}
}

func TestJSONWriterValidateEmpty(t *testing.T) {
	writer, err := NewJSONWriter(filepath.Join(t.TempDir(), "empty.jsonl"))
	if err != nil {
		t.Fatalf("create json writer: %v", err)
	}
	defer writer.Close()

	if err := writer.Validate(); err == nil {
		t.Fatal("expected error for empty file")
	}
}

func TestDualWriterWrite(t *testing.T) {
	dir := t.TempDir()
	csvPath := filepath.Join(dir, "items.csv")
	jsonPath := filepath.Join(dir, "items.jsonl")

	writer, err := NewDualWriter(csvPath, jsonPath)
	if err != nil {
		t.Fatalf("create dual writer: %v", err)
	}
	if err := writer.Write([]*models.Notification{sampleNotification()}); err != nil {
		t.Fatalf("write dual: %v", err)
	}
	if err := writer.Validate(); err != nil {
		t.Fatalf("validate dual: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close dual: %v", err)
	}

	if info, err := os.Stat(csvPath); err != nil || info.Size() == 0 {
		t.Fatalf("csv file missing or empty")
	}
	if info, err := os.Stat(jsonPath); err != nil || info.Size() == 0 {
		t.Fatalf("json file missing or empty")
	}
}

func TestNewWriterFormats(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		format  string
		file    string
		want    []string
		wantErr bool
	}{
		{format: "json", file: "a.jsonl", want: []string{"a.jsonl"}},
		{format: "csv", file: "b.csv", want: []string{"b.csv"}},
		{format: "dual", file: "c.jsonl", want: []string{"c.jsonl", "c.csv"}},
		{format: "xml", file: "d.xml", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			w, err := NewWriter(tt.format, filepath.Join(dir, tt.file))
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("new writer: %v", err)
			}
			if err := w.Close(); err != nil {
				t.Fatalf("close: %v", err)
			}
			for _, name := range tt.want {
				if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
					t.Fatalf("expected %s to exist: %v", name, err)
				}
			}
		})
	}
}

func TestCSVWriterAppendsAcrossRestarts(t *testing.T) {
	path := filepath.Join(t.TempDir(), "items.csv")

	for run := 0; run < 2; run++ {
		writer, err := NewCSVWriter(path)
		if err != nil {
			t.Fatalf("run %d: create csv writer: %v", run, err)
		}
		if err := writer.Validate(); err == nil {
			t.Fatalf("run %d: validate before any row should fail", run)
		}
		n := sampleNotification()
		n.Item.ID = int64(100 + run)
		if err := writer.Write([]*models.Notification{n}); err != nil {
			t.Fatalf("run %d: write csv: %v", run, err)
		}
		if err := writer.Validate(); err != nil {
			t.Fatalf("run %d: validate: %v", run, err)
		}
		if err := writer.Close(); err != nil {
			t.Fatalf("run %d: close csv: %v", run, err)
		}
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open csv: %v", err)
	}
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("records = %d, want header + 2 rows: %v", len(records), records)
	}
	if records[0][0] != "watch" || records[1][1] != "100" || records[2][1] != "101" {
		t.Fatalf("unexpected records: %v", records)
	}
}

func TestJSONWriterAppendsAcrossRestarts(t *testing.T) {
	path := filepath.Join(t.TempDir(), "items.jsonl")

	for run := 0; run < 2; run++ {
		writer, err := NewJSONWriter(path)
		if err != nil {
			t.Fatalf("run %d: create json writer: %v", run, err)
		}
		n := sampleNotification()
		n.Item.ID = int64(200 + run)
		if err := writer.Write([]*models.Notification{n}); err != nil {
			t.Fatalf("run %d: write json: %v", run, err)
		}
		if err := writer.Close(); err != nil {
			t.Fatalf("run %d: close json: %v", run, err)
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read json: %v", err)
	}
	scanner := bufio.NewScanner(bytes.NewReader(data))
	var ids []int64
	for scanner.Scan() {
		var decoded models.Notification
		if err := json.Unmarshal(scanner.Bytes(), &decoded); err != nil {
			t.Fatalf("invalid json line: %v", err)
		}
		ids = append(ids, decoded.Item.ID)
	}
	if len(ids) != 2 || ids[0] != 200 || ids[1] != 201 {
		t.Fatalf("ids = %v, want [200 201]", ids)
	}
}
