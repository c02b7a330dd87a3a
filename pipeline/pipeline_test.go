package pipeline

import (
	"errors"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/aluiziolira/go-catalog-watch/models"
)

type mockWriter struct {
	mu          sync.Mutex
	batches     [][]*models.Notification
	closed      bool
	writeErr    error
	validateErr error
}

func (mw *mockWriter) Write(notifications []*models.Notification) error {
	mw.mu.Lock()
	defer mw.mu.Unlock()
	if mw.writeErr != nil {
		return mw.writeErr
	}
	copyBatch := make([]*models.Notification, len(notifications))
	copy(copyBatch, notifications)
	mw.batches = append(mw.batches, copyBatch)
	return nil
}

func (mw *mockWriter) Close() error {
	mw.mu.Lock()
	mw.closed = true
	mw.mu.Unlock()
	return nil
}

func (mw *mockWriter) Validate() error {
	return mw.validateErr
}

func (mw *mockWriter) written() []*models.Notification {
	mw.mu.Lock()
	defer mw.mu.Unlock()
	var all []*models.Notification
	for _, batch := range mw.batches {
		all = append(all, batch...)
	}
	return all
}

func notification(id int64, title, price string) models.Notification {
	return models.Notification{
		Watch: "shoes",
		Item: models.Item{
			ID:    id,
			Title: title,
			Price: price,
			URL:   "http://example.test/items/" + strconv.FormatInt(id, 10),
		},
		SeenAt: time.Date(2025, 11, 4, 13, 9, 13, 0, time.UTC),
	}
}

func TestPipelinePreservesOrder(t *testing.T) {
	writer := &mockWriter{}
	p := NewPipeline(writer)
	p.Start()

	for i := int64(1); i <= 100; i++ {
		if err := p.Notify(notification(i, "Item "+strconv.FormatInt(i, 10), "10.00")); err != nil {
			t.Fatalf("notify %d: %v", i, err)
		}
	}
	if err := p.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	got := writer.written()
	if len(got) != 100 {
		t.Fatalf("written = %d, want 100", len(got))
	}
	for i, n := range got {
		if n.Item.ID != int64(i+1) {
			t.Fatalf("position %d has id %d, want %d", i, n.Item.ID, i+1)
		}
	}
}

func TestPipelineDropsInvalidItems(t *testing.T) {
	writer := &mockWriter{}
	p := NewPipeline(writer)
	p.Start()

	inputs := []models.Notification{
		notification(1, "  Nike Air Max  ", "45.00 €"),
		notification(2, "", "12.00"),
		notification(0, "No id", "12.00"),
		notification(3, "No price", ""),
	}
	for _, n := range inputs {
		if err := p.Notify(n); err != nil {
			t.Fatalf("notify: %v", err)
		}
	}
	if err := p.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	got := writer.written()
	if len(got) != 1 {
		t.Fatalf("written = %d, want 1", len(got))
	}
	if got[0].Item.Title != "Nike Air Max" || got[0].Item.Price != "45.00" {
		t.Fatalf("item not normalised: %+v", got[0].Item)
	}

	metrics := p.GetMetrics()
	validation, ok := metrics["validation_errors"].(map[string]int)
	if !ok {
		t.Fatalf("expected validation errors map")
	}
	if validation["invalid_item"] != 3 {
		t.Fatalf("invalid_item = %d, want 3", validation["invalid_item"])
	}
	if metrics["written_items"].(int64) != 1 {
		t.Fatalf("written_items = %v, want 1", metrics["written_items"])
	}
}

func TestPipelineNotifyAfterClose(t *testing.T) {
	p := NewPipeline(&mockWriter{})
	p.Start()
	if err := p.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	if err := p.Notify(notification(1, "Late", "1.00")); !errors.Is(err, ErrPipelineClosed) {
		t.Fatalf("notify after close = %v, want ErrPipelineClosed", err)
	}
}

func TestPipelineWriteErrorStopsPipeline(t *testing.T) {
	boom := errors.New("disk full")
	writer := &mockWriter{writeErr: boom}
	p := NewPipeline(writer)
	p.Start()

	if err := p.Notify(notification(1, "Item", "1.00")); err != nil {
		t.Fatalf("notify: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for p.Err() == nil {
		if time.Now().After(deadline) {
			t.Fatal("timed out waiting for write error")
		}
		time.Sleep(5 * time.Millisecond)
	}

	if err := p.Notify(notification(2, "Item", "1.00")); !errors.Is(err, boom) {
		t.Fatalf("notify after failure = %v, want %v", err, boom)
	}
	if err := p.Close(); !errors.Is(err, boom) {
		t.Fatalf("close = %v, want %v", err, boom)
	}
}

func TestPipelineStartIsIdempotent(t *testing.T) {
	writer := &mockWriter{}
	p := NewPipeline(writer)
	p.Start()
	p.Start()

	if err := p.Notify(notification(1, "Item", "1.00")); err != nil {
		t.Fatalf("notify: %v", err)
	}
	if err := p.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if got := len(writer.written()); got != 1 {
		t.Fatalf("written = %d, want 1", got)
	}
}

func TestPipelineCloseValidatesOutput(t *testing.T) {
	lost := errors.New("output file empty")

	tests := []struct {
		name    string
		inputs  []models.Notification
		wantErr bool
	}{
		{name: "written items are validated", inputs: []models.Notification{notification(1, "Item", "1.00")}, wantErr: true},
		{name: "nothing written skips validation", inputs: []models.Notification{notification(2, "", "1.00")}},
		{name: "no input", inputs: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewPipeline(&mockWriter{validateErr: lost})
			p.Start()
			for _, n := range tt.inputs {
				if err := p.Notify(n); err != nil {
					t.Fatalf("notify: %v", err)
				}
			}
			err := p.Close()
			if tt.wantErr && !errors.Is(err, lost) {
				t.Fatalf("close = %v, want %v", err, lost)
			}
			if !tt.wantErr && err != nil {
				t.Fatalf("close = %v, want nil", err)
			}
		})
	}
}
