package status

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/aluiziolira/go-catalog-watch/models"
	"github.com/aluiziolira/go-catalog-watch/scraper"
)

type fakePoller struct {
	status scraper.Status
}

func (f fakePoller) Status() scraper.Status { return f.status }

func seen(watch string, id int64) models.Notification {
	return models.Notification{
		Watch:  watch,
		Item:   models.Item{ID: id, Title: "item", Price: "1.00"},
		SeenAt: time.Date(2025, 11, 4, 13, 0, 0, 0, time.UTC),
	}
}

func TestRecentListNewestFirst(t *testing.T) {
	r, err := NewRecent(3)
	if err != nil {
		t.Fatalf("new recent: %v", err)
	}
	for id := int64(1); id <= 5; id++ {
		if err := r.Notify(seen("shoes", id)); err != nil {
			t.Fatalf("notify: %v", err)
		}
	}

	got := r.List(0)
	if len(got) != 3 {
		t.Fatalf("len = %d, want 3", len(got))
	}
	want := []int64{5, 4, 3}
	for i, n := range got {
		if n.Item.ID != want[i] {
			t.Fatalf("position %d id = %d, want %d", i, n.Item.ID, want[i])
		}
	}

	if got := r.List(2); len(got) != 2 || got[0].Item.ID != 5 {
		t.Fatalf("limited list = %+v", got)
	}
}

func TestRecentKeysAreScopedByWatch(t *testing.T) {
	r, err := NewRecent(10)
	if err != nil {
		t.Fatalf("new recent: %v", err)
	}
	_ = r.Notify(seen("shoes", 1))
	_ = r.Notify(seen("coats", 1))
	_ = r.Notify(seen("shoes", 1))

	if r.Len() != 2 {
		t.Fatalf("len = %d, want 2", r.Len())
	}
}

func TestNewRecentRejectsZeroSize(t *testing.T) {
	if _, err := NewRecent(0); err == nil {
		t.Fatal("expected error for zero size")
	}
}

func TestHealthz(t *testing.T) {
	tests := []struct {
		name    string
		pollers []Provider
		want    int
	}{
		{
			name: "all running",
			pollers: []Provider{
				fakePoller{scraper.Status{Watch: "a", State: scraper.StateRunning}},
				fakePoller{scraper.Status{Watch: "b", State: scraper.StateRunning}},
			},
			want: http.StatusOK,
		},
		{
			name: "one failed",
			pollers: []Provider{
				fakePoller{scraper.Status{Watch: "a", State: scraper.StateRunning}},
				fakePoller{scraper.Status{Watch: "b", State: scraper.StateFailed, Error: "proxy pool exhausted"}},
			},
			want: http.StatusServiceUnavailable,
		},
		{
			name:    "still starting",
			pollers: []Provider{fakePoller{scraper.Status{Watch: "a", State: scraper.StateStarting}}},
			want:    http.StatusServiceUnavailable,
		},
		{
			name: "no pollers",
			want: http.StatusServiceUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := NewServer(":0", nil, nil, tt.pollers)
			rec := httptest.NewRecorder()
			srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

			if rec.Code != tt.want {
				t.Fatalf("code = %d, want %d", rec.Code, tt.want)
			}
			var body healthResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if len(body.Pollers) != len(tt.pollers) {
				t.Fatalf("pollers = %d, want %d", len(body.Pollers), len(tt.pollers))
			}
		})
	}
}

func TestRecentEndpoint(t *testing.T) {
	r, err := NewRecent(10)
	if err != nil {
		t.Fatalf("new recent: %v", err)
	}
	_ = r.Notify(seen("shoes", 10))
	_ = r.Notify(seen("shoes", 11))

	srv := NewServer(":0", nil, r, nil)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/recent?limit=1", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("code = %d, want 200", rec.Code)
	}
	var got []models.Notification
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got) != 1 || got[0].Item.ID != 11 {
		t.Fatalf("recent = %+v, want [11]", got)
	}

	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/recent?limit=x", nil))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("bad limit code = %d, want 400", rec.Code)
	}
}

func TestRecentEndpointEmpty(t *testing.T) {
	srv := NewServer(":0", nil, nil, nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/recent", nil))
	if strings.TrimSpace(rec.Body.String()) != "[]" {
		t.Fatalf("body = %q, want []", rec.Body.String())
	}
}

func TestMetricsEndpoint(t *testing.T) {
	m := scraper.NewMetrics()
	m.AddNewItems("shoes", 3)

	srv := NewServer(":0", m.Registry, nil, nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("code = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `catalog_watch_new_items_total{watch="shoes"} 3`) {
		t.Fatalf("metrics body missing new items counter:\n%s", rec.Body.String())
	}
}
