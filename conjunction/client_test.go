package conjunction

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

var testLogger = slog.New(slog.NewJSONHandler(io.Discard, nil))

func themisSwarmSearch() SearchRequest {
	return SearchRequest{
		Start:    time.Date(2019, 1, 1, 0, 0, 0, 0, time.UTC),
		End:      time.Date(2019, 1, 3, 23, 59, 59, 0, time.UTC),
		Distance: 500,
		Ground: []GroundCriteria{{
			Programs:  []string{"themis-asi"},
			Platforms: []string{"fort smith", "gillam"},
		}},
		Space: []SpaceCriteria{{
			Programs:   []string{"swarm"},
			Hemisphere: []string{"northern"},
		}},
	}
}

func TestSearch(t *testing.T) {
	var got map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/conjunctions/search" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("content type = %s", ct)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decoding request: %v", err)
		}
		json.NewEncoder(w).Encode(searchResponse{Events: []Event{{
			Start:         time.Date(2019, 1, 2, 10, 0, 0, 0, time.UTC),
			End:           time.Date(2019, 1, 2, 10, 4, 0, 0, time.UTC),
			MinDistanceKm: 312.4,
			ClosestEpoch:  time.Date(2019, 1, 2, 10, 2, 0, 0, time.UTC),
			Ground:        DataSource{Program: "themis-asi", Platform: "gillam"},
			Space:         DataSource{Program: "swarm", Platform: "swarma"},
		}}})
	}))
	defer server.Close()

	c := NewClient(server.URL, 5*time.Second, testLogger)
	events, err := c.Search(context.Background(), themisSwarmSearch())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("got %d events, want 1", len(events))
	}
	if events[0].MinDistanceKm != 312.4 {
		t.Errorf("min distance = %g, want 312.4", events[0].MinDistanceKm)
	}
	if events[0].Ground.Platform != "gillam" {
		t.Errorf("ground platform = %q", events[0].Ground.Platform)
	}

	if got["distance"] != 500.0 {
		t.Errorf("wire distance = %v, want 500", got["distance"])
	}
	ground := got["ground"].([]any)[0].(map[string]any)
	platforms := ground["platforms"].([]any)
	if len(platforms) != 2 || platforms[0] != "fort smith" {
		t.Errorf("wire ground platforms = %v", platforms)
	}
	space := got["space"].([]any)[0].(map[string]any)
	hemisphere := space["hemisphere"].([]any)
	if len(hemisphere) != 1 || hemisphere[0] != "northern" {
		t.Errorf("wire space hemisphere = %v", hemisphere)
	}
}

func TestSearchServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "search backend unavailable", http.StatusBadGateway)
	}))
	defer server.Close()

	c := NewClient(server.URL, 5*time.Second, testLogger)
	if _, err := c.Search(context.Background(), themisSwarmSearch()); err == nil {
		t.Fatal("expected an error for a 502 response")
	}
}

func TestSearchRequestValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*SearchRequest)
	}{
		{"zero distance", func(r *SearchRequest) { r.Distance = 0 }},
		{"negative distance", func(r *SearchRequest) { r.Distance = -5 }},
		{"no ground criteria", func(r *SearchRequest) { r.Ground = nil }},
		{"no space criteria", func(r *SearchRequest) { r.Space = nil }},
		{"missing start", func(r *SearchRequest) { r.Start = time.Time{} }},
		{"end before start", func(r *SearchRequest) { r.End = r.Start.Add(-time.Hour) }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := themisSwarmSearch()
			tc.mutate(&req)
			if err := req.Validate(); err == nil {
				t.Error("expected a validation error")
			}
		})
	}

	if err := themisSwarmSearch().Validate(); err != nil {
		t.Errorf("valid request rejected: %v", err)
	}
}
