// Package testutil provides canned API payloads and a fake API server
package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"sort"
	"strings"
	"sync"
	"testing"
)

// Fuel is one generation mix entry of a fixture region
type Fuel struct {
	Fuel string  `json:"fuel"`
	Perc float64 `json:"perc"`
}

// Region describes one region of a regional payload
type Region struct {
	ID       int
	Name     string
	DNO      string
	Forecast float64
	Index    string
	Mix      []Fuel
}

// Point is one entry of a series payload. A nil Forecast omits the value.
type Point struct {
	From     string
	To       string
	Forecast *float64
}

// F returns a pointer to v
func F(v float64) *float64 {
	return &v
}

var aggregateNames = map[int]string{
	15: "England",
	16: "Scotland",
	17: "Wales",
	18: "GB",
	19: "GB",
	20: "GB",
}

// Regions returns fixtures for ids 1..n. Ids above 14 are named like the
// national aggregates the API appends to regional responses.
func Regions(n int) []Region {
	out := make([]Region, 0, n)
	for id := 1; id <= n; id++ {
		name, ok := aggregateNames[id]
		if !ok {
			name = "Region " + itoa(id)
		}
		out = append(out, Region{
			ID:       id,
			Name:     name,
			DNO:      "DNO " + itoa(id),
			Forecast: float64(id * 20),
			Index:    "moderate",
			Mix: []Fuel{
				{Fuel: "gas", Perc: float64(id)},
				{Fuel: "wind", Perc: float64(100 - id)},
				{Fuel: "coal", Perc: 0},
			},
		})
	}
	return out
}

func itoa(i int) string {
	b, _ := json.Marshal(i)
	return string(b)
}

// RegionalPayload renders a /regional style body with one snapshot
func RegionalPayload(from, to string, regions ...Region) []byte {
	items := make([]map[string]any, 0, len(regions))
	for _, r := range regions {
		mix := r.Mix
		if mix == nil {
			mix = []Fuel{}
		}
		items = append(items, map[string]any{
			"regionid":  r.ID,
			"shortname": r.Name,
			"dnoregion": r.DNO,
			"intensity": map[string]any{
				"forecast": r.Forecast,
				"index":    r.Index,
			},
			"generationmix": mix,
		})
	}
	return mustMarshal(map[string]any{
		"data": []any{
			map[string]any{"from": from, "to": to, "regions": items},
		},
	})
}

// EmptyRegionalPayload renders a well-formed body without snapshots
func EmptyRegionalPayload() []byte {
	return []byte(`{"data":[]}`)
}

// SeriesPayload renders a single-region series body
func SeriesPayload(regionID int, name string, points ...Point) []byte {
	data := make([]map[string]any, 0, len(points))
	for _, p := range points {
		in := map[string]any{"index": "moderate"}
		if p.Forecast != nil {
			in["forecast"] = *p.Forecast
		}
		data = append(data, map[string]any{
			"from":      p.From,
			"to":        p.To,
			"intensity": in,
		})
	}
	return mustMarshal(map[string]any{
		"data": map[string]any{
			"regionid":  regionID,
			"shortname": name,
			"data":      data,
		},
	})
}

func mustMarshal(v any) []byte {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return b
}

// FakeAPI is an httptest server with static routes. Exact paths win over
// prefixes; the longest matching prefix is used otherwise.
type FakeAPI struct {
	*httptest.Server

	mu       sync.Mutex
	exact    map[string]http.HandlerFunc
	prefixes map[string]http.HandlerFunc
	requests []string
}

// NewFakeAPI starts a fake API that is closed when the test ends
func NewFakeAPI(t *testing.T) *FakeAPI {
	t.Helper()

	f := &FakeAPI{
		exact:    make(map[string]http.HandlerFunc),
		prefixes: make(map[string]http.HandlerFunc),
	}
	f.Server = httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(f.Server.Close)
	return f
}

// Handle serves body with status for an exact path
func (f *FakeAPI) Handle(path string, status int, body []byte) {
	f.HandleFunc(path, respond(status, body))
}

// HandleFunc registers h for an exact path
func (f *FakeAPI) HandleFunc(path string, h http.HandlerFunc) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.exact[path] = h
}

// HandlePrefix serves body with status for every path below prefix
func (f *FakeAPI) HandlePrefix(prefix string, status int, body []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prefixes[prefix] = respond(status, body)
}

// Requests returns the paths requested so far
func (f *FakeAPI) Requests() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.requests))
	copy(out, f.requests)
	return out
}

func (f *FakeAPI) serve(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	f.requests = append(f.requests, r.URL.Path)
	h, ok := f.exact[r.URL.Path]
	if !ok {
		h = f.matchPrefix(r.URL.Path)
	}
	f.mu.Unlock()

	if h == nil {
		http.NotFound(w, r)
		return
	}
	h(w, r)
}

func (f *FakeAPI) matchPrefix(path string) http.HandlerFunc {
	keys := make([]string, 0, len(f.prefixes))
	for k := range f.prefixes {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return len(keys[i]) > len(keys[j]) })
	for _, k := range keys {
		if strings.HasPrefix(path, k) {
			return f.prefixes[k]
		}
	}
	return nil
}

func respond(status int, body []byte) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write(body)
	}
}

// TempFilePath returns a cross-platform temporary file path
// with the given pattern. Does not create the file.
func TempFilePath(t *testing.T, pattern string) string {
	t.Helper()

	tmpFile, err := os.CreateTemp("", pattern)
	if err != nil {
		t.Fatalf("Failed to create temp file: %v", err)
	}

	path := tmpFile.Name()
	tmpFile.Close()
	os.Remove(path) // Remove immediately, just need the path

	return path
}
