package web

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"rentdesk/internal/config"
	"rentdesk/internal/kvstore"
	"rentdesk/internal/model"
	"rentdesk/internal/rental"
	"rentdesk/internal/snippet"
)

type fixture struct {
	srv     *Server
	handler http.Handler
	objects *rental.Store
}

func newFixture(t *testing.T, mutate func(*config.Config)) fixture {
	t.Helper()
	dir := t.TempDir()
	cfg := config.DefaultConfig()
	cfg.DataDir = dir
	cfg.Timezone = "UTC"
	cfg.WeekStart = "monday"
	if mutate != nil {
		mutate(cfg)
	}
	cfg.Normalize()

	kv, err := kvstore.Open(cfg.StatePath())
	if err != nil {
		t.Fatalf("kvstore.Open: %v", err)
	}
	objects := rental.NewStore(kv, nil, cfg.Location())
	snippets := snippet.NewStore(cfg.SnippetsPath())

	s := NewServer(cfg, objects, snippets)
	s.now = func() time.Time { return time.Date(2025, time.July, 15, 9, 0, 0, 0, time.UTC) }
	return fixture{srv: s, handler: s.Handler(), objects: objects}
}

func (f fixture) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rec.Body).Decode(&v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return v
}

func TestHealth(t *testing.T) {
	f := newFixture(t, nil)
	rec := f.do(t, http.MethodGet, "/health", nil)
	if rec.Code != http.StatusOK || rec.Body.String() != "OK" {
		t.Fatalf("health = %d %q", rec.Code, rec.Body.String())
	}
}

func TestObjectBookingFlow(t *testing.T) {
	f := newFixture(t, nil)

	rec := f.do(t, http.MethodPost, "/api/objects", map[string]any{"title": "Sea view", "latitude": 12.9, "longitude": 100.8})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create = %d %s", rec.Code, rec.Body)
	}
	obj := decode[model.RentalObject](t, rec)

	path := "/api/objects/" + obj.ID + "/bookings"
	rec = f.do(t, http.MethodPost, path, map[string]string{"startDate": "2025-07-01", "endDate": "2025-07-05"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("book = %d %s", rec.Code, rec.Body)
	}
	first := decode[model.BookingRange](t, rec)
	if first.Type != model.BookingConfirmed {
		t.Fatalf("default type = %s", first.Type)
	}

	// Touching the last day conflicts.
	rec = f.do(t, http.MethodPost, path, map[string]string{"startDate": "2025-07-05", "endDate": "2025-07-08", "type": "tentative"})
	if rec.Code != http.StatusConflict {
		t.Fatalf("overlap = %d %s", rec.Code, rec.Body)
	}

	rec = f.do(t, http.MethodGet, "/api/objects/"+obj.ID, nil)
	if got := decode[model.RentalObject](t, rec); got.Status != model.StatusRented {
		t.Fatalf("status = %s", got.Status)
	}

	rec = f.do(t, http.MethodDelete, path+"/"+first.ID, nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("unbook = %d", rec.Code)
	}
	rec = f.do(t, http.MethodDelete, path+"/"+first.ID, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("unbook twice = %d", rec.Code)
	}
}

func TestBookingValidation(t *testing.T) {
	f := newFixture(t, nil)
	obj := f.objects.Create("x", "", model.Coordinate{})
	path := "/api/objects/" + obj.ID + "/bookings"

	cases := []map[string]string{
		{"startDate": "07/01/2025", "endDate": "2025-07-02"},
		{"startDate": "2025-07-01"},
		{"startDate": "2025-07-01", "endDate": "2025-07-02", "type": "maybe"},
		{"startDate": "2025-07-03", "endDate": "2025-07-01"},
	}
	for _, body := range cases {
		if rec := f.do(t, http.MethodPost, path, body); rec.Code != http.StatusBadRequest {
			t.Errorf("%v = %d %s", body, rec.Code, rec.Body)
		}
	}

	if rec := f.do(t, http.MethodPost, "/api/objects/missing/bookings", map[string]string{"startDate": "2025-07-01", "endDate": "2025-07-01"}); rec.Code != http.StatusNotFound {
		t.Fatalf("unknown object = %d", rec.Code)
	}
}

func TestPatchObject(t *testing.T) {
	f := newFixture(t, nil)
	obj := f.objects.Create("old", "", model.Coordinate{})
	f.objects.UpdateDetails(obj.ID, 40, 3)

	rec := f.do(t, http.MethodPatch, "/api/objects/"+obj.ID, map[string]any{"title": "new", "floor": 9})
	if rec.Code != http.StatusOK {
		t.Fatalf("patch = %d %s", rec.Code, rec.Body)
	}
	got := decode[model.RentalObject](t, rec)
	if got.Title != "new" || got.Area != 40 || got.Floor != 9 {
		t.Fatalf("patched = %+v", got)
	}

	if rec := f.do(t, http.MethodPatch, "/api/objects/"+obj.ID, map[string]any{"colour": "red"}); rec.Code != http.StatusBadRequest {
		t.Fatalf("unknown field = %d", rec.Code)
	}
}

func TestMonthAndYearViews(t *testing.T) {
	f := newFixture(t, nil)
	obj := f.objects.Create("Loft", "", model.Coordinate{})
	day := func(m time.Month, d int) time.Time { return time.Date(2025, m, d, 0, 0, 0, 0, time.UTC) }
	f.objects.AddBooking(obj.ID, day(time.July, 10), day(time.July, 12), model.BookingTentative)
	f.objects.AddBooking(obj.ID, day(time.December, 30), day(time.December, 31), model.BookingConfirmed)

	rec := f.do(t, http.MethodGet, "/api/objects/"+obj.ID+"/month?year=2025&month=7", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("month = %d", rec.Code)
	}
	var month struct {
		Cells []struct {
			Day         int    `json:"day"`
			InMonth     bool   `json:"inMonth"`
			Today       bool   `json:"today"`
			Booked      bool   `json:"booked"`
			BookingType string `json:"bookingType"`
		} `json:"cells"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&month); err != nil {
		t.Fatal(err)
	}
	if len(month.Cells) != 42 {
		t.Fatalf("cells = %d", len(month.Cells))
	}
	var booked, today int
	for _, c := range month.Cells {
		if c.Booked && c.InMonth {
			booked++
			if c.BookingType != "tentative" {
				t.Errorf("day %d type %q", c.Day, c.BookingType)
			}
		}
		if c.Today {
			today++
		}
	}
	if booked != 3 || today != 1 {
		t.Fatalf("booked=%d today=%d", booked, today)
	}

	if rec := f.do(t, http.MethodGet, "/api/objects/"+obj.ID+"/month?month=13", nil); rec.Code != http.StatusBadRequest {
		t.Fatalf("month=13 = %d", rec.Code)
	}
	for _, view := range []string{"month", "year"} {
		for _, y := range []string{"0", "10000", "-3"} {
			if rec := f.do(t, http.MethodGet, "/api/objects/"+obj.ID+"/"+view+"?year="+y, nil); rec.Code != http.StatusBadRequest {
				t.Fatalf("%s year=%s = %d", view, y, rec.Code)
			}
		}
	}

	rec = f.do(t, http.MethodGet, "/api/objects/"+obj.ID+"/year?year=2025", nil)
	var year struct {
		Months []json.RawMessage `json:"months"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&year); err != nil || len(year.Months) != 12 {
		t.Fatalf("year months = %d err=%v", len(year.Months), err)
	}

	rec = f.do(t, http.MethodGet, "/objects/"+obj.ID+"/year?year=2025", nil)
	page := rec.Body.String()
	if rec.Code != http.StatusOK || !strings.Contains(page, `data-ready="true"`) || !strings.Contains(page, "1 confirmed, 1 tentative") {
		t.Fatalf("year page = %d\n%s", rec.Code, page)
	}
}

func TestCalendarICS(t *testing.T) {
	f := newFixture(t, nil)
	obj := f.objects.Create("Loft", "", model.Coordinate{})
	r, _ := f.objects.AddBooking(obj.ID, time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC), time.Date(2025, 7, 2, 0, 0, 0, 0, time.UTC), model.BookingConfirmed)

	rec := f.do(t, http.MethodGet, "/api/objects/"+obj.ID+"/calendar.ics", nil)
	if rec.Code != http.StatusOK || !strings.HasPrefix(rec.Header().Get("Content-Type"), "text/calendar") {
		t.Fatalf("ics = %d %s", rec.Code, rec.Header().Get("Content-Type"))
	}
	if !strings.Contains(rec.Body.String(), "UID:"+r.ID+"@rentdesk") {
		t.Fatalf("ics body:\n%s", rec.Body)
	}
}

func TestSnippetsAPI(t *testing.T) {
	f := newFixture(t, nil)
	for _, title := range []string{"Welcome", "checkout", "Address"} {
		rec := f.do(t, http.MethodPost, "/api/snippets", map[string]any{"title": title, "content": title + " text", "tags": []string{"guest"}})
		if rec.Code != http.StatusCreated {
			t.Fatalf("create %s = %d %s", title, rec.Code, rec.Body)
		}
	}

	list := decode[[]model.Snippet](t, f.do(t, http.MethodGet, "/api/snippets", nil))
	if len(list) != 3 || list[0].Title != "Address" || list[1].Title != "checkout" || list[2].Title != "Welcome" {
		t.Fatalf("order = %+v", list)
	}

	found := decode[[]model.Snippet](t, f.do(t, http.MethodGet, "/api/snippets?q=CHECK", nil))
	if len(found) != 1 || found[0].Title != "checkout" {
		t.Fatalf("search = %+v", found)
	}

	id := list[0].ID
	rec := f.do(t, http.MethodPut, "/api/snippets/"+id, map[string]any{"title": "Address", "content": "Soi 5"})
	if rec.Code != http.StatusOK {
		t.Fatalf("update = %d", rec.Code)
	}
	if got := decode[model.Snippet](t, f.do(t, http.MethodGet, "/api/snippets/"+id, nil)); got.Content != "Soi 5" {
		t.Fatalf("content = %q", got.Content)
	}

	if rec := f.do(t, http.MethodPost, "/api/snippets", map[string]any{"content": "no title"}); rec.Code != http.StatusBadRequest {
		t.Fatalf("missing title = %d", rec.Code)
	}
	if rec := f.do(t, http.MethodDelete, "/api/snippets/"+id, nil); rec.Code != http.StatusNoContent {
		t.Fatalf("delete = %d", rec.Code)
	}
	if rec := f.do(t, http.MethodGet, "/api/snippets/"+id, nil); rec.Code != http.StatusNotFound {
		t.Fatalf("get deleted = %d", rec.Code)
	}
}

func TestCamera(t *testing.T) {
	f := newFixture(t, nil)
	if rec := f.do(t, http.MethodGet, "/api/camera", nil); rec.Code != http.StatusNotFound {
		t.Fatalf("empty camera = %d", rec.Code)
	}
	body := map[string]float64{"latitude": 12.9, "longitude": 100.8, "latitudeDelta": 0.1, "longitudeDelta": 0.1}
	if rec := f.do(t, http.MethodPut, "/api/camera", body); rec.Code != http.StatusOK {
		t.Fatalf("put camera = %d", rec.Code)
	}
	if got := decode[model.CameraState](t, f.do(t, http.MethodGet, "/api/camera", nil)); got.Latitude != 12.9 {
		t.Fatalf("camera = %+v", got)
	}
	body["latitude"] = 95
	if rec := f.do(t, http.MethodPut, "/api/camera", body); rec.Code != http.StatusBadRequest {
		t.Fatalf("bad latitude = %d", rec.Code)
	}
}

func TestBasicAuth(t *testing.T) {
	f := newFixture(t, func(c *config.Config) {
		c.BasicAuth = &config.BasicAuthConfig{Username: "owner", Password: "pw"}
	})

	if rec := f.do(t, http.MethodGet, "/health", nil); rec.Code != http.StatusOK {
		t.Fatalf("health behind auth = %d", rec.Code)
	}
	if rec := f.do(t, http.MethodGet, "/api/objects", nil); rec.Code != http.StatusUnauthorized {
		t.Fatalf("no creds = %d", rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/objects", nil)
	req.SetBasicAuth("owner", "pw")
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("with creds = %d", rec.Code)
	}
}

func TestCORS(t *testing.T) {
	f := newFixture(t, func(c *config.Config) {
		c.CORSOrigins = []string{"http://localhost:5173"}
	})
	req := httptest.NewRequest(http.MethodOptions, "/api/objects", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:5173" {
		t.Fatalf("allow-origin = %q", got)
	}
}

func TestListFilter(t *testing.T) {
	f := newFixture(t, nil)
	a := f.objects.Create("a", "", model.Coordinate{})
	b := f.objects.Create("b", "", model.Coordinate{})
	f.objects.UpdateDetails(a.ID, 30, 1)
	f.objects.UpdateDetails(b.ID, 80, 12)

	list := decode[[]model.RentalObject](t, f.do(t, http.MethodGet, "/api/objects?minArea=50", nil))
	if len(list) != 1 || list[0].ID != b.ID {
		t.Fatalf("filtered = %+v", list)
	}
	stats := decode[rental.Stats](t, f.do(t, http.MethodGet, "/api/stats", nil))
	if stats.Objects != 2 {
		t.Fatalf("stats = %+v", stats)
	}
}
