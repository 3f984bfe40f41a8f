package web

import (
	"bytes"
	"embed"
	"html/template"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"rentdesk/internal/calendar"
	"rentdesk/internal/ics"
	appLog "rentdesk/internal/log"
	"rentdesk/internal/model"
)

//go:embed templates/*.html
var templateFS embed.FS

var pageTemplates = template.Must(template.New("").Funcs(template.FuncMap{
	"cellClass": func(c calendar.Cell) string {
		switch c.Kind() {
		case calendar.CellBooked:
			return "booked " + string(c.BookingType)
		case calendar.CellToday:
			return "today"
		case calendar.CellInMonth:
			return "day"
		default:
			return "pad"
		}
	},
	"weekdayShort": func(d time.Weekday) string { return d.String()[:2] },
}).ParseFS(templateFS, "templates/*.html"))

type monthResponse struct {
	ObjectID string `json:"objectId"`
	calendar.Month
}

type yearResponse struct {
	ObjectID string           `json:"objectId"`
	Year     int              `json:"year"`
	Months   []calendar.Month `json:"months"`
}

// GET /api/objects/{id}/month?year=2025&month=7 (defaults to the current month)
func (s *Server) handleMonth(w http.ResponseWriter, r *http.Request) {
	obj, err := s.objects.Get(mux.Vars(r)["id"])
	if err != nil {
		writeStoreError(w, err)
		return
	}
	now := s.now().In(s.cal.Location)
	q := r.URL.Query()
	year := parseIntDefault(q.Get("year"), now.Year())
	if !validYear(year) {
		writeError(w, http.StatusBadRequest, "year out of range")
		return
	}
	month := parseIntDefault(q.Get("month"), int(now.Month()))
	if month < 1 || month > 12 {
		writeError(w, http.StatusBadRequest, "month must be 1-12")
		return
	}
	writeJSON(w, http.StatusOK, monthResponse{
		ObjectID: obj.ID,
		Month:    s.cal.Month(year, time.Month(month), obj.BookingRanges, now),
	})
}

// GET /api/objects/{id}/year?year=2025
func (s *Server) handleYear(w http.ResponseWriter, r *http.Request) {
	obj, year, ok := s.objectAndYear(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, yearResponse{
		ObjectID: obj.ID,
		Year:     year,
		Months:   s.cal.YearView(year, obj.BookingRanges, s.now()),
	})
}

// GET /api/objects/{id}/calendar.ics
func (s *Server) handleICS(w http.ResponseWriter, r *http.Request) {
	obj, err := s.objects.Get(mux.Vars(r)["id"])
	if err != nil {
		writeStoreError(w, err)
		return
	}
	body := ics.Export(obj, s.cal.Location, s.now())
	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `inline; filename="`+obj.ID+`.ics"`)
	_, _ = w.Write([]byte(body))
}

type yearPage struct {
	Object model.RentalObject
	Year   int
	Months []calendar.Month
	Stats  yearStats
}

type yearStats struct {
	Confirmed int
	Tentative int
}

// GET /objects/{id}/year renders the printable year overview. The root
// element carries data-ready="true" once rendered, which screenshot capture
// waits for.
func (s *Server) handleYearPage(w http.ResponseWriter, r *http.Request) {
	obj, year, ok := s.objectAndYear(w, r)
	if !ok {
		return
	}

	page := yearPage{
		Object: obj,
		Year:   year,
		Months: s.cal.YearView(year, obj.BookingRanges, s.now()),
	}
	for _, br := range s.cal.RangesStartingIn(year, obj.BookingRanges) {
		if br.Type == model.BookingTentative {
			page.Stats.Tentative++
		} else {
			page.Stats.Confirmed++
		}
	}

	var buf bytes.Buffer
	if err := pageTemplates.ExecuteTemplate(&buf, "year.html", page); err != nil {
		appLog.Error("year page render failed", err, "object", obj.ID)
		http.Error(w, "render failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) objectAndYear(w http.ResponseWriter, r *http.Request) (model.RentalObject, int, bool) {
	obj, err := s.objects.Get(mux.Vars(r)["id"])
	if err != nil {
		writeStoreError(w, err)
		return model.RentalObject{}, 0, false
	}
	year := parseIntDefault(r.URL.Query().Get("year"), s.now().In(s.cal.Location).Year())
	if !validYear(year) {
		writeError(w, http.StatusBadRequest, "year out of range")
		return model.RentalObject{}, 0, false
	}
	return obj, year, true
}

// validYear bounds year query parameters to four-digit years.
func validYear(year int) bool {
	return year >= 1 && year <= 9999
}
