package web

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"rentdesk/internal/booking"
	"rentdesk/internal/model"
	"rentdesk/internal/rental"
)

type createObjectRequest struct {
	Title       string  `json:"title" validate:"max=200"`
	Description string  `json:"description" validate:"max=5000"`
	Latitude    float64 `json:"latitude" validate:"gte=-90,lte=90"`
	Longitude   float64 `json:"longitude" validate:"gte=-180,lte=180"`
}

// patchObjectRequest updates only the fields that are present.
type patchObjectRequest struct {
	Title       *string `json:"title" validate:"omitempty,max=200"`
	Description *string `json:"description" validate:"omitempty,max=5000"`
	Area        *int    `json:"area" validate:"omitempty,gte=0"`
	Floor       *int    `json:"floor"`
}

type bookingRequest struct {
	StartDate string `json:"startDate" validate:"required,datetime=2006-01-02"`
	EndDate   string `json:"endDate" validate:"required,datetime=2006-01-02"`
	Type      string `json:"type" validate:"omitempty,oneof=confirmed tentative"`
}

type cameraRequest struct {
	Latitude       float64 `json:"latitude" validate:"gte=-90,lte=90"`
	Longitude      float64 `json:"longitude" validate:"gte=-180,lte=180"`
	LatitudeDelta  float64 `json:"latitudeDelta" validate:"gte=0"`
	LongitudeDelta float64 `json:"longitudeDelta" validate:"gte=0"`
}

// GET /api/objects?available=1&minArea=40&maxFloor=5
func (s *Server) handleListObjects(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var f rental.Filter
	f.OnlyAvailable = q.Get("available") == "1" || q.Get("available") == "true"
	if v, err := strconv.Atoi(q.Get("minArea")); err == nil {
		f.MinArea = &v
	}
	if v, err := strconv.Atoi(q.Get("maxFloor")); err == nil {
		f.MaxFloor = &v
	}
	writeJSON(w, http.StatusOK, s.objects.Filter(f))
}

func (s *Server) handleCreateObject(w http.ResponseWriter, r *http.Request) {
	var req createObjectRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	obj := s.objects.Create(req.Title, req.Description, model.Coordinate{Latitude: req.Latitude, Longitude: req.Longitude})
	writeJSON(w, http.StatusCreated, obj)
}

func (s *Server) handleGetObject(w http.ResponseWriter, r *http.Request) {
	obj, err := s.objects.Get(mux.Vars(r)["id"])
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, obj)
}

func (s *Server) handlePatchObject(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	var req patchObjectRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	obj, err := s.objects.Get(id)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	if req.Title != nil {
		if err := s.objects.UpdateTitle(id, *req.Title); err != nil {
			writeStoreError(w, err)
			return
		}
	}
	if req.Description != nil {
		if err := s.objects.UpdateDescription(id, *req.Description); err != nil {
			writeStoreError(w, err)
			return
		}
	}
	if req.Area != nil || req.Floor != nil {
		area, floor := obj.Area, obj.Floor
		if req.Area != nil {
			area = *req.Area
		}
		if req.Floor != nil {
			floor = *req.Floor
		}
		if err := s.objects.UpdateDetails(id, area, floor); err != nil {
			writeStoreError(w, err)
			return
		}
	}

	obj, err = s.objects.Get(id)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, obj)
}

func (s *Server) handleDeleteObject(w http.ResponseWriter, r *http.Request) {
	if err := s.objects.Delete(mux.Vars(r)["id"]); err != nil {
		writeStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// POST /api/objects/{id}/bookings answers 409 when the dates overlap an
// existing booking, touching days included.
func (s *Server) handleAddBooking(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	var req bookingRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	loc := s.objects.Location()
	start, err := booking.ParseDay(req.StartDate, loc)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid startDate")
		return
	}
	end, err := booking.ParseDay(req.EndDate, loc)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid endDate")
		return
	}
	typ := model.BookingConfirmed
	if req.Type != "" {
		typ = model.BookingType(req.Type)
	}

	rng, err := s.objects.AddBooking(id, start, end, typ)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, rng)
}

func (s *Server) handleClearBookings(w http.ResponseWriter, r *http.Request) {
	if err := s.objects.RemoveAllBookings(mux.Vars(r)["id"]); err != nil {
		writeStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRemoveBooking(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	if err := s.objects.RemoveBooking(vars["id"], vars["bookingID"]); err != nil {
		writeStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleStats(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.objects.Stats())
}

func (s *Server) handleGetCamera(w http.ResponseWriter, _ *http.Request) {
	cam, ok := s.objects.Camera()
	if !ok {
		writeError(w, http.StatusNotFound, "no camera state saved")
		return
	}
	writeJSON(w, http.StatusOK, cam)
}

func (s *Server) handleSetCamera(w http.ResponseWriter, r *http.Request) {
	var req cameraRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	cam := model.CameraState(req)
	if err := s.objects.SetCamera(cam); err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cam)
}
