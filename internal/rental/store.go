package rental

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"rentdesk/internal/booking"
	"rentdesk/internal/kvstore"
	appLog "rentdesk/internal/log"
	"rentdesk/internal/model"
	"rentdesk/internal/photo"
)

// Keys inside the key/value state file.
const (
	ObjectsKey = "savedMapObjects"
	CameraKey  = "mapCamera"
)

var (
	ErrNotFound        = errors.New("rental: object not found")
	ErrBookingNotFound = errors.New("rental: booking not found")
	ErrNoPhotoManager  = errors.New("rental: photo storage is not configured")
)

// EventKind names what changed.
type EventKind string

const (
	EventStatusRecomputed EventKind = "status_recomputed"
	EventObjectsReset     EventKind = "objects_reset"
)

// Event is delivered to subscribers after a mutation is persisted.
type Event struct {
	Kind     EventKind
	ObjectID string
	Status   model.Status
}

// Store holds the rental objects shown on the map. Every change to an
// object's booking list recomputes its status and emits an event.
type Store struct {
	mu      sync.Mutex
	kv      *kvstore.Store
	photos  *photo.Manager
	loc     *time.Location
	objects []model.RentalObject

	subs    map[int]func(Event)
	nextSub int
}

// NewStore loads objects from kv. photos may be nil, in which case photo
// operations return ErrNoPhotoManager. Booking days are anchored in loc.
func NewStore(kv *kvstore.Store, photos *photo.Manager, loc *time.Location) *Store {
	if loc == nil {
		loc = time.Local
	}
	s := &Store{
		kv:     kv,
		photos: photos,
		loc:    loc,
		subs:   make(map[int]func(Event)),
	}
	s.load()
	return s
}

// Location returns the timezone booking days are anchored in.
func (s *Store) Location() *time.Location { return s.loc }

func (s *Store) load() {
	var objs []model.RentalObject
	ok, err := s.kv.Get(ObjectsKey, &objs)
	switch {
	case err != nil:
		appLog.Error("rental: failed to decode saved objects; starting empty", err, "path", s.kv.Path())
		objs = nil
	case !ok:
		appLog.Info("rental: no saved objects", "path", s.kv.Path())
	}

	for i := range objs {
		for j := range objs[i].BookingRanges {
			objs[i].BookingRanges[j] = booking.Normalize(objs[i].BookingRanges[j], s.loc)
		}
		// The cached status may predate a rule change; derive it again.
		objs[i].Status = booking.DeriveStatus(objs[i].BookingRanges)
	}
	s.objects = objs
	appLog.Debug("rental: objects loaded", "count", len(objs))
}

// Subscribe registers fn for change events and returns a function that
// removes it. fn runs synchronously on the mutating goroutine.
func (s *Store) Subscribe(fn func(Event)) (unsubscribe func()) {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

func (s *Store) emit(ev Event) {
	s.mu.Lock()
	fns := make([]func(Event), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(ev)
	}
}

// List returns copies of all objects in creation order.
func (s *Store) List() []model.RentalObject {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.RentalObject, 0, len(s.objects))
	for _, o := range s.objects {
		out = append(out, clone(o))
	}
	return out
}

// Get returns a copy of one object.
func (s *Store) Get(id string) (model.RentalObject, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexLocked(id)
	if i < 0 {
		return model.RentalObject{}, ErrNotFound
	}
	return clone(s.objects[i]), nil
}

// Create adds a new, available object at coord.
func (s *Store) Create(title, description string, coord model.Coordinate) model.RentalObject {
	obj := model.RentalObject{
		ID:            uuid.NewString(),
		Title:         title,
		Description:   description,
		Coordinate:    coord,
		Status:        model.StatusAvailable,
		BookingRanges: []model.BookingRange{},
		PhotoPaths:    []string{},
	}

	s.mu.Lock()
	s.objects = append(s.objects, obj)
	s.persistLocked()
	s.mu.Unlock()

	appLog.Info("rental: object created", "id", obj.ID, "title", title)
	return clone(obj)
}

// UpdateTitle renames an object.
func (s *Store) UpdateTitle(id, title string) error {
	return s.mutate(id, func(o *model.RentalObject) error {
		o.Title = title
		return nil
	})
}

// UpdateDescription replaces an object's description.
func (s *Store) UpdateDescription(id, description string) error {
	return s.mutate(id, func(o *model.RentalObject) error {
		o.Description = description
		return nil
	})
}

// UpdateDetails sets area (m²) and floor.
func (s *Store) UpdateDetails(id string, area, floor int) error {
	return s.mutate(id, func(o *model.RentalObject) error {
		o.Area = area
		o.Floor = floor
		return nil
	})
}

// Delete removes an object and its stored photos.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	i := s.indexLocked(id)
	if i < 0 {
		s.mu.Unlock()
		return ErrNotFound
	}
	photos := s.objects[i].PhotoPaths
	s.objects = append(s.objects[:i], s.objects[i+1:]...)
	s.persistLocked()
	s.mu.Unlock()

	s.dropPhotos(photos)
	appLog.Info("rental: object deleted", "id", id)
	return nil
}

// Reset removes every object and the stored key itself.
func (s *Store) Reset() error {
	s.mu.Lock()
	var photos []string
	for _, o := range s.objects {
		photos = append(photos, o.PhotoPaths...)
	}
	s.objects = nil
	err := s.kv.Delete(ObjectsKey)
	s.mu.Unlock()

	if err != nil {
		appLog.Error("rental: failed to clear saved objects", err, "path", s.kv.Path())
	}
	s.dropPhotos(photos)
	appLog.Info("rental: all objects removed")
	s.emit(Event{Kind: EventObjectsReset})
	return err
}

// AddBooking validates and stores a new range. Overlap with any existing
// range of the object yields booking.ErrConflict and changes nothing.
func (s *Store) AddBooking(id string, start, end time.Time, typ model.BookingType) (model.BookingRange, error) {
	r, err := booking.NewRange(start, end, typ, s.loc)
	if err != nil {
		return model.BookingRange{}, err
	}
	if err := s.AddRange(id, r); err != nil {
		return model.BookingRange{}, err
	}
	return r, nil
}

// AddRange stores an already built range, e.g. one confirmed by a Picker.
func (s *Store) AddRange(id string, r model.BookingRange) error {
	r = booking.Normalize(r, s.loc)
	if r.StartDate.After(r.EndDate) {
		return booking.ErrInvalidRange
	}
	if !r.Type.Valid() {
		return booking.ErrInvalidType
	}
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	err := s.mutateBookings(id, func(o *model.RentalObject) error {
		if booking.HasConflict(r, o.BookingRanges) {
			return booking.ErrConflict
		}
		o.BookingRanges = append(o.BookingRanges, r)
		return nil
	})
	if err == nil {
		appLog.Info("rental: booking added", "id", id, "booking", r.ID,
			"start", r.StartDate.Format(time.DateOnly), "end", r.EndDate.Format(time.DateOnly), "type", r.Type)
	}
	return err
}

// RemoveBooking deletes one range.
func (s *Store) RemoveBooking(id, bookingID string) error {
	return s.mutateBookings(id, func(o *model.RentalObject) error {
		for i, r := range o.BookingRanges {
			if r.ID == bookingID {
				o.BookingRanges = append(o.BookingRanges[:i], o.BookingRanges[i+1:]...)
				return nil
			}
		}
		return ErrBookingNotFound
	})
}

// RemoveAllBookings clears the object's calendar.
func (s *Store) RemoveAllBookings(id string) error {
	return s.mutateBookings(id, func(o *model.RentalObject) error {
		o.BookingRanges = []model.BookingRange{}
		return nil
	})
}

// ReplaceFeedBookings swaps the ranges previously imported from source for
// ranges. Imported ranges that overlap a remaining range are skipped.
func (s *Store) ReplaceFeedBookings(id, source string, ranges []model.BookingRange) (added, skipped int, err error) {
	err = s.mutateBookings(id, func(o *model.RentalObject) error {
		kept := make([]model.BookingRange, 0, len(o.BookingRanges))
		for _, r := range o.BookingRanges {
			if r.Source != source {
				kept = append(kept, r)
			}
		}
		for _, r := range ranges {
			r = booking.Normalize(r, s.loc)
			r.Source = source
			if r.ID == "" {
				r.ID = uuid.NewString()
			}
			if r.StartDate.After(r.EndDate) || booking.HasConflict(r, kept) {
				appLog.Warn("rental: skipping imported booking", "id", id, "source", source,
					"start", r.StartDate.Format(time.DateOnly), "end", r.EndDate.Format(time.DateOnly))
				skipped++
				continue
			}
			kept = append(kept, r)
			added++
		}
		o.BookingRanges = kept
		return nil
	})
	return added, skipped, err
}

// AddPhoto copies src into photo storage and attaches it to the object.
func (s *Store) AddPhoto(id, src string) (string, error) {
	if s.photos == nil {
		return "", ErrNoPhotoManager
	}
	if _, err := s.Get(id); err != nil {
		return "", err
	}
	path, err := s.photos.Save(src)
	if err != nil {
		return "", err
	}
	err = s.mutate(id, func(o *model.RentalObject) error {
		o.PhotoPaths = append(o.PhotoPaths, path)
		return nil
	})
	if err != nil {
		s.dropPhotos([]string{path})
		return "", err
	}
	return path, nil
}

// RemovePhoto detaches path from the object and deletes the file.
func (s *Store) RemovePhoto(id, path string) error {
	if s.photos == nil {
		return ErrNoPhotoManager
	}
	err := s.mutate(id, func(o *model.RentalObject) error {
		for i, p := range o.PhotoPaths {
			if p == path {
				o.PhotoPaths = append(o.PhotoPaths[:i], o.PhotoPaths[i+1:]...)
				return nil
			}
		}
		return fmt.Errorf("rental: photo %s not attached to %s", path, id)
	})
	if err != nil {
		return err
	}
	return s.photos.Delete(path)
}

// Camera returns the saved map viewport, if any.
func (s *Store) Camera() (model.CameraState, bool) {
	var c model.CameraState
	ok, err := s.kv.Get(CameraKey, &c)
	if err != nil {
		appLog.Error("rental: failed to decode camera state", err)
		return model.CameraState{}, false
	}
	return c, ok
}

// SetCamera saves the map viewport.
func (s *Store) SetCamera(c model.CameraState) error {
	return s.kv.Set(CameraKey, c)
}

// mutate applies fn to one object and persists the result.
func (s *Store) mutate(id string, fn func(*model.RentalObject) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexLocked(id)
	if i < 0 {
		return ErrNotFound
	}
	if err := fn(&s.objects[i]); err != nil {
		return err
	}
	s.persistLocked()
	return nil
}

// mutateBookings is mutate plus status recomputation and notification.
func (s *Store) mutateBookings(id string, fn func(*model.RentalObject) error) error {
	var ev Event
	err := s.mutate(id, func(o *model.RentalObject) error {
		if err := fn(o); err != nil {
			return err
		}
		o.Status = booking.DeriveStatus(o.BookingRanges)
		ev = Event{Kind: EventStatusRecomputed, ObjectID: o.ID, Status: o.Status}
		return nil
	})
	if err != nil {
		return err
	}
	s.emit(ev)
	return nil
}

// persistLocked rewrites the object blob. Failures are logged only.
func (s *Store) persistLocked() {
	objs := s.objects
	if objs == nil {
		objs = []model.RentalObject{}
	}
	if err := s.kv.Set(ObjectsKey, objs); err != nil {
		appLog.Error("rental: failed to save objects", err, "path", s.kv.Path(), "count", len(objs))
		return
	}
	appLog.Debug("rental: objects saved", "count", len(objs))
}

func (s *Store) dropPhotos(paths []string) {
	if s.photos == nil {
		return
	}
	for _, p := range paths {
		if err := s.photos.Delete(p); err != nil {
			appLog.Error("rental: failed to delete photo", err, "path", p)
		}
	}
}

func (s *Store) indexLocked(id string) int {
	for i, o := range s.objects {
		if o.ID == id {
			return i
		}
	}
	return -1
}

func clone(o model.RentalObject) model.RentalObject {
	o.BookingRanges = append([]model.BookingRange{}, o.BookingRanges...)
	o.PhotoPaths = append([]string{}, o.PhotoPaths...)
	return o
}
