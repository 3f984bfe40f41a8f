package web

import (
	"context"
	"crypto/subtle"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"

	"rentdesk/internal/calendar"
	"rentdesk/internal/config"
	appLog "rentdesk/internal/log"
	"rentdesk/internal/rental"
	"rentdesk/internal/snippet"
)

// Server exposes rental objects, their calendars and the snippet library
// over HTTP.
type Server struct {
	cfg      *config.Config
	objects  *rental.Store
	snippets *snippet.Store
	cal      calendar.Calendar
	router   *mux.Router

	// now is swapped in tests.
	now func() time.Time
}

// NewServer constructs a new Server and registers its routes.
func NewServer(cfg *config.Config, objects *rental.Store, snippets *snippet.Store) *Server {
	s := &Server{
		cfg:      cfg,
		objects:  objects,
		snippets: snippets,
		cal:      cfg.Calendar(),
		router:   mux.NewRouter(),
		now:      time.Now,
	}
	s.registerRoutes()
	return s
}

// Handler returns the router wrapped in CORS and, when configured, basic auth.
func (s *Server) Handler() http.Handler {
	h := http.Handler(s.router)
	if s.basicAuthEnabled() {
		appLog.Info("HTTP basic auth enabled", "listen", "http://"+s.cfg.Listen)
		h = s.basicAuthMiddleware(h)
	}
	if len(s.cfg.CORSOrigins) > 0 {
		h = cors.New(cors.Options{
			AllowedOrigins:   s.cfg.CORSOrigins,
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
			AllowedHeaders:   []string{"Content-Type", "Authorization"},
			AllowCredentials: true,
		}).Handler(h)
	}
	return h
}

func (s *Server) registerRoutes() {
	r := s.router
	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/objects", s.handleListObjects).Methods(http.MethodGet)
	api.HandleFunc("/objects", s.handleCreateObject).Methods(http.MethodPost)
	api.HandleFunc("/objects/{id}", s.handleGetObject).Methods(http.MethodGet)
	api.HandleFunc("/objects/{id}", s.handlePatchObject).Methods(http.MethodPatch)
	api.HandleFunc("/objects/{id}", s.handleDeleteObject).Methods(http.MethodDelete)
	api.HandleFunc("/objects/{id}/bookings", s.handleAddBooking).Methods(http.MethodPost)
	api.HandleFunc("/objects/{id}/bookings", s.handleClearBookings).Methods(http.MethodDelete)
	api.HandleFunc("/objects/{id}/bookings/{bookingID}", s.handleRemoveBooking).Methods(http.MethodDelete)
	api.HandleFunc("/objects/{id}/month", s.handleMonth).Methods(http.MethodGet)
	api.HandleFunc("/objects/{id}/year", s.handleYear).Methods(http.MethodGet)
	api.HandleFunc("/objects/{id}/calendar.ics", s.handleICS).Methods(http.MethodGet)
	api.HandleFunc("/stats", s.handleStats).Methods(http.MethodGet)

	api.HandleFunc("/snippets", s.handleListSnippets).Methods(http.MethodGet)
	api.HandleFunc("/snippets", s.handleCreateSnippet).Methods(http.MethodPost)
	api.HandleFunc("/snippets/{id}", s.handleGetSnippet).Methods(http.MethodGet)
	api.HandleFunc("/snippets/{id}", s.handleUpdateSnippet).Methods(http.MethodPut)
	api.HandleFunc("/snippets/{id}", s.handleDeleteSnippet).Methods(http.MethodDelete)

	api.HandleFunc("/camera", s.handleGetCamera).Methods(http.MethodGet)
	api.HandleFunc("/camera", s.handleSetCamera).Methods(http.MethodPut)

	r.HandleFunc("/objects/{id}/year", s.handleYearPage).Methods(http.MethodGet)

	api.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// basicAuthEnabled reports whether HTTP Basic Auth is configured.
func (s *Server) basicAuthEnabled() bool {
	if s.cfg == nil || s.cfg.BasicAuth == nil {
		return false
	}
	return s.cfg.BasicAuth.Username != "" && s.cfg.BasicAuth.Password != ""
}

// basicAuthMiddleware wraps all handlers except /health with HTTP Basic Auth.
func (s *Server) basicAuthMiddleware(next http.Handler) http.Handler {
	username := s.cfg.BasicAuth.Username
	password := s.cfg.BasicAuth.Password

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" || r.Method == http.MethodOptions {
			next.ServeHTTP(w, r)
			return
		}

		u, p, ok := r.BasicAuth()
		if !ok || !secureCompare(u, username) || !secureCompare(p, password) {
			w.Header().Set("WWW-Authenticate", `Basic realm="RentDesk", charset="UTF-8"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// secureCompare compares two strings in constant time.
func secureCompare(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// Serve runs the HTTP server on ln until ctx is canceled, then shuts down
// gracefully.
func Serve(ctx context.Context, ln net.Listener, h http.Handler) error {
	srv := &http.Server{
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		appLog.Info("starting HTTP server", "listen", "http://"+ln.Addr().String())
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLog.Error("HTTP server shutdown failed", err)
		return err
	}
	appLog.Info("HTTP server stopped")
	return nil
}
