// Package server exposes the resolution pipeline over HTTP: the main
// /atlas endpoint plus the states, zone, and health side services.
package server

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"github.com/kshetline/svc-api/internal/atlas"
	"github.com/kshetline/svc-api/internal/gazetteer"
	"github.com/kshetline/svc-api/internal/search"
	"github.com/kshetline/svc-api/internal/zones"
)

const (
	defaultQuery   = "Nashua, NH"
	defaultVersion = 9
	defaultLimit   = 75
	maxLimit       = 500
)

// Pinger is the slice of the store the health check needs.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server holds the handler dependencies.
type Server struct {
	searcher *search.Searcher
	zones    *zones.Resolver
	pinger   Pinger
}

// New builds a Server. zones and pinger may be nil, which disables the
// corresponding side endpoints' lookups.
func New(searcher *search.Searcher, zr *zones.Resolver, pinger Pinger) *Server {
	return &Server{searcher: searcher, zones: zr, pinger: pinger}
}

// Router assembles the chi routing tree with the standard middleware.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()

	r.Use(requestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
	}))
	r.Use(rateLimit(rateLimitPerMinute))

	r.Get("/atlas", s.handleAtlas)
	r.Get("/atlas/", s.handleAtlas)
	r.Get("/states/", s.handleStates)
	r.Get("/zone/", s.handleZone)
	r.Get("/healthz", s.handleHealth)

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "not found", http.StatusNotFound)
	})

	return r
}

// handleAtlas runs one search. Every search outcome is HTTP 200; errors
// ride inside the result body.
func (s *Server) handleAtlas(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	query := q.Get("q")
	if strings.TrimSpace(query) == "" {
		query = defaultQuery
	}

	opts := search.Options{
		Version: intParam(q.Get("version"), defaultVersion),
		Remote:  search.ParseRemoteMode(q.Get("remote")),
		Limit:   clampLimit(intParam(q.Get("limit"), defaultLimit)),
		Client:  q.Get("client"),
		NoTrace: boolParam(q.Get("notrace")),
	}

	result := s.searcher.Search(r.Context(), query, opts)

	switch {
	case boolParam(q.Get("pt")):
		writePlainText(w, result)
	case q.Get("callback") != "":
		writeJSONP(w, q.Get("callback"), result)
	default:
		writeJSON(w, http.StatusOK, result)
	}
}

// handleStates returns the recognized state and province names.
func (s *Server) handleStates(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, gazetteer.Instance().StatesAndProvinces())
}

// handleZone resolves lat/lon to an IANA zone.
func (s *Server) handleZone(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	lat, latErr := strconv.ParseFloat(q.Get("lat"), 64)
	lon, lonErr := strconv.ParseFloat(q.Get("lon"), 64)
	if latErr != nil || lonErr != nil || s.zones == nil {
		http.Error(w, `{"error":"lat and lon are required"}`, http.StatusBadRequest)
		return
	}

	zone, err := s.zones.ZoneFor(r.Context(), &atlas.Location{Latitude: lat, Longitude: lon})
	if err != nil {
		http.Error(w, `{"error":"zone lookup failed"}`, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"zone": zone})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.pinger != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.pinger.Ping(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func intParam(s string, def int) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return def
	}
	return n
}

func boolParam(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "1", "yes", "y":
		return true
	default:
		return false
	}
}

func clampLimit(n int) int {
	if n < 1 {
		return 1
	}
	if n > maxLimit {
		return maxLimit
	}
	return n
}
