// Package api exposes the extraction service over HTTP.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/joblens/extractor/internal/core/domain"
	"github.com/joblens/extractor/internal/extraction/breaker"
	"github.com/joblens/extractor/internal/extraction/cache"
)

// Extractor runs one extraction request. Implemented by extraction.Pipeline.
type Extractor interface {
	Extract(ctx context.Context, req domain.ExtractionRequest) (*domain.JobPosting, error)
}

// RecordLookup serves previously stored extraction results. Implemented by
// postgres.RecordStore; nil when no database is configured.
type RecordLookup interface {
	GetBySource(ctx context.Context, sourceURL string) (*domain.JobPosting, error)
}

// Server provides the HTTP surface: extraction, record lookup, cache
// administration, provider health and metrics.
type Server struct {
	extractor Extractor
	cache     cache.Store
	breakers  *breaker.Registry
	records   RecordLookup
	dbHealth  func(ctx context.Context) error
	server    *http.Server
}

// NewServer creates the HTTP server with all routes registered.
func NewServer(extractor Extractor, store cache.Store, breakers *breaker.Registry, port int) *Server {
	s := &Server{
		extractor: extractor,
		cache:     store,
		breakers:  breakers,
	}

	r := mux.NewRouter()
	r.HandleFunc("/v1/extract", s.handleExtract).Methods(http.MethodPost)
	r.HandleFunc("/v1/records", s.handleRecord).Methods(http.MethodGet)
	r.HandleFunc("/v1/cache", s.handleCacheDelete).Methods(http.MethodDelete)
	r.HandleFunc("/v1/cache/clear", s.handleCacheClear).Methods(http.MethodPost)
	r.HandleFunc("/v1/providers", s.handleProviders).Methods(http.MethodGet)
	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/health/providers", s.handleProviders).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 5 * time.Minute, // extraction waits on provider calls
	}
	return s
}

// WithRecordLookup enables the stored-record endpoint.
func (s *Server) WithRecordLookup(lookup RecordLookup) {
	s.records = lookup
}

// WithDBHealth makes the /health endpoint check database connectivity.
func (s *Server) WithDBHealth(check func(ctx context.Context) error) {
	s.dbHealth = check
}

// Handler returns the route handler, used by tests.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	return s.server.ListenAndServe()
}

// Stop stops the HTTP server.
func (s *Server) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
