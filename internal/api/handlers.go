package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/joblens/extractor/internal/core/domain"
	"github.com/joblens/extractor/internal/extraction/breaker"
	"github.com/joblens/extractor/internal/extraction/classify"
	"github.com/joblens/extractor/internal/ingest"
)

// errorEnvelope is the boundary contract for every failed request: the
// classification bundle plus the request id, never a raw error.
type errorEnvelope struct {
	Error       bool              `json:"error"`
	Category    classify.Category `json:"category"`
	Message     string            `json:"message"`
	Remediation []string          `json:"remediation"`
	Retryable   bool              `json:"retryable"`
	RequestID   string            `json:"request_id"`
}

func (s *Server) handleExtract(w http.ResponseWriter, r *http.Request) {
	requestID := uuid.NewString()
	w.Header().Set("X-Request-ID", requestID)
	start := time.Now()

	var req domain.ExtractionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, requestID,
			classify.Wrap(classify.CategoryInvalidContent, err))
		return
	}

	// Flatten HTML before the pipeline sees it
	req.Content = ingest.Normalize(req.Content)

	record, err := s.extractor.Extract(r.Context(), req)
	if err != nil {
		slog.Warn("extract request failed",
			"request_id", requestID,
			"source", req.SourceURL,
			"duration", time.Since(start),
			"error", err,
		)
		writeError(w, requestID, err)
		return
	}

	slog.Info("extract request served",
		"request_id", requestID,
		"source", req.SourceURL,
		"provider", record.Provider,
		"duration", time.Since(start),
	)
	writeJSON(w, http.StatusOK, record)
}

func (s *Server) handleRecord(w http.ResponseWriter, r *http.Request) {
	requestID := uuid.NewString()
	source := r.URL.Query().Get("source")
	if source == "" {
		writeError(w, requestID,
			classify.New(classify.CategoryInvalidURL, "missing source query parameter"))
		return
	}
	if s.records == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "record store is not configured"})
		return
	}

	record, err := s.records.GetBySource(r.Context(), source)
	if err != nil {
		writeError(w, requestID, classify.Wrap(classify.CategoryUnknown, err))
		return
	}
	if record == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "no record for source", "source": source})
		return
	}
	writeJSON(w, http.StatusOK, record)
}

func (s *Server) handleCacheDelete(w http.ResponseWriter, r *http.Request) {
	requestID := uuid.NewString()
	source := r.URL.Query().Get("source")
	if source == "" {
		writeError(w, requestID,
			classify.New(classify.CategoryInvalidURL, "missing source query parameter"))
		return
	}
	if err := s.cache.Delete(r.Context(), source); err != nil {
		writeError(w, requestID, classify.Wrap(classify.CategoryUnknown, err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted", "source": source})
}

func (s *Server) handleCacheClear(w http.ResponseWriter, r *http.Request) {
	requestID := uuid.NewString()
	if err := s.cache.Clear(r.Context()); err != nil {
		writeError(w, requestID, classify.Wrap(classify.CategoryUnknown, err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}

type providerStatus struct {
	Provider  string        `json:"provider"`
	State     breaker.State `json:"state"`
	Failures  int           `json:"failures"`
	Successes int           `json:"successes"`
	Available bool          `json:"available"`
}

func (s *Server) handleProviders(w http.ResponseWriter, r *http.Request) {
	snapshots := s.breakers.Snapshots()

	degraded := false
	statuses := make([]providerStatus, 0, len(snapshots))
	for id, snap := range snapshots {
		available := snap.State != breaker.StateOpen
		if !available {
			degraded = true
		}
		statuses = append(statuses, providerStatus{
			Provider:  id,
			State:     snap.State,
			Failures:  snap.Failures,
			Successes: snap.Successes,
			Available: available,
		})
	}

	status := "healthy"
	if degraded {
		status = "degraded"
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    status,
		"providers": statuses,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.dbHealth != nil {
		if err := s.dbHealth(r.Context()); err != nil {
			slog.Warn("health check failed", "error", err)
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "degraded",
				"reason": "database unreachable",
			})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// writeError renders the classification bundle for an error. The HTTP status
// mirrors the failure category so generic clients behave sensibly without
// parsing the body.
func writeError(w http.ResponseWriter, requestID string, err error) {
	c := classify.Classify(err)
	writeJSON(w, statusFor(c.Category), errorEnvelope{
		Error:       true,
		Category:    c.Category,
		Message:     c.Message,
		Remediation: c.Remediation,
		Retryable:   c.Retryable,
		RequestID:   requestID,
	})
}

func statusFor(cat classify.Category) int {
	switch cat {
	case classify.CategoryInvalidContent, classify.CategoryInvalidURL:
		return http.StatusBadRequest
	case classify.CategoryContentTooLarge:
		return http.StatusRequestEntityTooLarge
	case classify.CategoryRateLimited:
		return http.StatusTooManyRequests
	case classify.CategoryTimeout:
		return http.StatusGatewayTimeout
	case classify.CategoryUnavailable, classify.CategoryConnectionRefused,
		classify.CategoryAllProvidersFailed:
		return http.StatusServiceUnavailable
	case classify.CategoryInvalidAPIKey, classify.CategoryProviderRejected:
		return http.StatusBadGateway
	case classify.CategoryInvalidResponseFormat, classify.CategoryMissingRequiredFields:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
