// Package extraction implements the job posting extraction pipeline: request
// validation, cache lookup, provider invocation under retry and circuit
// breaker control, response parsing and the fallback provider chain.
package extraction

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/joblens/extractor/internal/core/domain"
	"github.com/joblens/extractor/internal/extraction/breaker"
	"github.com/joblens/extractor/internal/extraction/cache"
	"github.com/joblens/extractor/internal/extraction/classify"
	"github.com/joblens/extractor/internal/extraction/metrics"
	"github.com/joblens/extractor/internal/extraction/prompt"
	"github.com/joblens/extractor/internal/extraction/retry"
	"github.com/joblens/extractor/internal/infra/llm"
)

// ProviderEntry binds a provider client to its configured model identifiers.
type ProviderEntry struct {
	Client llm.Client

	// Model is the default model identifier
	Model string

	// VisionModel handles requests carrying a page screenshot (falls back
	// to Model when empty)
	VisionModel string

	// TextModel handles text-only requests (falls back to Model when empty)
	TextModel string
}

// RecordSink receives successfully extracted records for materialization by
// the business layer. Sink failures never fail the extraction itself.
type RecordSink interface {
	Record(ctx context.Context, req domain.ExtractionRequest, record *domain.JobPosting) error
}

// LogSink is the default RecordSink; it only logs the record.
type LogSink struct{}

func (LogSink) Record(ctx context.Context, req domain.ExtractionRequest, record *domain.JobPosting) error {
	slog.Info("extracted job record",
		"source", record.SourceURL,
		"company", record.CompanyName,
		"title", record.PositionTitle,
		"provider", record.Provider,
	)
	return nil
}

// Config wires the pipeline's collaborators and limits.
type Config struct {
	// Primary is the default provider id
	Primary string

	// Fallbacks is the ordered fallback provider chain
	Fallbacks []string

	// Providers maps provider id to its client and models
	Providers map[string]ProviderEntry

	// MaxContentLength caps accepted page content in bytes
	MaxContentLength int

	// InvokeTimeout bounds a single provider call
	InvokeTimeout time.Duration

	// Retry controls per-provider retry behavior
	Retry retry.Config

	Cache    cache.Store
	Breakers *breaker.Registry
	Prompts  *prompt.Builder
	Sink     RecordSink
}

// Pipeline orchestrates extraction requests end to end.
type Pipeline struct {
	cfg Config
}

// NewPipeline creates an extraction pipeline. Zero limits fall back to
// defaults; a nil sink falls back to LogSink.
func NewPipeline(cfg Config) *Pipeline {
	if cfg.MaxContentLength <= 0 {
		cfg.MaxContentLength = 500_000
	}
	if cfg.InvokeTimeout <= 0 {
		cfg.InvokeTimeout = 60 * time.Second
	}
	if cfg.Prompts == nil {
		cfg.Prompts = prompt.NewBuilder()
	}
	if cfg.Sink == nil {
		cfg.Sink = LogSink{}
	}
	return &Pipeline{cfg: cfg}
}

// Extract runs one extraction request through validation, cache, the resolved
// provider and the fallback chain. Every returned error carries a failure
// category.
func (p *Pipeline) Extract(ctx context.Context, req domain.ExtractionRequest) (*domain.JobPosting, error) {
	start := time.Now()

	record, providerID, err := p.extract(ctx, req)
	if err != nil {
		cerr := ensureClassified(err, providerID)
		metrics.ExtractionsTotal.WithLabelValues(orNone(providerID), string(cerr.Category)).Inc()
		slog.Warn("extraction failed",
			"source", req.SourceURL,
			"provider", orNone(providerID),
			"category", cerr.Category,
			"duration", time.Since(start),
			"error", err,
		)
		return nil, cerr
	}

	metrics.ExtractionsTotal.WithLabelValues(orNone(providerID), "success").Inc()
	metrics.ExtractionLatency.WithLabelValues(orNone(providerID)).Observe(time.Since(start).Seconds())
	slog.Info("extraction succeeded",
		"source", req.SourceURL,
		"provider", orNone(providerID),
		"duration", time.Since(start),
	)
	return record, nil
}

// extract returns the record plus the provider that produced it; on failure
// the provider id names the last one attempted (empty before any attempt).
func (p *Pipeline) extract(ctx context.Context, req domain.ExtractionRequest) (*domain.JobPosting, string, error) {
	if err := p.validate(req); err != nil {
		return nil, "", err
	}

	// A cache hit bypasses providers and breaker accounting entirely
	if cached, ok := p.cacheLookup(ctx, req.SourceURL); ok {
		metrics.CacheHits.Inc()
		slog.Info("cache hit", "source", req.SourceURL)
		return cached, cached.Provider, nil
	}
	metrics.CacheMisses.Inc()

	promptText, err := p.cfg.Prompts.Build(req.Content, req.SourceURL, req.Mode)
	if err != nil {
		return nil, "", classify.Wrap(classify.CategoryUnknown, err)
	}

	var (
		lastErr     error
		lastID      string
		attempted   int
		unavailable int
	)
	for _, id := range p.resolveChain(req) {
		entry, ok := p.cfg.Providers[id]
		if !ok {
			slog.Warn("provider in chain is not configured", "provider", id)
			continue
		}
		if p.cfg.Breakers != nil && !p.cfg.Breakers.Available(id) {
			slog.Info("provider circuit open, skipping", "provider", id)
			unavailable++
			continue
		}

		attempted++
		lastID = id

		record, err := p.extractWith(ctx, id, entry, promptText, req)
		if err == nil {
			p.finish(ctx, req, id, record)
			return record, id, nil
		}

		lastErr = err
		category := classify.Classify(err).Category
		metrics.ProviderErrorsTotal.WithLabelValues(id, string(category)).Inc()

		if !category.TriggersFallback() {
			return nil, id, err
		}
		metrics.FallbacksTotal.WithLabelValues(id).Inc()
		slog.Warn("provider failed, advancing fallback chain",
			"provider", id,
			"category", category,
			"error", err,
		)
	}

	if lastErr != nil {
		return nil, lastID, &classify.Error{
			Category: classify.CategoryAllProvidersFailed,
			Message:  fmt.Sprintf("%d provider(s) attempted", attempted),
			Err:      lastErr,
		}
	}
	return nil, lastID, classify.Newf(classify.CategoryAllProvidersFailed,
		"no provider available (%d circuit(s) open)", unavailable)
}

// extractWith runs one provider attempt: retried invocation, then parsing.
// Breaker accounting wraps each underlying call so the breaker sees real
// per-call traffic rather than post-retry aggregates.
func (p *Pipeline) extractWith(ctx context.Context, id string, entry ProviderEntry, promptText string, req domain.ExtractionRequest) (*domain.JobPosting, error) {
	opts := llm.InvokeOptions{
		Model:       p.modelFor(entry, req),
		Temperature: req.Options.Temperature,
		MaxTokens:   req.Options.MaxTokens,
	}
	if len(req.ImageData) > 0 {
		opts.Images = [][]byte{req.ImageData}
	}

	result, err := retry.Do(ctx, p.cfg.Retry, classify.IsRetryable, func(ctx context.Context) (any, error) {
		callCtx, cancel := context.WithTimeout(ctx, p.cfg.InvokeTimeout)
		defer cancel()

		metrics.ProviderCallsTotal.WithLabelValues(id).Inc()
		raw, err := entry.Client.Invoke(callCtx, promptText, opts)
		if err != nil {
			if p.cfg.Breakers != nil {
				p.cfg.Breakers.RecordFailure(id)
			}
			return nil, err
		}
		if p.cfg.Breakers != nil {
			p.cfg.Breakers.RecordSuccess(id)
		}
		return raw, nil
	})
	if err != nil {
		return nil, err
	}

	record, err := parseResponse(result.(string))
	if err != nil {
		return nil, err
	}

	record.SourceURL = req.SourceURL
	record.Provider = id
	return record, nil
}

// finish handles the success side effects: cache write and record sink.
// Neither failure fails the request.
func (p *Pipeline) finish(ctx context.Context, req domain.ExtractionRequest, id string, record *domain.JobPosting) {
	if p.cfg.Cache != nil {
		if err := p.cfg.Cache.Put(ctx, req.SourceURL, record); err != nil {
			slog.Error("failed to cache record", "source", req.SourceURL, "error", err)
		}
	}
	if err := p.cfg.Sink.Record(ctx, req, record); err != nil {
		slog.Error("record sink failed", "source", req.SourceURL, "error", err)
		return
	}
	metrics.RecordsPersisted.Inc()
}

func (p *Pipeline) validate(req domain.ExtractionRequest) error {
	if strings.TrimSpace(req.Content) == "" {
		return classify.New(classify.CategoryInvalidContent, "content is empty")
	}
	if len(req.Content) > p.cfg.MaxContentLength {
		return classify.Newf(classify.CategoryContentTooLarge,
			"content is %d bytes, limit is %d", len(req.Content), p.cfg.MaxContentLength)
	}

	parsed, err := url.Parse(req.SourceURL)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return classify.Newf(classify.CategoryInvalidURL, "not a valid http(s) URL: %q", req.SourceURL)
	}
	return nil
}

// resolveChain returns the providers to attempt in order: the request
// override when it names a configured provider (otherwise the primary),
// followed by the configured fallbacks. Each provider appears at most once.
func (p *Pipeline) resolveChain(req domain.ExtractionRequest) []string {
	head := p.cfg.Primary
	if req.Provider != "" {
		if _, ok := p.cfg.Providers[req.Provider]; ok {
			head = req.Provider
		} else {
			slog.Warn("requested provider is not configured, using primary",
				"requested", req.Provider, "primary", p.cfg.Primary)
		}
	}

	chain := make([]string, 0, len(p.cfg.Fallbacks)+1)
	seen := make(map[string]bool, len(p.cfg.Fallbacks)+1)
	for _, id := range append([]string{head}, p.cfg.Fallbacks...) {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		chain = append(chain, id)
	}
	return chain
}

func (p *Pipeline) modelFor(entry ProviderEntry, req domain.ExtractionRequest) string {
	if len(req.ImageData) > 0 && entry.VisionModel != "" {
		return entry.VisionModel
	}
	if len(req.ImageData) == 0 && entry.TextModel != "" {
		return entry.TextModel
	}
	return entry.Model
}

func (p *Pipeline) cacheLookup(ctx context.Context, source string) (*domain.JobPosting, bool) {
	if p.cfg.Cache == nil {
		return nil, false
	}
	record, ok, err := p.cfg.Cache.Get(ctx, source)
	if err != nil {
		slog.Error("cache lookup failed", "source", source, "error", err)
		return nil, false
	}
	return record, ok
}

// ensureClassified guarantees the boundary contract: every error leaving the
// pipeline is a *classify.Error carrying its category.
func ensureClassified(err error, providerID string) *classify.Error {
	var cerr *classify.Error
	if errors.As(err, &cerr) {
		return cerr
	}
	return &classify.Error{
		Category: classify.Classify(err).Category,
		Provider: providerID,
		Err:      err,
	}
}

func orNone(id string) string {
	if id == "" {
		return "none"
	}
	return id
}
