package extraction

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/joblens/extractor/internal/core/domain"
	"github.com/joblens/extractor/internal/extraction/breaker"
	"github.com/joblens/extractor/internal/extraction/cache"
	"github.com/joblens/extractor/internal/extraction/classify"
	"github.com/joblens/extractor/internal/extraction/retry"
	"github.com/joblens/extractor/internal/infra/llm"
)

const validResponse = `{"company_name": "Acme Corp", "position_title": "Go Engineer", "description": "Build services."}`

// mockClient is a provider client with injectable behavior and call counters.
type mockClient struct {
	mu       sync.Mutex
	name     string
	invokeFn func(ctx context.Context, prompt string, opts llm.InvokeOptions) (string, error)
	calls    int
	lastOpts llm.InvokeOptions
}

func (m *mockClient) Name() string { return m.name }

func (m *mockClient) Invoke(ctx context.Context, prompt string, opts llm.InvokeOptions) (string, error) {
	m.mu.Lock()
	m.calls++
	m.lastOpts = opts
	m.mu.Unlock()
	return m.invokeFn(ctx, prompt, opts)
}

func (m *mockClient) ListModels(ctx context.Context) ([]string, error) { return nil, nil }
func (m *mockClient) Ping(ctx context.Context) error                   { return nil }

func (m *mockClient) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// mockSink records what the pipeline hands to persistence.
type mockSink struct {
	mu      sync.Mutex
	records []*domain.JobPosting
}

func (s *mockSink) Record(ctx context.Context, req domain.ExtractionRequest, record *domain.JobPosting) error {
	s.mu.Lock()
	s.records = append(s.records, record)
	s.mu.Unlock()
	return nil
}

func succeeding(name string) *mockClient {
	return &mockClient{
		name: name,
		invokeFn: func(ctx context.Context, prompt string, opts llm.InvokeOptions) (string, error) {
			return validResponse, nil
		},
	}
}

func failing(name string, err error) *mockClient {
	return &mockClient{
		name: name,
		invokeFn: func(ctx context.Context, prompt string, opts llm.InvokeOptions) (string, error) {
			return "", err
		},
	}
}

func testRequest() domain.ExtractionRequest {
	return domain.ExtractionRequest{
		Content:   "We are hiring a Go engineer at Acme Corp.",
		SourceURL: "https://x.test/job/1",
		Mode:      domain.ModeSpecific,
	}
}

func newTestPipeline(primary string, fallbacks []string, clients map[string]*mockClient) (*Pipeline, *cache.Memory, *mockSink) {
	providers := make(map[string]ProviderEntry, len(clients))
	for id, c := range clients {
		providers[id] = ProviderEntry{Client: c, Model: "test-model"}
	}
	store := cache.NewMemory(0)
	sink := &mockSink{}
	p := NewPipeline(Config{
		Primary:   primary,
		Fallbacks: fallbacks,
		Providers: providers,
		Retry:     retry.Config{MaxRetries: 0, BaseDelay: time.Millisecond},
		Cache:     store,
		Sink:      sink,
	})
	return p, store, sink
}

func TestExtract_Success(t *testing.T) {
	client := succeeding("openai")
	p, store, sink := newTestPipeline("openai", nil, map[string]*mockClient{"openai": client})

	record, err := p.Extract(context.Background(), testRequest())
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if record.CompanyName != "Acme Corp" {
		t.Errorf("Expected Acme Corp, got %s", record.CompanyName)
	}
	if record.Provider != "openai" {
		t.Errorf("Expected provider stamped on record, got %q", record.Provider)
	}
	if record.SourceURL != "https://x.test/job/1" {
		t.Errorf("Expected source stamped on record, got %q", record.SourceURL)
	}

	// Success writes through to cache and sink
	if _, ok, _ := store.Get(context.Background(), "https://x.test/job/1"); !ok {
		t.Error("Expected record cached after success")
	}
	if len(sink.records) != 1 {
		t.Errorf("Expected 1 record in sink, got %d", len(sink.records))
	}
}

func TestExtract_CacheHitBypassesProviders(t *testing.T) {
	client := succeeding("openai")
	p, store, _ := newTestPipeline("openai", nil, map[string]*mockClient{"openai": client})

	cached := &domain.JobPosting{
		CompanyName:   "Cached Corp",
		PositionTitle: "Cached Engineer",
		Description:   "From cache.",
		SourceURL:     "https://x.test/job/1",
		Provider:      "openai",
		Skills:        []string{},
	}
	_ = store.Put(context.Background(), "https://x.test/job/1", cached)

	record, err := p.Extract(context.Background(), testRequest())
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if record.CompanyName != "Cached Corp" {
		t.Errorf("Expected the cached record, got %+v", record)
	}
	if client.callCount() != 0 {
		t.Errorf("Cache hit must not invoke any provider, got %d calls", client.callCount())
	}
}

func TestExtract_FallbackExhaustion(t *testing.T) {
	timeoutErr := classify.New(classify.CategoryTimeout, "deadline elapsed")
	a := failing("a", timeoutErr)
	b := failing("b", timeoutErr)
	c := failing("c", timeoutErr)

	p, _, _ := newTestPipeline("a", []string{"b", "c"}, map[string]*mockClient{"a": a, "b": b, "c": c})

	_, err := p.Extract(context.Background(), testRequest())
	var cerr *classify.Error
	if !errors.As(err, &cerr) || cerr.Category != classify.CategoryAllProvidersFailed {
		t.Fatalf("Expected all_providers_failed, got %v", err)
	}

	for _, client := range []*mockClient{a, b, c} {
		if client.callCount() != 1 {
			t.Errorf("Expected provider %s attempted exactly once, got %d", client.name, client.callCount())
		}
	}
}

func TestExtract_PermanentErrorShortCircuits(t *testing.T) {
	a := failing("a", classify.New(classify.CategoryInvalidAPIKey, "bad key"))
	b := succeeding("b")

	p, _, _ := newTestPipeline("a", []string{"b"}, map[string]*mockClient{"a": a, "b": b})

	_, err := p.Extract(context.Background(), testRequest())
	var cerr *classify.Error
	if !errors.As(err, &cerr) || cerr.Category != classify.CategoryInvalidAPIKey {
		t.Fatalf("Expected invalid_api_key surfaced directly, got %v", err)
	}
	if b.callCount() != 0 {
		t.Errorf("Permanent error must not reach provider b, got %d calls", b.callCount())
	}
}

func TestExtract_UnusableOutputWalksChain(t *testing.T) {
	a := &mockClient{
		name: "a",
		invokeFn: func(ctx context.Context, prompt string, opts llm.InvokeOptions) (string, error) {
			return "complete garbage, not json", nil
		},
	}
	b := succeeding("b")

	p, _, _ := newTestPipeline("a", []string{"b"}, map[string]*mockClient{"a": a, "b": b})

	record, err := p.Extract(context.Background(), testRequest())
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if record.Provider != "b" {
		t.Errorf("Expected fallback provider b to serve, got %s", record.Provider)
	}
	// Unparseable output is permanent per provider: no same-provider retry
	if a.callCount() != 1 {
		t.Errorf("Expected provider a attempted once, got %d", a.callCount())
	}
}

func TestExtract_FallbackRecovers(t *testing.T) {
	a := failing("a", classify.New(classify.CategoryRateLimited, "slow down"))
	b := succeeding("b")

	p, _, _ := newTestPipeline("a", []string{"b"}, map[string]*mockClient{"a": a, "b": b})

	record, err := p.Extract(context.Background(), testRequest())
	if err != nil {
		t.Fatalf("Expected fallback success, got %v", err)
	}
	if record.Provider != "b" {
		t.Errorf("Expected record from b, got %s", record.Provider)
	}
}

func TestExtract_Validation(t *testing.T) {
	p, _, _ := newTestPipeline("openai", nil, map[string]*mockClient{"openai": succeeding("openai")})

	tests := []struct {
		name   string
		mutate func(*domain.ExtractionRequest)
		expect classify.Category
	}{
		{"empty content", func(r *domain.ExtractionRequest) { r.Content = "   " }, classify.CategoryInvalidContent},
		{"oversized content", func(r *domain.ExtractionRequest) {
			r.Content = string(make([]byte, 600_000))
		}, classify.CategoryContentTooLarge},
		{"bad scheme", func(r *domain.ExtractionRequest) { r.SourceURL = "ftp://x.test/job" }, classify.CategoryInvalidURL},
		{"no host", func(r *domain.ExtractionRequest) { r.SourceURL = "https://" }, classify.CategoryInvalidURL},
		{"not a url", func(r *domain.ExtractionRequest) { r.SourceURL = "not a url at all" }, classify.CategoryInvalidURL},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := testRequest()
			tt.mutate(&req)

			_, err := p.Extract(context.Background(), req)
			var cerr *classify.Error
			if !errors.As(err, &cerr) || cerr.Category != tt.expect {
				t.Errorf("Expected %s, got %v", tt.expect, err)
			}
		})
	}
}

func TestExtract_OversizedContentInvalid(t *testing.T) {
	// Ensure oversized validation fires before URL parsing oddities mask it
	content := make([]byte, 600_000)
	for i := range content {
		content[i] = 'a'
	}

	p, _, _ := newTestPipeline("openai", nil, map[string]*mockClient{"openai": succeeding("openai")})
	req := testRequest()
	req.Content = string(content)

	_, err := p.Extract(context.Background(), req)
	var cerr *classify.Error
	if !errors.As(err, &cerr) || cerr.Category != classify.CategoryContentTooLarge {
		t.Fatalf("Expected content_too_large, got %v", err)
	}
}

func TestExtract_ProviderOverride(t *testing.T) {
	primary := succeeding("primary")
	other := succeeding("other")

	p, _, _ := newTestPipeline("primary", nil, map[string]*mockClient{"primary": primary, "other": other})

	req := testRequest()
	req.Provider = "other"

	record, err := p.Extract(context.Background(), req)
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if record.Provider != "other" {
		t.Errorf("Expected override provider, got %s", record.Provider)
	}
	if primary.callCount() != 0 {
		t.Errorf("Override must bypass primary, got %d calls", primary.callCount())
	}
}

func TestExtract_UnknownOverrideFallsBackToPrimary(t *testing.T) {
	primary := succeeding("primary")
	p, _, _ := newTestPipeline("primary", nil, map[string]*mockClient{"primary": primary})

	req := testRequest()
	req.Provider = "ghost"

	record, err := p.Extract(context.Background(), req)
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if record.Provider != "primary" {
		t.Errorf("Expected primary for an unconfigured override, got %s", record.Provider)
	}
}

func TestExtract_SkipsOpenBreaker(t *testing.T) {
	a := succeeding("a")
	b := succeeding("b")

	providers := map[string]ProviderEntry{
		"a": {Client: a, Model: "m"},
		"b": {Client: b, Model: "m"},
	}
	breakers := breaker.NewRegistry(time.Minute, time.Second)
	breakers.Register("a", nil, breaker.Config{FailureThreshold: 1})
	breakers.Register("b", nil, breaker.Config{FailureThreshold: 1})
	breakers.RecordFailure("a") // opens a

	p := NewPipeline(Config{
		Primary:   "a",
		Fallbacks: []string{"b"},
		Providers: providers,
		Retry:     retry.Config{MaxRetries: 0, BaseDelay: time.Millisecond},
		Cache:     cache.NewMemory(0),
		Breakers:  breakers,
	})

	record, err := p.Extract(context.Background(), testRequest())
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if record.Provider != "b" {
		t.Errorf("Expected open breaker on a to route to b, got %s", record.Provider)
	}
	if a.callCount() != 0 {
		t.Errorf("Provider behind an open breaker must not be called, got %d", a.callCount())
	}
}

func TestExtract_AllBreakersOpen(t *testing.T) {
	a := succeeding("a")

	breakers := breaker.NewRegistry(time.Minute, time.Second)
	breakers.Register("a", nil, breaker.Config{FailureThreshold: 1})
	breakers.RecordFailure("a")

	p := NewPipeline(Config{
		Primary:   "a",
		Providers: map[string]ProviderEntry{"a": {Client: a, Model: "m"}},
		Retry:     retry.Config{MaxRetries: 0, BaseDelay: time.Millisecond},
		Cache:     cache.NewMemory(0),
		Breakers:  breakers,
	})

	_, err := p.Extract(context.Background(), testRequest())
	var cerr *classify.Error
	if !errors.As(err, &cerr) || cerr.Category != classify.CategoryAllProvidersFailed {
		t.Fatalf("Expected all_providers_failed with every circuit open, got %v", err)
	}
	if a.callCount() != 0 {
		t.Errorf("Expected no provider calls, got %d", a.callCount())
	}
}

func TestExtract_BreakerSeesTraffic(t *testing.T) {
	a := failing("a", classify.New(classify.CategoryTimeout, "slow"))

	breakers := breaker.NewRegistry(time.Minute, time.Second)
	breakers.Register("a", nil, breaker.Config{FailureThreshold: 10})

	p := NewPipeline(Config{
		Primary:   "a",
		Providers: map[string]ProviderEntry{"a": {Client: a, Model: "m"}},
		Retry:     retry.Config{MaxRetries: 2, BaseDelay: time.Millisecond},
		Cache:     cache.NewMemory(0),
		Breakers:  breakers,
	})

	_, _ = p.Extract(context.Background(), testRequest())

	// Each underlying call is accounted, not the post-retry aggregate
	snap, _ := breakers.State("a")
	if snap.Failures != 3 {
		t.Errorf("Expected 3 recorded failures for MaxRetries=2, got %d", snap.Failures)
	}
}

func TestExtract_RetryRecoversTransient(t *testing.T) {
	calls := 0
	flaky := &mockClient{
		name: "a",
		invokeFn: func(ctx context.Context, prompt string, opts llm.InvokeOptions) (string, error) {
			calls++
			if calls == 1 {
				return "", classify.New(classify.CategoryUnavailable, "blip")
			}
			return validResponse, nil
		},
	}

	p := NewPipeline(Config{
		Primary:   "a",
		Providers: map[string]ProviderEntry{"a": {Client: flaky, Model: "m"}},
		Retry:     retry.Config{MaxRetries: 2, BaseDelay: time.Millisecond},
		Cache:     cache.NewMemory(0),
	})

	record, err := p.Extract(context.Background(), testRequest())
	if err != nil {
		t.Fatalf("Expected retry to absorb the transient failure, got %v", err)
	}
	if record.Provider != "a" {
		t.Errorf("Expected provider a, got %s", record.Provider)
	}
	if calls != 2 {
		t.Errorf("Expected 2 calls, got %d", calls)
	}
}

func TestExtract_VisionModelSelection(t *testing.T) {
	client := succeeding("a")
	p := NewPipeline(Config{
		Primary: "a",
		Providers: map[string]ProviderEntry{
			"a": {Client: client, Model: "default", TextModel: "text", VisionModel: "vision"},
		},
		Retry: retry.Config{MaxRetries: 0, BaseDelay: time.Millisecond},
		Cache: cache.NewMemory(0),
	})

	// Text-only request picks the text model
	if _, err := p.Extract(context.Background(), testRequest()); err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if client.lastOpts.Model != "text" {
		t.Errorf("Expected text model, got %q", client.lastOpts.Model)
	}

	// Screenshot request picks the vision model and attaches the image
	req := testRequest()
	req.SourceURL = "https://x.test/job/2"
	req.ImageData = []byte{0x89, 0x50, 0x4e, 0x47}
	if _, err := p.Extract(context.Background(), req); err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if client.lastOpts.Model != "vision" {
		t.Errorf("Expected vision model, got %q", client.lastOpts.Model)
	}
	if len(client.lastOpts.Images) != 1 {
		t.Errorf("Expected image attached, got %d", len(client.lastOpts.Images))
	}
}

func TestExtract_ConcurrentRequests(t *testing.T) {
	p, _, _ := newTestPipeline("openai", nil, map[string]*mockClient{"openai": succeeding("openai")})

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := p.Extract(context.Background(), testRequest()); err != nil {
				t.Errorf("Concurrent extract failed: %v", err)
			}
		}()
	}
	wg.Wait()
}
