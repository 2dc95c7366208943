// Package cache provides the extraction response cache, keyed by source URL.
package cache

import (
	"context"

	"github.com/joblens/extractor/internal/core/domain"
)

// Store is the response cache contract. Implementations must support
// concurrent access from simultaneous extraction calls; last-write-wins
// is the conflict policy.
type Store interface {
	// Get returns the cached record for a source URL, if present
	Get(ctx context.Context, source string) (*domain.JobPosting, bool, error)

	// Put stores a record under a source URL
	Put(ctx context.Context, source string, record *domain.JobPosting) error

	// Delete removes a single entry
	Delete(ctx context.Context, source string) error

	// Clear removes every entry
	Clear(ctx context.Context) error

	// Close releases backend resources
	Close() error
}
