package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/joblens/extractor/internal/core/domain"
)

// RecordStore persists extracted job records. It implements the pipeline's
// RecordSink; one row per extraction, upserted by source URL so repeated
// extractions of the same posting refresh the stored record.
type RecordStore struct {
	db *DB
}

// NewRecordStore creates a PostgreSQL record store.
func NewRecordStore(db *DB) *RecordStore {
	return &RecordStore{db: db}
}

// Record saves an extracted job record.
func (s *RecordStore) Record(ctx context.Context, req domain.ExtractionRequest, record *domain.JobPosting) error {
	payload, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to encode record: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO job_records (id, source_url, company_name, position_title, provider, mode, record, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)
		ON CONFLICT (source_url) DO UPDATE SET
			company_name = EXCLUDED.company_name,
			position_title = EXCLUDED.position_title,
			provider = EXCLUDED.provider,
			mode = EXCLUDED.mode,
			record = EXCLUDED.record,
			updated_at = EXCLUDED.updated_at`,
		uuid.NewString(),
		record.SourceURL,
		record.CompanyName,
		record.PositionTitle,
		record.Provider,
		string(req.Mode),
		payload,
		time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to save job record: %w", err)
	}
	return nil
}

// GetBySource retrieves the stored record for a source URL. Returns nil
// without error when no record exists.
func (s *RecordStore) GetBySource(ctx context.Context, sourceURL string) (*domain.JobPosting, error) {
	var payload []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT record FROM job_records WHERE source_url = $1`, sourceURL,
	).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get job record: %w", err)
	}

	var record domain.JobPosting
	if err := json.Unmarshal(payload, &record); err != nil {
		return nil, fmt.Errorf("failed to decode job record: %w", err)
	}
	return &record, nil
}
