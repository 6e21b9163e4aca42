package reports

import (
	"context"
	"time"
)

// Repo defines persistence operations for risk reports.
type Repo interface {
	Create(ctx context.Context, report Report) error
	// GetOrCreateForDocument returns the latest report for a document or
	// creates a new one, serializing per document to avoid duplicates.
	GetOrCreateForDocument(ctx context.Context, report Report, allowRetry bool, allowCreate func() error) (Report, bool, error)
	GetByID(ctx context.Context, reportID string) (Report, error)
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]Report, error)
	MarkProcessing(ctx context.Context, reportID string, startedAt time.Time) error
	UpdateRawOutput(ctx context.Context, reportID string, raw string) error
	UpdatePromptMetadata(ctx context.Context, reportID, analysisVersion, promptHash string) error
	// SaveResult persists the aggregate fields and the per-assessment rows
	// in a single transaction so readers never observe a partial set.
	SaveResult(ctx context.Context, reportID string, result ResultSet, completedAt time.Time) error
	MarkFailed(ctx context.Context, reportID, code, message string, retryable bool, completedAt time.Time) error
}
