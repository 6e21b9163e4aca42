package reports

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryRepo stores reports in memory and is safe for concurrent use.
type MemoryRepo struct {
	mu     sync.RWMutex
	byID   map[string]Report
	byUser map[string][]string
	byDoc  map[string][]string
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		byID:   make(map[string]Report),
		byUser: make(map[string][]string),
		byDoc:  make(map[string][]string),
	}
}

// Create stores the report.
func (r *MemoryRepo) Create(ctx context.Context, report Report) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.createLocked(report)
	return nil
}

func (r *MemoryRepo) createLocked(report Report) {
	r.byID[report.ID] = report
	r.byUser[report.UserID] = append(r.byUser[report.UserID], report.ID)
	docKey := report.UserID + "|" + report.DocumentID
	r.byDoc[docKey] = append(r.byDoc[docKey], report.ID)
}

// GetOrCreateForDocument reuses the latest report for a document when it is
// still in flight or already completed; failed reports are recreated only
// when allowRetry is set.
func (r *MemoryRepo) GetOrCreateForDocument(ctx context.Context, report Report, allowRetry bool, allowCreate func() error) (Report, bool, error) {
	if err := ctx.Err(); err != nil {
		return Report{}, false, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	docKey := report.UserID + "|" + report.DocumentID
	ids := r.byDoc[docKey]
	if len(ids) > 0 {
		latest := r.byID[ids[len(ids)-1]]
		switch latest.Status {
		case StatusQueued, StatusProcessing, StatusCompleted:
			return latest, false, nil
		case StatusFailed:
			if !allowRetry {
				return latest, false, ErrRetryRequired
			}
		}
	}

	if allowCreate != nil {
		if err := allowCreate(); err != nil {
			return Report{}, false, err
		}
	}
	r.createLocked(report)
	return report, true, nil
}

// GetByID returns a report by its ID.
func (r *MemoryRepo) GetByID(ctx context.Context, reportID string) (Report, error) {
	if err := ctx.Err(); err != nil {
		return Report{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	report, ok := r.byID[reportID]
	if !ok {
		return Report{}, ErrNotFound
	}
	return report, nil
}

// ListByUser returns reports for a user ordered newest-first.
func (r *MemoryRepo) ListByUser(ctx context.Context, userID string, limit, offset int) ([]Report, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := r.byUser[userID]
	out := make([]Report, 0, len(ids))
	for _, id := range ids {
		out = append(out, r.byID[id])
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})

	if offset < 0 {
		offset = 0
	}
	if offset >= len(out) {
		return []Report{}, nil
	}
	out = out[offset:]
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

// MarkProcessing transitions a report to processing.
func (r *MemoryRepo) MarkProcessing(ctx context.Context, reportID string, startedAt time.Time) error {
	return r.update(ctx, reportID, func(report *Report) {
		report.Status = StatusProcessing
		report.StartedAt = &startedAt
	})
}

// UpdateRawOutput stores the verbatim model output for diagnostics.
func (r *MemoryRepo) UpdateRawOutput(ctx context.Context, reportID string, raw string) error {
	return r.update(ctx, reportID, func(report *Report) {
		report.RawOutput = raw
	})
}

// UpdatePromptMetadata records the analysis version and prompt hash.
func (r *MemoryRepo) UpdatePromptMetadata(ctx context.Context, reportID, analysisVersion, promptHash string) error {
	return r.update(ctx, reportID, func(report *Report) {
		report.AnalysisVersion = analysisVersion
		report.PromptHash = promptHash
	})
}

// SaveResult stores the aggregate outcome and assessments atomically (a
// single map write under the lock).
func (r *MemoryRepo) SaveResult(ctx context.Context, reportID string, result ResultSet, completedAt time.Time) error {
	return r.update(ctx, reportID, func(report *Report) {
		report.Status = StatusCompleted
		report.OverallScore = result.OverallScore
		report.OverallLevel = result.OverallLevel
		report.Summary = result.Summary
		report.Recommendation = result.Recommendation
		report.Degraded = result.Degraded
		report.Assessments = result.Assessments
		report.CompletedAt = &completedAt
	})
}

// MarkFailed records a failure outcome.
func (r *MemoryRepo) MarkFailed(ctx context.Context, reportID, code, message string, retryable bool, completedAt time.Time) error {
	return r.update(ctx, reportID, func(report *Report) {
		report.Status = StatusFailed
		report.ErrorCode = code
		report.ErrorMessage = message
		report.ErrorRetryable = retryable
		report.CompletedAt = &completedAt
	})
}

// ClaimGuest reassigns reports owned by a guest user to an authenticated user.
func (r *MemoryRepo) ClaimGuest(ctx context.Context, guestUserID, authedUserID string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	ids := r.byUser[guestUserID]
	for _, id := range ids {
		report := r.byID[id]
		report.UserID = authedUserID
		r.byID[id] = report

		docKey := guestUserID + "|" + report.DocumentID
		newKey := authedUserID + "|" + report.DocumentID
		r.byDoc[newKey] = append(r.byDoc[newKey], r.byDoc[docKey]...)
		delete(r.byDoc, docKey)
	}
	r.byUser[authedUserID] = append(r.byUser[authedUserID], ids...)
	delete(r.byUser, guestUserID)
	return len(ids), nil
}

// DeleteByUser removes all reports owned by a user.
func (r *MemoryRepo) DeleteByUser(ctx context.Context, userID string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	ids := r.byUser[userID]
	for _, id := range ids {
		report := r.byID[id]
		delete(r.byDoc, userID+"|"+report.DocumentID)
		delete(r.byID, id)
	}
	delete(r.byUser, userID)
	return len(ids), nil
}

func (r *MemoryRepo) update(ctx context.Context, reportID string, apply func(*Report)) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	report, ok := r.byID[reportID]
	if !ok {
		return ErrNotFound
	}
	apply(&report)
	r.byID[reportID] = report
	return nil
}

var _ Repo = (*MemoryRepo)(nil)
