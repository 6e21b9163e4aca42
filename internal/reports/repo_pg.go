package reports

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

// Create inserts a new report.
func (r *PGRepo) Create(ctx context.Context, report Report) error {
	const query = `
INSERT INTO reports (
	id, document_id, user_id, status, industry, prompt_version, analysis_version,
	prompt_hash, provider, model, created_at
)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
	_, err := r.DB.ExecContext(ctx, query,
		report.ID,
		report.DocumentID,
		report.UserID,
		report.Status,
		report.Industry,
		report.PromptVersion,
		report.AnalysisVersion,
		report.PromptHash,
		report.Provider,
		report.Model,
		report.CreatedAt,
	)
	return err
}

// GetOrCreateForDocument returns the latest report for a document or creates a new one.
func (r *PGRepo) GetOrCreateForDocument(ctx context.Context, report Report, allowRetry bool, allowCreate func() error) (Report, bool, error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return Report{}, false, err
	}
	defer tx.Rollback()

	// Serialize per-document to avoid duplicate report creation.
	if _, err := tx.ExecContext(ctx, `SELECT id FROM documents WHERE id = $1 AND user_id = $2 FOR UPDATE`, report.DocumentID, report.UserID); err != nil {
		return Report{}, false, err
	}

	latest, err := getLatestForDocument(ctx, tx, report.UserID, report.DocumentID)
	if err == nil {
		switch latest.Status {
		case StatusQueued, StatusProcessing, StatusCompleted:
			if err := tx.Commit(); err != nil {
				return Report{}, false, err
			}
			return latest, false, nil
		case StatusFailed:
			if !allowRetry {
				if err := tx.Commit(); err != nil {
					return Report{}, false, err
				}
				return latest, false, ErrRetryRequired
			}
		}
	} else if !errors.Is(err, sql.ErrNoRows) && !errors.Is(err, ErrNotFound) {
		return Report{}, false, err
	}

	if allowCreate != nil {
		if err := allowCreate(); err != nil {
			return Report{}, false, err
		}
	}

	if err := createWithTx(ctx, tx, report); err != nil {
		return Report{}, false, err
	}
	if err := tx.Commit(); err != nil {
		return Report{}, false, err
	}
	return report, true, nil
}

// GetByID returns a report by ID, assessments included.
func (r *PGRepo) GetByID(ctx context.Context, reportID string) (Report, error) {
	const query = `
SELECT id, document_id, user_id, status, industry, prompt_version, analysis_version,
       prompt_hash, provider, model, raw_output, summary, recommendation,
       overall_risk_score, overall_risk_level, degraded,
       error_code, error_message, error_retryable, started_at, completed_at, created_at
FROM reports
WHERE id = $1 AND deleted_at IS NULL
LIMIT 1`
	report, err := scanReport(r.DB.QueryRowContext(ctx, query, reportID))
	if err != nil {
		return Report{}, err
	}
	assessments, err := r.loadAssessments(ctx, reportID)
	if err != nil {
		return Report{}, err
	}
	report.Assessments = assessments
	return report, nil
}

// ListByUser returns reports for a user ordered newest-first. Assessments are
// not loaded for list views.
func (r *PGRepo) ListByUser(ctx context.Context, userID string, limit, offset int) ([]Report, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	const query = `
SELECT id, document_id, user_id, status, industry, prompt_version, analysis_version,
       prompt_hash, provider, model, raw_output, summary, recommendation,
       overall_risk_score, overall_risk_level, degraded,
       error_code, error_message, error_retryable, started_at, completed_at, created_at
FROM reports
WHERE user_id = $1 AND deleted_at IS NULL
ORDER BY created_at DESC
LIMIT $2 OFFSET $3`
	rows, err := r.DB.QueryContext(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Report, 0, limit)
	for rows.Next() {
		report, err := scanReport(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, report)
	}
	return out, rows.Err()
}

// MarkProcessing transitions a report to processing.
func (r *PGRepo) MarkProcessing(ctx context.Context, reportID string, startedAt time.Time) error {
	const query = `
UPDATE reports
SET status = $2, started_at = $3, updated_at = NOW()
WHERE id = $1 AND deleted_at IS NULL`
	return r.execExpectingRow(ctx, query, reportID, StatusProcessing, startedAt)
}

// UpdateRawOutput stores the verbatim model output for diagnostics.
func (r *PGRepo) UpdateRawOutput(ctx context.Context, reportID string, raw string) error {
	const query = `
UPDATE reports
SET raw_output = $2, updated_at = NOW()
WHERE id = $1 AND deleted_at IS NULL`
	return r.execExpectingRow(ctx, query, reportID, raw)
}

// UpdatePromptMetadata records the analysis version and prompt hash.
func (r *PGRepo) UpdatePromptMetadata(ctx context.Context, reportID, analysisVersion, promptHash string) error {
	const query = `
UPDATE reports
SET analysis_version = $2, prompt_hash = $3, updated_at = NOW()
WHERE id = $1 AND deleted_at IS NULL`
	return r.execExpectingRow(ctx, query, reportID, analysisVersion, promptHash)
}

// SaveResult writes the aggregate fields and the per-assessment rows in one
// transaction; readers never observe a partially written assessment set.
func (r *PGRepo) SaveResult(ctx context.Context, reportID string, result ResultSet, completedAt time.Time) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	const updateQuery = `
UPDATE reports
SET status = $2, summary = $3, recommendation = $4,
    overall_risk_score = $5, overall_risk_level = $6, degraded = $7,
    completed_at = $8, updated_at = NOW()
WHERE id = $1 AND deleted_at IS NULL`
	res, err := tx.ExecContext(ctx, updateQuery,
		reportID,
		StatusCompleted,
		result.Summary,
		result.Recommendation,
		result.OverallScore,
		result.OverallLevel,
		result.Degraded,
		completedAt,
	)
	if err != nil {
		return err
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return ErrNotFound
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM report_assessments WHERE report_id = $1`, reportID); err != nil {
		return err
	}

	const insertQuery = `
INSERT INTO report_assessments (
	report_id, position, category, subcategory, description,
	likelihood, impact, risk_score, risk_level,
	key_findings, mitigations, regulatory_references, best_practices,
	document_evidence, scoring_transparency
)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`
	for position, a := range result.Assessments {
		keyFindings, err := marshalJSONB(a.KeyFindings)
		if err != nil {
			return err
		}
		mitigations, err := marshalJSONB(a.Mitigations)
		if err != nil {
			return err
		}
		regulatory, err := marshalJSONB(a.RegulatoryReferences)
		if err != nil {
			return err
		}
		practices, err := marshalJSONB(a.BestPractices)
		if err != nil {
			return err
		}
		evidence, err := marshalJSONB(a.DocumentEvidence)
		if err != nil {
			return err
		}
		transparency, err := marshalJSONB(a.ScoringTransparency)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, insertQuery,
			reportID,
			position,
			a.Category,
			a.Subcategory,
			a.Description,
			a.Likelihood,
			a.Impact,
			a.RiskScore,
			a.RiskLevel,
			keyFindings,
			mitigations,
			regulatory,
			practices,
			evidence,
			transparency,
		); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// MarkFailed records a failure outcome.
func (r *PGRepo) MarkFailed(ctx context.Context, reportID, code, message string, retryable bool, completedAt time.Time) error {
	const query = `
UPDATE reports
SET status = $2, error_code = $3, error_message = $4, error_retryable = $5,
    completed_at = $6, updated_at = NOW()
WHERE id = $1 AND deleted_at IS NULL`
	return r.execExpectingRow(ctx, query, reportID, StatusFailed, code, message, retryable, completedAt)
}

// ClaimGuest reassigns reports owned by a guest user to an authenticated user.
func (r *PGRepo) ClaimGuest(ctx context.Context, guestUserID, authedUserID string) (int, error) {
	const query = `
UPDATE reports
SET user_id = $1, updated_at = NOW()
WHERE user_id = $2 AND deleted_at IS NULL`
	res, err := r.DB.ExecContext(ctx, query, authedUserID, guestUserID)
	if err != nil {
		return 0, err
	}
	updated, _ := res.RowsAffected()
	return int(updated), nil
}

// DeleteByUser soft-deletes all reports owned by a user.
func (r *PGRepo) DeleteByUser(ctx context.Context, userID string) (int, error) {
	const query = `
UPDATE reports
SET deleted_at = NOW(), updated_at = NOW()
WHERE user_id = $1 AND deleted_at IS NULL`
	res, err := r.DB.ExecContext(ctx, query, userID)
	if err != nil {
		return 0, err
	}
	deleted, _ := res.RowsAffected()
	return int(deleted), nil
}

func (r *PGRepo) execExpectingRow(ctx context.Context, query string, args ...any) error {
	res, err := r.DB.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PGRepo) loadAssessments(ctx context.Context, reportID string) ([]Assessment, error) {
	const query = `
SELECT category, subcategory, description, likelihood, impact, risk_score, risk_level,
       key_findings, mitigations, regulatory_references, best_practices,
       document_evidence, scoring_transparency
FROM report_assessments
WHERE report_id = $1
ORDER BY position ASC`
	rows, err := r.DB.QueryContext(ctx, query, reportID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Assessment
	for rows.Next() {
		var a Assessment
		var keyFindings, mitigations, regulatory, practices, evidence, transparency []byte
		if err := rows.Scan(
			&a.Category,
			&a.Subcategory,
			&a.Description,
			&a.Likelihood,
			&a.Impact,
			&a.RiskScore,
			&a.RiskLevel,
			&keyFindings,
			&mitigations,
			&regulatory,
			&practices,
			&evidence,
			&transparency,
		); err != nil {
			return nil, err
		}
		unmarshalJSONB(keyFindings, &a.KeyFindings)
		unmarshalJSONB(mitigations, &a.Mitigations)
		unmarshalJSONB(regulatory, &a.RegulatoryReferences)
		unmarshalJSONB(practices, &a.BestPractices)
		unmarshalJSONB(evidence, &a.DocumentEvidence)
		unmarshalJSONB(transparency, &a.ScoringTransparency)
		out = append(out, a)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanReport(row rowScanner) (Report, error) {
	var report Report
	var industry, promptVersion, analysisVersion, promptHash, provider, model sql.NullString
	var rawOutput, summary, recommendation sql.NullString
	var overallScore sql.NullFloat64
	var overallLevel, errorCode, errorMessage sql.NullString
	var degraded, errorRetryable sql.NullBool
	var startedAt, completedAt sql.NullTime

	err := row.Scan(
		&report.ID,
		&report.DocumentID,
		&report.UserID,
		&report.Status,
		&industry,
		&promptVersion,
		&analysisVersion,
		&promptHash,
		&provider,
		&model,
		&rawOutput,
		&summary,
		&recommendation,
		&overallScore,
		&overallLevel,
		&degraded,
		&errorCode,
		&errorMessage,
		&errorRetryable,
		&startedAt,
		&completedAt,
		&report.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return Report{}, ErrNotFound
	}
	if err != nil {
		return Report{}, err
	}

	report.Industry = industry.String
	report.PromptVersion = promptVersion.String
	report.AnalysisVersion = analysisVersion.String
	report.PromptHash = promptHash.String
	report.Provider = provider.String
	report.Model = model.String
	report.RawOutput = rawOutput.String
	report.Summary = summary.String
	report.Recommendation = recommendation.String
	report.OverallScore = overallScore.Float64
	report.OverallLevel = overallLevel.String
	report.Degraded = degraded.Bool
	report.ErrorCode = errorCode.String
	report.ErrorMessage = errorMessage.String
	report.ErrorRetryable = errorRetryable.Bool
	if startedAt.Valid {
		report.StartedAt = &startedAt.Time
	}
	if completedAt.Valid {
		report.CompletedAt = &completedAt.Time
	}
	return report, nil
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func getLatestForDocument(ctx context.Context, q queryer, userID, documentID string) (Report, error) {
	const query = `
SELECT id, document_id, user_id, status, industry, prompt_version, analysis_version,
       prompt_hash, provider, model, raw_output, summary, recommendation,
       overall_risk_score, overall_risk_level, degraded,
       error_code, error_message, error_retryable, started_at, completed_at, created_at
FROM reports
WHERE user_id = $1 AND document_id = $2 AND deleted_at IS NULL
ORDER BY created_at DESC
LIMIT 1`
	return scanReport(q.QueryRowContext(ctx, query, userID, documentID))
}

func createWithTx(ctx context.Context, tx *sql.Tx, report Report) error {
	const query = `
INSERT INTO reports (
	id, document_id, user_id, status, industry, prompt_version, analysis_version,
	prompt_hash, provider, model, created_at
)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
	_, err := tx.ExecContext(ctx, query,
		report.ID,
		report.DocumentID,
		report.UserID,
		report.Status,
		report.Industry,
		report.PromptVersion,
		report.AnalysisVersion,
		report.PromptHash,
		report.Provider,
		report.Model,
		report.CreatedAt,
	)
	return err
}

func marshalJSONB(value any) ([]byte, error) {
	if value == nil {
		return []byte("null"), nil
	}
	payload, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("marshal jsonb: %w", err)
	}
	return payload, nil
}

func unmarshalJSONB(payload []byte, target any) {
	if len(payload) == 0 {
		return
	}
	_ = json.Unmarshal(payload, target)
}

var _ Repo = (*PGRepo)(nil)
