package reports

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

func newMockRepo(t *testing.T) (*PGRepo, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return &PGRepo{DB: db}, mock
}

func TestPGRepoCreate(t *testing.T) {
	repo, mock := newMockRepo(t)
	report := Report{
		ID:              "report-1",
		DocumentID:      "doc-1",
		UserID:          "user-1",
		Status:          StatusQueued,
		Industry:        "healthcare",
		PromptVersion:   "v1_1",
		AnalysisVersion: "ra-2025-01",
		Provider:        "openai",
		Model:           "gpt-4o",
		CreatedAt:       time.Now().UTC(),
	}

	mock.ExpectExec("INSERT INTO reports").
		WithArgs(
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
			sqlmock.AnyArg(),
		).
		WillReturnResult(sqlmock.NewResult(1, 1))

	if err := repo.Create(context.Background(), report); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGRepoSaveResultTransactional(t *testing.T) {
	repo, mock := newMockRepo(t)
	completedAt := time.Now().UTC()
	result := ResultSet{
		OverallScore:   11.7,
		OverallLevel:   RiskLevelHigh,
		Summary:        "summary",
		Recommendation: "recommendation",
		Degraded:       false,
		Assessments: []Assessment{
			{
				Category:             "Data Privacy",
				Subcategory:          "Cross-Border Transfers",
				Description:          "d",
				Likelihood:           3,
				Impact:               4,
				RiskScore:            12,
				RiskLevel:            RiskLevelMedium,
				KeyFindings:          []string{"f"},
				Mitigations:          []string{"m"},
				RegulatoryReferences: []string{"GDPR Art. 35", "EU AI Act Art. 10"},
				BestPractices:        []string{"NIST AI RMF", "ISO/IEC 27001"},
			},
		},
	}

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE reports").
		WithArgs(
			"report-1",
			StatusCompleted,
			result.Summary,
			result.Recommendation,
			result.OverallScore,
			result.OverallLevel,
			result.Degraded,
			sqlmock.AnyArg(),
		).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("DELETE FROM report_assessments").
		WithArgs("report-1").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("INSERT INTO report_assessments").
		WithArgs(
			"report-1",
			0,
			"Data Privacy",
			"Cross-Border Transfers",
			"d",
			3,
			4,
			12,
			RiskLevelMedium,
			sqlmock.AnyArg(), // key_findings
			sqlmock.AnyArg(), // mitigations
			sqlmock.AnyArg(), // regulatory_references
			sqlmock.AnyArg(), // best_practices
			sqlmock.AnyArg(), // document_evidence
			sqlmock.AnyArg(), // scoring_transparency
		).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	if err := repo.SaveResult(context.Background(), "report-1", result, completedAt); err != nil {
		t.Fatalf("SaveResult: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGRepoSaveResultUnknownReport(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE reports").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := repo.SaveResult(context.Background(), "missing", ResultSet{}, time.Now().UTC())
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGRepoMarkFailed(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectExec("UPDATE reports").
		WithArgs("report-1", StatusFailed, ErrorCodeLLMTimeout, "openai request timeout", true, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.MarkFailed(context.Background(), "report-1", ErrorCodeLLMTimeout, "openai request timeout", true, time.Now().UTC()); err != nil {
		t.Fatalf("MarkFailed: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGRepoGetByIDNotFound(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery("SELECT (.+) FROM reports").
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByID(context.Background(), "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}
