package account

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"riskscan-backend/internal/documents"
	"riskscan-backend/internal/reports"
)

type Service struct {
	DocRepo    documents.DocumentsRepo
	ReportRepo reports.Repo
}

type ClaimResult struct {
	MigratedDocuments int `json:"migratedDocuments"`
	MigratedReports   int `json:"migratedReports"`
}

func NewService(docRepo documents.DocumentsRepo, reportRepo reports.Repo) *Service {
	return &Service{DocRepo: docRepo, ReportRepo: reportRepo}
}

func (s *Service) ClaimGuest(ctx context.Context, guestUserID, authedUserID string) (ClaimResult, error) {
	if strings.TrimSpace(guestUserID) == "" || strings.TrimSpace(authedUserID) == "" {
		return ClaimResult{}, errors.New("guestUserID and authedUserID are required")
	}

	if docPG, ok := s.DocRepo.(*documents.PGRepo); ok && docPG != nil && docPG.DB != nil {
		if reportPG, ok := s.ReportRepo.(*reports.PGRepo); ok && reportPG != nil && reportPG.DB != nil {
			return claimWithTx(ctx, docPG.DB, guestUserID, authedUserID)
		}
	}

	docCount, err := claimDocs(ctx, s.DocRepo, guestUserID, authedUserID)
	if err != nil {
		return ClaimResult{}, err
	}
	reportCount, err := claimReports(ctx, s.ReportRepo, guestUserID, authedUserID)
	if err != nil {
		return ClaimResult{}, err
	}
	return ClaimResult{MigratedDocuments: docCount, MigratedReports: reportCount}, nil
}

func claimWithTx(ctx context.Context, db *sql.DB, guestUserID, authedUserID string) (ClaimResult, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return ClaimResult{}, err
	}
	defer tx.Rollback()

	docRes, err := tx.ExecContext(ctx, `UPDATE documents SET user_id = $1 WHERE user_id = $2 AND deleted_at IS NULL`, authedUserID, guestUserID)
	if err != nil {
		return ClaimResult{}, err
	}
	docCount, _ := docRes.RowsAffected()

	reportRes, err := tx.ExecContext(ctx, `UPDATE reports SET user_id = $1 WHERE user_id = $2 AND deleted_at IS NULL`, authedUserID, guestUserID)
	if err != nil {
		return ClaimResult{}, err
	}
	reportCount, _ := reportRes.RowsAffected()

	if err := tx.Commit(); err != nil {
		return ClaimResult{}, err
	}
	return ClaimResult{MigratedDocuments: int(docCount), MigratedReports: int(reportCount)}, nil
}

// DeleteResult reports how many records an account deletion removed.
type DeleteResult struct {
	DeletedDocuments int `json:"deletedDocuments"`
	DeletedReports   int `json:"deletedReports"`
}

// DeleteAccount removes all documents and reports owned by a user. When both
// repos are Postgres the deletion runs in one transaction.
func (s *Service) DeleteAccount(ctx context.Context, userID string) (DeleteResult, error) {
	if strings.TrimSpace(userID) == "" {
		return DeleteResult{}, errors.New("userID is required")
	}

	if docPG, ok := s.DocRepo.(*documents.PGRepo); ok && docPG != nil && docPG.DB != nil {
		if reportPG, ok := s.ReportRepo.(*reports.PGRepo); ok && reportPG != nil && reportPG.DB != nil {
			return deleteWithTx(ctx, docPG.DB, userID)
		}
	}

	docCount, err := deleteByUser(ctx, s.DocRepo, userID, "documents")
	if err != nil {
		return DeleteResult{}, err
	}
	reportCount, err := deleteByUser(ctx, s.ReportRepo, userID, "reports")
	if err != nil {
		return DeleteResult{}, err
	}
	return DeleteResult{DeletedDocuments: docCount, DeletedReports: reportCount}, nil
}

func deleteWithTx(ctx context.Context, db *sql.DB, userID string) (DeleteResult, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return DeleteResult{}, err
	}
	defer tx.Rollback()

	docRes, err := tx.ExecContext(ctx, `UPDATE documents SET deleted_at = NOW() WHERE user_id = $1 AND deleted_at IS NULL`, userID)
	if err != nil {
		return DeleteResult{}, err
	}
	docCount, _ := docRes.RowsAffected()

	reportRes, err := tx.ExecContext(ctx, `UPDATE reports SET deleted_at = NOW(), updated_at = NOW() WHERE user_id = $1 AND deleted_at IS NULL`, userID)
	if err != nil {
		return DeleteResult{}, err
	}
	reportCount, _ := reportRes.RowsAffected()

	if err := tx.Commit(); err != nil {
		return DeleteResult{}, err
	}
	return DeleteResult{DeletedDocuments: int(docCount), DeletedReports: int(reportCount)}, nil
}

type guestClaimer interface {
	ClaimGuest(ctx context.Context, guestUserID, authedUserID string) (int, error)
}

type userDeleter interface {
	DeleteByUser(ctx context.Context, userID string) (int, error)
}

func deleteByUser(ctx context.Context, repo any, userID, kind string) (int, error) {
	if deleter, ok := repo.(userDeleter); ok {
		return deleter.DeleteByUser(ctx, userID)
	}
	return 0, errors.New(kind + " repo does not support delete")
}

func claimDocs(ctx context.Context, repo documents.DocumentsRepo, guestUserID, authedUserID string) (int, error) {
	if claimer, ok := repo.(guestClaimer); ok {
		return claimer.ClaimGuest(ctx, guestUserID, authedUserID)
	}
	return 0, errors.New("documents repo does not support claim")
}

func claimReports(ctx context.Context, repo reports.Repo, guestUserID, authedUserID string) (int, error) {
	if claimer, ok := repo.(guestClaimer); ok {
		return claimer.ClaimGuest(ctx, guestUserID, authedUserID)
	}
	return 0, errors.New("reports repo does not support claim")
}
