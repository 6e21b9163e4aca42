package reports

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"

	"riskscan-backend/internal/documents"
	"riskscan-backend/internal/extract"
	"riskscan-backend/internal/llm"
	"riskscan-backend/internal/queue"
	"riskscan-backend/internal/shared/metrics"
	"riskscan-backend/internal/shared/storage/object"
	"riskscan-backend/internal/shared/telemetry"
	"riskscan-backend/internal/usage"
)

const (
	StatusQueued     = "queued"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// Service contains business logic for risk reports.
type Service struct {
	Repo            Repo
	Usage           *usage.Service
	DocRepo         documents.DocumentsRepo
	Store           object.ObjectStore
	LLM             llm.Client
	Provider        string
	Model           string
	AnalysisVersion string

	// JobQueue, when set, dispatches completion to a worker process instead
	// of running it in-process.
	JobQueue queue.Client

	// Pipeline overrides the default ingestion pipeline, mainly for tests.
	Pipeline *Pipeline
}

// dispatch hands the queued report to whichever completion path is
// configured. Queue failures fall back to in-process completion so a report
// never stays queued forever.
func (s *Service) dispatch(ctx context.Context, reportID string) {
	if s.JobQueue == nil {
		go s.completeAsync(backgroundWithRequestID(ctx), reportID)
		return
	}
	msg := queue.Message{
		ReportID:   reportID,
		RequestID:  requestIDFromContext(ctx),
		EnqueuedAt: time.Now().UTC().Format(time.RFC3339),
		Version:    1,
	}
	if err := s.JobQueue.Send(ctx, msg); err != nil {
		telemetry.Error("report.enqueue_failed", map[string]any{
			"request_id": requestIDFromContext(ctx),
			"report_id":  reportID,
			"error":      sanitizeError(err),
		})
		go s.completeAsync(backgroundWithRequestID(ctx), reportID)
	}
}

// Create enqueues a new report and kicks off asynchronous completion.
func (s *Service) Create(ctx context.Context, documentID, userID, industry, promptVersion string) (Report, error) {
	if documentID == "" || userID == "" {
		return Report{}, errors.New("documentID and userID are required")
	}
	if promptVersion == "" {
		promptVersion = "v1_1"
	}

	if s.Usage != nil {
		ok, _, err := s.Usage.CanConsume(ctx, userID, 1)
		if err != nil {
			return Report{}, err
		}
		if !ok {
			return Report{}, usage.ErrLimitReached
		}
	}

	report := Report{
		ID:              uuid.NewString(),
		DocumentID:      documentID,
		UserID:          userID,
		Industry:        industry,
		PromptVersion:   promptVersion,
		AnalysisVersion: normalizeAnalysisVersion(s.AnalysisVersion),
		Provider:        normalizeProvider(s.Provider),
		Model:           s.Model,
		Status:          StatusQueued,
		CreatedAt:       time.Now().UTC(),
	}

	if err := s.Repo.Create(ctx, report); err != nil {
		return Report{}, err
	}

	if s.Usage != nil {
		if _, err := s.Usage.Consume(ctx, userID, 1); err != nil {
			return Report{}, err
		}
	}

	s.dispatch(ctx, report.ID)

	return report, nil
}

// StartOrReuse enqueues a new report or reuses an existing one for idempotent requests.
func (s *Service) StartOrReuse(ctx context.Context, documentID, userID, industry, promptVersion string, allowRetry bool) (Report, bool, error) {
	if documentID == "" || userID == "" {
		return Report{}, false, errors.New("documentID and userID are required")
	}
	if promptVersion == "" {
		promptVersion = "v1_1"
	}

	report := Report{
		ID:              uuid.NewString(),
		DocumentID:      documentID,
		UserID:          userID,
		Industry:        industry,
		PromptVersion:   promptVersion,
		AnalysisVersion: normalizeAnalysisVersion(s.AnalysisVersion),
		Provider:        normalizeProvider(s.Provider),
		Model:           s.Model,
		Status:          StatusQueued,
		CreatedAt:       time.Now().UTC(),
	}

	var allowCreate func() error
	if s.Usage != nil {
		allowCreate = func() error {
			ok, _, err := s.Usage.CanConsume(ctx, userID, 1)
			if err != nil {
				return err
			}
			if !ok {
				return usage.ErrLimitReached
			}
			return nil
		}
	}

	createdReport, created, err := s.Repo.GetOrCreateForDocument(ctx, report, allowRetry, allowCreate)
	if err != nil {
		return createdReport, false, err
	}
	if created && s.Usage != nil {
		if _, err := s.Usage.Consume(ctx, userID, 1); err != nil {
			return createdReport, false, err
		}
	}
	if created {
		s.dispatch(ctx, createdReport.ID)
	}
	return createdReport, created, nil
}

// Get returns a report by ID.
func (s *Service) Get(ctx context.Context, reportID string) (Report, error) {
	if reportID == "" {
		return Report{}, errors.New("reportID is required")
	}
	return s.Repo.GetByID(ctx, reportID)
}

// List returns reports for a user ordered newest-first.
func (s *Service) List(ctx context.Context, userID string, limit, offset int) ([]Report, error) {
	if userID == "" {
		return nil, errors.New("userID is required")
	}
	return s.Repo.ListByUser(ctx, userID, limit, offset)
}

// Complete runs the full report job synchronously. Worker processes call it
// directly; the API path runs it through completeAsync. It returns an error
// only when the failure is retryable, so queue consumers can redeliver.
func (s *Service) Complete(ctx context.Context, reportID string) error {
	s.completeAsync(ctx, reportID)
	report, err := s.Repo.GetByID(ctx, reportID)
	if err != nil {
		return err
	}
	if report.Status == StatusFailed && report.ErrorRetryable {
		return fmt.Errorf("report %s failed: %s", reportID, report.ErrorCode)
	}
	return nil
}

func normalizeProvider(provider string) string {
	if strings.TrimSpace(provider) == "" {
		return "openai"
	}
	return provider
}

func normalizeAnalysisVersion(version string) string {
	if strings.TrimSpace(version) == "" {
		return "unknown"
	}
	return strings.TrimSpace(version)
}

func (s *Service) pipeline(client llm.Client) *Pipeline {
	if s.Pipeline != nil {
		p := *s.Pipeline
		p.LLM = client
		return &p
	}
	return NewPipeline(client)
}

func (s *Service) completeAsync(ctx context.Context, reportID string) {
	defer func() {
		if r := recover(); r != nil {
			s.failReport(ctx, reportID, "", "", fmt.Errorf("panic: %v", r), nil)
		}
	}()
	startedAt := time.Now().UTC()
	if err := s.Repo.MarkProcessing(ctx, reportID, startedAt); err != nil {
		s.failReport(ctx, reportID, "", "", fmt.Errorf("set processing failed: %w", err), &startedAt)
		return
	}

	report, err := s.Repo.GetByID(ctx, reportID)
	if err != nil {
		s.failReport(ctx, reportID, "", "", fmt.Errorf("report lookup: %w", err), &startedAt)
		return
	}
	metrics.IncReportStarted()
	telemetry.Info("report.status", map[string]any{
		"request_id":        requestIDFromContext(ctx),
		"user_id":           report.UserID,
		"document_id":       report.DocumentID,
		"report_id":         report.ID,
		"status":            StatusProcessing,
		"status_transition": "queued->processing",
	})
	if s.DocRepo == nil || s.Store == nil {
		s.failReport(ctx, reportID, report.UserID, report.DocumentID, errors.New("missing document store dependencies"), &startedAt)
		return
	}
	if s.LLM == nil {
		s.failReport(ctx, reportID, report.UserID, report.DocumentID, errors.New("missing llm client"), &startedAt)
		return
	}
	requestID := requestIDFromContext(ctx)
	llmClient := newRetryingLLM(s.LLM, reportID, requestID)

	doc, err := s.DocRepo.GetByID(ctx, report.UserID, report.DocumentID)
	if err != nil {
		s.failReport(ctx, reportID, report.UserID, report.DocumentID, fmt.Errorf("document lookup id=%s: %w", report.DocumentID, err), &startedAt)
		return
	}

	extractedKey := doc.ExtractedTextKey
	if extractedKey == "" {
		if _, err := extract.ExtractText(ctx, s.Store, doc.StorageKey, doc.MimeType, doc.FileName); err != nil {
			s.failReport(ctx, reportID, report.UserID, report.DocumentID, fmt.Errorf("document %s mime %s: %w", doc.ID, doc.MimeType, err), &startedAt)
			return
		}
		extractedKey = doc.StorageKey + ".extracted.txt"
		if err := s.DocRepo.UpdateExtraction(ctx, doc.UserID, doc.ID, extractedKey, time.Now().UTC()); err != nil {
			s.failReport(ctx, reportID, report.UserID, report.DocumentID, fmt.Errorf("document %s mime %s: update extraction: %w", doc.ID, doc.MimeType, err), &startedAt)
			return
		}
	}

	extracted, err := loadText(ctx, s.Store, extractedKey)
	if err != nil {
		s.failReport(ctx, reportID, report.UserID, report.DocumentID, fmt.Errorf("document %s mime %s: load extracted text: %w", doc.ID, doc.MimeType, err), &startedAt)
		return
	}

	input := llm.AnalyzeInput{
		DocumentText:  extracted,
		Industry:      report.Industry,
		PromptVersion: report.PromptVersion,
	}
	var promptHash string
	ctxWithHash := llm.WithPromptHashCapture(ctx, &promptHash)

	raw, err := llmClient.AnalyzeDocument(ctxWithHash, input)
	if err != nil {
		s.failReport(ctx, reportID, report.UserID, report.DocumentID, fmt.Errorf("llm analyze: %w", err), &startedAt)
		return
	}
	if err := s.Repo.UpdateRawOutput(ctx, reportID, raw); err != nil {
		s.failReport(ctx, reportID, report.UserID, report.DocumentID, fmt.Errorf("set report raw failed: %w", err), &startedAt)
		return
	}
	if err := s.Repo.UpdatePromptMetadata(ctx, reportID, report.AnalysisVersion, promptHash); err != nil {
		s.failReport(ctx, reportID, report.UserID, report.DocumentID, fmt.Errorf("set prompt metadata failed: %w", err), &startedAt)
		return
	}

	result, err := s.pipeline(llmClient).Run(ctxWithHash, raw, input)
	if err != nil {
		s.failReport(ctx, reportID, report.UserID, report.DocumentID, err, &startedAt)
		return
	}

	completedAt := time.Now().UTC()
	if err := s.Repo.SaveResult(ctx, reportID, result, completedAt); err != nil {
		s.failReport(ctx, reportID, report.UserID, report.DocumentID, fmt.Errorf("set report result failed: %w", err), &startedAt)
		return
	}
	metrics.IncReportCompleted()
	metrics.ObserveReportDurationMs(durationMs(&startedAt, &completedAt))
	telemetry.Info("report.status", map[string]any{
		"request_id":        requestIDFromContext(ctx),
		"user_id":           report.UserID,
		"document_id":       report.DocumentID,
		"report_id":         report.ID,
		"status":            StatusCompleted,
		"status_transition": "processing->completed",
		"degraded":          result.Degraded,
		"assessment_count":  len(result.Assessments),
		"duration_ms":       durationMs(&startedAt, &completedAt),
	})
}

func (s *Service) failReport(ctx context.Context, reportID, userID, documentID string, err error, startedAt *time.Time) {
	code, retryable := classifyFailure(err)
	msg := sanitizeError(err)
	completedAt := time.Now().UTC()
	if updateErr := s.Repo.MarkFailed(context.Background(), reportID, code, msg, retryable, completedAt); updateErr != nil {
		fmt.Printf("failReport: update failed id=%s err=%v orig=%v\n", reportID, updateErr, err)
	}
	metrics.IncReportFailed()
	if startedAt != nil {
		metrics.ObserveReportDurationMs(durationMs(startedAt, &completedAt))
	}
	telemetry.Info("report.status", map[string]any{
		"request_id":        requestIDFromContext(ctx),
		"user_id":           userID,
		"document_id":       documentID,
		"report_id":         reportID,
		"status":            StatusFailed,
		"status_transition": "processing->failed",
		"error_code":        code,
		"duration_ms":       durationMs(startedAt, &completedAt),
	})
}

func durationMs(startedAt, completedAt *time.Time) float64 {
	if startedAt == nil || completedAt == nil {
		return 0
	}
	return float64(completedAt.Sub(*startedAt).Microseconds()) / 1000.0
}

func classifyFailure(err error) (string, bool) {
	if err == nil {
		return ErrorCodeInternal, false
	}
	var pf *PipelineFailure
	if errors.As(err, &pf) {
		return pf.Code, false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrorCodeLLMTimeout, true
	}
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "openai request timeout") {
		return ErrorCodeLLMTimeout, true
	}
	if strings.Contains(msg, "timeout") && strings.Contains(msg, "llm") {
		return ErrorCodeLLMTimeout, true
	}
	if strings.Contains(msg, "schema") || strings.Contains(msg, "llm output invalid") || strings.Contains(msg, "llm output parse") {
		return ErrorCodeLLMSchemaMismatch, false
	}
	if strings.Contains(msg, "validation") && !strings.Contains(msg, "llm") {
		return ErrorCodeValidation, false
	}
	if strings.Contains(msg, "document") || strings.Contains(msg, "storage") || strings.Contains(msg, "report raw") || strings.Contains(msg, "report result") || strings.Contains(msg, "prompt metadata") || strings.Contains(msg, "set processing") {
		return ErrorCodeStorage, true
	}
	return ErrorCodeInternal, false
}

func sanitizeError(err error) string {
	if err == nil {
		return ""
	}
	msg := strings.ReplaceAll(err.Error(), "\n", " ")
	msg = strings.ReplaceAll(msg, "\r", " ")
	msg = strings.TrimSpace(msg)
	const maxLen = 500
	if len(msg) > maxLen {
		msg = msg[:maxLen]
	}
	return msg
}

func loadText(ctx context.Context, store object.ObjectStore, key string) (string, error) {
	body, err := store.Open(ctx, key)
	if err != nil {
		return "", err
	}
	defer body.Close()

	data, err := io.ReadAll(body)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
