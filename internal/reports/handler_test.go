package reports

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"riskscan-backend/internal/documents"
	"riskscan-backend/internal/queue"
	"riskscan-backend/internal/shared/server/middleware"
	"riskscan-backend/internal/shared/storage/object"
	local "riskscan-backend/internal/shared/storage/object/local"
)

type stubQueue struct {
	messages []queue.Message
	err      error
}

func (s *stubQueue) Send(ctx context.Context, msg queue.Message) error {
	_ = ctx
	if s.err != nil {
		return s.err
	}
	s.messages = append(s.messages, msg)
	return nil
}

func setupReportRouter(t *testing.T) (*gin.Engine, *documents.MemoryRepo, *MemoryRepo, object.ObjectStore, *stubQueue) {
	t.Helper()
	docRepo := documents.NewMemoryRepo()
	reportRepo := NewMemoryRepo()
	store := local.New(t.TempDir())
	queueStub := &stubQueue{}
	svc := &Service{
		Repo:     reportRepo,
		DocRepo:  docRepo,
		Store:    store,
		LLM:      &scriptedLLM{},
		JobQueue: queueStub,
	}
	handler := NewHandler(svc, docRepo)

	router := gin.New()
	router.Use(middleware.Auth("dev"))
	api := router.Group("/api/v1")
	handler.RegisterRoutes(api)

	return router, docRepo, reportRepo, store, queueStub
}

func seedDocument(t *testing.T, repo *documents.MemoryRepo, store object.ObjectStore, userID string) string {
	t.Helper()

	extractedKey, _, _, err := store.Save(context.Background(), userID, "rfp.txt", bytes.NewReader([]byte("rfp text")))
	if err != nil {
		t.Fatalf("save extracted text: %v", err)
	}
	doc := documents.Document{
		ID:               "doc-" + userID,
		UserID:           userID,
		FileName:         "rfp.pdf",
		MimeType:         "application/pdf",
		SizeBytes:        123,
		StorageKey:       "test-key",
		ExtractedTextKey: extractedKey,
		CreatedAt:        time.Now().UTC(),
	}
	if err := repo.Create(context.Background(), doc); err != nil {
		t.Fatalf("create document: %v", err)
	}
	return doc.ID
}

func addGuestHeader(req *http.Request) {
	req.Header.Set("X-Guest-Id", "test-guest")
}

func TestStartReportEnqueues(t *testing.T) {
	gin.SetMode(gin.TestMode)

	router, docRepo, reportRepo, store, queueStub := setupReportRouter(t)
	userID := "guest:test-guest"
	documentID := seedDocument(t, docRepo, store, userID)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/documents/"+documentID+"/reports", nil)
	addGuestHeader(req)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusAccepted {
		t.Fatalf("expected status 202, got %d: %s", resp.Code, resp.Body.String())
	}

	var created struct {
		ReportID string `json:"reportId"`
		Status   string `json:"status"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if created.ReportID == "" {
		t.Fatalf("expected reportId, got empty")
	}
	if created.Status != StatusQueued {
		t.Fatalf("status = %q, want queued", created.Status)
	}

	report, err := reportRepo.GetByID(context.Background(), created.ReportID)
	if err != nil {
		t.Fatalf("get report: %v", err)
	}
	if report.PromptVersion != "v1_1" {
		t.Fatalf("promptVersion = %q, want the default v1_1", report.PromptVersion)
	}
	if len(queueStub.messages) != 1 {
		t.Fatalf("expected 1 queued message, got %d", len(queueStub.messages))
	}
	if queueStub.messages[0].ReportID != created.ReportID {
		t.Fatalf("queued message carries %q, want %q", queueStub.messages[0].ReportID, created.ReportID)
	}
}

func TestStartReportIdempotentDoublePost(t *testing.T) {
	gin.SetMode(gin.TestMode)

	router, docRepo, reportRepo, store, queueStub := setupReportRouter(t)
	userID := "guest:test-guest"
	documentID := seedDocument(t, docRepo, store, userID)

	do := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/documents/"+documentID+"/reports", nil)
		addGuestHeader(req)
		resp := httptest.NewRecorder()
		router.ServeHTTP(resp, req)
		return resp
	}

	first := do()
	if first.Code != http.StatusAccepted {
		t.Fatalf("first post: %d", first.Code)
	}
	var firstBody map[string]any
	if err := json.NewDecoder(first.Body).Decode(&firstBody); err != nil {
		t.Fatalf("decode first: %v", err)
	}
	firstID, _ := firstBody["reportId"].(string)

	second := do()
	if second.Code != http.StatusOK {
		t.Fatalf("second post: %d, want 200 (reuse)", second.Code)
	}
	var secondBody map[string]any
	if err := json.NewDecoder(second.Body).Decode(&secondBody); err != nil {
		t.Fatalf("decode second: %v", err)
	}
	if secondID, _ := secondBody["reportId"].(string); secondID != firstID {
		t.Fatalf("second post created a new report: %q vs %q", secondID, firstID)
	}

	reports, err := reportRepo.ListByUser(context.Background(), userID, 100, 0)
	if err != nil {
		t.Fatalf("list reports: %v", err)
	}
	if len(reports) != 1 {
		t.Fatalf("expected 1 report, got %d", len(reports))
	}
	if len(queueStub.messages) != 1 {
		t.Fatalf("expected 1 queued message, got %d", len(queueStub.messages))
	}
}

func TestStartReportFailedRequiresRetry(t *testing.T) {
	gin.SetMode(gin.TestMode)

	router, docRepo, reportRepo, store, _ := setupReportRouter(t)
	userID := "guest:test-guest"
	documentID := seedDocument(t, docRepo, store, userID)

	failed := Report{
		ID:         "report-failed",
		DocumentID: documentID,
		UserID:     userID,
		Status:     StatusFailed,
		ErrorCode:  ErrorCodeLLMTimeout,
		CreatedAt:  time.Now().UTC(),
	}
	if err := reportRepo.Create(context.Background(), failed); err != nil {
		t.Fatalf("create report: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/documents/"+documentID+"/reports", nil)
	addGuestHeader(req)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusConflict {
		t.Fatalf("expected status 409, got %d", resp.Code)
	}

	body, _ := json.Marshal(startReportRequest{Retry: true})
	req2 := httptest.NewRequest(http.MethodPost, "/api/v1/documents/"+documentID+"/reports", bytes.NewReader(body))
	req2.Header.Set("Content-Type", "application/json")
	addGuestHeader(req2)
	resp2 := httptest.NewRecorder()
	router.ServeHTTP(resp2, req2)

	if resp2.Code != http.StatusAccepted {
		t.Fatalf("retry=true should start a new report, got %d: %s", resp2.Code, resp2.Body.String())
	}
}

func TestGetReportCompletedPayload(t *testing.T) {
	gin.SetMode(gin.TestMode)

	router, _, reportRepo, _, _ := setupReportRouter(t)
	userID := "guest:test-guest"

	completedAt := time.Now().UTC()
	report := Report{
		ID:         "report-done",
		DocumentID: "doc-1",
		UserID:     userID,
		Status:     StatusQueued,
		CreatedAt:  time.Now().UTC(),
	}
	if err := reportRepo.Create(context.Background(), report); err != nil {
		t.Fatalf("create report: %v", err)
	}
	result := ResultSet{
		OverallScore:   14.5,
		OverallLevel:   RiskLevelHigh,
		Summary:        "summary",
		Recommendation: "proceed with caution",
		Assessments: []Assessment{{
			Category:             "Data Privacy",
			Subcategory:          "Cross-Border Transfers",
			RiskScore:            12,
			RiskLevel:            RiskLevelMedium,
			Likelihood:           3,
			Impact:               4,
			KeyFindings:          []string{"f"},
			Mitigations:          []string{"m"},
			RegulatoryReferences: []string{"GDPR Art. 35", "EU AI Act Art. 10"},
			BestPractices:        []string{"NIST AI RMF", "ISO/IEC 27001"},
		}},
	}
	if err := reportRepo.SaveResult(context.Background(), report.ID, result, completedAt); err != nil {
		t.Fatalf("save result: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/reports/"+report.ID, nil)
	addGuestHeader(req)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.Code)
	}
	var decoded struct {
		Status           string       `json:"status"`
		OverallRiskScore float64      `json:"overallRiskScore"`
		OverallRiskLevel string       `json:"overallRiskLevel"`
		Assessments      []Assessment `json:"assessments"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if decoded.Status != StatusCompleted {
		t.Fatalf("status = %q", decoded.Status)
	}
	if decoded.OverallRiskScore != 14.5 || decoded.OverallRiskLevel != RiskLevelHigh {
		t.Fatalf("overall = %v %q", decoded.OverallRiskScore, decoded.OverallRiskLevel)
	}
	if len(decoded.Assessments) != 1 {
		t.Fatalf("assessments = %d", len(decoded.Assessments))
	}
}

func TestGetReportOtherUsersHidden(t *testing.T) {
	gin.SetMode(gin.TestMode)

	router, _, reportRepo, _, _ := setupReportRouter(t)

	report := Report{
		ID:         "report-private",
		DocumentID: "doc-1",
		UserID:     "guest:someone-else",
		Status:     StatusCompleted,
		CreatedAt:  time.Now().UTC(),
	}
	if err := reportRepo.Create(context.Background(), report); err != nil {
		t.Fatalf("create report: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/reports/"+report.ID, nil)
	addGuestHeader(req)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected status 404 for another user's report, got %d", resp.Code)
	}
}

func TestGetReportPollLimiter(t *testing.T) {
	gin.SetMode(gin.TestMode)

	router, _, reportRepo, _, _ := setupReportRouter(t)
	userID := "guest:test-guest"

	report := Report{
		ID:         "report-polling",
		DocumentID: "doc-1",
		UserID:     userID,
		Status:     StatusProcessing,
		CreatedAt:  time.Now().UTC(),
	}
	if err := reportRepo.Create(context.Background(), report); err != nil {
		t.Fatalf("create report: %v", err)
	}

	do := func() int {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/reports/"+report.ID, nil)
		addGuestHeader(req)
		resp := httptest.NewRecorder()
		router.ServeHTTP(resp, req)
		return resp.Code
	}

	if code := do(); code != http.StatusOK {
		t.Fatalf("first poll: %d", code)
	}
	if code := do(); code != http.StatusTooManyRequests {
		t.Fatalf("rapid second poll: %d, want 429", code)
	}
}

func TestListReportsGuestRejected(t *testing.T) {
	gin.SetMode(gin.TestMode)

	router, _, _, _, _ := setupReportRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/reports", nil)
	addGuestHeader(req)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("guest list should be rejected, got %d", resp.Code)
	}
}
