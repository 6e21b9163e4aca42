package reports

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"riskscan-backend/internal/documents"
	"riskscan-backend/internal/shared/server/middleware"
	"riskscan-backend/internal/shared/server/respond"
	"riskscan-backend/internal/usage"
)

// Handler wires HTTP handlers to the reports service.
type Handler struct {
	Svc     *Service
	DocRepo documents.DocumentsRepo

	limiter *pollLimiter
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service, docRepo documents.DocumentsRepo) *Handler {
	return &Handler{
		Svc:     svc,
		DocRepo: docRepo,
		limiter: newPollLimiter(0, nil),
	}
}

// RegisterRoutes attaches report routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/documents/:id/reports", h.startReport)
	rg.GET("/reports", h.listReports)
	rg.GET("/reports/:id", h.getReport)
}

type startReportRequest struct {
	Industry      string `json:"industry"`
	PromptVersion string `json:"promptVersion"`
	Retry         bool   `json:"retry"`
}

func (h *Handler) startReport(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	documentID := c.Param("id")
	if documentID == "" {
		respond.Error(c, http.StatusBadRequest, "validation_error", "document id is required", nil)
		return
	}

	var req startReportRequest
	if c.Request.Body != nil && c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
			return
		}
	}
	log.Printf("Starting risk report for user %s on document %s", userID, documentID)

	doc, err := h.DocRepo.GetByID(c.Request.Context(), userID, documentID)
	if err != nil {
		switch {
		case errors.Is(err, documents.ErrNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "document not found", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to start report", nil)
		}
		return
	}

	ctx := WithRequestID(c.Request.Context(), middleware.RequestIDFromContext(c))
	report, created, err := h.Svc.StartOrReuse(ctx, doc.ID, userID, req.Industry, req.PromptVersion, req.Retry)
	if err != nil {
		switch {
		case errors.Is(err, usage.ErrLimitReached):
			respond.Error(c, http.StatusTooManyRequests, "limit_reached", "You've reached your report limit. Upgrade your plan to continue.", []map[string]string{
				{"field": "usage", "issue": "limit_reached"},
			})
		case errors.Is(err, ErrRetryRequired):
			respond.Error(c, http.StatusConflict, "retry_required", "The last report for this document failed. Pass retry=true to run it again.", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to start report", nil)
		}
		return
	}

	c.Set("documentId", doc.ID)
	c.Set("reportId", report.ID)
	if created {
		c.Set("statusTransition", "created->"+report.Status)
	}

	status := http.StatusOK
	if created {
		status = http.StatusAccepted
	}
	respond.JSON(c, status, gin.H{
		"reportId": report.ID,
		"status":   report.Status,
		"reused":   !created,
	})
}

func (h *Handler) getReport(c *gin.Context) {
	reportID := c.Param("id")
	if reportID == "" {
		respond.Error(c, http.StatusBadRequest, "validation_error", "report id is required", nil)
		return
	}

	userID := middleware.UserIDFromContext(c)
	report, err := h.Svc.Get(c.Request.Context(), reportID)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "report not found", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to fetch report", nil)
		}
		return
	}
	if report.UserID != userID {
		respond.Error(c, http.StatusNotFound, "not_found", "report not found", nil)
		return
	}

	// Clients poll in-flight reports; hold them to one hit per window.
	if report.Status == StatusQueued || report.Status == StatusProcessing {
		if !h.limiter.Allow(userID, report.DocumentID) {
			c.Header("Retry-After", strconv.Itoa(h.limiter.RetryAfterSeconds()))
			respond.Error(c, http.StatusTooManyRequests, "poll_too_fast", "Polling too frequently", nil)
			return
		}
	}

	resp := gin.H{
		"id":         report.ID,
		"documentId": report.DocumentID,
		"status":     report.Status,
		"createdAt":  report.CreatedAt,
	}
	switch report.Status {
	case StatusCompleted:
		resp["overallRiskScore"] = report.OverallScore
		resp["overallRiskLevel"] = report.OverallLevel
		resp["summary"] = report.Summary
		resp["recommendation"] = report.Recommendation
		resp["degraded"] = report.Degraded
		resp["assessments"] = report.Assessments
		resp["completedAt"] = report.CompletedAt
	case StatusFailed:
		resp["errorCode"] = report.ErrorCode
		resp["errorMessage"] = report.ErrorMessage
		resp["errorRetryable"] = report.ErrorRetryable
	}

	respond.JSON(c, http.StatusOK, resp)
}

func (h *Handler) listReports(c *gin.Context) {
	if isGuest, ok := c.Get("isGuest"); ok {
		if guest, ok2 := isGuest.(bool); ok2 && guest {
			respond.Error(c, http.StatusUnauthorized, "login_required", "Login required to view history", nil)
			return
		}
	}

	userID := middleware.UserIDFromContext(c)

	limit := 20
	offset := 0

	if v := c.Query("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			limit = parsed
		}
	}
	if limit < 0 {
		limit = 0
	}

	if v := c.Query("offset"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			offset = parsed
		}
	}
	if offset < 0 {
		offset = 0
	}

	reports, err := h.Svc.List(c.Request.Context(), userID, limit, offset)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to list reports", nil)
		return
	}

	resp := make([]gin.H, 0, len(reports))
	for _, r := range reports {
		item := gin.H{
			"reportId":   r.ID,
			"documentId": r.DocumentID,
			"status":     r.Status,
			"createdAt":  r.CreatedAt,
		}
		if r.Status == StatusCompleted {
			item["overallRiskScore"] = r.OverallScore
			item["overallRiskLevel"] = r.OverallLevel
			item["summary"] = r.Summary
			item["degraded"] = r.Degraded
		}
		resp = append(resp, item)
	}

	respond.JSON(c, http.StatusOK, resp)
}
