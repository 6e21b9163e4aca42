package reports

import (
	"context"
	"errors"
	"log"
	"net"
	"strings"
	"time"

	"riskscan-backend/internal/llm"
)

const llmRetryBaseDelay = 300 * time.Millisecond

// retryingLLM wraps the provider with one transport-level retry for transient
// network failures. This is a different budget from the coverage retry: it
// repairs the connection, not the content.
type retryingLLM struct {
	base      llm.Client
	requestID string
	reportID  string
}

func newRetryingLLM(base llm.Client, reportID, requestID string) llm.Client {
	if base == nil {
		return nil
	}
	return retryingLLM{
		base:      base,
		requestID: requestID,
		reportID:  reportID,
	}
}

func (r retryingLLM) AnalyzeDocument(ctx context.Context, input llm.AnalyzeInput) (string, error) {
	resp, err := r.base.AnalyzeDocument(ctx, input)
	if err == nil || !shouldRetryLLM(err) {
		return resp, err
	}

	log.Printf("llm retry attempt=1 request_id=%s report_id=%s error=%s", r.requestID, r.reportID, sanitizeError(err))
	select {
	case <-time.After(llmRetryBaseDelay):
	case <-ctx.Done():
		return "", ctx.Err()
	}

	return r.base.AnalyzeDocument(ctx, input)
}

func shouldRetryLLM(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "http status 5") || strings.Contains(msg, "server_error") {
		return true
	}
	if strings.Contains(msg, "timeout") && (strings.Contains(msg, "openai") || strings.Contains(msg, "llm") || strings.Contains(msg, "client.timeout")) {
		return true
	}
	if strings.Contains(msg, "connection reset") ||
		strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "connection closed") ||
		strings.Contains(msg, "broken pipe") ||
		strings.Contains(msg, "tls handshake timeout") ||
		strings.Contains(msg, "eof") {
		return true
	}

	return false
}
