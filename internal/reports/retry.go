package reports

import (
	"context"
	"time"

	"riskscan-backend/internal/llm"
	"riskscan-backend/internal/shared/metrics"
	"riskscan-backend/internal/shared/telemetry"
)

// RetryPolicy bounds the coverage re-query. MaxRetries is an explicit config
// value rather than an inline conditional so the one-retry budget is visible
// and testable; Timeout is deliberately shorter than the primary call's.
type RetryPolicy struct {
	MaxRetries int
	Timeout    time.Duration
}

// DefaultRetryPolicy returns the production retry budget.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxRetries: 1, Timeout: 60 * time.Second}
}

// retryController re-queries the model when a candidate's coverage falls
// below the policy minimum. It never fails the pipeline: on timeout,
// transport error, or an unparseable or still-short retry it keeps whichever
// candidate carries more assessments. An incomplete analysis beats no
// analysis.
type retryController struct {
	client llm.Client
	policy RetryPolicy
}

func (rc retryController) Resolve(ctx context.Context, input llm.AnalyzeInput, original AnalysisCandidate, originalCov Coverage, coveragePolicy CoveragePolicy) (AnalysisCandidate, Coverage) {
	best, bestCov := original, originalCov
	if bestCov.Sufficient || rc.client == nil {
		return best, bestCov
	}

	for attempt := 1; attempt <= rc.policy.MaxRetries && !bestCov.Sufficient; attempt++ {
		metrics.IncCoverageRetry()
		telemetry.Info("pipeline.coverage_retry", map[string]any{
			"request_id":       requestIDFromContext(ctx),
			"attempt":          attempt,
			"assessment_count": bestCov.AssessmentCount,
			"minimum":          coveragePolicy.Minimum,
		})

		retried, retriedCov, ok := rc.requery(ctx, input, bestCov, coveragePolicy)
		if !ok {
			break
		}
		if retriedCov.AssessmentCount > bestCov.AssessmentCount {
			best, bestCov = retried, retriedCov
		}
	}
	return best, bestCov
}

func (rc retryController) requery(ctx context.Context, input llm.AnalyzeInput, current Coverage, coveragePolicy CoveragePolicy) (AnalysisCandidate, Coverage, bool) {
	timeout := rc.policy.Timeout
	if timeout <= 0 {
		timeout = DefaultRetryPolicy().Timeout
	}
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	callCtx = llm.WithExtraSystemMessage(callCtx, llm.CoverageRetryMessage(current.AssessmentCount, coveragePolicy.Minimum))
	raw, err := rc.client.AnalyzeDocument(callCtx, input)
	if err != nil {
		telemetry.Error("pipeline.coverage_retry_failed", map[string]any{
			"request_id": requestIDFromContext(ctx),
			"error":      sanitizeError(err),
		})
		return AnalysisCandidate{}, Coverage{}, false
	}

	extracted, err := ExtractJSON(raw)
	if err != nil {
		telemetry.Error("pipeline.coverage_retry_unparseable", map[string]any{
			"request_id": requestIDFromContext(ctx),
			"raw_len":    len(raw),
		})
		return AnalysisCandidate{}, Coverage{}, false
	}
	candidate, err := parseCandidate(extracted)
	if err != nil {
		return AnalysisCandidate{}, Coverage{}, false
	}
	return candidate, EvaluateCoverage(candidate, coveragePolicy), true
}
