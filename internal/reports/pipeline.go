package reports

import (
	"context"
	"fmt"
	"strings"

	"riskscan-backend/internal/llm"
	"riskscan-backend/internal/shared/metrics"
	"riskscan-backend/internal/shared/telemetry"
)

// Pipeline turns raw model text into a validated, numerically consistent
// ResultSet. It is stateless between invocations and single-threaded inside
// one; the coverage re-query is its only suspension point.
type Pipeline struct {
	// LLM is the collaborator used for the single coverage re-query.
	// Nil disables the retry; everything else still runs.
	LLM      llm.Client
	Coverage CoveragePolicy
	Retry    RetryPolicy
}

// NewPipeline constructs a pipeline with production policies.
func NewPipeline(client llm.Client) *Pipeline {
	return &Pipeline{
		LLM:      client,
		Coverage: DefaultCoveragePolicy(),
		Retry:    DefaultRetryPolicy(),
	}
}

// Run executes the full ingestion pass: extract, normalize keys, gate on
// coverage (with at most Retry.MaxRetries re-queries), reconcile numbers,
// normalize references, fill the deterministic sub-objects, aggregate.
//
// The only error it returns is a *PipelineFailure with code
// EXTRACTION_FAILED; every other anomaly degrades gracefully into a complete,
// internally consistent result.
func (p *Pipeline) Run(ctx context.Context, raw string, input llm.AnalyzeInput) (ResultSet, error) {
	extracted, err := ExtractJSON(raw)
	if err != nil {
		metrics.IncExtractionFailed()
		return ResultSet{}, &PipelineFailure{Code: ErrorCodeExtraction, Err: fmt.Errorf("extract model output (%d bytes): %w", len(raw), err)}
	}

	candidate, err := parseCandidate(extracted)
	if err != nil {
		// Extraction produced valid JSON that is not an object we know;
		// treat the same as unparseable.
		metrics.IncExtractionFailed()
		return ResultSet{}, &PipelineFailure{Code: ErrorCodeExtraction, Err: fmt.Errorf("parse candidate: %w", err)}
	}

	coverage := EvaluateCoverage(candidate, p.Coverage)
	if !coverage.Sufficient {
		controller := retryController{client: p.LLM, policy: p.Retry}
		candidate, coverage = controller.Resolve(ctx, input, candidate, coverage, p.Coverage)
	}
	if !coverage.Sufficient {
		// Accepted as degraded, logged, never thrown.
		metrics.IncCoverageShortfall()
		telemetry.Info("pipeline.coverage_shortfall", map[string]any{
			"request_id":       requestIDFromContext(ctx),
			"assessment_count": coverage.AssessmentCount,
			"minimum":          p.Coverage.Minimum,
			"target":           p.Coverage.Target,
		})
	}

	assessments := make([]Assessment, 0, len(candidate.Assessments))
	for i := range candidate.Assessments {
		assessments = append(assessments, finalizeAssessment(&candidate.Assessments[i]))
	}

	score, level := aggregateAssessments(candidate.Assessments)

	return ResultSet{
		OverallScore:   score,
		OverallLevel:   level,
		Summary:        candidate.Overall.Summary,
		Recommendation: candidate.Overall.Recommendation,
		Assessments:    assessments,
		Degraded:       !coverage.Sufficient,
	}, nil
}

// finalizeAssessment runs the per-assessment repairs in place and produces
// the persisted form. Reconciliation must precede the transparency fill so
// the recorded scoring basis matches the numbers actually persisted.
func finalizeAssessment(c *AssessmentCandidate) Assessment {
	basis := reconcileScores(c)
	regulatory, practices := normalizeReferences(c)

	subcategory := c.Subcategory
	if isGenericSubcategory(subcategory) {
		subcategory = rewriteSubcategory(c.Category)
	}

	evidence := c.DocumentEvidence
	if evidence.Quotes == nil {
		evidence.Quotes = []string{}
	}
	if evidence.Sections == nil {
		evidence.Sections = []string{}
	}

	transparency := c.ScoringTransparency
	if strings.TrimSpace(transparency.ScoringBasis) == "" {
		transparency.ScoringBasis = basis
	}
	if strings.TrimSpace(transparency.LikelihoodRationale) == "" {
		transparency.LikelihoodRationale = fmt.Sprintf("Likelihood %d of 5 (%s)", c.Likelihood, basis)
	}
	if strings.TrimSpace(transparency.ImpactRationale) == "" {
		transparency.ImpactRationale = fmt.Sprintf("Impact %d of 5 (%s)", c.Impact, basis)
	}

	return Assessment{
		Category:             c.Category,
		Subcategory:          subcategory,
		Description:          c.Description,
		Likelihood:           c.Likelihood,
		Impact:               c.Impact,
		RiskScore:            c.RiskScore,
		RiskLevel:            c.RiskLevel,
		KeyFindings:          ensureStringSlice(c.KeyFindings),
		Mitigations:          ensureStringSlice(c.Mitigations),
		RegulatoryReferences: regulatory,
		BestPractices:        practices,
		DocumentEvidence:     evidence,
		ScoringTransparency:  transparency,
	}
}

// genericSubcategories are labels that carry no information; they get
// rewritten so dashboards never group unrelated risks under "General".
var genericSubcategories = map[string]struct{}{
	"general":       {},
	"standard":      {},
	"other":         {},
	"n/a":           {},
	"none":          {},
	"misc":          {},
	"miscellaneous": {},
	"unknown":       {},
	"various":       {},
	"tbd":           {},
}

func isGenericSubcategory(subcategory string) bool {
	trimmed := strings.ToLower(strings.TrimSpace(subcategory))
	if trimmed == "" {
		return true
	}
	_, generic := genericSubcategories[trimmed]
	return generic
}

func rewriteSubcategory(category string) string {
	category = strings.TrimSpace(category)
	if category == "" {
		return "Unspecified Area"
	}
	return category + " - Unspecified Area"
}

func ensureStringSlice(value []string) []string {
	if value == nil {
		return []string{}
	}
	return value
}
