package reports

import "riskscan-backend/internal/llm"

// CoveragePolicy is the assessment-count policy an analysis is judged against.
// Target is the ideal (two per mandated category); Minimum gates the single
// coverage retry.
type CoveragePolicy struct {
	Target  int
	Minimum int
}

// DefaultCoveragePolicy returns the production policy, derived from the
// category list the prompts mandate.
func DefaultCoveragePolicy() CoveragePolicy {
	return CoveragePolicy{
		Target:  2 * len(llm.MandatedCategories),
		Minimum: len(llm.MandatedCategories),
	}
}

// Coverage describes how well a candidate meets the policy.
type Coverage struct {
	AssessmentCount int
	Sufficient      bool

	// Counts of assessments missing the evidence/transparency sub-objects.
	// These are informational: the pipeline fills them deterministically,
	// they never gate the retry decision.
	MissingEvidence     int
	MissingTransparency int
}

// EvaluateCoverage checks a parsed candidate against the policy. Missing
// optional fields never fail validation here; only the assessment count
// drives the Sufficient flag.
func EvaluateCoverage(candidate AnalysisCandidate, policy CoveragePolicy) Coverage {
	coverage := Coverage{AssessmentCount: len(candidate.Assessments)}
	for _, assessment := range candidate.Assessments {
		if assessment.MissingEvidence {
			coverage.MissingEvidence++
		}
		if assessment.MissingTransparency {
			coverage.MissingTransparency++
		}
	}
	coverage.Sufficient = coverage.AssessmentCount >= policy.Minimum
	return coverage
}
