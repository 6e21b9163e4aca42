package reports

import "testing"

func TestDefaultCoveragePolicy(t *testing.T) {
	policy := DefaultCoveragePolicy()
	if policy.Target != 16 || policy.Minimum != 8 {
		t.Errorf("policy = %+v, want target 16 minimum 8", policy)
	}
}

func TestEvaluateCoverage(t *testing.T) {
	policy := CoveragePolicy{Target: 16, Minimum: 8}

	makeCandidate := func(n int) AnalysisCandidate {
		c := AnalysisCandidate{Assessments: make([]AssessmentCandidate, n)}
		return c
	}

	if cov := EvaluateCoverage(makeCandidate(8), policy); !cov.Sufficient {
		t.Errorf("8 assessments should meet the minimum")
	}
	if cov := EvaluateCoverage(makeCandidate(7), policy); cov.Sufficient {
		t.Errorf("7 assessments should fall short")
	}
	if cov := EvaluateCoverage(makeCandidate(16), policy); !cov.Sufficient || cov.AssessmentCount != 16 {
		t.Errorf("coverage = %+v", cov)
	}
}

func TestEvaluateCoverageMissingSubObjectCounts(t *testing.T) {
	candidate := AnalysisCandidate{Assessments: []AssessmentCandidate{
		{MissingEvidence: true},
		{MissingEvidence: true, MissingTransparency: true},
		{},
	}}
	cov := EvaluateCoverage(candidate, CoveragePolicy{Minimum: 1})
	if cov.MissingEvidence != 2 || cov.MissingTransparency != 1 {
		t.Errorf("missing counts = %d/%d, want 2/1", cov.MissingEvidence, cov.MissingTransparency)
	}
	if !cov.Sufficient {
		t.Errorf("3 assessments over a minimum of 1 should be sufficient")
	}
}
