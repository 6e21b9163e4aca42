package reports

import "testing"

func TestReconcileScoresModelProvided(t *testing.T) {
	a := AssessmentCandidate{Likelihood: 4, Impact: 5, RiskScore: 20, RiskLevel: "extreme"}
	basis := reconcileScores(&a)
	if basis != basisModelProvided {
		t.Errorf("basis = %q", basis)
	}
	if a.Likelihood != 4 || a.Impact != 5 || a.RiskScore != 20 {
		t.Errorf("triple changed: %d %d %d", a.Likelihood, a.Impact, a.RiskScore)
	}
}

func TestReconcileScoresDerivesProduct(t *testing.T) {
	a := AssessmentCandidate{Likelihood: 3, Impact: 4}
	basis := reconcileScores(&a)
	if basis != basisDerivedProduct {
		t.Errorf("basis = %q", basis)
	}
	if a.RiskScore != 12 {
		t.Errorf("riskScore = %d, want 12", a.RiskScore)
	}
	if a.RiskLevel != RiskLevelMedium {
		t.Errorf("riskLevel = %q, want medium", a.RiskLevel)
	}
}

func TestReconcileScoresFactorsScore(t *testing.T) {
	tests := []struct {
		score        int
		wantL, wantI int
	}{
		{12, 3, 4},
		{6, 2, 3},
		{25, 5, 5},
		{9, 3, 3},
		{15, 3, 5},
		{1, 1, 1},
	}
	for _, tc := range tests {
		a := AssessmentCandidate{RiskScore: tc.score}
		basis := reconcileScores(&a)
		if basis != basisFactoredScore {
			t.Errorf("score %d: basis = %q", tc.score, basis)
		}
		if a.Likelihood != tc.wantL || a.Impact != tc.wantI {
			t.Errorf("score %d: factored to (%d, %d), want (%d, %d)", tc.score, a.Likelihood, a.Impact, tc.wantL, tc.wantI)
		}
	}
}

func TestReconcileScoresFactorsInexactScore(t *testing.T) {
	// 23 has no 1..5 factor pair; the approximation must stay in range.
	a := AssessmentCandidate{RiskScore: 23}
	reconcileScores(&a)
	if a.Likelihood < 1 || a.Likelihood > 5 || a.Impact < 1 || a.Impact > 5 {
		t.Errorf("out of range: %d %d", a.Likelihood, a.Impact)
	}
}

func TestReconcileScoresLevelDefaults(t *testing.T) {
	tests := []struct {
		level        string
		wantL, wantI int
		wantScore    int
	}{
		{"extreme", 4, 5, 20},
		{"critical", 4, 5, 20},
		{"high", 3, 5, 15},
		{"medium", 3, 3, 9},
		{"low", 2, 2, 4},
		{"", 3, 3, 9},
		{"banana", 3, 3, 9},
	}
	for _, tc := range tests {
		a := AssessmentCandidate{RiskLevel: tc.level}
		basis := reconcileScores(&a)
		if basis != basisLevelDefault {
			t.Errorf("level %q: basis = %q", tc.level, basis)
		}
		if a.Likelihood != tc.wantL || a.Impact != tc.wantI || a.RiskScore != tc.wantScore {
			t.Errorf("level %q: got (%d, %d, %d), want (%d, %d, %d)",
				tc.level, a.Likelihood, a.Impact, a.RiskScore, tc.wantL, tc.wantI, tc.wantScore)
		}
	}
}

func TestReconcileScoresClamps(t *testing.T) {
	a := AssessmentCandidate{Likelihood: 9, Impact: 7, RiskScore: 63}
	reconcileScores(&a)
	if a.Likelihood != 5 || a.Impact != 5 || a.RiskScore != 25 {
		t.Errorf("clamped to (%d, %d, %d), want (5, 5, 25)", a.Likelihood, a.Impact, a.RiskScore)
	}
}

func TestReconcileScoresIdempotent(t *testing.T) {
	a := AssessmentCandidate{RiskScore: 12, RiskLevel: "severe"}
	reconcileScores(&a)
	l, i, score, level := a.Likelihood, a.Impact, a.RiskScore, a.RiskLevel
	reconcileScores(&a)
	if a.Likelihood != l || a.Impact != i || a.RiskScore != score || a.RiskLevel != level {
		t.Errorf("second pass changed the triple: (%d, %d, %d, %s) -> (%d, %d, %d, %s)",
			l, i, score, level, a.Likelihood, a.Impact, a.RiskScore, a.RiskLevel)
	}
}

func TestLevelForScore(t *testing.T) {
	tests := []struct {
		score int
		want  string
	}{
		{1, RiskLevelLow},
		{9, RiskLevelLow},
		{10, RiskLevelMedium},
		{14, RiskLevelMedium},
		{15, RiskLevelHigh},
		{19, RiskLevelHigh},
		{20, RiskLevelExtreme},
		{25, RiskLevelExtreme},
	}
	for _, tc := range tests {
		if got := LevelForScore(tc.score); got != tc.want {
			t.Errorf("LevelForScore(%d) = %q, want %q", tc.score, got, tc.want)
		}
	}
}
