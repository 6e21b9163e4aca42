package reports

import "testing"

func TestAggregateAssessmentsMean(t *testing.T) {
	assessments := []AssessmentCandidate{
		{RiskScore: 12, RiskLevel: RiskLevelMedium},
		{RiskScore: 8, RiskLevel: RiskLevelLow},
		{RiskScore: 15, RiskLevel: RiskLevelHigh},
	}
	score, level := aggregateAssessments(assessments)
	if score != 11.7 {
		t.Errorf("score = %v, want 11.7", score)
	}
	if level != RiskLevelHigh {
		t.Errorf("level = %q, want high (floor from the high assessment)", level)
	}
}

func TestAggregateAssessmentsEmptyFallback(t *testing.T) {
	score, level := aggregateAssessments(nil)
	if score != 5.0 {
		t.Errorf("score = %v, want 5.0", score)
	}
	if level != RiskLevelLow {
		t.Errorf("level = %q, want low", level)
	}
}

func TestAggregateAssessmentsZeroScoresFallback(t *testing.T) {
	make9 := func() []AssessmentCandidate {
		out := make([]AssessmentCandidate, 9)
		return out
	}
	score, _ := aggregateAssessments(make9())
	if score != 12.0 {
		t.Errorf("9 zero-score assessments: score = %v, want 12.0", score)
	}

	score, _ = aggregateAssessments(make([]AssessmentCandidate, 5))
	if score != 8.5 {
		t.Errorf("5 zero-score assessments: score = %v, want 8.5", score)
	}

	score, _ = aggregateAssessments(make([]AssessmentCandidate, 2))
	if score != 5.0 {
		t.Errorf("2 zero-score assessments: score = %v, want 5.0", score)
	}
}

func TestAggregateLevelScoreThresholds(t *testing.T) {
	tests := []struct {
		scores []int
		want   string
	}{
		{[]int{4, 4}, RiskLevelLow},
		{[]int{10, 10}, RiskLevelMedium},
		{[]int{15, 15}, RiskLevelHigh},
		{[]int{20, 20}, RiskLevelExtreme},
	}
	for _, tc := range tests {
		assessments := make([]AssessmentCandidate, 0, len(tc.scores))
		for _, s := range tc.scores {
			assessments = append(assessments, AssessmentCandidate{RiskScore: s, RiskLevel: RiskLevelLow})
		}
		if _, level := aggregateAssessments(assessments); level != tc.want {
			t.Errorf("scores %v: level = %q, want %q", tc.scores, level, tc.want)
		}
	}
}

func TestAggregateLevelAssessmentFloor(t *testing.T) {
	// One extreme assessment forces the headline even when the mean is low.
	assessments := []AssessmentCandidate{
		{RiskScore: 2, RiskLevel: RiskLevelLow},
		{RiskScore: 2, RiskLevel: RiskLevelLow},
		{RiskScore: 20, RiskLevel: RiskLevelExtreme},
	}
	score, level := aggregateAssessments(assessments)
	if level != RiskLevelExtreme {
		t.Errorf("level = %q, want extreme", level)
	}
	if score != 8.0 {
		t.Errorf("score = %v, want 8.0", score)
	}
}
