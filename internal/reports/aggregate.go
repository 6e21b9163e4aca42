package reports

import "math"

// Aggregate level thresholds: the mean score alone can escalate the headline
// level, and any single assessment at a level forces that floor regardless of
// the mean. Worst case dominates the headline.
const (
	mediumScoreThreshold  = 10
	highScoreThreshold    = 15
	extremeScoreThreshold = 20
)

// aggregateAssessments computes the report-level score and level from the
// reconciled per-assessment scores. The score is never 0/NaN: degenerate
// input substitutes a count-based fallback so a user never sees a zero-score
// report.
func aggregateAssessments(assessments []AssessmentCandidate) (float64, string) {
	score := overallScore(assessments)
	return score, overallLevel(assessments, score)
}

func overallScore(assessments []AssessmentCandidate) float64 {
	if len(assessments) == 0 {
		return fallbackScore(0)
	}
	total := 0
	for _, a := range assessments {
		total += a.RiskScore
	}
	mean := float64(total) / float64(len(assessments))
	if math.IsNaN(mean) || mean < 1 {
		return fallbackScore(len(assessments))
	}
	return math.Round(mean*10) / 10
}

func fallbackScore(count int) float64 {
	switch {
	case count > 8:
		return 12.0
	case count > 4:
		return 8.5
	default:
		return 5.0
	}
}

func overallLevel(assessments []AssessmentCandidate, score float64) string {
	level := RiskLevelLow

	anyAt := func(target string) bool {
		for _, a := range assessments {
			if a.RiskLevel == target {
				return true
			}
		}
		return false
	}

	if anyAt(RiskLevelMedium) || score >= mediumScoreThreshold {
		level = RiskLevelMedium
	}
	if anyAt(RiskLevelHigh) || score >= highScoreThreshold {
		level = RiskLevelHigh
	}
	if anyAt(RiskLevelExtreme) || score >= extremeScoreThreshold {
		level = RiskLevelExtreme
	}
	return level
}
