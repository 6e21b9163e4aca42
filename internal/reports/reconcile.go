package reports

import (
	"math"
	"strings"
)

const (
	RiskLevelLow     = "low"
	RiskLevelMedium  = "medium"
	RiskLevelHigh    = "high"
	RiskLevelExtreme = "extreme"
)

// levelDefaults maps a stated risk level to a deterministic (likelihood,
// impact, score) triple, used only when the model supplied no numbers at all.
var levelDefaults = map[string][3]int{
	RiskLevelExtreme: {4, 5, 20},
	RiskLevelHigh:    {3, 5, 15},
	RiskLevelMedium:  {3, 3, 9},
	RiskLevelLow:     {2, 2, 4},
}

// scoreBasis names the reconciliation path taken for an assessment; it feeds
// the scoring_transparency fill when the model omitted that sub-object.
const (
	basisModelProvided  = "model-provided likelihood and impact"
	basisDerivedProduct = "risk score derived as likelihood x impact"
	basisFactoredScore  = "likelihood and impact factored from the risk score"
	basisLevelDefault   = "deterministic defaults for the stated risk level"
)

// reconcileScores repairs the likelihood/impact/riskScore triple on one
// assessment and reports which path it took. The precedence order matters:
// derive the product from real components first, reverse-engineer components
// from a real product second, and invent a level-based default only when the
// model gave nothing. That order preserves as much of the model's actual
// signal as possible.
//
// Re-running on an already consistent triple is a no-op.
func reconcileScores(a *AssessmentCandidate) string {
	likelihood := a.Likelihood
	impact := a.Impact
	score := a.RiskScore
	basis := basisModelProvided

	switch {
	case likelihood > 0 && impact > 0:
		if score <= 0 {
			score = likelihood * impact
			basis = basisDerivedProduct
		}
	case score > 0:
		likelihood, impact = factorPair(score)
		basis = basisFactoredScore
	default:
		triple, ok := levelDefaults[normalizeLevel(a.RiskLevel)]
		if !ok {
			triple = levelDefaults[RiskLevelMedium]
		}
		likelihood, impact, score = triple[0], triple[1], triple[2]
		basis = basisLevelDefault
	}

	a.Likelihood = clampInt(likelihood, 1, 5)
	a.Impact = clampInt(impact, 1, 5)
	a.RiskScore = clampInt(score, 1, 25)

	if _, ok := levelDefaults[normalizeLevel(a.RiskLevel)]; !ok {
		a.RiskLevel = LevelForScore(a.RiskScore)
	} else {
		a.RiskLevel = normalizeLevel(a.RiskLevel)
	}
	return basis
}

// factorPair reverse-engineers (likelihood, impact) from a risk score.
// Exact 1–5 factor pairs are preferred, picking the most balanced one
// (minimal |l−i|); ties resolve to the smaller likelihood. Scores with no
// exact pair fall back to a clamped square-root approximation.
func factorPair(score int) (int, int) {
	bestL, bestI := 0, 0
	bestDiff := math.MaxInt
	for l := 1; l <= 5; l++ {
		for i := 1; i <= 5; i++ {
			if l*i != score {
				continue
			}
			diff := l - i
			if diff < 0 {
				diff = -diff
			}
			if diff < bestDiff || (diff == bestDiff && l < bestL) {
				bestL, bestI, bestDiff = l, i, diff
			}
		}
	}
	if bestL > 0 {
		return bestL, bestI
	}

	l := clampInt(int(math.Round(math.Sqrt(float64(score)))), 1, 5)
	i := clampInt(int(math.Round(float64(score)/float64(l))), 1, 5)
	return l, i
}

// LevelForScore maps a 1–25 risk score to its band.
func LevelForScore(score int) string {
	switch {
	case score >= 20:
		return RiskLevelExtreme
	case score >= 15:
		return RiskLevelHigh
	case score >= 10:
		return RiskLevelMedium
	default:
		return RiskLevelLow
	}
}

func normalizeLevel(raw string) string {
	level := strings.ToLower(strings.TrimSpace(raw))
	switch level {
	case "critical", "severe":
		return RiskLevelExtreme
	default:
		return level
	}
}

func clampInt(value, lo, hi int) int {
	if value < lo {
		return lo
	}
	if value > hi {
		return hi
	}
	return value
}
