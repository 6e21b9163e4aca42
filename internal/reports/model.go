package reports

import "time"

// Report represents one document risk-analysis job and, once completed, its
// aggregate outcome.
type Report struct {
	ID              string       `json:"id"`
	DocumentID      string       `json:"documentId"`
	UserID          string       `json:"userId"`
	Industry        string       `json:"industry"`
	PromptVersion   string       `json:"promptVersion"`
	AnalysisVersion string       `json:"analysisVersion"`
	PromptHash      string       `json:"promptHash,omitempty"`
	Provider        string       `json:"provider"`
	Model           string       `json:"model"`
	Status          string       `json:"status"`
	RawOutput       string       `json:"-"`
	Summary         string       `json:"summary,omitempty"`
	Recommendation  string       `json:"recommendation,omitempty"`
	OverallScore    float64      `json:"overallRiskScore,omitempty"`
	OverallLevel    string       `json:"overallRiskLevel,omitempty"`
	Degraded        bool         `json:"degraded,omitempty"`
	Assessments     []Assessment `json:"assessments,omitempty"`
	ErrorCode       string       `json:"errorCode,omitempty"`
	ErrorMessage    string       `json:"errorMessage,omitempty"`
	ErrorRetryable  bool         `json:"errorRetryable,omitempty"`
	StartedAt       *time.Time   `json:"startedAt,omitempty"`
	CompletedAt     *time.Time   `json:"completedAt,omitempty"`
	CreatedAt       time.Time    `json:"createdAt"`
}

// Assessment is one persisted, invariant-satisfying risk: likelihood and
// impact in [1,5], riskScore in [1,25], non-generic subcategory, and both
// reference lists non-empty with at least two display strings.
type Assessment struct {
	Category             string                `json:"category"`
	Subcategory          string                `json:"subcategory"`
	Description          string                `json:"description"`
	Likelihood           int                   `json:"likelihood"`
	Impact               int                   `json:"impact"`
	RiskScore            int                   `json:"riskScore"`
	RiskLevel            string                `json:"riskLevel"`
	KeyFindings          []string              `json:"keyFindings"`
	Mitigations          []string              `json:"mitigations"`
	RegulatoryReferences []string              `json:"regulatoryReferences"`
	BestPractices        []string              `json:"bestPractices"`
	DocumentEvidence     EvidenceCandidate     `json:"documentEvidence"`
	ScoringTransparency  TransparencyCandidate `json:"scoringTransparency"`
}

// ResultSet is the final artifact of the ingestion pipeline: the only thing
// that outlives a pipeline invocation, handed to the repository for one
// transactional write.
type ResultSet struct {
	OverallScore   float64      `json:"overallRiskScore"`
	OverallLevel   string       `json:"overallRiskLevel"`
	Summary        string       `json:"summary"`
	Recommendation string       `json:"recommendation"`
	Assessments    []Assessment `json:"assessments"`

	// Degraded marks a result that completed below the coverage minimum
	// even after the retry: usable, internally consistent, but short.
	Degraded bool `json:"degraded"`
}
