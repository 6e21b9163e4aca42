package reports

import (
	"encoding/json"
	"testing"
)

func TestParseCandidateKeyVariants(t *testing.T) {
	raw := json.RawMessage(`{
		"overallAssessment": {"summary": "mixed risk", "overallRiskScore": 11.5, "risk_level": "medium"},
		"riskAssessments": [{
			"riskCategory": "Data Privacy",
			"sub_category": "Cross-Border Transfers",
			"risk_description": "PII leaves the EEA",
			"likelihoodScore": "4",
			"impact_score": 3,
			"severity": "high",
			"findings": ["transfers to US processors"],
			"mitigationStrategies": ["adopt SCCs"]
		}]
	}`)

	candidate, err := parseCandidate(raw)
	if err != nil {
		t.Fatalf("parseCandidate: %v", err)
	}
	if candidate.Overall.Summary != "mixed risk" {
		t.Errorf("summary = %q", candidate.Overall.Summary)
	}
	if candidate.Overall.RiskScore != 11.5 {
		t.Errorf("overall score = %v", candidate.Overall.RiskScore)
	}
	if len(candidate.Assessments) != 1 {
		t.Fatalf("assessments = %d, want 1", len(candidate.Assessments))
	}
	a := candidate.Assessments[0]
	if a.Category != "Data Privacy" || a.Subcategory != "Cross-Border Transfers" {
		t.Errorf("category/subcategory = %q/%q", a.Category, a.Subcategory)
	}
	if a.Likelihood != 4 {
		t.Errorf("quoted likelihood not coerced: %d", a.Likelihood)
	}
	if a.Impact != 3 {
		t.Errorf("impact = %d", a.Impact)
	}
	if a.RiskLevel != "high" {
		t.Errorf("severity alias not picked: %q", a.RiskLevel)
	}
	if len(a.KeyFindings) != 1 || len(a.Mitigations) != 1 {
		t.Errorf("findings/mitigations = %v / %v", a.KeyFindings, a.Mitigations)
	}
	if !a.MissingEvidence || !a.MissingTransparency {
		t.Errorf("missing sub-object flags not set: %v %v", a.MissingEvidence, a.MissingTransparency)
	}
}

func TestParseCandidateDropsNoiseAssessments(t *testing.T) {
	raw := json.RawMessage(`{"risk_assessments": [
		{"category": "Cybersecurity", "description": "real risk"},
		{},
		{"likelihood": 3}
	]}`)
	candidate, err := parseCandidate(raw)
	if err != nil {
		t.Fatalf("parseCandidate: %v", err)
	}
	if len(candidate.Assessments) != 1 {
		t.Fatalf("assessments = %d, want 1 (noise dropped)", len(candidate.Assessments))
	}
}

func TestParseCandidateSubObjects(t *testing.T) {
	raw := json.RawMessage(`{"risk_assessments": [{
		"category": "AI Ethics & Bias",
		"description": "training data skew",
		"document_evidence": {"quotes": ["section 4.2 requires automated screening"], "sections": ["4.2"]},
		"scoring_transparency": {"likelihoodRationale": "stated in doc", "impactRationale": "affects applicants", "scoringBasis": "model"}
	}]}`)
	candidate, err := parseCandidate(raw)
	if err != nil {
		t.Fatalf("parseCandidate: %v", err)
	}
	a := candidate.Assessments[0]
	if a.MissingEvidence || a.MissingTransparency {
		t.Errorf("sub-objects present but flagged missing")
	}
	if len(a.DocumentEvidence.Quotes) != 1 || a.DocumentEvidence.Sections[0] != "4.2" {
		t.Errorf("evidence = %+v", a.DocumentEvidence)
	}
	if a.ScoringTransparency.ScoringBasis != "model" {
		t.Errorf("transparency = %+v", a.ScoringTransparency)
	}
}

func TestRefEntryUnmarshal(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"plain string", `"GDPR Art. 5"`, "GDPR Art. 5"},
		{"name and link", `{"name": "EU AI Act", "link": "https://artificialintelligenceact.eu"}`, "EU AI Act https://artificialintelligenceact.eu"},
		{"title and url", `{"title": "NIST AI RMF", "url": "https://www.nist.gov"}`, "NIST AI RMF https://www.nist.gov"},
		{"link only", `{"url": "https://example.com"}`, "https://example.com"},
		{"empty object", `{}`, ""},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var entry RefEntry
			if err := json.Unmarshal([]byte(tc.raw), &entry); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if got := entry.Display(); got != tc.want {
				t.Errorf("Display() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestPickStringListShapes(t *testing.T) {
	fields := map[string]json.RawMessage{
		"list":    json.RawMessage(`["a", " b ", ""]`),
		"single":  json.RawMessage(`"only one"`),
		"objects": json.RawMessage(`[{"finding": "from objects"}, {"text": "second"}]`),
	}
	if got := pickStringList(fields, "list"); len(got) != 2 || got[1] != "b" {
		t.Errorf("list = %v", got)
	}
	if got := pickStringList(fields, "single"); len(got) != 1 || got[0] != "only one" {
		t.Errorf("single = %v", got)
	}
	if got := pickStringList(fields, "objects"); len(got) != 2 || got[0] != "from objects" {
		t.Errorf("objects = %v", got)
	}
}
