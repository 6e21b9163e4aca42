package reports

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// AnalysisCandidate is the best-effort parse of one model response. It stays
// mutable while the reconciliation passes run and is discarded once the
// final ResultSet is built.
type AnalysisCandidate struct {
	Overall     OverallCandidate
	Assessments []AssessmentCandidate
}

// OverallAssessment fields as the model tends to emit them. The numeric score
// and level here are advisory only; the aggregator recomputes both.
type OverallCandidate struct {
	Summary        string
	Recommendation string
	RiskScore      float64
	RiskLevel      string
}

// AssessmentCandidate is one identified risk. Field names in the raw JSON are
// not under our control, so every accessor key has variants (see
// assessmentAlias below); normalization happens once, here, at the parse
// boundary.
type AssessmentCandidate struct {
	Category             string
	Subcategory          string
	Description          string
	Likelihood           int
	Impact               int
	RiskScore            int
	RiskLevel            string
	KeyFindings          []string
	Mitigations          []string
	RegulatoryReferences []RefEntry
	BestPractices        []RefEntry
	DocumentEvidence     EvidenceCandidate
	ScoringTransparency  TransparencyCandidate

	// Set during parsing when the model omitted the sub-objects entirely;
	// the pipeline fills them deterministically.
	MissingEvidence     bool
	MissingTransparency bool
}

// EvidenceCandidate points back at the analyzed document.
type EvidenceCandidate struct {
	Quotes   []string `json:"quotes"`
	Sections []string `json:"sections"`
}

// TransparencyCandidate explains how the numeric triple was scored.
type TransparencyCandidate struct {
	LikelihoodRationale string `json:"likelihoodRationale"`
	ImpactRationale     string `json:"impactRationale"`
	ScoringBasis        string `json:"scoringBasis"`
}

// RefEntry is a regulatory reference or best practice. The model emits these
// either as plain strings or as {name|title, link|url} objects.
type RefEntry struct {
	Name string
	Link string
}

// UnmarshalJSON accepts both the string and the object form.
func (r *RefEntry) UnmarshalJSON(data []byte) error {
	var asString string
	if err := json.Unmarshal(data, &asString); err == nil {
		r.Name = strings.TrimSpace(asString)
		r.Link = ""
		return nil
	}
	var asObject struct {
		Name  string `json:"name"`
		Title string `json:"title"`
		Link  string `json:"link"`
		URL   string `json:"url"`
	}
	if err := json.Unmarshal(data, &asObject); err != nil {
		return err
	}
	r.Name = strings.TrimSpace(firstNonEmpty(asObject.Name, asObject.Title))
	r.Link = strings.TrimSpace(firstNonEmpty(asObject.Link, asObject.URL))
	return nil
}

// Display flattens the entry to "<name> <link>" with the link omitted when
// absent. Returns "" for entries that carry no usable text.
func (r RefEntry) Display() string {
	name := strings.TrimSpace(r.Name)
	link := strings.TrimSpace(r.Link)
	switch {
	case name == "" && link == "":
		return ""
	case name == "":
		return link
	case link == "":
		return name
	default:
		return name + " " + link
	}
}

// parseCandidate maps a recovered JSON object onto the canonical candidate
// shape, resolving key-name variants once so downstream passes never repeat
// fallback lookups.
func parseCandidate(raw json.RawMessage) (AnalysisCandidate, error) {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(raw, &top); err != nil {
		return AnalysisCandidate{}, err
	}

	var candidate AnalysisCandidate
	if overallRaw, ok := pickKey(top, "overall_assessment", "overallAssessment", "overall"); ok {
		candidate.Overall = parseOverall(overallRaw)
	}

	assessmentsRaw, ok := pickKey(top, "risk_assessments", "riskAssessments", "assessments", "risks")
	if !ok {
		return candidate, nil
	}
	var items []json.RawMessage
	if err := json.Unmarshal(assessmentsRaw, &items); err != nil {
		return candidate, nil
	}
	candidate.Assessments = make([]AssessmentCandidate, 0, len(items))
	for _, item := range items {
		assessment, ok := parseAssessment(item)
		if !ok {
			continue
		}
		candidate.Assessments = append(candidate.Assessments, assessment)
	}
	return candidate, nil
}

func parseOverall(raw json.RawMessage) OverallCandidate {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		// Some responses put a bare summary string here.
		var summary string
		if json.Unmarshal(raw, &summary) == nil {
			return OverallCandidate{Summary: strings.TrimSpace(summary)}
		}
		return OverallCandidate{}
	}
	return OverallCandidate{
		Summary:        pickString(fields, "summary", "overall_summary", "overallSummary"),
		Recommendation: pickString(fields, "recommendation", "recommendations", "recommendation_text"),
		RiskScore:      pickFloat(fields, "overall_risk_score", "overallRiskScore", "risk_score", "score"),
		RiskLevel:      pickString(fields, "overall_risk_level", "overallRiskLevel", "risk_level", "level"),
	}
}

func parseAssessment(raw json.RawMessage) (AssessmentCandidate, bool) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return AssessmentCandidate{}, false
	}

	a := AssessmentCandidate{
		Category:    pickString(fields, "category", "risk_category", "riskCategory"),
		Subcategory: pickString(fields, "subcategory", "sub_category", "subCategory"),
		Description: pickString(fields, "description", "risk_description", "riskDescription", "details"),
		Likelihood:  pickInt(fields, "likelihood", "likelihood_score", "likelihoodScore"),
		Impact:      pickInt(fields, "impact", "impact_score", "impactScore"),
		RiskScore:   pickInt(fields, "risk_score", "riskScore", "score"),
		RiskLevel:   pickString(fields, "risk_level", "riskLevel", "severity", "level"),
		KeyFindings: pickStringList(fields, "key_findings", "keyFindings", "findings"),
		Mitigations: pickStringList(fields, "mitigations", "mitigation_strategies", "mitigationStrategies"),
	}
	a.RegulatoryReferences = pickRefList(fields, "regulatory_references", "regulatoryReferences", "regulations")
	a.BestPractices = pickRefList(fields, "best_practices", "bestPractices", "standards")

	if evidenceRaw, ok := pickKey(fields, "document_evidence", "documentEvidence", "evidence"); ok {
		_ = json.Unmarshal(evidenceRaw, &a.DocumentEvidence)
	} else {
		a.MissingEvidence = true
	}
	if transparencyRaw, ok := pickKey(fields, "scoring_transparency", "scoringTransparency"); ok {
		_ = json.Unmarshal(transparencyRaw, &a.ScoringTransparency)
	} else {
		a.MissingTransparency = true
	}

	// An entry with no category, no description and no findings is noise
	// (models sometimes emit empty trailing objects after a repair).
	if a.Category == "" && a.Description == "" && len(a.KeyFindings) == 0 {
		return AssessmentCandidate{}, false
	}
	return a, true
}

func pickKey(fields map[string]json.RawMessage, keys ...string) (json.RawMessage, bool) {
	for _, key := range keys {
		if raw, ok := fields[key]; ok && len(raw) > 0 && string(raw) != "null" {
			return raw, true
		}
	}
	return nil, false
}

func pickString(fields map[string]json.RawMessage, keys ...string) string {
	raw, ok := pickKey(fields, keys...)
	if !ok {
		return ""
	}
	var value string
	if err := json.Unmarshal(raw, &value); err == nil {
		return strings.TrimSpace(value)
	}
	// Numbers occasionally land in text fields.
	var number float64
	if err := json.Unmarshal(raw, &number); err == nil {
		return strconv.FormatFloat(number, 'f', -1, 64)
	}
	return ""
}

func pickFloat(fields map[string]json.RawMessage, keys ...string) float64 {
	raw, ok := pickKey(fields, keys...)
	if !ok {
		return 0
	}
	return coerceFloat(raw)
}

func pickInt(fields map[string]json.RawMessage, keys ...string) int {
	raw, ok := pickKey(fields, keys...)
	if !ok {
		return 0
	}
	value := coerceFloat(raw)
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return 0
	}
	return int(math.Round(value))
}

// coerceFloat reads a number that may arrive as a JSON number or as a quoted
// string ("4", "4.5").
func coerceFloat(raw json.RawMessage) float64 {
	var number float64
	if err := json.Unmarshal(raw, &number); err == nil {
		return number
	}
	var text string
	if err := json.Unmarshal(raw, &text); err == nil {
		parsed, err := strconv.ParseFloat(strings.TrimSpace(text), 64)
		if err == nil {
			return parsed
		}
	}
	return 0
}

func pickStringList(fields map[string]json.RawMessage, keys ...string) []string {
	raw, ok := pickKey(fields, keys...)
	if !ok {
		return nil
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		return trimNonEmpty(list)
	}
	// Single string instead of a list.
	var single string
	if err := json.Unmarshal(raw, &single); err == nil {
		return trimNonEmpty([]string{single})
	}
	// Objects with a text-ish field.
	var objects []map[string]any
	if err := json.Unmarshal(raw, &objects); err == nil {
		out := make([]string, 0, len(objects))
		for _, obj := range objects {
			for _, key := range []string{"finding", "text", "name", "title", "description"} {
				if value, ok := obj[key].(string); ok && strings.TrimSpace(value) != "" {
					out = append(out, strings.TrimSpace(value))
					break
				}
			}
		}
		return out
	}
	return nil
}

func pickRefList(fields map[string]json.RawMessage, keys ...string) []RefEntry {
	raw, ok := pickKey(fields, keys...)
	if !ok {
		return nil
	}
	var list []RefEntry
	if err := json.Unmarshal(raw, &list); err == nil {
		return list
	}
	var single RefEntry
	if err := json.Unmarshal(raw, &single); err == nil {
		return []RefEntry{single}
	}
	return nil
}

func trimNonEmpty(values []string) []string {
	out := make([]string, 0, len(values))
	for _, value := range values {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if strings.TrimSpace(value) != "" {
			return value
		}
	}
	return ""
}
