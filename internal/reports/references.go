package reports

import "strings"

// minReferenceEntries is the floor for both reference lists on every
// persisted assessment: compliance pointers are a product requirement even
// when the model omitted them.
const minReferenceEntries = 2

// referenceGroup binds category/subcategory keywords to the fixed references
// injected for that risk family. Adding a regulatory framework means adding a
// row here, not a branch in the normalizer.
type referenceGroup struct {
	keywords   []string
	references []string
}

var referenceGroups = []referenceGroup{
	{
		keywords: []string{"data", "privacy"},
		references: []string{
			"GDPR Art. 35 Data Protection Impact Assessment https://gdpr-info.eu/art-35-gdpr/",
			"EU AI Act Art. 10 Data and Data Governance https://artificialintelligenceact.eu/article/10/",
		},
	},
	{
		keywords: []string{"cyber", "security"},
		references: []string{
			"NIS2 Directive Art. 21 Cybersecurity Risk-Management Measures https://eur-lex.europa.eu/eli/dir/2022/2555/oj",
			"ISO/IEC 27001 Information Security Management https://www.iso.org/standard/27001",
		},
	},
	{
		keywords: []string{"ai", "bias", "ethics"},
		references: []string{
			"EU AI Act Art. 9 Risk Management System https://artificialintelligenceact.eu/article/9/",
			"EU AI Act Art. 14 Human Oversight https://artificialintelligenceact.eu/article/14/",
		},
	},
	{
		keywords: []string{"compliance", "regulatory"},
		references: []string{
			"EU AI Act Art. 16 Obligations of Providers https://artificialintelligenceact.eu/article/16/",
			"GDPR Art. 24 Responsibility of the Controller https://gdpr-info.eu/art-24-gdpr/",
		},
	},
	{
		keywords: []string{"technical", "implementation", "risk"},
		references: []string{
			"EU AI Act Art. 15 Accuracy, Robustness and Cybersecurity https://artificialintelligenceact.eu/article/15/",
			"ISO/IEC 42001 AI Management System https://www.iso.org/standard/42001",
		},
	},
}

// generalGovernanceReferences is the fallback when no keyword group matches
// and the model supplied no references of its own.
var generalGovernanceReferences = []string{
	"EU AI Act Art. 9 Risk Management System https://artificialintelligenceact.eu/article/9/",
	"GDPR Art. 35 Data Protection Impact Assessment https://gdpr-info.eu/art-35-gdpr/",
	"NIS2 Directive Art. 21 Cybersecurity Risk-Management Measures https://eur-lex.europa.eu/eli/dir/2022/2555/oj",
}

// baselineBestPractices tops up thin best-practice lists. The leading keyword
// of each entry is used for approximate duplicate avoidance.
var baselineBestPractices = []string{
	"NIST AI Risk Management Framework https://www.nist.gov/itl/ai-risk-management-framework",
	"OWASP AI Security and Privacy Guide https://owasp.org/www-project-ai-security-and-privacy-guide/",
	"ISO/IEC 27001 Information Security Management https://www.iso.org/standard/27001",
}

// normalizeReferences canonicalizes both reference lists on an assessment:
// flatten string/object entries to display strings, dedupe preserving order,
// then inject category-appropriate minimums so every persisted assessment
// carries at least two actionable pointers per list.
func normalizeReferences(a *AssessmentCandidate) (regulatory, practices []string) {
	regulatory = dedupeDisplay(a.RegulatoryReferences)
	practices = dedupeDisplay(a.BestPractices)

	categoryText := strings.ToLower(a.Category + " " + a.Subcategory)
	injected := matchingGroupReferences(categoryText)
	if len(injected) == 0 && len(regulatory) == 0 {
		injected = generalGovernanceReferences
	}
	for _, ref := range injected {
		regulatory = appendUnique(regulatory, ref)
	}
	if len(regulatory) < minReferenceEntries {
		for _, ref := range generalGovernanceReferences {
			regulatory = appendUnique(regulatory, ref)
			if len(regulatory) >= minReferenceEntries {
				break
			}
		}
	}

	for _, practice := range baselineBestPractices {
		if len(practices) >= minReferenceEntries {
			break
		}
		if hasLeadingKeyword(practices, practice) {
			continue
		}
		practices = appendUnique(practices, practice)
	}

	return regulatory, practices
}

func matchingGroupReferences(categoryText string) []string {
	var out []string
	for _, group := range referenceGroups {
		for _, keyword := range group.keywords {
			if strings.Contains(categoryText, keyword) {
				out = append(out, group.references...)
				break
			}
		}
	}
	return out
}

func dedupeDisplay(entries []RefEntry) []string {
	seen := make(map[string]struct{}, len(entries))
	out := make([]string, 0, len(entries))
	for _, entry := range entries {
		display := entry.Display()
		if display == "" {
			continue
		}
		if _, dup := seen[display]; dup {
			continue
		}
		seen[display] = struct{}{}
		out = append(out, display)
	}
	return out
}

func appendUnique(list []string, value string) []string {
	for _, existing := range list {
		if existing == value {
			return list
		}
	}
	return append(list, value)
}

// hasLeadingKeyword reports whether any existing entry starts with the first
// word of the baseline entry, e.g. an existing "NIST SP 800-53" suppresses
// the NIST AI RMF top-up.
func hasLeadingKeyword(existing []string, baseline string) bool {
	leading, _, _ := strings.Cut(baseline, " ")
	if leading == "" {
		return false
	}
	for _, entry := range existing {
		if strings.HasPrefix(strings.ToLower(entry), strings.ToLower(leading)) {
			return true
		}
	}
	return false
}
