package reports

import (
	"strings"
	"testing"
)

func TestNormalizeReferencesFlattensAndDedupes(t *testing.T) {
	a := AssessmentCandidate{
		Category: "Data Privacy",
		RegulatoryReferences: []RefEntry{
			{Name: "GDPR Art. 5"},
			{Name: "GDPR Art. 5"},
			{Name: "CCPA", Link: "https://oag.ca.gov/privacy/ccpa"},
		},
	}
	regulatory, _ := normalizeReferences(&a)

	seen := make(map[string]int)
	for _, ref := range regulatory {
		seen[ref]++
	}
	if seen["GDPR Art. 5"] != 1 {
		t.Errorf("duplicate not removed: %v", regulatory)
	}
	if seen["CCPA https://oag.ca.gov/privacy/ccpa"] != 1 {
		t.Errorf("object entry not flattened: %v", regulatory)
	}
}

func TestNormalizeReferencesInjectsCategoryGroup(t *testing.T) {
	a := AssessmentCandidate{Category: "Cybersecurity", Subcategory: "Network Security"}
	regulatory, _ := normalizeReferences(&a)
	if len(regulatory) < minReferenceEntries {
		t.Fatalf("regulatory = %d entries, want >= %d", len(regulatory), minReferenceEntries)
	}
	foundNIS2 := false
	for _, ref := range regulatory {
		if strings.Contains(ref, "NIS2") {
			foundNIS2 = true
		}
	}
	if !foundNIS2 {
		t.Errorf("cyber group not injected: %v", regulatory)
	}
}

func TestNormalizeReferencesGeneralFallback(t *testing.T) {
	a := AssessmentCandidate{Category: "Financial & Contractual"}
	regulatory, _ := normalizeReferences(&a)
	if len(regulatory) < minReferenceEntries {
		t.Fatalf("regulatory = %d entries, want >= %d", len(regulatory), minReferenceEntries)
	}
	for i, want := range generalGovernanceReferences[:minReferenceEntries] {
		if regulatory[i] != want {
			t.Errorf("entry %d = %q, want general governance fallback", i, regulatory[i])
		}
	}
}

func TestNormalizeReferencesMinimumBestPractices(t *testing.T) {
	a := AssessmentCandidate{Category: "Operational Resilience"}
	_, practices := normalizeReferences(&a)
	if len(practices) < minReferenceEntries {
		t.Fatalf("practices = %d entries, want >= %d", len(practices), minReferenceEntries)
	}
}

func TestNormalizeReferencesKeepsModelPractices(t *testing.T) {
	a := AssessmentCandidate{
		Category: "Cybersecurity",
		BestPractices: []RefEntry{
			{Name: "NIST SP 800-53"},
			{Name: "CIS Controls v8"},
		},
	}
	_, practices := normalizeReferences(&a)
	if len(practices) != 2 {
		t.Fatalf("practices = %v, want the two model entries untouched", practices)
	}
	if practices[0] != "NIST SP 800-53" || practices[1] != "CIS Controls v8" {
		t.Errorf("model entries reordered or replaced: %v", practices)
	}
}

func TestNormalizeReferencesLeadingKeywordSuppression(t *testing.T) {
	a := AssessmentCandidate{
		Category:      "Technical Implementation",
		BestPractices: []RefEntry{{Name: "NIST SP 800-53 Security Controls"}},
	}
	_, practices := normalizeReferences(&a)
	nistCount := 0
	for _, p := range practices {
		if strings.HasPrefix(strings.ToLower(p), "nist") {
			nistCount++
		}
	}
	if nistCount != 1 {
		t.Errorf("NIST baseline injected despite existing NIST entry: %v", practices)
	}
	if len(practices) < minReferenceEntries {
		t.Errorf("practices = %d entries, want >= %d", len(practices), minReferenceEntries)
	}
}

func TestNormalizeReferencesIdempotent(t *testing.T) {
	a := AssessmentCandidate{Category: "Data Privacy"}
	first, _ := normalizeReferences(&a)

	b := AssessmentCandidate{Category: "Data Privacy"}
	for _, ref := range first {
		b.RegulatoryReferences = append(b.RegulatoryReferences, RefEntry{Name: ref})
	}
	second, _ := normalizeReferences(&b)
	if len(second) != len(first) {
		t.Errorf("re-run grew the list: %d -> %d\n%v\n%v", len(first), len(second), first, second)
	}
}
