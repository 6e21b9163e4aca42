package llm

import (
	_ "embed"
	"fmt"
	"strings"
)

var (
	//go:embed prompts/v1.txt
	promptV1 string
	//go:embed prompts/v1_1.txt
	promptV1_1 string
)

// PromptTemplate returns the prompt template text and whether the version was
// recognized.
func PromptTemplate(version string) (string, bool) {
	switch version {
	case "v1_1":
		return promptV1_1, true
	case "v1":
		return promptV1, true
	default:
		return promptV1_1, false
	}
}

// CoverageRetryMessage builds the system message for the single coverage
// re-query: it restates the shortfall and the full mandated category list.
func CoverageRetryMessage(found, minimum int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Your previous response contained only %d risk assessments; at least %d are required. ", found, minimum)
	b.WriteString("Return the complete analysis again with two assessments for each of these categories: ")
	b.WriteString(strings.Join(MandatedCategories, ", "))
	b.WriteString(". Output JSON only, matching the schema exactly.")
	return b.String()
}
