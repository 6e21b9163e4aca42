package openai

import (
	"fmt"
	"log"
	"strings"

	"riskscan-backend/internal/llm"
)

// Message represents an OpenAI chat message.
type Message struct {
	Role    string
	Content string
}

const systemPromptStrict = "You are an AI procurement risk analysis engine. Respond with JSON only. No markdown. Never omit keys. Output must match the schema exactly."

// BuildPrompt creates the chat messages for a document risk-analysis request.
func BuildPrompt(promptVersion string, documentText string, industry string, model string) []Message {
	_, developer := resolvePromptTemplate(promptVersion, industry, model)
	return []Message{
		{Role: "system", Content: systemPromptStrict},
		{Role: "developer", Content: developer},
		{Role: "user", Content: buildUserPrompt(documentText, industry)},
	}
}

func resolvePromptTemplate(promptVersion string, industry string, model string) (string, string) {
	version := strings.TrimSpace(promptVersion)
	template, ok := llm.PromptTemplate(version)
	usedVersion := version
	if !ok {
		log.Printf("unknown prompt version %q, defaulting to v1_1", version)
		usedVersion = "v1_1"
		template, _ = llm.PromptTemplate(usedVersion)
	}

	industryProvided := "true"
	if strings.TrimSpace(industry) == "" {
		industryProvided = "false"
	}

	replacer := strings.NewReplacer(
		"{{PROMPT_VERSION}}", usedVersion,
		"{{MODEL}}", model,
		"{{INDUSTRY_PROVIDED}}", industryProvided,
	)
	return usedVersion, replacer.Replace(template)
}

func buildUserPrompt(documentText, industry string) string {
	ind := industry
	if strings.TrimSpace(ind) == "" {
		ind = "N/A"
	}
	return fmt.Sprintf("Document Text:\n%s\n\nIndustry Context:\n%s", documentText, ind)
}

func prependSystemMessage(messages []Message, content string) []Message {
	if strings.TrimSpace(content) == "" {
		return messages
	}
	out := make([]Message, 0, len(messages)+1)
	out = append(out, Message{Role: "system", Content: content})
	out = append(out, messages...)
	return out
}
