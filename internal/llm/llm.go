package llm

import (
	"context"
	"errors"
)

// Client abstracts LLM providers for document risk analysis. Implementations
// return the verbatim model text; parsing and repair belong to the ingestion
// pipeline, not the transport.
type Client interface {
	AnalyzeDocument(ctx context.Context, input AnalyzeInput) (string, error)
}

// AnalyzeInput captures the inputs needed for one risk analysis call.
type AnalyzeInput struct {
	DocumentText  string
	Industry      string
	PromptVersion string
}

// MandatedCategories is the category list every prompt asks the model to
// cover, two assessments each. The coverage validator judges responses
// against the same list.
var MandatedCategories = []string{
	"Data Privacy",
	"Cybersecurity",
	"AI Ethics & Bias",
	"Regulatory Compliance",
	"Technical Implementation",
	"Operational Resilience",
	"Third-Party & Supply Chain",
	"Financial & Contractual",
}

type extraSystemMessageKey struct{}

// WithExtraSystemMessage prepends an additional system message to the next
// call, used by the coverage retry to restate the shortfall.
func WithExtraSystemMessage(ctx context.Context, msg string) context.Context {
	return context.WithValue(ctx, extraSystemMessageKey{}, msg)
}

// ExtraSystemMessageFromContext returns the extra system message, if any.
func ExtraSystemMessageFromContext(ctx context.Context) (string, bool) {
	msg, ok := ctx.Value(extraSystemMessageKey{}).(string)
	return msg, ok
}

type promptHashSinkKey struct{}

// WithPromptHashCapture arranges for the provider to write the hash of the
// rendered prompt into sink, for persistence alongside the report.
func WithPromptHashCapture(ctx context.Context, sink *string) context.Context {
	return context.WithValue(ctx, promptHashSinkKey{}, sink)
}

// PromptHashSinkFromContext returns the capture sink, if any.
func PromptHashSinkFromContext(ctx context.Context) (*string, bool) {
	sink, ok := ctx.Value(promptHashSinkKey{}).(*string)
	return sink, ok
}

// ErrNotImplemented is returned by the placeholder client.
var ErrNotImplemented = errors.New("LLM not implemented")

// PlaceholderClient is a stub implementation until provider wiring is added.
type PlaceholderClient struct{}

// AnalyzeDocument returns ErrNotImplemented.
func (PlaceholderClient) AnalyzeDocument(ctx context.Context, input AnalyzeInput) (string, error) {
	_ = ctx
	_ = input
	return "", ErrNotImplemented
}
