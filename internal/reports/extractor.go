package reports

import (
	"encoding/json"
	"errors"
	"strings"
)

// ErrUnparseable means no JSON object could be recovered from the model
// output. This is an expected outcome for a truncated or off-script response,
// not an exceptional one; callers surface it as a failed report, never a panic.
var ErrUnparseable = errors.New("no parseable JSON object in model output")

// ExtractJSON recovers a parseable JSON object from arbitrary model output:
// markdown fences, prose before/after the object, trailing commas, and
// token-limit truncation mid-structure. The repair scanner tracks in-string
// state while counting delimiter depth, so literal braces inside string
// values do not corrupt the balance.
func ExtractJSON(raw string) (json.RawMessage, error) {
	cleaned := stripCodeFences(raw)

	start := strings.IndexByte(cleaned, '{')
	if start < 0 {
		return nil, ErrUnparseable
	}
	cleaned = cleaned[start:]

	// Fast path: the slice from the first { to the last } already parses.
	if end := strings.LastIndexByte(cleaned, '}'); end >= 0 {
		slice := cleaned[:end+1]
		if json.Valid([]byte(slice)) {
			return json.RawMessage(slice), nil
		}
	}

	repaired := stripTrailingCommas(repairTruncated(cleaned))
	if !json.Valid([]byte(repaired)) {
		return nil, ErrUnparseable
	}
	return json.RawMessage(repaired), nil
}

// stripTrailingCommas removes commas that sit directly before a closing
// delimiter, which some models emit and encoding/json rejects.
func stripTrailingCommas(text string) string {
	var builder strings.Builder
	builder.Grow(len(text))
	inString := false
	escaped := false

	for i := 0; i < len(text); i++ {
		c := text[i]
		if escaped {
			escaped = false
			builder.WriteByte(c)
			continue
		}
		switch c {
		case '\\':
			if inString {
				escaped = true
			}
			builder.WriteByte(c)
		case '"':
			inString = !inString
			builder.WriteByte(c)
		case ',':
			if !inString && nextNonSpaceIsCloser(text, i+1) {
				continue
			}
			builder.WriteByte(c)
		default:
			builder.WriteByte(c)
		}
	}
	return builder.String()
}

func nextNonSpaceIsCloser(text string, from int) bool {
	for i := from; i < len(text); i++ {
		switch text[i] {
		case ' ', '\t', '\r', '\n':
			continue
		case '}', ']':
			return true
		default:
			return false
		}
	}
	// Comma at end of a truncated payload; the closers appended by the
	// repair scanner follow immediately.
	return false
}

func stripCodeFences(raw string) string {
	text := strings.TrimSpace(raw)
	if idx := strings.Index(text, "```json"); idx >= 0 {
		text = text[idx+len("```json"):]
	} else if idx := strings.Index(text, "```"); idx >= 0 {
		text = text[idx+3:]
	}
	if idx := strings.LastIndex(text, "```"); idx >= 0 {
		text = text[:idx]
	}
	return strings.TrimSpace(text)
}

// repairTruncated closes an unterminated trailing string, strips a dangling
// comma, and appends the missing closers in reverse nesting order.
func repairTruncated(text string) string {
	var stack []byte
	inString := false
	escaped := false

	for i := 0; i < len(text); i++ {
		c := text[i]
		if escaped {
			escaped = false
			continue
		}
		switch c {
		case '\\':
			if inString {
				escaped = true
			}
		case '"':
			inString = !inString
		case '{', '[':
			if !inString {
				stack = append(stack, c)
			}
		case '}', ']':
			if !inString && len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
		}
	}

	var builder strings.Builder
	builder.Grow(len(text) + len(stack) + 1)
	builder.WriteString(text)

	if inString {
		builder.WriteByte('"')
	}

	repaired := strings.TrimRight(builder.String(), " \t\r\n")
	repaired = strings.TrimSuffix(repaired, ",")

	if len(stack) == 0 {
		return repaired
	}
	var closers strings.Builder
	for i := len(stack) - 1; i >= 0; i-- {
		if stack[i] == '{' {
			closers.WriteByte('}')
		} else {
			closers.WriteByte(']')
		}
	}
	return repaired + closers.String()
}
