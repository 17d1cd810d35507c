// Package llmclient defines the external LLM collaborator contract
// consumed by the analysis facade, plus the tolerant JSON-recovery logic
// applied to whatever the provider returns.
package llmclient

import (
	"context"
	"errors"
	"regexp"
	"strings"
)

// Usage reports token accounting for one invocation, when the provider
// exposes it.
type Usage struct {
	InputTokens  int
	OutputTokens int
}

// Total returns the combined token count.
func (u Usage) Total() int {
	return u.InputTokens + u.OutputTokens
}

// Invoker is the synchronous, suspending operation the core consumes from
// the external LLM provider. text is expected to be JSON, possibly
// wrapped in prose or a fenced code block; usage is nil when the
// provider doesn't report it.
type Invoker interface {
	Invoke(ctx context.Context, systemPrompt, userPrompt string) (text string, usage *Usage, err error)
}

// ErrNoJSON is returned by ExtractJSON when no JSON payload could be
// recovered from the provider's text.
var ErrNoJSON = errors.New("llmclient: no JSON payload found in response")

var fencedJSONPattern = regexp.MustCompile("(?s)```json\\s*(.*?)\\s*```")

// ExtractJSON returns the whitespace-trimmed text if it is JSON-shaped
// (starts with '{' once trimmed), else recovers the first ```json fenced
// block, else the first balanced {...} substring. Returns ErrNoJSON if
// none of these succeed.
func ExtractJSON(text string) (string, error) {
	trimmed := strings.TrimSpace(text)
	if strings.HasPrefix(trimmed, "{") {
		return trimmed, nil
	}

	if m := fencedJSONPattern.FindStringSubmatch(text); m != nil {
		return strings.TrimSpace(m[1]), nil
	}

	if obj, ok := firstBalancedObject(text); ok {
		return obj, nil
	}

	return "", ErrNoJSON
}

// firstBalancedObject scans for the first balanced {...} substring,
// respecting string literals so braces inside quoted strings don't
// confuse the depth count.
func firstBalancedObject(text string) (string, bool) {
	start := strings.IndexByte(text, '{')
	if start < 0 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return text[start : i+1], true
			}
		}
	}
	return "", false
}
