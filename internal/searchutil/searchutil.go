package searchutil

import (
	"strings"
	"unicode"
)

// Normalize lowercases value and folds punctuation into single spaces so "Re:Zero" and
// "re zero" compare equal.
func Normalize(value string) string {
	clean := strings.ToLower(strings.TrimSpace(value))
	if clean == "" {
		return ""
	}
	clean = strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return r
		}
		return ' '
	}, clean)
	return strings.Join(strings.Fields(clean), " ")
}

func TokenizeNormalized(normalized string) []string {
	parts := strings.Fields(normalized)
	if len(parts) == 0 {
		return nil
	}

	tokens := make([]string, 0, len(parts))
	seen := make(map[string]struct{}, len(parts))
	for _, part := range parts {
		if _, exists := seen[part]; exists {
			continue
		}
		seen[part] = struct{}{}
		tokens = append(tokens, part)
	}

	return tokens
}

// Query is a normalized search string ready for repeated matching.
type Query struct {
	normalized string
	tokens     []string
}

func NewQuery(raw string) Query {
	normalized := Normalize(raw)
	return Query{normalized: normalized, tokens: TokenizeNormalized(normalized)}
}

func (q Query) Empty() bool {
	return q.normalized == ""
}

// Matches reports whether any candidate contains the whole query, or every query token.
func (q Query) Matches(candidates ...string) bool {
	if q.Empty() {
		return false
	}
	for _, candidate := range candidates {
		if q.matches(candidate) {
			return true
		}
	}
	return false
}

func (q Query) matches(candidate string) bool {
	normalizedCandidate := Normalize(candidate)
	if normalizedCandidate == "" {
		return false
	}
	if strings.Contains(normalizedCandidate, q.normalized) {
		return true
	}

	for _, token := range q.tokens {
		if !strings.Contains(normalizedCandidate, token) {
			return false
		}
	}
	return len(q.tokens) > 0
}
