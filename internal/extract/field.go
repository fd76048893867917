package extract

import (
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/andybalholm/cascadia"
)

// Rule is one candidate way of reading a field. A rule with a selector reads matching
// elements, taking the value named by Attr; Pattern then narrows that value to its first
// capture group. A rule without a selector runs Pattern over the raw markup.
//
// Attr is "text" (default), "html", or an attribute chain such as "data-src|src" where the
// first non-empty attribute of each element wins.
type Rule struct {
	Selector string `yaml:"selector"`
	Attr     string `yaml:"attr"`
	Pattern  string `yaml:"pattern"`
}

// Field is an ordered priority list of rules. Extractors try rules in order and the first
// rule that produces a value wins.
type Field []Rule

var patternCache sync.Map

func compilePattern(pattern string) (*regexp.Regexp, error) {
	if cached, ok := patternCache.Load(pattern); ok {
		return cached.(*regexp.Regexp), nil
	}
	compiled, err := regexp.Compile(pattern)
	if err != nil {
		return nil, err
	}
	patternCache.Store(pattern, compiled)
	return compiled, nil
}

func (r Rule) Validate() error {
	selector := strings.TrimSpace(r.Selector)
	pattern := strings.TrimSpace(r.Pattern)
	if selector == "" && pattern == "" {
		return fmt.Errorf("rule needs a selector or a pattern")
	}
	if selector != "" {
		if _, err := cascadia.Compile(selector); err != nil {
			return fmt.Errorf("invalid selector %q: %w", selector, err)
		}
	}
	if pattern != "" {
		if _, err := compilePattern(r.Pattern); err != nil {
			return fmt.Errorf("invalid pattern %q: %w", r.Pattern, err)
		}
	}
	return nil
}

func (f Field) Validate() error {
	for index, rule := range f {
		if err := rule.Validate(); err != nil {
			return fmt.Errorf("rule %d: %w", index, err)
		}
	}
	return nil
}

func (r Rule) attrChain() []string {
	attr := strings.TrimSpace(r.Attr)
	if attr == "" {
		return []string{"text"}
	}
	parts := strings.Split(attr, "|")
	chain := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			chain = append(chain, trimmed)
		}
	}
	if len(chain) == 0 {
		return []string{"text"}
	}
	return chain
}
