// Package extract pulls structured fields out of third-party HTML. Every extractor is a pure
// function of the page: a field that cannot be found comes back absent, never as an error,
// so one broken rule cannot take the rest of a record down with it.
package extract

import (
	"fmt"
	"html"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Page is a parsed HTML document together with the origin its relative links resolve
// against.
type Page struct {
	Scope
}

// Scope is a region of a page. Pattern rules run over the scope's own markup only.
type Scope struct {
	sel  *goquery.Selection
	raw  string
	base *url.URL
	// inner scopes also match selectors against their own root element
	inner bool
}

func Parse(rawHTML string, baseURL string) (*Page, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	var base *url.URL
	if trimmed := strings.TrimSpace(baseURL); trimmed != "" {
		parsed, err := url.Parse(trimmed)
		if err != nil {
			return nil, fmt.Errorf("parse base url: %w", err)
		}
		base = parsed
	}

	return &Page{Scope: Scope{sel: doc.Selection, raw: rawHTML, base: base}}, nil
}

func (s Scope) sub(sel *goquery.Selection) Scope {
	raw, err := goquery.OuterHtml(sel)
	if err != nil {
		raw = ""
	}
	return Scope{sel: sel, raw: raw, base: s.base, inner: true}
}

// values returns every decoded value a single rule produces, in document order.
func (s Scope) values(rule Rule) []string {
	var pattern *regexp.Regexp
	if strings.TrimSpace(rule.Pattern) != "" {
		compiled, err := compilePattern(rule.Pattern)
		if err != nil {
			return nil
		}
		pattern = compiled
	}

	selector := strings.TrimSpace(rule.Selector)
	if selector == "" {
		if pattern == nil {
			return nil
		}
		matches := pattern.FindAllStringSubmatch(html.UnescapeString(s.raw), -1)
		out := make([]string, 0, len(matches))
		for _, match := range matches {
			value := captured(match)
			if value == "" {
				continue
			}
			out = append(out, removeTags(value))
		}
		return out
	}

	chain := rule.attrChain()
	out := make([]string, 0)
	s.find(selector).Each(func(_ int, element *goquery.Selection) {
		value := elementValue(element, chain)
		if value == "" {
			return
		}
		if pattern != nil {
			value = captured(pattern.FindStringSubmatch(value))
			if value == "" {
				return
			}
		}
		out = append(out, value)
	})
	return out
}

// find matches selector below the scope root, and the root itself for inner scopes. The
// root precedes its descendants, so document order holds.
func (s Scope) find(selector string) *goquery.Selection {
	matches := s.sel.Find(selector)
	if !s.inner {
		return matches
	}
	return s.sel.Filter(selector).AddSelection(matches)
}

func elementValue(element *goquery.Selection, chain []string) string {
	for _, attr := range chain {
		var value string
		switch attr {
		case "text":
			value = element.Text()
		case "html":
			inner, err := element.Html()
			if err != nil {
				continue
			}
			value = stripTags(inner)
		default:
			value, _ = element.Attr(attr)
		}
		if strings.TrimSpace(value) != "" {
			return value
		}
	}
	return ""
}

func captured(match []string) string {
	switch {
	case len(match) >= 2:
		return match[1]
	case len(match) == 1:
		return match[0]
	default:
		return ""
	}
}

// Text returns the first non-empty cleaned value produced by the field's rules.
func (s Scope) Text(field Field) (string, bool) {
	for _, rule := range field {
		for _, value := range s.values(rule) {
			if cleaned := CleanText(value); cleaned != "" {
				return cleaned, true
			}
		}
	}
	return "", false
}

// Texts returns every cleaned value of the first rule that produces any, in document order.
func (s Scope) Texts(field Field) []string {
	for _, rule := range field {
		values := s.values(rule)
		out := make([]string, 0, len(values))
		for _, value := range values {
			if cleaned := CleanText(value); cleaned != "" {
				out = append(out, cleaned)
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return []string{}
}

// URL returns the first value produced by the field's rules, resolved to an absolute URL.
func (s Scope) URL(field Field) (string, bool) {
	for _, rule := range field {
		for _, value := range s.values(rule) {
			if resolved := ResolveURL(s.base, value); resolved != "" {
				return resolved, true
			}
		}
	}
	return "", false
}

// URLs stops at the first rule that matches anything and returns all of that rule's
// matches as absolute URLs. Inline data URIs and exact duplicates are dropped; order is kept.
func (s Scope) URLs(field Field) []string {
	for _, rule := range field {
		values := s.values(rule)
		if len(values) == 0 {
			continue
		}

		out := make([]string, 0, len(values))
		seen := make(map[string]struct{}, len(values))
		for _, value := range values {
			resolved := ResolveURL(s.base, value)
			if resolved == "" {
				continue
			}
			if _, exists := seen[resolved]; exists {
				continue
			}
			seen[resolved] = struct{}{}
			out = append(out, resolved)
		}
		return out
	}
	return []string{}
}

// Stream returns the first playable source the field finds, or "" when the page exposes
// none. The empty string is a result, not a failure.
func (s Scope) Stream(field Field) string {
	streamURL, _ := s.URL(field)
	return streamURL
}
