package extract

import (
	"html"
	"net/url"
	"path"
	"regexp"
	"strconv"
	"strings"
)

var (
	blockTagPattern   = regexp.MustCompile(`(?is)</?(?:p|br|div|li|ul|ol|h[1-6]|tr|td|th|table|section|article|blockquote|hr)\b[^>]*>`)
	htmlTagPattern    = regexp.MustCompile(`(?is)<[^>]+>`)
	whitespacePattern = regexp.MustCompile(`\s+`)
	firstNumber       = regexp.MustCompile(`\d+`)
	yearPattern       = regexp.MustCompile(`\b(?:19|20)\d{2}\b`)
)

// stripTags drops markup and decodes entities. Block-level tags become a space so adjacent
// paragraphs do not run together; inline tags vanish.
func stripTags(raw string) string {
	return html.UnescapeString(removeTags(raw))
}

// removeTags is stripTags for text whose entities are already decoded.
func removeTags(raw string) string {
	text := blockTagPattern.ReplaceAllString(raw, " ")
	return htmlTagPattern.ReplaceAllString(text, "")
}

// CleanText strips markup, decodes entities and collapses whitespace.
func CleanText(raw string) string {
	text := whitespacePattern.ReplaceAllString(stripTags(raw), " ")
	return strings.TrimSpace(text)
}

// ResolveURL makes raw absolute against base. Inline data URIs and empty values resolve to "".
func ResolveURL(base *url.URL, raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" || isDataURI(trimmed) {
		return ""
	}
	if strings.HasPrefix(trimmed, "http://") || strings.HasPrefix(trimmed, "https://") {
		return trimmed
	}
	if strings.HasPrefix(trimmed, "//") {
		scheme := "https"
		if base != nil && base.Scheme != "" {
			scheme = base.Scheme
		}
		return scheme + ":" + trimmed
	}
	if base == nil {
		return trimmed
	}

	ref, err := url.Parse(trimmed)
	if err != nil {
		return ""
	}
	return base.ResolveReference(ref).String()
}

// IDFromURL derives a record id from a source URL: a numeric id query parameter when
// present (/anime.php?id=5), otherwise the last path segment.
func IDFromURL(raw string) string {
	parsed, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return ""
	}
	if queryID := strings.TrimSpace(parsed.Query().Get("id")); queryID != "" {
		if _, err := strconv.ParseUint(queryID, 10, 64); err == nil {
			return queryID
		}
	}
	cleaned := path.Clean("/" + strings.Trim(parsed.Path, "/"))
	segment := path.Base(cleaned)
	if segment == "/" || segment == "." || segment == "" {
		return ""
	}
	return url.PathEscape(segment)
}

// FirstInt parses the first run of digits in raw.
func FirstInt(raw string) (int, bool) {
	token := firstNumber.FindString(raw)
	if token == "" {
		return 0, false
	}
	value, err := strconv.Atoi(token)
	if err != nil {
		return 0, false
	}
	return value, true
}

// Year returns the first four-digit year (1900-2099) in raw.
func Year(raw string) (string, bool) {
	year := yearPattern.FindString(raw)
	return year, year != ""
}

func isDataURI(raw string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(raw)), "data:")
}
