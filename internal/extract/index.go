package extract

import (
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/gabriel/anime-manga-browser/internal/models"
)

type DedupPolicy string

const (
	// DedupFirstSeen drops later entries whose number was already seen.
	DedupFirstSeen DedupPolicy = "first-seen"
	// DedupKeepAll appends every matching anchor.
	DedupKeepAll DedupPolicy = "keep-all"
)

// IndexRule finds episode or chapter anchors. Pattern runs against each anchor's href and its
// first capture group is the entry number.
type IndexRule struct {
	Selector string `yaml:"selector"`
	Pattern  string `yaml:"pattern"`
	Title    Field  `yaml:"title"`
}

func (r IndexRule) Validate() error {
	rule := Rule{Selector: r.selector(), Pattern: r.Pattern}
	if strings.TrimSpace(r.Pattern) == "" {
		return errMissingIndexPattern
	}
	if err := rule.Validate(); err != nil {
		return err
	}
	return r.Title.Validate()
}

func (r IndexRule) selector() string {
	if strings.TrimSpace(r.Selector) == "" {
		return "a[href]"
	}
	return r.Selector
}

// Index scans anchors in document order. Entries keep scan order; they are never sorted.
func (s Scope) Index(rule IndexRule, policy DedupPolicy) []models.IndexEntry {
	pattern, err := compilePattern(rule.Pattern)
	if err != nil || strings.TrimSpace(rule.Pattern) == "" {
		return []models.IndexEntry{}
	}

	entries := make([]models.IndexEntry, 0)
	seen := make(map[int]struct{})
	s.find(rule.selector()).Each(func(_ int, anchor *goquery.Selection) {
		href, ok := anchor.Attr("href")
		if !ok {
			return
		}
		match := pattern.FindStringSubmatch(href)
		if len(match) < 2 {
			return
		}
		number, err := strconv.Atoi(strings.TrimSpace(match[1]))
		if err != nil || number <= 0 {
			return
		}

		if policy != DedupKeepAll {
			if _, exists := seen[number]; exists {
				return
			}
			seen[number] = struct{}{}
		}

		entry := models.IndexEntry{
			Number: number,
			URL:    ResolveURL(s.base, href),
		}
		if len(rule.Title) > 0 {
			entry.Title, _ = s.sub(anchor).Text(rule.Title)
		}
		if entry.Title == "" {
			entry.Title = CleanText(anchor.Text())
		}
		if entry.Title == "" {
			entry.Title, _ = anchor.Attr("title")
			entry.Title = strings.TrimSpace(entry.Title)
		}

		entries = append(entries, entry)
	})

	return entries
}
