package extract

import (
	"errors"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/gabriel/anime-manga-browser/internal/models"
)

var (
	errMissingIndexPattern = errors.New("index pattern is required")
	errMissingContainer    = errors.New("item container selector is required")
)

// ItemRule describes one result card on a list or search page. Fields are read relative to
// each container element.
type ItemRule struct {
	Container string `yaml:"container"`
	Link      Field  `yaml:"link"`
	Title     Field  `yaml:"title"`
	Poster    Field  `yaml:"poster"`
	Status    Field  `yaml:"status"`
	Genres    Field  `yaml:"genres"`
	Rating    Field  `yaml:"rating"`
	Year      Field  `yaml:"year"`
	Count     Field  `yaml:"count"`
}

func (r ItemRule) Validate() error {
	if strings.TrimSpace(r.Container) == "" {
		return errMissingContainer
	}
	if err := (Rule{Selector: r.Container}).Validate(); err != nil {
		return err
	}
	for _, field := range []Field{r.link(), r.Title, r.Poster, r.Status, r.Genres, r.Rating, r.Year, r.Count} {
		if err := field.Validate(); err != nil {
			return err
		}
	}
	return nil
}

func (r ItemRule) link() Field {
	if len(r.Link) == 0 {
		return Field{{Selector: "a[href]", Attr: "href"}}
	}
	return r.Link
}

// Items assembles list entries from every container on the page, capped at limit when
// limit > 0. Containers without a usable link are skipped because an entry without an id
// cannot be routed; a repeated id keeps its first occurrence.
func (s Scope) Items(rule ItemRule, contentType models.ContentType, limit int) []models.ListItem {
	items := make([]models.ListItem, 0)
	if strings.TrimSpace(rule.Container) == "" {
		return items
	}

	seen := make(map[string]struct{})
	s.sel.Find(rule.Container).EachWithBreak(func(_ int, container *goquery.Selection) bool {
		if limit > 0 && len(items) >= limit {
			return false
		}

		scope := s.sub(container)
		link, ok := scope.URL(rule.link())
		if !ok {
			return true
		}
		id := IDFromURL(link)
		if id == "" {
			return true
		}
		if _, exists := seen[id]; exists {
			return true
		}
		seen[id] = struct{}{}

		items = append(items, scope.item(rule, id, contentType))
		return true
	})

	return items
}

func (s Scope) item(rule ItemRule, id string, contentType models.ContentType) models.ListItem {
	item := models.ListItem{
		ID:     id,
		Title:  models.UnknownTitle,
		Type:   contentType,
		Genres: s.Texts(rule.Genres),
	}

	if title, ok := s.Text(rule.Title); ok {
		item.Title = title
	}
	item.Poster, _ = s.URL(rule.Poster)
	item.Status, _ = s.Text(rule.Status)
	item.Rating, _ = s.Text(rule.Rating)
	if year, ok := s.Text(rule.Year); ok {
		item.Year, _ = Year(year)
	}

	if countText, ok := s.Text(rule.Count); ok {
		if count, ok := FirstInt(countText); ok {
			if contentType == models.TypeManga {
				item.Chapters = &count
			} else {
				item.Episodes = &count
			}
		}
	}

	return item
}
