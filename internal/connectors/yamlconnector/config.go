package yamlconnector

import (
	"fmt"
	"strings"

	"github.com/gabriel/anime-manga-browser/internal/extract"
	"github.com/gabriel/anime-manga-browser/internal/models"
)

// Profile describes how to browse one scraped site. Paths are templates relative to
// base_url; {page}, {query}, {id} and {number} are substituted per request.
type Profile struct {
	Key               string   `yaml:"key"`
	Name              string   `yaml:"name"`
	Enabled           *bool    `yaml:"enabled"`
	BaseURL           string   `yaml:"base_url"`
	HealthPath        string   `yaml:"health_path"`
	CacheMinutes      int      `yaml:"cache_minutes"`
	RequestsPerSecond float64  `yaml:"requests_per_second"`
	Dedup             string   `yaml:"index_dedup"`
	Anime             *Section `yaml:"anime"`
	Manga             *Section `yaml:"manga"`
}

type Paths struct {
	Popular  string `yaml:"popular"`
	Trending string `yaml:"trending"`
	Recent   string `yaml:"recent"`
	New      string `yaml:"new"`
	Search   string `yaml:"search"`
	Details  string `yaml:"details"`
	Episode  string `yaml:"episode"`
	Chapter  string `yaml:"chapter"`
}

// Section holds the rules for one content type.
type Section struct {
	Paths Paths            `yaml:"paths"`
	Items extract.ItemRule `yaml:"items"`
	// Highlights overrides Items for trending and recent pages, which often use a different
	// card layout than the catalogue.
	Highlights *extract.ItemRule  `yaml:"highlights"`
	Details    DetailRules        `yaml:"details"`
	Index      *extract.IndexRule `yaml:"index"`
	Stream     extract.Field      `yaml:"stream"`
	Subtitles  extract.Field      `yaml:"subtitles"`
	Pages      extract.Field      `yaml:"pages"`
}

type DetailRules struct {
	Title         extract.Field `yaml:"title"`
	Poster        extract.Field `yaml:"poster"`
	Banner        extract.Field `yaml:"banner"`
	Description   extract.Field `yaml:"description"`
	Status        extract.Field `yaml:"status"`
	Genres        extract.Field `yaml:"genres"`
	Rating        extract.Field `yaml:"rating"`
	Year          extract.Field `yaml:"year"`
	TitleEnglish  extract.Field `yaml:"title_english"`
	TitleJapanese extract.Field `yaml:"title_japanese"`
	Studios       extract.Field `yaml:"studios"`
	Authors       extract.Field `yaml:"authors"`
}

func (d DetailRules) fields() map[string]extract.Field {
	return map[string]extract.Field{
		"title":          d.Title,
		"poster":         d.Poster,
		"banner":         d.Banner,
		"description":    d.Description,
		"status":         d.Status,
		"genres":         d.Genres,
		"rating":         d.Rating,
		"year":           d.Year,
		"title_english":  d.TitleEnglish,
		"title_japanese": d.TitleJapanese,
		"studios":        d.Studios,
		"authors":        d.Authors,
	}
}

func (p *Profile) normalizeAndValidate() error {
	p.Key = strings.ToLower(strings.TrimSpace(p.Key))
	p.Name = strings.TrimSpace(p.Name)
	p.BaseURL = strings.TrimRight(strings.TrimSpace(p.BaseURL), "/")
	p.Dedup = strings.ToLower(strings.TrimSpace(p.Dedup))

	if p.Key == "" {
		return fmt.Errorf("key is required")
	}
	if p.Name == "" {
		return fmt.Errorf("name is required")
	}
	if p.BaseURL == "" {
		return fmt.Errorf("base_url is required")
	}
	if !strings.HasPrefix(p.BaseURL, "http://") && !strings.HasPrefix(p.BaseURL, "https://") {
		return fmt.Errorf("base_url must be an http(s) url")
	}
	if p.CacheMinutes < 0 {
		return fmt.Errorf("cache_minutes must not be negative")
	}
	if p.RequestsPerSecond < 0 {
		return fmt.Errorf("requests_per_second must not be negative")
	}
	switch extract.DedupPolicy(p.Dedup) {
	case "", extract.DedupFirstSeen, extract.DedupKeepAll:
	default:
		return fmt.Errorf("index_dedup must be %s or %s", extract.DedupFirstSeen, extract.DedupKeepAll)
	}

	if p.Anime == nil && p.Manga == nil {
		return fmt.Errorf("at least one of anime or manga is required")
	}
	if p.Anime != nil {
		if err := p.Anime.validate(models.TypeAnime); err != nil {
			return fmt.Errorf("anime: %w", err)
		}
	}
	if p.Manga != nil {
		if err := p.Manga.validate(models.TypeManga); err != nil {
			return fmt.Errorf("manga: %w", err)
		}
	}

	if strings.TrimSpace(p.HealthPath) == "" {
		p.HealthPath = "/"
	}

	return nil
}

func (s *Section) validate(contentType models.ContentType) error {
	if strings.TrimSpace(s.Paths.Details) == "" {
		return fmt.Errorf("paths.details is required")
	}
	if len(s.Details.Title) == 0 {
		return fmt.Errorf("details.title is required")
	}
	for name, field := range s.Details.fields() {
		if err := field.Validate(); err != nil {
			return fmt.Errorf("details.%s: %w", name, err)
		}
	}

	if s.listsAnything() {
		if err := s.Items.Validate(); err != nil {
			return fmt.Errorf("items: %w", err)
		}
	}
	if s.Highlights != nil {
		if err := s.Highlights.Validate(); err != nil {
			return fmt.Errorf("highlights: %w", err)
		}
	}
	if s.Index != nil {
		if err := s.Index.Validate(); err != nil {
			return fmt.Errorf("index: %w", err)
		}
	}

	switch contentType {
	case models.TypeAnime:
		if strings.TrimSpace(s.Paths.Chapter) != "" || len(s.Pages) > 0 {
			return fmt.Errorf("chapter pages are only read for manga")
		}
		if strings.TrimSpace(s.Paths.Episode) != "" && len(s.Stream) == 0 {
			return fmt.Errorf("stream rules are required with paths.episode")
		}
		if err := s.Stream.Validate(); err != nil {
			return fmt.Errorf("stream: %w", err)
		}
		if err := s.Subtitles.Validate(); err != nil {
			return fmt.Errorf("subtitles: %w", err)
		}
	case models.TypeManga:
		if strings.TrimSpace(s.Paths.Episode) != "" || len(s.Stream) > 0 {
			return fmt.Errorf("episode streams are only read for anime")
		}
		if strings.TrimSpace(s.Paths.Chapter) != "" && len(s.Pages) == 0 {
			return fmt.Errorf("pages rules are required with paths.chapter")
		}
		if err := s.Pages.Validate(); err != nil {
			return fmt.Errorf("pages: %w", err)
		}
	}

	return nil
}

func (s *Section) listsAnything() bool {
	for _, path := range []string{s.Paths.Popular, s.Paths.Trending, s.Paths.Recent, s.Paths.New, s.Paths.Search} {
		if strings.TrimSpace(path) != "" {
			return true
		}
	}
	return false
}

func (p *Profile) isEnabled() bool {
	if p.Enabled == nil {
		return true
	}
	return *p.Enabled
}

func (p *Profile) section(contentType models.ContentType) *Section {
	if contentType == models.TypeManga {
		return p.Manga
	}
	return p.Anime
}
