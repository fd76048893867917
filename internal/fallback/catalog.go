// Package fallback serves a small static catalogue from a TOML file. The dispatcher consults
// it only when the live source fails or cannot serve an operation.
package fallback

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/gabriel/anime-manga-browser/internal/connectors"
	"github.com/gabriel/anime-manga-browser/internal/models"
	"github.com/gabriel/anime-manga-browser/internal/searchutil"
)

// maxGeneratedIndex bounds the index built for one entry; the reported total stays exact.
const maxGeneratedIndex = 500

// Entry is one title in the catalogue file.
type Entry struct {
	ID            string   `toml:"id"`
	Title         string   `toml:"title"`
	TitleEnglish  string   `toml:"title_english"`
	TitleJapanese string   `toml:"title_japanese"`
	Poster        string   `toml:"poster"`
	Banner        string   `toml:"banner"`
	Status        string   `toml:"status"`
	Genres        []string `toml:"genres"`
	Rating        string   `toml:"rating"`
	Year          string   `toml:"year"`
	Description   string   `toml:"description"`
	Studios       []string `toml:"studios"`
	Authors       []string `toml:"authors"`

	// Episodes or Chapters is the length of the generated index.
	Episodes int `toml:"episodes"`
	Chapters int `toml:"chapters"`

	// StreamURL is served for every episode of an anime entry.
	StreamURL string   `toml:"stream_url"`
	Subtitles []string `toml:"subtitles"`

	// PageURL is a template expanded with {id}, {chapter} and {page} for PagesPerChapter pages.
	PageURL         string `toml:"page_url"`
	PagesPerChapter int    `toml:"pages_per_chapter"`
}

type file struct {
	Anime []Entry `toml:"anime"`
	Manga []Entry `toml:"manga"`
}

// Catalog is immutable after Load and safe for concurrent use.
type Catalog struct {
	anime []Entry
	manga []Entry
}

// Load reads path. An empty path yields a nil catalogue, which disables the fallback.
func Load(path string) (*Catalog, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return nil, nil
	}

	data, err := os.ReadFile(trimmed)
	if err != nil {
		return nil, fmt.Errorf("read fallback catalog: %w", err)
	}
	return Parse(data)
}

func Parse(data []byte) (*Catalog, error) {
	var parsed file
	if err := toml.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("parse fallback catalog: %w", err)
	}

	catalog := &Catalog{}
	var err error
	if catalog.anime, err = normalizeEntries(parsed.Anime, models.TypeAnime); err != nil {
		return nil, err
	}
	if catalog.manga, err = normalizeEntries(parsed.Manga, models.TypeManga); err != nil {
		return nil, err
	}
	return catalog, nil
}

func normalizeEntries(entries []Entry, contentType models.ContentType) ([]Entry, error) {
	seen := make(map[string]struct{}, len(entries))
	out := make([]Entry, 0, len(entries))
	for index, entry := range entries {
		entry.ID = strings.TrimSpace(entry.ID)
		entry.Title = strings.TrimSpace(entry.Title)
		if entry.ID == "" || strings.Contains(entry.ID, "/") {
			return nil, fmt.Errorf("%s entry %d: id must be a non-empty path segment", contentType, index)
		}
		if entry.Title == "" {
			return nil, fmt.Errorf("%s entry %q: title is required", contentType, entry.ID)
		}
		if _, exists := seen[entry.ID]; exists {
			return nil, fmt.Errorf("%s entry %q: duplicate id", contentType, entry.ID)
		}
		seen[entry.ID] = struct{}{}
		out = append(out, entry)
	}
	return out, nil
}

func (c *Catalog) entries(contentType models.ContentType) []Entry {
	if contentType == models.TypeManga {
		return c.manga
	}
	return c.anime
}

func (c *Catalog) find(contentType models.ContentType, id string) (Entry, bool) {
	for _, entry := range c.entries(contentType) {
		if entry.ID == id {
			return entry, true
		}
	}
	return Entry{}, false
}

// List pages through the catalogue in file order.
func (c *Catalog) List(contentType models.ContentType, kind connectors.ListKind, page int) []models.ListItem {
	if page < 1 {
		page = 1
	}
	size := kind.PageSize()
	entries := c.entries(contentType)

	start := (page - 1) * size
	if start >= len(entries) {
		return []models.ListItem{}
	}
	end := min(start+size, len(entries))

	items := make([]models.ListItem, 0, end-start)
	for _, entry := range entries[start:end] {
		items = append(items, entry.listItem(contentType))
	}
	return items
}

func (c *Catalog) Search(contentType models.ContentType, query string) []models.ListItem {
	q := searchutil.NewQuery(query)
	items := make([]models.ListItem, 0)
	for _, entry := range c.entries(contentType) {
		if !q.Matches(entry.Title, entry.TitleEnglish, entry.TitleJapanese) {
			continue
		}
		items = append(items, entry.listItem(contentType))
		if len(items) == connectors.SearchPageSize {
			break
		}
	}
	return items
}

func (c *Catalog) Details(contentType models.ContentType, id string) (*models.DetailRecord, bool) {
	entry, ok := c.find(contentType, id)
	if !ok {
		return nil, false
	}

	record := &models.DetailRecord{
		ID:            entry.ID,
		Title:         entry.Title,
		Poster:        entry.Poster,
		Banner:        entry.Banner,
		Type:          contentType,
		Status:        entry.Status,
		Genres:        nonNil(entry.Genres),
		Rating:        entry.Rating,
		Year:          entry.Year,
		Description:   entry.Description,
		TitleEnglish:  entry.TitleEnglish,
		TitleJapanese: entry.TitleJapanese,
		Studios:       entry.Studios,
		Authors:       entry.Authors,
	}

	label, total := "Episode", entry.Episodes
	if contentType == models.TypeManga {
		label, total = "Chapter", entry.Chapters
	}
	count := min(max(total, 0), maxGeneratedIndex)
	index := make([]models.IndexEntry, 0, count)
	for number := 1; number <= count; number++ {
		index = append(index, models.IndexEntry{Number: number, Title: label + " " + strconv.Itoa(number)})
	}
	record.SetIndex(index, total)

	return record, true
}

func (c *Catalog) EpisodeStream(id string, episode int) (*models.StreamInfo, bool) {
	entry, ok := c.find(models.TypeAnime, id)
	if !ok || strings.TrimSpace(entry.StreamURL) == "" {
		return nil, false
	}
	if entry.Episodes > 0 && episode > entry.Episodes {
		return nil, false
	}
	return &models.StreamInfo{URL: entry.StreamURL, Subtitles: nonNil(entry.Subtitles)}, true
}

func (c *Catalog) ChapterPages(id string, chapter int) (models.PageList, bool) {
	entry, ok := c.find(models.TypeManga, id)
	if !ok || strings.TrimSpace(entry.PageURL) == "" || entry.PagesPerChapter <= 0 {
		return nil, false
	}
	if entry.Chapters > 0 && chapter > entry.Chapters {
		return nil, false
	}

	pages := make(models.PageList, 0, entry.PagesPerChapter)
	for page := 1; page <= entry.PagesPerChapter; page++ {
		pages = append(pages, strings.NewReplacer(
			"{id}", entry.ID,
			"{chapter}", strconv.Itoa(chapter),
			"{page}", strconv.Itoa(page),
		).Replace(entry.PageURL))
	}
	return pages, true
}

func (e Entry) listItem(contentType models.ContentType) models.ListItem {
	item := models.ListItem{
		ID:     e.ID,
		Title:  e.Title,
		Poster: e.Poster,
		Type:   contentType,
		Status: e.Status,
		Genres: nonNil(e.Genres),
		Rating: e.Rating,
		Year:   e.Year,
	}
	if contentType == models.TypeManga && e.Chapters > 0 {
		chapters := e.Chapters
		item.Chapters = &chapters
	}
	if contentType == models.TypeAnime && e.Episodes > 0 {
		episodes := e.Episodes
		item.Episodes = &episodes
	}
	return item
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
