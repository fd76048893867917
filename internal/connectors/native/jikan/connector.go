// Package jikan reads catalogue metadata from the Jikan v4 REST API (an unofficial
// MyAnimeList mirror). The API carries no streams or page images.
package jikan

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/gabriel/anime-manga-browser/internal/connectors"
	"github.com/gabriel/anime-manga-browser/internal/fetch"
	"github.com/gabriel/anime-manga-browser/internal/models"
)

const (
	DefaultBaseURL = "https://api.jikan.moe/v4"

	// maxGeneratedIndex caps the synthetic episode/chapter index built from a reported total.
	maxGeneratedIndex = 500
)

type Connector struct {
	baseURL string
	client  *fetch.Client
}

func NewConnector(client *fetch.Client) *Connector {
	return NewConnectorWithOptions(DefaultBaseURL, client)
}

func NewConnectorWithOptions(baseURL string, client *fetch.Client) *Connector {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = DefaultBaseURL
	}
	if client == nil {
		client = fetch.NewClient(nil, fetch.Options{})
	}
	return &Connector{baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"), client: client}
}

func (c *Connector) Key() string {
	return "jikan"
}

func (c *Connector) Name() string {
	return "Jikan (MyAnimeList)"
}

func (c *Connector) Kind() string {
	return connectors.KindNative
}

func (c *Connector) HealthCheck(ctx context.Context) error {
	if err := c.client.Probe(ctx, c.baseURL+"/"); err != nil {
		return fmt.Errorf("probe jikan: %w", err)
	}
	return nil
}

func (c *Connector) List(ctx context.Context, contentType models.ContentType, kind connectors.ListKind, page int) ([]models.ListItem, error) {
	if page < 1 {
		page = 1
	}
	limit := kind.PageSize()

	values := url.Values{}
	values.Set("page", strconv.Itoa(page))
	values.Set("limit", strconv.Itoa(limit))

	endpoint := "/top/" + string(contentType)
	switch kind {
	case connectors.ListTrending:
		if contentType == models.TypeManga {
			values.Set("filter", "favorite")
		} else {
			values.Set("filter", "airing")
		}
	case connectors.ListRecent:
		if contentType == models.TypeManga {
			values.Set("filter", "publishing")
		} else {
			values.Set("filter", "airing")
		}
	case connectors.ListNew:
		if contentType == models.TypeManga {
			endpoint = "/manga"
			values.Set("order_by", "start_date")
			values.Set("sort", "desc")
			values.Set("sfw", "true")
		} else {
			endpoint = "/seasons/now"
		}
	default:
		values.Set("filter", "bypopularity")
	}

	return c.fetchList(ctx, contentType, endpoint+"?"+values.Encode(), limit)
}

func (c *Connector) Search(ctx context.Context, contentType models.ContentType, query string) ([]models.ListItem, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("query is required")
	}

	values := url.Values{}
	values.Set("q", query)
	values.Set("limit", strconv.Itoa(connectors.SearchPageSize))
	values.Set("sfw", "true")

	return c.fetchList(ctx, contentType, "/"+string(contentType)+"?"+values.Encode(), connectors.SearchPageSize)
}

func (c *Connector) fetchList(ctx context.Context, contentType models.ContentType, pathAndQuery string, limit int) ([]models.ListItem, error) {
	var payload listResponse
	if err := c.client.JSON(ctx, c.baseURL+pathAndQuery, &payload); err != nil {
		return nil, fmt.Errorf("jikan %s list: %w", contentType, err)
	}

	items := make([]models.ListItem, 0, len(payload.Data))
	for _, raw := range payload.Data {
		if raw.MalID <= 0 {
			continue
		}
		items = append(items, mapListItem(raw, contentType))
		if len(items) == limit {
			break
		}
	}
	return items, nil
}

func (c *Connector) Details(ctx context.Context, contentType models.ContentType, id string) (*models.DetailRecord, error) {
	malID, err := strconv.Atoi(strings.TrimSpace(id))
	if err != nil || malID <= 0 {
		return nil, fmt.Errorf("jikan %s id %q: %w", contentType, id, models.ErrNotFound)
	}

	var payload detailResponse
	endpoint := fmt.Sprintf("%s/%s/%d/full", c.baseURL, contentType, malID)
	if err := c.client.JSON(ctx, endpoint, &payload); err != nil {
		if fetch.IsNotFound(err) {
			return nil, fmt.Errorf("jikan %s %d: %w", contentType, malID, models.ErrNotFound)
		}
		return nil, fmt.Errorf("jikan %s details: %w", contentType, err)
	}
	if payload.Data == nil {
		return nil, fmt.Errorf("jikan %s %d: %w", contentType, malID, models.ErrNotFound)
	}

	return mapDetail(*payload.Data, contentType, strconv.Itoa(malID))
}

func (c *Connector) EpisodeStream(context.Context, string, int) (*models.StreamInfo, error) {
	return nil, fmt.Errorf("jikan episode stream: %w", connectors.ErrUnsupported)
}

func (c *Connector) ChapterPages(context.Context, string, int) (models.PageList, error) {
	return nil, fmt.Errorf("jikan chapter pages: %w", connectors.ErrUnsupported)
}

func mapListItem(raw item, contentType models.ContentType) models.ListItem {
	result := models.ListItem{
		ID:     strconv.Itoa(raw.MalID),
		MalID:  raw.MalID,
		Title:  displayTitle(raw),
		Poster: poster(raw),
		Type:   contentType,
		Status: raw.Status,
		Genres: names(raw.Genres),
		Rating: rating(raw.Score),
		Year:   year(raw, contentType),
		Score:  raw.Score,
	}
	if result.Title == "" {
		result.Title = models.UnknownTitle
	}
	if contentType == models.TypeManga {
		result.Chapters = raw.Chapters
	} else {
		result.Episodes = raw.Episodes
	}
	return result
}

func mapDetail(raw item, contentType models.ContentType, id string) (*models.DetailRecord, error) {
	title := displayTitle(raw)
	if title == "" {
		return nil, fmt.Errorf("jikan %s %s has no title: %w", contentType, id, models.ErrNotFound)
	}

	record := &models.DetailRecord{
		ID:            id,
		MalID:         raw.MalID,
		Title:         title,
		Poster:        poster(raw),
		Type:          contentType,
		Status:        raw.Status,
		Genres:        names(raw.Genres),
		Rating:        rating(raw.Score),
		Year:          year(raw, contentType),
		Description:   strings.TrimSpace(raw.Synopsis),
		Score:         raw.Score,
		TitleEnglish:  raw.TitleEnglish,
		TitleJapanese: raw.TitleJapanese,
	}

	total := 0
	label := "Episode"
	if contentType == models.TypeManga {
		label = "Chapter"
		record.Authors = names(raw.Authors)
		if raw.Chapters != nil {
			total = *raw.Chapters
		}
	} else {
		record.Banner = raw.Images.JPG.LargeImageURL
		record.Studios = names(raw.Studios)
		if raw.Episodes != nil {
			total = *raw.Episodes
		}
	}

	record.SetIndex(generatedIndex(label, total), total)
	return record, nil
}

// generatedIndex lists 1..min(total, maxGeneratedIndex); the API reports counts, not entries.
func generatedIndex(label string, total int) []models.IndexEntry {
	count := min(total, maxGeneratedIndex)
	if count <= 0 {
		return []models.IndexEntry{}
	}
	entries := make([]models.IndexEntry, 0, count)
	for number := 1; number <= count; number++ {
		entries = append(entries, models.IndexEntry{Number: number, Title: fmt.Sprintf("%s %d", label, number)})
	}
	return entries
}

func displayTitle(raw item) string {
	if title := strings.TrimSpace(raw.TitleEnglish); title != "" {
		return title
	}
	return strings.TrimSpace(raw.Title)
}

func poster(raw item) string {
	if raw.Images.JPG.LargeImageURL != "" {
		return raw.Images.JPG.LargeImageURL
	}
	return raw.Images.JPG.ImageURL
}

func rating(score *float64) string {
	if score == nil || *score == 0 {
		return ""
	}
	return strconv.FormatFloat(*score, 'f', -1, 64)
}

func year(raw item, contentType models.ContentType) string {
	if contentType == models.TypeAnime && raw.Year != nil && *raw.Year > 0 {
		return strconv.Itoa(*raw.Year)
	}

	from := raw.Aired.Prop.From.Year
	if contentType == models.TypeManga {
		from = raw.Published.Prop.From.Year
	}
	if from != nil && *from > 0 {
		return strconv.Itoa(*from)
	}
	return ""
}
