package yamlconnector

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/gabriel/anime-manga-browser/internal/cache"
	"github.com/gabriel/anime-manga-browser/internal/connectors"
	"github.com/gabriel/anime-manga-browser/internal/extract"
	"github.com/gabriel/anime-manga-browser/internal/fetch"
	"github.com/gabriel/anime-manga-browser/internal/models"
)

// Options carry the process-wide collaborators shared by every profile.
type Options struct {
	HTTPClient *http.Client
	// Cache backs profiles that set cache_minutes.
	Cache  cache.Store
	Dedup  extract.DedupPolicy
	Logger *slog.Logger
}

// Connector scrapes one site as described by its profile.
type Connector struct {
	profile Profile
	client  *fetch.Client
	dedup   extract.DedupPolicy
}

func NewConnector(profile Profile, opts Options) (*Connector, error) {
	if err := profile.normalizeAndValidate(); err != nil {
		return nil, err
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: 12 * time.Second}
	}

	fetchOpts := fetch.Options{Logger: opts.Logger}
	if profile.CacheMinutes > 0 && opts.Cache != nil {
		fetchOpts.Cache = opts.Cache
		fetchOpts.CacheTTL = time.Duration(profile.CacheMinutes) * time.Minute
	}
	if profile.RequestsPerSecond > 0 {
		fetchOpts.Limiter = rate.NewLimiter(rate.Limit(profile.RequestsPerSecond), 1)
	}

	dedup := opts.Dedup
	if profile.Dedup != "" {
		dedup = extract.DedupPolicy(profile.Dedup)
	}
	if dedup == "" {
		dedup = extract.DedupFirstSeen
	}

	return &Connector{
		profile: profile,
		client:  fetch.NewClient(opts.HTTPClient, fetchOpts),
		dedup:   dedup,
	}, nil
}

func (c *Connector) Key() string {
	return c.profile.Key
}

func (c *Connector) Name() string {
	return c.profile.Name
}

func (c *Connector) Kind() string {
	return connectors.KindYAML
}

func (c *Connector) BaseURL() string {
	return c.profile.BaseURL
}

func (c *Connector) HealthCheck(ctx context.Context) error {
	if err := c.client.Probe(ctx, c.endpoint(c.profile.HealthPath, nil)); err != nil {
		return fmt.Errorf("probe %s: %w", c.profile.Key, err)
	}
	return nil
}

func (c *Connector) List(ctx context.Context, contentType models.ContentType, kind connectors.ListKind, page int) ([]models.ListItem, error) {
	section, err := c.sectionFor(contentType)
	if err != nil {
		return nil, err
	}
	if page < 1 {
		page = 1
	}

	var template string
	rule := section.Items
	switch kind {
	case connectors.ListTrending:
		template = section.Paths.Trending
	case connectors.ListRecent:
		template = section.Paths.Recent
	case connectors.ListNew:
		template = section.Paths.New
	default:
		template = section.Paths.Popular
	}
	if (kind == connectors.ListTrending || kind == connectors.ListRecent) && section.Highlights != nil {
		rule = *section.Highlights
	}
	if strings.TrimSpace(template) == "" {
		return nil, fmt.Errorf("%s %s %s list: %w", c.profile.Key, contentType, kind, connectors.ErrUnsupported)
	}

	endpoint := c.endpoint(template, map[string]string{"page": strconv.Itoa(page)})
	return c.items(ctx, endpoint, rule, contentType, kind.PageSize())
}

func (c *Connector) Search(ctx context.Context, contentType models.ContentType, query string) ([]models.ListItem, error) {
	section, err := c.sectionFor(contentType)
	if err != nil {
		return nil, err
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("query is required")
	}
	if strings.TrimSpace(section.Paths.Search) == "" {
		return nil, fmt.Errorf("%s %s search: %w", c.profile.Key, contentType, connectors.ErrUnsupported)
	}

	endpoint := c.endpoint(section.Paths.Search, map[string]string{"query": url.QueryEscape(query), "page": "1"})
	return c.items(ctx, endpoint, section.Items, contentType, connectors.SearchPageSize)
}

func (c *Connector) items(ctx context.Context, endpoint string, rule extract.ItemRule, contentType models.ContentType, limit int) ([]models.ListItem, error) {
	page, err := c.page(ctx, endpoint)
	if err != nil {
		return nil, err
	}
	return page.Items(rule, contentType, limit), nil
}

func (c *Connector) Details(ctx context.Context, contentType models.ContentType, id string) (*models.DetailRecord, error) {
	section, err := c.sectionFor(contentType)
	if err != nil {
		return nil, err
	}
	escapedID, err := escapeID(id)
	if err != nil {
		return nil, err
	}

	page, err := c.page(ctx, c.endpoint(section.Paths.Details, map[string]string{"id": escapedID}))
	if err != nil {
		return nil, err
	}

	return assembleDetail(page, section, contentType, escapedID, c.dedup)
}

func (c *Connector) EpisodeStream(ctx context.Context, id string, episode int) (*models.StreamInfo, error) {
	section, err := c.sectionFor(models.TypeAnime)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(section.Paths.Episode) == "" {
		return nil, fmt.Errorf("%s episode stream: %w", c.profile.Key, connectors.ErrUnsupported)
	}
	escapedID, err := escapeID(id)
	if err != nil {
		return nil, err
	}

	page, err := c.page(ctx, c.endpoint(section.Paths.Episode, map[string]string{
		"id":     escapedID,
		"number": strconv.Itoa(episode),
	}))
	if err != nil {
		return nil, err
	}

	return &models.StreamInfo{
		URL:       page.Stream(section.Stream),
		Subtitles: page.URLs(section.Subtitles),
	}, nil
}

func (c *Connector) ChapterPages(ctx context.Context, id string, chapter int) (models.PageList, error) {
	section, err := c.sectionFor(models.TypeManga)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(section.Paths.Chapter) == "" {
		return nil, fmt.Errorf("%s chapter pages: %w", c.profile.Key, connectors.ErrUnsupported)
	}
	escapedID, err := escapeID(id)
	if err != nil {
		return nil, err
	}

	page, err := c.page(ctx, c.endpoint(section.Paths.Chapter, map[string]string{
		"id":     escapedID,
		"number": strconv.Itoa(chapter),
	}))
	if err != nil {
		return nil, err
	}

	return models.PageList(page.URLs(section.Pages)), nil
}

func (c *Connector) sectionFor(contentType models.ContentType) (*Section, error) {
	section := c.profile.section(contentType)
	if section == nil {
		return nil, fmt.Errorf("%s does not carry %s: %w", c.profile.Key, contentType, connectors.ErrUnsupported)
	}
	return section, nil
}

// page fetches and parses endpoint. An upstream 404 becomes models.ErrNotFound.
func (c *Connector) page(ctx context.Context, endpoint string) (*extract.Page, error) {
	body, err := c.client.Text(ctx, endpoint)
	if err != nil {
		if fetch.IsNotFound(err) {
			return nil, fmt.Errorf("%s %s: %w", c.profile.Key, endpoint, models.ErrNotFound)
		}
		return nil, err
	}

	page, err := extract.Parse(body, endpoint)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", c.profile.Key, endpoint, err)
	}
	return page, nil
}

// endpoint expands a path template. Templates may also be absolute URLs.
func (c *Connector) endpoint(template string, vars map[string]string) string {
	expanded := strings.TrimSpace(template)
	for name, value := range vars {
		expanded = strings.ReplaceAll(expanded, "{"+name+"}", value)
	}
	if strings.HasPrefix(expanded, "http://") || strings.HasPrefix(expanded, "https://") {
		return expanded
	}
	if !strings.HasPrefix(expanded, "/") {
		expanded = "/" + expanded
	}
	return c.profile.BaseURL + expanded
}

// escapeID normalizes an id to a single escaped path segment. Ids produced by the
// extractors are already escaped, so unescaping first keeps the operation idempotent.
func escapeID(id string) (string, error) {
	trimmed := strings.TrimSpace(id)
	if unescaped, err := url.PathUnescape(trimmed); err == nil {
		trimmed = unescaped
	}
	if trimmed == "" || trimmed == "." || trimmed == ".." || strings.Contains(trimmed, "/") {
		return "", fmt.Errorf("id %q: %w", id, models.ErrNotFound)
	}
	return url.PathEscape(trimmed), nil
}
