// Package dispatcher routes each browsing query to exactly one upstream path of the active
// source and is the single place where upstream errors are classified for callers.
package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/gabriel/anime-manga-browser/internal/connectors"
	"github.com/gabriel/anime-manga-browser/internal/fetch"
	"github.com/gabriel/anime-manga-browser/internal/models"
)

// ErrInvalidInput marks a caller mistake. Its message is safe to show verbatim.
var ErrInvalidInput = errors.New("invalid input")

// Fallback serves static data when the live source fails or cannot serve an operation.
// The bool results report whether the fallback had anything for the request.
type Fallback interface {
	List(contentType models.ContentType, kind connectors.ListKind, page int) []models.ListItem
	Search(contentType models.ContentType, query string) []models.ListItem
	Details(contentType models.ContentType, id string) (*models.DetailRecord, bool)
	EpisodeStream(id string, episode int) (*models.StreamInfo, bool)
	ChapterPages(id string, chapter int) (models.PageList, bool)
}

type Dispatcher struct {
	registry  *connectors.Registry
	sourceKey string
	fallback  Fallback
	logger    *slog.Logger
}

// New builds a dispatcher over the source registered as sourceKey. fallback may be nil.
func New(registry *connectors.Registry, sourceKey string, fallback Fallback, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		registry:  registry,
		sourceKey: strings.ToLower(strings.TrimSpace(sourceKey)),
		fallback:  fallback,
		logger:    logger,
	}
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

// source looks the active source up per call so a profile reload takes effect immediately.
func (d *Dispatcher) source() (connectors.Source, error) {
	source, ok := d.registry.Get(d.sourceKey)
	if !ok {
		return nil, fmt.Errorf("source %q is not registered", d.sourceKey)
	}
	return source, nil
}

// classify folds an upstream 404 and an unsupported operation into models.ErrNotFound.
func classify(err error) error {
	if err == nil || errors.Is(err, models.ErrNotFound) {
		return err
	}
	if fetch.IsNotFound(err) || errors.Is(err, connectors.ErrUnsupported) {
		return fmt.Errorf("%w: %w", models.ErrNotFound, err)
	}
	return err
}

func (d *Dispatcher) List(ctx context.Context, contentType models.ContentType, kind connectors.ListKind, page int) ([]models.ListItem, error) {
	if page < 1 {
		page = 1
	}
	source, err := d.source()
	if err != nil {
		return nil, err
	}

	items, err := source.List(ctx, contentType, kind, page)
	if err == nil {
		return items, nil
	}
	if d.fallback != nil {
		d.logger.Warn("serving fallback list", "source", d.sourceKey, "type", contentType, "kind", kind, "page", page, "error", err)
		return d.fallback.List(contentType, kind, page), nil
	}
	return nil, classify(err)
}

// Search queries one content type, or both concurrently when contentType is empty. Anime
// results always precede manga results.
func (d *Dispatcher) Search(ctx context.Context, query string, contentType models.ContentType) ([]models.ListItem, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, invalid("query is required")
	}
	source, err := d.source()
	if err != nil {
		return nil, err
	}

	if contentType != "" {
		return d.searchOne(ctx, source, contentType, query)
	}

	var anime, manga []models.ListItem
	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		var err error
		anime, err = d.searchOne(groupCtx, source, models.TypeAnime, query)
		return err
	})
	group.Go(func() error {
		var err error
		manga, err = d.searchOne(groupCtx, source, models.TypeManga, query)
		return err
	})
	if err := group.Wait(); err != nil {
		return nil, err
	}

	results := make([]models.ListItem, 0, len(anime)+len(manga))
	results = append(results, anime...)
	return append(results, manga...), nil
}

func (d *Dispatcher) searchOne(ctx context.Context, source connectors.Source, contentType models.ContentType, query string) ([]models.ListItem, error) {
	items, err := source.Search(ctx, contentType, query)
	if err == nil {
		return items, nil
	}
	if d.fallback != nil {
		d.logger.Warn("serving fallback search", "source", d.sourceKey, "type", contentType, "error", err)
		return d.fallback.Search(contentType, query), nil
	}
	return nil, classify(err)
}

func (d *Dispatcher) Details(ctx context.Context, contentType models.ContentType, id string) (*models.DetailRecord, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, invalid("%s id is required", contentType)
	}
	source, err := d.source()
	if err != nil {
		return nil, err
	}

	record, err := source.Details(ctx, contentType, id)
	if err == nil {
		return record, nil
	}
	if d.fallback != nil {
		if fallbackRecord, ok := d.fallback.Details(contentType, id); ok {
			d.logger.Warn("serving fallback details", "source", d.sourceKey, "type", contentType, "id", id, "error", err)
			return fallbackRecord, nil
		}
	}
	return nil, classify(err)
}

func (d *Dispatcher) EpisodeStream(ctx context.Context, id string, episode int) (*models.StreamInfo, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, invalid("anime id is required")
	}
	if episode < 1 {
		return nil, invalid("episode number must be a positive integer")
	}
	source, err := d.source()
	if err != nil {
		return nil, err
	}

	stream, err := source.EpisodeStream(ctx, id, episode)
	if err == nil {
		if stream.Subtitles == nil {
			stream.Subtitles = []string{}
		}
		return stream, nil
	}
	if d.fallback != nil {
		if fallbackStream, ok := d.fallback.EpisodeStream(id, episode); ok {
			d.logger.Info("serving fallback stream", "source", d.sourceKey, "id", id, "episode", episode, "error", err)
			return fallbackStream, nil
		}
	}
	return nil, classify(err)
}

// ChapterPages returns models.ErrNotFound when the chapter page carried no images.
func (d *Dispatcher) ChapterPages(ctx context.Context, id string, chapter int) (models.PageList, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, invalid("manga id is required")
	}
	if chapter < 1 {
		return nil, invalid("chapter number must be a positive integer")
	}
	source, err := d.source()
	if err != nil {
		return nil, err
	}

	pages, err := source.ChapterPages(ctx, id, chapter)
	if err == nil {
		if len(pages) == 0 {
			return nil, fmt.Errorf("manga %s chapter %d has no pages: %w", id, chapter, models.ErrNotFound)
		}
		return pages, nil
	}
	if d.fallback != nil {
		if fallbackPages, ok := d.fallback.ChapterPages(id, chapter); ok && len(fallbackPages) > 0 {
			d.logger.Info("serving fallback pages", "source", d.sourceKey, "id", id, "chapter", chapter, "error", err)
			return fallbackPages, nil
		}
	}
	return nil, classify(err)
}
