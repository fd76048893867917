package connectors

import (
	"context"
	"errors"
	"strings"

	"github.com/gabriel/anime-manga-browser/internal/models"
)

const (
	KindNative = "native"
	KindYAML   = "yaml"
)

// ErrUnsupported is returned by a source for an operation its upstream cannot serve, such
// as streams from a metadata-only API.
var ErrUnsupported = errors.New("operation not supported by source")

type ListKind string

const (
	ListPopular  ListKind = "popular"
	ListTrending ListKind = "trending"
	ListRecent   ListKind = "recent"
	ListNew      ListKind = "new"
)

const (
	ListPageSize      = 24
	HighlightPageSize = 12
	SearchPageSize    = 12
)

// ParseListKind maps the list query parameter to a kind. Anything unrecognised is the plain
// popularity list.
func ParseListKind(raw string) ListKind {
	switch ListKind(strings.ToLower(strings.TrimSpace(raw))) {
	case ListTrending:
		return ListTrending
	case ListRecent:
		return ListRecent
	case ListNew:
		return ListNew
	default:
		return ListPopular
	}
}

// PageSize is the result cap for a list kind.
func (k ListKind) PageSize() int {
	if k == ListPopular || k == "" {
		return ListPageSize
	}
	return HighlightPageSize
}

// Source is one upstream catalogue. Implementations return models.ErrNotFound when the
// upstream has no such record and ErrUnsupported for operations they cannot serve.
type Source interface {
	Key() string
	Name() string
	Kind() string
	HealthCheck(ctx context.Context) error
	List(ctx context.Context, contentType models.ContentType, kind ListKind, page int) ([]models.ListItem, error)
	Search(ctx context.Context, contentType models.ContentType, query string) ([]models.ListItem, error)
	Details(ctx context.Context, contentType models.ContentType, id string) (*models.DetailRecord, error)
	EpisodeStream(ctx context.Context, id string, episode int) (*models.StreamInfo, error)
	ChapterPages(ctx context.Context, id string, chapter int) (models.PageList, error)
}
