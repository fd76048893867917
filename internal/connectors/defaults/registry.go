package defaults

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/gabriel/anime-manga-browser/internal/cache"
	"github.com/gabriel/anime-manga-browser/internal/connectors"
	"github.com/gabriel/anime-manga-browser/internal/connectors/native/jikan"
	"github.com/gabriel/anime-manga-browser/internal/connectors/yamlconnector"
	"github.com/gabriel/anime-manga-browser/internal/extract"
	"github.com/gabriel/anime-manga-browser/internal/fetch"
)

type Options struct {
	JikanBaseURL string
	JikanRPS     float64
	JikanTTL     time.Duration

	ProfilesPath  string
	ScrapeBaseURL string
	Dedup         extract.DedupPolicy

	HTTPClient *http.Client
	Cache      cache.Store
	Logger     *slog.Logger
}

func (o Options) profileOptions() yamlconnector.Options {
	return yamlconnector.Options{
		HTTPClient: o.HTTPClient,
		Cache:      o.Cache,
		Dedup:      o.Dedup,
		Logger:     o.Logger,
	}
}

// NewRegistry registers the Jikan source and every profile-driven scrape source. A profile
// load error is returned alongside a usable registry.
func NewRegistry(opts Options) (*connectors.Registry, error) {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	fetchOpts := fetch.Options{Logger: opts.Logger}
	if opts.JikanRPS > 0 {
		fetchOpts.Limiter = rate.NewLimiter(rate.Limit(opts.JikanRPS), 1)
	}
	if opts.Cache != nil && opts.JikanTTL > 0 {
		fetchOpts.Cache = opts.Cache
		fetchOpts.CacheTTL = opts.JikanTTL
	}

	registry := connectors.NewRegistry()
	if err := registry.Register(jikan.NewConnectorWithOptions(opts.JikanBaseURL, fetch.NewClient(opts.HTTPClient, fetchOpts))); err != nil {
		return nil, fmt.Errorf("register jikan: %w", err)
	}

	return registry, ReloadProfiles(registry, opts)
}

// ReloadProfiles rebuilds the yaml sources from disk and swaps them into the registry.
// Profiles that fail to load are reported; the ones that loaded still replace the old set.
func ReloadProfiles(registry *connectors.Registry, opts Options) error {
	profileOpts := opts.profileOptions()

	sources := make([]connectors.Source, 0)
	builtin, err := yamlconnector.LoadDefault(opts.ScrapeBaseURL, profileOpts)
	if err != nil {
		return err
	}
	if builtin != nil {
		sources = append(sources, builtin)
	}

	loaded, loadErr := yamlconnector.LoadFromDir(opts.ProfilesPath, profileOpts)
	for _, source := range loaded {
		if builtin != nil && source.Key() == builtin.Key() {
			if loadErr == nil {
				loadErr = fmt.Errorf("profile %q shadows the built-in profile", source.Key())
			}
			continue
		}
		sources = append(sources, source)
	}

	if err := registry.ReplaceKind(connectors.KindYAML, sources); err != nil {
		return fmt.Errorf("replace profiles: %w", err)
	}
	return loadErr
}
