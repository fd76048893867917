package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gabriel/anime-manga-browser/internal/connectors/yamlconnector"
	"github.com/gabriel/anime-manga-browser/internal/fetch"
	"github.com/gabriel/anime-manga-browser/internal/models"
)

type options struct {
	profilePath string
	baseURL     string
	contentType string
	operation   string
	pageURL     string
	filePath    string
	timeout     time.Duration
}

func main() {
	var opts options
	flag.StringVar(&opts.profilePath, "profile", "", "Profile file to run (empty = built-in profile)")
	flag.StringVar(&opts.baseURL, "base", "", "Base URL for the built-in profile")
	flag.StringVar(&opts.contentType, "type", "anime", "Content type: anime|manga")
	flag.StringVar(&opts.operation, "op", "details", "Extraction: items|highlights|details|stream|pages")
	flag.StringVar(&opts.pageURL, "url", "", "Page URL to fetch, or the origin of -file")
	flag.StringVar(&opts.filePath, "file", "", "Read HTML from this file instead of fetching -url")
	flag.DurationVar(&opts.timeout, "timeout", 15*time.Second, "Fetch timeout")
	flag.Parse()

	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo})
	slog.SetDefault(slog.New(handler))

	result, err := run(context.Background(), opts)
	if err != nil {
		slog.Error("extraction failed", "error", err)
		os.Exit(1)
	}

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(result); err != nil {
		slog.Error("encode result", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, opts options) (any, error) {
	contentType, err := models.ParseContentType(opts.contentType)
	if err != nil {
		return nil, err
	}
	operation, err := yamlconnector.ParseOperation(opts.operation)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(opts.pageURL) == "" && strings.TrimSpace(opts.filePath) == "" {
		return nil, errors.New("one of -url or -file is required")
	}

	profile, err := loadProfile(opts)
	if err != nil {
		return nil, err
	}
	connector, err := yamlconnector.NewConnector(profile, yamlconnector.Options{})
	if err != nil {
		return nil, err
	}

	rawHTML, err := readPage(ctx, opts)
	if err != nil {
		return nil, err
	}
	return connector.Inspect(operation, contentType, rawHTML, opts.pageURL)
}

func loadProfile(opts options) (yamlconnector.Profile, error) {
	if strings.TrimSpace(opts.profilePath) != "" {
		return yamlconnector.LoadProfileFile(opts.profilePath)
	}

	baseURL := strings.TrimSpace(opts.baseURL)
	if baseURL == "" {
		baseURL = origin(opts.pageURL)
	}
	if baseURL == "" {
		return yamlconnector.Profile{}, errors.New("the built-in profile needs -base or an absolute -url")
	}
	return yamlconnector.BuiltinProfile(baseURL)
}

func readPage(ctx context.Context, opts options) (string, error) {
	if strings.TrimSpace(opts.filePath) != "" {
		content, err := os.ReadFile(opts.filePath)
		if err != nil {
			return "", fmt.Errorf("read html file: %w", err)
		}
		return string(content), nil
	}

	fetchCtx, cancel := context.WithTimeout(ctx, opts.timeout)
	defer cancel()
	client := fetch.NewClient(&http.Client{Timeout: opts.timeout}, fetch.Options{Logger: slog.Default()})
	return client.Text(fetchCtx, opts.pageURL)
}
