package yamlconnector

import (
	"fmt"
	"os"
	"strings"

	"github.com/gabriel/anime-manga-browser/internal/connectors"
	"github.com/gabriel/anime-manga-browser/internal/extract"
	"github.com/gabriel/anime-manga-browser/internal/models"
)

// Operation names the extraction Inspect runs over a page.
type Operation string

const (
	OpItems      Operation = "items"
	OpHighlights Operation = "highlights"
	OpDetails    Operation = "details"
	OpStream     Operation = "stream"
	OpPages      Operation = "pages"
)

func ParseOperation(raw string) (Operation, error) {
	switch op := Operation(strings.ToLower(strings.TrimSpace(raw))); op {
	case OpItems, OpHighlights, OpDetails, OpStream, OpPages:
		return op, nil
	default:
		return "", fmt.Errorf("unknown operation %q, expected items|highlights|details|stream|pages", raw)
	}
}

// LoadProfileFile parses a single profile file without checking whether it is enabled.
func LoadProfileFile(path string) (Profile, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return Profile{}, fmt.Errorf("read profile: %w", err)
	}
	return ParseProfile(content)
}

// BuiltinProfile returns the embedded default profile pointed at baseURL.
func BuiltinProfile(baseURL string) (Profile, error) {
	profile, err := ParseProfile(defaultProfile)
	if err != nil {
		return Profile{}, fmt.Errorf("parse default profile: %w", err)
	}
	profile.BaseURL = baseURL
	return profile, nil
}

// Inspect runs one extraction of the profile over rawHTML as if it had been fetched from
// pageURL. It does no network I/O.
func (c *Connector) Inspect(op Operation, contentType models.ContentType, rawHTML, pageURL string) (any, error) {
	section, err := c.sectionFor(contentType)
	if err != nil {
		return nil, err
	}
	page, err := extract.Parse(rawHTML, pageURL)
	if err != nil {
		return nil, err
	}

	switch op {
	case OpItems:
		return page.Items(section.Items, contentType, connectors.ListPageSize), nil
	case OpHighlights:
		rule := section.Items
		if section.Highlights != nil {
			rule = *section.Highlights
		}
		return page.Items(rule, contentType, connectors.HighlightPageSize), nil
	case OpDetails:
		id := extract.IDFromURL(pageURL)
		if id == "" {
			id = "inspect"
		}
		return assembleDetail(page, section, contentType, id, c.dedup)
	case OpStream:
		return &models.StreamInfo{
			URL:       page.Stream(section.Stream),
			Subtitles: page.URLs(section.Subtitles),
		}, nil
	case OpPages:
		return models.PageList(page.URLs(section.Pages)), nil
	default:
		return nil, fmt.Errorf("unknown operation %q", op)
	}
}
