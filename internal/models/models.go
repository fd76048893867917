package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound marks a record the upstream does not have, or a page that carried no usable
// record.
var ErrNotFound = errors.New("not found")

// UnknownTitle is shown for list entries whose title could not be extracted.
const UnknownTitle = "Unknown Title"

type ContentType string

const (
	TypeAnime ContentType = "anime"
	TypeManga ContentType = "manga"
)

func ParseContentType(raw string) (ContentType, error) {
	switch ContentType(strings.ToLower(strings.TrimSpace(raw))) {
	case TypeAnime:
		return TypeAnime, nil
	case TypeManga:
		return TypeManga, nil
	default:
		return "", fmt.Errorf("invalid content type %q, expected anime|manga", raw)
	}
}

type ListItem struct {
	ID       string      `json:"id"`
	MalID    int         `json:"malId,omitempty"`
	Title    string      `json:"title"`
	Poster   string      `json:"poster,omitempty"`
	Type     ContentType `json:"type"`
	Status   string      `json:"status,omitempty"`
	Genres   []string    `json:"genres"`
	Rating   string      `json:"rating,omitempty"`
	Year     string      `json:"year,omitempty"`
	Episodes *int        `json:"episodes,omitempty"`
	Chapters *int        `json:"chapters,omitempty"`
	Score    *float64    `json:"score,omitempty"`
}

type IndexEntry struct {
	Number int    `json:"number"`
	Title  string `json:"title,omitempty"`
	URL    string `json:"url,omitempty"`
}

type DetailRecord struct {
	ID            string       `json:"id"`
	MalID         int          `json:"malId,omitempty"`
	Title         string       `json:"title"`
	Poster        string       `json:"poster,omitempty"`
	Banner        string       `json:"banner,omitempty"`
	Type          ContentType  `json:"type"`
	Status        string       `json:"status,omitempty"`
	Genres        []string     `json:"genres"`
	Rating        string       `json:"rating,omitempty"`
	Year          string       `json:"year,omitempty"`
	Description   string       `json:"description,omitempty"`
	Episodes      []IndexEntry `json:"episodes,omitempty"`
	Chapters      []IndexEntry `json:"chapters,omitempty"`
	TotalEpisodes *int         `json:"totalEpisodes,omitempty"`
	TotalChapters *int         `json:"totalChapters,omitempty"`
	Score         *float64     `json:"score,omitempty"`
	TitleEnglish  string       `json:"titleEnglish,omitempty"`
	TitleJapanese string       `json:"titleJapanese,omitempty"`
	Studios       []string     `json:"studios,omitempty"`
	Authors       []string     `json:"authors,omitempty"`
}

type detailJSON DetailRecord

// MarshalJSON always writes the index matching the record type, as [] when it is empty,
// and leaves the other type's index out.
func (d DetailRecord) MarshalJSON() ([]byte, error) {
	out := struct {
		detailJSON
		Episodes *[]IndexEntry `json:"episodes,omitempty"`
		Chapters *[]IndexEntry `json:"chapters,omitempty"`
	}{detailJSON: detailJSON(d)}

	switch d.Type {
	case TypeManga:
		chapters := nonNilIndex(d.Chapters)
		out.Chapters = &chapters
	default:
		episodes := nonNilIndex(d.Episodes)
		out.Episodes = &episodes
	}
	return json.Marshal(out)
}

func nonNilIndex(entries []IndexEntry) []IndexEntry {
	if entries == nil {
		return []IndexEntry{}
	}
	return entries
}

// SetIndex stores the episode or chapter index according to the record type and derives the
// matching total from its length when the upstream did not report one.
func (d *DetailRecord) SetIndex(entries []IndexEntry, reportedTotal int) {
	total := reportedTotal
	if total <= 0 {
		total = len(entries)
	}

	switch d.Type {
	case TypeManga:
		d.Chapters = entries
		d.TotalChapters = &total
	default:
		d.Episodes = entries
		d.TotalEpisodes = &total
	}
}

// StreamInfo holds a playable URL for one episode. An empty URL means the episode page was
// found but exposed no playable source.
type StreamInfo struct {
	URL       string   `json:"url"`
	Subtitles []string `json:"subtitles"`
}

// PageList is a chapter's images in reading order.
type PageList []string
