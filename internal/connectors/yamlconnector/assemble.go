package yamlconnector

import (
	"fmt"

	"github.com/gabriel/anime-manga-browser/internal/extract"
	"github.com/gabriel/anime-manga-browser/internal/models"
)

// assembleDetail runs every detail extractor against the same document. Only a missing
// title fails the record; every other field degrades to absent.
func assembleDetail(page *extract.Page, section *Section, contentType models.ContentType, id string, dedup extract.DedupPolicy) (*models.DetailRecord, error) {
	rules := section.Details

	title, ok := page.Text(rules.Title)
	if !ok {
		return nil, fmt.Errorf("%s %s carries no title: %w", contentType, id, models.ErrNotFound)
	}

	record := &models.DetailRecord{
		ID:     id,
		Title:  title,
		Type:   contentType,
		Genres: page.Texts(rules.Genres),
	}
	record.Poster, _ = page.URL(rules.Poster)
	record.Banner, _ = page.URL(rules.Banner)
	record.Description, _ = page.Text(rules.Description)
	record.Status, _ = page.Text(rules.Status)
	record.Rating, _ = page.Text(rules.Rating)
	record.TitleEnglish, _ = page.Text(rules.TitleEnglish)
	record.TitleJapanese, _ = page.Text(rules.TitleJapanese)
	if year, ok := page.Text(rules.Year); ok {
		record.Year, _ = extract.Year(year)
	}
	if studios := page.Texts(rules.Studios); len(studios) > 0 {
		record.Studios = studios
	}
	if authors := page.Texts(rules.Authors); len(authors) > 0 {
		record.Authors = authors
	}

	index := []models.IndexEntry{}
	if section.Index != nil {
		index = page.Index(*section.Index, dedup)
	}
	record.SetIndex(index, 0)

	return record, nil
}
