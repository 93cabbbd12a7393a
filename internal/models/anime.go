// Package models defines the typed rows of the anime recommendation dataset.
package models

import (
	"fmt"
	"strconv"

	"github.com/raphaelgruber/recsys-go/internal/frame"
)

// Column names of the joined anime + synopsis source table.
const (
	ColMALID      = "MAL_ID"
	ColName       = "Name"
	ColType       = "Type"
	ColScore      = "Score"
	ColEpisodes   = "Episodes"
	ColAired      = "Aired"
	ColRating     = "Rating"
	ColPopularity = "Popularity"
	ColGenres     = "Genres"
	ColSynopsis   = "Synopsis"

	ColAnimeID     = "anime_id"
	ColDescription = "description"
	ColEmbedding   = "embedding"
)

// AnimeFeatureColumns are the columns that must be non-null for an anime to
// get a description and an embedding.
var AnimeFeatureColumns = []string{
	ColName,
	ColType,
	ColScore,
	ColEpisodes,
	ColAired,
	ColRating,
	ColPopularity,
	ColGenres,
	ColSynopsis,
}

// Anime is one row of the anime table. Nil pointers are missing values.
type Anime struct {
	ID         string
	Name       *string
	Type       *string
	Score      *float64
	Episodes   *int
	Aired      *string
	Rating     *string
	Popularity *int
	Genres     *string
	Synopsis   *string
}

// Complete reports whether every feature column is present.
func (a Anime) Complete() bool {
	return a.Name != nil && a.Type != nil && a.Score != nil && a.Episodes != nil &&
		a.Aired != nil && a.Rating != nil && a.Popularity != nil && a.Genres != nil &&
		a.Synopsis != nil
}

// AnimeFromRow decodes row i of f. The frame must carry MAL_ID and the
// AnimeFeatureColumns; callers check that with Require.
func AnimeFromRow(f *frame.Frame, i int) (Anime, error) {
	a := Anime{
		ID:       NormalizeID(f.Get(i, ColMALID).String),
		Name:     stringPtr(f.Get(i, ColName)),
		Type:     stringPtr(f.Get(i, ColType)),
		Aired:    stringPtr(f.Get(i, ColAired)),
		Rating:   stringPtr(f.Get(i, ColRating)),
		Genres:   stringPtr(f.Get(i, ColGenres)),
		Synopsis: stringPtr(f.Get(i, ColSynopsis)),
	}

	var err error
	if a.Score, err = floatPtr(f.Get(i, ColScore)); err != nil {
		return Anime{}, fmt.Errorf("row %d: %s: %w", i, ColScore, err)
	}
	if a.Episodes, err = intPtr(f.Get(i, ColEpisodes)); err != nil {
		return Anime{}, fmt.Errorf("row %d: %s: %w", i, ColEpisodes, err)
	}
	if a.Popularity, err = intPtr(f.Get(i, ColPopularity)); err != nil {
		return Anime{}, fmt.Errorf("row %d: %s: %w", i, ColPopularity, err)
	}
	return a, nil
}

func stringPtr(c frame.Cell) *string {
	if c.IsNull() {
		return nil
	}
	s := c.String
	return &s
}

func floatPtr(c frame.Cell) (*float64, error) {
	if c.IsNull() {
		return nil, nil
	}
	v, err := strconv.ParseFloat(c.String, 64)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func intPtr(c frame.Cell) (*int, error) {
	if c.IsNull() {
		return nil, nil
	}
	v, err := ParseCount(c.String)
	if err != nil {
		return nil, err
	}
	return &v, nil
}
