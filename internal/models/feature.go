package models

import (
	"fmt"

	"github.com/raphaelgruber/recsys-go/internal/frame"
)

// AnimeFeature is a complete anime with its description and embedding,
// as written to the feature store.
type AnimeFeature struct {
	AnimeID     string    `json:"anime_id"`
	Name        string    `json:"name"`
	Type        string    `json:"type"`
	Score       float64   `json:"score"`
	Episodes    int       `json:"episodes"`
	Aired       string    `json:"aired"`
	Rating      string    `json:"rating"`
	Popularity  int       `json:"popularity"`
	Genres      string    `json:"genres"`
	Synopsis    string    `json:"synopsis"`
	Description string    `json:"description"`
	Embedding   []float32 `json:"embedding"`
}

// AnimeFeaturesFromFrame pairs rows of the anime feature table with their
// embeddings. Every row must be complete.
func AnimeFeaturesFromFrame(f *frame.Frame, embeddings [][]float32) ([]AnimeFeature, error) {
	if len(embeddings) != f.Len() {
		return nil, fmt.Errorf("have %d embeddings for %d rows", len(embeddings), f.Len())
	}
	required := append([]string{ColMALID, ColDescription}, AnimeFeatureColumns...)
	if err := f.Require(required...); err != nil {
		return nil, err
	}

	out := make([]AnimeFeature, 0, f.Len())
	for i := 0; i < f.Len(); i++ {
		a, err := AnimeFromRow(f, i)
		if err != nil {
			return nil, err
		}
		if a.ID == "" {
			return nil, fmt.Errorf("row %d: missing %s", i, ColMALID)
		}
		if !a.Complete() {
			return nil, fmt.Errorf("row %d: anime %s is incomplete", i, a.ID)
		}
		out = append(out, AnimeFeature{
			AnimeID:     a.ID,
			Name:        *a.Name,
			Type:        *a.Type,
			Score:       *a.Score,
			Episodes:    *a.Episodes,
			Aired:       *a.Aired,
			Rating:      *a.Rating,
			Popularity:  *a.Popularity,
			Genres:      *a.Genres,
			Synopsis:    *a.Synopsis,
			Description: f.Get(i, ColDescription).String,
			Embedding:   embeddings[i],
		})
	}
	return out, nil
}
