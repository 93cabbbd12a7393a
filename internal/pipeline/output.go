package pipeline

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/goccy/go-json"
	"github.com/raphaelgruber/recsys-go/internal/features"
	"github.com/raphaelgruber/recsys-go/internal/frame"
	"github.com/raphaelgruber/recsys-go/internal/models"
)

// Output file names.
const (
	AnimeFeaturesFile  = "anime_features.csv"
	RatingFeaturesFile = "rating_features.csv"
	UserFeaturesFile   = "user_features.csv"
	SampledRatingsFile = "sampled_ratings.csv"
	SampledUsersFile   = "sampled_users.csv"
)

// AnimeTable returns the anime feature table with an embedding column holding
// each vector as a JSON array.
func AnimeTable(af *features.AnimeFeatures) (*frame.Frame, error) {
	if len(af.Embeddings) != af.Table.Len() {
		return nil, fmt.Errorf("have %d embeddings for %d rows", len(af.Embeddings), af.Table.Len())
	}
	cells := make([]frame.Cell, len(af.Embeddings))
	for i, v := range af.Embeddings {
		b, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("encode embedding %d: %w", i, err)
		}
		cells[i] = frame.Value(string(b))
	}
	return af.Table.WithColumn(models.ColEmbedding, cells)
}

type table struct {
	name string
	f    *frame.Frame
}

// WriteOutputs writes the feature tables of res into dir and returns the
// paths written. users is the encoded form of res.Users.
func WriteOutputs(dir string, res *Result, users *frame.Frame) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	anime, err := AnimeTable(res.Anime)
	if err != nil {
		return nil, err
	}

	tables := []table{
		{AnimeFeaturesFile, anime},
		{RatingFeaturesFile, res.Ratings},
		{UserFeaturesFile, users},
	}
	if res.Sample != nil {
		tables = append(tables,
			table{SampledRatingsFile, res.Sample.Ratings},
			table{SampledUsersFile, res.Sample.Users},
		)
	}

	files := make([]string, 0, len(tables))
	for _, t := range tables {
		path := filepath.Join(dir, t.name)
		if err := frame.WriteCSVFile(path, t.f); err != nil {
			return files, err
		}
		files = append(files, path)
	}
	return files, nil
}
