package features

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/raphaelgruber/recsys-go/internal/frame"
	"github.com/raphaelgruber/recsys-go/internal/models"
)

// missingField is rendered in descriptions for null fields. Rows with nulls
// are dropped afterwards, so it never reaches the embedding stage.
const missingField = "unknown"

// AnimeFeatures is the anime feature table with one embedding per row.
type AnimeFeatures struct {
	// Table holds the source columns plus anime_id and description.
	Table *frame.Frame

	// Embeddings is index-aligned with Table rows.
	Embeddings [][]float32
}

// Description renders the natural-language summary of an anime that is fed
// to the embedding model.
func Description(a models.Anime) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s is a %s anime with a rating of %s/10.\n",
		orUnknown(a.Name), orUnknown(a.Type), formatScore(a.Score))
	fmt.Fprintf(&b, "It has %s episodes and was released in %s. ",
		formatInt(a.Episodes), orUnknown(a.Aired))
	fmt.Fprintf(&b, "It is rated %s and it is ranked %s, of Most Popular Anime.\n",
		orUnknown(a.Rating), formatInt(a.Popularity))
	fmt.Fprintf(&b, "It belongs to the %s genres.\n", orUnknown(a.Genres))
	fmt.Fprintf(&b, "It has a synopsis of %s\n", orUnknown(a.Synopsis))
	return b.String()
}

func orUnknown(s *string) string {
	if s == nil {
		return missingField
	}
	return *s
}

func formatInt(n *int) string {
	if n == nil {
		return missingField
	}
	return strconv.Itoa(*n)
}

// formatScore keeps one decimal for whole scores ("8.0"), matching how the
// dataset prints them.
func formatScore(v *float64) string {
	if v == nil {
		return missingField
	}
	s := strconv.FormatFloat(*v, 'f', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s
}

// ComputeAnimeFeatures adds anime_id and description columns to the anime
// table and then drops every row with a null MAL_ID or feature column. Descriptions are
// synthesized for all rows before the drop.
func ComputeAnimeFeatures(f *frame.Frame) (*frame.Frame, error) {
	required := append([]string{models.ColMALID}, models.AnimeFeatureColumns...)
	if err := f.Require(required...); err != nil {
		return nil, fmt.Errorf("anime features: %w", err)
	}

	ids := make([]frame.Cell, f.Len())
	descriptions := make([]frame.Cell, f.Len())
	for i := 0; i < f.Len(); i++ {
		a, err := models.AnimeFromRow(f, i)
		if err != nil {
			return nil, fmt.Errorf("anime features: %w: %w", ErrDataIntegrity, err)
		}
		if c := f.Get(i, models.ColMALID); !c.IsNull() {
			ids[i] = frame.Value(a.ID)
		}
		descriptions[i] = frame.Value(Description(a))
	}

	out, err := f.WithColumn(models.ColAnimeID, ids)
	if err != nil {
		return nil, fmt.Errorf("anime features: %w", err)
	}
	out, err = out.WithColumn(models.ColDescription, descriptions)
	if err != nil {
		return nil, fmt.Errorf("anime features: %w", err)
	}

	complete, err := out.DropNulls(required...)
	if err != nil {
		return nil, fmt.Errorf("anime features: %w", err)
	}

	slog.Debug("anime descriptions built", "rows", f.Len(), "complete", complete.Len(), "dropped", f.Len()-complete.Len())
	return complete, nil
}

// BuildAnimeFeatures computes descriptions and embeds them.
func BuildAnimeFeatures(ctx context.Context, f *frame.Frame, enc Encoder, opts EmbedOptions) (*AnimeFeatures, error) {
	table, err := ComputeAnimeFeatures(f)
	if err != nil {
		return nil, err
	}

	cells, err := table.Column(models.ColDescription)
	if err != nil {
		return nil, fmt.Errorf("anime features: %w", err)
	}
	descriptions := make([]string, len(cells))
	for i, c := range cells {
		descriptions[i] = c.String
	}

	embeddings, err := GenerateEmbeddings(ctx, descriptions, enc, opts)
	if err != nil {
		return nil, fmt.Errorf("anime features: %w", err)
	}

	return &AnimeFeatures{Table: table, Embeddings: embeddings}, nil
}
