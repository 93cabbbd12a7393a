package features

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/raphaelgruber/recsys-go/internal/frame"
	"github.com/raphaelgruber/recsys-go/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const animeHeader = "MAL_ID,Name,Type,Score,Episodes,Aired,Rating,Popularity,Genres,Synopsis\n"

func readFrame(t *testing.T, s string) *frame.Frame {
	t.Helper()
	f, err := frame.ReadCSV(strings.NewReader(s), frame.DefaultReadOptions())
	require.NoError(t, err)
	return f
}

// lengthEncoder embeds each text as [len(text), position-in-batch].
func lengthEncoder() (Encoder, *[][]string) {
	var calls [][]string
	enc := EncoderFunc(func(_ context.Context, batch []string) ([][]float32, error) {
		calls = append(calls, append([]string(nil), batch...))
		out := make([][]float32, len(batch))
		for i, s := range batch {
			out[i] = []float32{float32(len(s)), float32(i)}
		}
		return out, nil
	})
	return enc, &calls
}

func TestDescription(t *testing.T) {
	name, typ, aired, rating, genres, synopsis := "Cowboy Bebop", "TV", "Apr 3, 1998 to Apr 24, 1999", "R - 17+", "Action, Sci-Fi", "Bounty hunters in space."
	score, episodes, popularity := 8.78, 26, 39

	got := Description(models.Anime{
		ID: "1", Name: &name, Type: &typ, Score: &score, Episodes: &episodes,
		Aired: &aired, Rating: &rating, Popularity: &popularity, Genres: &genres, Synopsis: &synopsis,
	})

	want := "Cowboy Bebop is a TV anime with a rating of 8.78/10.\n" +
		"It has 26 episodes and was released in Apr 3, 1998 to Apr 24, 1999. " +
		"It is rated R - 17+ and it is ranked 39, of Most Popular Anime.\n" +
		"It belongs to the Action, Sci-Fi genres.\n" +
		"It has a synopsis of Bounty hunters in space.\n"
	assert.Equal(t, want, got)
}

func TestDescriptionToleratesMissingFields(t *testing.T) {
	name := "Mystery"
	score := 7.0

	got := Description(models.Anime{ID: "9", Name: &name, Score: &score})

	assert.Contains(t, got, "Mystery is a unknown anime with a rating of 7.0/10.")
	assert.Contains(t, got, "It has a synopsis of unknown\n")
}

func TestComputeAnimeFeaturesDropsIncompleteRows(t *testing.T) {
	f := readFrame(t, animeHeader+
		"1,Cowboy Bebop,TV,8.78,26,1998,R - 17+,39,Action,Space.\n"+
		"5,Trigun,TV,Unknown,26,1998,PG-13,200,Action,Guns.\n")

	out, err := ComputeAnimeFeatures(f)
	require.NoError(t, err)

	require.Equal(t, 1, out.Len())
	assert.Equal(t, append(f.Columns(), models.ColAnimeID, models.ColDescription), out.Columns())
	assert.Equal(t, frame.Value("1"), out.Get(0, models.ColAnimeID))
	assert.False(t, out.Get(0, models.ColDescription).IsNull())
	assert.True(t, strings.HasPrefix(out.Get(0, models.ColDescription).String, "Cowboy Bebop is a TV anime"))

	for _, col := range models.AnimeFeatureColumns {
		for i := 0; i < out.Len(); i++ {
			assert.False(t, out.Get(i, col).IsNull(), "column %s row %d", col, i)
		}
	}
}

func TestComputeAnimeFeaturesDropsRowsWithoutID(t *testing.T) {
	f := readFrame(t, animeHeader+
		",Nameless,TV,8,1,a,b,1,c,d\n"+
		"2,B,Movie,7.5,1,a,b,2,c,e\n")

	out, err := ComputeAnimeFeatures(f)
	require.NoError(t, err)
	require.Equal(t, 1, out.Len())
	assert.Equal(t, frame.Value("2"), out.Get(0, models.ColAnimeID))

	docs, err := models.AnimeFeaturesFromFrame(out, [][]float32{{1}})
	require.NoError(t, err)
	assert.Equal(t, "2", docs[0].AnimeID)
}

func TestComputeAnimeFeaturesMissingColumns(t *testing.T) {
	f := readFrame(t, "MAL_ID,Name\n1,x\n")

	_, err := ComputeAnimeFeatures(f)
	var schemaErr *frame.SchemaError
	require.True(t, errors.As(err, &schemaErr))
	assert.Equal(t, []string{"Type", "Score", "Episodes", "Aired", "Rating", "Popularity", "Genres", "Synopsis"}, schemaErr.Missing)
}

func TestComputeAnimeFeaturesBadNumber(t *testing.T) {
	f := readFrame(t, animeHeader+"1,x,TV,great,1,a,b,1,c,d\n")

	_, err := ComputeAnimeFeatures(f)
	assert.ErrorIs(t, err, ErrDataIntegrity)
}

func TestComputeAnimeFeaturesIsIdempotent(t *testing.T) {
	f := readFrame(t, animeHeader+
		"1,A,TV,8,1,a,b,1,c,d\n"+
		"2,B,Movie,7.5,1,a,b,2,c,Unknown\n"+
		"3,C,OVA,6,3,a,b,3,c,e\n")

	first, err := ComputeAnimeFeatures(f)
	require.NoError(t, err)
	second, err := ComputeAnimeFeatures(f)
	require.NoError(t, err)

	require.Equal(t, first.Len(), second.Len())
	for i := 0; i < first.Len(); i++ {
		assert.Equal(t, first.Row(i), second.Row(i))
	}
}

func TestBuildAnimeFeaturesEndToEnd(t *testing.T) {
	anime := readFrame(t, "MAL_ID,Name,Type,Score,Episodes,Aired,Rating,Popularity,Genres\n"+
		"1,Cowboy Bebop,TV,8.78,26,1998,R - 17+,39,Action\n"+
		"5,Trigun,TV,Unknown,26,1998,PG-13,200,Action\n")
	synopsis := readFrame(t, "MAL_ID,Name,Synopsis\n1,Cowboy Bebop,Space.\n5,Trigun,Guns.\n")
	joined, err := anime.InnerJoin(synopsis, models.ColMALID, "_dupe")
	require.NoError(t, err)

	enc, calls := lengthEncoder()
	out, err := BuildAnimeFeatures(context.Background(), joined.DropMatching("_dupe"), enc, EmbedOptions{})
	require.NoError(t, err)

	require.Equal(t, 1, out.Table.Len())
	require.Len(t, out.Embeddings, 1)
	assert.NotEmpty(t, out.Embeddings[0])
	assert.Len(t, *calls, 1, "incomplete rows never reach the encoder")
	assert.Len(t, (*calls)[0], 1)
}

func TestBuildAnimeFeaturesPropagatesEncoderError(t *testing.T) {
	f := readFrame(t, animeHeader+"1,A,TV,8,1,a,b,1,c,d\n")
	boom := errors.New("model offline")
	enc := EncoderFunc(func(context.Context, []string) ([][]float32, error) { return nil, boom })

	out, err := BuildAnimeFeatures(context.Background(), f, enc, EmbedOptions{})
	assert.Nil(t, out)
	assert.ErrorIs(t, err, ErrExternalService)
	assert.ErrorIs(t, err, boom)
}
