package frame

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const animeSample = `MAL_ID,Name,Score,Genres,Episodes
1,Cowboy Bebop,8.78,"Action, Sci-Fi",26
5,Trigun,Unknown,Action,
6,Witch Hunter Robin,7.25,"Action, Mystery",Unknown
`

func TestLoadCSVNullTokens(t *testing.T) {
	f, err := LoadCSV(strings.NewReader(animeSample), DefaultReadOptions())
	require.NoError(t, err)

	assert.Equal(t, []string{"MAL_ID", "Name", "Score", "Genres", "Episodes"}, f.Columns())
	require.Equal(t, 3, f.Len())
	assert.Equal(t, Value("Action, Sci-Fi"), f.Get(0, "Genres"))
	assert.Equal(t, Value("8.78"), f.Get(0, "Score"), "numbers keep their text")
	assert.Equal(t, Value("1"), f.Get(0, "MAL_ID"))
	assert.True(t, f.Get(1, "Score").IsNull())
	assert.True(t, f.Get(1, "Episodes").IsNull())
	assert.True(t, f.Get(2, "Episodes").IsNull())
}

func TestLoadCSVMatchesReadCSV(t *testing.T) {
	loaded, err := LoadCSV(strings.NewReader(animeSample), DefaultReadOptions())
	require.NoError(t, err)

	assert.Equal(t, mustRead(t, animeSample), loaded)
}

func TestLoadCSVErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"empty", ""},
		{"header only", "MAL_ID,Name\n"},
		{"ragged row", "MAL_ID,Name\n1,a,extra\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadCSV(strings.NewReader(tt.input), DefaultReadOptions())
			assert.Error(t, err)
		})
	}
}

func TestLoadCSVFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "anime.csv")
	require.NoError(t, os.WriteFile(path, []byte(animeSample), 0o644))

	f, err := LoadCSVFile(path, DefaultReadOptions())
	require.NoError(t, err)
	assert.Equal(t, 3, f.Len())

	_, err = LoadCSVFile(filepath.Join(t.TempDir(), "missing.csv"), DefaultReadOptions())
	assert.ErrorContains(t, err, "open ")
}

func TestFromDataFrame(t *testing.T) {
	df := dataframe.New(
		series.New([]string{"1", "NaN"}, series.String, "user_id"),
		series.New([]int{9, 7}, series.Int, "rating"),
	)

	f, err := FromDataFrame(df)
	require.NoError(t, err)
	assert.Equal(t, []string{"user_id", "rating"}, f.Columns())
	assert.True(t, f.Get(1, "user_id").IsNull())
	assert.Equal(t, Value("7"), f.Get(1, "rating"))

	_, err = FromDataFrame(df.Select("missing"))
	assert.Error(t, err)
}
