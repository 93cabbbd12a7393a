package frame

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustRead(t *testing.T, s string) *Frame {
	t.Helper()
	f, err := ReadCSV(strings.NewReader(s), DefaultReadOptions())
	require.NoError(t, err)
	return f
}

func TestReadCSVNullTokens(t *testing.T) {
	f := mustRead(t, "id,name,score\n1,Bebop,8.78\n2,Unknown,\n")

	assert.Equal(t, []string{"id", "name", "score"}, f.Columns())
	assert.Equal(t, 2, f.Len())
	assert.Equal(t, Value("Bebop"), f.Get(0, "name"))
	assert.True(t, f.Get(1, "name").IsNull())
	assert.True(t, f.Get(1, "score").IsNull())
	assert.True(t, f.Get(0, "missing").IsNull())
}

func TestReadCSVEmpty(t *testing.T) {
	_, err := ReadCSV(strings.NewReader(""), DefaultReadOptions())
	assert.Error(t, err)
}

func TestReadCSVDuplicateHeader(t *testing.T) {
	_, err := ReadCSV(strings.NewReader("a,a\n1,2\n"), DefaultReadOptions())
	assert.Error(t, err)
}

func TestRequireListsEveryMissingColumn(t *testing.T) {
	f := MustNew("user_id")

	err := f.Require("user_id", "anime_id", "rating", "anime_id")
	require.Error(t, err)

	var schemaErr *SchemaError
	require.True(t, errors.As(err, &schemaErr))
	assert.Equal(t, []string{"anime_id", "rating"}, schemaErr.Missing)
	assert.Contains(t, err.Error(), "anime_id")
	assert.Contains(t, err.Error(), "rating")

	assert.NoError(t, f.Require("user_id"))
}

func TestWithColumnAppendsAndReplaces(t *testing.T) {
	f := mustRead(t, "a,b\n1,2\n3,4\n")

	added, err := f.WithColumn("c", []Cell{Value("x"), Null})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, added.Columns())
	assert.Equal(t, Value("x"), added.Get(0, "c"))
	assert.True(t, added.Get(1, "c").IsNull())

	replaced, err := added.WithColumn("a", []Cell{Value("9"), Value("8")})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, replaced.Columns())
	assert.Equal(t, Value("9"), replaced.Get(0, "a"))

	// source frames are untouched
	assert.Equal(t, Value("1"), added.Get(0, "a"))
	assert.False(t, f.Has("c"))

	_, err = f.WithColumn("d", []Cell{Null})
	assert.Error(t, err, "length mismatch")
}

func TestSelectDropRename(t *testing.T) {
	f := mustRead(t, "a,b,c_dupe\n1,2,3\n")

	sel, err := f.Select("b", "a")
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "a"}, sel.Columns())
	assert.Equal(t, Value("2"), sel.Get(0, "b"))

	_, err = f.Select("z")
	assert.Error(t, err)

	assert.Equal(t, []string{"a", "b"}, f.DropMatching("_dupe").Columns())
	assert.Equal(t, []string{"a", "c_dupe"}, f.Drop("b", "nope").Columns())

	renamed, err := f.Rename("b", "B")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "B", "c_dupe"}, renamed.Columns())

	same, err := f.Rename("missing", "x")
	require.NoError(t, err)
	assert.Equal(t, f.Columns(), same.Columns())

	_, err = f.Rename("a", "b")
	assert.Error(t, err)
}

func TestDropNulls(t *testing.T) {
	f := mustRead(t, "a,b\n1,2\n,3\n4,\n5,6\n")

	out, err := f.DropNulls("a", "b")
	require.NoError(t, err)
	assert.Equal(t, 2, out.Len())
	assert.Equal(t, Value("1"), out.Get(0, "a"))
	assert.Equal(t, Value("5"), out.Get(1, "a"))

	onlyA, err := f.DropNulls("a")
	require.NoError(t, err)
	assert.Equal(t, 3, onlyA.Len())

	_, err = f.DropNulls("c")
	assert.Error(t, err)
}

func TestDistinct(t *testing.T) {
	f := mustRead(t, "user_id,x\n3,a\n1,b\n3,c\n,d\n2,e\n1,f\n")

	out, err := f.Distinct("user_id")
	require.NoError(t, err)
	col, err := out.Column("user_id")
	require.NoError(t, err)
	assert.Equal(t, []Cell{Value("3"), Value("1"), Value("2")}, col)
}

func TestInnerJoinSuffixAndDuplicates(t *testing.T) {
	left := mustRead(t, "MAL_ID,Name,Score\n1,Bebop,8.78\n2,Trigun,8.2\n3,Orphan,7\n")
	right := mustRead(t, "MAL_ID,Name,sypnopsis\n1,Bebop,space\n2,Trigun,gun\n2,Trigun,gun again\n")

	out, err := left.InnerJoin(right, "MAL_ID", "_dupe")
	require.NoError(t, err)

	assert.Equal(t, []string{"MAL_ID", "Name", "Score", "Name_dupe", "sypnopsis"}, out.Columns())
	require.Equal(t, 3, out.Len())
	assert.Equal(t, Value("space"), out.Get(0, "sypnopsis"))
	assert.Equal(t, Value("gun"), out.Get(1, "sypnopsis"))
	assert.Equal(t, Value("gun again"), out.Get(2, "sypnopsis"))
}

func TestInnerJoinMissingKey(t *testing.T) {
	left := MustNew("a")
	right := MustNew("b")

	_, err := left.InnerJoin(right, "a", "_r")
	var schemaErr *SchemaError
	require.True(t, errors.As(err, &schemaErr))
	assert.Equal(t, []string{"a"}, schemaErr.Missing)
}

func TestFilterKeepsOrder(t *testing.T) {
	f := mustRead(t, "n\n1\n2\n3\n4\n")
	out := f.Filter(func(i int) bool { return i%2 == 1 })
	col, err := out.Column("n")
	require.NoError(t, err)
	assert.Equal(t, []Cell{Value("2"), Value("4")}, col)
}

func TestWriteCSVRoundTrip(t *testing.T) {
	f := mustRead(t, "a,b\n\"x,y\",Unknown\n")

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, f))
	assert.Equal(t, "a,b\n\"x,y\",\n", buf.String())
}

func TestAppendArity(t *testing.T) {
	f := MustNew("a", "b")
	assert.Error(t, f.AppendValues("1"))
	require.NoError(t, f.AppendValues("1", "2"))
	assert.Equal(t, 1, f.Len())
}
