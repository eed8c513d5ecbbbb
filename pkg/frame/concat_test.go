package frame

import (
	"testing"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConcat_SameSchema(t *testing.T) {
	a := New()
	require.NoError(t, a.AddSeries("id", NewSeriesValues([]int64{1, 2})))
	b := New()
	require.NoError(t, b.AddSeries("id", NewSeriesValues([]int64{3})))

	merged, err := Concat([]*Frame{a, b})
	require.NoError(t, err)

	assert.Equal(t, 3, merged.Rows())
	s, _ := merged.Series("id")
	col := s.(*array.Int64)
	assert.Equal(t, []int64{1, 2, 3}, col.Int64Values())
}

func TestConcat_SchemaUnion(t *testing.T) {
	a := New()
	require.NoError(t, a.AddSeries("id", NewSeriesValues([]int64{1, 2})))
	require.NoError(t, a.AddSeries("name", NewSeriesValues([]string{"x", "y"})))
	b := New()
	require.NoError(t, b.AddSeries("id", NewSeriesValues([]int64{3})))
	require.NoError(t, b.AddSeries("score", NewSeriesValues([]float64{9.5})))

	merged, err := Concat([]*Frame{a, b})
	require.NoError(t, err)

	// union fields in first-seen order
	assert.Equal(t, []string{"id", "name", "score"}, merged.Names())
	assert.Equal(t, 3, merged.Rows())

	// rows from a frame missing a field are null there
	name, _ := merged.Series("name")
	assert.False(t, name.IsNull(0))
	assert.True(t, name.IsNull(2))

	score, _ := merged.Series("score")
	assert.True(t, score.IsNull(0))
	assert.True(t, score.IsNull(1))
	assert.Equal(t, 9.5, score.(*array.Float64).Value(2))
}

func TestConcat_MetadataLaterWins(t *testing.T) {
	a := New()
	a.SetMetadataField("shared", "first")
	a.SetMetadataField("only_a", "a")
	b := New()
	b.SetMetadataField("shared", "second")

	merged, err := Concat([]*Frame{a, b})
	require.NoError(t, err)

	assert.Equal(t, "second", merged.Metadata()["shared"])
	assert.Equal(t, "a", merged.Metadata()["only_a"])
}

func TestConcat_EmptyFramesContributeMetadataOnly(t *testing.T) {
	a := New()
	a.SetMetadataField("k", "v")
	b := New()
	require.NoError(t, b.AddSeries("id", NewSeriesValues([]int64{1})))

	merged, err := Concat([]*Frame{a, b})
	require.NoError(t, err)

	assert.Equal(t, 1, merged.Rows())
	assert.Equal(t, "v", merged.Metadata()["k"])
}

func TestConcat_NoFrames(t *testing.T) {
	merged, err := Concat(nil)
	require.NoError(t, err)
	assert.True(t, merged.IsEmpty())
}

func TestConcat_DeclaredTypeCarries(t *testing.T) {
	declared := &arrow.TimestampType{Unit: arrow.Nanosecond}
	a := New()
	require.NoError(t, a.AddSeriesTyped("ts", NewSeriesValues([]int64{1}), declared, nil))
	b := New()
	require.NoError(t, b.AddSeries("other", NewSeriesValues([]int64{2})))

	merged, err := Concat([]*Frame{a, b})
	require.NoError(t, err)

	// the first-seen field keeps its declared type
	pos := merged.ColumnIndex("ts")
	require.GreaterOrEqual(t, pos, 0)
	assert.True(t, arrow.TypeEqual(declared, merged.Fields()[pos].Type))
}

func TestConcat_IncompatibleColumnTypes(t *testing.T) {
	a := New()
	require.NoError(t, a.AddSeries("v", NewSeriesValues([]int64{1})))
	b := New()
	require.NoError(t, b.AddSeries("v", NewSeriesValues([]string{"x"})))

	_, err := Concat([]*Frame{a, b})
	require.Error(t, err)
}
