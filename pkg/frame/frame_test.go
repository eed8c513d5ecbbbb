package frame

import (
	"testing"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quiverdata/quiver/pkg/quivererrors"
)

func ptr[T any](v T) *T {
	return &v
}

func testFrame(t *testing.T) *Frame {
	t.Helper()
	f := New()
	require.NoError(t, f.AddSeries("id", NewSeriesValues([]int64{1, 2, 3})))
	require.NoError(t, f.AddSeries("name", NewSeriesValues([]string{"a", "b", "c"})))
	require.NoError(t, f.AddSeries("score", NewSeries([]*float64{ptr(1.5), nil, ptr(3.5)})))
	return f
}

func TestFrame_New(t *testing.T) {
	f := New()

	assert.True(t, f.IsEmpty())
	assert.Equal(t, 0, f.Rows())
	assert.Equal(t, 0, f.Cols())
	assert.Empty(t, f.Names())
	assert.NotNil(t, f.Metadata())
}

func TestFrame_AddSeries(t *testing.T) {
	f := testFrame(t)

	assert.False(t, f.IsEmpty())
	assert.Equal(t, 3, f.Rows())
	assert.Equal(t, 3, f.Cols())
	assert.Equal(t, []string{"id", "name", "score"}, f.Names())

	s, ok := f.Series("score")
	require.True(t, ok)
	assert.True(t, s.IsNull(1))
}

func TestFrame_AddSeries_RowsNotMatch(t *testing.T) {
	f := testFrame(t)

	err := f.AddSeries("short", NewSeriesValues([]int64{1, 2}))
	require.Error(t, err)
	assert.True(t, quivererrors.IsType(err, quivererrors.ErrorTypeRowsNotMatch))
	assert.Equal(t, 3, f.Cols())
}

func TestFrame_AddSeriesTyped_DeclaredType(t *testing.T) {
	f := New()
	declared := &arrow.TimestampType{Unit: arrow.Nanosecond, TimeZone: "UTC"}

	err := f.AddSeriesTyped("ts", NewSeriesValues([]int64{1, 2, 3}), declared, nil)
	require.NoError(t, err)

	// declared type diverges from storage, both are kept
	assert.True(t, arrow.TypeEqual(declared, f.Fields()[0].Type))
	s, _ := f.Series("ts")
	assert.Equal(t, arrow.INT64, s.DataType().ID())
}

func TestFrame_InsertSeries(t *testing.T) {
	f := testFrame(t)

	require.NoError(t, f.InsertSeries("flag", NewSeriesValues([]bool{true, false, true}), 1))
	assert.Equal(t, []string{"id", "flag", "name", "score"}, f.Names())

	err := f.InsertSeries("late", NewSeriesValues([]bool{true, false, true}), 9)
	assert.True(t, quivererrors.IsType(err, quivererrors.ErrorTypeOutOfBounds))

	err = f.InsertSeries("short", NewSeriesValues([]bool{true}), 0)
	assert.True(t, quivererrors.IsType(err, quivererrors.ErrorTypeRowsNotMatch))
}

func TestFrame_PopSeries(t *testing.T) {
	f := testFrame(t)

	s, dataType, err := f.PopSeries("name")
	require.NoError(t, err)
	assert.Equal(t, arrow.STRING, dataType.ID())
	assert.Equal(t, 3, s.Len())
	assert.Equal(t, []string{"id", "score"}, f.Names())

	_, _, err = f.PopSeries("name")
	assert.True(t, quivererrors.IsType(err, quivererrors.ErrorTypeNotFound))
}

func TestFrame_PopSeriesAt(t *testing.T) {
	f := testFrame(t)

	_, name, _, err := f.PopSeriesAt(0)
	require.NoError(t, err)
	assert.Equal(t, "id", name)

	_, _, _, err = f.PopSeriesAt(5)
	assert.True(t, quivererrors.IsType(err, quivererrors.ErrorTypeOutOfBounds))
}

func TestFrame_Rename(t *testing.T) {
	f := testFrame(t)

	require.NoError(t, f.Rename("id", "key"))
	assert.Equal(t, []string{"key", "name", "score"}, f.Names())

	err := f.Rename("missing", "x")
	assert.True(t, quivererrors.IsType(err, quivererrors.ErrorTypeNotFound))
}

func TestFrame_SetDataType(t *testing.T) {
	f := testFrame(t)
	declared := &arrow.TimestampType{Unit: arrow.Second}

	require.NoError(t, f.SetDataType("id", declared))
	assert.True(t, arrow.TypeEqual(declared, f.Fields()[0].Type))

	// storage is untouched
	s, _ := f.Series("id")
	assert.Equal(t, arrow.INT64, s.DataType().ID())
}

func TestFrame_Metadata(t *testing.T) {
	f := testFrame(t)

	f.SetMetadataField("source", "unit-test")
	assert.Equal(t, "unit-test", f.Metadata()["source"])

	require.NoError(t, f.SetColMetadataField("id", "unit", "count"))
	md, err := f.ColMetadata("id")
	require.NoError(t, err)
	assert.Equal(t, "count", md["unit"])

	_, err = f.ColMetadata("missing")
	assert.True(t, quivererrors.IsType(err, quivererrors.ErrorTypeNotFound))

	mdAt, err := f.ColMetadataAt(0)
	require.NoError(t, err)
	assert.Equal(t, "count", mdAt["unit"])
}

func TestFrame_TrySliced(t *testing.T) {
	f := testFrame(t)

	sliced, err := f.TrySliced(1, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, sliced.Rows())
	assert.Equal(t, f.Names(), sliced.Names())

	s, _ := sliced.Series("id")
	v, err := ScalarAt(s, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(2), v)

	// nulls survive slicing
	s, _ = sliced.Series("score")
	assert.True(t, s.IsNull(0))

	_, err = f.TrySliced(2, 5)
	assert.True(t, quivererrors.IsType(err, quivererrors.ErrorTypeOutOfBounds))
}

func TestFrame_TrySliced_Empty(t *testing.T) {
	f := New()

	sliced, err := f.TrySliced(10, 10)
	require.NoError(t, err)
	assert.True(t, sliced.IsEmpty())
}

func TestFrame_SetOrdering(t *testing.T) {
	f := testFrame(t)

	f.SetOrdering([]string{"score", "id"})
	assert.Equal(t, []string{"score", "id", "name"}, f.Names())

	// data moved with the fields
	s, _ := f.SeriesAt(0)
	assert.Equal(t, arrow.FLOAT64, s.DataType().ID())

	// unknown names are ignored
	f.SetOrdering([]string{"missing", "name"})
	assert.Equal(t, []string{"score", "name", "id"}, f.Names())
}

func TestFrame_SortColumns(t *testing.T) {
	f := testFrame(t)
	f.SetOrdering([]string{"score", "name", "id"})

	f.SortColumns()
	assert.Equal(t, []string{"id", "name", "score"}, f.Names())
}

func TestFrame_Size(t *testing.T) {
	f := New()
	require.NoError(t, f.AddSeries("a", NewSeriesValues([]int64{1, 2, 3, 4})))
	require.NoError(t, f.AddSeries("b", NewSeriesValues([]int32{1, 2, 3, 4})))

	assert.Equal(t, 4*8+4*4, f.Size())
}

func TestFrame_FromParts(t *testing.T) {
	fields := []Field{
		{Name: "a", Type: arrow.PrimitiveTypes.Int64},
		{Name: "b", Type: arrow.BinaryTypes.String},
	}
	data := []arrow.Array{
		NewSeriesValues([]int64{1, 2}),
		NewSeriesValues([]string{"x", "y"}),
	}

	f, err := FromParts(fields, data, map[string]string{"k": "v"})
	require.NoError(t, err)
	assert.Equal(t, 2, f.Rows())
	assert.Equal(t, "v", f.Metadata()["k"])

	_, err = FromParts(fields[:1], data, nil)
	assert.True(t, quivererrors.IsType(err, quivererrors.ErrorTypeColsNotMatch))

	data[1] = NewSeriesValues([]string{"x"})
	_, err = FromParts(fields, data, nil)
	assert.True(t, quivererrors.IsType(err, quivererrors.ErrorTypeRowsNotMatch))
}

func TestFrame_IntoParts(t *testing.T) {
	f := testFrame(t)
	f.SetMetadataField("k", "v")

	fields, data, metadata := f.IntoParts()
	assert.Len(t, fields, 3)
	assert.Len(t, data, 3)
	assert.Equal(t, "v", metadata["k"])
}

func TestNewTimeSeries(t *testing.T) {
	f := NewTimeSeries([]float64{1.5, 2.0}, 2, NamedZone("UTC"), arrow.Millisecond)

	require.Equal(t, []string{"time"}, f.Names())
	ts, ok := f.Fields()[0].Type.(*arrow.TimestampType)
	require.True(t, ok)
	assert.Equal(t, arrow.Millisecond, ts.Unit)
	assert.Equal(t, "UTC", ts.TimeZone)

	s, _ := f.Series("time")
	a, ok := s.(*array.Int64)
	require.True(t, ok)
	assert.Equal(t, int64(1500), a.Value(0))
	assert.Equal(t, int64(2000), a.Value(1))
}

func TestNewTimeSeriesRFC3339(t *testing.T) {
	f := NewTimeSeriesRFC3339([]float64{0}, 0, time.UTC)

	s, _ := f.Series("time")
	a, ok := s.(*array.String)
	require.True(t, ok)
	assert.Equal(t, "1970-01-01T00:00:00Z", a.Value(0))
}

func TestScalarAt(t *testing.T) {
	s := NewSeries([]*int64{ptr(int64(7)), nil})

	v, err := ScalarAt(s, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(7), v)

	v, err = ScalarAt(s, 1)
	require.NoError(t, err)
	assert.Nil(t, v)

	_, err = ScalarAt(s, 2)
	assert.True(t, quivererrors.IsType(err, quivererrors.ErrorTypeOutOfBounds))
}

func TestNewNullSeries(t *testing.T) {
	s := NewNullSeries(arrow.PrimitiveTypes.Float64, 3)

	assert.Equal(t, 3, s.Len())
	assert.Equal(t, 3, s.NullN())
}

func TestFrame_Schema(t *testing.T) {
	f := testFrame(t)
	f.SetMetadataField("origin", "test")
	require.NoError(t, f.SetColMetadataField("id", "unit", "count"))

	schema := f.Schema()
	require.Equal(t, 3, schema.NumFields())
	assert.Equal(t, "id", schema.Field(0).Name)

	v, ok := schema.Metadata().GetValue("origin")
	require.True(t, ok)
	assert.Equal(t, "test", v)
}
