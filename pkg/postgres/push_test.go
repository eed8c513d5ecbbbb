package postgres

import (
	"testing"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quiverdata/quiver/pkg/frame"
	"github.com/quiverdata/quiver/pkg/quivererrors"
)

func TestBuildInsertSQL(t *testing.T) {
	tests := []struct {
		name     string
		table    string
		schema   string
		cols     []string
		keys     []string
		expected string
	}{
		{
			name:     "plain insert",
			table:    "events",
			cols:     []string{"id", "payload"},
			expected: `INSERT INTO "events"("id","payload") VALUES ($1,$2)`,
		},
		{
			name:     "schema qualified",
			table:    "events",
			schema:   "metrics",
			cols:     []string{"id"},
			expected: `INSERT INTO "metrics"."events"("id") VALUES ($1)`,
		},
		{
			name:     "upsert on single key",
			table:    "events",
			cols:     []string{"id", "payload", "seen"},
			keys:     []string{"id"},
			expected: `INSERT INTO "events"("id","payload","seen") VALUES ($1,$2,$3) ON CONFLICT ("id") DO UPDATE SET "payload"=EXCLUDED."payload","seen"=EXCLUDED."seen"`,
		},
		{
			name:     "upsert on composite key",
			table:    "events",
			cols:     []string{"day", "host", "count"},
			keys:     []string{"day", "host"},
			expected: `INSERT INTO "events"("day","host","count") VALUES ($1,$2,$3) ON CONFLICT ("day","host") DO UPDATE SET "count"=EXCLUDED."count"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, buildInsertSQL(tt.table, tt.schema, tt.cols, tt.keys))
		})
	}
}

func TestCheckName(t *testing.T) {
	assert.NoError(t, checkName("table", "events"))
	assert.NoError(t, checkName("column", "weird name with spaces"))

	for _, name := range []string{`ev"ents`, "ev'ents", "ev`ents"} {
		err := checkName("table", name)
		require.Error(t, err, "name %q", name)
		assert.True(t, quivererrors.IsType(err, quivererrors.ErrorTypeValidation))
	}
}

func TestParams_KeyColumns(t *testing.T) {
	p := Params{
		Keys: []string{"b", "a"},
		Fields: map[string]FieldParams{
			"c": {Key: true},
			"a": {Key: true},
			"d": {JSON: true},
		},
	}

	assert.Equal(t, []string{"a", "b", "c"}, p.keyColumns())
	assert.Equal(t, map[string]bool{"d": true}, p.jsonColumns())
}

func TestBindValue(t *testing.T) {
	tests := []struct {
		name     string
		series   arrow.Array
		declared arrow.DataType
		row      int
		isJSON   bool
		expected interface{}
	}{
		{
			name:     "int64",
			series:   frame.NewSeriesValues([]int64{7, 8}),
			declared: arrow.PrimitiveTypes.Int64,
			row:      1,
			expected: int64(8),
		},
		{
			name:     "bool",
			series:   frame.NewSeriesValues([]bool{true}),
			declared: arrow.FixedWidthTypes.Boolean,
			expected: true,
		},
		{
			name:     "float64",
			series:   frame.NewSeriesValues([]float64{1.5}),
			declared: arrow.PrimitiveTypes.Float64,
			expected: 1.5,
		},
		{
			name:     "string",
			series:   frame.NewSeriesValues([]string{"x"}),
			declared: arrow.BinaryTypes.String,
			expected: "x",
		},
		{
			name:     "large string",
			series:   frame.NewLargeStringSeries([]*string{ptr("y")}),
			declared: arrow.BinaryTypes.LargeString,
			expected: "y",
		},
		{
			name:     "null",
			series:   frame.NewSeries([]*int64{nil}),
			declared: arrow.PrimitiveTypes.Int64,
			expected: nil,
		},
		{
			name:     "json column decodes",
			series:   frame.NewSeriesValues([]string{`{"a":1}`}),
			declared: arrow.BinaryTypes.String,
			isJSON:   true,
			expected: map[string]interface{}{"a": float64(1)},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := bindValue(tt.series, tt.declared, tt.row, tt.isJSON)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, v)
		})
	}
}

func TestBindValue_Timestamp(t *testing.T) {
	// int64 storage declared as millisecond timestamp binds as time.Time
	declared := &arrow.TimestampType{Unit: arrow.Millisecond, TimeZone: "UTC"}
	s := frame.NewSeriesValues([]int64{1_500})

	v, err := bindValue(s, declared, 0, false)
	require.NoError(t, err)
	assert.Equal(t, time.UnixMilli(1_500).UTC(), v)
}

func TestBindValue_TypeMismatch(t *testing.T) {
	s := frame.NewSeriesValues([]int64{1})

	_, err := bindValue(s, arrow.BinaryTypes.String, 0, false)
	assert.True(t, quivererrors.IsType(err, quivererrors.ErrorTypeTypeMismatch))
}

func TestBindValue_InvalidJSON(t *testing.T) {
	s := frame.NewSeriesValues([]string{"{broken"})

	_, err := bindValue(s, arrow.BinaryTypes.String, 0, true)
	assert.True(t, quivererrors.IsType(err, quivererrors.ErrorTypeData))
}

func TestTimestampToTime(t *testing.T) {
	assert.Equal(t, time.Unix(5, 0).UTC(), timestampToTime(5, arrow.Second))
	assert.Equal(t, time.UnixMilli(5_000).UTC(), timestampToTime(5_000, arrow.Millisecond))
	assert.Equal(t, time.UnixMicro(5).UTC(), timestampToTime(5, arrow.Microsecond))
	assert.Equal(t, time.Unix(1, 500).UTC(), timestampToTime(1_000_000_500, arrow.Nanosecond))
}

func ptr[T any](v T) *T {
	return &v
}
