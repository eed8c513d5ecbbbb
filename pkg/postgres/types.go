package postgres

import (
	"fmt"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	gojson "github.com/goccy/go-json"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/quiverdata/quiver/pkg/frame"
	"github.com/quiverdata/quiver/pkg/quivererrors"
)

// column accumulates one result column's values during ingest. Values
// arrive as driver-decoded Go scalars, nil meaning SQL NULL, and are
// finalized into a series plus its declared logical type.
type column interface {
	push(v interface{}) error
	len() int
	bytes() int
	series() (arrow.Array, arrow.DataType)
}

// scalarColumn is the single accumulator implementation, instantiated
// once per member of the closed type set by newColumn's dispatch table.
type scalarColumn[T frame.Scalar] struct {
	values   []*T
	size     int
	sizeOf   func(T) int
	dataType arrow.DataType
	convert  func(interface{}) (T, error)
	finalize func([]*T) arrow.Array
}

func (c *scalarColumn[T]) push(v interface{}) error {
	if v == nil {
		c.values = append(c.values, nil)
		c.size++
		return nil
	}
	nv, err := c.convert(v)
	if err != nil {
		return err
	}
	c.values = append(c.values, &nv)
	c.size += c.sizeOf(nv)
	return nil
}

func (c *scalarColumn[T]) len() int {
	return len(c.values)
}

func (c *scalarColumn[T]) bytes() int {
	return c.size
}

func (c *scalarColumn[T]) series() (arrow.Array, arrow.DataType) {
	if c.finalize != nil {
		return c.finalize(c.values), c.dataType
	}
	return frame.NewSeries(c.values), c.dataType
}

// newColumn maps a driver-reported type OID to a fresh accumulator.
// Unrecognized OIDs fail the whole fetch with an unimplemented error.
func newColumn(oid uint32) (column, error) {
	switch oid {
	case pgtype.BoolOID:
		return &scalarColumn[bool]{
			sizeOf:   fixedSize[bool](1),
			dataType: arrow.FixedWidthTypes.Boolean,
			convert:  convertScalar[bool],
		}, nil
	case pgtype.Int2OID:
		return &scalarColumn[int16]{
			sizeOf:   fixedSize[int16](2),
			dataType: arrow.PrimitiveTypes.Int16,
			convert:  convertScalar[int16],
		}, nil
	case pgtype.Int4OID:
		return &scalarColumn[int32]{
			sizeOf:   fixedSize[int32](4),
			dataType: arrow.PrimitiveTypes.Int32,
			convert:  convertScalar[int32],
		}, nil
	case pgtype.Int8OID:
		return &scalarColumn[int64]{
			sizeOf:   fixedSize[int64](8),
			dataType: arrow.PrimitiveTypes.Int64,
			convert:  convertScalar[int64],
		}, nil
	case pgtype.Float4OID:
		return &scalarColumn[float32]{
			sizeOf:   fixedSize[float32](4),
			dataType: arrow.PrimitiveTypes.Float32,
			convert:  convertScalar[float32],
		}, nil
	case pgtype.Float8OID:
		return &scalarColumn[float64]{
			sizeOf:   fixedSize[float64](8),
			dataType: arrow.PrimitiveTypes.Float64,
			convert:  convertScalar[float64],
		}, nil
	case pgtype.TimestampOID:
		return &scalarColumn[int64]{
			sizeOf:   fixedSize[int64](8),
			dataType: &arrow.TimestampType{Unit: arrow.Nanosecond},
			convert:  convertTimestamp,
		}, nil
	case pgtype.TimestamptzOID:
		return &scalarColumn[int64]{
			sizeOf:   fixedSize[int64](8),
			dataType: &arrow.TimestampType{Unit: arrow.Nanosecond, TimeZone: "UTC"},
			convert:  convertTimestamp,
		}, nil
	case pgtype.TextOID, pgtype.VarcharOID, pgtype.BPCharOID:
		return &scalarColumn[string]{
			sizeOf:   func(s string) int { return len(s) },
			dataType: arrow.BinaryTypes.LargeString,
			convert:  convertScalar[string],
			finalize: frame.NewLargeStringSeries,
		}, nil
	case pgtype.JSONOID, pgtype.JSONBOID:
		return &scalarColumn[string]{
			sizeOf:   func(s string) int { return len(s) },
			dataType: arrow.BinaryTypes.LargeString,
			convert:  convertJSON,
			finalize: frame.NewLargeStringSeries,
		}, nil
	default:
		return nil, quivererrors.Unimplemented(fmt.Sprintf("column type oid %d", oid))
	}
}

func fixedSize[T frame.Scalar](width int) func(T) int {
	return func(T) int { return width }
}

func convertScalar[T frame.Scalar](v interface{}) (T, error) {
	nv, ok := v.(T)
	if !ok {
		var zero T
		return zero, quivererrors.TypeMismatch().WithDetail("value_type", fmt.Sprintf("%T", v))
	}
	return nv, nil
}

// convertTimestamp normalizes driver timestamps to nanoseconds since
// epoch.
func convertTimestamp(v interface{}) (int64, error) {
	t, ok := v.(time.Time)
	if !ok {
		return 0, quivererrors.TypeMismatch().WithDetail("value_type", fmt.Sprintf("%T", v))
	}
	return t.UnixNano(), nil
}

// convertJSON re-encodes driver-decoded JSON values as canonical text.
func convertJSON(v interface{}) (string, error) {
	switch d := v.(type) {
	case string:
		return d, nil
	case []byte:
		return string(d), nil
	default:
		data, err := gojson.Marshal(d)
		if err != nil {
			return "", quivererrors.Wrap(err, quivererrors.ErrorTypeData, "failed to encode json value")
		}
		return string(data), nil
	}
}

// buildFrame finalizes accumulated columns into a frame.
func buildFrame(names []string, cols []column) (*frame.Frame, error) {
	f := frame.NewWithCapacity(len(cols))
	for i, c := range cols {
		s, dataType := c.series()
		if err := f.AddSeriesTyped(names[i], s, dataType, nil); err != nil {
			return nil, err
		}
	}
	return f, nil
}
