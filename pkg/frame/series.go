package frame

import (
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/quiverdata/quiver/pkg/quivererrors"
)

// Scalar is the closed set of native value types a series can be built
// from. Strings build utf8 (32-bit offset) series; use
// NewLargeStringSeries for the 64-bit offset variant.
type Scalar interface {
	bool | int8 | int16 | int32 | int64 | uint8 | uint16 | uint32 | uint64 | float32 | float64 | string
}

// TimeZone is an explicit time zone label for timestamp columns. The zero
// value means no zone. Resolving the process-local zone happens at the
// call site via LocalZone, never inside frame code.
type TimeZone struct {
	name string
}

// NamedZone returns a TimeZone carrying the given label.
func NamedZone(name string) TimeZone {
	return TimeZone{name: name}
}

// NoZone returns the absent time zone.
func NoZone() TimeZone {
	return TimeZone{}
}

// LocalZone resolves the zone label of the given instant, typically
// time.Now() passed in by the caller.
func LocalZone(t time.Time) TimeZone {
	name, _ := t.Zone()
	return TimeZone{name: name}
}

// Label returns the zone label, empty when absent.
func (z TimeZone) Label() string {
	return z.name
}

// NewSeries builds a series from a uniform vector of nullable values; a
// nil element becomes a null.
func NewSeries[T Scalar](values []*T) arrow.Array {
	mem := memory.DefaultAllocator
	switch vs := any(values).(type) {
	case []*bool:
		b := array.NewBooleanBuilder(mem)
		defer b.Release()
		for _, v := range vs {
			appendOrNull(b.Append, b.AppendNull, v)
		}
		return b.NewArray()
	case []*int8:
		b := array.NewInt8Builder(mem)
		defer b.Release()
		for _, v := range vs {
			appendOrNull(b.Append, b.AppendNull, v)
		}
		return b.NewArray()
	case []*int16:
		b := array.NewInt16Builder(mem)
		defer b.Release()
		for _, v := range vs {
			appendOrNull(b.Append, b.AppendNull, v)
		}
		return b.NewArray()
	case []*int32:
		b := array.NewInt32Builder(mem)
		defer b.Release()
		for _, v := range vs {
			appendOrNull(b.Append, b.AppendNull, v)
		}
		return b.NewArray()
	case []*int64:
		b := array.NewInt64Builder(mem)
		defer b.Release()
		for _, v := range vs {
			appendOrNull(b.Append, b.AppendNull, v)
		}
		return b.NewArray()
	case []*uint8:
		b := array.NewUint8Builder(mem)
		defer b.Release()
		for _, v := range vs {
			appendOrNull(b.Append, b.AppendNull, v)
		}
		return b.NewArray()
	case []*uint16:
		b := array.NewUint16Builder(mem)
		defer b.Release()
		for _, v := range vs {
			appendOrNull(b.Append, b.AppendNull, v)
		}
		return b.NewArray()
	case []*uint32:
		b := array.NewUint32Builder(mem)
		defer b.Release()
		for _, v := range vs {
			appendOrNull(b.Append, b.AppendNull, v)
		}
		return b.NewArray()
	case []*uint64:
		b := array.NewUint64Builder(mem)
		defer b.Release()
		for _, v := range vs {
			appendOrNull(b.Append, b.AppendNull, v)
		}
		return b.NewArray()
	case []*float32:
		b := array.NewFloat32Builder(mem)
		defer b.Release()
		for _, v := range vs {
			appendOrNull(b.Append, b.AppendNull, v)
		}
		return b.NewArray()
	case []*float64:
		b := array.NewFloat64Builder(mem)
		defer b.Release()
		for _, v := range vs {
			appendOrNull(b.Append, b.AppendNull, v)
		}
		return b.NewArray()
	case []*string:
		b := array.NewStringBuilder(mem)
		defer b.Release()
		for _, v := range vs {
			appendOrNull(b.Append, b.AppendNull, v)
		}
		return b.NewArray()
	default:
		// unreachable, the switch is exhaustive over Scalar
		panic("frame: unsupported series element type")
	}
}

func appendOrNull[T any](appendFn func(T), nullFn func(), v *T) {
	if v == nil {
		nullFn()
		return
	}
	appendFn(*v)
}

// NewSeriesValues builds a series from a vector of non-null values.
func NewSeriesValues[T Scalar](values []T) arrow.Array {
	ptrs := make([]*T, len(values))
	for i := range values {
		ptrs[i] = &values[i]
	}
	return NewSeries(ptrs)
}

// NewLargeStringSeries builds a large-utf8 (64-bit offset) series from a
// vector of nullable strings.
func NewLargeStringSeries(values []*string) arrow.Array {
	b := array.NewLargeStringBuilder(memory.DefaultAllocator)
	defer b.Release()
	for _, v := range values {
		appendOrNull(b.Append, b.AppendNull, v)
	}
	return b.NewArray()
}

// NewNullSeries builds an all-null series of the given type and length.
func NewNullSeries(dataType arrow.DataType, rows int) arrow.Array {
	return array.MakeArrayOfNull(memory.DefaultAllocator, dataType, rows)
}

// ScalarAt reads the value at position i of a series as a Go scalar,
// returning nil for a null. Timestamps read as their raw int64 value.
func ScalarAt(s arrow.Array, i int) (interface{}, error) {
	if i < 0 || i >= s.Len() {
		return nil, quivererrors.OutOfBounds()
	}
	if s.IsNull(i) {
		return nil, nil
	}
	switch a := s.(type) {
	case *array.Boolean:
		return a.Value(i), nil
	case *array.Int8:
		return a.Value(i), nil
	case *array.Int16:
		return a.Value(i), nil
	case *array.Int32:
		return a.Value(i), nil
	case *array.Int64:
		return a.Value(i), nil
	case *array.Uint8:
		return a.Value(i), nil
	case *array.Uint16:
		return a.Value(i), nil
	case *array.Uint32:
		return a.Value(i), nil
	case *array.Uint64:
		return a.Value(i), nil
	case *array.Float32:
		return a.Value(i), nil
	case *array.Float64:
		return a.Value(i), nil
	case *array.String:
		return a.Value(i), nil
	case *array.LargeString:
		return a.Value(i), nil
	case *array.Timestamp:
		return int64(a.Value(i)), nil
	default:
		return nil, quivererrors.Unimplemented(s.DataType().String())
	}
}

// reinterpret returns a zero-copy view of s carrying the declared type
// when the declared and native types share a fixed-width storage layout
// (the int64-backed Timestamp case). Otherwise s is returned as is.
func reinterpret(s arrow.Array, declared arrow.DataType) arrow.Array {
	if arrow.TypeEqual(s.DataType(), declared) {
		return s
	}
	nw, dw := fixedBitWidth(s.DataType()), fixedBitWidth(declared)
	if nw == 0 || nw != dw {
		return s
	}
	d := s.Data()
	nd := array.NewData(declared, d.Len(), d.Buffers(), nil, d.NullN(), d.Offset())
	defer nd.Release()
	return array.MakeFromData(nd)
}

func fixedBitWidth(dt arrow.DataType) int {
	if fw, ok := dt.(arrow.FixedWidthDataType); ok && dt.ID() != arrow.BOOL {
		return fw.BitWidth()
	}
	return 0
}
