package frame

import (
	"strconv"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"

	"github.com/quiverdata/quiver/pkg/quivererrors"
)

// Number is the closed set of numeric native types the element-wise
// column transforms operate on.
type Number interface {
	int8 | int16 | int32 | int64 | uint8 | uint16 | uint32 | uint64 | float32 | float64
}

// Methods cannot be generic, so the numeric transforms are package-level
// functions taking the frame as their first argument.

// Add adds a scalar to every element of the named numeric column,
// preserving nulls. Fails with a type_mismatch error when the column's
// native storage is not T.
func Add[T Number](f *Frame, name string, value T) error {
	pos := f.ColumnIndex(name)
	if pos < 0 {
		return quivererrors.NotFound(name)
	}
	return AddAt(f, pos, value)
}

// AddAt is Add addressing the column by position.
func AddAt[T Number](f *Frame, index int, value T) error {
	return transformAt(f, index, func(v T) T { return v + value })
}

// Sub subtracts a scalar from every element of the named numeric column,
// preserving nulls.
func Sub[T Number](f *Frame, name string, value T) error {
	pos := f.ColumnIndex(name)
	if pos < 0 {
		return quivererrors.NotFound(name)
	}
	return SubAt(f, pos, value)
}

// SubAt is Sub addressing the column by position.
func SubAt[T Number](f *Frame, index int, value T) error {
	return transformAt(f, index, func(v T) T { return v - value })
}

// Mul multiplies every element of the named numeric column by a scalar,
// preserving nulls.
func Mul[T Number](f *Frame, name string, value T) error {
	pos := f.ColumnIndex(name)
	if pos < 0 {
		return quivererrors.NotFound(name)
	}
	return MulAt(f, pos, value)
}

// MulAt is Mul addressing the column by position.
func MulAt[T Number](f *Frame, index int, value T) error {
	return transformAt(f, index, func(v T) T { return v * value })
}

// Div divides every element of the named numeric column by a scalar,
// preserving nulls.
func Div[T Number](f *Frame, name string, value T) error {
	pos := f.ColumnIndex(name)
	if pos < 0 {
		return quivererrors.NotFound(name)
	}
	return DivAt(f, pos, value)
}

// DivAt is Div addressing the column by position.
func DivAt[T Number](f *Frame, index int, value T) error {
	return transformAt(f, index, func(v T) T { return v / value })
}

// transformAt re-materializes the column at index applying op element-wise
// to non-null values.
func transformAt[T Number](f *Frame, index int, op func(T) T) error {
	if index < 0 || index >= len(f.data) {
		return quivererrors.OutOfBounds()
	}
	values, err := numericValues[T](f.data[index])
	if err != nil {
		return err
	}
	for i, v := range values {
		if v != nil {
			r := op(*v)
			values[i] = &r
		}
	}
	f.data[index] = NewSeries(values)
	return nil
}

// Parse reinterprets the named utf8 column as parsed values of the numeric
// type T. Unparsable values become null, never an error.
func Parse[T Number](f *Frame, name string) error {
	pos := f.ColumnIndex(name)
	if pos < 0 {
		return quivererrors.NotFound(name)
	}
	return ParseAt[T](f, pos)
}

// ParseAt is Parse addressing the column by position. Fails with a
// type_mismatch error when the column is not utf8 typed.
func ParseAt[T Number](f *Frame, index int) error {
	if index < 0 || index >= len(f.data) {
		return quivererrors.OutOfBounds()
	}
	strs, err := stringValues(f.data[index])
	if err != nil {
		return err
	}
	values := make([]*T, len(strs))
	for i, s := range strs {
		if s == nil {
			continue
		}
		if v, perr := parseNumber[T](*s); perr == nil {
			values[i] = &v
		}
	}
	parsed := NewSeries(values)
	f.data[index] = parsed
	f.fields[index].Type = parsed.DataType()
	return nil
}

// numericValues extracts the column as a nullable vector of T, requiring
// the native storage type to match T exactly.
func numericValues[T Number](s arrow.Array) ([]*T, error) {
	if s.DataType().ID() != typeID[T]() {
		return nil, quivererrors.TypeMismatch()
	}
	out := make([]*T, s.Len())
	for i := 0; i < s.Len(); i++ {
		if s.IsNull(i) {
			continue
		}
		raw, err := ScalarAt(s, i)
		if err != nil {
			return nil, err
		}
		v, ok := raw.(T)
		if !ok {
			return nil, quivererrors.TypeMismatch()
		}
		out[i] = &v
	}
	return out, nil
}

func stringValues(s arrow.Array) ([]*string, error) {
	out := make([]*string, s.Len())
	switch a := s.(type) {
	case *array.String:
		for i := 0; i < a.Len(); i++ {
			if !a.IsNull(i) {
				v := a.Value(i)
				out[i] = &v
			}
		}
	case *array.LargeString:
		for i := 0; i < a.Len(); i++ {
			if !a.IsNull(i) {
				v := a.Value(i)
				out[i] = &v
			}
		}
	default:
		return nil, quivererrors.TypeMismatch()
	}
	return out, nil
}

// typeID maps the type parameter to its Arrow type id via a generated
// switch over the closed numeric set.
func typeID[T Number]() arrow.Type {
	var z T
	switch any(z).(type) {
	case int8:
		return arrow.INT8
	case int16:
		return arrow.INT16
	case int32:
		return arrow.INT32
	case int64:
		return arrow.INT64
	case uint8:
		return arrow.UINT8
	case uint16:
		return arrow.UINT16
	case uint32:
		return arrow.UINT32
	case uint64:
		return arrow.UINT64
	case float32:
		return arrow.FLOAT32
	default:
		return arrow.FLOAT64
	}
}

// parseNumber parses a string into T with range checking.
func parseNumber[T Number](s string) (T, error) {
	var z T
	switch any(z).(type) {
	case int8:
		v, err := strconv.ParseInt(s, 10, 8)
		return T(v), err
	case int16:
		v, err := strconv.ParseInt(s, 10, 16)
		return T(v), err
	case int32:
		v, err := strconv.ParseInt(s, 10, 32)
		return T(v), err
	case int64:
		v, err := strconv.ParseInt(s, 10, 64)
		return T(v), err
	case uint8:
		v, err := strconv.ParseUint(s, 10, 8)
		return T(v), err
	case uint16:
		v, err := strconv.ParseUint(s, 10, 16)
		return T(v), err
	case uint32:
		v, err := strconv.ParseUint(s, 10, 32)
		return T(v), err
	case uint64:
		v, err := strconv.ParseUint(s, 10, 64)
		return T(v), err
	case float32:
		v, err := strconv.ParseFloat(s, 32)
		return T(v), err
	default:
		v, err := strconv.ParseFloat(s, 64)
		return T(v), err
	}
}
