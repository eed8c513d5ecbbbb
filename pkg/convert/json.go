// Package convert moves data between frames and structured JSON objects.
//
// The Parser direction materializes a frame from a JSON object against a
// caller-declared name-to-type mapping, so a caller always gets exactly
// the schema it declared back regardless of which keys the payload
// carries. The reverse direction renders a frame as a JSON object whose
// keys are column names and whose values are arrays of per-row scalars.
package convert

import (
	"bytes"

	"github.com/apache/arrow-go/v18/arrow"
	gojson "github.com/goccy/go-json"

	"github.com/quiverdata/quiver/pkg/frame"
	"github.com/quiverdata/quiver/pkg/quivererrors"
)

// TypeMapping declares one expected column: its name and logical type.
type TypeMapping struct {
	Name string
	Type arrow.DataType
}

// Parser materializes frames from JSON objects against an ordered set of
// declared column types. Only scalar logical types are supported: bool,
// signed and unsigned integers of width 8-64, float32/64, utf8 and
// large-utf8 strings.
type Parser struct {
	typeMap []TypeMapping
}

// NewParser creates a parser with no declared columns.
func NewParser() *Parser {
	return &Parser{}
}

// WithTypeMapping appends a declared column. Chainable; declaration order
// is the column order of materialized frames.
func (p *Parser) WithTypeMapping(name string, dataType arrow.DataType) *Parser {
	p.typeMap = append(p.typeMap, TypeMapping{Name: name, Type: dataType})
	return p
}

// ParseValue materializes a frame from raw JSON. Any value that is not an
// object at the top level fails with an unimplemented error.
func (p *Parser) ParseValue(data []byte) (*frame.Frame, error) {
	trimmed := bytes.TrimLeft(data, " \t\r\n")
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, quivererrors.Unimplemented("unsupported json value type")
	}
	var obj map[string]gojson.RawMessage
	if err := gojson.Unmarshal(trimmed, &obj); err != nil {
		return nil, quivererrors.Wrap(err, quivererrors.ErrorTypeData, "failed to decode json object")
	}
	return p.ParseObject(obj)
}

// ParseObject materializes a frame from a decoded JSON object. Each
// declared column present in the object is deserialized as a homogeneous
// array of nullable scalars of its declared type and consumed from the
// object; declared columns missing from the object are filled with
// all-null columns of the row count established by the present ones (zero
// if none).
func (p *Parser) ParseObject(obj map[string]gojson.RawMessage) (*frame.Frame, error) {
	f := frame.NewWithCapacity(len(p.typeMap))
	var missing []TypeMapping
	for _, tm := range p.typeMap {
		raw, ok := obj[tm.Name]
		if !ok {
			missing = append(missing, tm)
			continue
		}
		delete(obj, tm.Name)
		s, err := decodeColumn(raw, tm.Type)
		if err != nil {
			return nil, err
		}
		if err := f.AddSeries(tm.Name, s); err != nil {
			return nil, err
		}
	}
	rows := f.Rows()
	for _, tm := range missing {
		if err := f.AddSeries(tm.Name, frame.NewNullSeries(tm.Type, rows)); err != nil {
			return nil, err
		}
	}
	return f, nil
}

func decodeColumn(raw gojson.RawMessage, dataType arrow.DataType) (arrow.Array, error) {
	switch dataType.ID() {
	case arrow.BOOL:
		return decodeVector[bool](raw)
	case arrow.INT8:
		return decodeVector[int8](raw)
	case arrow.INT16:
		return decodeVector[int16](raw)
	case arrow.INT32:
		return decodeVector[int32](raw)
	case arrow.INT64:
		return decodeVector[int64](raw)
	case arrow.UINT8:
		return decodeVector[uint8](raw)
	case arrow.UINT16:
		return decodeVector[uint16](raw)
	case arrow.UINT32:
		return decodeVector[uint32](raw)
	case arrow.UINT64:
		return decodeVector[uint64](raw)
	case arrow.FLOAT32:
		return decodeVector[float32](raw)
	case arrow.FLOAT64:
		return decodeVector[float64](raw)
	case arrow.STRING:
		return decodeVector[string](raw)
	case arrow.LARGE_STRING:
		var values []*string
		if err := gojson.Unmarshal(raw, &values); err != nil {
			return nil, quivererrors.Wrap(err, quivererrors.ErrorTypeData, "failed to decode column values")
		}
		return frame.NewLargeStringSeries(values), nil
	default:
		return nil, quivererrors.Unimplemented(dataType.String())
	}
}

func decodeVector[T frame.Scalar](raw gojson.RawMessage) (arrow.Array, error) {
	var values []*T
	if err := gojson.Unmarshal(raw, &values); err != nil {
		return nil, quivererrors.Wrap(err, quivererrors.ErrorTypeData, "failed to decode column values")
	}
	return frame.NewSeries(values), nil
}

// ToJSONValue renders the frame as a JSON-ready object: column name to
// array of per-row scalars, nil for nulls.
func ToJSONValue(f *frame.Frame) (map[string]interface{}, error) {
	out := make(map[string]interface{}, f.Cols())
	rows := f.Rows()
	for i, fl := range f.Fields() {
		s := f.Data()[i]
		values := make([]interface{}, rows)
		for r := 0; r < rows; r++ {
			v, err := frame.ScalarAt(s, r)
			if err != nil {
				return nil, err
			}
			values[r] = v
		}
		out[fl.Name] = values
	}
	return out, nil
}

// ToJSON renders the frame as an encoded JSON object.
func ToJSON(f *frame.Frame) ([]byte, error) {
	obj, err := ToJSONValue(f)
	if err != nil {
		return nil, err
	}
	data, err := gojson.Marshal(obj)
	if err != nil {
		return nil, quivererrors.Wrap(err, quivererrors.ErrorTypeData, "failed to encode json object")
	}
	return data, nil
}
