package frame

import (
	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/quiverdata/quiver/pkg/quivererrors"
)

// Concat merges frames whose schemas may differ into one frame. The
// result's field set is the union of all input fields in first-seen order;
// inputs missing a field contribute an all-null run of that field's type
// and their own row count. Metadata maps are merged with later frames
// overwriting shared keys. Empty frames contribute metadata only. A field
// carried solely by empty frames has no established element type and is
// dropped from the result.
func Concat(frames []*Frame) (*Frame, error) {
	if len(frames) == 0 {
		return New(), nil
	}
	metadata := make(map[string]string)
	var union []Field
	for _, f := range frames {
		for k, v := range f.metadata {
			metadata[k] = v
		}
		if f.IsEmpty() {
			continue
		}
		for _, fl := range f.fields {
			if fieldIndex(union, fl.Name) < 0 {
				union = append(union, fl)
			}
		}
	}

	fields := make([]Field, 0, len(union))
	data := make([]arrow.Array, 0, len(union))
	for _, fl := range union {
		var elemType arrow.DataType
		for _, f := range frames {
			if f.IsEmpty() {
				continue
			}
			if s, ok := f.Series(fl.Name); ok {
				elemType = s.DataType()
				break
			}
		}
		if elemType == nil {
			continue
		}
		parts := make([]arrow.Array, 0, len(frames))
		for _, f := range frames {
			if f.IsEmpty() {
				continue
			}
			if s, ok := f.Series(fl.Name); ok {
				parts = append(parts, s)
			} else {
				parts = append(parts, array.MakeArrayOfNull(memory.DefaultAllocator, elemType, f.Rows()))
			}
		}
		merged, err := array.Concatenate(parts, memory.DefaultAllocator)
		if err != nil {
			return nil, quivererrors.Wrap(err, quivererrors.ErrorTypeData, "failed to concatenate column").
				WithDetail("column", fl.Name)
		}
		fields = append(fields, fl)
		data = append(data, merged)
	}
	return FromParts(fields, data, metadata)
}

func fieldIndex(fields []Field, name string) int {
	for i, fl := range fields {
		if fl.Name == name {
			return i
		}
	}
	return -1
}
