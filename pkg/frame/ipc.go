package frame

import (
	"bytes"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/quiverdata/quiver/pkg/quivererrors"
)

// Record builds an Arrow record batch from the frame. Columns whose
// declared type diverges from their storage type with a compatible layout
// are reinterpreted zero-copy so the record carries the declared schema.
func (f *Frame) Record() arrow.Record {
	cols := make([]arrow.Array, len(f.data))
	for i, s := range f.data {
		cols[i] = reinterpret(s, f.fields[i].Type)
	}
	return array.NewRecord(f.Schema(), cols, int64(f.Rows()))
}

// FromRecord creates a frame from a decoded Arrow record batch.
func FromRecord(rec arrow.Record) *Frame {
	schema := rec.Schema()
	f := NewWithCapacity(int(rec.NumCols()))
	f.metadata = metadataToMap(schema.Metadata())
	for i := 0; i < int(rec.NumCols()); i++ {
		sf := schema.Field(i)
		col := rec.Column(i)
		col.Retain()
		f.fields = append(f.fields, Field{
			Name:     sf.Name,
			Type:     sf.Type,
			Metadata: metadataToMap(sf.Metadata),
		})
		f.data = append(f.data, col)
	}
	return f
}

// ToIPCBlock encodes the frame as a self-describing Arrow IPC stream
// block: schema, metadata, and one record batch.
func (f *Frame) ToIPCBlock() ([]byte, error) {
	var buf bytes.Buffer
	w := ipc.NewWriter(&buf, ipc.WithSchema(f.Schema()), ipc.WithAllocator(memory.DefaultAllocator))
	rec := f.Record()
	defer rec.Release()
	if err := w.Write(rec); err != nil {
		_ = w.Close()
		return nil, quivererrors.Wrap(err, quivererrors.ErrorTypeData, "failed to write record batch")
	}
	if err := w.Close(); err != nil {
		return nil, quivererrors.Wrap(err, quivererrors.ErrorTypeData, "failed to finish stream")
	}
	return buf.Bytes(), nil
}

// FromIPCBlock decodes a complete Arrow IPC stream block into a frame.
// A block with zero record batches yields an empty frame retaining only
// the schema metadata.
func FromIPCBlock(block []byte) (*Frame, error) {
	r, err := ipc.NewReader(bytes.NewReader(block), ipc.WithAllocator(memory.DefaultAllocator))
	if err != nil {
		return nil, quivererrors.Wrap(err, quivererrors.ErrorTypeData, "failed to read stream metadata")
	}
	defer r.Release()
	if r.Next() {
		return FromRecord(r.Record()), nil
	}
	if err := r.Err(); err != nil {
		return nil, quivererrors.Wrap(err, quivererrors.ErrorTypeData, "failed to read record batch")
	}
	f := New()
	f.metadata = metadataToMap(r.Schema().Metadata())
	return f, nil
}

func metadataToMap(md arrow.Metadata) map[string]string {
	m := make(map[string]string, md.Len())
	keys, values := md.Keys(), md.Values()
	for i := range keys {
		m[keys[i]] = values[i]
	}
	return m
}
