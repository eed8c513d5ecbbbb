package frame

import (
	"sort"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"

	"github.com/quiverdata/quiver/pkg/quivererrors"
)

// Field describes one column of a Frame: its name, declared logical type,
// and optional column-level metadata. The declared type may diverge from
// the native type of the column's storage (a frame may declare Timestamp
// over a raw int64 array); conversions honor the declared type.
type Field struct {
	Name     string
	Type     arrow.DataType
	Metadata map[string]string
}

// Frame is an in-memory, column-oriented table: an ordered set of named,
// typed columns of equal length plus free-form string metadata.
//
// Fields and column data are co-indexed and every structural mutation
// applies to both. Every column has the same element count; an empty frame
// has no defined row count until the first column is added. A Frame is not
// safe for concurrent mutation.
type Frame struct {
	fields   []Field
	data     []arrow.Array
	metadata map[string]string
}

// New creates a new frame with no columns.
func New() *Frame {
	return NewWithCapacity(0)
}

// NewWithCapacity creates a new frame pre-sized for the given column count.
func NewWithCapacity(cols int) *Frame {
	return &Frame{
		fields:   make([]Field, 0, cols),
		data:     make([]arrow.Array, 0, cols),
		metadata: make(map[string]string),
	}
}

// FromParts assembles a frame from a field vector, a co-indexed series
// vector, and optional metadata. All series must share one length.
func FromParts(fields []Field, data []arrow.Array, metadata map[string]string) (*Frame, error) {
	if len(fields) != len(data) {
		return nil, quivererrors.New(quivererrors.ErrorTypeColsNotMatch, "field and series vectors differ in length")
	}
	if len(data) > 0 {
		rows := data[0].Len()
		for _, s := range data[1:] {
			if s.Len() != rows {
				return nil, quivererrors.RowsNotMatch()
			}
		}
	}
	if metadata == nil {
		metadata = make(map[string]string)
	}
	return &Frame{fields: fields, data: data, metadata: metadata}, nil
}

// IntoParts splits the frame into its field vector, series vector, and
// metadata. The frame must not be used afterwards.
func (f *Frame) IntoParts() ([]Field, []arrow.Array, map[string]string) {
	fields, data, metadata := f.fields, f.data, f.metadata
	f.fields, f.data, f.metadata = nil, nil, nil
	return fields, data, metadata
}

// NewTimeSeries creates a frame with a single "time" column built from
// float64 epoch-second timestamps, declared as Timestamp of the given unit
// and time zone. The zone label is passed in as a value; use LocalZone to
// resolve the process-local zone at the call site.
func NewTimeSeries(timestamps []float64, cols int, tz TimeZone, unit arrow.TimeUnit) *Frame {
	f := NewWithCapacity(cols + 1)
	values := make([]*int64, len(timestamps))
	for i, ts := range timestamps {
		v := epochToUnit(ts, unit)
		values[i] = &v
	}
	// add_series cannot fail on an empty frame
	_ = f.AddSeriesTyped("time", NewSeries(values), &arrow.TimestampType{Unit: unit, TimeZone: tz.Label()}, nil)
	return f
}

// NewTimeSeriesRFC3339 creates a frame with a single "time" column of
// RFC3339 strings rendered in the given location from float64 epoch-second
// timestamps.
func NewTimeSeriesRFC3339(timestamps []float64, cols int, loc *time.Location) *Frame {
	f := NewWithCapacity(cols + 1)
	values := make([]*string, len(timestamps))
	for i, ts := range timestamps {
		sec := int64(ts)
		nsec := int64((ts - float64(sec)) * 1e9)
		s := time.Unix(sec, nsec).In(loc).Format(time.RFC3339)
		values[i] = &s
	}
	_ = f.AddSeries("time", NewSeries(values))
	return f
}

// IsEmpty reports whether the frame has no columns.
func (f *Frame) IsEmpty() bool {
	return len(f.data) == 0
}

// Rows returns the frame's row count, zero for an empty frame.
func (f *Frame) Rows() int {
	if len(f.data) == 0 {
		return 0
	}
	return f.data[0].Len()
}

// Cols returns the frame's column count.
func (f *Frame) Cols() int {
	return len(f.data)
}

// Names returns the column names in order.
func (f *Frame) Names() []string {
	names := make([]string, len(f.fields))
	for i, fl := range f.fields {
		names[i] = fl.Name
	}
	return names
}

// Fields returns the column field descriptors in order.
func (f *Frame) Fields() []Field {
	return f.fields
}

// Data returns the column series in order.
func (f *Frame) Data() []arrow.Array {
	return f.data
}

// Series returns the named column's series and declared type.
func (f *Frame) Series(name string) (arrow.Array, bool) {
	if pos := f.ColumnIndex(name); pos >= 0 {
		return f.data[pos], true
	}
	return nil, false
}

// SeriesAt returns the series at the given position.
func (f *Frame) SeriesAt(index int) (arrow.Array, error) {
	if index < 0 || index >= len(f.data) {
		return nil, quivererrors.OutOfBounds()
	}
	return f.data[index], nil
}

// ColumnIndex returns the position of the named column, or -1.
func (f *Frame) ColumnIndex(name string) int {
	for i, fl := range f.fields {
		if fl.Name == name {
			return i
		}
	}
	return -1
}

// Metadata returns the frame-level metadata map. Mutations are visible to
// the frame.
func (f *Frame) Metadata() map[string]string {
	return f.metadata
}

// SetMetadata replaces the frame-level metadata.
func (f *Frame) SetMetadata(metadata map[string]string) {
	if metadata == nil {
		metadata = make(map[string]string)
	}
	f.metadata = metadata
}

// SetMetadataField sets one frame-level metadata key.
func (f *Frame) SetMetadataField(key, value string) {
	f.metadata[key] = value
}

// Size returns the approximate in-memory byte size of the frame's data.
// String columns are estimated at fixed width.
func (f *Frame) Size() int {
	size := 0
	for _, s := range f.data {
		size += s.Len() * elementWidth(s.DataType())
	}
	return size
}

// AddSeries appends a column, deriving the declared type from the series.
// Fails with a rows_not_match error if the frame is non-empty and the
// series length differs from the frame's row count.
func (f *Frame) AddSeries(name string, s arrow.Array) error {
	return f.AddSeriesTyped(name, s, nil, nil)
}

// AddSeriesTyped appends a column with an explicit declared type and
// optional column metadata. A nil dataType defaults to the series' own.
func (f *Frame) AddSeriesTyped(name string, s arrow.Array, dataType arrow.DataType, metadata map[string]string) error {
	if len(f.data) > 0 && s.Len() != f.data[0].Len() {
		return quivererrors.RowsNotMatch()
	}
	if dataType == nil {
		dataType = s.DataType()
	}
	f.fields = append(f.fields, Field{Name: name, Type: dataType, Metadata: metadata})
	f.data = append(f.data, s)
	return nil
}

// InsertSeries inserts a column at the given position, deriving the
// declared type from the series.
func (f *Frame) InsertSeries(name string, s arrow.Array, index int) error {
	return f.InsertSeriesTyped(name, s, index, nil, nil)
}

// InsertSeriesTyped inserts a column at the given position with an explicit
// declared type and optional column metadata.
func (f *Frame) InsertSeriesTyped(name string, s arrow.Array, index int, dataType arrow.DataType, metadata map[string]string) error {
	if index < 0 || index > len(f.data) {
		return quivererrors.OutOfBounds()
	}
	if len(f.data) > 0 && s.Len() != f.data[0].Len() {
		return quivererrors.RowsNotMatch()
	}
	if dataType == nil {
		dataType = s.DataType()
	}
	f.fields = append(f.fields, Field{})
	copy(f.fields[index+1:], f.fields[index:])
	f.fields[index] = Field{Name: name, Type: dataType, Metadata: metadata}
	f.data = append(f.data, nil)
	copy(f.data[index+1:], f.data[index:])
	f.data[index] = s
	return nil
}

// PopSeries removes the named column and returns its series and declared
// type.
func (f *Frame) PopSeries(name string) (arrow.Array, arrow.DataType, error) {
	pos := f.ColumnIndex(name)
	if pos < 0 {
		return nil, nil, quivererrors.NotFound(name)
	}
	s, fl := f.data[pos], f.fields[pos]
	f.removeAt(pos)
	return s, fl.Type, nil
}

// PopSeriesAt removes the column at the given position and returns its
// series, name, and declared type.
func (f *Frame) PopSeriesAt(index int) (arrow.Array, string, arrow.DataType, error) {
	if index < 0 || index >= len(f.data) {
		return nil, "", nil, quivererrors.OutOfBounds()
	}
	s, fl := f.data[index], f.fields[index]
	f.removeAt(index)
	return s, fl.Name, fl.Type, nil
}

func (f *Frame) removeAt(index int) {
	f.fields = append(f.fields[:index], f.fields[index+1:]...)
	f.data = append(f.data[:index], f.data[index+1:]...)
}

// Rename changes a column's name.
func (f *Frame) Rename(name, newName string) error {
	pos := f.ColumnIndex(name)
	if pos < 0 {
		return quivererrors.NotFound(name)
	}
	f.fields[pos].Name = newName
	return nil
}

// SetNameAt changes the name of the column at the given position.
func (f *Frame) SetNameAt(index int, newName string) error {
	if index < 0 || index >= len(f.fields) {
		return quivererrors.OutOfBounds()
	}
	f.fields[index].Name = newName
	return nil
}

// SetDataType overrides a column's declared logical type without touching
// its storage.
func (f *Frame) SetDataType(name string, dataType arrow.DataType) error {
	pos := f.ColumnIndex(name)
	if pos < 0 {
		return quivererrors.NotFound(name)
	}
	f.fields[pos].Type = dataType
	return nil
}

// SetDataTypeAt overrides the declared type of the column at the given
// position.
func (f *Frame) SetDataTypeAt(index int, dataType arrow.DataType) error {
	if index < 0 || index >= len(f.fields) {
		return quivererrors.OutOfBounds()
	}
	f.fields[index].Type = dataType
	return nil
}

// ColMetadata returns the named column's metadata map, creating it on
// first use. Mutations are visible to the frame.
func (f *Frame) ColMetadata(name string) (map[string]string, error) {
	pos := f.ColumnIndex(name)
	if pos < 0 {
		return nil, quivererrors.NotFound(name)
	}
	return f.colMetadataAt(pos), nil
}

// ColMetadataAt returns the metadata map of the column at the given
// position, creating it on first use.
func (f *Frame) ColMetadataAt(index int) (map[string]string, error) {
	if index < 0 || index >= len(f.fields) {
		return nil, quivererrors.OutOfBounds()
	}
	return f.colMetadataAt(index), nil
}

func (f *Frame) colMetadataAt(index int) map[string]string {
	if f.fields[index].Metadata == nil {
		f.fields[index].Metadata = make(map[string]string)
	}
	return f.fields[index].Metadata
}

// SetColMetadata replaces the named column's metadata.
func (f *Frame) SetColMetadata(name string, metadata map[string]string) error {
	pos := f.ColumnIndex(name)
	if pos < 0 {
		return quivererrors.NotFound(name)
	}
	f.fields[pos].Metadata = metadata
	return nil
}

// SetColMetadataAt replaces the metadata of the column at the given
// position.
func (f *Frame) SetColMetadataAt(index int, metadata map[string]string) error {
	if index < 0 || index >= len(f.fields) {
		return quivererrors.OutOfBounds()
	}
	f.fields[index].Metadata = metadata
	return nil
}

// SetColMetadataField sets one metadata key on the named column.
func (f *Frame) SetColMetadataField(name, key, value string) error {
	pos := f.ColumnIndex(name)
	if pos < 0 {
		return quivererrors.NotFound(name)
	}
	f.colMetadataAt(pos)[key] = value
	return nil
}

// SetColMetadataFieldAt sets one metadata key on the column at the given
// position.
func (f *Frame) SetColMetadataFieldAt(index int, key, value string) error {
	if index < 0 || index >= len(f.fields) {
		return quivererrors.OutOfBounds()
	}
	f.colMetadataAt(index)[key] = value
	return nil
}

// TrySeriesSliced returns zero-copy row-range views of every column.
// Fails with an out_of_bounds error if offset+length exceeds the row
// count; an empty frame always yields an empty result.
func (f *Frame) TrySeriesSliced(offset, length int) ([]arrow.Array, error) {
	if len(f.data) == 0 {
		return []arrow.Array{}, nil
	}
	if offset < 0 || length < 0 || offset+length > f.data[0].Len() {
		return nil, quivererrors.OutOfBounds()
	}
	sliced := make([]arrow.Array, len(f.data))
	for i, s := range f.data {
		sliced[i] = array.NewSlice(s, int64(offset), int64(offset+length))
	}
	return sliced, nil
}

// TrySliced returns a new frame holding zero-copy row-range views of every
// column, sharing fields and metadata with the receiver.
func (f *Frame) TrySliced(offset, length int) (*Frame, error) {
	if len(f.data) == 0 {
		return New(), nil
	}
	sliced, err := f.TrySeriesSliced(offset, length)
	if err != nil {
		return nil, err
	}
	fields := make([]Field, len(f.fields))
	copy(fields, f.fields)
	metadata := make(map[string]string, len(f.metadata))
	for k, v := range f.metadata {
		metadata[k] = v
	}
	return &Frame{fields: fields, data: sliced, metadata: metadata}, nil
}

// SetOrdering reorders columns by positional swap to match the given name
// prefix. Unmatched names are ignored and trailing columns keep their
// relative order.
func (f *Frame) SetOrdering(names []string) {
	for i, name := range names {
		if i >= len(f.fields) {
			break
		}
		if pos := f.ColumnIndex(name); pos >= 0 && pos != i {
			f.fields[i], f.fields[pos] = f.fields[pos], f.fields[i]
			f.data[i], f.data[pos] = f.data[pos], f.data[i]
		}
	}
}

// SortColumns orders columns lexicographically by name.
func (f *Frame) SortColumns() {
	names := f.Names()
	sort.Strings(names)
	f.SetOrdering(names)
}

// Schema builds the Arrow schema declared by the frame's fields and
// metadata.
func (f *Frame) Schema() *arrow.Schema {
	fields := make([]arrow.Field, len(f.fields))
	for i, fl := range f.fields {
		fields[i] = arrow.Field{
			Name:     fl.Name,
			Type:     fl.Type,
			Nullable: true,
			Metadata: arrow.MetadataFrom(fl.Metadata),
		}
	}
	md := arrow.MetadataFrom(f.metadata)
	return arrow.NewSchema(fields, &md)
}

func elementWidth(dt arrow.DataType) int {
	switch dt.ID() {
	case arrow.BOOL, arrow.INT8, arrow.UINT8:
		return 1
	case arrow.INT16, arrow.UINT16:
		return 2
	case arrow.INT32, arrow.UINT32, arrow.FLOAT32:
		return 4
	default:
		return 8
	}
}

func epochToUnit(ts float64, unit arrow.TimeUnit) int64 {
	sec := int64(ts)
	nsec := int64((ts - float64(sec)) * 1e9)
	switch unit {
	case arrow.Second:
		return sec
	case arrow.Millisecond:
		return sec*1_000 + nsec/1_000_000
	case arrow.Microsecond:
		return sec*1_000_000 + nsec/1_000
	default:
		return sec*1_000_000_000 + nsec
	}
}
