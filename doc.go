// Package quiver provides an in-memory column-oriented frame built on
// Apache Arrow arrays, with typed converters to and from JSON objects,
// PostgreSQL result sets, and a self-describing Arrow IPC block format.
//
// # Packages
//
// pkg/frame holds the core Frame type: an ordered, rectangular set of
// named Arrow arrays with frame- and column-level metadata, slicing,
// column surgery, schema-union concatenation, and IPC block encoding.
//
// pkg/convert materializes JSON objects of homogeneous arrays into
// frames under a caller-declared column whitelist, and serializes
// frames back into JSON objects.
//
// pkg/postgres streams query results into chunked frames sized by an
// approximate byte budget, and upserts frames into tables keyed by
// caller-declared conflict columns.
//
// pkg/quivererrors and pkg/logger carry the shared error taxonomy and
// the structured zap logger used across the module.
//
// # Quick Start
//
//	f := frame.New()
//	col := frame.NewSeriesValues([]int64{1, 2, 3})
//	if err := f.AddSeries("id", col); err != nil {
//		log.Fatal(err)
//	}
//	block, err := f.ToIPCBlock()
//
// The cmd/quiver CLI wraps the converters for inspection, JSON
// conversion, and database fetch/push from the command line.
package quiver
