// Package frame provides an in-memory, column-oriented table built on
// Apache Arrow arrays.
//
// A Frame owns an ordered set of named, typed columns of equal length
// (invariant: rectangularity) plus string metadata at the frame level and
// per column. Column data is opaque beyond the Arrow array contract:
// element count, logical type, positional reads, zero-copy slicing, and
// concatenation.
//
// A frame's declared column type may diverge from the storage type of the
// underlying array. A frame may declare a column Timestamp while storing
// raw int64 values; conversions out of the frame honor the declared type.
//
// Frames convert losslessly to and from a self-describing Arrow IPC
// stream block (ToIPCBlock/FromIPCBlock), suitable for network
// transmission or disk storage.
//
// Frames are plain values with no background goroutines. They are not
// safe for concurrent mutation; share them by message passing or guard
// them externally.
package frame
