package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/quiverdata/quiver/pkg/frame"
	"github.com/quiverdata/quiver/pkg/quivererrors"
)

// FetchOptions configures an ingest stream.
type FetchOptions struct {
	// ChunkSize is the approximate accumulated byte size at which a frame
	// is emitted and accumulation restarts. Zero emits a single frame
	// holding the whole result.
	ChunkSize int
	// Logger receives structured progress logs. Nil keeps the stream
	// silent.
	Logger *zap.Logger
}

// FrameStream is a lazily produced sequence of frames from a query.
// Frames is unbuffered, so production is backpressured by consumption: no
// row is drawn from the cursor until the previous frame is taken.
// Cancelling the context closes the cursor; a partially accumulated,
// unflushed chunk is discarded, not emitted. Errors carries at most one
// error and both channels close when the stream ends.
type FrameStream struct {
	Frames <-chan *frame.Frame
	Errors <-chan error
}

// Fetch executes a query and streams its result set as frames. Column
// identity and logical types derive from the cursor's reported column
// metadata; an unrecognized column type fails the whole stream with an
// unimplemented error.
func Fetch(ctx context.Context, db *pgxpool.Pool, query string, opts FetchOptions) *FrameStream {
	frames := make(chan *frame.Frame)
	errs := make(chan error, 1)

	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}

	go func() {
		defer close(frames)
		defer close(errs)

		conn, err := db.Acquire(ctx)
		if err != nil {
			errs <- quivererrors.Wrap(err, quivererrors.ErrorTypeConnection, "failed to acquire connection")
			return
		}
		defer conn.Release()

		rows, err := conn.Query(ctx, query)
		if err != nil {
			errs <- quivererrors.Wrap(err, quivererrors.ErrorTypeQuery, "failed to execute query")
			return
		}
		defer rows.Close()

		emit := func(f *frame.Frame) error {
			select {
			case frames <- f:
				log.Debug("emitted frame",
					zap.Int("rows", f.Rows()),
					zap.Int("cols", f.Cols()))
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		if err := collectFrames(rows, opts.ChunkSize, emit); err != nil {
			errs <- err
		}
	}()

	return &FrameStream{Frames: frames, Errors: errs}
}

// collectFrames drives the row cursor, accumulating values into
// type-dispatched columns and emitting a frame whenever the accumulated
// byte size reaches chunkSize. The remainder is flushed at end of input.
func collectFrames(rows pgx.Rows, chunkSize int, emit func(*frame.Frame) error) error {
	var (
		fds   []pgconn.FieldDescription
		names []string
		cols  []column
	)

	for rows.Next() {
		if cols == nil {
			fds = rows.FieldDescriptions()
			names = make([]string, len(fds))
			cols = make([]column, len(fds))
			for i, fd := range fds {
				c, err := newColumn(fd.DataTypeOID)
				if err != nil {
					return err
				}
				names[i] = fd.Name
				cols[i] = c
			}
		}

		values, err := rows.Values()
		if err != nil {
			return quivererrors.Wrap(err, quivererrors.ErrorTypeData, "failed to read row values")
		}
		for i, c := range cols {
			if err := c.push(values[i]); err != nil {
				return err
			}
		}

		if chunkSize > 0 && accumulatedBytes(cols) >= chunkSize {
			f, err := buildFrame(names, cols)
			if err != nil {
				return err
			}
			if err := emit(f); err != nil {
				return quivererrors.Wrap(err, quivererrors.ErrorTypeConnection, "fetch canceled")
			}
			for i, fd := range fds {
				// cannot fail, the oid was accepted above
				cols[i], _ = newColumn(fd.DataTypeOID)
			}
		}
	}
	if err := rows.Err(); err != nil {
		return quivererrors.Wrap(err, quivererrors.ErrorTypeQuery, "failed to iterate rows")
	}

	if len(cols) > 0 && cols[0].len() > 0 {
		f, err := buildFrame(names, cols)
		if err != nil {
			return err
		}
		if err := emit(f); err != nil {
			return quivererrors.Wrap(err, quivererrors.ErrorTypeConnection, "fetch canceled")
		}
	}
	return nil
}

func accumulatedBytes(cols []column) int {
	total := 0
	for _, c := range cols {
		total += c.bytes()
	}
	return total
}
