package postgres

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	gojson "github.com/goccy/go-json"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/quiverdata/quiver/pkg/frame"
	"github.com/quiverdata/quiver/pkg/quivererrors"
)

// forbiddenNameSymbols are the quote characters rejected in table, schema,
// and column identifiers.
const forbiddenNameSymbols = "\"'`"

// FieldParams marks a column as part of the upsert key and/or as JSON
// typed.
type FieldParams struct {
	Key  bool `yaml:"key" json:"key"`
	JSON bool `yaml:"json" json:"json"`
}

// Params configures an egress call. The zero value inserts into Table
// with no upsert clause. Params deserializes from yaml or json, so push
// targets can live in configuration files.
type Params struct {
	Table  string                 `yaml:"table" json:"table"`
	Schema string                 `yaml:"schema,omitempty" json:"schema,omitempty"`
	Keys   []string               `yaml:"keys,omitempty" json:"keys,omitempty"`
	Fields map[string]FieldParams `yaml:"fields,omitempty" json:"fields,omitempty"`
}

// keyColumns merges Keys with fields marked Key into a sorted, deduplicated
// set.
func (p *Params) keyColumns() []string {
	set := make(map[string]struct{}, len(p.Keys))
	for _, k := range p.Keys {
		set[k] = struct{}{}
	}
	for name, fp := range p.Fields {
		if fp.Key {
			set[name] = struct{}{}
		}
	}
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (p *Params) jsonColumns() map[string]bool {
	set := make(map[string]bool)
	for name, fp := range p.Fields {
		if fp.JSON {
			set[name] = true
		}
	}
	return set
}

// Push writes every row of the frame into a table inside one transaction,
// building a single parameterized insert statement (with an upsert clause
// updating all non-key columns when key columns are declared) and
// executing it once per row. Returns the number of rows written. All rows
// succeed or the transaction rolls back; a context cancellation before
// commit rolls back explicitly. Zero rows or zero columns is a no-op
// success.
func Push(ctx context.Context, db *pgxpool.Pool, f *frame.Frame, params Params, log *zap.Logger) (int, error) {
	if log == nil {
		log = zap.NewNop()
	}

	if err := checkName("table", params.Table); err != nil {
		return 0, err
	}
	if params.Schema != "" {
		if err := checkName("schema", params.Schema); err != nil {
			return 0, err
		}
	}
	if f.IsEmpty() || f.Rows() == 0 {
		return 0, nil
	}
	cols := f.Names()
	for _, col := range cols {
		if err := checkName("column", col); err != nil {
			return 0, err
		}
	}

	query := buildInsertSQL(params.Table, params.Schema, cols, params.keyColumns())
	jsonCols := params.jsonColumns()

	tx, err := db.Begin(ctx)
	if err != nil {
		return 0, quivererrors.Wrap(err, quivererrors.ErrorTypeConnection, "failed to begin transaction")
	}
	// rollback is a no-op after a successful commit
	defer func() { _ = tx.Rollback(ctx) }()

	count := 0
	fields := f.Fields()
	data := f.Data()
	for row := 0; row < f.Rows(); row++ {
		args := make([]interface{}, len(cols))
		for i := range cols {
			v, err := bindValue(data[i], fields[i].Type, row, jsonCols[cols[i]])
			if err != nil {
				return 0, err
			}
			args[i] = v
		}
		if _, err := tx.Exec(ctx, query, args...); err != nil {
			return 0, quivererrors.Wrap(err, quivererrors.ErrorTypeQuery, "failed to insert row").
				WithDetail("row", row)
		}
		count++
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, quivererrors.Wrap(err, quivererrors.ErrorTypeQuery, "failed to commit transaction")
	}

	log.Info("pushed frame",
		zap.String("table", params.Table),
		zap.Int("rows", count),
		zap.Int("cols", len(cols)))
	return count, nil
}

func checkName(kind, name string) error {
	if strings.ContainsAny(name, forbiddenNameSymbols) {
		return quivererrors.Newf(quivererrors.ErrorTypeValidation,
			"%s name %s contains invalid symbols", kind, name)
	}
	return nil
}

// buildInsertSQL renders the parameterized insert, optionally with an
// upsert clause updating every non-key column on key conflict.
func buildInsertSQL(table, schema string, cols, keys []string) string {
	var b strings.Builder
	b.WriteString("INSERT INTO ")
	if schema != "" {
		fmt.Fprintf(&b, "%q.", schema)
	}
	fmt.Fprintf(&b, "%q(", table)
	for i, col := range cols {
		if i > 0 {
			b.WriteByte(',')
		}
		fmt.Fprintf(&b, "%q", col)
	}
	b.WriteString(") VALUES (")
	for i := range cols {
		if i > 0 {
			b.WriteByte(',')
		}
		fmt.Fprintf(&b, "$%d", i+1)
	}
	b.WriteByte(')')

	if len(keys) > 0 {
		keySet := make(map[string]bool, len(keys))
		b.WriteString(" ON CONFLICT (")
		for i, k := range keys {
			if i > 0 {
				b.WriteByte(',')
			}
			fmt.Fprintf(&b, "%q", k)
			keySet[k] = true
		}
		b.WriteString(") DO UPDATE SET ")
		first := true
		for _, col := range cols {
			if keySet[col] {
				continue
			}
			if !first {
				b.WriteByte(',')
			}
			fmt.Fprintf(&b, "%q=EXCLUDED.%q", col, col)
			first = false
		}
	}
	return b.String()
}

// bindValue reads the row'th value of a series as a bind argument typed
// by the column's declared logical type. JSON-marked text columns bind as
// decoded structured values rather than raw text.
func bindValue(s arrow.Array, declared arrow.DataType, row int, isJSON bool) (interface{}, error) {
	if s.IsNull(row) {
		return nil, nil
	}
	switch dt := declared.(type) {
	case *arrow.BooleanType:
		a, ok := s.(*array.Boolean)
		if !ok {
			return nil, quivererrors.TypeMismatch()
		}
		return a.Value(row), nil
	case *arrow.Int16Type:
		a, ok := s.(*array.Int16)
		if !ok {
			return nil, quivererrors.TypeMismatch()
		}
		return a.Value(row), nil
	case *arrow.Int32Type:
		a, ok := s.(*array.Int32)
		if !ok {
			return nil, quivererrors.TypeMismatch()
		}
		return a.Value(row), nil
	case *arrow.Int64Type:
		a, ok := s.(*array.Int64)
		if !ok {
			return nil, quivererrors.TypeMismatch()
		}
		return a.Value(row), nil
	case *arrow.Float32Type:
		a, ok := s.(*array.Float32)
		if !ok {
			return nil, quivererrors.TypeMismatch()
		}
		return a.Value(row), nil
	case *arrow.Float64Type:
		a, ok := s.(*array.Float64)
		if !ok {
			return nil, quivererrors.TypeMismatch()
		}
		return a.Value(row), nil
	case *arrow.StringType, *arrow.LargeStringType:
		var v string
		switch a := s.(type) {
		case *array.String:
			v = a.Value(row)
		case *array.LargeString:
			v = a.Value(row)
		default:
			return nil, quivererrors.TypeMismatch()
		}
		if isJSON {
			var decoded interface{}
			if err := gojson.Unmarshal([]byte(v), &decoded); err != nil {
				return nil, quivererrors.Wrap(err, quivererrors.ErrorTypeData, "failed to decode json column value")
			}
			return decoded, nil
		}
		return v, nil
	case *arrow.TimestampType:
		var v int64
		switch a := s.(type) {
		case *array.Int64:
			v = a.Value(row)
		case *array.Timestamp:
			v = int64(a.Value(row))
		default:
			return nil, quivererrors.TypeMismatch()
		}
		return timestampToTime(v, dt.Unit), nil
	default:
		return nil, quivererrors.Unimplemented(declared.String())
	}
}

func timestampToTime(v int64, unit arrow.TimeUnit) time.Time {
	switch unit {
	case arrow.Second:
		return time.Unix(v, 0).UTC()
	case arrow.Millisecond:
		return time.UnixMilli(v).UTC()
	case arrow.Microsecond:
		return time.UnixMicro(v).UTC()
	default:
		return time.Unix(v/1_000_000_000, v%1_000_000_000).UTC()
	}
}
