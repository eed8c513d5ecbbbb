package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/quiverdata/quiver/pkg/convert"
	"github.com/quiverdata/quiver/pkg/frame"
	"github.com/quiverdata/quiver/pkg/logger"
	"github.com/quiverdata/quiver/pkg/postgres"
)

var version = "0.1.0"

func main() {
	var logLevel string

	root := &cobra.Command{
		Use:   "quiver",
		Short: "Quiver - columnar frame exchange tool",
		Long: `Quiver moves column-oriented data between Arrow IPC blocks, JSON objects,
and PostgreSQL tables.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return logger.Init(logger.Config{Level: logLevel, Encoding: "console"})
		},
	}
	root.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("Quiver v%s\n", version)
			fmt.Printf("Go version: %s\n", runtime.Version())
			fmt.Printf("OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
		},
	})

	root.AddCommand(newInspectCmd())
	root.AddCommand(newConvertCmd())
	root.AddCommand(newFetchCmd())
	root.AddCommand(newPushCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newInspectCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "inspect <block-file>",
		Short: "Show the schema and contents of an IPC block file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			block, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			f, err := frame.FromIPCBlock(block)
			if err != nil {
				return err
			}
			if asJSON {
				data, err := convert.ToJSON(f)
				if err != nil {
					return err
				}
				fmt.Println(string(data))
				return nil
			}
			fmt.Printf("rows: %d\n", f.Rows())
			fmt.Printf("columns: %d\n", f.Cols())
			for _, fl := range f.Fields() {
				fmt.Printf("  %s: %s\n", fl.Name, fl.Type)
			}
			if len(f.Metadata()) > 0 {
				fmt.Println("metadata:")
				for k, v := range f.Metadata() {
					fmt.Printf("  %s=%s\n", k, v)
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "dump contents as a JSON object")
	return cmd
}

func newConvertCmd() *cobra.Command {
	var mappings []string
	var output string

	cmd := &cobra.Command{
		Use:   "convert <json-file>",
		Short: "Materialize a JSON object into an IPC block file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			parser := convert.NewParser()
			for _, m := range mappings {
				name, typeName, ok := strings.Cut(m, ":")
				if !ok {
					return fmt.Errorf("invalid column mapping %q, want name:type", m)
				}
				dataType, err := parseDataType(typeName)
				if err != nil {
					return err
				}
				parser = parser.WithTypeMapping(name, dataType)
			}
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			f, err := parser.ParseValue(data)
			if err != nil {
				return err
			}
			block, err := f.ToIPCBlock()
			if err != nil {
				return err
			}
			if err := os.WriteFile(output, block, 0o644); err != nil {
				return err
			}
			logger.Get().Info("converted json object",
				zap.String("output", output),
				zap.Int("rows", f.Rows()),
				zap.Int("cols", f.Cols()))
			return nil
		},
	}
	cmd.Flags().StringArrayVarP(&mappings, "column", "c", nil, "declared column as name:type (repeatable)")
	cmd.Flags().StringVarP(&output, "output", "o", "out.arrow", "output block file")
	return cmd
}

func newFetchCmd() *cobra.Command {
	var dsn, query, outDir string
	var chunkSize int

	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Stream a query result into IPC block files",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			db, err := pgxpool.New(ctx, dsn)
			if err != nil {
				return err
			}
			defer db.Close()

			if err := os.MkdirAll(outDir, 0o755); err != nil {
				return err
			}

			stream := postgres.Fetch(ctx, db, query, postgres.FetchOptions{
				ChunkSize: chunkSize,
				Logger:    logger.Get(),
			})
			n := 0
			for f := range stream.Frames {
				block, err := f.ToIPCBlock()
				if err != nil {
					return err
				}
				path := filepath.Join(outDir, fmt.Sprintf("block-%05d.arrow", n))
				if err := os.WriteFile(path, block, 0o644); err != nil {
					return err
				}
				logger.Get().Info("wrote block",
					zap.String("path", path),
					zap.Int("rows", f.Rows()))
				n++
			}
			if err := <-stream.Errors; err != nil {
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&dsn, "dsn", "", "PostgreSQL connection string")
	cmd.Flags().StringVar(&query, "query", "", "query to execute")
	cmd.Flags().StringVarP(&outDir, "out-dir", "o", ".", "directory for block files")
	cmd.Flags().IntVar(&chunkSize, "chunk-size", 0, "approximate bytes per block, 0 for a single block")
	_ = cmd.MarkFlagRequired("dsn")
	_ = cmd.MarkFlagRequired("query")
	return cmd
}

func newPushCmd() *cobra.Command {
	var dsn, paramsFile, table string
	var keys []string

	cmd := &cobra.Command{
		Use:   "push <block-file>",
		Short: "Upsert an IPC block file into a PostgreSQL table",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var params postgres.Params
			if paramsFile != "" {
				data, err := os.ReadFile(paramsFile)
				if err != nil {
					return err
				}
				if err := yaml.Unmarshal(data, &params); err != nil {
					return fmt.Errorf("invalid params file: %w", err)
				}
			}
			if table != "" {
				params.Table = table
			}
			params.Keys = append(params.Keys, keys...)
			if params.Table == "" {
				return fmt.Errorf("no target table, set --table or a params file")
			}

			block, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			f, err := frame.FromIPCBlock(block)
			if err != nil {
				return err
			}

			ctx := context.Background()
			db, err := pgxpool.New(ctx, dsn)
			if err != nil {
				return err
			}
			defer db.Close()

			count, err := postgres.Push(ctx, db, f, params, logger.Get())
			if err != nil {
				return err
			}
			fmt.Printf("pushed %d rows to %s\n", count, params.Table)
			return nil
		},
	}
	cmd.Flags().StringVar(&dsn, "dsn", "", "PostgreSQL connection string")
	cmd.Flags().StringVar(&paramsFile, "params", "", "yaml file with push parameters")
	cmd.Flags().StringVar(&table, "table", "", "target table (overrides params file)")
	cmd.Flags().StringArrayVar(&keys, "key", nil, "key column for upsert (repeatable)")
	_ = cmd.MarkFlagRequired("dsn")
	return cmd
}

func parseDataType(name string) (arrow.DataType, error) {
	switch strings.ToLower(name) {
	case "bool", "boolean":
		return arrow.FixedWidthTypes.Boolean, nil
	case "int8":
		return arrow.PrimitiveTypes.Int8, nil
	case "int16":
		return arrow.PrimitiveTypes.Int16, nil
	case "int32":
		return arrow.PrimitiveTypes.Int32, nil
	case "int64":
		return arrow.PrimitiveTypes.Int64, nil
	case "uint8":
		return arrow.PrimitiveTypes.Uint8, nil
	case "uint16":
		return arrow.PrimitiveTypes.Uint16, nil
	case "uint32":
		return arrow.PrimitiveTypes.Uint32, nil
	case "uint64":
		return arrow.PrimitiveTypes.Uint64, nil
	case "float32":
		return arrow.PrimitiveTypes.Float32, nil
	case "float64":
		return arrow.PrimitiveTypes.Float64, nil
	case "string", "utf8":
		return arrow.BinaryTypes.String, nil
	case "large_string", "large_utf8":
		return arrow.BinaryTypes.LargeString, nil
	default:
		return nil, fmt.Errorf("unsupported column type %q", name)
	}
}
