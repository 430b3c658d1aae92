// Package velo parses CSV buffers against declared schemas into typed,
// columnar tables, decoding record-aligned chunks of one buffer in parallel.
//
// # Architecture
//
// A parse runs in four steps:
//
// 1. Header resolution: the first line is tokenized and every schema column
// is located by name. A missing required column fails the parse.
//
// 2. Chunk splitting: the data region is cut into chunks of roughly
// ChunkSize bytes that always end on a record boundary, quotes included.
//
// 3. Chunk decoding: every chunk is tokenized into a record store and each
// resolved column is decoded into a typed slice, chunks concurrently.
//
// 4. Merge: per-chunk slices of every column are flattened in parallel into
// one slice per column. An optional column that failed in any chunk is
// dropped from the whole table.
//
// The result never depends on ChunkSize or the worker count.
//
// # Quick Start
//
//	import (
//	    "context"
//	    "github.com/ajitpratap0/velo/pkg/field"
//	    "github.com/ajitpratap0/velo/pkg/table"
//	)
//
//	schema := table.NewSchema("stops",
//	    table.Required("stop_id", field.StringView),
//	    table.Optional("stop_lat", field.OptionalFloat32),
//	)
//	tbl, err := table.NewParser(schema, table.DefaultConfig(), logger).Parse(ctx, buf)
//	ids, _ := table.Values[string](tbl, "stop_id")
//
// # Key Packages
//
//	pkg/csv                   - Tokenizer, chunk splitter, record store, header
//	pkg/field                 - Field decoders and code tables
//	pkg/flatten               - Parallel flatten of chunked columns
//	pkg/table                 - Schemas and the parallel parse pipeline
//	pkg/gtfs                  - Transit feed schemas with per-file isolation
//	pkg/source                - Directory, zip, mmap, S3 and GCS buffer sources
//	pkg/formats/columnar      - Arrow IPC, Parquet, Avro and JSON export
//	pkg/destinations/postgres - COPY into PostgreSQL
//	internal/pipeline         - Multi-feed batch runs
//	cmd/velo                  - Command line interface
//
// # Configuration
//
// The CLI reads an optional YAML file (--config) with ${VAR_NAME}
// substitution, then VELO_* environment variables, then flags:
//
//	velo stats ./feeds --chunk-size 65536 --workers 8
//	VELO_MMAP=true velo export ./ttc --file stop_times --format parquet -o st.parquet
//
// # Development
//
//	go test ./...
//	go test -bench . ./pkg/table ./pkg/csv
package velo
