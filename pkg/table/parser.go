// Package table drives schema-based parsing of a CSV buffer into typed
// columns. A parse resolves the header, splits the data region into
// record-aligned chunks, decodes every chunk concurrently and then merges
// each column concurrently.
package table

import (
	"context"
	"runtime"
	"sync"

	"github.com/spkg/bom"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ajitpratap0/velo/pkg/csv"
	"github.com/ajitpratap0/velo/pkg/errors"
	"github.com/ajitpratap0/velo/pkg/field"
	"github.com/ajitpratap0/velo/pkg/logger"
	"github.com/ajitpratap0/velo/pkg/metrics"
	"github.com/ajitpratap0/velo/pkg/observability"
)

// DefaultChunkSize is the chunk size used by DefaultConfig.
const DefaultChunkSize = csv.DefaultChunkSize

// Config tunes parallelism. It never affects the result.
type Config struct {
	// ChunkSize is the approximate chunk length in bytes. Zero yields one
	// record per chunk.
	ChunkSize int
	// Workers bounds how many chunks decode at once (0 = runtime.NumCPU()).
	Workers int
}

// DefaultConfig returns a 256 KiB chunk size and one worker per CPU.
func DefaultConfig() Config {
	return Config{ChunkSize: DefaultChunkSize, Workers: runtime.NumCPU()}
}

// Parser parses buffers against one schema. It is safe for concurrent use.
type Parser struct {
	schema *Schema
	config Config
	logger *zap.Logger
}

// NewParser creates a parser for schema. A nil logger discards output.
func NewParser(schema *Schema, config Config, log *zap.Logger) *Parser {
	if config.ChunkSize < 0 {
		config.ChunkSize = 0
	}
	if config.Workers <= 0 {
		config.Workers = runtime.NumCPU()
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Parser{
		schema: schema,
		config: config,
		logger: log.With(zap.String("table", schema.name)),
	}
}

// Schema returns the parser's schema.
func (p *Parser) Schema() *Schema { return p.schema }

// chunkResult is the partial table decoded from one chunk.
type chunkResult struct {
	records int
	columns []any   // nil when the column is unresolved or failed
	failed  []error // optional column failures
}

// Parse decodes buf into a Table. buf must stay unmodified for as long as
// the table holds views into it.
//
// ctx carries logging and tracing values only: a parse always runs to
// completion and ignores cancellation.
func (p *Parser) Parse(ctx context.Context, buf []byte) (*Table, error) {
	timer := metrics.NewTimer(p.schema.name)
	ctx, span := observability.StartSpan(ctx, "table.Parse",
		attribute.String("table", p.schema.name),
		attribute.Int("bytes", len(buf)),
	)

	tbl, chunks, err := p.parse(ctx, buf)
	span.SetAttributes(attribute.Int("chunks", chunks))
	if err != nil {
		observability.EndSpan(span, err)
		return nil, err
	}
	span.SetAttributes(attribute.Int("records", tbl.records))
	observability.EndSpan(span, nil)

	elapsed := timer.Stop()
	metrics.RecordsParsed.WithLabelValues(p.schema.name).Add(float64(tbl.records))
	metrics.ChunksParsed.WithLabelValues(p.schema.name).Add(float64(chunks))
	metrics.ParseDuration.WithLabelValues(p.schema.name).Observe(elapsed.Seconds())

	logger.FromContext(ctx, p.logger).Debug("parsed table",
		zap.Int("records", tbl.records),
		zap.Int("chunks", chunks),
		zap.Strings("columns", tbl.Present()),
		zap.Duration("duration", elapsed),
	)
	return tbl, nil
}

func (p *Parser) parse(ctx context.Context, buf []byte) (*Table, int, error) {
	log := logger.FromContext(ctx, p.logger)

	buf = bom.Clean(buf)
	headerLine, data := csv.SplitHeaderAndData(buf)
	resolved, err := Resolve(p.schema, csv.ParseHeader(headerLine))
	if err != nil {
		return nil, 0, err
	}
	for i, c := range p.schema.columns {
		if resolved.indexes[i] < 0 {
			log.Debug("optional column not in header", zap.String("column", c.Name()))
		}
	}

	chunks := csv.SplitChunks(buf, len(buf)-len(data), p.config.ChunkSize)
	log.Debug("split data region",
		zap.Int("bytes", len(data)),
		zap.Int("chunks", len(chunks)),
		zap.Int("chunk_size", p.config.ChunkSize),
	)

	results, err := p.decodeChunks(ctx, buf, chunks, resolved)
	if err != nil {
		return nil, len(chunks), err
	}

	tbl := p.merge(results, resolved)
	p.reportDropped(log, tbl, results, resolved)
	return tbl, len(chunks), nil
}

// decodeChunks tokenizes and decodes every chunk concurrently. The first
// required-column failure stops further chunks from being scheduled.
func (p *Parser) decodeChunks(ctx context.Context, buf []byte, chunks []csv.Range, resolved *Resolved) ([]chunkResult, error) {
	results := make([]chunkResult, len(chunks))

	g, gctx := errgroup.WithContext(context.WithoutCancel(ctx))
	g.SetLimit(p.config.Workers)

	for i, r := range chunks {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			res, err := p.decodeChunk(buf[r.Start:r.End], resolved)
			if err != nil {
				return p.decodeFailure(err, i, r)
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

type columnFailure struct {
	column Column
	err    error
}

func (f *columnFailure) Error() string { return f.err.Error() }
func (f *columnFailure) Unwrap() error { return f.err }

func (p *Parser) decodeChunk(chunk []byte, resolved *Resolved) (chunkResult, error) {
	recs := csv.FromBuffer(chunk)
	res := chunkResult{
		records: recs.Len(),
		columns: make([]any, len(p.schema.columns)),
		failed:  make([]error, len(p.schema.columns)),
	}
	for j, c := range p.schema.columns {
		idx := resolved.indexes[j]
		if idx < 0 {
			continue
		}
		values, err := c.decode(recs, idx)
		if err != nil {
			if c.Required() {
				return chunkResult{}, &columnFailure{column: c, err: err}
			}
			res.failed[j] = err
			continue
		}
		res.columns[j] = values
	}
	return res, nil
}

func (p *Parser) decodeFailure(err error, chunk int, r csv.Range) error {
	typ := errors.ErrorTypeDecode
	if errors.Is(err, field.ErrInvalidUTF8) {
		typ = errors.ErrorTypeInvalidUTF8
	}

	var cf *columnFailure
	errors.As(err, &cf)
	e := errors.Wrap(err, typ, "failed to decode required column "+cf.column.Name()).
		WithDetail("table", p.schema.name).
		WithDetail("column", cf.column.Name()).
		WithDetail("chunk", chunk).
		WithDetail("offset", r.Start)

	var de *field.DecodeError
	if errors.As(err, &de) {
		e.WithDetail("row", de.Row)
	}
	return e
}

// merge flattens each resolved column concurrently, one goroutine per column.
// An optional column survives only if every chunk decoded it.
func (p *Parser) merge(results []chunkResult, resolved *Resolved) *Table {
	cols := p.schema.columns
	tbl := &Table{schema: p.schema, columns: make([]any, len(cols))}
	for _, r := range results {
		tbl.records += r.records
	}

	var wg sync.WaitGroup
	for j, c := range cols {
		if resolved.indexes[j] < 0 {
			continue
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			parts := make([]any, len(results))
			for i := range results {
				if results[i].columns[j] == nil {
					return
				}
				parts[i] = results[i].columns[j]
			}
			tbl.columns[j] = c.merge(parts)
		}()
	}
	wg.Wait()
	return tbl
}

func (p *Parser) reportDropped(log *zap.Logger, tbl *Table, results []chunkResult, resolved *Resolved) {
	for j, c := range p.schema.columns {
		if resolved.indexes[j] < 0 || tbl.columns[j] != nil {
			continue
		}
		for i := range results {
			if err := results[i].failed[j]; err != nil {
				log.Warn("dropping optional column after decode failure",
					zap.String("column", c.Name()),
					zap.Int("chunk", i),
					zap.Error(err),
				)
				break
			}
		}
		metrics.OptionalColumnsDropped.WithLabelValues(p.schema.name, c.Name()).Inc()
	}
}

// ReadHeader returns the column names of buf's first line.
func ReadHeader(buf []byte) ([]string, error) {
	line, _ := csv.SplitHeaderAndData(bom.Clean(buf))
	names, err := csv.ParseHeader(line).Names()
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeInvalidUTF8, "header is not valid utf-8")
	}
	return names, nil
}
