// Package postgres bulk-loads parsed tables into PostgreSQL with COPY.
package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/ajitpratap0/velo/pkg/errors"
	"github.com/ajitpratap0/velo/pkg/formats/columnar"
	"github.com/ajitpratap0/velo/pkg/table"
)

// Conn is the part of pgx CopyTable needs. *pgx.Conn, *pgxpool.Pool and
// pgx.Tx all satisfy it.
type Conn interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error)
}

// Options configures CopyTable.
type Options struct {
	// Schema is the target schema (default "public").
	Schema string
	// Table overrides the target table name (default: the parsed table name).
	Table string
	// Create issues CREATE TABLE IF NOT EXISTS before copying.
	Create bool
	// Truncate empties the target table before copying.
	Truncate bool
	Logger   *zap.Logger
}

// Connect opens a pool for dsn and verifies it with a ping.
func Connect(ctx context.Context, dsn string, maxConns int32) (*pgxpool.Pool, error) {
	if dsn == "" {
		return nil, errors.New(errors.ErrorTypeConfig, "connection string is required")
	}
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "failed to parse PostgreSQL connection string")
	}
	if maxConns > 0 {
		cfg.MaxConns = maxConns
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConnection, "failed to create PostgreSQL connection pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, errors.Wrap(err, errors.ErrorTypeConnection, "PostgreSQL ping failed")
	}
	return pool, nil
}

// CreateTableSQL returns the DDL for a table holding vecs. Columns that can
// hold nulls are nullable; all others are NOT NULL.
func CreateTableSQL(ident pgx.Identifier, vecs []*columnar.Vector) string {
	var sb strings.Builder
	sb.WriteString("CREATE TABLE IF NOT EXISTS ")
	sb.WriteString(ident.Sanitize())
	sb.WriteString(" (\n")
	for i, v := range vecs {
		if i > 0 {
			sb.WriteString(",\n")
		}
		fmt.Fprintf(&sb, "\t%s %s", pgx.Identifier{v.Name}.Sanitize(), columnType(v.Kind))
		if !v.Nullable {
			sb.WriteString(" NOT NULL")
		}
	}
	sb.WriteString("\n)")
	return sb.String()
}

func columnType(k columnar.Kind) string {
	switch k {
	case columnar.KindInt64:
		return "bigint"
	case columnar.KindFloat64:
		return "double precision"
	case columnar.KindBool:
		return "boolean"
	case columnar.KindBinary:
		return "bytea"
	case columnar.KindDate:
		return "date"
	default:
		return "text"
	}
}

// CopyTable streams every row of tbl into PostgreSQL with COPY FROM and
// returns the number of rows copied. Absent optional columns are not copied.
func CopyTable(ctx context.Context, conn Conn, tbl *table.Table, opts Options) (int64, error) {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	if opts.Schema == "" {
		opts.Schema = "public"
	}
	if opts.Table == "" {
		opts.Table = tbl.Name()
	}
	ident := pgx.Identifier{opts.Schema, opts.Table}

	vecs, err := columnar.Vectors(tbl)
	if err != nil {
		return 0, errors.Wrap(err, errors.ErrorTypeFormat, "table cannot be mapped to PostgreSQL columns")
	}

	if opts.Create {
		if _, err := conn.Exec(ctx, CreateTableSQL(ident, vecs)); err != nil {
			return 0, errors.Wrap(err, errors.ErrorTypeConnection, "failed to create table").
				WithDetail("table", ident.Sanitize())
		}
	}
	if opts.Truncate {
		if _, err := conn.Exec(ctx, "TRUNCATE "+ident.Sanitize()); err != nil {
			return 0, errors.Wrap(err, errors.ErrorTypeConnection, "failed to truncate table").
				WithDetail("table", ident.Sanitize())
		}
	}

	columns := make([]string, len(vecs))
	for i, v := range vecs {
		columns[i] = v.Name
	}

	start := time.Now()
	n, err := conn.CopyFrom(ctx, ident, columns, &rowSource{vecs: vecs, rows: tbl.Len(), row: -1})
	if err != nil {
		return n, errors.Wrap(err, errors.ErrorTypeConnection, "COPY failed").
			WithDetail("table", ident.Sanitize()).
			WithDetail("copied", n)
	}
	log.Info("copied table",
		zap.String("table", ident.Sanitize()),
		zap.Int64("rows", n),
		zap.Duration("duration", time.Since(start)),
	)
	return n, nil
}

// rowSource adapts vectors to pgx.CopyFromSource.
type rowSource struct {
	vecs   []*columnar.Vector
	rows   int
	row    int
	values []any
}

func (s *rowSource) Next() bool {
	s.row++
	return s.row < s.rows
}

func (s *rowSource) Values() ([]any, error) {
	if s.values == nil {
		s.values = make([]any, len(s.vecs))
	}
	for j, v := range s.vecs {
		s.values[j] = v.Value(s.row)
	}
	return s.values, nil
}

func (s *rowSource) Err() error { return nil }
