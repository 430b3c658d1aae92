package columnar

import (
	"bufio"
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"
	"github.com/goccy/go-json"
	"github.com/linkedin/goavro/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/velo/pkg/compression"
	"github.com/ajitpratap0/velo/pkg/field"
	"github.com/ajitpratap0/velo/pkg/table"
)

type kind uint8

func (k kind) String() string { return [...]string{"a", "b", "c", "unknown"}[k] }

var decodeKind = field.Codes(map[string]kind{"0": 0, "1": 1, "2": 2}, 3)

const input = "id,name,color,when,date,lat,kind\n" +
	"1,Main,FF0000,08:00:00,20240101,45.5,1\n" +
	"2,Second,,,,,0\n" +
	"3,\"Third, St\",00FF00,25:00:00,20241231,-1.25,2\n"

func sampleTable(t *testing.T) *table.Table {
	t.Helper()
	s := table.NewSchema("sample",
		table.Required("id", field.Uint32),
		table.Required("name", field.StringView),
		table.Optional("color", field.HexColor),
		table.Optional("when", field.HHMMSS),
		table.Optional("date", field.YYYYMMDD),
		table.Optional("lat", field.OptionalFloat32),
		table.Optional("kind", decodeKind),
		table.Optional("missing", field.Int32),
	)
	tbl, err := table.NewParser(s, table.DefaultConfig(), nil).Parse(context.Background(), []byte(input))
	require.NoError(t, err)
	return tbl
}

func TestVectors(t *testing.T) {
	vecs, err := Vectors(sampleTable(t))
	require.NoError(t, err)
	require.Len(t, vecs, 7, "absent columns are skipped")

	kinds := map[string]Kind{}
	for _, v := range vecs {
		kinds[v.Name] = v.Kind
		assert.Equal(t, 3, v.Len)
	}
	assert.Equal(t, map[string]Kind{
		"id": KindInt64, "name": KindString, "color": KindString, "when": KindInt64,
		"date": KindDate, "lat": KindFloat64, "kind": KindString,
	}, kinds)

	assert.Equal(t, int64(1), vecs[0].Value(0))
	assert.Equal(t, "FF0000", vecs[2].Value(0))
	assert.Nil(t, vecs[2].Value(1))
	assert.Equal(t, int64(25*3600), vecs[3].Value(2))
	assert.Equal(t, time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC), vecs[4].Value(2))
	assert.Equal(t, "b", vecs[6].Value(0))
	assert.False(t, vecs[1].Nullable)
	assert.True(t, vecs[5].Nullable)
}

func TestVectorsUnsupportedType(t *testing.T) {
	s := table.NewSchema("odd", table.Required("x", func(b []byte) (struct{ A int }, error) {
		return struct{ A int }{len(b)}, nil
	}))
	tbl, err := table.NewParser(s, table.DefaultConfig(), nil).Parse(context.Background(), []byte("x\n1\n"))
	require.NoError(t, err)

	_, err = Write(&bytes.Buffer{}, JSON, tbl, Options{})
	assert.Error(t, err)
}

func TestWriteArrow(t *testing.T) {
	var buf bytes.Buffer
	stats, err := Write(&buf, Arrow, sampleTable(t), Options{BatchSize: 2, Compression: "zstd"})
	require.NoError(t, err)
	assert.Equal(t, int64(3), stats.Rows)
	assert.Equal(t, 2, stats.Batches)
	assert.Equal(t, int64(buf.Len()), stats.Bytes)

	r, err := ipc.NewFileReader(bytes.NewReader(buf.Bytes()), ipc.WithAllocator(memory.NewGoAllocator()))
	require.NoError(t, err)
	defer r.Close()

	assert.Equal(t, 2, r.NumRecords())
	assert.GreaterOrEqual(t, r.Schema().Metadata().FindKey(TableMetadataKey), 0)

	rec, err := r.Record(0)
	require.NoError(t, err)
	ids := rec.Column(0).(*array.Int64)
	assert.Equal(t, []int64{1, 2}, ids.Int64Values())
	colors := rec.Column(2).(*array.String)
	assert.Equal(t, "FF0000", colors.Value(0))
	assert.True(t, colors.IsNull(1))
	dates := rec.Column(4).(*array.Date32)
	assert.Equal(t, arrow.Date32FromTime(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)), dates.Value(0))
}

func TestWriteParquet(t *testing.T) {
	for _, codec := range []string{"", "none", "gzip", "zstd"} {
		var buf bytes.Buffer
		stats, err := Write(&buf, Parquet, sampleTable(t), Options{Compression: codec})
		require.NoError(t, err, codec)
		assert.Equal(t, int64(3), stats.Rows)

		tbl, err := pqarrow.ReadTable(context.Background(), bytes.NewReader(buf.Bytes()), nil,
			pqarrow.ArrowReadProperties{}, memory.NewGoAllocator())
		require.NoError(t, err, codec)
		assert.Equal(t, int64(3), tbl.NumRows())
		assert.Equal(t, "name", tbl.Schema().Field(1).Name)
		tbl.Release()
	}

	_, err := Write(&bytes.Buffer{}, Parquet, sampleTable(t), Options{Compression: "deflate"})
	assert.Error(t, err)
}

func TestWriteAvro(t *testing.T) {
	var buf bytes.Buffer
	_, err := Write(&buf, Avro, sampleTable(t), Options{Compression: "snappy"})
	require.NoError(t, err)

	r, err := goavro.NewOCFReader(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	var rows []map[string]any
	for r.Scan() {
		datum, err := r.Read()
		require.NoError(t, err)
		rows = append(rows, datum.(map[string]any))
	}
	require.Len(t, rows, 3)
	assert.Equal(t, int64(1), rows[0]["id"])
	assert.Equal(t, map[string]any{"string": "FF0000"}, rows[0]["color"])
	assert.Nil(t, rows[1]["color"])
	assert.Equal(t, "b", rows[0]["kind"], "enums are not nullable")
	assert.Equal(t, "Third, St", rows[2]["name"])
}

func TestAvroSchemaName(t *testing.T) {
	assert.Equal(t, "stop_times", avroName("stop_times"))
	assert.Equal(t, "_1_feed", avroName("1-feed"))
	assert.Equal(t, "table", avroName(""))
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	_, err := Write(&buf, JSON, sampleTable(t), Options{Compression: "gzip"})
	require.NoError(t, err)

	raw, err := compression.Decompress(compression.Gzip, buf.Bytes())
	require.NoError(t, err)

	var rows []map[string]any
	sc := bufio.NewScanner(bytes.NewReader(raw))
	for sc.Scan() {
		var row map[string]any
		require.NoError(t, json.Unmarshal(sc.Bytes(), &row))
		rows = append(rows, row)
	}
	require.Len(t, rows, 3)
	assert.Equal(t, float64(28800), rows[0]["when"])
	assert.Equal(t, "2024-01-01", rows[0]["date"])
	assert.Nil(t, rows[1]["date"])
	assert.Contains(t, rows[1], "lat")
	assert.Equal(t, "c", rows[2]["kind"])
}

func TestWriteEmptyTable(t *testing.T) {
	s := table.NewSchema("empty", table.Required("id", field.Int64))
	tbl, err := table.NewParser(s, table.DefaultConfig(), nil).Parse(context.Background(), []byte("id\n"))
	require.NoError(t, err)

	for _, f := range []Format{Arrow, Parquet, Avro, JSON} {
		var buf bytes.Buffer
		stats, err := Write(&buf, f, tbl, Options{})
		require.NoError(t, err, f)
		assert.Zero(t, stats.Rows)
		assert.Zero(t, stats.Batches)
	}
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("NDJSON")
	require.NoError(t, err)
	assert.Equal(t, JSON, f)
	_, err = ParseFormat("orc")
	assert.Error(t, err)

	f, ok := FormatFromPath("out/stops.parquet")
	assert.True(t, ok)
	assert.Equal(t, Parquet, f)
	_, ok = FormatFromPath("stops.csv")
	assert.False(t, ok)

	assert.Equal(t, ".arrow", GetFormatInfo(Arrow).FileExtension)
	assert.Nil(t, GetFormatInfo("orc"))
}

func BenchmarkWriteParquet(b *testing.B) {
	var sb bytes.Buffer
	sb.WriteString("id,name,when\n")
	for i := 0; i < 100000; i++ {
		sb.WriteString("1,stop name,08:00:00\n")
	}
	s := table.NewSchema("bench",
		table.Required("id", field.Int64),
		table.Required("name", field.StringView),
		table.Optional("when", field.HHMMSS),
	)
	tbl, err := table.NewParser(s, table.DefaultConfig(), nil).Parse(context.Background(), sb.Bytes())
	if err != nil {
		b.Fatal(err)
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := Write(&bytes.Buffer{}, Parquet, tbl, Options{}); err != nil {
			b.Fatal(err)
		}
	}
}
