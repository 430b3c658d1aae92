package csv

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fieldsOf(t *testing.T, input string) ([]string, int) {
	t.Helper()
	got, next := ParseRecord([]byte(input), 0, nil)
	out := make([]string, len(got))
	for i, f := range got {
		out[i] = string(f)
	}
	return out, next
}

func TestParseRecord(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
		next  int
	}{
		{name: "simple", input: "a,b,c", want: []string{"a", "b", "c"}, next: 5},
		{name: "newline terminates", input: "a,b\nc,d", want: []string{"a", "b"}, next: 4},
		{name: "crlf", input: "a,b\r\nc", want: []string{"a", "b"}, next: 5},
		{name: "lone comma", input: ",", want: []string{"", ""}, next: 1},
		{name: "comma before newline", input: ",\n", want: []string{"", ""}, next: 2},
		{name: "three commas", input: ",,,", want: []string{"", "", "", ""}, next: 3},
		{name: "trailing comma", input: "0,", want: []string{"0", ""}, next: 2},
		{name: "trailing comma crlf", input: "0,\r\n", want: []string{"0", ""}, next: 4},
		{name: "empty middle", input: "a,,b", want: []string{"a", "", "b"}, next: 4},
		{name: "empty quoted with garbage", input: `"" `, want: []string{""}, next: 3},
		{
			name:  "quoted comma and doubled quote",
			input: `1,"this,is a "" test",3`,
			want:  []string{"1", `this,is a "" test`, "3"},
			next:  23,
		},
		{name: "garbage after quote", input: `"ab"cd,e`, want: []string{"ab", "e"}, next: 8},
		{name: "unterminated quote", input: "\"abc\nx", want: []string{"abc"}, next: 5},
		{name: "quoted trailing comma", input: `"a",`, want: []string{"a", ""}, next: 4},
		{name: "empty line", input: "\nabc", want: []string{}, next: 1},
		{name: "empty input", input: "", want: []string{}, next: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, next := fieldsOf(t, tt.input)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.next, next)
		})
	}
}

func TestParseRecordAppends(t *testing.T) {
	buf := []byte("x,y\n1,2\n")
	fields, next := ParseRecord(buf, 0, nil)
	fields, next = ParseRecord(buf, next, fields)
	require.Len(t, fields, 4)
	assert.Equal(t, len(buf), next)
	assert.Equal(t, "2", string(fields[3]))
}

func TestParseRecordZeroCopy(t *testing.T) {
	buf := []byte("hello,world")
	fields, _ := ParseRecord(buf, 0, nil)
	require.Len(t, fields, 2)
	buf[0] = 'J'
	assert.Equal(t, "Jello", string(fields[0]))
}

func TestSplitHeaderAndData(t *testing.T) {
	header, data := SplitHeaderAndData([]byte("a,b\n1,2\n"))
	assert.Equal(t, "a,b", string(header))
	assert.Equal(t, "1,2\n", string(data))

	header, data = SplitHeaderAndData([]byte("a,b"))
	assert.Equal(t, "a,b", string(header))
	assert.Empty(t, data)
}

func TestNextRecordStart(t *testing.T) {
	buf := []byte("ab\ncd\n")
	assert.Equal(t, 3, NextRecordStart(buf, 0))
	assert.Equal(t, 3, NextRecordStart(buf, 2))
	assert.Equal(t, 6, NextRecordStart(buf, 3))
	assert.Equal(t, 6, NextRecordStart(buf, 6))
	assert.Equal(t, 6, NextRecordStart(buf, 10))
}

func BenchmarkParseRecord(b *testing.B) {
	line := []byte(`12345,"Main St & 5th Ave",45.523064,-122.676483,0,,1` + "\n")
	fields := make([][]byte, 0, 16)
	b.SetBytes(int64(len(line)))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		fields, _ = ParseRecord(line, 0, fields[:0])
	}
}
