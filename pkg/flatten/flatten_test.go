package flatten

import (
	"math/rand"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func concat[T any](chunks [][]T) []T {
	out := []T{}
	for _, c := range chunks {
		out = append(out, c...)
	}
	return out
}

func TestFlatten(t *testing.T) {
	tests := []struct {
		name   string
		chunks [][]int
	}{
		{name: "no chunks", chunks: nil},
		{name: "only empty chunks", chunks: [][]int{{}, nil, {}}},
		{name: "single chunk", chunks: [][]int{{1, 2, 3}}},
		{name: "many chunks", chunks: [][]int{{1}, {2, 3}, {4, 5, 6}}},
		{name: "interleaved empties", chunks: [][]int{{}, {1, 2}, nil, {3}, {}, {4, 5}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Flatten(tt.chunks)
			require.NotNil(t, got)
			assert.Equal(t, concat(tt.chunks), got)
		})
	}
}

func TestFlattenCopies(t *testing.T) {
	src := [][]string{{"a"}, {"b"}}
	got := Flatten(src)
	src[0][0] = "z"
	assert.Equal(t, []string{"a", "b"}, got)
}

func TestFlattenRandomPartitions(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for round := 0; round < 50; round++ {
		chunks := make([][]string, rng.Intn(20))
		for i := range chunks {
			chunks[i] = make([]string, rng.Intn(30))
			for j := range chunks[i] {
				chunks[i][j] = strconv.Itoa(round*10000 + i*100 + j)
			}
		}
		assert.Equal(t, concat(chunks), Flatten(chunks))
	}
}

func BenchmarkFlatten(b *testing.B) {
	chunks := make([][]uint32, 64)
	for i := range chunks {
		chunks[i] = make([]uint32, 16384)
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = Flatten(chunks)
	}
}
