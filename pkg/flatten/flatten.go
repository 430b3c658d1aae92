// Package flatten concatenates chunked column arrays into one contiguous
// array, copying each chunk concurrently into its own disjoint range.
package flatten

import "sync"

// Flatten returns chunks[0] ++ chunks[1] ++ ... ++ chunks[n-1]. The result is
// never nil.
func Flatten[T any](chunks [][]T) []T {
	offsets := make([]int, len(chunks)+1)
	for i, c := range chunks {
		offsets[i+1] = offsets[i] + len(c)
	}
	out := make([]T, offsets[len(chunks)])

	switch nonEmpty(chunks) {
	case 0:
		return out
	case 1:
		for i, c := range chunks {
			copy(out[offsets[i]:], c)
		}
		return out
	}

	var wg sync.WaitGroup
	for i, c := range chunks {
		if len(c) == 0 {
			continue
		}
		wg.Add(1)
		go func(dst []T, src []T) {
			defer wg.Done()
			copy(dst, src)
		}(out[offsets[i]:offsets[i+1]], c)
	}
	wg.Wait()
	return out
}

func nonEmpty[T any](chunks [][]T) int {
	n := 0
	for _, c := range chunks {
		if len(c) > 0 {
			n++
		}
	}
	return n
}
