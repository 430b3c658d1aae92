// Package strings provides zero-copy byte/string conversion and a concurrent
// string interner for decoded column values.
package strings

import (
	"hash/maphash"
	"sync"
	"unsafe"
)

// BytesToString converts a byte slice to a string without allocation.
// WARNING: The returned string shares memory with the byte slice.
// Do not modify the byte slice after calling this function.
func BytesToString(b []byte) string {
	if len(b) == 0 {
		return ""
	}
	return unsafe.String(unsafe.SliceData(b), len(b))
}

// Clone returns a copy of b as a string that owns its memory.
func Clone(b []byte) string {
	if len(b) == 0 {
		return ""
	}
	return string(b)
}

// TrimASCII removes leading and trailing ASCII whitespace.
func TrimASCII(b []byte) []byte {
	start, end := 0, len(b)
	for start < end && isSpace(b[start]) {
		start++
	}
	for end > start && isSpace(b[end-1]) {
		end--
	}
	return b[start:end]
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\v' || c == '\f'
}

const internShards = 32

// Intern deduplicates repeated string values. Identifiers such as trip or
// stop ids repeat across thousands of rows; interning keeps one copy of each.
// It is safe for concurrent use.
type Intern struct {
	seed   maphash.Seed
	shards [internShards]internShard
}

type internShard struct {
	mu      sync.RWMutex
	strings map[string]string
}

// NewIntern creates a new string interner
func NewIntern() *Intern {
	in := &Intern{seed: maphash.MakeSeed()}
	for i := range in.shards {
		in.shards[i].strings = make(map[string]string)
	}
	return in
}

// Get returns the interned copy of b, storing one if b is new.
func (in *Intern) Get(b []byte) string {
	s := &in.shards[maphash.Bytes(in.seed, b)%internShards]

	s.mu.RLock()
	v, ok := s.strings[BytesToString(b)]
	s.mu.RUnlock()
	if ok {
		return v
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if v, ok := s.strings[BytesToString(b)]; ok {
		return v
	}
	v = Clone(b)
	s.strings[v] = v
	return v
}

// Size returns the number of interned strings
func (in *Intern) Size() int {
	n := 0
	for i := range in.shards {
		s := &in.shards[i]
		s.mu.RLock()
		n += len(s.strings)
		s.mu.RUnlock()
	}
	return n
}

// Clear removes all interned strings
func (in *Intern) Clear() {
	for i := range in.shards {
		s := &in.shards[i]
		s.mu.Lock()
		s.strings = make(map[string]string)
		s.mu.Unlock()
	}
}
