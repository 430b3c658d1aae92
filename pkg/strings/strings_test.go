package strings

import (
	"fmt"
	"sync"
	"testing"
	"unsafe"
)

func TestBytesToString(t *testing.T) {
	b := []byte("hello world")
	s := BytesToString(b)

	if s != "hello world" {
		t.Errorf("expected 'hello world', got '%s'", s)
	}

	if unsafe.StringData(s) != &b[0] {
		t.Error("expected string to share memory with the slice")
	}

	// Test empty slice
	empty := BytesToString([]byte{})
	if empty != "" {
		t.Errorf("expected empty string, got '%s'", empty)
	}
}

func TestClone(t *testing.T) {
	b := []byte("abc")
	s := Clone(b)
	b[0] = 'x'
	if s != "abc" {
		t.Errorf("clone must not alias its input, got '%s'", s)
	}
}

func TestTrimASCII(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"hello", "hello"},
		{"  hello  ", "hello"},
		{"\t\nhello\r\n", "hello"},
		{"   ", ""},
		{"", ""},
		{" a b ", "a b"},
	}

	for _, test := range tests {
		result := string(TrimASCII([]byte(test.input)))
		if result != test.expected {
			t.Errorf("TrimASCII(%q) = %q, expected %q", test.input, result, test.expected)
		}
	}
}

func TestIntern(t *testing.T) {
	intern := NewIntern()

	s1 := intern.Get([]byte("hello"))
	s2 := intern.Get([]byte("hello"))
	if unsafe.StringData(s1) != unsafe.StringData(s2) {
		t.Error("expected interned strings to share memory")
	}

	intern.Get([]byte("world"))
	if intern.Size() != 2 {
		t.Errorf("expected size 2, got %d", intern.Size())
	}

	intern.Clear()
	if intern.Size() != 0 {
		t.Errorf("expected size 0 after clear, got %d", intern.Size())
	}
}

func TestInternConcurrent(t *testing.T) {
	intern := NewIntern()
	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 1000; i++ {
				intern.Get([]byte(fmt.Sprintf("trip_%d", i%100)))
			}
		}()
	}
	wg.Wait()

	if intern.Size() != 100 {
		t.Errorf("expected 100 distinct strings, got %d", intern.Size())
	}
}

func BenchmarkInternGet(b *testing.B) {
	intern := NewIntern()
	keys := make([][]byte, 256)
	for i := range keys {
		keys[i] = []byte(fmt.Sprintf("stop_%d", i))
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		intern.Get(keys[i%len(keys)])
	}
}
