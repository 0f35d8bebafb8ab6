package shard

import (
	"fmt"
	"regexp"
	"testing"
)

var hexKey = regexp.MustCompile(`^[0-9a-f]{32}$`)

func TestRowKey_Format(t *testing.T) {
	key := RowKey("user-1", "org", "dim-1")
	if !hexKey.MatchString(key) {
		t.Errorf("expected 32 hex chars, got %q", key)
	}
}

func TestRowKey_Deterministic(t *testing.T) {
	first := RowKey("user-1", "org", "dim-1")
	for i := 0; i < 100; i++ {
		if result := RowKey("user-1", "org", "dim-1"); result != first {
			t.Errorf("expected deterministic result %q, got %q on iteration %d", first, result, i)
		}
	}
}

func TestRowKey_DifferentInputs(t *testing.T) {
	tests := []struct {
		name string
		a    []string
		b    []string
	}{
		{"different user", []string{"u1", "org", "d1"}, []string{"u2", "org", "d1"}},
		{"different type", []string{"u1", "org", "d1"}, []string{"u1", "role", "d1"}},
		{"different dimension", []string{"u1", "org", "d1"}, []string{"u1", "org", "d2"}},
		{"swapped parts", []string{"u1", "org", "d1"}, []string{"d1", "org", "u1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if RowKey(tt.a...) == RowKey(tt.b...) {
				t.Errorf("expected different keys for %v and %v", tt.a, tt.b)
			}
		})
	}
}

func TestRowKey_NoCollisions(t *testing.T) {
	seen := make(map[string]string)
	for i := 0; i < 1000; i++ {
		in := fmt.Sprintf("user-%d", i)
		key := RowKey(in, "org", "dim")
		if prev, dup := seen[key]; dup {
			t.Fatalf("collision between %q and %q", prev, in)
		}
		seen[key] = in
	}
}

// --- Split Tests ---

func TestSplit_Empty(t *testing.T) {
	if chunks := Split([]string{}, 10); chunks != nil {
		t.Errorf("expected nil for empty input, got %v", chunks)
	}
}

func TestSplit_SingleChunk(t *testing.T) {
	chunks := Split([]string{"a", "b"}, 10)
	if len(chunks) != 1 || len(chunks[0]) != 2 {
		t.Errorf("expected one chunk of 2, got %v", chunks)
	}
}

func TestSplit_ZeroSize(t *testing.T) {
	chunks := Split([]int{1, 2, 3}, 0)
	if len(chunks) != 1 || len(chunks[0]) != 3 {
		t.Errorf("expected one chunk of 3, got %v", chunks)
	}
}

func TestSplit_Uneven(t *testing.T) {
	values := make([]int, 53)
	for i := range values {
		values[i] = i
	}

	chunks := Split(values, 25)
	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(chunks))
	}
	if len(chunks[0]) != 25 || len(chunks[1]) != 25 || len(chunks[2]) != 3 {
		t.Errorf("expected sizes 25/25/3, got %d/%d/%d", len(chunks[0]), len(chunks[1]), len(chunks[2]))
	}
	if chunks[2][2] != 52 {
		t.Errorf("expected last element 52, got %d", chunks[2][2])
	}
}
