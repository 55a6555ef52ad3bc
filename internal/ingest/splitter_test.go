// SPDX-License-Identifier: AGPL-3.0-only
package ingest

import (
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func TestSplitText(t *testing.T) {
	chunks := SplitText("abcdefghij", 4, 2)
	want := []string{"abcd", "cdef", "efgh", "ghij"}
	if len(chunks) != len(want) {
		t.Fatalf("Expected %d chunks, got %d: %v", len(want), len(chunks), chunks)
	}
	for i := range want {
		if chunks[i] != want[i] {
			t.Errorf("Chunk %d: expected %q, got %q", i, want[i], chunks[i])
		}
	}
}

func TestSplitText_ShortInputIsOneChunk(t *testing.T) {
	chunks := SplitText("abc", 1000, 200)
	if len(chunks) != 1 || chunks[0] != "abc" {
		t.Errorf("Expected single chunk %q, got %v", "abc", chunks)
	}
}

func TestSplitText_EmptyInput(t *testing.T) {
	if chunks := SplitText("", 1000, 200); chunks != nil {
		t.Errorf("Expected nil for empty input, got %v", chunks)
	}
}

func TestSplitText_InvalidOverlapIsIgnored(t *testing.T) {
	// overlap >= size would never advance; it falls back to no overlap.
	chunks := SplitText("abcdef", 3, 5)
	want := []string{"abc", "def"}
	if len(chunks) != 2 || chunks[0] != want[0] || chunks[1] != want[1] {
		t.Errorf("Expected %v, got %v", want, chunks)
	}
}

func TestSplitText_MultibyteRunesStayIntact(t *testing.T) {
	text := strings.Repeat("αβγδ", 10)
	for _, chunk := range SplitText(text, 7, 2) {
		for _, r := range chunk {
			if r != 'α' && r != 'β' && r != 'γ' && r != 'δ' {
				t.Fatalf("Chunk %q contains a broken rune", chunk)
			}
		}
	}
}

func TestSplitText_Properties(t *testing.T) {
	properties := gopter.NewProperties(nil)

	inputs := gopter.CombineGens(
		gen.AlphaString(),
		gen.IntRange(1, 50),
		gen.IntRange(0, 49),
	)

	properties.Property("no chunk exceeds size", prop.ForAll(
		func(vals []interface{}) bool {
			text, size, overlap := vals[0].(string), vals[1].(int), vals[2].(int)
			for _, c := range SplitText(text, size, overlap) {
				if len([]rune(c)) > size {
					return false
				}
			}
			return true
		},
		inputs,
	))

	properties.Property("dropping each chunk's overlap reconstructs the input", prop.ForAll(
		func(vals []interface{}) bool {
			text, size, overlap := vals[0].(string), vals[1].(int), vals[2].(int)
			if overlap >= size {
				overlap = 0
			}
			chunks := SplitText(text, size, overlap)
			var b strings.Builder
			for i, c := range chunks {
				runes := []rune(c)
				if i > 0 {
					if len(runes) < overlap {
						runes = nil
					} else {
						runes = runes[overlap:]
					}
				}
				b.WriteString(string(runes))
			}
			return b.String() == text
		},
		inputs,
	))

	properties.TestingRun(t)
}
