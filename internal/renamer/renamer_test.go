package renamer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAlphabetName(t *testing.T) {
	a := DefaultAlphabet()
	for n, want := range map[int]string{
		0:   "a",
		25:  "z",
		26:  "A",
		51:  "Z",
		52:  "aa",
		53:  "ba",
		114: "kb",
	} {
		assert.Equal(t, want, a.Name(n), "Name(%d)", n)
	}
}

func TestAlphabetNamesAreUniqueIdentifiers(t *testing.T) {
	a := DefaultAlphabet()
	seen := make(map[string]bool)
	for n := 0; n < 5000; n++ {
		name := a.Name(n)
		require.False(t, seen[name], "Name(%d) = %q repeats", n, name)
		seen[name] = true
		assert.NotContains(t, "0123456789", name[:1], "Name(%d) starts with a digit", n)
	}
}

func TestAlphabetReorder(t *testing.T) {
	var freq CharFreq
	freq.Scan("zzzz9999yy", 1)
	a := DefaultAlphabet().Reorder(freq)

	assert.Equal(t, "z", a.Name(0))
	assert.Equal(t, "y", a.Name(1))
	assert.Equal(t, "a", a.Name(2))
	// digits move up in the tail but never lead a name
	assert.Equal(t, "z9", a.Name(len(a.head)*2))
}

func TestCharFreqScan(t *testing.T) {
	var freq CharFreq
	freq.Scan("aB3_a-", 1)
	freq.Scan("a", -1)

	assert.Equal(t, int32(1), freq[charIndex('a')])
	assert.Equal(t, int32(1), freq[charIndex('B')])
	assert.Equal(t, int32(1), freq[charIndex('3')])
	assert.Equal(t, int32(1), freq[charIndex('_')])
	assert.Equal(t, -1, charIndex('-'))
}

func TestMinifyRenamer(t *testing.T) {
	r := NewMinifyRenamer(
		map[string]uint32{"rare": 1, "common": 5, "middle": 3},
		map[string]bool{"b": true},
		DefaultAlphabet())

	for in, want := range map[string]string{
		"common":  "a",
		"middle":  "c",
		"rare":    "d",
		"unknown": "unknown",
	} {
		assert.Equal(t, want, r.NameFor(in), "NameFor(%q)", in)
	}
}

func TestMinifyRenamerTiesAreDeterministic(t *testing.T) {
	for i := 0; i < 10; i++ {
		r := NewMinifyRenamer(map[string]uint32{"zeta": 2, "alpha": 2, "mid": 2}, nil, DefaultAlphabet())
		require.Equal(t, []string{"a", "b", "c"},
			[]string{r.NameFor("alpha"), r.NameFor("mid"), r.NameFor("zeta")})
	}
}

func TestKeywordRenamer(t *testing.T) {
	r := NewKeywordRenamer([]string{"float", "float_1", "color", "main"}, BackendKeywords())

	assert.Equal(t, "float_2", r.NameFor("float"))
	assert.Equal(t, "main_1", r.NameFor("main"))
	assert.Equal(t, "color", r.NameFor("color"))
	assert.Equal(t, "float_1", r.NameFor("float_1"))
}

func TestReservedNames(t *testing.T) {
	reserved := ReservedNames()
	for _, name := range []string{"fn", "let", "_", "vec4f", "texture_2d", "storage", "read_write", "rgba8unorm"} {
		assert.True(t, reserved[name], "%q should be reserved", name)
	}
	assert.False(t, reserved["a"])
}

func BenchmarkAlphabetName(b *testing.B) {
	a := DefaultAlphabet()
	for i := 0; i < b.N; i++ {
		_ = a.Name(i % 10000)
	}
}
