// Package renamer picks new names for the declarations of a module.
//
// The minifying renamer hands the shortest names to the most used
// declarations over an alphabet ordered by character frequency. The
// keyword renamer only moves names that collide with a backend keyword.
//
// Renaming is by spelling: every symbol with the same name gets the same
// new name, so struct members and the variables sharing their name stay
// consistent.
package renamer

import (
	"sort"
	"strconv"

	"github.com/HugoDaniel/rewgsl/internal/lexer"
)

// Renamer provides new names for old ones.
type Renamer interface {
	// NameFor returns the new spelling of name, or name itself.
	NameFor(name string) string
}

// ----------------------------------------------------------------------------
// Minify Renamer
// ----------------------------------------------------------------------------

// MinifyRenamer gives the most used names the shortest spellings.
type MinifyRenamer struct {
	names map[string]string
}

// NewMinifyRenamer assigns a name from alphabet to every name in uses,
// in order of decreasing use count. Ties go by name so the result does
// not depend on map order. No name in reserved is handed out.
func NewMinifyRenamer(uses map[string]uint32, reserved map[string]bool, alphabet *Alphabet) *MinifyRenamer {
	type slot struct {
		name  string
		count uint32
	}
	slots := make([]slot, 0, len(uses))
	for name, count := range uses {
		slots = append(slots, slot{name, count})
	}
	sort.Slice(slots, func(i, j int) bool {
		if slots[i].count != slots[j].count {
			return slots[i].count > slots[j].count
		}
		return slots[i].name < slots[j].name
	})

	r := &MinifyRenamer{names: make(map[string]string, len(slots))}
	next := 0
	for _, s := range slots {
		name := alphabet.Name(next)
		for reserved[name] {
			next++
			name = alphabet.Name(next)
		}
		r.names[s.name] = name
		next++
	}
	return r
}

func (r *MinifyRenamer) NameFor(name string) string {
	if n, ok := r.names[name]; ok {
		return n
	}
	return name
}

// ----------------------------------------------------------------------------
// Keyword Renamer
// ----------------------------------------------------------------------------

// KeywordRenamer renames only the names that are keywords of a backend
// language, appending a numeric suffix.
type KeywordRenamer struct {
	names map[string]string
}

// NewKeywordRenamer renames every name in declared that is in keywords.
// The new names do not collide with anything in declared.
func NewKeywordRenamer(declared []string, keywords map[string]bool) *KeywordRenamer {
	taken := make(map[string]bool, len(declared))
	for _, n := range declared {
		taken[n] = true
	}
	sorted := append([]string(nil), declared...)
	sort.Strings(sorted)

	r := &KeywordRenamer{names: make(map[string]string)}
	for _, n := range sorted {
		if !keywords[n] {
			continue
		}
		for i := 1; ; i++ {
			candidate := n + "_" + strconv.Itoa(i)
			if !taken[candidate] {
				taken[candidate] = true
				r.names[n] = candidate
				break
			}
		}
	}
	return r
}

// NameFor returns the new name for a keyword, or name itself.
func (r *KeywordRenamer) NameFor(name string) string {
	if n, ok := r.names[name]; ok {
		return n
	}
	return name
}

// BackendKeywords returns identifiers that are legal in WGSL but are
// keywords or predefined names in HLSL, MSL or GLSL.
func BackendKeywords() map[string]bool {
	words := []string{
		// scalar and vector spellings
		"int", "uint", "float", "half", "double", "char", "short", "long",
		"signed", "unsigned", "void", "bool2", "bool3", "bool4",
		"int2", "int3", "int4", "uint2", "uint3", "uint4",
		"float2", "float3", "float4", "half2", "half3", "half4",
		"float2x2", "float3x3", "float4x4", "ivec2", "ivec3", "ivec4",
		"uvec2", "uvec3", "uvec4", "bvec2", "bvec3", "bvec4",
		"mat2", "mat3", "mat4", "dmat2", "dmat3", "dmat4",
		// storage and qualifiers
		"in", "out", "inout", "buffer", "cbuffer", "tbuffer", "device",
		"constant", "thread", "threadgroup", "kernel", "vertex", "fragment",
		"sample", "centroid", "flat", "invariant", "uniform", "input", "output",
		"sampler2D", "sampler3D", "samplerCube", "texture2d", "texture3d",
		"Texture2D", "Texture3D", "RWTexture2D", "SamplerState", "RWBuffer",
		"StructuredBuffer", "RWStructuredBuffer", "ByteAddressBuffer",
		// predefined functions with clashing names
		"main", "lerp", "saturate", "frac", "mul", "rsqrt", "atan2", "fmod",
		"ddx", "ddy", "clip", "asuint", "asint", "asfloat", "texture",
		"gl_Position", "gl_FragCoord", "gl_VertexID", "gl_InstanceID",
	}
	out := make(map[string]bool, len(words))
	for _, w := range words {
		out[w] = true
	}
	return out
}

// ----------------------------------------------------------------------------
// Name Generation
// ----------------------------------------------------------------------------

// Alphabet spells the n-th short name. Names start with a letter; later
// characters may also be digits.
type Alphabet struct {
	head string
	tail string
}

func DefaultAlphabet() *Alphabet {
	const letters = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"
	return &Alphabet{head: letters, tail: letters + "0123456789"}
}

// Name returns the n-th name: a, b, ..., Z, aa, ba, ...
func (a *Alphabet) Name(n int) string {
	out := []byte{a.head[n%len(a.head)]}
	n /= len(a.head)
	for n > 0 {
		n--
		out = append(out, a.tail[n%len(a.tail)])
		n /= len(a.tail)
	}
	return string(out)
}

// Reorder returns an alphabet whose most frequent characters in freq
// come first, so the output compresses better. Equal counts keep their
// current order.
func (a *Alphabet) Reorder(freq CharFreq) *Alphabet {
	chars := []byte(a.tail)
	sort.SliceStable(chars, func(i, j int) bool {
		return freq[charIndex(chars[i])] > freq[charIndex(chars[j])]
	})
	head := make([]byte, 0, len(a.head))
	for _, c := range chars {
		if c < '0' || c > '9' {
			head = append(head, c)
		}
	}
	return &Alphabet{head: string(head), tail: string(chars)}
}

// ----------------------------------------------------------------------------
// Character Frequency Analysis
// ----------------------------------------------------------------------------

// CharFreq is a histogram of character frequencies.
type CharFreq [64]int32

func charIndex(c byte) int {
	switch {
	case c >= 'a' && c <= 'z':
		return int(c - 'a')
	case c >= 'A' && c <= 'Z':
		return int(c - 'A' + 26)
	case c >= '0' && c <= '9':
		return int(c - '0' + 52)
	case c == '_':
		return 62
	}
	return -1
}

// Scan accumulates character frequencies from text.
func (freq *CharFreq) Scan(text string, delta int32) {
	for i := 0; i < len(text); i++ {
		if idx := charIndex(text[i]); idx >= 0 {
			freq[idx] += delta
		}
	}
}

// ----------------------------------------------------------------------------
// Reserved Names
// ----------------------------------------------------------------------------

// ReservedNames returns the WGSL keywords, reserved words and predeclared
// names. None of them may be handed out as a new name.
func ReservedNames() map[string]bool {
	reserved := make(map[string]bool)

	// WGSL keywords
	for kw := range lexer.Keywords {
		reserved[kw] = true
	}

	// WGSL reserved words
	for _, word := range lexer.ReservedWords() {
		reserved[word] = true
	}

	// Single underscore is invalid
	reserved["_"] = true

	// Predeclared type names
	builtinTypes := []string{
		"bool", "i32", "u32", "f32", "f16",
		"vec2", "vec3", "vec4",
		"vec2i", "vec3i", "vec4i",
		"vec2u", "vec3u", "vec4u",
		"vec2f", "vec3f", "vec4f",
		"vec2h", "vec3h", "vec4h",
		"mat2x2", "mat2x3", "mat2x4",
		"mat3x2", "mat3x3", "mat3x4",
		"mat4x2", "mat4x3", "mat4x4",
		"mat2x2f", "mat2x3f", "mat2x4f",
		"mat3x2f", "mat3x3f", "mat3x4f",
		"mat4x2f", "mat4x3f", "mat4x4f",
		"mat2x2h", "mat2x3h", "mat2x4h",
		"mat3x2h", "mat3x3h", "mat3x4h",
		"mat4x2h", "mat4x3h", "mat4x4h",
		"array", "ptr", "atomic",
		"sampler", "sampler_comparison",
		"texture_1d", "texture_2d", "texture_2d_array",
		"texture_3d", "texture_cube", "texture_cube_array",
		"texture_multisampled_2d",
		"texture_storage_1d", "texture_storage_2d", "texture_storage_2d_array", "texture_storage_3d",
		"texture_depth_2d", "texture_depth_2d_array", "texture_depth_cube", "texture_depth_cube_array",
		"texture_depth_multisampled_2d",
		"texture_external",
	}
	for _, t := range builtinTypes {
		reserved[t] = true
	}

	// Address spaces
	addressSpaces := []string{"function", "private", "workgroup", "uniform", "storage"}
	for _, s := range addressSpaces {
		reserved[s] = true
	}

	// Access modes
	accessModes := []string{"read", "write", "read_write"}
	for _, m := range accessModes {
		reserved[m] = true
	}

	// Texel formats
	texelFormats := []string{
		"rgba8unorm", "rgba8snorm", "rgba8uint", "rgba8sint",
		"rgba16uint", "rgba16sint", "rgba16float",
		"r32uint", "r32sint", "r32float",
		"rg32uint", "rg32sint", "rg32float",
		"rgba32uint", "rgba32sint", "rgba32float",
		"bgra8unorm",
	}
	for _, f := range texelFormats {
		reserved[f] = true
	}

	return reserved
}
