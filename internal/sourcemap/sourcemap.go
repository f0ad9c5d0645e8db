// Package sourcemap maps printed WGSL back to the source it was parsed from.
//
// Maps follow the Source Map v3 format (https://sourcemaps.info/spec.html).
// Columns in the encoded map count UTF-16 code units.
package sourcemap

import (
	"encoding/base64"
	"encoding/json"
	"strings"
	"unicode/utf8"

	"github.com/pkg/errors"

	"github.com/HugoDaniel/rewgsl/internal/diagnostic"
)

// SourceMap is a v3 source map for a single source.
type SourceMap struct {
	Version        int      `json:"version"`
	File           string   `json:"file,omitempty"`
	Sources        []string `json:"sources"`
	SourcesContent []string `json:"sourcesContent,omitempty"`
	Names          []string `json:"names"`
	Mappings       string   `json:"mappings"`
}

// Mapping is one decoded segment. Lines and columns are 0-indexed.
type Mapping struct {
	GenLine   int
	GenCol    int
	SrcLine   int
	SrcCol    int
	NameIndex int // -1 when the segment has no name
}

// Generator collects mappings while code is printed. Mappings must be
// added in output order.
type Generator struct {
	lines      *diagnostic.LineIndex
	source     string
	sourceName string
	file       string
	content    bool

	// cover maps lines that received no mapping to the last source
	// position, which Mozilla's source-map library needs to resolve them.
	cover bool

	mappings []Mapping
	names    []string
	nameIdx  map[string]int
}

// NewGenerator creates a generator for output printed from source.
func NewGenerator(source string) *Generator {
	return &Generator{
		lines:   diagnostic.NewLineIndex(source),
		source:  source,
		cover:   true,
		nameIdx: map[string]int{},
	}
}

func (g *Generator) SetFile(file string)       { g.file = file }
func (g *Generator) SetSourceName(name string) { g.sourceName = name }

// IncludeSourceContent embeds the source text in the map.
func (g *Generator) IncludeSourceContent(include bool) { g.content = include }

// SetCoverLinesWithoutMappings turns the column 0 coverage of unmapped
// lines on or off. It is on by default.
func (g *Generator) SetCoverLinesWithoutMappings(cover bool) { g.cover = cover }

// AddMapping maps the output position (genLine, genCol) to the byte
// offset srcOffset of the source. name is the original identifier, or "".
func (g *Generator) AddMapping(genLine, genCol, srcOffset int, name string) {
	line, byteCol := g.lines.ByteOffsetToLineColumn(srcOffset)
	m := Mapping{
		GenLine:   genLine,
		GenCol:    genCol,
		SrcLine:   line,
		SrcCol:    utf16Len(g.lines.Line(line), byteCol),
		NameIndex: -1,
	}
	if name != "" {
		idx, ok := g.nameIdx[name]
		if !ok {
			idx = len(g.names)
			g.nameIdx[name] = idx
			g.names = append(g.names, name)
		}
		m.NameIndex = idx
	}
	g.mappings = append(g.mappings, m)
}

// Generate returns the map of everything added so far.
func (g *Generator) Generate() *SourceMap {
	sm := &SourceMap{
		Version:  3,
		File:     g.file,
		Sources:  []string{},
		Names:    append([]string{}, g.names...),
		Mappings: g.encode(),
	}
	if g.sourceName != "" {
		sm.Sources = []string{g.sourceName}
	}
	if g.content {
		sm.SourcesContent = []string{g.source}
	}
	return sm
}

// encoder writes segments delta encoded against the previous one. The
// generated column restarts at every line.
type encoder struct {
	buf                          []byte
	genCol, srcLine, srcCol, nam int
}

func (e *encoder) segment(m Mapping, first bool) {
	if !first {
		e.buf = append(e.buf, ',')
	}
	e.buf = appendVLQ(e.buf, m.GenCol-e.genCol)
	e.buf = appendVLQ(e.buf, 0) // single source
	e.buf = appendVLQ(e.buf, m.SrcLine-e.srcLine)
	e.buf = appendVLQ(e.buf, m.SrcCol-e.srcCol)
	e.genCol, e.srcLine, e.srcCol = m.GenCol, m.SrcLine, m.SrcCol
	if m.NameIndex >= 0 {
		e.buf = appendVLQ(e.buf, m.NameIndex-e.nam)
		e.nam = m.NameIndex
	}
}

func (g *Generator) encode() string {
	var e encoder
	line := 0
	first := true
	var last *Mapping
	for i := range g.mappings {
		m := &g.mappings[i]
		for line < m.GenLine {
			e.buf = append(e.buf, ';')
			line++
			e.genCol = 0
			first = true
			if line < m.GenLine && g.cover && last != nil {
				e.segment(Mapping{SrcLine: last.SrcLine, SrcCol: last.SrcCol, NameIndex: -1}, true)
				first = false
			}
		}
		e.segment(*m, first)
		first = false
		last = m
	}
	return string(e.buf)
}

// ToJSON returns the map as JSON.
func (sm *SourceMap) ToJSON() string {
	data, _ := json.Marshal(sm)
	return string(data)
}

// ToDataURI returns the map as a base64 data URI.
func (sm *SourceMap) ToDataURI() string {
	return "data:application/json;base64," + base64.StdEncoding.EncodeToString([]byte(sm.ToJSON()))
}

// ToComment returns the line that links printed code to its map, either
// inline or as File+".map".
func (sm *SourceMap) ToComment(inline bool) string {
	if inline {
		return "//# sourceMappingURL=" + sm.ToDataURI()
	}
	return "//# sourceMappingURL=" + sm.File + ".map"
}

// DecodeMappings decodes a mappings string into absolute positions.
func DecodeMappings(mappings string) ([]Mapping, error) {
	var out []Mapping
	var srcLine, srcCol, name int
	for genLine, group := range strings.Split(mappings, ";") {
		genCol := 0
		for _, seg := range strings.Split(group, ",") {
			if seg == "" {
				continue
			}
			var fields []int
			for pos := 0; pos < len(seg); {
				v, n, err := readVLQ(seg[pos:])
				if err != nil {
					return nil, errors.Wrapf(err, "line %d segment %q", genLine, seg)
				}
				fields = append(fields, v)
				pos += n
			}
			switch len(fields) {
			case 1, 4, 5:
			default:
				return nil, errors.Errorf("line %d segment %q has %d fields", genLine, seg, len(fields))
			}
			genCol += fields[0]
			m := Mapping{GenLine: genLine, GenCol: genCol, NameIndex: -1}
			if len(fields) >= 4 {
				srcLine += fields[2]
				srcCol += fields[3]
				m.SrcLine, m.SrcCol = srcLine, srcCol
			}
			if len(fields) == 5 {
				name += fields[4]
				m.NameIndex = name
			}
			out = append(out, m)
		}
	}
	return out, nil
}

// utf16Len returns the length in UTF-16 code units of the first n bytes
// of s.
func utf16Len(s string, n int) int {
	if n > len(s) {
		n = len(s)
	}
	units := 0
	for _, r := range s[:n] {
		if r >= 0x10000 && r <= utf8.MaxRune {
			units += 2
		} else {
			units++
		}
	}
	return units
}
