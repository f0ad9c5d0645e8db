package sourcemap

import (
	"encoding/base64"
	"encoding/json"
	"strings"
	"testing"
)

func TestVLQ(t *testing.T) {
	tests := []struct {
		value   int
		encoded string
	}{
		{0, "A"},
		{1, "C"},
		{-1, "D"},
		{15, "e"},
		{16, "gB"},
		{-16, "hB"},
		{1000, "w+B"},
		{123456789, "qxmvrH"},
	}
	for _, tt := range tests {
		if got := string(appendVLQ(nil, tt.value)); got != tt.encoded {
			t.Errorf("appendVLQ(%d): expected %q, got %q", tt.value, tt.encoded, got)
		}
		v, n, err := readVLQ(tt.encoded + "A")
		if err != nil || v != tt.value || n != len(tt.encoded) {
			t.Errorf("readVLQ(%q): got %d, %d, %v", tt.encoded, v, n, err)
		}
	}
}

func TestReadVLQErrors(t *testing.T) {
	for _, input := range []string{"", "g", "!", "gggggggggggggggA"} {
		if _, _, err := readVLQ(input); err == nil {
			t.Errorf("readVLQ(%q): expected an error", input)
		}
	}
}

func TestGenerate(t *testing.T) {
	source := "const a = 1;\nfn f() {\n  let x = a;\n}\n"
	g := NewGenerator(source)
	g.SetFile("out.wgsl")
	g.SetSourceName("in.wgsl")
	g.AddMapping(0, 0, 0, "")
	g.AddMapping(1, 0, 13, "f")
	g.AddMapping(1, 9, 28, "x")
	g.AddMapping(1, 16, 28, "x")

	sm := g.Generate()
	if sm.Version != 3 || sm.File != "out.wgsl" || len(sm.Sources) != 1 || sm.Sources[0] != "in.wgsl" {
		t.Errorf("unexpected header %+v", sm)
	}
	if sm.SourcesContent != nil {
		t.Errorf("expected no sources content, got %v", sm.SourcesContent)
	}
	if strings.Join(sm.Names, ",") != "f,x" {
		t.Errorf("expected names f,x, got %v", sm.Names)
	}
	if sm.Mappings != "AAAA;AACAA,SACMC,OAAAA" {
		t.Errorf("unexpected mappings %q", sm.Mappings)
	}

	decoded, err := DecodeMappings(sm.Mappings)
	if err != nil {
		t.Fatal(err)
	}
	expected := []Mapping{
		{GenLine: 0, GenCol: 0, SrcLine: 0, SrcCol: 0, NameIndex: -1},
		{GenLine: 1, GenCol: 0, SrcLine: 1, SrcCol: 0, NameIndex: 0},
		{GenLine: 1, GenCol: 9, SrcLine: 2, SrcCol: 6, NameIndex: 1},
		{GenLine: 1, GenCol: 16, SrcLine: 2, SrcCol: 6, NameIndex: 1},
	}
	if len(decoded) != len(expected) {
		t.Fatalf("expected %d mappings, got %+v", len(expected), decoded)
	}
	for i := range expected {
		if decoded[i] != expected[i] {
			t.Errorf("mapping %d: expected %+v, got %+v", i, expected[i], decoded[i])
		}
	}
}

func TestCoverLinesWithoutMappings(t *testing.T) {
	source := "fn f() {\n  return;\n}\n"
	for _, cover := range []bool{true, false} {
		g := NewGenerator(source)
		g.SetCoverLinesWithoutMappings(cover)
		g.AddMapping(0, 0, 0, "")
		g.AddMapping(3, 4, 11, "")

		decoded, err := DecodeMappings(g.Generate().Mappings)
		if err != nil {
			t.Fatal(err)
		}
		lines := map[int]bool{}
		for _, m := range decoded {
			lines[m.GenLine] = true
		}
		if lines[1] != cover || lines[2] != cover {
			t.Errorf("cover=%v: mapped lines %v", cover, lines)
		}
		last := decoded[len(decoded)-1]
		if last.GenLine != 3 || last.GenCol != 4 || last.SrcLine != 1 || last.SrcCol != 2 {
			t.Errorf("cover=%v: unexpected last mapping %+v", cover, last)
		}
	}
}

func TestUTF16Columns(t *testing.T) {
	// 'é' is two UTF-8 bytes and one UTF-16 unit, '😀' is four bytes and two units
	source := "// é😀\nconst a = 1;"
	g := NewGenerator(source)
	g.AddMapping(0, 0, len("// é😀"), "")
	g.AddMapping(1, 0, len("// é😀\nconst "), "")

	decoded, err := DecodeMappings(g.Generate().Mappings)
	if err != nil {
		t.Fatal(err)
	}
	if decoded[0].SrcCol != 6 {
		t.Errorf("expected column 6, got %d", decoded[0].SrcCol)
	}
	if decoded[1].SrcLine != 1 || decoded[1].SrcCol != 6 {
		t.Errorf("expected 1:6, got %d:%d", decoded[1].SrcLine, decoded[1].SrcCol)
	}
}

func TestDecodeMappingsErrors(t *testing.T) {
	for _, mappings := range []string{"AA", "AAAAAA", "A!", "g"} {
		if _, err := DecodeMappings(mappings); err == nil {
			t.Errorf("DecodeMappings(%q): expected an error", mappings)
		}
	}
	if m, err := DecodeMappings(""); err != nil || m != nil {
		t.Errorf("expected nothing for empty mappings, got %v %v", m, err)
	}
}

func TestOutputFormats(t *testing.T) {
	source := "const a = 1;\n"
	g := NewGenerator(source)
	g.SetFile("out.wgsl")
	g.IncludeSourceContent(true)
	g.AddMapping(0, 0, 0, "")
	sm := g.Generate()

	var parsed map[string]any
	if err := json.Unmarshal([]byte(sm.ToJSON()), &parsed); err != nil {
		t.Fatal(err)
	}
	if parsed["version"] != float64(3) || parsed["mappings"] != "AAAA" {
		t.Errorf("unexpected JSON %v", parsed)
	}
	if content := parsed["sourcesContent"].([]any); content[0] != source {
		t.Errorf("expected the source in sourcesContent, got %v", content)
	}

	uri := sm.ToDataURI()
	prefix := "data:application/json;base64,"
	if !strings.HasPrefix(uri, prefix) {
		t.Fatalf("unexpected data URI %q", uri)
	}
	data, err := base64.StdEncoding.DecodeString(uri[len(prefix):])
	if err != nil || string(data) != sm.ToJSON() {
		t.Errorf("data URI does not decode to the JSON: %v", err)
	}

	if got := sm.ToComment(false); got != "//# sourceMappingURL=out.wgsl.map" {
		t.Errorf("unexpected comment %q", got)
	}
	if got := sm.ToComment(true); got != "//# sourceMappingURL="+uri {
		t.Errorf("unexpected inline comment %q", got)
	}
}
