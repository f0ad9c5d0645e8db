package ast

import (
	"strconv"
	"strings"
)

// ----------------------------------------------------------------------------
// Symbols
// ----------------------------------------------------------------------------

// Symbol is an interned name owned by the symbol table of one generation.
// Symbols compare equal only when they come from the same table and name
// the same entry.
type Symbol struct {
	id   uint32
	gen  GenerationID
	name string
}

// IsValid reports whether the symbol was produced by a symbol table.
func (s Symbol) IsValid() bool { return s.gen != 0 }

// Name returns the symbol's spelling.
func (s Symbol) Name() string { return s.name }

// ID returns the symbol's index in its table.
func (s Symbol) ID() uint32 { return s.id }

// Generation returns the generation of the owning table.
func (s Symbol) Generation() GenerationID { return s.gen }

func (s Symbol) String() string { return s.name }

// SymbolTable interns names for one Builder.
type SymbolTable struct {
	gen      GenerationID
	byName   map[string]Symbol
	symbols  []Symbol
	suffixes map[string]int // last numeric suffix handed out per prefix
}

// NewSymbolTable creates an empty table for the given generation.
func NewSymbolTable(gen GenerationID) *SymbolTable {
	return &SymbolTable{
		gen:      gen,
		byName:   make(map[string]Symbol),
		suffixes: make(map[string]int),
	}
}

// Generation returns the generation that owns the table.
func (t *SymbolTable) Generation() GenerationID { return t.gen }

// Register returns the symbol for name, creating it if needed.
func (t *SymbolTable) Register(name string) Symbol {
	if s, ok := t.byName[name]; ok {
		return s
	}
	return t.add(name)
}

// Get returns the symbol for name if it has been registered.
func (t *SymbolTable) Get(name string) (Symbol, bool) {
	s, ok := t.byName[name]
	return s, ok
}

// New returns a symbol whose name is not yet used in the table. The name
// is prefix itself when that is free, otherwise prefix_1, prefix_2, ...
// A prefix that already ends in _N continues from N.
func (t *SymbolTable) New(prefix string) Symbol {
	if prefix == "" {
		prefix = "sym"
	}
	if _, taken := t.byName[prefix]; !taken {
		return t.add(prefix)
	}
	base, n := splitSuffix(prefix)
	if last := t.suffixes[base]; last > n {
		n = last
	}
	for {
		n++
		name := base + "_" + strconv.Itoa(n)
		if _, taken := t.byName[name]; !taken {
			t.suffixes[base] = n
			return t.add(name)
		}
	}
}

// NameFor returns the spelling of s.
func (t *SymbolTable) NameFor(s Symbol) string { return s.name }

// All returns every symbol in creation order.
func (t *SymbolTable) All() []Symbol { return t.symbols }

// Len returns the number of symbols.
func (t *SymbolTable) Len() int { return len(t.symbols) }

func (t *SymbolTable) add(name string) Symbol {
	s := Symbol{id: uint32(len(t.symbols)), gen: t.gen, name: name}
	t.symbols = append(t.symbols, s)
	t.byName[name] = s
	return s
}

// splitSuffix splits "name_12" into ("name", 12). Names without a numeric
// suffix return n == 0.
func splitSuffix(name string) (string, int) {
	i := strings.LastIndexByte(name, '_')
	if i <= 0 || i == len(name)-1 {
		return name, 0
	}
	n, err := strconv.Atoi(name[i+1:])
	if err != nil || n <= 0 || name[i+1] == '0' {
		return name, 0
	}
	return name[:i], n
}
