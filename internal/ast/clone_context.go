package ast

import (
	"github.com/HugoDaniel/rewgsl/internal/diagnostic"
)

// CloneContext copies a source Module into a destination Builder while
// applying substitutions. A pass registers its rules (per-node overrides,
// per-kind handlers, list edits, symbol renames) and then calls Clone.
//
// Clone resolves a source node in this order:
//  1. a per-node override, built once per registration;
//  2. the handler registered for the node's kind, run on every
//     occurrence; a nil result falls through;
//  3. the memo of earlier structural clones;
//  4. a structural clone, which is memoized.
//
// The memo keeps aliasing: a node reachable from two parents is cloned
// once and shared by both copies.
type CloneContext struct {
	dst *Builder
	src *Module

	memo         map[Node]Node
	symbols      map[Symbol]Symbol
	renameSymbol func(Symbol) string
	overrides    map[Node]*override
	handlers     []handler
	lists        map[List]*listEdits
	duplicating  int
}

type override struct {
	build     func() Node
	result    Node
	done      bool
	resolving bool
	prev      *override
}

type handler struct {
	kind Kind
	fn   func(Node) Node
}

type listEdits struct {
	front   []any
	back    []any
	before  map[Node][]any
	after   map[Node][]any
	removed map[Node]bool
}

// NewCloneContext creates a context cloning src into dst. With
// autoCloneSymbols set, every source symbol is interned in dst up front, in
// creation order, so names keep their spelling even when a rule later asks
// dst for fresh names.
func NewCloneContext(dst *Builder, src *Module, autoCloneSymbols bool) *CloneContext {
	ctx := &CloneContext{
		dst:       dst,
		src:       src,
		memo:      make(map[Node]Node),
		symbols:   make(map[Symbol]Symbol),
		overrides: make(map[Node]*override),
		lists:     make(map[List]*listEdits),
	}
	if dst.Source() == "" && src.Source() != "" {
		dst.SetSource(src.Source())
	}
	if autoCloneSymbols {
		for _, s := range src.Symbols().All() {
			ctx.CloneSymbol(s)
		}
	}
	return ctx
}

// Src returns the module being cloned.
func (ctx *CloneContext) Src() *Module { return ctx.src }

// Dst returns the builder receiving the clone.
func (ctx *CloneContext) Dst() *Builder { return ctx.dst }

// ----------------------------------------------------------------------------
// Cloning
// ----------------------------------------------------------------------------

// Clone clones n into the destination, applying every registered rule. The
// result must be assignable to T.
func Clone[T Node](ctx *CloneContext, n T) T {
	return as[T](ctx.CloneNode(n), n)
}

// Duplicate clones n without consulting or filling the memo anywhere in the
// subtree, so the result shares no nodes with earlier clones of n.
// Overrides and handlers still apply.
func Duplicate[T Node](ctx *CloneContext, n T) T {
	ctx.duplicating++
	defer func() { ctx.duplicating-- }()
	return as[T](ctx.CloneNode(n), n)
}

// CloneWithoutTransform structurally clones n itself, ignoring any
// override, handler or memo entry for n. Children are cloned normally.
func CloneWithoutTransform[T Node](ctx *CloneContext, n T) T {
	if IsNil(n) {
		var zero T
		return zero
	}
	ctx.checkSource(n)
	return as[T](n.clone(ctx), n)
}

// CloneNode is the untyped form of Clone.
func (ctx *CloneContext) CloneNode(n Node) Node {
	if IsNil(n) {
		return nil
	}
	ctx.checkSource(n)

	if o := ctx.overrides[n]; o != nil {
		if r, ok := ctx.resolveOverride(o); ok {
			return r
		}
	}

	if h := ctx.handlerFor(n.Kind()); h != nil {
		if r := h.fn(n); !IsNil(r) {
			return r
		}
	}

	if ctx.duplicating == 0 {
		if r, ok := ctx.memo[n]; ok {
			return r
		}
	}

	r := n.clone(ctx)
	if ctx.duplicating == 0 {
		ctx.memo[n] = r
	}
	return r
}

func (ctx *CloneContext) resolveOverride(o *override) (Node, bool) {
	for ; o != nil; o = o.prev {
		if o.done {
			return o.result, true
		}
		if o.resolving {
			// The builder of o asked for the node it replaces: hand it the
			// previous registration, if any.
			continue
		}
		o.resolving = true
		r := o.build()
		o.resolving = false
		if !IsNil(r) && r.Generation() != ctx.dst.gen {
			diagnostic.ICE("replacement %v does not belong to the destination builder", r.Kind())
		}
		o.result, o.done = r, true
		return r, true
	}
	return nil, false
}

func (ctx *CloneContext) handlerFor(k Kind) *handler {
	for i := range ctx.handlers {
		if k.IsA(ctx.handlers[i].kind) {
			return &ctx.handlers[i]
		}
	}
	return nil
}

func (ctx *CloneContext) checkSource(n Node) {
	if n.Generation() != ctx.src.gen {
		diagnostic.ICE("cannot clone %v of generation %d from module of generation %d",
			n.Kind(), n.Generation(), ctx.src.gen)
	}
}

func as[T Node](r Node, src Node) T {
	if IsNil(r) {
		var zero T
		return zero
	}
	t, ok := r.(T)
	if !ok {
		diagnostic.ICE("%v was replaced by %v, which cannot stand in its place", src.Kind(), r.Kind())
	}
	return t
}

// CloneSymbol returns the destination symbol for s. Each source symbol is
// cloned once; the destination name is the rename result if a rename
// function is registered, made unique in the destination table.
func (ctx *CloneContext) CloneSymbol(s Symbol) Symbol {
	if !s.IsValid() {
		return s
	}
	if s.gen != ctx.src.gen {
		diagnostic.ICE("cannot clone symbol %q of generation %d from module of generation %d",
			s.name, s.gen, ctx.src.gen)
	}
	if d, ok := ctx.symbols[s]; ok {
		return d
	}
	name := s.name
	if ctx.renameSymbol != nil {
		name = ctx.renameSymbol(s)
	}
	d := ctx.dst.symbols.New(name)
	ctx.symbols[s] = d
	return d
}

// CloneList clones the elements of the source list l, applying the list
// edits registered for it. items must be the current contents of l.
func CloneList[T Node](ctx *CloneContext, l List, items []T) []T {
	if len(items) == 0 && ctx.lists[l] == nil {
		return nil
	}
	out := make([]T, 0, len(items))
	ctx.cloneListInto(l, toNodes(items), func(n Node) {
		out = append(out, as[T](n, n))
	})
	return out
}

func (ctx *CloneContext) cloneListInto(l List, items []Node, emit func(Node)) {
	e := ctx.lists[l]
	if e == nil {
		for _, it := range items {
			if r := ctx.CloneNode(it); !IsNil(r) {
				emit(r)
			}
		}
		return
	}
	emitAll := func(inserts []any) {
		for _, ins := range inserts {
			if r := ctx.materialize(ins); !IsNil(r) {
				emit(r)
			}
		}
	}
	emitAll(e.front)
	for _, it := range items {
		emitAll(e.before[it])
		if !e.removed[it] {
			if r := ctx.CloneNode(it); !IsNil(r) {
				emit(r)
			}
		}
		emitAll(e.after[it])
	}
	emitAll(e.back)
}

func (ctx *CloneContext) materialize(item any) Node {
	var n Node
	switch it := item.(type) {
	case func() Node:
		n = it()
	case Node:
		n = it
	}
	if !IsNil(n) && n.Generation() != ctx.dst.gen {
		diagnostic.ICE("inserted %v does not belong to the destination builder", n.Kind())
	}
	return n
}

// Clone clones the whole source module into the destination builder.
// Each global declaration is appended once it is fully built, so helper
// declarations created while cloning it land in front of it.
func (ctx *CloneContext) Clone() {
	ctx.cloneListInto(GlobalDirectives, toNodes(ctx.src.Directives), func(n Node) {
		ctx.dst.AddDirective(as[Directive](n, n))
	})
	ctx.cloneListInto(GlobalDecls, toNodes(ctx.src.Decls), func(n Node) {
		ctx.dst.AddDecl(as[Decl](n, n))
	})
}

// ----------------------------------------------------------------------------
// Rules
// ----------------------------------------------------------------------------

// Replace makes every clone of node yield replacement, a destination node.
func (ctx *CloneContext) Replace(node Node, replacement Node) *CloneContext {
	return ctx.ReplaceFunc(node, func() Node { return replacement })
}

// ReplaceFunc makes every clone of node yield the result of build, which
// runs on first use. A later registration for the same node wins; its
// builder may call Clone(node) to obtain the earlier replacement.
func (ctx *CloneContext) ReplaceFunc(node Node, build func() Node) *CloneContext {
	if IsNil(node) {
		diagnostic.ICE("Replace called with a nil node")
	}
	ctx.checkSource(node)
	ctx.overrides[node] = &override{build: build, prev: ctx.overrides[node]}
	return ctx
}

// ReplaceAll registers a handler for every source node of type T. The
// handler may return nil to let the node clone normally. Handlers whose
// kinds overlap cannot both be registered.
func ReplaceAll[T Node, R Node](ctx *CloneContext, fn func(T) R) {
	k := KindOf[T]()
	for _, h := range ctx.handlers {
		if h.kind.Overlaps(k) {
			diagnostic.ICE("ReplaceAll for %v conflicts with existing handler for %v", k, h.kind)
		}
	}
	ctx.handlers = append(ctx.handlers, handler{kind: k, fn: func(n Node) Node {
		t, ok := n.(T)
		if !ok {
			return nil
		}
		r := fn(t)
		if IsNil(r) {
			return nil
		}
		return r
	}})
}

// ReplaceAllSymbols sets the function naming every cloned symbol. It may be
// registered once.
func (ctx *CloneContext) ReplaceAllSymbols(fn func(Symbol) string) *CloneContext {
	if ctx.renameSymbol != nil {
		diagnostic.ICE("ReplaceAllSymbols registered twice")
	}
	ctx.renameSymbol = fn
	return ctx
}

// The list edits below take either a destination Node or a func() Node
// that builds one when the list is cloned.

// InsertFront inserts item at the front of l.
func (ctx *CloneContext) InsertFront(l List, item any) *CloneContext {
	e := ctx.edits(l)
	e.front = append(e.front, checkItem(item))
	return ctx
}

// InsertBack inserts item at the back of l.
func (ctx *CloneContext) InsertBack(l List, item any) *CloneContext {
	e := ctx.edits(l)
	e.back = append(e.back, checkItem(item))
	return ctx
}

// InsertBefore inserts item before anchor, a member of l.
func (ctx *CloneContext) InsertBefore(l List, anchor Node, item any) *CloneContext {
	ctx.checkAnchor(l, anchor)
	e := ctx.edits(l)
	e.before[anchor] = append(e.before[anchor], checkItem(item))
	return ctx
}

// InsertAfter inserts item after anchor, a member of l.
func (ctx *CloneContext) InsertAfter(l List, anchor Node, item any) *CloneContext {
	ctx.checkAnchor(l, anchor)
	e := ctx.edits(l)
	e.after[anchor] = append(e.after[anchor], checkItem(item))
	return ctx
}

// Remove omits anchor, a member of l, from the clone of l.
func (ctx *CloneContext) Remove(l List, anchor Node) *CloneContext {
	ctx.checkAnchor(l, anchor)
	ctx.edits(l).removed[anchor] = true
	return ctx
}

func (ctx *CloneContext) edits(l List) *listEdits {
	e := ctx.lists[l]
	if e == nil {
		e = &listEdits{
			before:  make(map[Node][]any),
			after:   make(map[Node][]any),
			removed: make(map[Node]bool),
		}
		ctx.lists[l] = e
	}
	return e
}

func (ctx *CloneContext) checkAnchor(l List, anchor Node) {
	if IsNil(anchor) {
		diagnostic.ICE("list edit with a nil anchor")
	}
	for _, it := range l.items(ctx.src) {
		if it == anchor {
			return
		}
	}
	diagnostic.ICE("%v is not an element of the %v list of %v", anchor.Kind(), l.Field, ownerKind(l))
}

func ownerKind(l List) Kind {
	if IsNil(l.Owner) {
		return KindNode
	}
	return l.Owner.Kind()
}

func checkItem(item any) any {
	switch it := item.(type) {
	case func() Node:
		return it
	case Node:
		if IsNil(it) {
			diagnostic.ICE("inserting a nil node")
		}
		return it
	}
	diagnostic.ICE("cannot insert %T into a list", item)
	return nil
}
