package transform

import (
	"github.com/HugoDaniel/rewgsl/internal/ast"
	"github.com/HugoDaniel/rewgsl/internal/diagnostic"
	"github.com/HugoDaniel/rewgsl/internal/sem"
)

// hoister inserts declarations in front of statements and expressions.
//
// Statements inside a block get the declarations spliced into the block.
// Places without a slot in front of them are rewritten when the owning
// statement is cloned:
//
//	for (init; cond; update)  initializer: { decls; for (...) }
//	                          condition or update: converted to loop
//	while cond                condition: converted to loop
//	else if cond              condition: nested into else { decls; if }
type hoister struct {
	ctx  *ast.CloneContext
	info *sem.Info

	fors    map[*ast.ForStmt]*hoistedLoop
	whiles  map[*ast.WhileStmt]*hoistedLoop
	elseIfs map[*ast.IfStmt]*hoistedElseIf
}

// hoistedLoop collects what goes in front of the parts of a loop.
type hoistedLoop struct {
	init    []func() ast.Node
	cond    []func() ast.Node
	update  []func() ast.Node
	convert bool
}

type hoistedElseIf struct {
	decls []func() ast.Node
}

func newHoister(ctx *ast.CloneContext, info *sem.Info) *hoister {
	return &hoister{
		ctx:     ctx,
		info:    info,
		fors:    make(map[*ast.ForStmt]*hoistedLoop),
		whiles:  make(map[*ast.WhileStmt]*hoistedLoop),
		elseIfs: make(map[*ast.IfStmt]*hoistedElseIf),
	}
}

// Add declares a let (or a var when asVar is set) named after name,
// initialized with expr, in front of the statement that evaluates expr.
// expr is replaced by the new identifier.
func (h *hoister) Add(expr ast.Expr, asVar bool, name string) ast.Symbol {
	b := h.ctx.Dst()
	sym := b.NewSym(name)
	decl := func() ast.Node {
		init := ast.CloneWithoutTransform(h.ctx, expr)
		if asVar {
			return b.Decl(b.Var(sym, nil, ast.AddressSpaceNone, init))
		}
		return b.Decl(b.Let(sym, nil, init))
	}
	h.InsertBeforeExpr(expr, decl)
	h.ctx.ReplaceFunc(expr, func() ast.Node { return b.Ident(sym) })
	return sym
}

// InsertBeforeExpr inserts the statement built by item so that it runs
// right before expr is evaluated.
func (h *hoister) InsertBeforeExpr(expr ast.Expr, item func() ast.Node) {
	st := stmtOf(h.info, expr)
	switch s := st.Node.(type) {
	case *ast.ForStmt:
		l := h.forLoop(s)
		l.cond = append(l.cond, item)
		l.convert = true
		return
	case *ast.WhileStmt:
		l := h.whileLoop(s)
		l.cond = append(l.cond, item)
		return
	case *ast.IfStmt:
		if isElseIf(st) {
			e := h.elseIf(s)
			e.decls = append(e.decls, item)
			return
		}
	}
	h.InsertBefore(st, item)
}

// InsertBefore inserts the statement built by item in front of st.
func (h *hoister) InsertBefore(st *sem.Statement, item func() ast.Node) {
	if st.Parent == nil {
		diagnostic.ICE("cannot insert before a function body")
	}
	switch p := st.Parent.Node.(type) {
	case *ast.CompoundStmt:
		h.ctx.InsertBefore(ast.StmtsOf(p), st.Node, item)
	case *ast.ForStmt:
		l := h.forLoop(p)
		switch st.Node {
		case p.Init:
			l.init = append(l.init, item)
		case p.Update:
			l.update = append(l.update, item)
			l.convert = true
		default:
			diagnostic.ICE("%v is not part of its for loop", st.Node.Kind())
		}
	default:
		diagnostic.ICE("cannot insert a statement before %v inside %v", st.Node.Kind(), p.Kind())
	}
}

// Prepare makes sure that declarations can later be inserted before expr,
// converting the statement that owns it if needed. Nothing is inserted.
func (h *hoister) Prepare(expr ast.Expr) {
	st := stmtOf(h.info, expr)
	switch s := st.Node.(type) {
	case *ast.ForStmt:
		h.forLoop(s).convert = true
	case *ast.WhileStmt:
		h.whileLoop(s)
	case *ast.IfStmt:
		if isElseIf(st) {
			h.elseIf(s)
		}
	default:
		if p, ok := st.Parent.Node.(*ast.ForStmt); ok && p.Update == st.Node {
			h.forLoop(p).convert = true
		}
	}
}

func isElseIf(st *sem.Statement) bool {
	if st.Parent == nil {
		return false
	}
	p, ok := st.Parent.Node.(*ast.IfStmt)
	return ok && p.Else == st.Node
}

// ----------------------------------------------------------------------------
// Rewrites of the owning statements
// ----------------------------------------------------------------------------

func (h *hoister) forLoop(s *ast.ForStmt) *hoistedLoop {
	if l := h.fors[s]; l != nil {
		return l
	}
	l := &hoistedLoop{}
	h.fors[s] = l
	h.ctx.ReplaceFunc(s, func() ast.Node { return h.buildFor(s, l) })
	return l
}

func (h *hoister) whileLoop(s *ast.WhileStmt) *hoistedLoop {
	if l := h.whiles[s]; l != nil {
		return l
	}
	l := &hoistedLoop{convert: true}
	h.whiles[s] = l
	h.ctx.ReplaceFunc(s, func() ast.Node {
		b := h.ctx.Dst()
		body := h.loopHead(l.cond, s.Condition)
		body = append(body, ast.CloneList(h.ctx, ast.StmtsOf(s.Body), s.Body.Stmts)...)
		return b.Loop(b.Block(body...), nil)
	})
	return l
}

func (h *hoister) elseIf(s *ast.IfStmt) *hoistedElseIf {
	if e := h.elseIfs[s]; e != nil {
		return e
	}
	e := &hoistedElseIf{}
	h.elseIfs[s] = e
	h.ctx.ReplaceFunc(s, func() ast.Node {
		stmts := h.materialize(e.decls)
		stmts = append(stmts, ast.CloneWithoutTransform(h.ctx, s))
		return h.ctx.Dst().Block(stmts...)
	})
	return e
}

func (h *hoister) buildFor(s *ast.ForStmt, l *hoistedLoop) ast.Node {
	b := h.ctx.Dst()
	if !l.convert {
		stmts := h.materialize(l.init)
		stmts = append(stmts, ast.CloneWithoutTransform(h.ctx, s))
		return b.Block(stmts...)
	}

	body := h.loopHead(l.cond, s.Condition)
	body = append(body, ast.CloneList(h.ctx, ast.StmtsOf(s.Body), s.Body.Stmts)...)
	var continuing *ast.CompoundStmt
	if s.Update != nil || len(l.update) > 0 {
		cont := h.materialize(l.update)
		if s.Update != nil {
			cont = append(cont, ast.Clone(h.ctx, s.Update))
		}
		continuing = b.Block(cont...)
	}
	loop := b.Loop(b.Block(body...), continuing)

	if s.Init == nil && len(l.init) == 0 {
		return loop
	}
	stmts := h.materialize(l.init)
	if s.Init != nil {
		stmts = append(stmts, ast.Clone(h.ctx, s.Init))
	}
	return b.Block(append(stmts, loop)...)
}

// loopHead returns the declarations followed by if !cond { break; }.
func (h *hoister) loopHead(decls []func() ast.Node, cond ast.Expr) []ast.Stmt {
	b := h.ctx.Dst()
	stmts := h.materialize(decls)
	if cond != nil {
		stmts = append(stmts, b.If(b.Not(ast.Clone(h.ctx, cond)), b.Block(b.Break()), nil))
	}
	return stmts
}

func (h *hoister) materialize(items []func() ast.Node) []ast.Stmt {
	var out []ast.Stmt
	for _, it := range items {
		s, ok := it().(ast.Stmt)
		if !ok {
			diagnostic.ICE("hoisted item is not a statement")
		}
		out = append(out, s)
	}
	return out
}
