package transform

import (
	"github.com/HugoDaniel/rewgsl/internal/ast"
	"github.com/HugoDaniel/rewgsl/internal/program"
	"github.com/HugoDaniel/rewgsl/internal/sem"
	"github.com/HugoDaniel/rewgsl/internal/types"
)

// PromoteSideEffectsToDecl makes evaluation order explicit. Expressions
// that a later side effect could observe are hoisted into lets before
// their statement, and logical operators whose operands have side effects
// are lowered to a var and an if.
//
// It runs in two steps. The first converts statements that have no place
// to put declarations in front of their condition (for and while loops,
// else-if) into ones that do. The second hoists.
type PromoteSideEffectsToDecl struct{}

func (*PromoteSideEffectsToDecl) Name() string { return "PromoteSideEffectsToDecl" }

// ShouldRun reports whether either step has work to do on src.
func (*PromoteSideEffectsToDecl) ShouldRun(src *program.Program, _ *DataMap) bool {
	return len(unslottedSideEffects(src)) > 0 || needsDecompose(src, collectHoists(src))
}

func (p *PromoteSideEffectsToDecl) Apply(src *program.Program, inputs, _ *DataMap) *program.Program {
	prog, changed := src, false
	if exprs := unslottedSideEffects(src); len(exprs) > 0 {
		ctx := newCloneContext(src)
		h := newHoister(ctx, src.Sem)
		for _, e := range exprs {
			h.Prepare(e)
		}
		prog, changed = finish(ctx), true
		if !prog.IsValid() {
			return prog
		}
	}

	hoists := collectHoists(prog)
	if !needsDecompose(prog, hoists) {
		if changed {
			return prog
		}
		return nil
	}
	ctx := newCloneContext(prog)
	d := &sideEffectDecomposer{ctx: ctx, info: prog.Sem, toHoist: hoists}
	ast.ReplaceAll(ctx, func(block *ast.CompoundStmt) ast.Node {
		d.block(block)
		return nil
	})
	return finish(ctx)
}

// unslottedSideEffects returns the expressions with side effects that sit
// where no declaration can be placed in front of them.
func unslottedSideEffects(src *program.Program) []ast.Expr {
	var out []ast.Expr
	inspectFunctions(src.AST, func(n ast.Node) bool {
		e, ok := n.(ast.Expr)
		if !ok || !hasSideEffects(src.Sem, e) {
			return true
		}
		if x := src.Sem.Expr(e); x.Stmt != nil && lacksDeclSlot(x.Stmt) {
			out = append(out, e)
		}
		return true
	})
	return out
}

func lacksDeclSlot(st *sem.Statement) bool {
	switch st.Node.(type) {
	case *ast.ForStmt, *ast.WhileStmt:
		return true
	case *ast.IfStmt:
		return isElseIf(st)
	}
	if st.Parent != nil {
		if p, ok := st.Parent.Node.(*ast.ForStmt); ok && p.Update == st.Node {
			return true
		}
	}
	return false
}

func needsDecompose(src *program.Program, hoists map[ast.Expr]bool) bool {
	if len(hoists) > 0 {
		return true
	}
	found := false
	inspectFunctions(src.AST, func(n ast.Node) bool {
		if bin, ok := n.(*ast.BinaryExpr); ok && isLogicalWithSideEffects(src.Sem, bin) {
			found = true
		}
		return !found
	})
	return found
}

func isLogicalWithSideEffects(info *sem.Info, e *ast.BinaryExpr) bool {
	return e.Op.IsLogical() && (hasSideEffects(info, e.Left) || hasSideEffects(info, e.Right))
}

// ----------------------------------------------------------------------------
// Finding what to hoist
// ----------------------------------------------------------------------------

// hoistCollector walks expressions children first, left to right. Each
// visit reports whether the expression may need hoisting; the caller keeps
// such expressions as pending. A side effect hoists every pending
// expression, since the side effect could change what they read.
type hoistCollector struct {
	info    *sem.Info
	toHoist map[ast.Expr]bool
}

func collectHoists(src *program.Program) map[ast.Expr]bool {
	c := &hoistCollector{info: src.Sem, toHoist: make(map[ast.Expr]bool)}
	inspectFunctions(src.AST, func(n ast.Node) bool {
		var pending []ast.Expr
		switch s := n.(type) {
		case *ast.AssignStmt:
			c.process(s.Left, &pending)
			c.process(s.Right, &pending)
		case *ast.CallStmt:
			c.process(s.Call, &pending)
		case *ast.ForStmt:
			c.process(s.Condition, &pending)
		case *ast.WhileStmt:
			c.process(s.Condition, &pending)
		case *ast.IfStmt:
			c.process(s.Condition, &pending)
		case *ast.ReturnStmt:
			c.process(s.Value, &pending)
		case *ast.SwitchStmt:
			c.process(s.Expr, &pending)
		case *ast.DeclStmt:
			if v, ok := s.Decl.(ast.Variable); ok {
				c.process(v.Fields().Initializer, &pending)
			}
		}
		return true
	})
	return c.toHoist
}

func (c *hoistCollector) flush(pending *[]ast.Expr) {
	for _, e := range *pending {
		c.toHoist[e] = true
	}
	*pending = (*pending)[:0]
}

func (c *hoistCollector) process(e ast.Expr, pending *[]ast.Expr) bool {
	if e == nil {
		return false
	}
	keep := func(x ast.Expr) bool {
		maybe := c.process(x, pending)
		if maybe {
			*pending = append(*pending, x)
		}
		return maybe
	}
	accessor := func(base, index ast.Expr) bool {
		maybe := keep(base)
		// A chain is hoisted as a whole unless its base is not a plain
		// variable.
		if maybe && !isIdent(base) {
			c.flush(pending)
			maybe = false
		}
		if index != nil {
			keep(index)
		}
		return maybe
	}

	switch x := e.(type) {
	case *ast.CallExpr:
		if hasSideEffects(c.info, x) {
			c.flush(pending)
		}
		var args []ast.Expr
		for _, a := range x.Args {
			if c.process(a, &args) {
				args = append(args, a)
			}
		}
		// Calls are always candidates so that a call without side effects
		// still runs before a later one with them.
		return true

	case *ast.IdentExpr:
		v := c.info.Ident(x).Variable
		if v == nil || v.Value != nil || v.Access == ast.AccessModeRead {
			return false
		}
		switch v.Type.(type) {
		case *types.Texture, *types.Sampler:
			return false
		}
		return true

	case *ast.BinaryExpr:
		if x.Op.IsLogical() && hasSideEffects(c.info, x) {
			// Lowered by the decomposer.
			c.process(x.Left, pending)
			c.process(x.Right, pending)
			return false
		}
		if !hasSideEffects(c.info, x.Left) && !hasSideEffects(c.info, x.Right) {
			l := c.process(x.Left, pending)
			r := c.process(x.Right, pending)
			return l || r
		}
		keep(x.Left)
		keep(x.Right)
		return false

	case *ast.UnaryExpr:
		r := c.process(x.Operand, pending)
		if x.Op == ast.UnaryOpAddr {
			return false
		}
		return r

	case *ast.IndexExpr:
		return accessor(x.Base, x.Index)

	case *ast.MemberExpr:
		return accessor(x.Base, nil)
	}
	return false
}

// ----------------------------------------------------------------------------
// Rewriting
// ----------------------------------------------------------------------------

// sideEffectDecomposer rewrites the statements of each block as the block
// is cloned, building the hoisted declarations eagerly.
type sideEffectDecomposer struct {
	ctx     *ast.CloneContext
	info    *sem.Info
	toHoist map[ast.Expr]bool
}

func (d *sideEffectDecomposer) block(block *ast.CompoundStmt) {
	for _, s := range block.Stmts {
		if f, ok := s.(*ast.ForStmt); ok && f.Init != nil {
			if r := d.statement(f.Init); r != nil {
				d.ctx.Replace(f.Init, r)
			}
		}
		if r := d.statement(s); r != nil {
			d.ctx.Replace(s, r)
		}
	}
}

// statement decomposes the expressions of s and returns its replacement,
// or nil when s is left alone.
func (d *sideEffectDecomposer) statement(s ast.Stmt) ast.Stmt {
	var exprs []ast.Expr
	switch s := s.(type) {
	case *ast.AssignStmt:
		// The right-hand side is evaluated first.
		exprs = []ast.Expr{s.Right, s.Left}
	case *ast.CallStmt:
		exprs = []ast.Expr{s.Call}
	case *ast.ForStmt:
		exprs = []ast.Expr{s.Condition}
	case *ast.WhileStmt:
		exprs = []ast.Expr{s.Condition}
	case *ast.IfStmt:
		exprs = []ast.Expr{s.Condition}
	case *ast.ReturnStmt:
		exprs = []ast.Expr{s.Value}
	case *ast.SwitchStmt:
		exprs = []ast.Expr{s.Expr}
	case *ast.DeclStmt:
		if v, ok := s.Decl.(ast.Variable); ok {
			exprs = []ast.Expr{v.Fields().Initializer}
		}
	}

	effects := false
	for _, e := range exprs {
		effects = effects || hasSideEffects(d.info, e)
	}
	if !effects {
		return nil
	}
	var stmts []ast.Stmt
	for _, e := range exprs {
		if e != nil {
			d.ctx.Replace(e, d.decompose(e, &stmts))
		}
	}
	if len(stmts) > 0 {
		anchor := outermostInBlock(d.info.Stmt(s))
		l := ast.StmtsOf(anchor.Parent.Node.(*ast.CompoundStmt))
		for _, st := range stmts {
			d.ctx.InsertBefore(l, anchor.Node, st)
		}
	}
	return ast.CloneWithoutTransform(d.ctx, s)
}

// decompose returns the replacement for e, appending the statements that
// must run first to stmts.
func (d *sideEffectDecomposer) decompose(e ast.Expr, stmts *[]ast.Stmt) ast.Expr {
	b := d.ctx.Dst()
	replace := func(x ast.Expr) {
		d.ctx.Replace(x, d.decompose(x, stmts))
	}

	switch x := e.(type) {
	case *ast.BinaryExpr:
		if !isLogicalWithSideEffects(d.info, x) {
			replace(x.Left)
			replace(x.Right)
			break
		}
		// a && b becomes
		//
		//	var tmp = a;
		//	if tmp {
		//	    tmp = b;
		//	}
		//
		// and a || b tests !tmp.
		sym := b.NewSym("tmp")
		*stmts = append(*stmts, b.Decl(b.Var(sym, nil, ast.AddressSpaceNone, d.decompose(x.Left, stmts))))
		var cond ast.Expr = b.Ident(sym)
		if x.Op == ast.BinOpLogicalOr {
			cond = b.Not(sym)
		}
		var body []ast.Stmt
		rhs := d.decompose(x.Right, &body)
		body = append(body, b.Assign(sym, rhs))
		*stmts = append(*stmts, b.If(cond, b.Block(body...), nil))
		return b.Ident(sym)

	case *ast.CallExpr:
		for _, a := range x.Args {
			replace(a)
		}
	case *ast.IndexExpr:
		replace(x.Base)
		replace(x.Index)
	case *ast.MemberExpr:
		replace(x.Base)
	case *ast.UnaryExpr:
		replace(x.Operand)
	}

	if d.toHoist[e] {
		sym := b.NewSym("tmp")
		*stmts = append(*stmts, b.Decl(b.Let(sym, nil, ast.Clone(d.ctx, e))))
		return b.Ident(sym)
	}
	return ast.Clone(d.ctx, e)
}
