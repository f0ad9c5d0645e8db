package transform

import (
	"strconv"
	"strings"

	"github.com/HugoDaniel/rewgsl/internal/ast"
	"github.com/HugoDaniel/rewgsl/internal/diagnostic"
	"github.com/HugoDaniel/rewgsl/internal/program"
	"github.com/HugoDaniel/rewgsl/internal/sem"
	"github.com/HugoDaniel/rewgsl/internal/types"
)

// DirectVariableAccess removes pointer parameters. Every function taking
// pointers is replaced by one variant per distinct access shape passed at
// its call sites. A variant names module-scope roots directly and takes
// function-scope roots as a <p>_base pointer; dynamic indices are passed in
// a <p>_indices array. Pointer lets passed as arguments are followed to
// their initializers; their dynamic indices are saved into lets where the
// pointer let stood, and the pointer let is dropped once nothing else
// uses it.
//
//	fn f(p: ptr<uniform, vec4<f32>>) -> vec4<f32> { return *p; }
//	f(&U.arr[i]);
//
// becomes
//
//	fn f_U_arr_X(p_indices: array<u32, 1>) -> vec4<f32> { return U.arr[p_indices[0]]; }
//	f_U_arr_X(array<u32, 1>(u32(i)));
type DirectVariableAccess struct{}

func (*DirectVariableAccess) Name() string { return "DirectVariableAccess" }

// ShouldRun reports whether any function has a pointer parameter.
func (*DirectVariableAccess) ShouldRun(src *program.Program, _ *DataMap) bool {
	for _, f := range src.Sem.Functions {
		if hasPointerParams(f) {
			return true
		}
	}
	return false
}

func hasPointerParams(f *sem.Function) bool {
	if f.Decl.Body == nil {
		return false
	}
	for _, p := range f.Parameters {
		if types.IsPointer(p.Type) {
			return true
		}
	}
	return false
}

// accessOp is one step of an access chain: a struct member, or an index
// when member is invalid.
type accessOp struct {
	member ast.Symbol
}

func (op accessOp) isIndex() bool { return !op.member.IsValid() }

// accessShape is the static part of a pointer: its root and the steps
// taken from it. A nil root is a function-scope variable of type rootType.
type accessShape struct {
	root     *sem.Variable
	rootType types.Type
	ops      []accessOp
}

func (s *accessShape) String() string {
	var sb strings.Builder
	if s.root != nil {
		sb.WriteString(s.root.Name())
	} else {
		sb.WriteString("F")
	}
	for _, op := range s.ops {
		sb.WriteByte('_')
		if op.isIndex() {
			sb.WriteByte('X')
		} else {
			sb.WriteString(op.member.Name())
		}
	}
	return sb.String()
}

// key distinguishes shapes that print the same but need different
// parameter types.
func (s *accessShape) key() string {
	if s.root == nil {
		return s.String() + "|" + s.rootType.String()
	}
	return s.String()
}

func (s *accessShape) dynamicIndices() int {
	n := 0
	for _, op := range s.ops {
		if op.isIndex() {
			n++
		}
	}
	return n
}

// accessIndex is the value of one dynamic index at a call site: either an
// index expression, or element k of the caller's own indices parameter.
type accessIndex struct {
	expr  ast.Expr
	param *sem.Variable
	k     int
}

// accessArg is a pointer argument split into its shape and the values the
// variant needs.
type accessArg struct {
	shape     accessShape
	baseLocal *ast.IdentExpr // function-scope root named at the call site
	baseParam *sem.Variable  // function-scope root forwarded from the caller
	indices   []accessIndex
}

type dvaVariant struct {
	fn      *sem.Function
	name    ast.Symbol
	shapes  map[*sem.Variable]*accessShape
	base    map[*sem.Variable]ast.Symbol
	indices map[*sem.Variable]ast.Symbol
}

type dvaCallSite struct {
	call   *ast.CallExpr
	caller *dvaVariant
}

type dvaCall struct {
	callee *dvaVariant
	args   map[int]*accessArg
}

type directAccess struct {
	ctx  *ast.CloneContext
	info *sem.Info

	variants map[*sem.Function][]*dvaVariant
	byKey    map[*sem.Function]map[string]*dvaVariant
	calls    map[dvaCallSite]*dvaCall
	queue    []*dvaVariant

	// lets are the pointer lets followed into call arguments. chased maps
	// each identifier followed to the pointer let whose initializer holds
	// it, or to nil for a call argument.
	lets   []*sem.Variable
	chased map[*ast.IdentExpr]*sem.Variable
	saved  map[ast.Expr]ast.Symbol

	// paramNames are the names given to added parameters.
	paramNames map[string]bool

	// cur is the variant whose body is being cloned.
	cur *dvaVariant
}

func (t *DirectVariableAccess) Apply(src *program.Program, inputs, _ *DataMap) *program.Program {
	if !t.ShouldRun(src, inputs) {
		return nil
	}
	ctx := newCloneContext(src)
	d := &directAccess{
		ctx:      ctx,
		info:     src.Sem,
		variants: make(map[*sem.Function][]*dvaVariant),
		byKey:    make(map[*sem.Function]map[string]*dvaVariant),
		calls:    make(map[dvaCallSite]*dvaCall),

		chased:     make(map[*ast.IdentExpr]*sem.Variable),
		saved:      make(map[ast.Expr]ast.Symbol),
		paramNames: make(map[string]bool),
	}
	d.gather()
	d.register()
	return finish(ctx)
}

// gather finds the variants reachable from the functions without pointer
// parameters.
func (d *directAccess) gather() {
	for _, f := range d.info.Functions {
		if f.Decl.Body == nil || hasPointerParams(f) {
			continue
		}
		v := &dvaVariant{fn: f, name: d.ctx.CloneSymbol(f.Decl.Name)}
		d.variants[f] = []*dvaVariant{v}
		d.queue = append(d.queue, v)
	}
	for len(d.queue) > 0 {
		v := d.queue[0]
		d.queue = d.queue[1:]
		ast.Inspect(v.fn.Decl.Body, func(n ast.Node) bool {
			if c, ok := n.(*ast.CallExpr); ok {
				d.callSite(c, v)
			}
			return true
		})
	}
}

func (d *directAccess) callSite(c *ast.CallExpr, caller *dvaVariant) {
	sc := d.info.Call(c)
	if sc == nil || sc.Function == nil || !hasPointerParams(sc.Function) {
		return
	}
	g := sc.Function
	call := &dvaCall{args: make(map[int]*accessArg)}
	var keys, names []string
	shapes := make(map[*sem.Variable]*accessShape)
	for i, p := range g.Parameters {
		if !types.IsPointer(p.Type) {
			continue
		}
		arg := d.access(c.Args[i], caller, nil)
		call.args[i] = arg
		shapes[p] = &arg.shape
		keys = append(keys, arg.shape.key())
		names = append(names, arg.shape.String())
	}

	key := strings.Join(keys, ",")
	if d.byKey[g] == nil {
		d.byKey[g] = make(map[string]*dvaVariant)
	}
	v := d.byKey[g][key]
	if v == nil {
		b := d.ctx.Dst()
		v = &dvaVariant{
			fn:      g,
			name:    b.NewSym(g.Name() + "_" + strings.Join(names, "_")),
			shapes:  shapes,
			base:    make(map[*sem.Variable]ast.Symbol),
			indices: make(map[*sem.Variable]ast.Symbol),
		}
		taken := make(map[string]bool)
		for _, p := range g.Parameters {
			s := shapes[p]
			if s == nil {
				continue
			}
			if s.root == nil {
				v.base[p] = d.paramSym(p.Name()+"_base", taken)
			}
			if s.dynamicIndices() > 0 {
				v.indices[p] = d.paramSym(p.Name()+"_indices", taken)
			}
		}
		d.byKey[g][key] = v
		d.variants[g] = append(d.variants[g], v)
		d.queue = append(d.queue, v)
	}
	call.callee = v
	d.calls[dvaCallSite{c, caller}] = call
}

// paramSym returns the symbol of a parameter added to a variant. The name
// only has to be free within the variant; names from the source module are
// never taken so that no module-scope declaration is shadowed.
func (d *directAccess) paramSym(prefix string, taken map[string]bool) ast.Symbol {
	name := prefix
	for n := 1; !d.paramNameFree(name, taken); n++ {
		name = prefix + "_" + strconv.Itoa(n)
	}
	taken[name] = true
	d.paramNames[name] = true
	return d.ctx.Dst().Sym(name)
}

func (d *directAccess) paramNameFree(name string, taken map[string]bool) bool {
	if taken[name] {
		return false
	}
	if _, ok := d.ctx.Src().Symbols().Get(name); ok {
		return false
	}
	if _, ok := d.ctx.Dst().Symbols().Get(name); ok && !d.paramNames[name] {
		return false
	}
	return true
}

// access splits the pointer expression e, evaluated in caller, into its
// shape and values. Pointer lets are followed to their initializers; via
// is the pointer let whose initializer e belongs to.
func (d *directAccess) access(e ast.Expr, caller *dvaVariant, via *sem.Variable) *accessArg {
	switch x := e.(type) {
	case *ast.UnaryExpr:
		if x.Op == ast.UnaryOpAddr || x.Op == ast.UnaryOpDeref {
			return d.access(x.Operand, caller, via)
		}
	case *ast.MemberExpr:
		a := d.access(x.Base, caller, via)
		a.shape.ops = append(a.shape.ops, accessOp{member: x.Member})
		return a
	case *ast.IndexExpr:
		a := d.access(x.Base, caller, via)
		a.shape.ops = append(a.shape.ops, accessOp{})
		a.indices = append(a.indices, accessIndex{expr: x.Index})
		return a
	case *ast.IdentExpr:
		v := d.info.Ident(x).Variable
		if v == nil {
			break
		}
		switch {
		case v.Kind == sem.VariableParameter && types.IsPointer(v.Type):
			s := caller.shapes[v]
			if s == nil {
				diagnostic.ICE("pointer parameter '%s' has no access shape", v.Name())
			}
			a := &accessArg{shape: accessShape{
				root:     s.root,
				rootType: s.rootType,
				ops:      append([]accessOp(nil), s.ops...),
			}}
			if s.root == nil {
				a.baseParam = v
			}
			for k := 0; k < s.dynamicIndices(); k++ {
				a.indices = append(a.indices, accessIndex{param: v, k: k})
			}
			return a
		case v.Kind == sem.VariableLet && types.IsPointer(v.Type):
			d.chased[x] = via
			d.saveIndices(v)
			return d.access(v.Decl.Fields().Initializer, caller, v)
		case v.IsGlobal():
			return &accessArg{shape: accessShape{root: v}}
		default:
			return &accessArg{shape: accessShape{rootType: v.Type}, baseLocal: x}
		}
	}
	diagnostic.ICE("unsupported pointer expression %v", e.Kind())
	return nil
}

// saveIndices saves the dynamic indices of the pointer let v into lets
// placed before it, the first time v is followed. Call arguments and v
// itself then read the saved values, so each index is evaluated once.
func (d *directAccess) saveIndices(v *sem.Variable) {
	for _, l := range d.lets {
		if l == v {
			return
		}
	}
	d.lets = append(d.lets, v)

	b := d.ctx.Dst()
	init := v.Decl.Fields().Initializer
	anchor := outermostInBlock(stmtOf(d.info, init))
	block := anchor.Parent.Node.(*ast.CompoundStmt)
	prefix := v.Name() + "_save"
	collectSavedIndices(init, func(idx ast.Expr) {
		if d.info.Expr(idx).Value != nil {
			return
		}
		sym := b.NewSym(prefix)
		d.saved[idx] = sym
		d.ctx.InsertBefore(ast.StmtsOf(block), anchor.Node, func() ast.Node {
			return b.Decl(b.Let(sym, nil, ast.Duplicate(d.ctx, idx)))
		})
	})
}

// deadLet reports whether every use of the pointer let v was followed into
// a call argument, directly or through another dead pointer let.
func (d *directAccess) deadLet(v *sem.Variable) bool {
	for _, u := range v.Users {
		via, ok := d.chased[u]
		if !ok || (via != nil && !d.deadLet(via)) {
			return false
		}
	}
	return true
}

// ----------------------------------------------------------------------------
// Rewriting
// ----------------------------------------------------------------------------

func (d *directAccess) register() {
	ctx := d.ctx
	b := ctx.Dst()

	for _, f := range d.info.Functions {
		f := f
		switch {
		case hasPointerParams(f):
			for _, v := range d.variants[f] {
				v := v
				ctx.InsertBefore(ast.GlobalDecls, f.Decl, func() ast.Node { return d.buildVariant(v) })
			}
			ctx.ReplaceFunc(f.Decl, func() ast.Node { return nil })
		case f.Decl.Body != nil:
			v := d.variants[f][0]
			ctx.ReplaceFunc(f.Decl, func() ast.Node {
				prev := d.cur
				d.cur = v
				defer func() { d.cur = prev }()
				return ast.CloneWithoutTransform(ctx, f.Decl)
			})
		}
	}

	for _, v := range d.lets {
		if d.deadLet(v) {
			removeStmt(ctx, d.info, stmtOf(d.info, v.Decl.Fields().Initializer).Node)
		}
	}
	ast.ReplaceAll(ctx, func(x *ast.IndexExpr) ast.Node {
		sym, ok := d.saved[x.Index]
		if !ok {
			return nil
		}
		return b.Index(ast.Duplicate(ctx, x.Base), b.Ident(sym))
	})

	ast.ReplaceAll(ctx, func(c *ast.CallExpr) ast.Node {
		if d.cur == nil {
			return nil
		}
		call := d.calls[dvaCallSite{c, d.cur}]
		if call == nil {
			return nil
		}
		var args []any
		for i, a := range c.Args {
			arg := call.args[i]
			if arg == nil {
				args = append(args, ast.Clone(ctx, a))
				continue
			}
			if arg.shape.root == nil {
				args = append(args, d.baseValue(arg))
			}
			if n := len(arg.indices); n > 0 {
				idx := make([]any, n)
				for k, ix := range arg.indices {
					idx[k] = d.indexValue(ix)
				}
				args = append(args, b.Construct(b.Array(b.U32Type(), n), idx...))
			}
		}
		return b.Call(call.callee.name, args...)
	})

	ast.ReplaceAll(ctx, func(u *ast.UnaryExpr) ast.Node {
		if u.Op != ast.UnaryOpDeref {
			return nil
		}
		if p := d.pointerParam(u.Operand); p != nil {
			return d.reference(p)
		}
		return nil
	})

	ast.ReplaceAll(ctx, func(id *ast.IdentExpr) ast.Node {
		p := d.pointerParam(id)
		if p == nil {
			return nil
		}
		s := d.cur.shapes[p]
		if s.root == nil && len(s.ops) == 0 {
			return b.Ident(d.cur.base[p])
		}
		return b.AddressOf(d.reference(p))
	})
}

// pointerParam returns the pointer parameter of the variant being cloned
// that e names, or nil.
func (d *directAccess) pointerParam(e ast.Expr) *sem.Variable {
	id, ok := e.(*ast.IdentExpr)
	if !ok || d.cur == nil {
		return nil
	}
	v := d.info.Ident(id).Variable
	if v == nil || d.cur.shapes[v] == nil {
		return nil
	}
	return v
}

// reference builds the memory view that the parameter p stands for in the
// current variant.
func (d *directAccess) reference(p *sem.Variable) ast.Expr {
	b := d.ctx.Dst()
	s := d.cur.shapes[p]
	var e ast.Expr
	if s.root != nil {
		e = b.Ident(d.ctx.CloneSymbol(s.root.Decl.Fields().Name))
	} else {
		e = b.Deref(d.cur.base[p])
	}
	k := 0
	for _, op := range s.ops {
		if op.isIndex() {
			e = b.Index(e, b.Index(d.cur.indices[p], k))
			k++
		} else {
			e = b.MemberAccessor(e, d.ctx.CloneSymbol(op.member))
		}
	}
	return e
}

func (d *directAccess) baseValue(a *accessArg) ast.Expr {
	b := d.ctx.Dst()
	if a.baseLocal != nil {
		return b.AddressOf(ast.Duplicate(d.ctx, a.baseLocal))
	}
	return b.Ident(d.cur.base[a.baseParam])
}

func (d *directAccess) indexValue(ix accessIndex) ast.Expr {
	b := d.ctx.Dst()
	if ix.expr == nil {
		return b.Index(d.cur.indices[ix.param], ix.k)
	}
	x := d.info.Expr(ix.expr)
	if x.Value != nil {
		return b.U32(uint32(x.Value.AsInt()))
	}
	var e ast.Expr
	if sym, ok := d.saved[ix.expr]; ok {
		e = b.Ident(sym)
	} else {
		e = ast.Duplicate(d.ctx, ix.expr)
	}
	if s := types.ScalarOf(x.UnwrappedType()); s != nil && s.Kind == types.ScalarU32 {
		return e
	}
	return b.Construct(b.U32Type(), e)
}

// buildVariant clones the function of v with its pointer parameters
// replaced.
func (d *directAccess) buildVariant(v *dvaVariant) ast.Node {
	ctx := d.ctx
	b := ctx.Dst()
	prev := d.cur
	d.cur = v
	defer func() { d.cur = prev }()

	decl := v.fn.Decl
	var params []*ast.Parameter
	for _, p := range v.fn.Parameters {
		s := v.shapes[p]
		if s == nil {
			params = append(params, ast.Duplicate(ctx, p.Decl.(*ast.Parameter)))
			continue
		}
		if s.root == nil {
			params = append(params, b.Param(v.base[p],
				b.Ptr(ast.AddressSpaceFunction, createASTType(ctx, d.info, s.rootType), ast.AccessModeNone)))
		}
		if n := s.dynamicIndices(); n > 0 {
			params = append(params, b.Param(v.indices[p], b.Array(b.U32Type(), n)))
		}
	}
	attrs := duplicateAll(ctx, decl.Attributes)
	retAttrs := duplicateAll(ctx, decl.ReturnAttributes)
	return b.FuncDecl(v.name, params, ast.Duplicate(ctx, decl.ReturnType), retAttrs,
		ast.Duplicate(ctx, decl.Body), attrs...)
}

func duplicateAll[T ast.Node](ctx *ast.CloneContext, nodes []T) []T {
	if len(nodes) == 0 {
		return nil
	}
	out := make([]T, len(nodes))
	for i, n := range nodes {
		out[i] = ast.Duplicate(ctx, n)
	}
	return out
}
