package transform

import (
	"fmt"
	"math"

	"github.com/HugoDaniel/rewgsl/internal/ast"
	"github.com/HugoDaniel/rewgsl/internal/diagnostic"
	"github.com/HugoDaniel/rewgsl/internal/program"
	"github.com/HugoDaniel/rewgsl/internal/sem"
	"github.com/HugoDaniel/rewgsl/internal/types"
)

// DecomposeMemoryAccess replaces every access to a storage or uniform
// buffer with calls taking a byte offset:
//
//	sb.arr[i].v = x;          sb_store_1((16u + (u32(i) * 32u)), x);
//	let y = sb.arr[i].f;      let y = sb_load((28u + (u32(i) * 32u)));
//	atomicAdd(&sb.n, 1u);     sb_atomicAdd(0u, 1u);
//
// Scalar and vector helpers are intrinsics the backend provides:
//
//	@internal(intrinsic_load_storage_f32, sb) fn sb_load(offset: u32) -> f32;
//
// Helpers for matrices, arrays and structs have bodies calling the element
// helpers. arrayLength keeps its argument.
type DecomposeMemoryAccess struct{}

func (*DecomposeMemoryAccess) Name() string { return "DecomposeMemoryAccess" }

// ShouldRun reports whether a function body reads, writes or applies an
// atomic to a buffer.
func (*DecomposeMemoryAccess) ShouldRun(src *program.Program, _ *DataMap) bool {
	return analyzeBufferAccesses(src).any()
}

func isBuffer(v *sem.Variable) bool {
	return v != nil && v.IsGlobal() &&
		(v.AddressSpace == ast.AddressSpaceStorage || v.AddressSpace == ast.AddressSpaceUniform)
}

// ----------------------------------------------------------------------------
// Offsets
// ----------------------------------------------------------------------------

// offset is a byte offset, folded as it is built.
type offset interface {
	build(ctx *ast.CloneContext, info *sem.Info) ast.Expr
}

type offsetLit uint32

type offsetExpr struct{ e ast.Expr }

// offsetParam names a u32 parameter of a helper.
type offsetParam struct{ sym ast.Symbol }

type offsetBin struct {
	op   ast.BinaryOp
	l, r offset
}

func (o offsetLit) build(ctx *ast.CloneContext, _ *sem.Info) ast.Expr {
	return ctx.Dst().U32(uint32(o))
}

func (o offsetExpr) build(ctx *ast.CloneContext, info *sem.Info) ast.Expr {
	e := ast.Duplicate(ctx, o.e)
	if isU32Expr(info, o.e) {
		return e
	}
	b := ctx.Dst()
	return b.Construct(b.U32Type(), e)
}

func (o offsetParam) build(ctx *ast.CloneContext, _ *sem.Info) ast.Expr {
	return ctx.Dst().Ident(o.sym)
}

func (o offsetBin) build(ctx *ast.CloneContext, info *sem.Info) ast.Expr {
	return ctx.Dst().Binary(o.op, o.l.build(ctx, info), o.r.build(ctx, info))
}

func addOffset(l, r offset) offset {
	ll, lok := l.(offsetLit)
	rl, rok := r.(offsetLit)
	switch {
	case lok && rok:
		sum := uint64(ll) + uint64(rl)
		if sum > math.MaxUint32 {
			diagnostic.ICE("buffer offset %d + %d overflows u32", ll, rl)
		}
		return offsetLit(sum)
	case lok && ll == 0:
		return r
	case rok && rl == 0:
		return l
	}
	return offsetBin{op: ast.BinOpAdd, l: l, r: r}
}

func mulOffset(l, r offset) offset {
	ll, lok := l.(offsetLit)
	rl, rok := r.(offsetLit)
	switch {
	case lok && rok:
		prod := uint64(ll) * uint64(rl)
		if prod > math.MaxUint32 {
			diagnostic.ICE("buffer offset %d * %d overflows u32", ll, rl)
		}
		return offsetLit(prod)
	case lok && ll == 0, rok && rl == 0:
		return offsetLit(0)
	case lok && ll == 1:
		return r
	case rok && rl == 1:
		return l
	}
	return offsetBin{op: ast.BinOpMul, l: l, r: r}
}

// ----------------------------------------------------------------------------
// Analysis
// ----------------------------------------------------------------------------

// bufferAccess is a view into a buffer: the buffer, the byte offset of the
// view and its store type.
type bufferAccess struct {
	buffer *sem.Variable
	offset offset
	typ    types.Type
}

type bufferStore struct {
	stmt  ast.Stmt
	view  *bufferAccess
	op    ast.BinaryOp // for compound assignments and ++/--
	rhs   ast.Expr     // nil for ++/--
	plain bool
}

type bufferAtomic struct {
	call    *ast.CallExpr
	builtin string
	view    *bufferAccess
}

type bufferAccesses struct {
	info     *sem.Info
	accesses map[ast.Expr]*bufferAccess
	order    []ast.Expr
	stores   []bufferStore
	atomics  []bufferAtomic
}

func (a *bufferAccesses) any() bool {
	return len(a.loads()) > 0 || len(a.stores) > 0 || len(a.atomics) > 0
}

func (a *bufferAccesses) add(e ast.Expr, acc *bufferAccess) {
	a.accesses[e] = acc
	a.order = append(a.order, e)
}

// take returns the access of e and drops it from the loads.
func (a *bufferAccesses) take(e ast.Expr) *bufferAccess {
	acc := a.accesses[e]
	delete(a.accesses, e)
	return acc
}

// loads returns the accesses left over once every consumer has taken its
// operand, in creation order. Pointers are not loads.
func (a *bufferAccesses) loads() []ast.Expr {
	var out []ast.Expr
	for _, e := range a.order {
		if _, ok := a.accesses[e]; ok && !types.IsPointer(a.info.TypeOf(e)) {
			out = append(out, e)
		}
	}
	return out
}

// analyzeBufferAccesses visits the nodes of function bodies in creation
// order, so operands come before the expressions using them.
func analyzeBufferAccesses(src *program.Program) *bufferAccesses {
	info := src.Sem
	a := &bufferAccesses{info: info, accesses: make(map[ast.Expr]*bufferAccess)}

	inBody := make(map[ast.Node]bool)
	inspectFunctions(src.AST, func(n ast.Node) bool {
		inBody[n] = true
		return true
	})

	for _, n := range src.AST.Nodes() {
		if !inBody[n] {
			continue
		}
		switch x := n.(type) {
		case *ast.IdentExpr:
			if v := info.Ident(x).Variable; isBuffer(v) {
				a.add(x, &bufferAccess{buffer: v, offset: offsetLit(0), typ: v.Type})
			}

		case *ast.UnaryExpr:
			if x.Op != ast.UnaryOpAddr && x.Op != ast.UnaryOpDeref {
				break
			}
			if acc := a.take(x.Operand); acc != nil {
				a.add(x, acc)
			}

		case *ast.MemberExpr:
			acc := a.accesses[x.Base]
			if acc == nil {
				break
			}
			m := info.Member(x)
			switch {
			case !m.IsSwizzle():
				a.take(x.Base)
				a.add(x, &bufferAccess{
					buffer: acc.buffer,
					offset: addOffset(acc.offset, offsetLit(m.Field.Offset)),
					typ:    m.Field.Type,
				})
			case len(m.Swizzle) == 1:
				vec := types.UnwrapRef(info.TypeOf(x.Base)).(*types.Vector)
				a.take(x.Base)
				a.add(x, &bufferAccess{
					buffer: acc.buffer,
					offset: addOffset(acc.offset, offsetLit(m.Swizzle[0]*vec.Element.Size())),
					typ:    vec.Element,
				})
			}

		case *ast.IndexExpr:
			acc := a.accesses[x.Base]
			if acc == nil {
				break
			}
			var stride int
			var elem types.Type
			switch t := acc.typ.(type) {
			case *types.Array:
				stride, elem = t.Stride(), t.Element
			case *types.Matrix:
				stride, elem = t.ColumnStride(), t.Column()
			case *types.Vector:
				stride, elem = t.Element.Size(), t.Element
			default:
				diagnostic.ICE("cannot index buffer view of type %v", acc.typ)
			}
			var idx offset = offsetExpr{x.Index}
			if v, ok := constIndex(info, x.Index); ok {
				idx = offsetLit(v)
			}
			a.take(x.Base)
			a.add(x, &bufferAccess{
				buffer: acc.buffer,
				offset: addOffset(acc.offset, mulOffset(idx, offsetLit(stride))),
				typ:    elem,
			})

		case *ast.CallExpr:
			sc := info.Call(x)
			if sc == nil || sc.Builtin == nil || len(x.Args) == 0 {
				break
			}
			switch {
			case sc.Builtin.Name == "arrayLength":
				a.take(x.Args[0])
			case isAtomicBuiltin(sc.Builtin.Name):
				if acc := a.take(x.Args[0]); acc != nil {
					a.atomics = append(a.atomics, bufferAtomic{call: x, builtin: sc.Builtin.Name, view: acc})
				}
			}

		case *ast.AssignStmt:
			acc := a.take(x.Left)
			if acc == nil {
				break
			}
			st := bufferStore{stmt: x, view: acc, rhs: x.Right, plain: x.Op == ast.AssignOpSimple}
			if !st.plain {
				st.op = x.Op.BinaryOp()
			}
			a.stores = append(a.stores, st)

		case *ast.IncrDecrStmt:
			acc := a.take(x.Expr)
			if acc == nil {
				break
			}
			op := ast.BinOpAdd
			if !x.Increment {
				op = ast.BinOpSub
			}
			a.stores = append(a.stores, bufferStore{stmt: x, view: acc, op: op})
		}
	}
	return a
}

func isAtomicBuiltin(name string) bool {
	switch name {
	case "atomicLoad", "atomicStore", "atomicAdd", "atomicSub", "atomicMax", "atomicMin",
		"atomicAnd", "atomicOr", "atomicXor", "atomicExchange", "atomicCompareExchangeWeak":
		return true
	}
	return false
}

// ----------------------------------------------------------------------------
// Rewriting
// ----------------------------------------------------------------------------

type helperKey struct {
	op     string
	typ    string
	buffer *sem.Variable
}

type memoryAccessDecomposer struct {
	ctx     *ast.CloneContext
	info    *sem.Info
	helpers map[helperKey]ast.Symbol
	results map[string]ast.Symbol
}

func (t *DecomposeMemoryAccess) Apply(src *program.Program, inputs, _ *DataMap) *program.Program {
	a := analyzeBufferAccesses(src)
	if !a.any() {
		return nil
	}
	ctx := newCloneContext(src)
	b := ctx.Dst()
	d := &memoryAccessDecomposer{
		ctx:     ctx,
		info:    src.Sem,
		helpers: make(map[helperKey]ast.Symbol),
		results: make(map[string]ast.Symbol),
	}

	for _, e := range a.loads() {
		e, acc := e, a.accesses[e]
		fn := d.load(acc.typ, acc.buffer)
		ctx.ReplaceFunc(e, func() ast.Node { return b.Call(fn, acc.offset.build(ctx, d.info)) })
	}

	for _, st := range a.stores {
		st, acc := st, st.view
		fn := d.store(acc.typ, acc.buffer)
		var load ast.Symbol
		if !st.plain {
			load = d.load(acc.typ, acc.buffer)
		}
		ctx.ReplaceFunc(st.stmt, func() ast.Node {
			var value ast.Expr
			switch {
			case st.plain:
				value = ast.Clone(ctx, st.rhs)
			case st.rhs != nil:
				value = b.Binary(st.op, b.Call(load, acc.offset.build(ctx, d.info)), ast.Clone(ctx, st.rhs))
			default:
				value = b.Binary(st.op, b.Call(load, acc.offset.build(ctx, d.info)), d.one(acc.typ))
			}
			return b.CallStmt(b.Call(fn, acc.offset.build(ctx, d.info), value))
		})
	}

	for _, at := range a.atomics {
		at, acc := at, at.view
		fn := d.atomic(at.builtin, acc.typ, acc.buffer)
		ctx.ReplaceFunc(at.call, func() ast.Node {
			args := []any{acc.offset.build(ctx, d.info)}
			for _, arg := range at.call.Args[1:] {
				args = append(args, ast.Clone(ctx, arg))
			}
			return b.Call(fn, args...)
		})
	}
	return finish(ctx)
}

func (d *memoryAccessDecomposer) one(t types.Type) ast.Expr {
	b := d.ctx.Dst()
	if s, ok := t.(*types.Scalar); ok && s.Kind == types.ScalarU32 {
		return b.U32(1)
	}
	return b.I32(1)
}

// typeToken spells t inside an intrinsic marker: f32, vec3_f32.
func typeToken(t types.Type) string {
	switch t := t.(type) {
	case *types.Scalar:
		return t.String()
	case *types.Vector:
		return fmt.Sprintf("vec%d_%s", t.Width, t.Element)
	case *types.Atomic:
		return t.Element.String()
	}
	diagnostic.ICE("no intrinsic for type %v", t)
	return ""
}

func spaceToken(v *sem.Variable) string {
	if v.AddressSpace == ast.AddressSpaceUniform {
		return "uniform"
	}
	return "storage"
}

func (d *memoryAccessDecomposer) bufferName(v *sem.Variable) ast.Symbol {
	return d.ctx.CloneSymbol(v.Decl.Fields().Name)
}

// emit places a helper right after the declaration of its buffer.
func (d *memoryAccessDecomposer) emit(buffer *sem.Variable, fn *ast.FunctionDecl) {
	d.ctx.InsertAfter(ast.GlobalDecls, buffer.Decl, fn)
}

func (d *memoryAccessDecomposer) intrinsic(op string, buffer *sem.Variable, t types.Type) *ast.Attribute {
	b := d.ctx.Dst()
	marker := fmt.Sprintf("intrinsic_%s_%s_%s", op, spaceToken(buffer), typeToken(t))
	return b.Internal(marker, b.Ident(d.bufferName(buffer)))
}

// load returns the helper reading a t at an offset of buffer.
func (d *memoryAccessDecomposer) load(t types.Type, buffer *sem.Variable) ast.Symbol {
	key := helperKey{op: "load", typ: t.String(), buffer: buffer}
	if sym, ok := d.helpers[key]; ok {
		return sym
	}
	b := d.ctx.Dst()
	ret := createASTType(d.ctx, d.info, t)
	off := b.Sym("offset")
	params := []*ast.Parameter{b.Param(off, b.U32Type())}
	base := offsetParam{off}

	var fn *ast.FunctionDecl
	switch t := t.(type) {
	case *types.Scalar, *types.Vector:
		sym := b.NewSym(d.bufferName(buffer).Name() + "_load")
		d.helpers[key] = sym
		fn = b.FuncDecl(sym, params, ret, nil, nil, d.intrinsic("load", buffer, t))
		d.emit(buffer, fn)
		return sym

	case *types.Matrix:
		col := d.load(t.Column(), buffer)
		var cols []any
		for i := 0; i < t.Cols; i++ {
			o := addOffset(base, offsetLit(i*t.ColumnStride()))
			cols = append(cols, b.Call(col, o.build(d.ctx, d.info)))
		}
		body := b.Block(b.Return(b.Construct(createASTType(d.ctx, d.info, t), cols...)))
		sym := b.NewSym(d.bufferName(buffer).Name() + "_load")
		fn = b.FuncDecl(sym, params, ret, nil, body)
		d.helpers[key] = sym

	case *types.Struct:
		var members []any
		for _, f := range t.Fields {
			m := d.load(f.Type, buffer)
			o := addOffset(base, offsetLit(f.Offset))
			members = append(members, b.Call(m, o.build(d.ctx, d.info)))
		}
		body := b.Block(b.Return(b.Construct(createASTType(d.ctx, d.info, t), members...)))
		sym := b.NewSym(d.bufferName(buffer).Name() + "_load")
		fn = b.FuncDecl(sym, params, ret, nil, body)
		d.helpers[key] = sym

	case *types.Array:
		if t.IsRuntimeSized() {
			diagnostic.ICE("cannot load runtime-sized array %v", t)
		}
		elem := d.load(t.Element, buffer)
		arr, i := b.Sym("arr"), b.Sym("i")
		o := addOffset(base, mulOffset(offsetParam{i}, offsetLit(t.Stride())))
		body := b.Block(
			b.Decl(b.Var(arr, createASTType(d.ctx, d.info, t), ast.AddressSpaceNone, nil)),
			d.countedLoop(i, t.Count,
				b.Assign(b.Index(arr, i), b.Call(elem, o.build(d.ctx, d.info)))),
			b.Return(b.Ident(arr)),
		)
		sym := b.NewSym(d.bufferName(buffer).Name() + "_load")
		fn = b.FuncDecl(sym, params, ret, nil, body)
		d.helpers[key] = sym

	default:
		diagnostic.ICE("cannot load %v from a buffer", t)
	}
	d.emit(buffer, fn)
	return d.helpers[key]
}

// store returns the helper writing a t at an offset of buffer.
func (d *memoryAccessDecomposer) store(t types.Type, buffer *sem.Variable) ast.Symbol {
	key := helperKey{op: "store", typ: t.String(), buffer: buffer}
	if sym, ok := d.helpers[key]; ok {
		return sym
	}
	b := d.ctx.Dst()
	off, value := b.Sym("offset"), b.Sym("value")
	params := []*ast.Parameter{
		b.Param(off, b.U32Type()),
		b.Param(value, createASTType(d.ctx, d.info, t)),
	}
	base := offsetParam{off}

	var body *ast.CompoundStmt
	var attrs []*ast.Attribute
	switch t := t.(type) {
	case *types.Scalar, *types.Vector:
		attrs = append(attrs, d.intrinsic("store", buffer, t))

	case *types.Matrix:
		col := d.store(t.Column(), buffer)
		var stmts []ast.Stmt
		for i := 0; i < t.Cols; i++ {
			o := addOffset(base, offsetLit(i*t.ColumnStride()))
			stmts = append(stmts, b.CallStmt(b.Call(col, o.build(d.ctx, d.info), b.Index(value, i))))
		}
		body = b.Block(stmts...)

	case *types.Struct:
		var stmts []ast.Stmt
		for _, f := range t.Fields {
			m := d.store(f.Type, buffer)
			o := addOffset(base, offsetLit(f.Offset))
			member := d.info.StructDecl(t).Members[f.Index].Name
			stmts = append(stmts, b.CallStmt(b.Call(m, o.build(d.ctx, d.info),
				b.MemberAccessor(value, d.ctx.CloneSymbol(member)))))
		}
		body = b.Block(stmts...)

	case *types.Array:
		if t.IsRuntimeSized() {
			diagnostic.ICE("cannot store runtime-sized array %v", t)
		}
		elem := d.store(t.Element, buffer)
		arr, i := b.Sym("arr"), b.Sym("i")
		o := addOffset(base, mulOffset(offsetParam{i}, offsetLit(t.Stride())))
		body = b.Block(
			b.Decl(b.Var(arr, nil, ast.AddressSpaceNone, b.Ident(value))),
			d.countedLoop(i, t.Count,
				b.CallStmt(b.Call(elem, o.build(d.ctx, d.info), b.Index(arr, i)))),
		)

	default:
		diagnostic.ICE("cannot store %v to a buffer", t)
	}
	sym := b.NewSym(d.bufferName(buffer).Name() + "_store")
	d.helpers[key] = sym
	d.emit(buffer, b.FuncDecl(sym, params, nil, nil, body, attrs...))
	return sym
}

// countedLoop builds for (var i = 0u; (i < n); i = (i + 1u)) { stmt }.
func (d *memoryAccessDecomposer) countedLoop(i ast.Symbol, n int, stmt ast.Stmt) ast.Stmt {
	b := d.ctx.Dst()
	return b.For(
		b.Decl(b.Var(i, nil, ast.AddressSpaceNone, b.U32(0))),
		b.LessThan(i, b.U32(uint32(n))),
		b.Assign(i, b.Add(i, b.U32(1))),
		b.Block(stmt),
	)
}

// atomic returns the intrinsic applying the atomic builtin to an
// atomic<T> at an offset of buffer.
func (d *memoryAccessDecomposer) atomic(builtin string, t types.Type, buffer *sem.Variable) ast.Symbol {
	at, ok := t.(*types.Atomic)
	if !ok {
		diagnostic.ICE("atomic builtin on non-atomic %v", t)
	}
	key := helperKey{op: builtin, typ: t.String(), buffer: buffer}
	if sym, ok := d.helpers[key]; ok {
		return sym
	}
	b := d.ctx.Dst()
	elem := createASTType(d.ctx, d.info, at.Element)
	params := []*ast.Parameter{b.Param(b.Sym("offset"), b.U32Type())}
	var ret ast.Type
	switch builtin {
	case "atomicLoad":
		ret = elem
	case "atomicStore":
		params = append(params, b.Param(b.Sym("value"), elem))
	case "atomicCompareExchangeWeak":
		params = append(params,
			b.Param(b.Sym("compare"), elem),
			b.Param(b.Sym("value"), createASTType(d.ctx, d.info, at.Element)))
		ret = b.TypeName(d.exchangeResult(at.Element, buffer))
	default:
		params = append(params, b.Param(b.Sym("value"), elem))
		ret = createASTType(d.ctx, d.info, at.Element)
	}
	sym := b.NewSym(d.bufferName(buffer).Name() + "_" + builtin)
	d.helpers[key] = sym
	d.emit(buffer, b.FuncDecl(sym, params, ret, nil, nil, d.intrinsic(builtin, buffer, at)))
	return sym
}

// exchangeResult declares the result struct of atomicCompareExchangeWeak
// for element type t, whose builtin result type has no spelling.
func (d *memoryAccessDecomposer) exchangeResult(t *types.Scalar, buffer *sem.Variable) ast.Symbol {
	if sym, ok := d.results[t.String()]; ok {
		return sym
	}
	b := d.ctx.Dst()
	sym := b.NewSym("atomic_compare_exchange_result_" + t.String())
	d.results[t.String()] = sym
	s := b.StructDecl(sym,
		b.Member("old_value", createASTType(d.ctx, d.info, t)),
		b.Member("exchanged", b.BoolType()))
	d.ctx.InsertBefore(ast.GlobalDecls, buffer.Decl, s)
	return sym
}
