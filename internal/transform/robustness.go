package transform

import (
	"github.com/HugoDaniel/rewgsl/internal/ast"
	"github.com/HugoDaniel/rewgsl/internal/program"
	"github.com/HugoDaniel/rewgsl/internal/sem"
	"github.com/HugoDaniel/rewgsl/internal/types"
)

// RobustnessAction is what Robustness does with an access that may fall
// out of bounds.
type RobustnessAction uint8

const (
	// RobustnessClamp clamps the index into range.
	RobustnessClamp RobustnessAction = iota
	// RobustnessPredicate skips the access when the index is out of range.
	// Skipped loads produce the zero value.
	RobustnessPredicate
	// RobustnessIgnore leaves the access alone.
	RobustnessIgnore
)

func (a RobustnessAction) String() string {
	return [...]string{"clamp", "predicate", "ignore"}[a]
}

// RobustnessSpace selects the accesses an action applies to.
type RobustnessSpace uint8

const (
	SpaceFunction RobustnessSpace = iota
	SpacePrivate
	SpaceWorkgroup
	SpaceUniform
	SpaceStorage
	// SpaceValue covers indexing of values that are not in memory.
	SpaceValue
	// SpaceTexture covers textureLoad and textureStore.
	SpaceTexture
)

func (s RobustnessSpace) String() string {
	return [...]string{"function", "private", "workgroup", "uniform", "storage", "value", "texture"}[s]
}

// RobustnessConfig is the optional input of Robustness. Spaces without an
// entry in Actions clamp.
type RobustnessConfig struct {
	Actions         map[RobustnessSpace]RobustnessAction
	IgnoredBindings []sem.BindingPoint
}

func (c *RobustnessConfig) action(s RobustnessSpace) RobustnessAction {
	if c == nil {
		return RobustnessClamp
	}
	if a, ok := c.Actions[s]; ok {
		return a
	}
	return RobustnessClamp
}

func (c *RobustnessConfig) ignored(v *sem.Variable) bool {
	if c == nil || v == nil || v.BindingPoint == nil {
		return false
	}
	for _, bp := range c.IgnoredBindings {
		if bp == *v.BindingPoint {
			return true
		}
	}
	return false
}

// Robustness keeps array, vector and matrix indexing and texel accesses in
// bounds.
//
// Clamp rewrites a[i] to a[min(u32(i), N - 1u)], where N comes from
// arrayLength for runtime-sized arrays. Texture coordinates, array index
// and mip level of textureLoad and textureStore are clamped the same way.
//
// Predicate hoists the index into a let and guards the access:
//
//	let index = i;
//	var predicated_value: f32;
//	if (u32(index) < 4u) {
//	    predicated_value = a[index];
//	}
//
// Stores and atomics are wrapped in the if instead. Predicates follow
// pointers: a pointer let gets a <p>_predicate let, and a pointer parameter
// gets a <p>_predicate bool parameter filled in at every call site.
// Textures are always clamped.
type Robustness struct{}

func (*Robustness) Name() string { return "Robustness" }

// ShouldRun reports whether src has an access that needs a bounds check
// under the configured actions.
func (*Robustness) ShouldRun(src *program.Program, inputs *DataMap) bool {
	cfg, _ := Get[*RobustnessConfig](inputs)
	found := false
	inspectFunctions(src.AST, func(n ast.Node) bool {
		switch n := n.(type) {
		case *ast.IndexExpr:
			found = needsBoundsCheck(src.Sem, cfg, n)
		case *ast.CallExpr:
			found = isClampedTextureCall(src.Sem, cfg, n)
		}
		return !found
	})
	return found
}

// accessSpace returns the space deciding the action for x.
func accessSpace(info *sem.Info, x ast.Expr) RobustnessSpace {
	ref, ok := info.TypeOf(x).(*types.Reference)
	if !ok {
		return SpaceValue
	}
	return spaceOf(ref.AddressSpace)
}

func spaceOf(as ast.AddressSpace) RobustnessSpace {
	switch as {
	case ast.AddressSpacePrivate:
		return SpacePrivate
	case ast.AddressSpaceWorkgroup:
		return SpaceWorkgroup
	case ast.AddressSpaceUniform:
		return SpaceUniform
	case ast.AddressSpaceStorage:
		return SpaceStorage
	}
	return SpaceFunction
}

// indexBound returns the number of elements indexed by x, or 0 for a
// runtime-sized array.
func indexBound(info *sem.Info, x *ast.IndexExpr) (n int, ok bool) {
	switch t := types.UnwrapRef(info.TypeOf(x.Base)).(type) {
	case *types.Vector:
		return t.Width, true
	case *types.Matrix:
		return t.Cols, true
	case *types.Array:
		return t.Count, true
	}
	return 0, false
}

func needsBoundsCheck(info *sem.Info, cfg *RobustnessConfig, x *ast.IndexExpr) bool {
	n, ok := indexBound(info, x)
	if !ok {
		return false
	}
	if n > 0 {
		// Constant indices into sized types are validated by the resolver.
		if _, isConst := constIndex(info, x.Index); isConst {
			return false
		}
	}
	if cfg.action(accessSpace(info, x)) == RobustnessIgnore {
		return false
	}
	return !cfg.ignored(info.Expr(x).RootVariable)
}

func isClampedTextureCall(info *sem.Info, cfg *RobustnessConfig, c *ast.CallExpr) bool {
	sc := info.Call(c)
	if sc == nil || sc.Builtin == nil || len(c.Args) < 2 {
		return false
	}
	if sc.Builtin.Name != "textureLoad" && sc.Builtin.Name != "textureStore" {
		return false
	}
	tex, ok := textureOf(info, c.Args[0])
	if !ok || tex.Kind == ast.TextureExternal {
		return false
	}
	if cfg.action(SpaceTexture) == RobustnessIgnore {
		return false
	}
	if id, ok := c.Args[0].(*ast.IdentExpr); ok && cfg.ignored(info.Ident(id).Variable) {
		return false
	}
	return true
}

// textureOf returns the texture e names. Texture variables resolve to
// references in the handle space.
func textureOf(info *sem.Info, e ast.Expr) (*types.Texture, bool) {
	tex, ok := types.UnwrapRef(info.TypeOf(e)).(*types.Texture)
	return tex, ok
}

// predicate is a conjunction built lazily in the destination.
type predicate []func() ast.Expr

func (p predicate) build(b *ast.Builder) ast.Expr {
	if len(p) == 0 {
		return b.Bool(true)
	}
	e := p[0]()
	for _, term := range p[1:] {
		e = b.LogicalAnd(e, term())
	}
	return e
}

type robustness struct {
	ctx  *ast.CloneContext
	info *sem.Info
	cfg  *RobustnessConfig
	h    *hoister

	// overrides remembers the replacement registered for a node so that a
	// later replacement of the same node can still build the earlier one.
	overrides map[ast.Node]func() ast.Node

	// predicates holds the predicate symbol of pointer lets and pointer
	// parameters.
	predicates map[*sem.Variable]ast.Symbol

	// clampOnly turns predication into clamping where no guard can be
	// placed.
	clampOnly bool
}

func (r *Robustness) Apply(src *program.Program, inputs, _ *DataMap) *program.Program {
	if !r.ShouldRun(src, inputs) {
		return nil
	}
	cfg, _ := Get[*RobustnessConfig](inputs)
	ctx := newCloneContext(src)
	d := &robustness{
		ctx:        ctx,
		info:       src.Sem,
		cfg:        cfg,
		h:          newHoister(ctx, src.Sem),
		overrides:  make(map[ast.Node]func() ast.Node),
		predicates: make(map[*sem.Variable]ast.Symbol),
	}
	d.predicateParams(src.AST)
	for _, f := range userFunctions(src.AST) {
		d.block(f.Body)
	}
	return finish(ctx)
}

func (d *robustness) override(n ast.Node, build func() ast.Node) {
	d.overrides[n] = build
	d.ctx.ReplaceFunc(n, build)
}

// predicateParams adds a bool parameter after every pointer parameter
// into a predicated address space.
func (d *robustness) predicateParams(m *ast.Module) {
	b := d.ctx.Dst()
	for _, f := range userFunctions(m) {
		for _, p := range f.Parameters {
			v := d.info.Variable(p)
			ptr, ok := v.Type.(*types.Pointer)
			if !ok || d.cfg.action(spaceOf(ptr.AddressSpace)) != RobustnessPredicate {
				continue
			}
			sym := b.NewSym(p.Name.Name() + "_predicate")
			d.predicates[v] = sym
			d.ctx.InsertAfter(ast.ParamsOf(f), p, func() ast.Node { return b.Param(sym, b.BoolType()) })
		}
	}
}

// ----------------------------------------------------------------------------
// Statements
// ----------------------------------------------------------------------------

func (d *robustness) block(block *ast.CompoundStmt) {
	if block == nil {
		return
	}
	for _, s := range block.Stmts {
		d.statement(s)
	}
}

func (d *robustness) statement(s ast.Stmt) {
	switch s := s.(type) {
	case *ast.CompoundStmt:
		d.block(s)
	case *ast.AssignStmt:
		d.value(s.Right)
		if _, phony := s.Left.(*ast.PhonyExpr); !phony {
			d.guard(s, d.access(s.Left))
		}
	case *ast.IncrDecrStmt:
		d.guard(s, d.access(s.Expr))
	case *ast.CallStmt:
		d.guard(s, d.call(s.Call, true))
	case *ast.DeclStmt:
		d.declaration(s)
	case *ast.ReturnStmt:
		d.value(s.Value)
	case *ast.IfStmt:
		d.value(s.Condition)
		d.block(s.Body)
		if s.Else != nil {
			d.statement(s.Else)
		}
	case *ast.SwitchStmt:
		d.value(s.Expr)
		for _, c := range s.Cases {
			d.block(c.Body)
		}
	case *ast.ForStmt:
		if s.Init != nil {
			d.statement(s.Init)
		}
		d.value(s.Condition)
		if s.Update != nil {
			d.statement(s.Update)
		}
		d.block(s.Body)
	case *ast.WhileStmt:
		d.value(s.Condition)
		d.block(s.Body)
	case *ast.LoopStmt:
		d.block(s.Body)
		d.block(s.Continuing)
	case *ast.BreakIfStmt:
		d.value(s.Condition)
	}
}

func (d *robustness) declaration(s *ast.DeclStmt) {
	v, ok := s.Decl.(ast.Variable)
	if !ok {
		return
	}
	init := v.Fields().Initializer
	sv := d.info.Variable(v)
	if sv == nil || !types.IsPointer(sv.Type) {
		d.value(init)
		return
	}
	pred := d.pointer(init)
	if len(pred) == 0 {
		return
	}
	b := d.ctx.Dst()
	sym := b.NewSym(v.Fields().Name.Name() + "_predicate")
	d.predicates[sv] = sym
	d.h.InsertBeforeExpr(init, func() ast.Node { return b.Decl(b.Let(sym, nil, pred.build(b))) })
}

// guard wraps s in if (pred) { s }.
func (d *robustness) guard(s ast.Stmt, pred predicate) {
	if len(pred) == 0 {
		return
	}
	st := d.info.Stmt(s)
	if p, ok := st.Parent.Node.(*ast.ForStmt); ok {
		// Converted to a loop, the initializer and update sit in blocks.
		d.h.forLoop(p).convert = true
	}
	b := d.ctx.Dst()
	d.ctx.ReplaceFunc(s, func() ast.Node {
		return b.If(pred.build(b), b.Block(ast.CloneWithoutTransform(d.ctx, s)), nil)
	})
}

// ----------------------------------------------------------------------------
// Expressions
// ----------------------------------------------------------------------------

// value handles e read as a value. Loads that need a predicate go through
// a predicated_value var.
func (d *robustness) value(e ast.Expr) {
	switch x := e.(type) {
	case nil:
	case *ast.IndexExpr, *ast.MemberExpr:
		d.load(e, d.access(e))
	case *ast.UnaryExpr:
		switch x.Op {
		case ast.UnaryOpDeref:
			d.load(e, d.access(e))
		case ast.UnaryOpAddr:
			// A pointer formed here has nowhere to carry a predicate.
			prev := d.clampOnly
			d.clampOnly = true
			d.access(x.Operand)
			d.clampOnly = prev
		default:
			d.value(x.Operand)
		}
	case *ast.BinaryExpr:
		d.value(x.Left)
		d.value(x.Right)
	case *ast.CallExpr:
		d.load(e, d.call(x, false))
	}
}

// load replaces the value of e with a predicated_value var filled in when
// pred holds.
func (d *robustness) load(e ast.Expr, pred predicate) {
	if len(pred) == 0 {
		return
	}
	b := d.ctx.Dst()
	ty := types.UnwrapRef(d.info.TypeOf(e))
	sym := b.NewSym("predicated_value")
	prev := d.overrides[e]
	d.h.InsertBeforeExpr(e, func() ast.Node {
		return b.Decl(b.Var(sym, createASTType(d.ctx, d.info, ty), ast.AddressSpaceNone, nil))
	})
	d.h.InsertBeforeExpr(e, func() ast.Node {
		var rhs ast.Expr
		if prev != nil {
			rhs = prev().(ast.Expr)
		} else {
			rhs = ast.CloneWithoutTransform(d.ctx, e)
		}
		return b.If(pred.build(b), b.Block(b.Assign(sym, rhs)), nil)
	})
	d.override(e, func() ast.Node { return b.Ident(sym) })
}

// access handles the memory view or value chain e and returns the
// predicate guarding it.
func (d *robustness) access(e ast.Expr) predicate {
	switch x := e.(type) {
	case *ast.IndexExpr:
		pred := d.access(x.Base)
		d.value(x.Index)
		return append(pred, d.index(x)...)
	case *ast.MemberExpr:
		return d.access(x.Base)
	case *ast.UnaryExpr:
		switch x.Op {
		case ast.UnaryOpDeref:
			return d.pointer(x.Operand)
		case ast.UnaryOpAddr:
			return d.access(x.Operand)
		}
	case *ast.IdentExpr:
		return d.pointer(x)
	}
	d.value(e)
	return nil
}

// pointer returns the predicate carried by the pointer expression e.
func (d *robustness) pointer(e ast.Expr) predicate {
	switch x := e.(type) {
	case *ast.UnaryExpr:
		if x.Op == ast.UnaryOpAddr {
			return d.access(x.Operand)
		}
	case *ast.IdentExpr:
		v := d.info.Ident(x).Variable
		if v == nil {
			return nil
		}
		if sym, ok := d.predicates[v]; ok {
			b := d.ctx.Dst()
			return predicate{func() ast.Expr { return b.Ident(sym) }}
		}
		return nil
	}
	d.value(e)
	return nil
}

// index applies the action for x and returns the predicate term it needs.
func (d *robustness) index(x *ast.IndexExpr) predicate {
	if !needsBoundsCheck(d.info, d.cfg, x) {
		return nil
	}
	b := d.ctx.Dst()
	n, _ := indexBound(d.info, x)
	isU32 := isU32Expr(d.info, x.Index)
	action := d.cfg.action(accessSpace(d.info, x))
	if action == RobustnessClamp || d.clampOnly {
		d.override(x, func() ast.Node {
			idx := ast.Clone(d.ctx, x.Index)
			if !isU32 {
				idx = b.Construct(b.U32Type(), idx)
			}
			var last ast.Expr
			if n > 0 {
				last = b.U32(uint32(n - 1))
			} else {
				last = b.Sub(d.arrayLength(x.Base), b.U32(1))
			}
			return b.Index(ast.Clone(d.ctx, x.Base), b.Call("min", idx, last))
		})
		return nil
	}

	bound := func() ast.Expr {
		if n > 0 {
			return b.U32(uint32(n))
		}
		return d.arrayLength(x.Base)
	}
	if v, ok := constIndex(d.info, x.Index); ok {
		return predicate{func() ast.Expr { return b.LessThan(b.U32(uint32(v)), bound()) }}
	}
	sym := b.NewSym("index")
	prev := d.overrides[x.Index]
	d.h.InsertBeforeExpr(x.Index, func() ast.Node {
		var init ast.Expr
		if prev != nil {
			init = prev().(ast.Expr)
		} else {
			init = ast.CloneWithoutTransform(d.ctx, x.Index)
		}
		return b.Decl(b.Let(sym, nil, init))
	})
	d.override(x.Index, func() ast.Node { return b.Ident(sym) })
	return predicate{func() ast.Expr {
		var idx ast.Expr = b.Ident(sym)
		if !isU32 {
			idx = b.Construct(b.U32Type(), idx)
		}
		return b.LessThan(idx, bound())
	}}
}

func (d *robustness) arrayLength(base ast.Expr) ast.Expr {
	b := d.ctx.Dst()
	return b.Call("arrayLength", b.AddressOf(ast.Duplicate(d.ctx, base)))
}

func isU32Expr(info *sem.Info, e ast.Expr) bool {
	s, ok := types.UnwrapRef(info.TypeOf(e)).(*types.Scalar)
	return ok && s.Kind == types.ScalarU32
}

// call handles the arguments of c and returns the predicate c itself needs
// to run: the predicates of the pointers given to a builtin. When stmt is
// set c is a call statement, so nothing reads its result.
func (d *robustness) call(c *ast.CallExpr, stmt bool) predicate {
	sc := d.info.Call(c)
	if sc == nil {
		for _, a := range c.Args {
			d.value(a)
		}
		return nil
	}
	switch {
	case sc.Kind == sem.CallFunction:
		d.userCall(c, sc.Function)
		return nil
	case sc.Kind == sem.CallBuiltin && sc.Builtin.Name == "arrayLength":
		return nil
	case sc.Kind == sem.CallBuiltin && isClampedTextureCall(d.info, d.cfg, c):
		for _, a := range c.Args {
			d.value(a)
		}
		d.clampTexture(c, sc.Builtin.Name)
		return nil
	}

	guardable := stmt
	if !stmt && sc.Builtin != nil {
		// The result has to be spelled to predicate a load of it.
		if st, ok := d.info.TypeOf(c).(*types.Struct); !ok || d.info.StructDecl(st) != nil {
			guardable = true
		}
	}
	var pred predicate
	for _, a := range c.Args {
		if !types.IsPointer(d.info.TypeOf(a)) {
			d.value(a)
			continue
		}
		prev := d.clampOnly
		d.clampOnly = prev || !guardable
		pred = append(pred, d.pointer(a)...)
		d.clampOnly = prev
	}
	if !guardable {
		return nil
	}
	return pred
}

// userCall passes the predicate of each pointer argument to the bool
// parameter added for it.
func (d *robustness) userCall(c *ast.CallExpr, fn *sem.Function) {
	b := d.ctx.Dst()
	for i, a := range c.Args {
		if i >= len(fn.Parameters) {
			break
		}
		if _, ok := d.predicates[fn.Parameters[i]]; !ok {
			if types.IsPointer(d.info.TypeOf(a)) {
				d.pointer(a)
			} else {
				d.value(a)
			}
			continue
		}
		pred := d.pointer(a)
		d.ctx.InsertAfter(ast.ArgsOf(c), a, func() ast.Node { return pred.build(b) })
	}
}

// clampTexture clamps the coordinates, array index and level of a
// textureLoad or textureStore call.
func (d *robustness) clampTexture(c *ast.CallExpr, name string) {
	b := d.ctx.Dst()
	tex, _ := textureOf(d.info, c.Args[0])
	arrayed := tex.Dimension == ast.Texture2DArray || tex.Dimension == ast.TextureCubeArray
	hasLevel := name == "textureLoad" &&
		(tex.Kind == ast.TextureSampled || tex.Kind == ast.TextureDepth)

	arrayIdx, levelIdx := -1, -1
	next := 2
	if arrayed && len(c.Args) > next {
		arrayIdx = next
		next++
	}
	if hasLevel && len(c.Args) > next {
		levelIdx = next
	}
	// The level feeds both its own argument and textureDimensions, so the
	// whole call is rebuilt from fresh duplicates of its arguments.
	arg := func(i int) ast.Expr { return ast.Duplicate(d.ctx, c.Args[i]) }
	toU32 := func(i int) ast.Expr {
		if isU32Expr(d.info, c.Args[i]) {
			return arg(i)
		}
		return b.Construct(b.U32Type(), arg(i))
	}
	clampedLevel := func() ast.Expr {
		return b.Call("min", toU32(levelIdx), b.Sub(b.Call("textureNumLevels", arg(0)), b.U32(1)))
	}

	ct := types.UnwrapRef(d.info.TypeOf(c.Args[1]))
	width := 1
	if v, ok := ct.(*types.Vector); ok {
		width = v.Width
	}
	clampedCoords := func() ast.Expr {
		var dims ast.Expr
		if levelIdx >= 0 {
			dims = b.Call("textureDimensions", arg(0), clampedLevel())
		} else {
			dims = b.Call("textureDimensions", arg(0))
		}
		one := func(s string, v any) ast.Expr {
			if width == 1 {
				return b.Expr(v)
			}
			return b.Construct(b.Vec(uint8(width), b.TypeName(s)), v)
		}
		hi := b.Sub(dims, one("u32", uint32(1)))
		if types.ScalarOf(ct).Kind == types.ScalarU32 {
			return b.Call("min", arg(1), hi)
		}
		var hiI ast.Expr
		if width == 1 {
			hiI = b.Construct(b.TypeName("i32"), hi)
		} else {
			hiI = b.Construct(b.Vec(uint8(width), b.TypeName("i32")), hi)
		}
		return b.Call("clamp", arg(1), one("i32", int32(0)), hiI)
	}

	d.override(c, func() ast.Node {
		args := make([]any, len(c.Args))
		for i := range c.Args {
			switch i {
			case 1:
				args[i] = clampedCoords()
			case arrayIdx:
				args[i] = b.Call("min", toU32(i), b.Sub(b.Call("textureNumLayers", arg(0)), b.U32(1)))
			case levelIdx:
				args[i] = clampedLevel()
			default:
				args[i] = arg(i)
			}
		}
		return b.Call(name, args...)
	})
}
