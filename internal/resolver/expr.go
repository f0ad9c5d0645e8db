package resolver

import (
	"github.com/HugoDaniel/rewgsl/internal/ast"
	"github.com/HugoDaniel/rewgsl/internal/builtins"
	"github.com/HugoDaniel/rewgsl/internal/diagnostic"
	"github.com/HugoDaniel/rewgsl/internal/sem"
	"github.com/HugoDaniel/rewgsl/internal/types"
)

// ----------------------------------------------------------------------------
// Expression Type Checking
// ----------------------------------------------------------------------------

// expr resolves e and records its annotation. It returns nil when the
// expression has an error that has already been reported.
func (r *resolver) expr(e ast.Expr) *sem.Expression {
	if ast.IsNil(e) {
		return nil
	}
	if x := r.info.Expr(e); x != nil {
		return x
	}
	x := &sem.Expression{Node: e, Stmt: r.cur, Function: r.fn}

	var ok bool
	switch e := e.(type) {
	case *ast.LiteralExpr:
		ok = r.literal(e, x)
	case *ast.IdentExpr:
		ok = r.ident(e, x)
	case *ast.BinaryExpr:
		ok = r.binary(e, x)
	case *ast.UnaryExpr:
		ok = r.unary(e, x)
	case *ast.CallExpr:
		ok = r.call(e, x)
	case *ast.IndexExpr:
		ok = r.index(e, x)
	case *ast.MemberExpr:
		ok = r.member(e, x)
	case *ast.PhonyExpr:
		x.Type, ok = types.VoidType, true
	}
	if !ok {
		return nil
	}
	r.info.SetExpr(e, x)
	return x
}

func (r *resolver) literal(e *ast.LiteralExpr, x *sem.Expression) bool {
	v := &sem.Value{Int: e.Int, Float: e.Float, Bool: e.Bool}
	switch e.LitKind {
	case ast.LiteralBool:
		v.Type = types.Bool
	case ast.LiteralFloat:
		v.Type = types.AbstractFloat
		switch e.Suffix {
		case ast.SuffixF:
			v.Type = types.F32
		case ast.SuffixH:
			v.Type = types.F16
		}
	default:
		v.Type = types.AbstractInt
		switch e.Suffix {
		case ast.SuffixI:
			v.Type = types.I32
		case ast.SuffixU:
			v.Type = types.U32
		case ast.SuffixF:
			v.Type, v.Float = types.F32, float64(e.Int)
		case ast.SuffixH:
			v.Type, v.Float = types.F16, float64(e.Int)
		}
	}
	x.Type, x.Value = v.Type, v
	return true
}

func (r *resolver) ident(e *ast.IdentExpr, x *sem.Expression) bool {
	name := e.Symbol.Name()
	switch d := r.lookup(name).(type) {
	case ast.Variable:
		v := r.info.Variable(d)
		if v == nil {
			if r.isGlobal(d) {
				v = r.globalVariable(d)
			}
			if v == nil {
				return false
			}
		}
		r.info.SetIdent(e, sem.Target{Variable: v})
		v.Users = append(v.Users, e)
		if v.IsGlobal() && r.fn != nil && !r.directSeen[v] {
			r.directSeen[v] = true
			r.fn.DirectGlobals = append(r.fn.DirectGlobals, v)
		}

		switch v.Kind {
		case sem.VariableVar:
			x.Type = types.Ref(v.AddressSpace, v.Type, v.Access)
			x.RootVariable = v
		case sem.VariableConst:
			x.Type, x.Value = v.Type, v.Value
		case sem.VariableLet:
			x.Type = v.Type
			if types.IsPointer(v.Type) && v.Initializer != nil {
				x.RootVariable = v.Initializer.RootVariable
			}
		case sem.VariableParameter:
			x.Type = v.Type
			if types.IsPointer(v.Type) {
				x.RootVariable = v
			}
		default:
			x.Type = v.Type
		}
		return true

	case *ast.FunctionDecl:
		r.errorf(e, diagnostic.CodeTypeMismatch, "function '%s' cannot be used as a value", name)
		return false
	case *ast.StructDecl, *ast.AliasDecl:
		r.errorf(e, diagnostic.CodeTypeMismatch, "type '%s' cannot be used as a value", name)
		return false
	}
	r.errorf(e, diagnostic.CodeUndefinedSymbol, "undefined identifier '%s'", name)
	return false
}

func (r *resolver) isGlobal(d ast.Node) bool {
	n, ok := d.(ast.Decl)
	return ok && r.globals[ast.DeclName(n).Name()] == d
}

func (r *resolver) binary(e *ast.BinaryExpr, x *sem.Expression) bool {
	l, rr := r.expr(e.Left), r.expr(e.Right)
	if l == nil || rr == nil {
		return false
	}
	lt, rt := l.UnwrappedType(), rr.UnwrappedType()

	switch {
	case e.Op.IsLogical():
		if !lt.Equals(types.Bool) || !rt.Equals(types.Bool) {
			r.errorf(e, diagnostic.CodeInvalidOperand,
				"logical operator requires bool operands, got '%s' and '%s'", lt, rt)
			return false
		}
	case e.Op == ast.BinOpShl || e.Op == ast.BinOpShr:
		if !types.IsInteger(lt) {
			r.errorf(e, diagnostic.CodeInvalidOperand, "shift operator requires integer left operand, got '%s'", lt)
			return false
		}
	case e.Op == ast.BinOpMod || e.Op == ast.BinOpAnd || e.Op == ast.BinOpOr || e.Op == ast.BinOpXor:
		if types.ScalarOf(lt) == nil || types.IsMatrixType(lt) {
			r.errorf(e, diagnostic.CodeInvalidOperand,
				"operator '%s' requires scalar or vector operands, got '%s' and '%s'", e.Op, lt, rt)
			return false
		}
	}

	t := types.BinaryResultType(e.Op, lt, rt)
	if t == nil {
		r.errorf(e, diagnostic.CodeInvalidOperand,
			"no operator '%s' for types '%s' and '%s'", e.Op, lt, rt)
		return false
	}
	x.Type = t
	x.HasSideEffects = l.HasSideEffects || rr.HasSideEffects
	if s, ok := t.(*types.Scalar); ok && l.Value != nil && rr.Value != nil {
		x.Value = foldBinary(e.Op, l.Value, rr.Value, s)
	}
	return true
}

func (r *resolver) unary(e *ast.UnaryExpr, x *sem.Expression) bool {
	operand := r.expr(e.Operand)
	if operand == nil {
		return false
	}
	x.HasSideEffects = operand.HasSideEffects

	switch e.Op {
	case ast.UnaryOpAddr:
		ref, ok := operand.Type.(*types.Reference)
		if !ok {
			r.errorf(e, diagnostic.CodeInvalidOperand, "cannot take the address of a value of type '%s'", operand.Type)
			return false
		}
		x.Type = types.Ptr(ref.AddressSpace, ref.Element, ref.AccessMode)
		x.RootVariable = operand.RootVariable
		return true

	case ast.UnaryOpDeref:
		ptr, ok := operand.Type.(*types.Pointer)
		if !ok {
			r.errorf(e, diagnostic.CodeInvalidOperand, "dereference requires pointer type, got '%s'", operand.Type)
			return false
		}
		x.Type = types.Ref(ptr.AddressSpace, ptr.Element, ptr.AccessMode)
		x.RootVariable = operand.RootVariable
		return true
	}

	t := operand.UnwrappedType()
	switch e.Op {
	case ast.UnaryOpNeg:
		s := types.ScalarOf(t)
		if s == nil || !s.IsNumeric() || s.Kind == types.ScalarU32 {
			r.errorf(e, diagnostic.CodeInvalidOperand, "negation requires a signed numeric type, got '%s'", t)
			return false
		}
	case ast.UnaryOpNot:
		if s := types.ScalarOf(t); s == nil || s.Kind != types.ScalarBool {
			r.errorf(e, diagnostic.CodeInvalidOperand, "logical not requires bool, got '%s'", t)
			return false
		}
	case ast.UnaryOpBitNot:
		if !types.IsInteger(t) {
			r.errorf(e, diagnostic.CodeInvalidOperand, "bitwise not requires integer type, got '%s'", t)
			return false
		}
	}
	x.Type = t
	if operand.Value != nil {
		x.Value = foldUnary(e.Op, operand.Value)
	}
	return true
}

func (r *resolver) call(e *ast.CallExpr, x *sem.Expression) bool {
	args := make([]*sem.Expression, len(e.Args))
	argTypes := make([]types.Type, len(e.Args))
	for i, a := range e.Args {
		args[i] = r.expr(a)
		if args[i] == nil {
			return false
		}
		argTypes[i] = args[i].UnwrappedType()
		x.HasSideEffects = x.HasSideEffects || args[i].HasSideEffects
	}
	c := &sem.Call{Args: args}

	var name string
	if e.Func != nil {
		name = e.Func.Symbol.Name()
	}

	switch {
	case e.Type != nil && name == "bitcast":
		t := r.resolveType(e.Type)
		if t == nil {
			return false
		}
		if len(args) != 1 {
			r.errorf(e, diagnostic.CodeInvalidArgCount, "bitcast expects 1 argument, got %d", len(args))
			return false
		}
		c.Kind, c.Builtin = sem.CallBuiltin, builtins.Lookup("bitcast")
		r.info.SetIdent(e.Func, sem.Target{Builtin: c.Builtin})
		x.Type = t

	case e.Type != nil:
		t := r.resolveType(e.Type)
		if t == nil {
			return false
		}
		if arr, ok := t.(*types.Array); ok && arr.IsRuntimeSized() {
			// array<T>(a, b, c) takes its count from the arguments
			t = types.Arr(arr.Element, len(args))
		}
		if !r.construct(e, c, t, args) {
			return false
		}
		x.Type = t

	default:
		switch d := r.lookup(name).(type) {
		case *ast.FunctionDecl:
			f := r.info.Function(d)
			if !r.userCall(e, f, args) {
				return false
			}
			c.Kind, c.Function = sem.CallFunction, f
			r.info.SetIdent(e.Func, sem.Target{Function: f})
			x.Type = f.ReturnType
			x.HasSideEffects = true

		case *ast.StructDecl, *ast.AliasDecl:
			t := r.namedType(name)
			if t == nil || !r.construct(e, c, t, args) {
				return false
			}
			r.info.SetIdent(e.Func, sem.Target{Type: t})
			x.Type = t

		case ast.Variable:
			r.errorf(e, diagnostic.CodeNotCallable, "'%s' is not a function or type constructor", name)
			return false

		default:
			if b := builtins.Lookup(name); b != nil {
				t := b.ResultType(argTypes)
				if t == nil {
					r.errorf(e, diagnostic.CodeInvalidArgType,
						"no matching overload for '%s' with argument types (%s)", name, formatTypes(argTypes))
					return false
				}
				c.Kind, c.Builtin = sem.CallBuiltin, b
				r.info.SetIdent(e.Func, sem.Target{Builtin: b})
				x.Type = t
				x.HasSideEffects = x.HasSideEffects || b.SideEffects
				break
			}
			t := predeclaredType(name)
			if t == nil {
				t = inferredConstructor(name, argTypes)
			}
			if t == nil {
				r.errorf(e, diagnostic.CodeUndefinedSymbol, "unknown function '%s'", name)
				return false
			}
			if !r.construct(e, c, t, args) {
				return false
			}
			r.info.SetIdent(e.Func, sem.Target{Type: t})
			x.Type = t
		}
	}

	if (c.Kind == sem.CallConversion || c.Kind == sem.CallConstructor) && len(args) == 1 && args[0].Value != nil {
		if s, ok := x.Type.(*types.Scalar); ok {
			x.Value = convertValue(args[0].Value, s)
		}
	}
	r.info.SetCall(e, c)
	return true
}

// construct classifies a call to a type as a constructor or a conversion
// and checks the argument count where it is fixed.
func (r *resolver) construct(e *ast.CallExpr, c *sem.Call, t types.Type, args []*sem.Expression) bool {
	c.Kind, c.Type = sem.CallConstructor, t
	// Inferred constructors such as vec2(1.0, 2.0) keep an abstract element
	// type until they are materialized.
	if !types.ConcreteType(t).IsConstructible() {
		r.errorf(e, diagnostic.CodeNotCallable, "type '%s' cannot be constructed", t)
		return false
	}
	if len(args) == 1 {
		at := args[0].UnwrappedType()
		if !at.Equals(t) && sameShape(at, t) {
			c.Kind = sem.CallConversion
			return true
		}
	}
	switch ty := t.(type) {
	case *types.Scalar:
		if len(args) > 1 {
			r.errorf(e, diagnostic.CodeInvalidArgCount, "scalar constructor expects 1 argument, got %d", len(args))
			return false
		}
	case *types.Struct:
		if len(args) != 0 && len(args) != len(ty.Fields) {
			r.errorf(e, diagnostic.CodeInvalidArgCount,
				"struct constructor for '%s' expects %d arguments, got %d", ty.Name, len(ty.Fields), len(args))
			return false
		}
		for i, f := range ty.Fields {
			if i < len(args) && !types.CanConvertTo(args[i].UnwrappedType(), f.Type) {
				r.errorf(e, diagnostic.CodeInvalidArgType,
					"struct '%s' field '%s': cannot convert '%s' to '%s'", ty.Name, f.Name, args[i].UnwrappedType(), f.Type)
				return false
			}
		}
	case *types.Array:
		if len(args) != 0 && len(args) != ty.Count {
			r.errorf(e, diagnostic.CodeInvalidArgCount,
				"array constructor expects %d arguments, got %d", ty.Count, len(args))
			return false
		}
	}
	return true
}

// sameShape reports whether a conversion between a and b is component-wise.
func sameShape(a, b types.Type) bool {
	switch at := a.(type) {
	case *types.Scalar:
		_, ok := b.(*types.Scalar)
		return ok
	case *types.Vector:
		bt, ok := b.(*types.Vector)
		return ok && at.Width == bt.Width
	case *types.Matrix:
		bt, ok := b.(*types.Matrix)
		return ok && at.Cols == bt.Cols && at.Rows == bt.Rows
	}
	return false
}

func (r *resolver) userCall(e *ast.CallExpr, f *sem.Function, args []*sem.Expression) bool {
	if f.IsEntryPoint() {
		r.errorf(e, diagnostic.CodeNotCallable, "entry point '%s' cannot be called", f.Name())
		return false
	}
	if len(args) != len(f.Parameters) {
		r.errorf(e, diagnostic.CodeInvalidArgCount,
			"function '%s' expects %d arguments, got %d", f.Name(), len(f.Parameters), len(args))
		return false
	}
	for i, p := range f.Parameters {
		at := args[i].UnwrappedType()
		if !types.CanConvertTo(at, p.Type) {
			r.errorf(e, diagnostic.CodeInvalidArgType,
				"argument %d of '%s': cannot convert '%s' to '%s'", i+1, f.Name(), at, p.Type)
			return false
		}
	}
	f.CallSites = append(f.CallSites, e)
	if r.fn != nil && !r.calleeSeen[f] {
		r.calleeSeen[f] = true
		r.fn.Callees = append(r.fn.Callees, f)
	}
	return true
}

func (r *resolver) index(e *ast.IndexExpr, x *sem.Expression) bool {
	base, idx := r.expr(e.Base), r.expr(e.Index)
	if base == nil || idx == nil {
		return false
	}
	x.HasSideEffects = base.HasSideEffects || idx.HasSideEffects
	x.RootVariable = base.RootVariable

	it := idx.UnwrappedType()
	if s, ok := it.(*types.Scalar); !ok || !s.IsInteger() {
		r.errorf(e, diagnostic.CodeTypeMismatch, "index must be an integer scalar, got '%s'", it)
		return false
	}

	view, composite := memoryView(base.Type)
	var elem types.Type
	count := 0
	switch t := composite.(type) {
	case *types.Array:
		elem, count = t.Element, t.Count
	case *types.Vector:
		elem, count = t.Element, t.Width
	case *types.Matrix:
		elem, count = t.Column(), t.Cols
	default:
		r.errorf(e, diagnostic.CodeNotIndexable, "type '%s' is not indexable", composite)
		return false
	}
	if idx.Value != nil && count > 0 {
		if n := idx.Value.AsInt(); n < 0 || n >= int64(count) {
			r.errorf(e, diagnostic.CodeNotIndexable, "index %d is out of bounds [0..%d]", n, count-1)
			return false
		}
	}
	x.Type = withView(view, elem)
	return true
}

func (r *resolver) member(e *ast.MemberExpr, x *sem.Expression) bool {
	base := r.expr(e.Base)
	if base == nil {
		return false
	}
	x.HasSideEffects = base.HasSideEffects
	x.RootVariable = base.RootVariable
	name := e.Member.Name()

	view, composite := memoryView(base.Type)
	switch t := composite.(type) {
	case *types.Struct:
		f := t.Field(name)
		if f == nil {
			r.errorf(e, diagnostic.CodeNoSuchMember, "struct '%s' has no member '%s'", t.Name, name)
			return false
		}
		r.info.SetMember(e, &sem.MemberAccess{Struct: t, Field: f})
		x.Type = withView(view, f.Type)
		return true

	case *types.Vector:
		indices := swizzle(name, t.Width)
		if indices == nil {
			r.errorf(e, diagnostic.CodeNoSuchMember, "invalid swizzle '%s' for '%s'", name, t)
			return false
		}
		r.info.SetMember(e, &sem.MemberAccess{Swizzle: indices})
		if len(indices) == 1 {
			x.Type = withView(view, t.Element)
		} else {
			x.Type = types.Vec(len(indices), t.Element)
		}
		return true
	}
	r.errorf(e, diagnostic.CodeNoSuchMember, "type '%s' has no member '%s'", composite, name)
	return false
}

// memoryView splits a reference or pointer into the view and the viewed
// type. Values return a nil view.
func memoryView(t types.Type) (*types.Reference, types.Type) {
	switch v := t.(type) {
	case *types.Reference:
		return v, v.Element
	case *types.Pointer:
		ref := types.Ref(v.AddressSpace, v.Element, v.AccessMode)
		return ref, ref.Element
	}
	return nil, t
}

func withView(view *types.Reference, elem types.Type) types.Type {
	if view == nil {
		return elem
	}
	return types.Ref(view.AddressSpace, elem, view.AccessMode)
}

// swizzle returns the component indices of a swizzle, or nil if name is
// not a valid swizzle of a vector with width components.
func swizzle(name string, width int) []int {
	if len(name) == 0 || len(name) > 4 {
		return nil
	}
	const xyzw, rgba = "xyzw", "rgba"
	set := ""
	out := make([]int, len(name))
	for i := 0; i < len(name); i++ {
		c := name[i]
		idx := -1
		for j := 0; j < 4; j++ {
			if xyzw[j] == c && set != rgba {
				idx, set = j, xyzw
			} else if rgba[j] == c && set != xyzw {
				idx, set = j, rgba
			}
		}
		if idx < 0 || idx >= width {
			return nil
		}
		out[i] = idx
	}
	return out
}

func formatTypes(ts []types.Type) string {
	s := ""
	for i, t := range ts {
		if i > 0 {
			s += ", "
		}
		s += t.String()
	}
	return s
}
