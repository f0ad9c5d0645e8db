// Package resolver performs semantic analysis of a WGSL module and records
// the result in a sem.Info.
//
// Resolution runs in phases:
//  1. collect module-scope names
//  2. resolve structs, aliases and module-scope variables (lazily, so
//     declaration order does not matter)
//  3. resolve function signatures
//  4. resolve function bodies: expression types, identifier targets,
//     statement behaviors and reachability
//  5. complete the call graph (transitive globals, ancestor entry points)
//
// Errors are reported as diagnostics; the resolver never panics on bad
// input.
package resolver

import (
	"fmt"

	"github.com/HugoDaniel/rewgsl/internal/ast"
	"github.com/HugoDaniel/rewgsl/internal/diagnostic"
	"github.com/HugoDaniel/rewgsl/internal/sem"
	"github.com/HugoDaniel/rewgsl/internal/types"
)

type resolver struct {
	module *ast.Module
	info   *sem.Info
	diags  *diagnostic.DiagnosticList

	globals map[string]ast.Node
	scopes  []map[string]ast.Node

	structTypes map[*ast.StructDecl]*types.Struct
	aliasTypes  map[*ast.AliasDecl]types.Type
	pending     map[ast.Node]bool

	// Current context
	fn         *sem.Function
	cur        *sem.Statement
	block      *ast.CompoundStmt
	loops      int
	switches   int
	directSeen map[*sem.Variable]bool
	calleeSeen map[*sem.Function]bool
}

// Resolve analyzes module and returns its semantic information together
// with the diagnostics found.
func Resolve(module *ast.Module) (*sem.Info, *diagnostic.DiagnosticList) {
	r := &resolver{
		module:      module,
		info:        sem.NewInfo(),
		diags:       diagnostic.NewDiagnosticList(module.Source()),
		globals:     make(map[string]ast.Node),
		structTypes: make(map[*ast.StructDecl]*types.Struct),
		aliasTypes:  make(map[*ast.AliasDecl]types.Type),
		pending:     make(map[ast.Node]bool),
	}

	// Phase 1: module-scope names
	r.collectGlobals()

	// Phase 2: types and module-scope variables
	for _, decl := range module.Decls {
		switch d := decl.(type) {
		case *ast.StructDecl:
			r.structType(d)
		case *ast.AliasDecl:
			r.aliasType(d)
		case ast.Variable:
			r.globalVariable(d)
		case *ast.ConstAssertDecl:
			r.constAssert(d)
		}
	}

	// Phase 3: signatures
	for _, fn := range module.Functions() {
		r.signature(fn)
	}

	// Phase 4: bodies
	for _, fn := range module.Functions() {
		r.functionBody(fn)
	}

	// Phase 5: call graph
	r.completeCallGraph()

	return r.info, r.diags
}

// ----------------------------------------------------------------------------
// Phase 1: Collect Module-Scope Names
// ----------------------------------------------------------------------------

func (r *resolver) collectGlobals() {
	for _, decl := range r.module.Decls {
		name := ast.DeclName(decl)
		if !name.IsValid() {
			continue
		}
		if prev, ok := r.globals[name.Name()]; ok {
			r.errorf(decl, diagnostic.CodeDuplicateSymbol,
				"redeclaration of '%s' (previously declared at offset %d)", name, prev.Range().Loc.Start)
			continue
		}
		r.globals[name.Name()] = decl
	}
}

// ----------------------------------------------------------------------------
// Phase 2: Types and Module-Scope Variables
// ----------------------------------------------------------------------------

func (r *resolver) structType(d *ast.StructDecl) *types.Struct {
	if s, ok := r.structTypes[d]; ok {
		return s
	}
	if r.pending[d] {
		r.errorf(d, diagnostic.CodeRecursiveType, "struct '%s' contains itself", d.Name)
		return nil
	}
	r.pending[d] = true
	defer delete(r.pending, d)

	s := &types.Struct{Name: d.Name.Name()}
	for _, m := range d.Members {
		r.resolveAttributes(m.Attributes)
		t := r.resolveType(m.Type)
		if t == nil {
			r.errorf(m, diagnostic.CodeUndefinedSymbol, "cannot resolve type for struct member '%s'", m.Name)
			continue
		}
		f := &types.StructField{Name: m.Name.Name(), Type: t, Index: len(s.Fields)}
		for _, a := range m.Attributes {
			n, ok := r.attributeInt(a, 0)
			if !ok {
				continue
			}
			switch a.Name {
			case "align":
				f.ExplicitAlign = int(n)
			case "size":
				f.ExplicitSize = int(n)
			case "offset":
				f.HasOffset, f.ExplicitOffset = true, int(n)
			case "stride":
				switch ft := t.(type) {
				case *types.Matrix:
					f.MatrixStride = int(n)
				case *types.Array:
					f.Type = &types.Array{Element: ft.Element, Count: ft.Count, ExplicitStride: int(n)}
				}
			}
		}
		s.Fields = append(s.Fields, f)
	}
	s.ComputeLayout()

	r.structTypes[d] = s
	r.info.SetStruct(d, s)
	return s
}

func (r *resolver) aliasType(d *ast.AliasDecl) types.Type {
	if t, ok := r.aliasTypes[d]; ok {
		return t
	}
	if r.pending[d] {
		r.errorf(d, diagnostic.CodeRecursiveType, "alias '%s' refers to itself", d.Name)
		return nil
	}
	r.pending[d] = true
	defer delete(r.pending, d)

	t := r.resolveType(d.Type)
	if t == nil {
		r.errorf(d, diagnostic.CodeUndefinedSymbol, "cannot resolve type alias '%s'", d.Name)
	}
	r.aliasTypes[d] = t
	return t
}

func (r *resolver) constAssert(d *ast.ConstAssertDecl) {
	x := r.expr(d.Expr)
	if x == nil {
		return
	}
	if x.Value == nil {
		r.errorf(d, diagnostic.CodeInvalidConstExpr, "const_assert requires a constant expression")
		return
	}
	if x.Value.Type.Kind == types.ScalarBool && !x.Value.Bool {
		r.errorf(d, diagnostic.CodeInvalidConstExpr, "const_assert failure")
	}
}

// globalVariable resolves a module-scope variable on first use.
func (r *resolver) globalVariable(d ast.Variable) *sem.Variable {
	if v := r.info.Variable(d); v != nil {
		return v
	}
	if r.pending[d] {
		r.errorf(d, diagnostic.CodeRecursiveType, "'%s' is used in its own initializer", d.Fields().Name)
		return nil
	}
	r.pending[d] = true
	defer delete(r.pending, d)

	// Module-scope initializers are resolved outside any function.
	fn, cur, block := r.fn, r.cur, r.block
	scopes := r.scopes
	r.fn, r.cur, r.block, r.scopes = nil, nil, nil, nil
	defer func() { r.fn, r.cur, r.block, r.scopes = fn, cur, block, scopes }()

	if _, isLet := d.(*ast.LetDecl); isLet {
		r.errorf(d, diagnostic.CodeInvalidAddressSpace, "'let' is not allowed at module scope")
	}
	v := r.variable(d)
	if v == nil {
		return nil
	}
	r.resolveAttributes(d.Fields().Attributes)
	group, hasGroup := r.namedInt(d.Fields().Attributes, "group")
	binding, hasBinding := r.namedInt(d.Fields().Attributes, "binding")
	if hasGroup && hasBinding {
		v.BindingPoint = &sem.BindingPoint{Group: uint32(group), Binding: uint32(binding)}
	}
	if vd, ok := d.(*ast.VarDecl); ok {
		r.validateModuleVar(vd, v)
	}
	r.info.SetVariable(d, v)
	return v
}

func (r *resolver) validateModuleVar(d *ast.VarDecl, v *sem.Variable) {
	switch v.AddressSpace {
	case ast.AddressSpaceFunction:
		r.errorf(d, diagnostic.CodeInvalidAddressSpace, "module-scope 'var' cannot use the function address space")
	case ast.AddressSpaceUniform, ast.AddressSpaceStorage:
		if v.BindingPoint == nil {
			r.errorf(d, diagnostic.CodeMissingBinding,
				"resource variable '%s' requires @group and @binding attributes", d.Name)
		}
		if v.Type != nil && !v.Type.IsHostShareable() {
			r.errorf(d, diagnostic.CodeInvalidStorageVar,
				"type '%s' cannot be used in address space '%s'", v.Type, v.AddressSpace)
		}
		if d.Initializer != nil {
			r.errorf(d, diagnostic.CodeInvalidInitializer, "resource variables cannot have initializers")
		}
	case ast.AddressSpaceWorkgroup:
		if d.Initializer != nil {
			r.errorf(d, diagnostic.CodeInvalidWorkgroupVar, "workgroup variables cannot have initializers")
		}
	}
}

// ----------------------------------------------------------------------------
// Variables (shared by module and function scope)
// ----------------------------------------------------------------------------

// variable resolves the declared type and initializer of any variable
// declaration except parameters. It does not record the variable.
func (r *resolver) variable(d ast.Variable) *sem.Variable {
	f := d.Fields()
	v := &sem.Variable{Decl: d, Function: r.fn, Index: -1}

	var declared types.Type
	if f.Type != nil {
		declared = r.resolveType(f.Type)
		if declared == nil {
			return nil
		}
	}
	if f.Initializer != nil {
		v.Initializer = r.expr(f.Initializer)
	}

	var initType types.Type
	if v.Initializer != nil {
		initType = v.Initializer.UnwrappedType()
	}

	switch vd := d.(type) {
	case *ast.VarDecl:
		v.Kind = sem.VariableVar
		v.AddressSpace = vd.AddressSpace
		if v.AddressSpace == ast.AddressSpaceNone {
			if r.fn != nil {
				v.AddressSpace = ast.AddressSpaceFunction
			} else if isHandle(declared) {
				v.AddressSpace = ast.AddressSpaceHandle
			} else {
				v.AddressSpace = ast.AddressSpacePrivate
			}
		}
		v.Access = types.EffectiveAccess(v.AddressSpace, vd.AccessMode)
		if v.AddressSpace == ast.AddressSpaceHandle {
			v.Access = ast.AccessModeRead
		}
	case *ast.LetDecl:
		v.Kind = sem.VariableLet
		if f.Initializer == nil {
			r.errorf(d, diagnostic.CodeMissingInitializer, "'let' declaration '%s' requires an initializer", f.Name)
		}
	case *ast.ConstDecl:
		v.Kind = sem.VariableConst
		if f.Initializer == nil {
			r.errorf(d, diagnostic.CodeMissingInitializer, "const declaration '%s' requires an initializer", f.Name)
			return nil
		}
	case *ast.OverrideDecl:
		v.Kind = sem.VariableOverride
		if declared == nil && f.Initializer == nil {
			r.errorf(d, diagnostic.CodeMissingInitializer,
				"override declaration '%s' requires a type or an initializer", f.Name)
			return nil
		}
	}

	switch {
	case declared != nil:
		v.Type = declared
		if initType != nil && !types.CanConvertTo(initType, declared) {
			r.errorf(d, diagnostic.CodeTypeMismatch,
				"cannot initialize '%s' of type '%s' with a value of type '%s'", f.Name, declared, initType)
		}
	case v.Kind == sem.VariableConst:
		// const keeps abstract types
		v.Type = initType
	case initType != nil:
		v.Type = types.ConcreteType(initType)
	default:
		r.errorf(d, diagnostic.CodeMissingInitializer, "'%s' needs a type or an initializer", f.Name)
		return nil
	}

	if v.Kind == sem.VariableConst && v.Initializer != nil {
		if v.Initializer.Value == nil {
			if types.IsScalar(v.Type) {
				r.errorf(d, diagnostic.CodeInvalidConstExpr, "const '%s' must be initialized with a constant expression", f.Name)
			}
		} else if s, ok := v.Type.(*types.Scalar); ok {
			v.Value = convertValue(v.Initializer.Value, s)
		}
	}
	return v
}

func isHandle(t types.Type) bool {
	switch t.(type) {
	case *types.Texture, *types.Sampler:
		return true
	}
	return false
}

// ----------------------------------------------------------------------------
// Phase 3: Function Signatures
// ----------------------------------------------------------------------------

func (r *resolver) signature(d *ast.FunctionDecl) *sem.Function {
	if f := r.info.Function(d); f != nil {
		return f
	}
	f := &sem.Function{Decl: d, ReturnType: types.VoidType}

	r.resolveAttributes(d.Attributes)
	for _, a := range d.Attributes {
		switch a.Name {
		case "vertex":
			f.Stage = sem.StageVertex
		case "fragment":
			f.Stage = sem.StageFragment
		case "compute":
			f.Stage = sem.StageCompute
		case "workgroup_size":
			f.WorkgroupSize = [3]uint32{1, 1, 1}
			for i := range a.Args {
				if n, ok := r.attributeInt(a, i); ok && i < 3 {
					f.WorkgroupSize[i] = uint32(n)
				}
			}
		}
	}
	if f.Stage == sem.StageCompute && ast.FindAttribute(d.Attributes, "workgroup_size") == nil {
		r.errorf(d, diagnostic.CodeMissingAttribute,
			"compute entry point '%s' requires @workgroup_size attribute", d.Name)
	}

	for i, p := range d.Parameters {
		r.resolveAttributes(p.Attributes)
		v := &sem.Variable{Decl: p, Kind: sem.VariableParameter, Function: f, Index: i}
		v.Type = r.resolveType(p.Type)
		if v.Type == nil {
			r.errorf(p, diagnostic.CodeUndefinedSymbol, "cannot resolve type of parameter '%s'", p.Name)
			v.Type = types.I32
		}
		if ptr, ok := v.Type.(*types.Pointer); ok {
			v.AddressSpace = ptr.AddressSpace
			v.Access = types.EffectiveAccess(ptr.AddressSpace, ptr.AccessMode)
		}
		if n, ok := r.namedInt(p.Attributes, "location"); ok {
			loc := uint32(n)
			v.Location = &loc
		}
		r.info.SetVariable(p, v)
		f.Parameters = append(f.Parameters, v)
	}

	if d.ReturnType != nil {
		if t := r.resolveType(d.ReturnType); t != nil {
			f.ReturnType = t
		}
	}
	r.resolveAttributes(d.ReturnAttributes)

	r.info.SetFunction(d, f)
	return f
}

// ----------------------------------------------------------------------------
// Phase 4: Function Bodies
// ----------------------------------------------------------------------------

func (r *resolver) functionBody(d *ast.FunctionDecl) {
	f := r.info.Function(d)
	if d.Body == nil {
		if ast.FindAttribute(d.Attributes, "internal") == nil {
			r.errorf(d, diagnostic.CodeInvalidEntryPoint, "function '%s' has no body", d.Name)
		}
		f.Behaviors = sem.BehaviorReturn
		return
	}

	r.fn = f
	r.directSeen = make(map[*sem.Variable]bool)
	r.calleeSeen = make(map[*sem.Function]bool)
	r.loops, r.switches = 0, 0
	defer func() { r.fn, r.directSeen, r.calleeSeen = nil, nil, nil }()

	r.push()
	for _, p := range f.Parameters {
		r.declare(p.Decl, p)
	}
	f.Behaviors = r.stmt(d.Body)
	r.pop()

	if f.ReturnType != types.VoidType && f.Behaviors.Contains(sem.BehaviorNext) {
		r.errorf(d, diagnostic.CodeMissingReturn,
			"function '%s' must return a value of type '%s'", d.Name, f.ReturnType)
	}
}

// ----------------------------------------------------------------------------
// Scopes
// ----------------------------------------------------------------------------

func (r *resolver) push() { r.scopes = append(r.scopes, make(map[string]ast.Node)) }
func (r *resolver) pop()  { r.scopes = r.scopes[:len(r.scopes)-1] }

// lookup finds the innermost declaration of name.
func (r *resolver) lookup(name string) ast.Node {
	for i := len(r.scopes) - 1; i >= 0; i-- {
		if n, ok := r.scopes[i][name]; ok {
			return n
		}
	}
	return r.globals[name]
}

// declare adds a local variable or parameter to the innermost scope and
// records what it shadows.
func (r *resolver) declare(d ast.Variable, v *sem.Variable) {
	name := d.Fields().Name.Name()
	scope := r.scopes[len(r.scopes)-1]
	if _, dup := scope[name]; dup {
		r.errorf(d, diagnostic.CodeDuplicateSymbol, "redeclaration of '%s'", name)
	}
	v.Shadows = r.lookup(name)
	scope[name] = d
}

// ----------------------------------------------------------------------------
// Phase 5: Call Graph
// ----------------------------------------------------------------------------

func (r *resolver) completeCallGraph() {
	done := make(map[*sem.Function]bool)
	visiting := make(map[*sem.Function]bool)

	var visit func(f *sem.Function)
	visit = func(f *sem.Function) {
		if done[f] {
			return
		}
		if visiting[f] {
			r.errorf(f.Decl, diagnostic.CodeRecursiveFunction, "recursive call to function '%s'", f.Name())
			return
		}
		visiting[f] = true
		seen := make(map[*sem.Variable]bool)
		add := func(v *sem.Variable) {
			if !seen[v] {
				seen[v] = true
				f.TransitiveGlobals = append(f.TransitiveGlobals, v)
			}
		}
		for _, g := range f.DirectGlobals {
			add(g)
		}
		for _, c := range f.Callees {
			visit(c)
			for _, g := range c.TransitiveGlobals {
				add(g)
			}
		}
		visiting[f] = false
		done[f] = true
	}
	for _, f := range r.info.Functions {
		visit(f)
	}

	for _, ep := range r.info.Functions {
		if !ep.IsEntryPoint() {
			continue
		}
		reached := map[*sem.Function]bool{ep: true}
		stack := append([]*sem.Function(nil), ep.Callees...)
		for len(stack) > 0 {
			f := stack[0]
			stack = stack[1:]
			if reached[f] {
				continue
			}
			reached[f] = true
			f.AncestorEntryPoints = append(f.AncestorEntryPoints, ep)
			stack = append(stack, f.Callees...)
		}
	}
}

// ----------------------------------------------------------------------------
// Attributes
// ----------------------------------------------------------------------------

// attributesWithExprArgs lists the attributes whose arguments are
// expressions. The others take enumerants (builtin names, interpolation
// kinds) that are not identifiers of declarations.
var attributesWithExprArgs = map[string]bool{
	"group": true, "binding": true, "location": true, "id": true,
	"size": true, "align": true, "offset": true, "stride": true,
	"workgroup_size": true, "blend_src": true,
}

func (r *resolver) resolveAttributes(attrs []*ast.Attribute) {
	for _, a := range attrs {
		args := a.Args
		switch {
		case a.Name == "internal":
			// The first argument is the intrinsic marker.
			if len(args) > 0 {
				args = args[1:]
			}
		case !attributesWithExprArgs[a.Name]:
			continue
		}
		for _, arg := range args {
			if r.info.Expr(arg) == nil {
				r.expr(arg)
			}
		}
	}
}

// attributeInt returns the constant integer value of argument i of a.
func (r *resolver) attributeInt(a *ast.Attribute, i int) (int64, bool) {
	if i >= len(a.Args) {
		return 0, false
	}
	x := r.info.Expr(a.Args[i])
	if x == nil || x.Value == nil {
		return 0, false
	}
	return x.Value.AsInt(), true
}

func (r *resolver) namedInt(attrs []*ast.Attribute, name string) (int64, bool) {
	if a := ast.FindAttribute(attrs, name); a != nil {
		return r.attributeInt(a, 0)
	}
	return 0, false
}

// ----------------------------------------------------------------------------
// Helper Functions
// ----------------------------------------------------------------------------

func (r *resolver) errorf(n ast.Node, code diagnostic.DiagnosticCode, format string, args ...any) {
	r.diags.AddErrorWithCode(int(n.Range().Loc.Start), code, fmt.Sprintf(format, args...))
}
