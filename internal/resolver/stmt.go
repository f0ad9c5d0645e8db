package resolver

import (
	"github.com/HugoDaniel/rewgsl/internal/ast"
	"github.com/HugoDaniel/rewgsl/internal/diagnostic"
	"github.com/HugoDaniel/rewgsl/internal/sem"
	"github.com/HugoDaniel/rewgsl/internal/types"
)

// ----------------------------------------------------------------------------
// Statements and Behaviors
// ----------------------------------------------------------------------------

// stmt resolves s, records its annotation and returns its behaviors.
func (r *resolver) stmt(s ast.Stmt) sem.Behaviors {
	return r.enter(s, func() sem.Behaviors { return r.dispatch(s) })
}

// enter records the annotation of s and runs body with s as the current
// statement.
func (r *resolver) enter(s ast.Stmt, body func() sem.Behaviors) sem.Behaviors {
	st := &sem.Statement{Node: s, Parent: r.cur, Block: r.block, Function: r.fn, Reachable: true}
	r.info.SetStmt(s, st)
	prev := r.cur
	r.cur = st
	b := body()
	r.cur = prev
	st.Behaviors = b
	return b
}

func (r *resolver) dispatch(s ast.Stmt) sem.Behaviors {
	switch s := s.(type) {
	case *ast.CompoundStmt:
		return r.compound(s, nil)
	case *ast.ReturnStmt:
		r.returnStmt(s)
		return sem.BehaviorReturn
	case *ast.IfStmt:
		return r.ifStmt(s)
	case *ast.SwitchStmt:
		return r.switchStmt(s)
	case *ast.LoopStmt:
		return r.loopStmt(s)
	case *ast.WhileStmt:
		return r.whileStmt(s)
	case *ast.ForStmt:
		return r.forStmt(s)
	case *ast.BreakStmt:
		if r.loops == 0 && r.switches == 0 {
			r.errorf(s, diagnostic.CodeBreakOutsideLoop, "break statement must be inside a loop or switch")
		}
		return sem.BehaviorBreak
	case *ast.BreakIfStmt:
		r.condition(s.Condition, "break if")
		return sem.BehaviorBreak | sem.BehaviorNext
	case *ast.ContinueStmt:
		if r.loops == 0 {
			r.errorf(s, diagnostic.CodeContinueOutsideLoop, "continue statement must be inside a loop")
		}
		return sem.BehaviorContinue
	case *ast.DiscardStmt:
		// discard demotes the invocation to a helper; execution continues.
		return sem.BehaviorNext
	case *ast.AssignStmt:
		r.assign(s)
	case *ast.IncrDecrStmt:
		r.incrDecr(s)
	case *ast.CallStmt:
		r.callStmt(s)
	case *ast.DeclStmt:
		r.declStmt(s)
	}
	return sem.BehaviorNext
}

// callStmt resolves a call statement. Only user functions and builtins
// that have side effects or return nothing may be called for effect.
func (r *resolver) callStmt(s *ast.CallStmt) {
	r.expr(s.Call)
	c := r.info.Call(s.Call)
	if c == nil {
		return
	}
	switch c.Kind {
	case sem.CallConstructor, sem.CallConversion:
		r.errorf(s, diagnostic.CodeUnusedValue, "value constructor evaluated but not used")
	case sem.CallBuiltin:
		if !c.Builtin.SideEffects && r.info.TypeOf(s.Call) != types.VoidType {
			r.errorf(s, diagnostic.CodeUnusedValue, "result of builtin '%s' must be used", c.Builtin.Name)
		}
	}
}

// compound resolves a block. tail is the continuing block of a loop, which
// sees the declarations of the loop body.
func (r *resolver) compound(s *ast.CompoundStmt, tail *ast.CompoundStmt) sem.Behaviors {
	r.push()
	prevBlock := r.block
	r.block = s

	behaviors := sem.BehaviorNext
	for _, child := range s.Stmts {
		reachable := behaviors.Contains(sem.BehaviorNext)
		b := r.stmt(child)
		r.info.Stmt(child).Reachable = reachable
		if reachable {
			behaviors = behaviors.Without(sem.BehaviorNext) | b
		}
	}
	if tail != nil {
		behaviors |= r.stmt(tail)
	}

	r.block = prevBlock
	r.pop()
	return behaviors
}

func (r *resolver) returnStmt(s *ast.ReturnStmt) {
	want := r.fn.ReturnType
	if s.Value == nil {
		if want != types.VoidType {
			r.errorf(s, diagnostic.CodeInvalidReturn, "missing return value of type '%s'", want)
		}
		return
	}
	x := r.expr(s.Value)
	if x == nil {
		return
	}
	if want == types.VoidType {
		r.errorf(s, diagnostic.CodeInvalidReturn, "function '%s' does not return a value", r.fn.Name())
		return
	}
	if got := x.UnwrappedType(); !types.CanConvertTo(got, want) {
		r.errorf(s, diagnostic.CodeInvalidReturn, "cannot return '%s' from a function returning '%s'", got, want)
	}
}

func (r *resolver) condition(e ast.Expr, what string) {
	x := r.expr(e)
	if x == nil {
		return
	}
	if t := x.UnwrappedType(); !t.Equals(types.Bool) {
		r.errorf(e, diagnostic.CodeTypeMismatch, "%s condition must be bool, got '%s'", what, t)
	}
}

func (r *resolver) ifStmt(s *ast.IfStmt) sem.Behaviors {
	r.condition(s.Condition, "if")
	b := r.stmt(s.Body)
	if s.Else != nil {
		b |= r.stmt(s.Else)
	} else {
		b |= sem.BehaviorNext
	}
	return b
}

func (r *resolver) switchStmt(s *ast.SwitchStmt) sem.Behaviors {
	x := r.expr(s.Expr)
	if x != nil {
		if sc, ok := x.UnwrappedType().(*types.Scalar); !ok || !sc.IsInteger() {
			r.errorf(x.Node, diagnostic.CodeTypeMismatch, "switch selector must be an integer scalar")
		}
	}

	var b sem.Behaviors
	defaults := 0
	r.switches++
	for _, c := range s.Cases {
		for _, sel := range c.Selectors {
			if x := r.expr(sel); x != nil && x.Value == nil {
				r.errorf(sel, diagnostic.CodeInvalidConstExpr, "case selector must be a constant expression")
			}
		}
		if c.HasDefault {
			defaults++
		}
		b |= r.stmt(c.Body)
	}
	r.switches--

	if defaults != 1 {
		r.errorf(s, diagnostic.CodeInvalidConstExpr, "switch statement must have exactly one default clause")
	}
	if b.Contains(sem.BehaviorBreak) {
		b = b.Without(sem.BehaviorBreak) | sem.BehaviorNext
	}
	return b
}

// loopBehaviors folds the behaviors of a loop body: break and continue stay
// inside, and the loop falls through only if something breaks out of it.
func loopBehaviors(body sem.Behaviors, mayExit bool) sem.Behaviors {
	b := body.Without(sem.BehaviorContinue | sem.BehaviorNext)
	if b.Contains(sem.BehaviorBreak) || mayExit {
		b = b.Without(sem.BehaviorBreak) | sem.BehaviorNext
	}
	return b
}

func (r *resolver) loopStmt(s *ast.LoopStmt) sem.Behaviors {
	r.loops++
	body := r.enter(s.Body, func() sem.Behaviors { return r.compound(s.Body, s.Continuing) })
	r.loops--
	return loopBehaviors(body, false)
}

func (r *resolver) whileStmt(s *ast.WhileStmt) sem.Behaviors {
	r.condition(s.Condition, "while")
	r.loops++
	body := r.stmt(s.Body)
	r.loops--
	return loopBehaviors(body, true)
}

func (r *resolver) forStmt(s *ast.ForStmt) sem.Behaviors {
	r.push()
	if s.Init != nil {
		r.stmt(s.Init)
	}
	if s.Condition != nil {
		r.condition(s.Condition, "for")
	}
	r.loops++
	if s.Update != nil {
		r.stmt(s.Update)
	}
	body := r.stmt(s.Body)
	r.loops--
	r.pop()
	return loopBehaviors(body, s.Condition != nil)
}

func (r *resolver) assign(s *ast.AssignStmt) {
	rhs := r.expr(s.Right)
	if _, phony := s.Left.(*ast.PhonyExpr); phony {
		r.expr(s.Left)
		if s.Op != ast.AssignOpSimple {
			r.errorf(s, diagnostic.CodeInvalidAssignment, "phony assignment cannot be compound")
		}
		return
	}
	lhs := r.expr(s.Left)
	if lhs == nil || rhs == nil {
		return
	}
	ref, ok := lhs.Type.(*types.Reference)
	if !ok {
		r.errorf(s, diagnostic.CodeInvalidAssignment, "cannot assign to a value of type '%s'", lhs.Type)
		return
	}
	if ref.AccessMode == ast.AccessModeRead {
		r.errorf(s, diagnostic.CodeInvalidAssignment, "cannot assign to read-only memory")
		return
	}
	rt := rhs.UnwrappedType()
	if s.Op != ast.AssignOpSimple {
		rt = types.BinaryResultType(s.Op.BinaryOp(), ref.Element, rt)
		if rt == nil {
			r.errorf(s, diagnostic.CodeInvalidOperand, "no operator '%s' for types '%s' and '%s'",
				s.Op, ref.Element, rhs.UnwrappedType())
			return
		}
	}
	if !types.CanConvertTo(rt, ref.Element) {
		r.errorf(s, diagnostic.CodeTypeMismatch, "cannot assign '%s' to '%s'", rt, ref.Element)
	}
}

func (r *resolver) incrDecr(s *ast.IncrDecrStmt) {
	x := r.expr(s.Expr)
	if x == nil {
		return
	}
	ref, ok := x.Type.(*types.Reference)
	if !ok || ref.AccessMode == ast.AccessModeRead {
		r.errorf(s, diagnostic.CodeInvalidAssignment, "increment and decrement require a writable reference")
		return
	}
	if sc, ok := ref.Element.(*types.Scalar); !ok || !sc.IsInteger() {
		r.errorf(s, diagnostic.CodeInvalidOperand, "increment and decrement require an integer scalar, got '%s'", ref.Element)
	}
}

func (r *resolver) declStmt(s *ast.DeclStmt) {
	if ca, ok := s.Decl.(*ast.ConstAssertDecl); ok {
		r.constAssert(ca)
		return
	}
	d, ok := s.Decl.(ast.Variable)
	if !ok {
		r.errorf(s, diagnostic.CodeInvalidInitializer, "only variables can be declared inside a function")
		return
	}
	if _, isOverride := d.(*ast.OverrideDecl); isOverride {
		r.errorf(s, diagnostic.CodeInvalidOverride, "override declarations must be at module scope")
		return
	}
	if vd, isVar := d.(*ast.VarDecl); isVar && vd.AddressSpace != ast.AddressSpaceNone && vd.AddressSpace != ast.AddressSpaceFunction {
		r.errorf(s, diagnostic.CodeInvalidAddressSpace, "function-scope 'var' must use the function address space")
	}
	v := r.variable(d)
	if v == nil {
		return
	}
	r.info.SetVariable(d, v)
	r.declare(d, v)
}
