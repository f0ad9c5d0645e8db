package ast

import (
	"reflect"

	"github.com/HugoDaniel/rewgsl/internal/diagnostic"
)

// Kind is the runtime type tag of a node. Kinds form a single-rooted
// hierarchy: every kind except KindNode has a parent, and the abstract
// kinds (KindExpr, KindStmt, ...) correspond to the category interfaces.
type Kind uint8

const (
	KindNode Kind = iota

	KindExpr
	KindIdentExpr
	KindLiteralExpr
	KindBinaryExpr
	KindUnaryExpr
	KindCallExpr
	KindIndexExpr
	KindMemberExpr
	KindPhonyExpr

	KindStmt
	KindCompoundStmt
	KindReturnStmt
	KindIfStmt
	KindSwitchStmt
	KindForStmt
	KindWhileStmt
	KindLoopStmt
	KindBreakStmt
	KindBreakIfStmt
	KindContinueStmt
	KindDiscardStmt
	KindAssignStmt
	KindIncrDecrStmt
	KindCallStmt
	KindDeclStmt

	KindDecl
	KindVariable
	KindVarDecl
	KindLetDecl
	KindConstDecl
	KindOverrideDecl
	KindParameter
	KindFunctionDecl
	KindStructDecl
	KindAliasDecl
	KindConstAssertDecl

	KindType
	KindIdentType
	KindVecType
	KindMatType
	KindArrayType
	KindPtrType
	KindAtomicType
	KindSamplerType
	KindTextureType

	KindStructMember
	KindAttribute
	KindSwitchCase

	KindDirective
	KindEnableDirective
	KindRequiresDirective
	KindDiagnosticDirective

	kindCount
)

type kindInfo struct {
	name     string
	parent   Kind
	abstract bool
}

var kinds = [kindCount]kindInfo{
	KindNode: {"Node", KindNode, true},

	KindExpr:        {"Expr", KindNode, true},
	KindIdentExpr:   {"IdentExpr", KindExpr, false},
	KindLiteralExpr: {"LiteralExpr", KindExpr, false},
	KindBinaryExpr:  {"BinaryExpr", KindExpr, false},
	KindUnaryExpr:   {"UnaryExpr", KindExpr, false},
	KindCallExpr:    {"CallExpr", KindExpr, false},
	KindIndexExpr:   {"IndexExpr", KindExpr, false},
	KindMemberExpr:  {"MemberExpr", KindExpr, false},
	KindPhonyExpr:   {"PhonyExpr", KindExpr, false},

	KindStmt:         {"Stmt", KindNode, true},
	KindCompoundStmt: {"CompoundStmt", KindStmt, false},
	KindReturnStmt:   {"ReturnStmt", KindStmt, false},
	KindIfStmt:       {"IfStmt", KindStmt, false},
	KindSwitchStmt:   {"SwitchStmt", KindStmt, false},
	KindForStmt:      {"ForStmt", KindStmt, false},
	KindWhileStmt:    {"WhileStmt", KindStmt, false},
	KindLoopStmt:     {"LoopStmt", KindStmt, false},
	KindBreakStmt:    {"BreakStmt", KindStmt, false},
	KindBreakIfStmt:  {"BreakIfStmt", KindStmt, false},
	KindContinueStmt: {"ContinueStmt", KindStmt, false},
	KindDiscardStmt:  {"DiscardStmt", KindStmt, false},
	KindAssignStmt:   {"AssignStmt", KindStmt, false},
	KindIncrDecrStmt: {"IncrDecrStmt", KindStmt, false},
	KindCallStmt:     {"CallStmt", KindStmt, false},
	KindDeclStmt:     {"DeclStmt", KindStmt, false},

	KindDecl:            {"Decl", KindNode, true},
	KindVariable:        {"Variable", KindDecl, true},
	KindVarDecl:         {"VarDecl", KindVariable, false},
	KindLetDecl:         {"LetDecl", KindVariable, false},
	KindConstDecl:       {"ConstDecl", KindVariable, false},
	KindOverrideDecl:    {"OverrideDecl", KindVariable, false},
	KindParameter:       {"Parameter", KindVariable, false},
	KindFunctionDecl:    {"FunctionDecl", KindDecl, false},
	KindStructDecl:      {"StructDecl", KindDecl, false},
	KindAliasDecl:       {"AliasDecl", KindDecl, false},
	KindConstAssertDecl: {"ConstAssertDecl", KindDecl, false},

	KindType:        {"Type", KindNode, true},
	KindIdentType:   {"IdentType", KindType, false},
	KindVecType:     {"VecType", KindType, false},
	KindMatType:     {"MatType", KindType, false},
	KindArrayType:   {"ArrayType", KindType, false},
	KindPtrType:     {"PtrType", KindType, false},
	KindAtomicType:  {"AtomicType", KindType, false},
	KindSamplerType: {"SamplerType", KindType, false},
	KindTextureType: {"TextureType", KindType, false},

	KindStructMember: {"StructMember", KindNode, false},
	KindAttribute:    {"Attribute", KindNode, false},
	KindSwitchCase:   {"SwitchCase", KindNode, false},

	KindDirective:           {"Directive", KindNode, true},
	KindEnableDirective:     {"EnableDirective", KindDirective, false},
	KindRequiresDirective:   {"RequiresDirective", KindDirective, false},
	KindDiagnosticDirective: {"DiagnosticDirective", KindDirective, false},
}

func (k Kind) String() string {
	if k < kindCount {
		return kinds[k].name
	}
	return "Kind(?)"
}

// Parent returns the parent kind. The parent of KindNode is KindNode.
func (k Kind) Parent() Kind { return kinds[k].parent }

// IsAbstract reports whether no node has exactly this kind.
func (k Kind) IsAbstract() bool { return kinds[k].abstract }

// IsA reports whether k equals ancestor or descends from it.
func (k Kind) IsA(ancestor Kind) bool {
	for {
		if k == ancestor {
			return true
		}
		if k == KindNode {
			return false
		}
		k = kinds[k].parent
	}
}

// Overlaps reports whether one of the kinds is an ancestor of the other.
func (k Kind) Overlaps(other Kind) bool {
	return k.IsA(other) || other.IsA(k)
}

// LeafKinds returns every concrete kind in declaration order.
func LeafKinds() []Kind {
	var out []Kind
	for k := Kind(0); k < kindCount; k++ {
		if !kinds[k].abstract {
			out = append(out, k)
		}
	}
	return out
}

var abstractKinds = map[reflect.Type]Kind{
	reflect.TypeOf((*Node)(nil)).Elem():      KindNode,
	reflect.TypeOf((*Expr)(nil)).Elem():      KindExpr,
	reflect.TypeOf((*Stmt)(nil)).Elem():      KindStmt,
	reflect.TypeOf((*Decl)(nil)).Elem():      KindDecl,
	reflect.TypeOf((*Variable)(nil)).Elem():  KindVariable,
	reflect.TypeOf((*Type)(nil)).Elem():      KindType,
	reflect.TypeOf((*Directive)(nil)).Elem(): KindDirective,
}

// KindOf returns the kind that the Go type T stands for. T is either one
// of the category interfaces or a pointer to a concrete node type.
func KindOf[T Node]() Kind {
	var zero T
	if n, ok := any(zero).(Node); ok {
		// A typed nil pointer; Kind never dereferences its receiver.
		return n.Kind()
	}
	if k, ok := abstractKinds[reflect.TypeOf((*T)(nil)).Elem()]; ok {
		return k
	}
	diagnostic.ICE("no node kind for Go type %v", reflect.TypeOf((*T)(nil)).Elem())
	return KindNode
}

// Is reports whether n is a non-nil node of type T.
func Is[T Node](n Node) bool {
	_, ok := As[T](n)
	return ok
}

// As narrows n to T. It returns false for nil nodes and typed nil pointers.
func As[T Node](n Node) (T, bool) {
	var zero T
	if IsNil(n) {
		return zero, false
	}
	t, ok := n.(T)
	return t, ok
}

// IsNil reports whether n is nil or a typed nil pointer.
func IsNil(n any) bool {
	if n == nil {
		return true
	}
	v := reflect.ValueOf(n)
	return v.Kind() == reflect.Pointer && v.IsNil()
}
