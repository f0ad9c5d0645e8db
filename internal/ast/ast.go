// Package ast defines the Abstract Syntax Tree types for WGSL.
//
// Nodes are immutable once a Builder has created them. A node is identified
// by its pointer and carries the generation of the Builder that owns it. A
// CloneContext copies a Module into a new Builder while applying
// substitutions, which is how every transform pass rewrites code.
package ast

import (
	"sync/atomic"
)

// ----------------------------------------------------------------------------
// Source Location
// ----------------------------------------------------------------------------

// Loc represents a location in source code.
type Loc struct {
	Start int32 // Byte offset of start
}

// Range represents a range in source code.
type Range struct {
	Loc Loc
	Len int32
}

// End returns the byte offset one past the range.
func (r Range) End() int32 { return r.Loc.Start + r.Len }

// ----------------------------------------------------------------------------
// Identity
// ----------------------------------------------------------------------------

// GenerationID identifies the Builder (and the Module snapshotted from it)
// that owns a node or a symbol. Zero is never a valid generation.
type GenerationID uint64

var lastGeneration atomic.Uint64

// NextGenerationID returns a process-wide unique generation.
func NextGenerationID() GenerationID {
	return GenerationID(lastGeneration.Add(1))
}

// NodeID is the creation index of a node inside its Builder. Children are
// always created before their parents.
type NodeID uint32

// Node is implemented by every AST node.
type Node interface {
	ID() NodeID
	Generation() GenerationID
	Range() Range
	Kind() Kind

	// clone builds a copy of the node in ctx's destination, cloning its
	// children through ctx.
	clone(ctx *CloneContext) Node
	// children calls fn for every non-nil direct child, in source order.
	children(fn func(Node))
}

// NodeBase carries the identity shared by every node.
type NodeBase struct {
	id  NodeID
	gen GenerationID
	rng Range
}

func (n *NodeBase) ID() NodeID               { return n.id }
func (n *NodeBase) Generation() GenerationID { return n.gen }
func (n *NodeBase) Range() Range             { return n.rng }

func (n *NodeBase) base() *NodeBase { return n }

type baser interface{ base() *NodeBase }

// Children returns the direct children of n in source order.
func Children(n Node) []Node {
	var out []Node
	n.children(func(c Node) { out = append(out, c) })
	return out
}

// ----------------------------------------------------------------------------
// Category interfaces
// ----------------------------------------------------------------------------

// Expr represents an expression.
type Expr interface {
	Node
	isExpr()
}

// Stmt represents a statement.
type Stmt interface {
	Node
	isStmt()
}

// Decl represents a top-level or local declaration.
type Decl interface {
	Node
	isDecl()
}

// Type represents a type as written in source.
type Type interface {
	Node
	isType()
}

// Directive represents a top-level directive (enable, requires, diagnostic).
type Directive interface {
	Node
	isDirective()
}

// Variable is implemented by every variable-like declaration: var, let,
// const, override and function parameters.
type Variable interface {
	Decl
	Fields() *VariableFields
}

// VariableFields holds what all variable declarations have in common.
type VariableFields struct {
	Name        Symbol
	Type        Type // nil if inferred
	Initializer Expr // nil if absent
	Attributes  []*Attribute
}

// Fields returns the shared variable fields.
func (v *VariableFields) Fields() *VariableFields { return v }

// ----------------------------------------------------------------------------
// Address Spaces and Access Modes
// ----------------------------------------------------------------------------

// AddressSpace represents WGSL address spaces.
type AddressSpace uint8

const (
	AddressSpaceNone AddressSpace = iota
	AddressSpaceFunction
	AddressSpacePrivate
	AddressSpaceWorkgroup
	AddressSpaceUniform
	AddressSpaceStorage
	AddressSpaceHandle // For textures and samplers
)

func (a AddressSpace) String() string {
	switch a {
	case AddressSpaceFunction:
		return "function"
	case AddressSpacePrivate:
		return "private"
	case AddressSpaceWorkgroup:
		return "workgroup"
	case AddressSpaceUniform:
		return "uniform"
	case AddressSpaceStorage:
		return "storage"
	default:
		return ""
	}
}

// ParseAddressSpace returns the address space spelled s.
func ParseAddressSpace(s string) (AddressSpace, bool) {
	switch s {
	case "function":
		return AddressSpaceFunction, true
	case "private":
		return AddressSpacePrivate, true
	case "workgroup":
		return AddressSpaceWorkgroup, true
	case "uniform":
		return AddressSpaceUniform, true
	case "storage":
		return AddressSpaceStorage, true
	}
	return AddressSpaceNone, false
}

// AccessMode represents WGSL access modes.
type AccessMode uint8

const (
	AccessModeNone AccessMode = iota
	AccessModeRead
	AccessModeWrite
	AccessModeReadWrite
)

func (a AccessMode) String() string {
	switch a {
	case AccessModeRead:
		return "read"
	case AccessModeWrite:
		return "write"
	case AccessModeReadWrite:
		return "read_write"
	default:
		return ""
	}
}

// ParseAccessMode returns the access mode spelled s.
func ParseAccessMode(s string) (AccessMode, bool) {
	switch s {
	case "read":
		return AccessModeRead, true
	case "write":
		return AccessModeWrite, true
	case "read_write":
		return AccessModeReadWrite, true
	}
	return AccessModeNone, false
}
