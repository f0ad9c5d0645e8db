package ast

// TraverseOrder selects the order in which sibling operands are visited.
type TraverseOrder uint8

const (
	LeftToRight TraverseOrder = iota
	RightToLeft
)

// TraverseAction is returned by a traversal callback.
type TraverseAction uint8

const (
	Descend TraverseAction = iota // visit the children of this expression
	Skip                          // do not visit its children
	Stop                          // end the traversal
)

type traverseItem struct {
	expr  Expr
	depth int
}

// TraverseExpressions walks the expression tree rooted at root in pre-order,
// calling fn for every expression of type T. Expressions of other types are
// descended into without a callback. Types and statements are not entered.
func TraverseExpressions[T Expr](root Expr, order TraverseOrder, fn func(T, int) TraverseAction) {
	if IsNil(root) {
		return
	}
	stack := []traverseItem{{root, 0}}
	push := func(e Expr, depth int) {
		if !IsNil(e) {
			stack = append(stack, traverseItem{e, depth})
		}
	}
	// pushPair pushes two operands so that the one visited first is on top.
	pushPair := func(a, b Expr, depth int) {
		if order == LeftToRight {
			push(b, depth)
			push(a, depth)
		} else {
			push(a, depth)
			push(b, depth)
		}
	}

	for len(stack) > 0 {
		it := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if t, ok := it.expr.(T); ok {
			switch fn(t, it.depth) {
			case Stop:
				return
			case Skip:
				continue
			}
		}

		d := it.depth + 1
		switch e := it.expr.(type) {
		case *BinaryExpr:
			pushPair(e.Left, e.Right, d)
		case *UnaryExpr:
			push(e.Operand, d)
		case *IndexExpr:
			pushPair(e.Base, e.Index, d)
		case *MemberExpr:
			push(e.Base, d)
		case *CallExpr:
			if order == LeftToRight {
				for i := len(e.Args) - 1; i >= 0; i-- {
					push(e.Args[i], d)
				}
			} else {
				for _, a := range e.Args {
					push(a, d)
				}
			}
		}
	}
}

// Inspect walks the subtree rooted at n in pre-order. If fn returns false,
// the children of that node are not visited.
func Inspect(n Node, fn func(Node) bool) {
	if IsNil(n) {
		return
	}
	if !fn(n) {
		return
	}
	n.children(func(c Node) { Inspect(c, fn) })
}
