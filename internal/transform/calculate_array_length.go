package transform

import (
	"github.com/HugoDaniel/rewgsl/internal/ast"
	"github.com/HugoDaniel/rewgsl/internal/diagnostic"
	"github.com/HugoDaniel/rewgsl/internal/program"
	"github.com/HugoDaniel/rewgsl/internal/sem"
	"github.com/HugoDaniel/rewgsl/internal/types"
)

// CalculateArrayLength replaces arrayLength() on storage buffers with a
// computation from the buffer's byte size, which the backend provides
// through an intrinsic:
//
//	@internal(intrinsic_buffer_size) fn buffer_size(buffer: ptr<storage, SB, read>, result: ptr<function, u32>);
//
//	var buffer_size_result: u32 = 0u;
//	buffer_size(&sb, &buffer_size_result);
//	let array_length = ((buffer_size_result - 16u) / 4u);
//
// The argument must be &v or &v.member; SimplifyPointers should run first.
type CalculateArrayLength struct{}

func (*CalculateArrayLength) Name() string { return "CalculateArrayLength" }

func (*CalculateArrayLength) ShouldRun(src *program.Program, _ *DataMap) bool {
	found := false
	inspectFunctions(src.AST, func(n ast.Node) bool {
		if c, ok := n.(*ast.CallExpr); ok {
			found = isArrayLength(src.Sem, c)
		}
		return !found
	})
	return found
}

func isArrayLength(info *sem.Info, c *ast.CallExpr) bool {
	sc := info.Call(c)
	return sc != nil && sc.Kind == sem.CallBuiltin && sc.Builtin.Name == "arrayLength"
}

type bufferSizeKey struct {
	typ    string
	access ast.AccessMode
}

type arrayLengthKey struct {
	block  ast.Node
	buffer *sem.Variable
}

func (c *CalculateArrayLength) Apply(src *program.Program, inputs, _ *DataMap) *program.Program {
	if !c.ShouldRun(src, inputs) {
		return nil
	}
	ctx := newCloneContext(src)
	info := src.Sem
	b := ctx.Dst()

	stubs := make(map[bufferSizeKey]ast.Symbol)
	stub := func(buffer *sem.Variable) ast.Symbol {
		access := types.EffectiveAccess(buffer.AddressSpace, buffer.Access)
		key := bufferSizeKey{typ: buffer.Type.String(), access: access}
		if sym, ok := stubs[key]; ok {
			return sym
		}
		sym := b.NewSym("buffer_size")
		stubs[key] = sym
		ptr := &types.Pointer{AddressSpace: ast.AddressSpaceStorage, Element: buffer.Type, AccessMode: access}
		fn := b.FuncDecl(sym,
			[]*ast.Parameter{
				b.Param(b.Sym("buffer"), createASTType(ctx, info, ptr)),
				b.Param(b.Sym("result"), b.Ptr(ast.AddressSpaceFunction, b.U32Type(), ast.AccessModeNone)),
			},
			nil, nil, nil, b.Internal("intrinsic_buffer_size"))
		ctx.InsertBefore(ast.GlobalDecls, buffer.Decl, fn)
		return sym
	}

	lengths := make(map[arrayLengthKey]ast.Symbol)
	inspectFunctions(src.AST, func(n ast.Node) bool {
		call, ok := n.(*ast.CallExpr)
		if !ok || !isArrayLength(info, call) {
			return true
		}
		buffer, arr, offset := arrayLengthOperand(info, call)

		anchor := outermostInBlock(stmtOf(info, call))
		block := anchor.Parent.Node.(*ast.CompoundStmt)
		key := arrayLengthKey{block: block, buffer: buffer}
		length, ok := lengths[key]
		if !ok {
			fn := stub(buffer)
			result := b.NewSym("buffer_size_result")
			length = b.NewSym("array_length")
			lengths[key] = length
			bufSym := ctx.CloneSymbol(buffer.Decl.Fields().Name)

			ctx.InsertBefore(ast.StmtsOf(block), anchor.Node, func() ast.Node {
				return b.Decl(b.Var(result, b.U32Type(), ast.AddressSpaceNone, b.U32(0)))
			})
			ctx.InsertBefore(ast.StmtsOf(block), anchor.Node, func() ast.Node {
				return b.CallStmt(b.Call(fn, b.AddressOf(b.Ident(bufSym)), b.AddressOf(b.Ident(result))))
			})
			ctx.InsertBefore(ast.StmtsOf(block), anchor.Node, func() ast.Node {
				var total ast.Expr = b.Ident(result)
				if offset != 0 {
					total = b.Sub(total, b.U32(uint32(offset)))
				}
				return b.Decl(b.Let(length, nil, b.Div(total, b.U32(uint32(arr.Stride())))))
			})
		}
		sym := length
		ctx.ReplaceFunc(call, func() ast.Node { return b.Ident(sym) })
		return false
	})

	return finish(ctx)
}

// arrayLengthOperand decodes the argument of arrayLength into the buffer,
// the runtime-sized array and the array's byte offset in the buffer.
func arrayLengthOperand(info *sem.Info, call *ast.CallExpr) (*sem.Variable, *types.Array, int) {
	u, ok := call.Args[0].(*ast.UnaryExpr)
	if !ok || u.Op != ast.UnaryOpAddr {
		diagnostic.ICE("arrayLength argument is not an address-of expression")
	}
	switch e := u.Operand.(type) {
	case *ast.IdentExpr:
		v := info.Ident(e).Variable
		if v == nil || !v.IsGlobal() {
			diagnostic.ICE("arrayLength of '%s' which is not a buffer", e.Symbol.Name())
		}
		arr, ok := v.Type.(*types.Array)
		if !ok {
			diagnostic.ICE("arrayLength of '%s' which is not an array", e.Symbol.Name())
		}
		return v, arr, 0
	case *ast.MemberExpr:
		base, ok := e.Base.(*ast.IdentExpr)
		if !ok {
			break
		}
		v := info.Ident(base).Variable
		m := info.Member(e)
		if v == nil || !v.IsGlobal() || m == nil || m.Field == nil {
			break
		}
		arr, ok := m.Field.Type.(*types.Array)
		if !ok {
			break
		}
		return v, arr, m.Field.Offset
	}
	diagnostic.ICE("unsupported arrayLength argument; run SimplifyPointers first")
	return nil, nil, 0
}
