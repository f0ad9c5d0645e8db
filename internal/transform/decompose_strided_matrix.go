package transform

import (
	"fmt"

	"github.com/HugoDaniel/rewgsl/internal/ast"
	"github.com/HugoDaniel/rewgsl/internal/diagnostic"
	"github.com/HugoDaniel/rewgsl/internal/program"
	"github.com/HugoDaniel/rewgsl/internal/sem"
	"github.com/HugoDaniel/rewgsl/internal/types"
)

// DecomposeStridedMatrix retypes matrix members of buffer structs that
// carry a non-default @stride as arrays of column vectors, which backends
// can lay out:
//
//	@stride(32) m: mat2x2<f32>    @stride(32) m: array<vec2<f32>, 2u>
//	let a = s.m;                  let a = arr_to_mat2x2_stride_32(s.m);
//	s.m = x;                      s.m = mat2x2_stride_32_to_arr(x);
//
// Column accesses such as s.m[i] keep their meaning and are not touched.
type DecomposeStridedMatrix struct{}

func (*DecomposeStridedMatrix) Name() string { return "DecomposeStridedMatrix" }

func (*DecomposeStridedMatrix) ShouldRun(src *program.Program, _ *DataMap) bool {
	return len(stridedMatrixMembers(src)) > 0
}

type stridedMatrix struct {
	mat    *types.Matrix
	stride int
}

func (s stridedMatrix) String() string {
	return fmt.Sprintf("mat%dx%d_stride_%d", s.mat.Cols, s.mat.Rows, s.stride)
}

// stridedMatrixMembers finds the struct fields that hold a matrix with a
// non-default stride, in structs reachable from a uniform or storage
// variable.
func stridedMatrixMembers(src *program.Program) map[*types.StructField]stridedMatrix {
	info := src.Sem
	out := make(map[*types.StructField]stridedMatrix)
	seen := make(map[types.Type]bool)
	var walk func(t types.Type)
	walk = func(t types.Type) {
		if seen[t] {
			return
		}
		seen[t] = true
		switch t := t.(type) {
		case *types.Array:
			walk(t.Element)
		case *types.Struct:
			for _, f := range t.Fields {
				if m, ok := f.Type.(*types.Matrix); ok && f.MatrixStride != 0 && f.MatrixStride != m.ColumnStride() {
					out[f] = stridedMatrix{mat: m, stride: f.MatrixStride}
				}
				walk(f.Type)
			}
		}
	}
	for _, d := range src.AST.Decls {
		v := info.Variable(asVariable(d))
		if isBuffer(v) {
			walk(v.Type)
		}
	}
	return out
}

func asVariable(d ast.Decl) ast.Variable {
	if v, ok := d.(ast.Variable); ok {
		return v
	}
	return nil
}

func (s *DecomposeStridedMatrix) Apply(src *program.Program, inputs, _ *DataMap) *program.Program {
	fields := stridedMatrixMembers(src)
	if len(fields) == 0 {
		return nil
	}
	ctx := newCloneContext(src)
	info := src.Sem
	b := ctx.Dst()
	d := &stridedMatrixDecomposer{
		ctx:   ctx,
		info:  info,
		toMat: make(map[string]ast.Symbol),
		toArr: make(map[string]ast.Symbol),
	}
	if fns := userFunctions(src.AST); len(fns) > 0 {
		d.anchor = fns[0]
	}

	for _, decl := range src.AST.Decls {
		sd, ok := decl.(*ast.StructDecl)
		if !ok {
			continue
		}
		st := info.Struct(sd)
		for i, m := range sd.Members {
			sm, ok := fields[st.Fields[i]]
			if !ok {
				continue
			}
			ctx.ReplaceFunc(m.Type, func() ast.Node { return d.arrayType(sm) })
		}
	}

	strided := func(e ast.Expr) (stridedMatrix, bool) {
		me, ok := e.(*ast.MemberExpr)
		if !ok {
			return stridedMatrix{}, false
		}
		ma := info.Member(me)
		if ma == nil || ma.Field == nil {
			return stridedMatrix{}, false
		}
		sm, ok := fields[ma.Field]
		return sm, ok
	}

	// Expressions that must keep the array type: column accesses and
	// assignment targets.
	keep := make(map[ast.Expr]bool)
	inspectFunctions(src.AST, func(n ast.Node) bool {
		switch n := n.(type) {
		case *ast.IndexExpr:
			if _, ok := strided(n.Base); ok {
				keep[n.Base] = true
			}
		case *ast.UnaryExpr:
			if _, ok := strided(n.Operand); ok && n.Op == ast.UnaryOpAddr {
				diagnostic.ICE("pointer to a strided matrix; run SimplifyPointers first")
			}
		case *ast.AssignStmt:
			sm, ok := strided(n.Left)
			if !ok {
				return true
			}
			keep[n.Left] = true
			d.write(n, sm)
		case *ast.MemberExpr:
			sm, ok := strided(n)
			if !ok || keep[n] {
				return true
			}
			fn := d.matrixFromArray(sm)
			e := n
			ctx.ReplaceFunc(e, func() ast.Node {
				return b.Call(fn, ast.CloneWithoutTransform(ctx, e))
			})
		}
		return true
	})

	return finish(ctx)
}

type stridedMatrixDecomposer struct {
	ctx    *ast.CloneContext
	info   *sem.Info
	anchor ast.Node
	toMat  map[string]ast.Symbol
	toArr  map[string]ast.Symbol
}

// write converts the value stored by s to the array form. Compound
// assignments read the matrix back first.
func (d *stridedMatrixDecomposer) write(s *ast.AssignStmt, sm stridedMatrix) {
	b := d.ctx.Dst()
	fn := d.arrayFromMatrix(sm)
	if s.Op == ast.AssignOpSimple {
		d.ctx.ReplaceFunc(s, func() ast.Node {
			return b.Assign(ast.Clone(d.ctx, s.Left), b.Call(fn, ast.Clone(d.ctx, s.Right)))
		})
		return
	}
	if hasSideEffects(d.info, s.Left) {
		diagnostic.ICE("compound assignment to a strided matrix with side effects; run ExpandCompoundAssignment first")
	}
	toMat := d.matrixFromArray(sm)
	d.ctx.ReplaceFunc(s, func() ast.Node {
		cur := b.Call(toMat, ast.Duplicate(d.ctx, s.Left))
		return b.Assign(ast.Clone(d.ctx, s.Left), b.Call(fn, b.Binary(s.Op.BinaryOp(), cur, ast.Clone(d.ctx, s.Right))))
	})
}

func (d *stridedMatrixDecomposer) columnType(sm stridedMatrix) ast.Type {
	return d.ctx.Dst().Vec(uint8(sm.mat.Rows), createASTType(d.ctx, d.info, sm.mat.Element))
}

func (d *stridedMatrixDecomposer) arrayType(sm stridedMatrix) ast.Type {
	return d.ctx.Dst().Array(d.columnType(sm), uint32(sm.mat.Cols))
}

func (d *stridedMatrixDecomposer) emit(fn *ast.FunctionDecl) {
	if d.anchor == nil {
		d.ctx.InsertBack(ast.GlobalDecls, fn)
		return
	}
	d.ctx.InsertBefore(ast.GlobalDecls, d.anchor, fn)
}

// matrixFromArray returns the helper building the matrix from its columns.
func (d *stridedMatrixDecomposer) matrixFromArray(sm stridedMatrix) ast.Symbol {
	key := sm.mat.String() + sm.String()
	if sym, ok := d.toMat[key]; ok {
		return sym
	}
	b := d.ctx.Dst()
	sym := b.NewSym("arr_to_" + sm.String())
	d.toMat[key] = sym

	arr := b.Sym("arr")
	cols := make([]any, sm.mat.Cols)
	for i := range cols {
		cols[i] = b.Index(arr, uint32(i))
	}
	mat := createASTType(d.ctx, d.info, sm.mat)
	d.emit(b.FuncDecl(sym,
		[]*ast.Parameter{b.Param(arr, d.arrayType(sm))},
		mat, nil,
		b.Block(b.Return(b.Construct(createASTType(d.ctx, d.info, sm.mat), cols...)))))
	return sym
}

// arrayFromMatrix returns the helper splitting the matrix into columns.
func (d *stridedMatrixDecomposer) arrayFromMatrix(sm stridedMatrix) ast.Symbol {
	key := sm.mat.String() + sm.String()
	if sym, ok := d.toArr[key]; ok {
		return sym
	}
	b := d.ctx.Dst()
	sym := b.NewSym(sm.String() + "_to_arr")
	d.toArr[key] = sym

	m := b.Sym("m")
	cols := make([]any, sm.mat.Cols)
	for i := range cols {
		cols[i] = b.Index(m, uint32(i))
	}
	d.emit(b.FuncDecl(sym,
		[]*ast.Parameter{b.Param(m, createASTType(d.ctx, d.info, sm.mat))},
		d.arrayType(sm), nil,
		b.Block(b.Return(b.Construct(d.arrayType(sm), cols...)))))
	return sym
}
