package resolver

import (
	"strings"

	"github.com/HugoDaniel/rewgsl/internal/ast"
	"github.com/HugoDaniel/rewgsl/internal/diagnostic"
	"github.com/HugoDaniel/rewgsl/internal/types"
)

// ----------------------------------------------------------------------------
// Type Resolution
// ----------------------------------------------------------------------------

func (r *resolver) resolveType(t ast.Type) types.Type {
	if ast.IsNil(t) {
		return nil
	}
	if ty := r.info.Type(t); ty != nil {
		return ty
	}
	ty := r.typeOf(t)
	if ty != nil {
		r.info.SetType(t, ty)
	}
	return ty
}

func (r *resolver) typeOf(t ast.Type) types.Type {
	switch ty := t.(type) {
	case *ast.IdentType:
		if named := r.namedType(ty.Name.Name()); named != nil {
			return named
		}
		r.errorf(ty, diagnostic.CodeUndefinedSymbol, "unknown type '%s'", ty.Name)
		return nil

	case *ast.VecType:
		elem := r.scalarType(ty.Elem)
		if elem == nil {
			return nil
		}
		return types.Vec(int(ty.Size), elem)

	case *ast.MatType:
		elem := r.scalarType(ty.Elem)
		if elem == nil {
			return nil
		}
		if !elem.IsFloat() {
			r.errorf(ty, diagnostic.CodeTypeMismatch, "matrix element type must be f32 or f16, got '%s'", elem)
			return nil
		}
		return types.Mat(int(ty.Cols), int(ty.Rows), elem)

	case *ast.ArrayType:
		elem := r.resolveType(ty.Elem)
		if elem == nil {
			return nil
		}
		if ty.Count == nil {
			return types.Arr(elem, 0)
		}
		x := r.expr(ty.Count)
		if x == nil || x.Value == nil {
			r.errorf(ty, diagnostic.CodeInvalidConstExpr, "array count must be a constant expression")
			return nil
		}
		n := x.Value.AsInt()
		if n <= 0 {
			r.errorf(ty, diagnostic.CodeInvalidConstExpr, "array count must be greater than 0, got %d", n)
			return nil
		}
		return types.Arr(elem, int(n))

	case *ast.PtrType:
		elem := r.resolveType(ty.Elem)
		if elem == nil {
			return nil
		}
		return types.Ptr(ty.AddressSpace, elem, ty.AccessMode)

	case *ast.AtomicType:
		elem := r.scalarType(ty.Elem)
		if elem == nil {
			return nil
		}
		if !elem.IsInteger() || elem.IsAbstract() {
			r.errorf(ty, diagnostic.CodeTypeMismatch, "atomic element type must be i32 or u32, got '%s'", elem)
			return nil
		}
		return &types.Atomic{Element: elem}

	case *ast.SamplerType:
		return &types.Sampler{Comparison: ty.Comparison}

	case *ast.TextureType:
		tex := &types.Texture{
			Kind:        ty.TexKind,
			Dimension:   ty.Dim,
			TexelFormat: ty.Format,
			AccessMode:  ty.Access,
		}
		if ty.Sampled != nil {
			tex.SampledType = r.scalarType(ty.Sampled)
		}
		return tex
	}
	return nil
}

func (r *resolver) scalarType(t ast.Type) *types.Scalar {
	resolved := r.resolveType(t)
	if resolved == nil {
		return nil
	}
	s, ok := resolved.(*types.Scalar)
	if !ok {
		r.errorf(t, diagnostic.CodeTypeMismatch, "expected a scalar type, got '%s'", resolved)
	}
	return s
}

// namedType resolves a type name: a struct or alias declared in the module,
// or a predeclared type.
func (r *resolver) namedType(name string) types.Type {
	switch d := r.globals[name].(type) {
	case *ast.StructDecl:
		return r.structType(d)
	case *ast.AliasDecl:
		return r.aliasType(d)
	}
	return predeclaredType(name)
}

func predeclaredType(name string) types.Type {
	switch name {
	case "bool":
		return types.Bool
	case "i32":
		return types.I32
	case "u32":
		return types.U32
	case "f32":
		return types.F32
	case "f16":
		return types.F16
	case "sampler":
		return &types.Sampler{}
	case "sampler_comparison":
		return &types.Sampler{Comparison: true}
	}
	if strings.HasPrefix(name, "vec") {
		return vectorShorthand(name)
	}
	if strings.HasPrefix(name, "mat") {
		return matrixShorthand(name)
	}
	return nil
}

// vectorShorthand parses vec2i, vec3f, vec4u, vec2h.
func vectorShorthand(name string) types.Type {
	if len(name) != 5 || name[3] < '2' || name[3] > '4' {
		return nil
	}
	elem := shorthandElement(name[4])
	if elem == nil {
		return nil
	}
	return types.Vec(int(name[3]-'0'), elem)
}

// matrixShorthand parses mat2x2f, mat4x3h.
func matrixShorthand(name string) types.Type {
	if len(name) != 7 || name[4] != 'x' {
		return nil
	}
	cols, rows := int(name[3]-'0'), int(name[5]-'0')
	if cols < 2 || cols > 4 || rows < 2 || rows > 4 {
		return nil
	}
	elem := shorthandElement(name[6])
	if elem == nil || !elem.IsFloat() {
		return nil
	}
	return types.Mat(cols, rows, elem)
}

func shorthandElement(c byte) *types.Scalar {
	switch c {
	case 'i':
		return types.I32
	case 'u':
		return types.U32
	case 'f':
		return types.F32
	case 'h':
		return types.F16
	}
	return nil
}

// inferredConstructor handles vec3(...), mat2x2(...) and array(...) whose
// element type comes from the arguments.
func inferredConstructor(name string, args []types.Type) types.Type {
	var elem types.Type
	for _, a := range args {
		if a == nil {
			return nil
		}
		e := a
		if s := types.ScalarOf(a); s != nil && !strings.HasPrefix(name, "array") {
			e = s
		}
		if elem == nil {
			elem = e
		} else if c := types.CommonType(elem, e); c != nil {
			elem = c
		} else {
			return nil
		}
	}
	switch {
	case name == "array":
		if elem == nil {
			return nil
		}
		return types.Arr(elem, len(args))
	case len(name) == 4 && strings.HasPrefix(name, "vec") && name[3] >= '2' && name[3] <= '4':
		s, _ := elem.(*types.Scalar)
		if s == nil {
			return nil
		}
		return types.Vec(int(name[3]-'0'), s)
	case len(name) == 6 && strings.HasPrefix(name, "mat") && name[4] == 'x':
		s, _ := elem.(*types.Scalar)
		if s == nil {
			return nil
		}
		if s.Kind == types.ScalarAbstractInt {
			s = types.AbstractFloat
		}
		return types.Mat(int(name[3]-'0'), int(name[5]-'0'), s)
	}
	return nil
}
