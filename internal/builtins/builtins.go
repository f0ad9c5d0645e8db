// Package builtins defines the WGSL builtin functions known to the
// resolver: their category, how their result type follows from the
// argument types, and whether calling them has side effects.
package builtins

import (
	"fmt"

	"github.com/HugoDaniel/rewgsl/internal/ast"
	"github.com/HugoDaniel/rewgsl/internal/types"
)

// BuiltinKind identifies categories of builtin functions.
type BuiltinKind uint8

const (
	BuiltinConversion      BuiltinKind = iota // Bit reinterpretation
	BuiltinLogical                            // Logical operations
	BuiltinArray                              // Array operations
	BuiltinNumeric                            // Math functions
	BuiltinDerivative                         // Derivative functions
	BuiltinTexture                            // Texture sampling, loads and stores
	BuiltinAtomic                             // Atomic operations
	BuiltinPacking                            // Data packing/unpacking
	BuiltinSynchronization                    // Barriers
	BuiltinSubgroup                           // Subgroup operations
)

// ResultFunc computes the result type of a call from the argument types,
// which are value types (references already loaded). It returns nil when
// the arguments do not fit.
type ResultFunc func(args []types.Type) types.Type

// Builtin represents a built-in function.
type Builtin struct {
	Name        string
	Kind        BuiltinKind
	Result      ResultFunc
	SideEffects bool
	ConstEval   bool
}

// Table maps builtin function names to their definitions.
var Table = make(map[string]*Builtin)

func init() {
	registerConversions()
	registerLogical()
	registerArray()
	registerNumeric()
	registerDerivative()
	registerTexture()
	registerAtomic()
	registerPacking()
	registerSynchronization()
	registerSubgroup()
}

// Lookup returns the builtin function with the given name, or nil.
func Lookup(name string) *Builtin {
	return Table[name]
}

// IsBuiltin returns true if the name is a builtin function.
func IsBuiltin(name string) bool {
	return Table[name] != nil
}

// ResultType returns the result type of calling b with args.
func (b *Builtin) ResultType(args []types.Type) types.Type {
	return b.Result(args)
}

// IsTexture reports whether b reads or writes a texture.
func (b *Builtin) IsTexture() bool { return b.Kind == BuiltinTexture }

// IsAtomic reports whether b is an atomic operation.
func (b *Builtin) IsAtomic() bool { return b.Kind == BuiltinAtomic }

func register(kind BuiltinKind, result ResultFunc, sideEffects, constEval bool, names ...string) {
	for _, name := range names {
		Table[name] = &Builtin{
			Name:        name,
			Kind:        kind,
			Result:      result,
			SideEffects: sideEffects,
			ConstEval:   constEval,
		}
	}
}

// ----------------------------------------------------------------------------
// Result type rules
// ----------------------------------------------------------------------------

func fixed(t types.Type) ResultFunc {
	return func([]types.Type) types.Type { return t }
}

// sameAsArgs returns the common type of every argument: min(1, 2.0) is
// abstract-float, max(x, 1) is the type of x.
func sameAsArgs(args []types.Type) types.Type {
	if len(args) == 0 {
		return nil
	}
	t := args[0]
	for _, a := range args[1:] {
		if c := types.CommonType(t, a); c != nil {
			t = c
		}
	}
	return t
}

// first returns the type of the first argument.
func first(args []types.Type) types.Type {
	if len(args) == 0 {
		return nil
	}
	return args[0]
}

// elementOfFirst returns the scalar element of the first argument.
func elementOfFirst(args []types.Type) types.Type {
	if len(args) == 0 {
		return nil
	}
	if s := types.ScalarOf(args[0]); s != nil {
		return s
	}
	return nil
}

// ----------------------------------------------------------------------------
// Registration
// ----------------------------------------------------------------------------

func registerConversions() {
	// bitcast<T>(e) takes its result from the template, which the resolver
	// handles; the table entry only marks the name as a builtin.
	register(BuiltinConversion, func([]types.Type) types.Type { return nil }, false, true, "bitcast")
}

func registerLogical() {
	register(BuiltinLogical, fixed(types.Bool), false, true, "all", "any")
	register(BuiltinLogical, first, false, true, "select")
}

func registerArray() {
	register(BuiltinArray, fixed(types.U32), false, false, "arrayLength")
}

func registerNumeric() {
	register(BuiltinNumeric, sameAsArgs, false, true,
		"abs", "acos", "acosh", "asin", "asinh", "atan", "atan2", "atanh",
		"ceil", "clamp", "cos", "cosh", "countLeadingZeros", "countOneBits",
		"countTrailingZeros", "degrees", "exp", "exp2", "firstLeadingBit",
		"firstTrailingBit", "floor", "fma", "fract", "inverseSqrt", "log",
		"log2", "max", "min", "mix", "pow", "quantizeToF16", "radians",
		"reverseBits", "round", "saturate", "sign", "sin", "sinh",
		"smoothstep", "sqrt", "step", "tan", "tanh", "trunc",
		"cross", "normalize", "reflect", "faceForward")
	register(BuiltinNumeric, first, false, true, "extractBits", "insertBits", "ldexp", "refract")
	register(BuiltinNumeric, elementOfFirst, false, true, "dot", "length", "distance", "determinant")
	register(BuiltinNumeric, transpose, false, true, "transpose")
	register(BuiltinNumeric, frexp, false, true, "frexp")
	register(BuiltinNumeric, modf, false, true, "modf")
	register(BuiltinNumeric, fixed(types.I32), false, true, "dot4I8Packed")
	register(BuiltinNumeric, fixed(types.U32), false, true, "dot4U8Packed")
}

func transpose(args []types.Type) types.Type {
	if len(args) == 1 {
		if m, ok := args[0].(*types.Matrix); ok {
			return types.Mat(m.Rows, m.Cols, m.Element)
		}
	}
	return nil
}

func frexp(args []types.Type) types.Type {
	if len(args) != 1 {
		return nil
	}
	t := types.ConcreteType(args[0])
	return resultStruct("__frexp_result_"+typeSuffix(t), "fract", t, "exp", types.WithScalar(t, types.I32))
}

func modf(args []types.Type) types.Type {
	if len(args) != 1 {
		return nil
	}
	t := types.ConcreteType(args[0])
	return resultStruct("__modf_result_"+typeSuffix(t), "fract", t, "whole", t)
}

func typeSuffix(t types.Type) string {
	if v, ok := t.(*types.Vector); ok {
		return fmt.Sprintf("vec%d_%s", v.Width, v.Element)
	}
	return t.String()
}

// resultStructs interns the builtin result structs so they compare equal.
var resultStructs = map[string]*types.Struct{}

func resultStruct(name, f0 string, t0 types.Type, f1 string, t1 types.Type) *types.Struct {
	if s, ok := resultStructs[name]; ok {
		return s
	}
	s := &types.Struct{Name: name, Fields: []*types.StructField{
		{Name: f0, Type: t0, Index: 0},
		{Name: f1, Type: t1, Index: 1},
	}}
	s.ComputeLayout()
	resultStructs[name] = s
	return s
}

func registerDerivative() {
	register(BuiltinDerivative, first, false, false,
		"dpdx", "dpdxCoarse", "dpdxFine", "dpdy", "dpdyCoarse", "dpdyFine",
		"fwidth", "fwidthCoarse", "fwidthFine")
}

func textureArg(args []types.Type) *types.Texture {
	if len(args) == 0 {
		return nil
	}
	t, _ := args[0].(*types.Texture)
	return t
}

// texelType is vec4 of the texture's sampled type, or f32 for depth textures.
func texelType(args []types.Type) types.Type {
	t := textureArg(args)
	if t == nil {
		return nil
	}
	switch t.Kind {
	case ast.TextureDepth, ast.TextureDepthMultisampled:
		return types.F32
	case ast.TextureStorage:
		return types.Vec(4, storageScalar(t.TexelFormat))
	case ast.TextureExternal:
		return types.Vec(4, types.F32)
	}
	if t.SampledType == nil {
		return types.Vec(4, types.F32)
	}
	return types.Vec(4, t.SampledType)
}

func storageScalar(format string) *types.Scalar {
	switch {
	case len(format) > 4 && format[len(format)-4:] == "uint":
		return types.U32
	case len(format) > 4 && format[len(format)-4:] == "sint":
		return types.I32
	}
	return types.F32
}

func textureDimensions(args []types.Type) types.Type {
	t := textureArg(args)
	if t == nil {
		return nil
	}
	if t.Dimension == ast.Texture1D {
		return types.U32
	}
	if t.Dimension == ast.Texture3D {
		return types.Vec(3, types.U32)
	}
	return types.Vec(2, types.U32)
}

func gather(args []types.Type) types.Type {
	// textureGather(component, t, s, coords) puts the texture second.
	for _, a := range args {
		if t, ok := a.(*types.Texture); ok {
			if t.Kind == ast.TextureDepth {
				return types.Vec(4, types.F32)
			}
			if t.SampledType != nil {
				return types.Vec(4, t.SampledType)
			}
			return types.Vec(4, types.F32)
		}
	}
	return nil
}

func registerTexture() {
	register(BuiltinTexture, texelType, false, false,
		"textureSample", "textureSampleBias", "textureSampleLevel",
		"textureSampleGrad", "textureSampleBaseClampToEdge", "textureLoad")
	register(BuiltinTexture, fixed(types.F32), false, false,
		"textureSampleCompare", "textureSampleCompareLevel")
	register(BuiltinTexture, gather, false, false, "textureGather")
	register(BuiltinTexture, fixed(types.Vec(4, types.F32)), false, false, "textureGatherCompare")
	register(BuiltinTexture, textureDimensions, false, false, "textureDimensions")
	register(BuiltinTexture, fixed(types.U32), false, false,
		"textureNumLayers", "textureNumLevels", "textureNumSamples")
	register(BuiltinTexture, fixed(types.VoidType), true, false, "textureStore")
}

// atomicElement returns the scalar inside atomic<T> behind the pointer
// argument.
func atomicElement(args []types.Type) *types.Scalar {
	if len(args) == 0 {
		return nil
	}
	if a, ok := types.UnwrapPtr(args[0]).(*types.Atomic); ok {
		return a.Element
	}
	return nil
}

func registerAtomic() {
	register(BuiltinAtomic, func(args []types.Type) types.Type {
		if e := atomicElement(args); e != nil {
			return e
		}
		return nil
	}, true, false,
		"atomicLoad", "atomicAdd", "atomicSub", "atomicMax", "atomicMin",
		"atomicAnd", "atomicOr", "atomicXor", "atomicExchange")
	register(BuiltinAtomic, fixed(types.VoidType), true, false, "atomicStore")
	register(BuiltinAtomic, func(args []types.Type) types.Type {
		e := atomicElement(args)
		if e == nil {
			return nil
		}
		return resultStruct("__atomic_compare_exchange_result_"+e.String(),
			"old_value", e, "exchanged", types.Bool)
	}, true, false, "atomicCompareExchangeWeak")
}

func registerPacking() {
	register(BuiltinPacking, fixed(types.U32), false, true,
		"pack4x8snorm", "pack4x8unorm", "pack2x16snorm", "pack2x16unorm",
		"pack2x16float", "pack4xI8", "pack4xU8", "pack4xI8Clamp", "pack4xU8Clamp")
	register(BuiltinPacking, fixed(types.Vec(4, types.F32)), false, true, "unpack4x8snorm", "unpack4x8unorm")
	register(BuiltinPacking, fixed(types.Vec(2, types.F32)), false, true,
		"unpack2x16snorm", "unpack2x16unorm", "unpack2x16float")
	register(BuiltinPacking, fixed(types.Vec(4, types.I32)), false, true, "unpack4xI8")
	register(BuiltinPacking, fixed(types.Vec(4, types.U32)), false, true, "unpack4xU8")
}

func registerSynchronization() {
	register(BuiltinSynchronization, fixed(types.VoidType), true, false,
		"storageBarrier", "workgroupBarrier", "textureBarrier")
	register(BuiltinSynchronization, func(args []types.Type) types.Type {
		if len(args) == 1 {
			return types.UnwrapPtr(args[0])
		}
		return nil
	}, true, false, "workgroupUniformLoad")
}

func registerSubgroup() {
	register(BuiltinSubgroup, first, false, false,
		"subgroupAdd", "subgroupMul", "subgroupMin", "subgroupMax",
		"subgroupAnd", "subgroupOr", "subgroupXor", "subgroupBroadcast",
		"subgroupBroadcastFirst", "subgroupShuffle", "subgroupExclusiveAdd",
		"subgroupInclusiveAdd", "quadBroadcast", "quadSwapX", "quadSwapY", "quadSwapDiagonal")
	register(BuiltinSubgroup, fixed(types.Bool), false, false, "subgroupElect", "subgroupAll", "subgroupAny")
	register(BuiltinSubgroup, fixed(types.Vec(4, types.U32)), false, false, "subgroupBallot")
}
