package builder

import (
	"fmt"
	"strings"
)

// TypeName is the kernel-side type of a parameter. Arrays and scalars whose
// host type matches the configured precision use real_t/int_t.
func (kb *Builder) TypeName(dt DataType) string {
	switch dt {
	case kb.FloatType:
		return "real_t"
	case kb.IntType:
		return "int_t"
	case Float32:
		return "float"
	case Float64:
		return "double"
	case INT32:
		return "int"
	default:
		return "long"
	}
}

// GenerateKernelSignature generates the parameter list for a kernel, in
// definition order
func (kb *Builder) GenerateKernelSignature(params []ParamSpec) string {
	args := make([]string, 0, len(params))
	for _, p := range params {
		typeStr := kb.TypeName(p.DataType)
		switch {
		case p.Direction == DirectionScalar:
			args = append(args, fmt.Sprintf("const %s %s", typeStr, p.Name))
		case p.IsConst():
			args = append(args, fmt.Sprintf("const %s* %s", typeStr, p.Name))
		default:
			args = append(args, fmt.Sprintf("%s* %s", typeStr, p.Name))
		}
	}
	return strings.Join(args, ",\n\t")
}

// GenerateKernelDeclaration generates a complete kernel function declaration
func (kb *Builder) GenerateKernelDeclaration(kernelName string, params []ParamSpec) string {
	return fmt.Sprintf("@kernel void %s(\n\t%s\n)", kernelName, kb.GenerateKernelSignature(params))
}
