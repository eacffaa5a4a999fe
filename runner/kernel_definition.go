package runner

import (
	"fmt"

	"github.com/notargets/FDTDKernel/runner/builder"
)

// KernelDefinition holds all information about a defined kernel
type KernelDefinition struct {
	Name       string
	Parameters []builder.ParamSpec
	Signature  string
}

// DefineKernel validates and allocates the parameters of a kernel. Arrays
// shared between kernels are allocated once, by the first definition that
// names them.
func (kr *Runner) DefineKernel(kernelName string, params ...*builder.ParamBuilder) error {
	paramSpecs := make([]builder.ParamSpec, len(params))
	for i, p := range params {
		paramSpecs[i] = p.Spec
		if err := paramSpecs[i].Validate(); err != nil {
			return fmt.Errorf("parameter %d: %w", i, err)
		}
	}

	for i := range paramSpecs {
		if err := kr.processParameter(&paramSpecs[i]); err != nil {
			return fmt.Errorf("failed to process parameter %s: %w", paramSpecs[i].Name, err)
		}
	}

	kr.kernelDefinitions[kernelName] = &KernelDefinition{
		Name:       kernelName,
		Parameters: paramSpecs,
		Signature:  kr.GenerateKernelSignature(paramSpecs),
	}
	return nil
}

// processParameter handles allocation and setup for a single parameter
func (kr *Runner) processParameter(spec *builder.ParamSpec) error {
	if spec.Direction == builder.DirectionScalar {
		return nil
	}
	if _, exists := kr.PooledMemory[spec.Name]; exists {
		return kr.verifyExistingAllocation(spec)
	}
	arraySpec := builder.ArraySpec{
		Name:     spec.Name,
		Size:     spec.Size * spec.DataType.Size(),
		DataType: spec.DataType,
		IsOutput: !spec.IsConst(),
	}
	if err := kr.allocateSingleArray(arraySpec); err != nil {
		return err
	}
	if spec.HostBinding == nil {
		return nil
	}
	kr.hostBindings[spec.Name] = spec.HostBinding
	return kr.copyToDevice(spec.Name, spec.HostBinding)
}

// verifyExistingAllocation checks if existing allocation is compatible
func (kr *Runner) verifyExistingAllocation(spec *builder.ParamSpec) error {
	meta, exists := kr.arrayMetadata[spec.Name]
	if !exists {
		return fmt.Errorf("array %s allocated but metadata missing", spec.Name)
	}
	if meta.dataType != spec.DataType {
		return fmt.Errorf("array %s type mismatch: allocated as %v, requested %v",
			spec.Name, meta.dataType, spec.DataType)
	}
	expectedSize := spec.Size * spec.DataType.Size()
	if meta.spec.Size != expectedSize {
		return fmt.Errorf("array %s size mismatch: allocated %d, requested %d",
			spec.Name, meta.spec.Size, expectedSize)
	}
	if spec.HostBinding != nil {
		kr.hostBindings[spec.Name] = spec.HostBinding
	}
	return nil
}
