package runner

import (
	"fmt"
	"sort"

	"github.com/notargets/FDTDKernel/runner/builder"
	"github.com/notargets/gocca"
)

// ArrayMetadata stores information about allocated arrays
type ArrayMetadata struct {
	spec     builder.ArraySpec
	dataType builder.DataType
	isOutput bool
}

// Runner orchestrates kernel compilation and execution over one grid
type Runner struct {
	*builder.Builder
	Device            *gocca.OCCADevice
	Kernels           map[string]*gocca.OCCAKernel
	PooledMemory      map[string]*gocca.OCCAMemory
	arrayMetadata     map[string]ArrayMetadata
	kernelDefinitions map[string]*KernelDefinition
	hostBindings      map[string]interface{}
}

// NewRunner creates a new Runner instance
func NewRunner(device *gocca.OCCADevice, cfg builder.Config) *Runner {
	if device == nil {
		panic("runner needs a device")
	}
	return &Runner{
		Builder:           builder.NewBuilder(cfg),
		Device:            device,
		Kernels:           make(map[string]*gocca.OCCAKernel),
		PooledMemory:      make(map[string]*gocca.OCCAMemory),
		arrayMetadata:     make(map[string]ArrayMetadata),
		kernelDefinitions: make(map[string]*KernelDefinition),
		hostBindings:      make(map[string]interface{}),
	}
}

// RunKernel copies inputs, launches the kernel, waits for the device and
// copies outputs back. Scalars not passed here fall back to their binding.
func (kr *Runner) RunKernel(kernelName string, scalarValues ...interface{}) error {
	def, exists := kr.kernelDefinitions[kernelName]
	if !exists {
		return fmt.Errorf("kernel %s not defined - use DefineKernel first", kernelName)
	}
	kernel, exists := kr.Kernels[kernelName]
	if !exists {
		return fmt.Errorf("kernel %s not compiled", kernelName)
	}

	// Perform pre-kernel data copies (host→device)
	if err := kr.performPreKernelCopies(def); err != nil {
		return fmt.Errorf("pre-kernel copy failed: %w", err)
	}

	args, err := kr.buildKernelArguments(def, scalarValues)
	if err != nil {
		return fmt.Errorf("failed to build arguments: %w", err)
	}

	if err := kernel.RunWithArgs(args...); err != nil {
		return fmt.Errorf("kernel execution failed: %w", err)
	}

	kr.Device.Finish()

	// Perform post-kernel data copies (device→host)
	if err := kr.performPostKernelCopies(def); err != nil {
		return fmt.Errorf("post-kernel copy failed: %w", err)
	}
	return nil
}

// performPreKernelCopies handles all host→device transfers before kernel execution
func (kr *Runner) performPreKernelCopies(def *KernelDefinition) error {
	for _, param := range def.Parameters {
		if param.NeedsCopyTo() {
			if err := kr.copyToDevice(param.Name, param.HostBinding); err != nil {
				return fmt.Errorf("failed to copy %s to device: %w", param.Name, err)
			}
		}
	}
	return nil
}

// performPostKernelCopies handles all device→host transfers after kernel execution
func (kr *Runner) performPostKernelCopies(def *KernelDefinition) error {
	for _, param := range def.Parameters {
		if param.NeedsCopyBack() {
			if err := kr.copyFromDevice(param.Name, param.HostBinding); err != nil {
				return fmt.Errorf("failed to copy %s from device: %w", param.Name, err)
			}
		}
	}
	return nil
}

// buildKernelArguments constructs the argument list in definition order:
// device memory for arrays, converted values for scalars
func (kr *Runner) buildKernelArguments(def *KernelDefinition,
	scalarValues []interface{}) ([]interface{}, error) {
	var args []interface{}
	scalarIdx := 0
	for _, p := range def.Parameters {
		if p.Direction != builder.DirectionScalar {
			mem := kr.GetMemory(p.Name)
			if mem == nil {
				return nil, fmt.Errorf("memory for %s not found", p.Name)
			}
			args = append(args, mem)
			continue
		}

		var value interface{}
		if scalarIdx < len(scalarValues) {
			value = scalarValues[scalarIdx]
			scalarIdx++
		} else if p.HostBinding != nil {
			value = p.HostBinding
		} else {
			return nil, fmt.Errorf("no value provided for scalar %s", p.Name)
		}
		converted, err := convertScalar(value, p.DataType)
		if err != nil {
			return nil, fmt.Errorf("scalar %s: %w", p.Name, err)
		}
		args = append(args, converted)
	}
	return args, nil
}

// GetKernelSignature generates the signature for a defined kernel
func (kr *Runner) GetKernelSignature(kernelName string) (string, error) {
	def, exists := kr.kernelDefinitions[kernelName]
	if !exists {
		return "", fmt.Errorf("kernel %s not defined", kernelName)
	}
	return def.Signature, nil
}

// GetAllocatedArrays returns a sorted list of allocated array names
func (kr *Runner) GetAllocatedArrays() []string {
	arrays := make([]string, 0, len(kr.arrayMetadata))
	for name := range kr.arrayMetadata {
		arrays = append(arrays, name)
	}
	sort.Strings(arrays)
	return arrays
}

// GetMemory returns the device memory for a named array
func (kr *Runner) GetMemory(arrayName string) *gocca.OCCAMemory {
	return kr.PooledMemory[arrayName]
}

// GetArrayType returns the data type of an allocated array
func (kr *Runner) GetArrayType(name string) (builder.DataType, error) {
	metadata, exists := kr.arrayMetadata[name]
	if !exists {
		return 0, fmt.Errorf("array %s not found", name)
	}
	return metadata.dataType, nil
}

// GetArrayLogicalSize returns the number of values in an array
func (kr *Runner) GetArrayLogicalSize(name string) (int, error) {
	metadata, exists := kr.arrayMetadata[name]
	if !exists {
		return 0, fmt.Errorf("array %s not found", name)
	}
	return int(metadata.spec.Size / metadata.dataType.Size()), nil
}

// BuildKernel compiles and registers a kernel with the program
func (kr *Runner) BuildKernel(kernelSource, kernelName string) (*gocca.OCCAKernel, error) {
	kr.GeneratePreamble()

	fullSource := kr.KernelPreamble + "\n" + kernelSource

	var kernel *gocca.OCCAKernel
	var err error

	if kr.Device.Mode() == "OpenMP" {
		// Workaround for OCCA bug: OpenMP doesn't get default -O3 flag
		props := gocca.JsonParse(`{"compiler_flags": "-O3"}`)
		defer props.Free()
		kernel, err = kr.Device.BuildKernelFromString(fullSource, kernelName, props)
	} else {
		kernel, err = kr.Device.BuildKernelFromString(fullSource, kernelName, nil)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to build kernel %s: %w", kernelName, err)
	}
	if kernel == nil {
		return nil, fmt.Errorf("kernel build returned nil for %s", kernelName)
	}
	kr.Kernels[kernelName] = kernel
	return kernel, nil
}

// Free releases all resources
func (kr *Runner) Free() {
	for _, kernel := range kr.Kernels {
		kernel.Free()
	}
	for _, mem := range kr.PooledMemory {
		mem.Free()
	}
	kr.Kernels = make(map[string]*gocca.OCCAKernel)
	kr.PooledMemory = make(map[string]*gocca.OCCAMemory)
}

// allocateSingleArray reserves device memory for one array
func (kr *Runner) allocateSingleArray(spec builder.ArraySpec) error {
	if spec.Size <= 0 {
		return fmt.Errorf("array %s has no size", spec.Name)
	}
	kr.PooledMemory[spec.Name] = kr.Device.Malloc(spec.Size, nil, nil)
	kr.AllocatedArrays = append(kr.AllocatedArrays, spec.Name)
	kr.arrayMetadata[spec.Name] = ArrayMetadata{
		spec:     spec,
		dataType: spec.DataType,
		isOutput: spec.IsOutput,
	}
	return nil
}
