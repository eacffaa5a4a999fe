package builder

import (
	"fmt"
	"reflect"
)

// Direction indicates parameter data flow
type Direction int

const (
	DirectionInput Direction = iota
	DirectionOutput
	DirectionInOut
	DirectionTemp
	DirectionScalar
)

// ParamBuilder provides a fluent interface for building kernel parameters
type ParamBuilder struct {
	Spec ParamSpec
}

// ParamSpec holds the complete specification for a kernel parameter
type ParamSpec struct {
	Name        string
	Direction   Direction
	HostBinding interface{}

	// Type and size (inferred or explicit)
	DataType DataType
	Size     int64

	// Per-run data movement. A bound array is always uploaded once when it
	// is first allocated.
	DoCopyTo   bool
	DoCopyBack bool
}

func newParam(name string, dir Direction) *ParamBuilder {
	return &ParamBuilder{Spec: ParamSpec{Name: name, Direction: dir}}
}

// Input creates a parameter specification for a const input
func Input(deviceName string) *ParamBuilder { return newParam(deviceName, DirectionInput) }

// Output creates a parameter specification for a non-const output
func Output(deviceName string) *ParamBuilder { return newParam(deviceName, DirectionOutput) }

// InOut creates a parameter specification for a non-const input/output
func InOut(deviceName string) *ParamBuilder { return newParam(deviceName, DirectionInOut) }

// Scalar creates a parameter specification for a scalar value
func Scalar(deviceName string) *ParamBuilder { return newParam(deviceName, DirectionScalar) }

// Temp creates a parameter specification for a device-only temporary array
func Temp(deviceName string) *ParamBuilder { return newParam(deviceName, DirectionTemp) }

// Bind associates a host variable with this parameter
func (p *ParamBuilder) Bind(hostVar interface{}) *ParamBuilder {
	p.Spec.HostBinding = hostVar
	p.inferFromBinding()
	return p
}

// Copy sets bidirectional copy (host→device before, device→host after)
func (p *ParamBuilder) Copy() *ParamBuilder {
	p.Spec.DoCopyTo = true
	p.Spec.DoCopyBack = true
	return p
}

// CopyTo sets host→device copy before kernel execution
func (p *ParamBuilder) CopyTo() *ParamBuilder {
	p.Spec.DoCopyTo = true
	return p
}

// CopyBack sets device→host copy after kernel execution
func (p *ParamBuilder) CopyBack() *ParamBuilder {
	p.Spec.DoCopyBack = true
	return p
}

// Type sets explicit type (mainly for Temp arrays and unbound scalars)
func (p *ParamBuilder) Type(dataType DataType) *ParamBuilder {
	p.Spec.DataType = dataType
	return p
}

// Size sets explicit size (mainly for Temp arrays)
func (p *ParamBuilder) Size(elements int) *ParamBuilder {
	p.Spec.Size = int64(elements)
	return p
}

// inferFromBinding extracts type and size information from the host binding
func (p *ParamBuilder) inferFromBinding() {
	if p.Spec.HostBinding == nil {
		return
	}

	v := reflect.ValueOf(p.Spec.HostBinding)
	t := v.Type()

	if t.Kind() == reflect.Slice {
		p.Spec.Size = int64(v.Len())
		p.Spec.DataType = kindType(t.Elem().Kind())
		return
	}

	p.Spec.DataType = kindType(t.Kind())
	if p.Spec.DataType != 0 {
		p.Spec.Size = 1
	}
}

func kindType(k reflect.Kind) DataType {
	switch k {
	case reflect.Float32:
		return Float32
	case reflect.Float64:
		return Float64
	case reflect.Int32:
		return INT32
	case reflect.Int, reflect.Int64:
		return INT64
	default:
		return 0
	}
}

// Validate checks if the parameter specification is complete and valid
func (p *ParamSpec) Validate() error {
	if p.Name == "" {
		return fmt.Errorf("parameter name cannot be empty")
	}

	if p.Direction == DirectionScalar {
		if p.DataType == 0 {
			return fmt.Errorf("scalar %s needs type or binding", p.Name)
		}
		return nil
	}

	if p.Size == 0 {
		return fmt.Errorf("array %s needs size", p.Name)
	}
	if p.DataType == 0 {
		return fmt.Errorf("array %s needs type", p.Name)
	}

	// Temp arrays cannot have host bindings or copy operations
	if p.Direction == DirectionTemp {
		if p.HostBinding != nil {
			return fmt.Errorf("temp array %s cannot have host binding", p.Name)
		}
		if p.DoCopyTo || p.DoCopyBack {
			return fmt.Errorf("temp array %s cannot have copy operations", p.Name)
		}
	}

	return nil
}

// IsConst returns whether this parameter should be const in the kernel signature
func (p *ParamSpec) IsConst() bool {
	switch p.Direction {
	case DirectionOutput, DirectionInOut, DirectionTemp:
		return false
	default:
		return true
	}
}

// NeedsCopyTo returns whether this parameter needs host→device copy
func (p *ParamSpec) NeedsCopyTo() bool {
	return p.DoCopyTo && p.HostBinding != nil
}

// NeedsCopyBack returns whether this parameter needs device→host copy
func (p *ParamSpec) NeedsCopyBack() bool {
	return p.DoCopyBack && p.HostBinding != nil
}
