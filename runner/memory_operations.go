package runner

import (
	"fmt"
	"unsafe"

	"github.com/notargets/FDTDKernel/runner/builder"
)

// hostBytes returns the base pointer and byte length of a supported host
// slice
func hostBytes(hostData interface{}) (unsafe.Pointer, int64, error) {
	switch data := hostData.(type) {
	case []float32:
		if len(data) == 0 {
			return nil, 0, nil
		}
		return unsafe.Pointer(&data[0]), int64(len(data) * 4), nil
	case []float64:
		if len(data) == 0 {
			return nil, 0, nil
		}
		return unsafe.Pointer(&data[0]), int64(len(data) * 8), nil
	case []int32:
		if len(data) == 0 {
			return nil, 0, nil
		}
		return unsafe.Pointer(&data[0]), int64(len(data) * 4), nil
	case []int64:
		if len(data) == 0 {
			return nil, 0, nil
		}
		return unsafe.Pointer(&data[0]), int64(len(data) * 8), nil
	default:
		return nil, 0, fmt.Errorf("unsupported host type %T", hostData)
	}
}

// copyToDevice writes a host slice into the named device array
func (kr *Runner) copyToDevice(name string, hostData interface{}) error {
	mem := kr.GetMemory(name)
	if mem == nil {
		return fmt.Errorf("no device memory allocated for %s", name)
	}
	ptr, bytes, err := hostBytes(hostData)
	if err != nil {
		return err
	}
	if meta := kr.arrayMetadata[name]; bytes > meta.spec.Size {
		return fmt.Errorf("%s: host data is %d bytes, device array is %d", name, bytes, meta.spec.Size)
	}
	if bytes > 0 {
		mem.CopyFrom(ptr, bytes)
	}
	return nil
}

// copyFromDevice reads the named device array into a host slice
func (kr *Runner) copyFromDevice(name string, hostData interface{}) error {
	mem := kr.GetMemory(name)
	if mem == nil {
		return fmt.Errorf("no device memory allocated for %s", name)
	}
	ptr, bytes, err := hostBytes(hostData)
	if err != nil {
		return err
	}
	if meta := kr.arrayMetadata[name]; bytes > meta.spec.Size {
		return fmt.Errorf("%s: host buffer is %d bytes, device array is %d", name, bytes, meta.spec.Size)
	}
	if bytes > 0 {
		mem.CopyTo(ptr, bytes)
	}
	return nil
}

// CopyToDevice uploads the bound host data of an array
func (kr *Runner) CopyToDevice(name string) error {
	binding, ok := kr.hostBindings[name]
	if !ok {
		return fmt.Errorf("binding %s not found", name)
	}
	return kr.copyToDevice(name, binding)
}

// CopyFromDevice downloads an array into its bound host data
func (kr *Runner) CopyFromDevice(name string) error {
	binding, ok := kr.hostBindings[name]
	if !ok {
		return fmt.Errorf("binding %s not found", name)
	}
	return kr.copyFromDevice(name, binding)
}

// convertScalar coerces a Go numeric value to the kernel's declared type
func convertScalar(value interface{}, dt builder.DataType) (interface{}, error) {
	var f float64
	switch v := value.(type) {
	case float32:
		f = float64(v)
	case float64:
		f = v
	case int:
		f = float64(v)
	case int32:
		f = float64(v)
	case int64:
		f = float64(v)
	default:
		return nil, fmt.Errorf("unsupported scalar type %T", value)
	}
	switch dt {
	case builder.Float32:
		return float32(f), nil
	case builder.Float64:
		return f, nil
	case builder.INT32:
		return int32(f), nil
	case builder.INT64:
		return int64(f), nil
	default:
		return nil, fmt.Errorf("unknown scalar type %v", dt)
	}
}
