package runner

import (
	"fmt"
	"unsafe"
)

// CopyArrayToHost copies a whole device array into a new host slice
func CopyArrayToHost[T any](kr *Runner, name string) ([]T, error) {
	metadata, exists := kr.arrayMetadata[name]
	if !exists {
		return nil, fmt.Errorf("array %s not found", name)
	}

	var sample T
	requestedType := GetDataTypeFromSample(sample)
	if requestedType != metadata.dataType {
		return nil, fmt.Errorf("type mismatch: array is %v, requested %v",
			metadata.dataType, requestedType)
	}

	memory := kr.GetMemory(name)
	if memory == nil {
		return nil, fmt.Errorf("memory for %s not found", name)
	}

	n := int(metadata.spec.Size / int64(unsafe.Sizeof(sample)))
	result := make([]T, n)
	if n > 0 {
		memory.CopyTo(unsafe.Pointer(&result[0]), metadata.spec.Size)
	}
	return result, nil
}
