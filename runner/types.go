package runner

import (
	"github.com/notargets/FDTDKernel/runner/builder"
)

// GetDataTypeFromSample returns the DataType based on a sample value
func GetDataTypeFromSample(sample interface{}) builder.DataType {
	switch sample.(type) {
	case float32:
		return builder.Float32
	case float64:
		return builder.Float64
	case int32:
		return builder.INT32
	case int64:
		return builder.INT64
	default:
		return 0
	}
}
