package utils

import (
	"fmt"
	"strings"

	"github.com/notargets/gocca"
)

// deviceBackends lists the OCCA device properties tried in order of preference
var deviceBackends = map[string]string{
	"openmp": `{"mode": "OpenMP"}`,
	"cuda":   `{"mode": "CUDA", "device_id": 0}`,
	"serial": `{"mode": "Serial"}`,
}

// CreateTestDevice creates a Device for testing, preferring parallel backends
func CreateTestDevice() *gocca.OCCADevice {
	for _, mode := range []string{"openmp", "cuda", "serial"} {
		device, err := gocca.NewDevice(deviceBackends[mode])
		if err == nil {
			fmt.Printf("Created %s Device\n", device.Mode())
			return device
		}
	}

	// Should not reach here
	panic("Failed to create any Device")
}

// CreateDevice opens the named backend ("openmp", "cuda", "serial"), or the
// first one available when mode is empty or "auto"
func CreateDevice(mode string) (*gocca.OCCADevice, error) {
	mode = strings.ToLower(strings.TrimSpace(mode))
	if mode == "" || mode == "auto" {
		return CreateTestDevice(), nil
	}
	props, ok := deviceBackends[mode]
	if !ok {
		return nil, fmt.Errorf("unknown device mode %q", mode)
	}
	device, err := gocca.NewDevice(props)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s device: %w", mode, err)
	}
	return device, nil
}
