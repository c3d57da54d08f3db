package device

import (
	"os"
	"runtime"
	"strings"

	"github.com/NVIDIA/go-nvml/pkg/nvml"
)

// Probe pairs a backend tier with its availability check.
// Probes are pure capability queries; they never mutate anything.
type Probe struct {
	Backend   Backend
	Available func() bool
}

// DefaultProbes returns the standard probe chain in priority order:
// CUDA, ROCm (ZLUDA shim), Apple Metal, CPU.
func DefaultProbes() []Probe {
	return []Probe{
		{Backend: CUDA, Available: probeCUDA},
		{Backend: ROCm, Available: probeZLUDA},
		{Backend: MPS, Available: probeMetal},
		{Backend: CPU, Available: func() bool { return true }},
	}
}

// probeCUDA reports whether at least one NVIDIA GPU is visible through NVML.
// Init failure (no driver, no library) simply means unavailable.
func probeCUDA() bool {
	if ret := nvml.Init(); ret != nvml.SUCCESS {
		return false
	}
	defer nvml.Shutdown()

	count, ret := nvml.DeviceGetCount()
	return ret == nvml.SUCCESS && count > 0
}

// probeZLUDA detects the ZLUDA CUDA shim used on Intel/AMD hardware.
// There is no driver API to query; launchers expose it through the
// environment, so that is what we inspect.
func probeZLUDA() bool {
	if os.Getenv("ZLUDA_PATH") != "" {
		return true
	}
	preload := strings.ToLower(os.Getenv("LD_PRELOAD"))
	return strings.Contains(preload, "zluda")
}

// probeMetal reports whether Apple acceleration is plausible on this host.
func probeMetal() bool {
	return runtime.GOOS == "darwin" && runtime.GOARCH == "arm64"
}
