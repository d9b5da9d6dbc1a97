package device

import (
	"strings"

	"golang.org/x/sys/cpu"
)

// CPUFeatures tracks available CPU instruction set extensions
type CPUFeatures struct {
	HasSSE4    bool
	HasAVX     bool
	HasAVX2    bool
	HasFMA     bool
	HasAVX512F bool
	HasASIMD   bool // arm64 Advanced SIMD
}

var cpuFeatures = CPUFeatures{
	HasSSE4:    cpu.X86.HasSSE41 || cpu.X86.HasSSE42,
	HasAVX:     cpu.X86.HasAVX,
	HasAVX2:    cpu.X86.HasAVX2,
	HasFMA:     cpu.X86.HasFMA,
	HasAVX512F: cpu.X86.HasAVX512F,
	HasASIMD:   cpu.ARM64.HasASIMD,
}

// Features returns the detected CPU features.
func Features() CPUFeatures {
	return cpuFeatures
}

// CPUInfo returns a string describing available CPU features
func CPUInfo() string {
	var features []string
	if cpuFeatures.HasSSE4 {
		features = append(features, "SSE4")
	}
	if cpuFeatures.HasAVX {
		features = append(features, "AVX")
	}
	if cpuFeatures.HasAVX2 {
		features = append(features, "AVX2")
	}
	if cpuFeatures.HasFMA {
		features = append(features, "FMA")
	}
	if cpuFeatures.HasAVX512F {
		features = append(features, "AVX512F")
	}
	if cpuFeatures.HasASIMD {
		features = append(features, "ASIMD")
	}
	if len(features) == 0 {
		return "No SIMD extensions detected"
	}
	return "CPU features: " + strings.Join(features, ", ")
}
