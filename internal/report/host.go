package report

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/klauspost/cpuid/v2"
)

// Host describes the machine a run executed on.
type Host struct {
	CPU           string
	Vendor        string
	PhysicalCores int
	LogicalCores  int
	CacheLine     int
	Features      []string
	GOOS          string
	GOARCH        string
}

// DescribeHost inspects the current machine.
func DescribeHost() Host {
	h := Host{
		CPU:           cpuid.CPU.BrandName,
		Vendor:        cpuid.CPU.VendorString,
		PhysicalCores: cpuid.CPU.PhysicalCores,
		LogicalCores:  cpuid.CPU.LogicalCores,
		CacheLine:     cpuid.CPU.CacheLine,
		GOOS:          runtime.GOOS,
		GOARCH:        runtime.GOARCH,
	}
	if h.LogicalCores == 0 {
		h.LogicalCores = runtime.NumCPU()
	}
	for _, f := range []struct {
		id   cpuid.FeatureID
		name string
	}{
		{cpuid.AVX2, "avx2"},
		{cpuid.FMA3, "fma3"},
		{cpuid.AVX512F, "avx512f"},
		{cpuid.ASIMD, "asimd"},
	} {
		if cpuid.CPU.Supports(f.id) {
			h.Features = append(h.Features, f.name)
		}
	}
	return h
}

func (h Host) String() string {
	cpu := h.CPU
	if cpu == "" {
		cpu = "unknown cpu"
	}
	features := "none"
	if len(h.Features) > 0 {
		features = strings.Join(h.Features, ",")
	}
	return fmt.Sprintf("%s (%s/%s, %d logical cores, features %s)", cpu, h.GOOS, h.GOARCH, h.LogicalCores, features)
}
