package accel

import (
	"fmt"
)

// Prober detects available hardware acceleration in a fixed priority order.
// The individual capability checks are injectable so tests can simulate any
// hardware combination.
type Prober struct {
	hasCUDA  func() bool
	cudaInfo func() (string, uint64)
	hasMPS   func() bool
}

// NewProber returns a prober wired to the real platform checks.
func NewProber() *Prober {
	return &Prober{
		hasCUDA:  hasNvidiaGPU,
		cudaInfo: queryNvidiaSMI,
		hasMPS:   hasAppleSilicon,
	}
}

// NewProberWithChecks returns a prober with explicit capability checks.
// Intended for tests; nil funcs report the capability as absent.
func NewProberWithChecks(hasCUDA func() bool, cudaInfo func() (string, uint64), hasMPS func() bool) *Prober {
	if hasCUDA == nil {
		hasCUDA = func() bool { return false }
	}
	if cudaInfo == nil {
		cudaInfo = func() (string, uint64) { return "", 0 }
	}
	if hasMPS == nil {
		hasMPS = func() bool { return false }
	}
	return &Prober{hasCUDA: hasCUDA, cudaInfo: cudaInfo, hasMPS: hasMPS}
}

// Probe selects the best available backend in the default priority order:
// discrete GPU first, vendor-integrated acceleration second, CPU last.
// Probing never fails; the CPU fallback is not an error.
func (p *Prober) Probe() Device {
	return p.ProbeOrder([]Class{ClassCUDA, ClassMPS, ClassCPU})
}

// ProbeOrder selects the first available backend from the given order.
// The CPU class always matches, so an order ending in ClassCPU cannot come
// up empty. An order without any available class degrades to CPU as well.
func (p *Prober) ProbeOrder(order []Class) Device {
	for _, class := range order {
		switch class {
		case ClassCUDA:
			if p.hasCUDA() {
				name, memory := p.cudaInfo()
				return Device{Class: ClassCUDA, Name: name, MemoryBytes: memory}
			}
		case ClassMPS:
			if p.hasMPS() {
				return Device{Class: ClassMPS, Name: "Apple Metal Performance Shaders"}
			}
		case ClassCPU:
			return Device{Class: ClassCPU}
		}
	}
	return Device{Class: ClassCPU}
}

// ParseOrder converts configured token strings into a probe order.
func ParseOrder(tokens []string) ([]Class, error) {
	order := make([]Class, 0, len(tokens))
	for _, token := range tokens {
		class, err := ParseClass(token)
		if err != nil {
			return nil, fmt.Errorf("invalid probe order: %w", err)
		}
		order = append(order, class)
	}
	return order, nil
}
