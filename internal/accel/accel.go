// Package accel probes the host for hardware acceleration and records the
// selected accelerator class for later consumption by training scripts.
package accel

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Class is the accelerator class selected for the workspace.
type Class string

const (
	// ClassCUDA is a discrete NVIDIA GPU driven through CUDA.
	ClassCUDA Class = "cuda"
	// ClassMPS is Apple Metal Performance Shaders on Apple silicon.
	ClassMPS Class = "mps"
	// ClassCPU is the processor-only fallback.
	ClassCPU Class = "cpu"
)

// ParseClass validates a single accelerator token.
func ParseClass(s string) (Class, error) {
	switch Class(s) {
	case ClassCUDA, ClassMPS, ClassCPU:
		return Class(s), nil
	}
	return "", fmt.Errorf("unknown accelerator class: %q", s)
}

// Valid reports whether the class is one of the three known tokens.
func (c Class) Valid() bool {
	_, err := ParseClass(string(c))
	return err == nil
}

// Device describes the selected compute backend. Name and MemoryBytes are
// best-effort metadata and stay empty for the CPU fallback.
type Device struct {
	Class       Class  `json:"class"`
	Name        string `json:"name,omitempty"`
	MemoryBytes uint64 `json:"memory_bytes,omitempty"`
}

func (d Device) String() string {
	if d.Name == "" {
		return string(d.Class)
	}
	if d.MemoryBytes > 0 {
		return fmt.Sprintf("%s (%s, %.2f GB)", d.Class, d.Name, float64(d.MemoryBytes)/1e9)
	}
	return fmt.Sprintf("%s (%s)", d.Class, d.Name)
}

// WriteDeviceFile persists the accelerator class as a single token. The
// parent directory is created if needed and an existing file is overwritten.
func WriteDeviceFile(path string, class Class) error {
	if !class.Valid() {
		return fmt.Errorf("refusing to persist unknown accelerator class: %q", class)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create device file directory %s: %w", dir, err)
	}

	if err := os.WriteFile(path, []byte(class), 0644); err != nil {
		return fmt.Errorf("failed to write device file %s: %w", path, err)
	}

	return nil
}

// ReadDeviceFile loads and validates a previously persisted accelerator
// class.
func ReadDeviceFile(path string) (Class, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read device file %s: %w", path, err)
	}

	token := strings.TrimSpace(string(data))
	class, err := ParseClass(token)
	if err != nil {
		return "", fmt.Errorf("device file %s is corrupt: %w", path, err)
	}

	return class, nil
}
