package system

import (
	"os"
	"runtime"
)

// CollectEnvironmentInfo captures the host environment for diagnostics and
// run reports.
func CollectEnvironmentInfo() HostEnvironment {
	hostname, _ := os.Hostname()

	env := HostEnvironment{
		OSVersion:    getOSVersion(),
		Architecture: runtime.GOARCH,
		Username:     username(),
		Hostname:     hostname,
		CPUCount:     runtime.NumCPU(),
		Environment:  make(map[string]string),
	}

	relevantEnv := []string{"PATH", "HOME", "TMPDIR", "CUDA_VISIBLE_DEVICES", "VIRTUAL_ENV", "CONDA_DEFAULT_ENV"}
	for _, key := range relevantEnv {
		if value := os.Getenv(key); value != "" {
			env.Environment[key] = value
		}
	}

	return env
}

func username() string {
	if u := os.Getenv("USER"); u != "" {
		return u
	}
	// Windows
	return os.Getenv("USERNAME")
}
