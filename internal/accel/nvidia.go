package accel

import (
	"os"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
)

const nvidiaSMI = "nvidia-smi"

var nvidiaDevPattern = regexp.MustCompile(`^nvidia\d+$`)

// hasNvidiaGPU checks for a usable NVIDIA GPU. The kernel module exposes
// device files as /dev/nvidia[0-9]+; nvidia-smi on PATH is accepted as a
// fallback signal.
func hasNvidiaGPU() bool {
	if hasNvidiaDeviceNode("/dev") {
		return true
	}
	_, err := exec.LookPath(nvidiaSMI)
	return err == nil
}

func hasNvidiaDeviceNode(devPath string) bool {
	entries, err := os.ReadDir(devPath)
	if err != nil {
		return false
	}
	for _, entry := range entries {
		if nvidiaDevPattern.MatchString(entry.Name()) {
			return true
		}
	}
	return false
}

// queryNvidiaSMI asks the driver for the name and total memory of the first
// GPU. Best effort: any failure yields empty metadata, never an error.
func queryNvidiaSMI() (string, uint64) {
	cmd := exec.Command(nvidiaSMI,
		"--query-gpu=name,memory.total",
		"--format=csv,noheader,nounits",
		"--id=0")
	output, err := cmd.Output()
	if err != nil {
		return "", 0
	}
	return parseNvidiaSMIQuery(string(output))
}

// parseNvidiaSMIQuery parses one line of nvidia-smi CSV output, e.g.
// "NVIDIA GeForce RTX 4090, 24564". Memory is reported in MiB.
func parseNvidiaSMIQuery(output string) (string, uint64) {
	line := strings.TrimSpace(output)
	if i := strings.IndexByte(line, '\n'); i >= 0 {
		line = strings.TrimSpace(line[:i])
	}

	idx := strings.LastIndex(line, ",")
	if idx < 0 {
		return line, 0
	}

	name := strings.TrimSpace(line[:idx])
	memMiB, err := strconv.ParseUint(strings.TrimSpace(line[idx+1:]), 10, 64)
	if err != nil {
		return name, 0
	}

	return name, memMiB * 1024 * 1024
}
