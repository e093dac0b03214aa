//go:build linux

package scanner

import (
	"fmt"
	"os"
	"strings"
)

// ProcComm reads a process name from /proc/<pid>/comm.
func ProcComm(pid int) (string, error) {
	data, err := os.ReadFile(fmt.Sprintf("/proc/%d/comm", pid))
	if err != nil {
		return "", fmt.Errorf("read comm for pid %d: %w", pid, err)
	}
	return strings.TrimSpace(string(data)), nil
}
