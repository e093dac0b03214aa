//go:build !linux

package scanner

import "errors"

// ProcComm is only available on Linux.
func ProcComm(int) (string, error) {
	return "", errors.New("process names unavailable on this platform")
}
