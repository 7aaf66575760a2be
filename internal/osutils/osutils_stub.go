//go:build !windows

// Package osutils holds small process-level OS queries.
package osutils

import "os"

// Elevated reports whether the process runs as root.
func Elevated() (bool, error) {
	return os.Geteuid() == 0, nil
}
