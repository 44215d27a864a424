// Package provision creates and tears down the host resources a benchmark
// run depends on: bind-mounted directories and tap network devices.
// Teardown always precedes creation, so a run can be repeated without
// manual cleanup.
package provision

import "fmt"

// MountName returns the directory name for mount point i (1-based).
func MountName(i int) string {
	return fmt.Sprintf("resource-%d", i)
}

// TapName returns the device name for tap interface i (0-based).
func TapName(i int) string {
	return fmt.Sprintf("tap%d", i)
}

// TapAddr returns the CIDR address assigned to tap interface i.
func TapAddr(i int) string {
	return fmt.Sprintf("172.16.0.%d/24", i+1)
}
