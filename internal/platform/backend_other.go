//go:build !linux

package platform

import (
	"fmt"
	"runtime"
)

// OpenNative is only implemented for X11 on Linux. Other platforms run the
// daemon with the headless backend.
func OpenNative(display string) (Backend, error) {
	return nil, fmt.Errorf("native windowing backend is not available on %s; run with --headless", runtime.GOOS)
}
