//go:build !linux

package rt

import (
	"fmt"
	"runtime"
)

// Promote locks the calling goroutine to its thread. Scheduling class
// isn't changed on this platform.
func Promote(int) error {
	runtime.LockOSThread()
	return fmt.Errorf("%w: not supported on %s", ErrPromotion, runtime.GOOS)
}
