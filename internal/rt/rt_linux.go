package rt

import (
	"fmt"
	"runtime"

	"golang.org/x/sys/unix"
)

// Promote locks the calling goroutine to its thread and switches the
// thread to SCHED_FIFO with provided priority. The thread stays locked
// even if promotion fails.
func Promote(priority int) error {
	runtime.LockOSThread()
	attr := unix.SchedAttr{
		Size:     unix.SizeofSchedAttr,
		Policy:   unix.SCHED_FIFO,
		Priority: uint32(priority),
	}
	if err := unix.SchedSetAttr(0, &attr, 0); err != nil {
		return fmt.Errorf("%w: %w", ErrPromotion, err)
	}
	return nil
}
