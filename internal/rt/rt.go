// Package rt moves the calling goroutine's thread into the real-time
// scheduling class.
package rt

import "errors"

// DefaultPriority is the SCHED_FIFO priority used for the audio thread.
const DefaultPriority = 70

// ErrPromotion is returned when thread could not be promoted.
var ErrPromotion = errors.New("real-time promotion failed")
