package internal

import (
	"github.com/petermattis/goid"
)

// GoroutineID returns the id of the calling goroutine. The GL side uses it
// to pin a backend context to the goroutine that owns it.
func GoroutineID() int64 {
	return goid.Get()
}
