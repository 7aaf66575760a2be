package closure

import (
	"fmt"
	"log/slog"
	"os"
	"runtime/debug"
)

// abort ends the process after a contained panic.
var abort = func() { os.Exit(2) }

// Contain runs fn on behalf of an OS callback. A panic in fn must not unwind
// into the OS frame that called the trampoline, so it is logged and the
// process exits instead.
func Contain[R any](fn func() R) (result R) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("panic in OS callback, aborting",
				"panic", fmt.Sprint(r),
				"stack", string(debug.Stack()))
			abort()
		}
	}()
	return fn()
}
