package concurrency

import (
	"fmt"
	"log/slog"
	"runtime/debug"
)

// SafeGo runs fn in a goroutine with panic recovery.
func SafeGo(name string, fn func(), onPanic func(interface{})) {
	go func() {
		defer Recover(name, onPanic)
		fn()
	}()
}

// Recover is the deferred half of SafeGo, usable on goroutines started elsewhere.
func Recover(name string, onPanic func(interface{})) {
	if r := recover(); r != nil {
		slog.Error("Panic recovered", "job", name, "panic", fmt.Sprint(r), "stack", string(debug.Stack()))
		if onPanic != nil {
			onPanic(r)
		}
	}
}
