package modifier

import "runtime/debug"

// Work is a zero-argument unit of work. A nil return means success.
type Work func() error

// invoke runs w and converts a panic into a RuntimeFailure.
// runtime.Goexit cannot be intercepted here and still unwinds the caller.
func invoke(w Work) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = newPanicFailure(r, debug.Stack())
		}
	}()
	return w()
}
