// Package assert provides the hard invariant checks the tests use: a
// failed assertion prints its caller and aborts the test binary, so a
// broken cursor invariant can never be scrolled past.
package assert

import (
	"fmt"
	"os"
	"path"
	"runtime"
)

func fail(msg string) {
	_, file, line, _ := runtime.Caller(2)
	fmt.Fprintf(os.Stderr, "%s at %s:%d\n", msg, path.Base(file), line)
	os.Exit(1)
}

// OK aborts when err is non-nil.
func OK(err error) {
	if err != nil {
		fail(fmt.Sprintf("assert.OK failed: %v", err))
	}
}

// True aborts when ok is false.
func True(ok bool) {
	if !ok {
		fail("assert.True failed")
	}
}
