package utils

import (
	"fmt"
	"os"
	"path"
	"runtime"
	"strings"
)

// ExitErr reports err with the caller's source location and terminates the
// process. The command-line tools and the startup configuration use it for
// failures they do not recover from.
func ExitErr(err error) {
	_, file, line, _ := runtime.Caller(1)
	fmt.Fprintf(os.Stderr, "exit on error: %v at %s:%d\n", err, path.Base(file), line)
	os.Exit(1)
}

// MergeErrors flattens a slice of per-task errors into a single error, or
// nil when none failed. The cohort launcher uses it to report every failed
// worker at once instead of only the first.
func MergeErrors(errs []error, hint string) error {
	var msgs []string
	for _, e := range errs {
		if e != nil {
			msgs = append(msgs, e.Error())
		}
	}
	if len(msgs) == 0 {
		return nil
	}
	return fmt.Errorf("%s failed with %s: %s", hint, Pluralize(len(msgs), "error", "errors"), strings.Join(msgs, ", "))
}
