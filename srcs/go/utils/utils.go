package utils

import (
	"fmt"
	"os"
	"strings"
	"time"
)

// LogEnvWithPrefix dumps every environment variable starting with prefix,
// one per line tagged with logPrefix.
func LogEnvWithPrefix(prefix, logPrefix string) {
	for _, kv := range os.Environ() {
		if strings.HasPrefix(kv, prefix) {
			fmt.Printf("[%s] %s\n", logPrefix, kv)
		}
	}
}

// LogRabitEnv dumps the rabit_* environment, for inspecting how a worker
// was launched.
func LogRabitEnv() {
	LogEnvWithPrefix(`rabit_`, `rabit-env`)
}

// Measure times f and returns its duration alongside its error.
func Measure(f func() error) (time.Duration, error) {
	t0 := time.Now()
	err := f()
	return time.Since(t0), err
}

// Rate converts n bytes over d into bytes per second.
func Rate(n int64, d time.Duration) float64 {
	return float64(n) / d.Seconds()
}

// ShowRate renders a byte rate with a binary unit suffix.
func ShowRate(r float64) string {
	units := []struct {
		scale float64
		name  string
	}{
		{1 << 30, "GiB/s"},
		{1 << 20, "MiB/s"},
		{1 << 10, "KiB/s"},
	}
	for _, u := range units {
		if r >= u.scale {
			return fmt.Sprintf("%.2f %s", r/u.scale, u.name)
		}
	}
	return fmt.Sprintf("%.2f B/s", r)
}

// Pluralize renders a count with the singular or plural noun.
func Pluralize(n int, singular, plural string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, singular)
	}
	return fmt.Sprintf("%d %s", n, plural)
}
