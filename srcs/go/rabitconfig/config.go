// Package rabitconfig holds process-wide ambient settings that are read once
// at startup from the environment. It is deliberately separate from the
// per-session parameters in engine.Params.SetParam: those are part of the wire
// contract with the coordinator and may be set repeatedly by the host
// program, while the values here only ever come from the OS environment.
package rabitconfig

import (
	"os"
	"strings"
	"time"

	"github.com/rabit-go/rabit/srcs/go/utils"
)

const (
	ConnRetryCount  = 5
	ConnRetryPeriod = 200 * time.Millisecond
)

const (
	LogLevelEnvKey      = `RABIT_CONFIG_LOG_LEVEL`
	ShowTimestampEnvKey = `RABIT_CONFIG_SHOW_TIMESTAMP`
	SelectPollEnvKey    = `RABIT_CONFIG_SELECT_POLL_PERIOD`
)

var ConfigEnvKeys = []string{
	LogLevelEnvKey,
	ShowTimestampEnvKey,
	SelectPollEnvKey,
}

var (
	// LogLevel controls the verbosity of the package-level logger.
	LogLevel = `INFO`
	// ShowTimestamp prefixes log lines with elapsed process time.
	ShowTimestamp = false
	// SelectPollPeriod bounds how long a blocking Select call waits before
	// re-checking its wait set, which is when pending non-blocking writes
	// are retried. The environment override lets tests force frequent
	// wakeups without depending on OS-level socket timers.
	SelectPollPeriod = 20 * time.Millisecond
)

func init() {
	if val := os.Getenv(LogLevelEnvKey); len(val) > 0 {
		LogLevel = strings.ToUpper(val)
	}
	if val := os.Getenv(ShowTimestampEnvKey); len(val) > 0 {
		ShowTimestamp = isTrue(val)
	}
	if val := os.Getenv(SelectPollEnvKey); len(val) > 0 {
		SelectPollPeriod = parseDuration(val)
	}
}

func isTrue(val string) bool {
	return val == "true" || val == "1"
}

func parseDuration(val string) time.Duration {
	d, err := time.ParseDuration(val)
	if err != nil {
		utils.ExitErr(err)
	}
	return d
}
