// Package log is the engine's leveled logger: colored level tags, an
// optional elapsed-time prefix, and a threshold that comes from the
// environment but can be overridden by the host program at runtime.
package log

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rabit-go/rabit/srcs/go/rabitconfig"
	"github.com/rabit-go/rabit/srcs/go/utils/xterm"
)

type Level int32

const (
	Debug Level = iota
	Info
	Warn
	Error
)

// ParseLevel maps a level name to its Level, defaulting to Info for
// anything unrecognized so a typo in the environment never silences the
// logger entirely.
func ParseLevel(s string) Level {
	switch strings.ToUpper(s) {
	case "DEBUG":
		return Debug
	case "INFO":
		return Info
	case "WARN":
		return Warn
	case "ERROR":
		return Error
	default:
		return Info
	}
}

// tag is the colored per-line marker: quiet grey for debug noise, warm
// colors as severity rises.
func (l Level) tag() string {
	switch l {
	case Debug:
		return xterm.Grey.S("[D]")
	case Info:
		return xterm.Blue.S("[I]")
	case Warn:
		return xterm.Yellow.S("[W]")
	default:
		return xterm.Red.S("[E]")
	}
}

type Logger struct {
	mu          sync.Mutex
	w           io.Writer
	t0          time.Time
	level       atomic.Int32
	showElapsed bool
}

// New builds a Logger writing to w with the given threshold. The elapsed
// clock starts at construction.
func New(w io.Writer, level Level, showElapsed bool) *Logger {
	l := &Logger{w: w, t0: time.Now(), showElapsed: showElapsed}
	l.level.Store(int32(level))
	return l
}

var std = New(os.Stdout, ParseLevel(rabitconfig.LogLevel), rabitconfig.ShowTimestamp)

// SetLevel changes the threshold at runtime; safe to call while other
// goroutines log.
func (l *Logger) SetLevel(level Level) {
	l.level.Store(int32(level))
}

// SetOutput redirects the logger, e.g. into a per-worker file under a
// launcher.
func (l *Logger) SetOutput(w io.Writer) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.w = w
}

// formatElapsed renders the time since the logger started as
// hh:mm:ss.mmm, with hours unbounded so long jobs keep a single column
// layout.
func formatElapsed(d time.Duration) string {
	ms := d.Milliseconds()
	ss := ms / 1000
	return fmt.Sprintf("%02d:%02d:%02d.%03d", ss/3600, ss/60%60, ss%60, ms%1000)
}

func (l *Logger) logf(level Level, format string, v ...interface{}) {
	if int32(level) < l.level.Load() {
		return
	}
	msg := fmt.Sprintf(format, v...)
	if !strings.HasSuffix(msg, "\n") {
		msg += "\n"
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.showElapsed {
		fmt.Fprintf(l.w, "%s [%s] %s", level.tag(), formatElapsed(time.Since(l.t0)), msg)
	} else {
		fmt.Fprintf(l.w, "%s %s", level.tag(), msg)
	}
}

func (l *Logger) Debugf(format string, v ...interface{}) {
	l.logf(Debug, format, v...)
}

func (l *Logger) Infof(format string, v ...interface{}) {
	l.logf(Info, format, v...)
}

func (l *Logger) Warnf(format string, v ...interface{}) {
	l.logf(Warn, format, v...)
}

func (l *Logger) Errorf(format string, v ...interface{}) {
	l.logf(Error, format, v...)
}

// Exitf logs at Error and terminates the process.
func (l *Logger) Exitf(format string, v ...interface{}) {
	l.logf(Error, format, v...)
	os.Exit(1)
}

var (
	Debugf    = std.Debugf
	Infof     = std.Infof
	Warnf     = std.Warnf
	Errorf    = std.Errorf
	Exitf     = std.Exitf
	SetLevel  = std.SetLevel
	SetOutput = std.SetOutput
)
