// Package xterm renders text in the handful of terminal colors the logger
// uses for its level tags.
package xterm

import "fmt"

// Color is one bold xterm foreground color.
type Color struct {
	code uint8
}

var (
	Grey   = Color{37}
	Blue   = Color{34}
	Yellow = Color{33}
	Red    = Color{31}
)

// S returns text wrapped in the escape sequence for c.
func (c Color) S(text string) string {
	return fmt.Sprintf("\x1b[1;%dm%s\x1b[m", c.code, text)
}
