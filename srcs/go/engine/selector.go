package engine

import (
	"reflect"
	"time"

	"github.com/rabit-go/rabit/srcs/go/rabitconfig"
)

// Selector multiplexes readiness over the live link set. The engine's
// single cooperative goroutine registers every Link it currently cares
// about, then calls Select to block until at least one is worth revisiting:
// readable, terminated, or (if nothing is ready) until a write-retry timer
// fires so pending non-blocking writes get another attempt.
//
// reflect.Select is used instead of a hand-written N-way select because the
// watch set's size varies with the topology's fan-out and is not known at
// compile time.
type Selector struct {
	links []*Link
}

// NewSelector builds a Selector over links. The slice is retained, not
// copied; callers must not mutate it concurrently with Select.
func NewSelector(links []*Link) *Selector {
	return &Selector{links: links}
}

// ReadySet reports, for each watched Link, whether it has buffered bytes or
// a terminal status ready to consume right now, without blocking.
func (s *Selector) ReadySet() []bool {
	ready := make([]bool, len(s.links))
	for i, l := range s.links {
		ready[i] = l.Readable()
	}
	return ready
}

// AnyReady reports whether ReadySet would return any true entry, without
// allocating the slice.
func (s *Selector) AnyReady() bool {
	for _, l := range s.links {
		if l.Readable() {
			return true
		}
	}
	return false
}

// Select waits for link readiness. If block is false it returns immediately
// with the current readiness. If block is true it blocks until some link
// becomes ready or rabitconfig.SelectPollPeriod elapses; the periodic wake
// lets the caller retry outstanding non-blocking writes, which are attempted
// from cursor state rather than gated on a write-readiness case here.
func (s *Selector) Select(block bool) []bool {
	if !block || s.AnyReady() {
		return s.ReadySet()
	}

	cases := make([]reflect.SelectCase, 0, len(s.links)+1)
	for _, l := range s.links {
		cases = append(cases, reflect.SelectCase{
			Dir:  reflect.SelectRecv,
			Chan: reflect.ValueOf(l.doneCh),
		})
	}
	timer := time.NewTimer(rabitconfig.SelectPollPeriod)
	defer timer.Stop()
	cases = append(cases, reflect.SelectCase{
		Dir:  reflect.SelectRecv,
		Chan: reflect.ValueOf(timer.C),
	})

	// Race chunkCh receipt alongside doneCh/timer so a mid-stream chunk
	// also wakes the wait; the actual bytes get folded back via drain()
	// below rather than consumed twice.
	for _, l := range s.links {
		cases = append(cases, reflect.SelectCase{
			Dir:  reflect.SelectRecv,
			Chan: reflect.ValueOf(l.chunkCh),
		})
	}

	chosen, recv, recvOK := reflect.Select(cases)
	nLinks := len(s.links)
	if chosen >= nLinks+1 && recvOK {
		// chosen indexes into the chunkCh block; stash what we won so
		// drain() below doesn't lose it.
		idx := chosen - (nLinks + 1)
		chunk := recv.Bytes()
		s.links[idx].pending = append(s.links[idx].pending, chunk...)
	}

	return s.ReadySet()
}
