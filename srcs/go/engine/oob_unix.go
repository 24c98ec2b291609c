//go:build unix

package engine

import (
	"errors"
	"net"
	"syscall"

	"golang.org/x/sys/unix"
)

var errPeerException = errors.New("engine: peer signaled out-of-band exception")

// hasException peeks for TCP urgent/out-of-band data on conn without
// consuming any normal-stream bytes, matching select()'s exceptfds
// semantics. Any conn that isn't backed by a raw fd (e.g. the net.Pipe()
// connections link_test.go uses) is reported as exception-free: OOB has no
// meaning on those.
func hasException(conn net.Conn) bool {
	sc, ok := conn.(syscall.Conn)
	if !ok {
		return false
	}
	raw, err := sc.SyscallConn()
	if err != nil {
		return false
	}
	var peeked bool
	var buf [1]byte
	ctrlErr := raw.Read(func(fd uintptr) bool {
		n, _, err := unix.Recvfrom(int(fd), buf[:], unix.MSG_OOB|unix.MSG_DONTWAIT)
		peeked = err == nil && n > 0
		return true
	})
	if ctrlErr != nil {
		return false
	}
	return peeked
}
