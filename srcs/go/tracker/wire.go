// Package tracker implements the coordinator client: the wire handshake
// and peer-exchange protocol that turns a set of otherwise unconnected
// worker processes into a spanning tree of engine.Link values.
package tracker

import (
	"encoding/binary"
	"errors"
	"io"
)

// magicToken is exchanged at the start of every coordinator connection so a
// stray connection on the same port is rejected immediately instead of
// wedging the handshake state machine.
const magicToken uint32 = 0xff99

var errBadMagic = errors.New("tracker: bad magic token")

// Command names the handshake verbs a worker sends the coordinator.
type Command string

const (
	CommandStart    Command = "start"
	CommandRecover  Command = "recover"
	CommandPrint    Command = "print"
	CommandShutdown Command = "shutdown"
)

// All integers on the wire are fixed-width 32-bit little-endian; strings
// are a 4-byte length followed by the bytes. Negative ranks (-1 for "no
// parent", "no rank assigned yet") round-trip through the signed helpers.

func writeInt32(w io.Writer, v int) error {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], uint32(int32(v)))
	_, err := w.Write(buf[:])
	return err
}

func readInt32(r io.Reader) (int, error) {
	var buf [4]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, err
	}
	return int(int32(binary.LittleEndian.Uint32(buf[:]))), nil
}

func writeString(w io.Writer, s string) error {
	if err := writeInt32(w, len(s)); err != nil {
		return err
	}
	_, err := w.Write([]byte(s))
	return err
}

func readString(r io.Reader) (string, error) {
	n, err := readInt32(r)
	if err != nil {
		return "", err
	}
	if n < 0 {
		return "", errors.New("tracker: negative string length on wire")
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", err
	}
	return string(buf), nil
}

func writeMagic(w io.Writer) error {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], magicToken)
	_, err := w.Write(buf[:])
	return err
}

func expectMagic(r io.Reader) error {
	var buf [4]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return err
	}
	if binary.LittleEndian.Uint32(buf[:]) != magicToken {
		return errBadMagic
	}
	return nil
}

// assignment is what the coordinator sends back after a start/recover
// command: this worker's rank, its position in the spanning tree, and its
// ring neighborhood.
type assignment struct {
	Rank          int
	ParentRank    int
	WorldSize     int
	TreeNeighbors []int
	PrevRank      int
	NextRank      int
}

func readAssignment(r io.Reader) (assignment, error) {
	var a assignment
	var err error
	if a.Rank, err = readInt32(r); err != nil {
		return a, err
	}
	if a.ParentRank, err = readInt32(r); err != nil {
		return a, err
	}
	if a.WorldSize, err = readInt32(r); err != nil {
		return a, err
	}
	n, err := readInt32(r)
	if err != nil {
		return a, err
	}
	a.TreeNeighbors = make([]int, n)
	for i := range a.TreeNeighbors {
		if a.TreeNeighbors[i], err = readInt32(r); err != nil {
			return a, err
		}
	}
	if a.PrevRank, err = readInt32(r); err != nil {
		return a, err
	}
	if a.NextRank, err = readInt32(r); err != nil {
		return a, err
	}
	return a, nil
}

// writeAssignment is the coordinator-side encoder, used by the fake
// coordinators the handshake tests run.
func writeAssignment(w io.Writer, a assignment) error {
	for _, v := range []int{a.Rank, a.ParentRank, a.WorldSize, len(a.TreeNeighbors)} {
		if err := writeInt32(w, v); err != nil {
			return err
		}
	}
	for _, nr := range a.TreeNeighbors {
		if err := writeInt32(w, nr); err != nil {
			return err
		}
	}
	if err := writeInt32(w, a.PrevRank); err != nil {
		return err
	}
	return writeInt32(w, a.NextRank)
}

// peerInstruction is one "dial this worker" entry of the peer-exchange
// loop: where the peer listens and which rank it must prove to be.
type peerInstruction struct {
	Host string
	Port int
	Rank int
}

func readPeerInstruction(r io.Reader) (peerInstruction, error) {
	var p peerInstruction
	var err error
	if p.Host, err = readString(r); err != nil {
		return p, err
	}
	if p.Port, err = readInt32(r); err != nil {
		return p, err
	}
	p.Rank, err = readInt32(r)
	return p, err
}

func writePeerInstruction(w io.Writer, p peerInstruction) error {
	if err := writeString(w, p.Host); err != nil {
		return err
	}
	if err := writeInt32(w, p.Port); err != nil {
		return err
	}
	return writeInt32(w, p.Rank)
}
