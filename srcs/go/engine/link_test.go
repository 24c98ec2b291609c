package engine

import (
	"net"
	"testing"
	"time"

	"github.com/rabit-go/rabit/srcs/go/utils"
	"github.com/rabit-go/rabit/srcs/go/utils/assert"
)

func Test_Link_ReadToArray_RoundTrip(t *testing.T) {
	a, b := net.Pipe()
	defer a.Close()
	la := NewLink(1, a)
	defer la.Close()

	payload := []byte("hello rabit")
	go func() {
		b.Write(payload)
	}()

	dst := make([]byte, len(payload))
	var status IOStatus
	deadline := time.Now().Add(time.Second)
	for la.SizeRead() < uint64(len(payload)) {
		var err error
		status, err = la.ReadToArray(dst, uint64(len(payload)))
		assert.OK(err)
		if time.Now().After(deadline) {
			t.Fatal("timed out waiting for ReadToArray to complete")
		}
	}
	assert.True(status == StatusSuccess)
	assert.True(utils.FirstDiff(dst, payload) == -1)
}

func Test_Link_WriteFromArray_RoundTrip(t *testing.T) {
	a, b := net.Pipe()
	defer a.Close()
	defer b.Close()
	la := NewLink(1, a)
	defer la.Close()

	payload := []byte("goodbye rabit")
	got := make([]byte, 0, len(payload))
	readDone := make(chan struct{})
	go func() {
		buf := make([]byte, len(payload))
		n, _ := b.Read(buf)
		got = append(got, buf[:n]...)
		close(readDone)
	}()

	deadline := time.Now().Add(time.Second)
	for la.SizeWrite() < uint64(len(payload)) {
		_, err := la.WriteFromArray(payload, uint64(len(payload)))
		assert.OK(err)
		if time.Now().After(deadline) {
			t.Fatal("timed out waiting for WriteFromArray to complete")
		}
	}
	<-readDone
	assert.True(utils.FirstDiff(got, payload) == -1)
}

func Test_Link_ReadToRingBuffer_WrapsAround(t *testing.T) {
	a, b := net.Pipe()
	defer a.Close()
	defer b.Close()
	la := NewLink(1, a)
	defer la.Close()
	la.InitBuffer(1, 4, 4) // 4-byte ring buffer

	go func() {
		b.Write([]byte{1, 2, 3, 4})
		b.Write([]byte{5, 6})
	}()

	deadline := time.Now().Add(time.Second)
	for la.SizeRead() < 4 {
		_, err := la.ReadToRingBuffer(0)
		assert.OK(err)
		if time.Now().After(deadline) {
			t.Fatal("timed out filling ring buffer")
		}
	}
	out := make([]byte, 4)
	la.ReadRing(0, out)
	assert.True(out[0] == 1 && out[3] == 4)

	// advance the consumer so the ring has room to wrap
	for la.SizeRead() < 6 {
		_, err := la.ReadToRingBuffer(4)
		assert.OK(err)
		if time.Now().After(deadline) {
			t.Fatal("timed out wrapping ring buffer")
		}
	}
	wrapped := make([]byte, 2)
	la.ReadRing(4, wrapped)
	assert.True(wrapped[0] == 5 && wrapped[1] == 6)
}
