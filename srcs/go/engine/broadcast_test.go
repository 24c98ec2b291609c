package engine

import (
	"testing"

	"github.com/rabit-go/rabit/srcs/go/utils"
	"github.com/rabit-go/rabit/srcs/go/utils/assert"
)

// Test_Broadcast_FromMiddleRank broadcasts from rank 1 in a three-rank
// tree (0 at the root with children 1 and 2). The payload has to travel
// up over rank 0 and back down to rank 2, so this exercises the in-link
// discovery on both non-root ranks.
func Test_Broadcast_FromMiddleRank(t *testing.T) {
	const worldSize = 3
	topos := buildCohort(worldSize)
	defer closeCohort(topos)

	payload := []byte("hello")
	bufs := [][]byte{make([]byte, 5), append([]byte(nil), payload...), make([]byte, 5)}

	errCh := make(chan error, worldSize)
	for r := 0; r < worldSize; r++ {
		go func(r int) { errCh <- Broadcast(topos[r], bufs[r], 5, 1) }(r)
	}
	for r := 0; r < worldSize; r++ {
		assert.OK(<-errCh)
	}
	for r := 0; r < worldSize; r++ {
		assert.True(utils.BytesEq(bufs[r], payload))
	}
}

// Test_Broadcast_Idempotence broadcasts the result of a broadcast; the
// second round must leave every buffer unchanged.
func Test_Broadcast_Idempotence(t *testing.T) {
	topos := buildCohort(2)
	defer closeCohort(topos)

	payload := []byte("abc")
	bufs := [][]byte{append([]byte(nil), payload...), make([]byte, 3)}

	for round := 0; round < 2; round++ {
		errCh := make(chan error, 2)
		go func() { errCh <- Broadcast(topos[0], bufs[0], 3, 0) }()
		go func() { errCh <- Broadcast(topos[1], bufs[1], 3, 0) }()
		assert.OK(<-errCh)
		assert.OK(<-errCh)
	}
	assert.True(utils.BytesEq(bufs[0], payload))
	assert.True(utils.BytesEq(bufs[1], payload))
}

func Test_Broadcast_RootOutOfRange(t *testing.T) {
	topo := &Topology{Rank: 0, WorldSize: 2}
	err := Broadcast(topo, make([]byte, 4), 4, 2)
	assert.True(err == errBadBroadcastRoot)
}

func Test_Broadcast_SingleNode(t *testing.T) {
	topo := &Topology{Rank: 0, WorldSize: 1}
	buf := []byte("solo")
	assert.OK(Broadcast(topo, buf, 4, 0))
	assert.True(string(buf) == "solo")
}
