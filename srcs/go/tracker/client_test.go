package tracker

import (
	"net"
	"testing"

	"github.com/rabit-go/rabit/srcs/go/engine"
	"github.com/rabit-go/rabit/srcs/go/utils/assert"
)

func Test_Bootstrap_SingleNodeShortcut(t *testing.T) {
	c := New(engine.Params{TrackerURI: "NULL"})
	topo, err := c.Bootstrap()
	assert.OK(err)
	assert.True(topo.Rank == 0)
	assert.True(topo.WorldSize == 1)
	assert.True(len(topo.AllLinks()) == 0)
}

// serveWorker drives one worker through the coordinator side of the
// bootstrap handshake and returns the port its listener ended up on.
func serveWorker(t *testing.T, conn net.Conn, a assignment, dialPeers []peerInstruction, numAccept int) int {
	defer conn.Close()
	assert.OK(expectMagic(conn))
	assert.OK(writeMagic(conn))
	prevRank, err := readInt32(conn)
	assert.OK(err)
	assert.True(prevRank == -1)
	_, err = readInt32(conn) // advertised world size
	assert.OK(err)
	_, err = readString(conn) // task id
	assert.OK(err)
	cmd, err := readString(conn)
	assert.OK(err)
	assert.True(cmd == string(CommandStart))

	assert.OK(writeAssignment(conn, a))

	nGood, err := readInt32(conn)
	assert.OK(err)
	for i := 0; i < nGood; i++ {
		_, err := readInt32(conn)
		assert.OK(err)
	}
	assert.OK(writeInt32(conn, len(dialPeers)))
	assert.OK(writeInt32(conn, numAccept))
	for _, p := range dialPeers {
		assert.OK(writePeerInstruction(conn, p))
	}
	numError, err := readInt32(conn)
	assert.OK(err)
	assert.True(numError == 0)

	port, err := readInt32(conn)
	assert.OK(err)
	return port
}

// Test_Bootstrap_TwoWorkers runs the full handshake for a two-rank cohort
// against a fake coordinator, then checks the resulting links really carry
// a collective. The first worker to reach the coordinator becomes rank 0
// and accepts; the second dials it.
func Test_Bootstrap_TwoWorkers(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	assert.OK(err)
	defer ln.Close()
	addr := ln.Addr().(*net.TCPAddr)

	params := engine.Params{
		TrackerURI:  "127.0.0.1",
		TrackerPort: addr.Port,
		TaskID:      "bootstrap-test",
		WorldSize:   2,
	}

	type result struct {
		topo *engine.Topology
		err  error
	}
	resCh := make(chan result, 2)
	launch := func() {
		topo, err := New(params).Bootstrap()
		resCh <- result{topo, err}
	}
	go launch()
	go launch()

	conn0, err := ln.Accept()
	assert.OK(err)
	port0 := serveWorker(t, conn0, assignment{
		Rank: 0, ParentRank: -1, WorldSize: 2,
		TreeNeighbors: []int{1}, PrevRank: 1, NextRank: 1,
	}, nil, 1)

	conn1, err := ln.Accept()
	assert.OK(err)
	serveWorker(t, conn1, assignment{
		Rank: 1, ParentRank: 0, WorldSize: 2,
		TreeNeighbors: []int{0}, PrevRank: 0, NextRank: 0,
	}, []peerInstruction{{Host: "127.0.0.1", Port: port0, Rank: 0}}, 0)

	topos := make(map[int]*engine.Topology, 2)
	for i := 0; i < 2; i++ {
		r := <-resCh
		assert.OK(r.err)
		topos[r.topo.Rank] = r.topo
	}
	assert.True(topos[0] != nil && topos[1] != nil)
	assert.True(topos[0].IsRoot() && len(topos[0].Children) == 1)
	assert.True(!topos[1].IsRoot() && len(topos[1].Children) == 0)
	assert.True(topos[0].RingPrev != nil && topos[1].RingNext != nil)

	// the links must carry a real collective end to end
	topos[0].ReduceBufferBytes = 1 << 12
	topos[1].ReduceBufferBytes = 1 << 12
	buf0 := make([]byte, 8)
	buf1 := make([]byte, 8)
	buf0[0], buf1[0] = 3, 4
	errCh := make(chan error, 2)
	go func() {
		errCh <- engine.Allreduce(topos[0], buf0, 8, engine.U8, engine.ReducerFor(engine.SUM, engine.U8))
	}()
	go func() {
		errCh <- engine.Allreduce(topos[1], buf1, 8, engine.U8, engine.ReducerFor(engine.SUM, engine.U8))
	}()
	assert.OK(<-errCh)
	assert.OK(<-errCh)
	assert.True(buf0[0] == 7 && buf1[0] == 7)

	for _, topo := range topos {
		for _, l := range topo.Peers {
			l.Close()
		}
	}
}
