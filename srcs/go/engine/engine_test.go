package engine

import (
	"testing"

	"github.com/rabit-go/rabit/srcs/go/utils/assert"
)

type stubBootstrapper struct{ topo *Topology }

func (b stubBootstrapper) Bootstrap() (*Topology, error) { return b.topo, nil }

func Test_Engine_VersionNumber(t *testing.T) {
	e := New()
	assert.OK(e.Init(stubBootstrapper{&Topology{Rank: 0, WorldSize: 1}}))
	assert.True(e.Rank == 0 && e.WorldSize == 1)
	assert.True(e.VersionNumber() == 0)

	buf := int32sBytes([]int32{1, 2, 3})
	assert.OK(e.Allreduce(buf, 3, I32, ReducerFor(SUM, I32)))
	assert.True(e.VersionNumber() == 1)

	assert.OK(e.Broadcast(buf, 12, 0))
	assert.True(e.VersionNumber() == 2)

	assert.OK(e.Shutdown())
}
