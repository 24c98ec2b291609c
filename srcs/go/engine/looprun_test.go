package engine

import (
	"testing"

	"github.com/rabit-go/rabit/srcs/go/utils/assert"
)

func Test_RunApproximationLoop_SingleNode_FullRatio(t *testing.T) {
	topo := &Topology{Rank: 0, WorldSize: 1}
	var done int64
	prepare := func(begin, end int64) { done += end - begin }
	ratio, err := RunApproximationLoop(topo, prepare, 100, 1.0)
	assert.OK(err)
	assert.True(ratio == 1.0)
	assert.True(done == 100)
}

func Test_RunApproximationLoop_SingleNode_Partial(t *testing.T) {
	topo := &Topology{Rank: 0, WorldSize: 1}
	var done int64
	prepare := func(begin, end int64) { done += end - begin }
	ratio, err := RunApproximationLoop(topo, prepare, 1000, 0.5)
	assert.OK(err)
	assert.True(ratio >= 0.5 && ratio <= 1.0)
	assert.True(done >= 500 && done <= 1000)
}

// Test_RunApproximationLoop_FourNode runs the full driver across a
// four-rank cohort, 1000 local iterations each with a 0.9 tolerance. Every
// rank must agree on an achieved ratio in [0.9, 1.0], the combined work
// must land in [3600, 4000], and iterations must never run twice.
func Test_RunApproximationLoop_FourNode(t *testing.T) {
	const worldSize = 4
	topos := buildCohort(worldSize)
	defer closeCohort(topos)

	done := make([]int64, worldSize)
	ratios := make([]float64, worldSize)
	errCh := make(chan error, worldSize)
	doneCh := make(chan int, worldSize)
	for r := 0; r < worldSize; r++ {
		go func(r int) {
			last := int64(0)
			prepare := func(begin, end int64) {
				if begin != last {
					t.Errorf("rank %d: batch starts at %d, expected %d", r, begin, last)
				}
				last = end
				done[r] += end - begin
			}
			ratio, err := RunApproximationLoop(topos[r], prepare, 1000, 0.9)
			ratios[r] = ratio
			errCh <- err
			doneCh <- r
		}(r)
	}
	for r := 0; r < worldSize; r++ {
		assert.OK(<-errCh)
		<-doneCh
	}

	var total int64
	finished := 0
	for r := 0; r < worldSize; r++ {
		assert.True(ratios[r] >= 0.9 && ratios[r] <= 1.0)
		assert.True(ratios[r] == ratios[0])
		total += done[r]
		if done[r] == 1000 {
			finished++
		}
	}
	assert.True(total >= 3600 && total <= 4000)
	assert.True(finished >= 3)
}

func Test_LoopStatusReduce(t *testing.T) {
	a := newLoopStatus(40)
	b := newLoopStatus(0)
	bufA := make([]byte, loopStatusFields*8)
	bufB := make([]byte, loopStatusFields*8)
	va := asSlice[int64](bufA, loopStatusFields)
	vb := asSlice[int64](bufB, loopStatusFields)
	va[0], va[1], va[2] = a.NumLeft, a.MaxLeft, a.NumFinish
	vb[0], vb[1], vb[2] = b.NumLeft, b.MaxLeft, b.NumFinish

	loopStatusReduce(bufA, bufB, loopStatusFields, I64)
	assert.True(vb[0] == 40) // remaining work sums
	assert.True(vb[1] == 40) // slowest rank wins
	assert.True(vb[2] == 1)  // finish count sums
}
