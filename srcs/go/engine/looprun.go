package engine

// The driver interleaves a caller-supplied preprocessing loop with periodic
// global status checks so the whole cohort can stop early once enough of
// the combined work is done. Three constants shape the schedule:
// approxRunStep is the quantum of work run between cooperative readiness
// polls while a status Allreduce is in flight, approxCheckStep scales the
// batch between status checks with the work still outstanding, and
// approxCheckMinStep floors that batch so small jobs still make progress
// between checks.
const (
	approxRunStep      = 0.001
	approxCheckStep    = 0.3
	approxCheckMinStep = 0.01
)

// PrepareLoop produces iterations [begin, end) of the caller's local
// preprocessing task. The driver calls it in batches; it must tolerate
// being called with begin == end.
type PrepareLoop func(begin, end int64)

// Executor is the cooperative work hook the Allreduce engine runs while a
// collective stalls on I/O: Run advances one quantum of local work, LoopEnd
// reports whether there is any left.
type Executor interface {
	Run()
	LoopEnd() bool
}

// loopExecutor runs a PrepareLoop in bounded quanta and tracks how far it
// has advanced.
type loopExecutor struct {
	prepare  PrepareLoop
	numIter  int64
	loopStep int64
	counter  int64
}

func (e *loopExecutor) Run() { e.RunStep(e.loopStep) }

// RunStep advances up to step iterations, clamped to what remains.
func (e *loopExecutor) RunStep(step int64) {
	end := e.counter + step
	if end > e.numIter {
		end = e.numIter
	}
	if end > e.counter {
		e.prepare(e.counter, end)
		e.counter = end
	}
}

func (e *loopExecutor) LoopEnd() bool { return e.counter >= e.numIter }

// LoopStatus is the summary Allreduced between batches: the cohort-wide
// remaining iteration count, the slowest rank's remaining count, and how
// many ranks have finished outright.
type LoopStatus struct {
	NumLeft   int64
	MaxLeft   int64
	NumFinish int64
}

const loopStatusFields = 3 // NumLeft, MaxLeft, NumFinish, packed as consecutive int64s

func newLoopStatus(left int64) LoopStatus {
	s := LoopStatus{NumLeft: left, MaxLeft: left}
	if left == 0 {
		s.NumFinish = 1
	}
	return s
}

// loopStatusReduce combines LoopStatus values rank-wise: remaining counts
// and finish counts sum, the per-rank maximum of remaining work is kept.
func loopStatusReduce(src, dst []byte, nelem int, dtype DataType) {
	s := asSlice[int64](src, nelem)
	d := asSlice[int64](dst, nelem)
	for i := 0; i < nelem; i += loopStatusFields {
		d[i] += s[i]
		if s[i+1] > d[i+1] {
			d[i+1] = s[i+1]
		}
		d[i+2] += s[i+2]
	}
}

// allreduceLoopStatus runs one status Allreduce, cooperatively when exec is
// non-nil, and returns the combined view.
func allreduceLoopStatus(topo *Topology, local LoopStatus, exec Executor) (LoopStatus, error) {
	buf := make([]byte, loopStatusFields*8)
	v := asSlice[int64](buf, loopStatusFields)
	v[0], v[1], v[2] = local.NumLeft, local.MaxLeft, local.NumFinish
	if err := AllreduceWithExecutor(topo, buf, loopStatusFields, I64, loopStatusReduce, exec); err != nil {
		return LoopStatus{}, err
	}
	return LoopStatus{NumLeft: v[0], MaxLeft: v[1], NumFinish: v[2]}, nil
}

// RunApproximationLoop executes prepare until the cohort has collectively
// completed at least approxRatio of its combined iterations. numLoopIter is
// this process's share of the work; approxRatio is in (0, 1].
//
// The driver first Allreduce-sums numLoopIter to learn the global total,
// then alternates batches of local work with status Allreduces. Each status
// Allreduce runs with the executor attached, so local work keeps advancing
// while the collective itself is stalled on the network. The loop ends once
// the outstanding work drops below the tolerated gap and more than half the
// ranks have finished; a final blocking status Allreduce then makes every
// rank agree on the achieved ratio, which is returned.
func RunApproximationLoop(topo *Topology, prepare PrepareLoop, numLoopIter int64, approxRatio float64) (float64, error) {
	worldSize := topo.WorldSize
	if worldSize <= 0 {
		worldSize = 1
	}

	buf := make([]byte, 8)
	asSlice[int64](buf, 1)[0] = numLoopIter
	if err := Allreduce(topo, buf, 1, I64, ReducerFor(SUM, I64)); err != nil {
		return 0, err
	}
	numTotal := asSlice[int64](buf, 1)[0]

	exec := &loopExecutor{
		prepare:  prepare,
		numIter:  numLoopIter,
		loopStep: int64(float64(numTotal) * approxRunStep / float64(worldSize)),
	}
	if exec.loopStep < 1 {
		exec.loopStep = 1
	}

	numLeft := numTotal
	approxGap := numTotal - int64(approxRatio*float64(numTotal))
	if approxGap == 0 {
		exec.RunStep(numLoopIter)
		return 1.0, nil
	}

	for numLeft != 0 {
		step := int64(float64(numLeft) * approxCheckStep / float64(worldSize))
		if minStep := int64(float64(numTotal) * approxCheckMinStep / float64(worldSize)); step < minStep {
			step = minStep
		}
		if step < exec.loopStep {
			step = exec.loopStep
		}
		exec.RunStep(step)
		status, err := allreduceLoopStatus(topo, newLoopStatus(numLoopIter-exec.counter), exec)
		if err != nil {
			return 0, err
		}
		numLeft = status.NumLeft
		if numLeft < approxGap && status.NumFinish*2 > int64(worldSize) {
			break
		}
	}
	if numLeft != 0 {
		status, err := allreduceLoopStatus(topo, newLoopStatus(numLoopIter-exec.counter), nil)
		if err != nil {
			return 0, err
		}
		numLeft = status.NumLeft
	}
	if numTotal == 0 {
		return 1.0, nil
	}
	return float64(numTotal-numLeft) / float64(numTotal), nil
}
