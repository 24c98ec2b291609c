package engine

// Bootstrapper establishes this process's peer links and returns the
// resulting Topology. The tracker package's Client implements it for the
// real coordinator handshake; tests implement it with hand-built
// topologies.
type Bootstrapper interface {
	Bootstrap() (*Topology, error)
}

// Engine is the host program's single handle onto this process's
// participation in the job: its rank, its Params, and its current
// Topology. Exactly one Engine exists per process, and nothing here is
// safe to call from more than one goroutine at a time; progress across
// links comes from non-blocking I/O, not intra-process parallelism.
type Engine struct {
	Params Params

	Rank      int
	WorldSize int

	topo    *Topology
	version int
}

// New constructs an Engine with DefaultParams; callers adjust Params
// (or call Params.SetParam for the wire-protocol names) before Init.
func New() *Engine {
	return &Engine{Params: DefaultParams()}
}

// Init runs the bootstrap handshake and installs the initial Topology.
func (e *Engine) Init(b Bootstrapper) error {
	topo, err := b.Bootstrap()
	if err != nil {
		return err
	}
	e.install(topo)
	return nil
}

func (e *Engine) install(topo *Topology) {
	e.Rank = topo.Rank
	e.WorldSize = topo.WorldSize
	if e.Params.ReduceBufferBytes > 0 {
		topo.ReduceBufferBytes = e.Params.ReduceBufferBytes
	}
	e.topo = topo
}

// Topology exposes the current spanning tree for direct collective calls
// and for the recovery driver's rebuild.
func (e *Engine) Topology() *Topology {
	return e.topo
}

// SetTopology installs a rebuilt Topology after the Coordinator Client's
// recovery handshake re-establishes links.
func (e *Engine) SetTopology(t *Topology) {
	e.install(t)
}

// VersionNumber counts the collectives this process has completed through
// Engine.Allreduce and Engine.Broadcast; the status collectives run inside
// RunApproximationLoop are not counted. The
// recovery layer compares it across ranks after a rebuild to decide how
// far to roll back.
func (e *Engine) VersionNumber() int {
	return e.version
}

// Allreduce combines count elements of dtype in sendrecvbuf across every
// rank using reducer.
func (e *Engine) Allreduce(sendrecvbuf []byte, count int, dtype DataType, reducer Reducer) error {
	if err := Allreduce(e.topo, sendrecvbuf, count, dtype, reducer); err != nil {
		return err
	}
	e.version++
	return nil
}

// Broadcast delivers sendrecvbuf from rootRank to every rank.
func (e *Engine) Broadcast(sendrecvbuf []byte, total uint64, rootRank int) error {
	if err := Broadcast(e.topo, sendrecvbuf, total, rootRank); err != nil {
		return err
	}
	e.version++
	return nil
}

// RunApproximationLoop drives prepare with periodic global status checks
// until the cohort has completed at least approxRatio of its combined
// work, and returns the ratio actually achieved.
func (e *Engine) RunApproximationLoop(prepare PrepareLoop, numLoopIter int64, approxRatio float64) (float64, error) {
	return RunApproximationLoop(e.topo, prepare, numLoopIter, approxRatio)
}

// Shutdown closes every link this process holds. The coordinator is told
// separately (tracker.Client.Shutdown); this only releases local
// resources.
func (e *Engine) Shutdown() error {
	if e.topo == nil {
		return nil
	}
	links := e.topo.Peers
	if links == nil {
		links = e.topo.AllLinks()
	}
	var firstErr error
	for _, l := range links {
		if err := l.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	e.topo = nil
	return firstErr
}
