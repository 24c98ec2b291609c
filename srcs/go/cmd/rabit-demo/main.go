// Command rabit-demo exercises Allreduce, Broadcast, and the approximation
// loop end to end against either no coordinator (standalone single-node
// mode) or a real one, for smoke-testing a build of this engine.
package main

import (
	"encoding/binary"
	"flag"
	"fmt"
	"math"

	"github.com/rabit-go/rabit/srcs/go/engine"
	"github.com/rabit-go/rabit/srcs/go/log"
	"github.com/rabit-go/rabit/srcs/go/tracker"
	"github.com/rabit-go/rabit/srcs/go/utils"
)

type flagSet struct {
	TrackerURI  string
	TrackerPort int
	TaskID      string
	WorldSize   int
	N           int
	ApproxRatio float64
	ApproxIter  int64
	Verbose     bool
}

var f flagSet

func init() {
	flag.StringVar(&f.TrackerURI, "tracker-uri", "NULL", "coordinator host, or NULL to run standalone")
	flag.IntVar(&f.TrackerPort, "tracker-port", 9091, "coordinator port")
	flag.StringVar(&f.TaskID, "task-id", "", "this worker's task id")
	flag.IntVar(&f.WorldSize, "world-size", 1, "number of workers in the job")
	flag.IntVar(&f.N, "n", 16, "number of float64 elements to allreduce")
	flag.Float64Var(&f.ApproxRatio, "approx-ratio", 0, "if > 0, also run the approximation loop with this ratio")
	flag.Int64Var(&f.ApproxIter, "approx-iter", 1000, "local iteration count for the approximation loop")
	flag.BoolVar(&f.Verbose, "v", false, "enable debug logging and print the rabit_* environment")
}

func main() {
	flag.Parse()
	if f.Verbose {
		log.SetLevel(log.Debug)
		utils.LogRabitEnv()
	}

	e := engine.New()
	e.Params.TrackerURI = f.TrackerURI
	e.Params.TrackerPort = f.TrackerPort
	e.Params.TaskID = f.TaskID
	e.Params.WorldSize = f.WorldSize
	if e.Params.HadoopMode {
		e.Params.SeedFromHadoopEnv()
	}

	cl := tracker.New(e.Params)
	if err := e.Init(cl); err != nil {
		utils.ExitErr(err)
	}
	defer cl.Shutdown()
	defer e.Shutdown()

	log.Infof("rabit-demo: rank %d of %d", e.Rank, e.WorldSize)

	buf := make([]float64, f.N)
	for i := range buf {
		buf[i] = float64(e.Rank + i)
	}

	bytes := floatsToBytes(buf)
	d, err := utils.Measure(func() error {
		return e.Allreduce(bytes, f.N, engine.F64, engine.ReducerFor(engine.SUM, engine.F64))
	})
	if err != nil {
		utils.ExitErr(err)
	}
	result := bytesToFloats(bytes, f.N)
	log.Infof("sum-allreduce of %d elements took %s (%s)", f.N, d, utils.ShowRate(utils.Rate(int64(f.N*8), d)))
	log.Infof("sum-allreduce result: %v", result)

	if err := e.Broadcast(bytes, uint64(f.N*8), 0); err != nil {
		utils.ExitErr(err)
	}
	log.Infof("broadcast from rank 0 complete")

	if f.ApproxRatio > 0 {
		var done int64
		prepare := func(begin, end int64) { done += end - begin }
		ratio, err := e.RunApproximationLoop(prepare, f.ApproxIter, f.ApproxRatio)
		if err != nil {
			utils.ExitErr(err)
		}
		log.Infof("approximation loop: ran %d/%d local iterations, achieved ratio %.3f", done, f.ApproxIter, ratio)
	}

	cl.Print(fmt.Sprintf("rank=%d version=%d result=%v", e.Rank, e.VersionNumber(), result))
}

func floatsToBytes(v []float64) []byte {
	buf := make([]byte, len(v)*8)
	for i, x := range v {
		binary.LittleEndian.PutUint64(buf[i*8:i*8+8], math.Float64bits(x))
	}
	return buf
}

func bytesToFloats(buf []byte, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.Float64frombits(binary.LittleEndian.Uint64(buf[i*8 : i*8+8]))
	}
	return out
}
