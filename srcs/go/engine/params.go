package engine

import (
	"os"
	"strconv"
	"strings"

	"github.com/rabit-go/rabit/srcs/go/log"
)

// Params is the wire-visible, per-session parameter table. Unlike
// rabitconfig (process-wide, env-only, read once at init), these values are
// part of the handshake contract with the coordinator and may be set
// repeatedly by the host program before Init. They must not be mutated
// while a collective is in flight.
type Params struct {
	TrackerURI  string
	TrackerPort int
	TaskID      string
	WorldSize   int
	HadoopMode  bool
	NumTrial    int

	// ReduceBufferBytes is the target ring-buffer size passed to
	// Link.InitBuffer for every child link; see ComputeBufferSize.
	ReduceBufferBytes int
}

// DefaultParams mirrors the built-in defaults: no tracker (the single-node
// shortcut applies), world size 1, and a 256MiB reduce buffer.
func DefaultParams() Params {
	return Params{
		WorldSize:         1,
		ReduceBufferBytes: defaultReduceBufferBytes,
	}
}

// SetParam applies one name/value pair from the recognized parameter
// table. Unrecognized names are logged and ignored rather than rejected,
// so a host program may pass through options this build does not know.
func (p *Params) SetParam(name, val string) error {
	switch name {
	case "rabit_tracker_uri":
		p.TrackerURI = val
	case "rabit_tracker_port":
		port, err := strconv.Atoi(val)
		if err != nil {
			return err
		}
		p.TrackerPort = port
	case "rabit_task_id":
		p.TaskID = val
	case "rabit_world_size":
		n, err := strconv.Atoi(val)
		if err != nil {
			return err
		}
		p.WorldSize = n
	case "rabit_hadoop_mode":
		p.HadoopMode = val == "true" || val == "1"
	case "rabit_num_trial":
		n, err := strconv.Atoi(val)
		if err != nil {
			return err
		}
		p.NumTrial = n
	case "rabit_reduce_buffer":
		n, err := ParseBufferSize(val)
		if err != nil {
			return err
		}
		p.ReduceBufferBytes = n
	default:
		log.Debugf("engine: ignoring unrecognized param %s=%s", name, val)
	}
	return nil
}

// ParseBufferSize parses a buffer-size string of the form "<number><unit>"
// where unit is one of B, K, M, G (case-insensitive): B is bytes, K/M/G are
// binary (1024-based) multiples. A bare number with no unit suffix is
// treated as bytes. Earlier implementations of this format divided 'B' by 8
// and shifted the other units by 7/17/27 bits; this parser does not
// reproduce that.
func ParseBufferSize(s string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, errEmptyBufferSize
	}
	unit := s[len(s)-1]
	numPart := s
	var shift uint
	switch unit {
	case 'b', 'B':
		numPart = s[:len(s)-1]
	case 'k', 'K':
		numPart = s[:len(s)-1]
		shift = 10
	case 'm', 'M':
		numPart = s[:len(s)-1]
		shift = 20
	case 'g', 'G':
		numPart = s[:len(s)-1]
		shift = 30
	default:
		// bare number, already bytes
	}
	n, err := strconv.Atoi(strings.TrimSpace(numPart))
	if err != nil {
		return 0, err
	}
	return n << shift, nil
}

var errEmptyBufferSize = &paramError{"engine: empty buffer size"}

type paramError struct{ msg string }

func (e *paramError) Error() string { return e.msg }

// SeedFromHadoopEnv fills in TaskID, NumTrial, and WorldSize from the
// Hadoop streaming environment: mapred_tip_id or mapreduce_task_id for the
// task identity, the attempt suffix of mapred_task_id for the trial count,
// and mapred_map_tasks or mapreduce_job_maps for the world size.
func (p *Params) SeedFromHadoopEnv() {
	for _, key := range []string{"mapred_tip_id", "mapreduce_task_id"} {
		if v := os.Getenv(key); v != "" {
			p.TaskID = v
			break
		}
	}
	if attempt := os.Getenv("mapred_task_id"); attempt != "" {
		// attempt ids end in the trial number: attempt_..._m_000003_2
		if i := strings.LastIndex(attempt, "_"); i >= 0 {
			if n, err := strconv.Atoi(attempt[i+1:]); err == nil {
				p.NumTrial = n
			}
		}
	}
	for _, key := range []string{"mapred_map_tasks", "mapreduce_job_maps"} {
		if v := os.Getenv(key); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				p.WorldSize = n
				break
			}
		}
	}
}
