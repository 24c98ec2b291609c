package engine

import (
	"testing"

	"github.com/rabit-go/rabit/srcs/go/utils/assert"
)

func Test_ParseBufferSize(t *testing.T) {
	cases := []struct {
		in   string
		want int
	}{
		{"64B", 64},
		{"512K", 512 << 10},
		{"256M", 256 << 20},
		{"1G", 1 << 30},
		{"2g", 2 << 30},
		{"128", 128},
		{" 16m ", 16 << 20},
	}
	for _, c := range cases {
		got, err := ParseBufferSize(c.in)
		assert.OK(err)
		assert.True(got == c.want)
	}

	_, err := ParseBufferSize("")
	assert.True(err != nil)
	_, err = ParseBufferSize("xM")
	assert.True(err != nil)
}

func Test_SetParam(t *testing.T) {
	p := DefaultParams()
	assert.OK(p.SetParam("rabit_tracker_uri", "10.0.0.5"))
	assert.OK(p.SetParam("rabit_tracker_port", "9091"))
	assert.OK(p.SetParam("rabit_task_id", "job-7"))
	assert.OK(p.SetParam("rabit_world_size", "8"))
	assert.OK(p.SetParam("rabit_hadoop_mode", "1"))
	assert.OK(p.SetParam("rabit_num_trial", "2"))
	assert.OK(p.SetParam("rabit_reduce_buffer", "4M"))
	assert.OK(p.SetParam("rabit_future_option", "whatever"))

	assert.True(p.TrackerURI == "10.0.0.5")
	assert.True(p.TrackerPort == 9091)
	assert.True(p.TaskID == "job-7")
	assert.True(p.WorldSize == 8)
	assert.True(p.HadoopMode)
	assert.True(p.NumTrial == 2)
	assert.True(p.ReduceBufferBytes == 4<<20)

	assert.True(p.SetParam("rabit_world_size", "not-a-number") != nil)
}

func Test_SeedFromHadoopEnv(t *testing.T) {
	t.Setenv("mapred_tip_id", "task_202608_0001_m_000002")
	t.Setenv("mapred_task_id", "attempt_202608_0001_m_000002_3")
	t.Setenv("mapred_map_tasks", "16")

	p := DefaultParams()
	p.SeedFromHadoopEnv()
	assert.True(p.TaskID == "task_202608_0001_m_000002")
	assert.True(p.NumTrial == 3)
	assert.True(p.WorldSize == 16)
}
