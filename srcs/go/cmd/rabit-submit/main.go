// Command rabit-submit starts one worker process per host in a cohort,
// locally via exec.Command or remotely over SSH, and waits for all of them
// to finish. It does not run a coordinator itself; pair it with
// rabit_tracker_uri pointing at a separately started coordinator, or leave
// it unset and pass -hosts a single local address to run workers in
// standalone single-node mode.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/rabit-go/rabit/srcs/go/log"
	"github.com/rabit-go/rabit/srcs/go/utils"
	"github.com/rabit-go/rabit/srcs/go/utils/ssh"
)

type flagSet struct {
	Hosts      string
	User       string
	Prog       string
	Args       string
	Timeout    time.Duration
	VerboseLog bool
}

var f flagSet

func init() {
	flag.StringVar(&f.Hosts, "hosts", "127.0.0.1", "comma-separated list of worker hosts")
	flag.StringVar(&f.User, "user", "", "SSH user for remote hosts (defaults to current user)")
	flag.StringVar(&f.Prog, "prog", "", "worker program to launch on each host")
	flag.StringVar(&f.Args, "args", "", "arguments passed to -prog, as one shell-quoted string")
	flag.DurationVar(&f.Timeout, "timeout", 0, "overall deadline for the whole cohort, 0 for none")
	flag.BoolVar(&f.VerboseLog, "v", false, "stream each local worker's stdout/stderr with a host prefix (remote workers' output is always streamed)")
}

func main() {
	flag.Parse()
	if f.Prog == "" {
		utils.ExitErr(fmt.Errorf("rabit-submit: -prog is required"))
	}
	hosts := strings.Split(f.Hosts, ",")
	log.Infof("submitting %s to %d host(s): %v", f.Prog, len(hosts), hosts)

	ctx, cancel := context.WithCancel(context.Background())
	if f.Timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, f.Timeout)
	}
	defer cancel()

	d, err := utils.Measure(func() error { return runAll(ctx, hosts) })
	log.Infof("all %d workers finished, took %s", len(hosts), d)
	if err != nil {
		utils.ExitErr(err)
	}
}

func runAll(ctx context.Context, hosts []string) error {
	var wg sync.WaitGroup
	errs := make([]error, len(hosts))
	for i, h := range hosts {
		wg.Add(1)
		go func(i int, host string) {
			defer wg.Done()
			errs[i] = runOne(ctx, host)
		}(i, h)
	}
	wg.Wait()
	return utils.MergeErrors(errs, "rabit-submit")
}

func runOne(ctx context.Context, host string) error {
	if isLocal(host) {
		cmd := exec.CommandContext(ctx, f.Prog, strings.Fields(f.Args)...)
		if f.VerboseLog {
			cmd.Stdout = prefixWriter(os.Stdout, host)
			cmd.Stderr = prefixWriter(os.Stderr, host)
		}
		return cmd.Run()
	}

	client, err := ssh.New(ssh.Config{User: f.User, Host: host})
	if err != nil {
		return fmt.Errorf("rabit-submit: dial %s: %w", host, err)
	}
	defer client.Close()
	cmdline := f.Prog
	if f.Args != "" {
		cmdline += " " + f.Args
	}
	return client.Watch(ctx, cmdline, prefixWriter(os.Stdout, host), prefixWriter(os.Stderr, host))
}

func isLocal(host string) bool {
	return host == "127.0.0.1" || host == "localhost" || host == ""
}

type hostPrefix struct {
	w    *os.File
	host string
}

func (p hostPrefix) Write(b []byte) (int, error) {
	fmt.Fprintf(p.w, "[%s] %s", p.host, b)
	return len(b), nil
}

func prefixWriter(w *os.File, host string) hostPrefix {
	return hostPrefix{w: w, host: host}
}
