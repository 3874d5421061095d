// Package process runs build steps and streams their output as log lines.
package process

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/exec"
	"time"
)

// Sink receives the step's output, one line at a time.
type Sink interface {
	SubmitLine(source, line string) error
}

// Step is a single shell command.
type Step struct {
	Name    string
	Command string
	Dir     string
	Env     []string
}

// Result describes a finished step.
type Result struct {
	ExitCode int
	Duration time.Duration
}

type Runner struct {
	Sink  Sink
	Shell string
	// OnStart, when set, is called with the PID once the step is running.
	OnStart func(pid int)
}

func NewRunner(sink Sink) *Runner {
	return &Runner{Sink: sink, Shell: "/bin/sh"}
}

// Run executes step with its stdout and stderr merged into Sink. A non-zero
// exit is reported through Result, not as an error.
func (r *Runner) Run(ctx context.Context, step Step) (Result, error) {
	cmd := exec.CommandContext(ctx, r.Shell, "-c", step.Command)
	cmd.Dir = step.Dir
	cmd.Env = append(os.Environ(), step.Env...)

	pr, pw := io.Pipe()
	cmd.Stdout = pw
	cmd.Stderr = pw

	start := time.Now()
	if err := cmd.Start(); err != nil {
		pw.Close()
		return Result{}, fmt.Errorf("start step %s: %w", step.Name, err)
	}
	log.Printf("Process: step %q started (pid %d)", step.Name, cmd.Process.Pid)
	if r.OnStart != nil {
		r.OnStart(cmd.Process.Pid)
	}

	scanned := make(chan struct{})
	go func() {
		defer close(scanned)
		scanner := bufio.NewScanner(pr)
		scanner.Buffer(make([]byte, 64*1024), 1024*1024)
		for scanner.Scan() {
			if err := r.Sink.SubmitLine(step.Name, scanner.Text()); err != nil {
				log.Printf("Process: dropping output of %q: %v", step.Name, err)
			}
		}
		// Keep draining so the child never blocks on a full pipe.
		io.Copy(io.Discard, pr)
	}()

	waitErr := cmd.Wait()
	pw.Close()
	<-scanned

	res := Result{Duration: time.Since(start)}
	if waitErr != nil {
		var exitErr *exec.ExitError
		if !errors.As(waitErr, &exitErr) {
			return res, fmt.Errorf("step %s: %w", step.Name, waitErr)
		}
		res.ExitCode = exitErr.ExitCode()
		if ctx.Err() != nil {
			return res, ctx.Err()
		}
	}
	log.Printf("Process: step %q exited with %d after %s", step.Name, res.ExitCode, res.Duration.Round(time.Millisecond))
	return res, nil
}
