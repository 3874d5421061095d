package monitor

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v3/process"
)

// SampleSink receives resource samples of the running build step.
type SampleSink interface {
	RunnerSample(runner string, rss uint64, cpu float64)
	RunnerGone(runner string)
}

// RunnerSampler samples the resident memory and CPU of the build step
// process and its children.
type RunnerSampler struct {
	Sink SampleSink

	mu     sync.Mutex
	runner string
	pid    int32
}

func NewRunnerSampler(sink SampleSink) *RunnerSampler {
	return &RunnerSampler{Sink: sink}
}

// Track starts sampling pid under the runner name.
func (s *RunnerSampler) Track(runner string, pid int) {
	s.mu.Lock()
	s.runner, s.pid = runner, int32(pid)
	s.mu.Unlock()
}

// Untrack stops sampling and clears the runner's series.
func (s *RunnerSampler) Untrack() {
	s.mu.Lock()
	runner := s.runner
	s.runner, s.pid = "", 0
	s.mu.Unlock()
	if runner != "" {
		s.Sink.RunnerGone(runner)
	}
}

func (s *RunnerSampler) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sample()
		}
	}
}

// Sample takes one reading. It returns false when nothing is tracked or
// the process is gone.
func (s *RunnerSampler) Sample() bool {
	s.mu.Lock()
	runner, pid := s.runner, s.pid
	s.mu.Unlock()
	if pid == 0 {
		return false
	}

	proc, err := process.NewProcess(pid)
	if err != nil {
		return false
	}

	var rss uint64
	var cpu float64
	for _, p := range append([]*process.Process{proc}, children(proc)...) {
		if mem, err := p.MemoryInfo(); err == nil {
			rss += mem.RSS
		}
		if pct, err := p.CPUPercent(); err == nil {
			cpu += pct
		}
	}
	s.Sink.RunnerSample(runner, rss, cpu)
	return true
}

// children returns every descendant of p.
func children(p *process.Process) []*process.Process {
	kids, err := p.Children()
	if err != nil {
		// ErrorNoChildren is the common case
		return nil
	}
	out := kids
	for _, k := range kids {
		out = append(out, children(k)...)
	}
	if len(out) > 256 {
		log.Printf("RunnerSampler: %d descendants of pid %d, sampling the first 256", len(out), p.Pid)
		out = out[:256]
	}
	return out
}
