package worker

import (
	"errors"
	"log"
	"sync"
)

// ErrClosed is returned by Submit after Close.
var ErrClosed = errors.New("worker pool closed")

// LineProcessor handles one log line. The error is the outcome of a command
// line; plain lines always return nil.
type LineProcessor interface {
	Process(source, line string) error
}

type Job struct {
	Source string
	Line   string

	// barrier jobs carry no line; the worker closes done when it reaches them
	done chan struct{}
	// result, when set, receives the outcome of processing Line
	result chan error
}

// Pool feeds lines to a single consumer so that a command always takes
// effect before the line that follows it.
type Pool struct {
	JobQueue  chan Job
	Processor LineProcessor

	mu      sync.RWMutex
	closed  bool
	started sync.Once
	wg      sync.WaitGroup
}

func NewPool(queueSize int, proc LineProcessor) *Pool {
	if queueSize <= 0 {
		queueSize = 1000
	}
	return &Pool{
		JobQueue:  make(chan Job, queueSize),
		Processor: proc,
	}
}

func (p *Pool) Start() {
	p.started.Do(func() {
		p.wg.Add(1)
		go p.worker()
		log.Printf("Worker pool started (queue %d)", cap(p.JobQueue))
	})
}

func (p *Pool) worker() {
	defer p.wg.Done()
	for job := range p.JobQueue {
		if job.done != nil {
			close(job.done)
			continue
		}
		err := p.Processor.Process(job.Source, job.Line)
		if job.result != nil {
			job.result <- err
		}
	}
}

// Submit queues a line, blocking while the queue is full.
func (p *Pool) Submit(job Job) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrClosed
	}
	p.JobQueue <- job
	return nil
}

// SubmitLine is Submit for a bare line.
func (p *Pool) SubmitLine(source, line string) error {
	return p.Submit(Job{Source: source, Line: line})
}

// Apply queues a line and waits until it is processed, returning the
// command error it produced, if any.
func (p *Pool) Apply(source, line string) error {
	result := make(chan error, 1)
	if err := p.Submit(Job{Source: source, Line: line, result: result}); err != nil {
		return err
	}
	return <-result
}

// Sync blocks until every line submitted before the call has been processed.
func (p *Pool) Sync() error {
	done := make(chan struct{})
	if err := p.Submit(Job{done: done}); err != nil {
		return err
	}
	<-done
	return nil
}

// Close stops accepting lines and waits for the queue to drain.
func (p *Pool) Close() {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.JobQueue)
	}
	p.mu.Unlock()
	p.wg.Wait()
}
