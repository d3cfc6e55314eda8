// Package worker runs independent evaluations concurrently and rate limits
// outbound calls per host.
package worker

import (
	"context"
	"fmt"
	"sync"
)

// Job represents a unit of work to be executed
type Job interface {
	Execute(ctx context.Context) Result
	// Failed builds the result reported when Execute panics
	Failed(err error) Result
}

// Result represents the result of a job execution
type Result interface {
	Err() error
}

// Pool runs jobs on a fixed number of workers. A job that panics yields its
// Failed result; other jobs are unaffected.
type Pool struct {
	workers    int
	jobQueue   chan Job
	results    chan Result
	wg         sync.WaitGroup
	ctx        context.Context
	cancelFunc context.CancelFunc
	closeOnce  sync.Once
}

// NewPool creates a new worker pool bound to ctx
func NewPool(ctx context.Context, workers int) *Pool {
	if workers <= 0 {
		workers = 1
	}

	ctx, cancel := context.WithCancel(ctx)

	return &Pool{
		workers:    workers,
		jobQueue:   make(chan Job, workers*2),
		results:    make(chan Result, workers*2),
		ctx:        ctx,
		cancelFunc: cancel,
	}
}

// Start starts the worker pool
func (p *Pool) Start() {
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
}

func (p *Pool) worker() {
	defer p.wg.Done()

	for job := range p.jobQueue {
		result := run(p.ctx, job)
		p.results <- result
	}
}

func run(ctx context.Context, job Job) (result Result) {
	defer func() {
		if r := recover(); r != nil {
			result = job.Failed(fmt.Errorf("job panic: %v", r))
		}
	}()
	return job.Execute(ctx)
}

// Run submits jobs, waits for all of them and returns their results in
// completion order. Every submitted job produces exactly one result.
func (p *Pool) Run(jobs []Job) []Result {
	p.Start()

	go func() {
		for _, job := range jobs {
			p.jobQueue <- job
		}
		close(p.jobQueue)
	}()

	go func() {
		p.wg.Wait()
		p.closeResults()
	}()

	results := make([]Result, 0, len(jobs))
	for result := range p.results {
		results = append(results, result)
	}
	p.cancelFunc()
	return results
}

func (p *Pool) closeResults() {
	p.closeOnce.Do(func() {
		close(p.results)
	})
}
