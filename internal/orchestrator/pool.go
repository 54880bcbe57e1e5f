package orchestrator

import (
	"context"
	"fmt"
	"sync"

	"github.com/fibreflow/workforce/pkg/models"
)

// Pool runs requests concurrently with two constraints: a global cap on
// in-flight requests, and at most one request per agent at a time so an
// agent's state writes stay serialized.
type Pool struct {
	orch          *Orchestrator
	maxConcurrent int

	sem chan struct{}

	mu         sync.Mutex
	agentLocks map[string]*sync.Mutex
	stopped    bool

	wg sync.WaitGroup
}

// NewPool creates a pool over the orchestrator. maxConcurrent values
// under 1 default to 3.
func NewPool(orch *Orchestrator, maxConcurrent int) *Pool {
	if maxConcurrent < 1 {
		maxConcurrent = 3
	}
	return &Pool{
		orch:          orch,
		maxConcurrent: maxConcurrent,
		sem:           make(chan struct{}, maxConcurrent),
		agentLocks:    make(map[string]*sync.Mutex),
	}
}

// MaxConcurrent returns the global concurrency cap.
func (p *Pool) MaxConcurrent() int {
	return p.maxConcurrent
}

// Submit queues a request for execution. The done callback (may be nil)
// receives the final request and error when it finishes. Returns an
// error after Stop.
func (p *Pool) Submit(ctx context.Context, text string, done func(*models.Request, error)) error {
	decision, err := p.orch.DryRoute(text)
	if err != nil {
		return fmt.Errorf("cannot route request: %w", err)
	}

	// wg.Add must happen under the same lock as the stopped check so
	// Stop's Wait cannot miss an in-flight Submit.
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return fmt.Errorf("pool is stopped")
	}
	p.wg.Add(1)
	p.mu.Unlock()
	go func() {
		defer p.wg.Done()

		select {
		case p.sem <- struct{}{}:
		case <-ctx.Done():
			if done != nil {
				done(nil, ctx.Err())
			}
			return
		}
		defer func() { <-p.sem }()

		// Serialize per agent so domain state writes never interleave.
		lock := p.lockFor(decision.Agent)
		lock.Lock()
		defer lock.Unlock()

		req, err := p.orch.Handle(ctx, text)
		if done != nil {
			done(req, err)
		}
	}()

	return nil
}

// Wait blocks until all submitted requests finish.
func (p *Pool) Wait() {
	p.wg.Wait()
}

// Stop rejects further submissions and waits for in-flight requests to
// drain.
func (p *Pool) Stop() {
	p.mu.Lock()
	p.stopped = true
	p.mu.Unlock()
	p.wg.Wait()
}

// lockFor returns the per-agent mutex, creating it on first use.
func (p *Pool) lockFor(agent string) *sync.Mutex {
	p.mu.Lock()
	defer p.mu.Unlock()
	l, ok := p.agentLocks[agent]
	if !ok {
		l = &sync.Mutex{}
		p.agentLocks[agent] = l
	}
	return l
}
