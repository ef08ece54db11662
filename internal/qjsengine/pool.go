//go:build !v8

package qjsengine

import (
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"github.com/dinoserve/dino/internal/core"
)

// job is one dispatch handed to a worker's dedicated goroutine.
type job struct {
	name string
	req  *core.Req
	resp chan jobResult
}

type jobResult struct {
	res *core.Res
	err error
}

// Pool is a fixed-size set of QuickJS workers, each pinned to its own OS
// thread and fed by its own capacity-1 channel, dispatched round-robin.
// Grounded in original_source's JsWorkerPool (dino-server/src/engine.rs):
// size dedicated threads, each owning one worker and reading requests
// from its own bounded mpsc channel; Run always sends to
// chans[index % len(chans)] regardless of whether that worker is
// currently busy, so a slowed worker's queue backs up instead of its
// share of requests quietly being picked up by an idler.
type Pool struct {
	workers []*jsWorker
	chans   []chan job
	next    atomic.Uint64
	mu      sync.RWMutex
	closed  bool
	wg      sync.WaitGroup
}

var _ core.ScriptPool = (*Pool)(nil)

// NewPool creates size QuickJS workers, each loaded with source, each
// running on its own locked OS thread.
func NewPool(size int, source string) (*Pool, error) {
	if size < 1 {
		size = 1
	}
	p := &Pool{
		workers: make([]*jsWorker, 0, size),
		chans:   make([]chan job, 0, size),
	}
	for i := 0; i < size; i++ {
		w, err := newWorker(source)
		if err != nil {
			p.Dispose()
			return nil, fmt.Errorf("creating worker %d: %w", i, err)
		}
		ch := make(chan job, 1)
		p.workers = append(p.workers, w)
		p.chans = append(p.chans, ch)
		p.wg.Add(1)
		go p.workerLoop(w, ch)
	}
	return p, nil
}

// workerLoop pins this goroutine to one OS thread for its whole life, so
// the QuickJS VM it drives is always entered from the same thread, and
// services jobs off ch until the pool closes it.
func (p *Pool) workerLoop(w *jsWorker, ch chan job) {
	defer p.wg.Done()
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	for j := range ch {
		res, err := w.run(j.name, j.req)
		j.resp <- jobResult{res: res, err: err}
	}
	w.close()
}

// Run dispatches to worker index%len(workers), matching the original's
// "index mod pool size" selection and its "[worker-{index}] is running
// {name}" log line, then blocks until that specific worker answers.
func (p *Pool) Run(name string, req *core.Req) (*core.Res, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return nil, &core.WorkerSendFailed{Reason: "worker pool is disposed"}
	}

	idx := int(p.next.Add(1)-1) % len(p.chans)
	logrus.Infof("[worker-%d] is running %s", idx, name)

	resp := make(chan jobResult, 1)
	p.chans[idx] <- job{name: name, req: req, resp: resp}

	r := <-resp
	return r.res, r.err
}

// Dispose closes every worker's channel, letting each worker loop drain
// its current job (if any) before closing its VM, then waits for all
// worker goroutines to exit. Held under the same lock Run reads from, so
// no job is ever sent on a channel Dispose is about to close.
func (p *Pool) Dispose() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	for _, ch := range p.chans {
		close(ch)
	}
	p.mu.Unlock()

	p.wg.Wait()
}
