//go:build v8

package v8engine

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

// Pool is the V8-backend twin of internal/qjsengine.Pool; see that file
// for the dedicated-thread/bounded-channel round-robin rationale.
type Pool struct {
	workers []*jsWorker
	chans   []chan job
	next    atomic.Uint64
	mu      sync.RWMutex
	closed  bool
	wg      sync.WaitGroup
}

var _ core.ScriptPool = (*Pool)(nil)

// NewPool creates size V8 isolates, each loaded with source, each
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
