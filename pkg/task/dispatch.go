package task

import "sync"

// Dispatcher schedules task bodies for execution. Run uses the default
// goroutine-per-task dispatcher; RunOn lets callers route work through a
// bounded pool instead.
type Dispatcher interface {
	Submit(fn func())
	Stop()
}

// goDispatcher runs every submission on its own goroutine.
type goDispatcher struct{}

func (goDispatcher) Submit(fn func()) { go fn() }
func (goDispatcher) Stop()            {}

var defaultDispatcher Dispatcher = goDispatcher{}

// NewGoroutineDispatcher returns the unbounded per-submission dispatcher.
func NewGoroutineDispatcher() Dispatcher {
	return goDispatcher{}
}

// WorkerPool is a fixed-size dispatcher. Submissions queue on a buffered
// channel and block once the queue is full, which gives natural
// backpressure to producers.
type WorkerPool struct {
	queue chan func()
	wg    sync.WaitGroup
	once  sync.Once
}

var _ Dispatcher = (*WorkerPool)(nil)

// NewWorkerPool starts size workers draining a queue of depth queueDepth.
// Non-positive arguments are clamped to 1 worker and an unbuffered queue.
func NewWorkerPool(size, queueDepth int) *WorkerPool {
	if size <= 0 {
		size = 1
	}
	if queueDepth < 0 {
		queueDepth = 0
	}
	p := &WorkerPool{queue: make(chan func(), queueDepth)}
	p.wg.Add(size)
	for i := 0; i < size; i++ {
		go p.worker()
	}
	return p
}

func (p *WorkerPool) worker() {
	defer p.wg.Done()
	for fn := range p.queue {
		fn()
	}
}

// Submit enqueues fn, blocking while the queue is full. Submitting after
// Stop panics; stop the pool only once no producers remain.
func (p *WorkerPool) Submit(fn func()) {
	p.queue <- fn
}

// Stop closes the queue and waits for the workers to drain it. Safe to
// call more than once.
func (p *WorkerPool) Stop() {
	p.once.Do(func() { close(p.queue) })
	p.wg.Wait()
}
