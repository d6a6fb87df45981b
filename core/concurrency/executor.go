// Executor dispatches component-driving tasks across worker goroutines,
// using per-worker lock-free local queues with a global-queue fallback.
// nica.Engine uses one Executor per direction (h2n/n2h) to run the
// independent-goroutine realization of SPEC_FULL.md §0; wg.Done is only
// signalled after a worker has fully stopped, so dynamic resizing never
// races a worker still mid-task.
//
// License: Apache-2.0
package concurrency

import (
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nica-dataplane/nicacore/affinity"
)

// TaskFunc is a unit of work submitted to the Executor.
type TaskFunc func()

// Executor manages a pool of worker goroutines.
type Executor struct {
	globalQueue   chan TaskFunc
	localQueues   []*RingBuffer[TaskFunc]
	workers       []*worker
	closeCh       chan struct{}
	closed        atomic.Bool
	resizeRequest chan int
	mu            sync.Mutex
	wg            sync.WaitGroup
	numaNode      int
}

// NewExecutor creates a new Executor with the given number of workers,
// each optionally pinned to numaNode (-1 disables pinning).
func NewExecutor(numWorkers, numaNode int) *Executor {
	if numWorkers <= 0 {
		numWorkers = runtime.NumCPU()
	}
	e := &Executor{
		globalQueue:   make(chan TaskFunc, numWorkers*4),
		closeCh:       make(chan struct{}),
		resizeRequest: make(chan int),
		numaNode:      numaNode,
	}
	e.localQueues = make([]*RingBuffer[TaskFunc], numWorkers)
	e.workers = make([]*worker, numWorkers)
	for i := 0; i < numWorkers; i++ {
		e.localQueues[i] = NewRingBuffer[TaskFunc](1024)
	}
	for i := 0; i < numWorkers; i++ {
		w := &worker{id: i, executor: e, localQueue: e.localQueues[i], stopCh: make(chan struct{}), stoppedCh: make(chan struct{})}
		e.workers[i] = w
		e.wg.Add(1)
		go w.run(numaNode, &e.wg)
	}
	go e.manageResizes(numaNode)
	return e
}

// Submit enqueues a task. Returns ErrExecutorClosed if the executor has
// been shut down or every queue is saturated.
func (e *Executor) Submit(task TaskFunc) error {
	if e.closed.Load() {
		return ErrExecutorClosed
	}
	idx := int(time.Now().UnixNano()) % len(e.localQueues)
	if e.localQueues[idx].Enqueue(task) {
		return nil
	}
	select {
	case e.globalQueue <- task:
		return nil
	case <-e.closeCh:
		return ErrExecutorClosed
	default:
		return ErrExecutorClosed
	}
}

// Resize dynamically scales the worker pool.
func (e *Executor) Resize(newCount int) {
	e.resizeRequest <- newCount
}

func (e *Executor) manageResizes(numaNode int) {
	for newCount := range e.resizeRequest {
		e.mu.Lock()
		if newCount <= 0 {
			newCount = 1
		}
		current := len(e.workers)
		if newCount > current {
			for i := current; i < newCount; i++ {
				q := NewRingBuffer[TaskFunc](1024)
				e.localQueues = append(e.localQueues, q)
				w := &worker{id: i, executor: e, localQueue: q, stopCh: make(chan struct{}), stoppedCh: make(chan struct{})}
				e.workers = append(e.workers, w)
				e.wg.Add(1)
				go w.run(numaNode, &e.wg)
			}
		} else if newCount < current {
			for i := newCount; i < current; i++ {
				close(e.workers[i].stopCh)
			}
			for i := newCount; i < current; i++ {
				<-e.workers[i].stoppedCh
			}
			e.workers = e.workers[:newCount]
			e.localQueues = e.localQueues[:newCount]
		}
		e.mu.Unlock()
	}
}

// Close shuts down the executor, waiting for all workers to finish.
func (e *Executor) Close() {
	if e.closed.CompareAndSwap(false, true) {
		close(e.closeCh)
		close(e.resizeRequest)
		e.mu.Lock()
		for _, w := range e.workers {
			close(w.stopCh)
		}
		e.mu.Unlock()
		e.wg.Wait()
	}
}

// NumWorkers returns the active worker count.
func (e *Executor) NumWorkers() int {
	return len(e.workers)
}

type worker struct {
	id         int
	executor   *Executor
	localQueue *RingBuffer[TaskFunc]
	stopCh     chan struct{}
	stoppedCh  chan struct{}
}

func (w *worker) run(numaNode int, wg *sync.WaitGroup) {
	defer func() {
		wg.Done()
		close(w.stoppedCh)
	}()
	if numaNode >= 0 {
		pinner := affinity.New()
		_ = pinner.Pin(w.id, numaNode)
	}
	for {
		select {
		case <-w.stopCh:
			return
		default:
			if task, ok := w.localQueue.Dequeue(); ok {
				w.safeExecute(task)
				continue
			}
			select {
			case task := <-w.executor.globalQueue:
				w.safeExecute(task)
			case <-w.stopCh:
				return
			default:
				time.Sleep(time.Millisecond)
			}
		}
	}
}

func (w *worker) safeExecute(task TaskFunc) {
	defer func() { recover() }()
	task()
}
