// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing,
// software distributed under the License is distributed on an
// "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY
// KIND, either express or implied.  See the License for the
// specific language governing permissions and limitations
// under the License.

// Package concurrent implements the bounded-growth worker pool that
// executes action-runner tasks on behalf of the scheduler (spec §4.1).
package concurrent

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/atomic"

	"github.com/lindb/common/pkg/logger"

	"github.com/petrirun/petri/pkg/clock"
)

//go:generate mockgen -source=./pool.go -destination=./pool_mock.go -package=concurrent

const (
	// size of the queue that workers register their availability to the dispatcher.
	readyWorkerQueueSize = 32
	// size of the tasks queue
	tasksCapacity = 8
	// sleeps in this interval when there are no available workers and the pool is at capacity
	sleepInterval = time.Millisecond * 5
)

// Task represents a unit of work to be executed by a worker goroutine.
type Task struct {
	// handle executes task function.
	handle func()
	// panicHandle executes callback if task happens panic.
	panicHandle func(err error)

	createTime time.Time
}

// NewTask creates a task. handle must not be nil; panicHandle may be nil.
func NewTask(handle func(), panicHandle func(err error)) *Task {
	return &Task{
		handle:      handle,
		panicHandle: panicHandle,
		createTime:  time.Now(),
	}
}

// Exec runs the task's handle.
func (t *Task) Exec() {
	t.handle()
}

// Statistics are the pool's lock-free observable counters.
type Statistics struct {
	WorkersAlive       atomic.Int64
	WorkersCreated     atomic.Int64
	WorkersKilled      atomic.Int64
	TasksConsumed      atomic.Int64
	TasksRejected      atomic.Int64
	TasksPanic         atomic.Int64
	TasksWaitingTime   atomic.Duration
	TasksExecutingTime atomic.Duration
}

// NewStatistics returns a fresh zero-valued Statistics block.
func NewStatistics() *Statistics { return &Statistics{} }

// Pool represents the goroutine pool that executes submitted tasks.
//
// Contract (spec §4.1): Submit enqueues a nullary callable; AddWorker grows
// the pool by one; Stop waits for outstanding tasks and terminates workers;
// WorkerCount is observable.
type Pool interface {
	// Submit enqueues a callable task for a worker to execute.
	//
	// Each submitted task is immediately given to a ready worker.
	// If there are no available workers, the dispatcher starts a new worker,
	// until the maximum number of workers are running.
	//
	// Submitting after Stop is a programming error: the task is dropped and
	// counted as rejected rather than panicking, since the scheduler may
	// race Stop against a runner's final Submit by design (spec §5).
	Submit(ctx context.Context, task *Task)
	// AddWorker grows the pool's maximum worker count by one. Used by the
	// scheduler when active_states reaches the current worker count
	// (spec §4.3 step 4).
	AddWorker()
	// WorkerCount returns the current maximum worker count (spec's thread_count()).
	WorkerCount() int
	// Stopped returns true if this pool has been stopped.
	Stopped() bool
	// Stop stops all goroutines gracefully; all pending tasks finish before
	// it returns (spec's join()).
	Stop()
}

// workerPool is a pool for goroutines.
type workerPool struct {
	name                string
	maxWorkers          atomic.Int64
	tasks               chan *Task    // tasks channel
	readyWorkers        chan *worker  // available worker
	idleTimeout         time.Duration // idle goroutine recycle time
	onDispatcherStopped chan struct{} // signal that dispatcher is stopped
	stopped             atomic.Bool   // mark if the pool is closed or not
	ctx                 context.Context
	cancel              context.CancelFunc

	statistics *Statistics

	logger logger.Logger
}

// NewPool returns a new worker pool. initialWorkers is the number of
// workers it starts able to grow to; it grows further via AddWorker.
func NewPool(name string, initialWorkers int, idleTimeout time.Duration, statistics *Statistics) Pool {
	if initialWorkers < 1 {
		initialWorkers = 1
	}
	if idleTimeout <= 0 {
		idleTimeout = time.Second * 5
	}
	if statistics == nil {
		statistics = NewStatistics()
	}
	ctx, cancel := context.WithCancel(context.Background())
	pool := &workerPool{
		name:                name,
		tasks:               make(chan *Task, tasksCapacity),
		readyWorkers:        make(chan *worker, readyWorkerQueueSize),
		idleTimeout:         idleTimeout,
		onDispatcherStopped: make(chan struct{}),
		ctx:                 ctx,
		cancel:              cancel,
		statistics:          statistics,
		logger:              logger.GetLogger("Pool", name),
	}
	pool.maxWorkers.Store(int64(initialWorkers))
	go pool.dispatch()
	return pool
}

func (p *workerPool) Submit(ctx context.Context, task *Task) {
	if task.handle == nil || p.Stopped() {
		p.statistics.TasksRejected.Inc()
		return
	}
	select {
	case <-ctx.Done():
		p.statistics.TasksRejected.Inc()
		return
	case p.tasks <- task:
	}
}

func (p *workerPool) AddWorker() {
	p.maxWorkers.Inc()
	p.logger.Info("grew worker pool", logger.String("name", p.name),
		logger.Int64("maxWorkers", p.maxWorkers.Load()))
}

func (p *workerPool) WorkerCount() int {
	return int(p.maxWorkers.Load())
}

// mustGetWorker makes sure that a ready worker is returned.
func (p *workerPool) mustGetWorker() *worker {
	var w *worker
	for {
		select {
		case w = <-p.readyWorkers:
			return w
		default:
			if p.statistics.WorkersAlive.Load() >= p.maxWorkers.Load() {
				// no available workers, and at capacity
				time.Sleep(sleepInterval)
				continue
			}
			return newWorker(p)
		}
	}
}

func (p *workerPool) dispatch() {
	defer func() {
		p.onDispatcherStopped <- struct{}{}
	}()

	idleTimeoutTimer := time.NewTimer(p.idleTimeout)
	defer idleTimeoutTimer.Stop()
	var (
		w    *worker
		task *Task
	)

	for {
		idleTimeoutTimer.Reset(p.idleTimeout)
		select {
		case <-p.ctx.Done():
			return
		case task = <-p.tasks:
			w = p.mustGetWorker()
			w.execute(task)
		case <-idleTimeoutTimer.C:
			p.idle()
		}
	}
}

func (p *workerPool) idle() {
	// timed out waiting, kill a ready worker
	if p.statistics.WorkersAlive.Load() > 0 {
		select {
		case w := <-p.readyWorkers:
			w.stop(func() {})
		case <-p.ctx.Done():
			// pool is stopped
		default:
			// workers are busy now
		}
	}
}

func (p *workerPool) Stopped() bool {
	return p.stopped.Load()
}

// stopWorkers stops all workers.
func (p *workerPool) stopWorkers() {
	var wg sync.WaitGroup
	for p.statistics.WorkersAlive.Load() > 0 {
		wg.Add(1)
		w := <-p.readyWorkers
		w.stop(func() {
			wg.Done()
		})
	}
	wg.Wait()
}

// consumedRemainingTasks consumes all buffered tasks in the channel.
func (p *workerPool) consumedRemainingTasks() {
	for {
		select {
		case task := <-p.tasks:
			p.execTask(task)
		default:
			return
		}
	}
}

func (p *workerPool) execTask(task *Task) {
	defer func() {
		if r := recover(); r != nil {
			p.statistics.TasksPanic.Inc()
			err := fmt.Errorf("%v", r)
			p.logger.Error("panic when executing task", logger.Error(err))
			if task.panicHandle != nil {
				task.panicHandle(err)
			}
		}
	}()
	p.statistics.TasksWaitingTime.Store(time.Since(task.createTime))
	task.Exec()
	p.statistics.TasksExecutingTime.Store(time.Since(task.createTime))
	p.statistics.TasksConsumed.Inc()
}

// Stop tells the dispatcher to exit with pending tasks done.
func (p *workerPool) Stop() {
	if p.stopped.Swap(true) {
		return
	}
	// close dispatcher
	p.cancel()
	// wait dispatcher's exit
	<-p.onDispatcherStopped
	// close all workers
	p.stopWorkers()
	// consume remaining tasks
	p.consumedRemainingTasks()
}

// worker represents the worker that executes tasks.
type worker struct {
	pool   *workerPool
	tasks  chan *Task
	stopCh chan struct{}
}

// newWorker creates the worker that executes tasks given by the dispatcher.
// When a new worker starts, it registers itself on the readyWorkers channel.
func newWorker(pool *workerPool) *worker {
	w := &worker{
		pool:   pool,
		tasks:  make(chan *Task),
		stopCh: make(chan struct{}),
	}
	w.pool.statistics.WorkersAlive.Inc()
	w.pool.statistics.WorkersCreated.Inc()
	go w.process()
	return w
}

// execute submits the task to the worker's own queue.
func (w *worker) execute(task *Task) {
	w.tasks <- task
}

func (w *worker) stop(callable func()) {
	defer callable()
	w.stopCh <- struct{}{}
	w.pool.statistics.WorkersKilled.Inc()
	w.pool.statistics.WorkersAlive.Dec()
}

// process executes tasks handed to this worker, re-registering itself as
// ready after each one, and exits when told to stop.
func (w *worker) process() {
	clock.SetThreadName(w.pool.name + " worker")
	var task *Task
	for {
		select {
		case <-w.stopCh:
			return
		case task = <-w.tasks:
			w.pool.execTask(task)
			w.pool.readyWorkers <- w
		}
	}
}
