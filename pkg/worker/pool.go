package worker

import (
	"errors"
	"fmt"
	"sync"

	"github.com/videohaven/ingest/pkg/logger"
)

var log = logger.Get("Worker")

// Task is a unit of work executed by a pool worker. The worker that
// picked the task up is provided so tasks can log under its label.
// A returned error is logged but does not stop the worker.
type Task func(w Worker) error

// Worker identifies a single goroutine inside a Pool.
type Worker interface {
	Label() string
}

type poolWorker struct {
	label string
}

func (w *poolWorker) Label() string { return w.label }

// Pool runs a fixed number of labeled workers which drain a shared
// task queue. Each submitted task runs exactly once, on whichever
// worker is free.
type Pool struct {
	label   string
	size    int
	queue   chan Task
	wg      sync.WaitGroup
	started bool
}

// NewPool creates a pool of 'size' workers whose labels are derived
// from the provided label. The pool must be started before tasks
// are submitted.
func NewPool(label string, size int) *Pool {
	if size < 1 {
		size = 1
	}

	return &Pool{label: label, size: size, queue: make(chan Task)}
}

// Start spawns the pool's worker goroutines. It does not block; use
// Close to wait for the workers to drain and exit.
func (pool *Pool) Start() error {
	if pool.started {
		return errors.New("cannot start an already started worker pool")
	}

	pool.started = true
	for i := 0; i < pool.size; i++ {
		w := &poolWorker{label: fmt.Sprintf("%s-%d", pool.label, i)}

		pool.wg.Add(1)
		go func() {
			defer pool.wg.Done()
			w.run(pool.queue)
		}()
	}

	return nil
}

// Submit hands a task to the pool, blocking until a worker accepts
// it. Submitting to a closed pool panics, as with any closed channel.
func (pool *Pool) Submit(task Task) {
	pool.queue <- task
}

// Close stops accepting tasks and blocks until all in-flight tasks
// have completed and the workers have exited.
func (pool *Pool) Close() {
	close(pool.queue)
	pool.wg.Wait()
}

func (w *poolWorker) run(queue <-chan Task) {
	log.Emit(logger.DEBUG, "Worker %s started\n", w.label)
	for task := range queue {
		if err := task(w); err != nil {
			log.Emit(logger.ERROR, "Worker %s task failed(%T): %v\n", w.label, err, err)
		}
	}

	log.Emit(logger.DEBUG, "Worker %s stopped\n", w.label)
}
