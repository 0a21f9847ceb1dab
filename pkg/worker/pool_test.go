package worker_test

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/videohaven/ingest/pkg/worker"
)

func TestPool_RunsEverySubmittedTask(t *testing.T) {
	pool := worker.NewPool("test-worker", 4)
	require.NoError(t, pool.Start())

	var mu sync.Mutex
	seen := make(map[int]bool)
	for i := 0; i < 20; i++ {
		i := i
		pool.Submit(func(w worker.Worker) error {
			mu.Lock()
			defer mu.Unlock()
			seen[i] = true
			return nil
		})
	}

	pool.Close()

	assert.Len(t, seen, 20, "Close must wait for all in-flight tasks")
}

func TestPool_WorkerLabels(t *testing.T) {
	pool := worker.NewPool("upload-worker", 1)
	require.NoError(t, pool.Start())

	var label string
	pool.Submit(func(w worker.Worker) error {
		label = w.Label()
		return nil
	})
	pool.Close()

	assert.Equal(t, "upload-worker-0", label)
}

func TestPool_TaskErrorDoesNotStopWorker(t *testing.T) {
	pool := worker.NewPool("test-worker", 1)
	require.NoError(t, pool.Start())

	ran := false
	pool.Submit(func(w worker.Worker) error { return errors.New("task exploded") })
	pool.Submit(func(w worker.Worker) error {
		ran = true
		return nil
	})
	pool.Close()

	assert.True(t, ran, "a failed task must not take its worker down")
}

func TestPool_DoubleStart(t *testing.T) {
	pool := worker.NewPool("test-worker", 1)
	require.NoError(t, pool.Start())
	defer pool.Close()

	assert.Error(t, pool.Start())
}

func TestPool_MinimumSize(t *testing.T) {
	pool := worker.NewPool("test-worker", 0)
	require.NoError(t, pool.Start())

	ran := false
	pool.Submit(func(w worker.Worker) error {
		ran = true
		return nil
	})
	pool.Close()

	assert.True(t, ran, "a size below one still yields a working pool")
}
