package pipeline

import (
	"context"
	"fmt"
	"sync"

	"sawtfeel/pkg/models"
)

// runTask carries one queued pipeline run. The context is created at
// submission time so cancellation reaches runs that are still queued.
type runTask struct {
	ctx  context.Context
	file *models.UploadedFile
}

type WorkerPool struct {
	workers   int
	taskQueue chan *runTask
	runFunc   func(*runTask)
	wg        sync.WaitGroup
}

func NewWorkerPool(workers, queueSize int, runFunc func(*runTask)) *WorkerPool {
	return &WorkerPool{
		workers:   workers,
		taskQueue: make(chan *runTask, queueSize),
		runFunc:   runFunc,
	}
}

func (wp *WorkerPool) Start(ctx context.Context) {
	for i := 0; i < wp.workers; i++ {
		wp.wg.Add(1)
		go wp.worker(ctx)
	}
}

// Submit enqueues a run without blocking.
func (wp *WorkerPool) Submit(task *runTask) error {
	select {
	case wp.taskQueue <- task:
		return nil
	default:
		return fmt.Errorf("pipeline queue is full")
	}
}

// Wait blocks until every worker has exited.
func (wp *WorkerPool) Wait() {
	wp.wg.Wait()
}

func (wp *WorkerPool) worker(ctx context.Context) {
	defer wp.wg.Done()

	for {
		select {
		case task := <-wp.taskQueue:
			wp.runFunc(task)

		case <-ctx.Done():
			return
		}
	}
}
