package services

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"
)

// TaskRunner runs side effects that must not block or fail the request
// that triggered them.
type TaskRunner interface {
	Go(name string, fn func(ctx context.Context) error)
}

// BackgroundTasks runs each task on its own goroutine with a fresh context
// bounded by timeout. Failures and panics are logged, never propagated.
type BackgroundTasks struct {
	timeout time.Duration
	wg      sync.WaitGroup
}

func NewBackgroundTasks(timeout time.Duration) *BackgroundTasks {
	return &BackgroundTasks{timeout: timeout}
}

func (t *BackgroundTasks) Go(name string, fn func(ctx context.Context) error) {
	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), t.timeout)
		defer cancel()
		if err := runTask(ctx, fn); err != nil {
			log.Printf("task %s failed: %v", name, err)
		}
	}()
}

// Wait blocks until every started task returned or ctx is done.
func (t *BackgroundTasks) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		t.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// InlineTasks runs tasks synchronously on the caller's goroutine.
type InlineTasks struct{}

func (InlineTasks) Go(name string, fn func(ctx context.Context) error) {
	if err := runTask(context.Background(), fn); err != nil {
		log.Printf("task %s failed: %v", name, err)
	}
}

func runTask(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return fn(ctx)
}
