package coach

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

var (
	ErrQueueFull     = errors.New("coach queue is full")
	ErrQueueShutdown = errors.New("coach queue is shutting down")
)

// MoveSender is the part of Client the dispatcher needs
type MoveSender interface {
	SendMove(ctx context.Context, p MovePayload) (string, error)
}

// Task is one queued move notification
type Task struct {
	TrainingID string
	Payload    MovePayload
	Response   chan<- Result
}

// Result is the webhook outcome of a task
type Result struct {
	TrainingID string
	Reply      string
	Error      error
}

// Dispatcher delivers move notifications on a fixed pool of workers
type Dispatcher struct {
	sender  MoveSender
	tasks   chan Task
	workers int
	timeout time.Duration
	wg      sync.WaitGroup
	ctx     context.Context
	cancel  context.CancelFunc
	mu      sync.RWMutex
	closed  bool
}

// NewDispatcher starts workerCount workers with a queue of bufferSize
func NewDispatcher(sender MoveSender, workerCount, bufferSize int, timeout time.Duration) *Dispatcher {
	if workerCount < 1 {
		workerCount = 2
	}
	if bufferSize < 1 {
		bufferSize = 100
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	ctx, cancel := context.WithCancel(context.Background())

	d := &Dispatcher{
		sender:  sender,
		tasks:   make(chan Task, bufferSize),
		workers: workerCount,
		timeout: timeout,
		ctx:     ctx,
		cancel:  cancel,
	}

	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go d.worker(i)
	}
	return d
}

func (d *Dispatcher) worker(id int) {
	defer d.wg.Done()

	for task := range d.tasks {
		result := d.process(task)

		if task.Response == nil {
			continue
		}
		select {
		case task.Response <- result:
		case <-time.After(100 * time.Millisecond):
			log.WithFields(log.Fields{
				"worker":     id,
				"trainingId": task.TrainingID,
			}).Debug("Coach result abandoned by receiver")
		}
	}
}

func (d *Dispatcher) process(task Task) Result {
	ctx, cancel := context.WithTimeout(d.ctx, d.timeout)
	defer cancel()

	reply, err := d.sender.SendMove(ctx, task.Payload)
	return Result{
		TrainingID: task.TrainingID,
		Reply:      reply,
		Error:      err,
	}
}

// Submit queues a task without blocking
func (d *Dispatcher) Submit(task Task) error {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		return ErrQueueShutdown
	}
	select {
	case d.tasks <- task:
		return nil
	default:
		return ErrQueueFull
	}
}

// SubmitAsync queues a notification and runs callback with its result
func (d *Dispatcher) SubmitAsync(trainingID string, payload MovePayload, callback func(Result)) error {
	respChan := make(chan Result, 1)

	task := Task{
		TrainingID: trainingID,
		Payload:    payload,
		Response:   respChan,
	}
	if err := d.Submit(task); err != nil {
		return err
	}

	go func() {
		select {
		case result := <-respChan:
			callback(result)
		case <-time.After(d.timeout + 5*time.Second):
			callback(Result{
				TrainingID: trainingID,
				Reply:      FallbackReply,
				Error:      fmt.Errorf("coach timeout"),
			})
		}
	}()

	return nil
}

// Shutdown stops accepting tasks and waits for queued ones to finish
func (d *Dispatcher) Shutdown(timeout time.Duration) error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	close(d.tasks)
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		d.cancel()
		return nil
	case <-time.After(timeout):
		d.cancel()
		return fmt.Errorf("shutdown timeout exceeded")
	}
}
