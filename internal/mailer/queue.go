package mailer

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
)

var (
	// ErrQueueFull is returned when the queue cannot take another mail.
	ErrQueueFull = errors.New("mail queue is full")
	// ErrQueueClosed is returned after Shutdown.
	ErrQueueClosed = errors.New("mail queue is closed")
)

// ResultFunc is told about every delivery attempt.
type ResultFunc func(m Mail, err error)

// Queue hands mail to a pool of workers so request handlers can return at once.
type Queue struct {
	sender   Sender
	logger   *zap.Logger
	onResult ResultFunc
	timeout  time.Duration

	mu     sync.RWMutex
	closed bool
	ch     chan Mail
	wg     sync.WaitGroup
}

// NewQueue starts workers goroutines draining a buffer of size mails.
func NewQueue(sender Sender, size, workers int, logger *zap.Logger, onResult ResultFunc) *Queue {
	if size < 1 {
		size = 1
	}
	if workers < 1 {
		workers = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	q := &Queue{
		sender:   sender,
		logger:   logger,
		onResult: onResult,
		timeout:  time.Minute,
		ch:       make(chan Mail, size),
	}
	for i := 0; i < workers; i++ {
		q.wg.Add(1)
		go q.work()
	}
	return q
}

// Enqueue schedules m for delivery without blocking.
func (q *Queue) Enqueue(m Mail) error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return ErrQueueClosed
	}
	select {
	case q.ch <- m:
		return nil
	default:
		return ErrQueueFull
	}
}

// Len returns the number of mails waiting.
func (q *Queue) Len() int {
	return len(q.ch)
}

// Shutdown stops accepting mail and waits for queued mail to be sent, or for
// ctx to end.
func (q *Queue) Shutdown(ctx context.Context) error {
	q.mu.Lock()
	if !q.closed {
		q.closed = true
		close(q.ch)
	}
	q.mu.Unlock()

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (q *Queue) work() {
	defer q.wg.Done()
	for m := range q.ch {
		ctx, cancel := context.WithTimeout(context.Background(), q.timeout)
		err := q.sender.Send(ctx, m)
		cancel()

		if err != nil {
			q.logger.Error("mail delivery failed",
				zap.String("kind", m.Kind),
				zap.Strings("to", m.To),
				zap.Error(err))
		} else {
			q.logger.Info("mail delivered",
				zap.String("kind", m.Kind),
				zap.Strings("to", m.To))
		}
		if q.onResult != nil {
			q.onResult(m, err)
		}
	}
}
