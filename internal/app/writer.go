package app

import (
	"sync"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

type (
	// A Writer runs the save-behind writes one at a time, in the order they were enqueued.
	Writer struct {
		log     logrus.FieldLogger
		onError func(name string, err error)

		mu     sync.Mutex
		cond   *sync.Cond
		queue  []job
		busy   bool
		closed bool
		done   chan struct{}
	}

	job struct {
		name string
		fn   func() error
	}
)

// NewWriter starts a new Writer. Failed writes are logged and reported to onError.
func NewWriter(log logrus.FieldLogger, onError func(name string, err error)) *Writer {
	w := &Writer{
		log:     log,
		onError: onError,
		done:    make(chan struct{}),
	}
	w.cond = sync.NewCond(&w.mu)

	go w.run()
	return w
}

// Enqueue schedules the given write. It never blocks.
func (w *Writer) Enqueue(name string, fn func() error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		w.log.WithField("write", name).Warn("writer closed, write dropped")
		return
	}

	w.queue = append(w.queue, job{name: name, fn: fn})
	w.cond.Broadcast()
}

// Flush waits until every enqueued write has been performed.
func (w *Writer) Flush() {
	w.mu.Lock()
	defer w.mu.Unlock()

	for len(w.queue) > 0 || w.busy {
		w.cond.Wait()
	}
}

// Close performs the pending writes and stops the Writer.
func (w *Writer) Close() {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		<-w.done
		return
	}
	w.closed = true
	w.cond.Broadcast()
	w.mu.Unlock()

	<-w.done
}

func (w *Writer) run() {
	defer close(w.done)

	for {
		w.mu.Lock()
		for len(w.queue) == 0 && !w.closed {
			w.cond.Wait()
		}
		if len(w.queue) == 0 {
			w.mu.Unlock()
			return
		}

		j := w.queue[0]
		w.queue = w.queue[1:]
		w.busy = true
		w.mu.Unlock()

		if err := perform(j); err != nil {
			w.log.WithField("write", j.name).Errorf("%+v", err)
			if w.onError != nil {
				w.onError(j.name, err)
			}
		}

		w.mu.Lock()
		w.busy = false
		w.cond.Broadcast()
		w.mu.Unlock()
	}
}

func perform(j job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Errorf("panic during %s: %v", j.name, r)
		}
	}()

	return j.fn()
}
