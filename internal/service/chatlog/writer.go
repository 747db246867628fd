package chatlog

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	chatlogmodel "github.com/moodtherapist/backend/internal/model/chatlog"
)

// ErrWriterClosed is returned by Close when called twice.
var ErrWriterClosed = errors.New("chat log writer closed")

// Sink stores one record.
type Sink interface {
	Insert(ctx context.Context, record chatlogmodel.Record) error
}

// Reader lists records for analytics.
type Reader interface {
	List(ctx context.Context, q chatlogmodel.Query) ([]chatlogmodel.Record, error)
}

// Pinger probes backend connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Stats counts writer outcomes since start.
type Stats struct {
	Submitted uint64 `json:"submitted"`
	Succeeded uint64 `json:"succeeded"`
	Failed    uint64 `json:"failed"`
	Dropped   uint64 `json:"dropped"`
	Pending   int    `json:"pending"`
}

// Options tune the writer.
type Options struct {
	QueueSize    int
	WriteTimeout time.Duration
}

// Writer persists records in the background. Submit never blocks and never reports
// the write outcome; results are only visible through Stats and the log.
type Writer struct {
	sink    Sink
	queue   chan chatlogmodel.Record
	timeout time.Duration
	log     *logrus.Entry

	mu     sync.RWMutex
	closed bool
	done   chan struct{}

	submitted atomic.Uint64
	succeeded atomic.Uint64
	failed    atomic.Uint64
	dropped   atomic.Uint64
}

// NewWriter starts the background worker.
func NewWriter(sink Sink, opts Options, log *logrus.Entry) *Writer {
	if opts.QueueSize <= 0 {
		opts.QueueSize = 256
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = 5 * time.Second
	}
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}

	w := &Writer{
		sink:    sink,
		queue:   make(chan chatlogmodel.Record, opts.QueueSize),
		timeout: opts.WriteTimeout,
		log:     log,
		done:    make(chan struct{}),
	}
	go w.run()
	return w
}

// Submit enqueues record, assigning an ID and timestamp when missing. It returns false
// when the record was dropped because the queue is full or the writer is closed.
func (w *Writer) Submit(record chatlogmodel.Record) bool {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}

	w.mu.RLock()
	defer w.mu.RUnlock()

	w.submitted.Add(1)
	if w.closed {
		w.dropped.Add(1)
		return false
	}

	select {
	case w.queue <- record:
		return true
	default:
		w.dropped.Add(1)
		w.log.WithField("record_id", record.ID).Warn("chat log queue full, dropping record")
		return false
	}
}

func (w *Writer) run() {
	defer close(w.done)
	for record := range w.queue {
		w.write(record)
	}
}

func (w *Writer) write(record chatlogmodel.Record) {
	ctx, cancel := context.WithTimeout(context.Background(), w.timeout)
	defer cancel()

	started := time.Now()
	if err := w.sink.Insert(ctx, record); err != nil {
		w.failed.Add(1)
		w.log.WithError(err).WithFields(logrus.Fields{
			"record_id": record.ID,
			"mood":      record.DetectedMood,
		}).Error("failed to persist chat log")
		return
	}

	w.succeeded.Add(1)
	w.log.WithFields(logrus.Fields{
		"record_id": record.ID,
		"duration":  time.Since(started).Round(time.Millisecond),
	}).Debug("chat log persisted")
}

// Stats returns a snapshot of the counters.
func (w *Writer) Stats() Stats {
	return Stats{
		Submitted: w.submitted.Load(),
		Succeeded: w.succeeded.Load(),
		Failed:    w.failed.Load(),
		Dropped:   w.dropped.Load(),
		Pending:   len(w.queue),
	}
}

// Close stops accepting records and waits for queued ones to be written or ctx to end.
func (w *Writer) Close(ctx context.Context) error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return ErrWriterClosed
	}
	w.closed = true
	close(w.queue)
	w.mu.Unlock()

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
