package pipeline

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aluiziolira/go-catalog-watch/models"
	"github.com/aluiziolira/go-catalog-watch/parser"
)

var (
	// ErrPipelineClosed is returned when Notify is called after shutdown.
	ErrPipelineClosed = errors.New("pipeline: closed")
)

// OutputWriter defines the interface for notification output.
type OutputWriter interface {
	Write(notifications []*models.Notification) error
	Close() error
	Validate() error
}

// Pipeline validates new-item notifications and writes them in arrival order.
// A single worker drains the queue so output order matches Notify order.
type Pipeline struct {
	writer    OutputWriter
	queue     chan *models.Notification
	batchSize int

	wg sync.WaitGroup

	metrics metrics

	mu      sync.Mutex // guards started/closed/err
	started bool
	closed  bool
	err     error

	closeOnce    sync.Once
	shutdown     chan struct{}
	shutdownOnce sync.Once
}

// NewPipeline builds a pipeline with a modest in-memory buffer.
func NewPipeline(writer OutputWriter) *Pipeline {
	return &Pipeline{
		writer:    writer,
		queue:     make(chan *models.Notification, 512),
		batchSize: 32,
		metrics:   metrics{validation: make(map[string]int)},
		shutdown:  make(chan struct{}),
	}
}

// Start launches the writer goroutine. Calling it more than once is a no-op.
func (p *Pipeline) Start() {
	p.mu.Lock()
	if p.closed || p.started {
		p.mu.Unlock()
		return
	}
	p.started = true
	p.mu.Unlock()

	p.wg.Add(1)
	go p.worker()
}

// Notify enqueues one notification for writing.
func (p *Pipeline) Notify(n models.Notification) error {
	closed, err := p.state()
	if err != nil {
		return err
	}
	if closed {
		return ErrPipelineClosed
	}
	return p.enqueue(&n)
}

// Close drains queued notifications and prevents more submissions. When
// anything was written, the writer is asked to confirm its output landed.
func (p *Pipeline) Close() error {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()

	p.closeOnce.Do(func() {
		close(p.queue)
	})

	p.wg.Wait()
	p.signalShutdown()
	if err := p.Err(); err != nil {
		return err
	}
	if p.metrics.writtenCount() > 0 {
		if err := p.writer.Validate(); err != nil {
			return fmt.Errorf("validate output: %w", err)
		}
	}
	return nil
}

// Err returns the first error encountered during processing.
func (p *Pipeline) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

// GetMetrics returns a snapshot of the internal counters.
func (p *Pipeline) GetMetrics() map[string]interface{} {
	return p.metrics.snapshot()
}

// StartMetricsReporting emits periodic progress logs.
func (p *Pipeline) StartMetricsReporting(interval time.Duration) {
	if interval <= 0 {
		return
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				metrics := p.GetMetrics()
				slog.Debug("pipeline progress",
					slog.Int64("written", metrics["written_items"].(int64)),
					slog.Any("validation_errors", metrics["validation_errors"]),
				)
			case <-p.shutdown:
				return
			}
		}
	}()
}

func (p *Pipeline) worker() {
	defer p.wg.Done()

	batch := make([]*models.Notification, 0, p.batchSize)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := p.writer.Write(batch); err != nil {
			return err
		}
		p.metrics.addWritten(len(batch))
		batch = batch[:0]
		return nil
	}

	for n := range p.queue {
		if prepared := p.prepare(n); prepared != nil {
			batch = append(batch, prepared)
		}
		// Flush once the queue is momentarily empty so notifications are not
		// held back waiting for a full batch.
		if len(batch) >= p.batchSize || len(p.queue) == 0 {
			if err := flush(); err != nil {
				p.setErr(fmt.Errorf("write batch: %w", err))
				return
			}
		}
	}

	if err := flush(); err != nil {
		p.setErr(fmt.Errorf("write batch: %w", err))
	}
}

func (p *Pipeline) prepare(n *models.Notification) *models.Notification {
	if err := parser.ValidateItem(&n.Item); err != nil {
		p.metrics.addValidation("invalid_item")
		slog.Debug("dropping invalid item", slog.String("watch", n.Watch), slog.Any("error", err))
		return nil
	}
	parser.NormalizeItem(&n.Item)
	return n
}

func (p *Pipeline) enqueue(n *models.Notification) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = ErrPipelineClosed
		}
	}()

	select {
	case <-p.shutdown:
		return ErrPipelineClosed
	case p.queue <- n:
		return nil
	}
}

func (p *Pipeline) setErr(err error) {
	if err == nil {
		return
	}

	p.mu.Lock()
	if p.err != nil {
		p.mu.Unlock()
		return
	}
	p.err = err
	p.closed = true
	p.mu.Unlock()

	p.signalShutdown()
}

func (p *Pipeline) state() (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed, p.err
}

func (p *Pipeline) signalShutdown() {
	p.shutdownOnce.Do(func() {
		close(p.shutdown)
	})
}

type metrics struct {
	mu         sync.Mutex
	written    int64
	validation map[string]int
}

func (m *metrics) addWritten(n int) {
	m.mu.Lock()
	m.written += int64(n)
	m.mu.Unlock()
}

func (m *metrics) writtenCount() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.written
}

func (m *metrics) addValidation(kind string) {
	m.mu.Lock()
	m.validation[kind]++
	m.mu.Unlock()
}

func (m *metrics) snapshot() map[string]interface{} {
	m.mu.Lock()
	defer m.mu.Unlock()

	copyValidation := make(map[string]int, len(m.validation))
	for k, v := range m.validation {
		copyValidation[k] = v
	}

	return map[string]interface{}{
		"written_items":     m.written,
		"validation_errors": copyValidation,
	}
}
