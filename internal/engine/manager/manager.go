package manager

import (
	"TraceSpectra/internal/config"
	"TraceSpectra/internal/factory"
	"TraceSpectra/internal/model"
	"TraceSpectra/internal/pipeline"
	_ "TraceSpectra/internal/snapshot" // Registers the gob snapshot writer
	_ "TraceSpectra/internal/writer"   // Registers text, clickhouse and kafka writers
	"context"
	"errors"
	"log"
	"sync"
	"time"
)

// ErrStopping is returned by Submit once Stop has been called.
var ErrStopping = errors.New("manager is stopping")

// ReportHook is called with every successfully analyzed run.
type ReportHook func(report *model.RunReport)

// Recorder receives per-run telemetry.
type Recorder interface {
	ObserveRun(report *model.RunReport, elapsed time.Duration)
	ObserveRunError()
	SetQueueDepth(n int)
}

// Option customizes a Manager.
type Option func(*Manager)

// WithRecorder attaches a telemetry recorder.
func WithRecorder(r Recorder) Option {
	return func(m *Manager) { m.recorder = r }
}

// WithReportHook registers a hook invoked after the writers ran.
func WithReportHook(h ReportHook) Option {
	return func(m *Manager) { m.hooks = append(m.hooks, h) }
}

// WithWriters replaces the writers built from the config.
func WithWriters(writers ...model.Writer) Option {
	return func(m *Manager) { m.writers = writers }
}

// Manager analyzes run directories on a worker pool and hands every report
// to the configured writers.
type Manager struct {
	analysis config.AnalysisConfig
	writers  []model.Writer
	recorder Recorder
	hooks    []ReportHook

	// Worker pool for concurrent run analysis
	runChannel chan string
	numWorkers int
	workerWg   sync.WaitGroup

	// ctx bounds in-flight analyses, stopCtx wakes producers blocked in Submit.
	ctx        context.Context
	cancel     context.CancelFunc
	stopCtx    context.Context
	stopCancel context.CancelFunc
	// sendMu is held for reading while sending on runChannel and for
	// writing while closing it.
	sendMu   sync.RWMutex
	stopped  bool
	stopOnce sync.Once

	mu     sync.Mutex
	failed int
	done   int
}

// NewManager creates a Manager with the writers enabled in the config.
func NewManager(cfg *config.Config, opts ...Option) (*Manager, error) {
	ctx, cancel := context.WithCancel(context.Background())
	stopCtx, stopCancel := context.WithCancel(context.Background())
	m := &Manager{
		analysis:   cfg.Analysis,
		runChannel: make(chan string, cfg.Manager.QueueSize),
		numWorkers: cfg.Manager.NumWorkers,
		ctx:        ctx,
		cancel:     cancel,
		stopCtx:    stopCtx,
		stopCancel: stopCancel,
	}
	for _, opt := range opts {
		opt(m)
	}

	if m.writers == nil {
		writers, err := factory.Create(cfg)
		if err != nil {
			cancel()
			stopCancel()
			return nil, err
		}
		m.writers = writers
	}
	if m.numWorkers <= 0 {
		m.numWorkers = 1
	}
	return m, nil
}

// Start launches the worker pool.
func (m *Manager) Start() {
	m.workerWg.Add(m.numWorkers)
	for i := 0; i < m.numWorkers; i++ {
		go m.worker()
	}
	log.Printf("Manager started with %d workers and %d writers.", m.numWorkers, len(m.writers))
}

// Submit queues a run directory, blocking while the queue is full. It returns
// ErrStopping once Stop has been called.
func (m *Manager) Submit(ctx context.Context, dir string) error {
	m.sendMu.RLock()
	defer m.sendMu.RUnlock()
	if m.stopped {
		return ErrStopping
	}
	select {
	case m.runChannel <- dir:
		if m.recorder != nil {
			m.recorder.SetQueueDepth(len(m.runChannel))
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-m.stopCtx.Done():
		return ErrStopping
	}
}

// Stop waits for queued runs to finish, then closes the writers. Calling it
// again is a no-op.
func (m *Manager) Stop() {
	m.stopOnce.Do(m.stop)
}

func (m *Manager) stop() {
	log.Println("Manager stopping...")
	// 1. Release blocked producers, then stop accepting new runs.
	m.stopCancel()
	m.sendMu.Lock()
	m.stopped = true
	close(m.runChannel)
	m.sendMu.Unlock()

	// 2. Wait for all workers to finish processing queued runs.
	log.Println("Waiting for workers to finish...")
	m.workerWg.Wait()
	m.cancel()

	// 3. Release writer connections.
	for _, w := range m.writers {
		if err := w.Close(); err != nil {
			log.Printf("Error closing writer %s: %v", w.Name(), err)
		}
	}

	done, failed := m.Stats()
	log.Printf("Manager stopped after %d runs (%d failed).", done+failed, failed)
}

// Stats returns the number of successful and failed runs so far.
func (m *Manager) Stats() (done, failed int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.done, m.failed
}

func (m *Manager) worker() {
	defer m.workerWg.Done()
	for dir := range m.runChannel {
		if m.recorder != nil {
			m.recorder.SetQueueDepth(len(m.runChannel))
		}
		if err := m.process(dir); err != nil {
			log.Printf("Error analyzing run '%s': %v", dir, err)
			m.mu.Lock()
			m.failed++
			m.mu.Unlock()
			if m.recorder != nil {
				m.recorder.ObserveRunError()
			}
			continue
		}
		m.mu.Lock()
		m.done++
		m.mu.Unlock()
	}
}

func (m *Manager) process(dir string) error {
	start := time.Now()
	report, err := pipeline.Analyze(m.ctx, dir, m.analysis)
	if err != nil {
		return err
	}
	elapsed := time.Since(start)
	log.Printf("Analyzed run '%s' in %s: %d workers, %d priority classes.", report.Run.Name, elapsed, len(report.Workers), len(report.Samples))

	// Fan out the report to all writers; one failing writer does not stop the others.
	var wg sync.WaitGroup
	wg.Add(len(m.writers))
	for _, w := range m.writers {
		go func(w model.Writer) {
			defer wg.Done()
			if err := w.Write(report); err != nil {
				log.Printf("Error writing run '%s' with writer %s: %v", report.Run.Name, w.Name(), err)
			}
		}(w)
	}
	wg.Wait()

	if m.recorder != nil {
		m.recorder.ObserveRun(report, elapsed)
	}
	for _, h := range m.hooks {
		h(report)
	}
	return nil
}
