package manager

import (
	"TraceSpectra/internal/config"
	"TraceSpectra/internal/model"
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

type memWriter struct {
	mu      sync.Mutex
	reports []*model.RunReport
	closed  bool
}

func (w *memWriter) Write(r *model.RunReport) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.reports = append(w.reports, r)
	return nil
}

func (w *memWriter) Name() string { return "mem" }

func (w *memWriter) Close() error {
	w.closed = true
	return nil
}

type countingRecorder struct {
	mu     sync.Mutex
	ok     int
	errors int
}

func (c *countingRecorder) ObserveRun(*model.RunReport, time.Duration) {
	c.mu.Lock()
	c.ok++
	c.mu.Unlock()
}

func (c *countingRecorder) ObserveRunError() {
	c.mu.Lock()
	c.errors++
	c.mu.Unlock()
}

func (c *countingRecorder) SetQueueDepth(int) {}

const workerLog = "Iteration_idx,Layer_idx,Event,Time\n0,0,BP_Start,100\n0,0,BP_Done,200\n1,0,BP_Start,500\n1,0,BP_Done,600\n"

func makeRunDir(t *testing.T, root, name, content string) string {
	t.Helper()
	dir := filepath.Join(root, name)
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatalf("Failed to create run dir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "HorovodWorker_0_layer_1_port_1_progress.txt"), []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write worker log: %v", err)
	}
	return dir
}

func TestManager_ProcessesRuns(t *testing.T) {
	root := t.TempDir()
	good1 := makeRunDir(t, root, "run_1", workerLog)
	good2 := makeRunDir(t, root, "run_2", workerLog)
	bad := makeRunDir(t, root, "run_bad", "header\n0,0,BP_Start\n")

	cfg := config.Default()
	cfg.Manager.NumWorkers = 2

	mem := &memWriter{}
	rec := &countingRecorder{}
	var hooked sync.Map
	m, err := NewManager(cfg,
		WithWriters(mem),
		WithRecorder(rec),
		WithReportHook(func(r *model.RunReport) { hooked.Store(r.Run.Name, true) }),
	)
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}

	m.Start()
	for _, dir := range []string{good1, good2, bad} {
		if err := m.Submit(context.Background(), dir); err != nil {
			t.Fatalf("Submit failed: %v", err)
		}
	}
	m.Stop()

	done, failed := m.Stats()
	if done != 2 || failed != 1 {
		t.Errorf("Expected 2 done and 1 failed, got %d and %d", done, failed)
	}
	if len(mem.reports) != 2 {
		t.Errorf("Expected 2 written reports, got %d", len(mem.reports))
	}
	if !mem.closed {
		t.Error("Expected writers to be closed on Stop")
	}
	if rec.ok != 2 || rec.errors != 1 {
		t.Errorf("Unexpected recorder counts: %+v", rec)
	}
	for _, name := range []string{"run_1", "run_2"} {
		if _, ok := hooked.Load(name); !ok {
			t.Errorf("Expected report hook for %s", name)
		}
	}
	for _, r := range mem.reports {
		if len(r.Workers) != 1 || len(r.Workers[0].IterationDurationsNs) != 1 || r.Workers[0].IterationDurationsNs[0] != 400 {
			t.Errorf("Unexpected report: %+v", r.Workers)
		}
	}
}

func TestNewManager_UnknownWriter(t *testing.T) {
	cfg := config.Default()
	cfg.Writers = []config.WriterDef{{Type: "carrier_pigeon", Enabled: true}}
	if _, err := NewManager(cfg); err == nil {
		t.Error("Expected error for unknown writer type")
	}
}

func TestManager_StopWhileSubmitBlocked(t *testing.T) {
	root := t.TempDir()
	first := makeRunDir(t, root, "run_first", workerLog)
	second := makeRunDir(t, root, "run_second", workerLog)

	cfg := config.Default()
	cfg.Manager.NumWorkers = 1
	cfg.Manager.QueueSize = 1
	mem := &memWriter{}
	m, err := NewManager(cfg, WithWriters(mem))
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}

	// 1. Fill the queue before any worker runs.
	if err := m.Submit(context.Background(), first); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	// 2. A second producer blocks on the full queue.
	submitted := make(chan error, 1)
	go func() {
		submitted <- m.Submit(context.Background(), second)
	}()
	time.Sleep(20 * time.Millisecond)

	// 3. Start and stop concurrently with the blocked producer.
	m.Start()
	stopped := make(chan struct{})
	go func() {
		m.Stop()
		close(stopped)
	}()

	select {
	case err := <-submitted:
		if err != nil && !errors.Is(err, ErrStopping) {
			t.Errorf("Expected nil or ErrStopping, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Blocked Submit did not return")
	}
	select {
	case <-stopped:
	case <-time.After(5 * time.Second):
		t.Fatal("Stop did not return")
	}

	// 4. Later calls neither panic nor enqueue.
	m.Stop()
	if err := m.Submit(context.Background(), second); !errors.Is(err, ErrStopping) {
		t.Errorf("Expected ErrStopping after Stop, got %v", err)
	}
	if done, failed := m.Stats(); done < 1 || failed != 0 {
		t.Errorf("Expected the queued run to finish, got %d done and %d failed", done, failed)
	}
}

func TestManager_StopWithoutStart(t *testing.T) {
	m, err := NewManager(config.Default(), WithWriters(&memWriter{}))
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}
	m.Stop()
	m.Stop()
	if err := m.Submit(context.Background(), "anything"); !errors.Is(err, ErrStopping) {
		t.Errorf("Expected ErrStopping, got %v", err)
	}
}
