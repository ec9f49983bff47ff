package factory

import (
	"TraceSpectra/internal/config"
	"TraceSpectra/internal/model"
	"errors"
	"testing"
)

type stubWriter struct {
	name   string
	closed bool
}

func (s *stubWriter) Write(*model.RunReport) error { return nil }
func (s *stubWriter) Name() string                  { return s.name }
func (s *stubWriter) Close() error                  { s.closed = true; return nil }

func TestCreate(t *testing.T) {
	var created []*stubWriter
	RegisterWriter("stub_ok", func(def config.WriterDef) (model.Writer, error) {
		w := &stubWriter{name: def.RootPath}
		created = append(created, w)
		return w, nil
	})
	RegisterWriter("stub_fail", func(config.WriterDef) (model.Writer, error) {
		return nil, errors.New("boom")
	})

	cfg := &config.Config{Writers: []config.WriterDef{
		{Type: "stub_ok", Enabled: true, RootPath: "a"},
		{Type: "stub_ok", Enabled: false, RootPath: "b"},
	}}
	writers, err := Create(cfg)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if len(writers) != 1 || writers[0].Name() != "a" {
		t.Fatalf("Expected only the enabled writer, got %d", len(writers))
	}

	cfg.Writers = append(cfg.Writers, config.WriterDef{Type: "stub_fail", Enabled: true})
	if _, err := Create(cfg); err == nil {
		t.Fatal("Expected error from failing factory")
	}
	if !created[len(created)-1].closed {
		t.Error("Expected earlier writers to be closed after a failure")
	}

	cfg.Writers = []config.WriterDef{{Type: "missing", Enabled: true}}
	if _, err := Create(cfg); err == nil {
		t.Error("Expected error for unknown writer type")
	}
}

func TestRegisterWriter_Duplicate(t *testing.T) {
	RegisterWriter("stub_dup", func(config.WriterDef) (model.Writer, error) { return nil, nil })
	defer func() {
		if recover() == nil {
			t.Error("Expected panic on duplicate registration")
		}
	}()
	RegisterWriter("stub_dup", func(config.WriterDef) (model.Writer, error) { return nil, nil })
}
