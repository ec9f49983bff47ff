package streamanalyzer

import (
	"TraceSpectra/internal/config"
	"TraceSpectra/internal/engine/manager"
	"TraceSpectra/internal/model"
	"TraceSpectra/internal/stream"
	"context"
	"fmt"
	"log"
)

// StreamAnalyzer consumes run requests from NATS and uses a manager.Manager to analyze them.
type StreamAnalyzer struct {
	intake    *stream.Intake
	publisher *stream.Publisher
	manager   *manager.Manager
	cfg       config.StreamConfig
}

// NewStreamAnalyzer creates a new stream analyzer. Finished reports are
// published on the report subject.
func NewStreamAnalyzer(cfg *config.Config, opts ...manager.Option) (*StreamAnalyzer, error) {
	sa := &StreamAnalyzer{cfg: cfg.Stream}

	pub, err := stream.NewPublisher(cfg.Stream)
	if err != nil {
		return nil, err
	}
	sa.publisher = pub

	opts = append(opts, manager.WithReportHook(sa.publish))
	mgr, err := manager.NewManager(cfg, opts...)
	if err != nil {
		pub.Close()
		return nil, err
	}
	sa.manager = mgr
	return sa, nil
}

// Start connects the intake, starts the underlying manager and begins processing requests.
func (sa *StreamAnalyzer) Start() error {
	log.Println("StreamAnalyzer starting for nats: ", sa.cfg.NATSURL)
	intake, err := stream.NewIntake(sa.cfg)
	if err != nil {
		return err
	}
	sa.intake = intake

	sa.manager.Start()

	if err := sa.intake.Start(sa.handleRun); err != nil {
		return fmt.Errorf("StreamAnalyzer failed to subscribe: %w", err)
	}
	return nil
}

// Stop gracefully shuts down the analyzer.
func (sa *StreamAnalyzer) Stop() {
	log.Println("StreamAnalyzer stopping...")
	// Draining the intake hands pending requests to the manager first.
	if sa.intake != nil {
		sa.intake.Close()
	}
	// Queued runs finish before the publisher goes away.
	sa.manager.Stop()
	sa.publisher.Close()
	log.Println("StreamAnalyzer stopped.")
}

func (sa *StreamAnalyzer) handleRun(dir string) {
	log.Printf("Received run request for %s", dir)
	if err := sa.manager.Submit(context.Background(), dir); err != nil {
		log.Printf("Error queueing run %s: %v", dir, err)
	}
}

func (sa *StreamAnalyzer) publish(report *model.RunReport) {
	if err := sa.publisher.PublishReport(report); err != nil {
		log.Printf("Error publishing report for %s: %v", report.Run.Name, err)
	}
}
