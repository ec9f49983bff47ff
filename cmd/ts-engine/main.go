package main

import (
	"TraceSpectra/internal/alerter"
	"TraceSpectra/internal/config"
	"TraceSpectra/internal/engine/manager"
	"TraceSpectra/internal/engine/streamanalyzer"
	"TraceSpectra/internal/notification"
	"TraceSpectra/internal/observability"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "Path to the configuration file")
	flag.Parse()

	log.Println("Starting ts-engine...")

	// 1. Load configuration
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	log.Println("Configuration loaded successfully.")

	// 2. Expose metrics
	var opts []manager.Option
	if cfg.Metrics.Enabled {
		metrics := observability.NewMetrics()
		opts = append(opts, manager.WithRecorder(metrics))
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", metrics.Handler())
			log.Printf("Metrics server starting on %s", cfg.Metrics.ListenAddr)
			if err := http.ListenAndServe(cfg.Metrics.ListenAddr, mux); err != nil && err != http.ErrServerClosed {
				log.Printf("Metrics server stopped: %v", err)
			}
		}()
	}

	// 3. Alert on reports that violate the configured rules
	if cfg.Alerter.Enabled {
		a, err := alerter.NewAlerter(cfg.Alerter, notification.NewEmailNotifier(cfg.Alerter.SMTP))
		if err != nil {
			log.Fatalf("Failed to create alerter: %v", err)
		}
		opts = append(opts, manager.WithReportHook(a.HandleReport))
		log.Printf("Alerter enabled with %d rules.", len(cfg.Alerter.Rules))
	}

	// 4. Initialize a new StreamAnalyzer
	analyzer, err := streamanalyzer.NewStreamAnalyzer(cfg, opts...)
	if err != nil {
		log.Fatalf("Failed to create stream analyzer: %v", err)
	}

	// 5. Start the analyzer
	if err := analyzer.Start(); err != nil {
		log.Fatalf("Failed to start stream analyzer: %v", err)
	}

	// 6. Wait for a shutdown signal for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	<-sigChan

	log.Println("Shutdown signal received, stopping analyzer...")
	analyzer.Stop()
	log.Println("Shutdown complete.")
}
