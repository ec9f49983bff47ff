package main

import (
	"TraceSpectra/internal/model"
	"TraceSpectra/internal/priority"
	"TraceSpectra/internal/snapshot"
	"fmt"
	"log"
	"os"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: go run ./scripts/gobana/main.go <report.dat>")
		os.Exit(1)
	}

	report, err := snapshot.ReadReport(os.Args[1])
	if err != nil {
		log.Fatalf("Failed to decode report: %v", err)
	}

	fmt.Printf("Run: %s (%s)\n", report.Run.Name, report.Run.ID)
	fmt.Printf("Generated: %s\n", report.GeneratedAt)
	if report.UtilizationPct != nil {
		fmt.Printf("Utilization: %.2f%%\n", *report.UtilizationPct)
	}
	for id, mean := range report.DeviceUtilization {
		fmt.Printf("Device %d mean utilization: %.4f\n", id, mean)
	}
	if len(report.FlowRates) > 0 {
		fmt.Printf("Rate series: %d flows\n", len(report.FlowRates))
	}

	fmt.Println("Workers:")
	for _, w := range report.Workers {
		fmt.Printf("  worker %d: %d layers, %d iterations, %d fallbacks\n",
			w.WorkerID, w.NumLayers, len(w.IterationDurationsNs), w.Fallbacks)
	}

	fmt.Println("Priority samples:")
	for _, class := range report.PriorityClasses() {
		fmt.Printf("  %s: %d\n", priority.DisplayLabel(class), len(report.Samples[class]))
	}

	fmt.Println("Flow completion times:")
	for _, b := range model.Bands {
		c := report.Completion[b]
		if report.FlowStats == nil {
			fmt.Printf("  %-5s N/A\n", b)
			continue
		}
		s, err := report.FlowStats.Band(b)
		if err != nil {
			fmt.Printf("  %-5s N/A (%d/%d completed)\n", b, c.Completed, c.Total)
			continue
		}
		fmt.Printf("  %-5s n=%d avg=%.3fms p99=%.3fms (%d/%d completed)\n",
			b, s.Count, s.AvgMs, s.P99Ms, c.Completed, c.Total)
	}
}
