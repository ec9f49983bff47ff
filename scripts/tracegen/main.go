package main

import (
	"TraceSpectra/internal/flowlog"
	"TraceSpectra/internal/runconfig"
	"TraceSpectra/internal/utilization"
	"bufio"
	"flag"
	"fmt"
	"io"
	"log"
	"math/rand"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"
)

// priorities are the simulator classes assigned to partitions round-robin.
var priorities = []string{"6", "0", "2"}

func main() {
	outDir := flag.String("o", ".", "Directory the run directory is created in")
	arrival := flag.Int("arrival", 30, "Background flow arrival rate per second")
	workers := flag.Int("workers", 2, "Number of training workers")
	layers := flag.Int("layers", 4, "Number of layers per worker")
	iterations := flag.Int("iterations", 10, "Number of training iterations")
	durationS := flag.Float64("duration", 10, "Simulated time in seconds")
	seed := flag.Int64("seed", 1, "Random seed")
	compress := flag.Bool("zstd", false, "Write the flow log zstd-compressed")
	flag.Parse()

	rc := runconfig.RunConfig{
		Program:             runconfig.DefaultProgram,
		UtilizationInterval: "100ms",
		ArrivalRate:         *arrival,
		Horovod:             *workers > 0,
		PriorityScheme:      "pfabric",
		Workers:             *workers,
		LinkBandwidth:       "10.0Gbit",
		Seed:                *seed,
	}
	logsDir := filepath.Join(*outDir, rc.Name(), "logs_ns3")
	if err := os.MkdirAll(logsDir, 0755); err != nil {
		log.Fatalf("Failed to create logs dir: %v", err)
	}

	rng := rand.New(rand.NewSource(*seed))
	endNs := int64(*durationS * 1e9)

	// 1. Worker progress logs
	for w := 0; w < *workers; w++ {
		name := fmt.Sprintf("HorovodWorker_%d_layer_%d_port_%d_progress.txt", w, *layers, 1024+w)
		if err := writeFile(filepath.Join(logsDir, name), false, func(bw *bufio.Writer) {
			writeWorkerLog(bw, rng, *layers, *iterations, endNs)
		}); err != nil {
			log.Fatalf("Failed to write worker log: %v", err)
		}
	}

	// 2. Flow log
	flowPath := filepath.Join(logsDir, "flows.csv")
	if *compress {
		flowPath += flowlog.ZstdSuffix
	}
	if err := writeFile(flowPath, *compress, func(bw *bufio.Writer) {
		writeFlows(bw, rng, *arrival, endNs)
	}); err != nil {
		log.Fatalf("Failed to write flow log: %v", err)
	}

	// 3. Utilization summary
	if err := writeFile(filepath.Join(logsDir, utilization.SummaryFile), false, func(bw *bufio.Writer) {
		fmt.Fprintln(bw, "src dst avg_utilization")
		fmt.Fprintf(bw, "0 1 %.2f%%\n", 20+rng.Float64()*60)
	}); err != nil {
		log.Fatalf("Failed to write utilization summary: %v", err)
	}

	// 4. Device utilization series, sampled every 100ms
	for dev := 0; dev < 2; dev++ {
		if err := writeFile(filepath.Join(logsDir, utilization.SeriesFile(dev)), false, func(bw *bufio.Writer) {
			for t := int64(0); t < endNs; t += 100_000_000 {
				fmt.Fprintf(bw, "%.4f %d\n", rng.Float64(), t)
			}
			fmt.Fprintln(bw)
		}); err != nil {
			log.Fatalf("Failed to write utilization series: %v", err)
		}
	}

	// 5. Progress of one traced flow
	if err := writeFile(filepath.Join(logsDir, "flow_0_progress.txt"), false, func(bw *bufio.Writer) {
		var sent int64
		for t := int64(0); t < endNs; t += 5_000_000 {
			sent += rng.Int63n(6_250_000)
			fmt.Fprintf(bw, "0,%d,%d\n", t, sent)
		}
	}); err != nil {
		log.Fatalf("Failed to write flow progress: %v", err)
	}

	log.Printf("Generated run %s with %d workers in %s", rc.Name(), *workers, *outDir)
}

func writeFile(path string, compress bool, fill func(*bufio.Writer)) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	var dst io.Writer = f
	var enc *zstd.Encoder
	if compress {
		enc, err = zstd.NewWriter(f)
		if err != nil {
			return err
		}
		dst = enc
	}

	bw := bufio.NewWriter(dst)
	fill(bw)
	if err := bw.Flush(); err != nil {
		return err
	}
	if enc != nil {
		return enc.Close()
	}
	return nil
}

// writeWorkerLog emits the backward pass of every layer, last layer first,
// followed by the forward pass. Each layer sends one partition per iteration.
func writeWorkerLog(w io.Writer, rng *rand.Rand, layers, iterations int, endNs int64) {
	fmt.Fprintln(w, "Iteration_idx,Layer_idx,Event,Time")
	iterNs := endNs / int64(iterations+1)
	t := int64(0)
	for it := 0; it < iterations; it++ {
		t = int64(it) * iterNs
		for l := layers - 1; l >= 0; l-- {
			prio := priorities[l%len(priorities)]
			fmt.Fprintf(w, "%d,%d,BP_Start,%d\n", it, l, t)
			t += 1_000_000 + rng.Int63n(1_000_000)
			fmt.Fprintf(w, "%d,%d,Start_Sending_Partition_0_Priority_%s,%d\n", it, l, prio, t)
			t += 2_000_000 + rng.Int63n(5_000_000)
			fmt.Fprintf(w, "%d,%d,Received_Partition_0_Priority_%s,%d\n", it, l, prio, t)
			fmt.Fprintf(w, "%d,%d,BP_Done,%d\n", it, l, t)
		}
		for l := 0; l < layers; l++ {
			fmt.Fprintf(w, "%d,%d,FP_Start,%d\n", it, l, t)
			t += 500_000 + rng.Int63n(500_000)
			fmt.Fprintf(w, "%d,%d,FP_Done,%d\n", it, l, t)
		}
	}
}

// writeFlows emits Poisson arrivals sorted by start time. Flows that would
// finish after endNs are still ongoing.
func writeFlows(w io.Writer, rng *rand.Rand, arrival int, endNs int64) {
	if arrival <= 0 {
		return
	}
	t := int64(0)
	for id := 0; ; id++ {
		t += int64(rng.ExpFloat64() / float64(arrival) * 1e9)
		if t >= endNs {
			return
		}
		size := int64(1_000 + rng.Intn(20_000_000))
		duration := size*8/10 + rng.Int63n(1_000_000)
		status, end, sent := "YES", t+duration, size
		if end > endNs {
			status, end, duration, sent = "NO_ONGOING", 0, 0, size/2
		}
		fmt.Fprintf(w, "%d,%d,%d,%d,%d,%d,%d,%d,%s,\n", id, rng.Intn(16), 16+rng.Intn(16), size, t, end, duration, sent, status)
	}
}
