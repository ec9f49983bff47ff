package flowlog

import (
	"TraceSpectra/internal/model"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const progress = `7,0,0
7,5000000,1000
7,20000000,250000
7,25000000,300000

7,40000000,750000
`

func TestRateSeries(t *testing.T) {
	points, err := RateSeries(strings.NewReader(progress))
	if err != nil {
		t.Fatalf("RateSeries failed: %v", err)
	}
	want := []model.RatePoint{
		{FlowID: 7, TimeNs: 0, Mbps: 100},
		{FlowID: 7, TimeNs: 20_000_000, Mbps: 100},
		{FlowID: 7, TimeNs: 20_000_000, Mbps: 200},
		{FlowID: 7, TimeNs: 40_000_000, Mbps: 200},
	}
	if len(points) != len(want) {
		t.Fatalf("Expected %d points, got %d: %+v", len(want), len(points), points)
	}
	for i := range want {
		got := points[i]
		if got.FlowID != want[i].FlowID || got.TimeNs != want[i].TimeNs || math.Abs(got.Mbps-want[i].Mbps) > 1e-9 {
			t.Errorf("Point %d: expected %+v, got %+v", i, want[i], got)
		}
	}
}

func TestRateSeries_Malformed(t *testing.T) {
	for _, in := range []string{"7,100\n", "7,abc,10\n"} {
		if _, err := RateSeries(strings.NewReader(in)); !errors.Is(err, model.ErrMalformedRecord) {
			t.Errorf("Input %q: expected ErrMalformedRecord, got %v", in, err)
		}
	}
}

func TestFindRateFiles(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"flow_12_progress.txt", "flow_3_progress.txt", "flow_x_progress.txt", "HorovodWorker_0_layer_1_port_1_progress.txt"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(progress), 0644); err != nil {
			t.Fatalf("Failed to write %s: %v", name, err)
		}
	}

	files, err := FindRateFiles(dir)
	if err != nil {
		t.Fatalf("FindRateFiles failed: %v", err)
	}
	if len(files) != 2 || files[0].FlowID != 3 || files[1].FlowID != 12 {
		t.Fatalf("Expected flows 3 and 12, got %+v", files)
	}

	points, err := ReadRateSeries(files[0].Path)
	if err != nil || len(points) != 4 {
		t.Errorf("Expected 4 points from %s, got %d (err %v)", files[0].Path, len(points), err)
	}
}
