package runconfig

import (
	"TraceSpectra/internal/model"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DefaultProgram is the simulator program every run directory is named after.
const DefaultProgram = "pfabric_flows_horovod"

// runNamespace scopes the deterministic run IDs.
var runNamespace = uuid.MustParse("5d1f0a3e-8c2b-4e57-9a61-3f0c2b7d9e14")

// bandwidthUnits maps a link bandwidth suffix to bits per second.
var bandwidthUnits = []struct {
	suffix string
	scale  int64
}{
	{"Gbit", 1_000_000_000},
	{"Mbit", 1_000_000},
	{"Kbit", 1_000},
	{"bit", 1},
}

// RunConfig describes one simulation run. It is immutable once parsed.
type RunConfig struct {
	Program             string
	UtilizationInterval string
	ArrivalRate         int
	// Horovod is false for background-only baseline runs.
	Horovod        bool
	PriorityScheme string
	Workers        int
	LinkBandwidth  string
	// Seed and RunIndex tell apart repetitions of one configuration. They
	// appear in the name only when either is set.
	Seed     int64
	RunIndex int
	// Stamp is the free-form suffix, usually the launch date.
	Stamp string
}

// LinkBandwidthBps parses LinkBandwidth, e.g. "10.0Gbit", into bits per second.
func (c RunConfig) LinkBandwidthBps() (int64, error) {
	return ParseBandwidth(c.LinkBandwidth)
}

// ParseBandwidth converts a simulator bandwidth string into bits per second.
func ParseBandwidth(s string) (int64, error) {
	s = strings.TrimSpace(s)
	for _, u := range bandwidthUnits {
		if !strings.HasSuffix(s, u.suffix) {
			continue
		}
		d, err := decimal.NewFromString(strings.TrimSuffix(s, u.suffix))
		if err != nil {
			return 0, fmt.Errorf("failed to parse bandwidth %q: %w", s, err)
		}
		if !d.IsPositive() {
			return 0, fmt.Errorf("bandwidth %q must be positive", s)
		}
		return d.Mul(decimal.NewFromInt(u.scale)).IntPart(), nil
	}
	return 0, fmt.Errorf("bandwidth %q has no known unit", s)
}

// ExpectedUtilization returns the offered background load as a fraction of
// the link: arrival rate * mean flow size * 8 / link bandwidth.
func (c RunConfig) ExpectedUtilization(meanFlowBytes float64) (float64, error) {
	bps, err := c.LinkBandwidthBps()
	if err != nil {
		return 0, err
	}
	load := decimal.NewFromInt(int64(c.ArrivalRate)).
		Mul(decimal.NewFromFloat(meanFlowBytes)).
		Mul(decimal.NewFromInt(8))
	u, _ := load.Div(decimal.NewFromInt(bps)).Float64()
	return u, nil
}

// Name returns the run directory name.
func (c RunConfig) Name() string {
	var b strings.Builder
	program := c.Program
	if program == "" {
		program = DefaultProgram
	}
	fmt.Fprintf(&b, "%s_%s_arrival_%d", program, c.UtilizationInterval, c.ArrivalRate)
	if c.Horovod || c.Workers > 0 {
		fmt.Fprintf(&b, "_runhvd_%t_hrvprio_%s_num_hvd_%d_link_bw_%s", c.Horovod, c.PriorityScheme, c.Workers, c.LinkBandwidth)
	}
	if c.Seed != 0 || c.RunIndex != 0 {
		fmt.Fprintf(&b, "_seed_%d_run_%d", c.Seed, c.RunIndex)
	}
	if c.Stamp != "" {
		b.WriteString("_")
		b.WriteString(c.Stamp)
	}
	return b.String()
}

// ID returns a stable identifier derived from the run name, which carries
// every field of the config.
func (c RunConfig) ID() string {
	return uuid.NewSHA1(runNamespace, []byte(c.Name())).String()
}

// Info converts the run into the descriptor stored in reports.
func (c RunConfig) Info() model.RunInfo {
	bps, _ := c.LinkBandwidthBps()
	return model.RunInfo{
		ID:               c.ID(),
		Name:             c.Name(),
		LinkBandwidthBps: bps,
		ArrivalRate:      float64(c.ArrivalRate),
		PriorityScheme:   c.PriorityScheme,
		Workers:          c.Workers,
		Seed:             c.Seed,
		RunIndex:         c.RunIndex,
	}
}

var (
	baseNamePattern    = regexp.MustCompile(`^(.+?)_(\d+(?:ns|us|ms|s))_arrival_(\d+)(.*)$`)
	horovodNamePattern = regexp.MustCompile(`^_runhvd_(true|false)_hrvprio_([0-9A-Za-z]+)_num_hvd_(\d+)_link_bw_([0-9.]+[A-Za-z]+)(.*)$`)
	repeatNamePattern  = regexp.MustCompile(`^_seed_(-?\d+)_run_(\d+)(.*)$`)
)

// ParseName recovers a RunConfig from a run directory name produced by Name.
func ParseName(name string) (RunConfig, error) {
	m := baseNamePattern.FindStringSubmatch(name)
	if m == nil {
		return RunConfig{}, fmt.Errorf("run name %q does not match <program>_<interval>_arrival_<rate>", name)
	}
	rate, err := strconv.Atoi(m[3])
	if err != nil {
		return RunConfig{}, fmt.Errorf("failed to parse arrival rate in %q: %w", name, err)
	}
	c := RunConfig{Program: m[1], UtilizationInterval: m[2], ArrivalRate: rate}

	rest := m[4]
	if h := horovodNamePattern.FindStringSubmatch(rest); h != nil {
		workers, err := strconv.Atoi(h[3])
		if err != nil {
			return RunConfig{}, fmt.Errorf("failed to parse worker count in %q: %w", name, err)
		}
		c.Horovod = h[1] == "true"
		c.PriorityScheme = h[2]
		c.Workers = workers
		c.LinkBandwidth = h[4]
		rest = h[5]
	}
	if r := repeatNamePattern.FindStringSubmatch(rest); r != nil {
		seed, err := strconv.ParseInt(r[1], 10, 64)
		if err != nil {
			return RunConfig{}, fmt.Errorf("failed to parse seed in %q: %w", name, err)
		}
		index, err := strconv.Atoi(r[2])
		if err != nil {
			return RunConfig{}, fmt.Errorf("failed to parse run index in %q: %w", name, err)
		}
		c.Seed = seed
		c.RunIndex = index
		rest = r[3]
	}
	c.Stamp = strings.TrimPrefix(rest, "_")
	return c, nil
}
