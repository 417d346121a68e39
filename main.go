//go:build linux
// +build linux

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	flag "github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/cyclicnic/cyclicnic/internal/cyclic"
	"github.com/cyclicnic/cyclicnic/internal/logging"
	"github.com/cyclicnic/cyclicnic/internal/nictest"
	"github.com/cyclicnic/cyclicnic/internal/report"
	"github.com/cyclicnic/cyclicnic/internal/stats"
)

var version = "0.1.0"

// Defaults for a 1 kHz EtherCAT cycle
const (
	defaultPeriodMicros    = 1000
	defaultSendPriority    = 42
	defaultReceivePriority = 45
	bucketWidthDivisor     = 8 // automatic bucket width is period/8
)

// Tail recorder range
const tailMaxValue = 10 * time.Second

// Config holds all command-line configuration
type Config struct {
	NIC        string
	Iterations uint64 // 0 = run until interrupted

	// Timing
	Period      time.Duration
	BucketWidth time.Duration // 0 = Period/bucketWidthDivisor

	// Thread placement
	SendPriority    int
	ReceivePriority int
	SendCPU         int
	ReceiveCPU      int

	// Modes
	Simulate bool // loop frames through memory instead of a NIC
	NoRT     bool // skip root check, mlockall, SCHED_FIFO and cpu_dma_latency
	JSON     bool
	Tail     bool
	Verbose  bool
	LogLevel string

	// Misc
	Profile      string
	Help         bool
	Version      bool
	ListProfiles bool
}

// CyclicOnly reports whether no frames are exchanged and only the sender's
// pacing is measured.
func (c *Config) CyclicOnly() bool { return c.NIC == "" && !c.Simulate }

func main() {
	cfg, err := parseFlags(os.Args[1:])
	if err != nil {
		if err == flag.ErrHelp {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	if cfg.Version {
		fmt.Printf("cyclicnic %s\n", version)
		os.Exit(0)
	}

	if cfg.ListProfiles {
		printProfiles(os.Stdout)
		os.Exit(0)
	}

	logger, err := logging.New(cfg.LogLevel, os.Stderr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	os.Exit(run(cfg, logger, os.Stdout))
}

func defaultCPU() int {
	if n := runtime.NumCPU() - 1; n > 0 {
		return n
	}
	return 0
}

func parseFlags(args []string) (*Config, error) {
	cfg := &Config{}

	fs := flag.NewFlagSet("cyclicnic", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	fs.SortFlags = false // Preserve definition order in help

	fs.StringVarP(&cfg.NIC, "nic", "n", "", "Network interface to test (empty = cyclic timing only)")
	fs.Uint64VarP(&cfg.Iterations, "iterations", "i", 0, "Number of cycles (0 = until interrupted)")
	period := fs.Uint64P("period", "s", defaultPeriodMicros, "Send period in microseconds")
	bucketWidth := fs.Uint64P("bucket-width", "b", 0, "Histogram bucket width in microseconds (0 = period/8)")
	fs.IntVar(&cfg.SendPriority, "send-priority", defaultSendPriority, "SCHED_FIFO priority of the sender")
	fs.IntVar(&cfg.ReceivePriority, "receive-priority", defaultReceivePriority, "SCHED_FIFO priority of the receiver")
	fs.IntVar(&cfg.SendCPU, "send-cpu", defaultCPU(), "CPU core for the sender")
	fs.IntVar(&cfg.ReceiveCPU, "receive-cpu", defaultCPU(), "CPU core for the receiver")
	fs.StringVarP(&cfg.Profile, "profile", "p", "", "Cycle profile (see --list-profiles)")
	fs.BoolVarP(&cfg.ListProfiles, "list-profiles", "L", false, "List available profiles")
	fs.BoolVar(&cfg.Simulate, "simulate", false, "Use an in-memory link instead of a NIC")
	fs.BoolVar(&cfg.NoRT, "no-rt", false, "Skip real-time setup (root, mlockall, SCHED_FIFO)")
	fs.BoolVar(&cfg.JSON, "json", false, "Print the final summary as JSON")
	fs.BoolVar(&cfg.Tail, "tail", false, "Track p99/p99.9/p99.99 with an HDR histogram")
	fs.StringVar(&cfg.LogLevel, "log-level", "info", "Log level: debug, info, warn, error")
	fs.BoolVarP(&cfg.Verbose, "verbose", "v", false, "Show min/mean/median and timestamp delta rows")
	fs.BoolVarP(&cfg.Help, "help", "h", false, "Show help")
	fs.BoolVar(&cfg.Version, "version", false, "Show version")

	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "cyclicnic - measure cyclic real-time behaviour of a NIC")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Sends one EtherCAT broadcast frame per cycle from a SCHED_FIFO thread,")
		fmt.Fprintln(os.Stderr, "receives it on a second thread and reports cycle and timestamp statistics.")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Usage: cyclicnic [flags]")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Examples:")
		fmt.Fprintln(os.Stderr, "  sudo cyclicnic --nic eth1")
		fmt.Fprintln(os.Stderr, "  sudo cyclicnic --nic eth1 --profile 4khz --iterations 240000 -v")
		fmt.Fprintln(os.Stderr, "  cyclicnic --simulate --no-rt --iterations 1000 --json")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Flags:")
		fs.PrintDefaults()
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Profiles:")
		printProfiles(os.Stderr)
	}

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if cfg.Help {
		fs.Usage()
		return cfg, flag.ErrHelp
	}

	if fs.NArg() > 0 {
		return nil, fmt.Errorf("unexpected arguments: %v", fs.Args())
	}

	cfg.Period = time.Duration(*period) * time.Microsecond

	// Apply profile first (can be overridden by explicit flags)
	if cfg.Profile != "" {
		p, ok := profiles[cfg.Profile]
		if !ok {
			return nil, fmt.Errorf("unknown profile: %s", cfg.Profile)
		}
		if !fs.Changed("period") {
			cfg.Period = p.Period
		}
		if !fs.Changed("bucket-width") {
			cfg.BucketWidth = p.BucketWidth
		}
		if !fs.Changed("iterations") {
			cfg.Iterations = p.Iterations
		}
	}

	if fs.Changed("bucket-width") {
		cfg.BucketWidth = time.Duration(*bucketWidth) * time.Microsecond
	}

	if cfg.Period <= 0 {
		return nil, fmt.Errorf("invalid --period: must be positive")
	}
	if cfg.BucketWidth == 0 {
		cfg.BucketWidth = cfg.Period / bucketWidthDivisor
	}
	if cfg.BucketWidth <= 0 {
		return nil, fmt.Errorf("invalid --bucket-width: period %v too small for automatic width", cfg.Period)
	}
	for _, c := range []struct {
		name  string
		value int
	}{
		{"send-cpu", cfg.SendCPU},
		{"receive-cpu", cfg.ReceiveCPU},
	} {
		if c.value < 0 || c.value >= runtime.NumCPU() {
			return nil, fmt.Errorf("invalid --%s: %d (have %d CPUs)", c.name, c.value, runtime.NumCPU())
		}
	}
	for _, p := range []struct {
		name  string
		value int
	}{
		{"send-priority", cfg.SendPriority},
		{"receive-priority", cfg.ReceivePriority},
	} {
		if p.value < 1 || p.value > 99 {
			return nil, fmt.Errorf("invalid --%s: %d (want 1-99)", p.name, p.value)
		}
	}
	if _, err := logging.ParseLevel(cfg.LogLevel); err != nil {
		return nil, fmt.Errorf("invalid --log-level: %w", err)
	}

	return cfg, nil
}

// openHarness creates the tester over a real or simulated link.
func openHarness(cfg *Config, hw, sw *stats.Report, logger logrus.FieldLogger) (*nictest.Harness, error) {
	if cfg.Simulate {
		return nictest.New(nictest.NewMemLink(), hw, sw, nictest.WithLogger(logger)), nil
	}
	return nictest.Open(cfg.NIC, hw, sw, nictest.WithLogger(logger))
}

func dropCounts(d nictest.Drops) map[string]uint64 {
	out := map[string]uint64{}
	for k, v := range map[string]uint64{
		"negative_hw_deltas": d.NegativeHardware,
		"negative_sw_deltas": d.NegativeSoftware,
		"malformed":          d.Malformed,
		"missing":            d.Missing,
	} {
		if v > 0 {
			out[k] = v
		}
	}
	return out
}

func run(cfg *Config, logger *logrus.Logger, stdout io.Writer) int {
	if !cfg.NoRT {
		if !cyclic.IsRoot() {
			logger.Error("not running as root; raw sockets and thread priorities need root (use --no-rt to skip real-time setup)")
			return 1
		}
		if err := cyclic.LockMemory(); err != nil {
			logger.WithError(err).Error("memory swapping might occur")
			return 1
		}
		latency := cyclic.SetLatencyTarget(cyclic.DMALatencyPath, logger)
		defer latency.Close()
	}

	if !cfg.JSON {
		if cfg.Iterations > 0 {
			fmt.Fprintf(stdout, "Estimated run time: %s\n",
				report.FormatDuration(cyclic.EstimatedRunTime(cfg.Iterations, cfg.Period)))
		}
		fmt.Fprintf(stdout, "Target period: %d us\n\n", cfg.Period.Microseconds())
	}

	// Publish slots read by the live view
	sendData, receiveData := stats.EmptyReportData(), stats.EmptyReportData()
	hwData, swData := stats.EmptyReportData(), stats.EmptyReportData()

	runner := cyclic.NewRunner(cyclic.Params{
		Iterations:      cfg.Iterations,
		Period:          cfg.Period,
		BucketWidth:     uint64(cfg.BucketWidth),
		SendPriority:    cfg.SendPriority,
		ReceivePriority: cfg.ReceivePriority,
		SendCPU:         cfg.SendCPU,
		ReceiveCPU:      cfg.ReceiveCPU,
		RealTime:        !cfg.NoRT,
		SendData:        &sendData,
		ReceiveData:     &receiveData,
		TailMax:         tailMax(cfg),
	}, logger)

	var (
		tester  nictest.Tester
		harness *nictest.Harness
		hw, sw  *stats.Report
		sources []report.Source
	)
	if cfg.CyclicOnly() {
		sources = []report.Source{{Label: "Cyclic", Data: &sendData}}
	} else {
		hw = cyclic.NewReport(cfg.Period, uint64(cfg.BucketWidth), &hwData, tailMax(cfg))
		sw = cyclic.NewReport(cfg.Period, uint64(cfg.BucketWidth), &swData, tailMax(cfg))
		h, err := openHarness(cfg, hw, sw, logger)
		if err != nil {
			logger.WithError(err).Error("failed to open nic test")
			return 1
		}
		harness, tester = h, h
		sources = []report.Source{{Label: "Sender", Data: &sendData}, {Label: "Receiver", Data: &receiveData}}
		if cfg.Verbose {
			sources = append(sources,
				report.Source{Label: "HW delta", Data: &hwData},
				report.Source{Label: "SW delta", Data: &swData})
		}
	}

	logger.WithFields(logrus.Fields{
		"nic":          cfg.NIC,
		"simulate":     cfg.Simulate,
		"period":       cfg.Period,
		"bucket_width": cfg.BucketWidth,
		"iterations":   cfg.Iterations,
	}).Debug("starting")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	start := time.Now()
	table := report.NewTable(uint64(cfg.BucketWidth), cfg.Verbose)
	live := report.NewLive(stdout, table, sources, start)

	liveCtx, stopLive := context.WithCancel(context.Background())
	var g errgroup.Group
	if !cfg.JSON {
		g.Go(func() error { return live.Run(liveCtx) })
	}
	runErr := runner.Run(ctx, tester)
	stopLive()
	if err := g.Wait(); err != nil {
		logger.WithError(err).Warn("live report failed")
	}
	elapsed := time.Since(start)

	summary := report.Summary{Duration: elapsed, Period: cfg.Period}
	if cfg.CyclicOnly() {
		summary.Rows = []report.Row{report.NewRow("Cyclic", runner.SenderReport())}
	} else {
		if err := harness.Close(); err != nil {
			logger.WithError(err).Warn("failed to close nic test")
		}
		summary.Rows = []report.Row{
			report.NewRow("Sender", runner.SenderReport()),
			report.NewRow("Receiver", runner.ReceiverReport()),
		}
		if cfg.Verbose || cfg.JSON {
			summary.Rows = append(summary.Rows, report.NewRow("HW delta", hw), report.NewRow("SW delta", sw))
		}
		summary.Drops = dropCounts(harness.Drops())

		c := harness.Cadence()
		logger.WithFields(logrus.Fields{
			"hw_deltas":          c.HardwareDelta.Count(),
			"hw_delta_mean_ns":   c.HardwareDelta.Mean(),
			"hw_delta_stddev_ns": c.HardwareDelta.StdDev(),
			"sw_deltas":          c.SoftwareDelta.Count(),
			"sw_delta_mean_ns":   c.SoftwareDelta.Mean(),
			"sw_delta_stddev_ns": c.SoftwareDelta.StdDev(),
		}).Info("timestamp cadence")
	}
	if n := runner.Skipped(); n > 0 {
		logger.WithField("skipped_periods", n).Warn("sender fell behind its schedule")
	}

	exitCode := 0
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		logger.WithError(runErr).Error("test stopped")
		summary.Error = runErr.Error()
		exitCode = 1
	}

	var out report.Output = report.TextOutput{Table: table}
	if cfg.JSON {
		out = report.JSONOutput{}
	} else {
		live.Clear()
	}
	if err := out.Output(summary, stdout); err != nil {
		logger.WithError(err).Error("failed to write summary")
		return 1
	}
	return exitCode
}

func tailMax(cfg *Config) int64 {
	if !cfg.Tail {
		return 0
	}
	return tailMaxValue.Nanoseconds()
}
