// Command arena-bench fills an arena with fixed-size allocations until it runs
// out of space, resets it, and repeats. It prints the resulting statistics
// and metrics, which makes it handy for sizing arenas and checking alignment
// overhead.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/alecthomas/kingpin/v2"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/pavanmanishd/arena/v2"
)

type workload struct {
	size   int
	align  int
	rounds int
}

func (w workload) validate() error {
	if w.size <= 0 {
		return errors.Errorf("size must be positive, got %d", w.size)
	}
	if w.align < 0 {
		return errors.Errorf("align must not be negative, got %d", w.align)
	}
	if w.rounds <= 0 {
		return errors.Errorf("rounds must be positive, got %d", w.rounds)
	}
	return nil
}

func main() {
	app := kingpin.New("arena-bench", "Fill a fixed-capacity arena with allocations and report usage.")

	cfg := arena.DefaultConfig()
	var (
		w          workload
		configFile string
		debug      bool
	)
	app.Flag("config", "YAML file with the arena configuration. Overrides --capacity, --backing, --budget-limit and --heap-limit.").StringVar(&configFile)
	app.Flag("capacity", "Arena capacity, e.g. 64KiB.").Default(cfg.Capacity.String()).SetValue(&cfg.Capacity)
	app.Flag("backing", "Backing allocator: heap or mmap.").Default(cfg.Backing).EnumVar(&cfg.Backing, arena.BackingHeap, arena.BackingMmap)
	app.Flag("budget-limit", "Memory budget shared by the arena, 0 to disable.").Default("0").SetValue(&cfg.BudgetLimit)
	app.Flag("heap-limit", "Largest buffer the heap backing may allocate, 0 to use GOMEMLIMIT.").Default("0").SetValue(&cfg.HeapLimit)
	app.Flag("size", "Bytes per allocation.").Default("64").IntVar(&w.size)
	app.Flag("align", "Alignment of each allocation; 0 or 1 for none.").Default("0").IntVar(&w.align)
	app.Flag("rounds", "Number of fill/reset rounds.").Default("1").IntVar(&w.rounds)
	app.Flag("debug", "Enable debug logging.").BoolVar(&debug)

	kingpin.MustParse(app.Parse(os.Args[1:]))

	logger := log.NewLogfmtLogger(log.NewSyncWriter(os.Stderr))
	if debug {
		logger = level.NewFilter(logger, level.AllowDebug())
	} else {
		logger = level.NewFilter(logger, level.AllowInfo())
	}

	if configFile != "" {
		var err error
		if cfg, err = arena.LoadConfig(configFile); err != nil {
			level.Error(logger).Log("msg", "failed to load config", "file", configFile, "err", err)
			os.Exit(1)
		}
	}

	reg := prometheus.NewRegistry()
	stats, err := run(cfg, w, logger, reg)
	if err != nil {
		level.Error(logger).Log("msg", "benchmark failed", "err", err)
		os.Exit(1)
	}
	printStats(os.Stdout, stats)
	if err := printMetrics(os.Stdout, reg); err != nil {
		level.Error(logger).Log("msg", "failed to gather metrics", "err", err)
		os.Exit(1)
	}
}

func run(cfg arena.Config, w workload, logger log.Logger, reg prometheus.Registerer) (arena.Stats, error) {
	if err := w.validate(); err != nil {
		return arena.Stats{}, err
	}

	a, err := arena.NewFromConfig(cfg,
		arena.WithLogger(logger),
		arena.WithBudget(cfg.NewBudget()),
		arena.WithMetrics(arena.NewMetrics(reg)),
	)
	if err != nil {
		return arena.Stats{}, err
	}
	defer a.Release()

	for round := 0; round < w.rounds; round++ {
		n, err := fill(a, w)
		if err != nil {
			return a.Stats(), err
		}
		level.Info(logger).Log("msg", "round complete", "round", round, "allocations", n, "used", a.Used(), "padding", a.Stats().PaddingBytes)
		if round < w.rounds-1 {
			a.Reset()
		}
	}
	return a.Stats(), nil
}

// fill allocates until the arena reports it is out of space.
func fill(a *arena.Arena, w workload) (int, error) {
	for n := 0; ; n++ {
		var err error
		if w.align > 1 {
			_, err = a.AllocAligned(w.size, w.align)
		} else {
			_, err = a.Alloc(w.size)
		}
		if errors.Is(err, arena.ErrOutOfSpace) {
			return n, nil
		}
		if err != nil {
			return n, err
		}
	}
}

func printStats(out io.Writer, s arena.Stats) {
	fmt.Fprintf(out, "ownership:    %s\n", s.Ownership)
	fmt.Fprintf(out, "capacity:     %d\n", s.Capacity)
	fmt.Fprintf(out, "used:         %d\n", s.Used)
	fmt.Fprintf(out, "remaining:    %d\n", s.Remaining)
	fmt.Fprintf(out, "utilization:  %.2f%%\n", s.Utilization*100)
	fmt.Fprintf(out, "allocs:       %d\n", s.Allocs)
	fmt.Fprintf(out, "failures:     %d\n", s.Failures)
	fmt.Fprintf(out, "resets:       %d\n", s.Resets)
	fmt.Fprintf(out, "padding:      %d\n", s.PaddingBytes)
	fmt.Fprintf(out, "high water:   %d\n", s.HighWater)
}

func printMetrics(out io.Writer, g prometheus.Gatherer) error {
	mfs, err := g.Gather()
	if err != nil {
		return err
	}
	for _, mf := range mfs {
		for _, m := range mf.GetMetric() {
			switch {
			case m.GetCounter() != nil:
				fmt.Fprintf(out, "%s %g\n", mf.GetName(), m.GetCounter().GetValue())
			case m.GetGauge() != nil:
				fmt.Fprintf(out, "%s %g\n", mf.GetName(), m.GetGauge().GetValue())
			}
		}
	}
	return nil
}
