package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/inference-sim/etgen/et"
	"github.com/inference-sim/etgen/et/chakra"
)

// newConvertCmd builds `etgen convert`. Each call returns a command with its
// own flag set and options.
func newConvertCmd() *cobra.Command {
	opts := &convertOptions{}
	cmd := &cobra.Command{
		Use:   "convert",
		Short: "Convert a training schedule into per-device Chakra traces",
		Long: "Reads a layer-wise training schedule and writes one Chakra execution trace per device " +
			"to <output>.<device>.et. Accepted parallelism types: " + fmt.Sprint(et.StrategyTags()),
		Run: func(cmd *cobra.Command, args []string) {
			if opts.configPath != "" {
				cfg, err := loadRunConfig(opts.configPath)
				if err != nil {
					logrus.Fatalf("%v", err)
				}
				opts.applyRunConfig(cfg, cmd.Flags())
			}
			if err := opts.validate(); err != nil {
				logrus.Fatalf("Invalid convert options: %v", err)
			}
			if err := runConvert(cmd.Context(), opts); err != nil {
				logrus.Fatalf("Conversion failed: %v", err)
			}
		},
	}

	bindConvertFlags(cmd.Flags(), opts)
	return cmd
}

func bindConvertFlags(flags *pflag.FlagSet, opts *convertOptions) {
	flags.StringVar(&opts.input, "input", "", "Path to the training schedule")
	flags.StringVar(&opts.output, "output", "", "Output base path; traces are written to <output>.<device>.et")
	flags.IntVar(&opts.numDims, "num-dims", 1, "Number of network dimensions (length of involved_dim)")
	flags.IntVar(&opts.numNPUs, "num-npus", 1, "Number of devices, one trace each")
	flags.IntVar(&opts.numPasses, "num-passes", 1, "Number of training passes per trace")
	flags.IntVar(&opts.jobs, "jobs", 1, "Number of device traces generated in parallel")
	flags.BoolVar(&opts.legacyIDs, "legacy-ids", false, "Continue node ids across devices instead of restarting at 0 (requires --jobs 1)")
	flags.BoolVar(&opts.strictCommKinds, "strict-comm-kinds", false, "Reject unrecognized communication kinds instead of encoding them as UNKNOWN")
	flags.StringVar(&opts.configPath, "config", "", "Optional YAML run config; explicitly set flags take precedence")
}

// runConvert reads the schedule and writes every device trace.
func runConvert(ctx context.Context, opts *convertOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}
	f, err := os.Open(opts.input)
	if err != nil {
		return fmt.Errorf("opening schedule: %w", err)
	}
	sched, err := et.ReadSchedule(f, et.ParseOptions{StrictCommKinds: opts.strictCommKinds})
	f.Close()
	if err != nil {
		return fmt.Errorf("%s: %w", opts.input, err)
	}
	logrus.Infof("%s: %s schedule with %d layers", opts.input, sched.Tag, len(sched.Layers))

	conv, err := et.NewConverter(sched, opts.config())
	if err != nil {
		return err
	}
	open := chakra.Opener(opts.output)
	if opts.jobs == 1 {
		return conv.Run(ctx, open)
	}

	// Devices share nothing but the read-only schedule, so each one runs on
	// its own goroutine with its own allocator and slot table.
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.jobs)
	stats := make([]et.DeviceStats, opts.numNPUs)
	for device := 0; device < opts.numNPUs; device++ {
		device := device
		g.Go(func() error {
			s, err := conv.WriteDevice(gctx, device, open)
			stats[device] = s
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	for _, s := range stats {
		logrus.Debugf("device %d: %d nodes (%d collectives)", s.Device, s.Nodes, s.Collectives)
	}
	return nil
}
