package et

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"go.uber.org/multierr"
)

// Config is the mesh and run shape of a conversion.
type Config struct {
	NumDims   int // length of every involved_dim vector
	NumNPUs   int // number of device traces
	NumPasses int // training iterations per trace

	// LegacyIDs keeps one id counter across all devices, so device d's ids
	// continue where device d-1 stopped. By default every device starts at 0.
	// With LegacyIDs set the Converter must convert devices sequentially.
	LegacyIDs bool
}

// Validate checks that the run shape is usable.
func (c Config) Validate() error {
	if c.NumDims < 1 {
		return fmt.Errorf("num_dims must be at least 1, got %d", c.NumDims)
	}
	if c.NumNPUs < 1 {
		return fmt.Errorf("num_npus must be at least 1, got %d", c.NumNPUs)
	}
	if c.NumPasses < 1 {
		return fmt.Errorf("num_passes must be at least 1, got %d", c.NumPasses)
	}
	return nil
}

// DeviceStats summarizes one written device trace.
type DeviceStats struct {
	Device      int
	Nodes       int
	Collectives int
	Metadata    bool
}

// Converter turns a schedule into per-device traces. Without LegacyIDs,
// ConvertDevice may be called concurrently for different devices.
type Converter struct {
	sched  *Schedule
	cfg    Config
	build  passBuilder
	kinds  []LayerKind
	shared *IDAllocator
}

// NewConverter validates cfg and selects the builder for the schedule's strategy.
func NewConverter(sched *Schedule, cfg Config) (*Converter, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	build, err := builderFor(sched.Strategy)
	if err != nil {
		return nil, err
	}
	c := &Converter{sched: sched, cfg: cfg, build: build}
	if sched.Strategy == StrategyCustom {
		c.kinds = ClassifyLayers(sched.Layers)
	}
	if cfg.LegacyIDs {
		c.shared = NewIDAllocator()
	}
	return c, nil
}

// Config returns the run shape the converter was built with.
func (c *Converter) Config() Config {
	return c.cfg
}

// ConvertDevice writes one device's trace to sink: the metadata record, when
// the strategy has one, followed by NumPasses passes. It does not close sink.
func (c *Converter) ConvertDevice(ctx context.Context, device int, sink Sink) (DeviceStats, error) {
	alloc := c.shared
	if alloc == nil {
		alloc = NewIDAllocator()
	}
	g := &graph{
		strategy: c.sched.Strategy,
		layers:   c.sched.Layers,
		kinds:    c.kinds,
		boundary: c.sched.Boundary,
		numDims:  c.cfg.NumDims,
		slots:    newSlotTable(len(c.sched.Layers)),
		alloc:    alloc,
		sink:     sink,
		device:   device,
		stats:    DeviceStats{Device: device},
	}

	if c.sched.Strategy.EmitsMetadata() {
		if err := sink.Write(NewGlobalMetadata(c.sched.Raw)); err != nil {
			return g.stats, fmt.Errorf("device %d: writing global metadata: %w", device, err)
		}
		g.stats.Metadata = true
	}

	logrus.Debugf("%s: device %d starts at node id %d", c.sched.Strategy, device, alloc.Peek())
	for pass := 0; pass < c.cfg.NumPasses; pass++ {
		if err := ctx.Err(); err != nil {
			return g.stats, err
		}
		g.pass = pass
		if err := c.build(g); err != nil {
			return g.stats, fmt.Errorf("device %d pass %d: %w", device, pass, err)
		}
	}
	return g.stats, nil
}

// WriteDevice opens the device's sink, converts into it and closes it on every
// exit path. After an error the partially written trace must not be used.
func (c *Converter) WriteDevice(ctx context.Context, device int, open SinkOpener) (stats DeviceStats, err error) {
	sink, err := open(device)
	if err != nil {
		return DeviceStats{Device: device}, fmt.Errorf("device %d: opening sink: %w", device, err)
	}
	defer func() {
		err = multierr.Append(err, sink.Close())
	}()
	return c.ConvertDevice(ctx, device, sink)
}

// Run converts every device in order, stopping at the first error.
func (c *Converter) Run(ctx context.Context, open SinkOpener) error {
	for device := 0; device < c.cfg.NumNPUs; device++ {
		stats, err := c.WriteDevice(ctx, device, open)
		if err != nil {
			return err
		}
		logrus.Debugf("device %d: %d nodes (%d collectives)", device, stats.Nodes, stats.Collectives)
	}
	return nil
}
