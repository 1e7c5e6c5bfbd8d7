package cmd

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/pflag"
	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"

	"github.com/inference-sim/etgen/et"
)

// RunConfig is the optional YAML run file passed with --config.
// Unset keys leave the flag value alone.
type RunConfig struct {
	Input           *string `yaml:"input"`
	Output          *string `yaml:"output"`
	NumDims         *int    `yaml:"num_dims"`
	NumNPUs         *int    `yaml:"num_npus"`
	NumPasses       *int    `yaml:"num_passes"`
	Jobs            *int    `yaml:"jobs"`
	LegacyIDs       *bool   `yaml:"legacy_ids"`
	StrictCommKinds *bool   `yaml:"strict_comm_kinds"`
}

// loadRunConfig parses a run file with strict field checking: typos are errors.
func loadRunConfig(path string) (*RunConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading run config: %w", err)
	}
	var cfg RunConfig
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("parsing run config %s: %w", path, err)
	}
	return &cfg, nil
}

// convertOptions holds the resolved settings of one convert run.
type convertOptions struct {
	input           string
	output          string
	numDims         int
	numNPUs         int
	numPasses       int
	jobs            int
	legacyIDs       bool
	strictCommKinds bool
	configPath      string
}

// applyRunConfig copies every key set in cfg onto o, except for flags the
// user set explicitly on the command line.
func (o *convertOptions) applyRunConfig(cfg *RunConfig, flags *pflag.FlagSet) {
	setString(&o.input, cfg.Input, flags, "input")
	setString(&o.output, cfg.Output, flags, "output")
	setInt(&o.numDims, cfg.NumDims, flags, "num-dims")
	setInt(&o.numNPUs, cfg.NumNPUs, flags, "num-npus")
	setInt(&o.numPasses, cfg.NumPasses, flags, "num-passes")
	setInt(&o.jobs, cfg.Jobs, flags, "jobs")
	setBool(&o.legacyIDs, cfg.LegacyIDs, flags, "legacy-ids")
	setBool(&o.strictCommKinds, cfg.StrictCommKinds, flags, "strict-comm-kinds")
}

func setString(dst, v *string, flags *pflag.FlagSet, name string) {
	if v != nil && !flags.Changed(name) {
		*dst = *v
	}
}

func setInt(dst, v *int, flags *pflag.FlagSet, name string) {
	if v != nil && !flags.Changed(name) {
		*dst = *v
	}
}

func setBool(dst, v *bool, flags *pflag.FlagSet, name string) {
	if v != nil && !flags.Changed(name) {
		*dst = *v
	}
}

// validate reports every problem at once.
func (o *convertOptions) validate() error {
	var errs []error
	if o.input == "" {
		errs = append(errs, errors.New("input schedule path is required (--input)"))
	}
	if o.output == "" {
		errs = append(errs, errors.New("output base path is required (--output)"))
	}
	if o.jobs < 1 {
		errs = append(errs, fmt.Errorf("jobs must be at least 1, got %d", o.jobs))
	}
	if o.legacyIDs && o.jobs > 1 {
		errs = append(errs, errors.New("legacy ids are shared across devices and need --jobs 1"))
	}
	if err := o.config().Validate(); err != nil {
		errs = append(errs, err)
	}
	return multierr.Combine(errs...)
}

func (o *convertOptions) config() et.Config {
	return et.Config{
		NumDims:   o.numDims,
		NumNPUs:   o.numNPUs,
		NumPasses: o.numPasses,
		LegacyIDs: o.legacyIDs,
	}
}
