package et

import (
	"errors"
	"fmt"
)

// Sentinels matched by the typed errors below through errors.Is.
var (
	ErrParse               = errors.New("parse error")
	ErrUnsupportedStrategy = errors.New("unsupported strategy")
	ErrMissingDependency   = errors.New("missing dependency")
)

// ParseError reports a malformed schedule line. Line is 1-based.
type ParseError struct {
	Line int
	Text string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("cannot parse line %d %q: %v", e.Line, e.Text, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

func (e *ParseError) Is(target error) bool { return target == ErrParse }

// UnsupportedStrategyError reports an unrecognized mode tag.
type UnsupportedStrategyError struct {
	Tag string
}

func (e *UnsupportedStrategyError) Error() string {
	return fmt.Sprintf("unsupported parallelism type %q", e.Tag)
}

func (e *UnsupportedStrategyError) Is(target error) bool { return target == ErrUnsupportedStrategy }

// MissingDependencyError reports a builder linking to a slot that was never
// populated. It indicates too few layers for the strategy or an internal bug.
type MissingDependencyError struct {
	Strategy Strategy
	Device   int
	Pass     int
	Layer    int
	Slot     string
}

func (e *MissingDependencyError) Error() string {
	return fmt.Sprintf("%s: device %d pass %d layer %d: %s node is missing",
		e.Strategy, e.Device, e.Pass, e.Layer, e.Slot)
}

func (e *MissingDependencyError) Is(target error) bool { return target == ErrMissingDependency }
