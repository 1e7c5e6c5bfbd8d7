package et

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
)

// CommKind is the collective a layer phase performs.
type CommKind int

const (
	// CommUnknown is any token that does not name a supported collective.
	CommUnknown CommKind = iota
	CommAllReduce
	CommAllToAll
	CommAllGather
	CommReduceScatter
	// CommNone marks a phase with no collective at all ("NONE" in the schedule).
	CommNone
)

// commTokens maps schedule tokens to communication kinds.
var commTokens = map[string]CommKind{
	"ALLREDUCE":     CommAllReduce,
	"ALLTOALL":      CommAllToAll,
	"ALLGATHER":     CommAllGather,
	"REDUCESCATTER": CommReduceScatter,
	"NONE":          CommNone,
}

// String returns the schedule token for the kind.
func (k CommKind) String() string {
	switch k {
	case CommAllReduce:
		return "ALLREDUCE"
	case CommAllToAll:
		return "ALLTOALL"
	case CommAllGather:
		return "ALLGATHER"
	case CommReduceScatter:
		return "REDUCESCATTER"
	case CommNone:
		return "NONE"
	default:
		return "UNKNOWN"
	}
}

// IsCollective reports whether the kind names one of the four supported collectives.
func (k CommKind) IsCollective() bool {
	return k >= CommAllReduce && k <= CommReduceScatter
}

// Phase is one of the three cost profiles of a layer.
type Phase int

const (
	PhaseForward Phase = iota
	PhaseInputGrad
	PhaseWeightGrad
)

// Tag is the suffix used in compute node names.
func (p Phase) Tag() string {
	switch p {
	case PhaseForward:
		return "FWD"
	case PhaseInputGrad:
		return "BWD_IG"
	default:
		return "BWD_WG"
	}
}

// PhaseProfile holds the compute time and collective of one phase.
type PhaseProfile struct {
	CompTime  uint64   // microseconds
	CommKind  CommKind // resolved once at parse time
	CommToken string   // token as written in the schedule, used in node names
	CommSize  uint64   // bytes
}

// Layer is one row of the training schedule. Layers are immutable once parsed;
// builder state lives in the per-device slot table.
type Layer struct {
	Name       string
	Trainable  bool
	Forward    PhaseProfile
	InputGrad  PhaseProfile
	WeightGrad PhaseProfile
	UpdateTime string // carried through, unused by graph construction
}

// Profile returns the cost profile for the given phase.
func (l *Layer) Profile(p Phase) PhaseProfile {
	switch p {
	case PhaseForward:
		return l.Forward
	case PhaseInputGrad:
		return l.InputGrad
	default:
		return l.WeightGrad
	}
}

// layerFieldCount is the number of whitespace-separated columns in a layer line.
const layerFieldCount = 12

// ParseOptions controls schedule parsing.
type ParseOptions struct {
	// StrictCommKinds rejects unrecognized communication tokens instead of
	// downgrading them to CommUnknown.
	StrictCommKinds bool
}

// parseLayer parses one layer line:
// name, trainable, fwd_comp, fwd_comm, fwd_size, ig_comp, ig_comm, ig_size,
// wg_comp, wg_comm, wg_size, wg_update.
func parseLayer(line string, lineNumber int, opts ParseOptions) (Layer, error) {
	fail := func(err error) (Layer, error) {
		return Layer{}, &ParseError{Line: lineNumber, Text: line, Err: err}
	}
	cols := strings.Fields(line)
	if len(cols) < layerFieldCount {
		return fail(fmt.Errorf("expected %d fields, got %d", layerFieldCount, len(cols)))
	}

	trainable, err := strconv.ParseInt(cols[1], 10, 64)
	if err != nil {
		return fail(fmt.Errorf("trainable flag: %w", err))
	}
	layer := Layer{
		Name:       cols[0],
		Trainable:  trainable > 0,
		UpdateTime: cols[11],
	}
	profiles := []*PhaseProfile{&layer.Forward, &layer.InputGrad, &layer.WeightGrad}
	for i, p := range profiles {
		base := 2 + 3*i
		phase := Phase(i)
		if p.CompTime, err = strconv.ParseUint(cols[base], 10, 64); err != nil {
			return fail(fmt.Errorf("%s compute time: %w", phase.Tag(), err))
		}
		p.CommToken = cols[base+1]
		if p.CommKind, err = parseCommKind(p.CommToken, opts); err != nil {
			return fail(fmt.Errorf("%s communication kind: %w", phase.Tag(), err))
		}
		if p.CommSize, err = strconv.ParseUint(cols[base+2], 10, 64); err != nil {
			return fail(fmt.Errorf("%s communication size: %w", phase.Tag(), err))
		}
	}
	logrus.Debugf("layer %s: trainable=%v", layer.Name, layer.Trainable)
	return layer, nil
}

func parseCommKind(token string, opts ParseOptions) (CommKind, error) {
	if kind, ok := commTokens[token]; ok {
		return kind, nil
	}
	if opts.StrictCommKinds {
		return CommUnknown, fmt.Errorf("unrecognized token %q", token)
	}
	logrus.Warnf("unrecognized communication kind %q treated as UNKNOWN", token)
	return CommUnknown, nil
}
