package et

import (
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Schedule is a parsed training schedule: the mode line, the layer count line
// and one line per layer.
type Schedule struct {
	Strategy Strategy
	Tag      string // mode tag as written
	Boundary int    // index of the last bottom layer; HYBRID_DLRM only
	Layers   []Layer
	Raw      string // full input text, copied into GlobalMetadata
}

// ReadSchedule reads and parses a schedule. Layers are position-dependent, so
// the first malformed line aborts the whole read.
func ReadSchedule(r io.Reader, opts ParseOptions) (*Schedule, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading schedule: %w", err)
	}
	raw := string(data)
	lines := strings.Split(raw, "\n")
	for i := range lines {
		lines[i] = strings.TrimRight(lines[i], "\r")
	}
	if len(lines) < 2 {
		return nil, &ParseError{Line: len(lines) + 1, Text: "", Err: fmt.Errorf("schedule needs a mode line and a layer count line")}
	}

	head := strings.Fields(lines[0])
	if len(head) == 0 {
		return nil, &ParseError{Line: 1, Text: lines[0], Err: fmt.Errorf("missing parallelism type")}
	}
	strategy, err := ParseStrategy(head[0])
	if err != nil {
		return nil, err
	}
	sched := &Schedule{Strategy: strategy, Tag: head[0], Raw: raw}
	if strategy.NeedsBoundary() {
		if len(head) < 2 {
			return nil, &ParseError{Line: 1, Text: lines[0], Err: fmt.Errorf("%s requires the last bottom layer index", head[0])}
		}
		if sched.Boundary, err = strconv.Atoi(head[1]); err != nil {
			return nil, &ParseError{Line: 1, Text: lines[0], Err: fmt.Errorf("last bottom layer index: %w", err)}
		}
	}

	numLayers, err := strconv.Atoi(strings.TrimSpace(lines[1]))
	if err != nil {
		return nil, &ParseError{Line: 2, Text: lines[1], Err: fmt.Errorf("layer count: %w", err)}
	}
	if numLayers <= 0 {
		return nil, &ParseError{Line: 2, Text: lines[1], Err: fmt.Errorf("layer count must be positive, got %d", numLayers)}
	}

	sched.Layers = make([]Layer, 0, numLayers)
	seen := make(map[string]int, numLayers)
	for i := 2; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) == "" {
			continue
		}
		lineNumber := i + 1
		if len(sched.Layers) == numLayers {
			return nil, &ParseError{Line: lineNumber, Text: lines[i], Err: fmt.Errorf("more layer lines than the declared %d", numLayers)}
		}
		layer, err := parseLayer(lines[i], lineNumber, opts)
		if err != nil {
			return nil, err
		}
		if prev, dup := seen[layer.Name]; dup {
			return nil, &ParseError{Line: lineNumber, Text: lines[i], Err: fmt.Errorf("layer name %q already used on line %d", layer.Name, prev)}
		}
		seen[layer.Name] = lineNumber
		sched.Layers = append(sched.Layers, layer)
	}
	if len(sched.Layers) < numLayers {
		return nil, &ParseError{Line: len(lines), Text: lines[len(lines)-1],
			Err: fmt.Errorf("declared %d layers, found %d", numLayers, len(sched.Layers))}
	}

	if strategy.NeedsBoundary() && (sched.Boundary < 0 || sched.Boundary >= numLayers) {
		return nil, &ParseError{Line: 1, Text: lines[0],
			Err: fmt.Errorf("last bottom layer %d out of range [0, %d)", sched.Boundary, numLayers)}
	}
	return sched, nil
}
