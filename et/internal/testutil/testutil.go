// Package testutil provides shared test infrastructure for the et packages:
// an in-memory sink, schedule builders and a decoder for length-delimited
// Chakra records.
package testutil

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/inference-sim/etgen/et"
)

// RecordingSink keeps every record in memory.
type RecordingSink struct {
	Records []et.Record
	Closed  bool
	// FailAfter makes Write fail once this many records are stored (0 = never).
	FailAfter int
}

// ErrSinkFull is returned by a RecordingSink past its FailAfter limit.
var ErrSinkFull = errors.New("recording sink full")

func (s *RecordingSink) Write(rec et.Record) error {
	if s.FailAfter > 0 && len(s.Records) >= s.FailAfter {
		return ErrSinkFull
	}
	s.Records = append(s.Records, rec)
	return nil
}

func (s *RecordingSink) Close() error {
	s.Closed = true
	return nil
}

// Nodes returns the node records in emission order.
func (s *RecordingSink) Nodes() []*et.Node {
	var nodes []*et.Node
	for _, r := range s.Records {
		if n, ok := r.(*et.Node); ok {
			nodes = append(nodes, n)
		}
	}
	return nodes
}

// MetadataCount returns how many GlobalMetadata records were written.
func (s *RecordingSink) MetadataCount() int {
	count := 0
	for _, r := range s.Records {
		if _, ok := r.(*et.GlobalMetadata); ok {
			count++
		}
	}
	return count
}

// Sinks opens a RecordingSink per device and remembers them.
type Sinks map[int]*RecordingSink

// Opener returns an et.SinkOpener backed by the map.
func (s Sinks) Opener() et.SinkOpener {
	return func(device int) (et.Sink, error) {
		sink := &RecordingSink{}
		s[device] = sink
		return sink, nil
	}
}

// LayerRow describes one layer line for tests.
type LayerRow struct {
	Name        string
	Trainable   bool
	Fwd, IG, WG uint64
	FwdComm     string
	IGComm      string
	WGComm      string
	Size        uint64
}

// Line formats the row as a schedule layer line. Empty comm tokens default to ALLREDUCE.
func (l LayerRow) Line() string {
	tok := func(s string) string {
		if s == "" {
			return "ALLREDUCE"
		}
		return s
	}
	trainable := 0
	if l.Trainable {
		trainable = 1
	}
	return fmt.Sprintf("%s %d %d %s %d %d %s %d %d %s %d 0",
		l.Name, trainable,
		l.Fwd, tok(l.FwdComm), l.Size,
		l.IG, tok(l.IGComm), l.Size,
		l.WG, tok(l.WGComm), l.Size)
}

// ScheduleText builds schedule text from a mode line and layer rows.
func ScheduleText(modeLine string, layers ...LayerRow) string {
	var sb strings.Builder
	sb.WriteString(modeLine + "\n")
	fmt.Fprintf(&sb, "%d\n", len(layers))
	for _, l := range layers {
		sb.WriteString(l.Line() + "\n")
	}
	return sb.String()
}

// MustSchedule parses schedule text or fails the test.
func MustSchedule(t testing.TB, modeLine string, layers ...LayerRow) *et.Schedule {
	t.Helper()
	sched, err := et.ReadSchedule(strings.NewReader(ScheduleText(modeLine, layers...)), et.ParseOptions{})
	if err != nil {
		t.Fatalf("parsing schedule: %v", err)
	}
	return sched
}

// DecodedAttr is an AttributeProto read back from the wire.
type DecodedAttr struct {
	Name     string
	Int64    *int64
	Uint64   *uint64
	String   *string
	BoolList []bool
}

// DecodedNode is a Node read back from the wire.
type DecodedNode struct {
	ID       uint64
	Name     string
	Type     uint64
	DataDeps []uint64
	Duration uint64
	Attrs    []DecodedAttr
}

// SplitRecords splits varint length-delimited records.
func SplitRecords(t testing.TB, data []byte) [][]byte {
	t.Helper()
	var records [][]byte
	for len(data) > 0 {
		size, n := protowire.ConsumeVarint(data)
		if n < 0 {
			t.Fatalf("bad record length prefix: %v", protowire.ParseError(n))
		}
		data = data[n:]
		if uint64(len(data)) < size {
			t.Fatalf("record of %d bytes truncated to %d", size, len(data))
		}
		records = append(records, data[:size])
		data = data[size:]
	}
	return records
}

// DecodeNode decodes a Node message.
func DecodeNode(t testing.TB, b []byte) DecodedNode {
	t.Helper()
	var n DecodedNode
	forEachField(t, b, func(num protowire.Number, typ protowire.Type, v []byte, scalar uint64) {
		switch num {
		case 1:
			n.ID = scalar
		case 2:
			n.Name = string(v)
		case 3:
			n.Type = scalar
		case 5:
			n.DataDeps = append(n.DataDeps, unpackVarints(t, v)...)
		case 7:
			n.Duration = scalar
		case 10:
			n.Attrs = append(n.Attrs, decodeAttr(t, v))
		}
	})
	return n
}

// DecodeMetadata decodes a GlobalMetadata message into its attributes.
func DecodeMetadata(t testing.TB, b []byte) []DecodedAttr {
	t.Helper()
	var attrs []DecodedAttr
	forEachField(t, b, func(num protowire.Number, typ protowire.Type, v []byte, scalar uint64) {
		if num == 2 {
			attrs = append(attrs, decodeAttr(t, v))
		}
	})
	return attrs
}

func decodeAttr(t testing.TB, b []byte) DecodedAttr {
	t.Helper()
	var a DecodedAttr
	forEachField(t, b, func(num protowire.Number, typ protowire.Type, v []byte, scalar uint64) {
		switch num {
		case 1:
			a.Name = string(v)
		case 9:
			i := int64(scalar)
			a.Int64 = &i
		case 13:
			u := scalar
			a.Uint64 = &u
		case 29:
			s := string(v)
			a.String = &s
		case 28:
			a.BoolList = []bool{}
			forEachField(t, v, func(num protowire.Number, typ protowire.Type, packed []byte, _ uint64) {
				if num == 1 {
					for _, x := range unpackVarints(t, packed) {
						a.BoolList = append(a.BoolList, protowire.DecodeBool(x))
					}
				}
			})
		}
	})
	return a
}

func forEachField(t testing.TB, b []byte, fn func(num protowire.Number, typ protowire.Type, v []byte, scalar uint64)) {
	t.Helper()
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			t.Fatalf("bad tag: %v", protowire.ParseError(n))
		}
		b = b[n:]
		switch typ {
		case protowire.VarintType:
			v, m := protowire.ConsumeVarint(b)
			if m < 0 {
				t.Fatalf("bad varint in field %d: %v", num, protowire.ParseError(m))
			}
			fn(num, typ, nil, v)
			b = b[m:]
		case protowire.BytesType:
			v, m := protowire.ConsumeBytes(b)
			if m < 0 {
				t.Fatalf("bad bytes in field %d: %v", num, protowire.ParseError(m))
			}
			fn(num, typ, v, 0)
			b = b[m:]
		default:
			m := protowire.ConsumeFieldValue(num, typ, b)
			if m < 0 {
				t.Fatalf("bad field %d: %v", num, protowire.ParseError(m))
			}
			b = b[m:]
		}
	}
}

func unpackVarints(t testing.TB, b []byte) []uint64 {
	t.Helper()
	var out []uint64
	for len(b) > 0 {
		v, n := protowire.ConsumeVarint(b)
		if n < 0 {
			t.Fatalf("bad packed varint: %v", protowire.ParseError(n))
		}
		out = append(out, v)
		b = b[n:]
	}
	return out
}
