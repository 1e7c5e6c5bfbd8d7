package et_test

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"pgregory.net/rapid"

	"github.com/inference-sim/etgen/et"
	"github.com/inference-sim/etgen/et/internal/testutil"
)

var commTokens = []string{"ALLREDUCE", "ALLTOALL", "ALLGATHER", "REDUCESCATTER", "NONE"}

// TestConvert_TraceInvariants checks, for random schedules under every
// strategy, that node ids are dense from 0 and every dependency points back.
func TestConvert_TraceInvariants(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		tag := rapid.SampledFrom(et.StrategyTags()).Draw(t, "tag")
		numLayers := rapid.IntRange(1, 6).Draw(t, "layers")
		modeLine := tag
		if strings.HasPrefix(tag, "HYBRID_DLRM") {
			modeLine = fmt.Sprintf("%s %d", tag, rapid.IntRange(0, numLayers-1).Draw(t, "boundary"))
		}
		rows := make([]testutil.LayerRow, numLayers)
		for i := range rows {
			rows[i] = testutil.LayerRow{
				Name:      fmt.Sprintf("l%d", i),
				Trainable: rapid.Bool().Draw(t, "trainable"),
				Fwd:       rapid.Uint64Range(0, 1000).Draw(t, "fwd"),
				IG:        rapid.Uint64Range(0, 1000).Draw(t, "ig"),
				WG:        rapid.Uint64Range(0, 1000).Draw(t, "wg"),
				FwdComm:   rapid.SampledFrom(commTokens).Draw(t, "fwdComm"),
				IGComm:    rapid.SampledFrom(commTokens).Draw(t, "igComm"),
				WGComm:    rapid.SampledFrom(commTokens).Draw(t, "wgComm"),
				Size:      rapid.Uint64Range(0, 1<<20).Draw(t, "size"),
			}
		}
		sched, err := et.ReadSchedule(strings.NewReader(testutil.ScheduleText(modeLine, rows...)), et.ParseOptions{})
		if err != nil {
			t.Fatalf("parsing generated schedule: %v", err)
		}
		cfg := et.Config{
			NumDims:   rapid.IntRange(1, 4).Draw(t, "dims"),
			NumNPUs:   1,
			NumPasses: rapid.IntRange(1, 3).Draw(t, "passes"),
		}
		conv, err := et.NewConverter(sched, cfg)
		if err != nil {
			t.Fatalf("NewConverter: %v", err)
		}
		sink := &testutil.RecordingSink{}
		stats, err := conv.ConvertDevice(context.Background(), 0, sink)
		if err != nil {
			t.Fatalf("ConvertDevice: %v", err)
		}

		if sched.Strategy.EmitsMetadata() {
			if _, ok := sink.Records[0].(*et.GlobalMetadata); !ok || sink.MetadataCount() != 1 {
				t.Fatalf("want exactly one leading metadata record")
			}
		} else if sink.MetadataCount() != 0 {
			t.Fatalf("CUSTOM trace carries metadata")
		}

		nodes := sink.Nodes()
		if stats.Nodes != len(nodes) {
			t.Fatalf("stats report %d nodes, sink holds %d", stats.Nodes, len(nodes))
		}
		collectives := 0
		for i, n := range nodes {
			if n.ID != uint64(i) {
				t.Fatalf("node %d has id %d", i, n.ID)
			}
			for _, dep := range n.DataDeps {
				if dep >= n.ID {
					t.Fatalf("node %v depends forward on %d", n, dep)
				}
			}
			if n.Type == et.NodeCollective {
				collectives++
				dims, ok := n.Attr(et.AttrInvolvedDim)
				if !ok || len(dims.(et.BoolListValue)) != cfg.NumDims {
					t.Fatalf("collective %v has involved_dim %v", n, dims)
				}
			}
		}
		if stats.Collectives != collectives {
			t.Fatalf("stats report %d collectives, counted %d", stats.Collectives, collectives)
		}
		if sched.Strategy == et.StrategyMicro && len(nodes) != numLayers*cfg.NumPasses {
			t.Fatalf("MICRO emitted %d nodes, want %d", len(nodes), numLayers*cfg.NumPasses)
		}
	})
}
