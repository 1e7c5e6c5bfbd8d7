package et

import "github.com/sirupsen/logrus"

// buildDLRMPass builds one pass of the DLRM bottom/top hybrid. Layers up to
// and including the boundary form the per-device bottom model; the rest is the
// globally exchanged top model.
//
// Forward chaining is data-parallel. Only ALLTOALL layers exchange
// activations, and the boundary layer waits on layer 0's exchange. Backward,
// weight-gradient collectives are skipped for NONE layers, and one all-to-all
// bridge is emitted at the layer right after the boundary. Layer 0's weight
// gradient waits on that bridge.
func buildDLRMPass(g *graph) error {
	var lastFwd slot
	for i := range g.layers {
		l := &g.layers[i]
		s := &g.slots[i]

		comp := g.compNode(i, PhaseForward)
		if s.wgComm.set {
			link(comp, s.wgComm)
		} else {
			link(comp, s.wgComp)
		}
		if i > 0 {
			if err := g.require(comp, g.slots[i-1].fwdComp, i, "previous layer forward compute"); err != nil {
				return err
			}
		}
		if i == g.boundary {
			if g.slots[0].fwdComm.set {
				link(comp, g.slots[0].fwdComm)
			} else {
				logrus.Debugf("%s: device %d pass %d: layer 0 has no forward exchange, boundary layer %d chains on compute only",
					g.strategy, g.device, g.pass, i)
			}
		}
		s.fwdComp.put(comp)
		lastFwd.put(comp)
		if err := g.emit(comp); err != nil {
			return err
		}

		if l.Forward.CommKind != CommAllToAll {
			continue
		}
		comm := g.commNode(l.Name, l.Forward, maskAll)
		dependOn(comm, comp)
		s.fwdComm.put(comm)
		if err := g.emit(comm); err != nil {
			return err
		}
	}

	last := len(g.layers) - 1
	for i := last; i >= 0; i-- {
		l := &g.layers[i]
		s := &g.slots[i]

		wg := g.compNode(i, PhaseWeightGrad)
		if i == last {
			if err := g.require(wg, lastFwd, i, "last forward compute"); err != nil {
				return err
			}
		} else {
			link(wg, g.slots[i+1].igComp)
			link(wg, s.igComm)
		}
		s.wgComp.put(wg)
		if err := g.emit(wg); err != nil {
			return err
		}

		if l.WeightGrad.CommKind != CommNone {
			comm := g.commNode(l.Name, l.WeightGrad, maskAll)
			dependOn(comm, wg)
			s.wgComm.put(comm)
			if err := g.emit(comm); err != nil {
				return err
			}
		}

		var ig slot
		if i != 0 {
			n := g.compNode(i, PhaseInputGrad)
			dependOn(n, wg)
			s.igComp.put(n)
			ig.put(n)
			if err := g.emit(n); err != nil {
				return err
			}
		}

		if i == g.boundary+1 {
			if err := emitDLRMBridge(g, i, ig); err != nil {
				return err
			}
		}
	}
	return nil
}

// emitDLRMBridge emits the reverse all-to-all between top and bottom. It is
// sized by layer 0's input-gradient profile and recorded in layer 0's slot.
func emitDLRMBridge(g *graph, layer int, ig slot) error {
	bottom := &g.layers[0]
	bridge := g.commNode(bottom.Name, bottom.InputGrad, maskAll)
	if err := g.require(bridge, ig, layer, "input-gradient compute for the bottom/top bridge"); err != nil {
		return err
	}
	g.slots[0].igComm.put(bridge)
	return g.emit(bridge)
}
