package et

// buildModelPass builds one model-parallel pass: every forward layer ends in a
// collective that the next layer's compute waits on, and every backward layer
// except the first exchanges its input gradient.
func buildModelPass(g *graph) error {
	lastComm, err := modelForward(g, maskAll)
	if err != nil {
		return err
	}
	return modelBackward(g, lastComm, maskAll, nil, nil)
}

// modelForward runs the forward sweep shared by MODEL and the hybrids and
// returns the last forward collective. Hybrid strategies wait on the previous
// pass's weight-gradient collective; MODEL waits on the weight-gradient compute.
func modelForward(g *graph, m dimMask) (slot, error) {
	var lastComm slot
	for i := range g.layers {
		l := &g.layers[i]
		s := &g.slots[i]

		comp := g.compNode(i, PhaseForward)
		if g.strategy == StrategyModel {
			if i > 0 {
				if err := g.require(comp, g.slots[i-1].fwdComm, i, "previous layer forward collective"); err != nil {
					return lastComm, err
				}
			}
			link(comp, s.wgComp)
		} else {
			link(comp, s.wgComm)
			if i > 0 {
				if err := g.require(comp, g.slots[i-1].fwdComm, i, "previous layer forward collective"); err != nil {
					return lastComm, err
				}
			}
		}
		s.fwdComp.put(comp)
		if err := g.emit(comp); err != nil {
			return lastComm, err
		}

		comm := g.commNode(l.Name, l.Forward, m)
		dependOn(comm, comp)
		s.fwdComm.put(comm)
		lastComm.put(comm)
		if err := g.emit(comm); err != nil {
			return lastComm, err
		}
	}
	return lastComm, nil
}

// modelBackward runs the backward sweep shared by MODEL and the hybrids.
// igLabel, when non-nil, names the input-gradient collective of a layer in
// place of the layer name. When wgMask is non-nil a weight-gradient collective over that
// mask follows every weight-gradient compute.
func modelBackward(g *graph, lastFwdComm slot, m dimMask, igLabel func(int) string, wgMask *dimMask) error {
	last := len(g.layers) - 1
	for i := last; i >= 0; i-- {
		l := &g.layers[i]
		s := &g.slots[i]

		ig := g.compNode(i, PhaseInputGrad)
		if i == last {
			if err := g.require(ig, lastFwdComm, i, "last forward collective"); err != nil {
				return err
			}
		} else {
			next := &g.slots[i+1]
			if err := g.require(ig, next.wgComp, i, "next layer weight-gradient compute"); err != nil {
				return err
			}
			if err := g.require(ig, next.igComm, i, "next layer input-gradient collective"); err != nil {
				return err
			}
		}
		s.igComp.put(ig)
		if err := g.emit(ig); err != nil {
			return err
		}

		if i != 0 {
			label := l.Name
			if igLabel != nil {
				label = igLabel(i)
			}
			comm := g.commNode(label, l.InputGrad, m)
			dependOn(comm, ig)
			s.igComm.put(comm)
			if err := g.emit(comm); err != nil {
				return err
			}
		}

		wg := g.compNode(i, PhaseWeightGrad)
		dependOn(wg, ig)
		s.wgComp.put(wg)
		if err := g.emit(wg); err != nil {
			return err
		}

		if wgMask == nil {
			continue
		}
		comm := g.commNode(l.Name, l.WeightGrad, *wgMask)
		dependOn(comm, wg)
		s.wgComm.put(comm)
		if err := g.emit(comm); err != nil {
			return err
		}
	}
	return nil
}
