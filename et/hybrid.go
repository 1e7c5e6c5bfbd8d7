package et

// hybridMasks assigns mesh axes to the two communication roles of a hybrid
// strategy: model-style (forward and input-gradient) and data-style
// (weight-gradient) collectives.
type hybridMasks struct {
	model dimMask
	data  dimMask
	// igSuffix is appended to the layer name of input-gradient collectives.
	igSuffix string
}

var (
	// HYBRID_DATA_MODEL: model parallel along the first axis, data parallel along the rest.
	dataModelMasks = hybridMasks{model: maskFirst, data: maskRest, igSuffix: "_IG_COMM_"}
	// HYBRID_MODEL_DATA: the inverse assignment.
	modelDataMasks = hybridMasks{model: maskRest, data: maskFirst}
)

// hybridPass builds MODEL-shaped passes with an extra weight-gradient
// collective per backward layer.
func hybridPass(m hybridMasks) passBuilder {
	return func(g *graph) error {
		lastComm, err := modelForward(g, m.model)
		if err != nil {
			return err
		}
		var igLabel func(int) string
		if m.igSuffix != "" {
			igLabel = func(i int) string { return g.layers[i].Name + m.igSuffix }
		}
		return modelBackward(g, lastComm, m.model, igLabel, &m.data)
	}
}
