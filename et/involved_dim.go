package et

// dimMask selects which mesh axes a collective runs over.
type dimMask int

const (
	// maskAll: one flat communication group spanning every axis.
	maskAll dimMask = iota
	// maskFirst: only the first axis.
	maskFirst
	// maskRest: every axis except the first.
	maskRest
)

// involvedDims builds the involved_dim vector of length numDims.
func involvedDims(numDims int, m dimMask) []bool {
	dims := make([]bool, numDims)
	for i := range dims {
		switch m {
		case maskAll:
			dims[i] = true
		case maskFirst:
			dims[i] = i == 0
		case maskRest:
			dims[i] = i != 0
		}
	}
	return dims
}
