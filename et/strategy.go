package et

import "sort"

// Strategy selects the graph-building algorithm for a schedule.
type Strategy int

const (
	StrategyMicro Strategy = iota
	StrategyData
	StrategyModel
	StrategyHybridDataModel
	StrategyHybridModelData
	StrategyCustom
	StrategyHybridDLRM
)

// strategyTags maps mode tags to strategies. Both DLRM tags share one builder.
var strategyTags = map[string]Strategy{
	"MICRO":                StrategyMicro,
	"DATA":                 StrategyData,
	"MODEL":                StrategyModel,
	"HYBRID_DATA_MODEL":    StrategyHybridDataModel,
	"HYBRID_MODEL_DATA":    StrategyHybridModelData,
	"CUSTOM":               StrategyCustom,
	"HYBRID_DLRM":          StrategyHybridDLRM,
	"HYBRID_DLRM_ENHANCED": StrategyHybridDLRM,
}

// ParseStrategy resolves a mode tag. Unknown tags return *UnsupportedStrategyError.
func ParseStrategy(tag string) (Strategy, error) {
	s, ok := strategyTags[tag]
	if !ok {
		return 0, &UnsupportedStrategyError{Tag: tag}
	}
	return s, nil
}

// StrategyTags returns every accepted mode tag, sorted.
func StrategyTags() []string {
	tags := make([]string, 0, len(strategyTags))
	for tag := range strategyTags {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return tags
}

func (s Strategy) String() string {
	switch s {
	case StrategyMicro:
		return "MICRO"
	case StrategyData:
		return "DATA"
	case StrategyModel:
		return "MODEL"
	case StrategyHybridDataModel:
		return "HYBRID_DATA_MODEL"
	case StrategyHybridModelData:
		return "HYBRID_MODEL_DATA"
	case StrategyCustom:
		return "CUSTOM"
	case StrategyHybridDLRM:
		return "HYBRID_DLRM"
	default:
		return "UNKNOWN"
	}
}

// NeedsBoundary reports whether the mode line must carry the bottom/top boundary index.
func (s Strategy) NeedsBoundary() bool {
	return s == StrategyHybridDLRM
}

// EmitsMetadata reports whether device traces start with a GlobalMetadata record.
// CUSTOM traces carry none.
func (s Strategy) EmitsMetadata() bool {
	return s != StrategyCustom
}

// passBuilder runs one forward and one backward sweep.
type passBuilder func(g *graph) error

// builderFor is the strategy dispatcher.
func builderFor(s Strategy) (passBuilder, error) {
	switch s {
	case StrategyMicro:
		return buildMicroPass, nil
	case StrategyData:
		return buildDataPass, nil
	case StrategyModel:
		return buildModelPass, nil
	case StrategyHybridDataModel:
		return hybridPass(dataModelMasks), nil
	case StrategyHybridModelData:
		return hybridPass(modelDataMasks), nil
	case StrategyCustom:
		return buildCustomPass, nil
	case StrategyHybridDLRM:
		return buildDLRMPass, nil
	default:
		return nil, &UnsupportedStrategyError{Tag: s.String()}
	}
}
