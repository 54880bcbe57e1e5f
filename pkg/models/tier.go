package models

// Tier represents the model capability tier an agent runs on.
type Tier string

const (
	// TierLight is for cheap, fast lookups and summaries.
	TierLight Tier = "light"
	// TierStandard is for ordinary operational requests.
	TierStandard Tier = "standard"
	// TierDeep is for multi-step diagnosis and schema-touching work.
	TierDeep Tier = "deep"
)

// Valid returns true if the tier is a known value.
func (t Tier) Valid() bool {
	switch t {
	case TierLight, TierStandard, TierDeep:
		return true
	default:
		return false
	}
}
