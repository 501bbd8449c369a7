package scoring

// Tier is a discrete risk classification.
type Tier string

const (
	TierLowRisk    Tier = "low_risk"
	TierMediumRisk Tier = "medium_risk"
	TierHighRisk   Tier = "high_risk"
	TierCritical   Tier = "critical"
	// TierNoData is reserved for results without a score. Bands may not use it.
	TierNoData Tier = "no_data"
)

// NoDataLabel is the display label of TierNoData.
const NoDataLabel = "Sem Dados"

// Classification is the classifier output.
type Classification struct {
	Tier  Tier   `json:"tier"`
	Label string `json:"label"`
}

// Classify maps a score to the band whose lower bound it reaches. A nil score
// always yields TierNoData. Bands are assumed validated (ascending, first at 0);
// scores below the first band fall into it.
func Classify(score *float64, bands []Band) Classification {
	if score == nil || len(bands) == 0 {
		return Classification{Tier: TierNoData, Label: NoDataLabel}
	}
	match := bands[0]
	for _, b := range bands[1:] {
		if *score >= b.Min {
			match = b
		}
	}
	return Classification{Tier: match.Tier, Label: match.Label}
}
