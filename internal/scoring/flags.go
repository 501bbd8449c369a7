package scoring

import "sort"

// FlagCode classifies an advisory attached to a resolved value or a result.
type FlagCode string

const (
	FlagSuspectData       FlagCode = "suspect_data"
	FlagMissingSource     FlagCode = "missing_source"
	FlagStaleSnapshot     FlagCode = "stale_snapshot"
	FlagSubstitutedMedian FlagCode = "substituted_median"
	FlagGravePendency     FlagCode = "grave_pendency"
	FlagNotComputable     FlagCode = "not_computable"
	FlagPendingIndicators FlagCode = "pending_indicators"
)

// Flag is an audit note. Indicator is empty for result-wide flags.
type Flag struct {
	Code      FlagCode  `json:"code"`
	Indicator Indicator `json:"indicator,omitempty"`
	Detail    string    `json:"detail,omitempty"`
}

func (f Flag) String() string {
	if f.Indicator == "" {
		return string(f.Code)
	}
	return string(f.Code) + ":" + string(f.Indicator)
}

// sortFlags orders flags by code, then indicator, then detail, and drops exact duplicates.
func sortFlags(flags []Flag) []Flag {
	if len(flags) == 0 {
		return []Flag{}
	}
	out := make([]Flag, len(flags))
	copy(out, flags)
	sort.Slice(out, func(i, j int) bool {
		if out[i].Code != out[j].Code {
			return out[i].Code < out[j].Code
		}
		if out[i].Indicator != out[j].Indicator {
			return out[i].Indicator < out[j].Indicator
		}
		return out[i].Detail < out[j].Detail
	})
	dedup := out[:1]
	for _, f := range out[1:] {
		if f != dedup[len(dedup)-1] {
			dedup = append(dedup, f)
		}
	}
	return dedup
}

// HasFlag reports whether flags contains code, optionally scoped to an indicator ("" matches any).
func HasFlag(flags []Flag, code FlagCode, ind Indicator) bool {
	for _, f := range flags {
		if f.Code == code && (ind == "" || f.Indicator == ind) {
			return true
		}
	}
	return false
}
