package spot

import (
	"encoding/json"
	"strings"
)

// Likelihood is the ordinal SafeSearch scale reported by the vision provider.
type Likelihood int

const (
	LikelihoodUnknown Likelihood = iota
	LikelihoodVeryUnlikely
	LikelihoodUnlikely
	LikelihoodPossible
	LikelihoodLikely
	LikelihoodVeryLikely
)

var likelihoodNames = [...]string{
	"UNKNOWN",
	"VERY_UNLIKELY",
	"UNLIKELY",
	"POSSIBLE",
	"LIKELY",
	"VERY_LIKELY",
}

func (l Likelihood) String() string {
	if l < LikelihoodUnknown || l > LikelihoodVeryLikely {
		return likelihoodNames[LikelihoodUnknown]
	}
	return likelihoodNames[l]
}

// ParseLikelihood maps a provider string onto the scale. Anything unrecognised is UNKNOWN.
func ParseLikelihood(s string) Likelihood {
	s = strings.ToUpper(strings.TrimSpace(s))
	for i, name := range likelihoodNames {
		if name == s {
			return Likelihood(i)
		}
	}
	return LikelihoodUnknown
}

// AtLeast reports whether l is at or above floor on the ordinal scale.
func (l Likelihood) AtLeast(floor Likelihood) bool {
	return l >= floor
}

func (l Likelihood) MarshalJSON() ([]byte, error) {
	return json.Marshal(l.String())
}

func (l *Likelihood) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		var n int
		if err := json.Unmarshal(data, &n); err != nil {
			*l = LikelihoodUnknown
			return nil
		}
		*l = Likelihood(n)
		if *l < LikelihoodUnknown || *l > LikelihoodVeryLikely {
			*l = LikelihoodUnknown
		}
		return nil
	}
	*l = ParseLikelihood(s)
	return nil
}
