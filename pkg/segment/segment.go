// Package segment maps churn probabilities onto ordered risk tiers and
// summarizes populations per tier.
package segment

import (
	"fmt"
	"strings"
)

// Tier boundaries. A probability above MediumThreshold is at least Medium,
// above HighThreshold it is High. Both bounds belong to the lower tier.
const (
	MediumThreshold = 0.3
	HighThreshold   = 0.7
)

// RiskSegment is an ordered churn-risk tier: Low < Medium < High.
type RiskSegment int

const (
	Low RiskSegment = iota
	Medium
	High
)

// All lists the tiers in ascending order of risk.
var All = []RiskSegment{Low, Medium, High}

func (s RiskSegment) String() string {
	switch s {
	case Low:
		return "Low"
	case Medium:
		return "Medium"
	case High:
		return "High"
	}
	return fmt.Sprintf("RiskSegment(%d)", int(s))
}

// Valid reports whether s is one of the three tiers.
func (s RiskSegment) Valid() bool { return s >= Low && s <= High }

// Parse resolves a tier label, case-insensitively.
func Parse(label string) (RiskSegment, error) {
	for _, s := range All {
		if strings.EqualFold(strings.TrimSpace(label), s.String()) {
			return s, nil
		}
	}
	return 0, fmt.Errorf("segment: unknown risk segment %q", label)
}

// MarshalText implements encoding.TextMarshaler.
func (s RiskSegment) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("segment: invalid risk segment %d", int(s))
	}
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *RiskSegment) UnmarshalText(b []byte) error {
	v, err := Parse(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// Assign maps a churn probability to its tier:
//
//	p > 0.7        High
//	0.3 < p <= 0.7 Medium
//	p <= 0.3       Low
func Assign(p float64) RiskSegment {
	switch {
	case p > HighThreshold:
		return High
	case p > MediumThreshold:
		return Medium
	default:
		return Low
	}
}

// AssignAll maps every probability to its tier.
func AssignAll(probs []float64) []RiskSegment {
	out := make([]RiskSegment, len(probs))
	for i, p := range probs {
		out[i] = Assign(p)
	}
	return out
}

// RecommendedAction is the retention play suggested for a tier.
func RecommendedAction(s RiskSegment) string {
	switch s {
	case High:
		return "Trigger retention workflow: personal outreach and targeted cashback"
	case Medium:
		return "Send nudges and an incentive campaign"
	default:
		return "Maintain engagement cadence"
	}
}
