package segment

import (
	"fmt"
	"math"
)

// EmptySegmentError flags a tier that received no customers. It is a
// warning: the tier is still reported with a zero count.
type EmptySegmentError struct {
	Segment RiskSegment
}

func (e *EmptySegmentError) Error() string {
	return fmt.Sprintf("segment: no customers in %s risk segment", e.Segment)
}

// Count is the size of one tier.
type Count struct {
	Segment RiskSegment `json:"segment"`
	Count   int         `json:"count"`
	Share   float64     `json:"share"`
}

// Distribution counts customers per tier. Every tier appears, in ascending
// order, even when empty; the counts always sum to len(segs). Empty tiers
// are returned as warnings.
func Distribution(segs []RiskSegment) ([]Count, []error) {
	counts := make([]Count, len(All))
	for i, s := range All {
		counts[i].Segment = s
	}
	for _, s := range segs {
		if s.Valid() {
			counts[s].Count++
		}
	}
	var warnings []error
	for i := range counts {
		if len(segs) > 0 {
			counts[i].Share = float64(counts[i].Count) / float64(len(segs))
		}
		if counts[i].Count == 0 {
			warnings = append(warnings, &EmptySegmentError{Segment: counts[i].Segment})
		}
	}
	return counts, warnings
}

// ProfileRow holds the mean of each profiled column within one tier.
type ProfileRow struct {
	Segment RiskSegment        `json:"segment"`
	Count   int                `json:"count"`
	Means   map[string]float64 `json:"means"`
}

// Profile averages each named column per tier. columns maps a column name
// to one value per customer, aligned with segs. NaN values are skipped.
// An empty tier yields Count 0 and zero means.
func Profile(segs []RiskSegment, columns map[string][]float64) ([]ProfileRow, error) {
	for name, vals := range columns {
		if len(vals) != len(segs) {
			return nil, fmt.Errorf("segment: column %q has %d values for %d customers", name, len(vals), len(segs))
		}
	}
	rows := make([]ProfileRow, len(All))
	for i, s := range All {
		rows[i] = ProfileRow{Segment: s, Means: make(map[string]float64, len(columns))}
	}
	for _, s := range segs {
		if s.Valid() {
			rows[s].Count++
		}
	}
	for name, vals := range columns {
		sums := make([]float64, len(All))
		ns := make([]int, len(All))
		for i, v := range vals {
			s := segs[i]
			if !s.Valid() || math.IsNaN(v) {
				continue
			}
			sums[s] += v
			ns[s]++
		}
		for i := range rows {
			if ns[i] > 0 {
				rows[i].Means[name] = sums[i] / float64(ns[i])
			} else {
				rows[i].Means[name] = 0
			}
		}
	}
	return rows, nil
}
