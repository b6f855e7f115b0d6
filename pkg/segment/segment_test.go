package segment

import (
	"encoding/json"
	"errors"
	"math"
	"math/rand"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAssignBoundaries(t *testing.T) {
	tests := []struct {
		p    float64
		want RiskSegment
	}{
		{0, Low},
		{0.3, Low},
		{0.30001, Medium},
		{0.5, Medium},
		{0.7, Medium},
		{0.70001, High},
		{1, High},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Assign(tt.p), "p=%v", tt.p)
	}
}

func TestAssignIsMonotonic(t *testing.T) {
	rnd := rand.New(rand.NewSource(7))
	probs := make([]float64, 2000)
	for i := range probs {
		probs[i] = rnd.Float64()
	}
	probs = append(probs, 0, MediumThreshold, HighThreshold, 1)
	sort.Float64s(probs)

	prev := Low
	for _, p := range probs {
		s := Assign(p)
		require.True(t, s.Valid(), "p=%v", p)
		require.GreaterOrEqual(t, s, prev, "p=%v", p)
		prev = s
	}
}

func TestDistributionScenario(t *testing.T) {
	probs := []float64{0.05, 0.25, 0.3, 0.31, 0.5, 0.69, 0.7, 0.71, 0.9, 0.99}

	counts, warnings := Distribution(AssignAll(probs))

	assert.Empty(t, warnings)
	assert.Equal(t, []Count{
		{Segment: Low, Count: 3, Share: 0.3},
		{Segment: Medium, Count: 4, Share: 0.4},
		{Segment: High, Count: 3, Share: 0.3},
	}, counts)
}

func TestDistributionKeepsEmptyTiers(t *testing.T) {
	segs := AssignAll([]float64{0.1, 0.2, 0.9})

	counts, warnings := Distribution(segs)

	require.Len(t, counts, 3)
	assert.Equal(t, Medium, counts[1].Segment)
	assert.Equal(t, 0, counts[1].Count)
	total := 0
	for _, c := range counts {
		total += c.Count
	}
	assert.Equal(t, len(segs), total)

	require.Len(t, warnings, 1)
	var empty *EmptySegmentError
	require.True(t, errors.As(warnings[0], &empty))
	assert.Equal(t, Medium, empty.Segment)
}

func TestDistributionOfNobody(t *testing.T) {
	counts, warnings := Distribution(nil)
	assert.Len(t, counts, 3)
	assert.Len(t, warnings, 3)
	for _, c := range counts {
		assert.Zero(t, c.Share)
	}
}

func TestProfile(t *testing.T) {
	segs := []RiskSegment{Low, Low, High, High}
	rows, err := Profile(segs, map[string][]float64{
		"Tenure":         {10, 20, 1, math.NaN()},
		"CashbackAmount": {200, 100, 120, 140},
	})
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, 2, rows[Low].Count)
	assert.Equal(t, 15.0, rows[Low].Means["Tenure"])
	assert.Equal(t, 150.0, rows[Low].Means["CashbackAmount"])

	assert.Equal(t, 0, rows[Medium].Count)
	assert.Equal(t, 0.0, rows[Medium].Means["Tenure"])

	assert.Equal(t, 1.0, rows[High].Means["Tenure"])
	assert.Equal(t, 130.0, rows[High].Means["CashbackAmount"])

	_, err = Profile(segs, map[string][]float64{"Tenure": {1}})
	assert.Error(t, err)
}

func TestParseAndText(t *testing.T) {
	for _, s := range All {
		got, err := Parse(s.String())
		require.NoError(t, err)
		assert.Equal(t, s, got)
	}
	got, err := Parse(" high ")
	require.NoError(t, err)
	assert.Equal(t, High, got)

	_, err = Parse("Alto Riesgo")
	assert.Error(t, err)

	raw, err := json.Marshal(Count{Segment: Medium, Count: 2, Share: 1})
	require.NoError(t, err)
	assert.JSONEq(t, `{"segment":"Medium","count":2,"share":1}`, string(raw))

	var c Count
	require.NoError(t, json.Unmarshal(raw, &c))
	assert.Equal(t, Medium, c.Segment)

	_, err = RiskSegment(9).MarshalText()
	assert.Error(t, err)
}

func TestRecommendedActionCoversTiers(t *testing.T) {
	seen := map[string]bool{}
	for _, s := range All {
		a := RecommendedAction(s)
		assert.NotEmpty(t, a)
		seen[a] = true
	}
	assert.Len(t, seen, 3)
}
