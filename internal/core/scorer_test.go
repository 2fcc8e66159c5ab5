package core

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/namrata935/polycentric-el/internal/domain/model"
)

var center = model.CellKey{Lat: 12.97, Lon: 77.59}

// ladder builds n cells where cell k holds k businesses and k transit nodes.
func ladder(n int) (map[model.CellKey]int, map[model.CellKey]int) {
	business := make(map[model.CellKey]int, n)
	transit := make(map[model.CellKey]int, n)
	for k := 1; k <= n; k++ {
		key := CellOf(12.90+float64(k)/100, 77.59)
		business[key] = k
		transit[key] = k
	}
	return business, transit
}

func countTypes(zones []model.Zone) map[model.ZoneType]int {
	out := make(map[model.ZoneType]int)
	for _, z := range zones {
		out[z.ZoneType]++
	}
	return out
}

func TestParseStrategy(t *testing.T) {
	s, err := ParseStrategy("")
	require.NoError(t, err)
	assert.Equal(t, StrategyOpportunityAdjusted, s)

	s, err = ParseStrategy(" PLAIN ")
	require.NoError(t, err)
	assert.Equal(t, StrategyPlain, s)

	_, err = ParseStrategy("weighted")
	assert.Error(t, err)
}

func TestNewZoneScorer_Defaults(t *testing.T) {
	opts := NewZoneScorer(ScoringOptions{}).Options()
	assert.Equal(t, StrategyOpportunityAdjusted, opts.Strategy)
	assert.Equal(t, 0.90, opts.HighQuantile)
	assert.Equal(t, 0.60, opts.MidQuantile)

	opts = NewZoneScorer(ScoringOptions{Strategy: StrategyPlain}).Options()
	assert.Equal(t, 0.85, opts.HighQuantile)
	assert.Equal(t, 0.55, opts.MidQuantile)

	opts = NewZoneScorer(ScoringOptions{HighQuantile: 0.95, MidQuantile: 0.5}).Options()
	assert.Equal(t, 0.95, opts.HighQuantile)
	assert.Equal(t, 0.5, opts.MidQuantile)
}

func TestClassify_SingleZone(t *testing.T) {
	scorer := NewZoneScorer(ScoringOptions{})

	zones := scorer.Classify(
		map[model.CellKey]int{center: 5},
		map[model.CellKey]int{center: 2},
	)

	require.Len(t, zones, 1)
	z := zones[0]
	assert.Equal(t, 12.97, z.ZoneLat)
	assert.Equal(t, 77.59, z.ZoneLon)
	assert.Equal(t, 5, z.BusinessCount)
	assert.Equal(t, 2, z.TransportCount)
	assert.Equal(t, 2500, z.Population)
	assert.InDelta(t, math.Log1p(5), z.BizLog, 1e-12)
	assert.InDelta(t, math.Log1p(2), z.TransLog, 1e-12)
	assert.InDelta(t, math.Log1p(2500), z.PopLog, 1e-12)
	assert.InDelta(t, 1.0, z.BizScore, 1e-12)
	assert.InDelta(t, 1.0, z.TransScore, 1e-12)
	assert.InDelta(t, 1.0, z.PopScore, 1e-12)
	assert.InDelta(t, 1.0, z.BaseZoneScore, 1e-12)
	assert.InDelta(t, 1.0, z.SaturationPenalty, 1e-12)
	assert.InDelta(t, 0.0, z.OpportunityBoost, 1e-12)
	assert.InDelta(t, 0.8, z.AdjustedZoneScore, 1e-12)
	assert.Equal(t, model.ZoneCommercial, z.ZoneType)
}

func TestClassify_TransitOnlyCell(t *testing.T) {
	scorer := NewZoneScorer(ScoringOptions{})

	zones := scorer.Classify(nil, map[model.CellKey]int{center: 2})

	require.Len(t, zones, 1)
	z := zones[0]
	assert.Equal(t, 0, z.BusinessCount)
	assert.Equal(t, 1000, z.Population)
	assert.Equal(t, 0.0, z.BizScore)
	assert.InDelta(t, 0.70, z.BaseZoneScore, 1e-12)
	assert.InDelta(t, 1.0, z.OpportunityBoost, 1e-12)
	assert.InDelta(t, 0.95, z.AdjustedZoneScore, 1e-12)
}

func TestClassify_SparsityFilter(t *testing.T) {
	scorer := NewZoneScorer(ScoringOptions{})
	other := model.CellKey{Lat: 12.98, Lon: 77.60}

	zones := scorer.Classify(
		map[model.CellKey]int{center: 1, other: 1},
		map[model.CellKey]int{center: 1},
	)

	require.Len(t, zones, 1)
	assert.Equal(t, center, zones[0].Key())
}

func TestClassify_EmptyResult(t *testing.T) {
	scorer := NewZoneScorer(ScoringOptions{})

	zones := scorer.Classify(map[model.CellKey]int{center: 1}, nil)
	assert.NotNil(t, zones)
	assert.Empty(t, zones)

	zones = scorer.Classify(nil, nil)
	assert.NotNil(t, zones)
	assert.Empty(t, zones)
}

func TestClassify_LadderTiers(t *testing.T) {
	business, transit := ladder(20)

	zones := NewZoneScorer(ScoringOptions{}).Classify(business, transit)

	require.Len(t, zones, 20)
	types := countTypes(zones)
	assert.Equal(t, 2, types[model.ZoneCommercial])
	assert.Equal(t, 6, types[model.ZoneBalanced])
	assert.Equal(t, 12, types[model.ZoneOpportunity])

	// Cells are ordered by latitude, so scores rise with the index.
	for i := 1; i < len(zones); i++ {
		assert.Greater(t, zones[i].AdjustedZoneScore, zones[i-1].AdjustedZoneScore)
	}
	assert.Equal(t, model.ZoneCommercial, zones[19].ZoneType)
	assert.Equal(t, model.ZoneCommercial, zones[18].ZoneType)
	assert.Equal(t, model.ZoneBalanced, zones[17].ZoneType)
	assert.Equal(t, model.ZoneOpportunity, zones[0].ZoneType)
}

func TestClassify_Invariants(t *testing.T) {
	business, transit := ladder(37)
	business[model.CellKey{Lat: 13.5, Lon: 77.1}] = 40
	transit[model.CellKey{Lat: 13.6, Lon: 77.2}] = 3

	zones := NewZoneScorer(ScoringOptions{}).Classify(business, transit)
	require.NotEmpty(t, zones)

	var bizMax, transMax, popMax float64
	commercial := 0
	for _, z := range zones {
		assert.GreaterOrEqual(t, z.BusinessCount+z.TransportCount, 2)
		assert.Equal(t, 300*z.BusinessCount+500*z.TransportCount, z.Population)
		for _, v := range []float64{z.BizScore, z.TransScore, z.PopScore, z.AdjustedZoneScore} {
			assert.GreaterOrEqual(t, v, 0.0)
			assert.LessOrEqual(t, v, 1.0)
		}
		assert.Contains(t, []model.ZoneType{model.ZoneCommercial, model.ZoneBalanced, model.ZoneOpportunity}, z.ZoneType)
		if z.ZoneType == model.ZoneCommercial {
			commercial++
		}
		bizMax = math.Max(bizMax, z.BizScore)
		transMax = math.Max(transMax, z.TransScore)
		popMax = math.Max(popMax, z.PopScore)
	}
	assert.InDelta(t, 1.0, bizMax, 1e-12)
	assert.InDelta(t, 1.0, transMax, 1e-12)
	assert.InDelta(t, 1.0, popMax, 1e-12)
	assert.LessOrEqual(t, float64(commercial), math.Ceil(0.1*float64(len(zones))))
}

func TestClassify_Deterministic(t *testing.T) {
	business, transit := ladder(15)
	scorer := NewZoneScorer(ScoringOptions{})

	assert.Equal(t, scorer.Classify(business, transit), scorer.Classify(business, transit))
}

func TestClassify_DoesNotMutateInputs(t *testing.T) {
	business := map[model.CellKey]int{center: 3}
	transit := map[model.CellKey]int{center: 1}

	NewZoneScorer(ScoringOptions{}).Classify(business, transit)

	assert.Equal(t, map[model.CellKey]int{center: 3}, business)
	assert.Equal(t, map[model.CellKey]int{center: 1}, transit)
}

func TestClassify_PlainStrategy(t *testing.T) {
	business, transit := ladder(20)

	zones := NewZoneScorer(ScoringOptions{Strategy: StrategyPlain}).Classify(business, transit)

	for _, z := range zones {
		assert.Equal(t, z.BaseZoneScore, z.AdjustedZoneScore)
	}
	// 0.85 of 19 is 16.15, so the top three cells clear the cutoff.
	assert.Equal(t, 3, countTypes(zones)[model.ZoneCommercial])
}

func TestClassifyScore_InclusiveCutoffs(t *testing.T) {
	assert.Equal(t, model.ZoneCommercial, classifyScore(0.8, 0.8, 0.5))
	assert.Equal(t, model.ZoneBalanced, classifyScore(0.5, 0.8, 0.5))
	assert.Equal(t, model.ZoneOpportunity, classifyScore(0.49, 0.8, 0.5))
}

func TestClamp01(t *testing.T) {
	assert.Equal(t, 0.0, clamp01(-0.2))
	assert.Equal(t, 1.0, clamp01(1.3))
	assert.Equal(t, 0.4, clamp01(0.4))
}

func TestClassify_JoinDropsSparseTransitCell(t *testing.T) {
	lone := model.CellKey{Lat: 13.00, Lon: 77.60}

	zones := NewZoneScorer(ScoringOptions{}).Classify(
		map[model.CellKey]int{center: 5},
		map[model.CellKey]int{center: 2, lone: 1},
	)

	require.Len(t, zones, 1)
	assert.Equal(t, center, zones[0].Key())
	assert.Equal(t, 5, zones[0].BusinessCount)
	assert.Equal(t, 2, zones[0].TransportCount)
}
