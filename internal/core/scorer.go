package core

import (
	"math"
	"sort"
	"strings"

	"github.com/montanaflynn/stats"
	"github.com/rotisserie/eris"

	"github.com/namrata935/polycentric-el/internal/domain/model"
)

// Strategy selects the composite scoring formula.
type Strategy string

const (
	// StrategyOpportunityAdjusted applies the saturation penalty and the
	// opportunity boost on top of the weighted base score.
	StrategyOpportunityAdjusted Strategy = "opportunity_adjusted"
	// StrategyPlain classifies on the weighted base score alone.
	StrategyPlain Strategy = "plain"
)

func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(strings.ToLower(strings.TrimSpace(s))) {
	case StrategyOpportunityAdjusted, "":
		return StrategyOpportunityAdjusted, nil
	case StrategyPlain:
		return StrategyPlain, nil
	default:
		return "", eris.Errorf("scoring: unknown strategy %q", s)
	}
}

const (
	minPointsPerZone     = 2
	peoplePerBusiness    = 300
	peoplePerTransitNode = 500

	popWeight   = 0.35
	transWeight = 0.35
	bizWeight   = 0.30

	saturationWeight  = 0.20
	opportunityWeight = 0.25
)

// ScoringOptions configures a ZoneScorer.
type ScoringOptions struct {
	Strategy     Strategy
	HighQuantile float64
	MidQuantile  float64
}

// DefaultScoringOptions returns the cutoffs associated with a strategy:
// 0.90/0.60 for the adjusted formula, 0.85/0.55 for the plain one.
func DefaultScoringOptions(strategy Strategy) ScoringOptions {
	if strategy == StrategyPlain {
		return ScoringOptions{Strategy: StrategyPlain, HighQuantile: 0.85, MidQuantile: 0.55}
	}
	return ScoringOptions{Strategy: StrategyOpportunityAdjusted, HighQuantile: 0.90, MidQuantile: 0.60}
}

// ZoneScorer turns per-cell counts into a classified zone set. It holds no
// state between calls.
type ZoneScorer struct {
	opts ScoringOptions
}

func NewZoneScorer(opts ScoringOptions) *ZoneScorer {
	if opts.Strategy == "" {
		opts.Strategy = StrategyOpportunityAdjusted
	}
	defaults := DefaultScoringOptions(opts.Strategy)
	if opts.HighQuantile <= 0 {
		opts.HighQuantile = defaults.HighQuantile
	}
	if opts.MidQuantile <= 0 {
		opts.MidQuantile = defaults.MidQuantile
	}
	return &ZoneScorer{opts: opts}
}

func (s *ZoneScorer) Options() ScoringOptions {
	return s.opts
}

// Classify joins the business and transit counts, drops sparse cells and
// scores and classifies the survivors. Zones are ordered by (lat, lon).
func (s *ZoneScorer) Classify(business, transit map[model.CellKey]int) []model.Zone {
	zones := filterSparse(joinCells(business, transit))
	if len(zones) == 0 {
		return []model.Zone{}
	}

	zones = withPopulation(zones)
	zones = withLogFeatures(zones)
	zones = normalize(zones)
	zones = s.score(zones)
	return s.classify(zones)
}

func joinCells(business, transit map[model.CellKey]int) []model.Zone {
	keys := make(map[model.CellKey]struct{}, len(business)+len(transit))
	for k := range business {
		keys[k] = struct{}{}
	}
	for k := range transit {
		keys[k] = struct{}{}
	}

	zones := make([]model.Zone, 0, len(keys))
	for k := range keys {
		zones = append(zones, model.Zone{
			ZoneLat:        k.Lat,
			ZoneLon:        k.Lon,
			BusinessCount:  business[k],
			TransportCount: transit[k],
		})
	}
	sort.Slice(zones, func(i, j int) bool {
		if zones[i].ZoneLat != zones[j].ZoneLat {
			return zones[i].ZoneLat < zones[j].ZoneLat
		}
		return zones[i].ZoneLon < zones[j].ZoneLon
	})
	return zones
}

func filterSparse(in []model.Zone) []model.Zone {
	out := make([]model.Zone, 0, len(in))
	for _, z := range in {
		if z.BusinessCount+z.TransportCount >= minPointsPerZone {
			out = append(out, z)
		}
	}
	return out
}

func withPopulation(in []model.Zone) []model.Zone {
	out := clone(in)
	for i := range out {
		out[i].Population = out[i].BusinessCount*peoplePerBusiness + out[i].TransportCount*peoplePerTransitNode
	}
	return out
}

func withLogFeatures(in []model.Zone) []model.Zone {
	out := clone(in)
	for i := range out {
		out[i].BizLog = math.Log1p(float64(out[i].BusinessCount))
		out[i].TransLog = math.Log1p(float64(out[i].TransportCount))
		out[i].PopLog = math.Log1p(float64(out[i].Population))
	}
	return out
}

// normalize divides each log feature by its maximum over the whole set.
func normalize(in []model.Zone) []model.Zone {
	out := clone(in)
	bizMax := columnMax(out, func(z model.Zone) float64 { return z.BizLog })
	transMax := columnMax(out, func(z model.Zone) float64 { return z.TransLog })
	popMax := columnMax(out, func(z model.Zone) float64 { return z.PopLog })
	for i := range out {
		out[i].BizScore = ratio(out[i].BizLog, bizMax)
		out[i].TransScore = ratio(out[i].TransLog, transMax)
		out[i].PopScore = ratio(out[i].PopLog, popMax)
	}
	return out
}

func (s *ZoneScorer) score(in []model.Zone) []model.Zone {
	out := clone(in)
	for i := range out {
		z := &out[i]
		z.BaseZoneScore = popWeight*z.PopScore + transWeight*z.TransScore + bizWeight*z.BizScore
		z.SaturationPenalty = z.BizScore * z.BizScore
		z.OpportunityBoost = (1 - z.BizScore) * z.PopScore

		adjusted := z.BaseZoneScore
		if s.opts.Strategy == StrategyOpportunityAdjusted {
			adjusted = z.BaseZoneScore - saturationWeight*z.SaturationPenalty + opportunityWeight*z.OpportunityBoost
		}
		z.AdjustedZoneScore = clamp01(adjusted)
	}
	return out
}

func (s *ZoneScorer) classify(in []model.Zone) []model.Zone {
	out := clone(in)
	scores := column(out, func(z model.Zone) float64 { return z.AdjustedZoneScore })
	high := Quantile(scores, s.opts.HighQuantile)
	mid := Quantile(scores, s.opts.MidQuantile)
	for i := range out {
		out[i].ZoneType = classifyScore(out[i].AdjustedZoneScore, high, mid)
	}
	return out
}

// classifyScore treats both cutoffs as inclusive lower bounds.
func classifyScore(score, high, mid float64) model.ZoneType {
	switch {
	case score >= high:
		return model.ZoneCommercial
	case score >= mid:
		return model.ZoneBalanced
	default:
		return model.ZoneOpportunity
	}
}

func clone(in []model.Zone) []model.Zone {
	out := make([]model.Zone, len(in))
	copy(out, in)
	return out
}

func column(zones []model.Zone, get func(model.Zone) float64) stats.Float64Data {
	data := make(stats.Float64Data, len(zones))
	for i, z := range zones {
		data[i] = get(z)
	}
	return data
}

func columnMax(zones []model.Zone, get func(model.Zone) float64) float64 {
	m, err := stats.Max(column(zones, get))
	if err != nil {
		return 0
	}
	return m
}

func ratio(v, peak float64) float64 {
	if peak <= 0 {
		return 0
	}
	return v / peak
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
