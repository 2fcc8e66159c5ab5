package core

import (
	"github.com/montanaflynn/stats"

	"github.com/namrata935/polycentric-el/internal/domain/model"
)

// Summarize counts zones per tier and averages every score column. An empty
// run yields a zero total and empty maps.
func Summarize(zones []model.Zone) model.Summary {
	summary := model.Summary{
		TotalZones: len(zones),
		ByType:     make(map[model.ZoneType]int),
		AvgScores:  make(map[string]float64),
	}
	if len(zones) == 0 {
		return summary
	}

	for _, z := range zones {
		summary.ByType[z.ZoneType]++
	}

	columns := map[string]func(model.Zone) float64{
		"biz_score":           func(z model.Zone) float64 { return z.BizScore },
		"trans_score":         func(z model.Zone) float64 { return z.TransScore },
		"pop_score":           func(z model.Zone) float64 { return z.PopScore },
		"base_zone_score":     func(z model.Zone) float64 { return z.BaseZoneScore },
		"adjusted_zone_score": func(z model.Zone) float64 { return z.AdjustedZoneScore },
	}
	for name, get := range columns {
		mean, err := stats.Mean(column(zones, get))
		if err != nil {
			continue
		}
		summary.AvgScores[name] = mean
	}
	return summary
}
