package core

import (
	"math"

	"github.com/namrata935/polycentric-el/internal/domain/model"
)

// cellPrecision is 10^decimals used for coordinate rounding (~1.1 km cells).
const cellPrecision = 100

// RoundCoord rounds a coordinate to two decimals, half away from zero.
// Every layer must be bucketed through this function or cells will not join.
func RoundCoord(v float64) float64 {
	r := math.Round(v*cellPrecision) / cellPrecision
	if r == 0 {
		return 0
	}
	return r
}

func CellOf(lat, lon float64) model.CellKey {
	return model.CellKey{Lat: RoundCoord(lat), Lon: RoundCoord(lon)}
}

// Aggregate counts points per grid cell. Cells without points have no entry.
func Aggregate(points []model.Point) map[model.CellKey]int {
	counts := make(map[model.CellKey]int)
	for _, p := range points {
		counts[CellOf(p.Lat, p.Lon)]++
	}
	return counts
}

// CategoryMix counts point categories per grid cell for display.
func CategoryMix(points []model.Point) map[model.CellKey]map[string]int {
	mix := make(map[model.CellKey]map[string]int)
	for _, p := range points {
		if p.Category == "" {
			continue
		}
		key := CellOf(p.Lat, p.Lon)
		if mix[key] == nil {
			mix[key] = make(map[string]int)
		}
		mix[key][p.Category]++
	}
	return mix
}
