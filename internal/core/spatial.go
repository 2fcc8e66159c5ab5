package core

import (
	"math"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/namrata935/polycentric-el/internal/domain/model"
)

// cellHalfSide is half the side of a grid cell in degrees.
const cellHalfSide = 0.5 / cellPrecision

// CellBounds returns the square of coordinates that round to key.
func CellBounds(key model.CellKey) model.Bounds {
	return model.Bounds{
		MinLat: key.Lat - cellHalfSide,
		MinLon: key.Lon - cellHalfSide,
		MaxLat: key.Lat + cellHalfSide,
		MaxLon: key.Lon + cellHalfSide,
	}
}

// CellAreaKm2 approximates the area of a lat/lon box, correcting the
// degree-to-metre factors for latitude.
func CellAreaKm2(bounds model.Bounds) float64 {
	latMid := (bounds.MinLat + bounds.MaxLat) / 2 * math.Pi / 180
	dLat := bounds.MaxLat - bounds.MinLat
	dLon := bounds.MaxLon - bounds.MinLon

	kx := 111132.92 - 559.82*math.Cos(2*latMid)
	ky := 111412.84 * math.Cos(latMid)

	return math.Abs(dLat*kx*dLon*ky) / 1000000
}

// ValidCoordinate rejects non-finite and out-of-range coordinates.
func ValidCoordinate(lat, lon float64) bool {
	if math.IsNaN(lat) || math.IsNaN(lon) || math.IsInf(lat, 0) || math.IsInf(lon, 0) {
		return false
	}
	return lat >= -90 && lat <= 90 && lon >= -180 && lon <= 180
}

// ParseBounds parses "minLat,minLon,maxLat,maxLon".
func ParseBounds(bbox string) (model.Bounds, error) {
	parts := strings.Split(bbox, ",")
	if len(parts) != 4 {
		return model.Bounds{}, eris.Errorf("bbox must have 4 components, got %d", len(parts))
	}

	var vals [4]float64
	names := [4]string{"minLat", "minLon", "maxLat", "maxLon"}
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return model.Bounds{}, eris.Wrapf(err, "invalid %s", names[i])
		}
		vals[i] = v
	}
	b := model.Bounds{MinLat: vals[0], MinLon: vals[1], MaxLat: vals[2], MaxLon: vals[3]}

	if !ValidCoordinate(b.MinLat, b.MinLon) || !ValidCoordinate(b.MaxLat, b.MaxLon) {
		return model.Bounds{}, eris.New("bbox coordinates out of range")
	}
	if b.MinLat > b.MaxLat || b.MinLon > b.MaxLon {
		return model.Bounds{}, eris.New("bbox min must not exceed max")
	}
	return b, nil
}

// WithinBounds keeps the zones whose cell centre lies inside b.
func WithinBounds(zones []model.Zone, b model.Bounds) []model.Zone {
	out := make([]model.Zone, 0, len(zones))
	for _, z := range zones {
		if z.ZoneLat >= b.MinLat && z.ZoneLat <= b.MaxLat && z.ZoneLon >= b.MinLon && z.ZoneLon <= b.MaxLon {
			out = append(out, z)
		}
	}
	return out
}
