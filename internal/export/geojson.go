package export

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"

	"github.com/namrata935/polycentric-el/internal/core"
	"github.com/namrata935/polycentric-el/internal/domain/model"
)

// WriteGeoJSON writes the zones as a FeatureCollection of cell polygons.
func WriteGeoJSON(w io.Writer, zones []model.Zone) error {
	fc := geojson.FeatureCollection{Features: make([]*geojson.Feature, 0, len(zones))}
	for _, z := range zones {
		feature, err := zoneFeature(z)
		if err != nil {
			return err
		}
		fc.Features = append(fc.Features, feature)
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(&fc); err != nil {
		return eris.Wrap(err, "export: encode geojson")
	}
	return nil
}

func zoneFeature(z model.Zone) (*geojson.Feature, error) {
	b := core.CellBounds(z.Key())
	ring := []geom.Coord{
		{b.MinLon, b.MinLat},
		{b.MaxLon, b.MinLat},
		{b.MaxLon, b.MaxLat},
		{b.MinLon, b.MaxLat},
		{b.MinLon, b.MinLat},
	}
	polygon, err := geom.NewPolygon(geom.XY).SetCoords([][]geom.Coord{ring})
	if err != nil {
		return nil, eris.Wrapf(err, "export: cell polygon (%v, %v)", z.ZoneLat, z.ZoneLon)
	}

	return &geojson.Feature{
		ID:       fmt.Sprintf("%.2f,%.2f", z.ZoneLat, z.ZoneLon),
		Geometry: polygon,
		Properties: map[string]interface{}{
			"zone_lat":            z.ZoneLat,
			"zone_lon":            z.ZoneLon,
			"zone_type":           string(z.ZoneType),
			"color":               z.ZoneType.Color(),
			"business_count":      z.BusinessCount,
			"transport_count":     z.TransportCount,
			"population":          z.Population,
			"adjusted_zone_score": z.AdjustedZoneScore,
			"base_zone_score":     z.BaseZoneScore,
			"area_km2":            core.CellAreaKm2(b),
		},
	}, nil
}
