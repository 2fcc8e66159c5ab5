package model

// OSMElement is a tagged OpenStreetMap object reduced to a single coordinate.
// Ways carry the centroid of their member nodes.
type OSMElement struct {
	ID   int64             `json:"id"`
	Type string            `json:"type"`
	Lat  float64           `json:"lat"`
	Lon  float64           `json:"lon"`
	Tags map[string]string `json:"tags"`
}

type Bounds struct {
	MinLat float64
	MinLon float64
	MaxLat float64
	MaxLon float64
}
