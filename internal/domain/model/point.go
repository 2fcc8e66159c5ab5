package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// PointKind partitions ingested points into the two aggregated layers.
type PointKind string

const (
	KindBusiness PointKind = "business"
	KindTransit  PointKind = "transit"
)

// Point is the only view of stored records the zone pipeline needs.
type Point struct {
	Lat      float64   `db:"latitude"`
	Lon      float64   `db:"longitude"`
	Category string    `db:"category"`
	Kind     PointKind `db:"-"`
}

// Business categories, decided by tag presence in that order.
const (
	CategoryAmenity = "amenity"
	CategoryShop    = "shop"
	CategoryOffice  = "office"
	CategoryOther   = "other"
)

// Transit node types.
const (
	TransitBusStop        = "bus_stop"
	TransitRailwayStation = "railway_station"
	TransitSubwayEntrance = "subway_entrance"
)

type Business struct {
	ID        string  `db:"id" json:"id"`
	OSMID     int64   `db:"osm_id" json:"osm_id"`
	Name      *string `db:"name" json:"name"`
	Category  string  `db:"category" json:"category"`
	Latitude  float64 `db:"latitude" json:"latitude"`
	Longitude float64 `db:"longitude" json:"longitude"`
	RawTags   Tags    `db:"raw_tags" json:"raw_tags"`
}

type TransitNode struct {
	ID        int64   `db:"id" json:"id"`
	OSMID     string  `db:"osm_id" json:"osm_id"`
	Type      string  `db:"type" json:"type"`
	Name      *string `db:"name" json:"name"`
	Latitude  float64 `db:"latitude" json:"latitude"`
	Longitude float64 `db:"longitude" json:"longitude"`
}

// Tags stores OSM tags as a JSON document column.
type Tags map[string]string

// Value encodes tags as a JSON string so both jsonb and TEXT columns accept it.
func (t Tags) Value() (driver.Value, error) {
	if t == nil {
		return nil, nil
	}
	b, err := json.Marshal(t)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (t *Tags) Scan(src any) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*t = nil
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("tags: unsupported scan type %T", src)
	}
	if len(raw) == 0 {
		*t = nil
		return nil
	}
	return json.Unmarshal(raw, t)
}

// IngestResult reports the outcome of one load run.
type IngestResult struct {
	Status   string `json:"status"`
	Message  string `json:"message"`
	Inserted int    `json:"inserted"`
	Updated  int    `json:"updated"`
	Skipped  int    `json:"skipped"`
	Total    int    `json:"total"`
	Existing int    `json:"existing,omitempty"`
}

const (
	IngestStatusSuccess = "success"
	IngestStatusSkipped = "skipped"
)
