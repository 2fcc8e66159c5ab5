package model

// CellKey identifies a grid cell by its coordinates rounded to two decimals.
type CellKey struct {
	Lat float64
	Lon float64
}

type ZoneType string

const (
	ZoneCommercial  ZoneType = "Commercial Zone"
	ZoneBalanced    ZoneType = "Balanced Zone"
	ZoneOpportunity ZoneType = "Opportunity Zone"
)

// Color is the map marker colour used for the zone tier.
func (t ZoneType) Color() string {
	switch t {
	case ZoneCommercial:
		return "red"
	case ZoneBalanced:
		return "orange"
	default:
		return "blue"
	}
}

// Zone is one classified grid cell of a single classification run.
type Zone struct {
	ZoneLat           float64        `json:"zone_lat" csv:"zone_lat"`
	ZoneLon           float64        `json:"zone_lon" csv:"zone_lon"`
	BusinessCount     int            `json:"business_count" csv:"business_count"`
	TransportCount    int            `json:"transport_count" csv:"transport_count"`
	Population        int            `json:"population" csv:"population"`
	BizLog            float64        `json:"biz_log" csv:"biz_log"`
	TransLog          float64        `json:"trans_log" csv:"trans_log"`
	PopLog            float64        `json:"pop_log" csv:"pop_log"`
	BizScore          float64        `json:"biz_score" csv:"biz_score"`
	TransScore        float64        `json:"trans_score" csv:"trans_score"`
	PopScore          float64        `json:"pop_score" csv:"pop_score"`
	BaseZoneScore     float64        `json:"base_zone_score" csv:"base_zone_score"`
	SaturationPenalty float64        `json:"saturation_penalty" csv:"saturation_penalty"`
	OpportunityBoost  float64        `json:"opportunity_boost" csv:"opportunity_boost"`
	AdjustedZoneScore float64        `json:"adjusted_zone_score" csv:"adjusted_zone_score"`
	ZoneType          ZoneType       `json:"zone_type" csv:"zone_type"`
	Categories        map[string]int `json:"categories,omitempty" csv:"-"`
}

func (z Zone) Key() CellKey {
	return CellKey{Lat: z.ZoneLat, Lon: z.ZoneLon}
}

// Summary aggregates a classification run.
type Summary struct {
	TotalZones int                `json:"total_zones"`
	ByType     map[ZoneType]int   `json:"by_type"`
	AvgScores  map[string]float64 `json:"avg_scores"`
}
