package core

import (
	"strconv"

	"github.com/namrata935/polycentric-el/internal/domain/model"
)

// ParseBusinesses converts tagged OSM elements into business records.
// Untagged elements and elements without a valid coordinate are skipped.
func ParseBusinesses(elements []model.OSMElement) ([]model.Business, int) {
	businesses := make([]model.Business, 0, len(elements))
	skipped := 0
	for _, el := range elements {
		if el.Type != "node" && el.Type != "way" {
			skipped++
			continue
		}
		if len(el.Tags) == 0 || !ValidCoordinate(el.Lat, el.Lon) {
			skipped++
			continue
		}
		businesses = append(businesses, model.Business{
			OSMID:     el.ID,
			Name:      pickName(el.Tags, "name:en", "name", "ref"),
			Category:  businessCategory(el.Tags),
			Latitude:  el.Lat,
			Longitude: el.Lon,
			RawTags:   model.Tags(el.Tags),
		})
	}
	return businesses, skipped
}

// ParseTransitNodes keeps bus stops, railway stations and subway entrances.
// Ways and unrecognised nodes are skipped.
func ParseTransitNodes(elements []model.OSMElement) ([]model.TransitNode, int) {
	nodes := make([]model.TransitNode, 0, len(elements))
	skipped := 0
	for _, el := range elements {
		if el.Type != "node" {
			skipped++
			continue
		}
		transitType := transitType(el.Tags)
		if transitType == "" || !ValidCoordinate(el.Lat, el.Lon) {
			skipped++
			continue
		}
		nodes = append(nodes, model.TransitNode{
			OSMID:     strconv.FormatInt(el.ID, 10),
			Type:      transitType,
			Name:      pickName(el.Tags, "name:en", "name", "ref", "loc_name"),
			Latitude:  el.Lat,
			Longitude: el.Lon,
		})
	}
	return nodes, skipped
}

func businessCategory(tags map[string]string) string {
	for _, key := range []string{model.CategoryAmenity, model.CategoryShop, model.CategoryOffice} {
		if _, ok := tags[key]; ok {
			return key
		}
	}
	return model.CategoryOther
}

func transitType(tags map[string]string) string {
	switch {
	case tags["highway"] == "bus_stop":
		return model.TransitBusStop
	case tags["railway"] == "station":
		return model.TransitRailwayStation
	case tags["railway"] == "subway_entrance":
		return model.TransitSubwayEntrance
	default:
		return ""
	}
}

func pickName(tags map[string]string, keys ...string) *string {
	for _, k := range keys {
		if v := tags[k]; v != "" {
			return &v
		}
	}
	return nil
}
