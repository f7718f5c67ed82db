package utils

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"p9e.in/veritrace/pkg/declaration"
)

var ErrNoCoordinates = errors.New("coordinates are not set")

// ParseCoordinates parses the "lat,lng" composite stored on a declaration.
// orb points are (lng, lat).
func ParseCoordinates(composite string) (orb.Point, error) {
	if strings.Trim(composite, " ,") == "" {
		return orb.Point{}, ErrNoCoordinates
	}

	parts := strings.Split(composite, ",")
	if len(parts) != 2 {
		return orb.Point{}, fmt.Errorf("coordinates %q must be \"lat,lng\"", composite)
	}

	lat, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return orb.Point{}, fmt.Errorf("invalid latitude %q: %w", parts[0], err)
	}
	lng, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return orb.Point{}, fmt.Errorf("invalid longitude %q: %w", parts[1], err)
	}

	if err := validateCoordinate(lat, lng); err != nil {
		return orb.Point{}, err
	}
	return orb.Point{lng, lat}, nil
}

func validateCoordinate(lat, lng float64) error {
	if math.IsNaN(lat) || math.IsInf(lat, 0) || math.IsNaN(lng) || math.IsInf(lng, 0) {
		return errors.New("coordinates must be finite numbers")
	}
	if lat < -90 || lat > 90 {
		return fmt.Errorf("latitude %.6f is out of valid range [-90, 90]", lat)
	}
	if lng < -180 || lng > 180 {
		return fmt.Errorf("longitude %.6f is out of valid range [-180, 180]", lng)
	}
	return nil
}

// FarmFeature renders the origin plot of a declaration as a GeoJSON point
// feature.
func FarmFeature(rec declaration.Record) (*geojson.Feature, error) {
	point, err := ParseCoordinates(rec.Coordinates)
	if err != nil {
		return nil, err
	}

	feature := geojson.NewFeature(point)
	feature.Properties["farmLocation"] = rec.FarmLocation
	feature.Properties["landOwnership"] = rec.LandOwnership
	feature.Properties["productName"] = rec.ProductName
	feature.Properties["supplierName"] = rec.SupplierName
	if rec.ID != "" {
		feature.ID = rec.ID
		feature.Properties["declarationId"] = rec.ID
	}
	return feature, nil
}

// FarmCollection collects the plots of several declarations, skipping the
// ones without usable coordinates.
func FarmCollection(recs []declaration.Record) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, rec := range recs {
		feature, err := FarmFeature(rec)
		if err != nil {
			continue
		}
		fc.Append(feature)
	}
	return fc
}

// KnownLandOwnership reports whether value is one of the form's options.
func KnownLandOwnership(value string) bool {
	for _, opt := range declaration.LandOwnershipOptions {
		if opt == value {
			return true
		}
	}
	return false
}
