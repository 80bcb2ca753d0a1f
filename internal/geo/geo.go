// Package geo implements WGS84 point handling and proximity tests used by the
// in-memory engine and by request validation.
package geo

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/paulmach/orb"
	orbgeo "github.com/paulmach/orb/geo"
	"github.com/tidwall/geodesic"
)

// SRID is the spatial reference used for stored positions.
const SRID = 4326

// prefilterLimit bounds the radius for which the bounding-box shortcut is used.
const prefilterLimit = 2_000_000

// ErrInvalidPoint is returned when a payload is neither shape of point.
var ErrInvalidPoint = errors.New("position must be {lon, lat} or {coordinates: [lon, lat]}")

// Point is a WGS84 longitude/latitude pair in degrees.
type Point struct {
	Lon float64 `json:"lon"`
	Lat float64 `json:"lat"`
}

// Validate checks the coordinate ranges.
func (p Point) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Lon, validation.Min(-180.0), validation.Max(180.0)),
		validation.Field(&p.Lat, validation.Min(-90.0), validation.Max(90.0)),
	)
}

// Orb converts the point to its orb representation.
func (p Point) Orb() orb.Point {
	return orb.Point{p.Lon, p.Lat}
}

// String renders the point as WKT.
func (p Point) String() string {
	return fmt.Sprintf("POINT(%g %g)", p.Lon, p.Lat)
}

// UnmarshalJSON accepts both {lon, lat} and {coordinates: [lon, lat]}.
func (p *Point) UnmarshalJSON(data []byte) error {
	var raw struct {
		Lon         *float64  `json:"lon"`
		Lat         *float64  `json:"lat"`
		Coordinates []float64 `json:"coordinates"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch {
	case raw.Lon != nil && raw.Lat != nil:
		p.Lon, p.Lat = *raw.Lon, *raw.Lat
	case len(raw.Coordinates) == 2:
		p.Lon, p.Lat = raw.Coordinates[0], raw.Coordinates[1]
	default:
		return ErrInvalidPoint
	}
	if math.IsNaN(p.Lon) || math.IsNaN(p.Lat) {
		return ErrInvalidPoint
	}
	return nil
}

// Distance returns the geodesic distance in meters between a and b on the
// WGS84 ellipsoid.
func Distance(a, b Point) float64 {
	var s12 float64
	geodesic.WGS84.Inverse(a.Lat, a.Lon, b.Lat, b.Lon, &s12, nil, nil)
	return s12
}

// Within reports whether p lies at most meters from center. The boundary is
// inclusive.
func Within(center, p Point, meters float64) bool {
	if meters < 0 {
		return false
	}
	if bound, ok := Around(center, meters); ok && !bound.Contains(p.Orb()) {
		return false
	}
	return Distance(center, p) <= meters
}

// Around returns a bounding box that contains every point within meters of
// center. ok is false when no box is usable, e.g. across the antimeridian or
// near a pole.
func Around(center Point, meters float64) (orb.Bound, bool) {
	if meters > prefilterLimit || math.Abs(center.Lat) > 80 {
		return orb.Bound{}, false
	}
	// The spherical bound underestimates meridian arcs by up to ~0.7%.
	bound := orbgeo.NewBoundAroundPoint(center.Orb(), meters*1.02).Pad(1e-6)
	if bound.Min[0] > bound.Max[0] || bound.Min[0] < -180 || bound.Max[0] > 180 {
		return orb.Bound{}, false
	}
	if math.IsNaN(bound.Min[0]) || math.IsNaN(bound.Max[0]) {
		return orb.Bound{}, false
	}
	return bound, true
}
