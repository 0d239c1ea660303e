// Package projection converts between local planar model coordinates (meters)
// and longitude/latitude using a flat-earth tangent-plane approximation.
//
// The approximation is accurate to well under a millimeter across a district
// (< ~10 km) and degrades smoothly beyond that. Polar latitudes are not supported.
package projection

import (
	"math"

	"github.com/paulmach/orb"
)

// EarthRadius is the mean radius of the earth in meters.
const EarthRadius = 6371008.8

// Location is a geographic anchor for a model.
type Location struct {
	Latitude  float64 `json:"latitude" yaml:"latitude" validate:"gte=-90,lte=90"`
	Longitude float64 `json:"longitude" yaml:"longitude" validate:"gte=-180,lte=180"`
}

// LonLat is a longitude, latitude pair in degrees.
type LonLat struct {
	Lon float64
	Lat float64
}

// Factors holds meters per degree of longitude (X) and latitude (Y).
type Factors struct {
	X float64
	Y float64
}

// MetersToLonLatFactors returns the meters-per-degree factors at the latitude of origin.
func MetersToLonLatFactors(origin LonLat) Factors {
	circumference := 2 * math.Pi * EarthRadius
	return Factors{
		X: circumference * math.Cos(origin.Lat*math.Pi/180) / 360,
		Y: circumference / 360,
	}
}

// OriginLonLat returns the longitude and latitude of the local (0, 0) origin,
// given a location known to sit at ref in local meters.
func OriginLonLat(loc Location, ref orb.Point) LonLat {
	facs := MetersToLonLatFactors(LonLat{Lon: loc.Longitude, Lat: loc.Latitude})
	return LonLat{
		Lon: loc.Longitude - ref[0]/facs.X,
		Lat: loc.Latitude - ref[1]/facs.Y,
	}
}

// LocalToLonLat converts local points in meters to [lon, lat] pairs.
func LocalToLonLat(points []orb.Point, origin LonLat, facs Factors) [][2]float64 {
	coords := make([][2]float64, len(points))
	for i, p := range points {
		coords[i] = [2]float64{
			origin.Lon + p[0]/facs.X,
			origin.Lat + p[1]/facs.Y,
		}
	}
	return coords
}

// LonLatToLocal converts [lon, lat] pairs back to local points in meters.
func LonLatToLocal(coords [][2]float64, origin LonLat, facs Factors) []orb.Point {
	points := make([]orb.Point, len(coords))
	for i, c := range coords {
		points[i] = orb.Point{
			(c[0] - origin.Lon) * facs.X,
			(c[1] - origin.Lat) * facs.Y,
		}
	}
	return points
}

// Projector bundles an origin and its factors for repeated conversions.
type Projector struct {
	Origin  LonLat
	Factors Factors
}

// NewProjector anchors a projector at loc, which sits at ref in local meters.
func NewProjector(loc Location, ref orb.Point) Projector {
	origin := OriginLonLat(loc, ref)
	return Projector{Origin: origin, Factors: MetersToLonLatFactors(origin)}
}

// Point converts a single local point to lon/lat.
func (p Projector) Point(pt orb.Point) orb.Point {
	c := LocalToLonLat([]orb.Point{pt}, p.Origin, p.Factors)[0]
	return orb.Point{c[0], c[1]}
}

// LineString converts a local polyline to lon/lat.
func (p Projector) LineString(ls orb.LineString) orb.LineString {
	coords := LocalToLonLat(ls, p.Origin, p.Factors)
	out := make(orb.LineString, len(coords))
	for i, c := range coords {
		out[i] = orb.Point{c[0], c[1]}
	}
	return out
}

// Ring converts a local ring to lon/lat, closing it if needed.
func (p Projector) Ring(r orb.Ring) orb.Ring {
	out := orb.Ring(p.LineString(orb.LineString(r)))
	if len(out) > 0 && !out.Closed() {
		out = append(out, out[0])
	}
	return out
}

// Polygon converts every ring of a local polygon to lon/lat.
func (p Projector) Polygon(poly orb.Polygon) orb.Polygon {
	out := make(orb.Polygon, len(poly))
	for i, r := range poly {
		out[i] = p.Ring(r)
	}
	return out
}

// Local converts a lon/lat point back into local meters.
func (p Projector) Local(ll orb.Point) orb.Point {
	return LonLatToLocal([][2]float64{{ll[0], ll[1]}}, p.Origin, p.Factors)[0]
}
