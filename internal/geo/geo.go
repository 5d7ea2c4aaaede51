package geo

import (
	"errors"
	"math"
)

// earthRadiusMeters is the mean Earth radius used by the haversine formula.
const earthRadiusMeters = 6371000

// ErrNoGeofence is returned when a classroom has no registered center.
// Callers must surface this explicitly; a missing geofence is never a pass.
var ErrNoGeofence = errors.New("classroom has no geofence registered")

// Coord is a WGS84 point in decimal degrees.
type Coord struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Geofence is a circular boundary around a classroom.
type Geofence struct {
	Center       Coord
	RadiusMeters float64
}

// Evaluation is the result of scoring a reported point against a geofence.
type Evaluation struct {
	DistanceMeters float64
	WithinRange    bool
}

// Distance returns the great-circle distance between two points in meters.
func Distance(a, b Coord) float64 {
	phi1 := a.Lat * math.Pi / 180
	phi2 := b.Lat * math.Pi / 180
	dPhi := (b.Lat - a.Lat) * math.Pi / 180
	dLambda := (b.Lng - a.Lng) * math.Pi / 180

	h := math.Sin(dPhi/2)*math.Sin(dPhi/2) +
		math.Cos(phi1)*math.Cos(phi2)*math.Sin(dLambda/2)*math.Sin(dLambda/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))

	return earthRadiusMeters * c
}

// Evaluate scores a reported point against a classroom geofence.
// A nil fence means the classroom has no coordinates registered and
// yields ErrNoGeofence. Radius 0 requires an exact coordinate match.
func Evaluate(point Coord, fence *Geofence) (Evaluation, error) {
	if fence == nil {
		return Evaluation{}, ErrNoGeofence
	}
	d := Distance(point, fence.Center)
	return Evaluation{
		DistanceMeters: d,
		WithinRange:    d <= fence.RadiusMeters,
	}, nil
}
