package geo

import (
	"errors"
	"math"
	"testing"
)

func TestDistanceZero(t *testing.T) {
	p := Coord{Lat: 5.6037, Lng: -0.187}
	if d := Distance(p, p); d != 0 {
		t.Errorf("distance to self = %f, want 0", d)
	}
}

func TestDistanceKnownPair(t *testing.T) {
	// One degree of latitude at the equator is roughly 111.2 km.
	a := Coord{Lat: 0, Lng: 0}
	b := Coord{Lat: 1, Lng: 0}
	d := Distance(a, b)
	if math.Abs(d-111195) > 500 {
		t.Errorf("distance = %f, want ~111195m", d)
	}
}

func TestDistanceSymmetric(t *testing.T) {
	a := Coord{Lat: 5.6037, Lng: -0.187}
	b := Coord{Lat: 5.6057, Lng: -0.185}
	if d1, d2 := Distance(a, b), Distance(b, a); math.Abs(d1-d2) > 1e-9 {
		t.Errorf("distance not symmetric: %f vs %f", d1, d2)
	}
}

func TestEvaluate(t *testing.T) {
	center := Coord{Lat: 0, Lng: 0}
	tests := []struct {
		name       string
		point      Coord
		radius     float64
		wantWithin bool
	}{
		{"exact match radius zero", Coord{0, 0}, 0, true},
		{"exact match", Coord{0, 0}, 50, true},
		{"near point within", Coord{0.0001, 0}, 50, true}, // ~11m
		{"far point outside", Coord{0.001, 0}, 50, false}, // ~111m
		{"off center radius zero", Coord{0.0000001, 0}, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev, err := Evaluate(tt.point, &Geofence{Center: center, RadiusMeters: tt.radius})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if ev.WithinRange != tt.wantWithin {
				t.Errorf("within = %v (distance %f), want %v", ev.WithinRange, ev.DistanceMeters, tt.wantWithin)
			}
		})
	}
}

func TestEvaluateNoGeofence(t *testing.T) {
	_, err := Evaluate(Coord{Lat: 1, Lng: 1}, nil)
	if !errors.Is(err, ErrNoGeofence) {
		t.Errorf("err = %v, want ErrNoGeofence", err)
	}
}
