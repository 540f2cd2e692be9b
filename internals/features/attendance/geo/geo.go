// file: internals/features/attendance/geo/geo.go
package geo

import (
	"errors"
	"math"
)

// Radius bumi rata-rata (meter), aproksimasi bola.
const earthRadiusMeters = 6371000.0

var ErrInvalidCoordinate = errors.New("koordinat tidak valid")

// Coordinate adalah value type immutable (lat/lng derajat desimal).
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

func (c Coordinate) Validate() error {
	if math.IsNaN(c.Lat) || math.IsNaN(c.Lng) || math.IsInf(c.Lat, 0) || math.IsInf(c.Lng, 0) {
		return ErrInvalidCoordinate
	}
	if c.Lat < -90 || c.Lat > 90 {
		return ErrInvalidCoordinate
	}
	if c.Lng < -180 || c.Lng > 180 {
		return ErrInvalidCoordinate
	}
	return nil
}

// DistanceMeters menghitung jarak great-circle (haversine) antara dua titik.
// Deterministik dan murni; satu-satunya error adalah koordinat di luar rentang.
func DistanceMeters(a, b Coordinate) (float64, error) {
	if err := a.Validate(); err != nil {
		return 0, err
	}
	if err := b.Validate(); err != nil {
		return 0, err
	}

	lat1 := degToRad(a.Lat)
	lat2 := degToRad(b.Lat)
	dLat := degToRad(b.Lat - a.Lat)
	dLng := degToRad(b.Lng - a.Lng)

	sinLat := math.Sin(dLat / 2)
	sinLng := math.Sin(dLng / 2)
	h := sinLat*sinLat + math.Cos(lat1)*math.Cos(lat2)*sinLng*sinLng
	// jaga-jaga pembulatan float: h harus di [0,1]
	if h > 1 {
		h = 1
	}
	return 2 * earthRadiusMeters * math.Asin(math.Sqrt(h)), nil
}

func degToRad(d float64) float64 {
	return d * math.Pi / 180
}
