// file: internals/features/attendance/geo/geofence.go
package geo

import (
	"context"
	"errors"
)

/* =========================================================
   Geofence: satu titik acuan (kantor) + radius toleransi.
   Di-set sekali saat startup, tidak pernah berubah.
   ========================================================= */

type FenceConfig struct {
	Center       Coordinate
	RadiusMeters float64
}

// Verdict adalah hasil evaluasi satu sampel posisi terhadap geofence.
// Known=false artinya posisi tidak tersedia (izin ditolak, sensor timeout,
// atau sampel sudah basi) — TIDAK pernah dianggap in-range diam-diam.
type Verdict struct {
	DistanceMeters float64 `json:"distance_meters"`
	InRange        bool    `json:"in_range"`
	Known          bool    `json:"known"`
}

// Evaluate menilai satu sampel posisi. pos == nil berarti posisi tidak
// tersedia dan menghasilkan verdict unknown.
//
// Batas radius inklusif: tepat di radius masih in-range. Tidak ada smoothing
// atau debounce; satu sampel yang memenuhi langsung membalik verdict.
// Konsekuensinya user di dekat batas bisa bolak-balik in/out antar sampel.
func Evaluate(cfg FenceConfig, pos *Coordinate) (Verdict, error) {
	if pos == nil {
		return Verdict{}, nil
	}
	d, err := DistanceMeters(cfg.Center, *pos)
	if err != nil {
		return Verdict{}, err
	}
	return Verdict{
		DistanceMeters: d,
		InRange:        d <= cfg.RadiusMeters,
		Known:          true,
	}, nil
}

/* =========================================================
   Position provider (kolaborator eksternal)
   ========================================================= */

var (
	ErrPermissionDenied  = errors.New("izin lokasi ditolak")
	ErrPositionTimeout   = errors.New("pembacaan posisi timeout")
	ErrSensorUnavailable = errors.New("sensor lokasi tidak tersedia")
)

// PositionProvider membungkus sumber posisi live. Implementasinya di luar
// core (device / gateway); error-nya terbatas pada tiga sentinel di atas.
type PositionProvider interface {
	CurrentPosition(ctx context.Context) (Coordinate, error)
}
