// file: internals/features/attendance/service/errors.go
package service

import (
	"errors"
	"fmt"
)

// Semua kegagalan domain adalah typed error yang dikembalikan ke caller —
// tidak ada yang dieskalasi jadi panic/fatal. Error validasi diputuskan
// SEBELUM mutasi apa pun; log, phase, dan durasi dijamin utuh saat ditolak.
var (
	ErrSessionAlreadyActive = errors.New("masih ada sesi absensi yang aktif")
	ErrNoActiveSession      = errors.New("tidak ada sesi absensi yang aktif")
	ErrOperationInProgress  = errors.New("operasi clock lain sedang berjalan")
	ErrLocationUnknown      = errors.New("lokasi tidak diketahui")
	ErrKindNotActivity      = errors.New("clock_in/clock_out memakai operasi tersendiri")
)

// OutOfRangeError: posisi valid tapi di luar radius geofence.
type OutOfRangeError struct {
	DistanceMeters float64
}

func (e *OutOfRangeError) Error() string {
	return fmt.Sprintf("di luar jangkauan: %.0f m dari titik absen", e.DistanceMeters)
}

// StoreError membungkus kegagalan kolaborator persistence. Core tidak
// melakukan retry sendiri; error diteruskan apa adanya ke caller.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s gagal: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }
