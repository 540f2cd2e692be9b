// file: internals/features/attendance/service/position.go
package service

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"hadirku_backend/internals/features/attendance/geo"
)

// PositionSample: satu laporan posisi dari device user.
type PositionSample struct {
	Coord geo.Coordinate
	At    time.Time
}

// PositionRegistry menyimpan sampel posisi terakhir per user dan menurunkan
// verdict geofence darinya. Device melaporkan posisi pada kadensi beberapa
// detik; setiap sampel baru langsung dievaluasi ulang — tanpa smoothing,
// rata-rata, atau debounce (kebijakan sengaja latency-sensitive).
//
// Sampel yang lebih tua dari ttl dianggap basi: verdict kembali unknown,
// tidak pernah diam-diam dianggap in-range.
type PositionRegistry struct {
	fence geo.FenceConfig
	ttl   time.Duration
	now   func() time.Time

	mu   sync.RWMutex
	last map[uuid.UUID]PositionSample
}

func NewPositionRegistry(fence geo.FenceConfig, ttl time.Duration) *PositionRegistry {
	return &PositionRegistry{
		fence: fence,
		ttl:   ttl,
		now:   time.Now,
		last:  make(map[uuid.UUID]PositionSample),
	}
}

// WithClock mengganti sumber waktu (untuk test).
func (r *PositionRegistry) WithClock(now func() time.Time) *PositionRegistry {
	r.now = now
	return r
}

// Report mencatat sampel baru dan mengembalikan verdict untuk sampel itu.
func (r *PositionRegistry) Report(userID uuid.UUID, c geo.Coordinate) (geo.Verdict, error) {
	v, err := geo.Evaluate(r.fence, &c)
	if err != nil {
		return geo.Verdict{}, err
	}
	r.mu.Lock()
	r.last[userID] = PositionSample{Coord: c, At: r.now()}
	r.mu.Unlock()
	return v, nil
}

// Verdict menilai sampel terakhir user; unknown bila belum ada atau basi.
func (r *PositionRegistry) Verdict(userID uuid.UUID) geo.Verdict {
	r.mu.RLock()
	sample, ok := r.last[userID]
	r.mu.RUnlock()
	if !ok || r.now().Sub(sample.At) > r.ttl {
		return geo.Verdict{}
	}
	v, err := geo.Evaluate(r.fence, &sample.Coord)
	if err != nil {
		return geo.Verdict{}
	}
	return v
}

// ProviderFor mengadaptasi registry menjadi geo.PositionProvider untuk satu
// user: sumber posisi "terakhir dilaporkan" dengan error typed saat kosong
// atau basi.
func (r *PositionRegistry) ProviderFor(userID uuid.UUID) geo.PositionProvider {
	return registryProvider{registry: r, userID: userID}
}

type registryProvider struct {
	registry *PositionRegistry
	userID   uuid.UUID
}

func (p registryProvider) CurrentPosition(_ context.Context) (geo.Coordinate, error) {
	r := p.registry
	r.mu.RLock()
	sample, ok := r.last[p.userID]
	r.mu.RUnlock()
	if !ok {
		return geo.Coordinate{}, geo.ErrSensorUnavailable
	}
	if r.now().Sub(sample.At) > r.ttl {
		return geo.Coordinate{}, geo.ErrPositionTimeout
	}
	return sample.Coord, nil
}

// StartSweeper membuang sampel basi secara periodik supaya verdict user yang
// berhenti melapor kembali unknown tanpa menunggu request berikutnya.
// Berhenti bersih saat ctx dibatalkan; tidak ada update state setelah cancel.
func (r *PositionRegistry) StartSweeper(ctx context.Context, period time.Duration) {
	go func() {
		ticker := time.NewTicker(period)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				log.Println("[POSITION] sweeper berhenti")
				return
			case <-ticker.C:
				r.sweep()
			}
		}
	}()
}

func (r *PositionRegistry) sweep() {
	cutoff := r.now().Add(-r.ttl)
	r.mu.Lock()
	for id, sample := range r.last {
		if sample.At.Before(cutoff) {
			delete(r.last, id)
		}
	}
	r.mu.Unlock()
}
