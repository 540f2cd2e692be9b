// file: internals/features/attendance/service/scheduler.go
package service

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"
)

/* =========================================================
   Scheduler kooperatif.

   Tampilan durasi digerakkan satu tick periodik (1 detik) yang
   menurunkan ulang snapshot dari nol — tanpa counter inkremental,
   jadi tick yang hilang/telat sembuh sendiri di tick berikutnya
   (mengandalkan idempotensi accumulator).
   ========================================================= */

// StartSnapshotTicker mengisi read-model live (dipakai papan monitor /
// GET live) tiap period. Berhenti bersih saat ctx dibatalkan.
func (s *ClockService) StartSnapshotTicker(ctx context.Context, period time.Duration) {
	go func() {
		ticker := time.NewTicker(period)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				log.Println("[TICKER] snapshot ticker berhenti")
				return
			case <-ticker.C:
				for _, id := range s.ActiveUserIDs() {
					snap, err := s.Snapshot(id)
					if err != nil {
						continue // sesi keburu ditutup di antara list dan derive
					}
					s.live.Store(id, snap)
				}
			}
		}
	}()
}

// LiveSnapshots mengembalikan snapshot terakhir hasil ticker.
func (s *ClockService) LiveSnapshots() []Snapshot {
	var out []Snapshot
	s.live.Range(func(_, v interface{}) bool {
		out = append(out, v.(Snapshot))
		return true
	})
	return out
}

// StartAutoCloseSweeper menutup paksa sesi yang terbuka melewati batas
// shift maksimum: sub-phase yang masih terbuka diakhiri di instan cap dulu
// supaya event log tetap legal, lalu clock-out di cap.
func (s *ClockService) StartAutoCloseSweeper(ctx context.Context, period time.Duration) {
	go func() {
		ticker := time.NewTicker(period)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				log.Println("[SWEEPER] auto-close sweeper berhenti")
				return
			case <-ticker.C:
				s.sweepExpired(ctx)
			}
		}
	}()
}

func (s *ClockService) sweepExpired(ctx context.Context) {
	now := s.now()
	for _, id := range s.ActiveUserIDs() {
		capAt, expired := s.shiftCap(id, now)
		if !expired {
			continue
		}
		release, err := s.begin(id)
		if err != nil {
			continue // user sedang clock-out sendiri; biarkan
		}
		if _, err := s.finishSession(ctx, id, capAt, "", "ditutup otomatis: melewati batas shift", true); err != nil {
			log.Printf("[SWEEPER] gagal menutup sesi user %s: %v", id, err)
		} else {
			log.Printf("[SWEEPER] sesi user %s ditutup otomatis pada %s", id, capAt.Format(time.RFC3339))
		}
		release()
	}
}

func (s *ClockService) shiftCap(userID uuid.UUID, now time.Time) (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	as, ok := s.active[userID]
	if !ok {
		return time.Time{}, false
	}
	capAt := as.row.AttendanceSessionClockInAt.Add(s.maxShift)
	return capAt, now.After(capAt)
}
