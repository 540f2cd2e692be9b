// file: internals/features/attendance/timeline/accumulator.go
package timeline

import (
	"errors"
	"fmt"
	"time"
)

// Durations adalah total waktu per kategori untuk satu sesi.
// Disimpan sebagai time.Duration penuh (presisi sub-menit tidak pernah
// hilang di internal); format HH:MM hanya di boundary presentasi.
type Durations struct {
	Working     time.Duration
	OnBreak     time.Duration
	Overtime    time.Duration
	ClientVisit time.Duration
}

func (d Durations) Total() time.Duration {
	return d.Working + d.OnBreak + d.Overtime + d.ClientVisit
}

var ErrLogNotClockedIn = errors.New("log harus diawali event clock_in")

/* =========================================================
   Accumulator: jalan-interval.

   clock_in membuka interval Working. Setiap event menutup
   interval yang sedang terbuka (durasinya = at − start, masuk
   ke kategori interval itu) lalu membuka interval baru sesuai
   tabel transisi. Setelah event terakhir tersisa satu interval
   terbuka yang ditutup oleh `now`; clock_out menutup log
   sehingga tidak ada interval terbuka lagi.

   Sifat yang dijaga (ada test-nya):
   - konservasi: total == now − clockIn (atau clockOut − clockIn)
     persis, tanpa double counting, tanpa gap;
   - idempoten: input sama ⇒ hasil identik byte-per-byte, tidak
     pernah bergantung pada akumulasi tick sebelumnya;
   - independen urutan insert: hanya timestamp yang menentukan.
   ========================================================= */

// Accumulate menghitung durasi per kategori dari event terurut naik
// sampai instan `now`. Murni: tidak membaca wall clock sendiri.
func Accumulate(events []Event, now time.Time) (Durations, error) {
	var out Durations

	if len(events) == 0 || events[0].Kind != EventClockIn {
		return out, ErrLogNotClockedIn
	}

	phase := PhaseWorking
	start := events[0].At

	for _, e := range events[1:] {
		next, err := Next(phase, e.Kind)
		if err != nil {
			return Durations{}, err
		}
		out.add(phase, e.At.Sub(start))
		phase = next
		start = e.At
	}

	// interval terbuka terakhir; Completed berarti clock_out sudah
	// menutup semuanya dan tidak ada yang tersisa untuk dialokasikan.
	if phase != PhaseCompleted {
		out.add(phase, now.Sub(start))
	}
	return out, nil
}

func (d *Durations) add(p Phase, dur time.Duration) {
	switch p {
	case PhaseWorking:
		d.Working += dur
	case PhaseOnBreak:
		d.OnBreak += dur
	case PhaseOvertime:
		d.Overtime += dur
	case PhaseClientVisit:
		d.ClientVisit += dur
	}
}

// FormatHHMM memformat durasi ke "HH:MM" (truncate ke menit, bukan round).
// Hanya untuk boundary presentasi; internal tetap time.Duration penuh.
func FormatHHMM(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int64(d / time.Minute)
	return fmt.Sprintf("%02d:%02d", total/60, total%60)
}
