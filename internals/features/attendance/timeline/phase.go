// file: internals/features/attendance/timeline/phase.go
package timeline

import "fmt"

// Phase adalah status turunan pekerja di dalam satu sesi absensi.
type Phase string

const (
	PhaseReady       Phase = "ready"
	PhaseWorking     Phase = "working"
	PhaseOnBreak     Phase = "on_break"
	PhaseOvertime    Phase = "overtime"
	PhaseClientVisit Phase = "client_visit"
	PhaseCompleted   Phase = "completed"
)

// InvalidTransitionError: event tidak legal dari phase saat ini.
// Log dijamin tidak berubah saat error ini dikembalikan.
type InvalidTransitionError struct {
	From Phase
	Kind EventKind
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("transisi tidak valid: %s tidak boleh saat %s", e.Kind, e.From)
}

/* =========================================================
   Tabel transisi.

   Ready → Working → {OnBreak, Overtime, ClientVisit} → Working
   → … → Completed. Completed terminal. Yang tidak terdaftar
   di sini DITOLAK — termasuk nested sub-phase (mis. lembur
   saat istirahat) dan clock-out saat masih di sub-phase.
   ========================================================= */

var transitions = map[Phase]map[EventKind]Phase{
	PhaseReady: {
		EventClockIn: PhaseWorking,
	},
	PhaseWorking: {
		EventBreakStart:       PhaseOnBreak,
		EventOvertimeStart:    PhaseOvertime,
		EventClientVisitStart: PhaseClientVisit,
		EventClockOut:         PhaseCompleted,
	},
	PhaseOnBreak: {
		EventBreakEnd: PhaseWorking,
	},
	PhaseOvertime: {
		EventOvertimeEnd: PhaseWorking,
	},
	PhaseClientVisit: {
		EventClientVisitEnd: PhaseWorking,
	},
	// PhaseCompleted: absorbing, tidak menerima event apa pun.
}

// Next mengembalikan phase berikutnya untuk (phase, kind), atau
// InvalidTransitionError bila kombinasi itu tidak ada di tabel.
func Next(from Phase, kind EventKind) (Phase, error) {
	if to, ok := transitions[from][kind]; ok {
		return to, nil
	}
	return from, &InvalidTransitionError{From: from, Kind: kind}
}

// DerivePhase melipat seluruh event list terurut dari Ready.
// Phase TIDAK pernah di-cache sebagai state mutable — selalu fungsi murni
// dari log, sehingga tidak mungkin desinkron dan gampang direproduksi di test.
func DerivePhase(events []Event) (Phase, error) {
	phase := PhaseReady
	for _, e := range events {
		next, err := Next(phase, e.Kind)
		if err != nil {
			return phase, err
		}
		phase = next
	}
	return phase, nil
}

// Phase menurunkan phase saat ini dari isi log.
func (l *Log) Phase() (Phase, error) {
	return DerivePhase(l.events)
}
