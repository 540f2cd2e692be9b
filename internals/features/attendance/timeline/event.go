// file: internals/features/attendance/timeline/event.go
package timeline

import (
	"errors"
	"sort"
	"time"

	"hadirku_backend/internals/features/attendance/geo"
)

type EventKind string

const (
	EventClockIn          EventKind = "clock_in"
	EventClockOut         EventKind = "clock_out"
	EventBreakStart       EventKind = "break_start"
	EventBreakEnd         EventKind = "break_end"
	EventOvertimeStart    EventKind = "overtime_start"
	EventOvertimeEnd      EventKind = "overtime_end"
	EventClientVisitStart EventKind = "client_visit_start"
	EventClientVisitEnd   EventKind = "client_visit_end"
)

var eventKinds = map[EventKind]struct{}{
	EventClockIn: {}, EventClockOut: {},
	EventBreakStart: {}, EventBreakEnd: {},
	EventOvertimeStart: {}, EventOvertimeEnd: {},
	EventClientVisitStart: {}, EventClientVisitEnd: {},
}

func (k EventKind) Valid() bool {
	_, ok := eventKinds[k]
	return ok
}

// Event adalah satu perubahan status ber-timestamp di dalam sesi absensi.
// Location/AttachmentRef/Note opsional; legalitas per kind dijaga di service.
type Event struct {
	ID            string
	Kind          EventKind
	At            time.Time
	Location      *geo.Coordinate
	AttachmentRef string
	Note          string
}

var (
	ErrDuplicateEventID = errors.New("event id sudah ada di sesi ini")
	ErrUnknownEventKind = errors.New("jenis event tidak dikenal")
)

/* =========================================================
   Log: koleksi append-only.

   Urutan efektif SELALU ascending timestamp (tie-break ID),
   bukan urutan insert — event yang datang terlambat (mis.
   tulisan jaringan tertunda) tetap menghasilkan turunan yang
   identik begitu semua event untuk satu instan sudah masuk.
   ========================================================= */

type Log struct {
	events []Event
	ids    map[string]struct{}
}

func NewLog() *Log {
	return &Log{ids: make(map[string]struct{})}
}

// Append menyisipkan event pada posisi timestamp-nya (insertion sort).
// Duplikat ID ditolak; log tidak berubah saat ditolak.
func (l *Log) Append(e Event) error {
	if !e.Kind.Valid() {
		return ErrUnknownEventKind
	}
	if _, dup := l.ids[e.ID]; dup {
		return ErrDuplicateEventID
	}
	i := sort.Search(len(l.events), func(i int) bool {
		if l.events[i].At.Equal(e.At) {
			return l.events[i].ID > e.ID
		}
		return l.events[i].At.After(e.At)
	})
	l.events = append(l.events, Event{})
	copy(l.events[i+1:], l.events[i:])
	l.events[i] = e
	l.ids[e.ID] = struct{}{}
	return nil
}

func (l *Log) Len() int { return len(l.events) }

// Events mengembalikan salinan terurut; pemanggil bebas memodifikasi.
func (l *Log) Events() []Event {
	out := make([]Event, len(l.events))
	copy(out, l.events)
	return out
}

// Last mengembalikan event terakhir menurut urutan efektif.
func (l *Log) Last() (Event, bool) {
	if len(l.events) == 0 {
		return Event{}, false
	}
	return l.events[len(l.events)-1], true
}
