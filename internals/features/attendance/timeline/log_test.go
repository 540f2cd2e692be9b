package timeline

import (
	"testing"
	"time"
)

var t0 = time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

func ev(id string, kind EventKind, at time.Time) Event {
	return Event{ID: id, Kind: kind, At: at}
}

func TestLog_AppendKeepsTimestampOrder(t *testing.T) {
	l := NewLog()
	// insert sengaja tidak urut (tulisan jaringan tertunda)
	if err := l.Append(ev("e3", EventBreakEnd, t0.Add(3*time.Hour))); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := l.Append(ev("e1", EventClockIn, t0)); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := l.Append(ev("e2", EventBreakStart, t0.Add(2*time.Hour))); err != nil {
		t.Fatalf("append: %v", err)
	}

	got := l.Events()
	wantIDs := []string{"e1", "e2", "e3"}
	for i, id := range wantIDs {
		if got[i].ID != id {
			t.Fatalf("events[%d].ID = %s, want %s", i, got[i].ID, id)
		}
	}
}

func TestLog_DuplicateIDRejected(t *testing.T) {
	l := NewLog()
	if err := l.Append(ev("e1", EventClockIn, t0)); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := l.Append(ev("e1", EventBreakStart, t0.Add(time.Hour))); err != ErrDuplicateEventID {
		t.Fatalf("err = %v, want ErrDuplicateEventID", err)
	}
	if l.Len() != 1 {
		t.Fatalf("log berubah padahal append ditolak: len = %d", l.Len())
	}
}

func TestLog_UnknownKindRejected(t *testing.T) {
	l := NewLog()
	if err := l.Append(ev("e1", EventKind("lunch"), t0)); err != ErrUnknownEventKind {
		t.Fatalf("err = %v, want ErrUnknownEventKind", err)
	}
}

func TestLog_EventsReturnsCopy(t *testing.T) {
	l := NewLog()
	_ = l.Append(ev("e1", EventClockIn, t0))
	got := l.Events()
	got[0].ID = "mutasi"
	if fresh := l.Events(); fresh[0].ID != "e1" {
		t.Fatal("Events() harus mengembalikan salinan")
	}
}
