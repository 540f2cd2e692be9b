// file: internals/features/attendance/service/clock_service.go
package service

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"hadirku_backend/internals/features/attendance/geo"
	"hadirku_backend/internals/features/attendance/model"
	"hadirku_backend/internals/features/attendance/timeline"
)

/* =========================================================
   ClockService — orkestrator clock-in/out.

   Satu slot sesi aktif per user (bukan global mutable state):
   semua derivasi membacanya, hanya service ini yang menulis.
   Phase & durasi TIDAK pernah disimpan sebagai counter —
   selalu diturunkan ulang dari event log (lihat package
   timeline), sehingga tick yang telat/hilang sembuh sendiri
   pada tick berikutnya.
   ========================================================= */

type ClockService struct {
	store     SessionStore
	fence     geo.FenceConfig
	positions *PositionRegistry // boleh nil; fallback saat request tidak membawa posisi
	maxShift  time.Duration
	now       func() time.Time
	loc       *time.Location // zona untuk tanggal kalender sesi

	mu       sync.Mutex
	active   map[uuid.UUID]*activeSession
	inFlight map[uuid.UUID]struct{}

	live sync.Map // uuid.UUID → Snapshot, diisi ticker (read-model presentasi)
}

type activeSession struct {
	row *model.AttendanceSessionModel
	log *timeline.Log
}

// Snapshot adalah proyeksi read-only untuk layer presentasi.
type Snapshot struct {
	SessionID  uuid.UUID
	UserID     uuid.UUID
	Phase      timeline.Phase
	ClockInAt  time.Time
	ClockOutAt *time.Time
	Durations  timeline.Durations
	ComputedAt time.Time
}

const DefaultMaxShift = 14 * time.Hour

func NewClockService(store SessionStore, fence geo.FenceConfig, positions *PositionRegistry, maxShift time.Duration) *ClockService {
	if maxShift <= 0 {
		maxShift = DefaultMaxShift
	}
	return &ClockService{
		store:     store,
		fence:     fence,
		positions: positions,
		maxShift:  maxShift,
		now:       time.Now,
		loc:       time.Local,
		active:    make(map[uuid.UUID]*activeSession),
		inFlight:  make(map[uuid.UUID]struct{}),
	}
}

// WithClock mengganti sumber waktu (untuk test).
func (s *ClockService) WithClock(now func() time.Time) *ClockService {
	s.now = now
	return s
}

// WithLocation menetapkan zona waktu untuk tanggal kalender sesi
// (clock-in malam WIB tidak boleh jatuh ke tanggal UTC).
func (s *ClockService) WithLocation(loc *time.Location) *ClockService {
	if loc != nil {
		s.loc = loc
	}
	return s
}

/* =========================================================
   Guard: at-most-one-in-flight per user.

   Tap ganda clock-in/clock-out saat tulisan store masih jalan
   DITOLAK dengan ErrOperationInProgress, bukan di-antri —
   mencegah sesi ganda / event terminal ganda.
   ========================================================= */

func (s *ClockService) begin(userID uuid.UUID) (func(), error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, busy := s.inFlight[userID]; busy {
		return nil, ErrOperationInProgress
	}
	s.inFlight[userID] = struct{}{}
	return func() {
		s.mu.Lock()
		delete(s.inFlight, userID)
		s.mu.Unlock()
	}, nil
}

/* =========================================================
   ClockIn
   ========================================================= */

func (s *ClockService) ClockIn(ctx context.Context, userID uuid.UUID, pos *geo.Coordinate, attachmentRef string) (Snapshot, error) {
	// resolve posisi: body request dulu, fallback sampel terakhir device
	if pos == nil && s.positions != nil {
		if c, err := s.positions.ProviderFor(userID).CurrentPosition(ctx); err == nil {
			pos = &c
		}
	}
	if pos == nil {
		return Snapshot{}, ErrLocationUnknown
	}

	// gate geofence — batas radius inklusif
	verdict, err := geo.Evaluate(s.fence, pos)
	if err != nil {
		return Snapshot{}, err
	}
	if !verdict.InRange {
		return Snapshot{}, &OutOfRangeError{DistanceMeters: verdict.DistanceMeters}
	}

	release, err := s.begin(userID)
	if err != nil {
		return Snapshot{}, err
	}
	defer release()

	s.mu.Lock()
	if _, exists := s.active[userID]; exists {
		s.mu.Unlock()
		return Snapshot{}, ErrSessionAlreadyActive
	}
	s.mu.Unlock()

	now := s.now()
	sessID := uuid.New()
	y, m, d := now.In(s.loc).Date()
	row := &model.AttendanceSessionModel{
		AttendanceSessionID:        sessID,
		AttendanceSessionUserID:    userID,
		AttendanceSessionDate:      time.Date(y, m, d, 0, 0, 0, 0, time.UTC),
		AttendanceSessionClockInAt: now,
		AttendanceSessionStatus:    model.AttendanceSessionWorking,
	}
	if attachmentRef != "" {
		row.AttendanceSessionAttachmentRefs = []string{attachmentRef}
	}
	ev := timeline.Event{
		ID:            uuid.NewString(),
		Kind:          timeline.EventClockIn,
		At:            now,
		Location:      pos,
		AttachmentRef: attachmentRef,
	}

	if err := s.store.CreateSession(ctx, row, eventToModel(ev, sessID)); err != nil {
		return Snapshot{}, err // slot tidak berubah saat store gagal
	}

	lg := timeline.NewLog()
	_ = lg.Append(ev)

	s.mu.Lock()
	as := &activeSession{row: row, log: lg}
	s.active[userID] = as
	snap := s.buildSnapshot(as, now)
	s.mu.Unlock()
	return snap, nil
}

/* =========================================================
   AppendActivity (break / lembur / kunjungan klien)
   ========================================================= */

func (s *ClockService) AppendActivity(ctx context.Context, userID uuid.UUID, kind timeline.EventKind, pos *geo.Coordinate, attachmentRef, note string) (Snapshot, error) {
	if kind == timeline.EventClockIn || kind == timeline.EventClockOut {
		return Snapshot{}, ErrKindNotActivity
	}
	if !kind.Valid() {
		return Snapshot{}, timeline.ErrUnknownEventKind
	}
	if pos != nil {
		if err := pos.Validate(); err != nil {
			return Snapshot{}, err
		}
	}

	release, err := s.begin(userID)
	if err != nil {
		return Snapshot{}, err
	}
	defer release()

	s.mu.Lock()
	as, ok := s.active[userID]
	if !ok {
		s.mu.Unlock()
		return Snapshot{}, ErrNoActiveSession
	}
	phase, derr := as.log.Phase()
	s.mu.Unlock()
	if derr != nil {
		return Snapshot{}, derr
	}

	// validasi transisi SEBELUM mutasi; saat ditolak, log & store utuh
	next, err := timeline.Next(phase, kind)
	if err != nil {
		return Snapshot{}, err
	}

	now := s.now()
	ev := timeline.Event{
		ID:            uuid.NewString(),
		Kind:          kind,
		At:            now,
		Location:      pos,
		AttachmentRef: attachmentRef,
		Note:          note,
	}
	sessID := as.row.AttendanceSessionID
	if err := s.store.AppendEvent(ctx, sessID, eventToModel(ev, sessID), statusForPhase(next)); err != nil {
		return Snapshot{}, err
	}

	s.mu.Lock()
	_ = as.log.Append(ev)
	as.row.AttendanceSessionStatus = statusForPhase(next)
	if attachmentRef != "" {
		as.row.AttendanceSessionAttachmentRefs = append(as.row.AttendanceSessionAttachmentRefs, attachmentRef)
	}
	snap := s.buildSnapshot(as, now)
	s.mu.Unlock()
	return snap, nil
}

/* =========================================================
   ClockOut
   ========================================================= */

func (s *ClockService) ClockOut(ctx context.Context, userID uuid.UUID, attachmentRef, note string) (Snapshot, error) {
	release, err := s.begin(userID)
	if err != nil {
		return Snapshot{}, err
	}
	defer release()
	return s.finishSession(ctx, userID, s.now(), attachmentRef, note, false)
}

var subPhaseEnd = map[timeline.Phase]timeline.EventKind{
	timeline.PhaseOnBreak:     timeline.EventBreakEnd,
	timeline.PhaseOvertime:    timeline.EventOvertimeEnd,
	timeline.PhaseClientVisit: timeline.EventClientVisitEnd,
}

// finishSession menutup sesi pada instan `at`. Pemanggil wajib sudah
// memegang guard in-flight user ini. closeSubPhase hanya dipakai sweeper:
// mengakhiri sub-phase yang masih terbuka supaya log tetap legal.
func (s *ClockService) finishSession(ctx context.Context, userID uuid.UUID, at time.Time, attachmentRef, note string, closeSubPhase bool) (Snapshot, error) {
	s.mu.Lock()
	as, ok := s.active[userID]
	if !ok {
		s.mu.Unlock()
		return Snapshot{}, ErrNoActiveSession
	}
	phase, derr := as.log.Phase()
	// event terminal tidak boleh tersisip SEBELUM event yang sudah
	// tersimpan — user bisa saja sempat append setelah cap shift lewat
	if last, exists := as.log.Last(); exists && !at.After(last.At) {
		at = last.At.Add(time.Second)
	}
	s.mu.Unlock()
	if derr != nil {
		return Snapshot{}, derr
	}
	sessID := as.row.AttendanceSessionID

	// dua event sintetis (end sub-phase + clock-out) memakai instan yang
	// sama; tie-break urutan log adalah ID, jadi ID dipilih supaya end
	// selalu terurut sebelum clock-out
	endID, outID := uuid.NewString(), uuid.NewString()
	if endID > outID {
		endID, outID = outID, endID
	}

	if closeSubPhase {
		if endKind, open := subPhaseEnd[phase]; open {
			endEv := timeline.Event{
				ID:   endID,
				Kind: endKind,
				At:   at,
				Note: note,
			}
			if err := s.store.AppendEvent(ctx, sessID, eventToModel(endEv, sessID), model.AttendanceSessionWorking); err != nil {
				return Snapshot{}, err
			}
			s.mu.Lock()
			_ = as.log.Append(endEv)
			s.mu.Unlock()
			phase = timeline.PhaseWorking
		}
	}

	// clock-out hanya legal dari Working; dari sub-phase caller harus
	// mengakhiri sub-phase-nya dulu
	if _, err := timeline.Next(phase, timeline.EventClockOut); err != nil {
		return Snapshot{}, err
	}

	ev := timeline.Event{
		ID:            outID,
		Kind:          timeline.EventClockOut,
		At:            at,
		AttachmentRef: attachmentRef,
		Note:          note,
	}
	evModel := eventToModel(ev, sessID)
	if closeSubPhase {
		// jejak audit: clock-out ini hasil sweeper, bukan tap user
		evModel.ActivityEventMeta = datatypes.JSONMap{"auto_closed": true}
	}
	if err := s.store.FinalizeSession(ctx, sessID, at, evModel); err != nil {
		return Snapshot{}, err
	}

	s.mu.Lock()
	_ = as.log.Append(ev)
	clockOut := at
	as.row.AttendanceSessionClockOutAt = &clockOut
	as.row.AttendanceSessionStatus = model.AttendanceSessionCompleted
	if attachmentRef != "" {
		as.row.AttendanceSessionAttachmentRefs = append(as.row.AttendanceSessionAttachmentRefs, attachmentRef)
	}
	snap := s.buildSnapshot(as, at)
	delete(s.active, userID) // sesi selesai → immutable, slot kosong lagi
	s.mu.Unlock()
	s.live.Delete(userID)
	return snap, nil
}

/* =========================================================
   Proyeksi read-only
   ========================================================= */

// Snapshot menurunkan ulang phase + durasi dari log — murni dan idempoten;
// dipanggil tiap tick tampilan tanpa bookkeeping inkremental apa pun.
func (s *ClockService) Snapshot(userID uuid.UUID) (Snapshot, error) {
	s.mu.Lock()
	as, ok := s.active[userID]
	if !ok {
		s.mu.Unlock()
		return Snapshot{}, ErrNoActiveSession
	}
	snap := s.buildSnapshot(as, s.now())
	s.mu.Unlock()
	return snap, nil
}

// buildSnapshot: pemanggil memegang s.mu.
func (s *ClockService) buildSnapshot(as *activeSession, now time.Time) Snapshot {
	events := as.log.Events()
	phase, err := timeline.DerivePhase(events)
	if err != nil {
		phase = timeline.PhaseReady
	}
	durs, err := timeline.Accumulate(events, now)
	if err != nil {
		durs = timeline.Durations{}
	}
	return Snapshot{
		SessionID:  as.row.AttendanceSessionID,
		UserID:     as.row.AttendanceSessionUserID,
		Phase:      phase,
		ClockInAt:  as.row.AttendanceSessionClockInAt,
		ClockOutAt: as.row.AttendanceSessionClockOutAt,
		Durations:  durs,
		ComputedAt: now,
	}
}

// History mendelegasikan ke store; sesi historis read-only.
func (s *ClockService) History(ctx context.Context, userID uuid.UUID, limit, offset int) ([]model.AttendanceSessionModel, int64, error) {
	return s.store.ListSessions(ctx, userID, limit, offset)
}

// DurationsForSession menghitung ulang durasi satu baris sesi dari
// event-nya. Sesi yang masih open dihitung sampai `now`.
func DurationsForSession(row model.AttendanceSessionModel, now time.Time) (timeline.Durations, error) {
	lg := timeline.NewLog()
	for _, em := range row.Events {
		if err := lg.Append(modelToEvent(em)); err != nil {
			return timeline.Durations{}, err
		}
	}
	end := now
	if row.AttendanceSessionClockOutAt != nil {
		end = *row.AttendanceSessionClockOutAt
	}
	return timeline.Accumulate(lg.Events(), end)
}

func (s *ClockService) ActiveUserIDs() []uuid.UUID {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]uuid.UUID, 0, len(s.active))
	for id := range s.active {
		ids = append(ids, id)
	}
	return ids
}

/* =========================================================
   Rehydrate: muat sesi open dari store saat proses restart.
   Log dibangun ulang dari baris event (urut timestamp), jadi
   phase/durasi identik dengan sebelum restart.
   ========================================================= */

func (s *ClockService) Rehydrate(ctx context.Context) error {
	rows, err := s.store.LoadOpenSessions(ctx)
	if err != nil {
		return err
	}
	for i := range rows {
		row := rows[i]
		lg := timeline.NewLog()
		bad := false
		for _, em := range row.Events {
			if err := lg.Append(modelToEvent(em)); err != nil {
				log.Printf("[CLOCK] rehydrate: sesi %s punya event rusak (%v), dilewati", row.AttendanceSessionID, err)
				bad = true
				break
			}
		}
		if bad {
			continue
		}
		row.Events = nil // log sudah jadi sumber kebenaran di memori
		s.mu.Lock()
		s.active[row.AttendanceSessionUserID] = &activeSession{row: &row, log: lg}
		s.mu.Unlock()
	}
	log.Printf("[CLOCK] rehydrate: %d sesi aktif dimuat", len(rows))
	return nil
}

/* =========================================================
   Konversi timeline ↔ model
   ========================================================= */

func eventToModel(e timeline.Event, sessionID uuid.UUID) *model.ActivityEventModel {
	m := &model.ActivityEventModel{
		ActivityEventSessionID: sessionID,
		ActivityEventKind:      string(e.Kind),
		ActivityEventAt:        e.At,
	}
	if id, err := uuid.Parse(e.ID); err == nil {
		m.ActivityEventID = id
	}
	if e.Location != nil {
		lat, lng := e.Location.Lat, e.Location.Lng
		m.ActivityEventLat = &lat
		m.ActivityEventLng = &lng
	}
	if e.AttachmentRef != "" {
		ref := e.AttachmentRef
		m.ActivityEventAttachmentRef = &ref
	}
	if e.Note != "" {
		note := e.Note
		m.ActivityEventNote = &note
	}
	return m
}

func modelToEvent(m model.ActivityEventModel) timeline.Event {
	e := timeline.Event{
		ID:   m.ActivityEventID.String(),
		Kind: timeline.EventKind(m.ActivityEventKind),
		At:   m.ActivityEventAt,
	}
	if m.ActivityEventLat != nil && m.ActivityEventLng != nil {
		e.Location = &geo.Coordinate{Lat: *m.ActivityEventLat, Lng: *m.ActivityEventLng}
	}
	if m.ActivityEventAttachmentRef != nil {
		e.AttachmentRef = *m.ActivityEventAttachmentRef
	}
	if m.ActivityEventNote != nil {
		e.Note = *m.ActivityEventNote
	}
	return e
}

func statusForPhase(p timeline.Phase) model.AttendanceSessionStatus {
	switch p {
	case timeline.PhaseOnBreak:
		return model.AttendanceSessionOnBreak
	case timeline.PhaseOvertime:
		return model.AttendanceSessionOvertime
	case timeline.PhaseClientVisit:
		return model.AttendanceSessionClientVisit
	case timeline.PhaseCompleted:
		return model.AttendanceSessionCompleted
	default:
		return model.AttendanceSessionWorking
	}
}
