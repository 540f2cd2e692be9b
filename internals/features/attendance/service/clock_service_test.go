package service

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/google/uuid"

	"hadirku_backend/internals/features/attendance/geo"
	"hadirku_backend/internals/features/attendance/model"
	"hadirku_backend/internals/features/attendance/timeline"
)

const earthRadiusMeters = 6371000.0

var (
	fenceCenter = geo.Coordinate{Lat: 0, Lng: 0}
	testUser    = uuid.MustParse("6b1f4f6e-8f7a-4a1e-9b55-0d6c2f9e4a01")
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time   { return c.t }
func (c *fakeClock) Set(h, m, s int)  { c.t = time.Date(2025, 3, 10, h, m, s, 0, time.UTC) }

func metersNorth(m float64) geo.Coordinate {
	return geo.Coordinate{Lat: m / earthRadiusMeters * 180 / math.Pi, Lng: 0}
}

func newTestService(radius float64) (*ClockService, *MemorySessionStore, *fakeClock) {
	clock := &fakeClock{}
	clock.Set(9, 0, 0)
	store := NewMemorySessionStore()
	fence := geo.FenceConfig{Center: fenceCenter, RadiusMeters: radius}
	svc := NewClockService(store, fence, nil, 14*time.Hour).WithClock(clock.Now)
	return svc, store, clock
}

func TestClockIn_OutOfRange(t *testing.T) {
	svc, store, _ := newTestService(100)
	pos := metersNorth(150)

	_, err := svc.ClockIn(context.Background(), testUser, &pos, "")
	var oor *OutOfRangeError
	if !errors.As(err, &oor) {
		t.Fatalf("err = %v, want OutOfRangeError", err)
	}
	if math.Abs(oor.DistanceMeters-150) > 1 {
		t.Fatalf("DistanceMeters = %v, want ~150", oor.DistanceMeters)
	}
	if rows, _, _ := store.ListSessions(context.Background(), testUser, 10, 0); len(rows) != 0 {
		t.Fatal("tidak boleh ada mutasi store saat clock-in ditolak")
	}
}

func TestClockIn_BoundaryInclusive(t *testing.T) {
	pos := metersNorth(100)
	d, err := geo.DistanceMeters(fenceCenter, pos)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	svc, _, _ := newTestService(d) // radius == jarak persis → tepat di batas
	snap, err := svc.ClockIn(context.Background(), testUser, &pos, "selfie-001")
	if err != nil {
		t.Fatalf("tepat di batas radius harus diterima, err = %v", err)
	}
	if snap.Phase != timeline.PhaseWorking {
		t.Fatalf("phase = %s, want working", snap.Phase)
	}
}

func TestClockIn_LocationUnknown(t *testing.T) {
	svc, _, _ := newTestService(100)
	if _, err := svc.ClockIn(context.Background(), testUser, nil, ""); !errors.Is(err, ErrLocationUnknown) {
		t.Fatalf("err = %v, want ErrLocationUnknown", err)
	}
}

func TestClockIn_InvalidCoordinate(t *testing.T) {
	svc, _, _ := newTestService(100)
	bad := geo.Coordinate{Lat: 95, Lng: 0}
	if _, err := svc.ClockIn(context.Background(), testUser, &bad, ""); !errors.Is(err, geo.ErrInvalidCoordinate) {
		t.Fatalf("err = %v, want ErrInvalidCoordinate", err)
	}
}

func TestClockIn_FallbackToReportedPosition(t *testing.T) {
	clock := &fakeClock{}
	clock.Set(9, 0, 0)
	fence := geo.FenceConfig{Center: fenceCenter, RadiusMeters: 100}
	registry := NewPositionRegistry(fence, 30*time.Second).WithClock(clock.Now)
	svc := NewClockService(NewMemorySessionStore(), fence, registry, 14*time.Hour).WithClock(clock.Now)

	if _, err := registry.Report(testUser, metersNorth(10)); err != nil {
		t.Fatalf("report: %v", err)
	}
	// body tidak membawa posisi → pakai sampel terakhir device
	if _, err := svc.ClockIn(context.Background(), testUser, nil, ""); err != nil {
		t.Fatalf("clock-in dengan posisi terlapor harus sukses, err = %v", err)
	}
}

func TestDoubleClockIn(t *testing.T) {
	svc, _, _ := newTestService(100)
	pos := metersNorth(10)

	first, err := svc.ClockIn(context.Background(), testUser, &pos, "")
	if err != nil {
		t.Fatalf("clock-in pertama: %v", err)
	}
	if _, err := svc.ClockIn(context.Background(), testUser, &pos, ""); !errors.Is(err, ErrSessionAlreadyActive) {
		t.Fatalf("err = %v, want ErrSessionAlreadyActive", err)
	}
	snap, err := svc.Snapshot(testUser)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if snap.SessionID != first.SessionID {
		t.Fatal("session id berubah padahal clock-in kedua ditolak")
	}
}

func TestAppendActivity_InvalidTransitionLeavesLogUntouched(t *testing.T) {
	svc, store, clock := newTestService(100)
	pos := metersNorth(10)
	ctx := context.Background()

	if _, err := svc.ClockIn(ctx, testUser, &pos, ""); err != nil {
		t.Fatalf("clock-in: %v", err)
	}
	clock.Set(12, 0, 0)
	if _, err := svc.AppendActivity(ctx, testUser, timeline.EventBreakStart, nil, "", ""); err != nil {
		t.Fatalf("break start: %v", err)
	}

	// BreakStart kedua saat masih OnBreak → ditolak, jumlah event tetap
	clock.Set(12, 5, 0)
	_, err := svc.AppendActivity(ctx, testUser, timeline.EventBreakStart, nil, "", "")
	var ite *timeline.InvalidTransitionError
	if !errors.As(err, &ite) {
		t.Fatalf("err = %v, want InvalidTransitionError", err)
	}
	if ite.From != timeline.PhaseOnBreak || ite.Kind != timeline.EventBreakStart {
		t.Fatalf("payload error = %+v", ite)
	}

	rows, _, err := store.ListSessions(ctx, testUser, 10, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(rows[0].Events) != 2 {
		t.Fatalf("jumlah event = %d, want 2 (clock_in + break_start)", len(rows[0].Events))
	}
}

func TestAppendActivity_RejectsClockKinds(t *testing.T) {
	svc, _, _ := newTestService(100)
	pos := metersNorth(10)
	ctx := context.Background()
	if _, err := svc.ClockIn(ctx, testUser, &pos, ""); err != nil {
		t.Fatalf("clock-in: %v", err)
	}
	if _, err := svc.AppendActivity(ctx, testUser, timeline.EventClockOut, nil, "", ""); !errors.Is(err, ErrKindNotActivity) {
		t.Fatalf("err = %v, want ErrKindNotActivity", err)
	}
}

func TestClockOut_FromSubPhaseRejected(t *testing.T) {
	svc, _, clock := newTestService(100)
	pos := metersNorth(10)
	ctx := context.Background()

	if _, err := svc.ClockIn(ctx, testUser, &pos, ""); err != nil {
		t.Fatalf("clock-in: %v", err)
	}
	clock.Set(12, 0, 0)
	if _, err := svc.AppendActivity(ctx, testUser, timeline.EventOvertimeStart, nil, "", ""); err != nil {
		t.Fatalf("overtime start: %v", err)
	}

	clock.Set(13, 0, 0)
	_, err := svc.ClockOut(ctx, testUser, "", "")
	var ite *timeline.InvalidTransitionError
	if !errors.As(err, &ite) {
		t.Fatalf("clock-out saat lembur harus InvalidTransition, err = %v", err)
	}

	// akhiri lembur dulu, baru boleh pulang
	if _, err := svc.AppendActivity(ctx, testUser, timeline.EventOvertimeEnd, nil, "", ""); err != nil {
		t.Fatalf("overtime end: %v", err)
	}
	if _, err := svc.ClockOut(ctx, testUser, "", ""); err != nil {
		t.Fatalf("clock-out: %v", err)
	}
}

func TestEndToEndDurations(t *testing.T) {
	svc, store, clock := newTestService(100)
	pos := metersNorth(10)
	ctx := context.Background()

	clock.Set(9, 0, 0)
	if _, err := svc.ClockIn(ctx, testUser, &pos, "selfie-in"); err != nil {
		t.Fatalf("clock-in: %v", err)
	}
	clock.Set(12, 0, 0)
	if _, err := svc.AppendActivity(ctx, testUser, timeline.EventBreakStart, nil, "", "istirahat makan siang"); err != nil {
		t.Fatalf("break start: %v", err)
	}
	clock.Set(12, 30, 0)
	if _, err := svc.AppendActivity(ctx, testUser, timeline.EventBreakEnd, nil, "", ""); err != nil {
		t.Fatalf("break end: %v", err)
	}
	clock.Set(17, 30, 0)
	snap, err := svc.ClockOut(ctx, testUser, "selfie-out", "")
	if err != nil {
		t.Fatalf("clock-out: %v", err)
	}

	if snap.Phase != timeline.PhaseCompleted {
		t.Fatalf("phase = %s, want completed", snap.Phase)
	}
	if snap.Durations.Working != 8*time.Hour {
		t.Fatalf("Working = %v, want 8h", snap.Durations.Working)
	}
	if snap.Durations.OnBreak != 30*time.Minute {
		t.Fatalf("OnBreak = %v, want 30m", snap.Durations.OnBreak)
	}
	if snap.Durations.Overtime != 0 || snap.Durations.ClientVisit != 0 {
		t.Fatal("Overtime/ClientVisit harus 0")
	}
	if snap.Durations.Total() != 8*time.Hour+30*time.Minute {
		t.Fatalf("Total = %v, want 8h30m", snap.Durations.Total())
	}

	// slot kosong lagi; sesi historis tersimpan lengkap
	if _, err := svc.Snapshot(testUser); !errors.Is(err, ErrNoActiveSession) {
		t.Fatalf("err = %v, want ErrNoActiveSession", err)
	}
	rows, total, err := store.ListSessions(ctx, testUser, 10, 0)
	if err != nil || total != 1 {
		t.Fatalf("list: err=%v total=%d", err, total)
	}
	if rows[0].AttendanceSessionClockOutAt == nil {
		t.Fatal("clock_out_at harus terisi")
	}
	if rows[0].AttendanceSessionStatus != model.AttendanceSessionCompleted {
		t.Fatalf("status = %s, want completed", rows[0].AttendanceSessionStatus)
	}
	if len(rows[0].Events) != 4 {
		t.Fatalf("jumlah event = %d, want 4", len(rows[0].Events))
	}
	if len(rows[0].AttendanceSessionAttachmentRefs) != 2 {
		t.Fatalf("attachment refs = %v, want 2 ref", rows[0].AttendanceSessionAttachmentRefs)
	}
}

/* =========================================================
   Store gagal & guard in-flight
   ========================================================= */

type failingStore struct {
	SessionStore
}

func (f *failingStore) CreateSession(context.Context, *model.AttendanceSessionModel, *model.ActivityEventModel) error {
	return &StoreError{Op: "create_session", Err: errors.New("koneksi putus")}
}

func TestClockIn_StoreErrorLeavesSlotEmpty(t *testing.T) {
	clock := &fakeClock{}
	clock.Set(9, 0, 0)
	fence := geo.FenceConfig{Center: fenceCenter, RadiusMeters: 100}
	svc := NewClockService(&failingStore{NewMemorySessionStore()}, fence, nil, 14*time.Hour).WithClock(clock.Now)
	pos := metersNorth(10)

	_, err := svc.ClockIn(context.Background(), testUser, &pos, "")
	var se *StoreError
	if !errors.As(err, &se) {
		t.Fatalf("err = %v, want StoreError", err)
	}
	if _, err := svc.Snapshot(testUser); !errors.Is(err, ErrNoActiveSession) {
		t.Fatal("slot aktif harus tetap kosong saat store gagal")
	}
}

type blockingStore struct {
	SessionStore
	entered chan struct{}
	release chan struct{}
}

func (b *blockingStore) CreateSession(ctx context.Context, sess *model.AttendanceSessionModel, first *model.ActivityEventModel) error {
	close(b.entered)
	<-b.release
	return b.SessionStore.CreateSession(ctx, sess, first)
}

func TestClockIn_SecondCallWhileInFlightRejected(t *testing.T) {
	clock := &fakeClock{}
	clock.Set(9, 0, 0)
	fence := geo.FenceConfig{Center: fenceCenter, RadiusMeters: 100}
	store := &blockingStore{
		SessionStore: NewMemorySessionStore(),
		entered:      make(chan struct{}),
		release:      make(chan struct{}),
	}
	svc := NewClockService(store, fence, nil, 14*time.Hour).WithClock(clock.Now)
	pos := metersNorth(10)

	done := make(chan error, 1)
	go func() {
		_, err := svc.ClockIn(context.Background(), testUser, &pos, "")
		done <- err
	}()
	<-store.entered // tulisan store pertama sedang menggantung

	if _, err := svc.ClockIn(context.Background(), testUser, &pos, ""); !errors.Is(err, ErrOperationInProgress) {
		t.Fatalf("err = %v, want ErrOperationInProgress (bukan antri)", err)
	}

	close(store.release)
	if err := <-done; err != nil {
		t.Fatalf("clock-in pertama: %v", err)
	}
}

/* =========================================================
   Rehydrate & sweeper
   ========================================================= */

func TestRehydrateRestoresActiveSession(t *testing.T) {
	svc, store, clock := newTestService(100)
	pos := metersNorth(10)
	ctx := context.Background()

	if _, err := svc.ClockIn(ctx, testUser, &pos, ""); err != nil {
		t.Fatalf("clock-in: %v", err)
	}
	clock.Set(12, 0, 0)
	if _, err := svc.AppendActivity(ctx, testUser, timeline.EventBreakStart, nil, "", ""); err != nil {
		t.Fatalf("break start: %v", err)
	}

	// proses "restart": service baru, store lama
	fence := geo.FenceConfig{Center: fenceCenter, RadiusMeters: 100}
	svc2 := NewClockService(store, fence, nil, 14*time.Hour).WithClock(clock.Now)
	if err := svc2.Rehydrate(ctx); err != nil {
		t.Fatalf("rehydrate: %v", err)
	}

	clock.Set(12, 30, 0)
	snap, err := svc2.Snapshot(testUser)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if snap.Phase != timeline.PhaseOnBreak {
		t.Fatalf("phase = %s, want on_break", snap.Phase)
	}
	if snap.Durations.Working != 3*time.Hour {
		t.Fatalf("Working = %v, want 3h", snap.Durations.Working)
	}
	if snap.Durations.OnBreak != 30*time.Minute {
		t.Fatalf("OnBreak = %v, want 30m", snap.Durations.OnBreak)
	}
}

func TestSweeperClosesExpiredSession(t *testing.T) {
	clock := &fakeClock{}
	clock.Set(9, 0, 0)
	fence := geo.FenceConfig{Center: fenceCenter, RadiusMeters: 100}
	store := NewMemorySessionStore()
	svc := NewClockService(store, fence, nil, 2*time.Hour).WithClock(clock.Now)
	pos := metersNorth(10)
	ctx := context.Background()

	if _, err := svc.ClockIn(ctx, testUser, &pos, ""); err != nil {
		t.Fatalf("clock-in: %v", err)
	}
	clock.Set(9, 30, 0)
	if _, err := svc.AppendActivity(ctx, testUser, timeline.EventBreakStart, nil, "", ""); err != nil {
		t.Fatalf("break start: %v", err)
	}

	clock.Set(15, 0, 0) // jauh melewati batas shift 2 jam
	svc.sweepExpired(ctx)

	if _, err := svc.Snapshot(testUser); !errors.Is(err, ErrNoActiveSession) {
		t.Fatal("sesi kedaluwarsa harus sudah ditutup sweeper")
	}
	rows, _, err := store.ListSessions(ctx, testUser, 10, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	row := rows[0]
	if row.AttendanceSessionClockOutAt == nil {
		t.Fatal("clock_out_at harus terisi")
	}
	wantCap := time.Date(2025, 3, 10, 11, 0, 0, 0, time.UTC)
	if !row.AttendanceSessionClockOutAt.Equal(wantCap) {
		t.Fatalf("clock out = %v, want cap %v", row.AttendanceSessionClockOutAt, wantCap)
	}
	// break yang masih terbuka diakhiri dulu di cap supaya log tetap legal
	if len(row.Events) != 4 {
		t.Fatalf("jumlah event = %d, want 4 (in, break_start, break_end, out)", len(row.Events))
	}
	// baris historis harus tetap bisa diturunkan dari event-nya
	if _, err := DurationsForSession(row, clock.Now()); err != nil {
		t.Fatalf("durasi sesi tertutup tidak bisa diturunkan: %v", err)
	}
}

func TestSweeperClosesSessionWithAppendsPastCap(t *testing.T) {
	clock := &fakeClock{}
	clock.Set(9, 0, 0)
	fence := geo.FenceConfig{Center: fenceCenter, RadiusMeters: 100}
	store := NewMemorySessionStore()
	svc := NewClockService(store, fence, nil, 2*time.Hour).WithClock(clock.Now)
	pos := metersNorth(10)
	ctx := context.Background()

	if _, err := svc.ClockIn(ctx, testUser, &pos, ""); err != nil {
		t.Fatalf("clock-in: %v", err)
	}

	// cap 11:00 sudah lewat, tapi user masih sempat mulai break —
	// event sintetis sweeper tidak boleh tersisip sebelum event ini
	clock.Set(12, 0, 0)
	if _, err := svc.AppendActivity(ctx, testUser, timeline.EventBreakStart, nil, "", ""); err != nil {
		t.Fatalf("break start: %v", err)
	}

	clock.Set(15, 0, 0)
	svc.sweepExpired(ctx)

	if _, err := svc.Snapshot(testUser); !errors.Is(err, ErrNoActiveSession) {
		t.Fatal("sesi kedaluwarsa harus sudah ditutup sweeper")
	}
	rows, _, err := store.ListSessions(ctx, testUser, 10, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	row := rows[0]

	lastEvent := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	if !row.AttendanceSessionClockOutAt.After(lastEvent) {
		t.Fatalf("clock out = %v, harus setelah event terakhir %v",
			row.AttendanceSessionClockOutAt, lastEvent)
	}

	durs, err := DurationsForSession(row, clock.Now())
	if err != nil {
		t.Fatalf("log tersimpan harus tetap legal dari Ready: %v", err)
	}
	if durs.Working != 3*time.Hour {
		t.Fatalf("Working = %v, want 3h", durs.Working)
	}
	want := row.AttendanceSessionClockOutAt.Sub(row.AttendanceSessionClockInAt)
	if durs.Total() != want {
		t.Fatalf("Total = %v, want %v", durs.Total(), want)
	}
}

func TestClockIn_DateFollowsServiceTimezone(t *testing.T) {
	clock := &fakeClock{}
	clock.Set(18, 30, 0) // 2025-03-10 18:30 UTC = 2025-03-11 01:30 WIB
	fence := geo.FenceConfig{Center: fenceCenter, RadiusMeters: 100}
	store := NewMemorySessionStore()
	wib := time.FixedZone("WIB", 7*3600)
	svc := NewClockService(store, fence, nil, 14*time.Hour).WithClock(clock.Now).WithLocation(wib)
	pos := metersNorth(10)

	if _, err := svc.ClockIn(context.Background(), testUser, &pos, ""); err != nil {
		t.Fatalf("clock-in: %v", err)
	}

	rows, _, err := store.ListSessions(context.Background(), testUser, 10, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	want := time.Date(2025, 3, 11, 0, 0, 0, 0, time.UTC)
	if !rows[0].AttendanceSessionDate.Equal(want) {
		t.Fatalf("tanggal sesi = %v, want %v (kalender WIB, bukan UTC)",
			rows[0].AttendanceSessionDate, want)
	}
}
