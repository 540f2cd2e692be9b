// file: internals/features/attendance/service/store.go
package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"hadirku_backend/internals/features/attendance/model"
)

// SessionStore adalah kolaborator persistence. Core memperlakukan semua
// method sebagai durable ordered write; kebijakan retry/backoff (kalau ada)
// hidup di implementasi store, bukan di sini.
type SessionStore interface {
	// CreateSession menyimpan sesi baru beserta event clock_in pertamanya
	// secara atomik.
	CreateSession(ctx context.Context, sess *model.AttendanceSessionModel, first *model.ActivityEventModel) error

	// AppendEvent menambah satu event ke sesi dan memperbarui snapshot
	// status pada baris sesi.
	AppendEvent(ctx context.Context, sessionID uuid.UUID, ev *model.ActivityEventModel, status model.AttendanceSessionStatus) error

	// FinalizeSession menulis event clock_out terakhir dan menutup sesi
	// (clock_out_at + status completed) dalam satu tulisan durable.
	FinalizeSession(ctx context.Context, sessionID uuid.UUID, clockOutAt time.Time, last *model.ActivityEventModel) error

	// ListSessions mengembalikan riwayat sesi satu user, terbaru dulu.
	ListSessions(ctx context.Context, userID uuid.UUID, limit, offset int) ([]model.AttendanceSessionModel, int64, error)

	// LoadOpenSessions memuat semua sesi yang belum clock-out beserta
	// event-nya (untuk rehydrate slot aktif saat proses restart).
	LoadOpenSessions(ctx context.Context) ([]model.AttendanceSessionModel, error)
}
