// file: internals/features/attendance/service/memory_store.go
package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"hadirku_backend/internals/features/attendance/model"
)

// MemorySessionStore: implementasi SessionStore in-memory dengan semantik
// yang sama seperti GormSessionStore. Dipakai saat DB_HOST kosong (mode dev)
// dan oleh test service.
type MemorySessionStore struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]*model.AttendanceSessionModel
	events   map[uuid.UUID][]model.ActivityEventModel
}

func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{
		sessions: make(map[uuid.UUID]*model.AttendanceSessionModel),
		events:   make(map[uuid.UUID][]model.ActivityEventModel),
	}
}

func (s *MemorySessionStore) CreateSession(_ context.Context, sess *model.AttendanceSessionModel, first *model.ActivityEventModel) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *sess
	s.sessions[sess.AttendanceSessionID] = &cp
	first.ActivityEventSessionID = sess.AttendanceSessionID
	s.events[sess.AttendanceSessionID] = []model.ActivityEventModel{*first}
	return nil
}

func (s *MemorySessionStore) AppendEvent(_ context.Context, sessionID uuid.UUID, ev *model.ActivityEventModel, status model.AttendanceSessionStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[sessionID]
	if !ok {
		return &StoreError{Op: "append_event", Err: ErrNoActiveSession}
	}
	ev.ActivityEventSessionID = sessionID
	s.events[sessionID] = append(s.events[sessionID], *ev)
	sess.AttendanceSessionStatus = status
	if ev.ActivityEventAttachmentRef != nil {
		sess.AttendanceSessionAttachmentRefs = append(sess.AttendanceSessionAttachmentRefs, *ev.ActivityEventAttachmentRef)
	}
	return nil
}

func (s *MemorySessionStore) FinalizeSession(_ context.Context, sessionID uuid.UUID, clockOutAt time.Time, last *model.ActivityEventModel) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[sessionID]
	if !ok {
		return &StoreError{Op: "finalize_session", Err: ErrNoActiveSession}
	}
	if last != nil {
		last.ActivityEventSessionID = sessionID
		s.events[sessionID] = append(s.events[sessionID], *last)
		if last.ActivityEventAttachmentRef != nil {
			sess.AttendanceSessionAttachmentRefs = append(sess.AttendanceSessionAttachmentRefs, *last.ActivityEventAttachmentRef)
		}
	}
	t := clockOutAt
	sess.AttendanceSessionClockOutAt = &t
	sess.AttendanceSessionStatus = model.AttendanceSessionCompleted
	return nil
}

func (s *MemorySessionStore) ListSessions(_ context.Context, userID uuid.UUID, limit, offset int) ([]model.AttendanceSessionModel, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var rows []model.AttendanceSessionModel
	for _, sess := range s.sessions {
		if sess.AttendanceSessionUserID != userID {
			continue
		}
		cp := *sess
		cp.Events = s.sortedEvents(sess.AttendanceSessionID)
		rows = append(rows, cp)
	}
	sort.Slice(rows, func(i, j int) bool {
		return rows[i].AttendanceSessionClockInAt.After(rows[j].AttendanceSessionClockInAt)
	})

	total := int64(len(rows))
	if offset >= len(rows) {
		return nil, total, nil
	}
	rows = rows[offset:]
	if limit > 0 && limit < len(rows) {
		rows = rows[:limit]
	}
	return rows, total, nil
}

func (s *MemorySessionStore) LoadOpenSessions(_ context.Context) ([]model.AttendanceSessionModel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var rows []model.AttendanceSessionModel
	for _, sess := range s.sessions {
		if sess.AttendanceSessionClockOutAt != nil {
			continue
		}
		cp := *sess
		cp.Events = s.sortedEvents(sess.AttendanceSessionID)
		rows = append(rows, cp)
	}
	return rows, nil
}

func (s *MemorySessionStore) sortedEvents(sessionID uuid.UUID) []model.ActivityEventModel {
	evs := make([]model.ActivityEventModel, len(s.events[sessionID]))
	copy(evs, s.events[sessionID])
	sort.Slice(evs, func(i, j int) bool {
		return evs[i].ActivityEventAt.Before(evs[j].ActivityEventAt)
	})
	return evs
}
