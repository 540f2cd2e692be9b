// file: internals/features/attendance/service/gorm_store.go
package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"hadirku_backend/internals/features/attendance/model"
)

// GormSessionStore: implementasi SessionStore di atas PostgreSQL via GORM.
type GormSessionStore struct {
	DB *gorm.DB
}

func NewGormSessionStore(db *gorm.DB) *GormSessionStore {
	return &GormSessionStore{DB: db}
}

func (s *GormSessionStore) CreateSession(ctx context.Context, sess *model.AttendanceSessionModel, first *model.ActivityEventModel) error {
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(sess).Error; err != nil {
			return err
		}
		first.ActivityEventSessionID = sess.AttendanceSessionID
		return tx.Create(first).Error
	})
	if err != nil {
		return &StoreError{Op: "create_session", Err: err}
	}
	return nil
}

func (s *GormSessionStore) AppendEvent(ctx context.Context, sessionID uuid.UUID, ev *model.ActivityEventModel, status model.AttendanceSessionStatus) error {
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ev.ActivityEventSessionID = sessionID
		if err := tx.Create(ev).Error; err != nil {
			return err
		}
		updates := map[string]interface{}{
			"attendance_session_status": status,
		}
		if ev.ActivityEventAttachmentRef != nil {
			updates["attendance_session_attachment_refs"] = gorm.Expr(
				"array_append(coalesce(attendance_session_attachment_refs, '{}'), ?)",
				*ev.ActivityEventAttachmentRef,
			)
		}
		return tx.Model(&model.AttendanceSessionModel{}).
			Where("attendance_session_id = ?", sessionID).
			Updates(updates).Error
	})
	if err != nil {
		return &StoreError{Op: "append_event", Err: err}
	}
	return nil
}

func (s *GormSessionStore) FinalizeSession(ctx context.Context, sessionID uuid.UUID, clockOutAt time.Time, last *model.ActivityEventModel) error {
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if last != nil {
			last.ActivityEventSessionID = sessionID
			if err := tx.Create(last).Error; err != nil {
				return err
			}
		}
		updates := map[string]interface{}{
			"attendance_session_clock_out_at": clockOutAt,
			"attendance_session_status":       model.AttendanceSessionCompleted,
		}
		if last != nil && last.ActivityEventAttachmentRef != nil {
			updates["attendance_session_attachment_refs"] = gorm.Expr(
				"array_append(coalesce(attendance_session_attachment_refs, '{}'), ?)",
				*last.ActivityEventAttachmentRef,
			)
		}
		return tx.Model(&model.AttendanceSessionModel{}).
			Where("attendance_session_id = ?", sessionID).
			Updates(updates).Error
	})
	if err != nil {
		return &StoreError{Op: "finalize_session", Err: err}
	}
	return nil
}

func (s *GormSessionStore) ListSessions(ctx context.Context, userID uuid.UUID, limit, offset int) ([]model.AttendanceSessionModel, int64, error) {
	q := s.DB.WithContext(ctx).Model(&model.AttendanceSessionModel{}).
		Where("attendance_session_user_id = ?", userID)

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, &StoreError{Op: "list_sessions", Err: err}
	}

	var rows []model.AttendanceSessionModel
	if err := q.
		Preload("Events", func(db *gorm.DB) *gorm.DB {
			return db.Order("activity_event_at ASC")
		}).
		Order("attendance_session_clock_in_at DESC").
		Limit(limit).Offset(offset).
		Find(&rows).Error; err != nil {
		return nil, 0, &StoreError{Op: "list_sessions", Err: err}
	}
	return rows, total, nil
}

func (s *GormSessionStore) LoadOpenSessions(ctx context.Context) ([]model.AttendanceSessionModel, error) {
	var rows []model.AttendanceSessionModel
	if err := s.DB.WithContext(ctx).
		Preload("Events", func(db *gorm.DB) *gorm.DB {
			return db.Order("activity_event_at ASC")
		}).
		Where("attendance_session_clock_out_at IS NULL").
		Find(&rows).Error; err != nil {
		return nil, &StoreError{Op: "load_open_sessions", Err: err}
	}
	return rows, nil
}
