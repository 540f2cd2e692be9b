// file: internals/features/attendance/model/attendance_session_model.go
package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"
)

type AttendanceSessionStatus string

const (
	AttendanceSessionWorking     AttendanceSessionStatus = "working"
	AttendanceSessionOnBreak     AttendanceSessionStatus = "on_break"
	AttendanceSessionOvertime    AttendanceSessionStatus = "overtime"
	AttendanceSessionClientVisit AttendanceSessionStatus = "client_visit"
	AttendanceSessionCompleted   AttendanceSessionStatus = "completed"
)

type AttendanceSessionModel struct {
	// PK
	AttendanceSessionID uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey;column:attendance_session_id" json:"attendance_session_id"`

	// Owner
	AttendanceSessionUserID uuid.UUID `gorm:"type:uuid;not null;column:attendance_session_user_id;index:idx_attendance_session_user" json:"attendance_session_user_id"`

	// Satu sesi = satu hari kerja clock-in → clock-out
	AttendanceSessionDate       time.Time  `gorm:"type:date;not null;column:attendance_session_date;index:idx_attendance_session_date" json:"attendance_session_date"`
	AttendanceSessionClockInAt  time.Time  `gorm:"not null;column:attendance_session_clock_in_at" json:"attendance_session_clock_in_at"`
	AttendanceSessionClockOutAt *time.Time `gorm:"column:attendance_session_clock_out_at" json:"attendance_session_clock_out_at,omitempty"`

	// Status turunan dari log (DB hanya menyimpan snapshot terakhir;
	// sumber kebenaran tetap event log). status != completed ⇔ clock_out NULL.
	AttendanceSessionStatus AttendanceSessionStatus `gorm:"type:varchar(16);not null;default:working;column:attendance_session_status;index:idx_attendance_session_status" json:"attendance_session_status"`

	// Ref lampiran selfie (opaque, dari attachment producer) — kumpulan
	// semua ref yang pernah dipakai event di sesi ini.
	AttendanceSessionAttachmentRefs pq.StringArray `gorm:"type:text[];column:attendance_session_attachment_refs" json:"attendance_session_attachment_refs,omitempty"`

	// Timestamps
	AttendanceSessionCreatedAt time.Time      `gorm:"column:attendance_session_created_at;autoCreateTime" json:"attendance_session_created_at"`
	AttendanceSessionUpdatedAt time.Time      `gorm:"column:attendance_session_updated_at;autoUpdateTime" json:"attendance_session_updated_at"`
	AttendanceSessionDeletedAt gorm.DeletedAt `gorm:"column:attendance_session_deleted_at;index" json:"attendance_session_deleted_at,omitempty"`

	// Relasi
	Events []ActivityEventModel `gorm:"foreignKey:ActivityEventSessionID;references:AttendanceSessionID" json:"events,omitempty"`
}

func (AttendanceSessionModel) TableName() string {
	return "attendance_sessions"
}
