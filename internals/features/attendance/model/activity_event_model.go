// file: internals/features/attendance/model/activity_event_model.go
package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type ActivityEventModel struct {
	// PK — id juga dipakai sebagai kunci dedup di event log
	ActivityEventID uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey;column:activity_event_id" json:"activity_event_id"`

	// FK
	ActivityEventSessionID uuid.UUID `gorm:"type:uuid;not null;column:activity_event_session_id;index:idx_activity_event_session" json:"activity_event_session_id"`

	// clock_in | clock_out | break_start | break_end | overtime_start |
	// overtime_end | client_visit_start | client_visit_end
	ActivityEventKind string `gorm:"type:varchar(24);not null;column:activity_event_kind" json:"activity_event_kind"`

	// Urutan efektif log = ascending activity_event_at, bukan created_at
	ActivityEventAt time.Time `gorm:"not null;column:activity_event_at;index:idx_activity_event_at" json:"activity_event_at"`

	// Posisi saat event (nullable — tidak semua event membawa lokasi)
	ActivityEventLat *float64 `gorm:"type:double precision;column:activity_event_lat" json:"activity_event_lat,omitempty"`
	ActivityEventLng *float64 `gorm:"type:double precision;column:activity_event_lng" json:"activity_event_lng,omitempty"`

	// Ref selfie (opaque string dari attachment producer, disimpan verbatim)
	ActivityEventAttachmentRef *string `gorm:"type:text;column:activity_event_attachment_ref" json:"activity_event_attachment_ref,omitempty"`

	// Catatan bebas user
	ActivityEventNote *string `gorm:"type:text;column:activity_event_note" json:"activity_event_note,omitempty"`

	// Metadata bebas dari device (accuracy, platform, dsb) — tidak pernah
	// diinterpretasi oleh core
	ActivityEventMeta datatypes.JSONMap `gorm:"type:jsonb;column:activity_event_meta" json:"activity_event_meta,omitempty"`

	ActivityEventCreatedAt time.Time `gorm:"column:activity_event_created_at;autoCreateTime" json:"activity_event_created_at"`
}

func (ActivityEventModel) TableName() string {
	return "activity_events"
}
