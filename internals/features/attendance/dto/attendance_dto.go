// file: internals/features/attendance/dto/attendance_dto.go
package dto

import (
	"time"

	"hadirku_backend/internals/features/attendance/geo"
	"hadirku_backend/internals/features/attendance/model"
	"hadirku_backend/internals/features/attendance/service"
	"hadirku_backend/internals/features/attendance/timeline"
)

/* =========================================================
   REQUEST DTO
   ========================================================= */

// Lat/Lng pointer supaya "tidak ada posisi" bisa dibedakan dari (0,0) —
// absen tanpa posisi harus jadi LocationUnknown, bukan lolos diam-diam.
type ClockInRequest struct {
	Lat           *float64 `json:"lat" validate:"omitempty,gte=-90,lte=90"`
	Lng           *float64 `json:"lng" validate:"omitempty,gte=-180,lte=180"`
	AttachmentRef string   `json:"attachment_ref" validate:"omitempty,max=512"`
}

func (r *ClockInRequest) Position() *geo.Coordinate {
	return position(r.Lat, r.Lng)
}

type ActivityRequest struct {
	Kind          string   `json:"kind" validate:"required,oneof=break_start break_end overtime_start overtime_end client_visit_start client_visit_end"`
	Lat           *float64 `json:"lat" validate:"omitempty,gte=-90,lte=90"`
	Lng           *float64 `json:"lng" validate:"omitempty,gte=-180,lte=180"`
	AttachmentRef string   `json:"attachment_ref" validate:"omitempty,max=512"`
	Note          string   `json:"note" validate:"omitempty,max=1000"`
}

func (r *ActivityRequest) Position() *geo.Coordinate {
	return position(r.Lat, r.Lng)
}

type ClockOutRequest struct {
	AttachmentRef string `json:"attachment_ref" validate:"omitempty,max=512"`
	Note          string `json:"note" validate:"omitempty,max=1000"`
}

type PositionReportRequest struct {
	Lat *float64 `json:"lat" validate:"required,gte=-90,lte=90"`
	Lng *float64 `json:"lng" validate:"required,gte=-180,lte=180"`
}

func (r *PositionReportRequest) Coordinate() geo.Coordinate {
	return geo.Coordinate{Lat: *r.Lat, Lng: *r.Lng}
}

func position(lat, lng *float64) *geo.Coordinate {
	if lat == nil || lng == nil {
		return nil
	}
	return &geo.Coordinate{Lat: *lat, Lng: *lng}
}

/* =========================================================
   RESPONSE DTO
   ========================================================= */

// Durasi diformat HH:MM hanya di sini (boundary presentasi);
// internal tetap time.Duration penuh.
type DurationBreakdownResponse struct {
	Working     string `json:"working"`
	OnBreak     string `json:"on_break"`
	Overtime    string `json:"overtime"`
	ClientVisit string `json:"client_visit"`
	Total       string `json:"total"`
}

func FromDurations(d timeline.Durations) DurationBreakdownResponse {
	return DurationBreakdownResponse{
		Working:     timeline.FormatHHMM(d.Working),
		OnBreak:     timeline.FormatHHMM(d.OnBreak),
		Overtime:    timeline.FormatHHMM(d.Overtime),
		ClientVisit: timeline.FormatHHMM(d.ClientVisit),
		Total:       timeline.FormatHHMM(d.Total()),
	}
}

type FenceVerdictResponse struct {
	Known          bool     `json:"known"`
	InRange        bool     `json:"in_range"`
	DistanceMeters *float64 `json:"distance_meters,omitempty"`
}

func ToFenceVerdictResponse(v geo.Verdict) FenceVerdictResponse {
	out := FenceVerdictResponse{Known: v.Known, InRange: v.InRange}
	if v.Known {
		d := v.DistanceMeters
		out.DistanceMeters = &d
	}
	return out
}

type SessionSnapshotResponse struct {
	SessionID  string                    `json:"session_id"`
	UserID     string                    `json:"user_id"`
	Status     string                    `json:"status"`
	ClockInAt  time.Time                 `json:"clock_in_at"`
	ClockOutAt *time.Time                `json:"clock_out_at,omitempty"`
	Durations  DurationBreakdownResponse `json:"durations"`
	ComputedAt time.Time                 `json:"computed_at"`
}

func FromSnapshot(s service.Snapshot) SessionSnapshotResponse {
	return SessionSnapshotResponse{
		SessionID:  s.SessionID.String(),
		UserID:     s.UserID.String(),
		Status:     string(s.Phase),
		ClockInAt:  s.ClockInAt,
		ClockOutAt: s.ClockOutAt,
		Durations:  FromDurations(s.Durations),
		ComputedAt: s.ComputedAt,
	}
}

type ActivityEventResponse struct {
	ID            string     `json:"id"`
	Kind          string     `json:"kind"`
	At            time.Time  `json:"at"`
	Lat           *float64   `json:"lat,omitempty"`
	Lng           *float64   `json:"lng,omitempty"`
	AttachmentRef *string    `json:"attachment_ref,omitempty"`
	Note          *string    `json:"note,omitempty"`
}

type SessionHistoryResponse struct {
	SessionID      string                    `json:"session_id"`
	Date           string                    `json:"date"`
	ClockInAt      time.Time                 `json:"clock_in_at"`
	ClockOutAt     *time.Time                `json:"clock_out_at,omitempty"`
	Status         string                    `json:"status"`
	Durations      DurationBreakdownResponse `json:"durations"`
	AttachmentRefs []string                  `json:"attachment_refs,omitempty"`
	Events         []ActivityEventResponse   `json:"events"`
}

// FromSessionModel: baris historis + durasi yang sudah dihitung service.
func FromSessionModel(m model.AttendanceSessionModel, d timeline.Durations) SessionHistoryResponse {
	events := make([]ActivityEventResponse, 0, len(m.Events))
	for _, ev := range m.Events {
		events = append(events, ActivityEventResponse{
			ID:            ev.ActivityEventID.String(),
			Kind:          ev.ActivityEventKind,
			At:            ev.ActivityEventAt,
			Lat:           ev.ActivityEventLat,
			Lng:           ev.ActivityEventLng,
			AttachmentRef: ev.ActivityEventAttachmentRef,
			Note:          ev.ActivityEventNote,
		})
	}
	return SessionHistoryResponse{
		SessionID:      m.AttendanceSessionID.String(),
		Date:           m.AttendanceSessionDate.Format("2006-01-02"),
		ClockInAt:      m.AttendanceSessionClockInAt,
		ClockOutAt:     m.AttendanceSessionClockOutAt,
		Status:         string(m.AttendanceSessionStatus),
		Durations:      FromDurations(d),
		AttachmentRefs: m.AttendanceSessionAttachmentRefs,
		Events:         events,
	}
}
