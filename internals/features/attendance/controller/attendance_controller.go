// file: internals/features/attendance/controller/attendance_controller.go
package controller

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"hadirku_backend/internals/features/attendance/dto"
	"hadirku_backend/internals/features/attendance/geo"
	"hadirku_backend/internals/features/attendance/service"
	"hadirku_backend/internals/features/attendance/timeline"
	helper "hadirku_backend/internals/helpers"
)

type AttendanceController struct {
	Service   *service.ClockService
	Positions *service.PositionRegistry
	validate  *validator.Validate
}

func NewAttendanceController(svc *service.ClockService, positions *service.PositionRegistry) *AttendanceController {
	return &AttendanceController{
		Service:   svc,
		Positions: positions,
		validate:  validator.New(),
	}
}

// Identitas user datang dari gateway lewat header X-User-ID
// (autentikasi ada di luar service ini).
func userIDFromRequest(c *fiber.Ctx) (uuid.UUID, error) {
	raw := strings.TrimSpace(c.Get("X-User-ID"))
	if raw == "" {
		raw = strings.TrimSpace(c.Query("user_id"))
	}
	if raw == "" {
		return uuid.Nil, fiber.NewError(fiber.StatusBadRequest, "X-User-ID wajib diisi")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fiber.NewError(fiber.StatusBadRequest, "X-User-ID bukan UUID yang valid")
	}
	return id, nil
}

/* =========================================================
   POST /clock-in
   ========================================================= */

func (ctl *AttendanceController) ClockIn(c *fiber.Ctx) error {
	userID, err := userIDFromRequest(c)
	if err != nil {
		return err
	}

	var req dto.ClockInRequest
	if err := c.BodyParser(&req); err != nil {
		return helper.Error(c, fiber.StatusBadRequest, "Body request tidak valid")
	}
	if err := ctl.validate.Struct(req); err != nil {
		return helper.ValidationError(c, err)
	}

	snap, err := ctl.Service.ClockIn(c.UserContext(), userID, req.Position(), req.AttachmentRef)
	if err != nil {
		return ctl.domainError(c, err)
	}
	return helper.SuccessWithCode(c, fiber.StatusCreated, "Clock-in berhasil", dto.FromSnapshot(snap))
}

/* =========================================================
   POST /activities — break / lembur / kunjungan klien
   ========================================================= */

func (ctl *AttendanceController) AppendActivity(c *fiber.Ctx) error {
	userID, err := userIDFromRequest(c)
	if err != nil {
		return err
	}

	var req dto.ActivityRequest
	if err := c.BodyParser(&req); err != nil {
		return helper.Error(c, fiber.StatusBadRequest, "Body request tidak valid")
	}
	if err := ctl.validate.Struct(req); err != nil {
		return helper.ValidationError(c, err)
	}

	snap, err := ctl.Service.AppendActivity(
		c.UserContext(), userID,
		timeline.EventKind(req.Kind),
		req.Position(), req.AttachmentRef, req.Note,
	)
	if err != nil {
		return ctl.domainError(c, err)
	}
	return helper.Success(c, "Aktivitas dicatat", dto.FromSnapshot(snap))
}

/* =========================================================
   POST /clock-out
   ========================================================= */

func (ctl *AttendanceController) ClockOut(c *fiber.Ctx) error {
	userID, err := userIDFromRequest(c)
	if err != nil {
		return err
	}

	var req dto.ClockOutRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return helper.Error(c, fiber.StatusBadRequest, "Body request tidak valid")
		}
		if err := ctl.validate.Struct(req); err != nil {
			return helper.ValidationError(c, err)
		}
	}

	snap, err := ctl.Service.ClockOut(c.UserContext(), userID, req.AttachmentRef, req.Note)
	if err != nil {
		return ctl.domainError(c, err)
	}
	return helper.Success(c, "Clock-out berhasil", dto.FromSnapshot(snap))
}

/* =========================================================
   POST /position — sampel GPS terbaru dari device
   ========================================================= */

func (ctl *AttendanceController) ReportPosition(c *fiber.Ctx) error {
	userID, err := userIDFromRequest(c)
	if err != nil {
		return err
	}

	var req dto.PositionReportRequest
	if err := c.BodyParser(&req); err != nil {
		return helper.Error(c, fiber.StatusBadRequest, "Body request tidak valid")
	}
	if err := ctl.validate.Struct(req); err != nil {
		return helper.ValidationError(c, err)
	}

	verdict, err := ctl.Positions.Report(userID, req.Coordinate())
	if err != nil {
		return ctl.domainError(c, err)
	}
	return helper.Success(c, "Posisi dicatat", dto.ToFenceVerdictResponse(verdict))
}

/* =========================================================
   GET /status — snapshot sesi aktif + verdict geofence terakhir
   ========================================================= */

func (ctl *AttendanceController) Status(c *fiber.Ctx) error {
	userID, err := userIDFromRequest(c)
	if err != nil {
		return err
	}

	payload := fiber.Map{
		"geofence": dto.ToFenceVerdictResponse(ctl.Positions.Verdict(userID)),
	}
	snap, err := ctl.Service.Snapshot(userID)
	if err == nil {
		payload["session"] = dto.FromSnapshot(snap)
	} else if !errors.Is(err, service.ErrNoActiveSession) {
		return ctl.domainError(c, err)
	}
	return helper.Success(c, "Status kehadiran", payload)
}

/* =========================================================
   GET /live — read-model hasil ticker (papan monitor)
   ========================================================= */

func (ctl *AttendanceController) Live(c *fiber.Ctx) error {
	snaps := ctl.Service.LiveSnapshots()
	items := make([]dto.SessionSnapshotResponse, 0, len(snaps))
	for _, s := range snaps {
		items = append(items, dto.FromSnapshot(s))
	}
	return helper.Success(c, "Sesi aktif", items)
}

/* =========================================================
   GET /sessions — riwayat sesi user (paginated)
   ========================================================= */

func (ctl *AttendanceController) ListSessions(c *fiber.Ctx) error {
	userID, err := userIDFromRequest(c)
	if err != nil {
		return err
	}

	p := helper.ParseFiber(c, "clock_in_at", "desc", helper.DefaultOpts)
	rows, total, err := ctl.Service.History(c.UserContext(), userID, p.Limit(), p.Offset())
	if err != nil {
		return ctl.domainError(c, err)
	}

	now := c.Context().Time()
	items := make([]dto.SessionHistoryResponse, 0, len(rows))
	for _, row := range rows {
		durs, derr := service.DurationsForSession(row, now)
		if derr != nil {
			// baris korup tidak boleh menjatuhkan seluruh riwayat
			durs = timeline.Durations{}
		}
		items = append(items, dto.FromSessionModel(row, durs))
	}

	return helper.Success(c, "Riwayat sesi", fiber.Map{
		"items":      items,
		"pagination": helper.BuildMeta(total, p),
	})
}

/* =========================================================
   Pemetaan error domain → HTTP
   ========================================================= */

func (ctl *AttendanceController) domainError(c *fiber.Ctx, err error) error {
	var oor *service.OutOfRangeError
	var ite *timeline.InvalidTransitionError
	var se *service.StoreError

	switch {
	case errors.Is(err, geo.ErrInvalidCoordinate):
		return helper.Error(c, fiber.StatusBadRequest, "Koordinat tidak valid")
	case errors.Is(err, timeline.ErrUnknownEventKind), errors.Is(err, service.ErrKindNotActivity):
		return helper.Error(c, fiber.StatusBadRequest, "Jenis aktivitas tidak dikenal")
	case errors.Is(err, service.ErrLocationUnknown):
		return helper.Error(c, fiber.StatusUnprocessableEntity, "Lokasi tidak diketahui, clock-in ditolak")
	case errors.As(err, &oor):
		return helper.ErrorWithDetails(c, fiber.StatusUnprocessableEntity,
			"Di luar radius kantor", fiber.Map{"distance_meters": oor.DistanceMeters})
	case errors.As(err, &ite):
		return helper.Error(c, fiber.StatusConflict, ite.Error())
	case errors.Is(err, service.ErrSessionAlreadyActive):
		return helper.Error(c, fiber.StatusConflict, "Masih ada sesi aktif, clock-out dulu")
	case errors.Is(err, service.ErrNoActiveSession):
		return helper.Error(c, fiber.StatusConflict, "Tidak ada sesi aktif")
	case errors.Is(err, service.ErrOperationInProgress):
		return helper.Error(c, fiber.StatusConflict, "Operasi sebelumnya masih berjalan, coba lagi")
	case errors.As(err, &se):
		return helper.Error(c, fiber.StatusBadGateway, "Penyimpanan sesi sedang bermasalah")
	default:
		return helper.Error(c, fiber.StatusInternalServerError, "Terjadi kesalahan internal")
	}
}
