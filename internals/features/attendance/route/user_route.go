// internals/features/attendance/route/user_route.go
package route

import (
	attendanceController "hadirku_backend/internals/features/attendance/controller"
	"hadirku_backend/internals/features/attendance/service"
	middlewares "hadirku_backend/internals/middlewares"

	"github.com/gofiber/fiber/v2"
)

/*
User routes kehadiran.
Mount contoh: AttendanceUserRoutes(app.Group("/api/u"), svc, positions)
— identitas user dari header X-User-ID (gateway).
*/
func AttendanceUserRoutes(r fiber.Router, svc *service.ClockService, positions *service.PositionRegistry) {
	ctl := attendanceController.NewAttendanceController(svc, positions)

	clockLimiter := middlewares.ClockRateLimiter()

	attendance := r.Group("/attendance")
	attendance.Post("/clock-in", clockLimiter, ctl.ClockIn) // POST /api/u/attendance/clock-in
	attendance.Post("/activities", ctl.AppendActivity)      // break/lembur/kunjungan klien
	attendance.Post("/clock-out", clockLimiter, ctl.ClockOut)
	attendance.Post("/position", middlewares.PositionRateLimiter(), ctl.ReportPosition) // sampel GPS terbaru device
	attendance.Get("/status", ctl.Status)            // snapshot sesi + verdict geofence
	attendance.Get("/live", ctl.Live)                // read-model hasil ticker
	attendance.Get("/sessions", ctl.ListSessions)    // riwayat (paginated)
}
