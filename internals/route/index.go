// file: internals/route/index.go
package routes

import (
	"log"
	"time"

	attendanceRoute "hadirku_backend/internals/features/attendance/route"
	"hadirku_backend/internals/features/attendance/service"

	"github.com/gofiber/fiber/v2"
)

var startTime time.Time

// SetupRoutes memasang seluruh route aplikasi. Autentikasi ada di
// gateway depan; service ini hanya membaca X-User-ID.
func SetupRoutes(app *fiber.App, svc *service.ClockService, positions *service.PositionRegistry) {
	startTime = time.Now()

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "ok",
			"uptime": time.Since(startTime).Round(time.Second).String(),
		})
	})

	// ===================== PRIVATE (USER) =====================
	log.Println("[INFO] Setting up PRIVATE group...")
	private := app.Group("/api/u")

	log.Println("[INFO] Mounting Attendance routes...")
	attendanceRoute.AttendanceUserRoutes(private, svc, positions)
}
