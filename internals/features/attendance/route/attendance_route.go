package route

import (
	"absensiku_backend/internals/features/attendance/controller"
	"absensiku_backend/internals/features/attendance/service"
	"absensiku_backend/internals/helpers/facerec"
	"absensiku_backend/internals/helpers/storage"
	"absensiku_backend/internals/middlewares"
	"absensiku_backend/internals/middlewares/auth"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// AttendanceRoutes: endpoint punch + riwayat absensi.
// JWT opsional — perangkat absensi di lapangan identitasnya dari wajah.
func AttendanceRoutes(api fiber.Router, db *gorm.DB, faces *facerec.Client, gw storage.Gateway) {
	punchSvc := service.NewPunchService(db, faces, gw)
	recordSvc := service.NewRecordService(db)
	ctrl := controller.NewAttendanceController(punchSvc, recordSvc, gw)

	attendance := api.Group("/attendance", auth.AuthOptional())
	attendance.Post("/punch", middlewares.PunchRateLimiter(), ctrl.SubmitPunch)
	attendance.Get("/employee/:employee_id", ctrl.ListByEmployee)
	attendance.Get("/:id/image/:direction", ctrl.GetPunchImage)
}
