package route

import (
	"absensiku_backend/internals/features/employees/controller"
	"absensiku_backend/internals/features/employees/service"
	"absensiku_backend/internals/helpers/facerec"
	"absensiku_backend/internals/helpers/storage"
	"absensiku_backend/internals/middlewares"
	"absensiku_backend/internals/middlewares/auth"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// EmployeeRoutes: master-data employee (read-only) + lifecycle enrollment wajah.
// Semua endpoint di sini wajib JWT (dipakai admin, bukan perangkat absensi).
func EmployeeRoutes(api fiber.Router, db *gorm.DB, faces *facerec.Client, gw storage.Gateway) {
	identity := service.NewIdentityService(db, faces, gw)
	ctrl := controller.NewEmployeeController(db, identity)

	employees := api.Group("/employees", auth.AuthRequired())
	employees.Get("/", ctrl.ListEmployees)
	employees.Get("/:id", ctrl.GetEmployee)
	employees.Post("/:id/face", middlewares.EnrollRateLimiter(), ctrl.EnrollFace)
	employees.Delete("/:id/face", ctrl.DeleteEnrollment)
}
