// file: internals/route/index.go
package routes

import (
	"log"

	attendanceRoute "absensiku_backend/internals/features/attendance/route"
	employeeRoute "absensiku_backend/internals/features/employees/route"
	"absensiku_backend/internals/helpers/facerec"
	"absensiku_backend/internals/helpers/storage"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

func SetupRoutes(app *fiber.App, db *gorm.DB) {
	// ===================== SHARED INFRA =====================
	log.Println("[INFO] Setting up storage gateway...")
	gw := storage.NewGatewayFromEnv("attendance")

	log.Println("[INFO] Setting up face recognition client...")
	faces := facerec.NewClientFromEnv()

	api := app.Group("/api/a")

	log.Println("[INFO] Setting up AttendanceRoutes...")
	attendanceRoute.AttendanceRoutes(api, db, faces, gw)

	log.Println("[INFO] Setting up EmployeeRoutes...")
	employeeRoute.EmployeeRoutes(api, db, faces, gw)
}
