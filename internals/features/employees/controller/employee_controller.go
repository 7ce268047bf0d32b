package controller

import (
	"errors"

	"absensiku_backend/internals/constants"
	"absensiku_backend/internals/features/employees/dto"
	"absensiku_backend/internals/features/employees/model"
	"absensiku_backend/internals/features/employees/service"
	helper "absensiku_backend/internals/helpers"
	"absensiku_backend/internals/helpers/facerec"
	"absensiku_backend/internals/helpers/storage"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type EmployeeController struct {
	DB       *gorm.DB
	Identity *service.IdentityService
}

func NewEmployeeController(db *gorm.DB, identity *service.IdentityService) *EmployeeController {
	return &EmployeeController{DB: db, Identity: identity}
}

/* ===================== LIST & DETAIL ===================== */

// GET /employees
func (ctrl *EmployeeController) ListEmployees(c *fiber.Ctx) error {
	p := helper.ResolvePaging(c, 20, 100)

	q := ctrl.DB.WithContext(c.UserContext()).Model(&model.EmployeeModel{})
	if search := c.Query("search"); search != "" {
		q = q.Where("employee_name ILIKE ? OR employee_code ILIKE ?", "%"+search+"%", "%"+search+"%")
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return helper.JsonError(c, fiber.StatusInternalServerError, "Gagal menghitung employee")
	}

	var rows []model.EmployeeModel
	if err := q.Order("employee_name ASC").
		Limit(p.Limit).Offset(p.Offset).
		Find(&rows).Error; err != nil {
		return helper.JsonError(c, fiber.StatusInternalServerError, "Gagal mengambil data employee")
	}

	items := make([]dto.EmployeeResponse, 0, len(rows))
	for _, r := range rows {
		items = append(items, dto.FromEmployeeModel(r))
	}
	return helper.JsonList(c, "Daftar employee", items, helper.BuildPaginationFromPage(total, p.Page, p.PerPage))
}

// GET /employees/:id
func (ctrl *EmployeeController) GetEmployee(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "ID tidak valid")
	}
	emp, err := ctrl.Identity.GetByID(c.UserContext(), id)
	if err != nil {
		return writeEmployeeError(c, err)
	}
	return helper.JsonOK(c, "Detail employee", dto.FromEmployeeModel(*emp))
}

/* ===================== FACE ENROLLMENT ===================== */

// POST /employees/:id/face (multipart: photo)
func (ctrl *EmployeeController) EnrollFace(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "ID tidak valid")
	}

	fh, err := helper.GetImageFile(c)
	if err != nil {
		return err
	}
	if fh == nil {
		return fiber.NewError(fiber.StatusBadRequest, "Foto wajib diunggah")
	}
	if fh.Size > constants.MaxPhotoUploadSize {
		return fiber.NewError(fiber.StatusRequestEntityTooLarge, "Foto terlalu besar (maks 5MB)")
	}
	data, err := helper.ReadFormFile(fh)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Gagal membaca foto")
	}

	result, err := ctrl.Identity.Enroll(c.UserContext(), id, data, fh.Filename)
	if err != nil {
		return writeEmployeeError(c, err)
	}
	return helper.JsonCreated(c, "Wajah berhasil di-enroll", result)
}

// DELETE /employees/:id/face
func (ctrl *EmployeeController) DeleteEnrollment(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "ID tidak valid")
	}
	if err := ctrl.Identity.DeleteEnrollment(c.UserContext(), id); err != nil {
		return writeEmployeeError(c, err)
	}
	return helper.JsonDeleted(c, "Enrollment wajah dihapus", fiber.Map{"employee_id": id})
}

/* ===================== Error mapping ===================== */

func writeEmployeeError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, service.ErrEmployeeNotFound):
		return helper.JsonError(c, fiber.StatusNotFound, "Employee tidak ditemukan")
	case errors.Is(err, service.ErrEnrollmentConflict):
		return helper.JsonError(c, fiber.StatusConflict, "Employee sudah punya enrollment wajah — hapus dulu sebelum enroll ulang")
	case errors.Is(err, facerec.ErrNoFaceDetected):
		return helper.JsonError(c, fiber.StatusUnprocessableEntity, "Tidak ada wajah terdeteksi di foto")
	case errors.Is(err, facerec.ErrRateLimited):
		return helper.JsonError(c, fiber.StatusTooManyRequests, "Service pengenalan wajah sibuk, coba lagi")
	case errors.Is(err, facerec.ErrServiceUnavailable):
		return helper.JsonError(c, fiber.StatusBadGateway, "Service pengenalan wajah tidak tersedia, coba lagi")
	case errors.Is(err, storage.ErrStorageUnavailable):
		return helper.JsonError(c, fiber.StatusBadGateway, "Storage sedang bermasalah, coba lagi")
	default:
		return helper.JsonError(c, fiber.StatusInternalServerError, "Terjadi kesalahan internal")
	}
}
