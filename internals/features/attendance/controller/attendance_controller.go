package controller

import (
	"errors"

	"absensiku_backend/internals/constants"
	"absensiku_backend/internals/features/attendance/dto"
	"absensiku_backend/internals/features/attendance/service"
	empService "absensiku_backend/internals/features/employees/service"
	helper "absensiku_backend/internals/helpers"
	"absensiku_backend/internals/helpers/facerec"
	"absensiku_backend/internals/helpers/storage"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type AttendanceController struct {
	Punch   *service.PunchService
	Records *service.RecordService
	Storage storage.Gateway
}

func NewAttendanceController(punch *service.PunchService, records *service.RecordService, gw storage.Gateway) *AttendanceController {
	return &AttendanceController{Punch: punch, Records: records, Storage: gw}
}

/* ===================== SUBMIT PUNCH ===================== */
// POST /attendance/punch (multipart: photo + form fields)
func (ctrl *AttendanceController) SubmitPunch(c *fiber.Ctx) error {
	var req dto.PunchRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Payload tidak valid")
	}

	v := validator.New()
	if err := v.Struct(req); err != nil {
		return helper.ValidationError(c, err)
	}

	in := service.PunchInput{
		Direction:        req.Direction,
		Latitude:         req.Latitude,
		Longitude:        req.Longitude,
		Address:          req.Address,
		RequireFaceMatch: req.RequireFaceMatch,
		ActorID:          helper.GetActorIDFromToken(c),
	}

	if req.EmployeeID != "" {
		id, err := uuid.Parse(req.EmployeeID)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "employee_id tidak valid")
		}
		in.EmployeeID = &id
	}

	if helper.IsMultipart(c) {
		fh, err := helper.GetImageFile(c)
		if err != nil {
			return err
		}
		if fh != nil {
			if fh.Size > constants.MaxPhotoUploadSize {
				return fiber.NewError(fiber.StatusRequestEntityTooLarge, "Foto terlalu besar (maks 5MB)")
			}
			data, err := helper.ReadFormFile(fh)
			if err != nil {
				return fiber.NewError(fiber.StatusBadRequest, "Gagal membaca foto")
			}
			in.Photo = data
			in.PhotoName = fh.Filename
		}
	}

	out, err := ctrl.Punch.SubmitPunch(c.UserContext(), in)
	if err != nil {
		return writePunchError(c, err)
	}

	resp := dto.PunchResponse{
		Record:         dto.FromAttendanceModel(*out.Record),
		FaceSimilarity: out.FaceSimilarity,
		FaceThreshold:  out.FaceThreshold,
	}
	msg := "Punch in berhasil"
	if req.Direction == constants.PunchDirectionOut {
		msg = "Punch out berhasil"
	}
	return helper.JsonOK(c, msg, resp)
}

/* ===================== FETCH PUNCH IMAGE ===================== */
// GET /attendance/:id/image/:direction
func (ctrl *AttendanceController) GetPunchImage(c *fiber.Ctx) error {
	recordID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "ID tidak valid")
	}
	direction := c.Params("direction")
	if direction != constants.PunchDirectionIn && direction != constants.PunchDirectionOut {
		return fiber.NewError(fiber.StatusBadRequest, "Arah harus 'in' atau 'out'")
	}

	rec, err := ctrl.Records.GetByID(c.UserContext(), recordID)
	if err != nil {
		return writePunchError(c, err)
	}

	var stored *string
	if direction == constants.PunchDirectionIn {
		stored = rec.AttendancePunchInImageRef
	} else {
		stored = rec.AttendancePunchOutImageRef
	}
	if stored == nil || *stored == "" {
		return helper.JsonError(c, fiber.StatusNotFound, "Foto punch tidak ditemukan")
	}

	data, contentType, err := ctrl.Storage.Resolve(c.UserContext(), storage.ParseReference(*stored))
	if err != nil {
		if errors.Is(err, storage.ErrImageNotFound) {
			return helper.JsonError(c, fiber.StatusNotFound, "Foto punch tidak ditemukan")
		}
		return helper.JsonError(c, fiber.StatusBadGateway, "Storage sedang bermasalah, coba lagi")
	}

	c.Set(fiber.HeaderContentType, contentType)
	return c.Send(data)
}

/* ===================== LIST (riwayat per employee) ===================== */
// GET /attendance/employee/:employee_id
func (ctrl *AttendanceController) ListByEmployee(c *fiber.Ctx) error {
	employeeID, err := uuid.Parse(c.Params("employee_id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "employee_id tidak valid")
	}

	p := helper.ResolvePaging(c, 20, 100)
	rows, total, err := ctrl.Records.ListByEmployee(c.UserContext(), employeeID, p.Limit, p.Offset)
	if err != nil {
		return helper.JsonError(c, fiber.StatusInternalServerError, "Gagal mengambil riwayat absensi")
	}

	items := make([]dto.AttendanceResponse, 0, len(rows))
	for _, r := range rows {
		items = append(items, dto.FromAttendanceModel(r))
	}
	return helper.JsonList(c, "Riwayat absensi", items, helper.BuildPaginationFromPage(total, p.Page, p.PerPage))
}

/* ===================== Error mapping ===================== */

func writePunchError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, service.ErrValidation):
		return helper.JsonError(c, fiber.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, service.ErrAlreadyPunchedIn):
		return helper.JsonError(c, fiber.StatusConflict, "Sudah punch in hari ini")
	case errors.Is(err, service.ErrAlreadyPunchedOut):
		return helper.JsonError(c, fiber.StatusConflict, "Sudah punch out hari ini")
	case errors.Is(err, service.ErrMustPunchInFirst):
		return helper.JsonError(c, fiber.StatusConflict, "Belum punch in — punch in dulu sebelum punch out")
	case errors.Is(err, service.ErrFaceMismatch):
		return helper.JsonError(c, fiber.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, service.ErrRecordNotFound):
		return helper.JsonError(c, fiber.StatusNotFound, "Record absensi tidak ditemukan")
	case errors.Is(err, empService.ErrEmployeeNotFound):
		return helper.JsonError(c, fiber.StatusNotFound, "Employee tidak ditemukan")
	case errors.Is(err, empService.ErrEmployeeNotRegistered):
		return helper.JsonError(c, fiber.StatusNotFound, "Wajah tidak dikenali — employee belum terdaftar")
	case errors.Is(err, empService.ErrEnrollmentMissing):
		return helper.JsonError(c, fiber.StatusUnprocessableEntity, "Wajah employee belum di-enroll — daftarkan wajah dulu sebelum verifikasi")
	case errors.Is(err, facerec.ErrNoFaceDetected):
		return helper.JsonError(c, fiber.StatusUnprocessableEntity, "Tidak ada wajah terdeteksi di foto")
	case errors.Is(err, facerec.ErrRateLimited):
		return helper.JsonError(c, fiber.StatusTooManyRequests, "Service pengenalan wajah sibuk, coba lagi")
	case errors.Is(err, facerec.ErrCollectionNotFound):
		return helper.JsonError(c, fiber.StatusBadGateway, "Konfigurasi face collection bermasalah")
	case errors.Is(err, facerec.ErrServiceUnavailable):
		return helper.JsonError(c, fiber.StatusBadGateway, "Service pengenalan wajah tidak tersedia, coba lagi")
	case errors.Is(err, storage.ErrStorageUnavailable):
		return helper.JsonError(c, fiber.StatusBadGateway, "Storage sedang bermasalah, coba lagi")
	case errors.Is(err, storage.ErrImageNotFound):
		return helper.JsonError(c, fiber.StatusNotFound, "Foto tidak ditemukan")
	default:
		return helper.JsonError(c, fiber.StatusInternalServerError, "Terjadi kesalahan internal")
	}
}
