package service

import (
	"context"
	"errors"
	"log"
	"time"

	"absensiku_backend/internals/configs"
	"absensiku_backend/internals/constants"
	"absensiku_backend/internals/features/attendance/model"
	"absensiku_backend/internals/helpers/storage"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

/*
RecordService: lifecycle record absensi harian.

Conditional update di ApplyPunch adalah otoritas ordering satu-satunya —
pre-check di orchestrator cuma untuk pesan error yang ramah.
*/
type RecordService struct {
	DB  *gorm.DB
	loc *time.Location
}

func NewRecordService(db *gorm.DB) *RecordService {
	loc, err := time.LoadLocation(configs.AttendanceTimezone)
	if err != nil {
		log.Printf("⚠️ timezone %q tidak valid, pakai Asia/Jakarta", configs.AttendanceTimezone)
		loc, _ = time.LoadLocation("Asia/Jakarta")
	}
	if loc == nil {
		loc = time.UTC
	}
	return &RecordService{DB: db, loc: loc}
}

// Today: tanggal absensi "hari ini" di zona yang dikonfigurasi.
func (s *RecordService) Today() time.Time {
	now := time.Now().In(s.loc)
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}

/* ===================== GET OR CREATE ===================== */

// GetOrCreate: satu record per (employee, date), idempotent di bawah
// first-punch konkuren — unique violation berarti "barusan dibuat orang",
// jadi re-fetch, bukan error.
func (s *RecordService) GetOrCreate(ctx context.Context, employeeID uuid.UUID, date time.Time) (*model.AttendanceRecordModel, error) {
	var rec model.AttendanceRecordModel
	err := s.DB.WithContext(ctx).
		Where("attendance_employee_id = ? AND attendance_date = ?", employeeID, date).
		Take(&rec).Error
	if err == nil {
		return &rec, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	rec = model.AttendanceRecordModel{
		AttendanceEmployeeID: employeeID,
		AttendanceDate:       date,
	}
	if err := s.DB.WithContext(ctx).Create(&rec).Error; err != nil {
		if isUniqueViolation(err) {
			var existing model.AttendanceRecordModel
			if err := s.DB.WithContext(ctx).
				Where("attendance_employee_id = ? AND attendance_date = ?", employeeID, date).
				Take(&existing).Error; err != nil {
				return nil, err
			}
			return &existing, nil
		}
		return nil, err
	}
	return &rec, nil
}

func (s *RecordService) GetByID(ctx context.Context, id uuid.UUID) (*model.AttendanceRecordModel, error) {
	var rec model.AttendanceRecordModel
	if err := s.DB.WithContext(ctx).
		Where("attendance_id = ?", id).
		Take(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRecordNotFound
		}
		return nil, err
	}
	return &rec, nil
}

/* ===================== APPLY PUNCH ===================== */

type PunchGeo struct {
	Latitude  *float64
	Longitude *float64
	Address   string
}

// ApplyPunch: transisi state lewat conditional UPDATE. Kalau rows affected 0,
// ada race yang kalah — kembalikan error ordering yang bisa dibedakan,
// jangan pernah overwrite diam-diam.
func (s *RecordService) ApplyPunch(
	ctx context.Context,
	recordID uuid.UUID,
	direction string,
	imageRef storage.ImageReference,
	geo PunchGeo,
	actorID *uuid.UUID,
	verification datatypes.JSON,
) (*model.AttendanceRecordModel, error) {
	now := time.Now().In(s.loc)
	refStr := imageRef.String()

	var res *gorm.DB
	switch direction {
	case constants.PunchDirectionIn:
		updates := map[string]any{
			"attendance_punch_in_time":      now,
			"attendance_punch_in_image_ref": nilIfEmpty(refStr),
			"attendance_in_latitude":        geo.Latitude,
			"attendance_in_longitude":       geo.Longitude,
			"attendance_in_address":         nilIfEmpty(geo.Address),
			"attendance_punched_in_by":      actorID,
		}
		if len(verification) > 0 {
			updates["attendance_in_verification"] = verification
		}
		res = s.DB.WithContext(ctx).
			Model(&model.AttendanceRecordModel{}).
			Where("attendance_id = ? AND attendance_punch_in_time IS NULL", recordID).
			Updates(updates)

	case constants.PunchDirectionOut:
		updates := map[string]any{
			"attendance_punch_out_time":      now,
			"attendance_punch_out_image_ref": nilIfEmpty(refStr),
			"attendance_out_latitude":        geo.Latitude,
			"attendance_out_longitude":       geo.Longitude,
			"attendance_out_address":         nilIfEmpty(geo.Address),
			"attendance_punched_out_by":      actorID,
		}
		if len(verification) > 0 {
			updates["attendance_out_verification"] = verification
		}
		res = s.DB.WithContext(ctx).
			Model(&model.AttendanceRecordModel{}).
			Where("attendance_id = ? AND attendance_punch_in_time IS NOT NULL AND attendance_punch_out_time IS NULL", recordID).
			Updates(updates)

	default:
		return nil, ErrValidation
	}

	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, s.classifyPunchConflict(ctx, recordID, direction)
	}

	return s.GetByID(ctx, recordID)
}

// classifyPunchConflict: rows affected 0 — bedakan record hilang vs ordering.
func (s *RecordService) classifyPunchConflict(ctx context.Context, recordID uuid.UUID, direction string) error {
	rec, err := s.GetByID(ctx, recordID)
	if err != nil {
		return err
	}
	if direction == constants.PunchDirectionIn {
		return ErrAlreadyPunchedIn
	}
	if rec.AttendancePunchInTime == nil {
		return ErrMustPunchInFirst
	}
	return ErrAlreadyPunchedOut
}

/* ===================== LIST (riwayat) ===================== */

func (s *RecordService) ListByEmployee(ctx context.Context, employeeID uuid.UUID, limit, offset int) ([]model.AttendanceRecordModel, int64, error) {
	var total int64
	q := s.DB.WithContext(ctx).
		Model(&model.AttendanceRecordModel{}).
		Where("attendance_employee_id = ?", employeeID)
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []model.AttendanceRecordModel
	if err := q.Order("attendance_date DESC").
		Limit(limit).Offset(offset).
		Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

/* ===================== PG error helpers ===================== */

// 23505 = unique violation (pgx dan lib/pq dua-duanya dicek)
func isUniqueViolation(err error) bool {
	var pgxErr *pgconn.PgError
	if errors.As(err, &pgxErr) {
		return pgxErr.Code == "23505"
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code) == "23505"
	}
	return errors.Is(err, gorm.ErrDuplicatedKey)
}

func nilIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
