package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Satu record per (employee, tanggal). Unik — first punch konkuren aman
// karena insert kedua kena unique violation lalu re-fetch.
type AttendanceRecordModel struct {
	AttendanceID uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey;column:attendance_id" json:"attendance_id"`

	AttendanceEmployeeID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:uq_attendance_employee_date;column:attendance_employee_id" json:"attendance_employee_id"`
	AttendanceDate       time.Time `gorm:"type:date;not null;uniqueIndex:uq_attendance_employee_date;column:attendance_date" json:"attendance_date"`

	// Punch times immutable begitu terisi (tidak ada re-punch)
	AttendancePunchInTime  *time.Time `gorm:"column:attendance_punch_in_time" json:"attendance_punch_in_time,omitempty"`
	AttendancePunchOutTime *time.Time `gorm:"column:attendance_punch_out_time" json:"attendance_punch_out_time,omitempty"`

	// ImageReference persisted sebagai "backend:key"
	AttendancePunchInImageRef  *string `gorm:"column:attendance_punch_in_image_ref" json:"attendance_punch_in_image_ref,omitempty"`
	AttendancePunchOutImageRef *string `gorm:"column:attendance_punch_out_image_ref" json:"attendance_punch_out_image_ref,omitempty"`

	AttendanceInLatitude   *float64 `gorm:"column:attendance_in_latitude" json:"attendance_in_latitude,omitempty"`
	AttendanceInLongitude  *float64 `gorm:"column:attendance_in_longitude" json:"attendance_in_longitude,omitempty"`
	AttendanceInAddress    *string  `gorm:"column:attendance_in_address" json:"attendance_in_address,omitempty"`
	AttendanceOutLatitude  *float64 `gorm:"column:attendance_out_latitude" json:"attendance_out_latitude,omitempty"`
	AttendanceOutLongitude *float64 `gorm:"column:attendance_out_longitude" json:"attendance_out_longitude,omitempty"`
	AttendanceOutAddress   *string  `gorm:"column:attendance_out_address" json:"attendance_out_address,omitempty"`

	AttendancePunchedInBy  *uuid.UUID `gorm:"type:uuid;column:attendance_punched_in_by" json:"attendance_punched_in_by,omitempty"`
	AttendancePunchedOutBy *uuid.UUID `gorm:"type:uuid;column:attendance_punched_out_by" json:"attendance_punched_out_by,omitempty"`

	// Audit verifikasi wajah: {"similarity":..,"threshold":..,"face_id":..}
	AttendanceInVerification  datatypes.JSON `gorm:"column:attendance_in_verification" json:"attendance_in_verification,omitempty"`
	AttendanceOutVerification datatypes.JSON `gorm:"column:attendance_out_verification" json:"attendance_out_verification,omitempty"`

	AttendanceCreatedAt time.Time  `gorm:"column:attendance_created_at;autoCreateTime" json:"attendance_created_at"`
	AttendanceUpdatedAt *time.Time `gorm:"column:attendance_updated_at;autoUpdateTime" json:"attendance_updated_at,omitempty"`
}

func (AttendanceRecordModel) TableName() string { return "attendance_records" }

/* ===============================
   State machine: Empty → PunchedIn → Complete
=================================*/

const (
	StateEmpty     = "empty"
	StatePunchedIn = "punched_in"
	StateComplete  = "complete"
)

func (m *AttendanceRecordModel) State() string {
	switch {
	case m.AttendancePunchInTime == nil:
		return StateEmpty
	case m.AttendancePunchOutTime == nil:
		return StatePunchedIn
	default:
		return StateComplete
	}
}

// Duration: durasi kerja turunan, nil kalau belum complete.
func (m *AttendanceRecordModel) Duration() *time.Duration {
	if m.AttendancePunchInTime == nil || m.AttendancePunchOutTime == nil {
		return nil
	}
	d := m.AttendancePunchOutTime.Sub(*m.AttendancePunchInTime)
	return &d
}
