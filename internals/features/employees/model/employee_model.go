package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type EmployeeModel struct {
	EmployeeID uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey;column:employee_id" json:"employee_id"`

	EmployeeName string  `gorm:"not null;column:employee_name" json:"employee_name"`
	EmployeeCode *string `gorm:"uniqueIndex;column:employee_code" json:"employee_code,omitempty"`

	// Master-data display enrichment (CRUD-nya di luar subsistem ini)
	EmployeeWard        *string `gorm:"column:employee_ward" json:"employee_ward,omitempty"`
	EmployeeDesignation *string `gorm:"column:employee_designation" json:"employee_designation,omitempty"`
	EmployeePhone       *string `gorm:"column:employee_phone" json:"employee_phone,omitempty"`

	// ===== Face enrollment (maks. satu per employee) =====
	// employee_face_id unik — satu wajah tidak boleh dimiliki dua employee.
	EmployeeFaceID         *string  `gorm:"uniqueIndex;column:employee_face_id" json:"employee_face_id,omitempty"`
	EmployeeFaceImageRef   *string  `gorm:"column:employee_face_image_ref" json:"employee_face_image_ref,omitempty"`
	EmployeeFaceConfidence *float64 `gorm:"column:employee_face_confidence" json:"employee_face_confidence,omitempty"`

	EmployeeCreatedAt time.Time      `gorm:"column:employee_created_at;autoCreateTime" json:"employee_created_at"`
	EmployeeUpdatedAt *time.Time     `gorm:"column:employee_updated_at;autoUpdateTime" json:"employee_updated_at,omitempty"`
	EmployeeDeletedAt gorm.DeletedAt `gorm:"column:employee_deleted_at;index" json:"employee_deleted_at,omitempty"`
}

func (EmployeeModel) TableName() string { return "employees" }

// HasEnrollment: employee tanpa enrollment tidak bisa diverifikasi wajah.
func (m *EmployeeModel) HasEnrollment() bool {
	return m.EmployeeFaceID != nil && *m.EmployeeFaceID != ""
}
