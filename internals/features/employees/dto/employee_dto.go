package dto

import (
	"absensiku_backend/internals/features/employees/model"

	"github.com/google/uuid"
)

type EmployeeResponse struct {
	EmployeeID          uuid.UUID `json:"employee_id"`
	EmployeeName        string    `json:"employee_name"`
	EmployeeCode        *string   `json:"employee_code,omitempty"`
	EmployeeWard        *string   `json:"employee_ward,omitempty"`
	EmployeeDesignation *string   `json:"employee_designation,omitempty"`
	FaceEnrolled        bool      `json:"face_enrolled"`
}

func FromEmployeeModel(m model.EmployeeModel) EmployeeResponse {
	return EmployeeResponse{
		EmployeeID:          m.EmployeeID,
		EmployeeName:        m.EmployeeName,
		EmployeeCode:        m.EmployeeCode,
		EmployeeWard:        m.EmployeeWard,
		EmployeeDesignation: m.EmployeeDesignation,
		FaceEnrolled:        m.HasEnrollment(),
	}
}

// EnrollmentResult: hasil index wajah (dikembalikan ke caller enroll).
type EnrollmentResult struct {
	EmployeeID uuid.UUID `json:"employee_id"`
	FaceID     string    `json:"face_id"`
	Confidence float64   `json:"confidence"`
	ImageRef   string    `json:"image_ref"`
}
