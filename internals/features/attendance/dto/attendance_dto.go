package dto

import (
	"time"

	"absensiku_backend/internals/features/attendance/model"

	"github.com/google/uuid"
)

/* ===============================
   Request
=================================*/

// PunchRequest: field form multipart di samping file foto.
// employee_id opsional — tanpa employee_id identitas di-resolve dari wajah.
type PunchRequest struct {
	EmployeeID       string   `form:"employee_id" json:"employee_id" validate:"omitempty,uuid4"`
	Direction        string   `form:"direction" json:"direction" validate:"required,oneof=in out"`
	Latitude         *float64 `form:"latitude" json:"latitude" validate:"required"`
	Longitude        *float64 `form:"longitude" json:"longitude" validate:"required"`
	Address          string   `form:"address" json:"address"`
	RequireFaceMatch bool     `form:"require_face_match" json:"require_face_match"`
}

/* ===============================
   Response
=================================*/

type AttendanceResponse struct {
	AttendanceID         uuid.UUID  `json:"attendance_id"`
	AttendanceEmployeeID uuid.UUID  `json:"attendance_employee_id"`
	AttendanceDate       string     `json:"attendance_date"`
	State                string     `json:"state"`
	PunchInTime          *time.Time `json:"punch_in_time,omitempty"`
	PunchOutTime         *time.Time `json:"punch_out_time,omitempty"`
	PunchInImageRef      *string    `json:"punch_in_image_ref,omitempty"`
	PunchOutImageRef     *string    `json:"punch_out_image_ref,omitempty"`
	DurationMinutes      *int       `json:"duration_minutes,omitempty"`
}

type PunchResponse struct {
	Record         AttendanceResponse `json:"record"`
	FaceSimilarity *float64           `json:"face_similarity,omitempty"`
	FaceThreshold  *float64           `json:"face_threshold,omitempty"`
}

func FromAttendanceModel(m model.AttendanceRecordModel) AttendanceResponse {
	resp := AttendanceResponse{
		AttendanceID:         m.AttendanceID,
		AttendanceEmployeeID: m.AttendanceEmployeeID,
		AttendanceDate:       m.AttendanceDate.Format("2006-01-02"),
		State:                m.State(),
		PunchInTime:          m.AttendancePunchInTime,
		PunchOutTime:         m.AttendancePunchOutTime,
		PunchInImageRef:      m.AttendancePunchInImageRef,
		PunchOutImageRef:     m.AttendancePunchOutImageRef,
	}
	if d := m.Duration(); d != nil {
		mins := int(d.Minutes())
		resp.DurationMinutes = &mins
	}
	return resp
}
