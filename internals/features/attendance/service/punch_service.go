package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"absensiku_backend/internals/configs"
	"absensiku_backend/internals/constants"
	"absensiku_backend/internals/features/attendance/model"
	empModel "absensiku_backend/internals/features/employees/model"
	empService "absensiku_backend/internals/features/employees/service"
	"absensiku_backend/internals/helpers/facerec"
	"absensiku_backend/internals/helpers/storage"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

/* ===============================
   Collaborator seams (mock-able)
=================================*/

type RecordStore interface {
	Today() time.Time
	GetOrCreate(ctx context.Context, employeeID uuid.UUID, date time.Time) (*model.AttendanceRecordModel, error)
	ApplyPunch(ctx context.Context, recordID uuid.UUID, direction string, imageRef storage.ImageReference, geo PunchGeo, actorID *uuid.UUID, verification datatypes.JSON) (*model.AttendanceRecordModel, error)
}

type EmployeeDirectory interface {
	GetByID(ctx context.Context, id uuid.UUID) (*empModel.EmployeeModel, error)
	ResolveFromFaceMatch(ctx context.Context, cand *facerec.Candidate, callerSuppliedID *uuid.UUID) (*empModel.EmployeeModel, error)
}

type FaceVerifier interface {
	SearchFace(ctx context.Context, image []byte, threshold float64) (*facerec.Candidate, error)
	CompareFaces(ctx context.Context, source, target facerec.ImagePointer, threshold float64) (facerec.CompareResult, error)
}

/*
PunchService: entry point tunggal workflow punch — resolve identitas,
cek precondition, simpan foto, verifikasi wajah, lalu transisi state.
Gagal di tahap mana pun = abort tanpa partial commit di DB.
*/
type PunchService struct {
	Records   RecordStore
	Employees EmployeeDirectory
	Faces     FaceVerifier
	Storage   storage.Gateway
	Threshold float64
}

func NewPunchService(db *gorm.DB, faces *facerec.Client, gw storage.Gateway) *PunchService {
	return &PunchService{
		Records:   NewRecordService(db),
		Employees: empService.NewIdentityService(db, faces, gw),
		Faces:     faces,
		Storage:   gw,
		Threshold: configs.FaceMatchThreshold,
	}
}

/* ===============================
   Input / output
=================================*/

type PunchInput struct {
	EmployeeID       *uuid.UUID
	Direction        string
	Photo            []byte
	PhotoName        string
	Latitude         *float64
	Longitude        *float64
	Address          string
	RequireFaceMatch bool
	ActorID          *uuid.UUID
}

type PunchOutcome struct {
	Record         *model.AttendanceRecordModel
	Employee       *empModel.EmployeeModel
	FaceSimilarity *float64
	FaceThreshold  *float64
}

/* ===============================
   SubmitPunch
=================================*/

func (s *PunchService) SubmitPunch(ctx context.Context, in PunchInput) (*PunchOutcome, error) {
	// 1) Validasi bentuk request
	if err := s.validate(in); err != nil {
		return nil, err
	}

	// 2) Resolve employee — dari id langsung, atau dari wajah
	emp, err := s.resolveEmployee(ctx, in)
	if err != nil {
		return nil, err
	}

	// 3) Record hari ini + pre-check arah (pesan ramah, bukan otoritas ordering)
	rec, err := s.Records.GetOrCreate(ctx, emp.EmployeeID, s.Records.Today())
	if err != nil {
		return nil, err
	}
	if err := checkPrecondition(rec, in.Direction); err != nil {
		return nil, err
	}

	// 4) Simpan foto (re-encode WebP) — gagal storage = abort total
	var photoRef storage.ImageReference
	if len(in.Photo) > 0 {
		webpData, err := storage.ConvertToWebP(in.Photo, in.PhotoName)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrValidation, err)
		}
		photoRef, err = s.Storage.Store(ctx, webpData, in.PhotoName, "punch", "image/webp")
		if err != nil {
			return nil, err
		}
	}

	// 5) Verifikasi wajah kalau diminta
	var verification datatypes.JSON
	var similarity, threshold *float64
	if in.RequireFaceMatch {
		cmp, err := s.verifyFace(ctx, emp, photoRef, in.Photo)
		if err != nil {
			// foto yang sudah tersimpan dibiarkan untuk audit, tidak dihapus
			return nil, err
		}
		similarity = &cmp.Similarity
		threshold = &cmp.Threshold
		verification = mustJSON(map[string]any{
			"similarity": cmp.Similarity,
			"threshold":  cmp.Threshold,
			"face_id":    derefOrEmpty(emp.EmployeeFaceID),
		})
	}

	// 6) Transisi state — conditional update; race loser dapat error ordering
	updated, err := s.Records.ApplyPunch(ctx, rec.AttendanceID, in.Direction, photoRef,
		PunchGeo{Latitude: in.Latitude, Longitude: in.Longitude, Address: in.Address},
		in.ActorID, verification)
	if err != nil {
		return nil, err
	}

	// 7) Konfirmasi + metadata verifikasi
	return &PunchOutcome{
		Record:         updated,
		Employee:       emp,
		FaceSimilarity: similarity,
		FaceThreshold:  threshold,
	}, nil
}

func (s *PunchService) validate(in PunchInput) error {
	if in.Direction != constants.PunchDirectionIn && in.Direction != constants.PunchDirectionOut {
		return fmt.Errorf("%w: direction harus 'in' atau 'out'", ErrValidation)
	}
	if in.Latitude == nil || in.Longitude == nil {
		return fmt.Errorf("%w: latitude/longitude wajib diisi", ErrValidation)
	}
	if in.RequireFaceMatch && len(in.Photo) == 0 {
		return fmt.Errorf("%w: foto wajib untuk verifikasi wajah", ErrValidation)
	}
	if in.EmployeeID == nil && len(in.Photo) == 0 {
		return fmt.Errorf("%w: butuh employee_id atau foto untuk resolve identitas", ErrValidation)
	}
	if int64(len(in.Photo)) > constants.MaxPhotoUploadSize {
		return fmt.Errorf("%w: foto terlalu besar (maks %d bytes)", ErrValidation, constants.MaxPhotoUploadSize)
	}
	return nil
}

func (s *PunchService) resolveEmployee(ctx context.Context, in PunchInput) (*empModel.EmployeeModel, error) {
	if in.EmployeeID != nil {
		return s.Employees.GetByID(ctx, *in.EmployeeID)
	}

	cand, err := s.Faces.SearchFace(ctx, in.Photo, s.Threshold)
	if err != nil {
		return nil, err
	}
	if cand == nil {
		return nil, empService.ErrEmployeeNotRegistered
	}
	return s.Employees.ResolveFromFaceMatch(ctx, cand, in.EmployeeID)
}

// checkPrecondition: tolak cepat sebelum nyentuh storage / recognition service.
func checkPrecondition(rec *model.AttendanceRecordModel, direction string) error {
	switch direction {
	case constants.PunchDirectionIn:
		if rec.AttendancePunchInTime != nil {
			return ErrAlreadyPunchedIn
		}
	case constants.PunchDirectionOut:
		if rec.AttendancePunchInTime == nil {
			return ErrMustPunchInFirst
		}
		if rec.AttendancePunchOutTime != nil {
			return ErrAlreadyPunchedOut
		}
	}
	return nil
}

func (s *PunchService) verifyFace(ctx context.Context, emp *empModel.EmployeeModel, photoRef storage.ImageReference, photo []byte) (facerec.CompareResult, error) {
	if emp.EmployeeFaceImageRef == nil || *emp.EmployeeFaceImageRef == "" {
		return facerec.CompareResult{}, empService.ErrEnrollmentMissing
	}

	enrollRef := storage.ParseReference(*emp.EmployeeFaceImageRef)
	source, err := s.pointerFor(ctx, enrollRef, nil)
	if err != nil {
		return facerec.CompareResult{}, err
	}
	target, err := s.pointerFor(ctx, photoRef, photo)
	if err != nil {
		return facerec.CompareResult{}, err
	}

	cmp, err := s.Faces.CompareFaces(ctx, source, target, s.Threshold)
	if err != nil {
		return facerec.CompareResult{}, err
	}
	if !cmp.Matched {
		return facerec.CompareResult{}, &FaceMismatchError{Similarity: cmp.Similarity, Threshold: cmp.Threshold}
	}
	return cmp, nil
}

// pointerFor: referensi object-store dikirim sebagai URL publik (service fetch
// sendiri), selain itu resolve ke bytes lewat gateway.
func (s *PunchService) pointerFor(ctx context.Context, ref storage.ImageReference, fallback []byte) (facerec.ImagePointer, error) {
	if ref.Backend == storage.BackendOSS && ref.URL != "" {
		return facerec.ImagePointer{URL: ref.URL}, nil
	}
	if ref.IsZero() && len(fallback) > 0 {
		return facerec.ImagePointer{Bytes: fallback}, nil
	}
	data, _, err := s.Storage.Resolve(ctx, ref)
	if err != nil {
		return facerec.ImagePointer{}, err
	}
	return facerec.ImagePointer{Bytes: data}, nil
}

func mustJSON(v any) datatypes.JSON {
	b, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return datatypes.JSON(b)
}

func derefOrEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
