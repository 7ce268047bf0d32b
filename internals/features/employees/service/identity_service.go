package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image/jpeg"
	"log"

	"absensiku_backend/internals/features/employees/dto"
	"absensiku_backend/internals/features/employees/model"
	"absensiku_backend/internals/helpers/facerec"
	"absensiku_backend/internals/helpers/storage"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	ErrEmployeeNotFound      = errors.New("employee not found")
	ErrEmployeeNotRegistered = errors.New("employee not registered for face recognition")
	ErrEnrollmentMissing     = errors.New("face enrollment missing")
	ErrEnrollmentConflict    = errors.New("face enrollment already exists")
)

// FaceIndexer: subset client facerec yang dipakai enrollment (gampang di-mock).
type FaceIndexer interface {
	IndexFace(ctx context.Context, image []byte, externalID string) (facerec.IndexResult, error)
	DeleteFace(ctx context.Context, faceID string) error
}

/*
IdentityService: resolusi identitas dari hasil face match + lifecycle enrollment.
*/
type IdentityService struct {
	DB      *gorm.DB
	Faces   FaceIndexer
	Storage storage.Gateway
}

func NewIdentityService(db *gorm.DB, faces FaceIndexer, gw storage.Gateway) *IdentityService {
	return &IdentityService{DB: db, Faces: faces, Storage: gw}
}

/* ===================== LOOKUP ===================== */

func (s *IdentityService) GetByID(ctx context.Context, id uuid.UUID) (*model.EmployeeModel, error) {
	var emp model.EmployeeModel
	if err := s.DB.WithContext(ctx).
		Where("employee_id = ?", id).
		Take(&emp).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrEmployeeNotFound
		}
		return nil, err
	}
	return &emp, nil
}

func (s *IdentityService) findByFaceID(ctx context.Context, faceID string) (*model.EmployeeModel, error) {
	var emp model.EmployeeModel
	err := s.DB.WithContext(ctx).
		Where("employee_face_id = ?", faceID).
		Take(&emp).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &emp, nil
}

/* ===================== RESOLVE ===================== */

// ResolveFromFaceMatch: urutan resolusi —
// (1) exact match stored face id, (2) external id kandidat, (3) id dari caller.
// Jalur (2)/(3) sekalian self-healing stored_face_id yang basi.
func (s *IdentityService) ResolveFromFaceMatch(ctx context.Context, cand *facerec.Candidate, callerSuppliedID *uuid.UUID) (*model.EmployeeModel, error) {
	// (1) stored_face_id
	if cand != nil && cand.FaceID != "" {
		emp, err := s.findByFaceID(ctx, cand.FaceID)
		if err != nil {
			return nil, err
		}
		if emp != nil {
			return emp, nil
		}
	}

	// (2) external id kandidat = employee id
	if cand != nil && cand.ExternalID != "" {
		if extID, err := uuid.Parse(cand.ExternalID); err == nil {
			emp, err := s.GetByID(ctx, extID)
			if err == nil {
				s.healFaceID(ctx, emp, cand)
				return emp, nil
			}
			if !errors.Is(err, ErrEmployeeNotFound) {
				return nil, err
			}
		}
	}

	// (3) fallback: id dari caller
	if callerSuppliedID != nil {
		emp, err := s.GetByID(ctx, *callerSuppliedID)
		if err == nil {
			s.healFaceID(ctx, emp, cand)
			return emp, nil
		}
		if !errors.Is(err, ErrEmployeeNotFound) {
			return nil, err
		}
	}

	return nil, ErrEmployeeNotRegistered
}

// healFaceID: perbaiki link stored_face_id yang basi/kosong — TAPI jangan pernah
// reassign wajah yang sudah dimiliki employee lain (diputuskan: no-op + log,
// bukan hard error; flag untuk klarifikasi produk).
func (s *IdentityService) healFaceID(ctx context.Context, emp *model.EmployeeModel, cand *facerec.Candidate) {
	if cand == nil || cand.FaceID == "" {
		return
	}
	if emp.EmployeeFaceID != nil && *emp.EmployeeFaceID != "" {
		if *emp.EmployeeFaceID != cand.FaceID {
			log.Printf("[IDENTITY] ⚠️ employee %s punya face_id %s, kandidat %s — skip reassign",
				emp.EmployeeID, *emp.EmployeeFaceID, cand.FaceID)
		}
		return
	}

	// wajah ini milik employee lain? skip juga.
	owner, err := s.findByFaceID(ctx, cand.FaceID)
	if err != nil {
		log.Printf("[IDENTITY] self-heal batal, cek pemilik face_id %s gagal: %v", cand.FaceID, err)
		return
	}
	if owner != nil {
		if owner.EmployeeID != emp.EmployeeID {
			log.Printf("[IDENTITY] ⚠️ face_id %s sudah dimiliki employee %s — skip reassign ke %s",
				cand.FaceID, owner.EmployeeID, emp.EmployeeID)
		}
		return
	}

	res := s.DB.WithContext(ctx).
		Model(&model.EmployeeModel{}).
		Where("employee_id = ? AND (employee_face_id IS NULL OR employee_face_id = '')", emp.EmployeeID).
		Update("employee_face_id", cand.FaceID)
	if res.Error != nil {
		log.Printf("[IDENTITY] self-heal face_id gagal: %v", res.Error)
		return
	}
	if res.RowsAffected > 0 {
		faceID := cand.FaceID
		emp.EmployeeFaceID = &faceID
		log.Printf("[IDENTITY] self-heal: employee %s ← face_id %s", emp.EmployeeID, faceID)
	}
}

/* ===================== ENROLL ===================== */

// Enroll: normalisasi foto → simpan via gateway → index di recognition service.
// Enrollment lama harus dihapus eksplisit dulu (guard entry yatim di service).
func (s *IdentityService) Enroll(ctx context.Context, employeeID uuid.UUID, image []byte, filename string) (*dto.EnrollmentResult, error) {
	emp, err := s.GetByID(ctx, employeeID)
	if err != nil {
		return nil, err
	}
	if emp.HasEnrollment() {
		return nil, ErrEnrollmentConflict
	}

	normalized, err := normalizeEnrollmentPhoto(image)
	if err != nil {
		return nil, fmt.Errorf("normalize photo: %w", err)
	}

	ref, err := s.Storage.Store(ctx, normalized, filename, "enroll", "image/jpeg")
	if err != nil {
		return nil, err
	}

	idx, err := s.Faces.IndexFace(ctx, normalized, employeeID.String())
	if err != nil {
		if errors.Is(err, facerec.ErrNoFaceDetected) {
			// foto tanpa wajah → buang upload tadi (best-effort, bukan garansi)
			if delErr := s.Storage.Delete(ctx, ref); delErr != nil {
				log.Printf("[IDENTITY] cleanup foto enrollment gagal (ref=%s): %v", ref, delErr)
			}
		}
		return nil, err
	}

	refStr := ref.String()
	updates := map[string]any{
		"employee_face_id":         idx.FaceID,
		"employee_face_image_ref":  refStr,
		"employee_face_confidence": idx.Confidence,
	}
	if err := s.DB.WithContext(ctx).
		Model(&model.EmployeeModel{}).
		Where("employee_id = ?", employeeID).
		Updates(updates).Error; err != nil {
		return nil, err
	}

	return &dto.EnrollmentResult{
		EmployeeID: employeeID,
		FaceID:     idx.FaceID,
		Confidence: idx.Confidence,
		ImageRef:   refStr,
	}, nil
}

/* ===================== DELETE ENROLLMENT ===================== */

// DeleteEnrollment: hapus entry di recognition service lalu kosongkan field
// lokal. Aman dipanggil saat tidak ada enrollment (idempotent no-op).
func (s *IdentityService) DeleteEnrollment(ctx context.Context, employeeID uuid.UUID) error {
	emp, err := s.GetByID(ctx, employeeID)
	if err != nil {
		return err
	}
	if !emp.HasEnrollment() {
		return nil
	}

	if err := s.Faces.DeleteFace(ctx, *emp.EmployeeFaceID); err != nil {
		return err
	}

	return s.DB.WithContext(ctx).
		Model(&model.EmployeeModel{}).
		Where("employee_id = ?", employeeID).
		Updates(map[string]any{
			"employee_face_id":         nil,
			"employee_face_image_ref":  nil,
			"employee_face_confidence": nil,
		}).Error
}

/* ===================== Photo normalization ===================== */

// normalizeEnrollmentPhoto: fit ke 1024px (keep aspect) + re-encode JPEG,
// supaya yang di-index dan yang disimpan identik.
func normalizeEnrollmentPhoto(data []byte) ([]byte, error) {
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, err
	}
	fitted := imaging.Fit(img, 1024, 1024, imaging.Lanczos)

	buf := new(bytes.Buffer)
	if err := jpeg.Encode(buf, fitted, &jpeg.Options{Quality: 90}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
