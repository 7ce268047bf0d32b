package service

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"testing"
	"time"

	"absensiku_backend/internals/constants"
	"absensiku_backend/internals/features/attendance/model"
	empModel "absensiku_backend/internals/features/employees/model"
	empService "absensiku_backend/internals/features/employees/service"
	"absensiku_backend/internals/helpers/facerec"
	"absensiku_backend/internals/helpers/storage"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

/* ===== mock collaborators (Fn-field style) ===== */

type mockRecordStore struct {
	TodayFn       func() time.Time
	GetOrCreateFn func(ctx context.Context, employeeID uuid.UUID, date time.Time) (*model.AttendanceRecordModel, error)
	ApplyPunchFn  func(ctx context.Context, recordID uuid.UUID, direction string, imageRef storage.ImageReference, geo PunchGeo, actorID *uuid.UUID, verification datatypes.JSON) (*model.AttendanceRecordModel, error)
}

func (m *mockRecordStore) Today() time.Time {
	if m.TodayFn != nil {
		return m.TodayFn()
	}
	return time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
}

func (m *mockRecordStore) GetOrCreate(ctx context.Context, employeeID uuid.UUID, date time.Time) (*model.AttendanceRecordModel, error) {
	return m.GetOrCreateFn(ctx, employeeID, date)
}

func (m *mockRecordStore) ApplyPunch(ctx context.Context, recordID uuid.UUID, direction string, imageRef storage.ImageReference, geo PunchGeo, actorID *uuid.UUID, verification datatypes.JSON) (*model.AttendanceRecordModel, error) {
	return m.ApplyPunchFn(ctx, recordID, direction, imageRef, geo, actorID, verification)
}

type mockDirectory struct {
	GetByIDFn              func(ctx context.Context, id uuid.UUID) (*empModel.EmployeeModel, error)
	ResolveFromFaceMatchFn func(ctx context.Context, cand *facerec.Candidate, callerSuppliedID *uuid.UUID) (*empModel.EmployeeModel, error)
}

func (m *mockDirectory) GetByID(ctx context.Context, id uuid.UUID) (*empModel.EmployeeModel, error) {
	return m.GetByIDFn(ctx, id)
}

func (m *mockDirectory) ResolveFromFaceMatch(ctx context.Context, cand *facerec.Candidate, callerSuppliedID *uuid.UUID) (*empModel.EmployeeModel, error) {
	return m.ResolveFromFaceMatchFn(ctx, cand, callerSuppliedID)
}

type mockVerifier struct {
	SearchFaceFn   func(ctx context.Context, image []byte, threshold float64) (*facerec.Candidate, error)
	CompareFacesFn func(ctx context.Context, source, target facerec.ImagePointer, threshold float64) (facerec.CompareResult, error)
}

func (m *mockVerifier) SearchFace(ctx context.Context, image []byte, threshold float64) (*facerec.Candidate, error) {
	return m.SearchFaceFn(ctx, image, threshold)
}

func (m *mockVerifier) CompareFaces(ctx context.Context, source, target facerec.ImagePointer, threshold float64) (facerec.CompareResult, error) {
	return m.CompareFacesFn(ctx, source, target, threshold)
}

/* ===== fixtures ===== */

var testPhoto = testJPEG()

// testJPEG: foto valid terkecil yang bisa lolos decode pipeline WebP.
func testJPEG() []byte {
	img := image.NewRGBA(image.Rect(0, 0, 16, 16))
	for y := 0; y < 16; y++ {
		for x := 0; x < 16; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 16), G: uint8(y * 16), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	_ = jpeg.Encode(&buf, img, nil)
	return buf.Bytes()
}

func strPtr(s string) *string { return &s }

func f64Ptr(f float64) *float64 { return &f }

func emptyRecord(employeeID uuid.UUID) *model.AttendanceRecordModel {
	return &model.AttendanceRecordModel{
		AttendanceID:         uuid.New(),
		AttendanceEmployeeID: employeeID,
		AttendanceDate:       time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC),
	}
}

func enrolledEmployee() *empModel.EmployeeModel {
	return &empModel.EmployeeModel{
		EmployeeID:           uuid.New(),
		EmployeeName:         "Siti Rahma",
		EmployeeFaceID:       strPtr("face-abc"),
		EmployeeFaceImageRef: strPtr("oss:enroll/siti.webp"),
	}
}

func validInput(employeeID *uuid.UUID, requireFace bool) PunchInput {
	return PunchInput{
		EmployeeID:       employeeID,
		Direction:        constants.PunchDirectionIn,
		Photo:            testPhoto,
		PhotoName:        "punch.jpg",
		Latitude:         f64Ptr(-6.2),
		Longitude:        f64Ptr(106.8),
		RequireFaceMatch: requireFace,
	}
}

/* ===== tests ===== */

func TestSubmitPunchValidation(t *testing.T) {
	svc := &PunchService{Threshold: 90}

	cases := []struct {
		name string
		in   PunchInput
	}{
		{"direction kosong", PunchInput{Latitude: f64Ptr(0), Longitude: f64Ptr(0), Photo: testPhoto}},
		{"tanpa koordinat", PunchInput{Direction: "in", Photo: testPhoto}},
		{"face match tanpa foto", PunchInput{Direction: "in", Latitude: f64Ptr(0), Longitude: f64Ptr(0), RequireFaceMatch: true}},
		{"tanpa identitas dan tanpa foto", PunchInput{Direction: "out", Latitude: f64Ptr(0), Longitude: f64Ptr(0)}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.SubmitPunch(context.Background(), tc.in)
			if !errors.Is(err, ErrValidation) {
				t.Fatalf("expected ErrValidation, got %v", err)
			}
		})
	}
}

func TestSubmitPunchSuccessWithFaceMatch(t *testing.T) {
	emp := enrolledEmployee()
	rec := emptyRecord(emp.EmployeeID)
	var appliedVerification datatypes.JSON
	var storedRef storage.ImageReference

	gw := &storage.MockGateway{
		StoreFn: func(ctx context.Context, data []byte, logicalName, dir, contentType string) (storage.ImageReference, error) {
			if dir != "punch" {
				t.Fatalf("expected dir punch, got %s", dir)
			}
			if contentType != "image/webp" {
				t.Fatalf("expected webp upload, got %s", contentType)
			}
			storedRef = storage.ImageReference{Backend: storage.BackendLocal, Key: "punch/p.webp"}
			return storedRef, nil
		},
		ResolveFn: func(ctx context.Context, ref storage.ImageReference) ([]byte, string, error) {
			return testPhoto, "image/webp", nil
		},
	}

	svc := &PunchService{
		Records: &mockRecordStore{
			GetOrCreateFn: func(ctx context.Context, employeeID uuid.UUID, date time.Time) (*model.AttendanceRecordModel, error) {
				return rec, nil
			},
			ApplyPunchFn: func(ctx context.Context, recordID uuid.UUID, direction string, imageRef storage.ImageReference, geo PunchGeo, actorID *uuid.UUID, verification datatypes.JSON) (*model.AttendanceRecordModel, error) {
				if recordID != rec.AttendanceID {
					t.Fatalf("record id mismatch")
				}
				if imageRef != storedRef {
					t.Fatalf("expected stored image ref to reach ApplyPunch")
				}
				appliedVerification = verification
				now := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)
				updated := *rec
				updated.AttendancePunchInTime = &now
				return &updated, nil
			},
		},
		Employees: &mockDirectory{
			GetByIDFn: func(ctx context.Context, id uuid.UUID) (*empModel.EmployeeModel, error) { return emp, nil },
		},
		Faces: &mockVerifier{
			CompareFacesFn: func(ctx context.Context, source, target facerec.ImagePointer, threshold float64) (facerec.CompareResult, error) {
				return facerec.CompareResult{Similarity: 96, Threshold: threshold, Matched: true}, nil
			},
		},
		Storage:   gw,
		Threshold: 90,
	}

	out, err := svc.SubmitPunch(context.Background(), validInput(&emp.EmployeeID, true))
	if err != nil {
		t.Fatalf("SubmitPunch: %v", err)
	}
	if out.Record.State() != "punched_in" {
		t.Fatalf("expected punched_in, got %s", out.Record.State())
	}
	if out.FaceSimilarity == nil || *out.FaceSimilarity != 96 {
		t.Fatalf("expected similarity 96, got %v", out.FaceSimilarity)
	}
	if out.FaceThreshold == nil || *out.FaceThreshold != 90 {
		t.Fatalf("expected threshold 90, got %v", out.FaceThreshold)
	}
	if len(appliedVerification) == 0 {
		t.Fatalf("expected verification audit JSON to be persisted")
	}
}

// Employee belum enroll wajah + require_face_match → ErrEnrollmentMissing,
// dan ApplyPunch tidak pernah dipanggil (record tetap empty).
func TestSubmitPunchEnrollmentMissingLeavesRecordEmpty(t *testing.T) {
	emp := enrolledEmployee()
	emp.EmployeeFaceImageRef = nil
	rec := emptyRecord(emp.EmployeeID)

	svc := &PunchService{
		Records: &mockRecordStore{
			GetOrCreateFn: func(ctx context.Context, employeeID uuid.UUID, date time.Time) (*model.AttendanceRecordModel, error) {
				return rec, nil
			},
			ApplyPunchFn: func(ctx context.Context, recordID uuid.UUID, direction string, imageRef storage.ImageReference, geo PunchGeo, actorID *uuid.UUID, verification datatypes.JSON) (*model.AttendanceRecordModel, error) {
				t.Fatalf("ApplyPunch tidak boleh dipanggil saat enrollment missing")
				return nil, nil
			},
		},
		Employees: &mockDirectory{
			GetByIDFn: func(ctx context.Context, id uuid.UUID) (*empModel.EmployeeModel, error) { return emp, nil },
		},
		Storage: &storage.MockGateway{
			StoreFn: func(ctx context.Context, data []byte, logicalName, dir, contentType string) (storage.ImageReference, error) {
				return storage.ImageReference{Backend: storage.BackendLocal, Key: "punch/p.webp"}, nil
			},
		},
		Threshold: 90,
	}

	_, err := svc.SubmitPunch(context.Background(), validInput(&emp.EmployeeID, true))
	if !errors.Is(err, empService.ErrEnrollmentMissing) {
		t.Fatalf("expected ErrEnrollmentMissing, got %v", err)
	}
	if rec.State() != "empty" {
		t.Fatalf("record harus tetap empty, got %s", rec.State())
	}
}

func TestSubmitPunchFaceMismatch(t *testing.T) {
	emp := enrolledEmployee()
	rec := emptyRecord(emp.EmployeeID)

	svc := &PunchService{
		Records: &mockRecordStore{
			GetOrCreateFn: func(ctx context.Context, employeeID uuid.UUID, date time.Time) (*model.AttendanceRecordModel, error) {
				return rec, nil
			},
			ApplyPunchFn: func(ctx context.Context, recordID uuid.UUID, direction string, imageRef storage.ImageReference, geo PunchGeo, actorID *uuid.UUID, verification datatypes.JSON) (*model.AttendanceRecordModel, error) {
				t.Fatalf("ApplyPunch tidak boleh dipanggil saat wajah mismatch")
				return nil, nil
			},
		},
		Employees: &mockDirectory{
			GetByIDFn: func(ctx context.Context, id uuid.UUID) (*empModel.EmployeeModel, error) { return emp, nil },
		},
		Faces: &mockVerifier{
			CompareFacesFn: func(ctx context.Context, source, target facerec.ImagePointer, threshold float64) (facerec.CompareResult, error) {
				return facerec.CompareResult{Similarity: 41.5, Threshold: threshold, Matched: false}, nil
			},
		},
		Storage: &storage.MockGateway{
			StoreFn: func(ctx context.Context, data []byte, logicalName, dir, contentType string) (storage.ImageReference, error) {
				return storage.ImageReference{Backend: storage.BackendOSS, Key: "punch/p.webp", URL: "https://bucket.oss-ap-southeast-5.aliyuncs.com/punch/p.webp"}, nil
			},
			ResolveFn: func(ctx context.Context, ref storage.ImageReference) ([]byte, string, error) {
				return testPhoto, "image/webp", nil
			},
		},
		Threshold: 90,
	}

	_, err := svc.SubmitPunch(context.Background(), validInput(&emp.EmployeeID, true))
	var mismatch *FaceMismatchError
	if !errors.As(err, &mismatch) {
		t.Fatalf("expected FaceMismatchError, got %v", err)
	}
	if !errors.Is(err, ErrFaceMismatch) {
		t.Fatalf("FaceMismatchError harus cocok dengan sentinel ErrFaceMismatch")
	}
	if mismatch.Similarity != 41.5 || mismatch.Threshold != 90 {
		t.Fatalf("unexpected mismatch detail: %+v", mismatch)
	}
}

// Identitas dari wajah: SearchFace → ResolveFromFaceMatch. Kandidat kosong
// berarti employee belum terdaftar.
func TestSubmitPunchResolvesIdentityFromFace(t *testing.T) {
	emp := enrolledEmployee()
	rec := emptyRecord(emp.EmployeeID)

	svc := &PunchService{
		Records: &mockRecordStore{
			GetOrCreateFn: func(ctx context.Context, employeeID uuid.UUID, date time.Time) (*model.AttendanceRecordModel, error) {
				if employeeID != emp.EmployeeID {
					t.Fatalf("resolusi wajah harus menghasilkan employee yang benar")
				}
				return rec, nil
			},
			ApplyPunchFn: func(ctx context.Context, recordID uuid.UUID, direction string, imageRef storage.ImageReference, geo PunchGeo, actorID *uuid.UUID, verification datatypes.JSON) (*model.AttendanceRecordModel, error) {
				now := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)
				updated := *rec
				updated.AttendancePunchInTime = &now
				return &updated, nil
			},
		},
		Employees: &mockDirectory{
			ResolveFromFaceMatchFn: func(ctx context.Context, cand *facerec.Candidate, callerSuppliedID *uuid.UUID) (*empModel.EmployeeModel, error) {
				if cand == nil || cand.FaceID != "face-abc" {
					t.Fatalf("kandidat search harus diteruskan ke resolver")
				}
				return emp, nil
			},
		},
		Faces: &mockVerifier{
			SearchFaceFn: func(ctx context.Context, image []byte, threshold float64) (*facerec.Candidate, error) {
				return &facerec.Candidate{FaceID: "face-abc", Similarity: 97}, nil
			},
		},
		Storage: &storage.MockGateway{
			StoreFn: func(ctx context.Context, data []byte, logicalName, dir, contentType string) (storage.ImageReference, error) {
				return storage.ImageReference{Backend: storage.BackendLocal, Key: "punch/p.webp"}, nil
			},
		},
		Threshold: 90,
	}

	out, err := svc.SubmitPunch(context.Background(), validInput(nil, false))
	if err != nil {
		t.Fatalf("SubmitPunch: %v", err)
	}
	if out.Employee.EmployeeID != emp.EmployeeID {
		t.Fatalf("employee mismatch")
	}
}

func TestSubmitPunchUnknownFace(t *testing.T) {
	svc := &PunchService{
		Faces: &mockVerifier{
			SearchFaceFn: func(ctx context.Context, image []byte, threshold float64) (*facerec.Candidate, error) {
				return nil, nil
			},
		},
		Threshold: 90,
	}

	_, err := svc.SubmitPunch(context.Background(), validInput(nil, false))
	if !errors.Is(err, empService.ErrEmployeeNotRegistered) {
		t.Fatalf("expected ErrEmployeeNotRegistered, got %v", err)
	}
}

// Pre-check arah menolak sebelum foto disimpan / face service dipanggil.
func TestSubmitPunchPreconditionRejectsEarly(t *testing.T) {
	emp := enrolledEmployee()
	now := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)
	rec := emptyRecord(emp.EmployeeID)
	rec.AttendancePunchInTime = &now

	storeCalled := false
	svc := &PunchService{
		Records: &mockRecordStore{
			GetOrCreateFn: func(ctx context.Context, employeeID uuid.UUID, date time.Time) (*model.AttendanceRecordModel, error) {
				return rec, nil
			},
		},
		Employees: &mockDirectory{
			GetByIDFn: func(ctx context.Context, id uuid.UUID) (*empModel.EmployeeModel, error) { return emp, nil },
		},
		Storage: &storage.MockGateway{
			StoreFn: func(ctx context.Context, data []byte, logicalName, dir, contentType string) (storage.ImageReference, error) {
				storeCalled = true
				return storage.ImageReference{}, nil
			},
		},
		Threshold: 90,
	}

	_, err := svc.SubmitPunch(context.Background(), validInput(&emp.EmployeeID, false))
	if !errors.Is(err, ErrAlreadyPunchedIn) {
		t.Fatalf("expected ErrAlreadyPunchedIn, got %v", err)
	}
	if storeCalled {
		t.Fatalf("foto tidak boleh disimpan kalau precondition gagal")
	}
}

// Storage gagal total → punch abort, error diteruskan ke caller.
func TestSubmitPunchAbortsWhenStorageDown(t *testing.T) {
	emp := enrolledEmployee()
	rec := emptyRecord(emp.EmployeeID)

	svc := &PunchService{
		Records: &mockRecordStore{
			GetOrCreateFn: func(ctx context.Context, employeeID uuid.UUID, date time.Time) (*model.AttendanceRecordModel, error) {
				return rec, nil
			},
			ApplyPunchFn: func(ctx context.Context, recordID uuid.UUID, direction string, imageRef storage.ImageReference, geo PunchGeo, actorID *uuid.UUID, verification datatypes.JSON) (*model.AttendanceRecordModel, error) {
				t.Fatalf("ApplyPunch tidak boleh dipanggil saat storage gagal")
				return nil, nil
			},
		},
		Employees: &mockDirectory{
			GetByIDFn: func(ctx context.Context, id uuid.UUID) (*empModel.EmployeeModel, error) { return emp, nil },
		},
		Storage: &storage.MockGateway{
			StoreFn: func(ctx context.Context, data []byte, logicalName, dir, contentType string) (storage.ImageReference, error) {
				return storage.ImageReference{}, storage.ErrStorageUnavailable
			},
		},
		Threshold: 90,
	}

	_, err := svc.SubmitPunch(context.Background(), validInput(&emp.EmployeeID, false))
	if !errors.Is(err, storage.ErrStorageUnavailable) {
		t.Fatalf("expected ErrStorageUnavailable, got %v", err)
	}
}

// Race loser dari conditional update muncul ke caller sebagai error ordering.
func TestSubmitPunchSurfacesRaceLoss(t *testing.T) {
	emp := enrolledEmployee()
	rec := emptyRecord(emp.EmployeeID)

	svc := &PunchService{
		Records: &mockRecordStore{
			GetOrCreateFn: func(ctx context.Context, employeeID uuid.UUID, date time.Time) (*model.AttendanceRecordModel, error) {
				return rec, nil
			},
			ApplyPunchFn: func(ctx context.Context, recordID uuid.UUID, direction string, imageRef storage.ImageReference, geo PunchGeo, actorID *uuid.UUID, verification datatypes.JSON) (*model.AttendanceRecordModel, error) {
				return nil, ErrAlreadyPunchedIn
			},
		},
		Employees: &mockDirectory{
			GetByIDFn: func(ctx context.Context, id uuid.UUID) (*empModel.EmployeeModel, error) { return emp, nil },
		},
		Storage: &storage.MockGateway{
			StoreFn: func(ctx context.Context, data []byte, logicalName, dir, contentType string) (storage.ImageReference, error) {
				return storage.ImageReference{Backend: storage.BackendLocal, Key: "punch/p.webp"}, nil
			},
		},
		Threshold: 90,
	}

	_, err := svc.SubmitPunch(context.Background(), validInput(&emp.EmployeeID, false))
	if !errors.Is(err, ErrAlreadyPunchedIn) {
		t.Fatalf("expected ErrAlreadyPunchedIn, got %v", err)
	}
}
