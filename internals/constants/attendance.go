package constants

// Arah punch absensi
const (
	PunchDirectionIn  = "in"
	PunchDirectionOut = "out"
)

// Default similarity threshold (0–100) kalau ENV tidak diset
const DefaultFaceMatchThreshold = 90.0

// Batas ukuran foto punch/enrollment
const MaxPhotoUploadSize = int64(5 * 1024 * 1024)
