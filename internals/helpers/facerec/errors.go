package facerec

import "errors"

// Taksonomi error service pengenalan wajah — jangan bocorkan error HTTP mentah.
var (
	ErrNoFaceDetected     = errors.New("no face detected")
	ErrCollectionNotFound = errors.New("face collection not found")
	ErrServiceUnavailable = errors.New("face recognition service unavailable")
	ErrRateLimited        = errors.New("face recognition rate limited")
)
