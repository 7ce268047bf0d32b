package service

import (
	"errors"
	"fmt"
)

var (
	ErrValidation        = errors.New("invalid punch request")
	ErrRecordNotFound    = errors.New("attendance record not found")
	ErrAlreadyPunchedIn  = errors.New("already punched in today")
	ErrAlreadyPunchedOut = errors.New("already punched out today")
	ErrMustPunchInFirst  = errors.New("must punch in before punching out")
	ErrFaceMismatch      = errors.New("face does not match enrollment")
)

// FaceMismatchError bawa skor supaya caller bisa kasih pesan actionable.
type FaceMismatchError struct {
	Similarity float64
	Threshold  float64
}

func (e *FaceMismatchError) Error() string {
	return fmt.Sprintf("face does not match enrollment (similarity %.1f < threshold %.1f)", e.Similarity, e.Threshold)
}

func (e *FaceMismatchError) Is(target error) bool { return target == ErrFaceMismatch }
