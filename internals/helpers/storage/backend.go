package storage

import (
	"context"
	"errors"
)

var (
	ErrStorageUnavailable = errors.New("storage unavailable")
	ErrImageNotFound      = errors.New("image not found")

	// errPermissionDenied: kelas error ACL/izin dari backend — layak retry sekali
	// tanpa opsi yang bermasalah sebelum fallback ke backend berikutnya.
	errPermissionDenied = errors.New("storage permission denied")
)

func IsPermissionDenied(err error) bool {
	return errors.Is(err, errPermissionDenied)
}

// PutOptions: opsi upload. CacheForever/ACL adalah opsi "berisiko" yang
// dilepas saat retry setelah permission error.
type PutOptions struct {
	ContentType  string
	Inline       bool
	CacheForever bool
	ACL          string
}

// stripped mengembalikan salinan tanpa opsi yang bisa ditolak bucket.
func (o PutOptions) stripped() PutOptions {
	o.CacheForever = false
	o.ACL = ""
	return o
}

// Backend: satu target penyimpanan dalam fallback chain.
type Backend interface {
	Tag() BackendTag
	Put(ctx context.Context, key string, data []byte, opt PutOptions) (ImageReference, error)
	Get(ctx context.Context, key string) (data []byte, contentType string, err error)
	Delete(ctx context.Context, key string) error
}
