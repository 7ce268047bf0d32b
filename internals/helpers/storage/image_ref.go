package storage

import (
	"fmt"
	"strings"
)

// BackendTag menentukan jalur retrieve sebuah referensi gambar.
type BackendTag string

const (
	BackendLocal    BackendTag = "local"
	BackendOSS      BackendTag = "oss"
	BackendExternal BackendTag = "external"
)

// ImageReference: locator opaque untuk gambar tersimpan.
// Immutable — capture baru = reference baru, tidak pernah edit-in-place.
type ImageReference struct {
	Backend BackendTag `json:"backend"`
	Key     string     `json:"key"`
	URL     string     `json:"url,omitempty"`
}

func (r ImageReference) IsZero() bool {
	return r.Backend == "" && r.Key == "" && r.URL == ""
}

// String dipakai untuk persist ke kolom DB (backend:key).
func (r ImageReference) String() string {
	if r.IsZero() {
		return ""
	}
	return fmt.Sprintf("%s:%s", r.Backend, r.Key)
}

/* ===============================
   Classify & ingest (migration adapter)
=================================*/

// Classify membedakan bentuk local-path, URL object-store/eksternal, dan bare key.
// Pure function; hanya dipakai untuk menelan referensi lama yang belum ber-tag.
func Classify(urlOrKey string) BackendTag {
	s := strings.TrimSpace(urlOrKey)
	switch {
	case s == "":
		return ""
	case strings.HasPrefix(s, "http://"), strings.HasPrefix(s, "https://"):
		if looksLikeOSSURL(s) {
			return BackendOSS
		}
		return BackendExternal
	case strings.HasPrefix(s, "/"), strings.HasPrefix(s, "./"), strings.HasPrefix(s, "file://"):
		return BackendLocal
	default:
		// bare key → milik object store
		return BackendOSS
	}
}

// ParseReference menelan nilai kolom lama (URL polos / path / "backend:key")
// menjadi ImageReference ber-tag.
func ParseReference(stored string) ImageReference {
	s := strings.TrimSpace(stored)
	if s == "" {
		return ImageReference{}
	}

	// Bentuk baru: "backend:key"
	for _, tag := range []BackendTag{BackendLocal, BackendOSS, BackendExternal} {
		prefix := string(tag) + ":"
		if strings.HasPrefix(s, prefix) && !strings.HasPrefix(s, prefix+"//") {
			return ImageReference{Backend: tag, Key: strings.TrimPrefix(s, prefix)}
		}
	}

	// Bentuk lama: sniff sekali di sini, jangan di tempat lain.
	switch tag := Classify(s); tag {
	case BackendLocal:
		return ImageReference{Backend: BackendLocal, Key: strings.TrimPrefix(s, "file://")}
	case BackendOSS:
		if strings.HasPrefix(s, "http") {
			if key, err := ExtractKeyFromPublicURL(s); err == nil {
				return ImageReference{Backend: BackendOSS, Key: key, URL: s}
			}
		}
		return ImageReference{Backend: BackendOSS, Key: s}
	case BackendExternal:
		return ImageReference{Backend: BackendExternal, Key: s, URL: s}
	default:
		return ImageReference{}
	}
}

func looksLikeOSSURL(u string) bool {
	host := u
	if i := strings.Index(host, "://"); i >= 0 {
		host = host[i+3:]
	}
	if i := strings.Index(host, "/"); i >= 0 {
		host = host[:i]
	}
	if strings.Contains(host, "aliyuncs.com") {
		return true
	}
	if base := ossPublicBase(); base != "" && strings.HasPrefix(u, base) {
		return true
	}
	return false
}
