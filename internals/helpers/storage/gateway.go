package storage

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"path/filepath"
	"strings"
	"time"
)

/*
Gateway adalah facade penyimpanan foto yang seragam untuk service/controller.

Fallback chain = data, bukan duplikasi code path: Store jalan berurutan di
daftar backend (default: OSS → local). Permission error dari satu backend
di-retry sekali tanpa opsi ACL/cache sebelum pindah ke backend berikutnya.
*/
type Gateway interface {
	Store(ctx context.Context, data []byte, logicalName, dir, contentType string) (ImageReference, error)
	Resolve(ctx context.Context, ref ImageReference) (data []byte, contentType string, err error)
	Delete(ctx context.Context, ref ImageReference) error
}

type ChainGateway struct {
	backends []Backend
	httpc    *http.Client // untuk resolve referensi external
}

func NewChainGateway(backends ...Backend) *ChainGateway {
	return &ChainGateway{
		backends: backends,
		httpc:    &http.Client{Timeout: 15 * time.Second},
	}
}

// NewGatewayFromEnv: OSS primary kalau ENV lengkap, local selalu jadi fallback.
func NewGatewayFromEnv(prefix string) *ChainGateway {
	var backends []Backend
	if ossB, err := NewOSSBackendFromEnv(prefix); err != nil {
		log.Printf("⚠️ OSS backend tidak aktif: %v — pakai local storage saja", err)
	} else {
		backends = append(backends, ossB)
	}
	backends = append(backends, NewLocalBackendFromEnv())
	return NewChainGateway(backends...)
}

func (g *ChainGateway) Store(ctx context.Context, data []byte, logicalName, dir, contentType string) (ImageReference, error) {
	if len(data) == 0 {
		return ImageReference{}, fmt.Errorf("empty payload")
	}
	key := buildObjectKey(dir, logicalName)
	opt := PutOptions{
		ContentType:  contentType,
		Inline:       true,
		CacheForever: true,
	}

	var lastErr error
	for _, b := range g.backends {
		ref, err := b.Put(ctx, key, data, opt)
		if err == nil {
			return ref, nil
		}

		// Permission-class error → coba sekali lagi tanpa opsi yang ditolak.
		if IsPermissionDenied(err) {
			if ref, retryErr := b.Put(ctx, key, data, opt.stripped()); retryErr == nil {
				return ref, nil
			} else {
				err = retryErr
			}
		}

		lastErr = err
		log.Printf("[STORAGE] backend %s gagal store %s: %v — lanjut fallback", b.Tag(), key, err)
	}

	if lastErr == nil {
		lastErr = fmt.Errorf("no storage backend configured")
	}
	return ImageReference{}, fmt.Errorf("%w: %v", ErrStorageUnavailable, lastErr)
}

func (g *ChainGateway) Resolve(ctx context.Context, ref ImageReference) ([]byte, string, error) {
	if ref.IsZero() {
		return nil, "", ErrImageNotFound
	}

	if ref.Backend == BackendExternal {
		return g.resolveExternal(ctx, ref)
	}

	key := ref.Key
	if key == "" && ref.URL != "" {
		// referensi lama simpan URL penuh → ekstrak key deterministik
		k, err := ExtractKeyFromPublicURL(ref.URL)
		if err != nil {
			return nil, "", ErrImageNotFound
		}
		key = k
	}

	for _, b := range g.backends {
		if b.Tag() == ref.Backend {
			return b.Get(ctx, key)
		}
	}
	return nil, "", fmt.Errorf("%w: no backend for tag %q", ErrStorageUnavailable, ref.Backend)
}

func (g *ChainGateway) Delete(ctx context.Context, ref ImageReference) error {
	if ref.IsZero() {
		return nil
	}
	for _, b := range g.backends {
		if b.Tag() == ref.Backend {
			return b.Delete(ctx, ref.Key)
		}
	}
	return nil
}

func (g *ChainGateway) resolveExternal(ctx context.Context, ref ImageReference) ([]byte, string, error) {
	url := ref.URL
	if url == "" {
		url = ref.Key
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	resp, err := g.httpc.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("%w: fetch external: %v", ErrStorageUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, "", ErrImageNotFound
	}
	if resp.StatusCode >= 400 {
		return nil, "", fmt.Errorf("%w: external status %d", ErrStorageUnavailable, resp.StatusCode)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	ct := resp.Header.Get("Content-Type")
	if ct == "" {
		ct = "application/octet-stream"
	}
	return data, ct, nil
}

/* =======================================================================
   Object key builder
======================================================================= */

func buildObjectKey(dir, filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	base := strings.TrimSuffix(filepath.Base(filename), ext)
	name := fmt.Sprintf("%s_%s%s", slugify(base), randHex(6), ext)
	if d := strings.Trim(dir, "/"); d != "" {
		return joinParts(d, time.Now().Format("2006/01"), name)
	}
	return joinParts(time.Now().Format("2006/01"), name)
}

func slugify(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	var b strings.Builder
	lastDash := false
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastDash = false
		default:
			if !lastDash {
				b.WriteByte('-')
				lastDash = true
			}
		}
	}
	out := strings.Trim(b.String(), "-")
	if out == "" {
		out = "file"
	}
	return out
}

func randHex(n int) string {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return strings.Repeat("0", n*2)
	}
	return hex.EncodeToString(buf)
}

func joinParts(parts ...string) string {
	clean := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.Trim(p, "/"); p != "" {
			clean = append(clean, p)
		}
	}
	return strings.Join(clean, "/")
}

/* =======================================================================
   Mock untuk unit test
======================================================================= */

type MockGateway struct {
	StoreFn   func(ctx context.Context, data []byte, logicalName, dir, contentType string) (ImageReference, error)
	ResolveFn func(ctx context.Context, ref ImageReference) ([]byte, string, error)
	DeleteFn  func(ctx context.Context, ref ImageReference) error
}

func (m *MockGateway) Store(ctx context.Context, data []byte, logicalName, dir, contentType string) (ImageReference, error) {
	if m.StoreFn == nil {
		return ImageReference{}, errors.New("not implemented")
	}
	return m.StoreFn(ctx, data, logicalName, dir, contentType)
}

func (m *MockGateway) Resolve(ctx context.Context, ref ImageReference) ([]byte, string, error) {
	if m.ResolveFn == nil {
		return nil, "", errors.New("not implemented")
	}
	return m.ResolveFn(ctx, ref)
}

func (m *MockGateway) Delete(ctx context.Context, ref ImageReference) error {
	if m.DeleteFn == nil {
		return errors.New("not implemented")
	}
	return m.DeleteFn(ctx, ref)
}
