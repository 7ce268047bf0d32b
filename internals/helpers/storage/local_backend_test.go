package storage

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestLocalBackend_PutGetRoundTrip(t *testing.T) {
	lb := &LocalBackend{BaseDir: t.TempDir()}
	ctx := context.Background()

	content := []byte("isi-foto-punch")
	ref, err := lb.Put(ctx, "punch/2026/01/test.webp", content, PutOptions{ContentType: "image/webp"})
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if ref.Backend != BackendLocal {
		t.Fatalf("backend = %q, want local", ref.Backend)
	}

	got, ct, err := lb.Get(ctx, ref.Key)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !bytes.Equal(got, content) {
		t.Fatalf("isi berubah: %q vs %q", got, content)
	}
	if ct != "image/webp" {
		t.Fatalf("content type = %q, want image/webp", ct)
	}
}

func TestLocalBackend_CreatesSubdirOnDemand(t *testing.T) {
	base := t.TempDir()
	lb := &LocalBackend{BaseDir: base}

	if _, err := lb.Put(context.Background(), "punch/deep/nested/a.webp", []byte("x"), PutOptions{}); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if _, err := os.Stat(filepath.Join(base, "punch", "deep", "nested", "a.webp")); err != nil {
		t.Fatalf("file tidak ada: %v", err)
	}
}

func TestLocalBackend_GetMissing(t *testing.T) {
	lb := &LocalBackend{BaseDir: t.TempDir()}
	if _, _, err := lb.Get(context.Background(), "tidak/ada.webp"); !errors.Is(err, ErrImageNotFound) {
		t.Fatalf("err = %v, want ErrImageNotFound", err)
	}
}

func TestLocalBackend_DeleteIdempotent(t *testing.T) {
	lb := &LocalBackend{BaseDir: t.TempDir()}
	if err := lb.Delete(context.Background(), "belum/pernah/ada.webp"); err != nil {
		t.Fatalf("Delete missing harus no-op, got %v", err)
	}
}

func TestLocalBackend_RejectsTraversal(t *testing.T) {
	lb := &LocalBackend{BaseDir: t.TempDir()}
	if _, err := lb.Put(context.Background(), "../../etc/passwd", []byte("x"), PutOptions{}); err == nil {
		t.Fatal("key traversal harus ditolak")
	}
}
