package helper

import (
	"io"
	"mime/multipart"
	"strings"

	"github.com/gofiber/fiber/v2"
)

// IsMultipart menilai request multipart/form-data
func IsMultipart(c *fiber.Ctx) bool {
	ct := strings.ToLower(strings.TrimSpace(c.Get(fiber.HeaderContentType)))
	return strings.HasPrefix(ct, "multipart/form-data")
}

// Nama-nama field umum untuk upload foto
var defaultImageFields = []string{"image", "file", "photo", "picture"}

// GetImageFile mencari file dari beberapa kemungkinan field form.
// Jika tidak ada file, kembalikan (nil, nil) supaya controller bisa fallback.
func GetImageFile(c *fiber.Ctx, fieldNames ...string) (*multipart.FileHeader, error) {
	if !IsMultipart(c) {
		return nil, fiber.NewError(fiber.StatusBadRequest, "Gunakan multipart/form-data")
	}
	names := fieldNames
	if len(names) == 0 {
		names = defaultImageFields
	}
	for _, fn := range names {
		if fh, err := c.FormFile(fn); err == nil && fh != nil {
			return fh, nil
		}
	}
	return nil, nil
}

// ReadFormFile membaca seluruh isi file multipart ke memory (foto kecil).
func ReadFormFile(fh *multipart.FileHeader) ([]byte, error) {
	src, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer src.Close()
	return io.ReadAll(src)
}
