package helper

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// Ambil actor_id dari c.Locals("actor_id") (diisi oleh auth middleware).
// Flow face-only boleh tanpa login → return nil pointer, bukan error.
func GetActorIDFromToken(c *fiber.Ctx) *uuid.UUID {
	v := c.Locals("actor_id")
	if v == nil {
		return nil
	}

	switch t := v.(type) {
	case uuid.UUID:
		if t == uuid.Nil {
			return nil
		}
		id := t
		return &id
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return nil
		}
		id, err := uuid.Parse(s)
		if err != nil {
			return nil
		}
		return &id
	default:
		return nil
	}
}

// Versi wajib login: 401 kalau actor tidak ada.
func RequireActorID(c *fiber.Ctx) (uuid.UUID, error) {
	if id := GetActorIDFromToken(c); id != nil {
		return *id, nil
	}
	return uuid.Nil, fiber.NewError(fiber.StatusUnauthorized, "User belum login")
}
