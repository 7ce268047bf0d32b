// internals/middlewares/auth/auth_middleware.go
package auth

import (
	"errors"
	"log"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"

	"absensiku_backend/internals/configs"
)

/*
AuthOptional: parse JWT kalau ada, lanjut tanpa identitas kalau tidak ada.
Dipakai di endpoint punch — perangkat absensi di lapangan boleh tanpa token
(identitas datang dari wajah), tapi kalau ada token kita catat actor-nya.
Token yang ADA tapi rusak/expired tetap ditolak.
*/
func AuthOptional() fiber.Handler {
	return func(c *fiber.Ctx) error {
		tokenString := extractBearerToken(c)
		if tokenString == "" {
			return c.Next()
		}
		claims, err := parseClaims(tokenString)
		if err != nil {
			log.Println("[ERROR] Gagal parse token:", err)
			return fiber.NewError(fiber.StatusUnauthorized, "Unauthorized - Token parse error")
		}
		if err := validateTokenExpiry(claims, 30*time.Second); err != nil {
			log.Println("[ERROR] Exp validation:", err)
			return fiber.NewError(fiber.StatusUnauthorized, "Unauthorized - Token expired")
		}
		if actorID, err := extractActorID(claims); err == nil {
			c.Locals("actor_id", actorID.String())
		}
		return c.Next()
	}
}

// AuthRequired: wajib token valid (endpoint admin: enrollment, master data).
func AuthRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		tokenString := extractBearerToken(c)
		if tokenString == "" {
			return fiber.NewError(fiber.StatusUnauthorized, "Unauthorized - Missing token")
		}
		claims, err := parseClaims(tokenString)
		if err != nil {
			log.Println("[ERROR] Gagal parse token:", err)
			return fiber.NewError(fiber.StatusUnauthorized, "Unauthorized - Token parse error")
		}
		if err := validateTokenExpiry(claims, 30*time.Second); err != nil {
			log.Println("[ERROR] Exp validation:", err)
			return fiber.NewError(fiber.StatusUnauthorized, "Unauthorized - Token expired")
		}
		actorID, err := extractActorID(claims)
		if err != nil {
			log.Println("[ERROR] actor_id:", err)
			return fiber.NewError(fiber.StatusUnauthorized, "Unauthorized - Invalid or missing user ID")
		}
		c.Locals("actor_id", actorID.String())
		return c.Next()
	}
}

/* ===================== helpers ===================== */

func extractBearerToken(c *fiber.Ctx) string {
	authHeader := c.Get("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
	}
	// fallback cookie untuk web client
	return c.Cookies("access_token")
}

func parseClaims(tokenString string) (jwt.MapClaims, error) {
	secretKey := configs.JWTSecret
	if secretKey == "" {
		return nil, errors.New("JWT_SECRET kosong")
	}
	claims := jwt.MapClaims{}
	parser := jwt.Parser{SkipClaimsValidation: true}
	if _, err := parser.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return []byte(secretKey), nil
	}); err != nil {
		return nil, err
	}
	return claims, nil
}

func validateTokenExpiry(claims jwt.MapClaims, leeway time.Duration) error {
	expRaw, ok := claims["exp"]
	if !ok {
		return errors.New("exp claim tidak ada")
	}
	expFloat, ok := expRaw.(float64)
	if !ok {
		return errors.New("exp claim bukan angka")
	}
	expTime := time.Unix(int64(expFloat), 0)
	if time.Now().After(expTime.Add(leeway)) {
		return errors.New("token expired")
	}
	return nil
}

func extractActorID(claims jwt.MapClaims) (uuid.UUID, error) {
	for _, key := range []string{"actor_id", "user_id", "sub"} {
		if raw, ok := claims[key]; ok {
			if s, ok := raw.(string); ok && s != "" {
				return uuid.Parse(s)
			}
		}
	}
	return uuid.Nil, errors.New("actor id tidak ditemukan di claims")
}
