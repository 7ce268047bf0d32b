package configs

import (
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

var (
	JWTSecret string

	// Face recognition service
	FaceAPIBaseURL     string
	FaceAPIKey         string
	FaceCollectionID   string
	FaceMatchThreshold float64

	// Zona waktu absensi (hitung "hari ini")
	AttendanceTimezone string
)

// =======================
// ENV LOADER
// =======================
func LoadEnv() {
	if os.Getenv("RAILWAY_ENVIRONMENT") == "" {
		if err := godotenv.Load(); err != nil {
			log.Println("⚠️ Tidak menemukan .env file, menggunakan ENV dari sistem")
		} else {
			log.Println("✅ .env file berhasil dimuat!")
		}
	} else {
		log.Println("🚀 Running in Railway, menggunakan ENV dari sistem")
	}

	JWTSecret = GetEnv("JWT_SECRET")
	if JWTSecret == "" {
		log.Println("❌ JWT_SECRET belum diset!")
	} else {
		log.Println("✅ JWT_SECRET berhasil dimuat.")
	}

	FaceAPIBaseURL = GetEnv("FACE_API_BASE_URL")
	FaceAPIKey = GetEnv("FACE_API_KEY")
	FaceCollectionID = GetEnvOr("FACE_COLLECTION_ID", "attendance-faces")
	FaceMatchThreshold = GetEnvFloat("FACE_MATCH_THRESHOLD", 90)
	if FaceAPIBaseURL == "" {
		log.Println("⚠️ FACE_API_BASE_URL belum diset — verifikasi wajah tidak akan jalan")
	}

	AttendanceTimezone = GetEnvOr("ATTENDANCE_TZ", "Asia/Jakarta")
}

func GetEnv(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func GetEnvOr(key, def string) string {
	if v := GetEnv(key); v != "" {
		return v
	}
	return def
}

func GetEnvInt(key string, def int) int {
	if v := GetEnv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			return n
		}
	}
	return def
}

func GetEnvFloat(key string, def float64) float64 {
	if v := GetEnv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f >= 0 {
			return f
		}
	}
	return def
}
