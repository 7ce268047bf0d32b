package controller

import (
	"encoding/json"
	"io"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
)

// Request dengan payload tidak valid harus dijawab 422 + errors per field,
// bukan 400 envelope lama.
func TestSubmitPunchInvalidPayloadAnswers422(t *testing.T) {
	app := fiber.New()
	ctrl := &AttendanceController{}
	app.Post("/punch", ctrl.SubmitPunch)

	form := url.Values{}
	form.Set("direction", "sideways")
	form.Set("latitude", "-6.2")
	form.Set("longitude", "106.8")

	req := httptest.NewRequest(fiber.MethodPost, "/punch", strings.NewReader(form.Encode()))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationForm)

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != fiber.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", resp.StatusCode)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	var body struct {
		Success   bool                `json:"success"`
		ErrorCode string              `json:"error_code"`
		Errors    map[string][]string `json:"errors"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.Success {
		t.Fatalf("expected success=false")
	}
	if body.ErrorCode != "VALIDATION_ERROR" {
		t.Fatalf("expected VALIDATION_ERROR, got %q", body.ErrorCode)
	}
	if len(body.Errors["direction"]) == 0 {
		t.Fatalf("expected field error untuk direction, got %+v", body.Errors)
	}
}

func TestGetPunchImageRejectsBadDirection(t *testing.T) {
	app := fiber.New()
	ctrl := &AttendanceController{}
	app.Get("/attendance/:id/image/:direction", ctrl.GetPunchImage)

	req := httptest.NewRequest(fiber.MethodGet, "/attendance/4f4c9d0e-8f3a-4e47-9b55-111111111111/image/sideways", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}
