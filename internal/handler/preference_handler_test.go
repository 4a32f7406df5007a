package handler_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/arahkita/arah-go-api/internal/dto"
	"github.com/arahkita/arah-go-api/internal/handler"
	"github.com/arahkita/arah-go-api/internal/middleware"
)

type stubPreferenceService struct {
	getFn    func(context.Context, string) (dto.PreferenceResponse, error)
	updateFn func(context.Context, string, dto.PreferenceUpdateRequest) (dto.PreferenceResponse, error)
}

func (s *stubPreferenceService) Get(ctx context.Context, userID string) (dto.PreferenceResponse, error) {
	return s.getFn(ctx, userID)
}

func (s *stubPreferenceService) Update(ctx context.Context, userID string, req dto.PreferenceUpdateRequest) (dto.PreferenceResponse, error) {
	return s.updateFn(ctx, userID, req)
}

func preferenceApp(svc *stubPreferenceService) *fiber.App {
	app := fiber.New()
	app.Use(middleware.Session("test-secret"))
	h := handler.NewPreferenceHandler(svc, zerolog.Nop())
	h.Register(app.Group("/api/preferences"))
	return app
}

func bearerToken(t *testing.T, subject string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": subject,
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return "Bearer " + signed
}

func TestPreferenceHandlerRejectsAnonymous(t *testing.T) {
	svc := &stubPreferenceService{
		getFn: func(context.Context, string) (dto.PreferenceResponse, error) {
			t.Fatal("service should not be reached")
			return dto.PreferenceResponse{}, nil
		},
	}
	app := preferenceApp(svc)

	req := httptest.NewRequest(http.MethodGet, "/api/preferences/", nil)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestPreferenceHandlerGetForAuthenticatedUser(t *testing.T) {
	svc := &stubPreferenceService{
		getFn: func(_ context.Context, userID string) (dto.PreferenceResponse, error) {
			require.Equal(t, "user-7", userID)
			return dto.PreferenceResponse{UserID: userID, OnboardingSeen: true}, nil
		},
	}
	app := preferenceApp(svc)

	req := httptest.NewRequest(http.MethodGet, "/api/preferences/", nil)
	req.Header.Set("Authorization", bearerToken(t, "user-7"))

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
}
