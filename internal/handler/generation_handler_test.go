package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/arahkita/arah-go-api/internal/dto"
	"github.com/arahkita/arah-go-api/internal/handler"
	"github.com/arahkita/arah-go-api/internal/middleware"
	"github.com/arahkita/arah-go-api/internal/service"
	"github.com/arahkita/arah-go-api/internal/store"
)

func generationApp(svc *stubSyncService) *fiber.App {
	app := fiber.New()
	app.Use(middleware.Session("test-secret"))
	h := handler.NewGenerationHandler(svc, zerolog.Nop())
	h.Register(app.Group("/api/generate"))
	return app
}

func generateBody(t *testing.T) []byte {
	t.Helper()
	body, err := json.Marshal(dto.GenerateRequest{Profile: dto.LearnerProfile{
		Status:       "student",
		Goals:        "become a backend developer",
		HoursPerWeek: 10,
	}})
	require.NoError(t, err)
	return body
}

func TestGenerationHandlerReturnsDraft(t *testing.T) {
	svc := &stubSyncService{
		generateFn: func(context.Context, store.Session, dto.GenerateRequest) (dto.GenerateResult, error) {
			return dto.GenerateResult{
				DraftID: "draft-1",
				Outcome: "success",
				Draft:   dto.RoadmapDraft{Title: "Plan", Steps: []dto.DraftItem{{Label: "A"}}},
			}, nil
		},
	}
	app := generationApp(svc)

	req := httptest.NewRequest(http.MethodPost, "/api/generate/", bytes.NewReader(generateBody(t)))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var payload struct {
		Data dto.GenerateResult `json:"data"`
	}
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
	require.Equal(t, "draft-1", payload.Data.DraftID)
	require.Equal(t, "Plan", payload.Data.Draft.Title)
}

func TestGenerationHandlerUnprocessableOnFailedOutcome(t *testing.T) {
	svc := &stubSyncService{
		generateFn: func(context.Context, store.Session, dto.GenerateRequest) (dto.GenerateResult, error) {
			return dto.GenerateResult{Outcome: "exhausted-retries"}, nil
		},
	}
	app := generationApp(svc)

	req := httptest.NewRequest(http.MethodPost, "/api/generate/", bytes.NewReader(generateBody(t)))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	var payload struct {
		Data dto.GenerateResult `json:"data"`
	}
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
	require.Equal(t, "exhausted-retries", payload.Data.Outcome)
}

func TestGenerationHandlerAcceptUnknownDraft(t *testing.T) {
	svc := &stubSyncService{
		acceptFn: func(context.Context, store.Session, string) (dto.RoadmapResponse, error) {
			return dto.RoadmapResponse{}, service.ErrDraftNotFound
		},
	}
	app := generationApp(svc)

	body, _ := json.Marshal(dto.AcceptDraftRequest{DraftID: "11111111-2222-4333-8444-555555555555"})
	req := httptest.NewRequest(http.MethodPost, "/api/generate/accept", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestGenerationHandlerAcceptCreatesRoadmap(t *testing.T) {
	svc := &stubSyncService{
		acceptFn: func(_ context.Context, _ store.Session, draftID string) (dto.RoadmapResponse, error) {
			require.Equal(t, "11111111-2222-4333-8444-555555555555", draftID)
			return dto.RoadmapResponse{ID: "roadmap-1", Title: "Plan"}, nil
		},
	}
	app := generationApp(svc)

	body, _ := json.Marshal(dto.AcceptDraftRequest{DraftID: "11111111-2222-4333-8444-555555555555"})
	req := httptest.NewRequest(http.MethodPost, "/api/generate/accept", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
}

func TestGenerationHandlerPersonalizeFailure(t *testing.T) {
	svc := &stubSyncService{
		appendFn: func(context.Context, store.Session, string, dto.AppendStepsRequest) (dto.RoadmapResponse, error) {
			return dto.RoadmapResponse{}, service.ErrGenerationFailed
		},
	}
	app := generationApp(svc)

	body, _ := json.Marshal(dto.AppendStepsRequest{Profile: dto.LearnerProfile{Status: "student", Goals: "learn"}})
	req := httptest.NewRequest(http.MethodPost, "/api/generate/personalize/abc", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
}
