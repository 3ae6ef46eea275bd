package settings

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/tphan267/arqut-fleet/pkg/api"
	"github.com/tphan267/arqut-fleet/pkg/errs"
	"github.com/tphan267/arqut-fleet/pkg/logger"
	"github.com/tphan267/arqut-fleet/pkg/providers"
	"github.com/tphan267/arqut-fleet/pkg/storage"
	"github.com/tphan267/arqut-fleet/pkg/storage/storagetest"
)

func setupTestSettings(t *testing.T) (*Service, storage.Storage) {
	store, _ := storagetest.New(t)

	svc := NewService()
	registry := providers.NewRegistry(store, logger.Discard(), nil, nil)
	if err := svc.Initialize(context.Background(), registry); err != nil {
		t.Fatalf("Failed to initialize settings: %v", err)
	}
	return svc, store
}

func desc(s string) *string {
	return &s
}

func TestPut_InsertThenUpdate(t *testing.T) {
	svc, store := setupTestSettings(t)
	ctx := context.Background()

	first, err := svc.Put(ctx, providers.PutSettingInput{Key: "max_sessions", Value: "10", Description: desc("per proxy")})
	if err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if first.Description == nil || *first.Description != "per proxy" {
		t.Errorf("Expected description, got %v", first.Description)
	}

	second, err := svc.Put(ctx, providers.PutSettingInput{Key: "max_sessions", Value: "20"})
	if err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	if second.ID != first.ID {
		t.Errorf("Expected id to be kept, %d -> %d", first.ID, second.ID)
	}
	if second.Value != "20" {
		t.Errorf("Expected second value to win, got %s", second.Value)
	}
	if second.Description != nil {
		t.Errorf("Expected description to be cleared, got %q", *second.Description)
	}
	if !second.CreatedAt.Equal(first.CreatedAt) {
		t.Errorf("Expected created_at unchanged, %v -> %v", first.CreatedAt, second.CreatedAt)
	}
	if !second.UpdatedAt.After(first.UpdatedAt) {
		t.Errorf("Expected updated_at to advance, %v -> %v", first.UpdatedAt, second.UpdatedAt)
	}

	count, _ := store.Settings().Count(ctx)
	if count != 1 {
		t.Errorf("Expected exactly one row, got %d", count)
	}
}

func TestPut_RequiresKey(t *testing.T) {
	svc, _ := setupTestSettings(t)

	if _, err := svc.Put(context.Background(), providers.PutSettingInput{Key: " ", Value: "x"}); !errors.Is(err, errs.ErrValidation) {
		t.Errorf("Expected validation error, got %v", err)
	}
}

func TestList_OrderedByKey(t *testing.T) {
	svc, _ := setupTestSettings(t)
	ctx := context.Background()

	for _, key := range []string{"zeta", "alpha", "mid"} {
		if _, err := svc.Put(ctx, providers.PutSettingInput{Key: key, Value: "v"}); err != nil {
			t.Fatalf("Put failed: %v", err)
		}
	}

	settings, err := svc.List(ctx)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	var keys []string
	for _, s := range settings {
		keys = append(keys, s.Key)
	}
	if len(keys) != 3 || keys[0] != "alpha" || keys[1] != "mid" || keys[2] != "zeta" {
		t.Errorf("Expected keys in order, got %v", keys)
	}
}

func TestSettingsRoutes(t *testing.T) {
	svc, _ := setupTestSettings(t)
	app := fiber.New()
	if err := svc.RegisterAPIRoutes(app); err != nil {
		t.Fatalf("RegisterAPIRoutes failed: %v", err)
	}

	body, _ := json.Marshal(map[string]any{"key": "theme", "value": "dark"})
	req := httptest.NewRequest("PUT", "/api/settings", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Errorf("Expected status 200, got %d", resp.StatusCode)
	}

	body, _ = json.Marshal(map[string]any{"value": "dark"})
	req = httptest.NewRequest("PUT", "/api/settings", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err = app.Test(req)
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Errorf("Expected status 400 without key, got %d", resp.StatusCode)
	}

	resp, err = app.Test(httptest.NewRequest("GET", "/api/settings", nil))
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	raw, _ := io.ReadAll(resp.Body)
	var response api.ApiResponse
	if err := json.Unmarshal(raw, &response); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	list, ok := response.Data.([]any)
	if !ok || len(list) != 1 {
		t.Fatalf("Expected one setting, got %v", response.Data)
	}
	if list[0].(map[string]any)["value"] != "dark" {
		t.Errorf("Unexpected setting: %v", list[0])
	}
}
