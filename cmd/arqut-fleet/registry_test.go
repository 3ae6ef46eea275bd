package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/tphan267/arqut-fleet/apis"
	"github.com/tphan267/arqut-fleet/pkg/api"
	"github.com/tphan267/arqut-fleet/pkg/config"
	"github.com/tphan267/arqut-fleet/pkg/logger"
	"github.com/tphan267/arqut-fleet/pkg/providers"
	"github.com/tphan267/arqut-fleet/pkg/storage/storagetest"
)

func setupTestServer(t *testing.T) (*providers.Registry, *fiber.App) {
	t.Helper()

	store, _ := storagetest.New(t)
	cfg := &config.Config{PasswordHash: config.HashSHA256}

	// No uplink client needed for these tests
	registry := createServiceRegistry(store, logger.Discard(), cfg, nil)

	ctx := context.Background()
	if err := registry.InitializeAll(ctx); err != nil {
		t.Fatalf("Failed to initialize services: %v", err)
	}
	t.Cleanup(func() { _ = registry.Shutdown(ctx) })

	srv := apis.New(registry)
	if err := srv.RegisterRoutes(); err != nil {
		t.Fatalf("Failed to register routes: %v", err)
	}
	return registry, srv.App()
}

func call(t *testing.T, app *fiber.App, method, path string, body any) (int, api.ApiResponse) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, _ := json.Marshal(body)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("%s %s failed: %v", method, path, err)
	}
	raw, _ := io.ReadAll(resp.Body)

	var response api.ApiResponse
	if err := json.Unmarshal(raw, &response); err != nil {
		t.Fatalf("%s %s: failed to parse response %q: %v", method, path, raw, err)
	}
	return resp.StatusCode, response
}

func TestServiceRegistryIntegration(t *testing.T) {
	registry, _ := setupTestServer(t)

	if _, err := registry.GetFleet(); err != nil {
		t.Errorf("Failed to get fleet provider: %v", err)
	}
	if _, err := registry.GetLedger(); err != nil {
		t.Errorf("Failed to get ledger provider: %v", err)
	}
	if _, err := registry.GetStats(); err != nil {
		t.Errorf("Failed to get stats provider: %v", err)
	}
	if _, err := registry.GetDirectory(); err != nil {
		t.Errorf("Failed to get directory provider: %v", err)
	}
	if _, err := registry.GetSettings(); err != nil {
		t.Errorf("Failed to get settings provider: %v", err)
	}
}

func TestHealthAndUnknownRoute(t *testing.T) {
	_, app := setupTestServer(t)

	status, response := call(t, app, "GET", "/health", nil)
	if status != fiber.StatusOK || !response.Success {
		t.Errorf("Expected healthy response, got %d %+v", status, response)
	}

	status, response = call(t, app, "GET", "/api/nothing-here", nil)
	if status != fiber.StatusNotFound {
		t.Errorf("Expected status 404, got %d", status)
	}
	if response.Success || response.Error == nil {
		t.Errorf("Expected error envelope, got %+v", response)
	}
}

func TestFleetWorkflow(t *testing.T) {
	_, app := setupTestServer(t)

	status, response := call(t, app, "POST", "/api/proxies", map[string]any{
		"device_name": "Gate-1",
		"internal_ip": "10.0.0.5",
		"port":        8080,
		"username":    "u1",
		"password":    "p1",
	})
	if status != fiber.StatusCreated {
		t.Fatalf("Expected status 201, got %d: %+v", status, response.Error)
	}
	id := int(response.Data.(map[string]any)["id"].(float64))
	path := "/api/proxies/" + strconv.Itoa(id)

	status, response = call(t, app, "GET", path+"/details", nil)
	if status != fiber.StatusOK || response.Data != nil {
		t.Errorf("Expected no details before an address is known, got %d %v", status, response.Data)
	}

	status, _ = call(t, app, "PATCH", path+"/status", map[string]any{
		"status":    "online",
		"public_ip": "203.0.113.9",
	})
	if status != fiber.StatusOK {
		t.Fatalf("Expected status 200, got %d", status)
	}

	_, response = call(t, app, "GET", "/api/dashboard/stats", nil)
	stats := response.Data.(map[string]any)
	if stats["total_proxies"].(float64) != 1 || stats["online_proxies"].(float64) != 1 {
		t.Errorf("Unexpected stats: %v", stats)
	}

	_, response = call(t, app, "GET", path+"/details", nil)
	details := response.Data.(map[string]any)
	if details["public_ip"] != "203.0.113.9" || details["port"].(float64) != 8080 {
		t.Errorf("Unexpected details: %v", details)
	}

	status, _ = call(t, app, "POST", "/api/sessions", map[string]any{
		"proxy_id":   id,
		"client_ip":  "198.51.100.7",
		"login_time": "2026-03-01T08:00:00Z",
	})
	if status != fiber.StatusCreated {
		t.Errorf("Expected status 201, got %d", status)
	}

	_, response = call(t, app, "POST", "/api/proxies/reset", nil)
	reset := response.Data.(map[string]any)
	if reset["affected_count"].(float64) != 1 {
		t.Errorf("Expected one proxy reset, got %v", reset)
	}

	_, response = call(t, app, "GET", "/api/dashboard/stats", nil)
	stats = response.Data.(map[string]any)
	if stats["online_proxies"].(float64) != 0 || stats["offline_proxies"].(float64) != 1 {
		t.Errorf("Expected reset to take the proxy offline, got %v", stats)
	}
	if sessions := stats["recent_sessions"].([]any); len(sessions) != 1 {
		t.Errorf("Expected one recent session, got %v", sessions)
	}

	status, response = call(t, app, "GET", path+"/details", nil)
	if status != fiber.StatusOK || response.Data != nil {
		t.Errorf("Expected no details once the address is cleared, got %d %v", status, response.Data)
	}

	status, response = call(t, app, "PUT", "/api/settings", map[string]any{"key": "theme", "value": "dark"})
	if status != fiber.StatusOK || !response.Success {
		t.Errorf("Expected setting upsert, got %d %+v", status, response.Error)
	}
}

