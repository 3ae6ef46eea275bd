package fleet

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/tphan267/arqut-fleet/pkg/api"
)

func setupTestFleet(t *testing.T) (*FleetProvider, *fiber.App) {
	fleet, _ := setupTestProvider(t)

	app := fiber.New()
	fleet.RegisterRoutes(app)

	return fleet, app
}

func doJSON(t *testing.T, app *fiber.App, method, path string, body any) (*http.Response, api.ApiResponse) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, _ := json.Marshal(body)
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}

	raw, _ := io.ReadAll(resp.Body)
	var response api.ApiResponse
	if err := json.Unmarshal(raw, &response); err != nil {
		t.Fatalf("Failed to parse response %q: %v", raw, err)
	}
	return resp, response
}

func TestListProxies_Empty(t *testing.T) {
	_, app := setupTestFleet(t)

	resp, response := doJSON(t, app, "GET", "/api/proxies", nil)
	if resp.StatusCode != fiber.StatusOK {
		t.Errorf("Expected status 200, got %d", resp.StatusCode)
	}
	if !response.Success {
		t.Error("Expected success response")
	}
	if list, ok := response.Data.([]any); !ok || len(list) != 0 {
		t.Errorf("Expected empty list, got %v", response.Data)
	}
}

func TestCreateProxy_Success(t *testing.T) {
	_, app := setupTestFleet(t)

	resp, response := doJSON(t, app, "POST", "/api/proxies", map[string]any{
		"device_name": "Gate-1",
		"internal_ip": "10.0.0.5",
		"port":        8080,
		"username":    "u",
		"password":    "p",
		"public_ip":   "203.0.113.1", // ignored
	})

	if resp.StatusCode != fiber.StatusCreated {
		t.Fatalf("Expected status 201, got %d", resp.StatusCode)
	}

	data, ok := response.Data.(map[string]any)
	if !ok {
		t.Fatalf("Expected object data, got %T", response.Data)
	}
	if data["status"] != "offline" {
		t.Errorf("Expected offline, got %v", data["status"])
	}
	if data["public_ip"] != "" {
		t.Errorf("Expected empty public_ip, got %v", data["public_ip"])
	}
	if _, ok := data["internal_ip"]; ok {
		t.Error("Expected internal_ip to be hidden")
	}
}

func TestCreateProxy_ValidationError(t *testing.T) {
	_, app := setupTestFleet(t)

	resp, response := doJSON(t, app, "POST", "/api/proxies", map[string]any{
		"device_name": "Gate-1",
		"internal_ip": "nope",
		"port":        8080,
		"username":    "u",
		"password":    "p",
	})

	if resp.StatusCode != fiber.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", resp.StatusCode)
	}
	if response.Success || response.Error == nil {
		t.Fatal("Expected error response")
	}
	if response.Error.Code != "validation" {
		t.Errorf("Expected validation code, got %s", response.Error.Code)
	}
}

func TestUpdateStatus_Routes(t *testing.T) {
	fleet, app := setupTestFleet(t)
	view := mustCreate(t, fleet, "Gate-1")

	resp, response := doJSON(t, app, "PATCH", "/api/proxies/1/status", map[string]any{
		"status":    "online",
		"public_ip": "203.0.113.2",
	})
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("Expected status 200, got %d", resp.StatusCode)
	}
	data := response.Data.(map[string]any)
	if data["status"] != "online" || data["public_ip"] != "203.0.113.2" {
		t.Errorf("Unexpected proxy: %v", data)
	}
	if uint(data["id"].(float64)) != view.ID {
		t.Errorf("Expected id %d, got %v", view.ID, data["id"])
	}

	resp, _ = doJSON(t, app, "PATCH", "/api/proxies/99/status", map[string]any{"status": "online"})
	if resp.StatusCode != fiber.StatusNotFound {
		t.Errorf("Expected status 404, got %d", resp.StatusCode)
	}

	resp, _ = doJSON(t, app, "PATCH", "/api/proxies/abc/status", map[string]any{"status": "online"})
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Errorf("Expected status 400 for bad id, got %d", resp.StatusCode)
	}

	resp, _ = doJSON(t, app, "PATCH", "/api/proxies/1/status", map[string]any{"status": "rebooting"})
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Errorf("Expected status 400 for bad status, got %d", resp.StatusCode)
	}
}

func TestResetAddress_Routes(t *testing.T) {
	fleet, app := setupTestFleet(t)
	view := mustCreate(t, fleet, "Gate-1")

	// no body resets the whole fleet
	resp, response := doJSON(t, app, "POST", "/api/proxies/reset", nil)
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("Expected status 200, got %d", resp.StatusCode)
	}
	data := response.Data.(map[string]any)
	if data["affected_count"].(float64) != 0 {
		t.Errorf("Expected 0 affected, got %v", data["affected_count"])
	}
	if data["message"] != "No online proxies found to reset" {
		t.Errorf("Unexpected message: %v", data["message"])
	}

	resp, response = doJSON(t, app, "POST", "/api/proxies/reset", map[string]any{"proxy_id": view.ID})
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("Expected status 200, got %d", resp.StatusCode)
	}
	data = response.Data.(map[string]any)
	if data["affected_count"].(float64) != 1 || data["success"] != true {
		t.Errorf("Unexpected result: %v", data)
	}

	resp, _ = doJSON(t, app, "POST", "/api/proxies/reset", map[string]any{"proxy_id": 77})
	if resp.StatusCode != fiber.StatusNotFound {
		t.Errorf("Expected status 404, got %d", resp.StatusCode)
	}
}

func TestConnectionDetails_Routes(t *testing.T) {
	fleet, app := setupTestFleet(t)
	view := mustCreate(t, fleet, "Gate-1")

	resp, response := doJSON(t, app, "GET", "/api/proxies/1/details", nil)
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("Expected status 200, got %d", resp.StatusCode)
	}
	if response.Data != nil {
		t.Errorf("Expected no details, got %v", response.Data)
	}

	mustSetStatus(t, fleet, view.ID, "online", "203.0.113.4")

	_, response = doJSON(t, app, "GET", "/api/proxies/1/details", nil)
	data, ok := response.Data.(map[string]any)
	if !ok {
		t.Fatalf("Expected details, got %v", response.Data)
	}
	if data["public_ip"] != "203.0.113.4" || data["username"] != "u" {
		t.Errorf("Unexpected details: %v", data)
	}
}
