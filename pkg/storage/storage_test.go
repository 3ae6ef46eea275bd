package storage_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/tphan267/arqut-fleet/pkg/errs"
	"github.com/tphan267/arqut-fleet/pkg/models"
	"github.com/tphan267/arqut-fleet/pkg/storage"
	"github.com/tphan267/arqut-fleet/pkg/storage/storagetest"
)

func strPtr(s string) *string { return &s }

func newProxy(name string, status models.ProxyStatus) *models.Proxy {
	return &models.Proxy{
		DeviceName: name,
		InternalIP: "10.0.0.5",
		Port:       8080,
		Username:   "u",
		Password:   "p",
		Status:     status,
	}
}

func TestOpenUnsupportedDriver(t *testing.T) {
	_, err := storage.Open(storage.Options{Driver: "oracle", DSN: "x"}, nil)
	if err == nil {
		t.Fatal("Expected error for unsupported driver")
	}
}

func TestOpenRequiresDSN(t *testing.T) {
	for _, driver := range []string{storage.DriverSQLite, storage.DriverPostgres, storage.DriverMySQL} {
		if _, err := storage.Open(storage.Options{Driver: driver}, nil); err == nil {
			t.Errorf("Expected error for empty %s dsn", driver)
		}
	}
}

func TestProxyCreateAndGet(t *testing.T) {
	store, _ := storagetest.New(t)
	ctx := context.Background()

	p := newProxy("Gate-1", models.StatusOffline)
	if err := store.Proxies().Create(ctx, p); err != nil {
		t.Fatalf("Failed to create proxy: %v", err)
	}
	if p.ID == 0 {
		t.Fatal("Expected id to be assigned")
	}

	got, err := store.Proxies().Get(ctx, p.ID)
	if err != nil {
		t.Fatalf("Failed to get proxy: %v", err)
	}
	if got.PublicIP != nil {
		t.Errorf("Expected NULL public ip, got %q", *got.PublicIP)
	}
	if got.InternalIP != "10.0.0.5" {
		t.Errorf("Expected internal ip to be stored, got %q", got.InternalIP)
	}

	_, err = store.Proxies().Get(ctx, 999)
	if !errors.Is(err, errs.ErrNotFound) {
		t.Errorf("Expected not found, got %v", err)
	}
}

func TestProxyCountByStatus(t *testing.T) {
	store, _ := storagetest.New(t)
	ctx := context.Background()

	for i, status := range []models.ProxyStatus{models.StatusOnline, models.StatusOnline, models.StatusOffline} {
		p := newProxy("p"+string(rune('a'+i)), status)
		if err := store.Proxies().Create(ctx, p); err != nil {
			t.Fatalf("Failed to create proxy: %v", err)
		}
	}

	counts, err := store.Proxies().CountByStatus(ctx)
	if err != nil {
		t.Fatalf("Failed to count: %v", err)
	}
	if counts.Total != 3 || counts.Online != 2 || counts.Offline != 1 {
		t.Errorf("Unexpected counts: %+v", counts)
	}
}

func TestResetAddressesOnlyTouchesGivenIDs(t *testing.T) {
	store, _ := storagetest.New(t)
	ctx := context.Background()

	online := newProxy("on", models.StatusOnline)
	online.PublicIP = strPtr("203.0.113.7")
	idle := newProxy("off", models.StatusOffline)
	idle.PublicIP = strPtr("203.0.113.8")
	for _, p := range []*models.Proxy{online, idle} {
		if err := store.Proxies().Create(ctx, p); err != nil {
			t.Fatalf("Failed to create proxy: %v", err)
		}
	}

	n, err := store.Proxies().ResetAddresses(ctx, []uint{online.ID})
	if err != nil {
		t.Fatalf("Failed to reset: %v", err)
	}
	if n != 1 {
		t.Errorf("Expected 1 row affected, got %d", n)
	}

	got, _ := store.Proxies().Get(ctx, online.ID)
	if got.PublicIP != nil || got.Status != models.StatusOffline {
		t.Errorf("Expected reset proxy, got status=%s ip=%v", got.Status, got.PublicIP)
	}
	untouched, _ := store.Proxies().Get(ctx, idle.ID)
	if untouched.PublicIP == nil || *untouched.PublicIP != "203.0.113.8" {
		t.Error("Expected other proxy to keep its address")
	}

	n, err = store.Proxies().ResetAddresses(ctx, nil)
	if err != nil || n != 0 {
		t.Errorf("Expected no-op reset, got %d, %v", n, err)
	}
}

func TestSessionCreateRequiresProxy(t *testing.T) {
	store, _ := storagetest.New(t)
	ctx := context.Background()

	s := &models.Session{ProxyID: 42, ClientIP: "198.51.100.1", LoginTime: time.Now()}
	err := store.Sessions().Create(ctx, s)
	if !errors.Is(err, errs.ErrIntegrity) {
		t.Fatalf("Expected integrity error, got %v", err)
	}

	count, _ := store.Sessions().Count(ctx)
	if count != 0 {
		t.Errorf("Expected no session rows, got %d", count)
	}
}

func TestSessionListNewestFirst(t *testing.T) {
	store, _ := storagetest.New(t)
	ctx := context.Background()

	p := newProxy("Gate-1", models.StatusOnline)
	if err := store.Proxies().Create(ctx, p); err != nil {
		t.Fatalf("Failed to create proxy: %v", err)
	}

	var ids []uint
	for i := 0; i < 3; i++ {
		s := &models.Session{ProxyID: p.ID, ClientIP: "198.51.100.1", LoginTime: time.Now()}
		if err := store.Sessions().Create(ctx, s); err != nil {
			t.Fatalf("Failed to create session: %v", err)
		}
		ids = append(ids, s.ID)
	}

	sessions, err := store.Sessions().List(ctx, 2, 0)
	if err != nil {
		t.Fatalf("Failed to list sessions: %v", err)
	}
	if len(sessions) != 2 {
		t.Fatalf("Expected 2 sessions, got %d", len(sessions))
	}
	if sessions[0].ID != ids[2] || sessions[1].ID != ids[1] {
		t.Errorf("Expected newest first, got %d,%d", sessions[0].ID, sessions[1].ID)
	}

	rest, _ := store.Sessions().List(ctx, 2, 2)
	if len(rest) != 1 || rest[0].ID != ids[0] {
		t.Errorf("Expected oldest session on second page, got %+v", rest)
	}
}

func TestSessionListSameCreatedAtNewestInsertFirst(t *testing.T) {
	store, clock := storagetest.New(t)
	ctx := context.Background()

	p := newProxy("Gate-1", models.StatusOnline)
	if err := store.Proxies().Create(ctx, p); err != nil {
		t.Fatalf("Failed to create proxy: %v", err)
	}

	// freeze the clock so every session shares one created_at
	clock.Step = 0

	var ids []uint
	for i := 0; i < 4; i++ {
		s := &models.Session{ProxyID: p.ID, ClientIP: "198.51.100.1", LoginTime: time.Now()}
		if err := store.Sessions().Create(ctx, s); err != nil {
			t.Fatalf("Failed to create session: %v", err)
		}
		ids = append(ids, s.ID)
	}

	sessions, err := store.Sessions().List(ctx, 10, 0)
	if err != nil {
		t.Fatalf("Failed to list sessions: %v", err)
	}
	if len(sessions) != 4 {
		t.Fatalf("Expected 4 sessions, got %d", len(sessions))
	}
	for i, s := range sessions {
		if !s.CreatedAt.Equal(sessions[0].CreatedAt) {
			t.Fatalf("Expected identical created_at, got %v and %v", s.CreatedAt, sessions[0].CreatedAt)
		}
		if want := ids[len(ids)-1-i]; s.ID != want {
			t.Errorf("Position %d: expected session %d, got %d", i, want, s.ID)
		}
	}
}

func TestUserUniqueUsername(t *testing.T) {
	store, _ := storagetest.New(t)
	ctx := context.Background()

	first := &models.User{Username: "alice", Password: "h", AccessLevel: models.AccessUser}
	if err := store.Users().Create(ctx, first); err != nil {
		t.Fatalf("Failed to create user: %v", err)
	}

	dup := &models.User{Username: "alice", Password: "h", AccessLevel: models.AccessAdmin}
	err := store.Users().Create(ctx, dup)
	if !errors.Is(err, errs.ErrConflict) {
		t.Fatalf("Expected conflict, got %v", err)
	}

	taken, err := store.Users().UsernameTaken(ctx, "alice", first.ID)
	if err != nil {
		t.Fatalf("UsernameTaken failed: %v", err)
	}
	if taken {
		t.Error("Expected own username not to count as taken")
	}
}

func TestSettingUpsertKeepsIdentity(t *testing.T) {
	store, _ := storagetest.New(t)
	ctx := context.Background()

	first, err := store.Settings().Upsert(ctx, "max_sessions", "10", strPtr("limit"))
	if err != nil {
		t.Fatalf("Failed to insert setting: %v", err)
	}

	second, err := store.Settings().Upsert(ctx, "max_sessions", "20", nil)
	if err != nil {
		t.Fatalf("Failed to update setting: %v", err)
	}

	if second.ID != first.ID {
		t.Errorf("Expected id %d to be kept, got %d", first.ID, second.ID)
	}
	if !second.CreatedAt.Equal(first.CreatedAt) {
		t.Errorf("Expected created_at %v to be kept, got %v", first.CreatedAt, second.CreatedAt)
	}
	if !second.UpdatedAt.After(first.UpdatedAt) {
		t.Error("Expected updated_at to advance")
	}
	if second.Value != "20" || second.Description != nil {
		t.Errorf("Expected value 20 and cleared description, got %q %v", second.Value, second.Description)
	}

	count, _ := store.Settings().Count(ctx)
	if count != 1 {
		t.Errorf("Expected exactly one row, got %d", count)
	}
}
