package identity

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ashureev/pocketos/internal/domain"
	"github.com/ashureev/pocketos/internal/store"
)

func TestMiddlewareIssuesCookieAndCreatesDevice(t *testing.T) {
	repo := store.NewMemory()
	var seen string
	h := Middleware(repo, true)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = DeviceIDFromContext(r.Context())
		if tab := TabIDFromContext(r.Context()); tab != "tab-1" {
			t.Errorf("tab = %q, want tab-1", tab)
		}
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/app", nil)
	req.Header.Set(TabHeaderName, "tab-1")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if !IsValidDeviceID(seen) {
		t.Fatalf("device id %q is not valid", seen)
	}
	cookies := rec.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Value != seen {
		t.Fatalf("cookies = %v, want one carrying %s", cookies, seen)
	}
	d, err := repo.GetDevice(context.Background(), seen)
	if err != nil || d == nil {
		t.Fatalf("device not created: %v, %v", d, err)
	}
}

func TestMiddlewareReusesValidCookie(t *testing.T) {
	repo := store.NewMemory()
	id, err := NewDeviceID()
	if err != nil {
		t.Fatal(err)
	}
	var seen string
	h := Middleware(repo, true)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = DeviceIDFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: DeviceCookieName, Value: id})
	h.ServeHTTP(httptest.NewRecorder(), req)
	if seen != id {
		t.Errorf("device = %q, want %q", seen, id)
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: DeviceCookieName, Value: "forged"})
	h.ServeHTTP(httptest.NewRecorder(), req)
	if seen == "forged" {
		t.Error("malformed cookie was accepted")
	}
}

func TestEnsureDeviceTouchesStaleDevice(t *testing.T) {
	ctx := context.Background()
	repo := store.NewMemory()
	old := time.Now().Add(-time.Hour)
	if err := repo.UpsertDevice(ctx, &domain.Device{DeviceID: "anon_x", LastSeenAt: old}); err != nil {
		t.Fatal(err)
	}

	if err := EnsureDevice(ctx, repo, "anon_x"); err != nil {
		t.Fatalf("EnsureDevice() error = %v", err)
	}
	d, _ := repo.GetDevice(ctx, "anon_x")
	if !d.LastSeenAt.After(old) {
		t.Errorf("last seen not refreshed: %v", d.LastSeenAt)
	}
}

func TestSanitizeTabID(t *testing.T) {
	tests := map[string]string{
		"":          DefaultTabIDValue,
		"  ":        DefaultTabIDValue,
		"tab 1":     DefaultTabIDValue,
		"tab-1":     "tab-1",
		"a:b.c_d-e": "a:b.c_d-e",
	}
	for in, want := range tests {
		if got := sanitizeTabID(in); got != want {
			t.Errorf("sanitizeTabID(%q) = %q, want %q", in, got, want)
		}
	}
}
