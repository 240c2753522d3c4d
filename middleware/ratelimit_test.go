package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"delivery-marketplace-api/models"
	"delivery-marketplace-api/ratelimit"

	"github.com/gin-gonic/gin"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func testRouter(registry *ratelimit.Registry) *gin.Engine {
	r := gin.New()
	r.Use(RateLimit(registry))
	ok := func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"ok": true}) }
	r.GET("/api/restaurants", ok)
	r.GET("/api/customer/orders", ok)
	r.POST("/api/payments/verify", ok)
	return r
}

func TestClassifyTier(t *testing.T) {
	cases := []struct {
		path string
		want ratelimit.Tier
	}{
		{"/api/payments/create-order", ratelimit.TierPayment},
		{"/api/payments/verify", ratelimit.TierPayment},
		{"/api/customer/orders", ratelimit.TierAuthenticated},
		{"/api/delivery/orders/available", ratelimit.TierAuthenticated},
		{"/api/admin/users", ratelimit.TierAuthenticated},
		{"/api/restaurant/orders", ratelimit.TierAuthenticated},
		{"/api/profile", ratelimit.TierAuthenticated},
		{"/api/reviews/submit", ratelimit.TierAuthenticated},
		// public browsing must not fall under the /api/restaurant owner area
		{"/api/restaurants", ratelimit.TierPublic},
		{"/api/restaurants/3/menu", ratelimit.TierPublic},
		{"/api/auth/login", ratelimit.TierPublic},
		{"/health", ratelimit.TierPublic},
	}
	for _, tc := range cases {
		if got := ClassifyTier(tc.path); got != tc.want {
			t.Fatalf("ClassifyTier(%q) = %s, want %s", tc.path, got, tc.want)
		}
	}
}

func TestPaymentTierLimit(t *testing.T) {
	cfg := ratelimit.DefaultConfig()
	cfg.Payment = 10
	cfg.Window = 60 * time.Second
	router := testRouter(ratelimit.NewRegistry(cfg))

	// 11 consecutive payment-tier calls from the same identity: 1-10 allowed
	for i := 1; i <= 10; i++ {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/payments/verify", nil)
		req.RemoteAddr = "203.0.113.7:51234"
		router.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("call %d: expected 200, got %d", i, w.Code)
		}
		if got := w.Header().Get("X-RateLimit-Limit"); got != "10" {
			t.Fatalf("call %d: expected limit header 10, got %q", i, got)
		}
	}

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/payments/verify", nil)
	req.RemoteAddr = "203.0.113.7:51234"
	router.ServeHTTP(w, req)

	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("call 11: expected 429, got %d", w.Code)
	}
	if got := w.Header().Get("Retry-After"); got != "60" {
		t.Fatalf("expected Retry-After=60, got %q", got)
	}
	if got := w.Header().Get("X-RateLimit-Remaining"); got != "0" {
		t.Fatalf("expected remaining=0, got %q", got)
	}

	var body struct {
		Status    int    `json:"status"`
		Message   string `json:"message"`
		Timestamp string `json:"timestamp"`
		Path      string `json:"path"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("rejection body is not JSON: %v", err)
	}
	if body.Status != http.StatusTooManyRequests {
		t.Fatalf("expected body status 429, got %d", body.Status)
	}
	if body.Path != "/api/payments/verify" {
		t.Fatalf("expected body path to echo the request path, got %q", body.Path)
	}
	if body.Message == "" || body.Timestamp == "" {
		t.Fatalf("expected message and timestamp in rejection body: %+v", body)
	}
}

func TestRemainingHeaderCountsDown(t *testing.T) {
	cfg := ratelimit.DefaultConfig()
	cfg.Public = 3
	router := testRouter(ratelimit.NewRegistry(cfg))

	want := []string{"2", "1", "0"}
	for i, expect := range want {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/restaurants", nil)
		req.RemoteAddr = "198.51.100.1:1000"
		router.ServeHTTP(w, req)
		if got := w.Header().Get("X-RateLimit-Remaining"); got != expect {
			t.Fatalf("call %d: expected remaining %s, got %q", i+1, expect, got)
		}
	}
}

func TestDenyShortCircuitsHandler(t *testing.T) {
	cfg := ratelimit.DefaultConfig()
	cfg.Public = 1
	registry := ratelimit.NewRegistry(cfg)

	calls := 0
	r := gin.New()
	r.Use(RateLimit(registry))
	r.GET("/api/restaurants", func(c *gin.Context) {
		calls++
		c.Status(http.StatusOK)
	})

	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/restaurants", nil)
		req.RemoteAddr = "198.51.100.2:1000"
		r.ServeHTTP(w, req)
	}
	if calls != 1 {
		t.Fatalf("expected the wrapped handler to run once, ran %d times", calls)
	}
}

func TestIdentityDerivation(t *testing.T) {
	cfg := ratelimit.DefaultConfig()
	cfg.Public = 1
	router := testRouter(ratelimit.NewRegistry(cfg))

	send := func(decorate func(*http.Request)) int {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/restaurants", nil)
		req.RemoteAddr = "192.0.2.10:4000"
		decorate(req)
		router.ServeHTTP(w, req)
		return w.Code
	}

	// Different forwarded-for clients behind one proxy get separate buckets
	if code := send(func(r *http.Request) { r.Header.Set("X-Forwarded-For", "10.1.1.1, 70.0.0.1") }); code != http.StatusOK {
		t.Fatalf("first client: expected 200, got %d", code)
	}
	if code := send(func(r *http.Request) { r.Header.Set("X-Forwarded-For", "10.1.1.2, 70.0.0.1") }); code != http.StatusOK {
		t.Fatalf("second client: expected 200, got %d", code)
	}
	if code := send(func(r *http.Request) { r.Header.Set("X-Forwarded-For", "10.1.1.1") }); code != http.StatusTooManyRequests {
		t.Fatalf("repeat client: expected 429, got %d", code)
	}

	// An authenticated principal is keyed by user id, not address
	token, err := GenerateToken(&models.User{ID: 55, Email: "c@example.com", Role: models.RoleCustomer})
	if err != nil {
		t.Fatal(err)
	}
	if code := send(func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer "+token)
		r.Header.Set("X-Forwarded-For", "10.1.1.1")
	}); code != http.StatusOK {
		t.Fatalf("authenticated principal should have its own bucket, got %d", code)
	}
}
