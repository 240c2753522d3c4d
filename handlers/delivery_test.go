package handlers

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"delivery-marketplace-api/config"
	"delivery-marketplace-api/middleware"
	"delivery-marketplace-api/models"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func setupPartner(t *testing.T) (*gin.Engine, string, uint) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "handlers_test.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("db handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(&models.User{}, &models.DeliveryPartnerProfile{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	config.DB = db

	partner := models.User{Name: "p", Email: "p@example.com", PasswordHash: "x", Role: models.RoleDelivery}
	if err := db.Create(&partner).Error; err != nil {
		t.Fatalf("create partner: %v", err)
	}
	if err := db.Create(&models.DeliveryPartnerProfile{UserID: partner.ID, IsAvailable: true}).Error; err != nil {
		t.Fatalf("create profile: %v", err)
	}

	token, err := middleware.GenerateToken(&partner)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}

	r := gin.New()
	auth := r.Group("/api/delivery", middleware.AuthRequired(), middleware.RoleRequired(models.RoleDelivery))
	auth.PUT("/availability", ToggleAvailability)
	auth.PUT("/location", UpdateLocation)
	return r, token, partner.ID
}

func partnerCall(t *testing.T, r *gin.Engine, token, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	return w
}

func profileFor(t *testing.T, userID uint) models.DeliveryPartnerProfile {
	t.Helper()
	var profile models.DeliveryPartnerProfile
	if err := config.DB.Where("user_id = ?", userID).First(&profile).Error; err != nil {
		t.Fatalf("reload profile: %v", err)
	}
	return profile
}

func TestToggleAvailability_Flips(t *testing.T) {
	r, token, partnerID := setupPartner(t)

	if w := partnerCall(t, r, token, http.MethodPut, "/api/delivery/availability", ""); w.Code != http.StatusOK {
		t.Fatalf("first toggle: expected 200, got %d", w.Code)
	}
	if p := profileFor(t, partnerID); p.IsAvailable {
		t.Fatal("expected partner to be unavailable after first toggle")
	}

	if w := partnerCall(t, r, token, http.MethodPut, "/api/delivery/availability", ""); w.Code != http.StatusOK {
		t.Fatalf("second toggle: expected 200, got %d", w.Code)
	}
	if p := profileFor(t, partnerID); !p.IsAvailable {
		t.Fatal("expected partner to be available after second toggle")
	}
}

func TestToggleAvailability_ConcurrentFlipsBothApply(t *testing.T) {
	r, token, partnerID := setupPartner(t)

	// Two racing toggles must both land: even count of flips returns the
	// profile to its starting state
	var g errgroup.Group
	for i := 0; i < 2; i++ {
		g.Go(func() error {
			w := partnerCall(t, r, token, http.MethodPut, "/api/delivery/availability", "")
			if w.Code != http.StatusOK {
				t.Errorf("toggle: expected 200, got %d", w.Code)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatal(err)
	}

	if p := profileFor(t, partnerID); !p.IsAvailable {
		t.Fatal("two concurrent toggles must cancel out, partner ended up unavailable")
	}
}

func TestUpdateLocation(t *testing.T) {
	r, token, partnerID := setupPartner(t)

	w := partnerCall(t, r, token, http.MethodPut, "/api/delivery/location", `{"lat":12.9716,"lng":77.5946}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	p := profileFor(t, partnerID)
	if p.CurrentLat != 12.9716 || p.CurrentLng != 77.5946 {
		t.Fatalf("expected coordinates to be stored, got %.4f/%.4f", p.CurrentLat, p.CurrentLng)
	}

	if w := partnerCall(t, r, token, http.MethodPut, "/api/delivery/location", `{"lat":200,"lng":0}`); w.Code != http.StatusBadRequest {
		t.Fatalf("out-of-range latitude should be rejected, got %d", w.Code)
	}
}

func TestUpdateLocation_NoProfile(t *testing.T) {
	r, _, _ := setupPartner(t)

	orphan := models.User{Name: "q", Email: "q@example.com", PasswordHash: "x", Role: models.RoleDelivery}
	if err := config.DB.Create(&orphan).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	token, err := middleware.GenerateToken(&orphan)
	if err != nil {
		t.Fatal(err)
	}

	if w := partnerCall(t, r, token, http.MethodPut, "/api/delivery/location", `{"lat":1,"lng":1}`); w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for a partner without a profile, got %d", w.Code)
	}
}
