package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"delivery-marketplace-api/models"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var DB *gorm.DB

// JWTSecret used to sign tokens, read from env or fallback
var JWTSecret = []byte(getEnv("JWT_SECRET", "delivery_marketplace_super_secret_2024"))

// WebhookSecret signs payment verification proofs from the gateway
var WebhookSecret = []byte(getEnv("PAYMENT_WEBHOOK_SECRET", "delivery_marketplace_webhook_secret"))

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
		log.Printf("⚠️  Ignoring invalid %s=%q, using %d", key, v, fallback)
	}
	return fallback
}

// RateLimits holds per-tier admission ceilings and the shared window.
type RateLimits struct {
	Public        int
	Authenticated int
	Payment       int
	Window        time.Duration
}

// LoadRateLimits reads tier thresholds from the environment, falling back to
// the defaults: 20 public, 100 authenticated, 10 payment per 60s window.
func LoadRateLimits() RateLimits {
	return RateLimits{
		Public:        getEnvInt("RATE_LIMIT_PUBLIC", 20),
		Authenticated: getEnvInt("RATE_LIMIT_AUTHENTICATED", 100),
		Payment:       getEnvInt("RATE_LIMIT_PAYMENT", 10),
		Window:        time.Duration(getEnvInt("RATE_LIMIT_WINDOW_SECONDS", 60)) * time.Second,
	}
}

func InitDB() {
	var err error
	DB, err = gorm.Open(sqlite.Open(getEnv("DB_PATH", "delivery_marketplace.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}

	// Auto-migrate all models
	err = DB.AutoMigrate(
		&models.User{},
		&models.DeliveryPartnerProfile{},
		&models.Restaurant{},
		&models.MenuItem{},
		&models.Order{},
		&models.OrderItem{},
		&models.OrderStatusHistory{},
		&models.Payment{},
	)
	if err != nil {
		log.Fatal("Failed to migrate database:", err)
	}

	log.Println("✅ Database connected and migrated successfully")
}
