package middleware

import (
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"delivery-marketplace-api/ratelimit"

	"github.com/gin-gonic/gin"
)

// Prefixes checked in priority order: a payment path is always PAYMENT even
// though it also requires authentication.
var paymentPrefixes = []string{
	"/api/payments",
}

var authenticatedPrefixes = []string{
	"/api/customer",
	"/api/cart",
	"/api/orders",
	"/api/restaurant",
	"/api/delivery",
	"/api/admin",
	"/api/reviews/submit",
	"/api/reviews/my-reviews",
	"/api/profile",
}

// matchPrefix matches whole path segments, so /api/restaurants (public
// browsing) does not fall under the /api/restaurant owner area.
func matchPrefix(path, prefix string) bool {
	return path == prefix || strings.HasPrefix(path, prefix+"/")
}

// ClassifyTier maps a request path to its admission tier.
func ClassifyTier(path string) ratelimit.Tier {
	for _, p := range paymentPrefixes {
		if matchPrefix(path, p) {
			return ratelimit.TierPayment
		}
	}
	for _, p := range authenticatedPrefixes {
		if matchPrefix(path, p) {
			return ratelimit.TierAuthenticated
		}
	}
	return ratelimit.TierPublic
}

// RateLimit admits or rejects every request before business logic runs. One
// token is consumed per classified request regardless of what the handler
// later does.
func RateLimit(registry *ratelimit.Registry) gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path
		tier := ClassifyTier(path)
		identity := deriveIdentity(c.Request)

		dec := registry.Admit(identity, tier)

		c.Header("X-RateLimit-Limit", strconv.Itoa(dec.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(dec.Remaining))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(dec.Reset.Unix(), 10))

		if !dec.Allowed {
			windowSeconds := int(dec.RetryAfter.Seconds())
			c.Header("Retry-After", strconv.Itoa(windowSeconds))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"status":    http.StatusTooManyRequests,
				"message":   fmt.Sprintf("Rate limit exceeded. Maximum %d requests per %d seconds.", dec.Limit, windowSeconds),
				"timestamp": time.Now().UTC().Format(time.RFC3339),
				"path":      path,
			})
			return
		}
		c.Next()
	}
}

// deriveIdentity keys the limiter by authenticated principal when a valid
// token is present, otherwise by client network address.
func deriveIdentity(r *http.Request) string {
	if userID, ok := PrincipalID(r); ok {
		return fmt.Sprintf("user:%d", userID)
	}
	return "ip:" + clientIP(r)
}

func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		// first entry is the original client
		first := strings.TrimSpace(strings.Split(xff, ",")[0])
		if first != "" && !strings.EqualFold(first, "unknown") {
			return first
		}
	}
	if realIP := strings.TrimSpace(r.Header.Get("X-Real-IP")); realIP != "" && !strings.EqualFold(realIP, "unknown") {
		return realIP
	}
	host, _, err := net.SplitHostPort(strings.TrimSpace(r.RemoteAddr))
	if err == nil && host != "" {
		return host
	}
	if r.RemoteAddr != "" {
		return r.RemoteAddr
	}
	return "unknown"
}
