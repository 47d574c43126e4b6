package middleware

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/telana99/vehicle-record-ledger/internal/auth"
	"github.com/telana99/vehicle-record-ledger/internal/models"
)

// contextKey is a custom type for context keys to avoid collisions
type contextKey string

const (
	CallerContextKey contextKey = "caller"
)

// AuthMiddleware provides bearer-token authentication middleware
type AuthMiddleware struct {
	authService *auth.Service
}

// NewAuthMiddleware creates a new authentication middleware
func NewAuthMiddleware(authService *auth.Service) *AuthMiddleware {
	return &AuthMiddleware{
		authService: authService,
	}
}

// Authenticate validates bearer tokens and adds the caller principal to the
// request context. Query operations are publicly readable, so GET requests
// pass through unauthenticated.
func (m *AuthMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if shouldSkipAuth(r) {
			next.ServeHTTP(w, r)
			return
		}

		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			http.Error(w, "Authorization header required", http.StatusUnauthorized)
			return
		}

		caller, err := m.authService.ValidateToken(authHeader)
		if err != nil {
			http.Error(w, "Invalid token", http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), CallerContextKey, caller)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// CallerFromContext extracts the authenticated principal from request context
func CallerFromContext(ctx context.Context) (models.Principal, bool) {
	caller, ok := ctx.Value(CallerContextKey).(models.Principal)
	return caller, ok
}

// shouldSkipAuth determines if authentication should be skipped for a request
func shouldSkipAuth(r *http.Request) bool {
	// Reads are public: transparency is the point of the ledger.
	if r.Method == http.MethodGet {
		return true
	}

	skipPaths := []string{
		"/api/auth/token",
		"/api/auth/register",
		"/health",
	}

	for _, skipPath := range skipPaths {
		if strings.HasPrefix(r.URL.Path, skipPath) {
			return true
		}
	}
	return false
}

// RateLimitMiddleware provides basic rate limiting
type RateLimitMiddleware struct {
	authService *auth.Service
	requests    map[string][]int64 // caller key -> timestamps
	mu          sync.RWMutex       // Mutex for thread-safe access
}

// NewRateLimitMiddleware creates a new rate limiting middleware
func NewRateLimitMiddleware(authService *auth.Service) *RateLimitMiddleware {
	return &RateLimitMiddleware{
		authService: authService,
		requests:    make(map[string][]int64),
	}
}

// RateLimit applies rate limiting keyed by the caller principal, falling back
// to the client IP when the request carries no valid token.
func (m *RateLimitMiddleware) RateLimit(maxRequests int, windowSeconds int) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			callerKey := m.callerKey(r)

			// Clean old requests outside the window
			now := time.Now().Unix()
			windowStart := now - int64(windowSeconds)

			m.mu.Lock()

			if timestamps, exists := m.requests[callerKey]; exists {
				var validTimestamps []int64
				for _, ts := range timestamps {
					if ts >= windowStart {
						validTimestamps = append(validTimestamps, ts)
					}
				}
				m.requests[callerKey] = validTimestamps
			}

			if len(m.requests[callerKey]) >= maxRequests {
				m.mu.Unlock()
				http.Error(w, "Rate limit exceeded", http.StatusTooManyRequests)
				return
			}

			m.requests[callerKey] = append(m.requests[callerKey], now)
			m.mu.Unlock()

			next.ServeHTTP(w, r)
		})
	}
}

// callerKey derives the rate-limit bucket for a request
func (m *RateLimitMiddleware) callerKey(r *http.Request) string {
	if authHeader := r.Header.Get("Authorization"); authHeader != "" && m.authService != nil {
		if caller, err := m.authService.ValidateToken(authHeader); err == nil {
			return "principal:" + string(caller)
		}
	}
	return "ip:" + getClientIP(r)
}

// getClientIP extracts the client IP from the request
func getClientIP(r *http.Request) string {
	// Check for forwarded headers first
	if ip := r.Header.Get("X-Forwarded-For"); ip != "" {
		return strings.Split(ip, ",")[0]
	}
	if ip := r.Header.Get("X-Real-IP"); ip != "" {
		return ip
	}

	// Fall back to remote address
	ip := r.RemoteAddr
	if colonIndex := strings.LastIndex(ip, ":"); colonIndex != -1 {
		ip = ip[:colonIndex]
	}
	return ip
}
