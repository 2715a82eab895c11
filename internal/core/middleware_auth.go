package core

import (
	"crypto/sha256"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"golang.org/x/crypto/bcrypt"

	"laborcurve/internal/types"
)

// Principals recorded on the request context.
const (
	PrincipalAccessKey = "access_key"
	PrincipalAnonymous = "anonymous"
)

// accessKeyHeader is accepted as an alternative to a Bearer token.
const accessKeyHeader = "X-Access-Key"

// publicPaths skip authentication.
var publicPaths = map[string]bool{
	"/health":  true,
	"/version": true,
}

// accessKeyVerifier checks presented keys against one bcrypt hash. Keys
// that verified once are remembered by SHA-256 digest so bcrypt runs at
// most once per distinct key.
type accessKeyVerifier struct {
	hash     []byte
	mu       sync.RWMutex
	verified map[[sha256.Size]byte]bool
}

func newAccessKeyVerifier(hash string) *accessKeyVerifier {
	return &accessKeyVerifier{
		hash:     []byte(hash),
		verified: make(map[[sha256.Size]byte]bool),
	}
}

func (v *accessKeyVerifier) Verify(key string) bool {
	digest := sha256.Sum256([]byte(key))

	v.mu.RLock()
	ok := v.verified[digest]
	v.mu.RUnlock()
	if ok {
		return true
	}

	if bcrypt.CompareHashAndPassword(v.hash, []byte(key)) != nil {
		return false
	}

	v.mu.Lock()
	v.verified[digest] = true
	v.mu.Unlock()
	return true
}

// AccessKeyMiddleware guards every non-public route with the shared access
// key. With no hash configured, requests pass as the anonymous principal.
func (s *Server) AccessKeyMiddleware() func(http.Handler) http.Handler {
	var verifier *accessKeyVerifier
	if s.Config != nil && s.Config.Security.AccessKeyHash.IsSet() {
		verifier = newAccessKeyVerifier(s.Config.Security.AccessKeyHash.Unmask())
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if verifier == nil {
				next.ServeHTTP(w, r.WithContext(types.WithPrincipal(r.Context(), PrincipalAnonymous)))
				return
			}
			if publicPaths[r.URL.Path] || r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}

			key := presentedKey(r)
			if key == "" {
				Error(w, r, types.NewAppError(types.ErrCodeAuthTokenMissing, "access key is required", nil))
				return
			}
			if !verifier.Verify(key) {
				s.Logger.WarnContext(r.Context(), "access key rejected",
					slog.String("method", r.Method),
					slog.String("path", r.URL.Path),
				)
				Error(w, r, types.NewAppError(types.ErrCodeAuthTokenInvalid, "invalid access key", nil))
				return
			}

			next.ServeHTTP(w, r.WithContext(types.WithPrincipal(r.Context(), PrincipalAccessKey)))
		})
	}
}

// presentedKey reads the key from "Authorization: Bearer <key>" or the
// X-Access-Key header.
func presentedKey(r *http.Request) string {
	if k := strings.TrimSpace(r.Header.Get(accessKeyHeader)); k != "" {
		return k
	}
	return extractBearerToken(r.Header.Get("Authorization"))
}

// extractBearerToken parses "Bearer <token>" with a case-insensitive scheme.
func extractBearerToken(header string) string {
	const prefix = "Bearer "
	if len(header) < len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}
