package chi

import (
	"crypto/sha256"
	"crypto/subtle"
	"net/http"
	"strings"
)

// HeaderAPIKey is accepted as an alternative to a Bearer token.
const HeaderAPIKey = "X-API-Key"

// Health checks and scrapes stay reachable without credentials.
var publicPaths = map[string]struct{}{
	"/health":  {},
	"/metrics": {},
}

// keyring holds digests of the configured keys so comparison time does not
// depend on how much of a candidate matches.
type keyring [][sha256.Size]byte

func newKeyring(keys []string) keyring {
	var ring keyring
	for _, k := range keys {
		if k = strings.TrimSpace(k); k != "" {
			ring = append(ring, sha256.Sum256([]byte(k)))
		}
	}
	return ring
}

func (k keyring) contains(candidate string) bool {
	sum := sha256.Sum256([]byte(candidate))
	found := 0
	for i := range k {
		found |= subtle.ConstantTimeCompare(k[i][:], sum[:])
	}
	return found == 1
}

// APIKeyMiddleware rejects requests without a configured key, passed either
// as "Authorization: Bearer <key>" or in the X-API-Key header. With no keys
// configured every request passes.
func APIKeyMiddleware(apiKeys []string) func(http.Handler) http.Handler {
	ring := newKeyring(apiKeys)

	return func(next http.Handler) http.Handler {
		if len(ring) == 0 {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := publicPaths[r.URL.Path]; ok {
				next.ServeHTTP(w, r)
				return
			}

			key, msg := credential(r)
			if msg == "" && !ring.contains(key) {
				msg = "invalid api key"
			}
			if msg != "" {
				w.Header().Set("WWW-Authenticate", `Bearer realm="carekb"`)
				writeError(w, http.StatusUnauthorized, ErrorCodeUnauthorized, msg)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// credential extracts the presented key, or a reason why none is usable.
func credential(r *http.Request) (key, problem string) {
	if v := r.Header.Get(HeaderAPIKey); v != "" {
		return v, ""
	}
	auth := r.Header.Get("Authorization")
	if auth == "" {
		return "", "missing credentials"
	}
	scheme, token, ok := strings.Cut(auth, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", "authorization header must use Bearer scheme"
	}
	if token = strings.TrimSpace(token); token == "" {
		return "", "empty bearer token"
	}
	return token, ""
}
