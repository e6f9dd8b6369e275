package httpapi

import (
	"crypto/subtle"
	"net/http"
)

// adminTokenHeader is the shared-secret header every admin request must
// carry; this surface is meant to sit behind an operator network
// boundary, not to be internet-facing like /webhook.
const adminTokenHeader = "X-Admin-Token"

// requireAdminToken rejects any request that doesn't present token via
// adminTokenHeader, compared in constant time so response latency can't
// leak how many prefix bytes matched.
func requireAdminToken(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got := r.Header.Get(adminTokenHeader)
			if token == "" || subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
				http.Error(w, "forbidden", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
