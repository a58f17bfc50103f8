package server

import (
	"net/http"

	"github.com/desertthunder/amsctl/internal/auth"
)

// HealthStatus is the body served by [HealthHandler].
type HealthStatus struct {
	Status        string `json:"status"`
	Authenticated bool   `json:"authenticated"`
	Upstream      string `json:"upstream"`
}

// HealthHandler reports whether the gateway holds a session.
type HealthHandler struct {
	store    auth.CredentialStore
	upstream string
}

// NewHealthHandler creates a new [HealthHandler].
func NewHealthHandler(store auth.CredentialStore, upstream string) *HealthHandler {
	return &HealthHandler{store: store, upstream: upstream}
}

// Routes returns the HTTP routes this handler serves.
func (h *HealthHandler) Routes() []string {
	return []string{"/health"}
}

func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	creds, err := h.store.Get(r.Context())
	if err != nil {
		writeJSON(w, http.StatusServiceUnavailable, HealthStatus{Status: "degraded", Upstream: h.upstream})
		return
	}
	writeJSON(w, http.StatusOK, HealthStatus{Status: "ok", Authenticated: !creds.Empty(), Upstream: h.upstream})
}
