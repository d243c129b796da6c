package handler

import (
	"encoding/json"
	"net/http"
)

// ----- Handler: GET /admin/health -----

// handleHealth answers liveness probes; no auth, never cached.
func (handler *AdminHTTPHandler) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)

	_ = json.NewEncoder(w).Encode(struct {
		Status  string `json:"status"`
		Service string `json:"service"`
	}{Status: "ok", Service: "admin-service"})
}
