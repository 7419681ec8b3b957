package admin

import (
	"encoding/json"
	"net/http"

	"github.com/gedu17/kubeware/internal/middleware"
)

// RegistrySource supplies the current Registry snapshot. The Readiness
// Gate satisfies this structurally, without the admin package needing to
// import the gateway package.
type RegistrySource interface {
	Registry() *middleware.Registry
}

// RegistryDumpHandler serves GET /registry_dump, adapted from the
// teacher's ConfigDumpHandler (internal/admin/handlers.go).
type RegistryDumpHandler struct {
	source RegistrySource
}

// NewRegistryDumpHandler builds a handler backed by source.
func NewRegistryDumpHandler(source RegistrySource) *RegistryDumpHandler {
	return &RegistryDumpHandler{source: source}
}

// ServeHTTP implements http.Handler.
func (h *RegistryDumpHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	dump := DumpRegistry(h.source.Registry())

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(dump)
}
