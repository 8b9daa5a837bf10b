package apiServer

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	jsonmeta "github.com/i5heu/ouroboros-jsonmeta"
	"github.com/i5heu/ouroboros-jsonmeta/pkg/address"
	"github.com/i5heu/ouroboros-jsonmeta/pkg/ledger"
)

func parseAddress(value string) (ledger.Address, error) { // A
	return address.Parse(value)
}

func writeJSON(w http.ResponseWriter, status int, payload any) { // A
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Default().Error("failed to encode response", "error", err)
	}
}

// nodeStatus maps node lifecycle errors to an HTTP status, or 0.
func nodeStatus(err error) int {
	switch {
	case errors.Is(err, jsonmeta.ErrNotStarted), errors.Is(err, jsonmeta.ErrClosed):
		return http.StatusServiceUnavailable
	case errors.Is(err, jsonmeta.ErrNotFound):
		return http.StatusNotFound
	}
	return 0
}

func WithLogger(logger *slog.Logger) Option { // HC
	return func(s *Server) {
		if logger != nil {
			s.log = logger
		}
	}
}

func WithAuth(auth AuthFunc) Option { // HC
	return func(s *Server) {
		if auth != nil {
			s.auth = auth
			s.admin = true
		}
	}
}
