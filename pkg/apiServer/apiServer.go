package apiServer

import (
	"log/slog"
	"net/http"
)

// maxBodyBytes bounds request bodies. The largest transaction is a single
// value write, far below this.
const maxBodyBytes = 16 << 20

type Server struct {
	mux  *http.ServeMux
	node Node
	log  *slog.Logger
	auth AuthFunc
	// admin enables the airdrop and snapshot routes and cross-origin
	// access. It is set only when WithAuth installs a real check.
	admin bool
}

func New(node Node, opts ...Option) *Server { // A
	s := &Server{
		mux:  http.NewServeMux(),
		node: node,
		log:  slog.Default(),
		auth: defaultAuth,
	}

	for _, opt := range opts {
		opt(s)
	}

	s.routes()
	return s
}

func (s *Server) routes() { // AC
	s.mux.HandleFunc("POST /transactions", s.handleSubmit)
	s.mux.HandleFunc("POST /airdrop", s.adminOnly(s.handleAirdrop))
	s.mux.HandleFunc("GET /accounts/{address}", s.handleAccount)
	s.mux.HandleFunc("GET /json/{address}", s.handleRecord)
	s.mux.HandleFunc("GET /snapshot", s.adminOnly(s.handleSnapshot))
	s.mux.HandleFunc("PUT /snapshot", s.adminOnly(s.handleRestore))
	s.mux.HandleFunc("GET /health", s.handleHealth)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // AC
	// Without auth the API is same-origin only.
	if s.admin {
		s.allowCORS(w, r)
	}

	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	if r.URL.Path != "/health" {
		if err := s.auth(r); err != nil {
			s.log.Warn("authentication failed", "error", err)
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
			return
		}
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	s.mux.ServeHTTP(w, r)
}

func (s *Server) allowCORS(w http.ResponseWriter, r *http.Request) {
	origin := r.Header.Get("Origin")
	if origin == "" {
		origin = "*"
	} else {
		w.Header().Set("Vary", "Origin")
	}
	w.Header().Set("Access-Control-Allow-Origin", origin)
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Accept, "+authHeader)
	w.Header().Set("Access-Control-Max-Age", "86400")
	w.Header().Set("Access-Control-Allow-Methods", "GET,POST,PUT,OPTIONS")
	w.Header().Set("Access-Control-Expose-Headers", "Content-Type, Content-Length, X-Execution-Id")
}

// adminOnly rejects requests to next unless the server was built with
// WithAuth.
func (s *Server) adminOnly(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !s.admin {
			writeJSON(w, http.StatusForbidden, ErrorResponse{Error: ErrAdminDisabled.Error()})
			return
		}
		next(w, r)
	}
}
