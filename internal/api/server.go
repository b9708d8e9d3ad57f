// Package api wires the Claim API, the Bridge worker trigger, and the DLQ
// admin endpoints onto a gorilla/mux router, the same router library and
// CORS middleware shape the teacher's own (now-retired) API server used.
package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/ocx/ledger-intake/internal/authn"
	"github.com/ocx/ledger-intake/internal/bridge"
	"github.com/ocx/ledger-intake/internal/claim"
	"github.com/ocx/ledger-intake/internal/dlqadmin"
)

// Server exposes the ledger intake core over HTTP.
type Server struct {
	router *mux.Router
}

func NewServer(claimSvc *claim.Service, worker *bridge.Worker, dlq *dlqadmin.Service, authz *authn.Checker, corsOrigins []string) *Server {
	r := mux.NewRouter()

	h := &handlers{claim: claimSvc, worker: worker, dlq: dlq}

	r.HandleFunc("/v1/pools/{pool_id}/claims", h.postClaim).Methods(http.MethodPost)
	r.HandleFunc("/v1/bridge/drain", authz.Require(authn.LevelTrigger, h.postDrain)).Methods(http.MethodPost)
	r.HandleFunc("/v1/dlq", authz.Require(authn.LevelAdmin, h.getDLQ)).Methods(http.MethodGet)
	r.HandleFunc("/v1/dlq/replay", authz.Require(authn.LevelAdmin, h.postDLQReplay)).Methods(http.MethodPost)
	r.HandleFunc("/v1/dlq/discard", authz.Require(authn.LevelAdmin, h.postDLQDiscard)).Methods(http.MethodPost)

	r.Use(corsMiddleware(corsOrigins))

	return &Server{router: r}
}

func (s *Server) Handler() http.Handler {
	return s.router
}

func corsMiddleware(allowOrigins []string) mux.MiddlewareFunc {
	allowed := make(map[string]bool, len(allowOrigins))
	wildcard := false
	for _, o := range allowOrigins {
		if o == "*" {
			wildcard = true
		}
		allowed[o] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if wildcard {
				w.Header().Set("Access-Control-Allow-Origin", "*")
			} else if allowed[origin] {
				w.Header().Set("Access-Control-Allow-Origin", origin)
			}
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
