// Package web mounts the federation-facing HTTP surface: the dialback
// endpoint, dynamic client registration, per-user inboxes and the local
// posting endpoint. Browser-facing routing and views live elsewhere.
package web

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/sidereusnuntius/courier/internal/config"
	"github.com/sidereusnuntius/courier/internal/db"
	"github.com/sidereusnuntius/courier/internal/distributor"
	"github.com/sidereusnuntius/courier/internal/federation"
)

type Handler struct {
	cfg  *config.Configuration
	db   db.DB
	fed  *federation.Context
	dist *distributor.Distributor
}

func New(cfg *config.Configuration, d db.DB, fed *federation.Context, dist *distributor.Distributor) *Handler {
	return &Handler{
		cfg:  cfg,
		db:   d,
		fed:  fed,
		dist: dist,
	}
}

func (h *Handler) Mount(r chi.Router) {
	r.Post("/api/dialback", h.DialbackEndpoint)
	r.Post("/api/client/register", h.RegisterEndpoint)
	r.Post("/api/user/{nickname}/inbox", h.InboxEndpoint)
	r.Post("/api/user/{nickname}/feed", h.PostEndpoint)
}

func handleErr(err error) int {
	switch {
	case errors.Is(err, db.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
