package web

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/sidereusnuntius/courier/internal/domain"
)

const maxActivitySize = 1 << 20

// InboxEndpoint accepts a remote delivery for a local actor. Writes are
// idempotent on the activity id, so replayed deliveries are harmless.
func (h *Handler) InboxEndpoint(w http.ResponseWriter, r *http.Request) {
	actor, err := h.db.GetActorByNickname(r.Context(), chi.URLParam(r, "nickname"))
	if err != nil {
		http.Error(w, "", handleErr(err))
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxActivitySize))
	if err != nil {
		http.Error(w, "unreadable body", http.StatusBadRequest)
		return
	}

	var envelope struct {
		ID string `json:"id"`
	}
	if err = json.Unmarshal(body, &envelope); err != nil || envelope.ID == "" {
		http.Error(w, "not an activity", http.StatusBadRequest)
		return
	}

	if err = h.db.AddToInbox(r.Context(), actor.ID, envelope.ID, body); err != nil {
		http.Error(w, "", handleErr(err))
		return
	}

	log.Debug().Str("actor", actor.ID).Str("activity", envelope.ID).Msg("accepted delivery")
	w.WriteHeader(http.StatusAccepted)
}

// PostEndpoint takes a locally authored activity and hands it to the
// distributor. Validation failures are the only distribution errors a poster
// ever sees.
func (h *Handler) PostEndpoint(w http.ResponseWriter, r *http.Request) {
	actor, err := h.db.GetActorByNickname(r.Context(), chi.URLParam(r, "nickname"))
	if err != nil {
		http.Error(w, "", handleErr(err))
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxActivitySize))
	if err != nil {
		http.Error(w, "unreadable body", http.StatusBadRequest)
		return
	}

	var activity domain.Activity
	if err = json.Unmarshal(body, &activity); err != nil {
		http.Error(w, "not an activity", http.StatusBadRequest)
		return
	}

	activity.Actor = domain.Recipient{Kind: domain.Person, ID: actor.ID}
	if activity.ID == "" {
		activity.ID = h.cfg.Url.JoinPath("activity", uuid.NewString()).String()
	}

	if err = h.dist.Distribute(r.Context(), &activity); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err = json.NewEncoder(w).Encode(&activity); err != nil {
		log.Error().Err(err).Msg("unable to marshal posted activity")
	}
}
