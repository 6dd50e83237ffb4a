package web

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/sidereusnuntius/courier/internal/dialback"
)

type registrationResponse struct {
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
	ExpiresAt    int64  `json:"expires_at"`
}

// RegisterEndpoint performs dynamic client registration. The caller shares no
// secret with us yet, so the request authenticates by dialback: the claimed
// identity in the Authorization header is verified through a callback to its
// own server before any client is issued.
func (h *Handler) RegisterEndpoint(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "unreadable form", http.StatusBadRequest)
		return
	}
	if r.PostFormValue("type") != "client_associate" {
		http.Error(w, "unsupported registration type", http.StatusBadRequest)
		return
	}

	auth, err := dialback.ParseAuthorization(r.Header.Get("Authorization"))
	if err != nil {
		http.Error(w, "dialback authorization required", http.StatusUnauthorized)
		return
	}

	date, err := time.Parse(http.TimeFormat, r.Header.Get("Date"))
	if err != nil {
		http.Error(w, "missing or malformed date header", http.StatusBadRequest)
		return
	}

	claim := dialback.Claim{
		Host:      auth.Host,
		Webfinger: auth.Webfinger,
		Token:     auth.Token,
		Date:      date,
		URL:       h.cfg.Url.JoinPath("api", "client", "register").String(),
	}
	if err = h.fed.Verifier.Verify(r.Context(), claim); err != nil {
		log.Info().Err(err).Msg("rejected registration claim")
		http.Error(w, "dialback verification failed", http.StatusUnauthorized)
		return
	}

	owner := auth.Host
	if owner == "" {
		owner = auth.Webfinger
	}

	res := registrationResponse{
		ClientID:     uuid.NewString(),
		ClientSecret: uuid.NewString(),
	}
	if err = h.db.CreateClient(r.Context(), res.ClientID, res.ClientSecret, owner); err != nil {
		http.Error(w, "", handleErr(err))
		return
	}

	log.Info().Str("owner", owner).Msg("registered remote client")
	w.Header().Set("Content-Type", "application/json")
	if err = json.NewEncoder(w).Encode(res); err != nil {
		log.Error().Err(err).Msg("unable to marshal registration response")
	}
}
