package web

import (
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
)

// DialbackEndpoint answers remote verifiers calling back about tokens this
// server attached to its own outbound requests. 2xx confirms the token, any
// other status disowns it.
func (h *Handler) DialbackEndpoint(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "unreadable form", http.StatusBadRequest)
		return
	}

	token := r.PostFormValue("token")
	requestedURL := r.PostFormValue("url")
	if token == "" || requestedURL == "" {
		http.Error(w, "missing token or url", http.StatusBadRequest)
		return
	}

	date, err := time.Parse(http.TimeFormat, r.PostFormValue("date"))
	if err != nil {
		http.Error(w, "missing or malformed date", http.StatusBadRequest)
		return
	}

	if !h.fed.Tokens.Confirm(token, requestedURL, date) {
		log.Debug().Str("url", requestedURL).Msg("disowned dialback token")
		http.Error(w, "unrecognized token", http.StatusForbidden)
		return
	}

	w.WriteHeader(http.StatusOK)
}
