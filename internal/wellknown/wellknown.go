package wellknown

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
	"github.com/sidereusnuntius/courier/internal/db"
	"github.com/sidereusnuntius/courier/internal/directory"
	"github.com/sidereusnuntius/courier/internal/state"
)

type Link struct {
	Rel      string `json:"rel"`
	Type     string `json:"type,omitempty"`
	Href     string `json:"href,omitempty"`
	Template string `json:"template,omitempty"`
}

type HostMetaResponse struct {
	Links []Link `json:"links"`
}

type WebfingerResponse struct {
	Subject string `json:"subject"`
	Links   []Link `json:"links"`
}

func Mount(state *state.State, r chi.Router) {
	r.Route("/.well-known/", func(r chi.Router) {
		r.Get("/host-meta.json", HostMetaEndpoint(state))
		r.Get("/webfinger", WebfingerEndpoint(state))
	})
}

// HostMetaEndpoint serves the discovery document other hosts read to find our
// federation endpoints.
func HostMetaEndpoint(state *state.State) http.HandlerFunc {
	base := state.Config.Url
	res := HostMetaResponse{
		Links: []Link{
			{Rel: directory.RelLrdd, Template: base.String() + "/.well-known/webfinger?resource={uri}"},
			{Rel: directory.RelRegistration, Href: base.JoinPath("api", "client", "register").String()},
			{Rel: directory.RelRequestToken, Href: base.JoinPath("oauth", "request_token").String()},
			{Rel: directory.RelAccessToken, Href: base.JoinPath("oauth", "access_token").String()},
			{Rel: directory.RelAuthorization, Href: base.JoinPath("oauth", "authorize").String()},
			{Rel: directory.RelWhoami, Href: base.JoinPath("api", "whoami").String()},
			{Rel: directory.RelDialback, Href: base.JoinPath("api", "dialback").String()},
		},
	}

	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(res); err != nil {
			log.Error().Err(err).Msg("unable to marshal host-meta response")
			http.Error(w, "", http.StatusInternalServerError)
		}
	}
}

func WebfingerEndpoint(state *state.State) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resource := r.URL.Query().Get("resource")
		uri, err := url.Parse(strings.Replace(resource, "acct:", "acct://", 1))
		if err != nil {
			http.Error(w, "failed to parse resource", http.StatusBadRequest)
			return
		}

		actor, err := state.DB.GetActorByNickname(r.Context(), uri.User.Username())
		if err != nil {
			http.Error(w, "", handleErr(err))
			return
		}

		res := WebfingerResponse{
			Subject: resource,
			Links: []Link{
				{Rel: "self", Type: "application/json", Href: state.Config.Url.JoinPath("api", "user", actor.Nickname, "profile").String()},
				{Rel: "activity-inbox", Href: actor.Inbox},
			},
		}

		w.Header().Set("Content-Type", "application/json")
		if err = json.NewEncoder(w).Encode(res); err != nil {
			log.Error().Err(err).Msg("unable to marshal webfinger response")
			http.Error(w, "", http.StatusInternalServerError)
		}
	}
}

func handleErr(err error) int {
	switch {
	case errors.Is(err, db.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
