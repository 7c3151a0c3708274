package api

import (
	"errors"
	"net/http"
	"strings"
)

const searchLimit = 20

func (a *API) searchUsers(w http.ResponseWriter, r *http.Request) {
	type response struct {
		Users []Author `json:"users"`
	}

	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		a.respond(w, http.StatusOK, response{Users: []Author{}})
		return
	}

	users, err := a.DB.SearchUsers(r.Context(), q, searchLimit)
	if err != nil {
		a.respondError(w, http.StatusInternalServerError, err, "Could not search users")
		return
	}
	if users == nil {
		users = []Author{}
	}

	a.respond(w, http.StatusOK, response{Users: users})
}

func (a *API) searchHashtags(w http.ResponseWriter, r *http.Request) {
	type response struct {
		Hashtags []Hashtag `json:"hashtags"`
	}

	q := strings.TrimSpace(strings.TrimPrefix(r.URL.Query().Get("q"), "#"))
	if q == "" {
		a.respond(w, http.StatusOK, response{Hashtags: []Hashtag{}})
		return
	}

	tags, err := a.DB.SearchHashtags(r.Context(), strings.ToLower(q), searchLimit)
	if err != nil {
		a.respondError(w, http.StatusInternalServerError, err, "Could not search hashtags")
		return
	}
	if tags == nil {
		tags = []Hashtag{}
	}

	a.respond(w, http.StatusOK, response{Hashtags: tags})
}

func (a *API) getProfile(w http.ResponseWriter, r *http.Request) {
	username := r.PathValue("username")
	if username == "" {
		a.respondError(w, http.StatusBadRequest, errors.New("missing username"), "Missing username")
		return
	}

	profile, err := a.DB.GetProfile(r.Context(), viewerID(r.Context()), username)
	if err != nil {
		a.respondStorageError(w, err, "Could not load profile")
		return
	}

	a.respond(w, http.StatusOK, profile)
}
