package api

import (
	"encoding/json"
	"errors"
	"net/http"
)

// Likes, saves and follows share the same shape: POST creates the
// relation, DELETE removes it, and both answer 409 when the requested
// state already holds so clients can treat the conflict as success.

func (a *API) createLike(w http.ResponseWriter, r *http.Request) {
	type request struct {
		PostID string `json:"post_id" validate:"required"`
	}

	var body request
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		a.respondError(w, http.StatusBadRequest, err, "Could not decode request body")
		return
	}
	if valid := a.validateBody(w, &body); !valid {
		return
	}

	if err := a.DB.InsertLike(r.Context(), body.PostID, viewerID(r.Context())); err != nil {
		a.respondStorageError(w, err, "Could not like post")
		return
	}
	if err := a.Cache.IncrCounters(r.Context(), body.PostID, 1, 0); err != nil {
		a.Logger.Error("Could not bump cached like count", "error", err.Error())
	}

	a.respond(w, http.StatusCreated, map[string]string{"post_id": body.PostID})
}

func (a *API) deleteLike(w http.ResponseWriter, r *http.Request) {
	postID := r.URL.Query().Get("postId")
	if postID == "" {
		a.respondError(w, http.StatusBadRequest, errors.New("missing postId"), "Missing required parameter: postId")
		return
	}

	err := a.DB.DeleteLike(r.Context(), postID, viewerID(r.Context()))
	if err != nil {
		// A like that is already gone means the desired state holds.
		if errors.Is(err, ErrNotFound) {
			err = ErrAlreadyExists
		}
		a.respondStorageError(w, err, "Could not unlike post")
		return
	}
	if err := a.Cache.IncrCounters(r.Context(), postID, -1, 0); err != nil {
		a.Logger.Error("Could not bump cached like count", "error", err.Error())
	}

	a.respond(w, http.StatusOK, map[string]string{"post_id": postID})
}

func (a *API) createSave(w http.ResponseWriter, r *http.Request) {
	type request struct {
		PostID string `json:"post_id" validate:"required"`
	}

	var body request
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		a.respondError(w, http.StatusBadRequest, err, "Could not decode request body")
		return
	}
	if valid := a.validateBody(w, &body); !valid {
		return
	}

	if err := a.DB.InsertSave(r.Context(), body.PostID, viewerID(r.Context())); err != nil {
		a.respondStorageError(w, err, "Could not save post")
		return
	}

	a.respond(w, http.StatusCreated, map[string]string{"post_id": body.PostID})
}

func (a *API) deleteSave(w http.ResponseWriter, r *http.Request) {
	postID := r.URL.Query().Get("postId")
	if postID == "" {
		a.respondError(w, http.StatusBadRequest, errors.New("missing postId"), "Missing required parameter: postId")
		return
	}

	err := a.DB.DeleteSave(r.Context(), postID, viewerID(r.Context()))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			err = ErrAlreadyExists
		}
		a.respondStorageError(w, err, "Could not unsave post")
		return
	}

	a.respond(w, http.StatusOK, map[string]string{"post_id": postID})
}

// listSaves answers the viewer's saved posts, or the saved state of a
// single post when postId is given.
func (a *API) listSaves(w http.ResponseWriter, r *http.Request) {
	viewer := viewerID(r.Context())

	if postID := r.URL.Query().Get("postId"); postID != "" {
		saved, err := a.DB.IsSaved(r.Context(), postID, viewer)
		if err != nil {
			a.respondError(w, http.StatusInternalServerError, err, "Could not read saved state")
			return
		}
		a.respond(w, http.StatusOK, map[string]bool{"saved": saved})
		return
	}

	type response struct {
		Posts   []Post   `json:"posts"`
		HasMore bool     `json:"has_more"`
		Users   []Author `json:"users"`
	}

	limit, offset, err := a.parsePageParams(r)
	if err != nil {
		a.respondError(w, http.StatusBadRequest, err, err.Error())
		return
	}
	posts, hasMore, err := a.DB.ListSavedPosts(r.Context(), viewer, limit, offset)
	if err != nil {
		a.respondError(w, http.StatusInternalServerError, err, "Could not list saved posts")
		return
	}
	if posts == nil {
		posts = []Post{}
	}

	a.respond(w, http.StatusOK, response{
		Posts:   posts,
		HasMore: hasMore,
		Users:   collectAuthors(posts),
	})
}

func (a *API) createFollow(w http.ResponseWriter, r *http.Request) {
	type request struct {
		FollowingID string `json:"following_id" validate:"required"`
	}

	var body request
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		a.respondError(w, http.StatusBadRequest, err, "Could not decode request body")
		return
	}
	if valid := a.validateBody(w, &body); !valid {
		return
	}

	viewer := viewerID(r.Context())
	if body.FollowingID == viewer {
		a.respondError(w, http.StatusUnprocessableEntity, errors.New("self follow"), "Cannot follow yourself")
		return
	}

	if err := a.DB.InsertFollow(r.Context(), viewer, body.FollowingID); err != nil {
		a.respondStorageError(w, err, "Could not follow user")
		return
	}

	a.respond(w, http.StatusCreated, map[string]string{"following_id": body.FollowingID})
}

func (a *API) deleteFollow(w http.ResponseWriter, r *http.Request) {
	followingID := r.URL.Query().Get("followingId")
	if followingID == "" {
		a.respondError(w, http.StatusBadRequest, errors.New("missing followingId"), "Missing required parameter: followingId")
		return
	}

	err := a.DB.DeleteFollow(r.Context(), viewerID(r.Context()), followingID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			err = ErrAlreadyExists
		}
		a.respondStorageError(w, err, "Could not unfollow user")
		return
	}

	a.respond(w, http.StatusOK, map[string]string{"following_id": followingID})
}
