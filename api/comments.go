package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"
)

func (a *API) listComments(w http.ResponseWriter, r *http.Request) {
	type response struct {
		Comments []Comment `json:"comments"`
		Users    []Author  `json:"users"`
	}

	postID := r.URL.Query().Get("postId")
	if postID == "" {
		a.respondError(w, http.StatusBadRequest, errors.New("missing postId"), "Missing required parameter: postId")
		return
	}

	limit := 0 // all
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			a.respondError(w, http.StatusBadRequest, errors.New("invalid limit"), "limit must be a positive integer")
			return
		}
		limit = n
	}

	comments, err := a.DB.ListComments(r.Context(), postID, limit)
	if err != nil {
		a.respondError(w, http.StatusInternalServerError, err, "Could not list comments")
		return
	}
	if comments == nil {
		comments = []Comment{}
	}

	users := make([]Author, 0, len(comments))
	seen := make(map[string]bool, len(comments))
	for _, c := range comments {
		if c.Author.ID == "" || seen[c.Author.ID] {
			continue
		}
		seen[c.Author.ID] = true
		users = append(users, c.Author)
	}

	a.respond(w, http.StatusOK, response{Comments: comments, Users: users})
}

func (a *API) createComment(w http.ResponseWriter, r *http.Request) {
	type request struct {
		PostID string `json:"post_id" validate:"required"`
		Text   string `json:"text" validate:"required,max=500"`
	}

	var body request
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		a.respondError(w, http.StatusBadRequest, err, "Could not decode request body")
		return
	}
	if valid := a.validateBody(w, &body); !valid {
		return
	}

	comment, err := a.DB.InsertComment(r.Context(), Comment{
		PostID:    body.PostID,
		AuthorID:  viewerID(r.Context()),
		Text:      body.Text,
		CreatedAt: time.Now(),
	})
	if err != nil {
		a.respondStorageError(w, err, "Could not create comment")
		return
	}

	if err := a.Cache.IncrCounters(r.Context(), body.PostID, 0, 1); err != nil {
		a.Logger.Error("Could not bump cached comment count", "error", err.Error())
	}

	a.respond(w, http.StatusCreated, comment)
}

func (a *API) deleteComment(w http.ResponseWriter, r *http.Request) {
	commentID := r.URL.Query().Get("commentId")
	if commentID == "" {
		a.respondError(w, http.StatusBadRequest, errors.New("missing commentId"), "Missing required parameter: commentId")
		return
	}

	postID, err := a.DB.DeleteComment(r.Context(), commentID, viewerID(r.Context()))
	if err != nil {
		a.respondStorageError(w, err, "Could not delete comment")
		return
	}

	if err := a.Cache.IncrCounters(r.Context(), postID, 0, -1); err != nil {
		a.Logger.Error("Could not bump cached comment count", "error", err.Error())
	}

	a.respond(w, http.StatusOK, map[string]string{"id": commentID})
}
