package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/glimmerapp/glimmer/metrics"
)

// parsePageParams reads limit/offset query parameters, applying the
// defaults and bounds from the feed contract.
func (a *API) parsePageParams(r *http.Request) (limit, offset int, err error) {
	limit = a.pageSize()
	offset = 0
	q := r.URL.Query()
	if s := q.Get("limit"); s != "" {
		limit, err = strconv.Atoi(s)
		if err != nil || limit <= 0 || limit > maxPageSize {
			return 0, 0, fmt.Errorf("limit must be between 1 and %d", maxPageSize)
		}
	}
	if s := q.Get("offset"); s != "" {
		offset, err = strconv.Atoi(s)
		if err != nil || offset < 0 {
			return 0, 0, fmt.Errorf("offset must be a non-negative integer")
		}
	}
	return limit, offset, nil
}

// collectAuthors dedupes the authors referenced by posts, preserving
// first-seen order.
func collectAuthors(posts []Post) []Author {
	authors := make([]Author, 0, len(posts))
	seen := make(map[string]bool, len(posts))
	for _, p := range posts {
		if p.Author.ID == "" || seen[p.Author.ID] {
			continue
		}
		seen[p.Author.ID] = true
		authors = append(authors, p.Author)
	}
	return authors
}

func (a *API) listPosts(w http.ResponseWriter, r *http.Request) {
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
	authorID := r.URL.Query().Get("userId")
	viewer := viewerID(r.Context())

	var (
		posts   []Post
		hasMore bool
	)

	// Only the first unfiltered page is cached. Cached posts carry no
	// viewer flags, so those are overlaid from the DB below.
	if offset == 0 && limit == a.pageSize() && authorID == "" {
		cached, err := a.Cache.ListPosts(r.Context())
		if err != nil {
			a.Logger.Error("Could not list posts from cache", "error", err.Error())
		} else if len(cached) >= limit {
			posts = cached[:limit]
			// Heuristic per the page contract: a full page implies more.
			hasMore = true
			metrics.CacheHits.Inc()
		} else {
			metrics.CacheMisses.Inc()
		}
	}

	if posts == nil {
		posts, hasMore, err = a.DB.ListPosts(r.Context(), viewer, limit, offset, authorID)
		if err != nil {
			a.respondError(w, http.StatusInternalServerError, err, "Could not list posts")
			return
		}
	} else {
		ids := make([]string, len(posts))
		for i, p := range posts {
			ids[i] = p.ID
		}
		states, err := a.DB.ViewerStates(r.Context(), viewer, ids)
		if err != nil {
			a.respondError(w, http.StatusInternalServerError, err, "Could not list posts")
			return
		}
		for i := range posts {
			st := states[posts[i].ID]
			posts[i].LikedByViewer = st.Liked
			posts[i].SavedByViewer = st.Saved
		}
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

func (a *API) createPost(w http.ResponseWriter, r *http.Request) {
	type request struct {
		MediaURL  string `json:"media_url" validate:"required,url"`
		MediaType string `json:"media_type" validate:"required,oneof=image video"`
		Caption   string `json:"caption" validate:"max=2200"`
	}

	var body request
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		a.respondError(w, http.StatusBadRequest, err, "Could not decode request body")
		return
	}
	if valid := a.validateBody(w, &body); !valid {
		return
	}

	post, err := a.DB.InsertPost(r.Context(), Post{
		AuthorID:  viewerID(r.Context()),
		MediaURL:  body.MediaURL,
		MediaType: body.MediaType,
		Caption:   body.Caption,
		CreatedAt: time.Now(),
	})
	if err != nil {
		a.respondError(w, http.StatusInternalServerError, err, "Could not create post")
		return
	}

	if err := a.Cache.InsertPost(r.Context(), post); err != nil {
		a.Logger.Error("Could not cache post", "error", err.Error())
	}

	a.respond(w, http.StatusCreated, post)
}

func (a *API) editPost(w http.ResponseWriter, r *http.Request) {
	type request struct {
		Caption string `json:"caption" validate:"max=2200"`
	}

	postID := r.PathValue("postID")
	var body request
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		a.respondError(w, http.StatusBadRequest, err, "Could not decode request body")
		return
	}
	if valid := a.validateBody(w, &body); !valid {
		return
	}

	post, err := a.DB.UpdatePostCaption(r.Context(), postID, viewerID(r.Context()), body.Caption)
	if err != nil {
		a.respondStorageError(w, err, "Could not edit post")
		return
	}

	// Drop the stale cached copy; the next feed load re-populates it.
	if err := a.Cache.RemovePost(r.Context(), postID); err != nil {
		a.Logger.Error("Could not evict edited post from cache", "error", err.Error())
	}

	a.respond(w, http.StatusOK, post)
}

func (a *API) deletePost(w http.ResponseWriter, r *http.Request) {
	postID := r.PathValue("postID")

	if err := a.DB.DeletePost(r.Context(), postID, viewerID(r.Context())); err != nil {
		a.respondStorageError(w, err, "Could not delete post")
		return
	}
	if err := a.Cache.RemovePost(r.Context(), postID); err != nil {
		a.Logger.Error("Could not evict deleted post from cache", "error", err.Error())
	}

	a.respond(w, http.StatusOK, map[string]string{"id": postID})
}
