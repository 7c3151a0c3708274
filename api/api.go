package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/glimmerapp/glimmer/api/validator"
	"github.com/glimmerapp/glimmer/metrics"
)

// Storage sentinels. The storage layer returns these so handlers can map
// them onto HTTP statuses without inspecting driver errors.
var (
	// ErrNotFound means the entity does not exist (or no longer exists).
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists means the requested state already holds, e.g. a
	// duplicate like. Handlers answer 409 so idempotent clients can
	// treat it as success.
	ErrAlreadyExists = errors.New("already exists")
	// ErrForbidden means the viewer does not own the entity.
	ErrForbidden = errors.New("forbidden")
)

// ViewerState carries the per-viewer flags for a single post.
type ViewerState struct {
	Liked bool
	Saved bool
}

// A DB provides the storage layer that persists users, posts and the
// relations between them.
type DB interface {
	ListPosts(ctx context.Context, viewerID string, limit, offset int, authorID string) ([]Post, bool, error)
	GetPost(ctx context.Context, viewerID, postID string) (Post, error)
	InsertPost(ctx context.Context, post Post) (Post, error)
	UpdatePostCaption(ctx context.Context, postID, authorID, caption string) (Post, error)
	DeletePost(ctx context.Context, postID, authorID string) error

	ListComments(ctx context.Context, postID string, limit int) ([]Comment, error)
	InsertComment(ctx context.Context, c Comment) (Comment, error)
	DeleteComment(ctx context.Context, commentID, authorID string) (postID string, err error)

	InsertLike(ctx context.Context, postID, userID string) error
	DeleteLike(ctx context.Context, postID, userID string) error
	InsertSave(ctx context.Context, postID, userID string) error
	DeleteSave(ctx context.Context, postID, userID string) error
	IsSaved(ctx context.Context, postID, userID string) (bool, error)
	ListSavedPosts(ctx context.Context, viewerID string, limit, offset int) ([]Post, bool, error)
	InsertFollow(ctx context.Context, followerID, followingID string) error
	DeleteFollow(ctx context.Context, followerID, followingID string) error

	ViewerStates(ctx context.Context, viewerID string, postIDs []string) (map[string]ViewerState, error)
	SearchUsers(ctx context.Context, q string, limit int) ([]Author, error)
	SearchHashtags(ctx context.Context, q string, limit int) ([]Hashtag, error)
	GetProfile(ctx context.Context, viewerID, username string) (Profile, error)
}

// A Cache provides a storage layer that caches the first feed page.
// Cached posts never carry viewer flags; handlers overlay those from
// the DB.
type Cache interface {
	ListPosts(ctx context.Context) ([]Post, error)
	InsertPost(ctx context.Context, post Post) error
	RemovePost(ctx context.Context, postID string) error
	IncrCounters(ctx context.Context, postID string, likeDelta, commentDelta int) error
}

// A BlobStore accepts media uploads and returns publicly resolvable
// URLs.
type BlobStore interface {
	Put(ctx context.Context, ext string, contentType string, r io.Reader) (string, error)
}

// API provides the REST endpoints for the application.
type API struct {
	Logger    *slog.Logger
	DB        DB
	Cache     Cache
	Blob      BlobStore
	Val       *validator.Validator
	JWTSecret []byte

	// PageSize is the default feed page size. Zero means defaultPageSize.
	PageSize int

	once sync.Once
	mux  *http.ServeMux
}

const (
	defaultPageSize = 10
	maxPageSize     = 50
)

func (a *API) pageSize() int {
	if a.PageSize > 0 {
		return a.PageSize
	}
	return defaultPageSize
}

func (a *API) setupRoutes() {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /posts", a.auth(a.listPosts))
	mux.HandleFunc("POST /posts", a.auth(a.createPost))
	mux.HandleFunc("PUT /posts/{postID}", a.auth(a.editPost))
	mux.HandleFunc("DELETE /posts/{postID}", a.auth(a.deletePost))

	mux.HandleFunc("GET /comments", a.auth(a.listComments))
	mux.HandleFunc("POST /comments", a.auth(a.createComment))
	mux.HandleFunc("DELETE /comments", a.auth(a.deleteComment))

	mux.HandleFunc("POST /likes", a.auth(a.createLike))
	mux.HandleFunc("DELETE /likes", a.auth(a.deleteLike))
	mux.HandleFunc("POST /saves", a.auth(a.createSave))
	mux.HandleFunc("DELETE /saves", a.auth(a.deleteSave))
	mux.HandleFunc("GET /saves", a.auth(a.listSaves))
	mux.HandleFunc("POST /follows", a.auth(a.createFollow))
	mux.HandleFunc("DELETE /follows", a.auth(a.deleteFollow))

	mux.HandleFunc("GET /search/users", a.auth(a.searchUsers))
	mux.HandleFunc("GET /search/hashtags", a.auth(a.searchHashtags))
	mux.HandleFunc("GET /users/{username}", a.auth(a.getProfile))

	mux.HandleFunc("POST /media", a.auth(a.uploadMedia))

	mux.HandleFunc("GET /health", a.health)

	a.mux = mux
}

func (a *API) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.once.Do(a.setupRoutes)
	a.Logger.Info("Request received", "method", r.Method, "path", r.URL.Path)

	start := time.Now()
	rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
	a.mux.ServeHTTP(rec, r)
	metrics.ObserveRequest(r.Method, r.URL.Path, rec.status, time.Since(start))
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (a *API) respond(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		a.Logger.Error("Could not encode JSON body", "error", err.Error())
	}
}

func (a *API) respondError(w http.ResponseWriter, status int, err error, msg string) {
	type response struct {
		Error string `json:"error"`
	}
	a.Logger.Error("Error", "error", err.Error())
	a.respond(w, status, response{Error: msg})
}

// respondStorageError maps storage sentinels onto HTTP statuses and
// falls back to a 500.
func (a *API) respondStorageError(w http.ResponseWriter, err error, msg string) {
	switch {
	case errors.Is(err, ErrAlreadyExists):
		a.respondError(w, http.StatusConflict, err, "Already in the requested state")
	case errors.Is(err, ErrNotFound):
		a.respondError(w, http.StatusNotFound, err, "Not found")
	case errors.Is(err, ErrForbidden):
		a.respondError(w, http.StatusForbidden, err, "Not permitted")
	default:
		a.respondError(w, http.StatusInternalServerError, err, msg)
	}
}

func (a *API) validateBody(w http.ResponseWriter, s interface{}) bool {
	errs := a.Val.ValidateStruct(s)
	type response struct {
		Errors []validator.ValidationError `json:"errors"`
	}

	if len(errs) > 0 {
		a.respond(w, http.StatusBadRequest, &response{
			Errors: errs,
		})
		return false
	}
	return true
}

func (a *API) health(w http.ResponseWriter, _ *http.Request) {
	a.respond(w, http.StatusOK, map[string]string{"status": "ok"})
}
