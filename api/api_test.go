package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/neilotoole/slogt"

	"github.com/glimmerapp/glimmer/api/validator"
)

var testSecret = []byte("test-secret")

func newTestServer(t *testing.T, api *API) *httptest.Server {
	t.Helper()
	if api.Logger == nil {
		api.Logger = slogt.New(t)
	}
	if api.Val == nil {
		api.Val = validator.New()
	}
	if api.Cache == nil {
		api.Cache = &testcache{}
	}
	if api.DB == nil {
		api.DB = &testdb{}
	}
	api.JWTSecret = testSecret
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)
	return srv
}

// doAs sends a request authenticated as userID.
func doAs(t *testing.T, srv *httptest.Server, userID, method, path, body string) *http.Response {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, srv.URL+path, rd)
	if err != nil {
		t.Fatal(err)
	}
	tok, err := SignToken(testSecret, userID, time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Authorization", "Bearer "+tok)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	return resp
}

func TestAPI_auth(t *testing.T) {
	tests := []struct {
		name       string
		header     string
		wantStatus int
	}{
		{
			name:       "MissingHeader",
			wantStatus: 401,
		},
		{
			name:       "NotBearer",
			header:     "Basic dXNlcjpwYXNz",
			wantStatus: 401,
		},
		{
			name:       "GarbageToken",
			header:     "Bearer not-a-token",
			wantStatus: 401,
		},
		{
			name: "WrongSecret",
			header: func() string {
				tok, _ := SignToken([]byte("other-secret"), "u1", time.Hour)
				return "Bearer " + tok
			}(),
			wantStatus: 401,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(t, &API{})

			req, _ := http.NewRequest("GET", srv.URL+"/posts", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			resp, err := http.DefaultClient.Do(req)
			if err != nil {
				t.Fatal(err)
			}
			checkStatus(t, resp.StatusCode, tt.wantStatus)
			checkBody(t, resp, `{"error": "Please sign in"}`)
		})
	}

	t.Run("HealthIsOpen", func(t *testing.T) {
		srv := newTestServer(t, &API{})
		resp, err := http.Get(srv.URL + "/health")
		if err != nil {
			t.Fatal(err)
		}
		checkStatus(t, resp.StatusCode, 200)
	})
}

func TestAPI_listPosts(t *testing.T) {
	post := func(id string) Post {
		return Post{
			ID:        id,
			AuthorID:  "u1",
			MediaURL:  "https://cdn.test/" + id + ".jpg",
			MediaType: "image",
			CreatedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
			Author:    Author{ID: "u1", Username: "ansel"},
		}
	}

	tests := []struct {
		name       string
		path       string
		db         *testdb
		cache      *testcache
		wantStatus int
		wantBody   string
	}{
		{
			name: "DBError",
			path: "/posts",
			db: &testdb{
				listPosts: func(t *testing.T, viewerID string, limit, offset int, authorID string) ([]Post, bool, error) {
					return nil, false, errors.New("something went wrong")
				},
			},
			wantStatus: 500,
			wantBody:   `{"error": "Could not list posts"}`,
		},
		{
			name:       "Empty",
			path:       "/posts",
			wantStatus: 200,
			wantBody: `{
				"posts": [],
				"has_more": false,
				"users": []
			}`,
		},
		{
			name: "CacheErrorFallsBackToDB",
			path: "/posts",
			cache: &testcache{
				listPosts: func(t *testing.T) ([]Post, error) {
					return nil, errors.New("redis down")
				},
			},
			db: &testdb{
				listPosts: func(t *testing.T, viewerID string, limit, offset int, authorID string) ([]Post, bool, error) {
					return []Post{post("p1")}, false, nil
				},
			},
			wantStatus: 200,
			wantBody: `{
				"posts": [
					{
						"id": "p1",
						"author_id": "u1",
						"media_url": "https://cdn.test/p1.jpg",
						"media_type": "image",
						"created_at": "2024-01-01T00:00:00Z",
						"like_count": 0,
						"comment_count": 0,
						"liked_by_viewer": false,
						"saved_by_viewer": false
					}
				],
				"has_more": false,
				"users": [
					{"id": "u1", "username": "ansel"}
				]
			}`,
		},
		{
			name: "CacheServesFirstPageWithViewerOverlay",
			path: "/posts",
			cache: &testcache{
				listPosts: func(t *testing.T) ([]Post, error) {
					a := post("p1")
					b := post("p2")
					return []Post{a, b}, nil
				},
			},
			db: &testdb{
				listPosts: func(t *testing.T, viewerID string, limit, offset int, authorID string) ([]Post, bool, error) {
					t.Error("DB list called on cache hit")
					return nil, false, nil
				},
				viewerStates: func(t *testing.T, viewerID string, postIDs []string) (map[string]ViewerState, error) {
					if viewerID != "viewer" {
						t.Errorf("Got viewerID %q, want viewer", viewerID)
					}
					return map[string]ViewerState{"p1": {Liked: true}}, nil
				},
			},
			wantStatus: 200,
			wantBody: `{
				"posts": [
					{
						"id": "p1",
						"author_id": "u1",
						"media_url": "https://cdn.test/p1.jpg",
						"media_type": "image",
						"created_at": "2024-01-01T00:00:00Z",
						"like_count": 0,
						"comment_count": 0,
						"liked_by_viewer": true,
						"saved_by_viewer": false
					},
					{
						"id": "p2",
						"author_id": "u1",
						"media_url": "https://cdn.test/p2.jpg",
						"media_type": "image",
						"created_at": "2024-01-01T00:00:00Z",
						"like_count": 0,
						"comment_count": 0,
						"liked_by_viewer": false,
						"saved_by_viewer": false
					}
				],
				"has_more": true,
				"users": [
					{"id": "u1", "username": "ansel"}
				]
			}`,
		},
		{
			name: "FilteredFeedSkipsCache",
			path: "/posts?userId=u1",
			cache: &testcache{
				listPosts: func(t *testing.T) ([]Post, error) {
					t.Error("cache consulted for filtered feed")
					return nil, nil
				},
			},
			db: &testdb{
				listPosts: func(t *testing.T, viewerID string, limit, offset int, authorID string) ([]Post, bool, error) {
					if authorID != "u1" {
						t.Errorf("Got authorID %q, want u1", authorID)
					}
					return nil, false, nil
				},
			},
			wantStatus: 200,
			wantBody: `{
				"posts": [],
				"has_more": false,
				"users": []
			}`,
		},
		{
			name:       "InvalidLimit",
			path:       "/posts?limit=0",
			wantStatus: 400,
			wantBody:   `{"error": "limit must be between 1 and 50"}`,
		},
		{
			name:       "NegativeOffset",
			path:       "/posts?offset=-1",
			wantStatus: 400,
			wantBody:   `{"error": "offset must be a non-negative integer"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := &API{PageSize: 2}
			if tt.db != nil {
				tt.db.T = t
				api.DB = tt.db
			}
			if tt.cache != nil {
				tt.cache.T = t
				api.Cache = tt.cache
			}
			srv := newTestServer(t, api)

			resp := doAs(t, srv, "viewer", "GET", tt.path, "")
			checkStatus(t, resp.StatusCode, tt.wantStatus)
			checkBody(t, resp, tt.wantBody)
		})
	}
}

func TestAPI_createPost(t *testing.T) {
	tests := []struct {
		name       string
		req        string
		db         *testdb
		wantStatus int
		wantBody   string
	}{
		{
			name:       "InvalidJSON",
			req:        `not json`,
			wantStatus: 400,
			wantBody:   `{"error": "Could not decode request body"}`,
		},
		{
			name:       "MissingMedia",
			req:        `{"caption": "hi"}`,
			wantStatus: 400,
			wantBody: `{
				"errors": [
					{"field": "MediaURL", "message": "failed on the \"required\" rule"},
					{"field": "MediaType", "message": "failed on the \"required\" rule"}
				]
			}`,
		},
		{
			name:       "UnknownMediaType",
			req:        `{"media_url": "https://cdn.test/a.gif", "media_type": "gif"}`,
			wantStatus: 400,
			wantBody: `{
				"errors": [
					{"field": "MediaType", "message": "failed on the \"oneof\" rule (param image video)"}
				]
			}`,
		},
		{
			name: "OK",
			req:  `{"media_url": "https://cdn.test/a.jpg", "media_type": "image", "caption": "golden hour"}`,
			db: &testdb{
				insertPost: func(t *testing.T, post Post) (Post, error) {
					if post.AuthorID != "viewer" {
						t.Errorf("Got AuthorID %q, want viewer", post.AuthorID)
					}
					if post.MediaURL != "https://cdn.test/a.jpg" {
						t.Errorf("Got MediaURL %q", post.MediaURL)
					}
					post.ID = "p1"
					post.CreatedAt = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
					return post, nil
				},
			},
			wantStatus: 201,
			wantBody: `{
				"id": "p1",
				"author_id": "viewer",
				"media_url": "https://cdn.test/a.jpg",
				"media_type": "image",
				"caption": "golden hour",
				"created_at": "2024-01-01T00:00:00Z",
				"like_count": 0,
				"comment_count": 0,
				"liked_by_viewer": false,
				"saved_by_viewer": false
			}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.db != nil {
				tt.db.T = t
			}
			srv := newTestServer(t, &API{DB: tt.db})

			resp := doAs(t, srv, "viewer", "POST", "/posts", tt.req)
			checkStatus(t, resp.StatusCode, tt.wantStatus)
			checkBody(t, resp, tt.wantBody)
		})
	}
}

func TestAPI_deletePost(t *testing.T) {
	tests := []struct {
		name       string
		db         *testdb
		wantStatus int
		wantBody   string
	}{
		{
			name: "NotFound",
			db: &testdb{
				deletePost: func(t *testing.T, postID, authorID string) error {
					return ErrNotFound
				},
			},
			wantStatus: 404,
			wantBody:   `{"error": "Not found"}`,
		},
		{
			name: "NotOwner",
			db: &testdb{
				deletePost: func(t *testing.T, postID, authorID string) error {
					return ErrForbidden
				},
			},
			wantStatus: 403,
			wantBody:   `{"error": "Not permitted"}`,
		},
		{
			name: "OK",
			db: &testdb{
				deletePost: func(t *testing.T, postID, authorID string) error {
					if postID != "p1" || authorID != "viewer" {
						t.Errorf("Got (%q, %q), want (p1, viewer)", postID, authorID)
					}
					return nil
				},
			},
			wantStatus: 200,
			wantBody:   `{"id": "p1"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.db.T = t
			evicted := false
			cache := &testcache{
				removePost: func(t *testing.T, postID string) error {
					evicted = true
					return nil
				},
			}
			cache.T = t
			srv := newTestServer(t, &API{DB: tt.db, Cache: cache})

			resp := doAs(t, srv, "viewer", "DELETE", "/posts/p1", "")
			checkStatus(t, resp.StatusCode, tt.wantStatus)
			checkBody(t, resp, tt.wantBody)
			if tt.wantStatus == 200 && !evicted {
				t.Error("deleted post not evicted from cache")
			}
		})
	}
}

func TestAPI_createLike(t *testing.T) {
	tests := []struct {
		name       string
		req        string
		db         *testdb
		wantStatus int
		wantBody   string
	}{
		{
			name:       "MissingPostID",
			req:        `{}`,
			wantStatus: 400,
			wantBody: `{
				"errors": [
					{"field": "PostID", "message": "failed on the \"required\" rule"}
				]
			}`,
		},
		{
			name: "AlreadyLiked",
			req:  `{"post_id": "p1"}`,
			db: &testdb{
				insertLike: func(t *testing.T, postID, userID string) error {
					return ErrAlreadyExists
				},
			},
			wantStatus: 409,
			wantBody:   `{"error": "Already in the requested state"}`,
		},
		{
			name: "PostGone",
			req:  `{"post_id": "p1"}`,
			db: &testdb{
				insertLike: func(t *testing.T, postID, userID string) error {
					return ErrNotFound
				},
			},
			wantStatus: 404,
			wantBody:   `{"error": "Not found"}`,
		},
		{
			name: "OK",
			req:  `{"post_id": "p1"}`,
			db: &testdb{
				insertLike: func(t *testing.T, postID, userID string) error {
					if postID != "p1" || userID != "viewer" {
						t.Errorf("Got (%q, %q), want (p1, viewer)", postID, userID)
					}
					return nil
				},
			},
			wantStatus: 201,
			wantBody:   `{"post_id": "p1"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.db != nil {
				tt.db.T = t
			}
			srv := newTestServer(t, &API{DB: tt.db})

			resp := doAs(t, srv, "viewer", "POST", "/likes", tt.req)
			checkStatus(t, resp.StatusCode, tt.wantStatus)
			checkBody(t, resp, tt.wantBody)
		})
	}
}

func TestAPI_deleteLike(t *testing.T) {
	tests := []struct {
		name       string
		path       string
		db         *testdb
		wantStatus int
		wantBody   string
	}{
		{
			name:       "MissingParam",
			path:       "/likes",
			wantStatus: 400,
			wantBody:   `{"error": "Missing required parameter: postId"}`,
		},
		{
			name: "AlreadyGoneIsConflict",
			path: "/likes?postId=p1",
			db: &testdb{
				deleteLike: func(t *testing.T, postID, userID string) error {
					return ErrNotFound
				},
			},
			wantStatus: 409,
			wantBody:   `{"error": "Already in the requested state"}`,
		},
		{
			name: "OK",
			path: "/likes?postId=p1",
			db: &testdb{
				deleteLike: func(t *testing.T, postID, userID string) error {
					return nil
				},
			},
			wantStatus: 200,
			wantBody:   `{"post_id": "p1"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.db != nil {
				tt.db.T = t
			}
			srv := newTestServer(t, &API{DB: tt.db})

			resp := doAs(t, srv, "viewer", "DELETE", tt.path, "")
			checkStatus(t, resp.StatusCode, tt.wantStatus)
			checkBody(t, resp, tt.wantBody)
		})
	}
}

func TestAPI_createComment(t *testing.T) {
	tests := []struct {
		name       string
		req        string
		db         *testdb
		wantStatus int
		wantBody   string
	}{
		{
			name:       "MissingText",
			req:        `{"post_id": "p1"}`,
			wantStatus: 400,
			wantBody: `{
				"errors": [
					{"field": "Text", "message": "failed on the \"required\" rule"}
				]
			}`,
		},
		{
			name: "PostGone",
			req:  `{"post_id": "p1", "text": "nice"}`,
			db: &testdb{
				insertComment: func(t *testing.T, c Comment) (Comment, error) {
					return Comment{}, ErrNotFound
				},
			},
			wantStatus: 404,
			wantBody:   `{"error": "Not found"}`,
		},
		{
			name: "OK",
			req:  `{"post_id": "p1", "text": "nice"}`,
			db: &testdb{
				insertComment: func(t *testing.T, c Comment) (Comment, error) {
					if c.AuthorID != "viewer" {
						t.Errorf("Got AuthorID %q, want viewer", c.AuthorID)
					}
					c.ID = "c1"
					c.CreatedAt = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
					return c, nil
				},
			},
			wantStatus: 201,
			wantBody: `{
				"id": "c1",
				"post_id": "p1",
				"author_id": "viewer",
				"text": "nice",
				"created_at": "2024-01-01T00:00:00Z"
			}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.db != nil {
				tt.db.T = t
			}
			srv := newTestServer(t, &API{DB: tt.db})

			resp := doAs(t, srv, "viewer", "POST", "/comments", tt.req)
			checkStatus(t, resp.StatusCode, tt.wantStatus)
			checkBody(t, resp, tt.wantBody)
		})
	}
}

func TestAPI_deleteComment(t *testing.T) {
	var gotLikeDelta, gotCommentDelta int
	cache := &testcache{
		incrCounters: func(t *testing.T, postID string, likeDelta, commentDelta int) error {
			if postID != "p9" {
				t.Errorf("Got postID %q, want p9", postID)
			}
			gotLikeDelta, gotCommentDelta = likeDelta, commentDelta
			return nil
		},
	}
	db := &testdb{
		deleteComment: func(t *testing.T, commentID, authorID string) (string, error) {
			if commentID != "c1" || authorID != "viewer" {
				t.Errorf("Got (%q, %q), want (c1, viewer)", commentID, authorID)
			}
			return "p9", nil
		},
	}
	db.T = t
	cache.T = t
	srv := newTestServer(t, &API{DB: db, Cache: cache})

	resp := doAs(t, srv, "viewer", "DELETE", "/comments?commentId=c1", "")
	checkStatus(t, resp.StatusCode, 200)
	checkBody(t, resp, `{"id": "c1"}`)
	if gotLikeDelta != 0 || gotCommentDelta != -1 {
		t.Errorf("cache deltas = (%d, %d), want (0, -1)", gotLikeDelta, gotCommentDelta)
	}
}

func TestAPI_createFollow(t *testing.T) {
	tests := []struct {
		name       string
		req        string
		db         *testdb
		wantStatus int
		wantBody   string
	}{
		{
			name:       "SelfFollow",
			req:        `{"following_id": "viewer"}`,
			wantStatus: 422,
			wantBody:   `{"error": "Cannot follow yourself"}`,
		},
		{
			name: "AlreadyFollowing",
			req:  `{"following_id": "u2"}`,
			db: &testdb{
				insertFollow: func(t *testing.T, followerID, followingID string) error {
					return ErrAlreadyExists
				},
			},
			wantStatus: 409,
			wantBody:   `{"error": "Already in the requested state"}`,
		},
		{
			name: "OK",
			req:  `{"following_id": "u2"}`,
			db: &testdb{
				insertFollow: func(t *testing.T, followerID, followingID string) error {
					if followerID != "viewer" || followingID != "u2" {
						t.Errorf("Got (%q, %q), want (viewer, u2)", followerID, followingID)
					}
					return nil
				},
			},
			wantStatus: 201,
			wantBody:   `{"following_id": "u2"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.db != nil {
				tt.db.T = t
			}
			srv := newTestServer(t, &API{DB: tt.db})

			resp := doAs(t, srv, "viewer", "POST", "/follows", tt.req)
			checkStatus(t, resp.StatusCode, tt.wantStatus)
			checkBody(t, resp, tt.wantBody)
		})
	}
}

func TestAPI_getProfile(t *testing.T) {
	tests := []struct {
		name       string
		db         *testdb
		wantStatus int
		wantBody   string
	}{
		{
			name: "NotFound",
			db: &testdb{
				getProfile: func(t *testing.T, viewerID, username string) (Profile, error) {
					return Profile{}, ErrNotFound
				},
			},
			wantStatus: 404,
			wantBody:   `{"error": "Not found"}`,
		},
		{
			name: "OK",
			db: &testdb{
				getProfile: func(t *testing.T, viewerID, username string) (Profile, error) {
					if username != "ansel" {
						t.Errorf("Got username %q, want ansel", username)
					}
					return Profile{
						Author:         Author{ID: "u1", Username: "ansel", FullName: "Ansel A."},
						PostCount:      12,
						FollowerCount:  40,
						FollowingCount: 7,
						ViewerFollows:  true,
					}, nil
				},
			},
			wantStatus: 200,
			wantBody: `{
				"id": "u1",
				"username": "ansel",
				"full_name": "Ansel A.",
				"post_count": 12,
				"follower_count": 40,
				"following_count": 7,
				"viewer_follows": true
			}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.db.T = t
			srv := newTestServer(t, &API{DB: tt.db})

			resp := doAs(t, srv, "viewer", "GET", "/users/ansel", "")
			checkStatus(t, resp.StatusCode, tt.wantStatus)
			checkBody(t, resp, tt.wantBody)
		})
	}
}

func TestAPI_searchUsers(t *testing.T) {
	t.Run("EmptyQuerySkipsDB", func(t *testing.T) {
		db := &testdb{
			searchUsers: func(t *testing.T, q string, limit int) ([]Author, error) {
				t.Error("DB searched for empty query")
				return nil, nil
			},
		}
		db.T = t
		srv := newTestServer(t, &API{DB: db})

		resp := doAs(t, srv, "viewer", "GET", "/search/users?q=++", "")
		checkStatus(t, resp.StatusCode, 200)
		checkBody(t, resp, `{"users": []}`)
	})

	t.Run("OK", func(t *testing.T) {
		db := &testdb{
			searchUsers: func(t *testing.T, q string, limit int) ([]Author, error) {
				if q != "an" {
					t.Errorf("Got q %q, want an", q)
				}
				return []Author{{ID: "u1", Username: "ansel"}}, nil
			},
		}
		db.T = t
		srv := newTestServer(t, &API{DB: db})

		resp := doAs(t, srv, "viewer", "GET", "/search/users?q=an", "")
		checkStatus(t, resp.StatusCode, 200)
		checkBody(t, resp, `{"users": [{"id": "u1", "username": "ansel"}]}`)
	})
}

func TestAPI_searchHashtags(t *testing.T) {
	db := &testdb{
		searchHashtags: func(t *testing.T, q string, limit int) ([]Hashtag, error) {
			if q != "sunset" {
				t.Errorf("Got q %q, want sunset (prefix stripped, lowercased)", q)
			}
			return []Hashtag{{Tag: "sunset", PostCount: 3}}, nil
		},
	}
	db.T = t
	srv := newTestServer(t, &API{DB: db})

	resp := doAs(t, srv, "viewer", "GET", "/search/hashtags?q=%23Sunset", "")
	checkStatus(t, resp.StatusCode, 200)
	checkBody(t, resp, `{"hashtags": [{"tag": "sunset", "post_count": 3}]}`)
}

type testdb struct {
	T              *testing.T
	listPosts      func(t *testing.T, viewerID string, limit, offset int, authorID string) ([]Post, bool, error)
	getPost        func(t *testing.T, viewerID, postID string) (Post, error)
	insertPost     func(t *testing.T, post Post) (Post, error)
	updateCaption  func(t *testing.T, postID, authorID, caption string) (Post, error)
	deletePost     func(t *testing.T, postID, authorID string) error
	listComments   func(t *testing.T, postID string, limit int) ([]Comment, error)
	insertComment  func(t *testing.T, c Comment) (Comment, error)
	deleteComment  func(t *testing.T, commentID, authorID string) (string, error)
	insertLike     func(t *testing.T, postID, userID string) error
	deleteLike     func(t *testing.T, postID, userID string) error
	insertSave     func(t *testing.T, postID, userID string) error
	deleteSave     func(t *testing.T, postID, userID string) error
	isSaved        func(t *testing.T, postID, userID string) (bool, error)
	listSavedPosts func(t *testing.T, viewerID string, limit, offset int) ([]Post, bool, error)
	insertFollow   func(t *testing.T, followerID, followingID string) error
	deleteFollow   func(t *testing.T, followerID, followingID string) error
	viewerStates   func(t *testing.T, viewerID string, postIDs []string) (map[string]ViewerState, error)
	searchUsers    func(t *testing.T, q string, limit int) ([]Author, error)
	searchHashtags func(t *testing.T, q string, limit int) ([]Hashtag, error)
	getProfile     func(t *testing.T, viewerID, username string) (Profile, error)
}

func (db *testdb) ListPosts(_ context.Context, viewerID string, limit, offset int, authorID string) ([]Post, bool, error) {
	if db.listPosts == nil {
		return nil, false, nil
	}
	return db.listPosts(db.T, viewerID, limit, offset, authorID)
}

func (db *testdb) GetPost(_ context.Context, viewerID, postID string) (Post, error) {
	return db.getPost(db.T, viewerID, postID)
}

func (db *testdb) InsertPost(_ context.Context, post Post) (Post, error) {
	return db.insertPost(db.T, post)
}

func (db *testdb) UpdatePostCaption(_ context.Context, postID, authorID, caption string) (Post, error) {
	return db.updateCaption(db.T, postID, authorID, caption)
}

func (db *testdb) DeletePost(_ context.Context, postID, authorID string) error {
	return db.deletePost(db.T, postID, authorID)
}

func (db *testdb) ListComments(_ context.Context, postID string, limit int) ([]Comment, error) {
	return db.listComments(db.T, postID, limit)
}

func (db *testdb) InsertComment(_ context.Context, c Comment) (Comment, error) {
	return db.insertComment(db.T, c)
}

func (db *testdb) DeleteComment(_ context.Context, commentID, authorID string) (string, error) {
	return db.deleteComment(db.T, commentID, authorID)
}

func (db *testdb) InsertLike(_ context.Context, postID, userID string) error {
	return db.insertLike(db.T, postID, userID)
}

func (db *testdb) DeleteLike(_ context.Context, postID, userID string) error {
	return db.deleteLike(db.T, postID, userID)
}

func (db *testdb) InsertSave(_ context.Context, postID, userID string) error {
	return db.insertSave(db.T, postID, userID)
}

func (db *testdb) DeleteSave(_ context.Context, postID, userID string) error {
	return db.deleteSave(db.T, postID, userID)
}

func (db *testdb) IsSaved(_ context.Context, postID, userID string) (bool, error) {
	return db.isSaved(db.T, postID, userID)
}

func (db *testdb) ListSavedPosts(_ context.Context, viewerID string, limit, offset int) ([]Post, bool, error) {
	return db.listSavedPosts(db.T, viewerID, limit, offset)
}

func (db *testdb) InsertFollow(_ context.Context, followerID, followingID string) error {
	return db.insertFollow(db.T, followerID, followingID)
}

func (db *testdb) DeleteFollow(_ context.Context, followerID, followingID string) error {
	return db.deleteFollow(db.T, followerID, followingID)
}

func (db *testdb) ViewerStates(_ context.Context, viewerID string, postIDs []string) (map[string]ViewerState, error) {
	if db.viewerStates == nil {
		return map[string]ViewerState{}, nil
	}
	return db.viewerStates(db.T, viewerID, postIDs)
}

func (db *testdb) SearchUsers(_ context.Context, q string, limit int) ([]Author, error) {
	return db.searchUsers(db.T, q, limit)
}

func (db *testdb) SearchHashtags(_ context.Context, q string, limit int) ([]Hashtag, error) {
	return db.searchHashtags(db.T, q, limit)
}

func (db *testdb) GetProfile(_ context.Context, viewerID, username string) (Profile, error) {
	return db.getProfile(db.T, viewerID, username)
}

type testcache struct {
	T            *testing.T
	listPosts    func(t *testing.T) ([]Post, error)
	insertPost   func(t *testing.T, post Post) error
	removePost   func(t *testing.T, postID string) error
	incrCounters func(t *testing.T, postID string, likeDelta, commentDelta int) error
}

func (c *testcache) ListPosts(_ context.Context) ([]Post, error) {
	if c.listPosts == nil {
		return nil, nil
	}
	return c.listPosts(c.T)
}

func (c *testcache) InsertPost(_ context.Context, post Post) error {
	if c.insertPost == nil {
		return nil
	}
	return c.insertPost(c.T, post)
}

func (c *testcache) RemovePost(_ context.Context, postID string) error {
	if c.removePost == nil {
		return nil
	}
	return c.removePost(c.T, postID)
}

func (c *testcache) IncrCounters(_ context.Context, postID string, likeDelta, commentDelta int) error {
	if c.incrCounters == nil {
		return nil
	}
	return c.incrCounters(c.T, postID, likeDelta, commentDelta)
}

func checkStatus(t *testing.T, got, want int) {
	t.Helper()
	if got != want {
		t.Errorf("Got HTTP status %d, want %d", got, want)
	}
}

func checkBody(t *testing.T, resp *http.Response, want string) {
	t.Helper()
	gotBody := normalizeJSON(t, resp.Body)
	wantBody := normalizeJSON(t, bytes.NewReader([]byte(want)))
	if gotBody != wantBody {
		t.Errorf("Body does not match\nGot\n  %s\n\nWant\n  %s", gotBody, wantBody)
	}
}

func normalizeJSON(t *testing.T, r io.Reader) string {
	t.Helper()
	var buf bytes.Buffer
	b, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("Could not read JSON: %v", err)
	}
	if err := json.Indent(&buf, b, "  ", "  "); err != nil {
		t.Fatalf("Could not indent JSON: %v", err)
	}
	return strings.TrimSpace(buf.String())
}
