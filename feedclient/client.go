package feedclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"
)

// Sentinel errors for the server's answer taxonomy. Match with
// errors.Is.
var (
	// ErrConflict means the requested state already holds server-side
	// (HTTP 409). Idempotent toggles treat it as success.
	ErrConflict = errors.New("already in desired state")
	// ErrNotFound means the target entity is gone (HTTP 404).
	ErrNotFound = errors.New("not found")
	// ErrUnauthorized means the session is missing or not permitted
	// (HTTP 401/403).
	ErrUnauthorized = errors.New("unauthorized")
	// ErrValidation means the input was rejected before any network
	// call; no optimistic mutation was applied.
	ErrValidation = errors.New("validation failed")
)

// An APIError is a non-2xx answer from the server.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api status %d: %s", e.Status, e.Message)
}

func (e *APIError) Is(target error) bool {
	switch target {
	case ErrConflict:
		return e.Status == http.StatusConflict
	case ErrNotFound:
		return e.Status == http.StatusNotFound
	case ErrUnauthorized:
		return e.Status == http.StatusUnauthorized || e.Status == http.StatusForbidden
	}
	return false
}

// IsRetryable reports whether the error is transient: a transport
// failure or a 5xx answer. Validation and authorization failures are
// not retryable.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status >= 500
	}
	return !errors.Is(err, context.Canceled) && !errors.Is(err, ErrValidation)
}

// Client is a bearer-token client for the feed REST API.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *slog.Logger
}

// NewClient returns a client for the API at baseURL authenticating as
// the session the token identifies.
func NewClient(baseURL, token string, logger *slog.Logger) *Client {
	return &Client{
		baseURL:    baseURL,
		token:      token,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		limiter:    rate.NewLimiter(rate.Limit(20), 40),
		logger:     logger,
	}
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		rd = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, rd)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var e struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&e)
		return &APIError{Status: resp.StatusCode, Message: e.Error}
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

type authorJSON struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	FullName  string `json:"full_name"`
	AvatarURL string `json:"avatar_url"`
}

func (a authorJSON) author() Author {
	return Author{ID: a.ID, Username: a.Username, FullName: a.FullName, AvatarURL: a.AvatarURL}
}

type commentJSON struct {
	ID        string    `json:"id"`
	PostID    string    `json:"post_id"`
	AuthorID  string    `json:"author_id"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

func (c commentJSON) comment() Comment {
	return Comment{ID: c.ID, PostID: c.PostID, AuthorID: c.AuthorID, Text: c.Text, CreatedAt: c.CreatedAt}
}

// FetchPage requests one bounded batch of feed items. Items come back
// in reverse-chronological order, ties broken by identity, so
// consecutive pages neither skip nor repeat an item. A valid empty page
// is not an error.
func (c *Client) FetchPage(ctx context.Context, cur Cursor, userID string) (Page, error) {
	q := url.Values{}
	q.Set("limit", strconv.Itoa(cur.Limit))
	q.Set("offset", strconv.Itoa(cur.Offset))
	if userID != "" {
		q.Set("userId", userID)
	}

	var raw struct {
		Posts []struct {
			ID            string    `json:"id"`
			AuthorID      string    `json:"author_id"`
			MediaURL      string    `json:"media_url"`
			MediaType     string    `json:"media_type"`
			Caption       string    `json:"caption"`
			CreatedAt     time.Time `json:"created_at"`
			LikeCount     int       `json:"like_count"`
			CommentCount  int       `json:"comment_count"`
			LikedByViewer bool      `json:"liked_by_viewer"`
			SavedByViewer bool      `json:"saved_by_viewer"`
		} `json:"posts"`
		HasMore bool         `json:"has_more"`
		Users   []authorJSON `json:"users"`
	}
	if err := c.do(ctx, http.MethodGet, "/posts", q, nil, &raw); err != nil {
		return Page{}, err
	}

	authors := make(map[string]Author, len(raw.Users))
	for _, u := range raw.Users {
		authors[u.ID] = u.author()
	}

	items := make([]FeedItem, len(raw.Posts))
	for i, p := range raw.Posts {
		items[i] = FeedItem{
			ID:            p.ID,
			AuthorID:      p.AuthorID,
			Author:        authors[p.AuthorID],
			MediaURL:      p.MediaURL,
			MediaType:     p.MediaType,
			Caption:       p.Caption,
			CreatedAt:     p.CreatedAt,
			LikeCount:     p.LikeCount,
			CommentCount:  p.CommentCount,
			LikedByViewer: p.LikedByViewer,
			SavedByViewer: p.SavedByViewer,
		}
	}
	return Page{Items: items, HasMore: raw.HasMore}, nil
}

// ListComments returns up to limit comments for a post in creation
// order. A limit of zero means all.
func (c *Client) ListComments(ctx context.Context, postID string, limit int) ([]Comment, error) {
	q := url.Values{}
	q.Set("postId", postID)
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}

	var raw struct {
		Comments []commentJSON `json:"comments"`
	}
	if err := c.do(ctx, http.MethodGet, "/comments", q, nil, &raw); err != nil {
		return nil, err
	}
	out := make([]Comment, len(raw.Comments))
	for i, cm := range raw.Comments {
		out[i] = cm.comment()
	}
	return out, nil
}

// CreateComment posts a comment and returns the server's copy with its
// assigned identity.
func (c *Client) CreateComment(ctx context.Context, postID, text string) (Comment, error) {
	body := map[string]string{"post_id": postID, "text": text}
	var raw commentJSON
	if err := c.do(ctx, http.MethodPost, "/comments", nil, body, &raw); err != nil {
		return Comment{}, err
	}
	return raw.comment(), nil
}

// DeleteComment removes a comment.
func (c *Client) DeleteComment(ctx context.Context, commentID string) error {
	q := url.Values{}
	q.Set("commentId", commentID)
	return c.do(ctx, http.MethodDelete, "/comments", q, nil, nil)
}

// Like marks a post as liked by the session user.
func (c *Client) Like(ctx context.Context, postID string) error {
	return c.do(ctx, http.MethodPost, "/likes", nil, map[string]string{"post_id": postID}, nil)
}

// Unlike removes the session user's like.
func (c *Client) Unlike(ctx context.Context, postID string) error {
	q := url.Values{}
	q.Set("postId", postID)
	return c.do(ctx, http.MethodDelete, "/likes", q, nil, nil)
}

// Save adds a post to the session user's saved collection.
func (c *Client) Save(ctx context.Context, postID string) error {
	return c.do(ctx, http.MethodPost, "/saves", nil, map[string]string{"post_id": postID}, nil)
}

// Unsave removes a post from the saved collection.
func (c *Client) Unsave(ctx context.Context, postID string) error {
	q := url.Values{}
	q.Set("postId", postID)
	return c.do(ctx, http.MethodDelete, "/saves", q, nil, nil)
}

// Follow makes the session user follow userID.
func (c *Client) Follow(ctx context.Context, userID string) error {
	return c.do(ctx, http.MethodPost, "/follows", nil, map[string]string{"following_id": userID}, nil)
}

// Unfollow removes the follow relation.
func (c *Client) Unfollow(ctx context.Context, userID string) error {
	q := url.Values{}
	q.Set("followingId", userID)
	return c.do(ctx, http.MethodDelete, "/follows", q, nil, nil)
}

// DeletePost removes the session user's own post.
func (c *Client) DeletePost(ctx context.Context, postID string) error {
	return c.do(ctx, http.MethodDelete, "/posts/"+url.PathEscape(postID), nil, nil, nil)
}

// Profile loads the profile page aggregates for a username.
func (c *Client) Profile(ctx context.Context, username string) (Profile, error) {
	var raw struct {
		authorJSON
		PostCount      int  `json:"post_count"`
		FollowerCount  int  `json:"follower_count"`
		FollowingCount int  `json:"following_count"`
		ViewerFollows  bool `json:"viewer_follows"`
	}
	if err := c.do(ctx, http.MethodGet, "/users/"+url.PathEscape(username), nil, nil, &raw); err != nil {
		return Profile{}, err
	}
	return Profile{
		Author:         raw.author(),
		PostCount:      raw.PostCount,
		FollowerCount:  raw.FollowerCount,
		FollowingCount: raw.FollowingCount,
		ViewerFollows:  raw.ViewerFollows,
	}, nil
}

// SearchUsers finds users whose name starts with q.
func (c *Client) SearchUsers(ctx context.Context, query string) ([]Author, error) {
	q := url.Values{}
	q.Set("q", query)
	var raw struct {
		Users []authorJSON `json:"users"`
	}
	if err := c.do(ctx, http.MethodGet, "/search/users", q, nil, &raw); err != nil {
		return nil, err
	}
	out := make([]Author, len(raw.Users))
	for i, u := range raw.Users {
		out[i] = u.author()
	}
	return out, nil
}

// SearchHashtags finds tags starting with q.
func (c *Client) SearchHashtags(ctx context.Context, query string) ([]Hashtag, error) {
	q := url.Values{}
	q.Set("q", query)
	var raw struct {
		Hashtags []struct {
			Tag       string `json:"tag"`
			PostCount int    `json:"post_count"`
		} `json:"hashtags"`
	}
	if err := c.do(ctx, http.MethodGet, "/search/hashtags", q, nil, &raw); err != nil {
		return nil, err
	}
	out := make([]Hashtag, len(raw.Hashtags))
	for i, h := range raw.Hashtags {
		out[i] = Hashtag{Tag: h.Tag, PostCount: h.PostCount}
	}
	return out, nil
}
