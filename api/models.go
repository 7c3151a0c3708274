package api

import "time"

// A Post represents a persisted feed post.
type Post struct {
	ID            string    `json:"id"`
	AuthorID      string    `json:"author_id"`
	MediaURL      string    `json:"media_url"`
	MediaType     string    `json:"media_type"`
	Caption       string    `json:"caption,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	LikeCount     int       `json:"like_count"`
	CommentCount  int       `json:"comment_count"`
	LikedByViewer bool      `json:"liked_by_viewer"`
	SavedByViewer bool      `json:"saved_by_viewer"`

	// Author is populated by the storage layer and emitted in the
	// top-level users list rather than inline.
	Author Author `json:"-"`
}

// An Author represents the public view of a user.
type Author struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	FullName  string `json:"full_name,omitempty"`
	AvatarURL string `json:"avatar_url,omitempty"`
}

// A Comment represents a comment on a post. Comments are ordered by
// creation time ascending within a post.
type Comment struct {
	ID        string    `json:"id"`
	PostID    string    `json:"post_id"`
	AuthorID  string    `json:"author_id"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`

	Author Author `json:"-"`
}

// A Profile is an author plus the aggregate counts shown on a profile
// page.
type Profile struct {
	Author
	PostCount      int  `json:"post_count"`
	FollowerCount  int  `json:"follower_count"`
	FollowingCount int  `json:"following_count"`
	ViewerFollows  bool `json:"viewer_follows"`
}

// A Hashtag is a tag with the number of posts carrying it.
type Hashtag struct {
	Tag       string `json:"tag"`
	PostCount int    `json:"post_count"`
}
