// Package feedclient implements the client side of the feed: cursor
// pagination, an ordered item store, and optimistic mutations that are
// confirmed or rolled back once the server answers.
package feedclient

import "time"

// An Author represents the public view of a user.
type Author struct {
	ID        string
	Username  string
	FullName  string
	AvatarURL string
}

// A Comment represents a comment on a feed item, ordered by creation
// time ascending within an item.
type Comment struct {
	ID        string
	PostID    string
	AuthorID  string
	Text      string
	CreatedAt time.Time

	// Pending is true while the optimistic copy is waiting for its
	// server-assigned identity.
	Pending bool
}

// A FeedItem is one post as the viewer sees it. Counters are
// authoritative from the server except while a mutation is in flight,
// when they may be off by exactly one in the optimistic direction.
type FeedItem struct {
	ID            string
	AuthorID      string
	Author        Author
	MediaURL      string
	MediaType     string
	Caption       string
	CreatedAt     time.Time
	LikeCount     int
	CommentCount  int
	LikedByViewer bool
	SavedByViewer bool

	// Comments holds a short preview of the item's comments.
	Comments []Comment
}

// A Cursor identifies one page of feed results.
type Cursor struct {
	Offset int
	Limit  int
}

// A Page is the result of one feed fetch.
type Page struct {
	Items   []FeedItem
	HasMore bool
}

// A Profile is an author plus profile page aggregates.
type Profile struct {
	Author
	PostCount      int
	FollowerCount  int
	FollowingCount int
	ViewerFollows  bool
}

// A Hashtag is a tag with the number of posts carrying it.
type Hashtag struct {
	Tag       string
	PostCount int
}
