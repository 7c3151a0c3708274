package postgres

import (
	"time"

	"github.com/uptrace/bun"

	"github.com/glimmerapp/glimmer/api"
)

// A user represents a registered account in the database.
type user struct {
	bun.BaseModel `bun:"table:users,alias:u"`

	ID        string    `bun:",pk,type:uuid,default:uuid_generate_v4()"`
	Username  string    `bun:",notnull,unique"`
	FullName  string    `bun:"full_name"`
	AvatarURL string    `bun:"avatar_url"`
	CreatedAt time.Time `bun:",nullzero,default:now()"`
}

// A post represents a feed post in the database. The counter and viewer
// columns are computed per query and never written.
type post struct {
	bun.BaseModel `bun:"table:posts,alias:post"`

	ID        string    `bun:",pk,type:uuid,default:uuid_generate_v4()"`
	AuthorID  string    `bun:"author_id,notnull,type:uuid"`
	MediaURL  string    `bun:"media_url,notnull"`
	MediaType string    `bun:"media_type,notnull"`
	Caption   string    `bun:"caption"`
	CreatedAt time.Time `bun:",nullzero,default:now()"`

	Author *user `bun:"rel:belongs-to,join:author_id=id"`

	LikeCount     int  `bun:"like_count,scanonly"`
	CommentCount  int  `bun:"comment_count,scanonly"`
	LikedByViewer bool `bun:"liked_by_viewer,scanonly"`
	SavedByViewer bool `bun:"saved_by_viewer,scanonly"`
}

type comment struct {
	bun.BaseModel `bun:"table:comments,alias:c"`

	ID        string    `bun:",pk,type:uuid,default:uuid_generate_v4()"`
	PostID    string    `bun:"post_id,notnull,type:uuid"`
	AuthorID  string    `bun:"author_id,notnull,type:uuid"`
	Text      string    `bun:"comment_text,notnull"`
	CreatedAt time.Time `bun:",nullzero,default:now()"`

	Author *user `bun:"rel:belongs-to,join:author_id=id"`
	Post   *post `bun:"rel:belongs-to,join:post_id=id"`
}

type like struct {
	bun.BaseModel `bun:"table:likes,alias:l"`

	PostID    string    `bun:"post_id,pk,type:uuid"`
	UserID    string    `bun:"user_id,pk,type:uuid"`
	CreatedAt time.Time `bun:",nullzero,default:now()"`
}

type save struct {
	bun.BaseModel `bun:"table:saves,alias:s"`

	PostID    string    `bun:"post_id,pk,type:uuid"`
	UserID    string    `bun:"user_id,pk,type:uuid"`
	CreatedAt time.Time `bun:",nullzero,default:now()"`
}

type follow struct {
	bun.BaseModel `bun:"table:follows,alias:f"`

	FollowerID  string    `bun:"follower_id,pk,type:uuid"`
	FollowingID string    `bun:"following_id,pk,type:uuid"`
	CreatedAt   time.Time `bun:",nullzero,default:now()"`
}

type postTag struct {
	bun.BaseModel `bun:"table:post_tags,alias:pt"`

	Tag    string `bun:"tag,pk"`
	PostID string `bun:"post_id,pk,type:uuid"`
}

func (u *user) apiAuthor() api.Author {
	if u == nil {
		return api.Author{}
	}
	return api.Author{
		ID:        u.ID,
		Username:  u.Username,
		FullName:  u.FullName,
		AvatarURL: u.AvatarURL,
	}
}

func (p post) apiPost() api.Post {
	return api.Post{
		ID:            p.ID,
		AuthorID:      p.AuthorID,
		MediaURL:      p.MediaURL,
		MediaType:     p.MediaType,
		Caption:       p.Caption,
		CreatedAt:     p.CreatedAt,
		LikeCount:     p.LikeCount,
		CommentCount:  p.CommentCount,
		LikedByViewer: p.LikedByViewer,
		SavedByViewer: p.SavedByViewer,
		Author:        p.Author.apiAuthor(),
	}
}

func (c comment) apiComment() api.Comment {
	return api.Comment{
		ID:        c.ID,
		PostID:    c.PostID,
		AuthorID:  c.AuthorID,
		Text:      c.Text,
		CreatedAt: c.CreatedAt,
		Author:    c.Author.apiAuthor(),
	}
}
