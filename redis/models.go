package redis

import (
	"time"

	"github.com/glimmerapp/glimmer/api"
)

// A post represents a cached feed post. Viewer-relative flags are never
// cached; the API overlays them per request.
type post struct {
	ID             string    `redis:"id"`
	AuthorID       string    `redis:"author_id"`
	AuthorUsername string    `redis:"author_username"`
	AuthorFullName string    `redis:"author_full_name"`
	AuthorAvatar   string    `redis:"author_avatar"`
	MediaURL       string    `redis:"media_url"`
	MediaType      string    `redis:"media_type"`
	Caption        string    `redis:"caption"`
	CreatedAt      time.Time `redis:"created_at"`
	LikeCount      int       `redis:"like_count"`
	CommentCount   int       `redis:"comment_count"`
}

func fromAPIPost(p api.Post) *post {
	return &post{
		ID:             p.ID,
		AuthorID:       p.AuthorID,
		AuthorUsername: p.Author.Username,
		AuthorFullName: p.Author.FullName,
		AuthorAvatar:   p.Author.AvatarURL,
		MediaURL:       p.MediaURL,
		MediaType:      p.MediaType,
		Caption:        p.Caption,
		CreatedAt:      p.CreatedAt,
		LikeCount:      p.LikeCount,
		CommentCount:   p.CommentCount,
	}
}

func (p post) apiPost() api.Post {
	return api.Post{
		ID:           p.ID,
		AuthorID:     p.AuthorID,
		MediaURL:     p.MediaURL,
		MediaType:    p.MediaType,
		Caption:      p.Caption,
		CreatedAt:    p.CreatedAt,
		LikeCount:    p.LikeCount,
		CommentCount: p.CommentCount,
		Author: api.Author{
			ID:        p.AuthorID,
			Username:  p.AuthorUsername,
			FullName:  p.AuthorFullName,
			AvatarURL: p.AuthorAvatar,
		},
	}
}
