package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/glimmerapp/glimmer/api"
)

// escapeLike escapes LIKE metacharacters in user-entered search terms.
func escapeLike(q string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(q)
}

// SearchUsers finds users whose username or full name starts with q.
func (pg *Postgres) SearchUsers(ctx context.Context, q string, limit int) ([]api.Author, error) {
	var users []user
	prefix := escapeLike(q) + "%"
	err := pg.bun.NewSelect().
		Model(&users).
		Where("u.username ILIKE ? OR u.full_name ILIKE ?", prefix, prefix).
		Order("username ASC").
		Limit(limit).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("scan: %w", err)
	}

	out := make([]api.Author, len(users))
	for i := range users {
		out[i] = users[i].apiAuthor()
	}
	return out, nil
}

// SearchHashtags finds tags starting with q, most used first.
func (pg *Postgres) SearchHashtags(ctx context.Context, q string, limit int) ([]api.Hashtag, error) {
	var rows []struct {
		Tag       string `bun:"tag"`
		PostCount int    `bun:"post_count"`
	}
	err := pg.bun.NewSelect().
		Model((*postTag)(nil)).
		ColumnExpr("pt.tag").
		ColumnExpr("count(*) AS post_count").
		Where("pt.tag LIKE ?", escapeLike(q)+"%").
		Group("pt.tag").
		OrderExpr("post_count DESC, pt.tag ASC").
		Limit(limit).
		Scan(ctx, &rows)
	if err != nil {
		return nil, fmt.Errorf("scan: %w", err)
	}

	out := make([]api.Hashtag, len(rows))
	for i, r := range rows {
		out[i] = api.Hashtag{Tag: r.Tag, PostCount: r.PostCount}
	}
	return out, nil
}

// GetProfile returns the profile page aggregates for one username.
func (pg *Postgres) GetProfile(ctx context.Context, viewerID, username string) (api.Profile, error) {
	u := new(user)
	err := pg.bun.NewSelect().Model(u).Where("u.username = ?", username).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return api.Profile{}, api.ErrNotFound
	}
	if err != nil {
		return api.Profile{}, fmt.Errorf("scan: %w", err)
	}

	var counts struct {
		Posts     int  `bun:"post_count"`
		Followers int  `bun:"follower_count"`
		Following int  `bun:"following_count"`
		Follows   bool `bun:"viewer_follows"`
	}
	err = pg.bun.NewSelect().
		ColumnExpr("(SELECT count(*) FROM posts WHERE author_id = ?) AS post_count", u.ID).
		ColumnExpr("(SELECT count(*) FROM follows WHERE following_id = ?) AS follower_count", u.ID).
		ColumnExpr("(SELECT count(*) FROM follows WHERE follower_id = ?) AS following_count", u.ID).
		ColumnExpr("EXISTS (SELECT 1 FROM follows WHERE follower_id = ? AND following_id = ?) AS viewer_follows", viewerID, u.ID).
		Scan(ctx, &counts)
	if err != nil {
		return api.Profile{}, fmt.Errorf("scan counts: %w", err)
	}

	return api.Profile{
		Author:         u.apiAuthor(),
		PostCount:      counts.Posts,
		FollowerCount:  counts.Followers,
		FollowingCount: counts.Following,
		ViewerFollows:  counts.Follows,
	}, nil
}

// extractTags pulls the distinct lowercased hashtags out of a caption.
func extractTags(caption string) []string {
	var (
		tags []string
		seen = make(map[string]bool)
	)
	runes := []rune(caption)
	for i := 0; i < len(runes); i++ {
		if runes[i] != '#' {
			continue
		}
		j := i + 1
		for j < len(runes) && (unicode.IsLetter(runes[j]) || unicode.IsDigit(runes[j]) || runes[j] == '_') {
			j++
		}
		if j > i+1 {
			tag := strings.ToLower(string(runes[i+1 : j]))
			if !seen[tag] {
				seen[tag] = true
				tags = append(tags, tag)
			}
		}
		i = j - 1
	}
	return tags
}
