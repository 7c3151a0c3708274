package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/uptrace/bun"

	"github.com/glimmerapp/glimmer/api"
)

const (
	likeCountExpr    = "(SELECT count(*) FROM likes l WHERE l.post_id = post.id) AS like_count"
	commentCountExpr = "(SELECT count(*) FROM comments c WHERE c.post_id = post.id) AS comment_count"
	likedExpr        = "EXISTS (SELECT 1 FROM likes l WHERE l.post_id = post.id AND l.user_id = ?) AS liked_by_viewer"
	savedExpr        = "EXISTS (SELECT 1 FROM saves s WHERE s.post_id = post.id AND s.user_id = ?) AS saved_by_viewer"
)

func (pg *Postgres) selectPosts(posts *[]post, viewerID string) *bun.SelectQuery {
	return pg.bun.NewSelect().
		Model(posts).
		Relation("Author").
		ColumnExpr("post.*").
		ColumnExpr(likeCountExpr).
		ColumnExpr(commentCountExpr).
		ColumnExpr(likedExpr, viewerID).
		ColumnExpr(savedExpr, viewerID)
}

// ListPosts returns one feed page in reverse-chronological order, ties
// broken by id, so consecutive pages never skip or duplicate a post
// under concurrent inserts. The second return value reports whether
// more posts exist past this page.
func (pg *Postgres) ListPosts(ctx context.Context, viewerID string, limit, offset int, authorID string) ([]api.Post, bool, error) {
	var posts []post
	q := pg.selectPosts(&posts, viewerID).
		OrderExpr("post.created_at DESC, post.id DESC").
		Limit(limit + 1).
		Offset(offset)

	if authorID != "" {
		q = q.Where("post.author_id = ?", authorID)
	}

	if err := q.Scan(ctx); err != nil {
		return nil, false, fmt.Errorf("scan: %w", err)
	}

	hasMore := len(posts) > limit
	if hasMore {
		posts = posts[:limit]
	}
	out := make([]api.Post, len(posts))
	for i, p := range posts {
		out[i] = p.apiPost()
	}
	return out, hasMore, nil
}

// GetPost returns a single post with viewer-relative state.
func (pg *Postgres) GetPost(ctx context.Context, viewerID, postID string) (api.Post, error) {
	var posts []post
	err := pg.selectPosts(&posts, viewerID).
		Where("post.id = ?", postID).
		Scan(ctx)
	if err != nil {
		return api.Post{}, fmt.Errorf("scan: %w", err)
	}
	if len(posts) == 0 {
		return api.Post{}, api.ErrNotFound
	}
	return posts[0].apiPost(), nil
}

// InsertPost inserts a post and indexes the hashtags in its caption.
// The returned post holds auto generated fields, such as the post id.
func (pg *Postgres) InsertPost(ctx context.Context, p api.Post) (api.Post, error) {
	m := &post{
		AuthorID:  p.AuthorID,
		MediaURL:  p.MediaURL,
		MediaType: p.MediaType,
		Caption:   p.Caption,
	}

	err := pg.bun.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewInsert().Model(m).Returning("*").Exec(ctx); err != nil {
			return fmt.Errorf("insert post: %w", mapConstraintErr(err))
		}
		tags := extractTags(m.Caption)
		if len(tags) > 0 {
			rows := make([]postTag, len(tags))
			for i, tag := range tags {
				rows[i] = postTag{Tag: tag, PostID: m.ID}
			}
			if _, err := tx.NewInsert().Model(&rows).Exec(ctx); err != nil {
				return fmt.Errorf("insert tags: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return api.Post{}, err
	}

	author := new(user)
	if err := pg.bun.NewSelect().Model(author).Where("u.id = ?", m.AuthorID).Scan(ctx); err != nil {
		return api.Post{}, fmt.Errorf("load author: %w", err)
	}
	m.Author = author
	return m.apiPost(), nil
}

// UpdatePostCaption edits a post's caption and reindexes its hashtags.
// Only the author may edit.
func (pg *Postgres) UpdatePostCaption(ctx context.Context, postID, authorID, caption string) (api.Post, error) {
	err := pg.bun.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		res, err := tx.NewUpdate().
			Model((*post)(nil)).
			Set("caption = ?", caption).
			Where("id = ?", postID).
			Where("author_id = ?", authorID).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("update: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("rows affected: %w", err)
		}
		if n == 0 {
			return pg.missingOrForbidden(ctx, postID)
		}

		if _, err := tx.NewDelete().Model((*postTag)(nil)).Where("post_id = ?", postID).Exec(ctx); err != nil {
			return fmt.Errorf("delete tags: %w", err)
		}
		tags := extractTags(caption)
		if len(tags) > 0 {
			rows := make([]postTag, len(tags))
			for i, tag := range tags {
				rows[i] = postTag{Tag: tag, PostID: postID}
			}
			if _, err := tx.NewInsert().Model(&rows).Exec(ctx); err != nil {
				return fmt.Errorf("insert tags: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return api.Post{}, err
	}
	return pg.GetPost(ctx, authorID, postID)
}

// DeletePost deletes a post. Only the author may delete; dependent
// comments, likes, saves and tags go with it via ON DELETE CASCADE.
func (pg *Postgres) DeletePost(ctx context.Context, postID, authorID string) error {
	res, err := pg.bun.NewDelete().
		Model((*post)(nil)).
		Where("id = ?", postID).
		Where("author_id = ?", authorID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("delete: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return pg.missingOrForbidden(ctx, postID)
	}
	return nil
}

// missingOrForbidden distinguishes a post that does not exist from one
// owned by someone else.
func (pg *Postgres) missingOrForbidden(ctx context.Context, postID string) error {
	exists, err := pg.bun.NewSelect().
		Model((*post)(nil)).
		Where("id = ?", postID).
		Exists(ctx)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("exists: %w", err)
	}
	if exists {
		return api.ErrForbidden
	}
	return api.ErrNotFound
}

// ViewerStates returns the liked/saved flags of the given posts for one
// viewer.
func (pg *Postgres) ViewerStates(ctx context.Context, viewerID string, postIDs []string) (map[string]api.ViewerState, error) {
	out := make(map[string]api.ViewerState, len(postIDs))
	if len(postIDs) == 0 || viewerID == "" {
		return out, nil
	}

	var likes []like
	err := pg.bun.NewSelect().
		Model(&likes).
		Where("l.user_id = ?", viewerID).
		Where("l.post_id IN (?)", bun.In(postIDs)).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("scan likes: %w", err)
	}
	for _, l := range likes {
		st := out[l.PostID]
		st.Liked = true
		out[l.PostID] = st
	}

	var saves []save
	err = pg.bun.NewSelect().
		Model(&saves).
		Where("s.user_id = ?", viewerID).
		Where("s.post_id IN (?)", bun.In(postIDs)).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("scan saves: %w", err)
	}
	for _, s := range saves {
		st := out[s.PostID]
		st.Saved = true
		out[s.PostID] = st
	}

	return out, nil
}
