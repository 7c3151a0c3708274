package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/uptrace/bun"

	"github.com/glimmerapp/glimmer/api"
)

// ListComments returns comments for a post in creation order, ties
// broken by id. A limit of zero means all comments.
func (pg *Postgres) ListComments(ctx context.Context, postID string, limit int) ([]api.Comment, error) {
	var comments []comment
	q := pg.bun.NewSelect().
		Model(&comments).
		Relation("Author").
		Where("c.post_id = ?", postID).
		OrderExpr("c.created_at ASC, c.id ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("scan: %w", err)
	}

	out := make([]api.Comment, len(comments))
	for i, c := range comments {
		out[i] = c.apiComment()
	}
	return out, nil
}

// InsertComment inserts a comment. The returned comment holds auto
// generated fields, such as the comment id.
func (pg *Postgres) InsertComment(ctx context.Context, c api.Comment) (api.Comment, error) {
	m := &comment{
		PostID:   c.PostID,
		AuthorID: c.AuthorID,
		Text:     c.Text,
	}
	if _, err := pg.bun.NewInsert().Model(m).Returning("*").Exec(ctx); err != nil {
		return api.Comment{}, fmt.Errorf("insert: %w", mapConstraintErr(err))
	}

	author := new(user)
	if err := pg.bun.NewSelect().Model(author).Where("u.id = ?", m.AuthorID).Scan(ctx); err != nil {
		return api.Comment{}, fmt.Errorf("load author: %w", err)
	}
	m.Author = author
	return m.apiComment(), nil
}

// DeleteComment deletes a comment. The comment author and the post
// author may both delete. Returns the id of the post the comment
// belonged to.
func (pg *Postgres) DeleteComment(ctx context.Context, commentID, authorID string) (string, error) {
	m := new(comment)
	err := pg.bun.NewSelect().
		Model(m).
		Relation("Post").
		Where("c.id = ?", commentID).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return "", api.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("scan: %w", err)
	}
	if m.AuthorID != authorID && (m.Post == nil || m.Post.AuthorID != authorID) {
		return "", api.ErrForbidden
	}

	if _, err := pg.bun.NewDelete().Model((*comment)(nil)).Where("id = ?", commentID).Exec(ctx); err != nil {
		return "", fmt.Errorf("delete: %w", err)
	}
	return m.PostID, nil
}

// InsertLike records that userID likes postID. A duplicate like answers
// ErrAlreadyExists.
func (pg *Postgres) InsertLike(ctx context.Context, postID, userID string) error {
	m := &like{PostID: postID, UserID: userID}
	if _, err := pg.bun.NewInsert().Model(m).Exec(ctx); err != nil {
		return fmt.Errorf("insert: %w", mapConstraintErr(err))
	}
	return nil
}

// DeleteLike removes a like. A like that never existed answers
// ErrNotFound.
func (pg *Postgres) DeleteLike(ctx context.Context, postID, userID string) error {
	return pg.deleteRelation(ctx, (*like)(nil), "post_id", postID, "user_id", userID)
}

// InsertSave records that userID saved postID.
func (pg *Postgres) InsertSave(ctx context.Context, postID, userID string) error {
	m := &save{PostID: postID, UserID: userID}
	if _, err := pg.bun.NewInsert().Model(m).Exec(ctx); err != nil {
		return fmt.Errorf("insert: %w", mapConstraintErr(err))
	}
	return nil
}

// DeleteSave removes a save.
func (pg *Postgres) DeleteSave(ctx context.Context, postID, userID string) error {
	return pg.deleteRelation(ctx, (*save)(nil), "post_id", postID, "user_id", userID)
}

// IsSaved reports whether userID has saved postID.
func (pg *Postgres) IsSaved(ctx context.Context, postID, userID string) (bool, error) {
	exists, err := pg.bun.NewSelect().
		Model((*save)(nil)).
		Where("post_id = ?", postID).
		Where("user_id = ?", userID).
		Exists(ctx)
	if err != nil {
		return false, fmt.Errorf("exists: %w", err)
	}
	return exists, nil
}

// ListSavedPosts returns one page of the viewer's saved posts, most
// recently saved first.
func (pg *Postgres) ListSavedPosts(ctx context.Context, viewerID string, limit, offset int) ([]api.Post, bool, error) {
	var posts []post
	err := pg.selectPosts(&posts, viewerID).
		Join("JOIN saves AS sv ON sv.post_id = post.id").
		Where("sv.user_id = ?", viewerID).
		OrderExpr("sv.created_at DESC, post.id DESC").
		Limit(limit + 1).
		Offset(offset).
		Scan(ctx)
	if err != nil {
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

// InsertFollow records that followerID follows followingID.
func (pg *Postgres) InsertFollow(ctx context.Context, followerID, followingID string) error {
	m := &follow{FollowerID: followerID, FollowingID: followingID}
	if _, err := pg.bun.NewInsert().Model(m).Exec(ctx); err != nil {
		return fmt.Errorf("insert: %w", mapConstraintErr(err))
	}
	return nil
}

// DeleteFollow removes a follow relation.
func (pg *Postgres) DeleteFollow(ctx context.Context, followerID, followingID string) error {
	return pg.deleteRelation(ctx, (*follow)(nil), "follower_id", followerID, "following_id", followingID)
}

// deleteRelation deletes one row of a two-column relation table and
// maps a zero row count onto ErrNotFound.
func (pg *Postgres) deleteRelation(ctx context.Context, model any, colA, valA, colB, valB string) error {
	res, err := pg.bun.NewDelete().
		Model(model).
		Where("? = ?", bun.Ident(colA), valA).
		Where("? = ?", bun.Ident(colB), valB).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("delete: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return api.ErrNotFound
	}
	return nil
}
