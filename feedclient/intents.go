package feedclient

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	commentPreviewSize = 3
	maxCommentLen      = 500
)

type actionKind int

const (
	actionLike actionKind = iota
	actionSave
	actionFollow
)

// An intentKey identifies the one toggle slot an entity has per action.
type intentKey struct {
	entityID string
	kind     actionKind
}

// An intent is one in-flight toggle. Further toggles on the same key
// while the call is out only flip desired and bump seq; the driver
// issues at most one trailing call once the current one settles.
type intent struct {
	seq     int
	desired bool
	done    chan struct{}
	err     error
}

// ToggleLike flips the viewer's like on a post. The store updates
// immediately; a hard failure rolls the flag and count back. A 409
// means the server already held the desired state and counts as
// success. Rapid repeated toggles coalesce: at most one request per
// post is in flight, with one trailing request when the end state
// changed mid-call.
func (f *Feed) ToggleLike(ctx context.Context, postID string) error {
	return f.toggle(ctx, intentKey{entityID: postID, kind: actionLike})
}

// ToggleSave flips whether the post is in the viewer's saved
// collection, with the same optimistic and coalescing behavior as
// ToggleLike.
func (f *Feed) ToggleSave(ctx context.Context, postID string) error {
	return f.toggle(ctx, intentKey{entityID: postID, kind: actionSave})
}

// ToggleFollow flips whether the viewer follows userID. The local
// follow state must have been seeded with SetFollowing first, or it
// defaults to not following.
func (f *Feed) ToggleFollow(ctx context.Context, userID string) error {
	return f.toggle(ctx, intentKey{entityID: userID, kind: actionFollow})
}

// SetFollowing seeds the local follow state, typically from a loaded
// profile.
func (f *Feed) SetFollowing(userID string, following bool) {
	f.mu.Lock()
	f.following[userID] = following
	f.mu.Unlock()
}

// IsFollowing reports the local follow state for userID.
func (f *Feed) IsFollowing(userID string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.following[userID]
}

func (f *Feed) toggle(ctx context.Context, key intentKey) error {
	for {
		f.mu.Lock()
		if in, ok := f.intents[key]; ok {
			in.seq++
			in.desired = !in.desired
			desired := in.desired
			done := in.done
			f.mu.Unlock()
			f.applyState(key, desired)
			select {
			case <-done:
				f.mu.Lock()
				err := in.err
				f.mu.Unlock()
				return err
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		f.mu.Unlock()

		cur := f.currentState(key)
		desired := !cur

		f.mu.Lock()
		if _, ok := f.intents[key]; ok {
			// Raced with another toggle; join it instead.
			f.mu.Unlock()
			continue
		}
		in := &intent{seq: 1, desired: desired, done: make(chan struct{})}
		f.intents[key] = in
		f.mu.Unlock()

		f.applyState(key, desired)
		return f.driveToggle(ctx, key, in, cur)
	}
}

// driveToggle issues calls until the settled server state matches the
// latest desired state. An answer whose seq no longer matches is stale:
// the user flipped again while it was in flight, and it must not
// override the newer intent's optimistic state.
func (f *Feed) driveToggle(ctx context.Context, key intentKey, in *intent, prev bool) error {
	for {
		f.mu.Lock()
		seq := in.seq
		desired := in.desired
		f.mu.Unlock()

		err := f.callToggle(ctx, key, desired)
		if errors.Is(err, ErrConflict) {
			// The server already holds the desired state.
			err = nil
		}

		f.mu.Lock()
		if seq != in.seq {
			if err == nil && in.desired == desired {
				// The trailing flips landed back on the state the
				// server now holds; nothing more to send.
				f.settleLocked(key, in, nil)
				f.mu.Unlock()
				return nil
			}
			f.mu.Unlock()
			continue
		}
		f.settleLocked(key, in, err)
		f.mu.Unlock()

		if err != nil {
			f.applyState(key, prev)
			f.logger.Warn("toggle failed, rolled back",
				"entity", key.entityID, "error", err)
		}
		return err
	}
}

func (f *Feed) settleLocked(key intentKey, in *intent, err error) {
	in.err = err
	delete(f.intents, key)
	close(in.done)
}

func (f *Feed) callToggle(ctx context.Context, key intentKey, desired bool) error {
	switch key.kind {
	case actionLike:
		if desired {
			return f.client.Like(ctx, key.entityID)
		}
		return f.client.Unlike(ctx, key.entityID)
	case actionSave:
		if desired {
			return f.client.Save(ctx, key.entityID)
		}
		return f.client.Unsave(ctx, key.entityID)
	default:
		if desired {
			return f.client.Follow(ctx, key.entityID)
		}
		return f.client.Unfollow(ctx, key.entityID)
	}
}

func (f *Feed) currentState(key intentKey) bool {
	switch key.kind {
	case actionLike:
		item, _ := f.store.Get(key.entityID)
		return item.LikedByViewer
	case actionSave:
		item, _ := f.store.Get(key.entityID)
		return item.SavedByViewer
	default:
		f.mu.Lock()
		defer f.mu.Unlock()
		return f.following[key.entityID]
	}
}

// applyState moves the local view of a toggle to desired. Applying a
// state that already holds is a no-op, so counts never drift.
func (f *Feed) applyState(key intentKey, desired bool) {
	switch key.kind {
	case actionLike:
		item, ok := f.store.Get(key.entityID)
		if !ok || item.LikedByViewer == desired {
			return
		}
		count := item.LikeCount
		if desired {
			count++
		} else {
			count--
		}
		f.store.Patch(key.entityID, Patch{LikedByViewer: &desired, LikeCount: &count})
	case actionSave:
		item, ok := f.store.Get(key.entityID)
		if !ok || item.SavedByViewer == desired {
			return
		}
		f.store.Patch(key.entityID, Patch{SavedByViewer: &desired})
	default:
		f.mu.Lock()
		f.following[key.entityID] = desired
		f.mu.Unlock()
	}
}

// AddComment appends a pending comment to the item's preview and bumps
// its count, then swaps in the server's copy once it answers. On
// failure the pending comment is removed and the count restored.
func (f *Feed) AddComment(ctx context.Context, postID, text string) (Comment, error) {
	if strings.TrimSpace(text) == "" {
		return Comment{}, fmt.Errorf("%w: empty comment", ErrValidation)
	}
	if len(text) > maxCommentLen {
		return Comment{}, fmt.Errorf("%w: comment exceeds %d characters", ErrValidation, maxCommentLen)
	}
	item, ok := f.store.Get(postID)
	if !ok {
		return Comment{}, fmt.Errorf("%w: post %s", ErrNotFound, postID)
	}

	tmp := Comment{
		ID:        "tmp-" + uuid.NewString(),
		PostID:    postID,
		Text:      text,
		CreatedAt: time.Now(),
		Pending:   true,
	}
	comments := append(append([]Comment(nil), item.Comments...), tmp)
	count := item.CommentCount + 1
	f.store.Patch(postID, Patch{Comments: &comments, CommentCount: &count})

	created, err := f.client.CreateComment(ctx, postID, text)

	cur, ok := f.store.Get(postID)
	if !ok {
		// The post was removed mid-flight; nothing to reconcile.
		return created, err
	}
	if err != nil {
		rest := dropComment(cur.Comments, tmp.ID)
		n := cur.CommentCount - 1
		f.store.Patch(postID, Patch{Comments: &rest, CommentCount: &n})
		return Comment{}, err
	}
	swapped := swapComment(cur.Comments, tmp.ID, created)
	f.store.Patch(postID, Patch{Comments: &swapped})
	return created, nil
}

// DeleteComment removes a comment, dropping it from the preview and
// count immediately. A 404 means it was already gone and counts as
// success; any other failure restores the comment.
func (f *Feed) DeleteComment(ctx context.Context, postID, commentID string) error {
	item, ok := f.store.Get(postID)
	if !ok {
		return fmt.Errorf("%w: post %s", ErrNotFound, postID)
	}
	var removed *Comment
	for i := range item.Comments {
		if item.Comments[i].ID == commentID {
			c := item.Comments[i]
			removed = &c
			break
		}
	}
	rest := dropComment(item.Comments, commentID)
	count := item.CommentCount - 1
	if count < 0 {
		count = 0
	}
	f.store.Patch(postID, Patch{Comments: &rest, CommentCount: &count})

	err := f.client.DeleteComment(ctx, commentID)
	if errors.Is(err, ErrNotFound) {
		err = nil
	}
	if err == nil {
		return nil
	}

	cur, ok := f.store.Get(postID)
	if !ok {
		return err
	}
	restoredCount := cur.CommentCount + 1
	p := Patch{CommentCount: &restoredCount}
	if removed != nil {
		restored := append(append([]Comment(nil), cur.Comments...), *removed)
		sort.SliceStable(restored, func(i, j int) bool {
			return restored[i].CreatedAt.Before(restored[j].CreatedAt)
		})
		p.Comments = &restored
	}
	f.store.Patch(postID, p)
	return err
}

// DeletePost removes the viewer's own post from the feed immediately.
// A 404 means it was already deleted and counts as success; any other
// failure puts the item back where it was.
func (f *Feed) DeletePost(ctx context.Context, postID string) error {
	removed, pos, ok := f.store.Remove(postID)

	err := f.client.DeletePost(ctx, postID)
	if errors.Is(err, ErrNotFound) {
		err = nil
	}
	if err != nil && ok {
		f.store.InsertAt(pos, removed)
	}
	return err
}

// RefreshCommentPreview loads the first few comments of a post into its
// preview. Failures leave the current preview in place.
func (f *Feed) RefreshCommentPreview(ctx context.Context, postID string) {
	comments, err := f.client.ListComments(ctx, postID, commentPreviewSize)
	if err != nil {
		f.logger.Debug("comment preview refresh failed",
			"post_id", postID, "error", err)
		return
	}
	f.store.Patch(postID, Patch{Comments: &comments})
}

func dropComment(comments []Comment, id string) []Comment {
	out := make([]Comment, 0, len(comments))
	for _, c := range comments {
		if c.ID != id {
			out = append(out, c)
		}
	}
	return out
}

func swapComment(comments []Comment, id string, with Comment) []Comment {
	out := append([]Comment(nil), comments...)
	for i := range out {
		if out[i].ID == id {
			out[i] = with
			return out
		}
	}
	return append(out, with)
}
