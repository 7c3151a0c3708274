package feedclient

import (
	"context"
	"log/slog"
	"sync"
)

const defaultPageSize = 10

// Options configures a Feed.
type Options struct {
	// PageSize is the fetch batch size. Zero means 10.
	PageSize int
	// UserID restricts the feed to one author's posts, as on a profile
	// page. Empty means the home feed.
	UserID string
}

// Feed ties a Store to the API: it pages the feed forward, keeps the
// scroll trigger debounced, and applies user actions optimistically,
// reconciling them once the server answers.
//
// Methods are safe for concurrent use; completion callbacks and user
// events may interleave freely.
type Feed struct {
	client   *Client
	store    *Store
	logger   *slog.Logger
	pageSize int
	userID   string

	mu         sync.Mutex
	offset     int
	hasMore    bool
	loading    bool
	failed     bool
	loadedOnce bool
	intents    map[intentKey]*intent
	following  map[string]bool
}

// NewFeed returns a feed over the given client. Nothing is fetched
// until LoadInitial.
func NewFeed(client *Client, logger *slog.Logger, opts Options) *Feed {
	size := opts.PageSize
	if size <= 0 {
		size = defaultPageSize
	}
	return &Feed{
		client:    client,
		store:     NewStore(),
		logger:    logger,
		pageSize:  size,
		userID:    opts.UserID,
		hasMore:   true,
		intents:   make(map[intentKey]*intent),
		following: make(map[string]bool),
	}
}

// Store exposes the feed's item list for rendering and subscription.
func (f *Feed) Store() *Store {
	return f.store
}

// HasMore reports whether the server indicated more items past the
// loaded pages.
func (f *Feed) HasMore() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.hasMore
}

// LoadInitial fetches the first page, discarding any prior state.
func (f *Feed) LoadInitial(ctx context.Context) error {
	_, err := f.fetch(ctx, true, true)
	return err
}

// Refresh re-fetches the feed from the top, the pull-to-refresh
// equivalent of LoadInitial.
func (f *Feed) Refresh(ctx context.Context) error {
	_, err := f.fetch(ctx, true, true)
	return err
}

// LoadNext explicitly fetches the next page. It clears the failure
// latch, so it doubles as the manual retry after a failed trigger. A
// fetch already in flight makes this a no-op.
func (f *Feed) LoadNext(ctx context.Context) error {
	f.mu.Lock()
	f.failed = false
	f.mu.Unlock()
	_, err := f.fetch(ctx, false, true)
	return err
}

// TriggerNext is the scroll-sentinel entry point. It starts at most one
// fetch per approach to the end of the list: while a fetch is in
// flight, further triggers are dropped, and after a failed fetch the
// trigger stays disarmed until LoadNext retries. Reports whether a
// fetch actually ran.
func (f *Feed) TriggerNext(ctx context.Context) (bool, error) {
	return f.fetch(ctx, false, false)
}

// fetch runs one page fetch. Fetches for the same feed are strictly
// sequential: the loading flag admits one at a time, and the offset
// only advances once a page has landed.
func (f *Feed) fetch(ctx context.Context, replace, explicit bool) (bool, error) {
	f.mu.Lock()
	if f.loading {
		f.mu.Unlock()
		return false, nil
	}
	if !explicit && f.failed {
		f.mu.Unlock()
		return false, nil
	}
	if !replace && f.loadedOnce && !f.hasMore {
		f.mu.Unlock()
		return false, nil
	}
	cur := Cursor{Offset: f.offset, Limit: f.pageSize}
	if replace {
		cur.Offset = 0
	}
	f.loading = true
	f.mu.Unlock()

	page, err := f.client.FetchPage(ctx, cur, f.userID)

	f.mu.Lock()
	f.loading = false
	if err != nil {
		f.failed = true
		f.mu.Unlock()
		return true, err
	}
	f.failed = false
	f.loadedOnce = true
	f.hasMore = page.HasMore
	f.offset = cur.Offset + len(page.Items)
	f.mu.Unlock()

	if replace {
		f.store.ReplaceAll(page.Items)
	} else {
		f.store.Append(page.Items...)
	}
	return true, nil
}
