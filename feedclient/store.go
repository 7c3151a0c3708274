package feedclient

import "sync"

// A Patch is a partial update to one feed item. Nil fields are left
// untouched.
type Patch struct {
	Caption       *string
	LikeCount     *int
	CommentCount  *int
	LikedByViewer *bool
	SavedByViewer *bool
	Comments      *[]Comment
}

// Store is the ordered, identity-unique collection of feed items for
// one feed view. Items keep insertion order; identity uniqueness holds
// at all times.
//
// Subscribers are invoked after every mutation with a fresh snapshot
// and must not call back into the Store or its Feed synchronously.
type Store struct {
	mu      sync.Mutex
	items   []FeedItem
	index   map[string]int
	subs    map[int]func([]FeedItem)
	nextSub int
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{
		index: make(map[string]int),
		subs:  make(map[int]func([]FeedItem)),
	}
}

// Items returns a copy of the current list.
func (s *Store) Items() []FeedItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot()
}

// Get returns the item with the given identity.
func (s *Store) Get(id string) (FeedItem, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, ok := s.index[id]
	if !ok {
		return FeedItem{}, false
	}
	return cloneItem(s.items[i]), true
}

// Len returns the number of items.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// Append adds items to the tail, skipping any whose identity is already
// present, and reports how many were added. Appending the same page
// twice is therefore a no-op the second time.
func (s *Store) Append(items ...FeedItem) int {
	s.mu.Lock()
	added := 0
	for _, item := range items {
		if _, ok := s.index[item.ID]; ok {
			continue
		}
		s.index[item.ID] = len(s.items)
		s.items = append(s.items, cloneItem(item))
		added++
	}
	s.mu.Unlock()
	if added > 0 {
		s.notify()
	}
	return added
}

// ReplaceAll discards the current list in favor of items, used by a
// full feed refresh. Duplicate identities within items collapse to the
// first occurrence.
func (s *Store) ReplaceAll(items []FeedItem) {
	s.mu.Lock()
	s.items = s.items[:0]
	s.index = make(map[string]int, len(items))
	for _, item := range items {
		if _, ok := s.index[item.ID]; ok {
			continue
		}
		s.index[item.ID] = len(s.items)
		s.items = append(s.items, cloneItem(item))
	}
	s.mu.Unlock()
	s.notify()
}

// Patch merges the set fields of p into the item with the given
// identity. Patching an absent identity is a silent no-op; the item may
// have been removed concurrently.
func (s *Store) Patch(id string, p Patch) bool {
	s.mu.Lock()
	i, ok := s.index[id]
	if !ok {
		s.mu.Unlock()
		return false
	}
	item := &s.items[i]
	if p.Caption != nil {
		item.Caption = *p.Caption
	}
	if p.LikeCount != nil {
		item.LikeCount = *p.LikeCount
	}
	if p.CommentCount != nil {
		item.CommentCount = *p.CommentCount
	}
	if p.LikedByViewer != nil {
		item.LikedByViewer = *p.LikedByViewer
	}
	if p.SavedByViewer != nil {
		item.SavedByViewer = *p.SavedByViewer
	}
	if p.Comments != nil {
		item.Comments = append([]Comment(nil), (*p.Comments)...)
	}
	s.mu.Unlock()
	s.notify()
	return true
}

// Remove deletes the item and returns it along with the position it
// held, so a failed optimistic delete can restore it.
func (s *Store) Remove(id string) (FeedItem, int, bool) {
	s.mu.Lock()
	i, ok := s.index[id]
	if !ok {
		s.mu.Unlock()
		return FeedItem{}, 0, false
	}
	removed := s.items[i]
	s.items = append(s.items[:i], s.items[i+1:]...)
	delete(s.index, id)
	for j := i; j < len(s.items); j++ {
		s.index[s.items[j].ID] = j
	}
	s.mu.Unlock()
	s.notify()
	return removed, i, true
}

// InsertAt puts an item back at position i, clamped to the list bounds.
// Inserting an identity that is already present is a no-op.
func (s *Store) InsertAt(i int, item FeedItem) {
	s.mu.Lock()
	if _, ok := s.index[item.ID]; ok {
		s.mu.Unlock()
		return
	}
	if i < 0 {
		i = 0
	}
	if i > len(s.items) {
		i = len(s.items)
	}
	s.items = append(s.items, FeedItem{})
	copy(s.items[i+1:], s.items[i:])
	s.items[i] = cloneItem(item)
	for j := i; j < len(s.items); j++ {
		s.index[s.items[j].ID] = j
	}
	s.mu.Unlock()
	s.notify()
}

// Subscribe registers fn to run after every mutation. The returned
// function cancels the subscription.
func (s *Store) Subscribe(fn func(items []FeedItem)) (cancel func()) {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

func (s *Store) notify() {
	s.mu.Lock()
	if len(s.subs) == 0 {
		s.mu.Unlock()
		return
	}
	snap := s.snapshot()
	fns := make([]func([]FeedItem), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(snap)
	}
}

func (s *Store) snapshot() []FeedItem {
	out := make([]FeedItem, len(s.items))
	for i, item := range s.items {
		out[i] = cloneItem(item)
	}
	return out
}

func cloneItem(item FeedItem) FeedItem {
	item.Comments = append([]Comment(nil), item.Comments...)
	return item
}
