package conversation

import (
	"sort"

	"github.com/cubewin07/movie-explorer-sub000/internal/types"
)

// Store holds server-confirmed history as fetched pages, newest page first
// and each page newest first. Messages exposes the flattened chronological
// view; it is rebuilt and swapped as a whole on every change.
type Store struct {
	pages   []types.Page
	flat    []types.Message
	ids     map[string]struct{}
	hasMore bool
	cursor  string
	loaded  bool
}

func NewStore() *Store {
	return &Store{}
}

// Reset drops all history.
func (s *Store) Reset() {
	*s = Store{}
}

// Messages returns the chronological snapshot. Callers must not modify it.
func (s *Store) Messages() []types.Message {
	return s.flat
}

func (s *Store) Len() int { return len(s.flat) }

// HasMore reports whether older pages remain on the server.
func (s *Store) HasMore() bool { return s.hasMore }

// Cursor is the position to request the next older page from.
func (s *Store) Cursor() string { return s.cursor }

// Loaded reports whether the first page has arrived.
func (s *Store) Loaded() bool { return s.loaded }

// Contiguous reports whether page, a run of newest-first messages, reaches
// back to history already held. Merging a page that does not would leave a
// hole between it and the current newest message. A page with nothing
// older on the server is always contiguous.
func (s *Store) Contiguous(page types.Page) bool {
	if !s.loaded || len(s.flat) == 0 || !page.HasMore {
		return true
	}
	for _, msg := range page.Messages {
		if _, ok := s.ids[msg.ID]; ok {
			return true
		}
	}
	return false
}

// ApplyNewest merges a freshly fetched newest page. The page must be
// Contiguous. Messages from the
// previous newest page that fell off the end of the new one are kept.
func (s *Store) ApplyNewest(page types.Page) bool {
	if !s.loaded {
		s.pages = []types.Page{page}
		s.hasMore = page.HasMore
		s.cursor = page.NextCursor
		s.loaded = true
		return s.rebuild()
	}

	merged := types.Page{
		Messages:   append([]types.Message(nil), page.Messages...),
		HasMore:    s.pages[0].HasMore,
		NextCursor: s.pages[0].NextCursor,
	}
	seen := make(map[string]struct{}, len(page.Messages))
	for _, msg := range page.Messages {
		seen[msg.ID] = struct{}{}
	}
	for _, msg := range s.pages[0].Messages {
		if _, ok := seen[msg.ID]; !ok {
			merged.Messages = append(merged.Messages, msg)
		}
	}
	sortNewestFirst(merged.Messages)
	s.pages[0] = merged
	return s.rebuild()
}

// ApplyOlder appends a page fetched with Cursor at the old end.
func (s *Store) ApplyOlder(page types.Page) bool {
	if !s.loaded {
		return s.ApplyNewest(page)
	}
	s.pages = append(s.pages, page)
	s.hasMore = page.HasMore
	s.cursor = page.NextCursor
	return s.rebuild()
}

// rebuild flattens pages oldest first, drops repeated ids and reports
// whether the visible sequence changed.
func (s *Store) rebuild() bool {
	total := 0
	for _, page := range s.pages {
		total += len(page.Messages)
	}
	flat := make([]types.Message, 0, total)
	seen := make(map[string]struct{}, total)
	for p := len(s.pages) - 1; p >= 0; p-- {
		msgs := s.pages[p].Messages
		for i := len(msgs) - 1; i >= 0; i-- {
			msg := msgs[i]
			if _, ok := seen[msg.ID]; ok {
				continue
			}
			seen[msg.ID] = struct{}{}
			msg.Status = types.StatusConfirmed
			msg.Optimistic = false
			flat = append(flat, msg)
		}
	}
	sort.SliceStable(flat, func(i, j int) bool {
		return flat[i].CreatedAt.Before(flat[j].CreatedAt)
	})

	changed := !sameSequence(s.flat, flat)
	s.flat = flat
	s.ids = seen
	return changed
}

func sortNewestFirst(msgs []types.Message) {
	sort.SliceStable(msgs, func(i, j int) bool {
		return msgs[i].CreatedAt.After(msgs[j].CreatedAt)
	})
}

func sameSequence(a, b []types.Message) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].ID != b[i].ID || a[i].Text != b[i].Text {
			return false
		}
	}
	return true
}
