package conversation

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/cubewin07/movie-explorer-sub000/internal/types"
)

// ErrNoConversation is returned when no conversation is open.
var ErrNoConversation = errors.New("no conversation open")

// maxGapPages bounds how far a refresh pages back looking for history it
// already holds.
const maxGapPages = 10

// Fetcher loads one page of confirmed history, newest first. An empty
// cursor requests the newest page.
type Fetcher interface {
	FetchPage(ctx context.Context, conversationID, cursor string) (types.Page, error)
}

// Transport is the conversation backend the session talks to.
type Transport interface {
	Fetcher
	Sender
}

// Options configure a Session. Zero values fall back to package defaults.
type Options struct {
	SelfID      string
	Clock       Clock
	Loop        Loop
	Viewport    Viewport
	Logger      *zap.Logger
	Location    *time.Location
	SendTimeout time.Duration
	Cooldown    time.Duration
	MaxLength   int
	ClusterGap  time.Duration
	MatchWindow time.Duration
	Scroll      ScrollOptions
	// OnChange runs on the loop whenever the grouped view may have changed.
	OnChange func()
}

// Session owns the state of the open conversation. All methods must be
// called from the goroutine that drains opts.Loop.
type Session struct {
	transport Transport
	opts      Options
	log       *zap.Logger

	sched      *Scheduler
	store      *Store
	queue      *PendingQueue
	reconciler *Reconciler
	send       *SendController
	scroll     *ScrollCoordinator

	conversationID string
	epoch          uint64
	ctx            context.Context
	cancel         context.CancelFunc

	refreshing   bool
	refreshAgain bool
	loadErr      error
	presence     map[string]types.Presence
}

func NewSession(transport Transport, opts Options) *Session {
	if opts.Clock == nil {
		opts.Clock = SystemClock()
	}
	if opts.Loop == nil {
		opts.Loop = NewChanLoop(0)
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	log := opts.Logger.Named("conversation")

	sched := NewScheduler(opts.Clock, opts.Loop)
	queue := NewPendingQueue(opts.Clock)
	s := &Session{
		transport:  transport,
		opts:       opts,
		log:        log,
		sched:      sched,
		store:      NewStore(),
		queue:      queue,
		reconciler: NewReconciler(opts.MatchWindow, log),
		scroll:     NewScrollCoordinator(opts.Viewport, sched, opts.Scroll, log),
		ctx:        context.Background(),
		presence:   make(map[string]types.Presence),
	}
	s.send = NewSendController(opts.Clock, opts.Loop, sched, queue, transport, opts.SelfID, SendOptions{
		Timeout:   opts.SendTimeout,
		Cooldown:  opts.Cooldown,
		MaxLength: opts.MaxLength,
	}, log)
	s.send.OnChange(s.changed)
	return s
}

// ConversationID is the open conversation, or "".
func (s *Session) ConversationID() string { return s.conversationID }

// Scroll exposes the coordinator to the rendering layer.
func (s *Session) Scroll() *ScrollCoordinator { return s.scroll }

// Store exposes confirmed history read-only.
func (s *Session) Store() *Store { return s.store }

// Pending exposes the pending queue read-only.
func (s *Session) Pending() []types.Message { return s.queue.Entries() }

// Open switches to conversationID. Everything tied to the previous
// conversation is cancelled before the first page is requested.
func (s *Session) Open(conversationID string) {
	s.epoch++
	if s.cancel != nil {
		s.cancel()
	}
	s.ctx, s.cancel = context.WithCancel(context.Background())

	s.sched.CancelAll()
	s.send.Reset(s.ctx, conversationID)
	s.queue.Reset(conversationID)
	s.store.Reset()
	s.reconciler.Reset()
	s.scroll.Reset()
	s.conversationID = conversationID
	s.refreshing = false
	s.refreshAgain = false
	s.loadErr = nil

	s.log.Debug("conversation opened", zap.String("conversation", conversationID), zap.Uint64("epoch", s.epoch))
	s.changed()
	s.fetchNewest()
}

// Close cancels all outstanding work.
func (s *Session) Close() {
	s.epoch++
	if s.cancel != nil {
		s.cancel()
	}
	s.sched.CancelAll()
	s.send.Reset(context.Background(), "")
}

// Refresh re-fetches the newest page. Poll ticks and push notifications
// both land here; overlapping calls are coalesced.
func (s *Session) Refresh() {
	if s.conversationID == "" {
		return
	}
	s.fetchNewest()
}

func (s *Session) fetchNewest() {
	if s.refreshing {
		s.refreshAgain = true
		return
	}
	s.refreshing = true
	s.fetchNewestRun("", types.Page{}, 1)
}

// fetchNewestRun fetches the page at cursor and appends it to run, the
// newest-first messages gathered so far in this refresh. It keeps paging
// back until run reaches history already in the store, so a burst longer
// than one page leaves no hole. After maxGapPages the store is reloaded
// from run instead.
func (s *Session) fetchNewestRun(cursor string, run types.Page, depth int) {
	epoch, ctx, id := s.epoch, s.ctx, s.conversationID
	go func() {
		page, err := s.transport.FetchPage(ctx, id, cursor)
		s.opts.Loop.Post(func() {
			if epoch != s.epoch {
				return
			}
			if err != nil {
				s.refreshing = false
				if !s.store.Loaded() {
					s.loadErr = err
					s.changed()
				}
				s.log.Warn("fetch newest page failed", zap.String("conversation", id), zap.Error(err))
				s.refreshDone()
				return
			}

			run.Messages = append(run.Messages, page.Messages...)
			run.HasMore = page.HasMore
			run.NextCursor = page.NextCursor
			if !s.store.Contiguous(run) {
				if depth < maxGapPages && run.NextCursor != "" {
					s.fetchNewestRun(run.NextCursor, run, depth+1)
					return
				}
				s.log.Warn("history gap not closed, reloading",
					zap.String("conversation", id), zap.Int("pages", depth))
				s.store.Reset()
			}
			s.refreshing = false
			s.applyNewest(run)
			s.refreshDone()
		})
	}()
}

func (s *Session) refreshDone() {
	if s.refreshAgain {
		s.refreshAgain = false
		s.fetchNewest()
	}
}

func (s *Session) applyNewest(page types.Page) {
	if s.store.ApplyNewest(page) || s.queue.Len() > 0 {
		s.storeChanged()
	}
}

// LoadOlder requests the next older page and reports whether a fetch began.
func (s *Session) LoadOlder() bool {
	if s.conversationID == "" || !s.store.Loaded() || !s.store.HasMore() {
		return false
	}
	if !s.scroll.BeginPrepend() {
		return false
	}
	epoch, ctx, id, cursor := s.epoch, s.ctx, s.conversationID, s.store.Cursor()
	go func() {
		page, err := s.transport.FetchPage(ctx, id, cursor)
		s.opts.Loop.Post(func() {
			if epoch != s.epoch {
				return
			}
			if err != nil {
				s.scroll.AbortPrepend()
				s.loadErr = err
				s.log.Warn("fetch older page failed", zap.String("conversation", id), zap.Error(err))
				s.changed()
				return
			}
			if !s.store.ApplyOlder(page) {
				s.scroll.AbortPrepend()
				s.changed()
				return
			}
			s.scroll.PrependApplied()
			s.storeChanged()
		})
	}()
	return true
}

// OnScroll forwards a viewport scroll event and starts pagination when the
// reader nears the top.
func (s *Session) OnScroll() {
	if s.scroll.OnScroll() {
		s.LoadOlder()
	}
}

func (s *Session) storeChanged() {
	s.reconciler.Reconcile(s.store.Messages(), s.queue, s.send)
	s.changed()
}

func (s *Session) changed() {
	if s.opts.OnChange != nil {
		s.opts.OnChange()
	}
}

// Submit sends text in the open conversation. See SendController.Submit.
func (s *Session) Submit(text string) (string, error) {
	if s.conversationID == "" {
		return "", ErrNoConversation
	}
	id, err := s.send.Submit(text)
	if id != "" {
		s.changed()
	}
	return id, err
}

// Retry resends a failed entry.
func (s *Session) Retry(tempID string) (string, error) {
	id, err := s.send.Retry(tempID)
	if id != "" {
		s.changed()
	}
	return id, err
}

// Groups is the merged, grouped view for rendering.
func (s *Session) Groups() []types.Group {
	return Group(s.store.Messages(), s.queue.Entries(), GroupOptions{
		Location:   s.opts.Location,
		ClusterGap: s.opts.ClusterGap,
		SelfID:     s.opts.SelfID,
	})
}

// MessageCount is the length of the merged sequence.
func (s *Session) MessageCount() int {
	return s.store.Len() + s.queue.Len()
}

// LastOptimistic is the most recent pending entry, for the inline
// sending/failed banner.
func (s *Session) LastOptimistic() (types.Message, bool) {
	return s.queue.Last()
}

// Banner is the active send error surface.
func (s *Session) Banner() (Banner, bool) {
	return s.send.Banner()
}

func (s *Session) DismissBanner() {
	s.send.DismissBanner()
	s.changed()
}

// LoadError is set when history could not be loaded.
func (s *Session) LoadError() error {
	return s.loadErr
}

// Loading reports whether the first page is still outstanding.
func (s *Session) Loading() bool {
	return s.conversationID != "" && !s.store.Loaded() && s.loadErr == nil
}

// SetPresence records a presence update for display.
func (s *Session) SetPresence(p types.Presence) {
	s.presence[p.UserID] = p
	s.changed()
}

// Presence returns the known presence of userID.
func (s *Session) Presence(userID string) (types.Presence, bool) {
	p, ok := s.presence[userID]
	return p, ok
}
