package conversation

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/cubewin07/movie-explorer-sub000/internal/core"
	"github.com/cubewin07/movie-explorer-sub000/internal/types"
)

const (
	DefaultSendTimeout = 8 * time.Second
	DefaultCooldown    = 400 * time.Millisecond
)

var (
	// ErrSendTimeout marks an entry that saw no confirmation in time.
	ErrSendTimeout = errors.New("message was not confirmed in time")
	// ErrNotRetryable is returned by Retry for ids that are not failed entries.
	ErrNotRetryable = errors.New("message cannot be retried")
)

// Sender delivers a message body. A nil error means the request was
// accepted, not that the message is in confirmed history.
type Sender interface {
	SendMessage(ctx context.Context, conversationID, text, clientID string) error
}

// SendOptions configure a SendController.
type SendOptions struct {
	Timeout   time.Duration
	Cooldown  time.Duration
	MaxLength int
}

// Banner is the error surface raised for a failed entry.
type Banner struct {
	TempID string
	Err    error
	At     time.Time
}

// SendController turns user input into pending entries and watches each one
// until it is confirmed, rejected or timed out.
type SendController struct {
	clock   Clock
	loop    Loop
	sched   *Scheduler
	queue   *PendingQueue
	sender  Sender
	opts    SendOptions
	limiter *rate.Limiter
	log     *zap.Logger

	selfID         string
	conversationID string
	ctx            context.Context
	gen            uint64

	inFlight string
	timers   map[string]*Task
	sends    map[string]context.CancelFunc
	banner   *Banner
	onChange func()
}

func NewSendController(clock Clock, loop Loop, sched *Scheduler, queue *PendingQueue, sender Sender, selfID string, opts SendOptions, log *zap.Logger) *SendController {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultSendTimeout
	}
	if opts.Cooldown <= 0 {
		opts.Cooldown = DefaultCooldown
	}
	if opts.MaxLength <= 0 {
		opts.MaxLength = core.DefaultMaxLength
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &SendController{
		clock:   clock,
		loop:    loop,
		sched:   sched,
		queue:   queue,
		sender:  sender,
		opts:    opts,
		limiter: rate.NewLimiter(rate.Every(opts.Cooldown), 1),
		log:     log,
		selfID:  selfID,
		ctx:     context.Background(),
		timers:  make(map[string]*Task),
		sends:   make(map[string]context.CancelFunc),
	}
}

// Reset abandons every entry of the previous conversation. Late transport
// results and timers from before the reset are dropped.
func (c *SendController) Reset(ctx context.Context, conversationID string) {
	for id, task := range c.timers {
		task.Cancel()
		delete(c.timers, id)
	}
	for id, cancel := range c.sends {
		cancel()
		delete(c.sends, id)
	}
	c.gen++
	c.ctx = ctx
	c.conversationID = conversationID
	c.inFlight = ""
	c.banner = nil
}

// OnChange registers a callback run after any pending entry changes
// outside a direct call, i.e. on timeout or transport failure.
func (c *SendController) OnChange(fn func()) {
	c.onChange = fn
}

// Submit validates text and, unless a send is in flight or the cooldown has
// not elapsed, starts sending it. A throttled submit returns "", nil.
func (c *SendController) Submit(text string) (string, error) {
	text = core.NormalizeText(text)
	if err := core.ValidateText(text, c.opts.MaxLength); err != nil {
		return "", err
	}
	if !c.admit() {
		return "", nil
	}
	return c.start(text)
}

// Retry resends a failed entry's text under a new id. The failed entry is
// only removed once the new send is admitted.
func (c *SendController) Retry(tempID string) (string, error) {
	entry, ok := c.queue.Get(tempID)
	if !ok || entry.Status != types.StatusFailed {
		return "", ErrNotRetryable
	}
	if !c.admit() {
		return "", nil
	}
	c.queue.Remove(tempID)
	c.clearBanner(tempID)
	c.log.Debug("retrying message", zap.String("temp_id", tempID))
	return c.start(entry.Text)
}

func (c *SendController) admit() bool {
	if c.inFlight != "" {
		c.log.Debug("submit ignored: send in flight", zap.String("temp_id", c.inFlight))
		return false
	}
	if !c.limiter.AllowN(c.clock.Now(), 1) {
		c.log.Debug("submit ignored: cooldown")
		return false
	}
	return true
}

func (c *SendController) start(text string) (string, error) {
	id, err := c.queue.Enqueue(text, c.selfID)
	if err != nil {
		return "", err
	}
	c.inFlight = id
	c.timers[id] = c.sched.After("send-timeout "+id, c.opts.Timeout, func() {
		c.expire(id)
	})

	ctx, cancel := context.WithCancel(c.ctx)
	c.sends[id] = cancel
	gen, conversationID := c.gen, c.conversationID
	c.log.Debug("message enqueued", zap.String("temp_id", id), zap.String("conversation", conversationID))

	go func() {
		err := c.sender.SendMessage(ctx, conversationID, text, id)
		cancel()
		c.loop.Post(func() {
			if gen != c.gen {
				return
			}
			c.finish(id, err)
		})
	}()
	return id, nil
}

func (c *SendController) finish(id string, err error) {
	delete(c.sends, id)
	if c.inFlight == id {
		c.inFlight = ""
	}
	if err == nil {
		return
	}
	entry, ok := c.queue.Get(id)
	if !ok || entry.Status != types.StatusSending {
		return
	}
	c.cancelTimer(id)
	c.queue.MarkStatus(id, types.StatusFailed)
	c.log.Warn("send failed", zap.String("temp_id", id), zap.Error(err))
	c.raise(id, err)
}

func (c *SendController) expire(id string) {
	delete(c.timers, id)
	if c.inFlight == id {
		c.inFlight = ""
	}
	if cancel, ok := c.sends[id]; ok {
		cancel()
		delete(c.sends, id)
	}
	entry, ok := c.queue.Get(id)
	if !ok || entry.Status != types.StatusSending {
		return
	}
	c.queue.MarkStatus(id, types.StatusFailed)
	c.log.Warn("send timed out", zap.String("temp_id", id), zap.Duration("timeout", c.opts.Timeout))
	c.raise(id, ErrSendTimeout)
}

// Retire cancels the failure timer of an entry the reconciler is about to
// remove, and drops its banner if it had failed.
func (c *SendController) Retire(tempID string) {
	c.cancelTimer(tempID)
	c.clearBanner(tempID)
}

func (c *SendController) cancelTimer(id string) {
	if task, ok := c.timers[id]; ok {
		task.Cancel()
		delete(c.timers, id)
	}
}

func (c *SendController) raise(id string, err error) {
	c.banner = &Banner{TempID: id, Err: err, At: c.clock.Now()}
	if c.onChange != nil {
		c.onChange()
	}
}

func (c *SendController) clearBanner(id string) {
	if c.banner != nil && c.banner.TempID == id {
		c.banner = nil
	}
}

// Banner returns the active error surface, if any.
func (c *SendController) Banner() (Banner, bool) {
	if c.banner == nil {
		return Banner{}, false
	}
	return *c.banner, true
}

// DismissBanner hides the error surface without touching the entry.
func (c *SendController) DismissBanner() {
	c.banner = nil
}

// InFlight reports whether a transport call is outstanding.
func (c *SendController) InFlight() bool {
	return c.inFlight != ""
}

// Armed reports whether tempID still has a live failure timer.
func (c *SendController) Armed(tempID string) bool {
	return c.timers[tempID].Pending()
}
