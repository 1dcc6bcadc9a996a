package conversation

import (
	"time"

	"go.uber.org/zap"
)

// Viewport is the scrollable surface the coordinator drives. Units are
// whatever the surface uses (pixels, terminal lines).
type Viewport interface {
	ScrollTop() int
	ScrollHeight() int
	ClientHeight() int
	ScrollTo(offset int, smooth bool)
}

// ScrollMode is the coordinator's current policy.
type ScrollMode int

const (
	ModeAutoFollow ScrollMode = iota
	ModeManual
	ModeLoadingOlder
)

func (m ScrollMode) String() string {
	switch m {
	case ModeManual:
		return "manual"
	case ModeLoadingOlder:
		return "loading-older"
	default:
		return "auto-follow"
	}
}

// ScrollOptions are distances in viewport units.
type ScrollOptions struct {
	// ManualThreshold is the distance from bottom past which a user scroll
	// enters manual mode.
	ManualThreshold int
	// ResumeThreshold is the distance from bottom within which manual mode
	// is left again. Smaller than ManualThreshold.
	ResumeThreshold int
	// TopThreshold triggers backward pagination.
	TopThreshold int
	// SettleDelay follows the initial jump after a conversation switch;
	// scroll events before it elapses cannot enter manual mode.
	SettleDelay time.Duration
}

// DefaultScrollOptions are pixel-scale defaults.
func DefaultScrollOptions() ScrollOptions {
	return ScrollOptions{
		ManualThreshold: 100,
		ResumeThreshold: 24,
		TopThreshold:    48,
		SettleDelay:     300 * time.Millisecond,
	}
}

// ScrollCoordinator decides, for each committed render, whether to follow
// the bottom, hold the reader's position, or restore the anchor after older
// history was prepended.
type ScrollCoordinator struct {
	vp    Viewport
	sched *Scheduler
	opts  ScrollOptions
	log   *zap.Logger

	manual      bool
	settled     bool
	initialJump bool
	settleTask  *Task
	lastLen     int
	lastVisible bool

	loadingOlder   bool
	prependApplied bool
	anchorTop      int
	anchorHeight   int
}

func NewScrollCoordinator(vp Viewport, sched *Scheduler, opts ScrollOptions, log *zap.Logger) *ScrollCoordinator {
	defaults := DefaultScrollOptions()
	if opts.ManualThreshold <= 0 {
		opts.ManualThreshold = defaults.ManualThreshold
	}
	if opts.ResumeThreshold <= 0 || opts.ResumeThreshold > opts.ManualThreshold {
		opts.ResumeThreshold = opts.ManualThreshold / 4
	}
	if opts.TopThreshold < 0 {
		opts.TopThreshold = 0
	}
	if opts.SettleDelay <= 0 {
		opts.SettleDelay = defaults.SettleDelay
	}
	if log == nil {
		log = zap.NewNop()
	}
	c := &ScrollCoordinator{vp: vp, sched: sched, opts: opts, log: log}
	c.Reset()
	return c
}

// Attach swaps the viewport, used when the surface is created after the session.
func (c *ScrollCoordinator) Attach(vp Viewport) {
	c.vp = vp
}

// Reset forces auto-follow for a newly opened conversation. A settle task
// left over from a previous switch is cancelled, not applied.
func (c *ScrollCoordinator) Reset() {
	c.settleTask.Cancel()
	c.settleTask = nil
	c.manual = false
	c.settled = false
	c.initialJump = true
	c.lastLen = 0
	c.lastVisible = true
	c.loadingOlder = false
	c.prependApplied = false
}

// Mode reports the current policy.
func (c *ScrollCoordinator) Mode() ScrollMode {
	switch {
	case c.loadingOlder:
		return ModeLoadingOlder
	case c.manual:
		return ModeManual
	default:
		return ModeAutoFollow
	}
}

// Settled reports whether the post-switch settle delay has elapsed.
func (c *ScrollCoordinator) Settled() bool { return c.settled }

func (c *ScrollCoordinator) distanceFromBottom() int {
	return c.vp.ScrollHeight() - c.vp.ScrollTop() - c.vp.ClientHeight()
}

func (c *ScrollCoordinator) bottomOffset() int {
	off := c.vp.ScrollHeight() - c.vp.ClientHeight()
	if off < 0 {
		return 0
	}
	return off
}

// OnScroll handles a user scroll event and reports whether an older page
// should be requested.
func (c *ScrollCoordinator) OnScroll() bool {
	if c.vp == nil || !c.settled {
		return false
	}
	dist := c.distanceFromBottom()
	switch {
	case dist > c.opts.ManualThreshold:
		if !c.manual {
			c.log.Debug("scroll mode manual", zap.Int("distance", dist))
		}
		c.manual = true
	case dist <= c.opts.ResumeThreshold:
		c.manual = false
	}
	c.lastVisible = dist <= 0
	return !c.loadingOlder && c.vp.ScrollTop() <= c.opts.TopThreshold
}

// BeginPrepend records the anchor before an older page is requested.
func (c *ScrollCoordinator) BeginPrepend() bool {
	if c.loadingOlder {
		return false
	}
	c.loadingOlder = true
	c.prependApplied = false
	if c.vp != nil {
		c.anchorTop = c.vp.ScrollTop()
		c.anchorHeight = c.vp.ScrollHeight()
	}
	return true
}

// PrependApplied marks that older history is now in the sequence; the
// anchor is restored on the next Committed call.
func (c *ScrollCoordinator) PrependApplied() {
	if c.loadingOlder {
		c.prependApplied = true
	}
}

// AbortPrepend leaves loading-older without moving the viewport.
func (c *ScrollCoordinator) AbortPrepend() {
	c.loadingOlder = false
	c.prependApplied = false
}

// Committed must run after the surface has laid out a sequence of length
// seqLen, so viewport dimensions are current.
func (c *ScrollCoordinator) Committed(seqLen int) {
	if c.vp == nil {
		c.lastLen = seqLen
		return
	}

	if c.loadingOlder && c.prependApplied {
		delta := c.vp.ScrollHeight() - c.anchorHeight
		c.vp.ScrollTo(c.anchorTop+delta, false)
		c.loadingOlder = false
		c.prependApplied = false
		c.lastLen = seqLen
		return
	}

	if c.initialJump {
		if seqLen == 0 {
			return
		}
		c.initialJump = false
		c.vp.ScrollTo(c.bottomOffset(), false)
		c.lastVisible = true
		c.lastLen = seqLen
		c.settleTask = c.sched.After("scroll-settle", c.opts.SettleDelay, func() {
			c.settled = true
			c.settleTask = nil
		})
		return
	}

	grew := seqLen > c.lastLen
	c.lastLen = seqLen
	if !grew {
		return
	}
	if c.manual || c.loadingOlder {
		c.lastVisible = c.distanceFromBottom() <= 0
		return
	}
	c.vp.ScrollTo(c.bottomOffset(), true)
	c.lastVisible = true
}

// SetLastVisible records whether the last rendered row is on screen.
func (c *ScrollCoordinator) SetLastVisible(visible bool) {
	c.lastVisible = visible
}

// ShowScrollToBottom reports whether the jump-to-latest affordance is shown.
func (c *ScrollCoordinator) ShowScrollToBottom() bool {
	return c.manual && !c.lastVisible
}

// ScrollToBottom is the explicit user action behind the affordance.
func (c *ScrollCoordinator) ScrollToBottom() {
	c.manual = false
	c.lastVisible = true
	if c.vp != nil {
		c.vp.ScrollTo(c.bottomOffset(), true)
	}
}
