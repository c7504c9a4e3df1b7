package viewport

import (
	"math"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/libut/utview/internal/tracestore"
)

const (
	Idle State = iota
	PendingUpdate
)

const (
	DefaultThrottle = 100 * time.Millisecond

	zoomFactor     = 0.9
	fineZoomFactor = 0.99
	panFactor      = 0.1
	finePanFactor  = 0.01
)

type (
	State int

	// Scheduler runs fn once after delay. The controller never calls it
	// while a previous fn is still pending.
	Scheduler interface {
		Schedule(delay time.Duration, fn func())
	}

	Renderer interface {
		Render(r Range, views []ThreadView)
	}

	RendererFunc func(r Range, views []ThreadView)

	WheelEvent struct {
		DeltaY float64 `json:"delta_y"`
		// Cursor is the pointer position in data coordinates.
		Cursor float64 `json:"cursor"`
		// Fine selects the finer zoom and pan factors, usually while a
		// modifier key is held.
		Fine bool `json:"fine"`
	}

	ControllerOptions struct {
		Throttle       time.Duration
		IndexThreshold int
		// Querier serves the range queries instead of one built over the
		// collection with IndexThreshold. It must cover the same collection.
		Querier *Querier
	}

	// Controller owns the visible range of a collection and throttles how
	// often the intervals of that range are recomputed and rendered. It is
	// not safe for concurrent use: the host serializes input events and
	// timer callbacks.
	Controller struct {
		querier   *Querier
		scheduler Scheduler
		renderer  Renderer
		throttle  time.Duration

		state      State
		current    Range
		pending    *Range
		selection  *Range
		recomputes int
	}
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case PendingUpdate:
		return "pending_update"
	}
	return "unknown"
}

func (f RendererFunc) Render(r Range, views []ThreadView) {
	f(r, views)
}

func NewController(c *tracestore.Collection, scheduler Scheduler, renderer Renderer, opts ControllerOptions) *Controller {
	if opts.Throttle <= 0 {
		opts.Throttle = DefaultThrottle
	}
	q := opts.Querier
	if q == nil {
		q = NewQuerier(c, opts.IndexThreshold)
	}
	return &Controller{
		querier:   q,
		scheduler: scheduler,
		renderer:  renderer,
		throttle:  opts.Throttle,
		current:   q.Bounds(),
	}
}

func (c *Controller) State() State {
	return c.state
}

// Current returns the last rendered range.
func (c *Controller) Current() Range {
	return c.current
}

func (c *Controller) Pending() (Range, bool) {
	if c.pending == nil {
		return Range{}, false
	}
	return *c.pending, true
}

func (c *Controller) Selection() (Range, bool) {
	if c.selection == nil {
		return Range{}, false
	}
	return *c.selection, true
}

func (c *Controller) Bounds() Range {
	return c.querier.Bounds()
}

func (c *Controller) Querier() *Querier {
	return c.querier
}

func (c *Controller) Recomputes() int {
	return c.recomputes
}

// Refresh recomputes and renders the current range right away.
func (c *Controller) Refresh() {
	c.render()
}

// RequestRange records candidate as the range to render on the next timer
// fire. Requests arriving before that replace each other. A candidate with a
// NaN bound is dropped.
func (c *Controller) RequestRange(candidate Range) {
	if math.IsNaN(candidate.Lo) || math.IsNaN(candidate.Hi) {
		log.Debug().Float64("lo", candidate.Lo).Float64("hi", candidate.Hi).Msg("drop invalid range")
		return
	}
	b := c.Bounds()
	r := candidate.Clamp(b.Lo, b.Hi)
	c.selection = &r
	c.request(r)
}

// Brush applies a completed brush selection. A nil selection resets the view
// to the whole collection.
func (c *Controller) Brush(selection *Range) {
	if selection == nil {
		c.selection = nil
		c.request(c.Bounds())
		return
	}
	c.RequestRange(*selection)
}

// Wheel zooms around the selection midpoint when the cursor is strictly
// inside the selection and pans otherwise. Without a selection, the event is
// ignored.
func (c *Controller) Wheel(e WheelEvent) {
	if c.selection == nil {
		return
	}
	sel := *c.selection
	half := sel.Width() / 2
	var candidate Range
	if e.Cursor > sel.Lo && e.Cursor < sel.Hi {
		factor := zoomFactor
		if e.Fine {
			factor = fineZoomFactor
		}
		mid := sel.Mid()
		h := half * math.Pow(factor, e.DeltaY)
		// zooming out never needs more than the whole collection
		if w := c.Bounds().Width(); !(h <= w) {
			h = w
		}
		candidate = Range{Lo: mid - h, Hi: mid + h}
	} else {
		factor := panFactor
		if e.Fine {
			factor = finePanFactor
		}
		dx := half * factor * e.DeltaY
		candidate = Range{Lo: sel.Lo + dx, Hi: sel.Hi + dx}
	}
	c.RequestRange(candidate)
}

func (c *Controller) request(r Range) {
	if r == c.current {
		// the latest request undoes the pending ones
		c.pending = nil
	} else {
		c.pending = &r
	}
	if c.state == Idle {
		c.state = PendingUpdate
		c.scheduler.Schedule(c.throttle, c.OnTimerFire)
	}
}

// OnTimerFire renders the pending range, if any, and returns to Idle.
func (c *Controller) OnTimerFire() {
	if c.state != PendingUpdate {
		return
	}
	c.state = Idle
	if c.pending == nil {
		return
	}
	c.current = *c.pending
	c.pending = nil
	c.render()
}

func (c *Controller) render() {
	views := c.querier.Run(c.current)
	c.recomputes++
	if e := log.Debug(); e.Enabled() {
		var n int
		for _, v := range views {
			n += len(v.Intervals)
		}
		e.Float64("lo", c.current.Lo).
			Float64("hi", c.current.Hi).
			Int("threads", len(views)).
			Int("intervals", n).
			Msg("viewport recomputed")
	}
	if c.renderer != nil {
		c.renderer.Render(c.current, views)
	}
}
