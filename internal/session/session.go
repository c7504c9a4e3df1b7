package session

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/libut/utview/internal/tracestore"
	"github.com/libut/utview/internal/viewport"
)

var ErrSessionNotFound = errors.New("session not found")

// Past this many guides the overlay is unreadable, so none are returned.
const maxFrameGuides = 1000

type (
	// Frame is the last range a session rendered.
	Frame struct {
		Sequence   int                   `json:"sequence"`
		Range      viewport.Range        `json:"range"`
		Threads    []viewport.ThreadView `json:"threads"`
		RenderedAt time.Time             `json:"rendered_at"`
	}

	Snapshot struct {
		ID          string          `json:"session_id"`
		TraceID     string          `json:"trace_id"`
		State       string          `json:"state"`
		Bounds      viewport.Range  `json:"bounds"`
		Selection   *viewport.Range `json:"selection,omitempty"`
		Pending     *viewport.Range `json:"pending,omitempty"`
		Frame       Frame           `json:"frame"`
		FrameGuides []float64       `json:"frame_guides,omitempty"`
	}

	Session struct {
		ID      string
		TraceID string

		mu         sync.Mutex
		controller *viewport.Controller
		scheduler  *viewport.TimerScheduler
		frame      Frame
		lastAccess time.Time
		onRender   func(Frame)
		frameDur   float64
	}

	Options struct {
		Throttle       time.Duration
		IndexThreshold int
		// FrameDuration sets the spacing of the frame guides returned with a
		// snapshot. Guides are left out when it is 0.
		FrameDuration float64
		// OnRender is called with every frame a session renders.
		OnRender func(Frame)
	}

	Registry struct {
		opts Options

		mu       sync.Mutex
		sessions map[string]*Session
	}
)

func NewRegistry(opts Options) *Registry {
	return &Registry{
		opts:     opts,
		sessions: make(map[string]*Session),
	}
}

// Create starts a session over c and renders its full range.
func (r *Registry) Create(traceID string, c *tracestore.Collection) *Session {
	return r.CreateWithQuerier(traceID, c, nil)
}

// CreateWithQuerier is Create with the range queries served by q, which
// sessions over the same collection may share. A nil q builds one for the
// session.
func (r *Registry) CreateWithQuerier(traceID string, c *tracestore.Collection, q *viewport.Querier) *Session {
	s := &Session{
		ID:         uuid.New().String(),
		TraceID:    traceID,
		lastAccess: time.Now(),
		onRender:   r.opts.OnRender,
		frameDur:   r.opts.FrameDuration,
	}
	s.scheduler = &viewport.TimerScheduler{Locker: &s.mu}
	s.controller = viewport.NewController(c, s.scheduler, viewport.RendererFunc(s.render), viewport.ControllerOptions{
		Throttle:       r.opts.Throttle,
		IndexThreshold: r.opts.IndexThreshold,
		Querier:        q,
	})

	s.mu.Lock()
	s.controller.Refresh()
	s.mu.Unlock()

	r.mu.Lock()
	r.sessions[s.ID] = s
	r.mu.Unlock()

	log.Debug().Str("session_id", s.ID).Str("trace_id", traceID).Msg("session created")
	return s
}

func (r *Registry) Get(id string) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, exists := r.sessions[id]
	if !exists {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

func (r *Registry) Delete(id string) error {
	r.mu.Lock()
	s, exists := r.sessions[id]
	delete(r.sessions, id)
	r.mu.Unlock()
	if !exists {
		return ErrSessionNotFound
	}
	s.scheduler.Stop()
	return nil
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// EvictIdle removes the sessions not used since now - ttl and returns how
// many were removed.
func (r *Registry) EvictIdle(ttl time.Duration, now time.Time) int {
	var idle []*Session
	r.mu.Lock()
	for id, s := range r.sessions {
		if now.Sub(s.LastAccess()) > ttl {
			idle = append(idle, s)
			delete(r.sessions, id)
		}
	}
	r.mu.Unlock()

	for _, s := range idle {
		s.scheduler.Stop()
		log.Debug().Str("session_id", s.ID).Str("trace_id", s.TraceID).Msg("session evicted")
	}
	return len(idle)
}

func (s *Session) LastAccess() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastAccess
}

// Brush applies a brush selection. A nil selection resets the view.
func (s *Session) Brush(selection *viewport.Range) Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastAccess = time.Now()
	s.controller.Brush(selection)
	return s.snapshot()
}

func (s *Session) Wheel(e viewport.WheelEvent) Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastAccess = time.Now()
	s.controller.Wheel(e)
	return s.snapshot()
}

func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastAccess = time.Now()
	return s.snapshot()
}

func (s *Session) snapshot() Snapshot {
	snap := Snapshot{
		ID:      s.ID,
		TraceID: s.TraceID,
		State:   s.controller.State().String(),
		Bounds:  s.controller.Bounds(),
		Frame:   s.frame,
	}
	if sel, ok := s.controller.Selection(); ok {
		snap.Selection = &sel
	}
	if p, ok := s.controller.Pending(); ok {
		snap.Pending = &p
	}
	if s.frameDur > 0 && s.frame.Range.Width()/s.frameDur <= maxFrameGuides {
		snap.FrameGuides = viewport.FrameGuides(s.frame.Range, s.frameDur)
	}
	return snap
}

// render runs with s.mu held, either from an input event or from the
// scheduler.
func (s *Session) render(r viewport.Range, views []viewport.ThreadView) {
	s.frame = Frame{
		Sequence:   s.frame.Sequence + 1,
		Range:      r,
		Threads:    views,
		RenderedAt: time.Now(),
	}
	if s.onRender != nil {
		s.onRender(s.frame)
	}
}
