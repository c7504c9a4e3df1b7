package main

import (
	"errors"
	"io"
	"math"
	"net/http"

	"github.com/getsentry/sentry-go"
	gojson "github.com/goccy/go-json"
	"github.com/julienschmidt/httprouter"

	"github.com/libut/utview/internal/errorutil"
	"github.com/libut/utview/internal/session"
	"github.com/libut/utview/internal/viewport"
)

type (
	// BrushRequest carries a brush selection. A cleared brush, or one
	// without bounds, resets the view to the whole trace.
	BrushRequest struct {
		Lo      *float64 `json:"lo"`
		Hi      *float64 `json:"hi"`
		Cleared bool     `json:"cleared"`
	}

	WheelRequest struct {
		DeltaY float64 `json:"delta_y"`
		Cursor float64 `json:"cursor"`
		Fine   bool    `json:"fine"`
	}
)

func (b BrushRequest) selection() (*viewport.Range, error) {
	if b.Cleared || (b.Lo == nil && b.Hi == nil) {
		return nil, nil
	}
	if b.Lo == nil || b.Hi == nil || !finite(*b.Lo) || !finite(*b.Hi) {
		return nil, errorutil.ErrInvalidRange
	}
	return &viewport.Range{Lo: *b.Lo, Hi: *b.Hi}, nil
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

func (env *environment) postSession(w http.ResponseWriter, r *http.Request) {
	traceID, t, ok := env.traceFromRequest(w, r)
	if !ok {
		return
	}

	s := sentry.StartSpan(r.Context(), "processing")
	s.Description = "Create session"
	sess := env.sessions.CreateWithQuerier(traceID, t.collection, t.querier)
	s.Finish()
	activeSessions.Set(float64(env.sessions.Len()))

	writeJSON(r.Context(), w, http.StatusCreated, sess.Snapshot())
}

func (env *environment) sessionFromRequest(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	ps := httprouter.ParamsFromContext(r.Context())
	id := ps.ByName("session_id")
	sess, err := env.sessions.Get(id)
	if err != nil {
		w.WriteHeader(http.StatusNotFound)
		return nil, false
	}
	sentry.GetHubFromContext(r.Context()).Scope().SetTags(map[string]string{
		"session_id": sess.ID,
		"trace_id":   sess.TraceID,
	})
	return sess, true
}

func (env *environment) getSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := env.sessionFromRequest(w, r)
	if !ok {
		return
	}
	writeJSON(r.Context(), w, http.StatusOK, sess.Snapshot())
}

func (env *environment) deleteSession(w http.ResponseWriter, r *http.Request) {
	ps := httprouter.ParamsFromContext(r.Context())
	err := env.sessions.Delete(ps.ByName("session_id"))
	if errors.Is(err, session.ErrSessionNotFound) {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	activeSessions.Set(float64(env.sessions.Len()))
	w.WriteHeader(http.StatusNoContent)
}

func (env *environment) postBrush(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	hub := sentry.GetHubFromContext(ctx)

	sess, ok := env.sessionFromRequest(w, r)
	if !ok {
		return
	}

	var req BrushRequest
	if err := decodeBody(r.Body, &req); err != nil {
		hub.CaptureException(err)
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	selection, err := req.selection()
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	// The view is rendered once the throttle interval elapses, the
	// snapshot shows the pending range until then.
	writeJSON(ctx, w, http.StatusAccepted, sess.Brush(selection))
}

func (env *environment) postWheel(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	hub := sentry.GetHubFromContext(ctx)

	sess, ok := env.sessionFromRequest(w, r)
	if !ok {
		return
	}

	var req WheelRequest
	if err := decodeBody(r.Body, &req); err != nil {
		hub.CaptureException(err)
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	if !finite(req.DeltaY) || !finite(req.Cursor) {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	writeJSON(ctx, w, http.StatusAccepted, sess.Wheel(viewport.WheelEvent{
		DeltaY: req.DeltaY,
		Cursor: req.Cursor,
		Fine:   req.Fine,
	}))
}

func decodeBody(body io.Reader, v interface{}) error {
	b, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	return gojson.Unmarshal(b, v)
}
