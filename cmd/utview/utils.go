package main

import (
	"context"
	"errors"
	"net/http"

	"github.com/getsentry/sentry-go"
	gojson "github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/julienschmidt/httprouter"
	"gocloud.dev/gcerrors"

	"github.com/libut/utview/internal/errorutil"
	"github.com/libut/utview/internal/storageutil"
)

func writeJSON(ctx context.Context, w http.ResponseWriter, status int, v interface{}) {
	hub := sentry.GetHubFromContext(ctx)

	s := sentry.StartSpan(ctx, "json.marshal")
	b, err := gojson.Marshal(v)
	s.Finish()
	if err != nil {
		if hub != nil {
			hub.CaptureException(err)
		}
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(b)
}

// traceIDFromRequest reads the trace_id route parameter. Trace IDs are
// generated by the service so anything but a UUID is rejected.
func traceIDFromRequest(r *http.Request) (string, bool) {
	ps := httprouter.ParamsFromContext(r.Context())
	id, err := uuid.Parse(ps.ByName("trace_id"))
	if err != nil {
		return "", false
	}
	return id.String(), true
}

// statusFromStorageError maps storage failures to a response status.
func statusFromStorageError(err error) int {
	switch {
	case errors.Is(err, storageutil.ErrObjectNotFound):
		return http.StatusNotFound
	case errors.Is(err, context.DeadlineExceeded):
		// This is a transient error, the client can retry
		return http.StatusTooManyRequests
	case errors.Is(err, errorutil.ErrDataIntegrity):
		return http.StatusUnprocessableEntity
	case gcerrors.Code(err) == gcerrors.FailedPrecondition:
		return http.StatusPreconditionFailed
	default:
		return http.StatusInternalServerError
	}
}
