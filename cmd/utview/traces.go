package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/getsentry/sentry-go"
	gojson "github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/segmentio/kafka-go"

	"github.com/libut/utview/internal/chrometrace"
	"github.com/libut/utview/internal/errorutil"
	"github.com/libut/utview/internal/httputil"
	"github.com/libut/utview/internal/metrics"
	"github.com/libut/utview/internal/speedscope"
	"github.com/libut/utview/internal/storageutil"
	"github.com/libut/utview/internal/tracefile"
	"github.com/libut/utview/internal/tracestore"
	"github.com/libut/utview/internal/viewport"
)

const maxNumOfExamples = 5

type (
	PostTraceResponse struct {
		TraceID string             `json:"trace_id"`
		Summary tracestore.Summary `json:"summary"`
	}

	GetTraceResponse struct {
		TraceID string             `json:"trace_id"`
		Summary tracestore.Summary `json:"summary"`
	}

	GetIntervalsResponse struct {
		Range   viewport.Range        `json:"range"`
		Bounds  viewport.Range        `json:"bounds"`
		Threads []viewport.ThreadView `json:"threads"`
	}

	GetStatsResponse struct {
		TraceID string              `json:"trace_id"`
		Tasks   []metrics.TaskStats `json:"tasks"`
	}
)

func (env *environment) postTrace(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	hub := sentry.GetHubFromContext(ctx)

	s := sentry.StartSpan(ctx, "processing")
	s.Description = "Read HTTP body"
	body, err := io.ReadAll(r.Body)
	s.Finish()
	if err != nil {
		hub.CaptureException(err)
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	s = sentry.StartSpan(ctx, "json.unmarshal")
	s.Description = "Unmarshal trace"
	threads, err := tracefile.Unmarshal(body)
	s.Finish()
	if err != nil {
		hub.CaptureException(err)
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	traceID := uuid.New().String()
	hub.Scope().SetContext("Trace metadata", map[string]interface{}{
		"trace_id": traceID,
		"threads":  len(threads),
		"samples":  tracefile.SampleCount(threads),
		"size":     len(body),
	})
	hub.Scope().SetTag("trace_id", traceID)

	s = sentry.StartSpan(ctx, "blob.write")
	s.Description = "Write trace to storage"
	err = storageutil.CompressedWrite(ctx, env.storage, storageutil.TracePath(traceID), threads)
	s.Finish()
	if err != nil {
		status := statusFromStorageError(err)
		if status != http.StatusTooManyRequests {
			hub.CaptureException(err)
		}
		w.WriteHeader(status)
		return
	}

	s = sentry.StartSpan(ctx, "processing")
	s.Description = "Reconstruct intervals"
	t, err := env.reconstruct(traceID, threads, "upload")
	s.Finish()
	if err != nil {
		hub.CaptureException(err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	if env.tracesWriter != nil {
		s = sentry.StartSpan(ctx, "json.marshal")
		s.Description = "Marshal trace Kafka message"
		b, err := gojson.Marshal(buildTraceKafkaMessage(traceID, env.config.Environment, len(body), t.collection))
		s.Finish()
		if err != nil {
			hub.CaptureException(err)
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		s = sentry.StartSpan(ctx, "processing")
		s.Description = "Send trace to Kafka"
		err = env.tracesWriter.WriteMessages(ctx, kafka.Message{
			Topic: env.config.TracesKafkaTopic,
			Key:   []byte(traceID),
			Value: b,
		})
		s.Finish()
		if err != nil {
			hub.CaptureException(err)
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
	}

	writeJSON(ctx, w, http.StatusCreated, PostTraceResponse{
		TraceID: traceID,
		Summary: t.collection.Summary(),
	})
}

// reconstruct builds the collection of a decoded trace, trims it to the
// working set and caches it.
func (env *environment) reconstruct(traceID string, threads []tracefile.Thread, origin string) (*cachedTrace, error) {
	c := tracestore.Load(threads, tracestore.Options{Workers: env.config.ReaderWorkers})
	trimmed, err := c.TrimToWindow(env.config.WorkingSetSeconds)
	if err != nil {
		return nil, err
	}
	observeCollection(origin, c)
	log.Debug().
		Str("trace_id", traceID).
		Int("threads", len(c.Threads)).
		Int("intervals", c.IntervalCount()).
		Bool("trimmed", trimmed).
		Msg("trace reconstructed")
	return env.traces.put(traceID, c, env.config.IndexThreshold), nil
}

// loadTrace returns the cached trace or reads it back from storage.
func (env *environment) loadTrace(ctx context.Context, traceID string) (*cachedTrace, error) {
	if t, exists := env.traces.get(traceID); exists {
		return t, nil
	}

	var threads []tracefile.Thread
	s := sentry.StartSpan(ctx, "blob.read")
	s.Description = "Read trace from storage"
	err := storageutil.UnmarshalCompressed(ctx, env.storage, storageutil.TracePath(traceID), &threads)
	s.Finish()
	if err != nil {
		if errors.Is(err, storageutil.ErrObjectNotFound) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", errorutil.ErrDataIntegrity, err)
	}

	s = sentry.StartSpan(ctx, "processing")
	s.Description = "Reconstruct intervals"
	defer s.Finish()
	return env.reconstruct(traceID, threads, "storage")
}

// traceFromRequest resolves the trace of a request and writes the error
// response when it can't.
func (env *environment) traceFromRequest(w http.ResponseWriter, r *http.Request) (string, *cachedTrace, bool) {
	ctx := r.Context()
	hub := sentry.GetHubFromContext(ctx)

	traceID, ok := traceIDFromRequest(r)
	if !ok {
		w.WriteHeader(http.StatusBadRequest)
		return "", nil, false
	}
	hub.Scope().SetTag("trace_id", traceID)

	t, err := env.loadTrace(ctx, traceID)
	if err != nil {
		status := statusFromStorageError(err)
		if status != http.StatusNotFound && status != http.StatusTooManyRequests {
			hub.CaptureException(err)
		}
		w.WriteHeader(status)
		return "", nil, false
	}
	return traceID, t, true
}

func (env *environment) getTrace(w http.ResponseWriter, r *http.Request) {
	traceID, t, ok := env.traceFromRequest(w, r)
	if !ok {
		return
	}
	writeJSON(r.Context(), w, http.StatusOK, GetTraceResponse{
		TraceID: traceID,
		Summary: t.collection.Summary(),
	})
}

func (env *environment) getIntervals(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	hub := sentry.GetHubFromContext(ctx)

	_, t, ok := env.traceFromRequest(w, r)
	if !ok {
		return
	}

	bounds := t.querier.Bounds()
	lo, hi, err := httputil.GetRangeParameters(r, bounds.Lo, bounds.Hi)
	if err != nil {
		hub.CaptureException(err)
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	rg := viewport.Range{Lo: lo, Hi: hi}.Clamp(bounds.Lo, bounds.Hi)

	s := sentry.StartSpan(ctx, "processing")
	s.Description = "Query viewport"
	views := t.querier.Run(rg)
	s.Finish()

	if names := r.URL.Query()["thread"]; len(names) > 0 {
		views = filterThreads(views, names)
	}

	writeJSON(ctx, w, http.StatusOK, GetIntervalsResponse{
		Range:   rg,
		Bounds:  bounds,
		Threads: views,
	})
}

func filterThreads(views []viewport.ThreadView, names []string) []viewport.ThreadView {
	keep := make(map[string]struct{}, len(names))
	for _, n := range names {
		keep[n] = struct{}{}
	}
	filtered := make([]viewport.ThreadView, 0, len(names))
	for _, v := range views {
		if _, exists := keep[v.ThreadName]; exists {
			filtered = append(filtered, v)
		}
	}
	return filtered
}

func (env *environment) getStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	traceID, t, ok := env.traceFromRequest(w, r)
	if !ok {
		return
	}

	s := sentry.StartSpan(ctx, "processing")
	s.Description = "Aggregate task durations"
	ma := metrics.NewAggregator(env.config.MaxUniqueTasks, maxNumOfExamples)
	ma.AddCollection(t.collection)
	stats := ma.ToStats()
	s.Finish()

	writeJSON(ctx, w, http.StatusOK, GetStatsResponse{
		TraceID: traceID,
		Tasks:   stats,
	})
}

func (env *environment) getSpeedscope(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	traceID, t, ok := env.traceFromRequest(w, r)
	if !ok {
		return
	}

	s := sentry.StartSpan(ctx, "processing")
	s.Description = "Build speedscope profile"
	o := speedscope.FromCollection(traceID, t.collection)
	s.Finish()

	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s.speedscope.json", traceID))
	writeJSON(ctx, w, http.StatusOK, o)
}

func (env *environment) getChromeTrace(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	traceID, t, ok := env.traceFromRequest(w, r)
	if !ok {
		return
	}

	s := sentry.StartSpan(ctx, "processing")
	s.Description = "Build trace events"
	o := chrometrace.FromCollection(t.collection)
	s.Finish()

	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s.trace.json", traceID))
	writeJSON(ctx, w, http.StatusOK, o)
}
