package main

import (
	"context"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/CAFxX/httpcompression"
	"github.com/getsentry/sentry-go"
	sentryhttp "github.com/getsentry/sentry-go/http"
	"github.com/julienschmidt/httprouter"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"

	"github.com/libut/utview/internal/httputil"
	"github.com/libut/utview/internal/logutil"
	"github.com/libut/utview/internal/session"
	"github.com/libut/utview/internal/storageprovider"
	"github.com/libut/utview/internal/storageutil"
)

type environment struct {
	config ServiceConfig

	tracesWriter KafkaWriter

	storage       storageutil.ObjectHandler
	storageCloser io.Closer

	traces   *traceCache
	sessions *session.Registry

	cron *cron.Cron
}

var release string

func newEnvironment() (*environment, error) {
	cfg, err := readServiceConfig(os.Getenv(ConfigPathEnv))
	if err != nil {
		return nil, err
	}
	var e environment
	e.config = cfg

	e.storage, e.storageCloser, err = storageprovider.Open(context.Background(), cfg.StorageURL)
	if err != nil {
		return nil, err
	}
	if len(cfg.KafkaBrokers) > 0 {
		e.tracesWriter = newKafkaWriter(cfg.KafkaBrokers)
	}
	e.init()
	return &e, nil
}

// init sets up the in-memory state shared by the handlers.
func (e *environment) init() {
	e.traces = newTraceCache()
	e.sessions = session.NewRegistry(session.Options{
		Throttle:       e.config.ThrottleInterval,
		IndexThreshold: e.config.IndexThreshold,
		FrameDuration:  e.config.FrameDuration,
		OnRender:       observeFrame,
	})
}

func (e *environment) startJanitor() error {
	e.cron = cron.New()
	_, err := e.cron.AddFunc("@every 1m", e.evictIdle)
	if err != nil {
		return err
	}
	e.cron.Start()
	return nil
}

func (e *environment) evictIdle() {
	now := time.Now()
	sessions := e.sessions.EvictIdle(e.config.SessionTTL, now)
	traces := e.traces.evictIdle(e.config.SessionTTL, now)
	activeSessions.Set(float64(e.sessions.Len()))
	if sessions > 0 || traces > 0 {
		log.Info().Int("sessions", sessions).Int("traces", traces).Msg("evicted idle state")
	}
}

func (e *environment) shutdown() {
	if e.cron != nil {
		<-e.cron.Stop().Done()
	}
	if e.tracesWriter != nil {
		err := e.tracesWriter.Close()
		if err != nil {
			sentry.CaptureException(err)
		}
	}
	if e.storageCloser != nil {
		err := e.storageCloser.Close()
		if err != nil {
			sentry.CaptureException(err)
		}
	}
	sentry.Flush(5 * time.Second)
}

func (e *environment) newRouter() (*httprouter.Router, error) {
	compress, err := httpcompression.DefaultAdapter()
	if err != nil {
		return nil, err
	}

	routes := []struct {
		method  string
		path    string
		handler http.HandlerFunc
	}{
		{http.MethodGet, "/health", e.getHealth},
		{http.MethodPost, "/traces", e.postTrace},
		{http.MethodGet, "/traces/:trace_id", e.getTrace},
		{http.MethodGet, "/traces/:trace_id/intervals", e.getIntervals},
		{http.MethodGet, "/traces/:trace_id/stats", e.getStats},
		{http.MethodGet, "/traces/:trace_id/speedscope", e.getSpeedscope},
		{http.MethodGet, "/traces/:trace_id/chrometrace", e.getChromeTrace},
		{http.MethodPost, "/traces/:trace_id/sessions", e.postSession},
		{http.MethodGet, "/sessions/:session_id", e.getSession},
		{http.MethodDelete, "/sessions/:session_id", e.deleteSession},
		{http.MethodPost, "/sessions/:session_id/brush", e.postBrush},
		{http.MethodPost, "/sessions/:session_id/wheel", e.postWheel},
	}

	router := httprouter.New()

	for _, route := range routes {
		handlerFunc := httputil.DecompressPayload(route.handler)
		handler := compress(handlerFunc)

		router.Handler(route.method, route.path, handler)
	}

	router.Handler(http.MethodGet, "/metrics", promhttp.Handler())

	return router, nil
}

func main() {
	logutil.ConfigureLogger()

	env, err := newEnvironment()
	if err != nil {
		log.Fatal().Err(err).Msg("error setting up environment")
	}

	err = sentry.Init(sentry.ClientOptions{
		BeforeSend:       httputil.SetHTTPStatusCodeTag,
		Dsn:              env.config.SentryDSN,
		EnableTracing:    true,
		Environment:      env.config.Environment,
		Release:          release,
		TracesSampleRate: 1.0,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("can't initialize sentry")
	}

	router, err := env.newRouter()
	if err != nil {
		sentry.CaptureException(err)
		log.Fatal().Err(err).Msg("error setting up the router")
	}

	if err := env.startJanitor(); err != nil {
		sentry.CaptureException(err)
		log.Fatal().Err(err).Msg("error scheduling the janitor")
	}

	server := http.Server{
		Addr:    ":" + env.config.Port,
		Handler: sentryhttp.New(sentryhttp.Options{}).Handle(router),
	}

	waitForShutdown := make(chan struct{})
	go func() {
		c := make(chan os.Signal, 1)
		signal.Notify(c, os.Interrupt, syscall.SIGTERM)
		<-c

		cctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := server.Shutdown(cctx); err != nil {
			sentry.CaptureException(err)
			log.Err(err).Msg("error shutting down server")
		}

		close(waitForShutdown)
	}()

	log.Info().Str("port", env.config.Port).Str("storage", env.config.StorageURL).Msg("listening")
	err = server.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		sentry.CaptureException(err)
		log.Err(err).Msg("server failed")
	}

	<-waitForShutdown

	// Shutdown the rest of the environment after the HTTP connections are closed
	env.shutdown()
}

func (e *environment) getHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}
