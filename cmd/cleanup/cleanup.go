package main

import (
	"context"
	"errors"
	"io"
	"os"
	"os/signal"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
	"gocloud.dev/blob"
	_ "gocloud.dev/blob/fileblob"
	_ "gocloud.dev/blob/gcsblob"

	"github.com/libut/utview/internal/envutil"
	"github.com/libut/utview/internal/logutil"
)

const tracesPrefix = "traces/"

// cleanup deletes the stored traces last modified before timeLimit and
// returns how many were deleted.
func cleanup(ctx context.Context, b *blob.Bucket, timeLimit time.Time) (int, error) {
	var deleted int
	iter := b.List(&blob.ListOptions{Prefix: tracesPrefix})
	for {
		obj, err := iter.Next(ctx)
		if errors.Is(err, io.EOF) {
			return deleted, nil
		}
		if err != nil {
			return deleted, err
		}
		if obj.IsDir || !timeLimit.After(obj.ModTime) {
			continue
		}
		if err := b.Delete(ctx, obj.Key); err != nil {
			return deleted, err
		}
		deleted++
	}
}

func main() {
	bucketURL := envutil.GetEnvOrFallback("UTVIEW_STORAGE_URL", "file:///var/lib/utview-traces")

	logutil.ConfigureLogger()

	err := sentry.Init(sentry.ClientOptions{})
	if err != nil {
		log.Fatal().Err(err).Msg("can't initialize sentry")
	}

	retention, err := envutil.GetDaysOrFallback("UTVIEW_RETENTION_DAYS", 30)
	if err != nil {
		log.Fatal().Err(err).Msg("can't parse retention days")
	}

	ctx := context.Background()
	b, err := blob.OpenBucket(ctx, bucketURL)
	if err != nil {
		log.Fatal().Err(err).Msg("can't open the trace bucket")
	}
	defer b.Close()

	c := cron.New()
	_, err = c.AddFunc("@daily", func() {
		deleted, err := cleanup(ctx, b, time.Now().Add(-retention))
		if err != nil {
			sentry.CaptureException(err)
			log.Error().Err(err).Msg("error cleaning up traces")
			return
		}
		log.Info().Int("deleted", deleted).Msg("traces cleaned up")
	})
	if err != nil {
		log.Fatal().Err(err).Msg("can't set up cron function")
	}

	exitSignal := make(chan os.Signal, 1)
	signal.Notify(exitSignal, os.Interrupt)

	go func() {
		<-exitSignal

		c.Stop()
	}()

	c.Run()
}
