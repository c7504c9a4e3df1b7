package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gojek/heimdall/v7"
	"github.com/gojek/heimdall/v7/httpclient"

	"github.com/libut/utview/internal/tracefile"
	"github.com/libut/utview/internal/tracestore"
)

var errUnexpectedStatus = errors.New("unexpected status")

type loadOptions struct {
	threads []string
	trim    float64
	window  float64
	workers int
}

func newHTTPClient() *httpclient.Client {
	return httpclient.NewClient(
		httpclient.WithHTTPTimeout(30*time.Second),
		httpclient.WithRetryCount(3),
		httpclient.WithRetrier(heimdall.NewRetrier(heimdall.NewConstantBackoff(500*time.Millisecond, 100*time.Millisecond))),
	)
}

func isURL(src string) bool {
	return strings.HasPrefix(src, "http://") || strings.HasPrefix(src, "https://")
}

// readTrace decodes the thread records of a local file or a URL.
func readTrace(ctx context.Context, src string) ([]tracefile.Thread, error) {
	var r io.ReadCloser
	if isURL(src) {
		resp, err := newHTTPClient().Get(src, http.Header{"Accept": []string{"application/json"}})
		if err != nil {
			return nil, fmt.Errorf("fetch %s: %w", src, err)
		}
		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			return nil, fmt.Errorf("fetch %s: %w %d", src, errUnexpectedStatus, resp.StatusCode)
		}
		r = resp.Body
	} else {
		f, err := os.Open(src)
		if err != nil {
			return nil, err
		}
		r = f
	}
	defer r.Close()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return tracefile.Decode(r)
}

// loadCollection reads a trace and reconstructs it with the trim options
// applied. An explicit trim takes precedence over the window.
func loadCollection(ctx context.Context, src string, opts loadOptions) (*tracestore.Collection, error) {
	threads, err := readTrace(ctx, src)
	if err != nil {
		return nil, err
	}
	c := tracestore.Load(threads, tracestore.Options{
		Threads: opts.threads,
		Workers: opts.workers,
	})
	switch {
	case opts.trim != 0:
		err = c.Trim(opts.trim)
	case opts.window > 0:
		_, err = c.TrimToWindow(opts.window)
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}
