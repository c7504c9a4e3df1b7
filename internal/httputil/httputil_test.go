package httputil

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/andybalholm/brotli"
	"github.com/getsentry/sentry-go"
	"github.com/pierrec/lz4/v4"

	"github.com/libut/utview/internal/errorutil"
)

func echo() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		_, _ = w.Write(b)
	})
}

func TestDecompressPayload(t *testing.T) {
	payload := []byte(`[{"type":"thread"}]`)

	var br bytes.Buffer
	bw := brotli.NewWriter(&br)
	_, _ = bw.Write(payload)
	_ = bw.Close()

	var lz bytes.Buffer
	lw := lz4.NewWriter(&lz)
	_, _ = lw.Write(payload)
	_ = lw.Close()

	tests := []struct {
		encoding string
		body     []byte
	}{
		{encoding: "", body: payload},
		{encoding: "br", body: br.Bytes()},
		{encoding: "lz4", body: lz.Bytes()},
	}
	for _, test := range tests {
		req := httptest.NewRequest(http.MethodPost, "/traces", bytes.NewReader(test.body))
		if test.encoding != "" {
			req.Header.Set("Content-Encoding", test.encoding)
		}
		w := httptest.NewRecorder()
		DecompressPayload(echo()).ServeHTTP(w, req)
		if !bytes.Equal(w.Body.Bytes(), payload) {
			t.Fatalf("encoding %q: expected %s, got %s", test.encoding, payload, w.Body.Bytes())
		}
	}
}

func TestGetRangeParameters(t *testing.T) {
	tests := []struct {
		query          string
		wantLo, wantHi float64
		wantErr        bool
	}{
		{query: "", wantLo: 0, wantHi: 10},
		{query: "lo=2.5", wantLo: 2.5, wantHi: 10},
		{query: "lo=1&hi=3", wantLo: 1, wantHi: 3},
		{query: "hi=abc", wantErr: true},
		{query: "lo=NaN", wantErr: true},
		{query: "hi=Inf", wantErr: true},
	}
	for _, test := range tests {
		req := httptest.NewRequest(http.MethodGet, "/traces/a/intervals?"+test.query, nil)
		lo, hi, err := GetRangeParameters(req, 0, 10)
		if test.wantErr {
			if !errors.Is(err, errorutil.ErrInvalidRange) {
				t.Fatalf("query %q: expected ErrInvalidRange, got %v", test.query, err)
			}
			continue
		}
		if err != nil || lo != test.wantLo || hi != test.wantHi {
			t.Fatalf("query %q: got [%v, %v] (%v), want [%v, %v]", test.query, lo, hi, err, test.wantLo, test.wantHi)
		}
	}
}

func TestSetHTTPStatusCodeTag(t *testing.T) {
	e := SetHTTPStatusCodeTag(&sentry.Event{}, &sentry.EventHint{
		Response: &http.Response{StatusCode: http.StatusNotFound},
	})
	if e.Tags[HTTPStatusCodeTag] != "404" {
		t.Fatalf("expected the status code tag, got %+v", e.Tags)
	}
	e = SetHTTPStatusCodeTag(&sentry.Event{}, &sentry.EventHint{})
	if e.Tags != nil {
		t.Fatalf("expected no tags, got %+v", e.Tags)
	}
}
