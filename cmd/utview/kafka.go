package main

import (
	"context"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/libut/utview/internal/timeutil"
	"github.com/libut/utview/internal/tracestore"
)

type (
	KafkaWriter interface {
		WriteMessages(ctx context.Context, msgs ...kafka.Message) error
		Close() error
	}

	// TraceKafkaMessage announces a stored trace to downstream consumers.
	TraceKafkaMessage struct {
		TraceID      string        `json:"trace_id"`
		Environment  string        `json:"environment,omitempty"`
		Threads      []string      `json:"threads"`
		Intervals    int           `json:"intervals"`
		Anomalies    int           `json:"anomalies"`
		TimestampMax float64       `json:"timestamp_max"`
		Cutoff       float64       `json:"cutoff"`
		Size         int           `json:"size"`
		Received     timeutil.Time `json:"received"`
	}
)

func newKafkaWriter(brokers []string) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Async:        true,
		Balancer:     kafka.CRC32Balancer{},
		BatchSize:    10,
		Compression:  kafka.Lz4,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	}
}

func buildTraceKafkaMessage(traceID, environment string, size int, c *tracestore.Collection) TraceKafkaMessage {
	s := c.Summary()
	threads := make([]string, 0, len(s.Threads))
	for _, t := range s.Threads {
		threads = append(threads, t.Name)
	}
	return TraceKafkaMessage{
		TraceID:      traceID,
		Environment:  environment,
		Threads:      threads,
		Intervals:    s.Intervals,
		Anomalies:    s.Anomalies,
		TimestampMax: s.TimestampMax,
		Cutoff:       s.Cutoff,
		Size:         size,
		Received:     timeutil.Time(time.Now().UTC()),
	}
}
