// Package intake adapts external emergency request feeds onto the alert
// manager. The core does not care where requests come from; this consumer
// is one adapter, reading request snapshots off a Kafka topic.
package intake

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/segmentio/kafka-go"

	"github.com/thalanet/bloodmatch/internal/config"
	"github.com/thalanet/bloodmatch/internal/model"
)

// Buffer accumulates incoming requests between processing passes. Drain
// empties it; producers and the draining pass may run concurrently.
type Buffer struct {
	mu      sync.Mutex
	pending []model.EmergencyRequest
}

// Add appends a request to the buffer
func (b *Buffer) Add(req model.EmergencyRequest) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.pending = append(b.pending, req)
}

// Drain returns the buffered requests and resets the buffer
func (b *Buffer) Drain() []model.EmergencyRequest {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := b.pending
	b.pending = nil
	return out
}

// Len returns the number of buffered requests
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.pending)
}

// Consumer reads emergency requests from Kafka into a buffer
type Consumer struct {
	cfg    config.IntakeConfig
	logger *slog.Logger
	buffer *Buffer
	reader *kafka.Reader
}

// NewConsumer creates a Kafka intake consumer feeding the given buffer
func NewConsumer(cfg config.IntakeConfig, buffer *Buffer, logger *slog.Logger) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  cfg.Brokers,
		GroupID:  cfg.GroupID,
		Topic:    cfg.Topic,
		MinBytes: 1,
		MaxBytes: 10e6,
	})
	return &Consumer{
		cfg:    cfg,
		logger: logger,
		buffer: buffer,
		reader: reader,
	}
}

// Run consumes messages until the context is cancelled. Malformed messages
// are logged and skipped; one bad message never stops the feed.
func (c *Consumer) Run(ctx context.Context) error {
	c.logger.Info("starting request intake",
		"topic", c.cfg.Topic,
		"group_id", c.cfg.GroupID)

	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			c.logger.Error("failed to fetch intake message", "error", err)
			continue
		}

		var request model.EmergencyRequest
		if err := json.Unmarshal(msg.Value, &request); err != nil {
			c.logger.Warn("skipping malformed request message",
				"offset", msg.Offset,
				"error", err)
		} else if err := model.ValidateRequest(&request); err != nil {
			c.logger.Warn("skipping invalid request message",
				"offset", msg.Offset,
				"error", err)
		} else {
			c.buffer.Add(request)
			c.logger.Debug("request buffered",
				"request_id", request.RequestID,
				"urgency", request.Urgency)
		}

		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			c.logger.Error("failed to commit intake message", "error", err)
		}
	}
}

// Close releases the underlying Kafka reader
func (c *Consumer) Close() error {
	return c.reader.Close()
}
