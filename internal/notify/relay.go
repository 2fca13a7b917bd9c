package notify

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/segmentio/kafka-go"
)

const relayBatchSize = 100

// Relay drains the outbox into Kafka. It runs next to the HTTP server; the
// notifier worker consumes the topic and sends the mail. A message is
// marked published only after Kafka acknowledges it, so delivery is
// at-least-once.
type Relay struct {
	outbox   *Outbox
	writer   Publisher
	interval time.Duration
}

func NewRelay(outbox *Outbox, writer Publisher, interval time.Duration) *Relay {
	if interval <= 0 {
		interval = time.Second
	}
	return &Relay{outbox: outbox, writer: writer, interval: interval}
}

// Run polls until ctx is canceled.
func (r *Relay) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := r.publishBatch(ctx); err != nil {
				log.Error().Err(err).Msg("outbox relay: publish batch failed")
			}
		}
	}
}

func (r *Relay) publishBatch(ctx context.Context) error {
	msgs, err := r.outbox.FetchUnpublished(ctx, relayBatchSize)
	if err != nil {
		return err
	}

	for _, m := range msgs {
		value, err := json.Marshal(m)
		if err != nil {
			log.Error().Err(err).Stringer("message_id", m.ID).Msg("outbox relay: failed to encode message, skipping")
			continue
		}

		err = r.writer.WriteMessages(ctx, kafka.Message{
			Key:   []byte(m.ID.String()),
			Value: value,
			Time:  time.Now(),
		})
		if err != nil {
			// leave unpublished, the next tick retries
			return err
		}

		if err := r.outbox.MarkPublished(ctx, m.ID, time.Now().UTC()); err != nil {
			return err
		}
		log.Debug().Stringer("message_id", m.ID).Str("kind", m.Kind).Msg("outbox relay: message published")
	}
	return nil
}
