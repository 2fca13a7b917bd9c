package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Stavickiy/internet-store/internal/config"
	"github.com/Stavickiy/internet-store/internal/notify"
)

const consumerGroup = "herbstore-notifier"

// The notifier consumes the notifications topic and delivers each message
// over SMTP. Offsets are committed only after a successful send, so a crash
// re-delivers rather than drops.
func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Info().Msg("Starting notifier...")

	cfg, err := config.Load(".env")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}

	reader := notify.NewReader(cfg.Kafka.Brokers, consumerGroup, cfg.Kafka.NotificationsTopic)
	defer reader.Close()

	sender := notify.NewSMTPSender(cfg.SMTP)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		stopCh := make(chan os.Signal, 1)
		signal.Notify(stopCh, syscall.SIGINT, syscall.SIGTERM)
		<-stopCh
		log.Info().Msg("Shutting down notifier...")
		cancel()
	}()

	for {
		m, err := reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, io.EOF) {
				break
			}
			log.Error().Err(err).Msg("Failed to fetch message")
			continue
		}

		var msg notify.Message
		if err := json.Unmarshal(m.Value, &msg); err != nil {
			// malformed payloads are committed away, retrying cannot fix them
			log.Error().Err(err).Str("key", string(m.Key)).Msg("Failed to decode message, skipping")
			if err := reader.CommitMessages(ctx, m); err != nil {
				log.Error().Err(err).Msg("Failed to commit offset")
			}
			continue
		}

		if err := sender.Send(msg); err != nil {
			// leave uncommitted, a restart re-delivers from the last commit
			log.Error().Err(err).Stringer("message_id", msg.ID).Msg("Failed to send mail")
			continue
		}

		if err := reader.CommitMessages(ctx, m); err != nil {
			log.Error().Err(err).Stringer("message_id", msg.ID).Msg("Failed to commit offset")
			continue
		}
		log.Info().Stringer("message_id", msg.ID).Str("kind", msg.Kind).Msg("Notification delivered")
	}

	log.Info().Msg("Notifier stopped gracefully.")
}
