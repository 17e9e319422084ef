package main

import (
	"errors"
	"math/rand"

	"golang.org/x/time/rate"

	"github.com/unclebandit/teamcast-backend/internal/blobstore"
	"github.com/unclebandit/teamcast-backend/internal/config"
	"github.com/unclebandit/teamcast-backend/internal/db"
	"github.com/unclebandit/teamcast-backend/internal/logging"
	"github.com/unclebandit/teamcast-backend/internal/model"
	"github.com/unclebandit/teamcast-backend/internal/queue"
	"github.com/unclebandit/teamcast-backend/internal/repository"
	"github.com/unclebandit/teamcast-backend/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	log := logging.New(cfg.Level, cfg.Pretty)

	handle, err := db.Connect(cfg.DatabaseConfig)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer handle.Close()

	blobs, err := blobstore.NewS3Store(blobstore.S3Config{
		Endpoint:       cfg.S3Endpoint,
		Region:         cfg.S3Region,
		Bucket:         cfg.S3Bucket,
		AccessKey:      cfg.S3AccessKey,
		SecretKey:      cfg.S3SecretKey,
		ForcePathStyle: cfg.S3ForcePathStyle,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to set up object store")
	}

	q, err := queue.NewAMQPQueue(cfg.URL, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to queue")
	}
	defer q.Close()

	repo := repository.NewNotificationRepository(&repository.PostgresStore{DB: handle}, blobs, log)
	limiter := rate.NewLimiter(rate.Limit(cfg.SendRate), cfg.SendRateBurst)
	worker := service.NewDeliveryWorker(repo, mockSend, limiter, log)

	if err := q.Subscribe(cfg.Topic, worker.HandleBatch); err != nil {
		log.Fatal().Err(err).Msg("failed to subscribe to delivery queue")
	}

	log.Info().Str("topic", cfg.Topic).Msg("worker running, waiting for batches")
	select {}
}

// mockSend stands in for the Teams transport: 90% success, a sliver of
// transport throttling. Swap for the real bot client.
func mockSend(recipient string, n *model.Notification) error {
	r := rand.Float64()
	switch {
	case r < 0.90:
		return nil
	case r < 0.95:
		return service.ErrThrottled
	default:
		return errors.New("mock sending failed")
	}
}
