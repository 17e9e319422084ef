package main

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/unclebandit/teamcast-backend/internal/blobstore"
	"github.com/unclebandit/teamcast-backend/internal/config"
	"github.com/unclebandit/teamcast-backend/internal/controller"
	"github.com/unclebandit/teamcast-backend/internal/db"
	"github.com/unclebandit/teamcast-backend/internal/logging"
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
	svc := service.NewNotificationService(
		repo, q, cfg.Topic, cfg.BatchSize,
		time.Duration(cfg.ListCacheTTL)*time.Second, log,
	)

	ctrl := &controller.NotificationController{Service: svc}

	r := chi.NewRouter()
	r.Group(ctrl.Routes)

	log.Info().Str("addr", cfg.Addr).Msg("server running")
	if err := http.ListenAndServe(cfg.Addr, r); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}
