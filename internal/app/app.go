package app

import (
	"context"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/IBM/sarama"
	"go.uber.org/zap"

	"github.com/ekarpov/bookvault/config"
	"github.com/ekarpov/bookvault/internal/cache"
	"github.com/ekarpov/bookvault/internal/events"
	"github.com/ekarpov/bookvault/internal/handler"
	"github.com/ekarpov/bookvault/internal/repository"
	"github.com/ekarpov/bookvault/internal/server"
	"github.com/ekarpov/bookvault/internal/service"
	"github.com/ekarpov/bookvault/internal/storage"
	"github.com/ekarpov/bookvault/migrations"
	"github.com/ekarpov/bookvault/pkg/kafka"
	"github.com/ekarpov/bookvault/pkg/logger"
	"github.com/ekarpov/bookvault/pkg/postgres"
	"github.com/ekarpov/bookvault/pkg/redis"
)

func Run(cfg *config.Config) {
	log := logger.NewLogger(cfg.Log, "bookvault")
	ctx := context.Background()

	db, err := postgres.NewPostgresDB(ctx, &cfg.Database, migrations.MigrationFiles)
	if err != nil {
		log.Fatal("db init", zap.Error(err))
	}

	rdb, err := redis.NewClient(ctx, cfg.Redis)
	if err != nil {
		log.Fatal("redis init", zap.Error(err))
	}
	tokens := cache.NewTokenStore(rdb)

	store, err := storage.NewClient(cfg.S3, log)
	if err != nil {
		log.Fatal("object storage init", zap.Error(err))
	}

	var producer sarama.SyncProducer
	if cfg.Kafka.Enabled {
		if producer, err = kafka.NewProducer(cfg.Kafka); err != nil {
			log.Fatal("kafka.NewProducer", zap.Error(err))
		}
	}
	publisher := events.NewPublisher(producer, log)

	authorRepo := repository.NewAuthorRepository(db, log)
	genreRepo := repository.NewGenreRepository(db, log)
	bookRepo := repository.NewBookRepository(db, log)
	fileRepo := repository.NewBookFileRepository(db, log)
	historyRepo := repository.NewHistoryRepository(db, log)
	userRepo := repository.NewUserRepository(db, log)

	authorSvc := service.NewAuthorService(authorRepo, log)
	genreSvc := service.NewGenreService(genreRepo, log)
	userSvc := service.NewUserService(userRepo, log)
	bookSvc := service.NewBookService(
		bookRepo, fileRepo, historyRepo,
		authorRepo, genreRepo,
		store, tokens, publisher, log)
	authSvc := service.NewAuthService(cfg.Auth, tokens, log)

	h := handler.New(authorSvc, genreSvc, bookSvc, userSvc, authSvc, log)
	router, err := h.NewRouter(cfg.JWT)
	if err != nil {
		log.Fatal("router", zap.Error(err))
	}

	srv := server.NewServer(cfg.Server, router)
	log.Info("http server start ON: ",
		zap.String("addr",
			net.JoinHostPort(cfg.Server.Host, cfg.Server.Port)))
	go func() {
		if err := srv.Run(); err != nil {
			log.Error("server run", zap.Error(err))
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)
	termSig := <-sig

	log.Debug("Graceful shutdown", zap.Any("signal", termSig))

	closeCtx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()

	if err = srv.Stop(closeCtx); err != nil {
		log.DPanic("srv.Stop", zap.Error(err))
	}
	if err = publisher.Close(); err != nil {
		log.Error("producer close", zap.Error(err))
	}
	if err = rdb.Close(); err != nil {
		log.Error("redis close", zap.Error(err))
	}
	db.Close()
	log.Info("Graceful shutdown finished")
}
